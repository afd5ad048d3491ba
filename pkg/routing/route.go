// Package routing classifies outbound requests by URL shape and executes
// the per-class caching strategy with graceful offline degradation.
package routing

import (
	"net/http"
	"net/url"
	"path"
	"strings"
)

// RouteClass is the caching-policy category assigned to a request.
type RouteClass string

const (
	// RouteNavigation is a document request for the application shell.
	// Strategy: cache-first within the runtime generation; offline
	// fallback is the precached shell document.
	RouteNavigation RouteClass = "navigation"

	// RouteAPICritical is a same-origin API read designated as critical
	// reference data. Strategy: network-first; offline fallback is the
	// cached copy, then a synthetic placeholder payload.
	RouteAPICritical RouteClass = "api_critical"

	// RouteAPI is any other same-origin API call. Strategy:
	// network-first; offline fallback is the cached copy, else failure.
	RouteAPI RouteClass = "api"

	// RouteStatic is a same-origin static asset. Strategy: cache-first,
	// caching the network result on miss.
	RouteStatic RouteClass = "static"

	// RoutePassthrough is traffic the cache layer never touches:
	// non-GET methods and cross-origin requests.
	RoutePassthrough RouteClass = "passthrough"
)

// Classifier computes the RouteClass of a request as a pure function of
// method and URL. It holds no mutable state.
type Classifier struct {
	// Origin is the application's own origin (scheme://host). Requests
	// to any other origin are never intercepted.
	Origin string

	// APIPrefix marks API paths (e.g. "/v1/").
	APIPrefix string

	// CriticalPrefixes are the API path prefixes designated as critical
	// reads, normally derived from the offline fallback table.
	CriticalPrefixes []string
}

// Classify assigns a RouteClass to the request.
func (c Classifier) Classify(req *http.Request) RouteClass {
	if req.Method != http.MethodGet {
		return RoutePassthrough
	}
	if !c.sameOrigin(req.URL) {
		return RoutePassthrough
	}

	p := req.URL.Path
	if c.APIPrefix != "" && strings.HasPrefix(p, c.APIPrefix) {
		for _, prefix := range c.CriticalPrefixes {
			if strings.HasPrefix(p, prefix) {
				return RouteAPICritical
			}
		}
		return RouteAPI
	}

	// Document requests have no file extension; everything else under
	// the app origin is a static asset.
	if p == "/" || path.Ext(p) == "" || strings.HasSuffix(p, ".html") {
		return RouteNavigation
	}
	return RouteStatic
}

func (c Classifier) sameOrigin(u *url.URL) bool {
	if c.Origin == "" {
		return true
	}
	origin, err := url.Parse(c.Origin)
	if err != nil {
		return false
	}
	// Relative URLs (no host) are same-origin by construction.
	if u.Host == "" {
		return true
	}
	return u.Host == origin.Host && (u.Scheme == "" || u.Scheme == origin.Scheme)
}
