package cache

import (
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strings"
)

// Key is the canonical identity of a cacheable request: method plus URL.
// Only GET requests are ever eligible, but the method stays part of the
// identity so a record can never be confused across verbs.
type Key struct {
	// Method is the HTTP method (always "GET" for cacheable traffic).
	Method string

	// Path is the URL path (e.g. "/v1/product-lines").
	Path string

	// Query are the query parameters.
	Query url.Values
}

// KeyForRequest derives the cache key for an HTTP request.
func KeyForRequest(req *http.Request) Key {
	return Key{
		Method: req.Method,
		Path:   req.URL.Path,
		Query:  req.URL.Query(),
	}
}

// String generates a deterministic key string.
// Format: method:path:query1=val1:query2=val2
//
// Example:
//
//	GET:/v1/insights:productLineId=pl-1:type=INSIGHT
func (k Key) String() string {
	parts := []string{k.Method, k.Path}

	// Add query params (sorted for determinism)
	if len(k.Query) > 0 {
		queryKeys := make([]string, 0, len(k.Query))
		for key := range k.Query {
			queryKeys = append(queryKeys, key)
		}
		sort.Strings(queryKeys)

		for _, key := range queryKeys {
			parts = append(parts, fmt.Sprintf("%s=%s", key, k.Query.Get(key)))
		}
	}

	return strings.Join(parts, ":")
}

// storageKey is the fully qualified backend key for a record within a
// generation. Generation names never contain ':'.
func storageKey(generation string, k Key) string {
	return "fieldsync:gen:" + generation + ":" + k.String()
}
