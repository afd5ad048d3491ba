// Package cache provides the generation-scoped HTTP response store used by
// the field client to survive intermittent connectivity.
package cache

import (
	"net/http"
	"time"
)

// Role identifies which half of the cache namespace a generation serves.
type Role string

const (
	// RoleStatic holds the precached application shell assets.
	RoleStatic Role = "static"

	// RoleRuntime holds responses captured while the client runs.
	RoleRuntime Role = "runtime"
)

// Generation names one version of the cache namespace.
// Exactly one generation per role is current at any time; everything else
// is stale and gets purged on activation.
type Generation struct {
	Name string
	Role Role
}

// Record is a captured HTTP response.
//
// Records carry no TTL: staleness is managed only by generation
// replacement, never by per-entry expiry.
type Record struct {
	// Status is the HTTP status code of the captured response.
	Status int `json:"status"`

	// Header holds the response headers.
	Header http.Header `json:"header"`

	// Body is the response body bytes.
	Body []byte `json:"body"`

	// StoredAt is when the record was written.
	StoredAt time.Time `json:"stored_at"`
}

// Cacheable reports whether a response may be written to the store.
// Only successful (2xx) responses are ever cached; a failed refetch must
// never clobber a previously stored good record.
func Cacheable(status int) bool {
	return status >= 200 && status < 300
}
