package routing

import (
	"errors"
	"fmt"
)

// ErrNetworkUnavailable indicates the network fetch could not reach the
// server (transient failure, recoverable via cache or fallback where the
// route class permits).
var ErrNetworkUnavailable = errors.New("network unavailable")

// FetchError is returned when a routed fetch fails with no applicable
// fallback for its route class.
type FetchError struct {
	Route RouteClass
	URL   string
	Err   error
}

// Error implements the error interface.
func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch %s (%s route): %v", e.URL, e.Route, e.Err)
}

// Unwrap implements error unwrapping for errors.Is/As.
func (e *FetchError) Unwrap() error {
	return e.Err
}
