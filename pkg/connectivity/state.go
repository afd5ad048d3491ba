// Package connectivity tracks network reachability for the field client.
// The state feeds the background-sync trigger: when connectivity returns
// after an offline stretch, registered reconnect callbacks fire.
package connectivity

import (
	"time"
)

// Redis keys for shared connectivity state.
const (
	RedisKeyState = "fieldsync:connectivity:state"
)

// Consecutive probe failure thresholds.
const (
	// FailuresDegraded marks the link degraded after this many
	// consecutive failures.
	FailuresDegraded = 1

	// FailuresOffline marks the link offline after this many
	// consecutive failures.
	FailuresOffline = 3
)

// Status is the coarse link state.
type Status string

const (
	// StatusOnline means the last probe reached the server.
	StatusOnline Status = "online"

	// StatusDegraded means recent probes failed but not enough to call
	// the link down.
	StatusDegraded Status = "degraded"

	// StatusOffline means the link is considered down.
	StatusOffline Status = "offline"
)

// State is the persisted connectivity state, shared across processes via
// Redis when configured.
type State struct {
	// ConsecutiveFailures counts probe failures since the last success.
	ConsecutiveFailures int `json:"consecutive_failures"`

	// LastSuccess is when a probe last reached the server.
	LastSuccess time.Time `json:"last_success"`

	// LastUpdate is when this state was last written.
	LastUpdate time.Time `json:"last_update"`
}

// Status derives the coarse link state from the failure count.
func (s *State) Status() Status {
	switch {
	case s.ConsecutiveFailures >= FailuresOffline:
		return StatusOffline
	case s.ConsecutiveFailures >= FailuresDegraded:
		return StatusDegraded
	default:
		return StatusOnline
	}
}

// IsStale returns true if the state is older than the given duration.
func (s *State) IsStale(maxAge time.Duration) bool {
	return time.Since(s.LastUpdate) > maxAge
}
