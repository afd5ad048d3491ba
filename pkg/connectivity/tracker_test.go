package connectivity

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func newTestTracker() *Tracker {
	return NewTracker(nil, zerolog.Nop())
}

func TestState_Status(t *testing.T) {
	tests := []struct {
		failures int
		want     Status
	}{
		{0, StatusOnline},
		{1, StatusDegraded},
		{2, StatusDegraded},
		{3, StatusOffline},
		{10, StatusOffline},
	}

	for _, tt := range tests {
		s := &State{ConsecutiveFailures: tt.failures}
		if got := s.Status(); got != tt.want {
			t.Errorf("Status() with %d failures = %s, want %s", tt.failures, got, tt.want)
		}
	}
}

func TestState_IsStale(t *testing.T) {
	s := &State{LastUpdate: time.Now().Add(-2 * time.Minute)}
	if !s.IsStale(time.Minute) {
		t.Error("two-minute-old state should be stale at 1m max age")
	}
	if s.IsStale(time.Hour) {
		t.Error("state should not be stale at 1h max age")
	}
}

func TestTracker_ReconnectFiresAfterOffline(t *testing.T) {
	tracker := newTestTracker()
	ctx := context.Background()

	reconnects := 0
	tracker.OnReconnect(func(ctx context.Context) { reconnects++ })

	// Not yet offline: recovery from degraded is not a reconnect.
	tracker.RecordFailure(ctx)
	tracker.RecordSuccess(ctx)
	if reconnects != 0 {
		t.Fatalf("reconnect fired from degraded state")
	}

	for i := 0; i < FailuresOffline; i++ {
		tracker.RecordFailure(ctx)
	}
	if tracker.Status() != StatusOffline {
		t.Fatalf("Status = %s, want offline", tracker.Status())
	}

	tracker.RecordSuccess(ctx)
	if reconnects != 1 {
		t.Errorf("reconnects = %d, want 1", reconnects)
	}
	if !tracker.Online() {
		t.Error("tracker not online after success")
	}
}

func TestTracker_Probe(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// A server-side error still proves the network path works.
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	tracker := newTestTracker()
	ctx := context.Background()

	tracker.Probe(ctx, server.URL+"/healthz")
	if !tracker.Online() {
		t.Error("probe against reachable server should record success")
	}

	server.Close()
	for i := 0; i < FailuresOffline; i++ {
		tracker.Probe(ctx, server.URL+"/healthz")
	}
	if tracker.Status() != StatusOffline {
		t.Errorf("Status = %s, want offline after unreachable probes", tracker.Status())
	}
}
