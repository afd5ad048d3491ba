package routing

import "strings"

// OfflineHeader tags synthetic responses served when both network and
// cache miss, so the UI can render a degraded state instead of failing.
const OfflineHeader = "X-Offline-Fallback"

// Fallback is a synthetic, well-formed payload for one endpoint prefix.
type Fallback struct {
	Prefix      string
	ContentType string
	Payload     []byte
}

// FallbackTable maps critical-read endpoint prefixes to their offline
// placeholder payloads. The policy is an explicit table rather than a
// hard-coded special case so extending it to further endpoints is a
// configuration change, not a code change.
type FallbackTable struct {
	entries []Fallback
}

// NewFallbackTable creates an empty table.
func NewFallbackTable() *FallbackTable {
	return &FallbackTable{}
}

// Register adds a fallback payload for an endpoint prefix.
func (t *FallbackTable) Register(prefix, contentType string, payload []byte) {
	t.entries = append(t.entries, Fallback{
		Prefix:      prefix,
		ContentType: contentType,
		Payload:     payload,
	})
}

// Lookup returns the fallback registered for the longest matching prefix.
func (t *FallbackTable) Lookup(path string) (Fallback, bool) {
	var best Fallback
	found := false
	for _, e := range t.entries {
		if strings.HasPrefix(path, e.Prefix) && len(e.Prefix) > len(best.Prefix) {
			best = e
			found = true
		}
	}
	return best, found
}

// Prefixes lists the registered endpoint prefixes; these are the critical
// reads for classification purposes.
func (t *FallbackTable) Prefixes() []string {
	prefixes := make([]string, 0, len(t.entries))
	for _, e := range t.entries {
		prefixes = append(prefixes, e.Prefix)
	}
	return prefixes
}

// DefaultFallbackTable returns the table shipped with the field client:
// the product-line reference list degrades to a single synthetic entry
// telling the rep to reconnect.
func DefaultFallbackTable(apiPrefix string) *FallbackTable {
	t := NewFallbackTable()
	t.Register(
		strings.TrimSuffix(apiPrefix, "/")+"/product-lines",
		"application/json",
		[]byte(`[{"id":"offline","name":"Modalità Offline - Connettiti per aggiornare"}]`),
	)
	return t
}
