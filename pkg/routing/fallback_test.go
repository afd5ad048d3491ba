package routing

import (
	"encoding/json"
	"testing"
)

func TestFallbackTable_Lookup(t *testing.T) {
	table := NewFallbackTable()
	table.Register("/v1/product-lines", "application/json", []byte(`[]`))
	table.Register("/v1/product-lines/featured", "application/json", []byte(`{"featured":[]}`))

	fb, ok := table.Lookup("/v1/product-lines")
	if !ok {
		t.Fatal("expected fallback for /v1/product-lines")
	}
	if string(fb.Payload) != `[]` {
		t.Errorf("Payload = %s", fb.Payload)
	}

	// Longest matching prefix wins.
	fb, ok = table.Lookup("/v1/product-lines/featured?x=1")
	if !ok {
		t.Fatal("expected fallback for featured")
	}
	if string(fb.Payload) != `{"featured":[]}` {
		t.Errorf("Payload = %s", fb.Payload)
	}

	if _, ok := table.Lookup("/v1/insights"); ok {
		t.Error("unregistered endpoint should have no fallback")
	}
}

func TestDefaultFallbackTable(t *testing.T) {
	table := DefaultFallbackTable("/v1/")

	fb, ok := table.Lookup("/v1/product-lines")
	if !ok {
		t.Fatal("default table missing product-lines fallback")
	}

	// Placeholder must be well-formed (parseable) and identifiable.
	var lines []struct {
		ID   string `json:"id"`
		Name string `json:"name"`
	}
	if err := json.Unmarshal(fb.Payload, &lines); err != nil {
		t.Fatalf("placeholder payload not parseable: %v", err)
	}
	if len(lines) != 1 || lines[0].ID != "offline" {
		t.Errorf("placeholder = %+v", lines)
	}

	prefixes := table.Prefixes()
	if len(prefixes) != 1 || prefixes[0] != "/v1/product-lines" {
		t.Errorf("Prefixes = %v", prefixes)
	}
}
