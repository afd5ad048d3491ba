// Package testutil provides testing utilities for the field sync client.
package testutil

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
)

// MockAPI is a configurable mock of the field-insights API plus its
// object storage, for exercising the upload and submission flows without
// a real backend.
type MockAPI struct {
	server   *httptest.Server
	mu       sync.RWMutex
	handlers map[string]func(w http.ResponseWriter, r *http.Request)

	// Failure injection
	failPresignFor string // substring of filename
	failPutFor     string // substring of object key
	failInsights   bool

	// Tracking
	Ops          []string // operation sequence: "presign", "put", "insight"
	PresignCount int
	PutCount     int
	InsightCount int
	Objects      map[string][]byte // object key -> uploaded bytes
	ObjectMIMEs  map[string]string // object key -> Content-Type of the PUT
	LastInsight  []byte            // body of the last POST /insights
	ProductLines string            // JSON served at GET /product-lines
}

// NewMockAPI creates a mock API server.
func NewMockAPI() *MockAPI {
	mock := &MockAPI{
		handlers:     make(map[string]func(w http.ResponseWriter, r *http.Request)),
		Objects:      make(map[string][]byte),
		ObjectMIMEs:  make(map[string]string),
		ProductLines: `[{"id":"pl-1","name":"Cardio"},{"id":"pl-2","name":"Derma"}]`,
	}

	mock.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mock.mu.RLock()
		handler, exists := mock.handlers[r.Method+" "+r.URL.Path]
		mock.mu.RUnlock()

		if exists {
			handler(w, r)
			return
		}

		mock.defaultHandler(w, r)
	}))

	return mock
}

// URL returns the mock server URL.
func (m *MockAPI) URL() string {
	return m.server.URL
}

// Close shuts down the mock server.
func (m *MockAPI) Close() {
	m.server.Close()
}

// SetHandler sets a custom handler for "METHOD /path".
func (m *MockAPI) SetHandler(methodAndPath string, handler func(w http.ResponseWriter, r *http.Request)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.handlers[methodAndPath] = handler
}

// FailPresignFor makes presign requests whose filename contains the
// substring fail with a 503.
func (m *MockAPI) FailPresignFor(substring string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failPresignFor = substring
}

// FailPutFor makes object PUTs whose key contains the substring fail.
func (m *MockAPI) FailPutFor(substring string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failPutFor = substring
}

// FailInsights makes POST /insights fail with a 503.
func (m *MockAPI) FailInsights(fail bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failInsights = fail
}

func (m *MockAPI) defaultHandler(w http.ResponseWriter, r *http.Request) {
	switch {
	case r.Method == http.MethodPost && r.URL.Path == "/upload/presign":
		m.handlePresign(w, r)
	case r.Method == http.MethodPut && strings.HasPrefix(r.URL.Path, "/objects/"):
		m.handlePut(w, r)
	case r.Method == http.MethodPost && r.URL.Path == "/insights":
		m.handleInsight(w, r)
	case r.Method == http.MethodGet && r.URL.Path == "/product-lines":
		m.mu.RLock()
		lines := m.ProductLines
		m.mu.RUnlock()
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(lines))
	case r.Method == http.MethodGet && r.URL.Path == "/insights":
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`[]`))
	default:
		http.NotFound(w, r)
	}
}

func (m *MockAPI) handlePresign(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Filename string `json:"filename"`
		MIME     string `json:"mime"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	m.mu.Lock()
	m.PresignCount++
	m.Ops = append(m.Ops, "presign")
	fail := m.failPresignFor != "" && strings.Contains(body.Filename, m.failPresignFor)
	key := fmt.Sprintf("uploads/%04d-%s", m.PresignCount, body.Filename)
	m.mu.Unlock()

	if fail {
		http.Error(w, `{"error":"presign unavailable"}`, http.StatusServiceUnavailable)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"url": m.server.URL + "/objects/" + key,
		"fields": map[string]string{
			"key":          key,
			"Content-Type": body.MIME,
		},
	})
}

func (m *MockAPI) handlePut(w http.ResponseWriter, r *http.Request) {
	key := strings.TrimPrefix(r.URL.Path, "/objects/")
	data, _ := io.ReadAll(r.Body)

	m.mu.Lock()
	m.PutCount++
	m.Ops = append(m.Ops, "put")
	fail := m.failPutFor != "" && strings.Contains(key, m.failPutFor)
	if !fail {
		m.Objects[key] = data
		m.ObjectMIMEs[key] = r.Header.Get("Content-Type")
	}
	m.mu.Unlock()

	if fail {
		http.Error(w, "storage unavailable", http.StatusServiceUnavailable)
		return
	}
	w.WriteHeader(http.StatusOK)
}

func (m *MockAPI) handleInsight(w http.ResponseWriter, r *http.Request) {
	data, _ := io.ReadAll(r.Body)

	m.mu.Lock()
	m.InsightCount++
	m.Ops = append(m.Ops, "insight")
	m.LastInsight = data
	fail := m.failInsights
	m.mu.Unlock()

	if fail {
		http.Error(w, `{"error":"unavailable"}`, http.StatusServiceUnavailable)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	w.Write([]byte(`{"id":"i-1","status":"queued"}`))
}

// OpSequence returns the recorded operation order.
func (m *MockAPI) OpSequence() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	ops := make([]string, len(m.Ops))
	copy(ops, m.Ops)
	return ops
}

// Reset clears all tracking state.
func (m *MockAPI) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Ops = nil
	m.PresignCount = 0
	m.PutCount = 0
	m.InsightCount = 0
	m.Objects = make(map[string][]byte)
	m.ObjectMIMEs = make(map[string]string)
	m.LastInsight = nil
}
