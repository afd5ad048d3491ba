package cache

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"time"
)

// ResponseToRecord converts an HTTP response to a cache Record.
// It reads the response body and restores it afterwards, since a body can
// be consumed only once and the caller still needs it.
func ResponseToRecord(resp *http.Response) (*Record, error) {
	if resp == nil {
		return nil, fmt.Errorf("response cannot be nil")
	}
	if !Cacheable(resp.StatusCode) {
		return nil, ErrNotCacheable
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response body: %w", err)
	}
	resp.Body.Close()

	// Restore body for caller
	resp.Body = io.NopCloser(bytes.NewReader(body))

	return &Record{
		Status:   resp.StatusCode,
		Header:   resp.Header.Clone(),
		Body:     body,
		StoredAt: time.Now(),
	}, nil
}

// RecordToResponse converts a stored record back into a servable HTTP
// response.
func RecordToResponse(rec *Record) *http.Response {
	header := rec.Header.Clone()
	if header == nil {
		header = http.Header{}
	}
	return &http.Response{
		StatusCode:    rec.Status,
		Status:        http.StatusText(rec.Status),
		Header:        header,
		Body:          io.NopCloser(bytes.NewReader(rec.Body)),
		ContentLength: int64(len(rec.Body)),
	}
}
