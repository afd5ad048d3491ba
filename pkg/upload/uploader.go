// Package upload performs the two-phase object upload: acquire a
// pre-authorized destination from the API, then transfer the raw bytes to
// it.
package upload

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/fieldinsights/field-sync-client/pkg/api"
	"github.com/fieldinsights/field-sync-client/pkg/capture"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// ErrTicketUsed indicates a second transfer was attempted against a
// single-use ticket.
var ErrTicketUsed = errors.New("upload ticket already used")

// Ticket is a short-lived, server-issued upload destination. Exactly one
// PUT may be issued against it.
type Ticket struct {
	// URL is the pre-authorized destination for the raw PUT.
	URL string `json:"url"`

	// Fields carries the server-assigned form fields; Fields["key"] is
	// the durable object reference cited in structured submissions.
	Fields map[string]string `json:"fields"`

	used atomic.Bool
}

// ObjectKey is the durable object reference assigned by the server.
func (t *Ticket) ObjectKey() string {
	return t.Fields["key"]
}

// Uploader acquires tickets and transfers payloads.
type Uploader struct {
	api    *api.Client
	http   api.Doer
	logger zerolog.Logger
}

// New creates an Uploader. The ticket acquisition goes through the API
// client; the byte transfer uses httpClient directly because the
// destination is object storage, not the application origin. httpClient
// defaults to an http.Client with a 60s timeout.
func New(apiClient *api.Client, httpClient api.Doer) *Uploader {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 60 * time.Second}
	}
	return &Uploader{
		api:    apiClient,
		http:   httpClient,
		logger: log.With().Str("component", "upload").Logger(),
	}
}

// Presign acquires an upload ticket scoped to a filename and MIME type.
func (u *Uploader) Presign(ctx context.Context, filename, mime string) (*Ticket, error) {
	body := map[string]string{"filename": filename, "mime": mime}

	var ticket Ticket
	if err := u.api.PostJSON(ctx, "/upload/presign", body, &ticket); err != nil {
		return nil, fmt.Errorf("presign %s: %w", filename, err)
	}
	if ticket.URL == "" || ticket.ObjectKey() == "" {
		return nil, fmt.Errorf("presign %s: malformed ticket", filename)
	}
	return &ticket, nil
}

// Put transfers the raw bytes to the ticket's destination with the MIME
// type as content type. The ticket is consumed whether or not the
// transfer succeeds; a failed attempt means a fresh ticket, never reuse.
func (u *Uploader) Put(ctx context.Context, ticket *Ticket, data []byte, mime string) error {
	if !ticket.used.CompareAndSwap(false, true) {
		return ErrTicketUsed
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, ticket.URL, bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("create upload request: %w", err)
	}
	req.Header.Set("Content-Type", mime)
	req.ContentLength = int64(len(data))

	resp, err := u.http.Do(req)
	if err != nil {
		return fmt.Errorf("put object: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(resp.Body)
		return &api.APIError{Status: resp.StatusCode, Body: string(body)}
	}
	return nil
}

// Upload runs both phases for one captured blob and returns the object
// key to cite in the structured submission.
func (u *Uploader) Upload(ctx context.Context, blob capture.Blob) (string, error) {
	ticket, err := u.Presign(ctx, blob.Filename, blob.MIME)
	if err != nil {
		return "", err
	}

	if err := u.Put(ctx, ticket, blob.Data, blob.MIME); err != nil {
		return "", err
	}

	u.logger.Debug().
		Str("role", string(blob.Role)).
		Str("key", ticket.ObjectKey()).
		Int("bytes", len(blob.Data)).
		Msg("Object uploaded")
	return ticket.ObjectKey(), nil
}
