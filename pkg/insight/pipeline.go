// Package insight orchestrates one "submit insight" operation: blob
// uploads followed by the structured submission, with an all-or-nothing
// partial-failure story.
package insight

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/fieldinsights/field-sync-client/pkg/api"
	"github.com/fieldinsights/field-sync-client/pkg/capture"
	"github.com/fieldinsights/field-sync-client/pkg/upload"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

var (
	submissionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "fieldsync_submissions_total",
		Help: "Total insight submissions by result",
	}, []string{"result"}) // "success", "upload_failed", "submit_failed"

	uploadsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "fieldsync_uploads_total",
		Help: "Total blob uploads by role and result",
	}, []string{"role", "result"})
)

// Type is the insight category.
type Type string

const (
	// TypeInsight is a field observation.
	TypeInsight Type = "INSIGHT"

	// TypeCI is a competitive-intelligence capture.
	TypeCI Type = "CI"
)

// Stage identifies where a submission failed.
type Stage string

const (
	// StageUpload means a blob upload (presign or transfer) failed.
	StageUpload Stage = "upload"

	// StageSubmit means the final structured POST failed.
	StageSubmit Stage = "submit"
)

// ErrSubmissionInProgress is returned when Submit is called while another
// submission over the same pipeline is still running.
var ErrSubmissionInProgress = errors.New("submission already in progress")

// Draft is the structured submission payload, built incrementally by the
// UI and submitted exactly once per user action.
type Draft struct {
	ProductLineID string
	TerritoryID   *string
	Type          Type
	Text          string
	OCRText       string
	Location      *capture.Location
}

// Result reports a completed submission.
type Result struct {
	ID       string
	AudioKey string
	PhotoKey string
}

// SubmitError distinguishes "upload failed" from "final submission
// failed" so the caller can decide how to retry; the pipeline itself
// never retries.
type SubmitError struct {
	Stage Stage
	Role  capture.Role // set for StageUpload
	Err   error
}

// Error implements the error interface.
func (e *SubmitError) Error() string {
	if e.Stage == StageUpload {
		return fmt.Sprintf("insight %s upload failed: %v", e.Role, e.Err)
	}
	return fmt.Sprintf("insight submission failed: %v", e.Err)
}

// Unwrap implements error unwrapping for errors.Is/As.
func (e *SubmitError) Unwrap() error {
	return e.Err
}

// submission is the wire payload of POST /insights.
type submission struct {
	ProductLineID string             `json:"productLineId"`
	TerritoryID   *string            `json:"territoryId"`
	Type          Type               `json:"type"`
	Text          string             `json:"text,omitempty"`
	AudioURL      string             `json:"audioUrl,omitempty"`
	PhotoURL      string             `json:"photoUrl,omitempty"`
	OCRText       string             `json:"ocrText,omitempty"`
	Metadata      *submissionContext `json:"metadata,omitempty"`
}

type submissionContext struct {
	Location *capture.Location `json:"location,omitempty"`
}

type created struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}

// Pipeline drives the submit-insight operation.
type Pipeline struct {
	api      *api.Client
	uploader *upload.Uploader
	logger   zerolog.Logger

	mu   sync.Mutex
	busy bool
}

// NewPipeline creates a submission pipeline.
func NewPipeline(apiClient *api.Client, uploader *upload.Uploader) *Pipeline {
	return &Pipeline{
		api:      apiClient,
		uploader: uploader,
		logger:   log.With().Str("component", "insight").Logger(),
	}
}

// Submit uploads every non-empty blob in fixed order (audio, then photo)
// and then issues the structured POST citing the returned object keys.
//
// The steps are strictly sequential and all-or-nothing: if any upload
// fails the whole submission fails, the POST is never issued, and no
// partial record exists server-side. Already-acquired tickets for the
// attempt are abandoned. No retry happens here; retrying is the caller's
// decision.
func (p *Pipeline) Submit(ctx context.Context, draft Draft, blobs []capture.Blob) (*Result, error) {
	p.mu.Lock()
	if p.busy {
		p.mu.Unlock()
		return nil, ErrSubmissionInProgress
	}
	p.busy = true
	p.mu.Unlock()
	defer func() {
		p.mu.Lock()
		p.busy = false
		p.mu.Unlock()
	}()

	if draft.ProductLineID == "" {
		return nil, fmt.Errorf("product line is required")
	}
	if draft.Type == "" {
		draft.Type = TypeInsight
	}

	result := &Result{}
	for _, role := range []capture.Role{capture.RoleAudio, capture.RolePhoto} {
		blob, ok := findBlob(blobs, role)
		if !ok {
			continue
		}

		key, err := p.uploader.Upload(ctx, blob)
		if err != nil {
			uploadsTotal.WithLabelValues(string(role), "failure").Inc()
			submissionsTotal.WithLabelValues("upload_failed").Inc()
			p.logger.Error().Err(err).Str("role", string(role)).Msg("Blob upload failed, aborting submission")
			return nil, &SubmitError{Stage: StageUpload, Role: role, Err: err}
		}
		uploadsTotal.WithLabelValues(string(role), "success").Inc()

		switch role {
		case capture.RoleAudio:
			result.AudioKey = key
		case capture.RolePhoto:
			result.PhotoKey = key
		}
	}

	payload := submission{
		ProductLineID: draft.ProductLineID,
		TerritoryID:   draft.TerritoryID,
		Type:          draft.Type,
		Text:          draft.Text,
		AudioURL:      result.AudioKey,
		PhotoURL:      result.PhotoKey,
		OCRText:       draft.OCRText,
	}
	if draft.Location != nil {
		payload.Metadata = &submissionContext{Location: draft.Location}
	}

	var record created
	if err := p.api.PostJSON(ctx, "/insights", payload, &record); err != nil {
		submissionsTotal.WithLabelValues("submit_failed").Inc()
		p.logger.Error().Err(err).Msg("Insight submission failed")
		return nil, &SubmitError{Stage: StageSubmit, Err: err}
	}

	result.ID = record.ID
	submissionsTotal.WithLabelValues("success").Inc()
	p.logger.Info().
		Str("id", record.ID).
		Str("product_line", draft.ProductLineID).
		Bool("audio", result.AudioKey != "").
		Bool("photo", result.PhotoKey != "").
		Msg("Insight submitted")
	return result, nil
}

// findBlob returns the first non-empty blob with the given role.
func findBlob(blobs []capture.Blob, role capture.Role) (capture.Blob, bool) {
	for _, b := range blobs {
		if b.Role == role && !b.Empty() {
			return b, true
		}
	}
	return capture.Blob{}, false
}
