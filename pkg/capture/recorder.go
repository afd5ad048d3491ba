package capture

import (
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
)

// ErrNotRecording is returned when Stop is called with no recording in
// progress.
var ErrNotRecording = errors.New("no recording in progress")

// Recorder drives one microphone recording at a time. Stopping is an
// explicit user action and deterministically releases the device before
// returning, whether or not the resulting blob is ever submitted.
type Recorder struct {
	mu        sync.Mutex
	source    AudioSource
	recording bool
}

// NewRecorder creates a recorder over the given audio source.
func NewRecorder(source AudioSource) *Recorder {
	return &Recorder{source: source}
}

// Start acquires the microphone and begins recording.
func (r *Recorder) Start() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.recording {
		return fmt.Errorf("recording already in progress")
	}
	if err := r.source.Start(); err != nil {
		return err
	}
	r.recording = true
	return nil
}

// Recording reports whether a recording is in progress.
func (r *Recorder) Recording() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.recording
}

// Stop ends the recording and returns the captured blob. The device is
// released before Stop returns, even on error.
func (r *Recorder) Stop() (Blob, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.recording {
		return Blob{}, ErrNotRecording
	}
	r.recording = false

	data, mime, err := r.source.Stop()
	if err != nil {
		return Blob{}, fmt.Errorf("stop recording: %w", err)
	}
	if mime == "" {
		mime = "audio/webm"
	}

	return Blob{
		Role:     RoleAudio,
		MIME:     mime,
		Filename: fmt.Sprintf("note-%s.webm", uuid.NewString()),
		Data:     data,
	}, nil
}
