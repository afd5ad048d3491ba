// Package capture acquires local binary payloads (microphone audio, camera
// photo, geolocation) from the host device behind explicit capability
// acquisition, so the pipeline is testable without real hardware.
package capture

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// Role is the logical role of a captured payload.
type Role string

const (
	// RoleAudio is a microphone recording.
	RoleAudio Role = "audio"

	// RolePhoto is a camera capture.
	RolePhoto Role = "photo"
)

// Capability names a device capability whose acquisition can be denied.
type Capability string

const (
	CapabilityMicrophone  Capability = "microphone"
	CapabilityCamera      Capability = "camera"
	CapabilityGeolocation Capability = "geolocation"
)

// ErrAccessDenied indicates the user refused a device capability. It is a
// non-fatal, user-facing condition: the capture flow stays usable without
// the denied capability.
var ErrAccessDenied = errors.New("device access denied")

// AccessError reports which capability was denied.
type AccessError struct {
	Capability Capability
}

// Error implements the error interface.
func (e *AccessError) Error() string {
	return fmt.Sprintf("%s: %s", ErrAccessDenied, e.Capability)
}

// Unwrap lets errors.Is match ErrAccessDenied.
func (e *AccessError) Unwrap() error {
	return ErrAccessDenied
}

// Blob is a captured binary payload. It lives in memory only: it is
// discarded after a successful upload or on form reset and is never
// written to the cache layer.
type Blob struct {
	Role     Role
	MIME     string
	Filename string
	Data     []byte
}

// Empty reports whether the blob carries no payload.
func (b Blob) Empty() bool {
	return len(b.Data) == 0
}

// Location is a geolocation fix attached to a submission as context
// metadata.
type Location struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// AudioSource is the microphone device abstraction.
type AudioSource interface {
	// Start acquires the microphone and begins recording. Returns an
	// AccessError when permission is refused.
	Start() error

	// Stop ends the recording, releases the microphone, and returns the
	// recorded bytes with their MIME type. Stop must release the device
	// even when it returns an error.
	Stop() (data []byte, mime string, err error)
}

// PhotoSource is the camera device abstraction.
type PhotoSource interface {
	// Capture acquires the camera, takes one photo, and releases the
	// device before returning. Returns an AccessError when permission
	// is refused.
	Capture(ctx context.Context) (data []byte, mime string, err error)
}

// LocationSource provides the current geolocation fix.
type LocationSource interface {
	// Current returns the device position. Returns an AccessError when
	// permission is refused.
	Current(ctx context.Context) (Location, error)
}

// TakePhoto captures a single photo blob.
func TakePhoto(ctx context.Context, source PhotoSource) (Blob, error) {
	data, mime, err := source.Capture(ctx)
	if err != nil {
		return Blob{}, err
	}
	if mime == "" {
		mime = "image/jpeg"
	}
	return Blob{
		Role:     RolePhoto,
		MIME:     mime,
		Filename: fmt.Sprintf("photo-%s.jpg", uuid.NewString()),
		Data:     data,
	}, nil
}
