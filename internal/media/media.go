package media

import (
	"context"
	"errors"
	"image"
)

// Kind identifies what a capture session produces.
type Kind string

const (
	Photo Kind = "photo"
	Video Kind = "video"
	Audio Kind = "audio"
	Text  Kind = "text" // typed story; never touches hardware
)

// Facing is a camera facing-mode preference.
type Facing string

const (
	// FacingEnvironment prefers the back camera, which is what workers use
	// to film their work.
	FacingEnvironment Facing = "environment"
	FacingUser        Facing = "user"
)

var (
	// ErrPermissionDenied is returned when the user declines device access.
	ErrPermissionDenied = errors.New("media: permission denied")

	// ErrDeviceUnavailable is returned when no matching capture device exists.
	ErrDeviceUnavailable = errors.New("media: device unavailable")

	// ErrStreamClosed is returned by stream reads after Close.
	ErrStreamClosed = errors.New("media: stream closed")
)

// Request describes which device to acquire.
type Request struct {
	Kind   Kind
	Facing Facing // camera preference only; ignored for audio
}

// Stream is an exclusive handle on an acquired capture device.
//
// Frame is meaningful for camera streams and returns the current still frame.
// Chunks is meaningful for recorder streams (video/audio) and yields encoded
// media chunks until the stream is closed. Close releases the underlying
// hardware handle; it is idempotent and must be called on every exit path.
type Stream interface {
	Frame() (image.Image, error)
	Chunks() <-chan []byte
	MimeType() string
	Close() error
}

// Adapter is the single point of contact with device hardware. Implementations
// wrap whatever the host platform provides; the package ships a deterministic
// stub for tests and a file-backed adapter for the file-picker path.
type Adapter interface {
	Acquire(ctx context.Context, req Request) (Stream, error)
}
