package capture

import (
	"time"

	"skillwallet/internal/blob"
	"skillwallet/internal/media"
)

// Session is one capture attempt: the blob produced by the camera, recorder,
// file picker, or text editor, plus its object-URL handle. A session is
// created fresh per attempt; retake discards it and starts over rather than
// mutating in place, so nothing can dangle on a revoked handle.
type Session struct {
	Kind            media.Kind
	Blob            *blob.Blob
	ObjectURL       string
	DurationSeconds int
	StartedAt       time.Time

	urls *blob.URLRegistry
}

// Discard revokes the session's object URL and drops its blob. Safe to call
// more than once and on a nil session.
func (s *Session) Discard() {
	if s == nil {
		return
	}
	if s.urls != nil && s.ObjectURL != "" {
		s.urls.Revoke(s.ObjectURL)
	}
	s.ObjectURL = ""
	s.Blob = nil
}

// Text returns the payload as a string. Meaningful for Text sessions.
func (s *Session) Text() string {
	if s == nil || s.Blob == nil {
		return ""
	}
	return string(s.Blob.Data)
}
