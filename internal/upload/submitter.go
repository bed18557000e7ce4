// Package upload converts an accepted capture session into one multipart
// request against the backend and maps the outcome into the wizard's failure
// taxonomy. Whether the blob survives a failed submit is decided here:
// validation failures mean the capture itself was rejected, transient
// failures mean the user only has to press Accept again.
package upload

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"skillwallet/internal/api"
	"skillwallet/internal/capture"
)

// ErrAlreadySubmitting is returned when Submit is called while another
// submit is in flight. Submissions are rejected, not queued.
var ErrAlreadySubmitting = errors.New("upload: submit already in flight")

// ErrNoBlob is returned when the session has nothing to upload. The wizard
// prevents this by never entering review with an empty session.
var ErrNoBlob = errors.New("upload: session has no blob")

// FailureClass separates recoverable-by-retry from recoverable-by-redoing.
type FailureClass int

const (
	// Validation means the backend rejected the payload (4xx). Retrying the
	// same blob cannot help; the capture is discarded.
	Validation FailureClass = iota
	// Transient means a network or server error (5xx). The blob is retained
	// and the same submit can simply be retried.
	Transient
)

func (c FailureClass) String() string {
	if c == Validation {
		return "validation"
	}
	return "transient"
}

// Failure is a classified submit failure with a user-presentable reason.
type Failure struct {
	Class  FailureClass
	Reason string
}

func (f *Failure) Error() string {
	return fmt.Sprintf("upload: %s failure: %s", f.Class, f.Reason)
}

// Result is the only artifact that crosses from transient wizard state into
// the surrounding screen.
type Result struct {
	RemotePath  string
	ConfirmedAt time.Time
}

// Submitter uploads accepted blobs for one user. At most one submit may be
// in flight per Submitter.
type Submitter struct {
	client *api.Client
	userID int64
	log    *slog.Logger

	mu       sync.Mutex
	inFlight bool
}

// NewSubmitter returns a Submitter bound to client and userID.
func NewSubmitter(client *api.Client, userID int64, log *slog.Logger) *Submitter {
	return &Submitter{client: client, userID: userID, log: log}
}

// Submit uploads the session's blob under destinationTag. It returns a
// Result on success; on failure the error is a *Failure (classified per the
// response), ErrAlreadySubmitting, or a context error. Submit never mutates
// or discards the session.
func (s *Submitter) Submit(ctx context.Context, sess *capture.Session, destinationTag string) (Result, error) {
	if sess == nil || sess.Blob == nil || sess.Blob.Size() == 0 {
		return Result{}, ErrNoBlob
	}

	s.mu.Lock()
	if s.inFlight {
		s.mu.Unlock()
		return Result{}, ErrAlreadySubmitting
	}
	s.inFlight = true
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.inFlight = false
		s.mu.Unlock()
	}()

	filename := Filename(destinationTag, sess.Blob.MimeType)
	s.log.Debug("submitting capture",
		slog.String("tag", destinationTag),
		slog.String("filename", filename),
		slog.Int("bytes", sess.Blob.Size()),
	)

	resp, err := s.client.UploadFile(ctx, s.userID, destinationTag, filename, sess.Blob.Data)
	if err != nil {
		return Result{}, classify(err)
	}

	return Result{RemotePath: resp.FilePath, ConfirmedAt: time.Now()}, nil
}

// InFlight reports whether a submit is currently running.
func (s *Submitter) InFlight() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.inFlight
}

// classify maps an api error into the failure taxonomy. Backend 4xx detail
// is specific and actionable; everything else gets a generic retry prompt so
// raw server text never reaches the user.
func classify(err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}

	var apiErr *api.Error
	if errors.As(err, &apiErr) && apiErr.IsClientError() {
		reason := apiErr.Detail
		if reason == "" {
			reason = "the server could not accept this capture"
		}
		return &Failure{Class: Validation, Reason: reason}
	}
	return &Failure{Class: Transient, Reason: "could not reach the server, please try again"}
}

// Filename builds the uploaded filename: tag, timestamp, short unique
// suffix, and an extension derived from the mime type. A retried attempt
// never reuses a previous attempt's name.
func Filename(tag, mimeType string) string {
	return fmt.Sprintf("%s_%d_%s%s",
		tag,
		time.Now().UnixMilli(),
		uuid.NewString()[:8],
		extensionFor(mimeType),
	)
}

func extensionFor(mimeType string) string {
	switch mimeType {
	case "image/jpeg":
		return ".jpg"
	case "image/png":
		return ".png"
	case "video/webm":
		return ".webm"
	case "video/mp4":
		return ".mp4"
	case "audio/webm":
		return ".webm"
	case "audio/mpeg":
		return ".mp3"
	case "text/plain":
		return ".txt"
	default:
		return ".bin"
	}
}
