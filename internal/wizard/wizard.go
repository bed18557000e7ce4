// Package wizard sequences acquisition, capture, review, and upload into the
// linear flow every SkillWallet capture screen runs: work-proof photos and
// videos, voice stories, identity-document scans. One Wizard is one flow
// instance; the surrounding screen binds to nothing else.
package wizard

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"skillwallet/internal/blob"
	"skillwallet/internal/capture"
	"skillwallet/internal/media"
	"skillwallet/internal/session"
	"skillwallet/internal/upload"
)

// Step names one wizard state.
type Step string

const (
	StepIntro      Step = "intro"
	StepAcquiring  Step = "acquiring"
	StepCapturing  Step = "capturing"
	StepReviewing  Step = "reviewing"
	StepSubmitting Step = "submitting"
	StepSuccess    Step = "success"
	StepFailure    Step = "failure"
)

// State is the wizard's observable state. It is mutated only by the named
// transition methods on Wizard, never by field writes, so the set of
// reachable states stays enumerable.
type State struct {
	Current Step
	History []Step
	Err     string // user-facing message; empty when no error is showing
}

var (
	// ErrWrongStep is returned when a transition is attempted from a step it
	// is not defined for.
	ErrWrongStep = errors.New("wizard: transition not valid in current step")

	// ErrClosed is returned after Close.
	ErrClosed = errors.New("wizard: closed")
)

// Flow parametrizes one wizard instantiation.
type Flow struct {
	// Name keys the persisted last-completed-step entry.
	Name string
	// Kind is what this flow captures.
	Kind media.Kind
	// DestinationTag selects the backend upload slot (work_evidence,
	// work_story, aadhaar, ...).
	DestinationTag string
	// Facing is the camera preference; ignored for audio and text.
	Facing media.Facing
}

// Deps are the collaborators a wizard drives.
type Deps struct {
	Adapter    media.Adapter
	URLs       *blob.URLRegistry
	Controller *capture.Controller
	Submitter  *upload.Submitter
	Session    *session.Session // optional; records flow completion
	Log        *slog.Logger
}

// Wizard is one capture-review-submit flow instance.
type Wizard struct {
	flow Flow
	deps Deps

	state   State
	stream  media.Stream     // held between acquire and capture finalize
	current *capture.Session // the session under review
	result  *upload.Result   // set on success

	submitCancel context.CancelFunc // cancels an in-flight submit on Close
	closed       bool
}

// New returns a Wizard at the Intro step.
func New(flow Flow, deps Deps) *Wizard {
	return &Wizard{
		flow: flow,
		deps: deps,
		state: State{
			Current: StepIntro,
			History: []Step{StepIntro},
		},
	}
}

// State returns a copy of the current state.
func (w *Wizard) State() State {
	st := w.state
	st.History = append([]Step(nil), w.state.History...)
	return st
}

// Session returns the capture session under review, or nil.
func (w *Wizard) Session() *capture.Session {
	return w.current
}

// Result returns the upload result once the wizard has reached Success.
func (w *Wizard) Result() *upload.Result {
	return w.result
}

// Begin requests device access and, when granted, enters Capturing. On
// permission denial or missing hardware the wizard returns to Intro with a
// plain-language explanation; the typed cause is also returned.
func (w *Wizard) Begin(ctx context.Context) error {
	if w.closed {
		return ErrClosed
	}
	if w.state.Current != StepIntro {
		return ErrWrongStep
	}

	w.enter(StepAcquiring)
	stream, err := w.deps.Adapter.Acquire(ctx, media.Request{Kind: w.flow.Kind, Facing: w.flow.Facing})
	if err != nil {
		w.enterWithErr(StepIntro, permissionMessage(w.flow.Kind, err))
		return err
	}

	w.stream = stream
	w.enter(StepCapturing)
	return nil
}

// TakePhoto snapshots the held camera stream and enters Reviewing. Photo
// flows only.
func (w *Wizard) TakePhoto(ctx context.Context) error {
	if w.closed {
		return ErrClosed
	}
	if w.state.Current != StepCapturing || w.stream == nil {
		return ErrWrongStep
	}

	sess, err := w.deps.Controller.TakePhoto(ctx, w.stream)
	w.stream = nil // controller closed it either way
	if err != nil {
		w.enterWithErr(StepIntro, "We could not take the photo. Please try again.")
		return err
	}

	w.current = sess
	w.enter(StepReviewing)
	return nil
}

// StartRecording begins a video/audio recording on the held stream. The
// wizard stays in Capturing until StopRecording.
func (w *Wizard) StartRecording(ctx context.Context) error {
	if w.closed {
		return ErrClosed
	}
	if w.state.Current != StepCapturing || w.stream == nil {
		return ErrWrongStep
	}
	return w.deps.Controller.StartRecording(ctx, w.flow.Kind, w.stream)
}

// StopRecording finalizes the recording into a session and enters Reviewing.
// A no-op when nothing is recording.
func (w *Wizard) StopRecording() error {
	if w.closed {
		return ErrClosed
	}
	if w.state.Current != StepCapturing {
		return ErrWrongStep
	}

	sess, err := w.deps.Controller.StopRecording()
	if err != nil {
		w.stream = nil
		w.enterWithErr(StepIntro, "Recording failed. Please try again.")
		return err
	}
	if sess == nil {
		return nil // stop without start
	}

	w.stream = nil // controller closed it on stop
	w.current = sess
	w.enter(StepReviewing)
	return nil
}

// ProvideFile is the file-picker fallback: a user-selected file bypasses
// acquisition and capture and goes straight to Reviewing.
func (w *Wizard) ProvideFile(data []byte, mimeType string) error {
	if w.closed {
		return ErrClosed
	}
	if w.state.Current != StepIntro {
		return ErrWrongStep
	}

	w.current = w.deps.Controller.FromBytes(w.flow.Kind, data, mimeType)
	w.enter(StepReviewing)
	return nil
}

// ProvideText is the typed-story path for Text flows; like ProvideFile it
// jumps straight to Reviewing.
func (w *Wizard) ProvideText(text string) error {
	if w.closed {
		return ErrClosed
	}
	if w.state.Current != StepIntro {
		return ErrWrongStep
	}

	w.current = w.deps.Controller.FromText(text)
	w.enter(StepReviewing)
	return nil
}

// Retake destroys the session under review and returns to capture. The old
// session's object URL is revoked before a new stream is acquired, so no
// state from the discarded attempt leaks into the next one. If the device
// can no longer be acquired the wizard falls back to Intro with a message.
func (w *Wizard) Retake(ctx context.Context) error {
	if w.closed {
		return ErrClosed
	}
	if w.state.Current != StepReviewing {
		return ErrWrongStep
	}

	w.current.Discard()
	w.current = nil

	if w.flow.Kind == media.Text {
		w.enter(StepIntro)
		return nil
	}

	stream, err := w.deps.Adapter.Acquire(ctx, media.Request{Kind: w.flow.Kind, Facing: w.flow.Facing})
	if err != nil {
		w.enterWithErr(StepIntro, permissionMessage(w.flow.Kind, err))
		return err
	}
	w.stream = stream
	w.enter(StepCapturing)
	return nil
}

// Accept submits the session under review. On success the wizard reaches
// Success carrying the server-assigned path. A transient failure returns to
// Reviewing with the blob intact so the user only has to press Accept again;
// a validation failure discards the capture and starts over at Intro.
func (w *Wizard) Accept(ctx context.Context) error {
	if w.closed {
		return ErrClosed
	}
	if w.state.Current != StepReviewing || w.current == nil || w.current.Blob == nil {
		return ErrWrongStep
	}

	w.enter(StepSubmitting)

	ctx, cancel := context.WithCancel(ctx)
	w.submitCancel = cancel
	defer func() {
		cancel()
		w.submitCancel = nil
	}()

	result, err := w.deps.Submitter.Submit(ctx, w.current, w.flow.DestinationTag)
	if err != nil {
		if errors.Is(err, upload.ErrAlreadySubmitting) {
			// Caller misuse; no state change beyond staying in Submitting
			// until the first submit resolves.
			return err
		}

		var failure *upload.Failure
		if errors.As(err, &failure) && failure.Class == upload.Validation {
			w.current.Discard()
			w.current = nil
			w.enterWithErr(StepIntro, failure.Reason)
			return err
		}

		reason := "Please try again."
		if failure != nil {
			reason = failure.Reason
		}
		w.enterWithErr(StepReviewing, reason)
		return err
	}

	w.result = &result
	w.enter(StepSuccess)
	w.logf("flow complete", slog.String("remote_path", result.RemotePath))

	if w.deps.Session != nil {
		if err := w.deps.Session.SetLastStep(w.flow.Name, string(StepSuccess)); err != nil {
			w.logf("persist last step failed", slog.String("error", err.Error()))
		}
	}
	return nil
}

// Close abandons the wizard from any state: aborts a recording, releases any
// held stream, cancels an in-flight submit, and revokes every outstanding
// object URL. Idempotent.
func (w *Wizard) Close() {
	if w.closed {
		return
	}
	w.closed = true

	if w.submitCancel != nil {
		w.submitCancel()
	}
	w.deps.Controller.Abort()
	if w.stream != nil {
		w.stream.Close()
		w.stream = nil
	}
	w.current.Discard()
	w.current = nil
	w.deps.URLs.RevokeAll()
}

// Closed reports whether Close has been called.
func (w *Wizard) Closed() bool {
	return w.closed
}

func (w *Wizard) enter(step Step) {
	w.state.Current = step
	w.state.History = append(w.state.History, step)
	w.state.Err = ""
	w.logf("step", slog.String("to", string(step)))
}

func (w *Wizard) enterWithErr(step Step, msg string) {
	w.state.Current = step
	w.state.History = append(w.state.History, step)
	w.state.Err = msg
	w.logf("step", slog.String("to", string(step)), slog.String("message", msg))
}

func (w *Wizard) logf(msg string, attrs ...slog.Attr) {
	if w.deps.Log == nil {
		return
	}
	args := make([]any, 0, len(attrs)+1)
	args = append(args, slog.String("flow", w.flow.Name))
	for _, a := range attrs {
		args = append(args, a)
	}
	w.deps.Log.Debug(msg, args...)
}

// permissionMessage converts a device failure into the plain-language
// explanation shown on Intro. Raw error text never reaches the user.
func permissionMessage(kind media.Kind, err error) string {
	device := "camera"
	need := "see your work"
	if kind == media.Audio {
		device = "microphone"
		need = "hear your story"
	}
	switch {
	case errors.Is(err, media.ErrPermissionDenied):
		return fmt.Sprintf("We need %s access to %s. Please allow it in settings.", device, need)
	case errors.Is(err, media.ErrDeviceUnavailable):
		return fmt.Sprintf("No %s was found on this device.", device)
	default:
		return fmt.Sprintf("We could not start the %s. Please try again.", device)
	}
}
