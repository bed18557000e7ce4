// Package capture drives one capture session at a time: an instantaneous
// photo snapshot, or a start/stop video or audio recording with an elapsed
// counter. It owns no hardware itself; streams come from a media.Adapter and
// are always closed before a session is handed to review.
package capture

import (
	"bytes"
	"context"
	"errors"
	"image/jpeg"
	"sync"
	"time"

	"skillwallet/internal/blob"
	"skillwallet/internal/media"
)

// JPEG encoding quality for photo snapshots, matching the canvas encoding
// the web client used.
const photoQuality = 85

var (
	// ErrAlreadyRecording is returned by StartRecording while a recording is
	// active. The active recording is left untouched.
	ErrAlreadyRecording = errors.New("capture: already recording")

	// ErrNoFrame is returned when a photo snapshot cannot be taken.
	ErrNoFrame = errors.New("capture: no frame available")
)

// TickerFunc produces a tick channel for the elapsed-seconds counter and a
// stop function. Injectable so tests can drive the counter by hand; the
// default ticks once per wall-clock second.
type TickerFunc func() (ticks <-chan time.Time, stop func())

func defaultTicker() (<-chan time.Time, func()) {
	t := time.NewTicker(time.Second)
	return t.C, t.Stop
}

// Controller produces capture Sessions. One Controller serves one wizard
// instance; at most one recording may be active at a time.
type Controller struct {
	urls   *blob.URLRegistry
	ticker TickerFunc

	mu  sync.Mutex
	rec *recording

	// elapsed survives the recording so the UI counter reads frozen, not
	// reset, after stop.
	elapsed int
}

// NewController returns a Controller that registers object URLs in urls.
func NewController(urls *blob.URLRegistry) *Controller {
	return &Controller{urls: urls, ticker: defaultTicker}
}

// NewControllerWithTicker is NewController with an injected elapsed-counter
// ticker. Used in tests.
func NewControllerWithTicker(urls *blob.URLRegistry, ticker TickerFunc) *Controller {
	return &Controller{urls: urls, ticker: ticker}
}

// recording is the state of an in-flight video/audio recording.
type recording struct {
	kind      media.Kind
	stream    media.Stream
	startedAt time.Time

	stopTicker func()
	readerDone chan struct{}

	chunkMu sync.Mutex
	chunks  [][]byte
}

// TakePhoto grabs a single still frame from stream, encodes it as JPEG, and
// returns a ready-to-review session. The stream is closed before returning,
// on success and on failure, so the camera indicator goes dark as soon as the
// shutter fires.
func (c *Controller) TakePhoto(ctx context.Context, stream media.Stream) (*Session, error) {
	defer stream.Close()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	frame, err := stream.Frame()
	if err != nil {
		return nil, errors.Join(ErrNoFrame, err)
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, frame, &jpeg.Options{Quality: photoQuality}); err != nil {
		return nil, err
	}

	b := &blob.Blob{Data: buf.Bytes(), MimeType: "image/jpeg"}
	return c.newSession(media.Photo, b, 0, time.Now()), nil
}

// StartRecording begins buffering encoded chunks from stream and starts the
// elapsed-seconds counter. A second call while recording returns
// ErrAlreadyRecording and leaves the active recording unaffected.
func (c *Controller) StartRecording(ctx context.Context, kind media.Kind, stream media.Stream) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.rec != nil {
		return ErrAlreadyRecording
	}
	if err := ctx.Err(); err != nil {
		stream.Close()
		return err
	}

	ticks, stopTicker := c.ticker()
	rec := &recording{
		kind:       kind,
		stream:     stream,
		startedAt:  time.Now(),
		stopTicker: stopTicker,
		readerDone: make(chan struct{}),
	}
	c.rec = rec
	c.elapsed = 0

	go func() {
		for range ticks {
			c.mu.Lock()
			if c.rec != rec {
				c.mu.Unlock()
				return
			}
			c.elapsed++
			c.mu.Unlock()
		}
	}()

	go func() {
		defer close(rec.readerDone)
		for chunk := range stream.Chunks() {
			if len(chunk) == 0 {
				continue
			}
			rec.chunkMu.Lock()
			rec.chunks = append(rec.chunks, chunk)
			rec.chunkMu.Unlock()
		}
	}()

	return nil
}

// StopRecording finalizes the buffered chunks into a single blob, stops the
// elapsed counter, and closes the underlying stream. Calling it when nothing
// is recording is a no-op returning (nil, nil).
func (c *Controller) StopRecording() (*Session, error) {
	c.mu.Lock()
	rec := c.rec
	c.rec = nil
	duration := c.elapsed
	c.mu.Unlock()

	if rec == nil {
		return nil, nil
	}

	// Freeze the counter first, then release the hardware. Closing the
	// stream ends its chunk channel, which lets the reader drain and exit.
	rec.stopTicker()
	if err := rec.stream.Close(); err != nil {
		return nil, err
	}
	<-rec.readerDone

	rec.chunkMu.Lock()
	total := 0
	for _, chunk := range rec.chunks {
		total += len(chunk)
	}
	data := make([]byte, 0, total)
	for _, chunk := range rec.chunks {
		data = append(data, chunk...)
	}
	rec.chunkMu.Unlock()

	mime := rec.stream.MimeType()
	if mime == "" || mime == "application/octet-stream" {
		if rec.kind == media.Video {
			mime = "video/webm"
		} else {
			mime = "audio/webm"
		}
	}

	b := &blob.Blob{Data: data, MimeType: mime}
	return c.newSession(rec.kind, b, duration, rec.startedAt), nil
}

// Recording reports whether a recording is in flight.
func (c *Controller) Recording() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.rec != nil
}

// Elapsed returns the elapsed-seconds counter: live while recording, frozen
// at its final value after stop.
func (c *Controller) Elapsed() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.elapsed
}

// Abort tears down any in-flight recording without producing a session.
// Used when the wizard is closed mid-capture.
func (c *Controller) Abort() {
	c.mu.Lock()
	rec := c.rec
	c.rec = nil
	c.mu.Unlock()

	if rec == nil {
		return
	}
	rec.stopTicker()
	rec.stream.Close()
	<-rec.readerDone
}

// FromText wraps a typed story in a session. No hardware, no duration.
func (c *Controller) FromText(text string) *Session {
	b := &blob.Blob{Data: []byte(text), MimeType: "text/plain"}
	return c.newSession(media.Text, b, 0, time.Now())
}

// FromBytes wraps a user-selected file in a session, for the file-picker
// path that bypasses acquisition and capture entirely.
func (c *Controller) FromBytes(kind media.Kind, data []byte, mimeType string) *Session {
	b := &blob.Blob{Data: data, MimeType: mimeType}
	return c.newSession(kind, b, 0, time.Now())
}

func (c *Controller) newSession(kind media.Kind, b *blob.Blob, duration int, startedAt time.Time) *Session {
	return &Session{
		Kind:            kind,
		Blob:            b,
		ObjectURL:       c.urls.Create(b),
		DurationSeconds: duration,
		StartedAt:       startedAt,
		urls:            c.urls,
	}
}
