package capture

import (
	"bytes"
	"context"
	"errors"
	"image"
	"testing"
	"time"

	"skillwallet/internal/blob"
	"skillwallet/internal/media"
)

// manualTicker returns a controller whose elapsed counter is driven by hand.
func manualTicker(buf int) (chan time.Time, TickerFunc) {
	ticks := make(chan time.Time, buf)
	return ticks, func() (<-chan time.Time, func()) {
		return ticks, func() {}
	}
}

func waitForElapsed(t *testing.T, c *Controller, want int) {
	t.Helper()
	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if c.Elapsed() == want {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatalf("Elapsed never reached %d, got %d", want, c.Elapsed())
}

func TestController_take_photo(t *testing.T) {
	urls := blob.NewURLRegistry()
	ctrl := NewController(urls)
	adapter := &media.StubAdapter{FrameImage: image.NewRGBA(image.Rect(0, 0, 4, 4))}

	stream, err := adapter.Acquire(context.Background(), media.Request{Kind: media.Photo})
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}

	sess, err := ctrl.TakePhoto(context.Background(), stream)
	if err != nil {
		t.Fatalf("TakePhoto: %v", err)
	}
	if sess.Kind != media.Photo {
		t.Errorf("Kind = %q, want photo", sess.Kind)
	}
	if sess.Blob == nil || sess.Blob.Size() == 0 {
		t.Fatal("photo session has no blob")
	}
	if sess.Blob.MimeType != "image/jpeg" {
		t.Errorf("MimeType = %q, want image/jpeg", sess.Blob.MimeType)
	}
	if _, ok := urls.Resolve(sess.ObjectURL); !ok {
		t.Error("object URL not registered")
	}
	// The camera must go dark as soon as the shutter fires.
	if !adapter.Balanced() {
		t.Error("stream not closed after snapshot")
	}
}

func TestController_take_photo_no_frame(t *testing.T) {
	urls := blob.NewURLRegistry()
	ctrl := NewController(urls)
	adapter := &media.StubAdapter{} // no FrameImage

	stream, _ := adapter.Acquire(context.Background(), media.Request{Kind: media.Photo})
	if _, err := ctrl.TakePhoto(context.Background(), stream); !errors.Is(err, ErrNoFrame) {
		t.Errorf("expected ErrNoFrame, got %v", err)
	}
	if !adapter.Balanced() {
		t.Error("stream must be closed on failure too")
	}
}

func TestController_record_stop(t *testing.T) {
	urls := blob.NewURLRegistry()
	_, ticker := manualTicker(10)
	ctrl := NewControllerWithTicker(urls, ticker)
	adapter := &media.StubAdapter{
		ChunkData: [][]byte{[]byte("aa"), []byte("bb"), []byte("cc")},
		Mime:      "audio/webm",
	}

	stream, _ := adapter.Acquire(context.Background(), media.Request{Kind: media.Audio})
	if err := ctrl.StartRecording(context.Background(), media.Audio, stream); err != nil {
		t.Fatalf("StartRecording: %v", err)
	}
	if !ctrl.Recording() {
		t.Fatal("Recording should be true")
	}

	sess, err := ctrl.StopRecording()
	if err != nil {
		t.Fatalf("StopRecording: %v", err)
	}
	if sess == nil {
		t.Fatal("StopRecording returned nil session")
	}
	if !bytes.Equal(sess.Blob.Data, []byte("aabbcc")) {
		t.Errorf("blob = %q, want concatenated chunks", sess.Blob.Data)
	}
	if sess.Blob.MimeType != "audio/webm" {
		t.Errorf("MimeType = %q", sess.Blob.MimeType)
	}
	if !adapter.Balanced() {
		t.Error("stream not closed after stop")
	}
}

func TestController_double_start_rejected(t *testing.T) {
	urls := blob.NewURLRegistry()
	_, ticker := manualTicker(10)
	ctrl := NewControllerWithTicker(urls, ticker)
	adapter := &media.StubAdapter{ChunkData: [][]byte{[]byte("data")}}

	ctx := context.Background()
	s1, _ := adapter.Acquire(ctx, media.Request{Kind: media.Audio})
	if err := ctrl.StartRecording(ctx, media.Audio, s1); err != nil {
		t.Fatalf("first StartRecording: %v", err)
	}

	s2, _ := adapter.Acquire(ctx, media.Request{Kind: media.Audio})
	if err := ctrl.StartRecording(ctx, media.Audio, s2); !errors.Is(err, ErrAlreadyRecording) {
		t.Fatalf("expected ErrAlreadyRecording, got %v", err)
	}
	s2.Close()

	// The first recording is unaffected by the rejected start.
	sess, err := ctrl.StopRecording()
	if err != nil || sess == nil {
		t.Fatalf("StopRecording after rejected start: sess=%v err=%v", sess, err)
	}
	if !bytes.Equal(sess.Blob.Data, []byte("data")) {
		t.Errorf("blob = %q, first recording corrupted", sess.Blob.Data)
	}
}

func TestController_stop_without_start(t *testing.T) {
	ctrl := NewController(blob.NewURLRegistry())
	sess, err := ctrl.StopRecording()
	if err != nil {
		t.Errorf("stop without start should be a no-op, got %v", err)
	}
	if sess != nil {
		t.Errorf("stop without start should yield no session, got %v", sess)
	}
}

func TestController_elapsed_frozen_after_stop(t *testing.T) {
	urls := blob.NewURLRegistry()
	ticks, ticker := manualTicker(10)
	ctrl := NewControllerWithTicker(urls, ticker)
	adapter := &media.StubAdapter{}

	stream, _ := adapter.Acquire(context.Background(), media.Request{Kind: media.Audio})
	if err := ctrl.StartRecording(context.Background(), media.Audio, stream); err != nil {
		t.Fatalf("StartRecording: %v", err)
	}

	ticks <- time.Now()
	ticks <- time.Now()
	ticks <- time.Now()
	waitForElapsed(t, ctrl, 3)

	sess, err := ctrl.StopRecording()
	if err != nil {
		t.Fatalf("StopRecording: %v", err)
	}
	if sess.DurationSeconds != 3 {
		t.Errorf("DurationSeconds = %d, want 3", sess.DurationSeconds)
	}

	// Ticks after stop must not move the counter: frozen, not reset.
	ticks <- time.Now()
	time.Sleep(20 * time.Millisecond)
	if ctrl.Elapsed() != 3 {
		t.Errorf("Elapsed after stop = %d, want frozen at 3", ctrl.Elapsed())
	}
}

func TestController_abort(t *testing.T) {
	urls := blob.NewURLRegistry()
	_, ticker := manualTicker(10)
	ctrl := NewControllerWithTicker(urls, ticker)
	adapter := &media.StubAdapter{}

	stream, _ := adapter.Acquire(context.Background(), media.Request{Kind: media.Video})
	_ = ctrl.StartRecording(context.Background(), media.Video, stream)

	ctrl.Abort()
	if ctrl.Recording() {
		t.Error("Recording should be false after Abort")
	}
	if !adapter.Balanced() {
		t.Error("Abort must close the stream")
	}
	// Abort with nothing running is fine.
	ctrl.Abort()
}

func TestController_from_text(t *testing.T) {
	urls := blob.NewURLRegistry()
	ctrl := NewController(urls)

	sess := ctrl.FromText("I built this wall using bricks")
	if sess.Kind != media.Text {
		t.Errorf("Kind = %q, want text", sess.Kind)
	}
	if sess.Text() != "I built this wall using bricks" {
		t.Errorf("Text = %q", sess.Text())
	}
	if sess.Blob.MimeType != "text/plain" {
		t.Errorf("MimeType = %q", sess.Blob.MimeType)
	}
}

func TestSession_discard(t *testing.T) {
	urls := blob.NewURLRegistry()
	ctrl := NewController(urls)

	sess := ctrl.FromText("story")
	url := sess.ObjectURL
	sess.Discard()

	if _, ok := urls.Resolve(url); ok {
		t.Error("object URL still resolvable after Discard")
	}
	if sess.Blob != nil {
		t.Error("blob should be dropped on Discard")
	}
	// Idempotent, and safe on nil.
	sess.Discard()
	var nilSess *Session
	nilSess.Discard()
}
