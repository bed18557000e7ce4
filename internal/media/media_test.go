package media

import (
	"context"
	"errors"
	"image"
	"os"
	"path/filepath"
	"testing"
)

func TestStubAdapter_permission_denied(t *testing.T) {
	adapter := &StubAdapter{DenyPermission: true}
	_, err := adapter.Acquire(context.Background(), Request{Kind: Audio})
	if !errors.Is(err, ErrPermissionDenied) {
		t.Errorf("expected ErrPermissionDenied, got %v", err)
	}
	if adapter.Acquired() != 0 {
		t.Error("denied acquire must not hand out a stream")
	}
}

func TestStubAdapter_device_unavailable(t *testing.T) {
	adapter := &StubAdapter{NoDevice: true}
	_, err := adapter.Acquire(context.Background(), Request{Kind: Photo})
	if !errors.Is(err, ErrDeviceUnavailable) {
		t.Errorf("expected ErrDeviceUnavailable, got %v", err)
	}
}

func TestStubAdapter_balanced_close(t *testing.T) {
	adapter := &StubAdapter{FrameImage: image.NewRGBA(image.Rect(0, 0, 1, 1))}

	s1, err := adapter.Acquire(context.Background(), Request{Kind: Photo})
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	s2, _ := adapter.Acquire(context.Background(), Request{Kind: Photo})

	if adapter.Balanced() {
		t.Error("Balanced should be false with open streams")
	}
	s1.Close()
	s1.Close() // idempotent
	s2.Close()
	if !adapter.Balanced() {
		t.Errorf("Balanced: acquired=%d closed=%d", adapter.Acquired(), adapter.Closed())
	}

	if _, err := s1.Frame(); !errors.Is(err, ErrStreamClosed) {
		t.Errorf("Frame after Close: got %v, want ErrStreamClosed", err)
	}
}

func TestFileAdapter_missing_file(t *testing.T) {
	adapter := &FileAdapter{Path: filepath.Join(t.TempDir(), "nope.jpg")}
	_, err := adapter.Acquire(context.Background(), Request{Kind: Photo})
	if !errors.Is(err, ErrDeviceUnavailable) {
		t.Errorf("expected ErrDeviceUnavailable for missing file, got %v", err)
	}
}

func TestFileAdapter_serves_file_as_chunk(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "story.webm")
	if err := os.WriteFile(path, []byte("webm-bytes"), 0o644); err != nil {
		t.Fatal(err)
	}

	adapter := &FileAdapter{Path: path}
	stream, err := adapter.Acquire(context.Background(), Request{Kind: Audio})
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	defer stream.Close()

	chunk, ok := <-stream.Chunks()
	if !ok || string(chunk) != "webm-bytes" {
		t.Errorf("Chunks yielded %q ok=%v", chunk, ok)
	}
	if _, ok := <-stream.Chunks(); ok {
		t.Error("file stream should yield exactly one chunk")
	}
}
