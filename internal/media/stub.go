package media

import (
	"context"
	"image"
	"sync"
)

// StubAdapter is a deterministic in-memory Adapter for tests. It hands out
// StubStreams fed from canned frames and chunks, and counts acquires and
// closes so resource-safety tests can assert they balance.
type StubAdapter struct {
	mu sync.Mutex

	// DenyPermission makes Acquire fail with ErrPermissionDenied.
	DenyPermission bool
	// NoDevice makes Acquire fail with ErrDeviceUnavailable.
	NoDevice bool

	// FrameImage is returned by Frame on acquired streams.
	FrameImage image.Image
	// ChunkData is replayed on Chunks for each acquired stream.
	ChunkData [][]byte
	// Mime is reported by acquired streams (default "application/octet-stream").
	Mime string

	acquired int
	closed   int
}

// Acquire implements Adapter.
func (a *StubAdapter) Acquire(ctx context.Context, req Request) (Stream, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if a.DenyPermission {
		return nil, ErrPermissionDenied
	}
	if a.NoDevice {
		return nil, ErrDeviceUnavailable
	}

	a.acquired++
	mime := a.Mime
	if mime == "" {
		mime = "application/octet-stream"
	}
	return newStubStream(a, a.FrameImage, a.ChunkData, mime), nil
}

// Acquired returns how many streams have been handed out.
func (a *StubAdapter) Acquired() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.acquired
}

// Closed returns how many handed-out streams have been closed.
func (a *StubAdapter) Closed() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.closed
}

// Balanced reports whether every acquired stream has been closed.
func (a *StubAdapter) Balanced() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.acquired == a.closed
}

func (a *StubAdapter) streamClosed() {
	a.mu.Lock()
	a.closed++
	a.mu.Unlock()
}

// StubStream is the Stream handed out by StubAdapter.
type StubStream struct {
	adapter *StubAdapter
	frame   image.Image
	mime    string

	mu     sync.Mutex
	chunks chan []byte
	closed bool
}

func newStubStream(a *StubAdapter, frame image.Image, chunks [][]byte, mime string) *StubStream {
	ch := make(chan []byte, len(chunks))
	for _, c := range chunks {
		ch <- c
	}
	close(ch)
	return &StubStream{adapter: a, frame: frame, mime: mime, chunks: ch}
}

// Frame implements Stream.Frame.
func (s *StubStream) Frame() (image.Image, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, ErrStreamClosed
	}
	if s.frame == nil {
		return nil, ErrDeviceUnavailable
	}
	return s.frame, nil
}

// Chunks implements Stream.Chunks.
func (s *StubStream) Chunks() <-chan []byte {
	return s.chunks
}

// MimeType implements Stream.MimeType.
func (s *StubStream) MimeType() string {
	return s.mime
}

// Close implements Stream.Close. Idempotent.
func (s *StubStream) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.mu.Unlock()

	s.adapter.streamClosed()
	return nil
}
