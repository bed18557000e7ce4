package media

import (
	"context"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"mime"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// FileAdapter serves a local file as a one-shot capture stream. It backs the
// wizard's file-picker fallback and walletctl, where the "device" is a file
// the user already has.
type FileAdapter struct {
	// Path is the file handed out on the next Acquire.
	Path string
}

// Acquire implements Adapter. The returned stream yields the file's decoded
// image on Frame (when it is an image) and its raw bytes as a single chunk
// on Chunks.
func (a *FileAdapter) Acquire(ctx context.Context, req Request) (Stream, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(a.Path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrDeviceUnavailable
		}
		if os.IsPermission(err) {
			return nil, ErrPermissionDenied
		}
		return nil, err
	}

	mimeType := mime.TypeByExtension(filepath.Ext(a.Path))
	if i := strings.IndexByte(mimeType, ';'); i >= 0 {
		mimeType = mimeType[:i]
	}
	if mimeType == "" {
		mimeType = "application/octet-stream"
	}
	return newFileStream(a.Path, data, mimeType), nil
}

// FileStream is the Stream handed out by FileAdapter.
type FileStream struct {
	path string
	data []byte
	mime string

	mu     sync.Mutex
	closed bool
	chunks chan []byte
}

func newFileStream(path string, data []byte, mimeType string) *FileStream {
	ch := make(chan []byte, 1)
	ch <- data
	close(ch)
	return &FileStream{path: path, data: data, mime: mimeType, chunks: ch}
}

// Frame implements Stream.Frame by decoding the file as an image.
func (s *FileStream) Frame() (image.Image, error) {
	s.mu.Lock()
	closed := s.closed
	s.mu.Unlock()
	if closed {
		return nil, ErrStreamClosed
	}

	f, err := os.Open(s.path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return nil, err
	}
	return img, nil
}

// Chunks implements Stream.Chunks: the whole file as one chunk.
func (s *FileStream) Chunks() <-chan []byte {
	return s.chunks
}

// MimeType implements Stream.MimeType.
func (s *FileStream) MimeType() string {
	return s.mime
}

// Close implements Stream.Close. Idempotent; a file stream holds no hardware,
// so this only marks the stream unusable.
func (s *FileStream) Close() error {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	return nil
}

// Bytes returns the raw file contents. Used when the file-picker path hands
// the selection straight to review without re-encoding.
func (s *FileStream) Bytes() []byte {
	return s.data
}
