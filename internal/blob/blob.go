// Package blob holds captured media in memory and hands out revocable
// object-URL handles for it, mirroring the browser's URL.createObjectURL
// contract: every handle created must be revoked by the time its owner is
// torn down, or the payload stays pinned for the life of the process.
package blob

import (
	"sync"

	"github.com/google/uuid"
)

// Blob is an in-memory binary payload that has not been persisted anywhere.
type Blob struct {
	Data     []byte
	MimeType string
}

// Size returns the payload length in bytes.
func (b *Blob) Size() int {
	if b == nil {
		return 0
	}
	return len(b.Data)
}

// URLRegistry maps object-URL handles to blobs. One registry is scoped to one
// wizard instance; handles are never shared across instances.
type URLRegistry struct {
	mu      sync.Mutex
	entries map[string]*Blob
	created int
	revoked int
}

// NewURLRegistry returns an empty registry.
func NewURLRegistry() *URLRegistry {
	return &URLRegistry{entries: make(map[string]*Blob)}
}

// Create registers b and returns a fresh handle of the form "blob:<uuid>".
func (r *URLRegistry) Create(b *Blob) string {
	url := "blob:" + uuid.NewString()
	r.mu.Lock()
	r.entries[url] = b
	r.created++
	r.mu.Unlock()
	return url
}

// Resolve returns the blob behind url, if it has not been revoked.
func (r *URLRegistry) Resolve(url string) (*Blob, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	b, ok := r.entries[url]
	return b, ok
}

// Revoke releases url. Revoking an unknown or already-revoked handle is a
// no-op, so teardown paths can revoke unconditionally.
func (r *URLRegistry) Revoke(url string) {
	if url == "" {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.entries[url]; !ok {
		return
	}
	delete(r.entries, url)
	r.revoked++
}

// RevokeAll releases every outstanding handle.
func (r *URLRegistry) RevokeAll() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for url := range r.entries {
		delete(r.entries, url)
		r.revoked++
	}
}

// Outstanding returns the number of handles created but not yet revoked.
func (r *URLRegistry) Outstanding() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}

// Counts returns how many handles have been created and revoked over the
// registry's lifetime. Resource-safety tests assert these balance at teardown.
func (r *URLRegistry) Counts() (created, revoked int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.created, r.revoked
}
