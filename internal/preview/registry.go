// Package preview manages display handles for selected images.
//
// A handle is acquired when a file is selected and must be released on every
// transition away from that selection; the HTTP API serves previews by handle.
package preview

import (
	"sync"

	"github.com/google/uuid"

	"github.com/kailas-cloud/scbir/internal/domain/blob"
	"github.com/kailas-cloud/scbir/internal/metrics"
)

// Handle is an opaque reference to a previewable image.
type Handle struct {
	ID string
}

// IsZero reports whether h refers to nothing.
func (h Handle) IsZero() bool { return h.ID == "" }

// Registry holds live preview handles.
type Registry struct {
	mu    sync.RWMutex
	items map[string]blob.Blob
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{items: make(map[string]blob.Blob)}
}

// Acquire registers b and returns a fresh handle for it.
func (r *Registry) Acquire(b blob.Blob) Handle {
	id := uuid.NewString()

	r.mu.Lock()
	r.items[id] = b
	r.mu.Unlock()

	metrics.PreviewHandlesActive.Inc()
	return Handle{ID: id}
}

// Release drops the handle. Releasing twice or releasing the zero handle is a no-op.
func (r *Registry) Release(h Handle) {
	if h.IsZero() {
		return
	}

	r.mu.Lock()
	_, ok := r.items[h.ID]
	delete(r.items, h.ID)
	r.mu.Unlock()

	if ok {
		metrics.PreviewHandlesActive.Dec()
	}
}

// Lookup returns the image behind a live handle.
func (r *Registry) Lookup(id string) (blob.Blob, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	b, ok := r.items[id]
	return b, ok
}

// Len returns the number of live handles.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.items)
}
