package upload

import (
	"context"

	"github.com/kailas-cloud/scbir/internal/domain/blob"
	"github.com/kailas-cloud/scbir/internal/domain/search/result"
	"github.com/kailas-cloud/scbir/internal/preview"
)

// Searcher finds images similar to the given one.
type Searcher interface {
	Search(ctx context.Context, b blob.Blob) (result.Set, error)
}

// Previewer hands out display handles for selected images.
type Previewer interface {
	Acquire(b blob.Blob) preview.Handle
	Release(h preview.Handle)
}
