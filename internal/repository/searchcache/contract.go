package searchcache

import (
	"context"
	"time"

	"github.com/kailas-cloud/scbir/internal/domain/blob"
	"github.com/kailas-cloud/scbir/internal/domain/search/result"
)

// searcher is the decorated search backend.
type searcher interface {
	Search(ctx context.Context, b blob.Blob) (result.Set, error)
}

// store is the consumer interface for the result cache (ISP).
type store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	SetWithTTL(ctx context.Context, key string, value []byte, ttl time.Duration) error
}
