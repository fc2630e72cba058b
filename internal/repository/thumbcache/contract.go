package thumbcache

import (
	"context"
	"time"
)

// fetcher loads an indexed image from the backend.
type fetcher interface {
	Image(ctx context.Context, fileID string) ([]byte, string, error)
}

// store is the consumer interface for the thumbnail cache (ISP).
type store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	SetWithTTL(ctx context.Context, key string, value []byte, ttl time.Duration) error
}
