// Package thumbcache caches indexed images fetched from the backend.
package thumbcache

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/kailas-cloud/scbir/internal/db"
)

const keySpace = "thumb:"

// CachedFetcher caches image bytes and content type per file ID.
type CachedFetcher struct {
	inner      fetcher
	store      store
	prefix     string
	scope      string
	ttl        time.Duration
	cacheTotal *prometheus.CounterVec
	logger     *zap.Logger
}

// New creates a caching decorator.
// cacheTotal is a counter vec with labels "cache" and "result", passed explicitly.
func New(
	inner fetcher,
	s store,
	prefix string,
	ttl time.Duration,
	cacheTotal *prometheus.CounterVec,
	logger *zap.Logger,
) *CachedFetcher {
	return &CachedFetcher{
		inner:      inner,
		store:      s,
		prefix:     prefix,
		ttl:        ttl,
		cacheTotal: cacheTotal,
		logger:     logger,
	}
}

// WithScope partitions entries by backend identity; two backends may
// serve different images under the same file ID.
func (c *CachedFetcher) WithScope(backend string) *CachedFetcher {
	c.scope = ""
	if backend != "" {
		h := sha256.Sum256([]byte(backend))
		c.scope = hex.EncodeToString(h[:6]) + ":"
	}
	return c
}

// Image returns the cached image for fileID or fetches it.
func (c *CachedFetcher) Image(ctx context.Context, fileID string) ([]byte, string, error) {
	key := c.cacheKey(fileID)

	if data, ct, ok := c.getFromCache(ctx, key); ok {
		c.incCache("hit")
		return data, ct, nil
	}
	c.incCache("miss")

	data, ct, err := c.inner.Image(ctx, fileID)
	if err != nil {
		return nil, "", err
	}

	c.putToCache(ctx, key, data, ct)
	return data, ct, nil
}

func (c *CachedFetcher) cacheKey(fileID string) string {
	h := sha256.Sum256([]byte(fileID))
	return c.prefix + keySpace + c.scope + hex.EncodeToString(h[:])
}

func (c *CachedFetcher) incCache(res string) {
	if c.cacheTotal != nil {
		c.cacheTotal.WithLabelValues("thumbnail", res).Inc()
	}
}

func (c *CachedFetcher) getFromCache(ctx context.Context, key string) ([]byte, string, bool) {
	raw, err := c.store.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, db.ErrKeyNotFound) {
			c.logger.Warn("Failed to get cached image", zap.String("key", key), zap.Error(err))
		}
		return nil, "", false
	}

	data, ct, err := decode(raw)
	if err != nil {
		c.logger.Warn("Failed to parse cached image", zap.String("key", key), zap.Error(err))
		return nil, "", false
	}
	return data, ct, true
}

func (c *CachedFetcher) putToCache(ctx context.Context, key string, data []byte, ct string) {
	if err := c.store.SetWithTTL(ctx, key, encode(data, ct), c.ttl); err != nil {
		c.logger.Warn("Failed to cache image", zap.String("key", key), zap.Error(err))
	}
}

// encode stores the content type, a NUL separator, then the raw bytes.
func encode(data []byte, ct string) []byte {
	buf := make([]byte, 0, len(ct)+1+len(data))
	buf = append(buf, ct...)
	buf = append(buf, 0)
	return append(buf, data...)
}

func decode(raw []byte) ([]byte, string, error) {
	ct, data, ok := bytes.Cut(raw, []byte{0})
	if !ok || len(data) == 0 {
		return nil, "", fmt.Errorf("invalid image cache entry: len=%d", len(raw))
	}
	return data, string(ct), nil
}
