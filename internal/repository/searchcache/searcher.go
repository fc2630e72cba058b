// Package searchcache memoizes search results per query image digest.
package searchcache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/kailas-cloud/scbir/internal/db"
	"github.com/kailas-cloud/scbir/internal/domain/blob"
	"github.com/kailas-cloud/scbir/internal/domain/search/result"
)

const keySpace = "search:"

// CachedSearcher caches successful result sets in a key-value store.
// Failures are never cached; cache errors degrade to a plain search.
type CachedSearcher struct {
	inner      searcher
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
	inner searcher,
	s store,
	prefix string,
	ttl time.Duration,
	cacheTotal *prometheus.CounterVec,
	logger *zap.Logger,
) *CachedSearcher {
	return &CachedSearcher{
		inner:      inner,
		store:      s,
		prefix:     prefix,
		ttl:        ttl,
		cacheTotal: cacheTotal,
		logger:     logger,
	}
}

// WithScope partitions entries by backend identity, e.g. its base address,
// so stores shared between backends never mix result sets.
func (c *CachedSearcher) WithScope(backend string) *CachedSearcher {
	c.scope = scopeTag(backend)
	return c
}

// Search returns a cached result set for b or asks the inner searcher.
func (c *CachedSearcher) Search(ctx context.Context, b blob.Blob) (result.Set, error) {
	key := c.cacheKey(b)

	if set, ok := c.getFromCache(ctx, key); ok {
		c.incCache("hit")
		return set, nil
	}
	c.incCache("miss")

	set, err := c.inner.Search(ctx, b)
	if err != nil {
		return result.Set{}, err
	}

	c.putToCache(ctx, key, set)
	return set, nil
}

func (c *CachedSearcher) cacheKey(b blob.Blob) string {
	return c.prefix + keySpace + c.scope + b.Digest()
}

func scopeTag(backend string) string {
	if backend == "" {
		return ""
	}
	h := sha256.Sum256([]byte(backend))
	return hex.EncodeToString(h[:6]) + ":"
}

func (c *CachedSearcher) incCache(res string) {
	if c.cacheTotal != nil {
		c.cacheTotal.WithLabelValues("search", res).Inc()
	}
}

func (c *CachedSearcher) getFromCache(ctx context.Context, key string) (result.Set, bool) {
	data, err := c.store.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, db.ErrKeyNotFound) {
			c.logger.Warn("Failed to get cached results", zap.String("key", key), zap.Error(err))
		}
		return result.Set{}, false
	}

	set, err := decodeSet(data)
	if err != nil {
		c.logger.Warn("Failed to parse cached results", zap.String("key", key), zap.Error(err))
		return result.Set{}, false
	}
	return set, true
}

func (c *CachedSearcher) putToCache(ctx context.Context, key string, set result.Set) {
	// the answer is valid even if the caller has moved on
	ctx = context.WithoutCancel(ctx)

	data, err := encodeSet(set)
	if err != nil {
		c.logger.Warn("Failed to encode results", zap.String("key", key), zap.Error(err))
		return
	}
	if err := c.store.SetWithTTL(ctx, key, data, c.ttl); err != nil {
		c.logger.Warn("Failed to cache results", zap.String("key", key), zap.Error(err))
	}
}
