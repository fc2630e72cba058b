package searchcache

import (
	"context"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/scbir/internal/db"
	"github.com/kailas-cloud/scbir/internal/domain/blob"
	"github.com/kailas-cloud/scbir/internal/domain/search/result"
)

type mockSearcher struct {
	set   result.Set
	err   error
	calls int
}

func (m *mockSearcher) Search(_ context.Context, _ blob.Blob) (result.Set, error) {
	m.calls++
	return m.set, m.err
}

// memStore is an in-memory KV store with optional failure injection.
type memStore struct {
	mu     sync.Mutex
	data   map[string][]byte
	ttls   map[string]time.Duration
	getErr error
	setErr error
}

func newMemStore() *memStore {
	return &memStore{data: map[string][]byte{}, ttls: map[string]time.Duration{}}
}

func (m *memStore) Get(_ context.Context, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.getErr != nil {
		return nil, m.getErr
	}
	v, ok := m.data[key]
	if !ok {
		return nil, db.ErrKeyNotFound
	}
	return v, nil
}

func (m *memStore) SetWithTTL(_ context.Context, key string, value []byte, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.setErr != nil {
		return m.setErr
	}
	m.data[key] = value
	m.ttls[key] = ttl
	return nil
}

func newTestCachedSearcher(t *testing.T, inner *mockSearcher) (*CachedSearcher, *memStore) {
	t.Helper()
	ms := newMemStore()
	return New(inner, ms, "test:", time.Minute, nil, zap.NewNop()), ms
}
