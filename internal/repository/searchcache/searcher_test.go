package searchcache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"go.uber.org/zap"

	"github.com/kailas-cloud/scbir/internal/domain"
	"github.com/kailas-cloud/scbir/internal/domain/blob"
	"github.com/kailas-cloud/scbir/internal/domain/search/result"
)

func testBlob(t *testing.T, payload string) blob.Blob {
	t.Helper()
	b, err := blob.New("q.png", []byte("\x89PNG\r\n\x1a\n"+payload), "image/png")
	if err != nil {
		t.Fatal(err)
	}
	return b
}

func testSet(t *testing.T) result.Set {
	t.Helper()
	d := 3.5
	a, err := result.New("101_1.tif", 0.93, &d, 1, "http://backend/api/imagen/101_1.tif")
	if err != nil {
		t.Fatal(err)
	}
	b, err := result.New("101_2.tif", 0.81, nil, 2, "http://backend/api/imagen/101_2.tif")
	if err != nil {
		t.Fatal(err)
	}
	return result.NewSet([]result.Result{a, b})
}

func TestSearch_MissThenHit(t *testing.T) {
	inner := &mockSearcher{set: testSet(t)}
	cs, ms := newTestCachedSearcher(t, inner)
	q := testBlob(t, "a")

	first, err := cs.Search(context.Background(), q)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	second, err := cs.Search(context.Background(), q)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if inner.calls != 1 {
		t.Errorf("expected inner called once, got %d", inner.calls)
	}
	if ms.ttls["test:search:"+q.Digest()] != time.Minute {
		t.Errorf("expected entry under digest key with ttl, got %v", ms.ttls)
	}
	if second.Len() != first.Len() {
		t.Fatalf("expected %d results, got %d", first.Len(), second.Len())
	}
	for i, want := range first.All() {
		got, _ := second.At(i)
		if got != want {
			t.Errorf("result %d: got %+v, want %+v", i, got, want)
		}
	}
}

func TestSearch_DifferentImagesDoNotShare(t *testing.T) {
	inner := &mockSearcher{set: testSet(t)}
	cs, _ := newTestCachedSearcher(t, inner)

	_, _ = cs.Search(context.Background(), testBlob(t, "a"))
	_, _ = cs.Search(context.Background(), testBlob(t, "b"))

	if inner.calls != 2 {
		t.Errorf("expected 2 inner calls, got %d", inner.calls)
	}
}

func TestSearch_ErrorNotCached(t *testing.T) {
	inner := &mockSearcher{err: domain.ErrConnectivity}
	cs, ms := newTestCachedSearcher(t, inner)

	_, err := cs.Search(context.Background(), testBlob(t, "a"))
	if !errors.Is(err, domain.ErrConnectivity) {
		t.Fatalf("expected ErrConnectivity, got %v", err)
	}
	if len(ms.data) != 0 {
		t.Error("failed search must not be cached")
	}
}

func TestSearch_StoreErrorsDegrade(t *testing.T) {
	inner := &mockSearcher{set: testSet(t)}
	cs, ms := newTestCachedSearcher(t, inner)
	ms.getErr = errors.New("connection refused")
	ms.setErr = errors.New("connection refused")

	set, err := cs.Search(context.Background(), testBlob(t, "a"))
	if err != nil {
		t.Fatalf("store failure should not fail the search: %v", err)
	}
	if set.Len() != 2 {
		t.Errorf("expected 2 results, got %d", set.Len())
	}
}

func TestSearch_CorruptEntryIsMiss(t *testing.T) {
	inner := &mockSearcher{set: testSet(t)}
	cs, ms := newTestCachedSearcher(t, inner)
	q := testBlob(t, "a")
	ms.data["test:search:"+q.Digest()] = []byte(`[{"f":"","s":2}]`)

	set, err := cs.Search(context.Background(), q)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if inner.calls != 1 || set.Len() != 2 {
		t.Errorf("corrupt entry should fall through to inner (calls=%d len=%d)", inner.calls, set.Len())
	}
}

func TestSearch_EmptySetCached(t *testing.T) {
	inner := &mockSearcher{set: result.NewSet(nil)}
	cs, _ := newTestCachedSearcher(t, inner)
	q := testBlob(t, "a")

	_, _ = cs.Search(context.Background(), q)
	set, err := cs.Search(context.Background(), q)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !set.Empty() || inner.calls != 1 {
		t.Errorf("expected cached empty set (calls=%d)", inner.calls)
	}
}

func TestSearch_Metrics(t *testing.T) {
	counter := prometheus.NewCounterVec(prometheus.CounterOpts{Name: "test_cache_total"}, []string{"cache", "result"})
	inner := &mockSearcher{set: testSet(t)}
	cs := New(inner, newMemStore(), "test:", time.Minute, counter, zap.NewNop())
	q := testBlob(t, "a")

	_, _ = cs.Search(context.Background(), q)
	_, _ = cs.Search(context.Background(), q)
	_, _ = cs.Search(context.Background(), q)

	if got := testutil.ToFloat64(counter.WithLabelValues("search", "miss")); got != 1 {
		t.Errorf("expected 1 miss, got %v", got)
	}
	if got := testutil.ToFloat64(counter.WithLabelValues("search", "hit")); got != 2 {
		t.Errorf("expected 2 hits, got %v", got)
	}
}

func TestSearch_BackendsDoNotShare(t *testing.T) {
	ms := newMemStore()
	remote := &mockSearcher{set: testSet(t)}
	offline := &mockSearcher{set: result.NewSet(nil)}
	a := New(remote, ms, "test:", time.Minute, nil, zap.NewNop()).WithScope("http://fp.internal:5000")
	b := New(offline, ms, "test:", time.Minute, nil, zap.NewNop()).WithScope("mock")
	q := testBlob(t, "a")

	if _, err := a.Search(context.Background(), q); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	got, err := b.Search(context.Background(), q)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if offline.calls != 1 {
		t.Errorf("second backend must not be served the first one's entry, calls=%d", offline.calls)
	}
	if !got.Empty() {
		t.Errorf("expected the second backend's own (empty) set, got %d results", got.Len())
	}
	if len(ms.data) != 2 {
		t.Errorf("expected one entry per backend, got %d", len(ms.data))
	}

	// same backend, same image: hit
	if _, err := a.Search(context.Background(), q); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if remote.calls != 1 {
		t.Errorf("expected a cache hit for the same backend, calls=%d", remote.calls)
	}
}
