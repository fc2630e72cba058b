package readiness

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/kailas-cloud/scbir/internal/domain"
)

// --- Mocks ---

type mockChecker struct {
	status domain.SystemStatus
	err    error
	calls  int
	block  bool
}

func (m *mockChecker) SystemStatus(ctx context.Context) (domain.SystemStatus, error) {
	m.calls++
	if m.block {
		<-ctx.Done()
		return domain.SystemStatus{}, ctx.Err()
	}
	return m.status, m.err
}

// --- Tests ---

func TestProbe_Ready(t *testing.T) {
	c := &mockChecker{status: domain.SystemStatus{Indexed: true, TotalImages: 800}}
	r := New(c, 0, nil).Probe(context.Background())

	if r.State != Ready || !r.Ready() {
		t.Errorf("expected %q, got %q", Ready, r.State)
	}
	if r.Err != nil {
		t.Errorf("unexpected error: %v", r.Err)
	}
	if r.Status.TotalImages != 800 {
		t.Errorf("status not carried: %+v", r.Status)
	}
}

func TestProbe_NotIndexed(t *testing.T) {
	r := New(&mockChecker{}, 0, nil).Probe(context.Background())

	if r.State != NotIndexed || r.Ready() {
		t.Errorf("expected %q, got %q", NotIndexed, r.State)
	}
	if !errors.Is(r.Err, domain.ErrSystemNotIndexed) {
		t.Errorf("expected ErrSystemNotIndexed, got %v", r.Err)
	}
}

func TestProbe_Unreachable(t *testing.T) {
	c := &mockChecker{err: domain.ErrConnectivity}
	r := New(c, 0, nil).Probe(context.Background())

	if r.State != Unreachable {
		t.Errorf("expected %q, got %q", Unreachable, r.State)
	}
	if !errors.Is(r.Err, domain.ErrConnectivity) {
		t.Errorf("expected ErrConnectivity, got %v", r.Err)
	}
	if c.calls != 1 {
		t.Errorf("probe must not retry, got %d calls", c.calls)
	}
}

func TestProbe_TimeoutIsConnectivity(t *testing.T) {
	c := &mockChecker{block: true}
	r := New(c, 10*time.Millisecond, nil).Probe(context.Background())

	if r.State != Unreachable {
		t.Errorf("expected %q, got %q", Unreachable, r.State)
	}
	if !errors.Is(r.Err, domain.ErrConnectivity) || !errors.Is(r.Err, context.DeadlineExceeded) {
		t.Errorf("unexpected error: %v", r.Err)
	}
}

func TestProbe_ProtocolError(t *testing.T) {
	r := New(&mockChecker{err: domain.ErrProtocol}, 0, nil).Probe(context.Background())

	if r.State != Unreachable {
		t.Errorf("expected %q, got %q", Unreachable, r.State)
	}
	if !errors.Is(r.Err, domain.ErrProtocol) {
		t.Errorf("expected ErrProtocol, got %v", r.Err)
	}
}

func TestReport_ZeroIsNotReady(t *testing.T) {
	var r Report
	if r.Ready() || r.State != Unknown {
		t.Error("zero report must not be ready")
	}
	if !ReadyReport().Ready() {
		t.Error("ReadyReport must be ready")
	}
}
