package readiness

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/scbir/internal/domain"
)

// State is the outcome of one readiness probe.
type State string

const (
	// Unknown means no probe has been applied yet.
	Unknown State = ""
	// Ready means the backend has a built index.
	Ready State = "ready"
	// NotIndexed means the backend is up but has no index.
	NotIndexed State = "not_indexed"
	// Unreachable means the backend could not be queried.
	Unreachable State = "unreachable"
)

// Report is the result of a probe. Err is nil only when State is Ready.
type Report struct {
	State  State
	Status domain.SystemStatus
	Err    error
}

// Ready reports whether searches may be issued.
func (r Report) Ready() bool { return r.State == Ready }

// ReadyReport builds a ready report without probing. Used by offline backends and tests.
func ReadyReport() Report { return Report{State: Ready, Status: domain.SystemStatus{Indexed: true}} }

// Service probes the backend once per call. It never retries.
type Service struct {
	checker StatusChecker
	timeout time.Duration
	logger  *zap.Logger
}

// New creates the probe. timeout <= 0 means the caller's context deadline applies.
func New(checker StatusChecker, timeout time.Duration, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{checker: checker, timeout: timeout, logger: logger}
}

// Probe queries the backend status endpoint.
func (s *Service) Probe(ctx context.Context) Report {
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	st, err := s.checker.SystemStatus(ctx)
	if err != nil {
		if !errors.Is(err, domain.ErrConnectivity) && !errors.Is(err, domain.ErrProtocol) {
			// deadline or cancellation: the backend did not answer
			err = fmt.Errorf("%w: %w", domain.ErrConnectivity, err)
		}
		s.logger.Warn("readiness probe failed", zap.Error(err))
		return Report{State: Unreachable, Err: err}
	}
	if !st.Indexed {
		s.logger.Info("backend reachable but not indexed")
		return Report{State: NotIndexed, Status: st, Err: domain.ErrSystemNotIndexed}
	}

	s.logger.Debug("backend ready", zap.Int("total_images", st.TotalImages))
	return Report{State: Ready, Status: st}
}
