package readiness

import (
	"context"

	"github.com/kailas-cloud/scbir/internal/domain"
)

// StatusChecker reports the backend index state.
type StatusChecker interface {
	SystemStatus(ctx context.Context) (domain.SystemStatus, error)
}
