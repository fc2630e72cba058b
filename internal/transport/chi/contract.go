package chi

import (
	"context"

	"github.com/kailas-cloud/scbir/internal/domain/blob"
	"github.com/kailas-cloud/scbir/internal/usecase/health"
	"github.com/kailas-cloud/scbir/internal/usecase/readiness"
)

// Prober re-checks backend readiness.
type Prober interface {
	Probe(ctx context.Context) readiness.Report
}

// HealthChecker aggregates component health.
type HealthChecker interface {
	Check(ctx context.Context) health.Report
}

// PreviewLookup resolves preview handles to the selected image.
type PreviewLookup interface {
	Lookup(id string) (blob.Blob, bool)
}

// ImageFetcher loads indexed images for thumbnails.
type ImageFetcher interface {
	Image(ctx context.Context, fileID string) ([]byte, string, error)
}
