package health

import "context"

// CachePinger checks cache store availability.
type CachePinger interface {
	Ping(ctx context.Context) error
}

// BackendChecker checks search backend liveness.
type BackendChecker interface {
	Health(ctx context.Context) (string, error)
}
