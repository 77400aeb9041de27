package health

import "context"

// StoreChecker checks document store availability.
type StoreChecker interface {
	HealthCheck(ctx context.Context) error
}

// EmbeddingChecker checks embedding provider availability.
type EmbeddingChecker interface {
	HealthCheck(ctx context.Context) error
}
