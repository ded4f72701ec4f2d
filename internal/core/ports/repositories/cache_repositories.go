package repositories

import (
	"context"
	"time"
)

// DashboardCache stores derived dashboard payloads. Nothing that drives a business
// decision is ever read from it.
type DashboardCache interface {
	// Get decodes the cached value into dest and reports whether it was found.
	Get(ctx context.Context, key string, dest any) (bool, error)
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error
}
