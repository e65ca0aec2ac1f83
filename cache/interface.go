package cache

import (
	"context"
	"time"
)

// Cache records webhook deliveries that have already been handled so that a
// replayed request is acknowledged without being processed twice.
type Cache interface {
	// IsProcessed checks if a delivery has been processed
	IsProcessed(ctx context.Context, id string) (bool, error)

	// MarkProcessed marks a delivery as processed for ttl
	MarkProcessed(ctx context.Context, id string, ttl time.Duration) error

	// Close closes the cache and releases resources
	Close() error
}
