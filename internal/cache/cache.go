// Package cache stores page content fingerprints between crawl runs.
package cache

import (
	"context"
	"time"
)

// Service is a small string cache keyed by source page. A miss is reported
// through the ok return, not an error.
type Service interface {
	// Get retrieves a value from the cache.
	Get(ctx context.Context, key string) (string, bool, error)

	// Set stores a value in the cache with an expiration time.
	Set(ctx context.Context, key string, value string, expiration time.Duration) error

	// Delete removes a value from the cache.
	Delete(ctx context.Context, key string) error
}
