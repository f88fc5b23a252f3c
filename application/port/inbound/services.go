package inbound

import (
	"context"
	"time"
)

// RateLimitService counts requests per key within a sliding window and can
// block a key outright. The HTTP middleware keys it by client IP.
type RateLimitService interface {
	CheckLimit(ctx context.Context, key string, limit int, window time.Duration) (bool, error)
	Increment(ctx context.Context, key string, window time.Duration) error
	Block(ctx context.Context, key string, duration time.Duration, reason string) error
	IsBlocked(ctx context.Context, key string) (bool, error)
	// GetAttempts reports the current count, 0 when the key is unknown
	GetAttempts(ctx context.Context, key string) (int, error)
}
