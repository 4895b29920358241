package usecase

import (
	"context"

	"github.com/cenkalti/backoff/v4"
)

// withRetry runs op with bounded exponential backoff. Store and transport
// calls inside workers go through this so transient infrastructure failures
// are absorbed before a command fails.
func withRetry(ctx context.Context, cfg EngineConfig, op func() error) error {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = cfg.RetryInitialInterval
	policy := backoff.WithContext(backoff.WithMaxRetries(bo, cfg.RetryMaxAttempts), ctx)
	return backoff.Retry(op, policy)
}
