package util

import (
	"context"
	"strings"

	"github.com/cenkalti/backoff"

	"marketing-insights-backend/config"
)

// Retry runs op with bounded exponential backoff, scoped to the single
// outbound call. Non-retryable failures should be wrapped in
// backoff.Permanent by the operation.
func Retry(ctx context.Context, cfg config.RetryConfig, op backoff.Operation) error {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = cfg.InitialInterval
	b.MaxInterval = cfg.MaxInterval
	b.MaxElapsedTime = 0 // bounded by attempt count, not wall clock

	attempts := uint64(cfg.MaxAttempts)
	if attempts > 0 {
		attempts--
	}
	return backoff.Retry(op, backoff.WithContext(backoff.WithMaxRetries(b, attempts), ctx))
}

// IsRetryable reports whether an upstream error looks transient: rate
// limiting, timeouts, or 5xx-class failures.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	if strings.Contains(msg, "429") || strings.Contains(msg, "rate limit") || strings.Contains(msg, "quota") {
		return true
	}
	transient := []string{
		"timeout",
		"connection",
		"temporarily unavailable",
		"service unavailable",
		"502",
		"503",
		"504",
	}
	for _, indicator := range transient {
		if strings.Contains(msg, indicator) {
			return true
		}
	}
	return false
}
