// Package retry provides a bounded-retry wrapper for external calls.
//
// The orchestrator and channel manager wrap every tool and delivery call in a
// Policy rather than scattering ad hoc retry loops.
package retry

import (
	"context"
	"log/slog"
	"time"
)

// Policy describes how a call is retried: total attempt count, base backoff
// delay (doubled per attempt), and a per-attempt timeout.
type Policy struct {
	MaxAttempts int
	BaseDelay   time.Duration
	Timeout     time.Duration // 0 = no per-attempt timeout
}

// DefaultToolPolicy matches the tool-call contract: two attempts, short backoff.
func DefaultToolPolicy() Policy {
	return Policy{MaxAttempts: 2, BaseDelay: 500 * time.Millisecond, Timeout: 30 * time.Second}
}

// DefaultDeliveryPolicy governs outbound chat delivery.
func DefaultDeliveryPolicy() Policy {
	return Policy{MaxAttempts: 3, BaseDelay: time.Second, Timeout: 15 * time.Second}
}

// Do invokes fn until it succeeds, the attempt budget is spent, or ctx is
// cancelled. retryable decides whether an error is worth another attempt; a
// nil retryable retries every error. The last error is returned unchanged so
// callers can inspect its type.
func (p Policy) Do(ctx context.Context, op string, fn func(ctx context.Context) error, retryable func(error) bool) error {
	attempts := p.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}

	var err error
	for i := 0; i < attempts; i++ {
		if i > 0 {
			delay := p.BaseDelay << (i - 1)
			slog.Debug("retrying", "op", op, "attempt", i+1, "delay", delay)
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return ctx.Err()
			}
		}

		attemptCtx := ctx
		var cancel context.CancelFunc
		if p.Timeout > 0 {
			attemptCtx, cancel = context.WithTimeout(ctx, p.Timeout)
		}
		err = fn(attemptCtx)
		if cancel != nil {
			cancel()
		}

		if err == nil {
			return nil
		}
		if retryable != nil && !retryable(err) {
			return err
		}
		if ctx.Err() != nil {
			return err
		}
	}
	return err
}
