// Package health exposes the liveness endpoint and the backend probe
// feeding it.
package health

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// Probe periodically pings the documentation backend and tracks consecutive
// failures. The service reports degraded only after the failure threshold is
// crossed, so one dropped ping doesn't flap the status.
type Probe struct {
	ping      func(ctx context.Context) error
	interval  time.Duration
	threshold int

	mu       sync.Mutex
	failures int
	lastErr  error
}

// NewProbe creates a Probe. interval defaults to 30s and threshold to 3 when
// non-positive.
func NewProbe(ping func(ctx context.Context) error, interval time.Duration, threshold int) *Probe {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	if threshold <= 0 {
		threshold = 3
	}
	return &Probe{ping: ping, interval: interval, threshold: threshold}
}

// Healthy reports whether the backend is considered reachable.
func (p *Probe) Healthy() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.failures < p.threshold
}

// LastError returns the most recent ping error, or nil.
func (p *Probe) LastError() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.lastErr
}

// Check runs one ping immediately and updates the failure counter.
func (p *Probe) Check(ctx context.Context) {
	err := p.ping(ctx)

	p.mu.Lock()
	defer p.mu.Unlock()
	if err != nil {
		p.failures++
		p.lastErr = err
		if p.failures == p.threshold {
			slog.Warn("backend marked degraded", "failures", p.failures, "err", err)
		}
		return
	}
	if p.failures >= p.threshold {
		slog.Info("backend recovered")
	}
	p.failures = 0
	p.lastErr = nil
}

// Start probes on the configured interval until ctx is cancelled. The first
// check runs immediately so a dead backend is noticed at startup.
func (p *Probe) Start(ctx context.Context) error {
	p.Check(ctx)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			p.Check(ctx)
		}
	}
}
