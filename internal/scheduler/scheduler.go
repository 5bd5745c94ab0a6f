// Package scheduler runs the periodic reminder sweep.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// Sweeper performs one pass over due reminders and reports how many it sent.
type Sweeper interface {
	Sweep(ctx context.Context) (int, error)
}

// Loop drives a Sweeper on a fixed interval. Sweeps run on a single
// goroutine, so two passes never overlap; if a sweep outlasts the interval
// the ticker drops the missed ticks instead of queueing them.
type Loop struct {
	sweeper  Sweeper
	interval time.Duration
	logger   *slog.Logger
}

// NewLoop wires a sweep loop with the given cadence.
func NewLoop(sweeper Sweeper, interval time.Duration, logger *slog.Logger) *Loop {
	if interval <= 0 {
		interval = time.Minute
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Loop{
		sweeper:  sweeper,
		interval: interval,
		logger:   logger,
	}
}

// Run blocks until the context is canceled, sweeping once per interval.
// Sweep errors are logged and the loop keeps going; only cancellation
// stops it.
func (l *Loop) Run(ctx context.Context) error {
	if l == nil {
		return fmt.Errorf("Loop is nil")
	}
	if l.sweeper == nil {
		return fmt.Errorf("sweeper not configured")
	}

	l.logger.InfoContext(ctx, "reminder loop started", "interval", l.interval.String())

	ticker := time.NewTicker(l.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			l.logger.InfoContext(ctx, "reminder loop stopped")
			return ctx.Err()
		case <-ticker.C:
			sent, err := l.sweeper.Sweep(ctx)
			if err != nil {
				if ctx.Err() != nil {
					l.logger.InfoContext(ctx, "reminder loop stopped")
					return ctx.Err()
				}
				l.logger.ErrorContext(ctx, "reminder sweep failed", "error", err)
				continue
			}
			if sent > 0 {
				l.logger.InfoContext(ctx, "reminders delivered", "count", sent)
			}
		}
	}
}
