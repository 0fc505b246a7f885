package maintenance

import (
	"context"
	"log/slog"
	"time"
)

// Run sweeps once immediately and then every interval until ctx is done.
// A non-positive interval disables the loop.
func (s *Sweeper) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		slog.Info("maintenance sweeper disabled")
		return
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	slog.Info("maintenance sweeper started", slog.Duration("interval", interval))
	for {
		s.RunOnce(ctx)
		select {
		case <-ctx.Done():
			slog.Info("maintenance sweeper stopped")
			return
		case <-ticker.C:
		}
	}
}

// RunOnce performs one pass at s.Now() and logs the result.
func (s *Sweeper) RunOnce(ctx context.Context) Result {
	res, err := s.Sweep(ctx, s.Now())
	attrs := []any{
		slog.Int("jobs_closed", res.JobsClosed),
		slog.Int("offers_expired", res.OffersExpired),
		slog.Int("internships_started", res.InternshipsStarted),
		slog.Int("internships_completed", res.InternshipsCompleted),
		slog.Int("skipped", res.Skipped),
		slog.Int("failed", res.Failed),
	}
	switch {
	case err != nil:
		slog.Warn("maintenance sweep interrupted", append(attrs, slog.String("error", err.Error()))...)
	case res.Total() > 0 || res.Failed > 0:
		slog.Info("maintenance sweep finished", attrs...)
	default:
		slog.Debug("maintenance sweep finished", attrs...)
	}
	return res
}

// Drain repeats passes at s.Now() until one transitions nothing or ctx is
// done, and returns the summed result. Records that keep failing stay due
// and do not keep the loop alive on their own.
func (s *Sweeper) Drain(ctx context.Context) (Result, int) {
	var total Result
	passes := 0
	for ctx.Err() == nil {
		res := s.RunOnce(ctx)
		passes++
		total.add(res)
		if res.Total() == 0 {
			break
		}
	}
	slog.Info("maintenance drain finished",
		slog.Int("passes", passes),
		slog.Int("transitioned", total.Total()),
		slog.Int("failed", total.Failed))
	return total, passes
}
