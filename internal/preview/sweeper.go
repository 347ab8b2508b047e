package preview

import (
	"context"
	"log/slog"
	"time"

	"github.com/queryguard/queryguard/internal/observability"
)

// Sweeper periodically evicts expired previews from a MemoryStore. It runs as
// an owned background task rather than an ambient timer so tests can drive
// eviction deterministically through RunSweepOnce.
type Sweeper struct {
	Store    *MemoryStore
	Interval time.Duration
	Logger   *slog.Logger
}

// Run sweeps on the configured interval until ctx is cancelled. The interval
// should be shorter than the store TTL; TTL/6 is the reference ratio.
func (s *Sweeper) Run(ctx context.Context) error {
	interval := s.Interval
	if interval <= 0 {
		interval = s.Store.ttl / 6
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			removed := s.RunSweepOnce(ctx)
			if removed > 0 && s.Logger != nil {
				s.Logger.InfoContext(ctx, "preview sweep completed", slog.Int("removed", removed))
			}
		}
	}
}

// RunSweepOnce removes every expired entry and reports how many were evicted.
func (s *Sweeper) RunSweepOnce(ctx context.Context) int {
	ids := s.Store.expiredIDs()
	for _, id := range ids {
		_ = s.Store.Delete(ctx, id)
	}
	if len(ids) > 0 {
		observability.ObservePreviewsExpired(len(ids))
	}
	return len(ids)
}
