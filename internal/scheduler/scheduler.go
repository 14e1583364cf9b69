package scheduler

import (
	"context"
	"log/slog"
	"time"

	"boardpacks/internal/domains"
	"boardpacks/internal/metrics"
	"boardpacks/internal/query"

	"github.com/topi314/tint"
)

type OrphanProvider interface {
	DeleteEmptyPacks(ctx context.Context, createdBefore time.Time) (int64, error)
	DeleteEmptyTemplates(ctx context.Context, createdBefore time.Time) (int64, error)
}

type ScopeInvalidator interface {
	InvalidateScope(scope string)
}

// Sweeper periodically removes pack and template headers that never got any sections. Headers
// younger than the grace period are left alone.
type Sweeper struct {
	provider    OrphanProvider
	cache       ScopeInvalidator
	metrics     *metrics.Metrics
	interval    time.Duration
	gracePeriod time.Duration
	now         func() time.Time
}

func NewSweeper(provider OrphanProvider, cache ScopeInvalidator, m *metrics.Metrics, interval, gracePeriod time.Duration) *Sweeper {
	if interval <= 0 {
		interval = 10 * time.Minute
	}
	if gracePeriod <= 0 {
		gracePeriod = time.Hour
	}
	return &Sweeper{
		provider:    provider,
		cache:       cache,
		metrics:     m,
		interval:    interval,
		gracePeriod: gracePeriod,
		now:         func() time.Time { return time.Now().UTC() },
	}
}

func (s *Sweeper) Start(ctx context.Context) {
	if s.provider == nil {
		slog.Warn("orphan sweeper skipped: no provider configured")
		return
	}
	ticker := time.NewTicker(s.interval)
	go func() {
		defer ticker.Stop()
		s.run(ctx)
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.run(ctx)
			}
		}
	}()
}

func (s *Sweeper) run(ctx context.Context) {
	result, err := s.Sweep(ctx)
	if err != nil {
		slog.Error("orphan sweep failed", tint.Err(err))
		return
	}
	if result.Packs > 0 || result.Templates > 0 {
		slog.Info("orphans removed", slog.Int64("packs", result.Packs), slog.Int64("templates", result.Templates))
	}
}

// Sweep runs one pass. Packs go first so that templates only they referenced become eligible.
func (s *Sweeper) Sweep(ctx context.Context) (domains.SweepResult, error) {
	cutoff := s.now().Add(-s.gracePeriod)

	var result domains.SweepResult
	packs, err := s.provider.DeleteEmptyPacks(ctx, cutoff)
	if err != nil {
		return result, err
	}
	result.Packs = packs
	s.metrics.Swept("pack", packs)
	if packs > 0 && s.cache != nil {
		s.cache.InvalidateScope(query.ScopeBoardPacks)
	}

	templates, err := s.provider.DeleteEmptyTemplates(ctx, cutoff)
	if err != nil {
		return result, err
	}
	result.Templates = templates
	s.metrics.Swept("template", templates)
	if templates > 0 && s.cache != nil {
		s.cache.InvalidateScope(query.ScopeBoardTemplates)
	}
	return result, nil
}
