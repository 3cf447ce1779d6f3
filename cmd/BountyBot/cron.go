package main

import (
	"context"
	"time"

	"BountyBot/internal/biz"
	pkglog "BountyBot/pkg/log"

	"github.com/go-kratos/kratos/v2/log"
	"github.com/robfig/cron/v3"
)

// breakerStatsSpec runs the reporter at second 0 of every minute.
const breakerStatsSpec = "0 * * * * *"

// NewBreakerStatsCron returns a cron that logs a snapshot of every breaker each minute.
// It reads the stored state with Peek so reporting never moves a circuit to HALF_OPEN.
// The caller starts and stops it.
func NewBreakerStatsCron(registry *biz.BreakerRegistry, logger log.Logger) *cron.Cron {
	helper := pkglog.NewLogHelper(logger)

	c := cron.New(cron.WithSeconds())
	_, err := c.AddFunc(breakerStatsSpec, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		reportBreakerStats(ctx, registry, helper)
	})
	if err != nil {
		helper.Errorw("msg", "failed to register breaker stats cron job", "error", err)
		return nil
	}

	helper.Scheduler("Breaker stats cron job registered: runs every minute")
	return c
}

func reportBreakerStats(ctx context.Context, registry *biz.BreakerRegistry, helper *pkglog.LogHelper) {
	stats, err := registry.Peek(ctx)
	if err != nil {
		helper.Warnw("msg", "failed to read breaker stats", "error", err)
		return
	}
	for _, s := range stats {
		kvs := []interface{}{}
		if s.OpenedAt != nil {
			kvs = append(kvs, "opened_at", s.OpenedAt.UTC().Format(time.RFC3339))
		}
		helper.BreakerStats(s.Name, s.State.String(), s.Failures, s.Successes, kvs...)
	}
}
