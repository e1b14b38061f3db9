package statistics

import (
	"context"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/ManuelReschke/PayFox/internal/pkg/env"
	"github.com/ManuelReschke/PayFox/internal/pkg/logger"
	"github.com/ManuelReschke/PayFox/internal/pkg/payments"
)

const (
	Window24h = 24 * time.Hour
	Window7d  = 7 * 24 * time.Hour
	Window28d = 28 * 24 * time.Hour
)

// Snapshot holds the rolling payment statistics at one instant. It is
// derived per notification from the payments table and never persisted.
type Snapshot struct {
	Last24h payments.WindowAggregate
	Last7d  payments.WindowAggregate
	Last28d payments.WindowAggregate
}

// Engine computes rolling windows and enforces the retention horizon.
type Engine struct {
	repo        payments.Repository
	cleanupDays int
}

// NewEngineFromEnv builds an engine with the retention horizon taken from
// STATS_CLEANUP_DAYS.
func NewEngineFromEnv(repo payments.Repository) *Engine {
	days, err := strconv.Atoi(env.GetEnv("STATS_CLEANUP_DAYS", "28"))
	if err != nil || days < 1 {
		days = 28
	}
	return NewEngine(repo, days)
}

// NewEngine builds an engine that deletes records older than cleanupDays.
func NewEngine(repo payments.Repository, cleanupDays int) *Engine {
	if cleanupDays < 1 {
		cleanupDays = 28
	}
	return &Engine{repo: repo, cleanupDays: cleanupDays}
}

// ComputeAndCleanup returns the 24h/7d/28d snapshot as of now and then runs
// the retention sweep. The windows are computed strictly before cleanup so
// a record inserted a moment ago is always visible in them. A cleanup
// failure is logged but does not void the snapshot; retention catches up on
// the next notification.
func (e *Engine) ComputeAndCleanup(ctx context.Context, now time.Time) (Snapshot, error) {
	var snap Snapshot
	var err error

	if snap.Last24h, err = e.repo.QueryWindow(ctx, now.Add(-Window24h)); err != nil {
		return snap, err
	}
	if snap.Last7d, err = e.repo.QueryWindow(ctx, now.Add(-Window7d)); err != nil {
		return snap, err
	}
	if snap.Last28d, err = e.repo.QueryWindow(ctx, now.Add(-Window28d)); err != nil {
		return snap, err
	}

	horizon := now.Add(-time.Duration(e.cleanupDays) * 24 * time.Hour)
	if err := e.repo.DeleteOlderThan(ctx, horizon); err != nil {
		logger.L().Error("retention cleanup failed",
			zap.Time("horizon", horizon),
			zap.Error(err))
	}

	return snap, nil
}
