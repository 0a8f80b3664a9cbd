// AngelaMos | 2026
// janitor.go

package jobs

import (
	"context"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/agrimesh/platform-api/internal/authz"
	"github.com/agrimesh/platform-api/internal/config"
)

// RoleExpirer deactivates expired user-role links and reports how many
// users were affected.
type RoleExpirer interface {
	DeactivateExpiredRoles(ctx context.Context) (int, error)
}

// SessionCleaner removes stale refresh tokens.
type SessionCleaner interface {
	DeleteExpired(ctx context.Context) (int64, error)
}

// Janitor runs the periodic maintenance work: sweeping expired
// authorization contexts, deactivating expired role links, and pruning
// dead refresh tokens.
type Janitor struct {
	cfg      config.JobsConfig
	cache    authz.ContextCache
	roles    RoleExpirer
	sessions SessionCleaner
	logger   *slog.Logger
	cron     *cron.Cron
}

func NewJanitor(
	cfg config.JobsConfig,
	cache authz.ContextCache,
	roles RoleExpirer,
	sessions SessionCleaner,
	logger *slog.Logger,
) *Janitor {
	return &Janitor{
		cfg:      cfg,
		cache:    cache,
		roles:    roles,
		sessions: sessions,
		logger:   logger,
		cron:     cron.New(),
	}
}

// Start registers the schedules and launches the cron loop. It is a
// no-op when jobs are disabled.
func (j *Janitor) Start() error {
	if !j.cfg.Enabled {
		j.logger.Info("background jobs disabled")
		return nil
	}

	_, err := j.cron.AddFunc(j.cfg.CacheSweepSchedule, j.sweepCache)
	if err != nil {
		return err
	}

	_, err = j.cron.AddFunc(j.cfg.RoleExpirySchedule, j.expireRoles)
	if err != nil {
		return err
	}

	// Refresh token pruning shares the role-expiry cadence.
	_, err = j.cron.AddFunc(j.cfg.RoleExpirySchedule, j.pruneSessions)
	if err != nil {
		return err
	}

	j.cron.Start()
	j.logger.Info("background jobs started",
		"cache_sweep", j.cfg.CacheSweepSchedule,
		"role_expiry", j.cfg.RoleExpirySchedule,
	)

	return nil
}

// Stop halts scheduling and waits for running jobs to finish.
func (j *Janitor) Stop() {
	ctx := j.cron.Stop()
	<-ctx.Done()
}

func (j *Janitor) sweepCache() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	removed, err := j.cache.Sweep(ctx)
	if err != nil {
		j.logger.Error("cache sweep failed", "error", err)
		return
	}

	if removed > 0 {
		j.logger.Debug("cache sweep completed", "removed", removed)
	}
}

func (j *Janitor) expireRoles() {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	affected, err := j.roles.DeactivateExpiredRoles(ctx)
	if err != nil {
		j.logger.Error("role expiry failed", "error", err)
		return
	}

	if affected > 0 {
		j.logger.Info("expired role links deactivated", "users", affected)
	}
}

func (j *Janitor) pruneSessions() {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	removed, err := j.sessions.DeleteExpired(ctx)
	if err != nil {
		j.logger.Error("session pruning failed", "error", err)
		return
	}

	if removed > 0 {
		j.logger.Info("expired refresh tokens pruned", "removed", removed)
	}
}
