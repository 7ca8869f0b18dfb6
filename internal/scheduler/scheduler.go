// Package scheduler runs the periodic maintenance jobs: search reindex,
// retention cleanup and rate limiter pruning.
package scheduler

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"tecnomadas-portal/internal/cleanup"
	"tecnomadas-portal/internal/config"
	"tecnomadas-portal/internal/models"
	"tecnomadas-portal/internal/search"
)

// Catalog lists the properties that belong in the search index
type Catalog interface {
	ListActiveProperties(ctx context.Context) ([]models.Property, error)
}

// Cleaner purges expired listings
type Cleaner interface {
	Run(ctx context.Context, cfg cleanup.Config) (*cleanup.Result, error)
}

// Pruner forgets idle rate limit clients
type Pruner interface {
	Prune() int
}

const (
	pruneSpec  = "@hourly"
	jobTimeout = 30 * time.Minute
)

// Scheduler handles scheduled maintenance tasks
type Scheduler struct {
	cron    *cron.Cron
	catalog Catalog
	indexer search.Indexer
	cleaner Cleaner
	pruner  Pruner
	config  config.SchedulerConfig

	mu        sync.Mutex
	isRunning bool
}

// NewScheduler creates a new scheduler. cleaner and pruner may be nil.
func NewScheduler(cfg config.SchedulerConfig, catalog Catalog, indexer search.Indexer, cleaner Cleaner, pruner Pruner) *Scheduler {
	return &Scheduler{
		cron:    cron.New(),
		catalog: catalog,
		indexer: indexer,
		cleaner: cleaner,
		pruner:  pruner,
		config:  cfg,
	}
}

// Start registers the jobs and starts the cron runner
func (s *Scheduler) Start() error {
	if !s.config.Enabled {
		slog.Info("scheduler disabled in configuration")
		return nil
	}

	if _, err := s.cron.AddFunc(s.config.ReindexSpec, s.job("reindex", s.Reindex)); err != nil {
		return err
	}

	if s.config.CleanupEnabled && s.cleaner != nil {
		if _, err := s.cron.AddFunc(s.config.CleanupSpec, s.job("cleanup", s.runCleanup)); err != nil {
			return err
		}
	}

	if s.pruner != nil {
		_, err := s.cron.AddFunc(pruneSpec, func() {
			if n := s.pruner.Prune(); n > 0 {
				slog.Debug("rate limiter pruned", "clients", n)
			}
		})
		if err != nil {
			return err
		}
	}

	s.cron.Start()
	s.mu.Lock()
	s.isRunning = true
	s.mu.Unlock()
	slog.Info("scheduler started",
		"reindex", s.config.ReindexSpec,
		"cleanup_enabled", s.config.CleanupEnabled,
		"cleanup", s.config.CleanupSpec)
	return nil
}

// Stop stops the scheduler and waits for running jobs
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.isRunning {
		<-s.cron.Stop().Done()
		s.isRunning = false
		slog.Info("scheduler stopped")
	}
}

// job wraps fn with a timeout and logging
func (s *Scheduler) job(name string, fn func(context.Context) error) func() {
	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
		defer cancel()

		start := time.Now()
		slog.Info("scheduled job starting", "job", name)
		if err := fn(ctx); err != nil {
			slog.Error("scheduled job failed", "job", name, "error", err)
			return
		}
		slog.Info("scheduled job completed", "job", name, "duration", time.Since(start))
	}
}

// Reindex replaces the search index contents with the active catalog
func (s *Scheduler) Reindex(ctx context.Context) error {
	properties, err := s.catalog.ListActiveProperties(ctx)
	if err != nil {
		return err
	}
	if err := s.indexer.Reindex(properties); err != nil {
		return err
	}
	slog.Info("search index rebuilt", "properties", len(properties))
	return nil
}

func (s *Scheduler) runCleanup(ctx context.Context) error {
	_, err := s.cleaner.Run(ctx, cleanup.ConfigFrom(s.config))
	return err
}
