// Package cleanup permanently removes listings that stayed inactive past the
// retention period.
package cleanup

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"tecnomadas-portal/internal/apperr"
	"tecnomadas-portal/internal/config"
	"tecnomadas-portal/internal/database"
	"tecnomadas-portal/internal/models"
)

// Purger removes one property for good
type Purger interface {
	PurgeProperty(ctx context.Context, id, reason string) (*models.DeleteLog, error)
}

// Service handles physical deletion of old inactive properties
type Service struct {
	store *database.GormDB
	purge Purger
	now   func() time.Time
}

// NewService creates a new cleanup service
func NewService(store *database.GormDB) *Service {
	return &Service{
		store: store,
		purge: store,
		now:   func() time.Time { return time.Now().UTC() },
	}
}

// Config holds configuration for cleanup operations
type Config struct {
	RetentionDays    int  `json:"retention_days"`
	MaxDeletionCount int  `json:"max_deletions"`
	DryRun           bool `json:"dry_run"`
}

// ConfigFrom takes the retention settings of the scheduler config
func ConfigFrom(cfg config.SchedulerConfig) Config {
	return Config{
		RetentionDays:    cfg.RetentionDays,
		MaxDeletionCount: cfg.MaxDeletions,
	}
}

// Result holds the result of a cleanup operation
type Result struct {
	TargetCount       int       `json:"target_count"`
	DeletedCount      int       `json:"deleted_count"`
	ErrorCount        int       `json:"error_count"`
	DryRun            bool      `json:"dry_run"`
	Cutoff            time.Time `json:"cutoff"`
	ExecutedAt        time.Time `json:"executed_at"`
	DeletedProperties []string  `json:"deleted_properties"`
	Errors            []string  `json:"errors,omitempty"`
}

// FindExpired returns inactive properties not touched since the cutoff
func (s *Service) FindExpired(ctx context.Context, retentionDays int) ([]models.Property, time.Time, error) {
	cutoff := s.now().AddDate(0, 0, -retentionDays)

	var properties []models.Property
	err := s.store.DB().WithContext(ctx).
		Select("id, title, updated_at").
		Where("active = ? AND updated_at < ?", false, cutoff).
		Order("updated_at ASC").
		Find(&properties).Error
	if err != nil {
		return nil, cutoff, database.Classify(err, "find expired properties")
	}
	return properties, cutoff, nil
}

// Run purges every expired property. It refuses to start when more than
// MaxDeletionCount properties qualify. One failed purge does not stop the run.
func (s *Service) Run(ctx context.Context, cfg Config) (*Result, error) {
	if cfg.RetentionDays <= 0 {
		return nil, apperr.Validationf("retention days must be positive, got %d", cfg.RetentionDays)
	}

	expired, cutoff, err := s.FindExpired(ctx, cfg.RetentionDays)
	if err != nil {
		return nil, err
	}

	result := &Result{
		TargetCount:       len(expired),
		DryRun:            cfg.DryRun,
		Cutoff:            cutoff,
		ExecutedAt:        s.now(),
		DeletedProperties: []string{},
	}
	if result.TargetCount == 0 {
		slog.Info("cleanup found nothing to delete", "cutoff", cutoff)
		return result, nil
	}

	if cfg.MaxDeletionCount > 0 && result.TargetCount > cfg.MaxDeletionCount {
		return nil, apperr.Validationf("safety check failed: %d properties exceed max deletion limit of %d",
			result.TargetCount, cfg.MaxDeletionCount)
	}

	slog.Info("cleanup starting",
		"targets", result.TargetCount,
		"retention_days", cfg.RetentionDays,
		"dry_run", cfg.DryRun)

	for _, prop := range expired {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		if cfg.DryRun {
			slog.Info("cleanup would delete property", "property_id", prop.ID, "title", prop.Title, "updated_at", prop.UpdatedAt)
			result.DeletedProperties = append(result.DeletedProperties, prop.ID)
			result.DeletedCount++
			continue
		}

		if _, err := s.purge.PurgeProperty(ctx, prop.ID, models.DeleteReasonRetention); err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("property %s: %v", prop.ID, err))
			result.ErrorCount++
			continue
		}
		result.DeletedProperties = append(result.DeletedProperties, prop.ID)
		result.DeletedCount++
	}

	slog.Info("cleanup completed",
		"deleted", result.DeletedCount,
		"targets", result.TargetCount,
		"errors", result.ErrorCount,
		"dry_run", cfg.DryRun)
	return result, nil
}

// DeleteStats summarizes the delete log
type DeleteStats struct {
	TotalDeleted      int64            `json:"total_deleted"`
	ByReason          map[string]int64 `json:"by_reason"`
	DeletedLast30Days int64            `json:"deleted_last_30_days"`
	CurrentlyInactive int64            `json:"currently_inactive"`
	ReadyForDeletion  int              `json:"ready_for_deletion"`
	RetentionDays     int              `json:"retention_days"`
}

// GetDeleteStats returns statistics about deleted properties
func (s *Service) GetDeleteStats(ctx context.Context, retentionDays int) (*DeleteStats, error) {
	db := s.store.DB().WithContext(ctx)
	stats := &DeleteStats{ByReason: map[string]int64{}, RetentionDays: retentionDays}

	if err := db.Model(&models.DeleteLog{}).Count(&stats.TotalDeleted).Error; err != nil {
		return nil, database.Classify(err, "delete stats")
	}

	var reasonCounts []struct {
		Reason string
		Count  int64
	}
	if err := db.Model(&models.DeleteLog{}).
		Select("reason, count(*) as count").
		Group("reason").
		Scan(&reasonCounts).Error; err != nil {
		return nil, database.Classify(err, "delete stats")
	}
	for _, rc := range reasonCounts {
		stats.ByReason[rc.Reason] = rc.Count
	}

	since := s.now().AddDate(0, 0, -30)
	if err := db.Model(&models.DeleteLog{}).Where("deleted_at >= ?", since).Count(&stats.DeletedLast30Days).Error; err != nil {
		return nil, database.Classify(err, "delete stats")
	}

	if err := db.Model(&models.Property{}).Where("active = ?", false).Count(&stats.CurrentlyInactive).Error; err != nil {
		return nil, database.Classify(err, "delete stats")
	}

	if retentionDays > 0 {
		expired, _, err := s.FindExpired(ctx, retentionDays)
		if err != nil {
			return nil, err
		}
		stats.ReadyForDeletion = len(expired)
	}
	return stats, nil
}

// GetRecentDeleteLogs returns recent delete log entries, newest first
func (s *Service) GetRecentDeleteLogs(ctx context.Context, limit int) ([]models.DeleteLog, error) {
	if limit <= 0 || limit > 500 {
		limit = 50
	}
	logs := []models.DeleteLog{}
	err := s.store.DB().WithContext(ctx).Order("deleted_at DESC").Order("id DESC").Limit(limit).Find(&logs).Error
	if err != nil {
		return nil, database.Classify(err, "list delete logs")
	}
	return logs, nil
}
