package jobs

import (
	"log/slog"
	"time"

	"github.com/karloscodes/cartridge"

	"linktally/internal/clicks"
	"linktally/internal/config"
)

// RetentionJob prunes click events older than the retention period. Link
// counters are left alone: they are the all-time record, and the dashboard
// falls back to them when a window has no events left.
type RetentionJob struct {
	dbManager cartridge.DBManager
	logger    *slog.Logger
	cfg       *config.Config
}

func NewRetentionJob(dbManager cartridge.DBManager, logger *slog.Logger, cfg *config.Config) *RetentionJob {
	return &RetentionJob{
		dbManager: dbManager,
		logger:    logger,
		cfg:       cfg,
	}
}

// Run removes click events older than the retention period.
// This helps with GDPR data minimization and reduces storage usage.
func (j *RetentionJob) Run() error {
	retentionDays := j.cfg.ClickRetentionDays
	if retentionDays < 1 {
		return nil
	}

	db := j.dbManager.GetConnection()
	cutoffDate := time.Now().UTC().AddDate(0, 0, -retentionDays)

	j.logger.Info("Starting click event pruning",
		slog.Int("retention_days", retentionDays),
		slog.Time("cutoff_date", cutoffDate))

	// Count events to be deleted first
	var countToDelete int64
	if err := db.Model(&clicks.ClickEvent{}).
		Where("click_time < ?", cutoffDate).
		Count(&countToDelete).Error; err != nil {
		j.logger.Error("Failed to count old click events", slog.Any("error", err))
		return err
	}

	if countToDelete == 0 {
		j.logger.Debug("No old click events to prune")
		return nil
	}

	// Delete in batches to avoid locking the database for too long
	batchSize := 1000
	totalDeleted := int64(0)

	for {
		result := db.Where("click_time < ?", cutoffDate).
			Limit(batchSize).
			Delete(&clicks.ClickEvent{})
		if result.Error != nil {
			j.logger.Error("Failed to prune click events", slog.Any("error", result.Error))
			return result.Error
		}

		totalDeleted += result.RowsAffected
		if result.RowsAffected < int64(batchSize) {
			break
		}
	}

	j.logger.Info("Click event pruning completed",
		slog.Int64("deleted", totalDeleted))

	return nil
}
