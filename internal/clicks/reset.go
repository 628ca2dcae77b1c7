package clicks

import (
	"fmt"
	"log/slog"

	"gorm.io/gorm"

	"linktally/internal/models"
)

// ResetResult reports what the administrative reset touched.
type ResetResult struct {
	ClearedEventStore bool  `json:"cleared_event_store"`
	LinksReset        int64 `json:"links_reset"`
}

// ResetAllStats truncates the click event store and zeroes every link's
// denormalized counters. Irreversible; confirmation belongs to the calling
// layer.
func ResetAllStats(logger *slog.Logger, db *gorm.DB) (*ResetResult, error) {
	result := &ResetResult{}

	err := models.PerformWrite(logger, db, func(tx *gorm.DB) error {
		if err := tx.Exec("DELETE FROM click_events").Error; err != nil {
			return fmt.Errorf("failed to clear click events: %w", err)
		}
		result.ClearedEventStore = true

		reset := tx.Exec(`
			UPDATE links SET
				total_clicks = 0,
				unique_visitors = 0,
				last_clicked_at = NULL
		`)
		if reset.Error != nil {
			return fmt.Errorf("failed to reset link counters: %w", reset.Error)
		}
		result.LinksReset = reset.RowsAffected
		return nil
	})
	if err != nil {
		return nil, &StorageError{Op: "reset stats", Err: err}
	}

	logger.Info("All statistics reset",
		slog.Bool("cleared_event_store", result.ClearedEventStore),
		slog.Int64("links_reset", result.LinksReset))

	return result, nil
}
