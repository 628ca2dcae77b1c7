package http

import (
	"log/slog"

	"github.com/gofiber/fiber/v2"
	"github.com/karloscodes/cartridge"
	"github.com/karloscodes/cartridge/cache"

	"linktally/internal/clicks"
)

// SystemResetAction wipes the click event store and zeroes every link's
// counters. Destructive and irreversible; operators confirm via linkctl or
// their own tooling before calling this.
func SystemResetAction(ctx *cartridge.Context) error {
	db := ctx.DB()

	result, err := clicks.ResetAllStats(ctx.Logger, db)
	if err != nil {
		ctx.Logger.Error("Failed to reset statistics", slog.Any("error", err))
		return ctx.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"success": false,
			"error":   "Failed to reset statistics",
		})
	}

	// Cached dashboards are stale after a reset
	rowsAffected, err := cache.PurgeAllCaches(db)
	if err != nil {
		ctx.Logger.Error("Failed to clear generic_cache", slog.Any("error", err))
	} else {
		ctx.Logger.Info("Caches purged", slog.Int64("rows_deleted", rowsAffected))
	}

	ctx.Logger.Info("Statistics reset",
		slog.Bool("cleared_event_store", result.ClearedEventStore),
		slog.Int64("links_reset", result.LinksReset))

	return ctx.JSON(fiber.Map{
		"success":             true,
		"cleared_event_store": result.ClearedEventStore,
		"links_reset":         result.LinksReset,
	})
}
