package clicks

import (
	"fmt"
	"log/slog"
	"time"

	"gorm.io/gorm"

	"linktally/internal/links"
	"linktally/internal/models"
	"linktally/internal/pkg/geoip"
	"linktally/internal/pkg/useragent"
	"linktally/internal/visitors"
)

// RecordClickInput is the request context for one click. ClickTime defaults
// to now; the seeder backdates it.
type RecordClickInput struct {
	Link      *links.Link
	IPAddress string
	UserAgent string
	Referrer  string
	UTM       UTMParams
	ClickTime time.Time
}

// RecordClick persists one click event and refreshes the owning link's
// denormalized counters inside a single write transaction. A reader never
// observes the event without the counter update or vice versa.
//
// unique_visitors is a full DISTINCT recount rather than an increment, so
// the invariant unique_visitors <= total_clicks holds after any interleaving
// of concurrent writers. The recount is O(events for the link) per click.
func RecordClick(logger *slog.Logger, db *gorm.DB, input RecordClickInput) (*ClickEvent, error) {
	if input.Link == nil || input.Link.ID == 0 {
		return nil, &StorageError{Op: "record click", Err: fmt.Errorf("link is not persisted")}
	}

	classification := useragent.Classify(input.UserAgent)
	now := time.Now().UTC()
	clickTime := input.ClickTime
	if clickTime.IsZero() {
		clickTime = now
	}

	event := &ClickEvent{
		LinkID:      input.Link.ID,
		VisitorID:   visitors.BuildVisitorId(input.IPAddress, input.UserAgent),
		IPAddress:   input.IPAddress,
		UserAgent:   input.UserAgent,
		Referrer:    input.Referrer,
		DeviceType:  classification.DeviceType,
		Browser:     classification.Browser,
		OS:          classification.OS,
		Country:     geoip.CountryCode(input.IPAddress),
		ClickTime:   clickTime,
		UTMSource:   input.UTM.Source,
		UTMMedium:   input.UTM.Medium,
		UTMCampaign: input.UTM.Campaign,
		UTMTerm:     input.UTM.Term,
		UTMContent:  input.UTM.Content,
	}

	err := models.PerformWrite(logger, db, func(tx *gorm.DB) error {
		if err := tx.Create(event).Error; err != nil {
			return fmt.Errorf("failed to insert click event: %w", err)
		}

		update := `
			UPDATE links SET
				total_clicks = total_clicks + 1,
				unique_visitors = (SELECT COUNT(DISTINCT visitor_id) FROM click_events WHERE link_id = ?),
				last_clicked_at = ?,
				updated_at = ?
			WHERE id = ?
		`
		if err := tx.Exec(update, input.Link.ID, clickTime, now, input.Link.ID).Error; err != nil {
			return fmt.Errorf("failed to update link counters: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, &StorageError{Op: "record click", Err: err}
	}

	// Refresh the in-memory link so callers see the post-click counters
	input.Link.TotalClicks++
	input.Link.LastClickedAt = &clickTime

	logger.Debug("Recorded click",
		slog.Uint64("link_id", uint64(input.Link.ID)),
		slog.String("device_type", event.DeviceType),
		slog.String("browser", event.Browser),
		slog.String("os", event.OS))

	return event, nil
}

// CountClicksForLink returns the all-time click count for a link.
func CountClicksForLink(db *gorm.DB, linkID uint) (int64, error) {
	var count int64
	err := db.Model(&ClickEvent{}).Where("link_id = ?", linkID).Count(&count).Error
	return count, err
}

// CountUniqueVisitorsForLink returns the all-time distinct visitor count
// for a link.
func CountUniqueVisitorsForLink(db *gorm.DB, linkID uint) (int64, error) {
	var count int64
	err := db.Model(&ClickEvent{}).
		Where("link_id = ?", linkID).
		Distinct("visitor_id").
		Count(&count).Error
	return count, err
}
