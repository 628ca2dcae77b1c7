// Package links implements the link registry: trackable short links,
// short-code issuance, and link lifecycle operations.
package links

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"gorm.io/gorm"
)

// LinkNotFoundError represents an error when a link is not found
type LinkNotFoundError struct {
	ShortCode string
	ID        uint
}

func (e *LinkNotFoundError) Error() string {
	if e.ShortCode != "" {
		return fmt.Sprintf("link not found for short code: %s", e.ShortCode)
	}
	return fmt.Sprintf("link not found for id: %d", e.ID)
}

// NewLinkNotFoundError creates a new LinkNotFoundError for a short code
func NewLinkNotFoundError(shortCode string) *LinkNotFoundError {
	return &LinkNotFoundError{ShortCode: shortCode}
}

// ValidationError represents a rejected link input. No state is mutated when
// a ValidationError is returned.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// Link represents a trackable short link
type Link struct {
	ID             uint           `gorm:"primaryKey;autoIncrement" json:"id"`
	DestinationURL string         `gorm:"not null" json:"destination_url"`
	ShortCode      string         `gorm:"uniqueIndex;not null" json:"short_code"`
	Campaign       string         `gorm:"index" json:"campaign,omitempty"`
	TotalClicks    int            `gorm:"not null;default:0" json:"total_clicks"`
	UniqueVisitors int            `gorm:"not null;default:0" json:"unique_visitors"`
	LastClickedAt  *time.Time     `json:"last_clicked_at,omitempty"`
	CreatedAt      time.Time      `json:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at"`
	DeletedAt      gorm.DeletedAt `gorm:"index" json:"-"`
}

// CreateLinkInput carries the caller-supplied fields for a new link.
type CreateLinkInput struct {
	DestinationURL string `json:"destination_url"`
	ShortCode      string `json:"short_code"`
	Campaign       string `json:"campaign"`
}

// ValidateDestinationURL checks that the destination is a well-formed
// absolute http(s) URL. Returns the sanitized URL string.
func ValidateDestinationURL(raw string) (string, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return "", &ValidationError{Field: "destination_url", Reason: "missing"}
	}

	parsed, err := url.Parse(trimmed)
	if err != nil {
		return "", &ValidationError{Field: "destination_url", Reason: "malformed URL"}
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return "", &ValidationError{Field: "destination_url", Reason: "must be an absolute http or https URL"}
	}
	if parsed.Host == "" {
		return "", &ValidationError{Field: "destination_url", Reason: "missing host"}
	}

	return parsed.String(), nil
}

// CreateLink validates the input, assigns a unique short code and persists
// the link. A supplied short code that collides with an existing live link
// is silently replaced with a freshly generated one.
func CreateLink(db *gorm.DB, input CreateLinkInput) (*Link, error) {
	destination, err := ValidateDestinationURL(input.DestinationURL)
	if err != nil {
		return nil, err
	}

	link := &Link{
		DestinationURL: destination,
		Campaign:       strings.TrimSpace(input.Campaign),
		CreatedAt:      time.Now().UTC(),
	}

	if err := assignShortCode(db, link, strings.TrimSpace(input.ShortCode)); err != nil {
		return nil, err
	}

	return link, nil
}

// GetLinkByShortCode retrieves a live link by its short code
func GetLinkByShortCode(db *gorm.DB, code string) (*Link, error) {
	var link Link
	if err := db.Where("short_code = ?", code).First(&link).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, NewLinkNotFoundError(code)
		}
		return nil, fmt.Errorf("unexpected error querying link: %w", err)
	}
	return &link, nil
}

// GetLinkByID retrieves a live link by its ID
func GetLinkByID(db *gorm.DB, id uint) (*Link, error) {
	var link Link
	if err := db.First(&link, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, &LinkNotFoundError{ID: id}
		}
		return nil, fmt.Errorf("unexpected error querying link: %w", err)
	}
	return &link, nil
}

// GetAllLinks retrieves all live links
func GetAllLinks(db *gorm.DB) ([]Link, error) {
	var all []Link
	if err := db.Order("created_at DESC").Find(&all).Error; err != nil {
		return nil, fmt.Errorf("failed to get links: %w", err)
	}
	return all, nil
}

// CountActiveLinks returns the number of live links
func CountActiveLinks(db *gorm.DB) (int64, error) {
	var count int64
	if err := db.Model(&Link{}).Count(&count).Error; err != nil {
		return 0, fmt.Errorf("failed to count links: %w", err)
	}
	return count, nil
}

// UpdateLinkInput carries the mutable fields for an existing link. Nil
// pointers leave the corresponding field untouched.
type UpdateLinkInput struct {
	DestinationURL *string `json:"destination_url"`
	ShortCode      *string `json:"short_code"`
	Campaign       *string `json:"campaign"`
}

// UpdateLink applies the supplied changes to an existing link. Changing the
// short code follows the same collision policy as creation.
func UpdateLink(db *gorm.DB, id uint, input UpdateLinkInput) (*Link, error) {
	link, err := GetLinkByID(db, id)
	if err != nil {
		return nil, err
	}

	if input.DestinationURL != nil {
		destination, err := ValidateDestinationURL(*input.DestinationURL)
		if err != nil {
			return nil, err
		}
		link.DestinationURL = destination
	}
	if input.Campaign != nil {
		link.Campaign = strings.TrimSpace(*input.Campaign)
	}

	if input.ShortCode != nil && strings.TrimSpace(*input.ShortCode) != link.ShortCode {
		if err := SetShortCode(db, link, strings.TrimSpace(*input.ShortCode)); err != nil {
			return nil, err
		}
		return link, nil
	}

	if err := db.Save(link).Error; err != nil {
		return nil, fmt.Errorf("failed to update link: %w", err)
	}
	return link, nil
}

// DeleteLink soft-deletes a link by its ID. Click events are retained until
// a hard delete.
func DeleteLink(db *gorm.DB, id uint) error {
	result := db.Delete(&Link{}, id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return &LinkNotFoundError{ID: id}
	}
	return nil
}

// HardDeleteLink permanently removes a link and all of its click events.
func HardDeleteLink(db *gorm.DB, id uint) error {
	return db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Exec("DELETE FROM click_events WHERE link_id = ?", id).Error; err != nil {
			return fmt.Errorf("failed to delete click events: %w", err)
		}
		result := tx.Unscoped().Delete(&Link{}, id)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return &LinkNotFoundError{ID: id}
		}
		return nil
	})
}

// ShortURL returns the public short URL for a link under the given base URL.
func (l *Link) ShortURL(baseURL string) string {
	return strings.TrimRight(baseURL, "/") + "/go/" + l.ShortCode
}
