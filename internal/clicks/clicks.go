// Package clicks owns the append-only click event store and the
// transactional recording of clicks against links.
package clicks

import (
	"fmt"
	"net/url"
	"time"
)

// ClickEvent is an immutable record of one visit through a short link.
// Rows are never mutated or deleted except by a global reset or a hard link
// delete.
type ClickEvent struct {
	ID          uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	LinkID      uint      `gorm:"index;index:idx_click_events_link_time,priority:1;not null" json:"link_id"`
	VisitorID   string    `gorm:"index;not null" json:"visitor_id"`
	IPAddress   string    `json:"ip_address"`
	UserAgent   string    `json:"user_agent"`
	Referrer    string    `json:"referrer"`
	DeviceType  string    `json:"device_type"`
	Browser     string    `json:"browser"`
	OS          string    `json:"os"`
	Country     string    `json:"country"`
	ClickTime   time.Time `gorm:"index;index:idx_click_events_link_time,priority:2;not null" json:"click_time"`
	UTMSource   string    `json:"utm_source"`
	UTMMedium   string    `json:"utm_medium"`
	UTMCampaign string    `json:"utm_campaign"`
	UTMTerm     string    `json:"utm_term"`
	UTMContent  string    `json:"utm_content"`
}

// TableName keeps the table name stable regardless of gorm pluralization.
func (ClickEvent) TableName() string {
	return "click_events"
}

// UTMParams carries the optional campaign attribution fields of a click.
type UTMParams struct {
	Source   string
	Medium   string
	Campaign string
	Term     string
	Content  string
}

// UTMParamsFromQuery extracts the standard utm_* parameters from a query
// string.
func UTMParamsFromQuery(query url.Values) UTMParams {
	return UTMParams{
		Source:   query.Get("utm_source"),
		Medium:   query.Get("utm_medium"),
		Campaign: query.Get("utm_campaign"),
		Term:     query.Get("utm_term"),
		Content:  query.Get("utm_content"),
	}
}

// IsZero reports whether no UTM field is set.
func (u UTMParams) IsZero() bool {
	return u == UTMParams{}
}

// StorageError wraps a failed interaction with the click event store.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage error during %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}
