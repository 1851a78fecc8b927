package model

import (
	"fmt"
	"time"
)

// Category determines which admission rules apply to an occupancy record.
type Category string

const (
	CategoryVisitor   Category = "visitor"
	CategoryWhitelist Category = "whitelist"
	CategoryBlacklist Category = "blacklist"
)

// ParseCategory maps a route/query value onto a known category.
func ParseCategory(s string) (Category, error) {
	switch Category(s) {
	case CategoryVisitor, CategoryWhitelist, CategoryBlacklist:
		return Category(s), nil
	}
	return "", fmt.Errorf("unknown category %q", s)
}

// RequiresInterval reports whether records in this category must carry a
// bounded [start, end] window. Whitelist bounds depend on the kind.
func (c Category) RequiresInterval() bool {
	return c == CategoryVisitor
}

// CapacityChecked reports whether admissions in this category count against
// the sub car park's space total.
func (c Category) CapacityChecked() bool {
	return c == CategoryVisitor
}

// HasLifecycle reports whether records in this category transition through
// active -> checkout. Blacklist entries only exist or are removed.
func (c Category) HasLifecycle() bool {
	return c != CategoryBlacklist
}

// WhitelistKind is the sub-variant of a whitelist permit.
type WhitelistKind string

const (
	WhitelistHour      WhitelistKind = "hour"
	WhitelistDate      WhitelistKind = "date"
	WhitelistPermanent WhitelistKind = "permanent"
	WhitelistSelfServe WhitelistKind = "self_serve"
)

// ParseWhitelistKind maps a request value onto a known whitelist kind.
func ParseWhitelistKind(s string) (WhitelistKind, error) {
	switch WhitelistKind(s) {
	case WhitelistHour, WhitelistDate, WhitelistPermanent, WhitelistSelfServe:
		return WhitelistKind(s), nil
	}
	return "", fmt.Errorf("unknown whitelist kind %q", s)
}

// Bounded reports whether permits of this kind carry an end time.
func (k WhitelistKind) Bounded() bool {
	return k == WhitelistHour || k == WhitelistDate
}

// RecordStatus is the lifecycle state of an occupancy record.
type RecordStatus string

const (
	StatusActive   RecordStatus = "active"
	StatusCheckout RecordStatus = "checkout"
)

// OccupancyRecord is one vehicle's claim on a sub car park: a visitor
// booking, a whitelist permit, or a blacklist ban. Registration is stored as
// received and compared case-insensitively. StartTime/EndTime are nil for
// unbounded categories.
type OccupancyRecord struct {
	ID            int64         `gorm:"primaryKey"`
	Category      Category      `gorm:"size:16;not null;index:idx_occupancy_scope"`
	WhitelistKind WhitelistKind `gorm:"size:16"`
	Registration  string        `gorm:"size:32;not null;index"`
	Email         string        `gorm:"size:256"`
	TenancyID     *int64        `gorm:"index"`
	SubCarParkID  int64         `gorm:"not null;index:idx_occupancy_scope"`
	CarParkCode   string        `gorm:"size:64;not null"` // Facility code snapshot at admission time.
	StartTime     *time.Time
	EndTime       *time.Time
	Status        RecordStatus `gorm:"size:16;not null;index"`
	CreatedAt     time.Time    `gorm:"not null"`
	UpdatedAt     time.Time

	// Associations
	SubCarPark SubCarPark
	Tenancy    *Tenancy
}

// Overlaps reports whether the record's window intersects [start, end).
// Windows are half-open so back-to-back bookings sharing an endpoint do not
// conflict. Nil bounds are treated as open (unbounded permits and bans
// overlap everything on the open side).
func (r *OccupancyRecord) Overlaps(start, end *time.Time) bool {
	// existing.start < requested.end
	if r.StartTime != nil && end != nil && !r.StartTime.Before(*end) {
		return false
	}
	// existing.end > requested.start
	if r.EndTime != nil && start != nil && !r.EndTime.After(*start) {
		return false
	}
	return true
}
