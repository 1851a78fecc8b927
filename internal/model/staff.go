package model

import "time"

// Staff roles recognised by the role middleware.
const (
	RoleAdmin   = "admin"
	RoleManager = "manager"
	RolePatrol  = "patrol"
)

// Staff is an authenticated staff principal. Accounts are provisioned by the
// external identity service; this backend only reads them.
type Staff struct {
	ID        int64  `gorm:"primaryKey"`
	Name      string `gorm:"size:128;not null"`
	Email     string `gorm:"uniqueIndex;size:256;not null"`
	Role      string `gorm:"size:16;not null"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

// StaffAssignment grants one staff principal access to one sub car park for
// one category. The three category relations are independent; the same sub
// car park may be assigned to the same principal under several categories.
type StaffAssignment struct {
	ID           int64    `gorm:"primaryKey"`
	StaffID      int64    `gorm:"uniqueIndex:idx_staff_assignment;not null"`
	SubCarParkID int64    `gorm:"uniqueIndex:idx_staff_assignment;not null"`
	Category     Category `gorm:"uniqueIndex:idx_staff_assignment;size:16;not null"`
	CreatedAt    time.Time

	// Associations
	Staff      Staff      `gorm:"constraint:OnDelete:CASCADE"`
	SubCarPark SubCarPark `gorm:"constraint:OnDelete:CASCADE"`
}
