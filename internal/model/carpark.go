package model

import "time"

// CarPark represents a parent facility group owning one or more sub car parks.
type CarPark struct {
	ID        int64     `gorm:"primaryKey"`
	Name      string    `gorm:"uniqueIndex;size:128;not null"`
	CreatedAt time.Time `gorm:"not null"`
	UpdatedAt time.Time `gorm:"not null"`

	// Associations
	SubCarParks []SubCarPark `gorm:"foreignKey:CarParkID"`
}

// SubCarPark is a physical parking area. Capacity is enforced per sub car
// park; TotalSpaces and Disabled may be edited after creation, but existing
// occupancy records are never invalidated retroactively by such edits.
type SubCarPark struct {
	ID          int64  `gorm:"primaryKey"`
	CarParkID   int64  `gorm:"index;not null"`
	Name        string `gorm:"size:256;not null"`
	Code        string `gorm:"uniqueIndex;size:64;not null"`
	TotalSpaces int    `gorm:"not null"`
	FreeHours   int    // Billing grace period; does not shrink occupied windows.
	Disabled    bool   `gorm:"not null;default:false"`
	CreatedAt   time.Time
	UpdatedAt   time.Time

	// Associations
	CarPark CarPark `gorm:"constraint:OnDelete:CASCADE"`
}
