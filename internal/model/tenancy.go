package model

import "time"

// Tenancy is a lease/contact record attached to a sub car park. Referenced
// by occupancy records and validated at admission time, never mutated here.
type Tenancy struct {
	ID           int64  `gorm:"primaryKey"`
	SubCarParkID int64  `gorm:"index;not null"`
	Name         string `gorm:"size:256;not null"`
	Email        string `gorm:"size:256"`
	CreatedAt    time.Time
	UpdatedAt    time.Time

	// Associations
	SubCarPark SubCarPark `gorm:"constraint:OnDelete:CASCADE"`
}
