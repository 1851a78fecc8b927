package model

import "time"

// PushSubscription holds a staff browser push subscription. Subscriptions
// are bound to the sub car parks the subscriber wants activity alerts for.
type PushSubscription struct {
	Endpoint  string    `gorm:"primaryKey"`
	P256DH    string    `gorm:"column:p256dh;not null"`
	Auth      string    `gorm:"not null"`
	CreatedAt time.Time `gorm:"not null"`

	// Associations
	SubCarParks []*SubCarPark `gorm:"many2many:subscription_car_park_mapping;"`
}
