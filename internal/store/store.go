package store

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"carpark-backend/internal/model"
)

// SubCarParkAvailability is one enabled sub car park with its live free
// space count, as shown on the public visitor listing.
type SubCarParkAvailability struct {
	ID              int64  `json:"id"`
	CarParkName     string `json:"carParkName"`
	Name            string `json:"name"`
	Code            string `json:"code"`
	TotalSpaces     int    `json:"totalSpaces"`
	FreeHours       int    `json:"freeHours"`
	AvailableSpaces int    `json:"availableSpaces"`
}

// Store defines the read operations the API layer needs outside the booking
// core.
type Store interface {
	DB() *gorm.DB
	EnabledSubCarParks(ctx context.Context, at time.Time) ([]SubCarParkAvailability, error)
}

// gormStore implements the Store interface using GORM.
type gormStore struct {
	db *gorm.DB
}

// NewGormStore creates a new GORM-backed store.
func NewGormStore(db *gorm.DB) Store {
	return &gormStore{db: db}
}

// DB exposes the underlying connection for handlers that compose their own
// queries (subscription management).
func (s *gormStore) DB() *gorm.DB {
	return s.db
}

// EnabledSubCarParks lists every enabled sub car park with the number of
// spaces free at the given instant: total spaces minus active visitor
// bookings whose window covers it.
func (s *gormStore) EnabledSubCarParks(ctx context.Context, at time.Time) ([]SubCarParkAvailability, error) {
	var subs []model.SubCarPark
	err := s.db.WithContext(ctx).
		Preload("CarPark").
		Where("disabled = ?", false).
		Order("code").
		Find(&subs).Error
	if err != nil {
		return nil, fmt.Errorf("failed to retrieve sub car parks: %w", err)
	}

	type aggRow struct {
		SubCarParkID int64
		Occupied     int64
	}
	var aggs []aggRow
	err = s.db.WithContext(ctx).
		Model(&model.OccupancyRecord{}).
		Select("sub_car_park_id as sub_car_park_id, COUNT(*) as occupied").
		Where("category = ? AND status = ? AND start_time <= ? AND end_time >= ?",
			model.CategoryVisitor, model.StatusActive, at, at).
		Group("sub_car_park_id").
		Scan(&aggs).Error
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate occupancy: %w", err)
	}

	occupiedMap := make(map[int64]int64, len(aggs))
	for _, a := range aggs {
		occupiedMap[a.SubCarParkID] = a.Occupied
	}

	out := make([]SubCarParkAvailability, 0, len(subs))
	for _, sub := range subs {
		available := sub.TotalSpaces - int(occupiedMap[sub.ID])
		if available < 0 {
			available = 0
		}
		out = append(out, SubCarParkAvailability{
			ID:              sub.ID,
			CarParkName:     sub.CarPark.Name,
			Name:            sub.Name,
			Code:            sub.Code,
			TotalSpaces:     sub.TotalSpaces,
			FreeHours:       sub.FreeHours,
			AvailableSpaces: available,
		})
	}
	return out, nil
}
