package booking

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"carpark-backend/internal/model"
)

// Resolver answers which sub car parks a staff principal may operate on for
// a given category. Results are read fresh on every call: assignments can
// change between requests, so nothing is cached across them.
type Resolver struct {
	db *gorm.DB
}

// NewResolver creates a resolver backed by the given database.
func NewResolver(db *gorm.DB) *Resolver {
	return &Resolver{db: db}
}

// AssignedCarParks returns the set of sub car park IDs the staff principal
// is assigned for the category. An empty set is a valid result, not an
// error: it means the principal is authorized for nothing in that category.
func (r *Resolver) AssignedCarParks(ctx context.Context, staffID int64, category model.Category) (map[int64]struct{}, error) {
	if _, err := model.ParseCategory(string(category)); err != nil {
		return nil, Errorf(KindInvalidArgument, "%v", err)
	}

	var staff model.Staff
	if err := r.db.WithContext(ctx).First(&staff, staffID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, Errorf(KindNotFound, "staff %d not found", staffID)
		}
		return nil, fmt.Errorf("failed to load staff %d: %w", staffID, err)
	}

	var ids []int64
	err := r.db.WithContext(ctx).
		Model(&model.StaffAssignment{}).
		Where("staff_id = ? AND category = ?", staffID, category).
		Pluck("sub_car_park_id", &ids).Error
	if err != nil {
		return nil, fmt.Errorf("failed to resolve assignments for staff %d: %w", staffID, err)
	}

	set := make(map[int64]struct{}, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return set, nil
}
