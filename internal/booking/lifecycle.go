package booking

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"carpark-backend/internal/model"
)

// Lifecycle moves occupancy records through their one-way active -> checkout
// transition and handles explicit removal. Both mutations enforce the
// caller's scope and surface a second completion attempt as an error rather
// than a silent no-op.
type Lifecycle struct {
	db       *gorm.DB
	notifier Notifier
}

// NewLifecycle creates a lifecycle manager; notifier may be nil.
func NewLifecycle(db *gorm.DB, notifier Notifier) *Lifecycle {
	return &Lifecycle{db: db, notifier: notifier}
}

// Checkout transitions the record from active to checkout exactly once. The
// state flip is a compare-and-set on status, so two concurrent checkouts
// cannot both succeed: the loser observes zero affected rows and reports
// AlreadyCompleted.
func (l *Lifecycle) Checkout(ctx context.Context, scope Scope, recordID int64) error {
	record, err := l.loadScoped(ctx, scope, recordID)
	if err != nil {
		return err
	}
	if !record.Category.HasLifecycle() {
		return Errorf(KindInvalidArgument, "%s records have no checkout", record.Category)
	}
	if record.Status == model.StatusCheckout {
		return Errorf(KindAlreadyCompleted, "record %d is already checked out", recordID)
	}

	res := l.db.WithContext(ctx).
		Model(&model.OccupancyRecord{}).
		Where("id = ? AND status = ?", recordID, model.StatusActive).
		Update("status", model.StatusCheckout)
	if res.Error != nil {
		return fmt.Errorf("failed to check out record %d: %w", recordID, res.Error)
	}
	if res.RowsAffected == 0 {
		// Lost the race against a concurrent checkout.
		return Errorf(KindAlreadyCompleted, "record %d is already checked out", recordID)
	}

	if l.notifier != nil {
		l.notifier.RecordCheckedOut(recordID)
	}
	return nil
}

// Remove deletes the record after the same authorization and terminal-state
// checks as Checkout. Deletion is always explicit; nothing in the core
// removes records implicitly.
func (l *Lifecycle) Remove(ctx context.Context, scope Scope, recordID int64) error {
	record, err := l.loadScoped(ctx, scope, recordID)
	if err != nil {
		return err
	}
	if record.Status == model.StatusCheckout {
		return Errorf(KindAlreadyCompleted, "record %d is already checked out", recordID)
	}

	res := l.db.WithContext(ctx).
		Where("id = ? AND status = ?", recordID, model.StatusActive).
		Delete(&model.OccupancyRecord{})
	if res.Error != nil {
		return fmt.Errorf("failed to remove record %d: %w", recordID, res.Error)
	}
	if res.RowsAffected == 0 {
		return Errorf(KindAlreadyCompleted, "record %d is already checked out", recordID)
	}
	return nil
}

// loadScoped fetches the record and verifies the scope may mutate it.
// Records of another category stay indistinguishable from absent ones.
func (l *Lifecycle) loadScoped(ctx context.Context, scope Scope, recordID int64) (*model.OccupancyRecord, error) {
	var record model.OccupancyRecord
	if err := l.db.WithContext(ctx).First(&record, recordID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, Errorf(KindNotFound, "record %d not found", recordID)
		}
		return nil, fmt.Errorf("failed to load record %d: %w", recordID, err)
	}
	if record.Category != scope.Category {
		return nil, Errorf(KindNotFound, "record %d not found", recordID)
	}
	if !scope.Allows(record.SubCarParkID) {
		return nil, Errorf(KindForbidden, "sub car park %d is not assigned to the caller for category %s", record.SubCarParkID, scope.Category)
	}
	return &record, nil
}
