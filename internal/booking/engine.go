package booking

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"

	"carpark-backend/internal/model"
)

// Notifier receives record IDs after a core state transition has committed.
// Implementations must be best-effort: they run outside the transaction and
// can never roll a committed admission or checkout back.
type Notifier interface {
	RecordAdmitted(recordID int64)
	RecordCheckedOut(recordID int64)
}

// AdmitRequest carries the inputs for one admission. The category comes from
// the scope, not the request, so a role adapter cannot smuggle a record into
// a category its scope was not built for.
type AdmitRequest struct {
	SubCarParkID  int64
	Registration  string
	Email         string
	TenancyID     *int64
	WhitelistKind model.WhitelistKind
	StartTime     *time.Time
	EndTime       *time.Time
}

// Engine validates and persists occupancy records. The conflict check, the
// capacity check and the insert run inside one transaction while a
// per-facility mutex is held, so two concurrent admissions for the same sub
// car park cannot both observe a free space and both succeed.
type Engine struct {
	db       *gorm.DB
	maxVisit time.Duration
	locks    *facilityLocks
	notifier Notifier
	now      func() time.Time
}

// NewEngine creates an admission engine. maxVisit caps the duration of
// visitor bookings; notifier may be nil.
func NewEngine(db *gorm.DB, maxVisit time.Duration, notifier Notifier) *Engine {
	return &Engine{
		db:       db,
		maxVisit: maxVisit,
		locks:    newFacilityLocks(),
		notifier: notifier,
		now:      time.Now,
	}
}

// Admit runs the admission pipeline for the scope's category: authorization,
// interval sanity, referential checks, conflict check, capacity check,
// insert. Each step fails with its own error kind; nothing is persisted
// unless every step passes.
func (e *Engine) Admit(ctx context.Context, scope Scope, req AdmitRequest) (*model.OccupancyRecord, error) {
	if !scope.Allows(req.SubCarParkID) {
		return nil, Errorf(KindForbidden, "sub car park %d is not assigned to the caller for category %s", req.SubCarParkID, scope.Category)
	}

	registration := strings.TrimSpace(req.Registration)
	if registration == "" {
		return nil, Errorf(KindInvalidArgument, "registration is required")
	}

	kind, start, end, err := e.normalizeVariant(scope.Category, req)
	if err != nil {
		return nil, err
	}

	// Serialize admissions per facility for the read-check-insert span.
	mu := e.locks.get(req.SubCarParkID)
	mu.Lock()
	defer mu.Unlock()

	var record *model.OccupancyRecord
	txErr := e.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var sub model.SubCarPark
		if err := tx.First(&sub, req.SubCarParkID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return Errorf(KindNotFound, "sub car park %d not found", req.SubCarParkID)
			}
			return fmt.Errorf("failed to load sub car park %d: %w", req.SubCarParkID, err)
		}
		if sub.Disabled {
			return Errorf(KindFacilityDisabled, "sub car park %q is disabled", sub.Code)
		}

		if req.TenancyID != nil {
			var tenancy model.Tenancy
			if err := tx.First(&tenancy, *req.TenancyID).Error; err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return Errorf(KindNotFound, "tenancy %d not found", *req.TenancyID)
				}
				return fmt.Errorf("failed to load tenancy %d: %w", *req.TenancyID, err)
			}
		}

		if err := e.checkConflict(tx, scope.Category, sub.ID, registration, start, end); err != nil {
			return err
		}

		if scope.Category.CapacityChecked() {
			if err := checkCapacity(tx, &sub, start, end); err != nil {
				return err
			}
		}

		record = &model.OccupancyRecord{
			Category:      scope.Category,
			WhitelistKind: kind,
			Registration:  registration,
			Email:         strings.TrimSpace(req.Email),
			TenancyID:     req.TenancyID,
			SubCarParkID:  sub.ID,
			CarParkCode:   sub.Code,
			StartTime:     start,
			EndTime:       end,
			Status:        model.StatusActive,
		}
		if err := tx.Create(record).Error; err != nil {
			return fmt.Errorf("failed to persist occupancy record: %w", err)
		}
		return nil
	})
	if txErr != nil {
		return nil, txErr
	}

	if e.notifier != nil {
		e.notifier.RecordAdmitted(record.ID)
	}
	return record, nil
}

// normalizeVariant applies the per-category interval rules and returns the
// window the record will occupy.
func (e *Engine) normalizeVariant(category model.Category, req AdmitRequest) (model.WhitelistKind, *time.Time, *time.Time, error) {
	switch category {
	case model.CategoryVisitor:
		if req.WhitelistKind != "" {
			return "", nil, nil, Errorf(KindInvalidArgument, "whitelist kind is not valid for visitor bookings")
		}
		if req.StartTime == nil || req.EndTime == nil {
			return "", nil, nil, Errorf(KindInvalidInterval, "visitor bookings require a start and end time")
		}
		if !req.StartTime.Before(*req.EndTime) {
			return "", nil, nil, Errorf(KindInvalidInterval, "start time must be before end time")
		}
		if req.EndTime.Sub(*req.StartTime) > e.maxVisit {
			return "", nil, nil, Errorf(KindDurationExceeded, "booking exceeds the maximum duration of %s", e.maxVisit)
		}
		return "", req.StartTime, req.EndTime, nil

	case model.CategoryWhitelist:
		kind, err := model.ParseWhitelistKind(string(req.WhitelistKind))
		if err != nil {
			return "", nil, nil, Errorf(KindInvalidArgument, "%v", err)
		}
		if kind.Bounded() {
			if req.StartTime == nil || req.EndTime == nil {
				return "", nil, nil, Errorf(KindInvalidInterval, "%s whitelist permits require a start and end time", kind)
			}
			if !req.StartTime.Before(*req.EndTime) {
				return "", nil, nil, Errorf(KindInvalidInterval, "start time must be before end time")
			}
			return kind, req.StartTime, req.EndTime, nil
		}
		if req.EndTime != nil {
			return "", nil, nil, Errorf(KindInvalidArgument, "%s whitelist permits are unbounded and carry no end time", kind)
		}
		start := req.StartTime
		if start == nil {
			now := e.now()
			start = &now
		}
		return kind, start, nil, nil

	case model.CategoryBlacklist:
		if req.WhitelistKind != "" {
			return "", nil, nil, Errorf(KindInvalidArgument, "whitelist kind is not valid for blacklist entries")
		}
		if req.StartTime != nil || req.EndTime != nil {
			return "", nil, nil, Errorf(KindInvalidArgument, "blacklist entries carry no interval")
		}
		return "", nil, nil, nil
	}
	return "", nil, nil, Errorf(KindInvalidArgument, "unknown category %q", category)
}

// checkConflict rejects an admission whose registration is already active in
// an overlapping window of the same category. Blacklist entries have no
// window; for them a duplicate active entry on the same sub car park is the
// conflict.
func (e *Engine) checkConflict(tx *gorm.DB, category model.Category, subCarParkID int64, registration string, start, end *time.Time) error {
	q := tx.Model(&model.OccupancyRecord{}).
		Where("category = ? AND status = ? AND LOWER(registration) = LOWER(?)", category, model.StatusActive, registration)

	if category == model.CategoryBlacklist {
		var count int64
		if err := q.Where("sub_car_park_id = ?", subCarParkID).Count(&count).Error; err != nil {
			return fmt.Errorf("blacklist duplicate check failed: %w", err)
		}
		if count > 0 {
			return Errorf(KindTimeConflict, "registration %s is already blacklisted on sub car park %d", registration, subCarParkID)
		}
		return nil
	}

	// The candidate set per registration is tiny; overlap arithmetic with
	// nullable bounds is done here rather than in dialect-specific SQL.
	var candidates []model.OccupancyRecord
	if err := q.Find(&candidates).Error; err != nil {
		return fmt.Errorf("conflict check failed: %w", err)
	}
	for i := range candidates {
		if candidates[i].Overlaps(start, end) {
			return Errorf(KindTimeConflict, "registration %s already has an active %s record overlapping the requested window", registration, category)
		}
	}
	return nil
}

// checkCapacity counts active visitor records on the sub car park whose
// window overlaps the requested one. Windows are half-open, so a booking
// ending exactly when another starts frees its space. Runs under the
// facility lock inside the admission transaction.
func checkCapacity(tx *gorm.DB, sub *model.SubCarPark, start, end *time.Time) error {
	var occupied int64
	err := tx.Model(&model.OccupancyRecord{}).
		Where("sub_car_park_id = ? AND category = ? AND status = ?", sub.ID, model.CategoryVisitor, model.StatusActive).
		Where("start_time < ? AND end_time > ?", *end, *start).
		Count(&occupied).Error
	if err != nil {
		return fmt.Errorf("capacity check failed: %w", err)
	}
	if occupied >= int64(sub.TotalSpaces) {
		return Errorf(KindCapacityExceeded, "sub car park %q has no free space in the requested window", sub.Code)
	}
	return nil
}
