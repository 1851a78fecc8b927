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

// ListRequest carries the caller-supplied filters for a scoped listing.
type ListRequest struct {
	Search       string
	DateFrom     *time.Time
	DateTo       *time.Time
	DateField    string // "created" (default) or "start"
	Status       model.RecordStatus
	SubCarParkID *int64
	SortField    string
	SortOrder    string
	PageNo       int
	PageSize     int
}

// Pagination describes the page window of a listing result.
type Pagination struct {
	Page       int   `json:"page"`
	Size       int   `json:"size"`
	TotalItems int64 `json:"totalItems"`
	TotalPages int   `json:"totalPages"`
}

// PagedResult is one page of occupancy records plus pagination totals.
type PagedResult struct {
	Rows       []model.OccupancyRecord
	Pagination Pagination
}

// sortColumns whitelists the sortable fields onto their columns.
var sortColumns = map[string]string{
	"id":           "id",
	"registration": "registration",
	"email":        "email",
	"startTime":    "start_time",
	"endTime":      "end_time",
	"createdAt":    "created_at",
	"status":       "status",
}

// Query lists and fetches occupancy records, always fenced by the caller's
// scope before any filter, sort or pagination logic runs.
type Query struct {
	db              *gorm.DB
	defaultPageSize int
	maxPageSize     int
}

// NewQuery creates a scoped query service.
func NewQuery(db *gorm.DB, defaultPageSize, maxPageSize int) *Query {
	return &Query{db: db, defaultPageSize: defaultPageSize, maxPageSize: maxPageSize}
}

// List returns one page of records visible to the scope. A caller-supplied
// facility filter outside the scope is Forbidden rather than silently
// dropped; an empty scope returns an empty page without touching storage.
func (q *Query) List(ctx context.Context, scope Scope, req ListRequest) (*PagedResult, error) {
	page, size := q.pageWindow(req)

	if req.SubCarParkID != nil && !scope.Allows(*req.SubCarParkID) {
		return nil, Errorf(KindForbidden, "sub car park %d is not assigned to the caller for category %s", *req.SubCarParkID, scope.Category)
	}
	if scope.Empty() {
		return &PagedResult{
			Rows:       []model.OccupancyRecord{},
			Pagination: Pagination{Page: page, Size: size},
		}, nil
	}

	order, err := orderClause(req.SortField, req.SortOrder)
	if err != nil {
		return nil, err
	}

	tx := q.db.WithContext(ctx).
		Model(&model.OccupancyRecord{}).
		Where("category = ?", scope.Category)

	if req.SubCarParkID != nil {
		tx = tx.Where("sub_car_park_id = ?", *req.SubCarParkID)
	} else if ids := scope.AllowedIDs(); ids != nil {
		tx = tx.Where("sub_car_park_id IN ?", ids)
	}

	if search := strings.TrimSpace(req.Search); search != "" {
		pattern := "%" + strings.ToLower(search) + "%"
		tx = tx.Where("LOWER(registration) LIKE ? OR LOWER(email) LIKE ?", pattern, pattern)
	}

	switch req.Status {
	case "":
	case model.StatusActive, model.StatusCheckout:
		tx = tx.Where("status = ?", req.Status)
	default:
		return nil, Errorf(KindInvalidArgument, "unknown status %q", req.Status)
	}

	dateColumn := "created_at"
	switch req.DateField {
	case "", "created":
	case "start":
		dateColumn = "start_time"
	default:
		return nil, Errorf(KindInvalidArgument, "unknown date field %q", req.DateField)
	}
	if req.DateFrom != nil {
		tx = tx.Where(dateColumn+" >= ?", *req.DateFrom)
	}
	if req.DateTo != nil {
		tx = tx.Where(dateColumn+" <= ?", *req.DateTo)
	}

	var total int64
	if err := tx.Count(&total).Error; err != nil {
		return nil, fmt.Errorf("failed to count occupancy records: %w", err)
	}

	var rows []model.OccupancyRecord
	err = tx.Preload("SubCarPark").Preload("Tenancy").
		Order(order).
		Offset((page - 1) * size).
		Limit(size).
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list occupancy records: %w", err)
	}

	totalPages := int((total + int64(size) - 1) / int64(size))
	return &PagedResult{
		Rows: rows,
		Pagination: Pagination{
			Page:       page,
			Size:       size,
			TotalItems: total,
			TotalPages: totalPages,
		},
	}, nil
}

// Get fetches one record by ID, enforcing the same scope as List. A record
// of another category reports NotFound so IDs cannot be probed across
// categories; an unassigned facility reports Forbidden.
func (q *Query) Get(ctx context.Context, scope Scope, recordID int64) (*model.OccupancyRecord, error) {
	var record model.OccupancyRecord
	err := q.db.WithContext(ctx).
		Preload("SubCarPark").Preload("Tenancy").
		First(&record, recordID).Error
	if err != nil {
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

func (q *Query) pageWindow(req ListRequest) (page, size int) {
	page = req.PageNo
	if page <= 0 {
		page = 1
	}
	size = req.PageSize
	if size <= 0 {
		size = q.defaultPageSize
	}
	if size > q.maxPageSize {
		size = q.maxPageSize
	}
	return page, size
}

func orderClause(field, direction string) (string, error) {
	if field == "" {
		field = "createdAt"
	}
	column, ok := sortColumns[field]
	if !ok {
		return "", Errorf(KindInvalidArgument, "unknown sort field %q", field)
	}

	switch strings.ToLower(direction) {
	case "", "desc":
		return column + " DESC", nil
	case "asc":
		return column + " ASC", nil
	}
	return "", Errorf(KindInvalidArgument, "sort order must be asc or desc, got %q", direction)
}
