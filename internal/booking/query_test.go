package booking

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"carpark-backend/internal/model"
)

func seedRecord(t *testing.T, gormDB *gorm.DB, sub model.SubCarPark, registration, email string, start time.Time) model.OccupancyRecord {
	t.Helper()

	record := model.OccupancyRecord{
		Category:     model.CategoryVisitor,
		Registration: registration,
		Email:        email,
		SubCarParkID: sub.ID,
		CarParkCode:  sub.Code,
		StartTime:    timePtr(start),
		EndTime:      timePtr(start.Add(2 * time.Hour)),
		Status:       model.StatusActive,
	}
	require.NoError(t, gormDB.Create(&record).Error)
	return record
}

func TestListScopeFencing(t *testing.T) {
	gormDB := newTestDB(t)
	subA := seedFacility(t, gormDB, "Q1-A", 10)
	subB := seedFacility(t, gormDB, "Q1-B", 10)
	seedRecord(t, gormDB, subA, "AAA111", "a@example.com", t0)
	seedRecord(t, gormDB, subB, "BBB222", "b@example.com", t0)

	query := NewQuery(gormDB, 20, 200)
	ctx := context.Background()

	t.Run("records outside the scope never appear", func(t *testing.T) {
		result, err := query.List(ctx, scopeFor(model.CategoryVisitor, subA.ID), ListRequest{})
		require.NoError(t, err)
		require.Len(t, result.Rows, 1)
		assert.Equal(t, "AAA111", result.Rows[0].Registration)
		assert.Equal(t, subA.Name, result.Rows[0].SubCarPark.Name)
	})

	t.Run("explicit facility filter outside the scope is Forbidden", func(t *testing.T) {
		_, err := query.List(ctx, scopeFor(model.CategoryVisitor, subA.ID), ListRequest{SubCarParkID: &subB.ID})
		assert.True(t, IsKind(err, KindForbidden), "got %v", err)
	})

	t.Run("empty scope returns an empty page", func(t *testing.T) {
		result, err := query.List(ctx, scopeFor(model.CategoryVisitor), ListRequest{})
		require.NoError(t, err)
		assert.Empty(t, result.Rows)
		assert.Zero(t, result.Pagination.TotalItems)
		assert.Equal(t, 1, result.Pagination.Page)
	})

	t.Run("category fences the listing", func(t *testing.T) {
		result, err := query.List(ctx, scopeFor(model.CategoryWhitelist, subA.ID, subB.ID), ListRequest{})
		require.NoError(t, err)
		assert.Empty(t, result.Rows)
	})
}

func TestListSearchAndFilters(t *testing.T) {
	gormDB := newTestDB(t)
	sub := seedFacility(t, gormDB, "Q2-A", 10)
	seedRecord(t, gormDB, sub, "XYZ789", "alice@example.com", t0)
	seedRecord(t, gormDB, sub, "ABC123", "bob@example.com", t0.Add(24*time.Hour))
	checked := seedRecord(t, gormDB, sub, "DEF456", "carol@example.com", t0.Add(48*time.Hour))
	require.NoError(t, gormDB.Model(&model.OccupancyRecord{}).
		Where("id = ?", checked.ID).Update("status", model.StatusCheckout).Error)

	query := NewQuery(gormDB, 20, 200)
	scope := scopeFor(model.CategoryVisitor, sub.ID)
	ctx := context.Background()

	t.Run("search matches registration case-insensitively", func(t *testing.T) {
		result, err := query.List(ctx, scope, ListRequest{Search: "xyz"})
		require.NoError(t, err)
		require.Len(t, result.Rows, 1)
		assert.Equal(t, "XYZ789", result.Rows[0].Registration)
	})

	t.Run("search matches email substrings", func(t *testing.T) {
		result, err := query.List(ctx, scope, ListRequest{Search: "BOB@"})
		require.NoError(t, err)
		require.Len(t, result.Rows, 1)
		assert.Equal(t, "ABC123", result.Rows[0].Registration)
	})

	t.Run("status filter", func(t *testing.T) {
		result, err := query.List(ctx, scope, ListRequest{Status: model.StatusCheckout})
		require.NoError(t, err)
		require.Len(t, result.Rows, 1)
		assert.Equal(t, "DEF456", result.Rows[0].Registration)
	})

	t.Run("unknown status is rejected", func(t *testing.T) {
		_, err := query.List(ctx, scope, ListRequest{Status: "parked"})
		assert.True(t, IsKind(err, KindInvalidArgument), "got %v", err)
	})

	t.Run("date range on interval start", func(t *testing.T) {
		result, err := query.List(ctx, scope, ListRequest{
			DateField: "start",
			DateFrom:  timePtr(t0.Add(12 * time.Hour)),
			DateTo:    timePtr(t0.Add(36 * time.Hour)),
		})
		require.NoError(t, err)
		require.Len(t, result.Rows, 1)
		assert.Equal(t, "ABC123", result.Rows[0].Registration)
	})

	t.Run("sort by registration ascending", func(t *testing.T) {
		result, err := query.List(ctx, scope, ListRequest{SortField: "registration", SortOrder: "asc"})
		require.NoError(t, err)
		require.Len(t, result.Rows, 3)
		assert.Equal(t, "ABC123", result.Rows[0].Registration)
		assert.Equal(t, "XYZ789", result.Rows[2].Registration)
	})

	t.Run("unknown sort field is rejected", func(t *testing.T) {
		_, err := query.List(ctx, scope, ListRequest{SortField: "colour"})
		assert.True(t, IsKind(err, KindInvalidArgument), "got %v", err)
	})
}

func TestListPagination(t *testing.T) {
	gormDB := newTestDB(t)
	sub := seedFacility(t, gormDB, "Q3-A", 10)
	registrations := []string{"CAR001", "CAR002", "CAR003", "CAR004", "CAR005"}
	for i, registration := range registrations {
		seedRecord(t, gormDB, sub, registration, "driver@example.com", t0.Add(time.Duration(i)*48*time.Hour))
	}

	query := NewQuery(gormDB, 20, 200)
	scope := scopeFor(model.CategoryVisitor, sub.ID)
	ctx := context.Background()

	result, err := query.List(ctx, scope, ListRequest{
		SortField: "registration", SortOrder: "asc",
		PageNo: 2, PageSize: 2,
	})
	require.NoError(t, err)
	require.Len(t, result.Rows, 2)
	assert.Equal(t, "CAR003", result.Rows[0].Registration)
	assert.Equal(t, "CAR004", result.Rows[1].Registration)
	assert.Equal(t, Pagination{Page: 2, Size: 2, TotalItems: 5, TotalPages: 3}, result.Pagination)

	// Page size is clamped to the configured maximum.
	clamped := NewQuery(gormDB, 20, 3)
	result, err = clamped.List(ctx, scope, ListRequest{PageSize: 100})
	require.NoError(t, err)
	assert.Len(t, result.Rows, 3)
	assert.Equal(t, 3, result.Pagination.Size)
}

func TestGetScoped(t *testing.T) {
	gormDB := newTestDB(t)
	subA := seedFacility(t, gormDB, "Q4-A", 10)
	subB := seedFacility(t, gormDB, "Q4-B", 10)
	record := seedRecord(t, gormDB, subA, "AAA111", "a@example.com", t0)

	query := NewQuery(gormDB, 20, 200)
	ctx := context.Background()

	got, err := query.Get(ctx, scopeFor(model.CategoryVisitor, subA.ID), record.ID)
	require.NoError(t, err)
	assert.Equal(t, record.ID, got.ID)

	_, err = query.Get(ctx, scopeFor(model.CategoryVisitor, subB.ID), record.ID)
	assert.True(t, IsKind(err, KindForbidden), "got %v", err)

	// A record of another category is indistinguishable from an absent one.
	_, err = query.Get(ctx, scopeFor(model.CategoryWhitelist, subA.ID), record.ID)
	assert.True(t, IsKind(err, KindNotFound), "got %v", err)

	_, err = query.Get(ctx, scopeFor(model.CategoryVisitor, subA.ID), 99999)
	assert.True(t, IsKind(err, KindNotFound), "got %v", err)
}
