package booking

import (
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"carpark-backend/internal/db"
	"carpark-backend/internal/model"
)

var testDBSeq int64

// newTestDB opens a fresh in-memory SQLite database with the full schema.
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:bookingtest%d?mode=memory&cache=shared&_busy_timeout=5000", atomic.AddInt64(&testDBSeq, 1))
	gormDB, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)

	sqlDB, err := gormDB.DB()
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })

	require.NoError(t, db.Migrate(gormDB))
	return gormDB
}

// seedFacility creates a car park with one sub car park of the given
// capacity.
func seedFacility(t *testing.T, gormDB *gorm.DB, code string, totalSpaces int) model.SubCarPark {
	t.Helper()

	carPark := model.CarPark{Name: "Central " + code}
	require.NoError(t, gormDB.Create(&carPark).Error)

	sub := model.SubCarPark{
		CarParkID:   carPark.ID,
		Name:        "Level " + code,
		Code:        code,
		TotalSpaces: totalSpaces,
	}
	require.NoError(t, gormDB.Create(&sub).Error)
	return sub
}

func seedStaff(t *testing.T, gormDB *gorm.DB, role string) model.Staff {
	t.Helper()

	staff := model.Staff{
		Name:  "Test " + role,
		Email: fmt.Sprintf("%s%d@example.com", role, atomic.AddInt64(&testDBSeq, 1)),
		Role:  role,
	}
	require.NoError(t, gormDB.Create(&staff).Error)
	return staff
}

func assign(t *testing.T, gormDB *gorm.DB, staffID, subCarParkID int64, category model.Category) {
	t.Helper()

	require.NoError(t, gormDB.Create(&model.StaffAssignment{
		StaffID:      staffID,
		SubCarParkID: subCarParkID,
		Category:     category,
	}).Error)
}

func seedTenancy(t *testing.T, gormDB *gorm.DB, subCarParkID int64) model.Tenancy {
	t.Helper()

	tenancy := model.Tenancy{SubCarParkID: subCarParkID, Name: "Unit 4B", Email: "unit4b@example.com"}
	require.NoError(t, gormDB.Create(&tenancy).Error)
	return tenancy
}

// scopeFor builds a scope over an explicit facility set, bypassing the
// resolver, for tests exercising the engine and query directly.
func scopeFor(category model.Category, subCarParkIDs ...int64) Scope {
	allowed := make(map[int64]struct{}, len(subCarParkIDs))
	for _, id := range subCarParkIDs {
		allowed[id] = struct{}{}
	}
	return Scope{Category: category, allowed: allowed}
}

func timePtr(t time.Time) *time.Time {
	return &t
}
