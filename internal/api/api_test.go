package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync/atomic"
	"testing"
	"time"

	"github.com/SherClockHolmes/webpush-go"
	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"carpark-backend/config"
	"carpark-backend/internal/booking"
	"carpark-backend/internal/db"
	"carpark-backend/internal/model"
	"carpark-backend/internal/store"
)

const testJWTSecret = "api-test-secret"

var testDBSeq int64

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:apitest%d?mode=memory&cache=shared&_busy_timeout=5000", atomic.AddInt64(&testDBSeq, 1))
	gormDB, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)

	sqlDB, err := gormDB.DB()
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })

	require.NoError(t, db.Migrate(gormDB))
	return gormDB
}

// setupAPI wires the full router against a fresh database, with a rate limit
// high enough to never trip during tests.
func setupAPI(t *testing.T) (*gin.Engine, *gorm.DB) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	gormDB := newTestDB(t)
	cfg := &config.Config{}
	cfg.Auth.JWTSecret = testJWTSecret
	cfg.Server.RateLimitPerSec = 1000
	cfg.Server.RateLimitBurst = 1000
	cfg.Server.CacheTTLSeconds = 60

	h := NewHandler(
		store.NewGormStore(gormDB),
		booking.NewResolver(gormDB),
		booking.NewEngine(gormDB, 24*time.Hour, nil),
		booking.NewQuery(gormDB, 20, 200),
		booking.NewLifecycle(gormDB, nil),
		&webpush.Options{VAPIDPublicKey: "test-public-key"},
	)
	return NewRouter(h, cfg), gormDB
}

func staffToken(t *testing.T, staffID int64, role string) string {
	t.Helper()

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":  strconv.FormatInt(staffID, 10),
		"role": role,
		"exp":  time.Now().Add(time.Hour).Unix(),
	})
	signed, err := token.SignedString([]byte(testJWTSecret))
	require.NoError(t, err)
	return signed
}

// doJSON performs a request against the router, marshalling body when given
// and attaching the bearer token when non-empty.
func doJSON(t *testing.T, router *gin.Engine, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(payload)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequest(method, path, reader)
	require.NoError(t, err)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

// errorCode extracts the machine-readable code from an error envelope.
func errorCode(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()

	var envelope struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope), "body: %s", w.Body.String())
	return envelope.Error.Code
}

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
