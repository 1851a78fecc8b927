package db

import (
	"fmt"
	"log"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"carpark-backend/config"
	"carpark-backend/internal/model"
)

// Init initializes the database connection and runs migrations.
func Init(cfg *config.DatabaseConfig) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(cfg.DSN), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get sql.DB: %w", err)
	}

	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(time.Duration(cfg.ConnMaxLifetimeMinutes) * time.Minute)

	log.Println("Running database migrations...")
	if err := Migrate(db); err != nil {
		return nil, err
	}

	if cfg.ApplyPostgresDDL {
		log.Println("Applying Postgres-specific DDL...")
		if err := applyPostgresDDL(db); err != nil {
			return nil, err
		}
	}

	log.Println("Database initialization complete.")
	return db, nil
}

// Migrate runs the schema migrations for every entity. Split out from Init
// so tests can migrate an sqlite database with the same schema.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(
		&model.CarPark{},
		&model.SubCarPark{},
		&model.Tenancy{},
		&model.Staff{},
		&model.StaffAssignment{},
		&model.OccupancyRecord{},
		&model.PushSubscription{},
	); err != nil {
		return fmt.Errorf("automigrate failed: %w", err)
	}
	return nil
}

func applyPostgresDDL(db *gorm.DB) error {
	ddls := []string{
		// Conflict checks compare registrations case-insensitively; keep the
		// lookup indexed for the active set.
		"CREATE INDEX IF NOT EXISTS idx_occupancy_registration_lower " +
			"ON occupancy_records (category, LOWER(registration)) WHERE status = 'active';",

		// Capacity counting scans active records per sub car park and window.
		"CREATE INDEX IF NOT EXISTS idx_occupancy_window " +
			"ON occupancy_records (sub_car_park_id, status, start_time, end_time);",
	}

	for _, ddl := range ddls {
		if err := db.Exec(ddl).Error; err != nil {
			return fmt.Errorf("DDL failed on %q: %w", ddl, err)
		}
	}
	return nil
}
