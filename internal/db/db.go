package db

import (
	"context"
	"log/slog"
	"time"

	"github.com/cockroachdb/errors"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"asset-reservation-backend/config"
	"asset-reservation-backend/internal/model"
)

// Open connects to the configured database and sizes the connection pool.
func Open(cfg *config.DatabaseConfig, log *slog.Logger) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch cfg.Driver {
	case "postgres":
		dialector = postgres.Open(cfg.DSN)
	case "sqlite":
		dialector = sqlite.Open(cfg.DSN)
	default:
		return nil, errors.Newf("unsupported database driver %q", cfg.Driver)
	}

	level := logger.Warn
	if log.Enabled(context.Background(), slog.LevelDebug) {
		level = logger.Info
	}
	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: logger.Default.LogMode(level),
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to connect to database")
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, errors.Wrap(err, "failed to get sql.DB")
	}

	maxOpen := cfg.MaxOpenConns
	if cfg.Driver == "sqlite" {
		// sqlite serialises writers; a single connection also keeps
		// in-memory databases alive across queries.
		maxOpen = 1
	}
	sqlDB.SetMaxOpenConns(maxOpen)
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(time.Duration(cfg.ConnMaxLifetimeMinutes) * time.Minute)

	return db, nil
}

// Migrate creates or updates the schema.
func Migrate(db *gorm.DB, cfg *config.DatabaseConfig, log *slog.Logger) error {
	log.Info("running database migrations")
	if err := db.AutoMigrate(
		&model.Asset{},
		&model.Reservation{},
		&model.ReservationEvent{},
		&model.Sequence{},
	); err != nil {
		return errors.Wrap(err, "automigrate failed")
	}

	if cfg.EnableGistIndex {
		if cfg.Driver != "postgres" {
			log.Warn("enable_gist_index only applies to postgres, skipping", "driver", cfg.Driver)
		} else {
			log.Info("applying postgres range index DDL")
			if err := applyGistDDL(db); err != nil {
				log.Warn("failed to apply range index DDL, continuing without it", "error", err)
			}
		}
	}

	log.Info("database migration complete")
	return nil
}

// Init opens the database and migrates it.
func Init(cfg *config.DatabaseConfig, log *slog.Logger) (*gorm.DB, error) {
	db, err := Open(cfg, log)
	if err != nil {
		return nil, err
	}
	if err := Migrate(db, cfg, log); err != nil {
		return nil, err
	}
	return db, nil
}

func applyGistDDL(db *gorm.DB) error {
	ddls := []string{
		"CREATE EXTENSION IF NOT EXISTS btree_gist;",

		"ALTER TABLE reservations DROP CONSTRAINT IF EXISTS reservations_window_valid;",
		"ALTER TABLE reservations " +
			"ADD CONSTRAINT reservations_window_valid CHECK (start_ns < end_ns);",

		// Half-open windows per asset, for overlap lookups with &&.
		"CREATE INDEX IF NOT EXISTS idx_reservations_asset_range ON reservations " +
			"USING GIST (asset_id, int8range(start_ns, end_ns, '[)')) " +
			"WHERE cancelled_at_ns IS NULL;",

		"CREATE INDEX IF NOT EXISTS idx_reservation_events_reservation_at " +
			"ON reservation_events (reservation_id, at_ns);",
	}

	for _, ddl := range ddls {
		if err := db.Exec(ddl).Error; err != nil {
			return errors.Wrapf(err, "DDL failed on %q", ddl)
		}
	}
	return nil
}
