package repository

import (
	"fmt"

	"github.com/quocanhngo/airguard/internal/config"
	"github.com/quocanhngo/airguard/internal/model"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Open connects to the configured store. SQLite is a single-file local store
// limited to one connection.
func Open(cfg config.DBConfig, env string) (*gorm.DB, error) {
	gormLogger := logger.Default.LogMode(logger.Info)
	if env == "production" {
		gormLogger = logger.Default.LogMode(logger.Warn)
	}

	var dialector gorm.Dialector
	switch cfg.Driver {
	case "postgres", "":
		dialector = postgres.Open(cfg.DSN())
	case "sqlite":
		dialector = sqlite.Open(cfg.Path)
	default:
		return nil, fmt.Errorf("unsupported DB_DRIVER %q", cfg.Driver)
	}

	db, err := gorm.Open(dialector, &gorm.Config{Logger: gormLogger, TranslateError: true})
	if err != nil {
		return nil, err
	}

	if cfg.Driver == "sqlite" {
		sqlDB, err := db.DB()
		if err != nil {
			return nil, err
		}
		sqlDB.SetMaxOpenConns(1)
	}
	return db, nil
}

// AutoMigrate creates the schema with gorm. Used for sqlite and as the
// fallback when SQL migrations cannot run.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(&model.Device{}, &model.Measurement{})
}
