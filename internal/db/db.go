// Package db opens the database holding users, the audit trail and database sessions.
package db

import (
	"errors"
	"fmt"

	"github.com/glebarez/sqlite"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/GoDirAuth/GoDirAuth/internal/config"
	"github.com/GoDirAuth/GoDirAuth/internal/db/dsn"
	"github.com/GoDirAuth/GoDirAuth/internal/db/models"
)

// Supported gorm engines.
const (
	EngineSQLite   = "sqlite"
	EngineMySQL    = "mysql"
	EnginePostgres = "postgres"
)

// ErrUnsupportedEngine is returned for an unknown gorm engine.
var ErrUnsupportedEngine = errors.New("unsupported database engine")

// Dialector returns the gorm dialector of cfg. sqlite is used when no engine is set.
func Dialector(cfg config.DB) (gorm.Dialector, error) {
	switch cfg.GormEngine {
	case "", EngineSQLite:
		name := cfg.Name
		if name == "" {
			name = ":memory:"
		}

		return sqlite.Open(name), nil
	case EngineMySQL:
		return mysql.Open(dsn.MySQL(cfg)), nil
	case EnginePostgres:
		return postgres.Open(dsn.Postgres(cfg)), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedEngine, cfg.GormEngine)
	}
}

// Open connects to the database and migrates all models.
func Open(cfg config.DB) (*gorm.DB, error) {
	dialector, err := Dialector(cfg)
	if err != nil {
		return nil, err
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect database: %w", err)
	}

	if dialector.Name() == EngineSQLite {
		// sqlite allows a single writer, and every connection to ":memory:" is a new database
		sqlDB, errDB := db.DB()
		if errDB != nil {
			return nil, fmt.Errorf("failed to get sql database: %w", errDB)
		}

		sqlDB.SetMaxOpenConns(1)
	}

	if err = db.AutoMigrate(models.All()...); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return db, nil
}
