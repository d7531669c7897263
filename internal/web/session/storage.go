package session

import (
	"errors"
	"fmt"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/gofiber/storage/mysql/v2"
	"github.com/gofiber/storage/postgres/v3"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/GoDirAuth/GoDirAuth/internal/config"
	"github.com/GoDirAuth/GoDirAuth/internal/db/dsn"
	"github.com/GoDirAuth/GoDirAuth/internal/db/models"
	"github.com/GoDirAuth/GoDirAuth/internal/web/session/storage/gormstore"
	"github.com/GoDirAuth/GoDirAuth/internal/web/session/storage/redisstore"
)

// Storage drivers.
const (
	DriverMemory   = "memory"
	DriverDatabase = "database"
	DriverRedis    = "redis"
	DriverMySQL    = "mysql"
	DriverPostgres = "postgres"
)

var (
	// ErrUnknownDriver is returned for an unsupported storage driver.
	ErrUnknownDriver = errors.New("unknown session storage driver")
	// ErrDatabaseMissing is returned for the database driver without database.
	ErrDatabaseMissing = errors.New("session driver database needs a database connection")
)

// Collector is implemented by storages that need expired sessions to be removed explicitly.
type Collector interface {
	GC(now time.Time) (int64, error)
}

// NewStorage creates the storage selected by cfg.Driver. db is only used by the database driver.
func NewStorage(cfg config.Session, db *gorm.DB) (Storage, error) {
	switch cfg.Driver {
	case "", DriverMemory:
		storage, err := newMemoryStorage()
		if err != nil {
			return nil, err
		}

		return storage, nil
	case DriverDatabase:
		if db == nil {
			return nil, ErrDatabaseMissing
		}

		table := cfg.Table
		if table != "" && !db.Migrator().HasTable(table) {
			if err := db.Table(table).AutoMigrate(&models.Session{}); err != nil {
				return nil, fmt.Errorf("failed to migrate session table: %w", err)
			}
		}

		return gormstore.New(db, table), nil
	case DriverRedis:
		storage, err := redisstore.New(redisstore.Config{
			Addr:      cfg.Redis.Addr,
			Username:  cfg.Redis.Username,
			Password:  cfg.Redis.Password,
			DB:        cfg.Redis.DB,
			KeyPrefix: cfg.Redis.KeyPrefix,
		})
		if err != nil {
			return nil, err
		}

		return storage, nil
	case DriverMySQL:
		return mysql.New(mysql.Config{
			ConnectionURI: dsn.MySQL(cfg.DB),
			Table:         cfg.Table,
			GCInterval:    cfg.GCInterval,
		}), nil
	case DriverPostgres:
		return postgres.New(postgres.Config{
			ConnectionURI: dsn.Postgres(cfg.DB),
			Table:         cfg.Table,
			GCInterval:    cfg.GCInterval,
		}), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownDriver, cfg.Driver)
	}
}

// memoryStorage is a gormstore on a private in-memory sqlite database.
type memoryStorage struct {
	*gormstore.Storage
	db *gorm.DB
}

func newMemoryStorage() (*memoryStorage, error) {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open memory session database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to open memory session database: %w", err)
	}

	// every connection to ":memory:" is a database of its own
	sqlDB.SetMaxOpenConns(1)

	if err = db.AutoMigrate(&models.Session{}); err != nil {
		return nil, fmt.Errorf("failed to migrate memory session database: %w", err)
	}

	return &memoryStorage{Storage: gormstore.New(db, ""), db: db}, nil
}

// Close closes the private database.
func (m *memoryStorage) Close() error {
	sqlDB, err := m.db.DB()
	if err != nil {
		return err
	}

	return sqlDB.Close()
}

// RunGC removes expired sessions every interval until stop is closed.
// Storages that expire sessions themselves are left alone.
func RunGC(storage Storage, interval time.Duration, stop <-chan struct{}) {
	collector, ok := storage.(Collector)
	if !ok || interval <= 0 {
		return
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case now := <-ticker.C:
			removed, err := collector.GC(now)
			if err != nil {
				log.Warn().Err(err).Msg("failed to remove expired sessions")
				continue
			}

			if removed > 0 {
				log.Debug().Int64("removed", removed).Msg("removed expired sessions")
			}
		}
	}
}
