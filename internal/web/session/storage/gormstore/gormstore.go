// Package gormstore is a session storage on top of any gorm database.
package gormstore

import (
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/GoDirAuth/GoDirAuth/internal/db/models"
)

// Storage stores sessions in a gorm table.
type Storage struct {
	db    *gorm.DB
	table string
	now   func() time.Time
}

// New creates a storage using table, or the default table of models.Session if empty.
// The table must exist; it is migrated by db.Open.
func New(db *gorm.DB, table string) *Storage {
	return &Storage{db: db, table: table, now: time.Now}
}

func (s *Storage) query() *gorm.DB {
	if s.table != "" {
		return s.db.Table(s.table)
	}

	return s.db.Model(&models.Session{})
}

// Get returns the value of key, or nil if it does not exist or expired.
func (s *Storage) Get(key string) ([]byte, error) {
	if key == "" {
		return nil, nil
	}

	var row models.Session

	err := s.query().Where("id = ?", key).Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}

	if err != nil {
		return nil, err
	}

	if row.Expiration != 0 && row.Expiration <= s.now().Unix() {
		return nil, nil
	}

	return row.Data, nil
}

// Set stores val under key. exp 0 means no expiration.
func (s *Storage) Set(key string, val []byte, exp time.Duration) error {
	if key == "" || len(val) == 0 {
		return nil
	}

	row := models.Session{ID: key, Data: val}
	if exp > 0 {
		row.Expiration = s.now().Add(exp).Unix()
	}

	return s.query().Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{"data", "expiration"}),
	}).Create(&row).Error
}

// Delete removes key.
func (s *Storage) Delete(key string) error {
	if key == "" {
		return nil
	}

	return s.query().Where("id = ?", key).Delete(&models.Session{}).Error
}

// Reset removes all sessions.
func (s *Storage) Reset() error {
	return s.query().Where("1 = 1").Delete(&models.Session{}).Error
}

// GC removes the sessions expired at now and returns their number.
func (s *Storage) GC(now time.Time) (int64, error) {
	result := s.query().Where("expiration <> 0 AND expiration <= ?", now.Unix()).Delete(&models.Session{})

	return result.RowsAffected, result.Error
}

// Close is a no-op; the database is owned by the caller.
func (s *Storage) Close() error {
	return nil
}
