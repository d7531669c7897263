// Package audit stores the authentication audit trail.
package audit

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/GoDirAuth/GoDirAuth/internal/db/models"
)

const defaultRecentLimit = 50

var (
	// ErrDBNil is returned when the database connection is nil.
	ErrDBNil = errors.New("database connection is nil")
	// ErrUsernameEmpty is returned when an attempt without username is recorded.
	ErrUsernameEmpty = errors.New("username cannot be empty")
)

// Record stores one login attempt.
func Record(db *gorm.DB, attempt *models.LoginAttempt) error {
	if db == nil {
		return ErrDBNil
	}

	if attempt.Username == "" {
		return ErrUsernameEmpty
	}

	return db.Create(attempt).Error
}

// Recent returns the latest attempts, newest first. A limit <= 0 uses the default of 50.
func Recent(db *gorm.DB, limit int) ([]models.LoginAttempt, error) {
	if db == nil {
		return nil, ErrDBNil
	}

	if limit <= 0 {
		limit = defaultRecentLimit
	}

	var attempts []models.LoginAttempt
	result := db.Order("created_at desc").Order("id desc").Limit(limit).Find(&attempts)
	if result.Error != nil {
		return nil, result.Error
	}

	return attempts, nil
}

// RecentByUser returns the latest attempts of one user, newest first.
func RecentByUser(db *gorm.DB, username string, limit int) ([]models.LoginAttempt, error) {
	if db == nil {
		return nil, ErrDBNil
	}

	if limit <= 0 {
		limit = defaultRecentLimit
	}

	var attempts []models.LoginAttempt
	result := db.Where("username = ?", username).Order("created_at desc").Order("id desc").Limit(limit).Find(&attempts)
	if result.Error != nil {
		return nil, result.Error
	}

	return attempts, nil
}

// Recorder adapts Record to the login handlers.
type Recorder struct {
	DB *gorm.DB
}

// Record implements the auditor of the login middleware.
func (r Recorder) Record(ctx context.Context, username, outcome string, groups int, remoteIP string) error {
	db := r.DB
	if db != nil {
		db = db.WithContext(ctx)
	}

	return Record(db, &models.LoginAttempt{
		Username: username,
		Outcome:  outcome,
		Groups:   groups,
		RemoteIP: remoteIP,
	})
}
