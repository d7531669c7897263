// Package user records the directory accounts that logged in.
package user

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/GoDirAuth/GoDirAuth/internal/db/models"
)

const (
	usernameQueryPattern = "username = ?"
)

var (
	// ErrUserNotFound is returned when a user is not found.
	ErrUserNotFound = errors.New("user not found")
	// ErrUsernameEmpty is returned when a username is empty.
	ErrUsernameEmpty = errors.New("username cannot be empty")
	// ErrDBNil is returned when the database connection is nil.
	ErrDBNil = errors.New("database connection is nil")
)

// Get retrieves a user by its username.
func Get(db *gorm.DB, username string) (*models.User, error) {
	if db == nil {
		return nil, ErrDBNil
	}
	if username == "" {
		return nil, ErrUsernameEmpty
	}

	var user models.User
	result := db.Where(usernameQueryPattern, username).First(&user)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, result.Error
	}

	return &user, nil
}

// RecordLogin creates the user on its first login or refreshes its groups.
// Concurrent first logins of the same account resolve to a single row.
func RecordLogin(db *gorm.DB, username string, groups []string, at time.Time) (*models.User, error) {
	if db == nil {
		return nil, ErrDBNil
	}
	if username == "" {
		return nil, ErrUsernameEmpty
	}

	user := models.User{
		Username:    username,
		Groups:      groups,
		LastLoginAt: at,
		LoginCount:  1,
	}

	result := db.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "username"}},
		DoUpdates: append(
			clause.AssignmentColumns([]string{"groups", "last_login_at", "updated_at"}),
			clause.Assignment{Column: clause.Column{Name: "login_count"}, Value: gorm.Expr("login_count + 1")},
		),
	}).Create(&user)
	if result.Error != nil {
		return nil, result.Error
	}

	// the id of an updated row is not reported by every dialect
	return Get(db, username)
}

// Store adapts the package functions to the login handlers.
type Store struct {
	DB *gorm.DB
}

// RecordLogin implements the user store of the login middleware and returns the user id.
func (s Store) RecordLogin(ctx context.Context, username string, groups []string) (uint64, error) {
	db := s.DB
	if db != nil {
		db = db.WithContext(ctx)
	}

	user, err := RecordLogin(db, username, groups, time.Now())
	if err != nil {
		return 0, err
	}

	return user.ID, nil
}
