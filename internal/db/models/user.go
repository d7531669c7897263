// Package models contains database model definitions.
package models

import (
	"time"
)

// User is a directory account that logged in at least once.
// The row is refreshed on every successful login; the directory stays the source of truth.
type User struct {
	// ID is the unique identifier for the user, exposed as userId.
	ID uint64 `gorm:"primaryKey" json:"userId"`
	// Username is the normalized account name without domain prefix.
	Username string `gorm:"unique;size:255;not null" json:"username"`
	// Groups is the group membership resolved at the last login.
	Groups []string `gorm:"serializer:json" json:"groups"`
	// LastLoginAt is the time of the last successful login.
	LastLoginAt time.Time `json:"lastLoginAt"`
	// LoginCount counts the successful logins.
	LoginCount uint64 `json:"loginCount"`
	// CreatedAt is the timestamp when the user was created (managed by GORM).
	CreatedAt time.Time `json:"createdAt"`
	// UpdatedAt is the timestamp when the user was last updated (managed by GORM).
	UpdatedAt time.Time `json:"updatedAt"`
}
