package models

import "time"

// LoginAttempt is one entry of the authentication audit trail. Passwords are never stored.
type LoginAttempt struct {
	ID        uint64    `gorm:"primaryKey" json:"id"`
	Username  string    `gorm:"size:255;index" json:"username"`
	Outcome   string    `gorm:"size:32;index" json:"outcome"`
	Groups    int       `json:"groups"` // number of resolved groups, successful attempts only
	RemoteIP  string    `gorm:"size:64" json:"remoteIp"`
	CreatedAt time.Time `gorm:"index" json:"createdAt"`
}
