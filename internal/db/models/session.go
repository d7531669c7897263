package models

// Session is a row of the database session storage.
type Session struct {
	ID         string `gorm:"primaryKey;size:64"`
	Data       []byte
	Expiration int64 `gorm:"index"` // unix seconds, 0 = never
}
