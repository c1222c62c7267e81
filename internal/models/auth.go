package models

import "time"

type User struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	CreatedAt    time.Time `json:"created_at"`
	Username     string    `gorm:"size:150;uniqueIndex" json:"username"`
	Email        string    `gorm:"size:254" json:"email"`
	PasswordHash string    `gorm:"size:128" json:"-"`
}

// AuthToken — opaque API token, one or more per user, deleted on logout.
type AuthToken struct {
	ID        uint      `gorm:"primaryKey" json:"-"`
	CreatedAt time.Time `json:"-"`
	Key       string    `gorm:"size:64;uniqueIndex" json:"token"`
	UserID    uint      `gorm:"index" json:"-"`
}
