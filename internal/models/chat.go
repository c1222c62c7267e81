package models

import "time"

const (
	RoleUser = "user"
	RoleAI   = "ai"
)

// ChatMessage — one transcript entry. (created_at, id) is the sort key:
// id breaks ties between messages created within the same clock tick.
type ChatMessage struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	DeviceID  uint      `gorm:"not null;index" json:"device_id"`
	Role      string    `gorm:"size:10;not null" json:"role"`
	Content   string    `gorm:"type:text;not null" json:"content"`
	CreatedAt time.Time `json:"created_at"`
}
