package models

import (
	"time"

	"gorm.io/datatypes"
)

// Device — one analyzed PCB plus its stored image reference.
// No soft delete: device deletion must actually free the unique image_key.
type Device struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time `json:"created_at"`

	Name     string `gorm:"index" json:"name"`
	ImageKey string `gorm:"column:image_key;uniqueIndex" json:"image_filename"`

	// AI analysis fields
	Complexity       string                      `gorm:"size:50" json:"complexity"`
	Components       datatypes.JSONSlice[string] `json:"components"`
	OperatingVoltage string                      `gorm:"size:100" json:"operating_voltage"`
	Description      string                      `gorm:"type:text" json:"description"`

	// Optional ownership scoping; nil when auth is disabled.
	OwnerID *uint `gorm:"index" json:"-"`

	ChatMessages []ChatMessage `gorm:"constraint:OnDelete:CASCADE" json:"chat_messages,omitempty"`
}
