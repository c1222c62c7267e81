package chat

import (
	"pcbd/internal/devices"
	"pcbd/internal/models"

	"gorm.io/gorm"
)

// Repo owns the append-only transcript of each device. Messages are never
// updated; they disappear only when their device is cascade-deleted.
type Repo struct{ db *gorm.DB }

func NewRepo(db *gorm.DB) *Repo { return &Repo{db: db} }

// Append persists one message. The owning device must exist at write time.
func (r *Repo) Append(deviceID uint, role, content string) (*models.ChatMessage, error) {
	var n int64
	if err := r.db.Model(&models.Device{}).Where("id = ?", deviceID).Count(&n).Error; err != nil {
		return nil, err
	}
	if n == 0 {
		return nil, devices.ErrDeviceNotFound
	}

	m := models.ChatMessage{DeviceID: deviceID, Role: role, Content: content}
	if err := r.db.Create(&m).Error; err != nil {
		return nil, err
	}
	return &m, nil
}

// History returns the full transcript ordered by (created_at, id).
// The id tie-break keeps the order deterministic when two messages land
// within the same clock tick.
func (r *Repo) History(deviceID uint) ([]models.ChatMessage, error) {
	out := []models.ChatMessage{}
	err := r.db.
		Where("device_id = ?", deviceID).
		Order("created_at ASC, id ASC").
		Find(&out).Error
	return out, err
}
