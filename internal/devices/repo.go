package devices

import (
	"errors"

	"pcbd/internal/models"

	"gorm.io/gorm"
)

var ErrDeviceNotFound = errors.New("device not found")

type Repo struct{ db *gorm.DB }

func NewRepo(db *gorm.DB) *Repo { return &Repo{db: db} }

// scoped narrows queries to one owner when ownership scoping is active.
func scoped(q *gorm.DB, ownerID *uint) *gorm.DB {
	if ownerID != nil {
		q = q.Where("owner_id = ?", *ownerID)
	}
	return q
}

func (r *Repo) Create(d *models.Device) error { return r.db.Create(d).Error }

func (r *Repo) Get(id uint, ownerID *uint) (*models.Device, error) {
	var d models.Device
	if err := scoped(r.db, ownerID).First(&d, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrDeviceNotFound
		}
		return nil, err
	}
	return &d, nil
}

// GetWithMessages eager-loads the transcript in store order, so callers
// never trigger per-message reads.
func (r *Repo) GetWithMessages(id uint, ownerID *uint) (*models.Device, error) {
	var d models.Device
	err := scoped(r.db, ownerID).
		Preload("ChatMessages", func(tx *gorm.DB) *gorm.DB {
			return tx.Order("created_at ASC, id ASC")
		}).
		First(&d, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrDeviceNotFound
		}
		return nil, err
	}
	if d.ChatMessages == nil {
		d.ChatMessages = []models.ChatMessage{}
	}
	return &d, nil
}

func (r *Repo) List(offset, limit int, ownerID *uint) ([]models.Device, error) {
	out := []models.Device{}
	err := scoped(r.db, ownerID).
		Order("id ASC").
		Offset(offset).Limit(limit).
		Find(&out).Error
	return out, err
}

// Delete removes the device and its transcript in one transaction and
// returns the image key so the caller can clean the blob up afterwards.
// The blob is deliberately not touched here: row deletion is authoritative
// and must not depend on filesystem state.
func (r *Repo) Delete(id uint, ownerID *uint) (string, error) {
	var imageKey string
	err := r.db.Transaction(func(tx *gorm.DB) error {
		var d models.Device
		if err := scoped(tx, ownerID).First(&d, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrDeviceNotFound
			}
			return err
		}
		imageKey = d.ImageKey
		if err := tx.Where("device_id = ?", d.ID).Delete(&models.ChatMessage{}).Error; err != nil {
			return err
		}
		return tx.Delete(&models.Device{}, d.ID).Error
	})
	if err != nil {
		return "", err
	}
	return imageKey, nil
}
