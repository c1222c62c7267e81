package chat

import (
	"errors"
	"testing"
	"time"

	"pcbd/internal/devices"
	"pcbd/internal/models"

	"github.com/matryer/is"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func testDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	if err != nil {
		t.Fatal(err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatal(err)
	}
	sqlDB.SetMaxOpenConns(1)
	if err := db.AutoMigrate(&models.Device{}, &models.ChatMessage{}); err != nil {
		t.Fatal(err)
	}
	return db
}

func seedDevice(t *testing.T, db *gorm.DB) *models.Device {
	t.Helper()
	d := &models.Device{
		Name:             "Test Board",
		ImageKey:         "img.png",
		Complexity:       "Low",
		Components:       []string{"Resistor", "Capacitor"},
		OperatingVoltage: "3.3V",
		Description:      "test fixture",
	}
	if err := db.Create(d).Error; err != nil {
		t.Fatal(err)
	}
	return d
}

func TestAppendUnknownDevice(t *testing.T) {
	is := is.New(t)
	db := testDB(t)
	repo := NewRepo(db)

	_, err := repo.Append(9999, models.RoleUser, "hello?")
	is.True(errors.Is(err, devices.ErrDeviceNotFound))

	// nothing persisted anywhere
	var n int64
	is.NoErr(db.Model(&models.ChatMessage{}).Count(&n).Error)
	is.Equal(n, int64(0))
}

func TestAppendAndHistoryOrder(t *testing.T) {
	is := is.New(t)
	db := testDB(t)
	repo := NewRepo(db)
	d := seedDevice(t, db)

	texts := []string{"first", "second", "third", "fourth"}
	for i, txt := range texts {
		role := models.RoleUser
		if i%2 == 1 {
			role = models.RoleAI
		}
		m, err := repo.Append(d.ID, role, txt)
		is.NoErr(err)
		is.True(m.ID != 0)
	}

	history, err := repo.History(d.ID)
	is.NoErr(err)
	is.Equal(len(history), len(texts))
	for i, m := range history {
		is.Equal(m.Content, texts[i])
	}
	for i := 1; i < len(history); i++ {
		prev, cur := history[i-1], history[i]
		is.True(!cur.CreatedAt.Before(prev.CreatedAt))
		if cur.CreatedAt.Equal(prev.CreatedAt) {
			is.True(prev.ID < cur.ID)
		}
	}
}

// Messages landing within the same clock tick must still come back in a
// stable, insertion-respecting order: id breaks the timestamp tie.
func TestHistoryTieBreakOnID(t *testing.T) {
	is := is.New(t)
	db := testDB(t)
	repo := NewRepo(db)
	d := seedDevice(t, db)

	now := time.Now().Truncate(time.Second)
	for _, txt := range []string{"one", "two", "three"} {
		m := models.ChatMessage{DeviceID: d.ID, Role: models.RoleUser, Content: txt, CreatedAt: now}
		is.NoErr(db.Create(&m).Error)
	}

	history, err := repo.History(d.ID)
	is.NoErr(err)
	is.Equal(len(history), 3)
	is.Equal(history[0].Content, "one")
	is.Equal(history[1].Content, "two")
	is.Equal(history[2].Content, "three")
}

func TestHistoryScopedToDevice(t *testing.T) {
	is := is.New(t)
	db := testDB(t)
	repo := NewRepo(db)
	a := seedDevice(t, db)

	b := &models.Device{Name: "other", ImageKey: "other.png"}
	is.NoErr(db.Create(b).Error)

	_, err := repo.Append(a.ID, models.RoleUser, "for a")
	is.NoErr(err)
	_, err = repo.Append(b.ID, models.RoleUser, "for b")
	is.NoErr(err)

	ha, err := repo.History(a.ID)
	is.NoErr(err)
	is.Equal(len(ha), 1)
	is.Equal(ha[0].Content, "for a")
}
