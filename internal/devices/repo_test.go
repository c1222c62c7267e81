package devices

import (
	"errors"
	"testing"

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
	// one connection, or every pooled conn gets its own :memory: database
	sqlDB.SetMaxOpenConns(1)
	if err := db.AutoMigrate(&models.Device{}, &models.ChatMessage{}); err != nil {
		t.Fatal(err)
	}
	return db
}

func testDevice(name, key string) *models.Device {
	return &models.Device{
		Name:             name,
		ImageKey:         key,
		Complexity:       "Low",
		Components:       []string{"Resistor", "Capacitor"},
		OperatingVoltage: "3.3V",
		Description:      "a test board",
	}
}

func TestCreateGetRoundtrip(t *testing.T) {
	is := is.New(t)
	repo := NewRepo(testDB(t))

	d := testDevice("Test Board", "abc.png")
	is.NoErr(repo.Create(d))
	is.True(d.ID != 0)

	got, err := repo.Get(d.ID, nil)
	is.NoErr(err)
	is.Equal(got.Name, "Test Board")
	is.Equal(got.ImageKey, "abc.png")
	is.Equal(got.Complexity, "Low")
	is.Equal([]string(got.Components), []string{"Resistor", "Capacitor"})
	is.Equal(got.OperatingVoltage, "3.3V")
	is.True(!got.CreatedAt.IsZero())
}

func TestGetWithMessagesEmptyTranscript(t *testing.T) {
	is := is.New(t)
	repo := NewRepo(testDB(t))

	d := testDevice("board", "k1.png")
	is.NoErr(repo.Create(d))

	got, err := repo.GetWithMessages(d.ID, nil)
	is.NoErr(err)
	is.Equal(len(got.ChatMessages), 0)
	is.True(got.ChatMessages != nil) // encodes as [], not null
}

func TestGetNotFound(t *testing.T) {
	is := is.New(t)
	repo := NewRepo(testDB(t))

	_, err := repo.Get(9999, nil)
	is.True(errors.Is(err, ErrDeviceNotFound))

	_, err = repo.GetWithMessages(9999, nil)
	is.True(errors.Is(err, ErrDeviceNotFound))
}

func TestListOrderAndPagination(t *testing.T) {
	is := is.New(t)
	repo := NewRepo(testDB(t))

	for i := 0; i < 5; i++ {
		is.NoErr(repo.Create(testDevice("board", string(rune('a'+i))+".png")))
	}

	all, err := repo.List(0, 100, nil)
	is.NoErr(err)
	is.Equal(len(all), 5)
	for i := 1; i < len(all); i++ {
		is.True(all[i-1].ID < all[i].ID) // id ascending
	}

	page, err := repo.List(2, 2, nil)
	is.NoErr(err)
	is.Equal(len(page), 2)
	is.Equal(page[0].ID, all[2].ID)
}

func TestDeleteCascades(t *testing.T) {
	is := is.New(t)
	db := testDB(t)
	repo := NewRepo(db)

	d := testDevice("board", "gone.png")
	is.NoErr(repo.Create(d))
	for i := 0; i < 3; i++ {
		is.NoErr(db.Create(&models.ChatMessage{DeviceID: d.ID, Role: models.RoleUser, Content: "hi"}).Error)
	}

	key, err := repo.Delete(d.ID, nil)
	is.NoErr(err)
	is.Equal(key, "gone.png")

	_, err = repo.Get(d.ID, nil)
	is.True(errors.Is(err, ErrDeviceNotFound))

	var n int64
	is.NoErr(db.Model(&models.ChatMessage{}).Where("device_id = ?", d.ID).Count(&n).Error)
	is.Equal(n, int64(0))
}

func TestDeleteMissingIsNoOp(t *testing.T) {
	is := is.New(t)
	repo := NewRepo(testDB(t))

	_, err := repo.Delete(9999, nil)
	is.True(errors.Is(err, ErrDeviceNotFound))
}

func TestOwnershipScoping(t *testing.T) {
	is := is.New(t)
	repo := NewRepo(testDB(t))

	alice, bob := uint(1), uint(2)
	d := testDevice("alice board", "a1.png")
	d.OwnerID = &alice
	is.NoErr(repo.Create(d))

	_, err := repo.Get(d.ID, &bob)
	is.True(errors.Is(err, ErrDeviceNotFound))

	got, err := repo.Get(d.ID, &alice)
	is.NoErr(err)
	is.Equal(got.Name, "alice board")

	ds, err := repo.List(0, 100, &bob)
	is.NoErr(err)
	is.Equal(len(ds), 0)

	_, err = repo.Delete(d.ID, &bob)
	is.True(errors.Is(err, ErrDeviceNotFound))
}
