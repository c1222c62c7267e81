package auth

import (
	"crypto/rand"
	"encoding/hex"
	"errors"

	"pcbd/internal/models"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUsernameTaken      = errors.New("username already taken")
)

type Repo struct{ db *gorm.DB }

func NewRepo(db *gorm.DB) *Repo { return &Repo{db: db} }

func newTokenKey() string {
	b := make([]byte, 20)
	_, _ = rand.Read(b)
	return hex.EncodeToString(b)
}

// Register creates the user and issues a token in one transaction.
// Username uniqueness is enforced by the index, not a pre-check: two
// concurrent registrations race a SELECT, they cannot race the INSERT.
func (r *Repo) Register(username, email, password string) (*models.User, string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, "", err
	}

	u := models.User{Username: username, Email: email, PasswordHash: string(hash)}
	key := newTokenKey()
	err = r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&u).Error; err != nil {
			return err
		}
		return tx.Create(&models.AuthToken{Key: key, UserID: u.ID}).Error
	})
	if err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, "", ErrUsernameTaken
		}
		return nil, "", err
	}
	return &u, key, nil
}

// Login verifies the password and returns the user's token, reusing an
// existing one when present.
func (r *Repo) Login(username, password string) (string, error) {
	var u models.User
	if err := r.db.Where("username = ?", username).First(&u).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", ErrInvalidCredentials
		}
		return "", err
	}
	if bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)) != nil {
		return "", ErrInvalidCredentials
	}

	var t models.AuthToken
	err := r.db.Where("user_id = ?", u.ID).First(&t).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		t = models.AuthToken{Key: newTokenKey(), UserID: u.ID}
		err = r.db.Create(&t).Error
	}
	if err != nil {
		return "", err
	}
	return t.Key, nil
}

// Logout invalidates one token.
func (r *Repo) Logout(key string) error {
	return r.db.Where("key = ?", key).Delete(&models.AuthToken{}).Error
}

// UserByToken resolves a token key to its user.
func (r *Repo) UserByToken(key string) (*models.User, error) {
	var t models.AuthToken
	if err := r.db.Where("key = ?", key).First(&t).Error; err != nil {
		return nil, err
	}
	var u models.User
	if err := r.db.First(&u, t.UserID).Error; err != nil {
		return nil, err
	}
	return &u, nil
}
