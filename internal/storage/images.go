package storage

import (
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"

	"pcbd/internal/logs"

	"github.com/google/uuid"
)

// Store keeps image blobs on disk under randomly generated keys.
// Key uniqueness comes from generation (uuid4), not locking.
type Store struct {
	dir        string
	publicPath string
}

func New(dir, publicPath string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create image dir %s: %w", dir, err)
	}
	return &Store{dir: dir, publicPath: strings.TrimSuffix(publicPath, "/")}, nil
}

// Dir returns the on-disk directory, for mounting a file server over it.
func (s *Store) Dir() string { return s.dir }

// Save writes data under a fresh key keeping the original extension.
// On failure nothing must reference the key: the caller creates the
// device row only after Save returns.
func (s *Store) Save(data []byte, ext string) (string, error) {
	if ext != "" && !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	key := uuid.NewString() + ext
	if err := os.WriteFile(filepath.Join(s.dir, key), data, 0o644); err != nil {
		return "", fmt.Errorf("write image %s: %w", key, err)
	}
	return key, nil
}

// Remove deletes the blob if present and reports whether it existed.
// Errors are logged and swallowed: the owning row is already gone by the
// time this runs, and the row is authoritative.
func (s *Store) Remove(key string) bool {
	if key == "" {
		return false
	}
	err := os.Remove(filepath.Join(s.dir, key))
	if err != nil {
		if !os.IsNotExist(err) {
			logs.Logger.Warnf("remove image %s: %v", key, err)
		}
		return false
	}
	return true
}

// URL maps a key to its public path. Pure, no I/O.
func (s *Store) URL(key string) string {
	return path.Join(s.publicPath, key)
}
