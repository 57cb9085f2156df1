// Package session persists the viewer identity between CLI invocations.
// There is no token or expiry: the session is just who the viewer is.
package session

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

const FileName = "session.json"

var ErrNoSession = errors.New("not logged in; run buildwatch login")

type Viewer struct {
	UserID    int64     `json:"user_id"`
	Username  string    `json:"username"`
	UpdatedAt time.Time `json:"updated_at"`
}

type Store struct {
	path string
}

func NewStore(dataDir string) *Store {
	return &Store{path: filepath.Join(filepath.Clean(dataDir), FileName)}
}

func (s *Store) Path() string {
	return s.path
}

// Load returns ErrNoSession when nothing usable is stored.
func (s *Store) Load() (*Viewer, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, ErrNoSession
		}
		return nil, err
	}

	var viewer Viewer
	if err := json.Unmarshal(data, &viewer); err != nil {
		return nil, fmt.Errorf("read session %s: %w", s.path, err)
	}
	if viewer.UserID <= 0 {
		return nil, ErrNoSession
	}
	return &viewer, nil
}

func (s *Store) Save(viewer Viewer) error {
	if viewer.UserID <= 0 {
		return fmt.Errorf("save session: invalid user id %d", viewer.UserID)
	}
	if viewer.UpdatedAt.IsZero() {
		viewer.UpdatedAt = time.Now().UTC()
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return err
	}

	data, err := json.MarshalIndent(viewer, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(s.path, data, 0o600)
}

// Clear removes the stored session. Clearing an absent session is not an
// error.
func (s *Store) Clear() error {
	if err := os.Remove(s.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}
