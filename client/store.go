package client

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// StorageName is the fixed key the session record is stored under. File
// stores use it as the file name inside their directory.
const StorageName = "taskdeck-session.json"

// SessionRecord is the durable shape written on every login and cleared on
// logout. One canonical shape only; older flat shapes are not read.
type SessionRecord struct {
	Status      Status       `json:"status"`
	CurrentUser *UserProfile `json:"currentUser,omitempty"`
	Token       string       `json:"token,omitempty"`
}

// SessionStore persists the session record across process restarts.
// Load returns (nil, nil) when no record exists.
type SessionStore interface {
	Load() (*SessionRecord, error)
	Save(record SessionRecord) error
	Clear() error
}

// FileStore keeps the session record as a JSON file under dir.
type FileStore struct {
	dir string
}

// NewFileStore creates a file-backed session store. An empty dir defaults to
// the user config directory, falling back to the working directory.
func NewFileStore(dir string) *FileStore {
	if dir == "" {
		if base, err := os.UserConfigDir(); err == nil {
			dir = filepath.Join(base, "taskdeck")
		} else {
			dir = "."
		}
	}
	return &FileStore{dir: dir}
}

func (s *FileStore) path() string {
	return filepath.Join(s.dir, StorageName)
}

func (s *FileStore) Load() (*SessionRecord, error) {
	raw, err := os.ReadFile(s.path())
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("read session record: %w", err)
	}
	var record SessionRecord
	if err := json.Unmarshal(raw, &record); err != nil {
		// A corrupt record is treated as absent; the next login rewrites it.
		return nil, nil
	}
	return &record, nil
}

func (s *FileStore) Save(record SessionRecord) error {
	if err := os.MkdirAll(s.dir, 0o700); err != nil {
		return fmt.Errorf("create session dir: %w", err)
	}
	raw, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("encode session record: %w", err)
	}
	tmp := s.path() + ".tmp"
	if err := os.WriteFile(tmp, raw, 0o600); err != nil {
		return fmt.Errorf("write session record: %w", err)
	}
	if err := os.Rename(tmp, s.path()); err != nil {
		return fmt.Errorf("commit session record: %w", err)
	}
	return nil
}

func (s *FileStore) Clear() error {
	if err := os.Remove(s.path()); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("clear session record: %w", err)
	}
	return nil
}
