package session

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/Aman-CERP/ruleseek/internal/fslock"
)

// storageVersion is written into users.json.
const storageVersion = 1

// State is the persisted form of a Tracker.
type State struct {
	Version  int        `json:"version"`
	Users    []User     `json:"users"`
	Sessions []*Session `json:"sessions"`

	// NextNumber survives eviction of the newest users. Older files
	// without it continue from the highest stored number.
	NextNumber int `json:"next_number,omitempty"`
}

// Storage reads and writes the visitor registry as JSON. Writes are
// atomic and serialized across processes with a lock file next to path.
type Storage struct {
	path string
}

// NewStorage returns storage backed by path.
func NewStorage(path string) *Storage {
	return &Storage{path: path}
}

// Path returns the registry file path.
func (s *Storage) Path() string { return s.path }

// Load returns the stored state, or an empty state when the file does
// not exist yet.
func (s *Storage) Load() (*State, error) {
	var data []byte
	err := fslock.WithLock(s.path, func() error {
		var readErr error
		data, readErr = os.ReadFile(s.path)
		return readErr
	})
	if errors.Is(err, fs.ErrNotExist) {
		return &State{Version: storageVersion}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", s.path, err)
	}

	var st State
	if err := json.Unmarshal(data, &st); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", s.path, err)
	}
	return &st, nil
}

// Save writes st atomically.
func (s *Storage) Save(st *State) error {
	st.Version = storageVersion
	data, err := json.MarshalIndent(st, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal visitors: %w", err)
	}
	if err := fslock.WriteFileAtomic(s.path, data, 0o644); err != nil {
		return fmt.Errorf("failed to save %s: %w", s.path, err)
	}
	return nil
}
