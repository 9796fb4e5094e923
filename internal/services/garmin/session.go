package garmin

import (
	"fmt"
	"os"
	"path/filepath"
)

const sessionFileName = "garmin_session.json"

// SessionStore persists the opaque platform session blob in a well-known
// directory so restarts can resume without a fresh login. The blob format is
// owned by the platform client, not by the store.
type SessionStore struct {
	dir string
}

// NewSessionStore creates a session store rooted at dir
func NewSessionStore(dir string) *SessionStore {
	return &SessionStore{dir: dir}
}

// Load reads the persisted session blob. A missing file is a normal
// "no session" condition and surfaces as an error the caller falls through on.
func (s *SessionStore) Load() ([]byte, error) {
	data, err := os.ReadFile(filepath.Join(s.dir, sessionFileName))
	if err != nil {
		return nil, fmt.Errorf("no stored session: %w", err)
	}
	return data, nil
}

// Save writes the session blob, creating the directory if needed
func (s *SessionStore) Save(blob []byte) error {
	if err := os.MkdirAll(s.dir, 0o700); err != nil {
		return fmt.Errorf("failed to create session directory: %w", err)
	}
	if err := os.WriteFile(filepath.Join(s.dir, sessionFileName), blob, 0o600); err != nil {
		return fmt.Errorf("failed to write session file: %w", err)
	}
	return nil
}
