package client

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// TokenStore holds the session credentials the transport reads on every
// request. Implementations must clear all three values atomically: a reader
// never observes an access token without its matching refresh token and user.
type TokenStore interface {
	Tokens() (access, refresh string)
	User() json.RawMessage
	SetTokens(access, refresh string)
	SetUser(user json.RawMessage)
	Clear()
}

// MemoryStore keeps the session in process memory.
type MemoryStore struct {
	mu      sync.RWMutex
	access  string
	refresh string
	user    json.RawMessage
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) Tokens() (string, string) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.access, s.refresh
}

func (s *MemoryStore) User() json.RawMessage {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.user
}

func (s *MemoryStore) SetTokens(access, refresh string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.access = access
	if refresh != "" {
		s.refresh = refresh
	}
}

func (s *MemoryStore) SetUser(user json.RawMessage) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.user = user
}

func (s *MemoryStore) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.access = ""
	s.refresh = ""
	s.user = nil
}

// fileSession is the on-disk shape of a persisted session.
type fileSession struct {
	Access  string          `json:"access,omitempty"`
	Refresh string          `json:"refresh,omitempty"`
	User    json.RawMessage `json:"user,omitempty"`
}

// FileStore persists the session to a JSON file so it survives restarts.
// Writes go through a temp file + rename, so a crash never leaves a
// half-written session behind.
type FileStore struct {
	mu       sync.RWMutex
	path     string
	session  fileSession
	writeErr error
}

// NewFileStore loads (or creates) the session file at path.
func NewFileStore(path string) (*FileStore, error) {
	s := &FileStore{path: path}

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return s, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read session file: %w", err)
	}
	if err := json.Unmarshal(data, &s.session); err != nil {
		// Corrupt session file: start fresh rather than failing startup.
		s.session = fileSession{}
	}
	return s, nil
}

func (s *FileStore) Tokens() (string, string) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.session.Access, s.session.Refresh
}

func (s *FileStore) User() json.RawMessage {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.session.User
}

func (s *FileStore) SetTokens(access, refresh string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.session.Access = access
	if refresh != "" {
		s.session.Refresh = refresh
	}
	s.persist()
}

func (s *FileStore) SetUser(user json.RawMessage) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.session.User = user
	s.persist()
}

func (s *FileStore) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.session = fileSession{}
	s.persist()
}

// persist writes the session under the held lock. A failure never blocks the
// in-memory mutation; it is recorded for PersistErr instead.
func (s *FileStore) persist() {
	data, err := json.Marshal(s.session)
	if err != nil {
		s.writeErr = fmt.Errorf("encode session: %w", err)
		return
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		s.writeErr = fmt.Errorf("write session file: %w", err)
		return
	}
	if err := os.Rename(tmp, s.path); err != nil {
		s.writeErr = fmt.Errorf("write session file: %w", err)
		return
	}
	s.writeErr = nil
}

// PersistErr reports the most recent failure writing the session file, nil
// when the last write succeeded.
func (s *FileStore) PersistErr() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.writeErr
}

// DefaultSessionPath returns a per-user session file location.
func DefaultSessionPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		dir = os.TempDir()
	}
	return filepath.Join(dir, "facility-system", "session.json")
}
