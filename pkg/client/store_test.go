package client

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
)

func TestMemoryStore_ClearIsAtomic(t *testing.T) {
	s := NewMemoryStore()
	s.SetTokens("access", "refresh")
	s.SetUser(json.RawMessage(`{"id":"u1"}`))

	s.Clear()

	access, refresh := s.Tokens()
	if access != "" || refresh != "" || s.User() != nil {
		t.Fatalf("clear left state behind: %q %q %q", access, refresh, s.User())
	}
}

func TestMemoryStore_EmptyRefreshPreservesExisting(t *testing.T) {
	s := NewMemoryStore()
	s.SetTokens("access-1", "refresh-1")

	// A refresh exchange only returns a new access token.
	s.SetTokens("access-2", "")

	access, refresh := s.Tokens()
	if access != "access-2" {
		t.Fatalf("access not updated: %q", access)
	}
	if refresh != "refresh-1" {
		t.Fatalf("refresh token lost: %q", refresh)
	}
}

func TestFileStore_PersistsAcrossReload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.json")

	s, err := NewFileStore(path)
	if err != nil {
		t.Fatalf("new file store: %v", err)
	}
	s.SetTokens("access", "refresh")
	s.SetUser(json.RawMessage(`{"id":"u1","username":"alice"}`))

	reloaded, err := NewFileStore(path)
	if err != nil {
		t.Fatalf("reload file store: %v", err)
	}
	access, refresh := reloaded.Tokens()
	if access != "access" || refresh != "refresh" {
		t.Fatalf("session not persisted: %q %q", access, refresh)
	}
	if len(reloaded.User()) == 0 {
		t.Fatalf("user not persisted")
	}
}

func TestFileStore_ClearRemovesPersistedSession(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.json")

	s, err := NewFileStore(path)
	if err != nil {
		t.Fatalf("new file store: %v", err)
	}
	s.SetTokens("access", "refresh")
	s.Clear()

	reloaded, err := NewFileStore(path)
	if err != nil {
		t.Fatalf("reload file store: %v", err)
	}
	access, refresh := reloaded.Tokens()
	if access != "" || refresh != "" || len(reloaded.User()) != 0 {
		t.Fatalf("cleared session survived reload: %q %q", access, refresh)
	}
}

func TestFileStore_ReportsWriteFailure(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing-dir", "session.json")

	s, err := NewFileStore(path)
	if err != nil {
		t.Fatalf("new file store: %v", err)
	}

	s.SetTokens("access-1", "refresh-1")
	if s.PersistErr() == nil {
		t.Fatalf("expected a persist error for an unwritable path")
	}
	// The in-memory session still serves reads.
	if access, _ := s.Tokens(); access != "access-1" {
		t.Fatalf("in-memory session lost: %q", access)
	}

	// A later successful write clears the error.
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	s.SetTokens("access-2", "")
	if err := s.PersistErr(); err != nil {
		t.Fatalf("persist error should clear after a successful write: %v", err)
	}
}

func TestFileStore_CorruptFileStartsFresh(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o600); err != nil {
		t.Fatalf("write corrupt file: %v", err)
	}

	s, err := NewFileStore(path)
	if err != nil {
		t.Fatalf("corrupt session file should not fail startup: %v", err)
	}
	access, refresh := s.Tokens()
	if access != "" || refresh != "" {
		t.Fatalf("expected empty session, got %q %q", access, refresh)
	}
}
