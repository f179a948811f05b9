package file

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/aretw0/actscript/pkg/domain"
)

// DefaultSessionDir is used when NewStore gets an empty directory.
var DefaultSessionDir = filepath.Join(".actscript", "sessions")

const sessionExt = ".json"

// Store keeps one indented JSON snapshot per session in a directory.
type Store struct {
	dir string
}

func NewStore(dir string) *Store {
	if dir == "" {
		dir = DefaultSessionDir
	}
	return &Store{dir: dir}
}

// Dir returns the session directory.
func (s *Store) Dir() string { return s.dir }

func (s *Store) path(sessionID string) (string, error) {
	switch {
	case sessionID == "", sessionID == ".", sessionID == "..",
		strings.ContainsAny(sessionID, `/\`):
		return "", fmt.Errorf("%w: %q", domain.ErrInvalidSessionID, sessionID)
	}
	return filepath.Join(s.dir, sessionID+sessionExt), nil
}

// Save replaces the session file through a synced temp file and a rename, so
// readers see either the old snapshot or the new one.
func (s *Store) Save(ctx context.Context, sessionID string, state *domain.State) error {
	dest, err := s.path(sessionID)
	if err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return fmt.Errorf("encode session %s: %w", sessionID, err)
	}
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("create session dir: %w", err)
	}
	return writeAtomic(s.dir, dest, "."+sessionID+"-*.tmp", data)
}

func writeAtomic(dir, dest, pattern string, data []byte) (err error) {
	tmp, err := os.CreateTemp(dir, pattern)
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tmp.Close()
			_ = os.Remove(tmp.Name())
		}
	}()

	if _, err = tmp.Write(data); err != nil {
		return fmt.Errorf("write temp file: %w", err)
	}
	if err = tmp.Sync(); err != nil {
		return fmt.Errorf("sync temp file: %w", err)
	}
	if err = tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	if err = os.Rename(tmp.Name(), dest); err != nil {
		return fmt.Errorf("replace %s: %w", filepath.Base(dest), err)
	}
	return nil
}

func (s *Store) Load(ctx context.Context, sessionID string) (*domain.State, error) {
	p, err := s.path(sessionID)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(p)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return nil, domain.ErrSessionNotFound
	case err != nil:
		return nil, fmt.Errorf("read session %s: %w", sessionID, err)
	}

	state := new(domain.State)
	if err := json.Unmarshal(data, state); err != nil {
		return nil, fmt.Errorf("decode session %s: %w", sessionID, err)
	}
	return state, nil
}

// Delete removes the session file. Missing sessions are not an error.
func (s *Store) Delete(ctx context.Context, sessionID string) error {
	p, err := s.path(sessionID)
	if err != nil {
		return err
	}
	if err := os.Remove(p); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("delete session %s: %w", sessionID, err)
	}
	return nil
}

// List returns the session IDs found in the directory, sorted. A missing
// directory holds no sessions.
func (s *Store) List(ctx context.Context) ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if errors.Is(err, fs.ErrNotExist) {
		return []string{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}

	ids := make([]string, 0, len(entries))
	for _, e := range entries {
		id, ok := strings.CutSuffix(e.Name(), sessionExt)
		if e.Type().IsRegular() && ok && !strings.HasPrefix(id, ".") {
			ids = append(ids, id)
		}
	}
	slices.Sort(ids)
	return ids, nil
}
