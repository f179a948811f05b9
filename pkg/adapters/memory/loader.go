package memory

import (
	"fmt"
	"sort"

	"github.com/aretw0/actscript/pkg/domain"
)

// Loader implements ports.ScriptLoader using an in-memory map.
type Loader struct {
	scripts map[string]*domain.Script
}

// NewLoader creates a loader from raw script texts keyed by ID.
func NewLoader(data map[string]string) *Loader {
	scripts := make(map[string]*domain.Script, len(data))
	for id, text := range data {
		scripts[id] = &domain.Script{ID: id, Text: text}
	}
	return &Loader{scripts: scripts}
}

// NewFromScripts creates a loader from prepared scripts.
func NewFromScripts(scripts ...domain.Script) (*Loader, error) {
	l := &Loader{scripts: make(map[string]*domain.Script, len(scripts))}
	for _, s := range scripts {
		if s.ID == "" {
			return nil, fmt.Errorf("script missing ID")
		}
		script := s
		l.scripts[s.ID] = &script
	}
	return l, nil
}

// GetScript returns a copy of the script stored under id.
func (l *Loader) GetScript(id string) (*domain.Script, error) {
	s, ok := l.scripts[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrScriptNotFound, id)
	}
	out := *s
	out.Parser = s.Parser.Clone()
	out.Context = s.Context.Clone()
	return &out, nil
}

// ListScripts returns all available script IDs.
func (l *Loader) ListScripts() ([]string, error) {
	keys := make([]string, 0, len(l.scripts))
	for k := range l.scripts {
		keys = append(keys, k)
	}
	sort.Strings(keys) // Deterministic order
	return keys, nil
}
