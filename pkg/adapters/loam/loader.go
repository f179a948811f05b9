package loam

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/aretw0/actscript/pkg/domain"
	"github.com/aretw0/loam"
)

// Loader adapts a Loam repository of Markdown documents to ports.ScriptLoader.
// The document body is the script; the front matter is ScriptMetadata.
type Loader struct {
	Repo *loam.TypedRepository[ScriptMetadata]
}

// New creates a new Loam adapter.
func New(repo *loam.TypedRepository[ScriptMetadata]) *Loader {
	return &Loader{
		Repo: repo,
	}
}

// Open initializes a read-only Loam repository at path and wraps it.
func Open(path string) (*Loader, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("invalid path: %w", err)
	}
	// Strict mode keeps numbers as json.Number across adapters; the loader
	// never writes, so the repository is opened read-only.
	repo, err := loam.Init(absPath,
		loam.WithStrict(true),
		loam.WithReadOnly(true),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize loam: %w", err)
	}
	return New(loam.NewTypedRepository[ScriptMetadata](repo)), nil
}

// GetScript retrieves a script document by ID.
func (l *Loader) GetScript(id string) (*domain.Script, error) {
	ctx := context.Background()

	doc, err := l.Repo.Get(ctx, id)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) || strings.Contains(strings.ToLower(err.Error()), "not found") {
			return nil, fmt.Errorf("%w: %s: %v", domain.ErrScriptNotFound, id, err)
		}
		return nil, fmt.Errorf("loam get failed for %s: %w", id, err)
	}

	rawID := doc.Data.ID
	if rawID == "" {
		rawID = doc.ID
	}
	script := &domain.Script{
		ID:    trimExtension(rawID),
		Title: doc.Data.Title,
		Text:  strings.TrimSpace(doc.Content),
	}
	if len(doc.Data.Parser) > 0 {
		script.Parser = domain.Config(normalizeMap(doc.Data.Parser))
	}
	if len(doc.Data.Context) > 0 {
		script.Context = domain.Context(normalizeMap(doc.Data.Context))
	}
	return script, nil
}

// ListScripts lists all scripts in the repository.
func (l *Loader) ListScripts() ([]string, error) {
	ctx := context.Background()
	docs, err := l.Repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("loam list failed: %w", err)
	}

	seen := make(map[string]string)
	ids := make([]string, 0, len(docs))

	for _, doc := range docs {
		rawID := doc.Data.ID
		if rawID == "" {
			rawID = doc.ID
		}
		id := trimExtension(rawID)

		if existingPath, ok := seen[id]; ok {
			return nil, fmt.Errorf("collision detected: ID '%s' is defined in both '%s' and '%s'", id, existingPath, doc.ID)
		}
		seen[id] = doc.ID
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}

func trimExtension(id string) string {
	ext := filepath.Ext(id)
	if ext != "" {
		return filepath.ToSlash(strings.TrimSuffix(id, ext))
	}
	return filepath.ToSlash(id)
}

// normalizeMap converts front matter values into the plain shapes the
// compiler produces: float64 numbers, map[string]any and []any.
func normalizeMap(src map[string]any) map[string]any {
	out := make(map[string]any, len(src))
	for k, v := range src {
		out[k] = normalizeValue(v)
	}
	return out
}

func normalizeValue(v any) any {
	switch val := v.(type) {
	case json.Number:
		if f, err := val.Float64(); err == nil {
			return f
		}
		return val.String()
	case int:
		return float64(val)
	case int64:
		return float64(val)
	case map[string]any:
		return normalizeMap(val)
	case map[any]any: // YAML often decodes to this
		m := make(map[string]any, len(val))
		for k, sub := range val {
			m[fmt.Sprintf("%v", k)] = normalizeValue(sub)
		}
		return m
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = normalizeValue(item)
		}
		return out
	}
	return v
}
