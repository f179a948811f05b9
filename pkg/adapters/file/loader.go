package file

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/aretw0/actscript/pkg/domain"
)

// Extension is the file suffix of dialogue scripts.
const Extension = ".scenario"

// Loader implements ports.ScriptLoader over a directory of *.scenario files.
// Script IDs are slash separated paths relative to the root, without extension.
type Loader struct {
	root fs.FS
}

// NewLoader serves the scripts below dir.
func NewLoader(dir string) *Loader {
	return &Loader{root: os.DirFS(dir)}
}

// NewLoaderFS serves scripts from any filesystem, e.g. an embed.FS.
func NewLoaderFS(fsys fs.FS) *Loader {
	return &Loader{root: fsys}
}

// GetScript reads the script with the given ID.
func (l *Loader) GetScript(id string) (*domain.Script, error) {
	name := strings.TrimSuffix(filepath.ToSlash(id), Extension) + Extension
	if !fs.ValidPath(name) {
		return nil, fmt.Errorf("%w: %s", domain.ErrScriptNotFound, id)
	}
	data, err := fs.ReadFile(l.root, name)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", domain.ErrScriptNotFound, id)
		}
		return nil, fmt.Errorf("failed to read script %s: %w", id, err)
	}
	return &domain.Script{ID: strings.TrimSuffix(name, Extension), Text: string(data)}, nil
}

// ListScripts walks the directory for *.scenario files.
func (l *Loader) ListScripts() ([]string, error) {
	ids := []string{}
	err := fs.WalkDir(l.root, ".", func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if path != "." && strings.HasPrefix(d.Name(), ".") {
				return fs.SkipDir
			}
			return nil
		}
		if strings.HasSuffix(path, Extension) {
			ids = append(ids, strings.TrimSuffix(path, Extension))
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return []string{}, nil
		}
		return nil, fmt.Errorf("failed to list scripts: %w", err)
	}
	sort.Strings(ids)
	return ids, nil
}
