package ports

import "github.com/aretw0/actscript/pkg/domain"

// ScriptLoader defines how hosts retrieve dialogue scripts.
// This allows the script library (Loam, FS, Memory) to be decoupled.
type ScriptLoader interface {
	// GetScript returns the script with the given ID.
	// It returns domain.ErrScriptNotFound (wrapped) for unknown IDs.
	GetScript(id string) (*domain.Script, error)

	// ListScripts returns the IDs of all available scripts, sorted.
	ListScripts() ([]string, error)
}
