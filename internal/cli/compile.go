package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"gopkg.in/yaml.v3"

	"github.com/aretw0/actscript/internal/presentation/graph"
	"github.com/aretw0/actscript/internal/validator"
	"github.com/aretw0/actscript/pkg/domain"
)

// Output formats of the compile command.
const (
	FormatJSON = "json"
	FormatYAML = "yaml"
)

type compileOutput struct {
	Acts   map[string]*domain.Act `json:"acts" yaml:"acts"`
	Order  []string               `json:"order" yaml:"order"`
	Config domain.Config          `json:"config" yaml:"config"`
	Keys   *domain.MessageKeys    `json:"keys,omitempty" yaml:"keys,omitempty"`
}

// Compile prints the compiled scenario of a script file or library ID.
// With keys the resolved message keys are included.
func Compile(rt *Runtime, arg, format string, keys bool, w io.Writer) error {
	script, err := ScriptSource(rt.Engine.Script, arg)
	if err != nil {
		return err
	}
	data, err := rt.Engine.CompileScript(script)
	if err != nil {
		return err
	}

	out := compileOutput{Acts: data.Acts, Order: data.Order, Config: data.Config}
	if keys {
		k := rt.Engine.Keys(domain.NewState(data))
		out.Keys = &k
	}

	switch format {
	case "", FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(out)
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		defer enc.Close()
		return enc.Encode(out)
	default:
		return fmt.Errorf("unknown format %q (want json or yaml)", format)
	}
}

// Graph prints the Mermaid chart of a script, highlighting the progress of
// sessionID when given.
func Graph(ctx context.Context, rt *Runtime, arg, sessionID string, w io.Writer) error {
	script, err := ScriptSource(rt.Engine.Script, arg)
	if err != nil {
		return err
	}
	data, err := rt.Engine.CompileScript(script)
	if err != nil {
		return err
	}

	var overlay *graph.GraphOverlay
	if sessionID != "" {
		state, err := rt.Sessions.Load(ctx, sessionID)
		if err != nil {
			return fmt.Errorf("error loading session '%s': %w", sessionID, err)
		}
		overlay = graph.OverlayFromState(data, state)
	}
	_, err = fmt.Fprint(w, graph.GenerateMermaid(data, overlay))
	return err
}

// Validate compiles a script and prints every issue found. It fails when
// an issue is an error.
func Validate(rt *Runtime, arg string, w io.Writer) error {
	script, err := ScriptSource(rt.Engine.Script, arg)
	if err != nil {
		return err
	}
	data, err := rt.Engine.CompileScript(script)
	if err != nil {
		return err
	}
	issues := validator.ValidateScenario(data)
	for _, issue := range issues {
		fmt.Fprintln(w, issue.String())
	}
	if err := validator.Err(issues); err != nil {
		return err
	}
	fmt.Fprintf(w, "Script %q is valid (%d acts).\n", script.ID, len(data.Order))
	return nil
}
