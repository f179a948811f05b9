package schema

import (
	"fmt"
	"strings"

	"github.com/aretw0/actscript/pkg/domain"
)

// ConfigKey is the scenario config key holding type declarations.
const ConfigKey = "schema"

// FromConfig reads the declarations under ConfigKey of a scenario config.
// Nested declarations become dotted paths. It returns nil when the config
// declares nothing.
func FromConfig(cfg domain.Config) (Schema, error) {
	decl := cfg.Sub(ConfigKey)
	if len(decl) == 0 {
		return nil, nil
	}
	raw := map[string]string{}
	if err := flatten("", decl, raw); err != nil {
		return nil, err
	}
	return ParseTypeMap(raw)
}

func flatten(prefix string, decl domain.Config, out map[string]string) error {
	for key, v := range decl {
		path := key
		if prefix != "" {
			path = prefix + "." + key
		}
		if sub, ok := domain.AsConfig(v); ok {
			if err := flatten(path, sub, out); err != nil {
				return err
			}
			continue
		}
		name, ok := v.(string)
		if !ok {
			return fmt.Errorf("field %s: expected a type name, got %T", path, v)
		}
		out[path] = strings.TrimSpace(name)
	}
	return nil
}
