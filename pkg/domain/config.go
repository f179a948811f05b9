package domain

import (
	"sort"
	"strings"
)

// Config is a recursive key/value mapping addressable by dotted paths.
// Leaves are string, float64, bool, []any or nested Config values.
type Config map[string]any

// AsConfig reports whether v is a nested mapping. Nested Context values and
// maps decoded from JSON (map[string]any) are accepted as well.
func AsConfig(v any) (Config, bool) {
	switch m := v.(type) {
	case Config:
		return m, m != nil
	case Context:
		return Config(m), m != nil
	case map[string]any:
		return Config(m), m != nil
	}
	return nil, false
}

// SplitPath splits a dotted path, trimming each segment and dropping empty ones.
func SplitPath(path string) []string {
	parts := strings.Split(path, ".")
	out := parts[:0]
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// Set writes value at the dotted path, creating intermediate maps.
// Scalars found along the way are replaced by maps.
func (c Config) Set(path string, value any) {
	keys := SplitPath(path)
	if len(keys) == 0 || c == nil {
		return
	}
	ref := c
	for _, key := range keys[:len(keys)-1] {
		next, ok := AsConfig(ref[key])
		if !ok {
			next = Config{}
			ref[key] = next
		}
		ref = next
	}
	ref[keys[len(keys)-1]] = value
}

// Lookup resolves a dotted path.
func (c Config) Lookup(path string) (any, bool) {
	return lookup(map[string]any(c), SplitPath(path))
}

// Get returns the value at path or nil.
func (c Config) Get(path string) any {
	v, _ := c.Lookup(path)
	return v
}

// Sub returns the nested mapping at path, or nil when absent or not a mapping.
func (c Config) Sub(path string) Config {
	v, ok := c.Lookup(path)
	if !ok {
		return nil
	}
	sub, _ := AsConfig(v)
	return sub
}

// Clone returns a deep copy.
func (c Config) Clone() Config {
	if c == nil {
		return nil
	}
	return Config(cloneMap(c))
}

// Keys returns the top-level keys sorted.
func (c Config) Keys() []string {
	keys := make([]string, 0, len(c))
	for k := range c {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func lookup(m map[string]any, keys []string) (any, bool) {
	if len(keys) == 0 || m == nil {
		return nil, false
	}
	var cur any = m
	for _, key := range keys {
		node, ok := AsConfig(cur)
		if !ok {
			return nil, false
		}
		cur, ok = node[key]
		if !ok {
			return nil, false
		}
	}
	return cur, true
}

func cloneValue(v any) any {
	switch t := v.(type) {
	case Config:
		return Config(cloneMap(t))
	case Context:
		return Context(cloneMap(t))
	case map[string]any:
		return cloneMap(t)
	case []any:
		out := make([]any, len(t))
		for i, item := range t {
			out[i] = cloneValue(item)
		}
		return out
	case []string:
		return append([]string(nil), t...)
	}
	return v
}

func cloneMap(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = cloneValue(v)
	}
	return out
}

// LayeredConfig is an ordered stack of configuration layers. Reads consult
// the layers front to back and the first layer holding a top-level key wins.
type LayeredConfig struct {
	layers []Config
}

// NewLayeredConfig builds a view over the given layers, skipping nil ones.
func NewLayeredConfig(layers ...Config) *LayeredConfig {
	l := &LayeredConfig{}
	for _, layer := range layers {
		if layer != nil {
			l.layers = append(l.layers, layer)
		}
	}
	return l
}

// Layers returns the layers in lookup order.
func (l *LayeredConfig) Layers() []Config {
	if l == nil {
		return nil
	}
	return l.layers
}

// Own returns the first layer.
func (l *LayeredConfig) Own() Config {
	if l == nil || len(l.layers) == 0 {
		return nil
	}
	return l.layers[0]
}

// Get returns the value of a top-level key from the first layer that has it.
func (l *LayeredConfig) Get(key string) (any, bool) {
	if l == nil {
		return nil, false
	}
	for _, layer := range l.layers {
		if v, ok := layer[key]; ok {
			return v, true
		}
	}
	return nil, false
}

// Lookup resolves a dotted path. The first segment picks the layer; the rest
// descends into that layer's value only.
func (l *LayeredConfig) Lookup(path string) (any, bool) {
	keys := SplitPath(path)
	if len(keys) == 0 {
		return nil, false
	}
	head, ok := l.Get(keys[0])
	if !ok {
		return nil, false
	}
	if len(keys) == 1 {
		return head, true
	}
	node, ok := AsConfig(head)
	if !ok {
		return nil, false
	}
	return lookup(node, keys[1:])
}

// Flatten merges the layers into one Config where earlier layers shadow
// later ones key by key.
func (l *LayeredConfig) Flatten() Config {
	out := Config{}
	if l == nil {
		return out
	}
	for i := len(l.layers) - 1; i >= 0; i-- {
		for k, v := range l.layers[i] {
			out[k] = cloneValue(v)
		}
	}
	return out
}
