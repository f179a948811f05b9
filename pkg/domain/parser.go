package domain

import "strings"

// Parser defaults.
const (
	DefaultJoin        = " "
	DefaultComment     = "#"
	DefaultNewLine     = "\\"
	DefaultDirective   = "%"
	DefaultPlaceholder = "???"
	DefaultActName     = "default"
)

// ParserConfig controls how script text is compiled.
type ParserConfig struct {
	Join               string         `json:"join" yaml:"join" mapstructure:"join"`
	Comment            string         `json:"comment" yaml:"comment" mapstructure:"comment"`
	NewLine            string         `json:"newLine" yaml:"newLine" mapstructure:"newLine"`
	Directive          string         `json:"directive" yaml:"directive" mapstructure:"directive"`
	DefaultPlaceholder string         `json:"defaultPlaceholder" yaml:"defaultPlaceholder" mapstructure:"defaultPlaceholder"`
	Keys               MessageKeys    `json:"keys" yaml:"keys" mapstructure:"keys"`
	Extra              map[string]any `json:"extra,omitempty" yaml:"extra,omitempty" mapstructure:",remain"`
}

// DefaultParserConfig returns the stock settings.
func DefaultParserConfig() ParserConfig {
	return ParserConfig{
		Join:               DefaultJoin,
		Comment:            DefaultComment,
		NewLine:            DefaultNewLine,
		Directive:          DefaultDirective,
		DefaultPlaceholder: DefaultPlaceholder,
		Keys: MessageKeys{
			Role:       "role",
			Content:    "content",
			DefaultAct: DefaultActName,
		},
	}
}

// Clone returns a deep copy.
func (c ParserConfig) Clone() ParserConfig {
	c.Extra = cloneMap(c.Extra)
	return c
}

// Merge overlays the non-empty fields of other onto c.
func (c ParserConfig) Merge(other ParserConfig) ParserConfig {
	out := c.Clone()
	set := func(dst *string, v string) {
		if v != "" {
			*dst = v
		}
	}
	set(&out.Join, other.Join)
	set(&out.Comment, other.Comment)
	set(&out.NewLine, other.NewLine)
	set(&out.Directive, other.Directive)
	set(&out.DefaultPlaceholder, other.DefaultPlaceholder)
	set(&out.Keys.Role, other.Keys.Role)
	set(&out.Keys.Content, other.Keys.Content)
	set(&out.Keys.DefaultAct, other.Keys.DefaultAct)
	for k, v := range other.Extra {
		if out.Extra == nil {
			out.Extra = map[string]any{}
		}
		out.Extra[k] = cloneValue(v)
	}
	return out
}

// Set writes a single setting addressed by a dotted path. Unknown paths are
// kept in Extra so they survive a round trip through parserOverrides.
func (c *ParserConfig) Set(path string, value any) {
	str := Stringify(value)
	switch strings.Join(SplitPath(path), ".") {
	case "":
		return
	case "join":
		c.Join = str
	case "comment":
		c.Comment = str
	case "newLine":
		c.NewLine = str
	case "directive":
		c.Directive = str
	case "defaultPlaceholder":
		c.DefaultPlaceholder = str
	case "keys.role":
		c.Keys.Role = str
	case "keys.content":
		c.Keys.Content = str
	case "keys.defaultAct":
		c.Keys.DefaultAct = str
	default:
		if c.Extra == nil {
			c.Extra = map[string]any{}
		}
		Config(c.Extra).Set(path, value)
	}
}

// Normalize converts nested Config values to plain maps, the shape reflection
// based decoders expect.
func Normalize(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		if sub, ok := AsConfig(v); ok {
			out[k] = Normalize(sub)
			continue
		}
		out[k] = v
	}
	return out
}
