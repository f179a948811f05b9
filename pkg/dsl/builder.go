package dsl

import (
	"errors"
	"fmt"
	"strings"

	"github.com/aretw0/actscript/pkg/adapters/memory"
	"github.com/aretw0/actscript/pkg/domain"
)

// Builder manages the script construction.
type Builder struct {
	id      string
	title   string
	parse   []directive
	use     []directive
	def     *ActBuilder
	acts    []*ActBuilder
	byName  map[string]*ActBuilder
	context domain.Context
}

type directive struct {
	key   string
	value any
}

// New creates a new script builder. The id names the script once it is
// served by a loader.
func New(id string) *Builder {
	b := &Builder{
		id:     id,
		byName: make(map[string]*ActBuilder),
	}
	b.def = &ActBuilder{builder: b}
	return b
}

// Title sets the script title.
func (b *Builder) Title(title string) *Builder {
	b.title = title
	return b
}

// Parse records a `parse` directive. Only settings that leave the emitted
// markers alone are safe here, such as the output key names.
func (b *Builder) Parse(key string, value any) *Builder {
	b.parse = append(b.parse, directive{key: key, value: value})
	return b
}

// Use records a scenario-wide `use` directive.
func (b *Builder) Use(key string, value any) *Builder {
	b.use = append(b.use, directive{key: key, value: value})
	return b
}

// Context seeds the first act of sessions started from the script.
func (b *Builder) Context(key string, value any) *Builder {
	if b.context == nil {
		b.context = domain.Context{}
	}
	b.context[key] = value
	return b
}

// Default returns the builder of the default act, the messages written
// ahead of any act heading.
func (b *Builder) Default() *ActBuilder {
	return b.def
}

// Act starts a named act. If the act already exists, it returns the
// existing builder.
func (b *Builder) Act(name string) *ActBuilder {
	if ab, ok := b.byName[name]; ok {
		return ab
	}
	ab := &ActBuilder{name: name, builder: b}
	b.byName[name] = ab
	b.acts = append(b.acts, ab)
	return ab
}

// Text renders the script source without validating it.
func (b *Builder) Text() string {
	var blocks []string

	var head []string
	for _, d := range b.parse {
		head = append(head, fmt.Sprintf("%s parse %s %s", domain.DefaultDirective, d.key, formatValue(d.value)))
	}
	for _, d := range b.use {
		head = append(head, fmt.Sprintf("%s use %s %s", domain.DefaultDirective, d.key, formatValue(d.value)))
	}
	head = append(head, b.def.directiveLines()...)
	if len(head) > 0 {
		blocks = append(blocks, strings.Join(head, "\n"))
	}
	blocks = append(blocks, b.def.messageBlocks()...)

	for _, ab := range b.acts {
		lines := []string{"[" + ab.name + "]"}
		if ab.description != "" {
			lines = append(lines, strings.Split(ab.description, "\n")...)
		}
		lines = append(lines, ab.directiveLines()...)
		blocks = append(blocks, strings.Join(lines, "\n"))
		blocks = append(blocks, ab.messageBlocks()...)
	}

	return strings.Join(blocks, "\n\n")
}

// Validate reports the parts that would not survive compilation as written.
func (b *Builder) Validate() error {
	var errs []error
	if b.id == "" {
		errs = append(errs, errors.New("script missing ID"))
	}
	for _, d := range append(append([]directive{}, b.parse...), b.use...) {
		errs = append(errs, checkKey(d.key))
	}
	errs = append(errs, b.def.validate()...)
	for _, ab := range b.acts {
		errs = append(errs, ab.validate()...)
	}
	return errors.Join(errs...)
}

// Build validates the acts and returns the script.
func (b *Builder) Build() (*domain.Script, error) {
	if err := b.Validate(); err != nil {
		return nil, fmt.Errorf("invalid script %q: %w", b.id, err)
	}
	return &domain.Script{
		ID:      b.id,
		Title:   b.title,
		Text:    b.Text(),
		Context: b.context,
	}, nil
}

// Loader builds the script and serves it from an in-memory loader.
func (b *Builder) Loader() (*memory.Loader, error) {
	script, err := b.Build()
	if err != nil {
		return nil, err
	}
	loader, err := memory.NewFromScripts(*script)
	if err != nil {
		return nil, fmt.Errorf("failed to build memory loader: %w", err)
	}
	return loader, nil
}

func checkKey(key string) error {
	if key == "" || strings.ContainsAny(key, " \t\n=") {
		return fmt.Errorf("invalid directive key %q", key)
	}
	return nil
}

// formatValue renders a directive value the way coercion reads it back.
func formatValue(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case []string:
		return formatList(val)
	case []any:
		items := make([]string, len(val))
		for i, item := range val {
			items[i] = formatValue(item)
		}
		return formatList(items)
	default:
		return fmt.Sprint(val)
	}
}

func formatList(items []string) string {
	quoted := make([]string, len(items))
	for i, item := range items {
		if strings.Contains(item, ",") {
			item = `"` + item + `"`
		}
		quoted[i] = item
	}
	if len(quoted) == 1 {
		return quoted[0] + ","
	}
	return strings.Join(quoted, ", ")
}
