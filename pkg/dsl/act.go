package dsl

import (
	"fmt"
	"strings"

	"github.com/aretw0/actscript/pkg/domain"
)

// ActBuilder provides a fluent API for configuring an act.
type ActBuilder struct {
	name        string
	description string
	config      []directive
	flags       []string
	messages    []domain.Message
	builder     *Builder
}

// Describe sets the act description, the free text below its heading.
func (a *ActBuilder) Describe(text string) *ActBuilder {
	a.description = strings.TrimSpace(text)
	return a
}

// Set adds an act-scoped `key=value` directive.
func (a *ActBuilder) Set(key string, value any) *ActBuilder {
	a.config = append(a.config, directive{key: key, value: value})
	return a
}

// Flag adds a bare flag directive, read back as true.
func (a *ActBuilder) Flag(name string) *ActBuilder {
	a.flags = append(a.flags, name)
	return a
}

// Say appends a message. Line breaks in content are kept.
func (a *ActBuilder) Say(role, content string) *ActBuilder {
	a.messages = append(a.messages, domain.Message{Role: role, Content: content})
	return a
}

// System appends a system message.
func (a *ActBuilder) System(content string) *ActBuilder {
	return a.Say("system", content)
}

// User appends a user message.
func (a *ActBuilder) User(content string) *ActBuilder {
	return a.Say("user", content)
}

// Assistant appends an assistant message.
func (a *ActBuilder) Assistant(content string) *ActBuilder {
	return a.Say("assistant", content)
}

// Act moves on to another act of the same script.
func (a *ActBuilder) Act(name string) *ActBuilder {
	return a.builder.Act(name)
}

// Build builds the whole script.
func (a *ActBuilder) Build() (*domain.Script, error) {
	return a.builder.Build()
}

func (a *ActBuilder) directiveLines() []string {
	var lines []string
	for _, d := range a.config {
		lines = append(lines, fmt.Sprintf("%s %s=%s", domain.DefaultDirective, d.key, formatValue(d.value)))
	}
	for _, f := range a.flags {
		lines = append(lines, fmt.Sprintf("%s %s", domain.DefaultDirective, f))
	}
	return lines
}

func (a *ActBuilder) messageBlocks() []string {
	blocks := make([]string, 0, len(a.messages))
	for _, m := range a.messages {
		lines := strings.Split(strings.TrimRight(m.Content, "\n"), "\n")
		for i := range lines[:len(lines)-1] {
			lines[i] += domain.DefaultNewLine
		}
		blocks = append(blocks, m.Role+":\n"+strings.Join(lines, "\n"))
	}
	return blocks
}

func (a *ActBuilder) validate() []error {
	var errs []error
	label := a.name
	if a == a.builder.def {
		label = domain.DefaultActName
	} else {
		switch {
		case strings.TrimSpace(a.name) == "":
			errs = append(errs, fmt.Errorf("act name is empty"))
		case strings.HasPrefix(a.name, domain.DefaultComment):
			errs = append(errs, fmt.Errorf("act %q starts with the comment marker", a.name))
		case strings.ContainsAny(a.name, "[]\n"):
			errs = append(errs, fmt.Errorf("act %q contains brackets or line breaks", a.name))
		}
		for _, line := range strings.Split(a.description, "\n") {
			if strings.HasPrefix(line, domain.DefaultDirective) {
				errs = append(errs, fmt.Errorf("act %q: description line %q reads as a directive", label, line))
			}
		}
	}
	for _, d := range a.config {
		if err := checkKey(d.key); err != nil {
			errs = append(errs, fmt.Errorf("act %q: %w", label, err))
		}
	}
	for _, f := range a.flags {
		if err := checkKey(f); err != nil {
			errs = append(errs, fmt.Errorf("act %q: %w", label, err))
		}
	}
	for i, m := range a.messages {
		if m.Role == "" || strings.ContainsAny(m.Role, "\n[") || strings.HasPrefix(m.Role, domain.DefaultComment) {
			errs = append(errs, fmt.Errorf("act %q: message %d has invalid role %q", label, i, m.Role))
		}
		for _, line := range strings.Split(m.Content, "\n") {
			trimmed := strings.TrimSpace(line)
			if trimmed == "" {
				errs = append(errs, fmt.Errorf("act %q: message %d has a blank line", label, i))
				break
			}
			if strings.HasPrefix(trimmed, domain.DefaultComment) || strings.HasPrefix(trimmed, domain.DefaultDirective) {
				errs = append(errs, fmt.Errorf("act %q: message %d line %q starts with a marker", label, i, line))
			}
		}
	}
	return errs
}
