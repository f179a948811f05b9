package runner

import (
	"context"

	"github.com/aretw0/actscript/pkg/domain"
)

// IOHandler defines the strategy for interacting with the user.
// This allows switching between Text (CLI/TUI) and JSON (Structured) modes.
type IOHandler interface {
	// Output presents the messages produced by an act.
	Output(ctx context.Context, messages []domain.Message) error

	// Input reads a response from the user. Prompt names what is asked
	// (a placeholder, or the answer role) and may be empty.
	Input(ctx context.Context, prompt string) (string, error)

	// SystemOutput presents a meta-message to the user (e.g. act changes, status updates).
	// This is distinct from content rendering.
	SystemOutput(ctx context.Context, msg string) error
}

// ContentRenderer is a function that transforms the content before outputting it.
// This allows for TUI rendering (markdown to ANSI) without coupling the core package.
type ContentRenderer func(string) (string, error)
