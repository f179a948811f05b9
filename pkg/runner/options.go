package runner

import (
	"log/slog"

	"github.com/aretw0/actscript/pkg/session"
)

// DefaultAnswerRole is the role replies are recorded under.
const DefaultAnswerRole = "assistant"

// Option defines a functional option for configuring the Runner.
type Option func(*Runner)

// WithSessions configures the session manager used for persistence.
func WithSessions(sessions *session.Manager) Option {
	return func(r *Runner) {
		r.Sessions = sessions
	}
}

// WithSessionID sets the session ID for persistence context.
// This is required if WithSessions is used.
func WithSessionID(id string) Option {
	return func(r *Runner) {
		r.SessionID = id
	}
}

// WithLogger configures the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Runner) {
		r.Logger = logger
	}
}

// WithInputHandler configures a custom IOHandler.
func WithInputHandler(handler IOHandler) Option {
	return func(r *Runner) {
		r.Handler = handler
	}
}

// WithAnswerRole sets the role replies are recorded under.
func WithAnswerRole(role string) Option {
	return func(r *Runner) {
		r.AnswerRole = role
	}
}

// WithoutReplies plays the acts back to back without asking for replies.
func WithoutReplies() Option {
	return func(r *Runner) {
		r.NoReplies = true
	}
}
