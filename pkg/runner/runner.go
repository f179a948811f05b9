package runner

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"github.com/aretw0/actscript"
	"github.com/aretw0/actscript/internal/logging"
	"github.com/aretw0/actscript/pkg/domain"
	"github.com/aretw0/actscript/pkg/schema"
	"github.com/aretw0/actscript/pkg/session"
)

// Engine is the part of the actscript facade the runner drives.
type Engine interface {
	Next(ctx context.Context, state *domain.State, actCtx domain.Context) (*domain.State, []domain.Message, error)
	Answer(ctx context.Context, state *domain.State, msgs ...domain.Message) (*domain.State, error)
	Inspect(ctx context.Context, state *domain.State) (*actscript.Status, error)
}

var _ Engine = (*actscript.Engine)(nil)

// Runner plays a session act by act using provided IO.
// It uses an IOHandler strategy to abstract the interaction mode (Text vs JSON).
type Runner struct {
	Handler IOHandler

	// Logger is used for internal debug logging.
	// If nil, a no-op logger is used.
	Logger *slog.Logger

	// Sessions persists the state after every step. If nil, sessions are ephemeral.
	Sessions  *session.Manager
	SessionID string

	AnswerRole string
	NoReplies  bool
}

// NewRunner creates a new Runner with text IO on Stdin/Stdout.
func NewRunner(opts ...Option) *Runner {
	r := &Runner{
		AnswerRole: DefaultAnswerRole,
		Logger:     logging.NewNop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.Handler == nil {
		r.Handler = NewTextHandler(nil, nil)
	}
	if r.Logger == nil {
		r.Logger = logging.NewNop()
	}
	if r.AnswerRole == "" {
		r.AnswerRole = DefaultAnswerRole
	}
	return r
}

// Run plays state until the session terminates, the input ends or ctx is
// cancelled. It returns the last state, which is also persisted when
// Sessions is set.
func (r *Runner) Run(ctx context.Context, engine Engine, state *domain.State) (*domain.State, error) {
	if state == nil {
		return nil, domain.ErrNotInitialized
	}

	signals := NewSignalManager(ctx)
	defer signals.Stop()
	ctx = signals.Context()

	for {
		status, err := engine.Inspect(ctx, state)
		if err != nil {
			return state, err
		}
		if status.Terminated {
			break
		}
		if status.NextAct == "" {
			// Queue exhausted: one more Next closes the session.
			next, _, err := engine.Next(ctx, state, nil)
			if err != nil {
				return state, err
			}
			state = next
			if err := r.save(ctx, state); err != nil {
				return state, err
			}
			break
		}

		actCtx, err := r.askPlaceholders(ctx, state, status)
		if err != nil {
			return r.stop(state, signals, err)
		}

		next, msgs, err := engine.Next(ctx, state, actCtx)
		if err != nil {
			return state, fmt.Errorf("next act failed: %w", err)
		}
		state = next
		r.Logger.Debug("act played", "act", state.Act, "messages", len(msgs))

		if err := r.Handler.SystemOutput(ctx, "act "+state.Act); err != nil {
			return state, fmt.Errorf("output error: %w", err)
		}
		if err := r.Handler.Output(ctx, msgs); err != nil {
			return state, fmt.Errorf("output error: %w", err)
		}
		if err := r.save(ctx, state); err != nil {
			return state, fmt.Errorf("critical persistence error: %w", err)
		}

		if r.NoReplies {
			continue
		}
		reply, err := r.Handler.Input(ctx, r.AnswerRole)
		if err != nil {
			return r.stop(state, signals, err)
		}
		if reply == "exit" || reply == "quit" {
			break
		}
		if reply == "" {
			continue
		}
		state, err = engine.Answer(ctx, state, domain.Message{Role: r.AnswerRole, Content: reply})
		if err != nil {
			return state, err
		}
		if err := r.save(ctx, state); err != nil {
			return state, fmt.Errorf("critical persistence error: %w", err)
		}
	}
	return state, nil
}

// askPlaceholders prompts for the placeholders of the next act that the
// session context does not hold yet. Empty answers leave the placeholder to
// its default.
func (r *Runner) askPlaceholders(ctx context.Context, state *domain.State, status *actscript.Status) (domain.Context, error) {
	var defaults map[string]any
	if act := state.Scenario.Act(status.NextAct); act != nil {
		defaults = act.Placeholders
	}

	names := append([]string(nil), status.Placeholders...)
	sort.Strings(names)

	actCtx := domain.Context{}
	for _, name := range names {
		if _, ok := state.Context.Lookup(name); ok {
			continue
		}
		prompt := name
		if def := defaults[name]; def != nil {
			prompt = fmt.Sprintf("%s [%s]", name, domain.Stringify(def))
		}
		val, err := r.askValue(ctx, prompt, status.Schema[name])
		if err != nil {
			return nil, err
		}
		if val != nil {
			actCtx[name] = val
		}
	}
	if len(actCtx) == 0 {
		return nil, nil
	}
	return actCtx, nil
}

// askValue reads one placeholder value, asking again until it parses as
// typ. It returns nil for an empty answer.
func (r *Runner) askValue(ctx context.Context, prompt string, typ schema.Type) (any, error) {
	for {
		raw, err := r.Handler.Input(ctx, prompt)
		if err != nil {
			return nil, err
		}
		if raw == "" {
			return nil, nil
		}
		if typ == nil {
			return raw, nil
		}
		val, err := schema.Parse(typ, raw)
		if err == nil {
			return val, nil
		}
		if err := r.Handler.SystemOutput(ctx, fmt.Sprintf("invalid value: %v", err)); err != nil {
			return nil, err
		}
	}
}

// stop ends the run on an input error. EOF and interrupts end it quietly.
func (r *Runner) stop(state *domain.State, signals *SignalManager, err error) (*domain.State, error) {
	if signals.Quiet(err) {
		r.Logger.Debug("runner stopped", "reason", err)
		return state, nil
	}
	return state, fmt.Errorf("input error: %w", err)
}

func (r *Runner) save(ctx context.Context, state *domain.State) error {
	if r.Sessions == nil || r.SessionID == "" {
		return nil
	}
	// Persist even when ctx was cancelled by an interrupt.
	if err := r.Sessions.Save(context.WithoutCancel(ctx), r.SessionID, state); err != nil {
		return err
	}
	r.Logger.Debug("state saved", "session_id", r.SessionID, "act", state.Act)
	return nil
}
