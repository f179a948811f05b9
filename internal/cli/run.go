package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/aretw0/actscript"
	"github.com/aretw0/actscript/internal/presentation/tui"
	"github.com/aretw0/actscript/pkg/domain"
	"github.com/aretw0/actscript/pkg/runner"
)

// RunOptions configure an interactive session.
type RunOptions struct {
	Script     string
	SessionID  string
	Context    domain.Context
	AnswerRole string
	// Fresh discards a stored session with the same ID first.
	Fresh bool
	JSON  bool
	// NoReplies plays the acts back to back.
	NoReplies bool

	Input  io.Reader
	Output io.Writer
}

// RunSession plays a script interactively, resuming the stored session when
// SessionID names one.
func RunSession(ctx context.Context, rt *Runtime, opts RunOptions) error {
	out := opts.Output
	if out == nil {
		out = os.Stdout
	}
	quiet := opts.JSON

	script, err := ScriptSource(rt.Engine.Script, opts.Script)
	if err != nil {
		return err
	}

	if opts.Fresh && opts.SessionID != "" {
		if err := rt.Sessions.Delete(ctx, opts.SessionID); err != nil && !errors.Is(err, domain.ErrSessionNotFound) {
			return fmt.Errorf("failed to reset session: %w", err)
		}
	}

	state, loaded, err := hydrateState(ctx, rt, script, opts)
	if err != nil {
		return fmt.Errorf("failed to init session: %w", err)
	}

	if !quiet {
		if f, ok := out.(*os.File); ok && tui.IsTerminal(f) {
			tui.PrintBanner(out)
		}
		if loaded {
			printSystemMessage(out, "Resuming session '%s' at act '%s'.", opts.SessionID, state.Act)
		} else if opts.SessionID != "" {
			printSystemMessage(out, "Session '%s' active.", opts.SessionID)
		}
	}
	rt.Logger.Info("session ready", "session_id", opts.SessionID, "script", script.ID, "resumed", loaded)

	r := runner.NewRunner(createRunnerOptions(rt, opts, out)...)
	final, runErr := r.Run(ctx, rt.Engine, state)

	if !quiet && final != nil {
		switch {
		case final.Terminated():
			printSystemMessage(out, "Finished.")
		case runErr == nil:
			printSystemMessage(out, "Stopped at act '%s'.", final.Act)
		}
	}
	return handleExecutionError(runErr)
}

// hydrateState loads the stored session or starts a new one. Context given
// on the command line is merged into resumed sessions as well.
func hydrateState(ctx context.Context, rt *Runtime, script *domain.Script, opts RunOptions) (*domain.State, bool, error) {
	start := func(ctx context.Context) (*domain.State, error) {
		state, err := rt.Engine.StartScript(ctx, script)
		if err != nil {
			return nil, err
		}
		state.Context = domain.MergeContexts(state.Context, opts.Context)
		return state, nil
	}

	if opts.SessionID == "" {
		state, err := start(ctx)
		return state, false, err
	}

	loaded := true
	state, err := rt.Sessions.LoadOrStart(ctx, opts.SessionID, func(ctx context.Context) (*domain.State, error) {
		loaded = false
		return start(ctx)
	})
	if err != nil {
		return nil, false, err
	}
	if loaded && len(opts.Context) > 0 {
		state.Context = domain.MergeContexts(state.Context, opts.Context)
	}
	return state, loaded, nil
}

func createRunnerOptions(rt *Runtime, opts RunOptions, out io.Writer) []runner.Option {
	runnerOpts := []runner.Option{
		runner.WithLogger(rt.Logger),
		runner.WithAnswerRole(opts.AnswerRole),
	}
	if opts.SessionID != "" {
		runnerOpts = append(runnerOpts, runner.WithSessions(rt.Sessions), runner.WithSessionID(opts.SessionID))
	}
	if opts.NoReplies {
		runnerOpts = append(runnerOpts, runner.WithoutReplies())
	}

	if opts.JSON {
		return append(runnerOpts, runner.WithInputHandler(runner.NewJSONHandler(opts.Input, out)))
	}

	var textOpts []runner.TextHandlerOption
	if f, ok := out.(*os.File); ok && tui.IsTerminal(f) {
		if render, err := tui.NewRenderer(tui.Width(f)); err == nil {
			textOpts = append(textOpts, runner.WithTextHandlerRenderer(render))
		} else {
			rt.Logger.Warn("markdown rendering disabled", "err", err)
		}
	}
	return append(runnerOpts, runner.WithInputHandler(runner.NewTextHandler(opts.Input, out, textOpts...)))
}

// Describe returns a short status line for a session.
func Describe(ctx context.Context, engine *actscript.Engine, state *domain.State) (string, error) {
	status, err := engine.Inspect(ctx, state)
	if err != nil {
		return "", err
	}
	switch {
	case status.Terminated:
		return "terminated", nil
	case status.Act == "":
		return fmt.Sprintf("idle, next %q", status.NextAct), nil
	case status.NextAct == "":
		return fmt.Sprintf("at %q, last act", status.Act), nil
	default:
		return fmt.Sprintf("at %q, next %q", status.Act, status.NextAct), nil
	}
}
