package actscript

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/aretw0/actscript/internal/compiler"
	"github.com/aretw0/actscript/internal/runtime"
	loamAdapter "github.com/aretw0/actscript/pkg/adapters/loam"
	"github.com/aretw0/actscript/pkg/domain"
	"github.com/aretw0/actscript/pkg/ports"
	"github.com/aretw0/actscript/pkg/schema"
)

// Engine is the high-level entry point for the actscript library.
// It compiles scripts from a ScriptLoader and plays sessions over snapshots:
// every operation takes a State and returns a new one, leaving the input untouched.
type Engine struct {
	loader    ports.ScriptLoader
	parser    domain.ParserConfig
	hooks     *domain.LifecycleHooks
	actions   map[string]domain.Action
	fullLog   bool
	trackCost bool
	now       func() time.Time
	logger    *slog.Logger
	Name      string
}

// Option defines a functional option for configuring the Engine.
type Option func(*Engine)

// WithLoader injects a custom ScriptLoader, bypassing the default Loam initialization.
func WithLoader(l ports.ScriptLoader) Option {
	return func(e *Engine) {
		e.loader = l
	}
}

// WithParserConfig sets the host parser defaults. Settings declared by a
// script (front matter or `% parse` directives) still win.
func WithParserConfig(cfg domain.ParserConfig) Option {
	return func(e *Engine) {
		e.parser = e.parser.Merge(cfg)
	}
}

// WithLifecycleHooks registers hooks. Repeated calls append.
func WithLifecycleHooks(hooks *domain.LifecycleHooks) Option {
	return func(e *Engine) {
		e.hooks.Merge(hooks)
	}
}

// WithAction registers the action applied to built messages of role.
func WithAction(role string, action domain.Action) Option {
	return func(e *Engine) {
		e.actions[role] = action
	}
}

// WithFullLog keeps a request/response log in every new session.
func WithFullLog(enabled bool) Option {
	return func(e *Engine) {
		e.fullLog = enabled
	}
}

// WithCostTracking keeps a token cost ledger in every new session.
func WithCostTracking(enabled bool) Option {
	return func(e *Engine) {
		e.trackCost = enabled
	}
}

// WithLogger sets a custom structured logger for the engine.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = logger
	}
}

// WithClock overrides the time source of log entries.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		e.now = now
	}
}

// New initializes a new Engine.
// By default, it reads scripts from a Loam repository at the given path.
// If WithLoader option is provided, repoPath can be empty and Loam is skipped.
func New(repoPath string, opts ...Option) (*Engine, error) {
	eng := &Engine{
		parser:  domain.DefaultParserConfig(),
		hooks:   domain.NewLifecycleHooks(),
		actions: map[string]domain.Action{},
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(eng)
	}

	if eng.loader == nil {
		if repoPath == "" {
			return nil, fmt.Errorf("repoPath is required when no custom loader is provided")
		}
		absPath, err := filepath.Abs(repoPath)
		if err != nil {
			return nil, fmt.Errorf("invalid path: %w", err)
		}
		eng.Name = filepath.Base(absPath)

		loader, err := loamAdapter.Open(absPath)
		if err != nil {
			return nil, err
		}
		eng.loader = loader
	} else if repoPath != "" {
		eng.Name = filepath.Base(repoPath)
	}

	if eng.logger == nil {
		eng.logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	if eng.Name != "" {
		eng.logger = eng.logger.With("library", eng.Name)
	}
	return eng, nil
}

// Loader returns the underlying ScriptLoader used by the engine.
func (e *Engine) Loader() ports.ScriptLoader {
	return e.loader
}

// ParserConfig returns the host parser defaults.
func (e *Engine) ParserConfig() domain.ParserConfig {
	return e.parser.Clone()
}

// Keys returns the message key names declared by the scenario of state,
// or the host defaults when state is nil.
func (e *Engine) Keys(state *domain.State) domain.MessageKeys {
	if state == nil || state.Scenario == nil {
		return e.parser.Keys
	}
	return runtime.NewScenario(state.Scenario, e.parser).Keys()
}

// Scripts lists the script IDs served by the loader.
func (e *Engine) Scripts() ([]string, error) {
	return e.loader.ListScripts()
}

// Script returns a script by ID.
func (e *Engine) Script(id string) (*domain.Script, error) {
	return e.loader.GetScript(id)
}

// Compile turns script text into ScenarioData using the host parser defaults.
func (e *Engine) Compile(text string) *domain.ScenarioData {
	return compiler.Compile(text, e.parser)
}

// CompileScript compiles a loaded script with its own parser settings laid
// over the host defaults.
func (e *Engine) CompileScript(script *domain.Script) (*domain.ScenarioData, error) {
	cfg, err := e.scriptParser(script)
	if err != nil {
		return nil, err
	}
	return compiler.Compile(script.Text, cfg), nil
}

func (e *Engine) scriptParser(script *domain.Script) (domain.ParserConfig, error) {
	cfg, err := compiler.DecodeConfig(e.parser, script.Parser)
	if err != nil {
		return e.parser, fmt.Errorf("script %s: %w", script.ID, err)
	}
	return cfg, nil
}

func (e *Engine) runtime(cfg domain.ParserConfig) *runtime.Engine {
	opts := []runtime.Option{
		runtime.WithParserConfig(cfg),
		runtime.WithFullLog(e.fullLog),
		runtime.WithCostTracking(e.trackCost),
		runtime.WithHooks(e.hooks),
		runtime.WithLogger(e.logger),
		runtime.WithClock(e.now),
	}
	for role, action := range e.actions {
		opts = append(opts, runtime.WithAction(role, action))
	}
	return runtime.NewEngine(opts...)
}

// Start loads the script with the given ID and returns an idle session on it.
func (e *Engine) Start(ctx context.Context, scriptID string) (*domain.State, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	script, err := e.loader.GetScript(scriptID)
	if err != nil {
		return nil, err
	}
	return e.StartScript(ctx, script)
}

// StartText compiles text and returns an idle session on it.
func (e *Engine) StartText(ctx context.Context, text string) (*domain.State, error) {
	return e.StartScript(ctx, &domain.Script{Text: text})
}

// StartScript returns an idle session on script. The script context seeds
// the running context of the session.
func (e *Engine) StartScript(ctx context.Context, script *domain.Script) (*domain.State, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	cfg, err := e.scriptParser(script)
	if err != nil {
		return nil, err
	}
	data := compiler.Compile(script.Text, cfg)
	// Script level parser settings travel with the snapshot.
	for k, v := range script.Parser {
		if data.Config.Get("parserOverrides."+k) == nil {
			data.Config.Set("parserOverrides."+k, v)
		}
	}
	rt := e.runtime(cfg).Init(runtime.NewScenario(data, cfg))
	if len(script.Context) > 0 {
		rt.State().Context = script.Context.Clone()
	}
	e.logger.Debug("session started", "script", script.ID, "acts", len(rt.State().Queue))
	return rt.Save().Snapshot(), nil
}

// load detaches state from the caller and opens a runtime on it.
func (e *Engine) load(ctx context.Context, state *domain.State) (*runtime.Engine, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if state == nil || state.Scenario == nil {
		return nil, domain.ErrNotInitialized
	}
	return e.runtime(e.parser).Load(state.Snapshot()), nil
}

// Next plays the next queued act with actCtx merged into the running context.
// Once the queue is exhausted it returns no messages and a terminal state.
func (e *Engine) Next(ctx context.Context, state *domain.State, actCtx domain.Context) (*domain.State, []domain.Message, error) {
	rt, err := e.load(ctx, state)
	if err != nil {
		return nil, nil, err
	}
	if err := checkContext(state, actCtx); err != nil {
		return nil, nil, err
	}
	msgs := rt.Next(actCtx, false)
	return rt.Save(), msgs, nil
}

// checkContext validates actCtx against the types the scenario declares.
func checkContext(state *domain.State, actCtx domain.Context) error {
	if len(actCtx) == 0 {
		return nil
	}
	s, err := schema.FromConfig(state.Scenario.Config)
	if err != nil {
		return fmt.Errorf("invalid schema: %w", err)
	}
	if err := schema.Validate(s, actCtx); err != nil {
		return fmt.Errorf("%w: %w", domain.ErrInvalidContext, err)
	}
	return nil
}

// Execute plays act (the current act when empty) without touching the queue.
func (e *Engine) Execute(ctx context.Context, state *domain.State, act string, actCtx domain.Context) (*domain.State, []domain.Message, error) {
	rt, err := e.load(ctx, state)
	if err != nil {
		return nil, nil, err
	}
	if act != "" && state.Scenario.Act(act) == nil {
		return nil, nil, fmt.Errorf("%w: %s", domain.ErrActNotFound, act)
	}
	if err := checkContext(state, actCtx); err != nil {
		return nil, nil, err
	}
	msgs := rt.Execute(actCtx, act)
	return rt.Save(), msgs, nil
}

// Answer records caller supplied messages, typically an LLM reply.
func (e *Engine) Answer(ctx context.Context, state *domain.State, msgs ...domain.Message) (*domain.State, error) {
	rt, err := e.load(ctx, state)
	if err != nil {
		return nil, err
	}
	rt.Answer(msgs...)
	return rt.Save(), nil
}

// AddCost appends a usage record. The returned total is nil when cost
// tracking is disabled.
func (e *Engine) AddCost(ctx context.Context, state *domain.State, item domain.CostItem) (*domain.State, *domain.CostItem, error) {
	rt, err := e.load(ctx, state)
	if err != nil {
		return nil, nil, err
	}
	total := rt.AddCost(item)
	return rt.Save(), total, nil
}

// Log records a request/response exchange when full logging is enabled.
func (e *Engine) Log(ctx context.Context, state *domain.State, request, response any, extra map[string]any) (*domain.State, error) {
	rt, err := e.load(ctx, state)
	if err != nil {
		return nil, err
	}
	rt.Log(request, response, extra)
	return rt.Save(), nil
}

// End stops the session and returns the final history.
func (e *Engine) End(ctx context.Context, state *domain.State) (*domain.State, []domain.Message, error) {
	rt, err := e.load(ctx, state)
	if err != nil {
		return nil, nil, err
	}
	history := rt.End()
	return rt.Save(), history, nil
}

// History renders the session history, skipping the given roles.
func (e *Engine) History(ctx context.Context, state *domain.State, skipRoles ...string) (string, error) {
	rt, err := e.load(ctx, state)
	if err != nil {
		return "", err
	}
	return rt.PrintHistory(skipRoles...), nil
}

// Messages returns the history as seen through the beforeGetMessages hooks.
func (e *Engine) Messages(ctx context.Context, state *domain.State) ([]domain.Message, error) {
	rt, err := e.load(ctx, state)
	if err != nil {
		return nil, err
	}
	return rt.Messages(""), nil
}

// Status summarizes where a session stands.
type Status struct {
	Act          string        `json:"act"`
	NextAct      string        `json:"next_act,omitempty"`
	Queue        []string      `json:"queue"`
	Placeholders []string      `json:"placeholders,omitempty"`
	Schema       schema.Schema `json:"schema,omitempty"`
	Terminated   bool          `json:"terminated"`
}

// Inspect reports the current act, the act Next would play and the
// placeholders that act expects, along with the declared context types.
func (e *Engine) Inspect(ctx context.Context, state *domain.State) (*Status, error) {
	rt, err := e.load(ctx, state)
	if err != nil {
		return nil, err
	}
	st := rt.State()
	status := &Status{
		Act:        st.Act,
		NextAct:    rt.NextAct(),
		Queue:      append([]string{}, st.Queue...),
		Terminated: st.Terminated(),
	}
	if status.NextAct != "" {
		status.Placeholders = rt.Scenario().ActPlaceholders(status.NextAct)
	}
	if status.Schema, err = schema.FromConfig(st.Scenario.Config); err != nil {
		return nil, fmt.Errorf("invalid schema: %w", err)
	}
	return status, nil
}
