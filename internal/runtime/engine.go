package runtime

import (
	"io"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/aretw0/actscript/pkg/domain"
)

// Engine plays a scenario act by act and owns the session State.
// It is not safe for concurrent use; hosts serialize calls per session.
type Engine struct {
	fullLog   bool
	trackCost bool
	actions   map[string]domain.Action
	hooks     *domain.LifecycleHooks
	logger    *slog.Logger
	now       func() time.Time
	parser    domain.ParserConfig

	state    *domain.State
	scenario *Scenario
}

// Option configures an Engine.
type Option func(*Engine)

// WithFullLog enables the request/response log.
func WithFullLog(enabled bool) Option {
	return func(e *Engine) { e.fullLog = enabled }
}

// WithCostTracking enables the token cost ledger.
func WithCostTracking(enabled bool) Option {
	return func(e *Engine) { e.trackCost = enabled }
}

// WithAction registers the action for messages of role.
func WithAction(role string, action domain.Action) Option {
	return func(e *Engine) { e.actions[role] = action }
}

// WithHooks appends lifecycle hooks.
func WithHooks(hooks *domain.LifecycleHooks) Option {
	return func(e *Engine) { e.hooks.Merge(hooks) }
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// WithClock overrides the time source used for log entries.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// WithParserConfig sets the host parser settings used when a saved state is
// loaded. Overrides recorded in the scenario still win.
func WithParserConfig(cfg domain.ParserConfig) Option {
	return func(e *Engine) { e.parser = cfg.Clone() }
}

// NewEngine creates an engine with no scenario loaded.
func NewEngine(opts ...Option) *Engine {
	e := &Engine{
		actions: map[string]domain.Action{},
		hooks:   domain.NewLifecycleHooks(),
		logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// State returns the live state, nil before Init or Load.
func (e *Engine) State() *domain.State { return e.state }

// Scenario returns the loaded scenario, nil before Init or Load.
func (e *Engine) Scenario() *Scenario { return e.scenario }

func (e *Engine) ready() bool {
	return e.state != nil && e.scenario != nil
}

// Init resets the session to idle on scenario with the full act order queued.
func (e *Engine) Init(scenario *Scenario) *Engine {
	e.scenario = scenario
	e.state = domain.NewState(scenario.Data())
	if e.fullLog {
		e.state.Log = []domain.LogEntry{}
	}
	if e.trackCost {
		e.state.Cost = &domain.CostLedger{Requests: []domain.CostItem{}}
	}
	e.logger.Debug("scenario initialized", "acts", len(e.state.Queue))
	e.runMessageHooks(domain.HookAfterInit, e.state.History)
	return e
}

// Load replaces the session with a saved state.
func (e *Engine) Load(state *domain.State) *Engine {
	if state == nil {
		return e
	}
	e.scenario = NewScenario(state.Scenario, e.parser)
	e.state = state
	if e.state.Context == nil {
		e.state.Context = domain.Context{}
	}
	e.logger.Debug("state loaded", "act", state.Act, "queue", len(state.Queue))
	e.runMessageHooks(domain.HookAfterLoad, e.state.History)
	return e
}

// Save returns the live state for persistence.
func (e *Engine) Save() *domain.State {
	if e.state == nil {
		return nil
	}
	e.runMessageHooks(domain.HookBeforeSave, e.state.History)
	return e.state
}

// ClearContext drops the running context. Recorded contexts are kept.
func (e *Engine) ClearContext() *Engine {
	e.runMessageHooks(domain.HookBeforeClearContext, nil)
	if e.state != nil {
		e.state.Context = domain.Context{}
	}
	return e
}

// Execute plays act (the current act when empty) against ctx merged into the
// running context and appends the result to history. It returns nil when
// there is no scenario or the act does not exist.
func (e *Engine) Execute(ctx domain.Context, act string) []domain.Message {
	if !e.ready() {
		return nil
	}
	if act == "" {
		act = e.CurrentAct()
	}
	if act == "" || e.scenario.Act(act) == nil {
		e.logger.Debug("execute skipped, unknown act", "act", act)
		return nil
	}
	if ctx == nil {
		ctx = domain.Context{}
	}

	e.state.Act = act
	e.state.Context = domain.MergeContexts(e.state.Context, ctx)
	e.state.Contexts = append(e.state.Contexts, ctx)

	messages := e.buildMessages(act)
	e.state.History = append(e.state.History, messages...)
	e.logger.Debug("act executed", "act", act, "messages", len(messages))
	return messages
}

// Next moves to the next queued act and executes it. It returns nil once the
// queue is exhausted, leaving the state terminal. With returnHistory the
// whole history is returned instead of the act's messages.
func (e *Engine) Next(ctx domain.Context, returnHistory bool) []domain.Message {
	if !e.ready() {
		return nil
	}
	e.runMessageHooks(domain.HookBeforeNext, e.state.History)

	if len(e.state.Queue) == 0 {
		e.state.Act = ""
		e.logger.Debug("queue exhausted")
		return nil
	}
	act := e.state.Queue[0]
	e.state.Queue = e.state.Queue[1:]
	e.state.Act = act

	messages := e.Execute(ctx, act)
	if returnHistory {
		return e.state.History
	}
	if messages == nil {
		messages = []domain.Message{}
	}
	return e.runMessageHooks(domain.HookNextReturns, messages)
}

// Answer records caller supplied messages, typically an LLM reply.
func (e *Engine) Answer(messages ...domain.Message) {
	e.PushMessage(messages...)
}

// PushMessage appends messages to history after the beforePushMessage hooks.
func (e *Engine) PushMessage(messages ...domain.Message) {
	if e.state == nil || len(messages) == 0 {
		return
	}
	messages = e.runMessageHooks(domain.HookBeforePushMessage, messages)
	e.state.History = append(e.state.History, messages...)
}

// Messages returns the history as seen through the beforeGetMessages hooks.
func (e *Engine) Messages(act string) []domain.Message {
	if act == "" {
		act = e.CurrentAct()
	}
	if !e.ready() || act == "" {
		return nil
	}
	return e.runMessageHooks(domain.HookBeforeGetMessages, e.state.History)
}

// Contexts returns every context passed so far.
func (e *Engine) Contexts() []domain.Context {
	if e.state == nil {
		return nil
	}
	return domain.RunHooks(e.hooks.Contexts(domain.HookBeforeGetContexts), e.state.Contexts, e.state, e.state.Scenario)
}

// PushContext records contexts without executing an act.
func (e *Engine) PushContext(contexts ...domain.Context) {
	if e.state == nil {
		return
	}
	contexts = domain.RunHooks(e.hooks.Contexts(domain.HookBeforePushContext), contexts, e.state, e.state.Scenario)
	e.state.Contexts = append(e.state.Contexts, contexts...)
}

// End stops the session and returns the final history.
func (e *Engine) End() []domain.Message {
	if e.state == nil {
		return nil
	}
	e.state.Act = ""
	e.state.Queue = []string{}
	return e.state.History
}

// Reset returns the session to idle on the same scenario.
func (e *Engine) Reset() *Engine {
	if e.scenario == nil {
		return e
	}
	return e.Init(e.scenario)
}

// CurrentAct is the act being played, else the first act, else the default act.
func (e *Engine) CurrentAct() string {
	if e.state != nil {
		if e.state.Act != "" {
			return e.state.Act
		}
		if e.state.Scenario != nil && len(e.state.Scenario.Order) > 0 {
			return e.state.Scenario.Order[0]
		}
	}
	if e.scenario != nil {
		return e.scenario.DefaultAct()
	}
	return ""
}

// CurrentActData returns the compiled current act.
func (e *Engine) CurrentActData() *domain.Act {
	return e.ActData(e.CurrentAct())
}

// Queue lists the acts that follow the current act in scenario order.
func (e *Engine) Queue() []string {
	act := e.CurrentAct()
	if e.state == nil || e.state.Scenario == nil || act == "" {
		return []string{}
	}
	order := e.state.Scenario.Order
	i := slices.Index(order, act)
	if i < 0 {
		return []string{}
	}
	return append([]string{}, order[i+1:]...)
}

func (e *Engine) readQueue() []string {
	if e.state == nil {
		return nil
	}
	return domain.RunHooks(e.hooks.Queue(), e.state.Queue, e.state, e.state.Scenario)
}

// HasNext reports whether Next would play another act.
func (e *Engine) HasNext() bool {
	return len(e.readQueue()) > 0
}

// NextAct returns the act Next would play, or "".
func (e *Engine) NextAct() string {
	if q := e.readQueue(); len(q) > 0 {
		return q[0]
	}
	return ""
}

// NextActData returns the compiled next act.
func (e *Engine) NextActData() *domain.Act {
	return e.ActData(e.NextAct())
}

// ActData returns the compiled act or nil.
func (e *Engine) ActData(act string) *domain.Act {
	if act == "" || e.state == nil {
		return nil
	}
	return e.state.Scenario.Act(act)
}

// ConfigValue reads a top-level key through the config chain of act. An
// empty string reads as true so bare `key=` directives act as flags.
func (e *Engine) ConfigValue(key, act string) any {
	if e.scenario == nil {
		return nil
	}
	cfg := e.scenario.ActConfig(act, true)
	if cfg == nil {
		return nil
	}
	v, ok := cfg.Get(key)
	if !ok {
		return nil
	}
	if s, isStr := v.(string); isStr && s == "" {
		return true
	}
	return v
}

// AddCost appends a usage record and returns the running total, or nil when
// cost tracking is off.
func (e *Engine) AddCost(item domain.CostItem) *domain.CostItem {
	if e.state == nil || !e.trackCost {
		return nil
	}
	if e.state.Cost == nil {
		e.state.Cost = &domain.CostLedger{Requests: []domain.CostItem{}}
	}
	e.state.Cost.Requests = append(e.state.Cost.Requests, item)
	e.state.Cost.Total = e.state.Cost.Total.Add(item)
	total := e.state.Cost.Total
	return &total
}

// Log records a request/response exchange when full logging is on.
func (e *Engine) Log(request, response any, extra map[string]any) {
	if e.state == nil || !e.fullLog {
		return
	}
	e.state.Log = append(e.state.Log, domain.LogEntry{
		Timestamp: e.now(),
		Request:   request,
		Response:  response,
		Extra:     extra,
	})
}

// PrintHistory renders history as `role:` lines followed by tab-indented
// content, skipping the given roles.
func (e *Engine) PrintHistory(skipRoles ...string) string {
	if !e.ready() {
		return ""
	}
	e.runMessageHooks(domain.HookBeforePrintHistory, e.state.History)

	var blocks []string
	for _, msg := range e.state.History {
		if slices.Contains(skipRoles, msg.Role) {
			continue
		}
		blocks = append(blocks, msg.Role+":\n\t"+strings.ReplaceAll(msg.Content, "\n", "\n\t"))
	}
	return strings.Join(blocks, "\n\n")
}

// buildMessages runs the built messages of act through the role actions and
// the afterBuild hooks.
func (e *Engine) buildMessages(act string) []domain.Message {
	var out []domain.Message
	for _, b := range e.scenario.build(e.state.Context, act) {
		action, ok := e.actions[b.message.Role]
		if !ok || action == nil {
			out = append(out, b.message)
			continue
		}
		out = append(out, action(b.message.Content, e.scenario.MessageConfig(act, b.index), e.state.Context, act, e.state)...)
	}
	if out == nil {
		out = []domain.Message{}
	}
	return e.runMessageHooks(domain.HookAfterBuild, out)
}

func (e *Engine) runMessageHooks(point domain.HookPoint, value []domain.Message) []domain.Message {
	if e.state == nil {
		return value
	}
	return domain.RunHooks(e.hooks.Messages(point), value, e.state, e.state.Scenario)
}
