package domain

// HookPoint names a lifecycle extension point.
type HookPoint string

const (
	HookAfterInit          HookPoint = "afterInit"
	HookAfterLoad          HookPoint = "afterLoad"
	HookBeforeSave         HookPoint = "beforeSave"
	HookBeforeClearContext HookPoint = "beforeClearContext"
	HookAfterBuild         HookPoint = "afterBuild"
	HookBeforeNext         HookPoint = "beforeNext"
	HookBeforePrintHistory HookPoint = "beforePrintHistory"
	HookBeforePushMessage  HookPoint = "beforePushMessage"
	HookBeforeGetMessages  HookPoint = "beforeGetMessages"
	HookNextReturns        HookPoint = "nextReturns"
	HookBeforePushContext  HookPoint = "beforePushContext"
	HookBeforeGetContexts  HookPoint = "beforeGetContexts"
	HookGetActQueue        HookPoint = "getActQueue"
)

// Hook reduces a value at a lifecycle point. Returning nil keeps the value.
type Hook[T any] func(value []T, state *State, scenario *ScenarioData) []T

// RunHooks threads value through hooks in order.
func RunHooks[T any](hooks []Hook[T], value []T, state *State, scenario *ScenarioData) []T {
	for _, h := range hooks {
		if next := h(value, state, scenario); next != nil {
			value = next
		}
	}
	return value
}

// LifecycleHooks holds the hooks registered per point, in registration order.
// Message-valued points take Hook[Message], context-valued points take
// Hook[Context] and the queue read takes Hook[string].
type LifecycleHooks struct {
	messages map[HookPoint][]Hook[Message]
	contexts map[HookPoint][]Hook[Context]
	queue    []Hook[string]
}

// NewLifecycleHooks returns an empty registry.
func NewLifecycleHooks() *LifecycleHooks {
	return &LifecycleHooks{
		messages: map[HookPoint][]Hook[Message]{},
		contexts: map[HookPoint][]Hook[Context]{},
	}
}

// OnMessages registers a hook for a message-valued point.
func (h *LifecycleHooks) OnMessages(point HookPoint, fn Hook[Message]) *LifecycleHooks {
	h.messages[point] = append(h.messages[point], fn)
	return h
}

// OnContexts registers a hook for beforePushContext or beforeGetContexts.
func (h *LifecycleHooks) OnContexts(point HookPoint, fn Hook[Context]) *LifecycleHooks {
	h.contexts[point] = append(h.contexts[point], fn)
	return h
}

// OnQueueRead registers a getActQueue hook.
func (h *LifecycleHooks) OnQueueRead(fn Hook[string]) *LifecycleHooks {
	h.queue = append(h.queue, fn)
	return h
}

// Messages returns the hooks of a message-valued point.
func (h *LifecycleHooks) Messages(point HookPoint) []Hook[Message] {
	if h == nil {
		return nil
	}
	return h.messages[point]
}

// Contexts returns the hooks of a context-valued point.
func (h *LifecycleHooks) Contexts(point HookPoint) []Hook[Context] {
	if h == nil {
		return nil
	}
	return h.contexts[point]
}

// Queue returns the getActQueue hooks.
func (h *LifecycleHooks) Queue() []Hook[string] {
	if h == nil {
		return nil
	}
	return h.queue
}

// Merge appends every hook of other after the ones already registered.
func (h *LifecycleHooks) Merge(other *LifecycleHooks) *LifecycleHooks {
	if other == nil {
		return h
	}
	for p, list := range other.messages {
		h.messages[p] = append(h.messages[p], list...)
	}
	for p, list := range other.contexts {
		h.contexts[p] = append(h.contexts[p], list...)
	}
	h.queue = append(h.queue, other.queue...)
	return h
}

// Action replaces a built message of a given role. A nil or empty result
// drops the message.
type Action func(content string, messageConfig Config, ctx Context, act string, state *State) []Message

// StaticAction always yields msgs.
func StaticAction(msgs ...Message) Action {
	return func(string, Config, Context, string, *State) []Message {
		return append([]Message(nil), msgs...)
	}
}

// DropAction removes every message of the role it is registered for.
func DropAction(string, Config, Context, string, *State) []Message {
	return nil
}
