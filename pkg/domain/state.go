package domain

import "time"

// State is the live snapshot of a scenario session. It is plain data and
// round-trips through JSON unchanged.
type State struct {
	// SessionID is set by hosts that persist the state. The engine ignores it.
	SessionID string `json:"sessionId,omitempty"`

	Scenario *ScenarioData `json:"scenario"`

	// Act is the act being played. Empty means idle.
	Act string `json:"act,omitempty"`

	// Queue holds the acts not yet visited, in scenario order.
	Queue []string `json:"queue"`

	History []Message `json:"history"`

	// Contexts records every context passed to Execute, in call order.
	Contexts []Context `json:"contexts"`

	// Context is the running merge of Contexts.
	Context Context `json:"context"`

	Log  []LogEntry  `json:"log,omitempty"`
	Cost *CostLedger `json:"cost,omitempty"`
}

// NewState creates an idle state for the given scenario.
func NewState(scenario *ScenarioData) *State {
	s := &State{
		Scenario: scenario,
		Queue:    []string{},
		History:  []Message{},
		Contexts: []Context{},
		Context:  Context{},
	}
	if scenario != nil {
		s.Queue = append(s.Queue, scenario.Order...)
	}
	return s
}

// Terminated reports whether every act has been played.
func (s *State) Terminated() bool {
	return s.Act == "" && len(s.Queue) == 0
}

// Snapshot returns a deep copy detached from s. The compiled scenario is
// shared since nothing mutates it after compilation.
func (s *State) Snapshot() *State {
	if s == nil {
		return nil
	}
	out := *s
	out.Queue = append([]string{}, s.Queue...)
	out.History = append([]Message{}, s.History...)
	out.Contexts = make([]Context, len(s.Contexts))
	for i, c := range s.Contexts {
		out.Contexts[i] = c.Clone()
	}
	out.Context = s.Context.Clone()
	if s.Log != nil {
		out.Log = make([]LogEntry, len(s.Log))
		for i, entry := range s.Log {
			entry.Extra = cloneMap(entry.Extra)
			out.Log[i] = entry
		}
	}
	if s.Cost != nil {
		cost := *s.Cost
		cost.Requests = append([]CostItem{}, s.Cost.Requests...)
		out.Cost = &cost
	}
	return &out
}

// CostItem is a token usage record as reported by an LLM provider.
type CostItem struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// Add returns the field-wise sum.
func (c CostItem) Add(other CostItem) CostItem {
	return CostItem{
		PromptTokens:     c.PromptTokens + other.PromptTokens,
		CompletionTokens: c.CompletionTokens + other.CompletionTokens,
		TotalTokens:      c.TotalTokens + other.TotalTokens,
	}
}

// CostLedger is an append-only list of usage records and their running total.
type CostLedger struct {
	Requests []CostItem `json:"requests"`
	Total    CostItem   `json:"total"`
}

// LogEntry records one request/response exchange.
type LogEntry struct {
	Timestamp time.Time      `json:"timestamp"`
	Request   any            `json:"request,omitempty"`
	Response  any            `json:"response,omitempty"`
	Extra     map[string]any `json:"extra,omitempty"`
}
