package domain

import (
	"reflect"
)

// StateDiff represents the changes between two states.
// It is designed to be serialized to JSON for partial updates on the client.
type StateDiff struct {
	// SessionID is always present to identify the target.
	SessionID string `json:"session_id"`

	Act   *string  `json:"act,omitempty"`
	Queue []string `json:"queue,omitempty"`

	// Context contains only changed, added or deleted keys.
	// For deletions, the key is present with a nil value.
	Context map[string]any `json:"context,omitempty"`

	// History contains the messages appended since the old state.
	History *HistoryDelta `json:"history,omitempty"`

	Cost *CostItem `json:"cost,omitempty"`
}

// HistoryDelta lists messages appended to history.
type HistoryDelta struct {
	Appended []Message `json:"appended"`
}

// Diff calculates the difference between oldState and newState.
// If oldState is nil, it returns a diff representing the entire newState.
func Diff(oldState, newState *State) *StateDiff {
	if newState == nil {
		return nil
	}

	diff := &StateDiff{
		SessionID: newState.SessionID,
	}

	if oldState == nil || oldState.Act != newState.Act {
		act := newState.Act
		diff.Act = &act
	}
	if oldState == nil || !reflect.DeepEqual(oldState.Queue, newState.Queue) {
		diff.Queue = append([]string{}, newState.Queue...)
	}
	diff.Context = diffContext(oldState, newState)
	diff.History = diffHistory(oldState, newState)

	if newState.Cost != nil && (oldState == nil || oldState.Cost == nil || oldState.Cost.Total != newState.Cost.Total) {
		total := newState.Cost.Total
		diff.Cost = &total
	}

	if diff.IsEmpty() {
		return nil
	}
	return diff
}

func diffContext(old *State, new *State) map[string]any {
	delta := make(map[string]any)

	if old == nil {
		for k, v := range new.Context {
			delta[k] = v
		}
	} else {
		for k, newVal := range new.Context {
			oldVal, exists := old.Context[k]
			if !exists || !reflect.DeepEqual(oldVal, newVal) {
				delta[k] = newVal
			}
		}
		for k := range old.Context {
			if _, exists := new.Context[k]; !exists {
				delta[k] = nil
			}
		}
	}

	if len(delta) == 0 {
		return nil
	}
	return delta
}

// diffHistory assumes history is append-only.
func diffHistory(old *State, new *State) *HistoryDelta {
	if len(new.History) == 0 {
		return nil
	}
	if old == nil {
		return &HistoryDelta{Appended: new.History}
	}
	if len(new.History) > len(old.History) {
		return &HistoryDelta{Appended: new.History[len(old.History):]}
	}
	return nil
}

// IsEmpty checks if the diff contains any actionable changes.
func (d *StateDiff) IsEmpty() bool {
	return d.Act == nil &&
		d.Queue == nil &&
		len(d.Context) == 0 &&
		d.History == nil &&
		d.Cost == nil
}
