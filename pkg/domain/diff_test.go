package domain

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDiff(t *testing.T) {
	base := &State{
		SessionID: "sess-1",
		Act:       "intro",
		Queue:     []string{"outro"},
		Context:   Context{"a": 1.0},
		History:   []Message{{Role: "system", Content: "hi"}},
	}

	t.Run("Initial Load", func(t *testing.T) {
		diff := Diff(nil, base)
		require.NotNil(t, diff)
		assert.Equal(t, "intro", *diff.Act)
		assert.Equal(t, []string{"outro"}, diff.Queue)
		assert.Equal(t, map[string]any{"a": 1.0}, diff.Context)
		assert.Len(t, diff.History.Appended, 1)
	})

	t.Run("No Changes", func(t *testing.T) {
		assert.Nil(t, Diff(base, base.Snapshot()))
	})

	t.Run("Next Act", func(t *testing.T) {
		next := base.Snapshot()
		next.Act = "outro"
		next.Queue = []string{}
		next.Context["b"] = "x"
		delete(next.Context, "a")
		next.History = append(next.History, Message{Role: "user", Content: "bye"})

		diff := Diff(base, next)
		require.NotNil(t, diff)
		assert.Equal(t, "outro", *diff.Act)
		assert.Equal(t, []string{}, diff.Queue)
		assert.Equal(t, map[string]any{"a": nil, "b": "x"}, diff.Context)
		assert.Equal(t, []Message{{Role: "user", Content: "bye"}}, diff.History.Appended)
	})

	t.Run("Cost Change", func(t *testing.T) {
		next := base.Snapshot()
		next.Cost = &CostLedger{Total: CostItem{TotalTokens: 10}}
		diff := Diff(base, next)
		require.NotNil(t, diff)
		assert.Equal(t, 10, diff.Cost.TotalTokens)
	})
}

func TestDiffJSONSerialization(t *testing.T) {
	act := "intro"
	diff := &StateDiff{SessionID: "s", Act: &act}

	data, err := json.Marshal(diff)
	require.NoError(t, err)
	assert.JSONEq(t, `{"session_id":"s","act":"intro"}`, string(data))
}
