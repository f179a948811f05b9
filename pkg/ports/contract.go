package ports

import (
	"context"
	"testing"
	"time"

	"github.com/aretw0/actscript/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func contractScenario() *domain.ScenarioData {
	data := domain.NewScenarioData()
	data.AddAct("default").Messages = []domain.Message{{Role: "system", Content: "Hello {name}"}}
	data.Acts["default"].HasPlaceholders = true
	data.Acts["default"].Placeholders = map[string]any{"name": nil}
	data.AddAct("Final").Config.Set("loop", true)
	data.Config.Set("parserOverrides.keys.role", "sender")
	return data
}

// RunStateStoreContract runs a suite of tests to verify that a StateStore implementation
// adheres to the defined interface contract.
func RunStateStoreContract(t *testing.T, store StateStore) {
	ctx := context.Background()
	sessionID := "contract-test-session-" + time.Now().Format("20060102150405")

	t.Run("Save and Load", func(t *testing.T) {
		state := domain.NewState(contractScenario())
		state.SessionID = sessionID
		state.Act = "default"
		state.Queue = []string{"Final"}
		state.History = append(state.History, domain.Message{Role: "system", Content: "Hello Ann"})
		state.Context["name"] = "Ann"
		state.Context["count"] = 42
		state.Contexts = append(state.Contexts, domain.Context{"name": "Ann"})

		err := store.Save(ctx, sessionID, state)
		require.NoError(t, err, "Save should not return error")

		loaded, err := store.Load(ctx, sessionID)
		require.NoError(t, err, "Load should not return error")
		assert.Equal(t, "default", loaded.Act)
		assert.Equal(t, []string{"Final"}, loaded.Queue)
		assert.Equal(t, state.History, loaded.History)
		assert.Equal(t, "Ann", loaded.Context["name"])
		// JSON backed stores turn numbers into float64; only presence is part of the contract.
		assert.NotNil(t, loaded.Context["count"])
		assert.Len(t, loaded.Contexts, 1)

		require.NotNil(t, loaded.Scenario)
		assert.Equal(t, []string{"default", "Final"}, loaded.Scenario.Order)
		assert.Equal(t, "sender", loaded.Scenario.ParserOverrides().Get("keys.role"))
		assert.Equal(t, true, loaded.Scenario.Act("Final").Config.Get("loop"))
	})

	t.Run("Load Is Isolated", func(t *testing.T) {
		state := domain.NewState(contractScenario())
		require.NoError(t, store.Save(ctx, sessionID, state))

		state.History = append(state.History, domain.Message{Role: "user", Content: "late"})
		state.Context["late"] = true

		loaded, err := store.Load(ctx, sessionID)
		require.NoError(t, err)
		assert.Empty(t, loaded.History, "mutations after Save must not leak into the store")
		assert.NotContains(t, loaded.Context, "late")
	})

	t.Run("Load Non-Existent", func(t *testing.T) {
		_, err := store.Load(ctx, "non-existent-"+sessionID)
		assert.ErrorIs(t, err, domain.ErrSessionNotFound)
	})

	t.Run("Delete", func(t *testing.T) {
		err := store.Save(ctx, sessionID, domain.NewState(contractScenario()))
		require.NoError(t, err)

		err = store.Delete(ctx, sessionID)
		require.NoError(t, err, "Delete should not return error")

		_, err = store.Load(ctx, sessionID)
		assert.ErrorIs(t, err, domain.ErrSessionNotFound, "Load after Delete should return ErrSessionNotFound")
	})

	t.Run("List", func(t *testing.T) {
		id1 := sessionID + "-1"
		id2 := sessionID + "-2"
		_ = store.Save(ctx, id1, domain.NewState(contractScenario()))
		_ = store.Save(ctx, id2, domain.NewState(contractScenario()))

		defer func() {
			_ = store.Delete(ctx, id1)
			_ = store.Delete(ctx, id2)
		}()

		sessions, err := store.List(ctx)
		require.NoError(t, err)
		assert.Contains(t, sessions, id1)
		assert.Contains(t, sessions, id2)
	})
}

// RunScriptLoaderContract verifies a ScriptLoader against a known set of
// scripts, keyed by ID with their expected text.
func RunScriptLoaderContract(t *testing.T, loader ScriptLoader, scripts map[string]string) {
	t.Helper()

	t.Run("GetScript", func(t *testing.T) {
		for id, text := range scripts {
			script, err := loader.GetScript(id)
			require.NoError(t, err, id)
			assert.Equal(t, id, script.ID)
			assert.Equal(t, text, script.Text)
		}
	})

	t.Run("GetScript Not Found", func(t *testing.T) {
		_, err := loader.GetScript("non-existent-script")
		assert.ErrorIs(t, err, domain.ErrScriptNotFound)
	})

	t.Run("ListScripts", func(t *testing.T) {
		ids, err := loader.ListScripts()
		require.NoError(t, err)
		assert.Len(t, ids, len(scripts))
		assert.IsNonDecreasing(t, ids)
		for id := range scripts {
			assert.Contains(t, ids, id)
		}
	})
}
