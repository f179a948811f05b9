package actscript_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/actscript"
	"github.com/aretw0/actscript/internal/testutils"
	"github.com/aretw0/actscript/pkg/adapters/memory"
	"github.com/aretw0/actscript/pkg/domain"
)

func newEngine(t *testing.T, opts ...actscript.Option) *actscript.Engine {
	t.Helper()
	loader, err := memory.NewFromScripts(
		domain.Script{ID: "colors", Text: testutils.ColorsScript},
		domain.Script{ID: "two", Text: testutils.TwoActScript},
		domain.Script{
			ID:      "seeded",
			Text:    "user:\n{greeting} {name}\n\n[Next]\n\nuser:\n{missing}",
			Parser:  domain.Config{"defaultPlaceholder": "N/A"},
			Context: domain.Context{"greeting": "Hello"},
		},
	)
	require.NoError(t, err)

	eng, err := actscript.New("", append([]actscript.Option{actscript.WithLoader(loader)}, opts...)...)
	require.NoError(t, err)
	return eng
}

func TestNew_RequiresPathWithoutLoader(t *testing.T) {
	_, err := actscript.New("")
	assert.Error(t, err)
}

func TestEngine_ScriptsAndCompile(t *testing.T) {
	eng := newEngine(t)

	ids, err := eng.Scripts()
	require.NoError(t, err)
	assert.Equal(t, []string{"colors", "seeded", "two"}, ids)

	_, err = eng.Start(context.Background(), "missing")
	assert.ErrorIs(t, err, domain.ErrScriptNotFound)

	data := eng.Compile(testutils.ColorsScript)
	assert.Equal(t, []string{"default", "Choice", "Final"}, data.Order)
}

func TestEngine_OperationsDoNotMutateInput(t *testing.T) {
	eng := newEngine(t)
	ctx := context.Background()

	start, err := eng.Start(ctx, "two")
	require.NoError(t, err)

	next, msgs, err := eng.Next(ctx, start, domain.Context{"name": "Ann"})
	require.NoError(t, err)
	assert.Equal(t, []domain.Message{{Role: "system", Content: "Hello Ann"}}, msgs)

	assert.Equal(t, "", start.Act)
	assert.Empty(t, start.History)
	assert.Equal(t, []string{"default", "Final"}, start.Queue)

	assert.Equal(t, "default", next.Act)
	assert.Equal(t, []string{"Final"}, next.Queue)

	answered, err := eng.Answer(ctx, next, domain.Message{Role: "assistant", Content: "Hi"})
	require.NoError(t, err)
	assert.Len(t, next.History, 1)
	assert.Len(t, answered.History, 2)

	final, msgs, err := eng.Next(ctx, answered, nil)
	require.NoError(t, err)
	assert.Equal(t, "Goodbye", msgs[0].Content)
	assert.Equal(t, "Ann", final.Context["name"])

	done, msgs, err := eng.Next(ctx, final, nil)
	require.NoError(t, err)
	assert.Nil(t, msgs)
	assert.True(t, done.Terminated())
}

func TestEngine_ScriptSettingsSurviveSnapshots(t *testing.T) {
	eng := newEngine(t)
	ctx := context.Background()

	state, err := eng.Start(ctx, "seeded")
	require.NoError(t, err)
	assert.Equal(t, "Hello", state.Context["greeting"])

	state, msgs, err := eng.Next(ctx, state, nil)
	require.NoError(t, err)
	assert.Equal(t, "Hello N/A", msgs[0].Content)

	_, msgs, err = eng.Next(ctx, state, nil)
	require.NoError(t, err)
	assert.Equal(t, "N/A", msgs[0].Content)
}

func TestEngine_Execute(t *testing.T) {
	eng := newEngine(t)
	ctx := context.Background()
	state, err := eng.Start(ctx, "colors")
	require.NoError(t, err)

	out, msgs, err := eng.Execute(ctx, state, "Final", domain.Context{"area": "ocean"})
	require.NoError(t, err)
	assert.Equal(t, "Let it be something from ocean area", msgs[2].Content)
	assert.Equal(t, "Final", out.Act)
	assert.Equal(t, state.Queue, out.Queue, "execute leaves the queue alone")

	_, _, err = eng.Execute(ctx, state, "Nope", nil)
	assert.ErrorIs(t, err, domain.ErrActNotFound)
}

func TestEngine_NotInitialized(t *testing.T) {
	eng := newEngine(t)
	ctx := context.Background()

	_, _, err := eng.Next(ctx, nil, nil)
	assert.ErrorIs(t, err, domain.ErrNotInitialized)

	_, err = eng.Answer(ctx, &domain.State{})
	assert.ErrorIs(t, err, domain.ErrNotInitialized)
}

func TestEngine_CanceledContext(t *testing.T) {
	eng := newEngine(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := eng.Start(ctx, "two")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestEngine_CostAndLog(t *testing.T) {
	at := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	eng := newEngine(t,
		actscript.WithCostTracking(true),
		actscript.WithFullLog(true),
		actscript.WithClock(func() time.Time { return at }),
	)
	ctx := context.Background()
	state, err := eng.Start(ctx, "two")
	require.NoError(t, err)

	state, total, err := eng.AddCost(ctx, state, domain.CostItem{PromptTokens: 3, CompletionTokens: 2, TotalTokens: 5})
	require.NoError(t, err)
	state, total, err = eng.AddCost(ctx, state, domain.CostItem{TotalTokens: 1})
	require.NoError(t, err)
	assert.Equal(t, 6, total.TotalTokens)
	assert.Len(t, state.Cost.Requests, 2)

	state, err = eng.Log(ctx, state, "req", "resp", map[string]any{"model": "m"})
	require.NoError(t, err)
	require.Len(t, state.Log, 1)
	assert.Equal(t, at, state.Log[0].Timestamp)

	plain := newEngine(t)
	s, err := plain.Start(ctx, "two")
	require.NoError(t, err)
	_, total, err = plain.AddCost(ctx, s, domain.CostItem{TotalTokens: 1})
	require.NoError(t, err)
	assert.Nil(t, total)
}

func TestEngine_HooksAndActions(t *testing.T) {
	var points []domain.HookPoint
	record := func(p domain.HookPoint) domain.Hook[domain.Message] {
		return func(v []domain.Message, _ *domain.State, _ *domain.ScenarioData) []domain.Message {
			points = append(points, p)
			return nil
		}
	}
	hooks := domain.NewLifecycleHooks().
		OnMessages(domain.HookAfterInit, record(domain.HookAfterInit)).
		OnMessages(domain.HookAfterLoad, record(domain.HookAfterLoad)).
		OnMessages(domain.HookBeforeSave, record(domain.HookBeforeSave))

	eng := newEngine(t,
		actscript.WithLifecycleHooks(hooks),
		actscript.WithAction("output", domain.DropAction),
	)
	ctx := context.Background()

	state, err := eng.Start(ctx, "colors")
	require.NoError(t, err)
	assert.Equal(t, []domain.HookPoint{domain.HookAfterInit, domain.HookBeforeSave}, points)

	state, _, err = eng.Next(ctx, state, nil)
	require.NoError(t, err)
	_, msgs, err := eng.Next(ctx, state, nil)
	require.NoError(t, err)
	assert.Equal(t, []domain.Message{{Role: "user", Content: "I choose random color to not use of the placeholder"}}, msgs)
	assert.Equal(t, domain.HookAfterLoad, points[2])
}

func TestEngine_EndHistoryInspect(t *testing.T) {
	eng := newEngine(t)
	ctx := context.Background()
	state, err := eng.Start(ctx, "colors")
	require.NoError(t, err)

	status, err := eng.Inspect(ctx, state)
	require.NoError(t, err)
	assert.Equal(t, "default", status.NextAct)
	assert.Equal(t, []string{"name"}, status.Placeholders)
	assert.False(t, status.Terminated)

	state, _, err = eng.Next(ctx, state, domain.Context{"name": "Ann"})
	require.NoError(t, err)

	history, err := eng.History(ctx, state, "system")
	require.NoError(t, err)
	assert.Equal(t, "user:\n\tHi, my name is Ann", history)

	msgs, err := eng.Messages(ctx, state)
	require.NoError(t, err)
	assert.Len(t, msgs, 3)

	ended, final, err := eng.End(ctx, state)
	require.NoError(t, err)
	assert.Len(t, final, 3)
	assert.True(t, ended.Terminated())

	status, err = eng.Inspect(ctx, ended)
	require.NoError(t, err)
	assert.True(t, status.Terminated)
	assert.Empty(t, status.Placeholders)
}

func TestEngine_Keys(t *testing.T) {
	eng := newEngine(t)
	state, err := eng.Start(context.Background(), "colors")
	require.NoError(t, err)

	assert.Equal(t, "sender", eng.Keys(state).Role)
	assert.Equal(t, "role", eng.Keys(nil).Role)
}

func TestEngine_TypedContext(t *testing.T) {
	eng := newEngine(t)
	ctx := context.Background()

	st, err := eng.StartText(ctx, "% use schema.age int\n% use schema.user.vip bool\n\nuser:\nI am {age}\n\n[Two]\n\nuser:\nVIP {user.vip}")
	require.NoError(t, err)

	status, err := eng.Inspect(ctx, st)
	require.NoError(t, err)
	require.Len(t, status.Schema, 2)
	assert.Equal(t, "int", status.Schema["age"].Name())

	_, _, err = eng.Next(ctx, st, domain.Context{"age": "old"})
	assert.ErrorIs(t, err, domain.ErrInvalidContext)

	_, _, err = eng.Execute(ctx, st, "Two", domain.Context{"user": map[string]any{"vip": "yes"}})
	assert.ErrorIs(t, err, domain.ErrInvalidContext)

	st, msgs, err := eng.Next(ctx, st, domain.Context{"age": 42.0, "name": "free text"})
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	assert.Equal(t, "I am 42", msgs[0].Content)
}
