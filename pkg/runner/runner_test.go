package runner

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/aretw0/actscript"
	"github.com/aretw0/actscript/internal/testutils"
	"github.com/aretw0/actscript/pkg/adapters/memory"
	"github.com/aretw0/actscript/pkg/domain"
	"github.com/aretw0/actscript/pkg/session"
)

func newEngine(t *testing.T) *actscript.Engine {
	t.Helper()
	engine, err := actscript.New("", actscript.WithLoader(memory.NewLoader(map[string]string{
		"two": testutils.TwoActScript,
	})))
	if err != nil {
		t.Fatalf("Failed to create engine: %v", err)
	}
	return engine
}

func start(t *testing.T, engine *actscript.Engine) *domain.State {
	t.Helper()
	state, err := engine.Start(context.Background(), "two")
	if err != nil {
		t.Fatalf("Failed to start: %v", err)
	}
	return state
}

func run(t *testing.T, r *Runner, engine Engine, state *domain.State) *domain.State {
	t.Helper()
	type result struct {
		state *domain.State
		err   error
	}
	done := make(chan result, 1)
	go func() {
		s, err := r.Run(t.Context(), engine, state)
		done <- result{s, err}
	}()

	select {
	case res := <-done:
		if res.err != nil {
			t.Fatalf("Runner failed: %v", res.err)
		}
		return res.state
	case <-time.After(2 * time.Second):
		t.Fatal("Runner timed out")
	}
	return nil
}

func TestRunner_Run_BasicFlow(t *testing.T) {
	engine := newEngine(t)
	outBuf := &bytes.Buffer{}

	r := NewRunner(WithInputHandler(NewTextHandler(strings.NewReader("Ann\nhi\nbye\n"), outBuf)))
	final := run(t, r, engine, start(t, engine))

	out := outBuf.String()
	for _, want := range []string{"name> ", "Hello Ann", "Goodbye", "assistant> ", "[act Final]"} {
		if !strings.Contains(out, want) {
			t.Errorf("Expected %q in output, got:\n%s", want, out)
		}
	}

	if !final.Terminated() {
		t.Error("Expected the session to terminate after the last act")
	}
	want := []domain.Message{
		{Role: "system", Content: "Hello Ann"},
		{Role: "assistant", Content: "hi"},
		{Role: "system", Content: "Goodbye"},
		{Role: "assistant", Content: "bye"},
	}
	if len(final.History) != len(want) {
		t.Fatalf("Expected %d messages, got %v", len(want), final.History)
	}
	for i := range want {
		if final.History[i] != want[i] {
			t.Errorf("History[%d] = %v, want %v", i, final.History[i], want[i])
		}
	}
}

func TestRunner_Run_PersistsEachStep(t *testing.T) {
	engine := newEngine(t)
	store := memory.NewStore()

	r := NewRunner(
		WithInputHandler(NewTextHandler(strings.NewReader("Ann\n"), &bytes.Buffer{})),
		WithSessions(session.NewManager(store)),
		WithSessionID("cli"),
		WithAnswerRole("model"),
	)
	final := run(t, r, engine, start(t, engine))

	saved, err := store.Load(context.Background(), "cli")
	if err != nil {
		t.Fatalf("Expected session to be saved: %v", err)
	}
	if saved.Act != "default" || final.Act != "default" {
		t.Errorf("Expected the run to stop at EOF after the first act, got %q", saved.Act)
	}
	if len(saved.History) != 1 || saved.History[0].Content != "Hello Ann" {
		t.Errorf("Unexpected saved history: %v", saved.History)
	}
}

func TestRunner_Run_ExitCommand(t *testing.T) {
	engine := newEngine(t)

	r := NewRunner(WithInputHandler(NewTextHandler(strings.NewReader("Ann\nexit\n"), &bytes.Buffer{})))
	final := run(t, r, engine, start(t, engine))

	if final.Act != "default" || len(final.History) != 1 {
		t.Errorf("Expected to stop after the first act, got act=%q history=%v", final.Act, final.History)
	}
}

func TestRunner_Run_KnownContextSkipsPrompt(t *testing.T) {
	engine := newEngine(t)
	state := start(t, engine)
	state.Context = domain.Context{"name": "Cy"}
	outBuf := &bytes.Buffer{}

	r := NewRunner(
		WithInputHandler(NewTextHandler(strings.NewReader(""), outBuf)),
		WithoutReplies(),
	)
	final := run(t, r, engine, state)

	if strings.Contains(outBuf.String(), "name>") {
		t.Error("Did not expect a prompt for a known placeholder")
	}
	if !final.Terminated() {
		t.Error("Expected the session to terminate")
	}
	if len(final.History) != 2 || final.History[0].Content != "Hello Cy" {
		t.Errorf("Unexpected history: %v", final.History)
	}
}

func TestRunner_Run_Headless(t *testing.T) {
	engine := newEngine(t)
	inBuf := bytes.NewBufferString("\"Bo\"\n")
	outBuf := &bytes.Buffer{}

	r := NewRunner(WithInputHandler(NewJSONHandler(inBuf, outBuf)), WithoutReplies())
	final := run(t, r, engine, start(t, engine))

	if !final.Terminated() {
		t.Error("Expected the session to terminate")
	}

	var events []Event
	for _, line := range strings.Split(strings.TrimSpace(outBuf.String()), "\n") {
		var ev Event
		if err := json.Unmarshal([]byte(line), &ev); err != nil {
			t.Fatalf("Failed to decode %q: %v", line, err)
		}
		events = append(events, ev)
	}
	if len(events) == 0 || events[0].Type != EventInput || events[0].Prompt != "name" {
		t.Fatalf("Expected an input event for name first, got %+v", events)
	}
	found := false
	for _, ev := range events {
		if ev.Type == EventMessages && len(ev.Messages) == 1 && ev.Messages[0].Content == "Hello Bo" {
			found = true
		}
	}
	if !found {
		t.Errorf("Expected a messages event with 'Hello Bo', got %+v", events)
	}
}

func TestRunner_Run_NilState(t *testing.T) {
	r := NewRunner(WithInputHandler(NewTextHandler(strings.NewReader(""), &bytes.Buffer{})))
	if _, err := r.Run(context.Background(), newEngine(t), nil); !errors.Is(err, domain.ErrNotInitialized) {
		t.Errorf("Expected ErrNotInitialized, got %v", err)
	}
}

func TestRunner_Run_PlaceholderDefaultPrompt(t *testing.T) {
	engine := newEngine(t)
	state, err := engine.StartText(context.Background(), "user:\nPick {color|blue}")
	if err != nil {
		t.Fatalf("Failed to start: %v", err)
	}
	outBuf := &bytes.Buffer{}

	r := NewRunner(WithInputHandler(NewTextHandler(strings.NewReader("\n"), outBuf)), WithoutReplies())
	final := run(t, r, engine, state)

	if !strings.Contains(outBuf.String(), "color [blue]> ") {
		t.Errorf("Expected the default in the prompt, got:\n%s", outBuf.String())
	}
	if len(final.History) != 1 || final.History[0].Content != "Pick blue" {
		t.Errorf("Expected the default to fill the placeholder, got %v", final.History)
	}
}

func TestRunner_Run_TypedPlaceholderRetries(t *testing.T) {
	engine := newEngine(t)
	state, err := engine.StartText(context.Background(), "% use schema.age int\n\nuser:\nI am {age}")
	if err != nil {
		t.Fatalf("Failed to start: %v", err)
	}
	outBuf := &bytes.Buffer{}

	r := NewRunner(WithInputHandler(NewTextHandler(strings.NewReader("old\n42\n"), outBuf)), WithoutReplies())
	final := run(t, r, engine, state)

	if !strings.Contains(outBuf.String(), "[invalid value: expected int") {
		t.Errorf("Expected a retry notice, got:\n%s", outBuf.String())
	}
	if age, ok := final.Context["age"].(float64); !ok || age != 42 {
		t.Errorf("Expected a numeric age in context, got %#v", final.Context["age"])
	}
	if len(final.History) != 1 || final.History[0].Content != "I am 42" {
		t.Errorf("Unexpected history: %v", final.History)
	}
}
