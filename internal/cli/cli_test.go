package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/aretw0/actscript/internal/config"
	"github.com/aretw0/actscript/internal/testutils"
	"github.com/aretw0/actscript/pkg/domain"
	"github.com/aretw0/actscript/pkg/persistence/middleware"
)

// setup writes a script library and a config file, then opens a runtime.
func setup(t *testing.T, config string) (*Runtime, string) {
	t.Helper()
	dir := t.TempDir()
	scripts := filepath.Join(dir, "scripts")
	require.NoError(t, os.MkdirAll(scripts, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(scripts, "two.scenario"), []byte(testutils.TwoActScript), 0o644))

	cfgPath := filepath.Join(dir, "actscript.yaml")
	config = "scripts: " + scripts + "\n" + config
	require.NoError(t, os.WriteFile(cfgPath, []byte(config), 0o644))

	rt, err := Open(Options{ConfigPath: cfgPath})
	require.NoError(t, err)
	t.Cleanup(func() { _ = rt.Close() })
	return rt, dir
}

const memoryConfig = "store:\n  backend: memory\n"

func TestOpen_Overrides(t *testing.T) {
	dir := t.TempDir()
	rt, err := Open(Options{
		ConfigPath: writeFile(t, dir, "c.yaml", memoryConfig),
		ScriptsDir: dir,
		SessionDir: filepath.Join(dir, "sessions"),
		LogFile:    filepath.Join(dir, "actscript.log"),
		Debug:      true,
		Metrics:    true,
	})
	require.NoError(t, err)
	defer rt.Close()

	assert.Equal(t, dir, rt.Config.Scripts)
	assert.Equal(t, filepath.Join(dir, "sessions"), rt.Config.Store.Dir)
	assert.Equal(t, "debug", rt.Config.Log.Level)
	assert.NotNil(t, rt.Metrics)

	rt.Logger.Debug("probe")
	_, err = os.Stat(filepath.Join(dir, "actscript.log"))
	assert.NoError(t, err, "log file is created")
}

func TestOpen_InvalidSecurity(t *testing.T) {
	dir := t.TempDir()
	_, err := Open(Options{ConfigPath: writeFile(t, dir, "c.yaml", memoryConfig+"security:\n  encryption_key: short\n")})
	assert.Error(t, err)

	_, err = Open(Options{ConfigPath: writeFile(t, dir, "d.yaml", memoryConfig+"security:\n  pii_keys: ['(']\n")})
	assert.Error(t, err)
}

func TestOpen_SQLiteWithSecurity(t *testing.T) {
	key := strings.Repeat("ab", 32)
	rt, _ := setup(t, "store:\n  backend: sqlite\n  sqlite:\n    path: "+filepath.Join(t.TempDir(), "s.db")+
		"\nsecurity:\n  encryption_key: "+key+"\n  pii_keys: ['^secret$']\n")
	ctx := context.Background()

	state, err := rt.Engine.Start(ctx, "two")
	require.NoError(t, err)
	state.Context["secret"] = "hunter2"
	state.Context["name"] = "Ann"
	require.NoError(t, rt.Sessions.Save(ctx, "enc", state))

	loaded, err := rt.Sessions.Load(ctx, "enc")
	require.NoError(t, err)
	assert.Equal(t, middleware.Mask, loaded.Context["secret"])
	assert.Equal(t, "Ann", loaded.Context["name"])

	ids, err := rt.Sessions.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"enc"}, ids)
}

func TestParseContext(t *testing.T) {
	ctx, err := ParseContext([]string{"name=Ann", "age=42", "tags=[\"a\",\"b\"]", "user.city=Lisbon", "empty="})
	require.NoError(t, err)

	assert.Equal(t, "Ann", ctx["name"])
	assert.Equal(t, 42.0, ctx["age"])
	assert.Equal(t, []any{"a", "b"}, ctx["tags"])
	city, ok := ctx.Lookup("user.city")
	assert.True(t, ok)
	assert.Equal(t, "Lisbon", city)
	assert.Equal(t, "", ctx["empty"])

	_, err = ParseContext([]string{"novalue"})
	assert.Error(t, err)
	_, err = ParseContext([]string{"=x"})
	assert.Error(t, err)
}

func TestScriptSource(t *testing.T) {
	rt, dir := setup(t, memoryConfig)

	path := writeFile(t, dir, "inline.scenario", "user:\nhi")
	script, err := ScriptSource(rt.Engine.Script, path)
	require.NoError(t, err)
	assert.Equal(t, "inline", script.ID)
	assert.Equal(t, "user:\nhi", script.Text)

	script, err = ScriptSource(rt.Engine.Script, "two")
	require.NoError(t, err)
	assert.Equal(t, "two", script.ID)

	_, err = ScriptSource(rt.Engine.Script, "missing")
	assert.ErrorIs(t, err, domain.ErrScriptNotFound)
}

func TestCompile(t *testing.T) {
	rt, _ := setup(t, memoryConfig)

	var buf bytes.Buffer
	require.NoError(t, Compile(rt, "two", FormatJSON, true, &buf))
	var out struct {
		Order []string           `json:"order"`
		Keys  domain.MessageKeys `json:"keys"`
	}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &out))
	assert.Equal(t, []string{"default", "Final"}, out.Order)
	assert.Equal(t, "role", out.Keys.Role)

	buf.Reset()
	require.NoError(t, Compile(rt, "two", FormatYAML, false, &buf))
	var y map[string]any
	require.NoError(t, yaml.Unmarshal(buf.Bytes(), &y))
	assert.Equal(t, []any{"default", "Final"}, y["order"])
	assert.NotContains(t, y, "keys")

	assert.Error(t, Compile(rt, "two", "xml", false, &buf))
}

func TestValidate(t *testing.T) {
	rt, dir := setup(t, memoryConfig)

	var buf bytes.Buffer
	require.NoError(t, Validate(rt, "two", &buf))
	assert.Equal(t, "Script \"two\" is valid (2 acts).\n", buf.String())

	buf.Reset()
	assert.Error(t, Validate(rt, writeFile(t, dir, "empty.scenario", "\n\n"), &buf))
	assert.Contains(t, buf.String(), "script defines no acts")
}

func TestRunSessionAndManage(t *testing.T) {
	rt, _ := setup(t, memoryConfig)
	ctx := context.Background()

	var out bytes.Buffer
	err := RunSession(ctx, rt, RunOptions{
		Script:    "two",
		SessionID: "s1",
		Input:     strings.NewReader("Ann\nhi\nbye\n"),
		Output:    &out,
	})
	require.NoError(t, err)
	assert.Contains(t, out.String(), "Session 's1' active.")
	assert.Contains(t, out.String(), "Hello Ann")
	assert.Contains(t, out.String(), "Finished.")

	var buf bytes.Buffer
	require.NoError(t, ListSessions(ctx, rt, &buf))
	assert.Contains(t, buf.String(), "- s1 (terminated)")

	buf.Reset()
	require.NoError(t, PrintHistory(ctx, rt, "s1", []string{"system"}, &buf))
	assert.Equal(t, "assistant:\n\thi\n\nassistant:\n\tbye\n", buf.String())

	buf.Reset()
	require.NoError(t, InspectSession(ctx, rt, "s1", &buf))
	assert.Contains(t, buf.String(), `"sessionId": "s1"`)

	buf.Reset()
	require.NoError(t, Graph(ctx, rt, "two", "s1", &buf))
	assert.Contains(t, buf.String(), "class __end current;")

	buf.Reset()
	require.NoError(t, RemoveSessions(ctx, rt, []string{"s1"}, &buf))
	assert.Contains(t, buf.String(), "Removed session 's1'")

	buf.Reset()
	require.NoError(t, ListSessions(ctx, rt, &buf))
	assert.Equal(t, "No active sessions found.\n", buf.String())

	assert.Error(t, InspectSession(ctx, rt, "s1", &buf))
}

func TestRunSession_ResumeWithContext(t *testing.T) {
	rt, _ := setup(t, memoryConfig)
	ctx := context.Background()

	// Stop after the first act (EOF on the reply).
	require.NoError(t, RunSession(ctx, rt, RunOptions{
		Script:    "two",
		SessionID: "r1",
		Context:   domain.Context{"name": "Bo"},
		Input:     strings.NewReader(""),
		Output:    &bytes.Buffer{},
	}))
	state, err := rt.Sessions.Load(ctx, "r1")
	require.NoError(t, err)
	assert.Equal(t, "default", state.Act)
	assert.Equal(t, "Hello Bo", state.History[0].Content)

	var out bytes.Buffer
	require.NoError(t, RunSession(ctx, rt, RunOptions{
		Script:    "two",
		SessionID: "r1",
		NoReplies: true,
		Input:     strings.NewReader(""),
		Output:    &out,
	}))
	assert.Contains(t, out.String(), "Resuming session 'r1' at act 'default'.")
	assert.Contains(t, out.String(), "Goodbye")

	// Fresh restarts from scratch.
	require.NoError(t, RunSession(ctx, rt, RunOptions{
		Script:    "two",
		SessionID: "r1",
		Fresh:     true,
		JSON:      true,
		Input:     strings.NewReader(""),
		Output:    &bytes.Buffer{},
	}))
	state, err = rt.Sessions.Load(ctx, "r1")
	require.NoError(t, err)
	assert.Empty(t, state.History, "EOF on the first placeholder leaves the new session untouched")
}

func TestDescribe(t *testing.T) {
	rt, _ := setup(t, memoryConfig)
	ctx := context.Background()

	state, err := rt.Engine.Start(ctx, "two")
	require.NoError(t, err)
	desc, err := Describe(ctx, rt.Engine, state)
	require.NoError(t, err)
	assert.Equal(t, `idle, next "default"`, desc)

	state, _, err = rt.Engine.Next(ctx, state, domain.Context{"name": "x"})
	require.NoError(t, err)
	desc, _ = Describe(ctx, rt.Engine, state)
	assert.Equal(t, `at "default", next "Final"`, desc)
}

func TestHandleExecutionError(t *testing.T) {
	assert.NoError(t, handleExecutionError(nil))
	assert.NoError(t, handleExecutionError(context.Canceled))
	assert.Error(t, handleExecutionError(assert.AnError))
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestNewLogger_LogFileWithoutDebug(t *testing.T) {
	path := filepath.Join(t.TempDir(), "run.log")
	logger, err := newLogger(config.LogConfig{Level: "info", File: path}, false)
	require.NoError(t, err)
	logger.Info("session saved", "session_id", "s1")

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"session_id":"s1"`)
}
