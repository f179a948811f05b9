package domain

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigSetAndLookup(t *testing.T) {
	c := Config{}
	c.Set("inputs.colors", []any{"storable", "required"})
	c.Set(" messages . 1 . output ", true)
	c.Set("title", "x")
	c.Set("title.sub", "y")

	v, ok := c.Lookup("inputs.colors")
	require.True(t, ok)
	assert.Equal(t, []any{"storable", "required"}, v)
	assert.Equal(t, true, c.Get("messages.1.output"))
	assert.Equal(t, "y", c.Get("title.sub"))

	_, ok = c.Lookup("missing.key")
	assert.False(t, ok)
}

func TestConfigAcceptsDecodedMaps(t *testing.T) {
	var c Config
	require.NoError(t, json.Unmarshal([]byte(`{"messages":{"0":{"loop":true}}}`), &c))

	assert.Equal(t, true, c.Get("messages.0.loop"))
	assert.Equal(t, Config{"loop": true}, c.Sub("messages.0"))
}

func TestConfigClone(t *testing.T) {
	c := Config{"a": Config{"b": 1.0}, "list": []any{"x"}}
	cp := c.Clone()
	cp.Set("a.b", 2.0)
	cp["list"].([]any)[0] = "y"

	assert.Equal(t, 1.0, c.Get("a.b"))
	assert.Equal(t, "x", c["list"].([]any)[0])
}

func TestLayeredConfig(t *testing.T) {
	act := Config{"a": 1.0}
	def := Config{"a": 2.0, "b": 3.0, "nested": Config{"x": "default"}}
	scenario := Config{"c": 4.0, "nested": Config{"x": "scenario", "y": "scenario"}}

	l := NewLayeredConfig(act, nil, def, scenario)

	assert.Equal(t, Config{"a": 1.0, "b": 3.0, "c": 4.0, "nested": Config{"x": "default"}}, l.Flatten())
	assert.Equal(t, act, l.Own())
	assert.Len(t, l.Layers(), 3)

	v, ok := l.Get("b")
	require.True(t, ok)
	assert.Equal(t, 3.0, v)

	v, ok = l.Lookup("nested.x")
	require.True(t, ok)
	assert.Equal(t, "default", v)

	// the first layer holding "nested" wins; lookups do not fall through deeper
	_, ok = l.Lookup("nested.y")
	assert.False(t, ok)
}

func TestMergeContexts(t *testing.T) {
	left := Context{
		"name":  "Ann",
		"tags":  []any{"a"},
		"user":  map[string]any{"id": 1.0, "meta": Context{"x": 1.0}},
		"count": 1.0,
	}
	right := Context{
		"tags":  []any{"b", "c"},
		"user":  Context{"meta": Context{"y": 2.0}},
		"count": 2.0,
		"new":   true,
	}

	merged := MergeContexts(left, right)

	assert.Equal(t, []any{"a", "b", "c"}, merged["tags"])
	assert.Equal(t, 2.0, merged["count"])
	assert.Equal(t, true, merged["new"])
	assert.Equal(t, "Ann", merged["name"])
	v, _ := merged.Lookup("user.meta.x")
	assert.Equal(t, 1.0, v)
	v, _ = merged.Lookup("user.meta.y")
	assert.Equal(t, 2.0, v)

	// inputs are untouched
	assert.Equal(t, []any{"a"}, left["tags"])
	assert.NotContains(t, left, "new")
}

func TestMergeContexts_NestedContext(t *testing.T) {
	left := Context{"u": Context{"a": "1"}}
	right := Context{"u": Context{"b": "2"}}

	merged := MergeContexts(left, right)

	u, ok := merged["u"].(Context)
	require.True(t, ok, "nested contexts keep their type")
	assert.Equal(t, Context{"a": "1", "b": "2"}, u)
	v, ok := merged.Lookup("u.a")
	assert.True(t, ok)
	assert.Equal(t, "1", v)
	assert.Equal(t, Context{"a": "1"}, left["u"])
}

func TestStringify(t *testing.T) {
	assert.Equal(t, "42", Stringify(42.0))
	assert.Equal(t, "1.5", Stringify(1.5))
	assert.Equal(t, "true", Stringify(true))
	assert.Equal(t, "a,2", Stringify([]any{"a", 2.0}))
}

func TestPlaceholderPattern(t *testing.T) {
	m := PlaceholderPattern.FindStringSubmatch("hi {user-input:name|default text}")
	require.Len(t, m, 3)
	assert.Equal(t, "user-input:name", m[1])
	assert.Equal(t, "default text", m[2])

	assert.Nil(t, PlaceholderPattern.FindStringSubmatch(`{ "answer": "the answer" }`))
	assert.Nil(t, PlaceholderPattern.FindStringSubmatch(`{ }`))
}

func TestParserConfigSetAndMerge(t *testing.T) {
	c := DefaultParserConfig()
	c.Set("keys.role", "sender")
	c.Set("unused.option", true)
	c.Set("join", "\n")

	assert.Equal(t, "sender", c.Keys.Role)
	assert.Equal(t, "\n", c.Join)
	assert.Equal(t, true, Config(c.Extra).Get("unused.option"))

	merged := DefaultParserConfig().Merge(ParserConfig{Comment: "//"})
	assert.Equal(t, "//", merged.Comment)
	assert.Equal(t, " ", merged.Join)
}
