package loam

import (
	"strings"
	"testing"

	"github.com/aretw0/loam"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/actscript/internal/testutils"
	"github.com/aretw0/actscript/pkg/domain"
	"github.com/aretw0/actscript/pkg/ports"
)

func seed(t *testing.T, files map[string]string) *Loader {
	t.Helper()
	_, repo := testutils.SetupScriptRepo(t, files)
	return New(loam.NewTypedRepository[ScriptMetadata](repo))
}

func TestLoader_Contract(t *testing.T) {
	loader := seed(t, map[string]string{
		"greet.md":  "---\ntitle: Greeting\n---\n" + testutils.TwoActScript + "\n",
		"colors.md": "---\nid: colors\n---\n" + testutils.ColorsScript,
	})

	ports.RunScriptLoaderContract(t, loader, map[string]string{
		"greet":  strings.TrimSpace(testutils.TwoActScript),
		"colors": strings.TrimSpace(testutils.ColorsScript),
	})
}

func TestLoader_FrontMatter(t *testing.T) {
	loader := seed(t, map[string]string{
		"chat.md": `---
title: Chat
parser:
  comment: "//"
  keys:
    defaultAct: main
context:
  name: Ann
  retries: 5
  tags: [a, b]
---
user:
hello {name}`,
	})

	script, err := loader.GetScript("chat")
	require.NoError(t, err)

	assert.Equal(t, "chat", script.ID)
	assert.Equal(t, "Chat", script.Title)
	assert.Equal(t, "user:\nhello {name}", script.Text)
	assert.Equal(t, "//", script.Parser.Get("comment"))
	assert.Equal(t, "main", script.Parser.Get("keys.defaultAct"))
	assert.Equal(t, domain.Context{"name": "Ann", "retries": 5.0, "tags": []any{"a", "b"}}, script.Context)
}

func TestLoader_ListScripts_NormalizesIDs(t *testing.T) {
	loader := seed(t, map[string]string{
		"start.md":       "---\nid: start.md\n---\nsystem:\nhi",
		"implicit.md":    "---\ntitle: x\n---\nsystem:\nhi",
		"nested/deep.md": "---\ntitle: y\n---\nsystem:\nhi",
	})

	ids, err := loader.ListScripts()
	require.NoError(t, err)
	assert.Equal(t, []string{"implicit", "nested/deep", "start"}, ids)
}

func TestLoader_ListScripts_DetectsCollisions(t *testing.T) {
	loader := seed(t, map[string]string{
		"foo.md": "---\nid: foo\n---\nsystem:\na",
		"bar.md": "---\nid: foo\n---\nsystem:\nb",
	})

	_, err := loader.ListScripts()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "collision detected")
}

func TestNormalizeValue(t *testing.T) {
	in := map[string]any{
		"n":    int64(3),
		"deep": map[any]any{"k": []any{1, "x"}},
	}
	assert.Equal(t, map[string]any{
		"n":    3.0,
		"deep": map[string]any{"k": []any{1.0, "x"}},
	}, normalizeMap(in))
}
