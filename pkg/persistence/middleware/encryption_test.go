package middleware_test

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"encoding/hex"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/actscript/pkg/adapters/memory"
	"github.com/aretw0/actscript/pkg/domain"
	"github.com/aretw0/actscript/pkg/persistence/middleware"
	"github.com/aretw0/actscript/pkg/ports"
)

func generateKey(t *testing.T) []byte {
	k := make([]byte, 32)
	_, err := io.ReadFull(rand.Reader, k)
	require.NoError(t, err)
	return k
}

func secure(t *testing.T, store ports.StateStore, cfg middleware.EncryptionConfig) ports.StateStore {
	t.Helper()
	mw, err := middleware.NewEncryptionMiddleware(cfg)
	require.NoError(t, err)
	return mw(store)
}

func sampleState() *domain.State {
	data := domain.NewScenarioData()
	data.AddAct("default").Messages = []domain.Message{{Role: "system", Content: "Hi {name}"}}
	state := domain.NewState(data)
	state.Act = "default"
	state.History = append(state.History, domain.Message{Role: "system", Content: "Hi Ann"})
	return state
}

func TestEncryptionMiddleware_Roundtrip(t *testing.T) {
	underlying := memory.NewStore()
	secureStore := secure(t, underlying, middleware.EncryptionConfig{ActiveKey: generateKey(t)})

	ctx := context.Background()
	original := sampleState()
	original.Context["secret"] = "my-secret-sauce"
	require.NoError(t, secureStore.Save(ctx, "s", original))

	stored, err := underlying.Load(ctx, "s")
	require.NoError(t, err)
	assert.NotContains(t, stored.Context, "secret")
	assert.Contains(t, stored.Context, "__encrypted__")
	assert.Empty(t, stored.History)
	assert.Nil(t, stored.Scenario)
	assert.Equal(t, "default", stored.Act, "the act stays visible")

	loaded, err := secureStore.Load(ctx, "s")
	require.NoError(t, err)
	assert.Equal(t, "my-secret-sauce", loaded.Context["secret"])
	assert.Equal(t, original.History, loaded.History)
	assert.Equal(t, []string{"default"}, loaded.Scenario.Order)
}

func TestEncryptionMiddleware_KeyRotation(t *testing.T) {
	underlying := memory.NewStore()
	oldKey := generateKey(t)
	newKey := generateKey(t)
	ctx := context.Background()

	oldStore := secure(t, underlying, middleware.EncryptionConfig{ActiveKey: oldKey})
	state := sampleState()
	state.Context["data"] = "encrypted-with-old-key"
	require.NoError(t, oldStore.Save(ctx, "rotation", state))

	newStore := secure(t, underlying, middleware.EncryptionConfig{
		ActiveKey:    newKey,
		FallbackKeys: [][]byte{oldKey},
	})
	loaded, err := newStore.Load(ctx, "rotation")
	require.NoError(t, err)
	assert.Equal(t, "encrypted-with-old-key", loaded.Context["data"])

	loaded.Context["data"] = "encrypted-with-new-key"
	require.NoError(t, newStore.Save(ctx, "rotation", loaded))

	_, err = oldStore.Load(ctx, "rotation")
	assert.ErrorIs(t, err, middleware.ErrUnknownKey, "old key alone cannot read new-key snapshots")
}

func TestEncryptionMiddleware_EnvelopeBoundToSession(t *testing.T) {
	underlying := memory.NewStore()
	ctx := context.Background()
	secureStore := secure(t, underlying, middleware.EncryptionConfig{ActiveKey: generateKey(t)})
	require.NoError(t, secureStore.Save(ctx, "alice", sampleState()))

	envelope, err := underlying.Load(ctx, "alice")
	require.NoError(t, err)
	require.NoError(t, underlying.Save(ctx, "mallory", envelope))

	_, err = secureStore.Load(ctx, "mallory")
	assert.Error(t, err)

	_, err = secureStore.Load(ctx, "alice")
	assert.NoError(t, err)
}

func TestEncryptionMiddleware_RejectsPlainState(t *testing.T) {
	underlying := memory.NewStore()
	require.NoError(t, underlying.Save(context.Background(), "plain", sampleState()))

	_, err := secure(t, underlying, middleware.EncryptionConfig{ActiveKey: generateKey(t)}).Load(context.Background(), "plain")
	assert.Error(t, err)
}

func TestEncryptionMiddleware_InvalidKey(t *testing.T) {
	_, err := middleware.NewEncryptionMiddleware(middleware.EncryptionConfig{ActiveKey: []byte("short-key")})
	assert.ErrorIs(t, err, middleware.ErrInvalidKey)

	_, err = middleware.NewEncryptionMiddleware(middleware.EncryptionConfig{
		ActiveKey:    generateKey(t),
		FallbackKeys: [][]byte{[]byte("x")},
	})
	assert.ErrorIs(t, err, middleware.ErrInvalidKey)
}

func TestParseKey(t *testing.T) {
	key := generateKey(t)

	fromHex, err := middleware.ParseKey(hex.EncodeToString(key))
	require.NoError(t, err)
	assert.Equal(t, key, fromHex)

	fromB64, err := middleware.ParseKey(base64.StdEncoding.EncodeToString(key))
	require.NoError(t, err)
	assert.Equal(t, key, fromB64)

	_, err = middleware.ParseKey(base64.StdEncoding.EncodeToString([]byte("short")))
	assert.ErrorIs(t, err, middleware.ErrInvalidKey)
}
