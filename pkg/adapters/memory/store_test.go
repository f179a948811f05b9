package memory_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/aretw0/actscript/pkg/adapters/memory"
	"github.com/aretw0/actscript/pkg/domain"
	"github.com/aretw0/actscript/pkg/ports"
)

func TestMemoryStore_Contract(t *testing.T) {
	store := memory.NewStore()
	ports.RunStateStoreContract(t, store)
}

func TestMemoryStore_RejectsEmptyID(t *testing.T) {
	store := memory.NewStore()
	err := store.Save(context.Background(), "", domain.NewState(nil))
	assert.ErrorIs(t, err, domain.ErrInvalidSessionID)
}

func TestMemoryStore_CopiesSnapshots(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	state := domain.NewState(nil)
	state.Context["name"] = "Ann"
	assert.NoError(t, store.Save(ctx, "s", state))

	state.Context["name"] = "Bob"
	loaded, err := store.Load(ctx, "s")
	assert.NoError(t, err)
	assert.Equal(t, "Ann", loaded.Context["name"])

	loaded.Context["name"] = "Cid"
	again, _ := store.Load(ctx, "s")
	assert.Equal(t, "Ann", again.Context["name"])
	assert.Equal(t, 1, store.Len())

	assert.NoError(t, store.Delete(ctx, "s"))
	assert.Zero(t, store.Len())
}
