package inmemdb

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/preschool/core"
)

func TestDocumentStore(t *testing.T) {
	ctx := context.Background()
	store := NewDocumentStore()

	doc, err := store.Get(ctx, "users", "uid-1")
	require.NoError(t, err)
	assert.False(t, doc.Exists())
	assert.Nil(t, doc.Fields())
	assert.Error(t, doc.DataTo(&map[string]string{}))

	require.NoError(t, store.Set(ctx, "users", "uid-1", map[string]string{"name": "Asha"}))
	require.NoError(t, store.Set(ctx, "users", "uid-1", map[string]string{"name": "Ravi"})) // replaces

	doc, err = store.Get(ctx, "users", "uid-1")
	require.NoError(t, err)
	require.True(t, doc.Exists())
	assert.Equal(t, "users", doc.Collection())
	assert.Equal(t, "uid-1", doc.Key())
	var got map[string]string
	require.NoError(t, doc.DataTo(&got))
	assert.Equal(t, map[string]string{"name": "Ravi"}, got)
	assert.Equal(t, 1, store.Len("users"))

	require.NoError(t, store.Delete(ctx, "users", "uid-1"))
	require.NoError(t, store.Delete(ctx, "nope", "uid-1"))
	assert.Equal(t, 0, store.Len("users"))
}

func TestDocumentStore_Concurrent(t *testing.T) {
	ctx := context.Background()
	store := NewDocumentStore()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_ = store.Set(ctx, "counters", "c", i)
			_, _ = store.Get(ctx, "counters", "c")
		}(i)
	}
	wg.Wait()
	assert.Equal(t, 1, store.Len("counters"))
}

func TestDocumentStore_Create(t *testing.T) {
	ctx := context.Background()
	store := NewDocumentStore()

	var (
		wg      sync.WaitGroup
		created int32
	)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			err := store.Create(ctx, "credentials", "mom@test.cd", i)
			switch {
			case err == nil:
				atomic.AddInt32(&created, 1)
			case !errors.Is(err, core.ErrAlreadyExists):
				t.Errorf("unexpected error: %v", err)
			}
		}(i)
	}
	wg.Wait()
	assert.EqualValues(t, 1, created)
	assert.Equal(t, 1, store.Len("credentials"))
}
