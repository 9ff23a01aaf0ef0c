package storage

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/preschool/core"
	inmemdb "github.com/trezcool/preschool/storage/database/inmem"
)

func TestOpen(t *testing.T) {
	t.Run("memory", func(t *testing.T) {
		conf := core.NewTestConfig()
		store, closeFn, err := Open(context.Background(), conf)
		require.NoError(t, err)
		assert.IsType(t, &inmemdb.DocumentStore{}, store)
		assert.NoError(t, closeFn())
	})

	t.Run("unknown engine", func(t *testing.T) {
		conf := core.NewTestConfig()
		conf.Storage.Engine = "firestore"
		store, closeFn, err := Open(context.Background(), conf)
		assert.Error(t, err)
		assert.Nil(t, store)
		assert.Nil(t, closeFn)
	})
}
