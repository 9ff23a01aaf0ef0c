// Package storage opens the document store selected by the configuration.
package storage

import (
	"context"

	"github.com/pkg/errors"

	"github.com/trezcool/preschool/core"
	"github.com/trezcool/preschool/storage/database"
	inmemdb "github.com/trezcool/preschool/storage/database/inmem"
	pgdb "github.com/trezcool/preschool/storage/database/postgres"
)

const (
	EnginePostgres = "postgres"
	EngineMemory   = "memory"
)

// CloseFunc releases the resources of a document store.
type CloseFunc func() error

// Open returns the document store of conf.Storage.Engine.
// The postgres database is created and migrated when needed.
func Open(ctx context.Context, conf *core.Config) (core.DocumentStore, CloseFunc, error) {
	switch conf.Storage.Engine {
	case EngineMemory:
		return inmemdb.NewDocumentStore(), func() error { return nil }, nil
	case EnginePostgres, "":
		if err := database.CreateIfNotExist(ctx, conf); err != nil {
			return nil, nil, errors.Wrap(err, "creating database")
		}
		db, err := database.Open(conf)
		if err != nil {
			return nil, nil, errors.Wrap(err, "opening database")
		}
		if err = database.Migrate(ctx, db.DB); err != nil {
			_ = db.Close()
			return nil, nil, errors.Wrap(err, "migrating database")
		}
		return pgdb.NewDocumentStore(db), db.Close, nil
	default:
		return nil, nil, errors.Errorf("unknown storage engine: %q", conf.Storage.Engine)
	}
}
