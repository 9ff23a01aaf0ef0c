// Package inmemdb is a core.DocumentStore living in memory. Used in tests and local development.
package inmemdb

import (
	"context"
	"sync"

	"github.com/pkg/errors"

	"github.com/trezcool/preschool/core"
)

type table map[string][]byte // {key: json}

type DocumentStore struct {
	mutex  sync.RWMutex
	tables map[string]table // {collection: table}
}

var _ core.DocumentStore = (*DocumentStore)(nil)

func NewDocumentStore() *DocumentStore {
	return &DocumentStore{tables: make(map[string]table)}
}

func (db *DocumentStore) Get(_ context.Context, collection, key string) (core.Document, error) {
	db.mutex.RLock()
	defer db.mutex.RUnlock()

	data, ok := db.tables[collection][key]
	if !ok {
		return core.NewDocument(collection, key, nil), nil
	}
	return core.NewDocument(collection, key, data), nil
}

func (db *DocumentStore) Create(_ context.Context, collection, key string, value interface{}) error {
	data, err := core.MarshalDocument(value)
	if err != nil {
		return err
	}

	db.mutex.Lock()
	defer db.mutex.Unlock()

	if _, ok := db.tables[collection][key]; ok {
		return errors.Wrapf(core.ErrAlreadyExists, "%s/%s", collection, key)
	}
	db.table(collection)[key] = data
	return nil
}

func (db *DocumentStore) Set(_ context.Context, collection, key string, value interface{}) error {
	data, err := core.MarshalDocument(value)
	if err != nil {
		return err
	}

	db.mutex.Lock()
	defer db.mutex.Unlock()
	db.table(collection)[key] = data
	return nil
}

func (db *DocumentStore) Delete(_ context.Context, collection, key string) error {
	db.mutex.Lock()
	defer db.mutex.Unlock()
	delete(db.tables[collection], key)
	return nil
}

// table must be called with the write lock held.
func (db *DocumentStore) table(collection string) table {
	tbl, ok := db.tables[collection]
	if !ok {
		tbl = make(table)
		db.tables[collection] = tbl
	}
	return tbl
}

// Len returns the number of documents in `collection`.
func (db *DocumentStore) Len(collection string) int {
	db.mutex.RLock()
	defer db.mutex.RUnlock()
	return len(db.tables[collection])
}
