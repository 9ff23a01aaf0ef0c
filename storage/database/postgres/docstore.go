// Package pgdb is a core.DocumentStore backed by a postgres jsonb table.
package pgdb

import (
	"context"
	"database/sql"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/trezcool/preschool/core"
)

const (
	getQuery = `SELECT data FROM documents WHERE collection = $1 AND key = $2`
	setQuery = `INSERT INTO documents (collection, key, data) VALUES ($1, $2, $3)
ON CONFLICT (collection, key) DO UPDATE SET data = EXCLUDED.data, updated_at = now()`
	createQuery = `INSERT INTO documents (collection, key, data) VALUES ($1, $2, $3)
ON CONFLICT (collection, key) DO NOTHING`
	deleteQuery = `DELETE FROM documents WHERE collection = $1 AND key = $2`
)

type DocumentStore struct {
	db *sqlx.DB
}

var _ core.DocumentStore = (*DocumentStore)(nil)

func NewDocumentStore(db *sqlx.DB) *DocumentStore {
	return &DocumentStore{db: db}
}

func (s *DocumentStore) Get(ctx context.Context, collection, key string) (core.Document, error) {
	var data []byte
	err := s.db.GetContext(ctx, &data, getQuery, collection, key)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return core.NewDocument(collection, key, nil), nil
	case err != nil:
		return nil, errors.Wrapf(err, "getting %s/%s", collection, key)
	}
	return core.NewDocument(collection, key, data), nil
}

func (s *DocumentStore) Create(ctx context.Context, collection, key string, value interface{}) error {
	data, err := core.MarshalDocument(value)
	if err != nil {
		return err
	}
	res, err := s.db.ExecContext(ctx, createQuery, collection, key, string(data))
	if err != nil {
		return errors.Wrapf(err, "creating %s/%s", collection, key)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return errors.Wrapf(err, "creating %s/%s", collection, key)
	}
	if n == 0 {
		return errors.Wrapf(core.ErrAlreadyExists, "%s/%s", collection, key)
	}
	return nil
}

func (s *DocumentStore) Set(ctx context.Context, collection, key string, value interface{}) error {
	data, err := core.MarshalDocument(value)
	if err != nil {
		return err
	}
	if _, err = s.db.ExecContext(ctx, setQuery, collection, key, string(data)); err != nil {
		return errors.Wrapf(err, "setting %s/%s", collection, key)
	}
	return nil
}

func (s *DocumentStore) Delete(ctx context.Context, collection, key string) error {
	if _, err := s.db.ExecContext(ctx, deleteQuery, collection, key); err != nil {
		return errors.Wrapf(err, "deleting %s/%s", collection, key)
	}
	return nil
}
