package core

import (
	"context"
	"encoding/json"

	"github.com/pkg/errors"
)

type (
	// Document is a snapshot of a stored document.
	Document interface {
		Collection() string
		Key() string
		Exists() bool
		// DataTo decodes the document into `v` (a pointer to a struct or map).
		DataTo(v interface{}) error
		// Fields returns the raw document fields; nil when the document does not exist.
		Fields() map[string]interface{}
	}

	// DocumentStore is a keyed collection/document store.
	DocumentStore interface {
		// Get never fails for a missing document: the returned Document reports Exists() == false.
		Get(ctx context.Context, collection, key string) (Document, error)
		// Create stores the document only if the key is free, ErrAlreadyExists otherwise.
		Create(ctx context.Context, collection, key string, value interface{}) error
		// Set creates or fully replaces the document.
		Set(ctx context.Context, collection, key string, value interface{}) error
		Delete(ctx context.Context, collection, key string) error
	}
)

// JSONDocument is a Document backed by its JSON encoding.
type JSONDocument struct {
	collection string
	key        string
	data       []byte
}

var _ Document = (*JSONDocument)(nil)

// NewDocument returns a Document; a nil `data` means the document does not exist.
func NewDocument(collection, key string, data []byte) *JSONDocument {
	return &JSONDocument{collection: collection, key: key, data: data}
}

func (d *JSONDocument) Collection() string { return d.collection }
func (d *JSONDocument) Key() string        { return d.key }
func (d *JSONDocument) Exists() bool       { return d.data != nil }
func (d *JSONDocument) Data() []byte       { return d.data }

func (d *JSONDocument) DataTo(v interface{}) error {
	if !d.Exists() {
		return errors.Wrapf(ErrNotFound, "%s/%s", d.collection, d.key)
	}
	return errors.Wrapf(json.Unmarshal(d.data, v), "decoding %s/%s", d.collection, d.key)
}

func (d *JSONDocument) Fields() map[string]interface{} {
	if !d.Exists() {
		return nil
	}
	var fields map[string]interface{}
	if err := json.Unmarshal(d.data, &fields); err != nil {
		return nil
	}
	return fields
}

// MarshalDocument encodes a document value.
func MarshalDocument(value interface{}) ([]byte, error) {
	data, err := json.Marshal(value)
	if err != nil {
		return nil, errors.Wrap(err, "encoding document")
	}
	return data, nil
}
