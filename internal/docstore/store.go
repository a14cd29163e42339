// Package docstore abstracts the document database holding the app's
// collections (maquinas, users, rutinas, loginAttempts, ...).
package docstore

import (
	"context"

	"github.com/udecfit/backend/internal/model"
)

// Store defines the interface for the document database. The set of
// collections is not known statically; backup enumerates them at run time.
type Store interface {
	// ListCollections returns the names of all collections that currently
	// hold at least one document.
	ListCollections(ctx context.Context) ([]string, error)

	// ExportCollection fetches every document in the named collection.
	ExportCollection(ctx context.Context, collection string) ([]model.Document, error)

	// ImportCollection sets every document in the batch into the named
	// collection, overwriting documents with matching ids. The write is
	// atomic: either all documents land or none do.
	ImportCollection(ctx context.Context, collection string, docs []model.Document) error

	// GetDocument retrieves a single document by id.
	// Returns ErrNotFound if it does not exist.
	GetDocument(ctx context.Context, collection, id string) (*model.Document, error)

	// PutDocument sets a single document, overwriting any existing one.
	PutDocument(ctx context.Context, collection string, doc model.Document) error
}
