package repository

import (
	"context"
)

// Repository is a keyed document store. Save is a compare-and-swap on the document
// revision (_rev): writing a stale or missing revision over an existing document,
// or a revision over a missing one, fails with types.ErrConflict.
type Repository interface {
	GetByID(ctx context.Context, id string) ([]byte, error)
	GetAll(ctx context.Context, limit int, skip int) ([][]byte, error)
	Save(ctx context.Context, docID string, data interface{}) error
	Delete(ctx context.Context, id string) error
	GetDBName() string
}

type DBSelector interface {
	AddDB(db Repository)
	ChooseDB(dbName string) (Repository, error)
}
