// Package repo provides a generic Neo4j-backed repository.
package repo

import (
	"context"
	"errors"
)

// ErrNotFound is returned when no node matches an id.
var ErrNotFound = errors.New("not found")

// Repository is a generic keyed store.
type Repository[T any, ID comparable] interface {
	Get(ctx context.Context, id ID) (T, error)
	List(ctx context.Context, opts ListOpts) ([]T, error)
	Save(ctx context.Context, entity T) (T, error)
	Delete(ctx context.Context, id ID) error
}

// ListOpts controls pagination and ordering for List.
type ListOpts struct {
	Offset int
	Limit  int
	// OrderBy is a node property; results are ordered descending by it.
	OrderBy string
}
