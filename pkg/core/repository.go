package core

//go:generate go run go.uber.org/mock/mockgen@latest -destination=mocks/mock_repository.go -package=mocks github.com/aretw0/quire/pkg/core Repository
//go:generate go run go.uber.org/mock/mockgen@latest -destination=mocks/mock_image_store.go -package=mocks github.com/aretw0/quire/pkg/core ImageStore

import (
	"context"
	"io"
)

// Repository defines the contract for storing and retrieving notes.
// The document engine never writes through it directly; a collaborator
// (see package sync) persists the snapshots the engine publishes.
type Repository interface {
	// Save persists a note. It creates if not exists, or updates if it does.
	Save(ctx context.Context, n Note) error

	// Get retrieves a note by its ID. Returns ErrNotFound when missing.
	Get(ctx context.Context, id string) (Note, error)

	// List returns all available notes.
	List(ctx context.Context) ([]Note, error)

	// Delete removes a note by its ID.
	Delete(ctx context.Context, id string) error

	// Initialize ensures the underlying storage is ready (directories, schema).
	Initialize(ctx context.Context) error
}

// Watchable is implemented by repositories that can report external changes.
type Watchable interface {
	Watch(ctx context.Context, pattern string) (<-chan Event, error)
}

// ImageStore saves image files attached to a note and returns the value
// stored in the image block's src (a relative path or an URL).
type ImageStore interface {
	SaveImage(ctx context.Context, noteID, name string, r io.Reader) (string, error)
}

// ImageResolver turns a stored src into something a surface can display.
type ImageResolver interface {
	Resolve(src string) string
}

// ImageResolverFunc adapts a plain function to ImageResolver.
type ImageResolverFunc func(src string) string

// Resolve implements ImageResolver.
func (f ImageResolverFunc) Resolve(src string) string { return f(src) }
