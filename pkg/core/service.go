package core

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
)

const defaultEventBuffer = 100

// Service handles the business rules around stored notes.
type Service struct {
	repo            Repository
	mu              sync.RWMutex
	eventBufferSize int

	saved    atomic.Int64
	rejected atomic.Int64
	deleted  atomic.Int64
}

// ServiceOption configures a Service.
type ServiceOption func(*Service)

// WithEventBuffer sets the size of the buffer used to decouple watchers from the repository.
func WithEventBuffer(size int) ServiceOption {
	return func(s *Service) {
		if size > 0 {
			s.eventBufferSize = size
		}
	}
}

// NewService creates a new Service.
func NewService(repo Repository, opts ...ServiceOption) *Service {
	s := &Service{repo: repo, eventBufferSize: defaultEventBuffer}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Repository exposes the underlying repository.
func (s *Service) Repository() Repository {
	return s.repo
}

// SaveNote validates and saves a note.
func (s *Service) SaveNote(ctx context.Context, n Note) error {
	if err := n.Validate(); err != nil {
		s.rejected.Add(1)
		return err
	}
	if n.Title != n.Content.Title {
		// The content title mirrors the note title.
		n.Content.Title = n.Title
	}
	if err := s.repo.Save(ctx, n); err != nil {
		return err
	}
	s.saved.Add(1)
	return nil
}

// GetNote retrieves a note.
func (s *Service) GetNote(ctx context.Context, id string) (Note, error) {
	if id == "" {
		return Note{}, errors.New("note ID cannot be empty")
	}
	return s.repo.Get(ctx, id)
}

// ListNotes retrieves all notes.
func (s *Service) ListNotes(ctx context.Context) ([]Note, error) {
	return s.repo.List(ctx)
}

// DeleteNote removes a note.
func (s *Service) DeleteNote(ctx context.Context, id string) error {
	if id == "" {
		return errors.New("note ID cannot be empty")
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.deleted.Add(1)
	return nil
}

// Watch observes changes in the repository if supported.
// Events are buffered so a slow consumer does not stall the repository.
func (s *Service) Watch(ctx context.Context, pattern string) (<-chan Event, error) {
	w, ok := s.repo.(Watchable)
	if !ok {
		return nil, errors.New("repository does not support watching")
	}
	upstream, err := w.Watch(ctx, pattern)
	if err != nil {
		return nil, fmt.Errorf("watch: %w", err)
	}

	s.mu.RLock()
	size := s.eventBufferSize
	s.mu.RUnlock()

	out := make(chan Event, size)
	go func() {
		defer close(out)
		for {
			select {
			case <-ctx.Done():
				return
			case e, ok := <-upstream:
				if !ok {
					return
				}
				select {
				case out <- e:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out, nil
}
