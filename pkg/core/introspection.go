package core

import (
	"github.com/aretw0/introspection"
)

// ServiceState reports what the service sits on and how many notes went
// through it.
type ServiceState struct {
	Repository      string `json:"repository"`
	Watchable       bool   `json:"watchable"`
	EventBufferSize int    `json:"event_buffer_size"`
	Saved           int64  `json:"saved"`
	Rejected        int64  `json:"rejected"`
	Deleted         int64  `json:"deleted"`
	// Store is the repository's own state when it is introspectable.
	Store any `json:"store,omitempty"`
}

// State implements introspection.Introspectable.
func (s *Service) State() any {
	s.mu.RLock()
	size := s.eventBufferSize
	s.mu.RUnlock()

	st := ServiceState{
		Repository:      "none",
		EventBufferSize: size,
		Saved:           s.saved.Load(),
		Rejected:        s.rejected.Load(),
		Deleted:         s.deleted.Load(),
	}
	if s.repo == nil {
		return st
	}
	st.Repository = "repository"
	if comp, ok := s.repo.(introspection.Component); ok {
		st.Repository = comp.ComponentType()
	}
	if in, ok := s.repo.(introspection.Introspectable); ok {
		st.Store = in.State()
	}
	_, st.Watchable = s.repo.(Watchable)
	return st
}

// ComponentType implements introspection.Component.
func (s *Service) ComponentType() string {
	return "note-service"
}

var _ introspection.Introspectable = (*Service)(nil)
var _ introspection.Component = (*Service)(nil)
