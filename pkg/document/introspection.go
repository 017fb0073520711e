package document

import (
	"github.com/aretw0/introspection"
)

// StoreState exposes internal state for observability.
type StoreState struct {
	Notes       int    `json:"notes"`
	Blocks      int    `json:"blocks"`
	Generation  uint64 `json:"generation"`
	Subscribers int    `json:"subscribers"`
}

// State implements introspection.Introspectable.
func (s *Store) State() any {
	s.mu.RLock()
	st := StoreState{Notes: len(s.notes), Generation: s.gen}
	for _, n := range s.notes {
		st.Blocks += len(n.Content.Blocks)
	}
	s.mu.RUnlock()

	s.subMu.RLock()
	st.Subscribers = len(s.subs)
	s.subMu.RUnlock()
	return st
}

// ComponentType implements introspection.Component.
func (s *Store) ComponentType() string {
	return "document-store"
}

var _ introspection.Introspectable = (*Store)(nil)
var _ introspection.Component = (*Store)(nil)
