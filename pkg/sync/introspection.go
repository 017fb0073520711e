package sync

import (
	"github.com/aretw0/introspection"
)

// SyncerState exposes internal state for observability.
type SyncerState struct {
	Running   bool   `json:"running"`
	Pending   int    `json:"pending"`
	Queued    int    `json:"queued"`
	Delay     string `json:"delay"`
	Stats     Stats  `json:"stats"`
	LastError string `json:"last_error,omitempty"`
}

// State implements introspection.Introspectable.
func (s *Syncer) State() any {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := SyncerState{
		Running: s.started,
		Pending: len(s.pending),
		Queued:  len(s.ready),
		Delay:   s.delay.String(),
		Stats:   s.stats,
	}
	if s.lastErr != nil {
		st.LastError = s.lastErr.Error()
	}
	return st
}

// ComponentType implements introspection.Component.
func (s *Syncer) ComponentType() string {
	return "syncer"
}

var _ introspection.Introspectable = (*Syncer)(nil)
var _ introspection.Component = (*Syncer)(nil)
