package history

import (
	"github.com/aretw0/introspection"
)

// EngineState exposes internal state for observability.
type EngineState struct {
	Undo     int  `json:"undo"`
	Redo     int  `json:"redo"`
	Capacity int  `json:"capacity"`
	Burst    bool `json:"burst"`
}

// State implements introspection.Introspectable.
func (e *Engine) State() any {
	e.mu.Lock()
	defer e.mu.Unlock()
	return EngineState{
		Undo:     len(e.undo),
		Redo:     len(e.redo),
		Capacity: e.capacity,
		Burst:    e.burst,
	}
}

// ComponentType implements introspection.Component.
func (e *Engine) ComponentType() string {
	return "history"
}

var _ introspection.Introspectable = (*Engine)(nil)
var _ introspection.Component = (*Engine)(nil)
