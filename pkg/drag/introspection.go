package drag

import (
	"github.com/aretw0/introspection"
)

// EngineState exposes internal state for observability.
type EngineState struct {
	Phase    string   `json:"phase"`
	Dragging []string `json:"dragging,omitempty"`
	Target   int      `json:"target"`
}

// State implements introspection.Introspectable.
func (e *Engine) State() any {
	st := EngineState{Phase: e.tracker.Phase().String()}
	if e.session != nil {
		st.Dragging = append([]string(nil), e.session.IDs...)
		st.Target = e.session.Target
	}
	return st
}

// ComponentType implements introspection.Component.
func (e *Engine) ComponentType() string {
	return "block-drag"
}

var _ introspection.Introspectable = (*Engine)(nil)
var _ introspection.Component = (*Engine)(nil)
