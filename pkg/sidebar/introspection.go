package sidebar

import (
	"github.com/aretw0/introspection"
)

// EngineState exposes internal state for observability.
type EngineState struct {
	Phase     string `json:"phase"`
	Dragging  string `json:"dragging,omitempty"`
	Target    string `json:"target,omitempty"`
	Zone      string `json:"zone"`
	Expanding string `json:"expanding,omitempty"`
}

// State implements introspection.Introspectable.
func (e *Engine) State() any {
	st := EngineState{Phase: e.tracker.Phase().String(), Zone: ZoneNone.String()}
	if s := e.session; s != nil {
		st.Dragging = s.Item.Key()
		st.Zone = s.Target.Zone.String()
		if s.Target.Zone != ZoneNone {
			st.Target = s.Target.Item.Key()
		}
		st.Expanding = s.Expanding
	}
	return st
}

// ComponentType implements introspection.Component.
func (e *Engine) ComponentType() string {
	return "sidebar-drag"
}

var _ introspection.Introspectable = (*Engine)(nil)
var _ introspection.Component = (*Engine)(nil)
