package editor

import (
	"github.com/aretw0/quire/pkg/history"
)

// Undo reverts the last undo step and puts the caret where it was before
// that step.
func (e *Editor) Undo() bool {
	entry, ok := e.hist.Undo()
	if !ok {
		return false
	}
	e.restore(entry)
	return true
}

// Redo reapplies the last undone step.
func (e *Editor) Redo() bool {
	entry, ok := e.hist.Redo()
	if !ok {
		return false
	}
	e.restore(entry)
	return true
}

func (e *Editor) restore(entry history.Entry) {
	e.bridge.Render()
	if entry.HasCaret && entry.Caret.NoteID == e.noteID &&
		e.bridge.PlaceCaret(entry.Caret.BlockID, entry.Caret.Offset) {
		return
	}
	e.bridge.Recover()
}
