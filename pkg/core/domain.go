// Package core defines the domain entities and collaborator contracts of Quire.
package core

import "fmt"

// EventType represents the type of change published for a note.
type EventType string

const (
	// EventNoteChanged is published by the document store on every committed mutation.
	EventNoteChanged EventType = "CHANGED"

	EventCreate EventType = "CREATE"
	EventModify EventType = "MODIFY"
	EventDelete EventType = "DELETE"
)

// Event represents a change to a note, keyed by note id.
type Event struct {
	Type      EventType
	ID        string
	Timestamp int64 // Unix timestamp
}

// String makes Event usable as a lifecycle.Event.
func (e Event) String() string {
	return fmt.Sprintf("%s %s", e.Type, e.ID)
}

// ChangeReasonKey is the context key for passing a human readable reason to repositories.
type contextKey string

const ChangeReasonKey contextKey = "change_reason"
