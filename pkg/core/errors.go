package core

import "errors"

// Common errors.
var (
	ErrNotFound    = errors.New("note not found")
	ErrReadOnly    = errors.New("repository is in read-only mode")
	ErrInvalidNote = errors.New("invalid note")
	ErrClosed      = errors.New("connection closed")
)
