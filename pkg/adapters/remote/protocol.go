// Package remote serves a core.Repository over a websocket and provides a
// client that implements core.Repository against such a server.
package remote

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/aretw0/quire/pkg/core"
)

// Methods understood by the server.
const (
	MethodSave       = "save"
	MethodGet        = "get"
	MethodList       = "list"
	MethodDelete     = "delete"
	MethodInitialize = "initialize"
)

// Error codes carried in Response.Error.
const (
	CodeNotFound      = "not_found"
	CodeReadOnly      = "read_only"
	CodeInvalidNote   = "invalid_note"
	CodeBadRequest    = "bad_request"
	CodeUnknownMethod = "unknown_method"
	CodeInternal      = "internal"
)

// Request is one call. ID correlates the response.
type Request struct {
	ID     string          `json:"id"`
	Method string          `json:"method"`
	Params json.RawMessage `json:"params,omitempty"`
}

// Response answers the request with the same ID.
type Response struct {
	ID     string          `json:"id"`
	Result json.RawMessage `json:"result,omitempty"`
	Error  *RPCError       `json:"error,omitempty"`
}

// RPCError is a failed call.
type RPCError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (e *RPCError) Error() string {
	return fmt.Sprintf("remote: %s: %s", e.Code, e.Message)
}

// Unwrap maps error codes back to the core sentinel errors.
func (e *RPCError) Unwrap() error {
	switch e.Code {
	case CodeNotFound:
		return core.ErrNotFound
	case CodeReadOnly:
		return core.ErrReadOnly
	case CodeInvalidNote:
		return core.ErrInvalidNote
	}
	return nil
}

type idParams struct {
	ID string `json:"id"`
}

func toRPCError(err error) *RPCError {
	code := CodeInternal
	switch {
	case errors.Is(err, core.ErrNotFound):
		code = CodeNotFound
	case errors.Is(err, core.ErrReadOnly):
		code = CodeReadOnly
	case errors.Is(err, core.ErrInvalidNote):
		code = CodeInvalidNote
	}
	return &RPCError{Code: code, Message: err.Error()}
}
