// Package httpapi exposes a workspace to application chrome over HTTP.
//
// Every handler that touches the note model runs through
// workspace.Workspace.Do, so requests are applied one at a time on the
// editing goroutine.
package httpapi

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/aretw0/quire/pkg/core"
	"github.com/aretw0/quire/pkg/editor"
	"github.com/aretw0/quire/pkg/workspace"
)

// Deps holds the dependencies of the router.
type Deps struct {
	Workspace *workspace.Workspace
	Logger    *slog.Logger
	// RPC, when set, is mounted at /rpc (see package remote).
	RPC http.Handler
	// Images, when set, serves stored images under /images/.
	Images http.Handler
}

// Server holds the handlers.
type Server struct {
	ws     *workspace.Workspace
	logger *slog.Logger
}

// NewRouter creates the HTTP router.
func NewRouter(deps Deps) http.Handler {
	s := &Server{ws: deps.Workspace, logger: deps.Logger}
	if s.logger == nil {
		s.logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Route("/api", func(r chi.Router) {
		r.Get("/notes", s.listNotes)
		r.Post("/notes", s.createNote)
		r.Get("/tree", s.tree)

		r.Route("/notes/{id}", func(r chi.Router) {
			r.Get("/", s.getNote)
			r.Delete("/", s.deleteNote)
			r.Put("/title", s.setTitle)
			r.Get("/wordcount", s.wordCount)
			r.Get("/markdown", s.exportMarkdown)
			r.Post("/blocks", s.insertBlock)
			r.Patch("/blocks/{blockID}", s.updateBlock)
			r.Delete("/blocks/{blockID}", s.deleteBlock)
			r.Post("/blocks/{blockID}/move", s.moveBlock)
			r.Post("/undo", s.undo)
			r.Post("/redo", s.redo)
			r.Post("/paste", s.paste)
			r.Post("/images", s.insertImage)
		})
	})

	if deps.RPC != nil {
		r.Handle("/rpc", deps.RPC)
	}
	if deps.Images != nil {
		r.Handle("/images/*", http.StripPrefix("/images/", deps.Images))
	}
	return r
}

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Error string `json:"error"`
}

var errRejected = errors.New("edit rejected")

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("encode response", "error", err)
	}
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, core.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, core.ErrReadOnly):
		status = http.StatusForbidden
	case errors.Is(err, core.ErrInvalidNote), errors.Is(err, errBadRequest):
		status = http.StatusBadRequest
	case errors.Is(err, errRejected):
		status = http.StatusConflict
	case errors.Is(err, editor.ErrNoImageStore):
		status = http.StatusNotImplemented
	}
	if status == http.StatusInternalServerError {
		s.logger.Error("request failed", "method", r.Method, "path", r.URL.Path, "error", err)
	} else {
		s.logger.Debug("request rejected", "method", r.Method, "path", r.URL.Path, "error", err)
	}
	s.writeJSON(w, status, ErrorResponse{Error: err.Error()})
}
