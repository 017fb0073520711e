package remote

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/aretw0/quire/pkg/core"
)

// Handler upgrades HTTP requests to websockets and answers repository calls.
type Handler struct {
	repo     core.Repository
	logger   *slog.Logger
	upgrader websocket.Upgrader
}

// HandlerOption configures a Handler.
type HandlerOption func(*Handler)

// WithHandlerLogger sets the logger.
func WithHandlerLogger(l *slog.Logger) HandlerOption {
	return func(h *Handler) {
		if l != nil {
			h.logger = l
		}
	}
}

// WithCheckOrigin overrides the websocket origin check.
func WithCheckOrigin(fn func(r *http.Request) bool) HandlerOption {
	return func(h *Handler) { h.upgrader.CheckOrigin = fn }
}

// NewHandler serves repo.
func NewHandler(repo core.Repository, opts ...HandlerOption) *Handler {
	h := &Handler{
		repo:   repo,
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// ServeHTTP implements http.Handler. Calls on one connection run
// concurrently; responses are written under a lock.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	var (
		writeMu sync.Mutex
		wg      sync.WaitGroup
	)
	defer wg.Wait()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				h.logger.Debug("websocket read failed", "error", err)
			}
			return
		}

		var req Request
		if err := json.Unmarshal(data, &req); err != nil {
			h.logger.Debug("bad request", "error", err)
			continue
		}

		wg.Add(1)
		go func() {
			defer wg.Done()
			res := h.dispatch(ctx, req)
			out, err := json.Marshal(res)
			if err != nil {
				h.logger.Error("encode response", "id", req.ID, "error", err)
				return
			}
			writeMu.Lock()
			defer writeMu.Unlock()
			if err := conn.WriteMessage(websocket.TextMessage, out); err != nil {
				h.logger.Debug("websocket write failed", "error", err)
			}
		}()
	}
}

func (h *Handler) dispatch(ctx context.Context, req Request) Response {
	res := Response{ID: req.ID}
	var (
		result any
		err    error
	)

	switch req.Method {
	case MethodSave:
		var n core.Note
		if err := json.Unmarshal(req.Params, &n); err != nil {
			res.Error = &RPCError{Code: CodeBadRequest, Message: err.Error()}
			return res
		}
		err = h.repo.Save(ctx, n)
	case MethodGet, MethodDelete:
		var p idParams
		if err := json.Unmarshal(req.Params, &p); err != nil {
			res.Error = &RPCError{Code: CodeBadRequest, Message: err.Error()}
			return res
		}
		if req.Method == MethodGet {
			result, err = h.repo.Get(ctx, p.ID)
		} else {
			err = h.repo.Delete(ctx, p.ID)
		}
	case MethodList:
		var notes []core.Note
		notes, err = h.repo.List(ctx)
		if notes == nil {
			notes = []core.Note{}
		}
		result = notes
	case MethodInitialize:
		err = h.repo.Initialize(ctx)
	default:
		res.Error = &RPCError{Code: CodeUnknownMethod, Message: req.Method}
		return res
	}

	if err != nil {
		h.logger.Debug("call failed", "method", req.Method, "error", err)
		res.Error = toRPCError(err)
		return res
	}
	if result != nil {
		if res.Result, err = json.Marshal(result); err != nil {
			res.Error = toRPCError(err)
		}
	}
	return res
}
