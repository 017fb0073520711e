package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sort"

	"github.com/go-chi/chi/v5"

	"github.com/aretw0/quire/pkg/core"
	"github.com/aretw0/quire/pkg/markdown"
	"github.com/aretw0/quire/pkg/sidebar"
	"github.com/aretw0/quire/pkg/workspace"
)

// maxUpload bounds multipart image uploads held in memory.
const maxUpload = 32 << 20

var errBadRequest = errors.New("bad request")

// NoteResponse is a note with its undo state.
type NoteResponse struct {
	Note    core.Note `json:"note"`
	CanUndo bool      `json:"can_undo"`
	CanRedo bool      `json:"can_redo"`
}

// SummaryResponse lists a note without its blocks.
type SummaryResponse struct {
	ID     string  `json:"id"`
	Title  string  `json:"title"`
	Folder *string `json:"folder,omitempty"`
	Blocks int     `json:"blocks"`
}

// CreateRequest creates a note.
type CreateRequest struct {
	Title  string  `json:"title"`
	Folder *string `json:"folder,omitempty"`
}

// TitleRequest renames a note.
type TitleRequest struct {
	Title string `json:"title"`
}

// InsertRequest inserts a block at Index, or right after After when set.
// A nil Index appends.
type InsertRequest struct {
	Index *int   `json:"index,omitempty"`
	After string `json:"after,omitempty"`
	core.Block
}

// InsertResponse names the inserted block.
type InsertResponse struct {
	ID string `json:"id"`
	NoteResponse
}

// UpdateRequest changes a block's type or heading level, or toggles a
// checklist item.
type UpdateRequest struct {
	Type   *core.BlockType `json:"type,omitempty"`
	Level  *int            `json:"level,omitempty"`
	Toggle bool            `json:"toggle,omitempty"`
}

// MoveRequest moves a block to index To of the remaining blocks.
type MoveRequest struct {
	To int `json:"to"`
}

// PasteRequest pastes HTML or markdown at the given caret, or at the end
// of the note when BlockID is empty.
type PasteRequest struct {
	HTML     string `json:"html,omitempty"`
	Markdown string `json:"markdown,omitempty"`
	BlockID  string `json:"block_id,omitempty"`
	Offset   int    `json:"offset,omitempty"`
}

// WordCountResponse is the word count of a note.
type WordCountResponse struct {
	Words int `json:"words"`
}

func decode(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return fmt.Errorf("%w: %v", errBadRequest, err)
	}
	return nil
}

// withSession runs fn against the session of the note in the URL on the
// editing goroutine and answers with the note afterwards.
func (s *Server) withSession(w http.ResponseWriter, r *http.Request, fn func(sess *workspace.Session) error) {
	id := chi.URLParam(r, "id")
	var res NoteResponse
	err := s.ws.Do(r.Context(), func() error {
		sess, err := s.ws.Open(r.Context(), id)
		if err != nil {
			return err
		}
		if err := fn(sess); err != nil {
			return err
		}
		res = s.snapshot(sess)
		return nil
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, res)
}

func (s *Server) snapshot(sess *workspace.Session) NoteResponse {
	n, _ := s.ws.Store().Note(sess.NoteID)
	return NoteResponse{Note: n, CanUndo: sess.History.CanUndo(), CanRedo: sess.History.CanRedo()}
}

func rejected(ok bool, what string) error {
	if !ok {
		return fmt.Errorf("%w: %s", errRejected, what)
	}
	return nil
}

func (s *Server) listNotes(w http.ResponseWriter, r *http.Request) {
	var out []SummaryResponse
	_ = s.ws.Do(r.Context(), func() error {
		for _, n := range s.ws.Store().Notes() {
			out = append(out, SummaryResponse{ID: n.ID, Title: n.Title, Folder: n.Folder, Blocks: len(n.Content.Blocks)})
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	if out == nil {
		out = []SummaryResponse{}
	}
	s.writeJSON(w, http.StatusOK, out)
}

func (s *Server) createNote(w http.ResponseWriter, r *http.Request) {
	var req CreateRequest
	if err := decode(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	var res NoteResponse
	err := s.ws.Do(r.Context(), func() error {
		sess, err := s.ws.Create(r.Context(), req.Title, req.Folder)
		if err != nil {
			return err
		}
		res = s.snapshot(sess)
		return nil
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, res)
}

func (s *Server) tree(w http.ResponseWriter, r *http.Request) {
	var rows []sidebar.Row
	_ = s.ws.Do(r.Context(), func() error {
		rows = s.ws.Tree().Rows()
		return nil
	})
	if rows == nil {
		rows = []sidebar.Row{}
	}
	s.writeJSON(w, http.StatusOK, rows)
}

func (s *Server) getNote(w http.ResponseWriter, r *http.Request) {
	s.withSession(w, r, func(*workspace.Session) error { return nil })
}

func (s *Server) deleteNote(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := s.ws.Do(r.Context(), func() error { return s.ws.Delete(r.Context(), id) }); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) setTitle(w http.ResponseWriter, r *http.Request) {
	var req TitleRequest
	if err := decode(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	s.withSession(w, r, func(sess *workspace.Session) error {
		sess.Editor.SetTitle(req.Title)
		return nil
	})
}

func (s *Server) wordCount(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	var res WordCountResponse
	err := s.ws.Do(r.Context(), func() error {
		if _, err := s.ws.Open(r.Context(), id); err != nil {
			return err
		}
		res.Words = s.ws.Store().WordCount(id)
		return nil
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, res)
}

func (s *Server) exportMarkdown(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	var out []byte
	err := s.ws.Do(r.Context(), func() error {
		if _, err := s.ws.Open(r.Context(), id); err != nil {
			return err
		}
		n, _ := s.ws.Store().Note(id)
		out = markdown.Export(n)
		return nil
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "text/markdown; charset=utf-8")
	_, _ = w.Write(out)
}

func (s *Server) insertBlock(w http.ResponseWriter, r *http.Request) {
	var req InsertRequest
	if err := decode(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	if req.Type == "" {
		req.Type = core.BlockParagraph
	}
	if !req.Type.Valid() {
		s.writeError(w, r, fmt.Errorf("%w: unknown block type %q", errBadRequest, req.Type))
		return
	}

	var id string
	var res NoteResponse
	err := s.ws.Do(r.Context(), func() error {
		sess, err := s.ws.Open(r.Context(), chi.URLParam(r, "id"))
		if err != nil {
			return err
		}
		store := s.ws.Store()
		index := len(store.Blocks(sess.NoteID))
		switch {
		case req.After != "":
			i := store.IndexOf(sess.NoteID, req.After)
			if i < 0 {
				return fmt.Errorf("%w: block %s", core.ErrNotFound, req.After)
			}
			index = i + 1
		case req.Index != nil:
			index = *req.Index
		}
		b := req.Block
		b.ID = ""
		var ok bool
		id, ok = sess.Editor.InsertBlock(index, b)
		if err := rejected(ok, "insert"); err != nil {
			return err
		}
		res = s.snapshot(sess)
		return nil
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, InsertResponse{ID: id, NoteResponse: res})
}

func (s *Server) updateBlock(w http.ResponseWriter, r *http.Request) {
	var req UpdateRequest
	if err := decode(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	blockID := chi.URLParam(r, "blockID")
	s.withSession(w, r, func(sess *workspace.Session) error {
		if _, ok := s.ws.Store().Block(sess.NoteID, blockID); !ok {
			return fmt.Errorf("%w: block %s", core.ErrNotFound, blockID)
		}
		if req.Type != nil {
			if !req.Type.Valid() {
				return fmt.Errorf("%w: unknown block type %q", errBadRequest, *req.Type)
			}
			sess.Editor.SetType(blockID, *req.Type)
		}
		if req.Level != nil {
			if err := rejected(sess.Editor.SetHeadingLevel(blockID, *req.Level), "heading level"); err != nil {
				return err
			}
		}
		if req.Toggle {
			return rejected(sess.Editor.ToggleChecked(blockID), "toggle")
		}
		return nil
	})
}

func (s *Server) deleteBlock(w http.ResponseWriter, r *http.Request) {
	blockID := chi.URLParam(r, "blockID")
	s.withSession(w, r, func(sess *workspace.Session) error {
		if _, ok := s.ws.Store().Block(sess.NoteID, blockID); !ok {
			return fmt.Errorf("%w: block %s", core.ErrNotFound, blockID)
		}
		return rejected(sess.Editor.DeleteBlock(blockID), "delete the last block")
	})
}

func (s *Server) moveBlock(w http.ResponseWriter, r *http.Request) {
	var req MoveRequest
	if err := decode(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	blockID := chi.URLParam(r, "blockID")
	s.withSession(w, r, func(sess *workspace.Session) error {
		if _, ok := s.ws.Store().Block(sess.NoteID, blockID); !ok {
			return fmt.Errorf("%w: block %s", core.ErrNotFound, blockID)
		}
		sess.Editor.MoveBlocks([]string{blockID}, req.To)
		return nil
	})
}

func (s *Server) undo(w http.ResponseWriter, r *http.Request) {
	s.withSession(w, r, func(sess *workspace.Session) error {
		return rejected(sess.Editor.Undo(), "nothing to undo")
	})
}

func (s *Server) redo(w http.ResponseWriter, r *http.Request) {
	s.withSession(w, r, func(sess *workspace.Session) error {
		return rejected(sess.Editor.Redo(), "nothing to redo")
	})
}

// placeCaret puts the caret at blockID:offset, or at the end of the last
// text block when blockID is empty.
func (s *Server) placeCaret(sess *workspace.Session, blockID string, offset int) error {
	if blockID != "" {
		return rejected(sess.Bridge.PlaceCaret(blockID, offset), "caret position")
	}
	blocks := s.ws.Store().Blocks(sess.NoteID)
	for i := len(blocks) - 1; i >= 0; i-- {
		if blocks[i].Type.HoldsText() {
			sess.Bridge.PlaceCaretAtEnd(blocks[i].ID)
			return nil
		}
	}
	sess.Bridge.ClearSelection()
	return nil
}

func (s *Server) paste(w http.ResponseWriter, r *http.Request) {
	var req PasteRequest
	if err := decode(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	s.withSession(w, r, func(sess *workspace.Session) error {
		if err := s.placeCaret(sess, req.BlockID, req.Offset); err != nil {
			return err
		}
		switch {
		case req.Markdown != "":
			doc := markdown.Import([]byte(req.Markdown))
			return rejected(sess.Editor.PasteBlocks(doc.Blocks), "paste")
		case req.HTML != "":
			return rejected(sess.Editor.Paste(req.HTML), "paste")
		}
		return fmt.Errorf("%w: nothing to paste", errBadRequest)
	})
}

func (s *Server) insertImage(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxUpload); err != nil {
		s.writeError(w, r, fmt.Errorf("%w: %v", errBadRequest, err))
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		s.writeError(w, r, fmt.Errorf("%w: %v", errBadRequest, err))
		return
	}
	defer file.Close()

	blockID := r.FormValue("block_id")
	s.withSession(w, r, func(sess *workspace.Session) error {
		if err := s.placeCaret(sess, blockID, 0); err != nil {
			return err
		}
		return sess.Editor.InsertImage(r.Context(), header.Filename, file)
	})
}
