package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/kvistad/russekort/internal/editor"
	"github.com/kvistad/russekort/internal/logging"
	"github.com/kvistad/russekort/internal/models"
	"github.com/kvistad/russekort/internal/render"
	"github.com/kvistad/russekort/internal/services"
	"github.com/kvistad/russekort/internal/sticker"
)

type EditorHandler struct {
	sessions    *editor.Manager
	maxUploadMB int
}

func NewEditorHandler(sessions *editor.Manager, maxUploadMB int) *EditorHandler {
	if maxUploadMB <= 0 {
		maxUploadMB = 8
	}
	return &EditorHandler{sessions: sessions, maxUploadMB: maxUploadMB}
}

type editorCreateRequest struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

type editorSessionResponse struct {
	SessionID string           `json:"session_id"`
	Draft     models.CardDraft `json:"draft"`
}

func (h *EditorHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req editorCreateRequest
	if r.Body != nil {
		// Body is optional; a bare POST gets the default surface.
		_ = json.NewDecoder(r.Body).Decode(&req)
	}
	if req.Width <= 0 || req.Height <= 0 {
		req.Width = float64(render.DefaultWidth)
		req.Height = float64(render.DefaultHeight)
	}

	s := h.sessions.Create(sticker.Box{W: req.Width, H: req.Height})
	writeJSON(w, http.StatusCreated, editorSessionResponse{
		SessionID: s.ID,
		Draft:     s.Draft(),
	})
}

func (h *EditorHandler) Get(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, editorSessionResponse{
		SessionID: s.ID,
		Draft:     s.Draft(),
	})
}

type editorDraftPatch struct {
	DisplayName *string         `json:"display_name"`
	RussTitle   *string         `json:"russ_title"`
	Line        *string         `json:"line"`
	Quote       *string         `json:"quote"`
	Contact     *models.Contact `json:"contact"`
	BgColor     *string         `json:"bg_color"`
	TextColor   *string         `json:"text_color"`
	Font        *string         `json:"font"`
}

// Update applies a partial draft patch; absent fields keep their value.
func (h *EditorHandler) Update(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}

	var patch editorDraftPatch
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	s.Update(func(d *models.CardDraft) {
		if patch.DisplayName != nil {
			d.DisplayName = *patch.DisplayName
		}
		if patch.RussTitle != nil {
			d.RussTitle = *patch.RussTitle
		}
		if patch.Line != nil {
			d.Line = *patch.Line
		}
		if patch.Quote != nil {
			d.Quote = *patch.Quote
		}
		if patch.Contact != nil {
			d.Contact = *patch.Contact
		}
		if patch.BgColor != nil {
			d.BgColor = *patch.BgColor
		}
		if patch.TextColor != nil {
			d.TextColor = *patch.TextColor
		}
		if patch.Font != nil {
			d.Font = *patch.Font
		}
	})

	writeJSON(w, http.StatusOK, editorSessionResponse{
		SessionID: s.ID,
		Draft:     s.Draft(),
	})
}

type addStickerRequest struct {
	Emoji string   `json:"emoji"`
	X     *float64 `json:"x"`
	Y     *float64 `json:"y"`
}

func (h *EditorHandler) AddSticker(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}

	var req addStickerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || strings.TrimSpace(req.Emoji) == "" {
		writeError(w, http.StatusBadRequest, "Invalid sticker payload")
		return
	}

	var handle int
	if req.X != nil && req.Y != nil {
		handle = s.Overlay().Add(req.Emoji, *req.X, *req.Y)
	} else {
		handle = s.Overlay().AddDefault(req.Emoji)
	}

	writeJSON(w, http.StatusCreated, map[string]any{
		"handle":   handle,
		"stickers": s.Draft().Stickers,
	})
}

type dragRequest struct {
	Phase string  `json:"phase"`
	DX    float64 `json:"dx"`
	DY    float64 `json:"dy"`
}

// Drag drives one sticker through the begin/move/end phases.
func (h *EditorHandler) Drag(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	handle, ok := h.handle(w, r)
	if !ok {
		return
	}

	var req dragRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	var err error
	switch req.Phase {
	case "begin":
		err = s.Overlay().BeginDrag(handle)
	case "move":
		err = s.Overlay().DragMove(handle, req.DX, req.DY)
	case "end":
		err = s.Overlay().EndDrag(handle)
	default:
		writeError(w, http.StatusBadRequest, "Unknown drag phase")
		return
	}

	if err != nil {
		switch {
		case errors.Is(err, sticker.ErrUnknownHandle):
			writeError(w, http.StatusNotFound, "Sticker not found")
		case errors.Is(err, sticker.ErrNotDragging):
			writeError(w, http.StatusConflict, "Sticker is not being dragged")
		default:
			writeError(w, http.StatusInternalServerError, "Internal server error")
		}
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"stickers": s.Draft().Stickers})
}

func (h *EditorHandler) RemoveSticker(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	handle, ok := h.handle(w, r)
	if !ok {
		return
	}

	if err := s.Overlay().Remove(handle); err != nil {
		writeError(w, http.StatusNotFound, "Sticker not found")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"stickers": s.Draft().Stickers})
}

type resizeRequest struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

func (h *EditorHandler) Resize(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}

	var req resizeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Width <= 0 || req.Height <= 0 {
		writeError(w, http.StatusBadRequest, "Invalid dimensions")
		return
	}

	s.Overlay().Resize(sticker.Box{W: req.Width, H: req.Height})
	writeJSON(w, http.StatusOK, map[string]any{"stickers": s.Draft().Stickers})
}

// SetImage attaches a photo to the draft. The body is the raw image file;
// subsequent previews composite the card over it.
func (h *EditorHandler) SetImage(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, int64(h.maxUploadMB)<<20)
	data, err := io.ReadAll(r.Body)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid or oversized image")
		return
	}

	img, err := services.DecodeImage(data)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Unsupported image format")
		return
	}

	s.SetImage(img)
	writeJSON(w, http.StatusOK, editorSessionResponse{
		SessionID: s.ID,
		Draft:     s.Draft(),
	})
}

// RemoveImage clears the draft photo.
func (h *EditorHandler) RemoveImage(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	s.SetImage(nil)
	w.WriteHeader(http.StatusNoContent)
}

// Preview renders the draft as it currently stands.
func (h *EditorHandler) Preview(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}

	draft := s.Draft()
	png, err := render.RenderPNG(render.DataFromDraft(&draft, s.Image()), render.DefaultWidth, render.DefaultHeight)
	if err != nil {
		logging.Error("Draft preview render failed", map[string]interface{}{"error": err.Error()})
		writeError(w, http.StatusInternalServerError, "Failed to render preview")
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(png)
}

func (h *EditorHandler) Delete(w http.ResponseWriter, r *http.Request) {
	sid := strings.TrimSpace(r.PathValue("sid"))
	h.sessions.Delete(sid)
	w.WriteHeader(http.StatusNoContent)
}

func (h *EditorHandler) session(w http.ResponseWriter, r *http.Request) (*editor.Session, bool) {
	sid := strings.TrimSpace(r.PathValue("sid"))
	s, err := h.sessions.Get(sid)
	if err != nil {
		writeError(w, http.StatusNotFound, "Editor session not found")
		return nil, false
	}
	return s, true
}

func (h *EditorHandler) handle(w http.ResponseWriter, r *http.Request) (int, bool) {
	raw := strings.TrimSpace(r.PathValue("handle"))
	handle, err := strconv.Atoi(raw)
	if err != nil {
		writeError(w, http.StatusNotFound, "Sticker not found")
		return 0, false
	}
	return handle, true
}
