package handlers

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"image"
	"io"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/kvistad/russekort/internal/deeplink"
	"github.com/kvistad/russekort/internal/logging"
	"github.com/kvistad/russekort/internal/models"
	"github.com/kvistad/russekort/internal/render"
	"github.com/kvistad/russekort/internal/services"
)

// QRGenerator produces QR PNGs for canonical card links.
type QRGenerator interface {
	Generate(ctx context.Context, cardID, url string) ([]byte, error)
}

type CardHandler struct {
	cardService services.CardServiceInterface
	media       *services.MediaStore
	qr          QRGenerator
	resolver    deeplink.Resolver
	maxUploadMB int
	validate    *validator.Validate
}

func NewCardHandler(cardService services.CardServiceInterface, media *services.MediaStore, qr QRGenerator, resolver deeplink.Resolver, maxUploadMB int) *CardHandler {
	if maxUploadMB <= 0 {
		maxUploadMB = 8
	}
	return &CardHandler{
		cardService: cardService,
		media:       media,
		qr:          qr,
		resolver:    resolver,
		maxUploadMB: maxUploadMB,
		validate:    validator.New(),
	}
}

// Create accepts a multipart form: text fields plus contact_json,
// stickers_json and an optional image upload.
func (h *CardHandler) Create(w http.ResponseWriter, r *http.Request) {
	maxBytes := int64(h.maxUploadMB) << 20
	r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
	if err := r.ParseMultipartForm(maxBytes); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid or oversized form")
		return
	}

	params := models.CreateCardParams{
		DisplayName: strings.TrimSpace(r.FormValue("display_name")),
		RussTitle:   strings.TrimSpace(r.FormValue("russ_title")),
		Line:        strings.TrimSpace(r.FormValue("line")),
		Quote:       strings.TrimSpace(r.FormValue("quote")),
		BgColor:     strings.TrimSpace(r.FormValue("bg_color")),
		TextColor:   strings.TrimSpace(r.FormValue("text_color")),
		Font:        strings.TrimSpace(r.FormValue("font")),
	}

	if raw := r.FormValue("contact_json"); raw != "" {
		if err := json.Unmarshal([]byte(raw), &params.Contact); err != nil {
			writeError(w, http.StatusBadRequest, "Invalid contact_json")
			return
		}
	}
	if raw := r.FormValue("stickers_json"); raw != "" {
		if err := json.Unmarshal([]byte(raw), &params.Stickers); err != nil {
			writeError(w, http.StatusBadRequest, "Invalid stickers_json")
			return
		}
	}

	if err := h.validate.Struct(params); err != nil {
		writeError(w, http.StatusBadRequest, "Validation failed: "+err.Error())
		return
	}

	if file, header, err := r.FormFile("image"); err == nil {
		defer file.Close()
		data, err := io.ReadAll(file)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Failed to read image upload")
			return
		}
		rel, err := h.media.SaveCardImage(models.NewCardID(), header.Filename, data)
		if err != nil {
			if errors.Is(err, services.ErrUnsupportedImage) {
				writeError(w, http.StatusBadRequest, "Unsupported image type")
				return
			}
			logging.Error("Saving card image failed", map[string]interface{}{"error": err.Error()})
			writeError(w, http.StatusInternalServerError, "Internal server error")
			return
		}
		params.ImagePath = rel
	}

	card, err := h.cardService.Create(r.Context(), params)
	if err != nil {
		logging.Error("Creating card failed", map[string]interface{}{"error": err.Error()})
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	writeJSON(w, http.StatusCreated, card)
}

func (h *CardHandler) Get(w http.ResponseWriter, r *http.Request) {
	card, ok := h.loadCard(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, card)
}

// Scan records one scan and returns the updated record.
func (h *CardHandler) Scan(w http.ResponseWriter, r *http.Request) {
	id := strings.ToLower(strings.TrimSpace(r.PathValue("id")))
	if !models.IsValidCardID(id) {
		writeError(w, http.StatusNotFound, "Card not found")
		return
	}

	if err := h.cardService.IncrementScan(r.Context(), id); err != nil {
		if errors.Is(err, services.ErrCardNotFound) {
			writeError(w, http.StatusNotFound, "Card not found")
			return
		}
		logging.Error("Incrementing scan count failed", map[string]interface{}{"error": err.Error()})
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	card, err := h.cardService.GetCard(r.Context(), id)
	if err != nil {
		logging.Error("Fetching card after scan failed", map[string]interface{}{"error": err.Error()})
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	writeJSON(w, http.StatusOK, card)
}

// QRCode serves a PNG QR of the card's canonical deep link.
func (h *CardHandler) QRCode(w http.ResponseWriter, r *http.Request) {
	card, ok := h.loadCard(w, r)
	if !ok {
		return
	}

	url := h.resolver.CanonicalURL(resolveBaseURL(r), card.ID)
	png, err := h.qr.Generate(r.Context(), card.ID, url)
	if err != nil {
		logging.Error("QR generation failed", map[string]interface{}{"error": err.Error()})
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "public, max-age=86400")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(png)
}

// Image serves the official server-side render of the card.
func (h *CardHandler) Image(w http.ResponseWriter, r *http.Request) {
	card, ok := h.loadCard(w, r)
	if !ok {
		return
	}

	data := render.DataFromCard(card, h.loadPhoto(card))
	png, err := render.RenderPNG(data, render.DefaultWidth, render.DefaultHeight)
	if err != nil {
		logging.Error("Card render failed", map[string]interface{}{"error": err.Error()})
		writeError(w, http.StatusInternalServerError, "Failed to render image")
		return
	}

	sum := sha256.Sum256(png)
	etag := `W/"` + hex.EncodeToString(sum[:8]) + `"`
	if inm := r.Header.Get("If-None-Match"); inm != "" && strings.Contains(inm, etag) {
		w.Header().Set("ETag", etag)
		w.WriteHeader(http.StatusNotModified)
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "public, max-age=300, must-revalidate")
	w.Header().Set("ETag", etag)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(png)
}

// Top returns the scan-count leaderboard.
func (h *CardHandler) Top(w http.ResponseWriter, r *http.Request) {
	items, err := h.cardService.Top(r.Context(), 10)
	if err != nil {
		logging.Error("Fetching top cards failed", map[string]interface{}{"error": err.Error()})
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	writeJSON(w, http.StatusOK, items)
}

func (h *CardHandler) loadCard(w http.ResponseWriter, r *http.Request) (*models.Card, bool) {
	id := strings.ToLower(strings.TrimSpace(r.PathValue("id")))
	if !models.IsValidCardID(id) {
		writeError(w, http.StatusNotFound, "Card not found")
		return nil, false
	}

	card, err := h.cardService.GetCard(r.Context(), id)
	if err != nil {
		if errors.Is(err, services.ErrCardNotFound) {
			writeError(w, http.StatusNotFound, "Card not found")
			return nil, false
		}
		logging.Error("Fetching card failed", map[string]interface{}{"error": err.Error()})
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return nil, false
	}
	return card, true
}

// loadPhoto best-effort decodes the card's uploaded image; a card renders
// fine without one.
func (h *CardHandler) loadPhoto(card *models.Card) image.Image {
	if h.media == nil || card.ImageURL == "" {
		return nil
	}
	rel := services.MediaPathFromURL(card.ImageURL)
	if rel == "" {
		return nil
	}
	img, err := h.media.LoadCardImage(rel)
	if err != nil {
		logging.Warn("Loading card image failed", map[string]interface{}{
			"card":  card.ID,
			"error": err.Error(),
		})
		return nil
	}
	return img
}
