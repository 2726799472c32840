package handlers

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/kvistad/russekort/internal/album"
	"github.com/kvistad/russekort/internal/logging"
	"github.com/kvistad/russekort/internal/models"
	"github.com/kvistad/russekort/internal/services"
)

const (
	deviceCookieName = "russekort_device"
	deviceCookieAge  = 365 * 24 * time.Hour
)

// StoreFactory yields the album store for one device.
type StoreFactory func(deviceID string) album.Store

// AlbumHandler exposes a per-device collection of scanned cards. Devices
// are identified by a long-lived cookie; the id list lives in the store
// the factory provides, Redis in production.
type AlbumHandler struct {
	stores      StoreFactory
	cardService services.CardServiceInterface
	secure      bool
}

func NewAlbumHandler(stores StoreFactory, cardService services.CardServiceInterface, secure bool) *AlbumHandler {
	return &AlbumHandler{
		stores:      stores,
		cardService: cardService,
		secure:      secure,
	}
}

func (h *AlbumHandler) List(w http.ResponseWriter, r *http.Request) {
	a := h.albumFor(w, r)

	cards, err := a.Load(r.Context())
	if err != nil {
		logging.Error("Loading album failed", map[string]interface{}{"error": err.Error()})
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	if cards == nil {
		cards = []*models.Card{}
	}
	writeJSON(w, http.StatusOK, cards)
}

func (h *AlbumHandler) Add(w http.ResponseWriter, r *http.Request) {
	id := strings.ToLower(strings.TrimSpace(r.PathValue("id")))
	if !models.IsValidCardID(id) {
		writeError(w, http.StatusNotFound, "Card not found")
		return
	}

	// Only known cards enter the album.
	if _, err := h.cardService.GetCard(r.Context(), id); err != nil {
		if errors.Is(err, services.ErrCardNotFound) {
			writeError(w, http.StatusNotFound, "Card not found")
			return
		}
		logging.Error("Fetching card for album failed", map[string]interface{}{"error": err.Error()})
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	a := h.albumFor(w, r)
	if err := a.Add(r.Context(), id); err != nil {
		logging.Error("Adding to album failed", map[string]interface{}{"error": err.Error()})
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	ids, err := a.IDs(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ids": ids})
}

func (h *AlbumHandler) Remove(w http.ResponseWriter, r *http.Request) {
	id := strings.ToLower(strings.TrimSpace(r.PathValue("id")))
	if !models.IsValidCardID(id) {
		writeError(w, http.StatusNotFound, "Card not found")
		return
	}

	a := h.albumFor(w, r)
	if err := a.Remove(r.Context(), id); err != nil {
		logging.Error("Removing from album failed", map[string]interface{}{"error": err.Error()})
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	ids, err := a.IDs(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ids": ids})
}

// albumFor resolves the device's album, minting a device cookie on first
// contact.
func (h *AlbumHandler) albumFor(w http.ResponseWriter, r *http.Request) *album.Album {
	deviceID := h.deviceID(w, r)
	return album.New(h.stores(deviceID), h.cardService)
}

func (h *AlbumHandler) deviceID(w http.ResponseWriter, r *http.Request) string {
	if cookie, err := r.Cookie(deviceCookieName); err == nil && cookie.Value != "" {
		if _, err := uuid.Parse(cookie.Value); err == nil {
			return cookie.Value
		}
	}

	deviceID := uuid.New().String()
	http.SetCookie(w, &http.Cookie{
		Name:     deviceCookieName,
		Value:    deviceID,
		Path:     "/",
		MaxAge:   int(deviceCookieAge.Seconds()),
		HttpOnly: true,
		Secure:   h.secure,
		SameSite: http.SameSiteLaxMode,
	})
	return deviceID
}
