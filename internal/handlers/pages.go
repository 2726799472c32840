package handlers

import (
	"errors"
	"html/template"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/kvistad/russekort/internal/deeplink"
	"github.com/kvistad/russekort/internal/models"
	"github.com/kvistad/russekort/internal/services"
)

// CardPageHandler serves the deep-link landing page. When the deployment
// is externally hosted the page is a redirect to the canonical link;
// otherwise it renders an OpenGraph-tagged page so link unfurls show the
// card.
type CardPageHandler struct {
	templates   *template.Template
	cardService services.CardServiceInterface
	resolver    deeplink.Resolver
}

type CardPageData struct {
	Found        bool
	PageTitle    string
	ErrorMessage string

	OGTitle       string
	OGDescription string
	OGURL         string
	OGImage       string
	OGImageAlt    string
}

func NewCardPageHandler(templatesDir string, cardService services.CardServiceInterface, resolver deeplink.Resolver) (*CardPageHandler, error) {
	templates, err := template.ParseFiles(filepath.Join(templatesDir, "card.html"))
	if err != nil {
		return nil, err
	}
	return &CardPageHandler{
		templates:   templates,
		cardService: cardService,
		resolver:    resolver,
	}, nil
}

func (h *CardPageHandler) Serve(w http.ResponseWriter, r *http.Request) {
	id := strings.ToLower(strings.TrimSpace(r.PathValue("id")))
	if !models.IsValidCardID(id) {
		h.render(w, http.StatusNotFound, CardPageData{
			Found:        false,
			PageTitle:    "Russekort",
			ErrorMessage: "Dette kortet finnes ikke.",
		})
		return
	}

	if h.resolver.External() {
		http.Redirect(w, r, h.resolver.CanonicalURL(resolveBaseURL(r), id), http.StatusFound)
		return
	}

	card, err := h.cardService.GetCard(r.Context(), id)
	if err != nil {
		if errors.Is(err, services.ErrCardNotFound) {
			h.render(w, http.StatusNotFound, CardPageData{
				Found:        false,
				PageTitle:    "Russekort",
				ErrorMessage: "Dette kortet finnes ikke.",
			})
			return
		}
		h.render(w, http.StatusInternalServerError, CardPageData{
			Found:        false,
			PageTitle:    "Russekort",
			ErrorMessage: "Noe gikk galt.",
		})
		return
	}

	title := cardDisplayTitle(card)
	baseURL := resolveBaseURL(r)

	h.render(w, http.StatusOK, CardPageData{
		Found:         true,
		PageTitle:     title + " - Russekort",
		OGTitle:       title,
		OGDescription: cardDescription(card),
		OGURL:         baseURL + "/card/" + card.ID,
		OGImage:       baseURL + "/api/cards/" + card.ID + "/image",
		OGImageAlt:    "Russekort for " + title,
	})
}

func (h *CardPageHandler) render(w http.ResponseWriter, status int, data CardPageData) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	_ = h.templates.ExecuteTemplate(w, "card.html", data)
}

func cardDisplayTitle(card *models.Card) string {
	if name := strings.TrimSpace(card.DisplayName); name != "" {
		return name
	}
	return "Russekort"
}

func cardDescription(card *models.Card) string {
	if title := strings.TrimSpace(card.RussTitle); title != "" {
		return title
	}
	if line := strings.TrimSpace(card.Line); line != "" {
		return line
	}
	return "Skann og samle russekort"
}
