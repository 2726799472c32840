package handlers

import (
	"bytes"
	"context"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/kvistad/russekort/internal/deeplink"
	"github.com/kvistad/russekort/internal/models"
	"github.com/kvistad/russekort/internal/services"
	"github.com/kvistad/russekort/internal/testutil"
)

type mockCardService struct {
	services.CardServiceInterface
	CreateFunc        func(ctx context.Context, params models.CreateCardParams) (*models.Card, error)
	GetCardFunc       func(ctx context.Context, id string) (*models.Card, error)
	IncrementScanFunc func(ctx context.Context, id string) error
	TopFunc           func(ctx context.Context, limit int) ([]models.TopItem, error)
}

func (m *mockCardService) Create(ctx context.Context, params models.CreateCardParams) (*models.Card, error) {
	return m.CreateFunc(ctx, params)
}

func (m *mockCardService) GetCard(ctx context.Context, id string) (*models.Card, error) {
	return m.GetCardFunc(ctx, id)
}

func (m *mockCardService) IncrementScan(ctx context.Context, id string) error {
	return m.IncrementScanFunc(ctx, id)
}

func (m *mockCardService) Top(ctx context.Context, limit int) ([]models.TopItem, error) {
	return m.TopFunc(ctx, limit)
}

type stubQR struct {
	lastURL string
}

func (s *stubQR) Generate(ctx context.Context, cardID, url string) ([]byte, error) {
	s.lastURL = url
	return []byte("png-bytes"), nil
}

func testCard(id string) *models.Card {
	return &models.Card{
		ID:          id,
		DisplayName: "Kari Nordmann",
		RussTitle:   "Russepresident",
		ScanCount:   3,
		CreatedAt:   time.Date(2026, 4, 1, 12, 0, 0, 0, time.UTC),
	}
}

func newTestCardHandler(svc services.CardServiceInterface, qr QRGenerator) *CardHandler {
	return NewCardHandler(svc, nil, qr, deeplink.NewResolver(""), 8)
}

func TestCardHandler_Get(t *testing.T) {
	id := strings.Repeat("a", 32)
	handler := newTestCardHandler(&mockCardService{
		GetCardFunc: func(ctx context.Context, got string) (*models.Card, error) {
			if got != id {
				t.Fatalf("expected id %q, got %q", id, got)
			}
			return testCard(id), nil
		},
	}, nil)

	req := testutil.NewTestRequest(http.MethodGet, "/api/cards/"+id, nil)
	req.SetPathValue("id", id)
	rr := httptest.NewRecorder()

	handler.Get(rr, req)

	testutil.AssertStatusCode(t, rr, http.StatusOK)
	testutil.AssertJSONContains(t, rr.Body.Bytes(), "id", id)
}

func TestCardHandler_GetNotFound(t *testing.T) {
	id := strings.Repeat("b", 32)
	handler := newTestCardHandler(&mockCardService{
		GetCardFunc: func(ctx context.Context, got string) (*models.Card, error) {
			return nil, services.ErrCardNotFound
		},
	}, nil)

	req := testutil.NewTestRequest(http.MethodGet, "/api/cards/"+id, nil)
	req.SetPathValue("id", id)
	rr := httptest.NewRecorder()

	handler.Get(rr, req)

	testutil.AssertStatusCode(t, rr, http.StatusNotFound)
}

func TestCardHandler_GetRejectsMalformedID(t *testing.T) {
	handler := newTestCardHandler(&mockCardService{
		GetCardFunc: func(ctx context.Context, got string) (*models.Card, error) {
			t.Fatal("service should not be called for malformed ids")
			return nil, nil
		},
	}, nil)

	req := testutil.NewTestRequest(http.MethodGet, "/api/cards/short", nil)
	req.SetPathValue("id", "short")
	rr := httptest.NewRecorder()

	handler.Get(rr, req)

	testutil.AssertStatusCode(t, rr, http.StatusNotFound)
}

func TestCardHandler_ScanIncrementsAndReturnsCard(t *testing.T) {
	id := strings.Repeat("c", 32)
	incremented := false
	handler := newTestCardHandler(&mockCardService{
		IncrementScanFunc: func(ctx context.Context, got string) error {
			incremented = true
			return nil
		},
		GetCardFunc: func(ctx context.Context, got string) (*models.Card, error) {
			card := testCard(id)
			card.ScanCount = 4
			return card, nil
		},
	}, nil)

	req := testutil.NewTestRequest(http.MethodPost, "/api/cards/"+id+"/scan", nil)
	req.SetPathValue("id", id)
	rr := httptest.NewRecorder()

	handler.Scan(rr, req)

	testutil.AssertStatusCode(t, rr, http.StatusOK)
	if !incremented {
		t.Fatal("expected IncrementScan to be called")
	}
	parsed := testutil.ParseJSONResponse(t, rr.Body.Bytes())
	if parsed["scan_count"] != float64(4) {
		t.Fatalf("expected scan_count 4, got %v", parsed["scan_count"])
	}
}

func TestCardHandler_ScanUnknownCard(t *testing.T) {
	id := strings.Repeat("d", 32)
	handler := newTestCardHandler(&mockCardService{
		IncrementScanFunc: func(ctx context.Context, got string) error {
			return services.ErrCardNotFound
		},
	}, nil)

	req := testutil.NewTestRequest(http.MethodPost, "/api/cards/"+id+"/scan", nil)
	req.SetPathValue("id", id)
	rr := httptest.NewRecorder()

	handler.Scan(rr, req)

	testutil.AssertStatusCode(t, rr, http.StatusNotFound)
}

func TestCardHandler_QRCodeUsesCanonicalLink(t *testing.T) {
	id := strings.Repeat("e", 32)
	qr := &stubQR{}
	handler := NewCardHandler(&mockCardService{
		GetCardFunc: func(ctx context.Context, got string) (*models.Card, error) {
			return testCard(id), nil
		},
	}, nil, qr, deeplink.NewResolver("https://kort.example.com/"), 8)

	req := testutil.NewTestRequest(http.MethodGet, "/api/cards/"+id+"/qrcode", nil)
	req.Host = "internal.local"
	req.SetPathValue("id", id)
	rr := httptest.NewRecorder()

	handler.QRCode(rr, req)

	testutil.AssertStatusCode(t, rr, http.StatusOK)
	if ct := rr.Header().Get("Content-Type"); ct != "image/png" {
		t.Fatalf("expected image/png, got %q", ct)
	}
	if qr.lastURL != "https://kort.example.com/card/"+id {
		t.Fatalf("expected canonical link, got %q", qr.lastURL)
	}
}

func TestCardHandler_ImageETag(t *testing.T) {
	id := strings.Repeat("f", 32)
	handler := newTestCardHandler(&mockCardService{
		GetCardFunc: func(ctx context.Context, got string) (*models.Card, error) {
			return testCard(id), nil
		},
	}, nil)

	req := testutil.NewTestRequest(http.MethodGet, "/api/cards/"+id+"/image", nil)
	req.SetPathValue("id", id)
	rr := httptest.NewRecorder()

	handler.Image(rr, req)

	testutil.AssertStatusCode(t, rr, http.StatusOK)
	etag := rr.Header().Get("ETag")
	if etag == "" {
		t.Fatal("expected ETag header")
	}

	req2 := testutil.NewTestRequest(http.MethodGet, "/api/cards/"+id+"/image", nil)
	req2.SetPathValue("id", id)
	req2.Header.Set("If-None-Match", etag)
	rr2 := httptest.NewRecorder()

	handler.Image(rr2, req2)

	testutil.AssertStatusCode(t, rr2, http.StatusNotModified)
}

func TestCardHandler_Top(t *testing.T) {
	handler := newTestCardHandler(&mockCardService{
		TopFunc: func(ctx context.Context, limit int) ([]models.TopItem, error) {
			if limit != 10 {
				t.Fatalf("expected limit 10, got %d", limit)
			}
			return []models.TopItem{
				{ID: strings.Repeat("1", 32), ScanCount: 9},
				{ID: strings.Repeat("2", 32), ScanCount: 5},
			}, nil
		},
	}, nil)

	req := testutil.NewTestRequest(http.MethodGet, "/api/top", nil)
	rr := httptest.NewRecorder()

	handler.Top(rr, req)

	testutil.AssertStatusCode(t, rr, http.StatusOK)
	if !strings.Contains(rr.Body.String(), strings.Repeat("1", 32)) {
		t.Fatal("expected top list in response")
	}
}

func TestCardHandler_CreateMultipart(t *testing.T) {
	id := strings.Repeat("9", 32)
	handler := newTestCardHandler(&mockCardService{
		CreateFunc: func(ctx context.Context, params models.CreateCardParams) (*models.Card, error) {
			if params.DisplayName != "Ola" {
				t.Fatalf("expected display name Ola, got %q", params.DisplayName)
			}
			if params.Contact.Snapchat != "ola.snap" {
				t.Fatalf("expected contact to decode, got %+v", params.Contact)
			}
			if len(params.Stickers) != 1 || params.Stickers[0].Emoji != "🎉" {
				t.Fatalf("expected stickers to decode, got %+v", params.Stickers)
			}
			card := testCard(id)
			card.DisplayName = params.DisplayName
			return card, nil
		},
	}, nil)

	var body bytes.Buffer
	form := multipart.NewWriter(&body)
	_ = form.WriteField("display_name", "Ola")
	_ = form.WriteField("contact_json", `{"snapchat":"ola.snap"}`)
	_ = form.WriteField("stickers_json", `[{"emoji":"🎉","x":0.5,"y":0.5}]`)
	_ = form.Close()

	req := testutil.NewTestRequest(http.MethodPost, "/api/cards", &body)
	req.Header.Set("Content-Type", form.FormDataContentType())
	rr := httptest.NewRecorder()

	handler.Create(rr, req)

	testutil.AssertStatusCode(t, rr, http.StatusCreated)
	testutil.AssertJSONContains(t, rr.Body.Bytes(), "id", id)
}

func TestCardHandler_CreateRejectsBadColor(t *testing.T) {
	handler := newTestCardHandler(&mockCardService{
		CreateFunc: func(ctx context.Context, params models.CreateCardParams) (*models.Card, error) {
			t.Fatal("service should not be called on validation failure")
			return nil, nil
		},
	}, nil)

	var body bytes.Buffer
	form := multipart.NewWriter(&body)
	_ = form.WriteField("bg_color", "not-a-color")
	_ = form.Close()

	req := testutil.NewTestRequest(http.MethodPost, "/api/cards", &body)
	req.Header.Set("Content-Type", form.FormDataContentType())
	rr := httptest.NewRecorder()

	handler.Create(rr, req)

	testutil.AssertStatusCode(t, rr, http.StatusBadRequest)
}
