package deeplink

import "testing"

func TestParsePath(t *testing.T) {
	cases := []struct {
		path   string
		kind   Kind
		cardID string
	}{
		{"/card/abcdef1234567890", KindCardDetail, "abcdef1234567890"},
		{"/card/ABCDEF1234567890", KindCardDetail, "abcdef1234567890"},
		{"/card/abcdef1234567890abcdef1234567890", KindCardDetail, "abcdef1234567890abcdef1234567890"},
		{"/", KindCreate, ""},
		{"/card/short", KindCreate, ""},
		{"/card/", KindCreate, ""},
		{"/album", KindCreate, ""},
	}
	for _, tc := range cases {
		got := ParsePath(tc.path)
		if got.Kind != tc.kind || got.CardID != tc.cardID {
			t.Errorf("ParsePath(%q) = %+v, want kind=%v id=%q", tc.path, got, tc.kind, tc.cardID)
		}
	}
}

func TestMatchPayload(t *testing.T) {
	id, ok := MatchPayload("https://russekort.example.com/card/abcdef1234567890")
	if !ok || id != "abcdef1234567890" {
		t.Fatalf("expected card match, got id=%q ok=%v", id, ok)
	}

	if _, ok := MatchPayload("https://example.com/something-else"); ok {
		t.Fatal("expected opaque payload not to match")
	}
	if _, ok := MatchPayload("plain text"); ok {
		t.Fatal("expected plain text not to match")
	}
}

func TestResolverOpen_SingleOrigin(t *testing.T) {
	r := NewResolver("")
	nav := r.Open("abcdef1234567890")
	if nav.External {
		t.Fatal("expected in-page navigation in single-origin mode")
	}
	if nav.Path != "/card/abcdef1234567890" {
		t.Fatalf("unexpected path: %q", nav.Path)
	}
}

func TestResolverOpen_ExternalMode(t *testing.T) {
	r := NewResolver("https://api.russekort.example.com/")
	if !r.External() {
		t.Fatal("expected external mode when base URL is set")
	}
	nav := r.Open("abcdef1234567890")
	if !nav.External {
		t.Fatal("expected external navigation intent")
	}
	if nav.URL != "https://api.russekort.example.com/card/abcdef1234567890" {
		t.Fatalf("unexpected URL: %q", nav.URL)
	}
	if nav.Path != "" {
		t.Fatal("external navigation must not carry an in-page path")
	}
}

func TestResolverCanonicalURL(t *testing.T) {
	r := NewResolver("")
	got := r.CanonicalURL("http://localhost:8080/", "abcdef1234567890")
	if got != "http://localhost:8080/card/abcdef1234567890" {
		t.Fatalf("unexpected canonical URL: %q", got)
	}

	r = NewResolver("https://cards.example.com")
	got = r.CanonicalURL("http://localhost:8080", "abcdef1234567890")
	if got != "https://cards.example.com/card/abcdef1234567890" {
		t.Fatalf("expected public base to win, got %q", got)
	}
}
