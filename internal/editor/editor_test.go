package editor

import (
	"testing"
	"time"

	"github.com/kvistad/russekort/internal/models"
	"github.com/kvistad/russekort/internal/sticker"
)

func TestSessionDefaultsAndUpdate(t *testing.T) {
	m := NewManager(time.Minute)
	s := m.Create(sticker.Box{W: 760, H: 444})

	draft := s.Draft()
	if draft.BgColor != models.DefaultBgColor || draft.TextColor != models.DefaultTextColor {
		t.Fatalf("expected default colors, got %q/%q", draft.BgColor, draft.TextColor)
	}

	s.Update(func(d *models.CardDraft) {
		d.DisplayName = "Kari"
		d.RussTitle = "Russepresident"
	})
	draft = s.Draft()
	if draft.DisplayName != "Kari" || draft.RussTitle != "Russepresident" {
		t.Fatalf("update not applied: %+v", draft)
	}
}

func TestOverlayKeepsDraftStickersInSync(t *testing.T) {
	m := NewManager(time.Minute)
	s := m.Create(sticker.Box{W: 200, H: 100})

	h := s.Overlay().AddDefault("🎉")
	if len(s.Draft().Stickers) != 1 {
		t.Fatalf("expected sticker in draft after add")
	}

	if err := s.Overlay().BeginDrag(h); err != nil {
		t.Fatalf("BeginDrag: %v", err)
	}
	if err := s.Overlay().DragMove(h, 20, 10); err != nil {
		t.Fatalf("DragMove: %v", err)
	}
	st := s.Draft().Stickers[0]
	if st.X != 0.6 || st.Y != 0.3 {
		t.Fatalf("expected draft sticker at (0.6, 0.3), got (%v, %v)", st.X, st.Y)
	}

	if err := s.Overlay().Remove(h); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if len(s.Draft().Stickers) != 0 {
		t.Fatalf("expected empty sticker list after remove")
	}
}

func TestManagerGetUnknown(t *testing.T) {
	m := NewManager(time.Minute)
	if _, err := m.Get("missing"); err != ErrSessionNotFound {
		t.Fatalf("expected ErrSessionNotFound, got %v", err)
	}
}

func TestManagerSweepRemovesExpired(t *testing.T) {
	m := NewManager(time.Minute)
	s := m.Create(sticker.Box{W: 100, H: 100})

	if removed := m.sweep(time.Now()); removed != 0 {
		t.Fatalf("fresh session should survive sweep, removed %d", removed)
	}
	if removed := m.sweep(time.Now().Add(2 * time.Minute)); removed != 1 {
		t.Fatalf("expected 1 expired session, removed %d", removed)
	}
	if _, err := m.Get(s.ID); err != ErrSessionNotFound {
		t.Fatalf("expected session gone after sweep, got %v", err)
	}
}
