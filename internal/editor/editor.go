// Package editor tracks in-progress card drafts. Each session owns one
// draft plus a sticker overlay; sessions are in-memory and expire after a
// period of inactivity.
package editor

import (
	"context"
	"errors"
	"image"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/kvistad/russekort/internal/models"
	"github.com/kvistad/russekort/internal/sticker"
)

var ErrSessionNotFound = errors.New("editor session not found")

const (
	DefaultTTL           = 2 * time.Hour
	DefaultSweepInterval = 5 * time.Minute
)

// Session is one editing surface. The overlay's change hook keeps the
// draft's sticker list in sync, so Draft always reflects what a preview
// render would show. The optional photo is held decoded so previews and
// the eventual official render start from the same pixels.
type Session struct {
	ID string

	mu      sync.Mutex
	draft   models.CardDraft
	image   image.Image
	overlay *sticker.Overlay
	touched time.Time
}

func newSession(box sticker.Box) *Session {
	s := &Session{
		ID: strings.ReplaceAll(uuid.New().String(), "-", ""),
		draft: models.CardDraft{
			BgColor:   models.DefaultBgColor,
			TextColor: models.DefaultTextColor,
		},
		touched: time.Now(),
	}
	s.overlay = sticker.NewOverlay(box, s.syncStickers)
	return s
}

func (s *Session) syncStickers() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.draft.Stickers = s.overlay.Snapshot()
}

// Update applies fn to the draft under the session lock.
func (s *Session) Update(fn func(*models.CardDraft)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fn(&s.draft)
}

// Draft returns a copy of the current draft state.
func (s *Session) Draft() models.CardDraft {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.draft
}

// SetImage replaces the session photo. Passing nil clears it.
func (s *Session) SetImage(img image.Image) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.image = img
}

// Image returns the session photo, or nil when none has been uploaded.
func (s *Session) Image() image.Image {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.image
}

// Overlay exposes the sticker surface for add/drag/remove operations.
func (s *Session) Overlay() *sticker.Overlay {
	return s.overlay
}

func (s *Session) touch() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.touched = time.Now()
}

func (s *Session) expired(ttl time.Duration, now time.Time) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return now.Sub(s.touched) > ttl
}

// Manager owns all live sessions.
type Manager struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	ttl      time.Duration
}

func NewManager(ttl time.Duration) *Manager {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Manager{
		sessions: make(map[string]*Session),
		ttl:      ttl,
	}
}

func (m *Manager) Create(box sticker.Box) *Session {
	s := newSession(box)
	m.mu.Lock()
	m.sessions[s.ID] = s
	m.mu.Unlock()
	return s
}

// Get returns the session and refreshes its expiry.
func (m *Manager) Get(id string) (*Session, error) {
	m.mu.RLock()
	s, ok := m.sessions[id]
	m.mu.RUnlock()
	if !ok {
		return nil, ErrSessionNotFound
	}
	s.touch()
	return s, nil
}

func (m *Manager) Delete(id string) {
	m.mu.Lock()
	delete(m.sessions, id)
	m.mu.Unlock()
}

func (m *Manager) sweep(now time.Time) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	removed := 0
	for id, s := range m.sessions {
		if s.expired(m.ttl, now) {
			delete(m.sessions, id)
			removed++
		}
	}
	return removed
}

// Run sweeps expired sessions until ctx is cancelled.
func (m *Manager) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = DefaultSweepInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			m.sweep(now)
		}
	}
}
