package models

import (
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	// DefaultBgColor is painted when a card has no (or an unparsable) background color.
	DefaultBgColor = "#f44336"
	// DefaultTextColor is used when a card has no text color.
	DefaultTextColor = "#ffffff"

	MaxFieldLen = 120
	MaxQuoteLen = 500
)

// cardIDRe matches the identifier segment of a card deep link. Ids are
// uuid4 hex (32 chars) but anything of 16+ hex chars is accepted so that
// links survive id-scheme changes.
var cardIDRe = regexp.MustCompile(`^[a-f0-9]{16,}$`)

// NewCardID returns a fresh opaque card identifier.
func NewCardID() string {
	return strings.ReplaceAll(uuid.New().String(), "-", "")
}

// IsValidCardID reports whether s looks like a card identifier.
func IsValidCardID(s string) bool {
	return cardIDRe.MatchString(s)
}

// Contact holds the optional ways to reach a card's owner. Empty fields
// are omitted from responses and from the rendered card.
type Contact struct {
	Snapchat  string `json:"snapchat,omitempty"`
	Instagram string `json:"instagram,omitempty"`
	Phone     string `json:"phone,omitempty"`
}

// IsZero reports whether no contact field is set.
func (c Contact) IsZero() bool {
	return c.Snapchat == "" && c.Instagram == "" && c.Phone == ""
}

// Sticker is a decorative element placed on a card. X and Y are fractions
// of the canvas width/height, never pixels, so placements survive resizes.
type Sticker struct {
	Emoji string  `json:"emoji"`
	X     float64 `json:"x" validate:"gte=0,lte=1"`
	Y     float64 `json:"y" validate:"gte=0,lte=1"`
}

// Card is a server-confirmed card record. Once fetched it is treated as a
// read-only snapshot; callers re-fetch rather than mutate.
type Card struct {
	ID          string    `json:"id"`
	DisplayName string    `json:"display_name,omitempty"`
	RussTitle   string    `json:"russ_title,omitempty"`
	Line        string    `json:"line,omitempty"`
	Quote       string    `json:"quote,omitempty"`
	Contact     *Contact  `json:"contact,omitempty"`
	BgColor     string    `json:"bg_color,omitempty"`
	TextColor   string    `json:"text_color,omitempty"`
	Font        string    `json:"font,omitempty"`
	Stickers    []Sticker `json:"stickers,omitempty"`
	ImageURL    string    `json:"image_url,omitempty"`
	ScanCount   int       `json:"scan_count"`
	CreatedAt   time.Time `json:"created_at"`
}

// CardDraft is the in-progress, editable card state owned by one editor
// session. It is converted to CreateCardParams on save.
type CardDraft struct {
	DisplayName string    `json:"display_name"`
	RussTitle   string    `json:"russ_title"`
	Line        string    `json:"line"`
	Quote       string    `json:"quote"`
	Contact     Contact   `json:"contact"`
	BgColor     string    `json:"bg_color"`
	TextColor   string    `json:"text_color"`
	Font        string    `json:"font"`
	Stickers    []Sticker `json:"stickers"`
}

// CreateCardParams is the validated payload for creating a card.
type CreateCardParams struct {
	DisplayName string    `validate:"max=120"`
	RussTitle   string    `validate:"max=120"`
	Line        string    `validate:"max=120"`
	Quote       string    `validate:"max=500"`
	Contact     Contact   `validate:"-"`
	BgColor     string    `validate:"omitempty,hexcolor"`
	TextColor   string    `validate:"omitempty,hexcolor"`
	Font        string    `validate:"max=64"`
	Stickers    []Sticker `validate:"dive"`
	ImagePath   string    `validate:"-"`
}

// TopItem is one row of the scan-count ranking.
type TopItem struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name,omitempty"`
	ImageURL    string `json:"image_url,omitempty"`
	ScanCount   int    `json:"scan_count"`
}
