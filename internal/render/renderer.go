package render

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"math"
	"sync"

	xdraw "golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/gofont/goitalic"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/math/fixed"

	"github.com/kvistad/russekort/internal/models"
)

// Default canvas size for the "official" render of a card.
const (
	DefaultWidth  = 760
	DefaultHeight = 444
)

// Fixed layout constants. Text is stacked top-left; the quote and the
// contact lines are anchored to the bottom edge and grow upward.
const (
	padding       = 18
	titleOffsetY  = 42
	lineOffsetY   = 70
	lineAdvance   = 20
	bottomReserve = 56
	stickerSize   = 32
	stickerInset  = 16
)

// Font size tiers, one per text role.
const (
	nameFontSize    = 34
	titleFontSize   = 22
	bodyFontSize    = 16
	contactFontSize = 16
)

// imageAlpha is the opacity applied to the cover-fit background image;
// overlayColor is the translucent scrim painted over it so text stays
// legible. The scrim is applied only when an image is present.
var (
	imageAlpha   = color.Alpha{A: 230} // 90%
	overlayColor = color.RGBA{A: 64}   // 25% black
)

// CardData is the renderer's single input shape. Both an editor draft and
// a stored record convert into it, so the live preview and the shared
// render can never drift apart.
type CardData struct {
	DisplayName string
	RussTitle   string
	Line        string
	Quote       string
	Contact     models.Contact
	BgColor     string
	TextColor   string
	Font        string
	Image       image.Image
	Stickers    []models.Sticker
}

// DataFromCard adapts a stored record for rendering. img is the decoded
// upload, or nil when the card has none.
func DataFromCard(card *models.Card, img image.Image) CardData {
	data := CardData{
		DisplayName: card.DisplayName,
		RussTitle:   card.RussTitle,
		Line:        card.Line,
		Quote:       card.Quote,
		BgColor:     card.BgColor,
		TextColor:   card.TextColor,
		Font:        card.Font,
		Image:       img,
		Stickers:    card.Stickers,
	}
	if card.Contact != nil {
		data.Contact = *card.Contact
	}
	return data
}

// DataFromDraft adapts an editor draft for rendering.
func DataFromDraft(draft *models.CardDraft, img image.Image) CardData {
	return CardData{
		DisplayName: draft.DisplayName,
		RussTitle:   draft.RussTitle,
		Line:        draft.Line,
		Quote:       draft.Quote,
		Contact:     draft.Contact,
		BgColor:     draft.BgColor,
		TextColor:   draft.TextColor,
		Font:        draft.Font,
		Image:       img,
		Stickers:    draft.Stickers,
	}
}

var (
	fontOnce     sync.Once
	regularFont  *opentype.Font
	boldFont     *opentype.Font
	italicFont   *opentype.Font
	fontParseErr error
)

func parseFonts() {
	fontOnce.Do(func() {
		parse := func(ttf []byte) *opentype.Font {
			if fontParseErr != nil {
				return nil
			}
			f, err := opentype.Parse(ttf)
			if err != nil {
				fontParseErr = err
			}
			return f
		}
		regularFont = parse(goregular.TTF)
		boldFont = parse(gobold.TTF)
		italicFont = parse(goitalic.TTF)
	})
}

func newFace(fnt *opentype.Font, size float64) (font.Face, error) {
	face, err := opentype.NewFace(fnt, &opentype.FaceOptions{
		Size:    size,
		DPI:     72,
		Hinting: font.HintingFull,
	})
	if err != nil {
		return nil, fmt.Errorf("load font face: %w", err)
	}
	return face, nil
}

// Render composites data onto a fresh W×H canvas. Output is a pure
// function of the input: identical data always yields identical pixels.
// Custom font families reduce to the embedded Go faces so renders do not
// depend on host-installed fonts.
func Render(data CardData, w, h int) (*image.RGBA, error) {
	if w <= 0 || h <= 0 {
		return nil, fmt.Errorf("render: invalid canvas size %dx%d", w, h)
	}
	parseFonts()
	if fontParseErr != nil {
		return nil, fmt.Errorf("parse fonts: %w", fontParseErr)
	}

	img := image.NewRGBA(image.Rect(0, 0, w, h))

	bg := parseHexColor(data.BgColor, models.DefaultBgColor)
	draw.Draw(img, img.Bounds(), &image.Uniform{C: bg}, image.Point{}, draw.Src)

	if data.Image != nil {
		drawCoverImage(img, data.Image)
		draw.Draw(img, img.Bounds(), &image.Uniform{C: overlayColor}, image.Point{}, draw.Over)
	}

	textColor := parseHexColor(data.TextColor, models.DefaultTextColor)

	nameFace, err := newFace(boldFont, nameFontSize)
	if err != nil {
		return nil, err
	}
	defer func() { _ = nameFace.Close() }()
	titleFace, err := newFace(boldFont, titleFontSize)
	if err != nil {
		return nil, err
	}
	defer func() { _ = titleFace.Close() }()
	bodyFace, err := newFace(regularFont, bodyFontSize)
	if err != nil {
		return nil, err
	}
	defer func() { _ = bodyFace.Close() }()
	quoteFace, err := newFace(italicFont, bodyFontSize)
	if err != nil {
		return nil, err
	}
	defer func() { _ = quoteFace.Close() }()
	stickerFace, err := newFace(regularFont, stickerSize)
	if err != nil {
		return nil, err
	}
	defer func() { _ = stickerFace.Close() }()

	drawTextTop(img, nameFace, padding, padding, data.DisplayName, textColor)
	drawTextTop(img, titleFace, padding, padding+titleOffsetY, data.RussTitle, textColor)
	drawTextTop(img, bodyFace, padding, padding+lineOffsetY, data.Line, textColor)

	if data.Quote != "" {
		measure := faceMeasure(quoteFace)
		lines := WrapText(`"`+data.Quote+`"`, w-padding*2, measure)
		y := h - padding - len(lines)*lineAdvance - bottomReserve
		for i, line := range lines {
			drawTextTop(img, quoteFace, padding, y+i*lineAdvance, line, textColor)
		}
	}

	y := h - padding - bottomReserve
	for _, entry := range []struct {
		prefix string
		value  string
	}{
		{"Snap: ", data.Contact.Snapchat},
		{"IG: ", data.Contact.Instagram},
		{"Tlf: ", data.Contact.Phone},
	} {
		if entry.value == "" {
			continue
		}
		drawTextTop(img, bodyFace, padding, y, entry.prefix+entry.value, textColor)
		y += lineAdvance
	}

	for _, s := range data.Stickers {
		x := int(math.Round(s.X*float64(w))) - stickerInset
		sy := int(math.Round(s.Y*float64(h))) - stickerInset
		drawTextTop(img, stickerFace, x, sy, s.Emoji, textColor)
	}

	return img, nil
}

// RenderPNG renders data and encodes the result as PNG.
func RenderPNG(data CardData, w, h int) ([]byte, error) {
	img, err := Render(data, w, h)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("encode png: %w", err)
	}
	return buf.Bytes(), nil
}

// drawCoverImage paints src over the whole canvas using cover-fit
// placement at 90% opacity.
func drawCoverImage(dst *image.RGBA, src image.Image) {
	bounds := dst.Bounds()
	sb := src.Bounds()
	fit := CoverFit(float64(bounds.Dx()), float64(bounds.Dy()), float64(sb.Dx()), float64(sb.Dy()))
	if fit.DrawW <= 0 || fit.DrawH <= 0 {
		return
	}

	dr := image.Rect(
		int(math.Round(fit.OffsetX)),
		int(math.Round(fit.OffsetY)),
		int(math.Round(fit.OffsetX+fit.DrawW)),
		int(math.Round(fit.OffsetY+fit.DrawH)),
	)
	scaled := image.NewRGBA(image.Rect(0, 0, dr.Dx(), dr.Dy()))
	xdraw.CatmullRom.Scale(scaled, scaled.Bounds(), src, sb, xdraw.Src, nil)

	visible := dr.Intersect(bounds)
	sp := image.Point{X: visible.Min.X - dr.Min.X, Y: visible.Min.Y - dr.Min.Y}
	draw.DrawMask(dst, visible, scaled, sp, &image.Uniform{C: imageAlpha}, image.Point{}, draw.Over)
}

// drawTextTop draws text with (x, y) as the top-left of the line box,
// matching a top text baseline.
func drawTextTop(img draw.Image, face font.Face, x, y int, text string, clr color.Color) {
	if text == "" {
		return
	}
	d := &font.Drawer{
		Dst:  img,
		Src:  image.NewUniform(clr),
		Face: face,
		Dot:  fixed.P(x, y+face.Metrics().Ascent.Ceil()),
	}
	d.DrawString(text)
}

func faceMeasure(face font.Face) MeasureFunc {
	d := &font.Drawer{Face: face}
	return func(s string) int {
		return d.MeasureString(s).Ceil()
	}
}

// parseHexColor parses #rgb or #rrggbb, falling back when malformed.
func parseHexColor(s, fallback string) color.RGBA {
	if c, ok := hexColor(s); ok {
		return c
	}
	c, _ := hexColor(fallback)
	return c
}

func hexColor(s string) (color.RGBA, bool) {
	if len(s) == 0 || s[0] != '#' {
		return color.RGBA{}, false
	}
	hexVal := func(b byte) (uint8, bool) {
		switch {
		case b >= '0' && b <= '9':
			return b - '0', true
		case b >= 'a' && b <= 'f':
			return b - 'a' + 10, true
		case b >= 'A' && b <= 'F':
			return b - 'A' + 10, true
		}
		return 0, false
	}
	switch len(s) {
	case 4:
		var out [3]uint8
		for i := 0; i < 3; i++ {
			v, ok := hexVal(s[i+1])
			if !ok {
				return color.RGBA{}, false
			}
			out[i] = v*16 + v
		}
		return color.RGBA{R: out[0], G: out[1], B: out[2], A: 0xFF}, true
	case 7:
		var out [3]uint8
		for i := 0; i < 3; i++ {
			hi, ok1 := hexVal(s[i*2+1])
			lo, ok2 := hexVal(s[i*2+2])
			if !ok1 || !ok2 {
				return color.RGBA{}, false
			}
			out[i] = hi*16 + lo
		}
		return color.RGBA{R: out[0], G: out[1], B: out[2], A: 0xFF}, true
	}
	return color.RGBA{}, false
}
