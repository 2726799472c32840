package render

import "strings"

// MeasureFunc reports the advance width in pixels of a string under the
// renderer's current face.
type MeasureFunc func(string) int

// FitRect is the placement computed by CoverFit.
type FitRect struct {
	DrawW   float64
	DrawH   float64
	OffsetX float64
	OffsetY float64
}

// CoverFit scales content to fully cover the container while preserving
// its aspect ratio, centering the axis that overflows. The returned
// rectangle always contains the container.
func CoverFit(containerW, containerH, contentW, contentH float64) FitRect {
	if containerW <= 0 || containerH <= 0 || contentW <= 0 || contentH <= 0 {
		return FitRect{}
	}
	scale := containerW / contentW
	if s := containerH / contentH; s > scale {
		scale = s
	}
	drawW := contentW * scale
	drawH := contentH * scale
	return FitRect{
		DrawW:   drawW,
		DrawH:   drawH,
		OffsetX: (containerW - drawW) / 2,
		OffsetY: (containerH - drawH) / 2,
	}
}

// WrapText greedily wraps text into lines no wider than maxWidth under
// measure. Words are never dropped, reordered, or split: a single word
// wider than maxWidth occupies its own line. Empty input yields no lines.
func WrapText(text string, maxWidth int, measure MeasureFunc) []string {
	words := strings.Fields(text)
	if len(words) == 0 {
		return nil
	}

	var lines []string
	current := words[0]
	for _, word := range words[1:] {
		test := current + " " + word
		if measure(test) <= maxWidth {
			current = test
			continue
		}
		lines = append(lines, current)
		current = word
	}
	return append(lines, current)
}
