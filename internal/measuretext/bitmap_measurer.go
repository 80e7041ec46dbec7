package measuretext

import (
	"unicode"
	"unicode/utf8"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

// BitmapMeasurer is a deterministic Measurer backed by x/image's fixed
// bitmap fonts. It never touches a platform text shaper, so the same page
// sequence it produces on one machine is reproducible on any other — the
// property the layout key's scaler fingerprint is designed to pin down
// for real shapers too.
//
// Font family and italic/bold are accepted but ignored: basicfont ships
// exactly one face. A platform build swaps this measurer out for a
// harfbuzz/ICU or native text-layout backend behind the same interface.
type BitmapMeasurer struct {
	Face font.Face // defaults to basicfont.Face7x13
}

// NewBitmapMeasurer returns a BitmapMeasurer using the default 7x13 face.
func NewBitmapMeasurer() *BitmapMeasurer {
	return &BitmapMeasurer{Face: basicfont.Face7x13}
}

func (m *BitmapMeasurer) face() font.Face {
	if m.Face != nil {
		return m.Face
	}
	return basicfont.Face7x13
}

func fixedToFloat(v fixed.Int26_6) float64 {
	return float64(v) / 64
}

func (m *BitmapMeasurer) glyphAdvance(face font.Face, r rune, scale float64) float64 {
	adv, ok := face.GlyphAdvance(r)
	if !ok {
		adv, _ = face.GlyphAdvance('?')
	}
	return fixedToFloat(adv) * scale
}

// Measure lays text out greedily, word-wrapping at the last whitespace
// boundary that still fits maxWidth, and hard-breaking a single run wider
// than maxWidth on its own line (visual overflow accepted, to guarantee
// forced progress for oversized tokens).
func (m *BitmapMeasurer) Measure(text string, sty Style, maxWidth float64) *LaidOutText {
	face := m.face()
	metrics := face.Metrics()

	scale := sty.FontSize / 13.0 // basicfont.Face7x13's nominal size
	if scale <= 0 {
		scale = 1
	}
	ascent := fixedToFloat(metrics.Ascent) * scale
	descent := fixedToFloat(metrics.Descent) * scale
	lineHeight := sty.LineHeight
	if lineHeight <= 0 {
		lineHeight = fixedToFloat(metrics.Height) * scale
	}

	width := func(r rune) float64 { return m.glyphAdvance(face, r, scale) }

	out := &LaidOutText{PreferredLineHeight: lineHeight, text: text, runeWidth: width}

	if len(text) == 0 {
		out.Lines = []LineMetric{{Top: 0, BaselineY: ascent, Ascent: ascent, Descent: descent, Height: lineHeight, FirstChar: 0, LastChar: 0}}
		return out
	}

	var (
		lineStart     = 0
		curWidth      = 0.0
		lastBreakByte = -1
		top           = 0.0
		i             = 0
	)

	appendLine := func(end int) {
		out.Lines = append(out.Lines, LineMetric{
			Top:       top,
			BaselineY: top + ascent,
			Ascent:    ascent,
			Descent:   descent,
			Height:    lineHeight,
			FirstChar: lineStart,
			LastChar:  end,
		})
		top += lineHeight
	}

	for i < len(text) {
		r, size := utf8.DecodeRuneInString(text[i:])

		if r == '\n' {
			appendLine(i)
			i += size
			lineStart = i
			curWidth = 0
			lastBreakByte = -1
			continue
		}

		adv := width(r)
		if curWidth+adv > maxWidth && i > lineStart {
			breakAt := i
			if lastBreakByte > lineStart {
				breakAt = lastBreakByte
			}
			appendLine(breakAt)
			lineStart = breakAt
			for lineStart < len(text) && text[lineStart] == ' ' {
				lineStart++
			}
			i = lineStart
			curWidth = 0
			lastBreakByte = -1
			continue
		}

		if unicode.IsSpace(r) {
			lastBreakByte = i + size
		}
		curWidth += adv
		i += size
	}
	appendLine(len(text))

	return out
}
