// Package measuretext defines the Text Measurer contract the pagination
// engine depends on, and a deterministic reference implementation.
//
// The engine never measures text itself: it is a black box behind this
// interface, so a caller can swap in a platform text shaper without the
// engine knowing which one is wired up. Two Measurer implementations
// producing different line breaks for the same input is an accepted
// limitation, but the SAME implementation must be deterministic run to
// run, since that's what makes a cached page sequence replayable.
package measuretext

import (
	"unicode/utf8"

	"github.com/jackzampolin/pageflow/internal/style"
)

// Style is the text style a run of measured text is set in.
type Style = style.Style

// LineMetric describes one laid-out line of text.
type LineMetric struct {
	Left      float64
	Top       float64 // distance from the block's origin to the line's top edge
	BaselineY float64
	Ascent    float64
	Descent   float64
	Height    float64
	FirstChar int // byte offset into the measured text
	LastChar  int // byte offset, exclusive
}

// LaidOutText is the result of measuring a string at a given width.
type LaidOutText struct {
	PreferredLineHeight float64
	Lines               []LineMetric

	text      string
	runeWidth func(rune) float64
}

// TotalHeight returns the sum of every line's height.
func (t *LaidOutText) TotalHeight() float64 {
	var h float64
	for _, l := range t.Lines {
		h += l.Height
	}
	return h
}

// PositionAtOffset maps a local pixel offset to a byte index in the
// measured text, the way a platform text layout exposes hit-testing.
// Used by the page builder to find a candidate break point: it never
// needs to be exact down to the pixel, only consistent, since the page
// builder always clamps and token-snaps the result afterward.
func (t *LaidOutText) PositionAtOffset(x, y float64) int {
	if len(t.Lines) == 0 {
		return 0
	}
	line := t.Lines[0]
	for _, l := range t.Lines {
		if y < l.Top {
			break
		}
		line = l
	}
	if t.runeWidth == nil {
		return line.FirstChar
	}
	width := 0.0
	for i := line.FirstChar; i < line.LastChar; {
		r, size := utf8.DecodeRuneInString(t.text[i:])
		w := t.runeWidth(r)
		if width+w/2 >= x {
			return i
		}
		width += w
		i += size
	}
	return line.LastChar
}

// Measurer is the contract the pagination engine depends on. Given text, a
// style, and a width, it lays out lines deterministically and totally:
// there is no error return because measurement never fails.
type Measurer interface {
	Measure(text string, style Style, maxWidth float64) *LaidOutText
}
