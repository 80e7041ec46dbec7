// Package style holds the text-styling types shared by the block, page,
// and pagecache packages, so none of them need to import each other just
// to describe a paragraph's font.
package style

// Align is the paragraph alignment of a text block.
type Align int

const (
	AlignStart Align = iota
	AlignCenter
	AlignEnd
	AlignJustify
)

// FontStyle distinguishes upright from italic text.
type FontStyle int

const (
	FontStyleNormal FontStyle = iota
	FontStyleItalic
)

func (s FontStyle) String() string {
	if s == FontStyleItalic {
		return "italic"
	}
	return "normal"
}

// ParseFontStyle is the inverse of String, for decoding the on-disk
// "normal"/"italic" tag back into a FontStyle.
func ParseFontStyle(s string) FontStyle {
	if s == "italic" {
		return FontStyleItalic
	}
	return FontStyleNormal
}

// FontWeights is the canonical CSS-style weight sequence used to encode a
// style's weight as an index on disk, rather than the raw number.
var FontWeights = [...]int{100, 200, 300, 400, 500, 600, 700, 800, 900}

// FontWeightIndex returns the index into FontWeights closest to weight.
func FontWeightIndex(weight int) int {
	best := 0
	bestDiff := -1
	for i, w := range FontWeights {
		diff := weight - w
		if diff < 0 {
			diff = -diff
		}
		if bestDiff < 0 || diff < bestDiff {
			bestDiff = diff
			best = i
		}
	}
	return best
}

// Style describes the font a run of text is measured and rendered with.
type Style struct {
	FontFamily string
	FontSize   float64
	LineHeight float64 // pixel line height; 0 means "use the measurer's preferred height"
	FontWeight int     // 100-900, CSS convention
	FontStyle  FontStyle
	Color      *uint32 // ARGB; nil means "unset"
}
