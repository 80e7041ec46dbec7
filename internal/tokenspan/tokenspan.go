// Package tokenspan builds the token spans a text block can legally break
// between. It wraps clipperhouse/uax29's UAX#29 word segmenter rather
// than hand-rolling whitespace splitting: UAX#29 already gives the
// ideographic-run behavior a page breaker needs — CJK text has no
// letter-clustering rule joining adjacent ideographs, so the segmenter
// naturally yields one segment per ideograph, legal to break between —
// while still keeping apostrophes, numerals-with-commas, and other
// word-internal punctuation intact for Latin scripts.
package tokenspan

import (
	"strings"

	"github.com/clipperhouse/uax29/v2/words"
)

// Span is a contiguous byte range within a text block that must not be
// split by the page builder; End is exclusive. Whitespace following a
// token belongs to that token's span, so a page broken at span[i].End
// carries the trailing space with it and the next page starts on a
// token.
type Span struct {
	Start int
	End   int
}

// Build segments text into ordered, non-overlapping token spans. Spans
// never overlap and are sorted by Start; whitespace between two tokens
// is absorbed into the preceding span's End, so a break at span[i].End
// is always legal and never strands a space at the top of a page.
func Build(text string) []Span {
	if text == "" {
		return nil
	}

	var spans []Span
	tokens := words.FromString(text)
	for tokens.Next() {
		if strings.TrimSpace(tokens.Value()) == "" {
			continue
		}
		spans = append(spans, Span{Start: tokens.Start(), End: tokens.End()})
	}
	for i := 0; i < len(spans)-1; i++ {
		spans[i].End = spans[i+1].Start
	}
	if len(spans) > 0 {
		spans[len(spans)-1].End = len(text)
	}
	return spans
}
