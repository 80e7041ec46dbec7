package block

import (
	"sort"

	"github.com/jackzampolin/pageflow/internal/measuretext"
	"github.com/jackzampolin/pageflow/internal/tokenspan"
)

// Cursor is a TextBlock's local reading position: which line, which byte
// offset within the block's text, and which token the next break search
// should start from. CharOffset is always either 0 or equal to some
// token's End — it is never inside a token.
type Cursor struct {
	LineIndex    int
	CharOffset   int
	TokenPointer int
}

// State is a TextBlock's derived, lazily-built layout: measured lines,
// token spans, and the mutable cursor tracking how far the block has
// been consumed. It is mutated only by the pagination engine's serial
// queue — never concurrently, so it carries no lock of its own.
type State struct {
	Lines         []measuretext.LineMetric
	LineStartChar []int
	Tokens        []tokenspan.Span
	Cursor        Cursor
	Completed     bool

	built bool
}

// NewState returns a fresh, not-yet-built block state.
func NewState() *State { return &State{} }

// Ensure lazily measures the block's text and builds its token spans on
// first visit; subsequent calls are no-ops.
func (s *State) Ensure(blk *TextBlock, m measuretext.Measurer, maxWidth float64) {
	if s.built {
		return
	}
	laid := m.Measure(blk.Text, blk.EffectiveStyle(), maxWidth)
	s.Lines = laid.Lines
	s.LineStartChar = make([]int, len(laid.Lines))
	for i, l := range laid.Lines {
		s.LineStartChar[i] = l.FirstChar
	}
	s.Tokens = tokenspan.Build(blk.Text)
	s.built = true
}

// LineIndexForChar returns the index of the line containing charOffset:
// the last line whose FirstChar is <= charOffset.
func (s *State) LineIndexForChar(charOffset int) int {
	idx := sort.Search(len(s.LineStartChar), func(i int) bool {
		return s.LineStartChar[i] > charOffset
	}) - 1
	if idx < 0 {
		idx = 0
	}
	if idx >= len(s.Lines) {
		idx = len(s.Lines) - 1
	}
	return idx
}
