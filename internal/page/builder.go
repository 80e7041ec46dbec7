package page

import (
	"errors"
	"math"

	"github.com/jackzampolin/pageflow/internal/block"
	"github.com/jackzampolin/pageflow/internal/layout"
	"github.com/jackzampolin/pageflow/internal/measuretext"
	"github.com/jackzampolin/pageflow/internal/pagecursor"
)

// ErrLayoutDegenerate is returned when max_height is too small to fit a
// single line plus its spacing, for any block in the document.
var ErrLayoutDegenerate = errors.New("page: layout too small to fit any line with spacing")

// Builder implements the fit/shrink page-breaking algorithm: it consumes
// block states in document order and emits one Content at a time.
type Builder struct {
	Measurer measuretext.Measurer
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// pageBottomMargin is the dynamic bottom margin subtracted from
// max_height to get the effective vertical budget.
func pageBottomMargin(lineHeight, spacingAfter, maxHeight float64) float64 {
	return clamp(lineHeight+spacingAfter, 48, math.Max(48, maxHeight*0.18))
}

func effectiveMaxHeight(maxHeight, lineHeight, spacingAfter float64) float64 {
	return maxHeight - pageBottomMargin(lineHeight, spacingAfter, maxHeight)
}

// breakPointMargin is the vertical padding above a candidate break line
// used to query the measurer for a break offset.
func breakPointMargin(lineHeight float64) float64 {
	return clamp(lineHeight*0.75, 24, 80)
}

// Next advances cur past one unit of page content — an image, or a text
// slice from the current block — appending nothing itself; the caller
// owns the produced-pages vector. It returns (nil, false, nil) once cur
// has consumed every block.
func (b *Builder) Next(blocks []block.DocumentBlock, states []*block.State, cfg layout.Config, cur *pagecursor.Cursor) (*Content, bool, error) {
	for cur.BlockIndex < len(blocks) {
		switch v := blocks[cur.BlockIndex].(type) {
		case *block.ImageBlock:
			content := b.nextImagePage(v, cfg, cur)
			return content, true, nil

		case *block.TextBlock:
			st := states[cur.BlockIndex]
			st.Ensure(v, b.Measurer, cfg.MaxWidth)

			if len(st.Lines) == 0 {
				// Empty text block: skip, no page emitted.
				advanceBlock(cur)
				continue
			}

			if cur.TextState != nil {
				st.Cursor = block.Cursor{
					LineIndex:    cur.TextState.LineIndex,
					CharOffset:   cur.TextState.TextOffset,
					TokenPointer: cur.TextState.TokenPointer,
				}
			} else {
				st.Cursor = block.Cursor{}
			}

			if st.Completed || st.Cursor.LineIndex >= len(st.Lines) {
				st.Completed = true
				advanceBlock(cur)
				continue
			}

			content, ok, err := b.nextTextPage(v, st, cfg, cur)
			if err != nil {
				return nil, false, err
			}
			if !ok {
				// The block has no token left to emit (an empty or
				// whitespace-only block): mark it done and move on
				// rather than emitting a blank page.
				st.Completed = true
				advanceBlock(cur)
				continue
			}
			return content, true, nil

		default:
			advanceBlock(cur)
			continue
		}
	}
	return nil, false, nil
}

func advanceBlock(cur *pagecursor.Cursor) {
	cur.BlockIndex++
	cur.TextState = nil
}

// nextImagePage emits the current image block's single page: the image
// is always emitted — clamped to the available height when it would
// otherwise overflow — and consumes exactly one character of the global
// index to keep find-by-character well-defined.
func (b *Builder) nextImagePage(img *block.ImageBlock, cfg layout.Config, cur *pagecursor.Cursor) *Content {
	avail := cfg.MaxHeight - img.SpacingBefore - img.SpacingAfter
	if avail < 0 {
		avail = 0
	}
	fittedHeight := avail
	if img.IntrinsicWidth > 0 && img.IntrinsicHeight > 0 {
		scaled := img.IntrinsicHeight * (cfg.MaxWidth / img.IntrinsicWidth)
		if scaled < fittedHeight {
			fittedHeight = scaled
		}
	}

	content := &Content{
		ChapterIndex: img.ChapterIndex,
		StartChar:    cur.GlobalCharIndex,
		EndChar:      cur.GlobalCharIndex,
		StartWord:    cur.GlobalWordIndex,
		EndWord:      cur.GlobalWordIndex - 1, // zero tokens on an image page
		Blocks: []PageBlock{{Image: &ImagePageBlock{
			Bytes:          img.Bytes,
			RenderedHeight: fittedHeight,
			SpacingBefore:  img.SpacingBefore,
			SpacingAfter:   img.SpacingAfter,
		}}},
	}

	cur.GlobalCharIndex++
	advanceBlock(cur)
	return content
}

// nextTextPage lays out and breaks one page's worth of content from the
// current text block. ok is false only when the block has no token left
// to emit (an empty or whitespace-only block); otherwise at least one
// token is always emitted, even if it overflows the budget.
func (b *Builder) nextTextPage(blk *block.TextBlock, st *block.State, cfg layout.Config, cur *pagecursor.Cursor) (*Content, bool, error) {
	effStyle := blk.EffectiveStyle()
	lineHeight := effStyle.LineHeight
	if lineHeight <= 0 {
		lineHeight = st.Lines[0].Height
	}
	effMaxH := effectiveMaxHeight(cfg.MaxHeight, lineHeight, blk.SpacingAfter)
	if effMaxH <= 0 {
		return nil, false, ErrLayoutDegenerate
	}

	startOfPageChar := st.Cursor.CharOffset
	isLeadingBlock := cur.BlockIndex == 0
	spacingBefore := blk.SpacingBefore
	if startOfPageChar != 0 || isLeadingBlock {
		// Mid-block resumption never re-applies spacing_before, and a
		// document's first block forces it to 0.
		spacingBefore = 0
	}

	lineIdx := st.Cursor.LineIndex
	currentHeight := spacingBefore
	linesAdded := 0
	overflowLine := -1

	for lineIdx < len(st.Lines) {
		line := st.Lines[lineIdx]
		isLast := lineIdx == len(st.Lines)-1
		extra := 0.0
		if isLast {
			extra = blk.SpacingAfter
		}
		if currentHeight+line.Height+extra > effMaxH && linesAdded > 0 {
			overflowLine = lineIdx
			break
		}
		currentHeight += line.Height
		linesAdded++
		lineIdx++
		if isLast {
			break
		}
	}

	var tokenPtrExcl, safeBreak int
	if overflowLine >= 0 {
		tokenPtrExcl, safeBreak = b.computeBreak(blk, st, cfg, effStyle, overflowLine, lineHeight, startOfPageChar)
	} else {
		// Reached the block's last line without overflowing: flush to
		// end of block.
		tokenPtrExcl = len(st.Tokens)
		safeBreak = len(blk.Text)
	}

	return b.shrinkAndEmit(blk, st, cfg, cur, effStyle, spacingBefore, effMaxH, startOfPageChar, tokenPtrExcl, safeBreak)
}

// computeBreak finds a token-safe break offset, given the line that
// overflowed.
func (b *Builder) computeBreak(blk *block.TextBlock, st *block.State, cfg layout.Config, effStyle measuretext.Style, overflowLine int, lineHeight float64, startOfPageChar int) (tokenPtrExcl, safeBreak int) {
	line := st.Lines[overflowLine]
	breakY := line.Top - breakPointMargin(lineHeight)
	if breakY < 0 {
		breakY = 0
	}
	// PositionAtOffset needs the same laid-out geometry the block state
	// was built from, so re-measure at the block's configured width and
	// effective style rather than reusing st.Lines (which carries no
	// x/y lookup of its own beyond the top offsets already read above).
	full := b.Measurer.Measure(blk.Text, effStyle, cfg.MaxWidth)
	breakOffset := full.PositionAtOffset(line.Left, breakY)

	target := breakOffset
	if st.LineStartChar[overflowLine] > target {
		target = st.LineStartChar[overflowLine]
	}

	k := st.Cursor.TokenPointer
	for {
		prevEnd := 0
		if k > 0 {
			prevEnd = st.Tokens[k-1].End
		}
		if prevEnd >= target {
			break
		}
		if k >= len(st.Tokens) {
			break
		}
		k++
	}
	tokenPtrExcl = k

	if tokenPtrExcl > st.Cursor.TokenPointer {
		safeBreak = st.Tokens[tokenPtrExcl-1].End
	} else {
		safeBreak = st.LineStartChar[overflowLine]
	}

	if safeBreak <= startOfPageChar {
		// Force progress: take at least one token.
		tokenPtrExcl = st.Cursor.TokenPointer + 1
		if tokenPtrExcl-1 < len(st.Tokens) {
			safeBreak = st.Tokens[tokenPtrExcl-1].End
		} else {
			safeBreak = len(blk.Text)
		}
	}
	return tokenPtrExcl, safeBreak
}

// shrinkAndEmit shrinks the candidate page until it fits the effective
// height budget, emits its Content, and advances the cursor past it.
func (b *Builder) shrinkAndEmit(blk *block.TextBlock, st *block.State, cfg layout.Config, cur *pagecursor.Cursor, effStyle measuretext.Style, spacingBefore, effMaxH float64, startOfPageChar, tokenPtrExcl, safeBreak int) (*Content, bool, error) {
	floor := st.Cursor.TokenPointer + 1 // never shrink to a zero-token page if forced progress secured one token
	if tokenPtrExcl < floor {
		floor = tokenPtrExcl
	}

	for {
		candidate := blk.Text[startOfPageChar:safeBreak]
		isLastOfBlock := safeBreak >= len(blk.Text)
		spacingAfterApplied := 0.0
		if isLastOfBlock {
			spacingAfterApplied = blk.SpacingAfter
		}

		laid := b.Measurer.Measure(candidate, effStyle, cfg.MaxWidth)
		measuredHeight := math.Ceil(laid.TotalHeight())

		fits := spacingBefore+measuredHeight+spacingAfterApplied <= effMaxH
		if fits || tokenPtrExcl <= floor {
			if tokenPtrExcl <= st.Cursor.TokenPointer {
				// No token is left to emit (an empty or whitespace-only
				// block). Signal block-done.
				return nil, false, nil
			}
			break
		}
		tokenPtrExcl--
		if tokenPtrExcl > st.Cursor.TokenPointer {
			safeBreak = st.Tokens[tokenPtrExcl-1].End
		} else {
			safeBreak = st.LineStartChar[st.Cursor.LineIndex]
		}
	}

	isLastOfBlock := safeBreak >= len(blk.Text)
	spacingAfterApplied := 0.0
	if isLastOfBlock {
		spacingAfterApplied = blk.SpacingAfter
	}

	acceptedLen := safeBreak - startOfPageChar
	tokensInPage := tokenPtrExcl - st.Cursor.TokenPointer
	startWord := cur.GlobalWordIndex
	endWord := startWord + tokensInPage - 1
	if tokensInPage <= 0 {
		endWord = startWord - 1
	}

	content := &Content{
		ChapterIndex: blk.ChapterIndex,
		StartChar:    cur.GlobalCharIndex,
		EndChar:      cur.GlobalCharIndex + acceptedLen - 1,
		StartWord:    startWord,
		EndWord:      endWord,
		Blocks: []PageBlock{{Text: &TextPageBlock{
			Text:          blk.Text[startOfPageChar:safeBreak],
			Style:         effStyle,
			Align:         blk.TextAlign,
			SpacingBefore: spacingBefore,
			SpacingAfter:  spacingAfterApplied,
		}}},
	}

	cur.GlobalCharIndex += acceptedLen
	cur.GlobalWordIndex = endWord + 1

	newLineIndex := st.LineIndexForChar(safeBreak)
	st.Cursor = block.Cursor{LineIndex: newLineIndex, CharOffset: safeBreak, TokenPointer: tokenPtrExcl}

	if isLastOfBlock {
		st.Completed = true
		cur.TextState = nil
		advanceBlock(cur)
	} else {
		cur.TextState = &pagecursor.TextState{LineIndex: newLineIndex, TextOffset: safeBreak, TokenPointer: tokenPtrExcl}
	}

	return content, true, nil
}
