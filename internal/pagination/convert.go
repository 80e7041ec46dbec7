package pagination

import (
	"github.com/jackzampolin/pageflow/internal/page"
	"github.com/jackzampolin/pageflow/internal/pagecache"
	"github.com/jackzampolin/pageflow/internal/pagecursor"
	"github.com/jackzampolin/pageflow/internal/style"
)

// toCachedStyle flattens a style.Style into the on-disk fields of
// CachedTextPageBlock, encoding FontWeight as an index into the
// canonical 100-900 sequence rather than its raw CSS number.
func toCachedStyle(sty style.Style) (fontSize, lineHeight float64, color *uint32, fontWeight *int, fontStyle, fontFamily string) {
	idx := style.FontWeightIndex(sty.FontWeight)
	return sty.FontSize, sty.LineHeight, sty.Color, &idx, sty.FontStyle.String(), sty.FontFamily
}

// fromCachedStyle is the inverse of toCachedStyle.
func fromCachedStyle(cb *pagecache.CachedTextPageBlock) style.Style {
	weight := 0
	if cb.FontWeight != nil && *cb.FontWeight >= 0 && *cb.FontWeight < len(style.FontWeights) {
		weight = style.FontWeights[*cb.FontWeight]
	}
	return style.Style{
		FontFamily: cb.FontFamily,
		FontSize:   cb.FontSize,
		LineHeight: cb.LineHeight,
		FontWeight: weight,
		FontStyle:  style.ParseFontStyle(cb.FontStyle),
		Color:      cb.Color,
	}
}

func toCachedCursor(cur pagecursor.Cursor) pagecache.CachedCursor {
	out := pagecache.CachedCursor{
		BlockIndex:      cur.BlockIndex,
		GlobalCharIndex: cur.GlobalCharIndex,
		GlobalWordIndex: cur.GlobalWordIndex,
	}
	if cur.TextState != nil {
		out.TextState = &pagecache.CachedTextState{
			LineIndex:    cur.TextState.LineIndex,
			TextOffset:   cur.TextState.TextOffset,
			TokenPointer: cur.TextState.TokenPointer,
		}
	}
	return out
}

func fromCachedCursor(c pagecache.CachedCursor) pagecursor.Cursor {
	out := pagecursor.Cursor{
		BlockIndex:      c.BlockIndex,
		GlobalCharIndex: c.GlobalCharIndex,
		GlobalWordIndex: c.GlobalWordIndex,
	}
	if c.TextState != nil {
		out.TextState = &pagecursor.TextState{
			LineIndex:    c.TextState.LineIndex,
			TextOffset:   c.TextState.TextOffset,
			TokenPointer: c.TextState.TokenPointer,
		}
	}
	return out
}

func toCachedPage(index int, before, after pagecursor.Cursor, content *page.Content) pagecache.CachedPage {
	blocks := make([]pagecache.CachedPageBlock, len(content.Blocks))
	for i, blk := range content.Blocks {
		var cb pagecache.CachedPageBlock
		if blk.Text != nil {
			fontSize, lineHeight, color, fontWeight, fontStyle, fontFamily := toCachedStyle(blk.Text.Style)
			cb.Text = &pagecache.CachedTextPageBlock{
				Text:          blk.Text.Text,
				SpacingBefore: blk.Text.SpacingBefore,
				SpacingAfter:  blk.Text.SpacingAfter,
				TextAlign:     blk.Text.Align,
				FontSize:      fontSize,
				LineHeight:    lineHeight,
				Color:         color,
				FontWeight:    fontWeight,
				FontStyle:     fontStyle,
				FontFamily:    fontFamily,
			}
		}
		if blk.Image != nil {
			cb.Image = &pagecache.CachedImagePageBlock{
				Bytes:          blk.Image.Bytes,
				RenderedHeight: blk.Image.RenderedHeight,
				SpacingBefore:  blk.Image.SpacingBefore,
				SpacingAfter:   blk.Image.SpacingAfter,
			}
		}
		blocks[i] = cb
	}
	return pagecache.CachedPage{
		Index:        index,
		ChapterIndex: content.ChapterIndex,
		StartChar:    content.StartChar,
		EndChar:      content.EndChar,
		StartWord:    content.StartWord,
		EndWord:      content.EndWord,
		Blocks:       blocks,
		CursorBefore: toCachedCursor(before),
		CursorAfter:  toCachedCursor(after),
	}
}

func fromCachedPage(cp pagecache.CachedPage) *page.Content {
	blocks := make([]page.PageBlock, len(cp.Blocks))
	for i, cb := range cp.Blocks {
		var pb page.PageBlock
		if cb.Text != nil {
			pb.Text = &page.TextPageBlock{
				Text:          cb.Text.Text,
				Style:         fromCachedStyle(cb.Text),
				Align:         cb.Text.TextAlign,
				SpacingBefore: cb.Text.SpacingBefore,
				SpacingAfter:  cb.Text.SpacingAfter,
			}
		}
		if cb.Image != nil {
			pb.Image = &page.ImagePageBlock{
				Bytes:          cb.Image.Bytes,
				RenderedHeight: cb.Image.RenderedHeight,
				SpacingBefore:  cb.Image.SpacingBefore,
				SpacingAfter:   cb.Image.SpacingAfter,
			}
		}
		blocks[i] = pb
	}
	return &page.Content{
		ChapterIndex: cp.ChapterIndex,
		StartChar:    cp.StartChar,
		EndChar:      cp.EndChar,
		StartWord:    cp.StartWord,
		EndWord:      cp.EndWord,
		Blocks:       blocks,
	}
}
