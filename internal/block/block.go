// Package block defines the input document model the pagination engine
// consumes: an ordered list of immutable text/image blocks, and the
// lazily-built, mutable per-block cursor state derived from them.
//
// Blocks are owned by whoever parses the EPUB or plain-text source and
// are never mutated by the engine — only borrowed.
package block

import "github.com/jackzampolin/pageflow/internal/style"

// DocumentBlock is one input unit in reading order: a styled paragraph
// or an atomic image. Images are never split. The page builder type
// switches to *TextBlock/*ImageBlock rather than widening the interface,
// since the two variants have nothing in common beyond chapter identity.
type DocumentBlock interface {
	Chapter() int
	documentBlock()
}

// TextBlock is a non-empty logical paragraph.
type TextBlock struct {
	ChapterIndex  int
	Text          string
	BaseStyle     style.Style
	TextAlign     style.Align
	FontScale     float64
	FontWeight    int
	FontStyle     style.FontStyle
	SpacingBefore float64
	SpacingAfter  float64
}

func (b *TextBlock) Chapter() int { return b.ChapterIndex }
func (b *TextBlock) documentBlock() {}

// EffectiveStyle returns the style this block is measured and rendered
// with: BaseStyle with FontScale applied to its size, and FontWeight/
// FontStyle overridden when the block specifies a non-zero one. A block
// with FontScale/FontWeight/FontStyle left at their zero values inherits
// BaseStyle unchanged — this is what lets most blocks in a document
// share one BaseStyle while a handful (a pull-quote, a bolded aside)
// carry their own.
func (b *TextBlock) EffectiveStyle() style.Style {
	sty := b.BaseStyle
	scale := b.FontScale
	if scale <= 0 {
		scale = 1
	}
	sty.FontSize *= scale
	if b.FontWeight != 0 {
		sty.FontWeight = b.FontWeight
	}
	if b.FontStyle != style.FontStyleNormal {
		sty.FontStyle = b.FontStyle
	}
	return sty
}

// ImageBlock is an atomic image, pre-decoded into raw bytes by the
// caller. IntrinsicWidth/IntrinsicHeight of 0 means "unknown"; the
// fit/shrink algorithm then just fills the available height.
type ImageBlock struct {
	ChapterIndex    int
	Bytes           []byte
	IntrinsicWidth  float64
	IntrinsicHeight float64
	SpacingBefore   float64
	SpacingAfter    float64
}

func (b *ImageBlock) Chapter() int { return b.ChapterIndex }
func (b *ImageBlock) documentBlock() {}
