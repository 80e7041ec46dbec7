// Package page implements the fit/shrink page-building algorithm and the
// PageContent type it produces.
package page

import "github.com/jackzampolin/pageflow/internal/style"

// TextPageBlock is a page's slice of a text block's content.
type TextPageBlock struct {
	Text          string
	Style         style.Style
	Align         style.Align
	SpacingBefore float64
	SpacingAfter  float64
}

// ImagePageBlock is a page holding one whole image.
type ImagePageBlock struct {
	Bytes          []byte
	RenderedHeight float64
	SpacingBefore  float64
	SpacingAfter   float64
}

// PageBlock is the tagged union a page's single content block is: either
// a text slice or an image, never both.
type PageBlock struct {
	Text  *TextPageBlock
	Image *ImagePageBlock
}

// Content is one paginated, fixed-size page.
type Content struct {
	Blocks       []PageBlock
	ChapterIndex int
	StartChar    int
	EndChar      int
	StartWord    int
	EndWord      int
}
