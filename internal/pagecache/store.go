// Package pagecache persists built pages to disk, keyed by book and
// layout fingerprint, so a reopened book can serve pages without
// rebuilding them from scratch.
package pagecache

import (
	"errors"

	"github.com/jackzampolin/pageflow/internal/style"
)

// ErrNotFound is returned by Store.Load when no cache exists yet for a
// (book, layout) pair.
var ErrNotFound = errors.New("pagecache: no cached entry")

// ErrCacheUnreadable wraps any error Load hits reading a file that does
// exist — a decode failure or a schema version mismatch. Callers must
// treat it exactly like ErrNotFound: a miss, never a hard error, since a
// corrupt or stale cache file is not the caller's fault.
var ErrCacheUnreadable = errors.New("pagecache: cache unreadable")

// ErrCacheUnwritable wraps the error Save returns once its retries are
// exhausted. It is logged by the caller and swallowed, never surfaced
// as a failure to paginate — the next produced page retries the save.
var ErrCacheUnwritable = errors.New("pagecache: cache unwritable")

// CachedTextState mirrors pagecursor.TextState for storage.
type CachedTextState struct {
	LineIndex    int `json:"line_index"`
	TextOffset   int `json:"text_offset"`
	TokenPointer int `json:"token_pointer"`
}

// CachedCursor mirrors pagecursor.Cursor for storage.
type CachedCursor struct {
	BlockIndex      int              `json:"block_index"`
	GlobalCharIndex int              `json:"global_char_index"`
	GlobalWordIndex int              `json:"global_word_index"`
	TextState       *CachedTextState `json:"text_state,omitempty"`
}

// CachedTextPageBlock mirrors page.TextPageBlock for storage, laid out
// field-for-field per the on-disk format: style fields are stored flat
// rather than nested, and FontWeight is the index into style.FontWeights
// closest to the style's raw weight, not the raw CSS number.
type CachedTextPageBlock struct {
	Text          string      `json:"text"`
	SpacingBefore float64     `json:"spacing_before"`
	SpacingAfter  float64     `json:"spacing_after"`
	TextAlign     style.Align `json:"text_align"`
	FontSize      float64     `json:"font_size"`
	LineHeight    float64     `json:"line_height"`
	Color         *uint32     `json:"color,omitempty"`
	FontWeight    *int        `json:"font_weight,omitempty"`
	FontStyle     string      `json:"font_style"`
	FontFamily    string      `json:"font_family,omitempty"`
}

// CachedImagePageBlock mirrors page.ImagePageBlock for storage.
type CachedImagePageBlock struct {
	Bytes          []byte  `json:"bytes"`
	RenderedHeight float64 `json:"rendered_height"`
	SpacingBefore  float64 `json:"spacing_before"`
	SpacingAfter   float64 `json:"spacing_after"`
}

// CachedPageBlock is the tagged union stored for one page's content
// block, mirroring page.PageBlock.
type CachedPageBlock struct {
	Text  *CachedTextPageBlock  `json:"text,omitempty"`
	Image *CachedImagePageBlock `json:"image,omitempty"`
}

// CachedPage is one persisted, already-built page.
type CachedPage struct {
	Index        int               `json:"index"`
	ChapterIndex int               `json:"chapter_index"`
	StartChar    int               `json:"start_char"`
	EndChar      int               `json:"end_char"`
	StartWord    int               `json:"start_word"`
	EndWord      int               `json:"end_word"`
	Blocks       []CachedPageBlock `json:"blocks"`
	CursorBefore CachedCursor      `json:"cursor_before"`
	CursorAfter  CachedCursor      `json:"cursor_after"`
}

// CacheVersion tags the on-disk schema; a mismatched version is treated
// as unreadable rather than guessed at.
const CacheVersion = "v2"

// BookCache is everything persisted for one (book, layout) pair: the
// layout fingerprint it was built under, whether pagination reached the
// end of the document, the running character total, the resumable
// cursor (absent once complete), and every page produced so far in
// reading order.
type BookCache struct {
	Version         string        `json:"version"`
	LayoutKey       string        `json:"layout_key"`
	IsComplete      bool          `json:"is_complete"`
	TotalCharacters int           `json:"total_characters"`
	Cursor          *CachedCursor `json:"cursor,omitempty"`
	Pages           []CachedPage  `json:"pages"`
}

// Store persists and retrieves a BookCache for a given book and layout
// fingerprint. Implementations must treat bookID+layoutKey as the full
// cache key — the same book under two layout keys is two independent,
// content-addressed entries.
type Store interface {
	Load(bookID, layoutKey string) (*BookCache, error)
	Save(bookID, layoutKey string, cache *BookCache) error
}
