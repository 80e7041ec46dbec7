// Package pagination wires the block, layout, page, and pagecache
// packages into a demand-driven pagination engine: callers ask for a
// page by index, and a background producer keeps building ahead of
// them, all serialized through a single writer goroutine.
package pagination

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/sourcegraph/conc/panics"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/jackzampolin/pageflow/internal/block"
	"github.com/jackzampolin/pageflow/internal/layout"
	"github.com/jackzampolin/pageflow/internal/measuretext"
	"github.com/jackzampolin/pageflow/internal/page"
	"github.com/jackzampolin/pageflow/internal/pagecache"
	"github.com/jackzampolin/pageflow/internal/pagecursor"
)

// backgroundYield is the ~8ms pause the background producer takes
// between page-production iterations, so demand requests can interleave
// on the serial queue instead of being starved.
const backgroundYield = 8 * time.Millisecond

// OpenConfig is everything needed to open or resume a book's pagination.
type OpenConfig struct {
	BookID   string
	Blocks   []block.DocumentBlock
	Layout   layout.Config
	Measurer measuretext.Measurer
	Cache    pagecache.Store // optional; nil disables persistence
	Logger   *slog.Logger
}

// Engine is one open book's pagination state: the document, its derived
// per-block layout state, the pages produced so far, and the cursor the
// next page will start from. All of it is mutated only inside the
// serial queue's worker goroutine; public methods take the read lock to
// inspect already-produced pages, or submit a job to the queue to
// produce more.
type Engine struct {
	bookID  string
	blocks  []block.DocumentBlock
	layout  layout.Config
	logger  *slog.Logger
	cache   pagecache.Store
	builder page.Builder

	mu          sync.RWMutex
	states      []*block.State
	pages       []*page.Content
	cachedPages []pagecache.CachedPage
	cursor      pagecursor.Cursor
	atEnd       bool
	totalChars  int
	growth      chan struct{} // closed and replaced every time pages grows or atEnd flips

	queue      *serialQueue
	group      *errgroup.Group
	cancel     context.CancelFunc
	sf         singleflight.Group
	bgOnce     sync.Once
	finalPages int // set once atEnd, the stable total page count
}

// Open builds a new Engine, hydrating it from cache when a matching
// layout fingerprint is found, and starts its serial-queue worker. The
// background producer is not started here; StartBackground starts it.
func Open(ctx context.Context, cfg OpenConfig) (*Engine, error) {
	if cfg.BookID == "" {
		return nil, fmt.Errorf("pagination: OpenConfig.BookID is required")
	}
	if cfg.Measurer == nil {
		return nil, fmt.Errorf("pagination: OpenConfig.Measurer is required")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "pagination", "book_id", cfg.BookID)

	e := &Engine{
		bookID:  cfg.BookID,
		blocks:  cfg.Blocks,
		layout:  cfg.Layout,
		logger:  logger,
		cache:   cfg.Cache,
		builder: page.Builder{Measurer: cfg.Measurer},
		states:  make([]*block.State, len(cfg.Blocks)),
		growth:  make(chan struct{}),
	}
	for i := range e.states {
		e.states[i] = block.NewState()
	}

	if len(cfg.Blocks) == 0 {
		// An empty document is complete with zero pages before any
		// production is attempted.
		e.atEnd = true
	}

	if err := e.hydrate(); err != nil {
		return nil, err
	}

	// A layout too small for even one line never surfaces as an error:
	// it completes immediately with zero further pages, exactly like
	// reaching the end of the document.
	if e.precheckDegenerate() {
		e.atEnd = true
		e.finalPages = len(e.pages)
	}

	runCtx, cancel := context.WithCancel(ctx)
	e.cancel = cancel
	e.queue = newSerialQueue()
	group, groupCtx := errgroup.WithContext(runCtx)
	e.group = group
	group.Go(func() error {
		e.queue.run(groupCtx)
		return nil
	})

	return e, nil
}

// hydrate replays a cached BookCache (if any, and if its layout key
// matches) into pages/cursor so a reopened book resumes rather than
// rebuilding from page 0.
func (e *Engine) hydrate() error {
	if e.cache == nil {
		return nil
	}
	key := e.layout.Key()
	cached, err := e.cache.Load(e.bookID, key)
	if errors.Is(err, pagecache.ErrNotFound) || errors.Is(err, pagecache.ErrCacheUnreadable) {
		// Both are misses, never hard errors: a missing or corrupt cache
		// file just means pagination starts from page 0.
		if err != nil {
			e.logger.Warn("cache unreadable, rebuilding", "err", err)
		}
		return nil
	}
	if err != nil {
		return fmt.Errorf("pagination: hydrate %s: %w", e.bookID, err)
	}
	if cached.LayoutKey != key {
		// Stale file written under a different fingerprint collision;
		// treat as a miss rather than trusting mismatched geometry.
		return nil
	}
	e.pages = make([]*page.Content, len(cached.Pages))
	e.cachedPages = append([]pagecache.CachedPage(nil), cached.Pages...)
	for i, cp := range cached.Pages {
		e.pages[i] = fromCachedPage(cp)
	}
	e.totalChars = cached.TotalCharacters
	e.atEnd = cached.IsComplete
	if e.atEnd {
		e.finalPages = len(e.pages)
	}
	switch {
	case cached.Cursor != nil:
		e.cursor = fromCachedCursor(*cached.Cursor)
	case len(cached.Pages) > 0:
		e.cursor = fromCachedCursor(cached.Pages[len(cached.Pages)-1].CursorAfter)
	}
	// Mark every block strictly before the cursor's block complete, and
	// rehydrate the current block's mid-block text cursor, so the
	// builder doesn't re-measure work it already did before caching.
	for i := 0; i < e.cursor.BlockIndex && i < len(e.states); i++ {
		e.states[i].Completed = true
	}
	if e.cursor.BlockIndex < len(e.states) {
		if tb, ok := e.blocks[e.cursor.BlockIndex].(*block.TextBlock); ok && e.cursor.TextState != nil {
			st := e.states[e.cursor.BlockIndex]
			st.Ensure(tb, e.builder.Measurer, e.layout.MaxWidth)
			st.Cursor = block.Cursor{
				LineIndex:    e.cursor.TextState.LineIndex,
				CharOffset:   e.cursor.TextState.TextOffset,
				TokenPointer: e.cursor.TextState.TokenPointer,
			}
		}
	}
	e.logger.Info("resumed from cache", "pages", len(e.pages), "complete", e.atEnd)
	return nil
}

// precheckDegenerate reports whether max_height is too small to fit a
// single line plus spacing, for a representative text block.
func (e *Engine) precheckDegenerate() bool {
	for _, blk := range e.blocks {
		tb, ok := blk.(*block.TextBlock)
		if !ok || tb.Text == "" {
			continue
		}
		lineHeight := tb.BaseStyle.LineHeight
		if lineHeight <= 0 {
			lineHeight = tb.BaseStyle.FontSize * 1.2
		}
		return e.layout.MaxHeight-lineHeight-tb.SpacingAfter < 0
	}
	return false
}

// Close stops the background worker and waits for it to exit.
func (e *Engine) Close() error {
	if e.cancel != nil {
		e.cancel()
	}
	if e.group != nil {
		return e.group.Wait()
	}
	return nil
}

// Matches reports whether blocks and cfg would produce an identical
// pagination to the one this engine was opened with, letting a caller
// skip a reopen entirely. Block identity is compared positionally by
// pointer: block.DocumentBlock's implementations (*block.TextBlock,
// *block.ImageBlock) are always pointers, so two slices with the same
// length holding the same pointers at every index are, by construction,
// the same document content.
func (e *Engine) Matches(blocks []block.DocumentBlock, cfg layout.Config) bool {
	if !e.layout.Matches(cfg) {
		return false
	}
	if len(blocks) != len(e.blocks) {
		return false
	}
	for i := range blocks {
		if blocks[i] != e.blocks[i] {
			return false
		}
	}
	return true
}

// PageCount returns how many pages have been produced so far. It is not
// the total page count of the book — more may exist beyond the reading
// position the background producer has reached.
func (e *Engine) PageCount() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return len(e.pages)
}

// AtEnd reports whether the document has been fully paginated.
func (e *Engine) AtEnd() bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.atEnd
}

// HasNext reports whether a page after index i is available or could
// still be produced.
func (e *Engine) HasNext(i int) bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return i+1 < len(e.pages) || !e.atEnd
}

// HasPrev reports whether a page before index i exists.
func (e *Engine) HasPrev(i int) bool {
	return i > 0
}

// EstimatedTotalPages returns the exact count once pagination is
// complete, or a loose lower bound otherwise.
func (e *Engine) EstimatedTotalPages() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if e.atEnd {
		return e.finalPages
	}
	return len(e.pages) + 1
}

// growthSnapshot returns the current growth channel together with the
// state it was valid for, so a waiter can detect whether the condition
// it cares about already holds before it starts waiting.
func (e *Engine) growthSnapshot() (ch chan struct{}, pages int, atEnd bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.growth, len(e.pages), e.atEnd
}

// notifyGrowthLocked closes the current growth channel (waking every
// waiter) and installs a fresh one. Must be called with e.mu held.
func (e *Engine) notifyGrowthLocked() {
	close(e.growth)
	e.growth = make(chan struct{})
}

// WaitForGrowth blocks until the produced-pages vector grows past
// sinceCount or the document completes, then returns the new page
// count and completion state. Callers that want to follow production
// as it happens should loop on this rather than poll PageCount, since
// it wakes exactly on append instead of spinning.
func (e *Engine) WaitForGrowth(ctx context.Context, sinceCount int) (int, bool, error) {
	for {
		ch, pages, atEnd := e.growthSnapshot()
		if pages > sinceCount || atEnd {
			return pages, atEnd, nil
		}
		select {
		case <-ctx.Done():
			return pages, atEnd, ctx.Err()
		case <-ch:
		}
	}
}

// Page returns the page at index, producing pages up to it on demand
// if they don't exist yet. Concurrent calls for the same missing index
// collapse into a single production run via singleflight.
func (e *Engine) Page(ctx context.Context, index int) (*page.Content, error) {
	if index < 0 {
		return nil, fmt.Errorf("pagination: negative page index %d", index)
	}

	e.mu.RLock()
	if index < len(e.pages) {
		p := e.pages[index]
		e.mu.RUnlock()
		return p, nil
	}
	atEnd := e.atEnd
	e.mu.RUnlock()
	if atEnd {
		return nil, fmt.Errorf("pagination: page %d past end of document", index)
	}

	_, err, _ := e.sf.Do(fmt.Sprintf("produce-to-%d", index), func() (any, error) {
		return nil, e.produceUpTo(ctx, index)
	})
	if err != nil {
		return nil, err
	}

	e.mu.RLock()
	defer e.mu.RUnlock()
	if index >= len(e.pages) {
		return nil, fmt.Errorf("pagination: page %d past end of document", index)
	}
	return e.pages[index], nil
}

// EnsureWindow drives pagination until pages.len() > center+radius or
// the document is complete, persisting after each new page.
func (e *Engine) EnsureWindow(ctx context.Context, center, radius int) error {
	target := center + radius
	if target < 0 {
		target = 0
	}
	_, err, _ := e.sf.Do(fmt.Sprintf("window-%d", target), func() (any, error) {
		return nil, e.produceUpTo(ctx, target)
	})
	return err
}

// EnsureForCharacter extends pagination until the last produced page's
// EndChar reaches charIndex or the document completes, then returns the
// index of the page containing charIndex.
func (e *Engine) EnsureForCharacter(ctx context.Context, charIndex int) (int, error) {
	if charIndex < 0 {
		charIndex = 0
	}
	_, err, _ := e.sf.Do(fmt.Sprintf("char-%d", charIndex), func() (any, error) {
		for {
			e.mu.RLock()
			var lastEnd = -1
			if n := len(e.pages); n > 0 {
				lastEnd = e.pages[n-1].EndChar
			}
			atEnd := e.atEnd
			e.mu.RUnlock()
			if lastEnd >= charIndex || atEnd {
				return nil, nil
			}
			if err := e.produceOne(ctx); err != nil {
				return nil, err
			}
		}
	})
	if err != nil {
		return 0, err
	}
	return e.FindByCharacter(charIndex), nil
}

// FindByCharacter binary-searches the produced pages for the one whose
// [StartChar, EndChar] range contains charIndex. If charIndex is past
// the last produced page, it returns the last page; if no pages exist
// yet, it returns 0.
func (e *Engine) FindByCharacter(charIndex int) int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	n := len(e.pages)
	if n == 0 {
		return 0
	}
	idx := sort.Search(n, func(i int) bool {
		return e.pages[i].EndChar >= charIndex
	})
	if idx >= n {
		return n - 1
	}
	return idx
}

// FindByChapter linearly scans for the first page in chapterIndex,
// paginating to completion if it isn't found and more pages could still
// exist.
func (e *Engine) FindByChapter(ctx context.Context, chapterIndex int) (int, bool, error) {
	if idx, ok := e.scanForChapter(chapterIndex); ok {
		return idx, true, nil
	}
	e.mu.RLock()
	atEnd := e.atEnd
	e.mu.RUnlock()
	if atEnd {
		return 0, false, nil
	}
	_, err, _ := e.sf.Do(fmt.Sprintf("chapter-%d", chapterIndex), func() (any, error) {
		for {
			e.mu.RLock()
			atEnd := e.atEnd
			e.mu.RUnlock()
			if atEnd {
				return nil, nil
			}
			if err := e.produceOne(ctx); err != nil {
				return nil, err
			}
		}
	})
	if err != nil {
		return 0, false, err
	}
	idx, ok := e.scanForChapter(chapterIndex)
	return idx, ok, nil
}

func (e *Engine) scanForChapter(chapterIndex int) (int, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	for i, p := range e.pages {
		if p.ChapterIndex == chapterIndex {
			return i, true
		}
	}
	return 0, false
}

// StartBackground spawns (once) a task that keeps calling produceOne
// until the document completes, yielding ~8ms between pages so demand
// calls can interleave on the serial queue. It is a no-op if the
// document is already complete or the task is already running.
func (e *Engine) StartBackground(ctx context.Context) {
	e.bgOnce.Do(func() {
		e.group.Go(func() error {
			for {
				e.mu.RLock()
				atEnd := e.atEnd
				e.mu.RUnlock()
				if atEnd {
					return nil
				}
				if err := e.produceOne(ctx); err != nil {
					if ctx.Err() != nil {
						return nil
					}
					e.logger.Error("background production failed", "err", err)
					return nil
				}
				select {
				case <-ctx.Done():
					return nil
				case <-time.After(backgroundYield):
				}
			}
		})
	})
}

// produceUpTo drives the builder, one page at a time, through the
// serial queue until at least index+1 pages exist or the document ends.
func (e *Engine) produceUpTo(ctx context.Context, index int) error {
	for {
		e.mu.RLock()
		have, atEnd := len(e.pages), e.atEnd
		e.mu.RUnlock()
		if have > index || atEnd {
			return nil
		}

		if err := e.produceOne(ctx); err != nil {
			return err
		}
	}
}

// produceOne builds exactly one more page (if any remain) and persists
// it, entirely inside the serial queue so it never races with another
// in-flight production or with a reader's cursor snapshot.
func (e *Engine) produceOne(ctx context.Context) error {
	var catcher panics.Catcher
	var buildErr error
	catcher.Try(func() {
		buildErr = e.produceOneLocked(ctx)
	})
	if r := catcher.Recovered(); r != nil {
		return fmt.Errorf("pagination: recovered panic producing page: %v", r.AsError())
	}
	return buildErr
}

func (e *Engine) produceOneLocked(ctx context.Context) error {
	return e.queue.submit(ctx, func() error {
		before := e.cursor.Clone()
		content, ok, err := e.builder.Next(e.blocks, e.states, e.layout, &e.cursor)
		if errors.Is(err, page.ErrLayoutDegenerate) {
			// Never surfaced to the caller: treat exactly like reaching
			// the end of the document.
			ok, err = false, nil
		}
		if err != nil {
			return fmt.Errorf("pagination: build page: %w", err)
		}
		if !ok {
			e.mu.Lock()
			e.atEnd = true
			e.finalPages = len(e.pages)
			e.notifyGrowthLocked()
			e.mu.Unlock()
			e.persist()
			return nil
		}

		e.mu.Lock()
		index := len(e.pages)
		e.pages = append(e.pages, content)
		e.totalChars = e.cursor.GlobalCharIndex
		e.notifyGrowthLocked()
		e.mu.Unlock()

		if e.cache != nil {
			e.mu.Lock()
			e.cachedPages = append(e.cachedPages, toCachedPage(index, before, e.cursor.Clone(), content))
			e.mu.Unlock()
		}
		e.persist()
		return nil
	})
}

// persist writes the engine's current state to the cache store, if one
// is configured. Save errors are logged and swallowed — the engine keeps
// running and simply retries on the next page.
func (e *Engine) persist() {
	if e.cache == nil {
		return
	}
	e.mu.RLock()
	snapshot := append([]pagecache.CachedPage(nil), e.cachedPages...)
	cur := e.cursor.Clone()
	atEnd := e.atEnd
	totalChars := e.totalChars
	e.mu.RUnlock()

	cached := &pagecache.BookCache{
		LayoutKey:       e.layout.Key(),
		IsComplete:      atEnd,
		TotalCharacters: totalChars,
		Pages:           snapshot,
	}
	if !atEnd {
		c := toCachedCursor(cur)
		cached.Cursor = &c
	}
	if err := e.cache.Save(e.bookID, e.layout.Key(), cached); err != nil {
		e.logger.Error("cache save failed", "err", err)
	}
}
