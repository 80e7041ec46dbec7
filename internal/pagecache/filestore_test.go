package pagecache

import (
	"bytes"
	"testing"
)

// sampleImageBytes is deliberately non-text binary: every byte value,
// so a round-trip through the store exercises the full base64 path
// rather than an ASCII-safe subset.
func sampleImageBytes() []byte {
	raw := make([]byte, 256)
	for i := range raw {
		raw[i] = byte(i)
	}
	return raw
}

func sampleCache() *BookCache {
	return &BookCache{
		LayoutKey: "abc123",
		Pages: []CachedPage{
			{
				Index:        0,
				ChapterIndex: 0,
				StartChar:    0,
				EndChar:      10,
				StartWord:    0,
				EndWord:      1,
				Blocks: []CachedPageBlock{{
					Text: &CachedTextPageBlock{Text: "hello world"},
				}},
				CursorBefore: CachedCursor{},
				CursorAfter:  CachedCursor{BlockIndex: 0, GlobalCharIndex: 11, GlobalWordIndex: 2},
			},
			{
				Index:        1,
				ChapterIndex: 0,
				StartChar:    11,
				EndChar:      11,
				StartWord:    2,
				EndWord:      1,
				Blocks: []CachedPageBlock{{
					Image: &CachedImagePageBlock{
						Bytes:          sampleImageBytes(),
						RenderedHeight: 120.5,
						SpacingBefore:  4,
						SpacingAfter:   4,
					},
				}},
				CursorBefore: CachedCursor{BlockIndex: 1, GlobalCharIndex: 11, GlobalWordIndex: 2},
				CursorAfter:  CachedCursor{BlockIndex: 2, GlobalCharIndex: 12, GlobalWordIndex: 2},
			},
		},
	}
}

func testStoreRoundTrip(t *testing.T, store Store) {
	t.Helper()

	if _, err := store.Load("book-1", "layout-a"); err != ErrNotFound {
		t.Fatalf("Load on empty store: got err %v, want ErrNotFound", err)
	}

	in := sampleCache()
	if err := store.Save("book-1", "layout-a", in); err != nil {
		t.Fatalf("Save: %v", err)
	}

	out, err := store.Load("book-1", "layout-a")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if out.LayoutKey != in.LayoutKey {
		t.Errorf("LayoutKey = %q, want %q", out.LayoutKey, in.LayoutKey)
	}
	if len(out.Pages) != 2 || out.Pages[0].Blocks[0].Text.Text != "hello world" {
		t.Errorf("round-tripped pages mismatch: %+v", out.Pages)
	}
	img := out.Pages[1].Blocks[0].Image
	if img == nil {
		t.Fatalf("round-tripped image block missing: %+v", out.Pages[1])
	}
	if !bytes.Equal(img.Bytes, sampleImageBytes()) {
		t.Errorf("image bytes did not round-trip byte-for-byte: got %d bytes", len(img.Bytes))
	}
	if img.RenderedHeight != 120.5 {
		t.Errorf("image RenderedHeight = %v, want 120.5", img.RenderedHeight)
	}

	// A different layout key for the same book is an independent entry.
	if _, err := store.Load("book-1", "layout-b"); err != ErrNotFound {
		t.Fatalf("Load with different layout key: got err %v, want ErrNotFound", err)
	}
}

func TestMemoryStoreRoundTrip(t *testing.T) {
	testStoreRoundTrip(t, NewMemoryStore())
}

func TestFileStoreRoundTrip(t *testing.T) {
	store, err := NewFileStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileStore: %v", err)
	}
	testStoreRoundTrip(t, store)
}

func TestFileStoreSurvivesBookIDWithSlashes(t *testing.T) {
	store, err := NewFileStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileStore: %v", err)
	}
	in := sampleCache()
	if err := store.Save("books/weird id", "layout-a", in); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if _, err := store.Load("books/weird id", "layout-a"); err != nil {
		t.Fatalf("Load: %v", err)
	}
}
