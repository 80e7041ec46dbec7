package pagecache

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"github.com/avast/retry-go/v4"
	"github.com/google/renameio"
	jsoniter "github.com/json-iterator/go"
)

var jsonAPI = jsoniter.ConfigCompatibleWithStandardLibrary

// FileStore is the on-disk, atomic Store implementation: one JSON file
// per (book, layout) pair under Dir, written via a temp-file-then-rename
// so a reader never observes a half-written cache.
type FileStore struct {
	Dir string
}

// NewFileStore returns a FileStore rooted at dir, creating it if needed.
func NewFileStore(dir string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("pagecache: create cache dir: %w", err)
	}
	return &FileStore{Dir: dir}, nil
}

// filename is url.PathEscape(bookID)_layoutKey.json; layoutKey is already
// base64url from layout.Config.Key, so only bookID needs escaping.
func (s *FileStore) filename(bookID, layoutKey string) string {
	return filepath.Join(s.Dir, fmt.Sprintf("%s_%s.json", url.PathEscape(bookID), layoutKey))
}

// Load reads and decodes the cache for bookID under layoutKey. It
// returns ErrNotFound when no file exists yet, and ErrCacheUnreadable
// (wrapping the underlying cause) for any other read or parse failure —
// both are misses a caller must treat identically.
func (s *FileStore) Load(bookID, layoutKey string) (*BookCache, error) {
	path := s.filename(bookID, layoutKey)
	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("%w: read %s: %v", ErrCacheUnreadable, path, err)
	}
	var cache BookCache
	if err := jsonAPI.Unmarshal(raw, &cache); err != nil {
		return nil, fmt.Errorf("%w: decode %s: %v", ErrCacheUnreadable, path, err)
	}
	if cache.Version != CacheVersion {
		// A cache written by an older/newer schema is unreadable: treat it
		// as a miss rather than guessing at a stale layout.
		return nil, fmt.Errorf("%w: %s: schema version %q, want %q", ErrCacheUnreadable, path, cache.Version, CacheVersion)
	}
	return &cache, nil
}

// Save atomically writes cache to bookID's layoutKey file: the payload
// is written to a sibling temp file and renamed into place, so a crash
// mid-write never corrupts the previous good cache. Transient write
// failures (e.g. a momentarily full disk or an EINTR) are retried a
// few times before giving up; once retries are exhausted the error
// wraps ErrCacheUnwritable.
func (s *FileStore) Save(bookID, layoutKey string, cache *BookCache) error {
	path := s.filename(bookID, layoutKey)
	versioned := *cache
	versioned.Version = CacheVersion
	raw, err := jsonAPI.Marshal(&versioned)
	if err != nil {
		return fmt.Errorf("pagecache: encode %s: %w", path, err)
	}

	err = retry.Do(
		func() error {
			pf, err := renameio.TempFile(filepath.Dir(path), path)
			if err != nil {
				return fmt.Errorf("pagecache: open temp file for %s: %w", path, err)
			}
			defer pf.Cleanup()

			if _, err := pf.Write(raw); err != nil {
				return fmt.Errorf("pagecache: write %s: %w", path, err)
			}
			if err := pf.CloseAtomicallyReplace(); err != nil {
				return fmt.Errorf("pagecache: replace %s: %w", path, err)
			}
			return nil
		},
		retry.Attempts(3),
		retry.Delay(20*time.Millisecond),
	)
	if err != nil {
		return fmt.Errorf("%w: %s: %v", ErrCacheUnwritable, path, err)
	}
	return nil
}
