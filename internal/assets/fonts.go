package assets

import (
	"context"
	"path/filepath"
	"sync"

	"github.com/tcmaker/core/internal/apperr"
	"github.com/tcmaker/core/internal/domain"
)

// FontCache caches a Font's file bytes keyed by Font.ID so repeated
// render-cache builds referencing the same Font don't re-read or
// re-download its file on every card (spec §4.4).
type FontCache struct {
	store *Store
	mu    sync.RWMutex
	files map[uint64][]byte
}

// NewFontCache constructs an empty cache backed by store.
func NewFontCache(store *Store) *FontCache {
	return &FontCache{store: store, files: make(map[uint64][]byte)}
}

// Get returns font.File's bytes, downloading/reading and caching them on
// first use. A Font with no File set returns apperr.NotFound.
func (c *FontCache) Get(ctx context.Context, font *domain.Font) ([]byte, error) {
	if font.File == "" {
		return nil, apperr.New("assets.FontCache.Get", apperr.NotFound, nil)
	}

	c.mu.RLock()
	data, ok := c.files[font.ID]
	c.mu.RUnlock()
	if ok {
		return data, nil
	}

	var err error
	if isURL(font.File) {
		var path string
		path, err = c.store.Download(ctx, font.File, filepath.Join("fonts", font.Name+filepath.Ext(font.File)))
		if err == nil {
			data, err = readLocal(path)
		}
	} else {
		data, err = readLocal(font.File)
	}
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.files[font.ID] = data
	c.mu.Unlock()
	return data, nil
}

// Invalidate drops a cached font's bytes, e.g. after its File path changes.
func (c *FontCache) Invalidate(fontID uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.files, fontID)
}

func isURL(path string) bool {
	return len(path) > 7 && (path[:7] == "http://" || path[:8] == "https://")
}
