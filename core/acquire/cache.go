package acquire

import (
	"context"
	"sync"
	"time"

	"LiveFM/core/utils"
	"LiveFM/logger"
)

// Index persists cache entries outside the process, e.g. in Redis.
type Index interface {
	Put(ctx context.Context, contentID, path string) error
	All(ctx context.Context) (map[string]string, error)
	Remove(ctx context.Context, contentIDs ...string) error
}

// ContentCache maps content ids to acquired local artifacts. Entries are
// independent per key and are never evicted; an entry whose file vanished
// is treated as a miss.
type ContentCache struct {
	entries sync.Map // contentID -> path
	index   Index
}

// NewContentCache creates a cache mirrored to index, which may be nil.
func NewContentCache(index Index) *ContentCache {
	return &ContentCache{index: index}
}

// Lookup returns the artifact for contentID if it is still on disk.
func (c *ContentCache) Lookup(contentID string) (string, bool) {
	v, ok := c.entries.Load(contentID)
	if !ok {
		return "", false
	}
	path := v.(string)
	if !utils.FileExists(path) {
		if c.entries.CompareAndDelete(contentID, path) {
			c.unindex(contentID)
		}
		return "", false
	}
	return path, true
}

func (c *ContentCache) unindex(contentID string) {
	if c.index == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := c.index.Remove(ctx, contentID); err != nil {
		logger.Warn("failed to drop cache entry from index",
			logger.String("contentId", contentID),
			logger.ErrorField(err))
	}
}

// Put records the artifact for contentID.
func (c *ContentCache) Put(contentID, path string) {
	c.entries.Store(contentID, path)
	if c.index == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := c.index.Put(ctx, contentID, path); err != nil {
		logger.Warn("failed to mirror cache entry",
			logger.String("contentId", contentID),
			logger.ErrorField(err))
	}
}

// Len counts the entries currently held.
func (c *ContentCache) Len() int {
	n := 0
	c.entries.Range(func(_, _ any) bool {
		n++
		return true
	})
	return n
}

// Warm loads entries from the index whose files still exist.
func (c *ContentCache) Warm(ctx context.Context) (int, error) {
	if c.index == nil {
		return 0, nil
	}
	all, err := c.index.All(ctx)
	if err != nil {
		return 0, err
	}
	loaded := 0
	for id, path := range all {
		if utils.FileExists(path) {
			c.entries.Store(id, path)
			loaded++
		}
	}
	return loaded, nil
}
