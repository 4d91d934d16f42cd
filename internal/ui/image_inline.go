package ui

import (
	"fmt"
	"strings"
	"sync"

	"github.com/termviewer/pdftui/internal/kitty"
)

// maxFrameCacheSize bounds the cached Kitty frame strings kept around,
// evicting oldest first once full.
const maxFrameCacheSize = 100

// frameCache caches a composed Kitty display-list frame string keyed by
// the signature of the placements that produced it, so a screen whose
// visible pages are all already transferred never re-walks the
// placeholder-grid writer for unchanged content.
type frameCache struct {
	mu      sync.Mutex
	entries map[string]string
	order   []string
}

func newFrameCache() *frameCache {
	return &frameCache{entries: make(map[string]string)}
}

// get returns the cached frame for key, if present.
func (c *frameCache) get(key string) (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	f, ok := c.entries[key]
	return f, ok
}

// put stores frame under key, evicting the oldest entry first once the
// cache is at capacity.
func (c *frameCache) put(key, frame string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, exists := c.entries[key]; exists {
		c.entries[key] = frame
		return
	}
	for len(c.entries) >= maxFrameCacheSize && len(c.order) > 0 {
		oldest := c.order[0]
		c.order = c.order[1:]
		delete(c.entries, oldest)
	}
	c.entries[key] = frame
	c.order = append(c.order, key)
}

// clear empties the cache, used on reload since image ids get reused
// for different page content.
func (c *frameCache) clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]string)
	c.order = nil
}

// placementSignature builds a cache key from the placements that would
// make up a frame, including each placement's pan/zoom crop rect so a
// zoom or pan change always invalidates the cache. It is only meaningful
// when every placement is already State == Transferred: a NotYet
// placement must always go through the driver to actually transmit and
// to flip its state, so callers must not consult the cache in that case.
func placementSignature(placements []kitty.Placement) string {
	var b strings.Builder
	for _, p := range placements {
		fmt.Fprintf(&b, "%d:%d:%d:%d:%d:%d:%d;", p.ID, p.Cols, p.Rows, p.CropX, p.CropY, p.CropW, p.CropH)
	}
	return b.String()
}
