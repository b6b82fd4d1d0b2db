package embedding

import (
	"container/list"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"
)

// indexCache is a bounded LRU cache of built indices keyed by the sorted
// document-id set. It is process-local and must be invalidated by any caller
// that mutates the underlying document or embedding set.
type indexCache struct {
	mu         sync.Mutex
	maxEntries int
	entries    map[string]*list.Element
	order      *list.List
}

type cacheEntry struct {
	key    string
	docIDs map[uuid.UUID]struct{}
	index  *Index
}

func newIndexCache(maxEntries int) *indexCache {
	if maxEntries <= 0 {
		maxEntries = 8
	}
	return &indexCache{
		maxEntries: maxEntries,
		entries:    make(map[string]*list.Element),
		order:      list.New(),
	}
}

// cacheKey is the canonical key for a document scope: sorted ids joined.
func cacheKey(docIDs []uuid.UUID) string {
	ids := make([]string, len(docIDs))
	for i, id := range docIDs {
		ids[i] = id.String()
	}
	sort.Strings(ids)
	return strings.Join(ids, ",")
}

func (c *indexCache) get(key string) (*Index, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	el, ok := c.entries[key]
	if !ok {
		return nil, false
	}
	c.order.MoveToFront(el)
	return el.Value.(*cacheEntry).index, true
}

func (c *indexCache) put(key string, docIDs []uuid.UUID, index *Index) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if el, ok := c.entries[key]; ok {
		c.order.MoveToFront(el)
		el.Value.(*cacheEntry).index = index
		return
	}

	idSet := make(map[uuid.UUID]struct{}, len(docIDs))
	for _, id := range docIDs {
		idSet[id] = struct{}{}
	}
	c.entries[key] = c.order.PushFront(&cacheEntry{key: key, docIDs: idSet, index: index})

	for c.order.Len() > c.maxEntries {
		oldest := c.order.Back()
		c.order.Remove(oldest)
		delete(c.entries, oldest.Value.(*cacheEntry).key)
	}
}

// invalidate drops every cached index whose scope contains docID.
func (c *indexCache) invalidate(docID uuid.UUID) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for el := c.order.Front(); el != nil; {
		next := el.Next()
		entry := el.Value.(*cacheEntry)
		if _, ok := entry.docIDs[docID]; ok {
			c.order.Remove(el)
			delete(c.entries, entry.key)
		}
		el = next
	}
}

func (c *indexCache) clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]*list.Element)
	c.order.Init()
}

func (c *indexCache) len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.order.Len()
}
