package catalog

import (
	"time"

	"catalog-browser/internal/textmatch"
)

// Catalog is an immutable snapshot of a loaded feed.
type Catalog struct {
	items    []Item
	byKey    map[string]int
	source   string
	loadedAt time.Time
}

// New wraps already deduplicated items.
func New(items []Item, source string, loadedAt time.Time) *Catalog {
	byKey := make(map[string]int, len(items))
	for i, it := range items {
		byKey[it.Key] = i
	}
	return &Catalog{items: items, byKey: byKey, source: source, loadedAt: loadedAt}
}

func (c *Catalog) Len() int            { return len(c.items) }
func (c *Catalog) Source() string      { return c.source }
func (c *Catalog) LoadedAt() time.Time { return c.loadedAt }

// Items returns the snapshot in feed order. The slice must not be modified.
func (c *Catalog) Items() []Item { return c.items }

// Get looks an item up by key.
func (c *Catalog) Get(key string) (Item, bool) {
	i, ok := c.byKey[key]
	if !ok {
		return Item{}, false
	}
	return c.items[i], true
}

// Search returns the items whose name matches query, in feed order.
// An empty query returns everything.
func (c *Catalog) Search(query string) []Item {
	return textmatch.Filter(c.items, query, itemName)
}

func itemName(it Item) string { return it.Name }

// Page cuts the visible window out of a result list. remaining is how many
// results follow the window.
func Page(items []Item, offset, limit int) (page []Item, remaining int) {
	if offset < 0 {
		offset = 0
	}
	if offset > len(items) {
		offset = len(items)
	}
	end := len(items)
	if limit >= 0 && offset+limit < end {
		end = offset + limit
	}
	return items[offset:end], len(items) - end
}
