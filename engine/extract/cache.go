package extract

import (
	"github.com/WessleyAI/gridlink/engine/diagram"
	"github.com/WessleyAI/gridlink/engine/netmodel"
)

type attrEntry struct {
	attrs []netmodel.Attr
	err   error
}

// Cache memoizes cell lookups, friendly names and attribute records for one
// pass. It must be Reset at the start and end of every pass.
type Cache struct {
	src   diagram.Lookup
	cells map[string]*diagram.Cell
	names map[string]string
	attrs map[string]attrEntry

	hits, misses int
}

// NewCache wraps src.
func NewCache(src diagram.Lookup) *Cache {
	c := &Cache{src: src}
	c.Reset()
	return c
}

// Reset drops every cached entry.
func (c *Cache) Reset() {
	c.cells = make(map[string]*diagram.Cell)
	c.names = make(map[string]string)
	c.attrs = make(map[string]attrEntry)
	c.hits, c.misses = 0, 0
}

// Bind points the cache at a new source and resets it.
func (c *Cache) Bind(src diagram.Lookup) {
	c.src = src
	c.Reset()
}

// Len returns the number of cached entries.
func (c *Cache) Len() int { return len(c.cells) + len(c.names) + len(c.attrs) }

// Stats returns hit and miss counts since the last Reset.
func (c *Cache) Stats() (hits, misses int) { return c.hits, c.misses }

// Cell resolves id through the cache.
func (c *Cache) Cell(id string) (*diagram.Cell, bool) {
	if cell, ok := c.cells[id]; ok {
		c.hits++
		return cell, true
	}
	c.misses++
	if c.src == nil {
		return nil, false
	}
	cell, ok := c.src.Cell(id)
	if !ok {
		return nil, false
	}
	c.cells[id] = cell
	return cell, true
}

// FriendlyName returns the cached display name of cell.
func (c *Cache) FriendlyName(cell *diagram.Cell) string {
	if n, ok := c.names[cell.ID]; ok {
		c.hits++
		return n
	}
	c.misses++
	n := FriendlyName(cell)
	c.names[cell.ID] = n
	return n
}

// Attributes returns the cached attribute record of cell for cat.
func (c *Cache) Attributes(cell *diagram.Cell, cat *Category) ([]netmodel.Attr, error) {
	key := cell.ID + "\x00" + cat.Tag
	if e, ok := c.attrs[key]; ok {
		c.hits++
		return e.attrs, e.err
	}
	c.misses++
	attrs, err := Attributes(cell, cat.Fields)
	c.attrs[key] = attrEntry{attrs: attrs, err: err}
	return attrs, err
}
