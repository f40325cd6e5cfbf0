package diagram

import (
	"fmt"
	"strconv"
)

// Model is an in-memory Graph. Cells keep document order.
type Model struct {
	cells  []*Cell
	index  map[string]*Cell
	nextID int

	depth   int
	dirty   bool
	commits int
}

var _ Graph = (*Model)(nil)

// NewModel creates a Model from cells and wires node incident-edge lists from
// the edges' endpoints. Existing Edges lists are replaced.
func NewModel(cells ...*Cell) (*Model, error) {
	m := &Model{index: make(map[string]*Cell)}
	for _, c := range cells {
		if c.ID == "" {
			return nil, fmt.Errorf("diagram: cell without id")
		}
		if _, dup := m.index[c.ID]; dup {
			return nil, fmt.Errorf("diagram: duplicate cell id %q", c.ID)
		}
		c.Edges = nil
		m.cells = append(m.cells, c)
		m.index[c.ID] = c
		m.bumpID(c.ID)
	}
	for _, c := range m.cells {
		if c.Edge {
			m.attach(c)
		}
	}
	return m, nil
}

// Cells returns the cells in document order.
func (m *Model) Cells() []*Cell {
	out := make([]*Cell, len(m.cells))
	copy(out, m.cells)
	return out
}

// Cell returns the cell with the given id.
func (m *Model) Cell(id string) (*Cell, bool) {
	c, ok := m.index[id]
	return c, ok
}

// Len returns the number of cells.
func (m *Model) Len() int { return len(m.cells) }

// BeginUpdate opens (or nests) a transaction.
func (m *Model) BeginUpdate() { m.depth++ }

// EndUpdate closes a transaction. The outermost close records one undo step
// if anything changed.
func (m *Model) EndUpdate() {
	if m.depth == 0 {
		return
	}
	m.depth--
	if m.depth == 0 && m.dirty {
		m.commits++
		m.dirty = false
	}
}

// UndoSteps returns the number of committed transactions that changed the model.
func (m *Model) UndoSteps() int { return m.commits }

// Add inserts c. An empty id is assigned from the model's sequence.
func (m *Model) Add(c *Cell) error {
	if c.ID == "" {
		m.nextID++
		c.ID = strconv.Itoa(m.nextID)
	}
	if _, dup := m.index[c.ID]; dup {
		return fmt.Errorf("diagram: duplicate cell id %q", c.ID)
	}
	m.touch(func() {
		m.cells = append(m.cells, c)
		m.index[c.ID] = c
		m.bumpID(c.ID)
		if c.Edge {
			m.attach(c)
		}
	})
	return nil
}

// Remove deletes cells by id and detaches removed edges from their endpoints.
func (m *Model) Remove(ids ...string) {
	drop := make(map[string]bool, len(ids))
	for _, id := range ids {
		if _, ok := m.index[id]; ok {
			drop[id] = true
		}
	}
	if len(drop) == 0 {
		return
	}
	m.touch(func() {
		kept := m.cells[:0]
		for _, c := range m.cells {
			if drop[c.ID] {
				delete(m.index, c.ID)
				continue
			}
			kept = append(kept, c)
		}
		m.cells = kept
		for _, c := range m.cells {
			if len(c.Edges) == 0 {
				continue
			}
			edges := c.Edges[:0]
			for _, e := range c.Edges {
				if !drop[e] {
					edges = append(edges, e)
				}
			}
			c.Edges = edges
		}
	})
}

// SetStyle replaces a cell's style. It reports false for unknown ids.
func (m *Model) SetStyle(id, s string) bool {
	c, ok := m.index[id]
	if !ok {
		return false
	}
	if c.Style == s {
		return true
	}
	m.touch(func() { c.Style = s })
	return true
}

// touch runs f as a change, wrapping it in its own transaction when the
// caller has not opened one.
func (m *Model) touch(f func()) {
	m.BeginUpdate()
	f()
	m.dirty = true
	m.EndUpdate()
}

func (m *Model) attach(e *Cell) {
	for _, end := range []string{e.Source, e.Target} {
		if end == "" {
			continue
		}
		if n, ok := m.index[end]; ok {
			n.Edges = append(n.Edges, e.ID)
		}
	}
}

func (m *Model) bumpID(id string) {
	if n, err := strconv.Atoi(id); err == nil && n > m.nextID {
		m.nextID = n
	}
}
