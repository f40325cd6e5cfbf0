// Package diagram is the pipeline's view of the editor's graph: cells with
// encoded styles, ordered attribute values and incident connections.
package diagram

import "github.com/WessleyAI/gridlink/engine/style"

// Attribute is one named entry of a cell's structured value.
type Attribute struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// Geometry locates a cell on the canvas.
type Geometry struct {
	X        float64 `json:"x"`
	Y        float64 `json:"y"`
	Width    float64 `json:"width"`
	Height   float64 `json:"height"`
	Relative bool    `json:"relative,omitempty"`
	Extra    string  `json:"-"` // inner XML (waypoints), kept verbatim
}

// Cell is a node (Vertex) or connection (Edge) of the diagram.
type Cell struct {
	ID       string      `json:"id"`
	Parent   string      `json:"parent,omitempty"`
	Style    string      `json:"style,omitempty"`
	Label    string      `json:"label,omitempty"`
	Vertex   bool        `json:"vertex,omitempty"`
	Edge     bool        `json:"edge,omitempty"`
	Source   string      `json:"source,omitempty"` // edges only
	Target   string      `json:"target,omitempty"` // edges only
	Edges    []string    `json:"edges,omitempty"`  // incident edge ids, nodes only
	Value    []Attribute `json:"value,omitempty"`
	Geometry Geometry    `json:"geometry"`
	Extra    []Attribute `json:"-"` // unrecognised mxCell attributes
}

// Attr returns the named attribute value.
func (c *Cell) Attr(name string) (string, bool) {
	for _, a := range c.Value {
		if a.Name == name {
			return a.Value, true
		}
	}
	return "", false
}

// SetAttr adds or replaces the named attribute.
func (c *Cell) SetAttr(name, value string) {
	for i := range c.Value {
		if c.Value[i].Name == name {
			c.Value[i].Value = value
			return
		}
	}
	c.Value = append(c.Value, Attribute{Name: name, Value: value})
}

// Tag returns the domain tag of the cell's style, or "".
func (c *Cell) Tag() string {
	d, ok := style.Parse(c.Style)
	if !ok {
		return ""
	}
	return d.Tag()
}

// Center returns the midpoint of the cell's geometry.
func (c *Cell) Center() (float64, float64) {
	return c.Geometry.X + c.Geometry.Width/2, c.Geometry.Y + c.Geometry.Height/2
}

// Lookup resolves cells by id.
type Lookup interface {
	Cell(id string) (*Cell, bool)
}

// Graph is the editor surface the pipeline reads and mutates. Mutations made
// between BeginUpdate and the matching EndUpdate commit as one undo step.
type Graph interface {
	Lookup
	Cells() []*Cell
	BeginUpdate()
	EndUpdate()
	Add(c *Cell) error
	Remove(ids ...string)
	SetStyle(id, style string) bool
}
