package diagram

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"strconv"
)

type xmlModel struct {
	XMLName xml.Name   `xml:"mxGraphModel"`
	Attrs   []xml.Attr `xml:",any,attr"`
	Root    xmlRoot    `xml:"root"`
}

type xmlRoot struct {
	Items []xmlItem `xml:",any"`
}

// xmlItem is either a bare <mxCell> or a user object (<object>, <UserObject>)
// wrapping one.
type xmlItem struct {
	XMLName  xml.Name
	Attrs    []xml.Attr   `xml:",any,attr"`
	Cell     *xmlCell     `xml:"mxCell"`
	Geometry *xmlGeometry `xml:"mxGeometry"`
}

type xmlCell struct {
	Attrs    []xml.Attr   `xml:",any,attr"`
	Geometry *xmlGeometry `xml:"mxGeometry"`
}

type xmlGeometry struct {
	Attrs []xml.Attr `xml:",any,attr"`
	Inner string     `xml:",innerxml"`
}

// DecodeXML reads an mxGraphModel document into a Model.
func DecodeXML(r io.Reader) (*Model, error) {
	var doc xmlModel
	if err := xml.NewDecoder(r).Decode(&doc); err != nil {
		return nil, fmt.Errorf("diagram: decode xml: %w", err)
	}
	cells := make([]*Cell, 0, len(doc.Root.Items))
	for _, it := range doc.Root.Items {
		c, err := cellFromItem(it)
		if err != nil {
			return nil, err
		}
		cells = append(cells, c)
	}
	return NewModel(cells...)
}

func cellFromItem(it xmlItem) (*Cell, error) {
	c := &Cell{}
	cellAttrs, geom := it.Attrs, it.Geometry
	if it.XMLName.Local != "mxCell" {
		// User object: its attributes are the structured value.
		for _, a := range it.Attrs {
			if a.Name.Local == "id" {
				c.ID = a.Value
				continue
			}
			c.Value = append(c.Value, Attribute{Name: a.Name.Local, Value: a.Value})
		}
		if it.Cell == nil {
			return nil, fmt.Errorf("diagram: %s %q has no mxCell", it.XMLName.Local, c.ID)
		}
		cellAttrs, geom = it.Cell.Attrs, it.Cell.Geometry
	}
	for _, a := range cellAttrs {
		switch a.Name.Local {
		case "id":
			c.ID = a.Value
		case "parent":
			c.Parent = a.Value
		case "style":
			c.Style = a.Value
		case "value":
			c.Label = a.Value
		case "vertex":
			c.Vertex = a.Value == "1"
		case "edge":
			c.Edge = a.Value == "1"
		case "source":
			c.Source = a.Value
		case "target":
			c.Target = a.Value
		default:
			c.Extra = append(c.Extra, Attribute{Name: a.Name.Local, Value: a.Value})
		}
	}
	if c.ID == "" {
		return nil, fmt.Errorf("diagram: cell without id")
	}
	if geom != nil {
		g, err := geometryFromXML(geom)
		if err != nil {
			return nil, fmt.Errorf("diagram: cell %q: %w", c.ID, err)
		}
		c.Geometry = g
	}
	return c, nil
}

func geometryFromXML(x *xmlGeometry) (Geometry, error) {
	g := Geometry{Extra: x.Inner}
	for _, a := range x.Attrs {
		var dst *float64
		switch a.Name.Local {
		case "x":
			dst = &g.X
		case "y":
			dst = &g.Y
		case "width":
			dst = &g.Width
		case "height":
			dst = &g.Height
		case "relative":
			g.Relative = a.Value == "1"
		}
		if dst == nil {
			continue
		}
		f, err := strconv.ParseFloat(a.Value, 64)
		if err != nil {
			return g, fmt.Errorf("geometry %s=%q: %w", a.Name.Local, a.Value, err)
		}
		*dst = f
	}
	return g, nil
}

// EncodeXML writes cells as an mxGraphModel document.
func EncodeXML(w io.Writer, cells []*Cell) error {
	doc := xmlModel{}
	for _, c := range cells {
		doc.Root.Items = append(doc.Root.Items, itemFromCell(c))
	}
	enc := xml.NewEncoder(w)
	enc.Indent("", "  ")
	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("diagram: encode xml: %w", err)
	}
	return enc.Flush()
}

// XML encodes the model's cells as an mxGraphModel document.
func (m *Model) XML() ([]byte, error) {
	var buf bytes.Buffer
	if err := EncodeXML(&buf, m.cells); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func itemFromCell(c *Cell) xmlItem {
	var attrs []xml.Attr
	add := func(name, value string) {
		attrs = append(attrs, xml.Attr{Name: xml.Name{Local: name}, Value: value})
	}
	if len(c.Value) == 0 {
		add("id", c.ID)
	}
	if c.Label != "" {
		add("value", c.Label)
	}
	if c.Style != "" {
		add("style", c.Style)
	}
	if c.Vertex {
		add("vertex", "1")
	}
	if c.Edge {
		add("edge", "1")
	}
	if c.Parent != "" {
		add("parent", c.Parent)
	}
	if c.Source != "" {
		add("source", c.Source)
	}
	if c.Target != "" {
		add("target", c.Target)
	}
	for _, a := range c.Extra {
		add(a.Name, a.Value)
	}
	geom := geometryToXML(c)

	if len(c.Value) == 0 {
		return xmlItem{XMLName: xml.Name{Local: "mxCell"}, Attrs: attrs, Geometry: geom}
	}
	obj := make([]xml.Attr, 0, len(c.Value)+1)
	for _, a := range c.Value {
		obj = append(obj, xml.Attr{Name: xml.Name{Local: a.Name}, Value: a.Value})
	}
	obj = append(obj, xml.Attr{Name: xml.Name{Local: "id"}, Value: c.ID})
	return xmlItem{
		XMLName: xml.Name{Local: "object"},
		Attrs:   obj,
		Cell:    &xmlCell{Attrs: attrs, Geometry: geom},
	}
}

func geometryToXML(c *Cell) *xmlGeometry {
	g := c.Geometry
	if !c.Vertex && !c.Edge && g == (Geometry{}) {
		return nil
	}
	var attrs []xml.Attr
	add := func(name string, v float64) {
		if v != 0 {
			attrs = append(attrs, xml.Attr{Name: xml.Name{Local: name}, Value: strconv.FormatFloat(v, 'f', -1, 64)})
		}
	}
	add("x", g.X)
	add("y", g.Y)
	add("width", g.Width)
	add("height", g.Height)
	if g.Relative {
		attrs = append(attrs, xml.Attr{Name: xml.Name{Local: "relative"}, Value: "1"})
	}
	attrs = append(attrs, xml.Attr{Name: xml.Name{Local: "as"}, Value: "geometry"})
	return &xmlGeometry{Attrs: attrs, Inner: g.Extra}
}
