package extract

import (
	"strconv"

	"github.com/WessleyAI/gridlink/engine/diagram"
	"github.com/WessleyAI/gridlink/engine/domain"
	"github.com/WessleyAI/gridlink/engine/netmodel"
)

// Field declares one record entry read from a cell attribute.
type Field struct {
	Key      string // record key
	Attr     string // attribute name on the cell
	Optional bool
	// Index is the attribute's position in the legacy schema, or -1. It is
	// consulted only when the name lookup misses and the attribute at that
	// position carries no schema name.
	Index int
}

func req(name string) Field { return Field{Key: name, Attr: name, Index: -1} }

func opt(name string) Field { return Field{Key: name, Attr: name, Optional: true, Index: -1} }

// legacy declares a required field that older diagrams stored positionally.
func legacy(name string, index int) Field { return Field{Key: name, Attr: name, Index: index} }

func fields(fs ...Field) []Field { return fs }

// Attributes reads fields from c. A missing required field fails with
// ErrMissingAttribute; a missing optional field yields no entry.
func Attributes(c *diagram.Cell, fs []Field) ([]netmodel.Attr, error) {
	out := make([]netmodel.Attr, 0, len(fs))
	for _, f := range fs {
		v, ok := c.Attr(f.Attr)
		if !ok {
			v, ok = positional(c, f.Index)
		}
		if !ok {
			if f.Optional {
				continue
			}
			return nil, domain.NewElementError(c.ID, f.Key, domain.ErrMissingAttribute)
		}
		out = append(out, netmodel.Attr{Name: f.Key, Value: v})
	}
	return out, nil
}

// positional reads a legacy value stored at index. Only unnamed entries, or
// entries named by their position ("2"), qualify; a named attribute belongs
// to another field.
func positional(c *diagram.Cell, index int) (string, bool) {
	if index < 0 || index >= len(c.Value) {
		return "", false
	}
	a := c.Value[index]
	if a.Name != "" && a.Name != strconv.Itoa(index) {
		return "", false
	}
	return a.Value, true
}

// FriendlyName returns the cell's "name" attribute, falling back to its id.
func FriendlyName(c *diagram.Cell) string {
	if v, ok := c.Attr("name"); ok && v != "" {
		return v
	}
	return c.ID
}
