package netmodel

import (
	"strconv"

	"github.com/WessleyAI/gridlink/engine/domain"
)

// Parameter markers identifying the calculation a payload belongs to.
const (
	MarkerLoadFlow      = "PowerFlowPandaPower Parameters"
	MarkerStorageSizing = "StorageSizing Parameters"
)

// Parameters is the single simulation parameters record, always first in
// the payload.
type Parameters struct {
	Marker   string
	User     string
	Settings []Attr
}

// MarshalJSON writes typ, the settings in order, then user_email.
func (p Parameters) MarshalJSON() ([]byte, error) {
	var w objectWriter
	w.field("typ", p.Marker)
	for _, s := range p.Settings {
		w.field(s.Name, s.Value)
	}
	w.field("user_email", p.User)
	return w.close()
}

// Collection gathers one pass's records per kind.
type Collection struct {
	groups        [kindCount][]Record
	rolesAssigned bool
}

// NewCollection returns an empty Collection.
func NewCollection() *Collection { return &Collection{} }

// Add appends r under r.Kind.
func (c *Collection) Add(r Record) {
	if r.Kind < 0 || r.Kind >= kindCount {
		return
	}
	c.groups[r.Kind] = append(c.groups[r.Kind], r)
}

// Records returns the records of kind k. Elements may be modified in place.
func (c *Collection) Records(k Kind) []Record {
	if k < 0 || k >= kindCount {
		return nil
	}
	return c.groups[k]
}

// Len returns the total number of records.
func (c *Collection) Len() int {
	n := 0
	for _, g := range c.groups {
		n += len(g)
	}
	return n
}

// MarkRolesAssigned records that transformer winding roles are final.
func (c *Collection) MarkRolesAssigned() { c.rolesAssigned = true }

// RolesAssigned reports whether MarkRolesAssigned was called.
func (c *Collection) RolesAssigned() bool { return c.rolesAssigned }

// Model is the ordered network payload.
type Model struct {
	Params  Parameters
	Records []Record
}

// Assemble merges the collection in payload order behind params.
func Assemble(params Parameters, c *Collection) (*Model, error) {
	if params.Marker == "" {
		return nil, domain.ErrMissingParameters
	}
	if params.User == "" {
		params.User = domain.UnknownUser
	}
	if c == nil {
		c = NewCollection()
	}
	hasTransformers := len(c.groups[KindTransformer]) > 0 || len(c.groups[KindThreeWindingTransformer]) > 0
	if hasTransformers && !c.rolesAssigned {
		return nil, domain.ErrRolesNotAssigned
	}
	m := &Model{Params: params, Records: make([]Record, 0, c.Len())}
	for _, g := range c.groups {
		m.Records = append(m.Records, g...)
	}
	return m, nil
}

// Len returns the number of payload entries, parameters included.
func (m *Model) Len() int { return len(m.Records) + 1 }

// Count returns the number of records of kind k.
func (m *Model) Count(k Kind) int {
	n := 0
	for _, r := range m.Records {
		if r.Kind == k {
			n++
		}
	}
	return n
}

// Find returns the record originating from cell id.
func (m *Model) Find(id string) (Record, bool) {
	for _, r := range m.Records {
		if r.ID == id {
			return r, true
		}
	}
	return Record{}, false
}

// MarshalJSON writes the payload as an object keyed by sequence index,
// "0" being the parameters record.
func (m *Model) MarshalJSON() ([]byte, error) {
	var w objectWriter
	w.field("0", m.Params)
	for i, r := range m.Records {
		w.field(strconv.Itoa(i+1), r)
	}
	return w.close()
}
