package netmodel

import (
	"bytes"
	"encoding/json"
	"strconv"
)

// Bus roles used as record keys.
const (
	RoleBus     = "bus"
	RoleBusFrom = "busFrom"
	RoleBusTo   = "busTo"
	RoleHV      = "hv_bus"
	RoleMV      = "mv_bus"
	RoleLV      = "lv_bus"
)

// Attr is one extracted attribute, kept in declaration order.
type Attr struct {
	Name  string
	Value string
}

// BusRef names the bus attached to a record under a role.
type BusRef struct {
	Role string
	Bus  string
}

// Record is the canonical per-element unit sent to the solver.
type Record struct {
	Kind         Kind
	Seq          int // position within Kind for this pass
	Type         string
	Name         string
	ID           string
	FriendlyName string
	Buses        []BusRef
	Attrs        []Attr
}

// CellName derives a record's stable name from a diagram cell id.
func CellName(id string) string { return "mxCell_" + id }

// TypeLabel builds the category-qualified type label, e.g. "Bus3".
func TypeLabel(k Kind, seq int) string { return k.Label() + strconv.Itoa(seq) }

// Bus returns the bus bound to role.
func (r Record) Bus(role string) string {
	for _, b := range r.Buses {
		if b.Role == role {
			return b.Bus
		}
	}
	return ""
}

// SetBus binds role to bus, replacing any previous binding.
func (r *Record) SetBus(role, bus string) {
	for i := range r.Buses {
		if r.Buses[i].Role == role {
			r.Buses[i].Bus = bus
			return
		}
	}
	r.Buses = append(r.Buses, BusRef{Role: role, Bus: bus})
}

// Attr returns the named attribute.
func (r Record) Attr(name string) (string, bool) {
	for _, a := range r.Attrs {
		if a.Name == name {
			return a.Value, true
		}
	}
	return "", false
}

// MarshalJSON writes typ, name, id, userFriendlyName, the bus roles and the
// attributes, in that order.
func (r Record) MarshalJSON() ([]byte, error) {
	var w objectWriter
	w.field("typ", r.Type)
	w.field("name", r.Name)
	w.field("id", r.ID)
	w.field("userFriendlyName", r.FriendlyName)
	for _, b := range r.Buses {
		w.field(b.Role, b.Bus)
	}
	for _, a := range r.Attrs {
		w.field(a.Name, a.Value)
	}
	return w.close()
}

// objectWriter emits a JSON object with keys in call order.
type objectWriter struct {
	buf bytes.Buffer
	n   int
	err error
}

func (w *objectWriter) field(key string, value any) {
	if w.err != nil {
		return
	}
	if w.n == 0 {
		w.buf.WriteByte('{')
	} else {
		w.buf.WriteByte(',')
	}
	w.n++
	k, err := json.Marshal(key)
	if err != nil {
		w.err = err
		return
	}
	v, err := json.Marshal(value)
	if err != nil {
		w.err = err
		return
	}
	w.buf.Write(k)
	w.buf.WriteByte(':')
	w.buf.Write(v)
}

func (w *objectWriter) close() ([]byte, error) {
	if w.err != nil {
		return nil, w.err
	}
	if w.n == 0 {
		return []byte("{}"), nil
	}
	w.buf.WriteByte('}')
	return w.buf.Bytes(), nil
}
