// Package style decodes and encodes diagram style strings.
//
// A style string is a ';'-separated list of key=value tokens, optionally
// led by a bare style name (e.g. "edgeStyle;shapeELXXX=Line;strokeColor=#000").
// Garbled tokens are dropped rather than rejected.
package style

import "strings"

// TagKey is the style key carrying a diagram element's domain tag.
const TagKey = "shapeELXXX"

// Descriptor is an ordered key/value view of one element's style.
type Descriptor struct {
	name string
	keys []string
	vals map[string]string
}

// Parse decodes s. It reports false for an empty style, which callers treat
// as "not a domain element".
func Parse(s string) (Descriptor, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Descriptor{}, false
	}
	d := Descriptor{vals: make(map[string]string)}
	for i, tok := range strings.Split(s, ";") {
		tok = strings.TrimSpace(tok)
		if tok == "" {
			continue
		}
		k, v, found := strings.Cut(tok, "=")
		if !found {
			if i == 0 {
				d.name = tok
			}
			continue
		}
		k = strings.TrimSpace(k)
		if k == "" {
			continue
		}
		d.Set(k, strings.TrimSpace(v))
	}
	return d, true
}

// Name returns the bare leading style name, if any.
func (d Descriptor) Name() string { return d.name }

// Get returns the value for key.
func (d Descriptor) Get(key string) (string, bool) {
	v, ok := d.vals[key]
	return v, ok
}

// Has reports whether key is present.
func (d Descriptor) Has(key string) bool {
	_, ok := d.vals[key]
	return ok
}

// Tag returns the domain tag, or "" when the style has none.
func (d Descriptor) Tag() string { return d.vals[TagKey] }

// Len returns the number of key/value pairs.
func (d Descriptor) Len() int { return len(d.keys) }

// Set adds or replaces key. New keys keep insertion order.
func (d *Descriptor) Set(key, value string) {
	if d.vals == nil {
		d.vals = make(map[string]string)
	}
	if _, ok := d.vals[key]; !ok {
		d.keys = append(d.keys, key)
	}
	d.vals[key] = value
}

// Del removes key.
func (d *Descriptor) Del(key string) {
	if _, ok := d.vals[key]; !ok {
		return
	}
	delete(d.vals, key)
	keys := make([]string, 0, len(d.keys)-1)
	for _, k := range d.keys {
		if k != key {
			keys = append(keys, k)
		}
	}
	d.keys = keys
}

// String re-encodes the descriptor in parse order.
func (d Descriptor) String() string {
	var b strings.Builder
	if d.name != "" {
		b.WriteString(d.name)
		b.WriteByte(';')
	}
	for _, k := range d.keys {
		b.WriteString(k)
		b.WriteByte('=')
		b.WriteString(d.vals[k])
		b.WriteByte(';')
	}
	return b.String()
}

// Contains reports whether the raw style string carries marker either as the
// style name, as a key, or as the domain tag value.
func Contains(s, marker string) bool {
	d, ok := Parse(s)
	if !ok {
		return false
	}
	return d.name == marker || d.Has(marker) || d.Tag() == marker
}

// WithValue returns s with key set to value, preserving everything else.
func WithValue(s, key, value string) string {
	d, _ := Parse(s)
	d.Set(key, value)
	return d.String()
}
