package annotate

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/WessleyAI/gridlink/engine/domain"
)

// Row is one result row. Values are nil where the solver sent null.
type Row struct {
	Name   string
	Values map[string]*float64
}

// CellID returns the diagram id the row belongs to.
func (r Row) CellID() string {
	return strings.TrimPrefix(r.Name, "mxCell_")
}

// Value returns the value of key; ok is false when the key is absent.
func (r Row) Value(key string) (v *float64, ok bool) {
	v, ok = r.Values[key]
	return v, ok
}

func (r *Row) UnmarshalJSON(b []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	r.Values = make(map[string]*float64, len(raw))
	for k, v := range raw {
		if k == "name" || k == "id" {
			var s string
			if json.Unmarshal(v, &s) == nil && (k == "name" || r.Name == "") {
				r.Name = s
			}
			continue
		}
		if bytes.Equal(bytes.TrimSpace(v), []byte("null")) {
			r.Values[k] = nil
			continue
		}
		var f float64
		if err := json.Unmarshal(v, &f); err != nil {
			// non-numeric columns are not rendered
			continue
		}
		r.Values[k] = &f
	}
	return nil
}

// Signal is a solver error entry such as a non-converged bus.
type Signal struct {
	Kind string `json:"error"`
	Rows []Row  `json:"rows,omitempty"`
}

// Response is a decoded solver reply.
type Response struct {
	Signals     []Signal
	Collections map[string][]Row
}

// Keys returns the collection names in sorted order.
func (r *Response) Keys() []string {
	keys := make([]string, 0, len(r.Collections))
	for k := range r.Collections {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Decode parses a solver reply: either a bare collection object or an
// array mixing error signals and collection objects.
func Decode(raw []byte) (*Response, error) {
	resp := &Response{Collections: make(map[string][]Row)}
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return nil, fmt.Errorf("annotate: empty body: %w", domain.ErrMalformedResponse)
	}
	switch raw[0] {
	case '{':
		if err := resp.merge(raw); err != nil {
			return nil, err
		}
	case '[':
		var entries []json.RawMessage
		if err := json.Unmarshal(raw, &entries); err != nil {
			return nil, fmt.Errorf("annotate: %v: %w", err, domain.ErrMalformedResponse)
		}
		for _, e := range entries {
			if err := resp.merge(e); err != nil {
				return nil, err
			}
		}
	default:
		return nil, fmt.Errorf("annotate: unexpected %q: %w", raw[0], domain.ErrMalformedResponse)
	}
	return resp, nil
}

func (r *Response) merge(raw json.RawMessage) error {
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(raw, &obj); err != nil {
		return fmt.Errorf("annotate: %v: %w", err, domain.ErrMalformedResponse)
	}
	if _, ok := obj["error"]; ok {
		var s Signal
		if err := json.Unmarshal(raw, &s); err != nil {
			return fmt.Errorf("annotate: signal: %v: %w", err, domain.ErrMalformedResponse)
		}
		r.Signals = append(r.Signals, s)
		return nil
	}
	for name, body := range obj {
		var rows []Row
		if err := json.Unmarshal(body, &rows); err != nil {
			return fmt.Errorf("annotate: collection %s: %v: %w", name, err, domain.ErrMalformedResponse)
		}
		r.Collections[name] = append(r.Collections[name], rows...)
	}
	return nil
}
