package annotate

import "strings"

// Column is one rendered label line.
type Column struct {
	Key       string
	Label     string
	Unit      string
	Precision int
}

// Line formats the column for a row as "Label[unit]: value".
func (c Column) Line(r Row) string {
	v, _ := r.Value(c.Key)
	return c.Label + "[" + c.Unit + "]: " + Format(v, c.Precision)
}

// Grade selects the threshold band used to color a source element.
type Grade int

const (
	GradeNone Grade = iota
	GradeVoltage
	GradeLoading
)

// Handler renders one result collection.
type Handler struct {
	Collection string
	Columns    []Column
	Grade      Grade
	// DX and DY offset the overlay from the source element.
	DX, DY float64
}

// Color returns the band color for r, or "" when r is not graded.
func (h *Handler) Color(r Row) string {
	var key string
	switch h.Grade {
	case GradeVoltage:
		key = "vm_pu"
	case GradeLoading:
		key = "loading_percent"
	default:
		return ""
	}
	v, ok := r.Value(key)
	if !ok || v == nil {
		return ""
	}
	if h.Grade == GradeVoltage {
		return VoltageColor(*v)
	}
	return LoadingColor(*v)
}

var units = []struct {
	suffix, unit string
	prec         int
}{
	{"_percent", "%", 1},
	{"_mvar", "MVar", 3},
	{"_mw", "MW", 3},
	{"_ka", "kA", 3},
	{"_pu", "pu", 3},
	{"_degree", "deg", 3},
	{"_ohm", "Ohm", 3},
}

// losses are rendered with more precision than flows.
var losses = map[string]bool{"pl_mw": true, "ql_mvar": true, "pl_dc_mw": true}

// col derives a column from a pandapower result key, e.g. "p_from_mw"
// becomes "P_from[MW]".
func col(key string) Column {
	c := Column{Key: key, Label: key, Precision: 3}
	for _, u := range units {
		if strings.HasSuffix(key, u.suffix) {
			c.Label = strings.TrimSuffix(key, u.suffix)
			c.Unit = u.unit
			c.Precision = u.prec
			break
		}
	}
	if losses[key] {
		c.Precision = 6
	}
	if c.Label != "" {
		c.Label = strings.ToUpper(c.Label[:1]) + c.Label[1:]
	}
	return c
}

func cols(keys ...string) []Column {
	out := make([]Column, len(keys))
	for i, k := range keys {
		out[i] = col(k)
	}
	return out
}

var (
	flowPQ   = []string{"p_mw", "q_mvar"}
	phasesPQ = []string{"p_a_mw", "q_a_mvar", "p_b_mw", "q_b_mvar", "p_c_mw", "q_c_mvar"}
)

func join(groups ...[]string) []string {
	var out []string
	for _, g := range groups {
		out = append(out, g...)
	}
	return out
}

// DefaultHandlers returns the handler table for every result collection.
func DefaultHandlers() []Handler {
	side := func(keys ...string) []string { return keys }
	return []Handler{
		{Collection: "busbars", Grade: GradeVoltage, DY: -45, Columns: cols("vm_pu", "va_degree", "p_mw", "q_mvar")},
		{Collection: "lines", Grade: GradeLoading, DX: 10, Columns: cols(
			"p_from_mw", "q_from_mvar", "p_to_mw", "q_to_mvar", "pl_mw", "ql_mvar",
			"i_from_ka", "i_to_ka", "i_ka", "vm_from_pu", "vm_to_pu", "loading_percent")},
		{Collection: "externalgrids", DX: 10, Columns: cols(flowPQ...)},
		{Collection: "generators", DX: 10, Columns: cols(join(flowPQ, side("va_degree", "vm_pu"))...)},
		{Collection: "staticgenerators", DX: 10, Columns: cols(flowPQ...)},
		{Collection: "asymmetricstaticgenerators", DX: 10, Columns: cols(phasesPQ...)},
		{Collection: "transformers", Grade: GradeLoading, DX: 10, Columns: cols(
			"p_hv_mw", "q_hv_mvar", "p_lv_mw", "q_lv_mvar", "pl_mw", "ql_mvar",
			"i_hv_ka", "i_lv_ka", "vm_hv_pu", "vm_lv_pu", "loading_percent")},
		{Collection: "transformers3W", Grade: GradeLoading, DX: 10, Columns: cols(
			"p_hv_mw", "q_hv_mvar", "p_mv_mw", "q_mv_mvar", "p_lv_mw", "q_lv_mvar", "pl_mw", "ql_mvar",
			"i_hv_ka", "i_mv_ka", "i_lv_ka", "vm_hv_pu", "vm_mv_pu", "vm_lv_pu", "loading_percent")},
		{Collection: "shunts", DX: 10, Columns: cols(join(flowPQ, side("vm_pu"))...)},
		{Collection: "capacitors", DX: 10, Columns: cols(join(flowPQ, side("vm_pu"))...)},
		{Collection: "loads", DX: 10, Columns: cols(flowPQ...)},
		{Collection: "asymmetricloads", DX: 10, Columns: cols(phasesPQ...)},
		{Collection: "impedances", DX: 10, Columns: cols(
			"p_from_mw", "q_from_mvar", "p_to_mw", "q_to_mvar", "pl_mw", "ql_mvar", "i_from_ka", "i_to_ka")},
		{Collection: "wards", DX: 10, Columns: cols(join(flowPQ, side("vm_pu"))...)},
		{Collection: "extendedwards", DX: 10, Columns: cols(join(flowPQ, side("vm_pu"))...)},
		{Collection: "motors", DX: 10, Columns: cols(flowPQ...)},
		{Collection: "storages", DX: 10, Columns: cols(flowPQ...)},
		{Collection: "SSC", DX: 10, Columns: cols("q_mvar", "vm_internal_pu", "va_internal_degree", "vm_pu", "va_degree")},
		{Collection: "SVC", DX: 10, Columns: cols("thyristor_firing_angle_degree", "x_ohm", "q_mvar", "vm_pu", "va_degree")},
		{Collection: "TCSC", DX: 10, Columns: cols(
			"thyristor_firing_angle_degree", "x_ohm", "p_from_mw", "q_from_mvar", "p_to_mw", "q_to_mvar",
			"pl_mw", "ql_mvar", "i_ka", "vm_from_pu", "va_from_degree", "vm_to_pu", "va_to_degree")},
		{Collection: "VSC", DX: 10, Columns: cols(
			"p_mw", "q_mvar", "p_dc_mw", "vm_internal_pu", "va_internal_degree", "vm_internal_dc_pu")},
		{Collection: "dcbuses", DY: -45, Columns: cols("vm_pu", "p_mw")},
		{Collection: "dclines", DX: 10, Columns: cols(
			"p_from_mw", "p_to_mw", "pl_mw", "vm_from_pu", "vm_to_pu", "va_from_degree", "va_to_degree")},
		{Collection: "switches", DX: 10, Columns: cols("i_ka", "p_from_mw", "q_from_mvar", "loading_percent")},
	}
}
