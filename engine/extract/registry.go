package extract

import (
	"github.com/WessleyAI/gridlink/engine/diagram"
	"github.com/WessleyAI/gridlink/engine/netmodel"
	"github.com/WessleyAI/gridlink/engine/style"
)

// Rule selects how a category's bus references are resolved.
type Rule int

const (
	// RuleNone: the element is itself a bus.
	RuleNone Rule = iota
	// RuleTerminal: one incident connection per role; each bus is the far
	// endpoint of the connection.
	RuleTerminal
	// RuleBranch: the element is a connection; buses are its own endpoints.
	RuleBranch
	// RuleThreeWinding: three incident connections, provisional roles.
	RuleThreeWinding
	// RuleImpedance: two-terminal; failures drop the record with a notice.
	RuleImpedance
)

// Tags that are never network elements.
const (
	TagHelperConnector = "NotEditableLine"
)

// Category binds a style tag to a record kind, its bus rule and fields.
type Category struct {
	Kind   netmodel.Kind
	Tag    string
	Rule   Rule
	Roles  []string
	Fields []Field
}

// Registry is the static classification table.
type Registry struct {
	byTag map[string]*Category
	order []*Category
}

// NewRegistry builds a registry from categories. Later duplicates of a tag
// replace earlier ones.
func NewRegistry(cats ...Category) *Registry {
	r := &Registry{byTag: make(map[string]*Category, len(cats))}
	for i := range cats {
		c := cats[i]
		if _, dup := r.byTag[c.Tag]; !dup {
			r.order = append(r.order, &c)
		} else {
			for j, o := range r.order {
				if o.Tag == c.Tag {
					r.order[j] = &c
				}
			}
		}
		r.byTag[c.Tag] = &c
	}
	return r
}

// Classify returns the category of c. Cells without a style, helper
// connectors, result overlays and unknown tags are not classified.
func (r *Registry) Classify(c *diagram.Cell) (*Category, bool) {
	d, ok := style.Parse(c.Style)
	if !ok {
		return nil, false
	}
	tag := d.Tag()
	if tag == "" || tag == TagHelperConnector {
		return nil, false
	}
	if diagram.IsOverlay(c) || style.Contains(c.Style, diagram.PlaceholderMarker) {
		return nil, false
	}
	cat, ok := r.byTag[tag]
	return cat, ok
}

// Lookup returns the category registered for tag.
func (r *Registry) Lookup(tag string) (*Category, bool) {
	cat, ok := r.byTag[tag]
	return cat, ok
}

// Categories returns the registered categories in registration order.
func (r *Registry) Categories() []*Category {
	out := make([]*Category, len(r.order))
	copy(out, r.order)
	return out
}

// Counters hands out dense per-kind sequence numbers for one pass.
type Counters struct {
	next map[netmodel.Kind]int
}

// NewCounters returns zeroed counters.
func NewCounters() *Counters {
	return &Counters{next: make(map[netmodel.Kind]int)}
}

// Next returns the next sequence number for k.
func (c *Counters) Next(k netmodel.Kind) int {
	n := c.next[k]
	c.next[k] = n + 1
	return n
}

var (
	roleBus    = []string{netmodel.RoleBus}
	roleBranch = []string{netmodel.RoleBusFrom, netmodel.RoleBusTo}
	role2W     = []string{netmodel.RoleHV, netmodel.RoleLV}
	role3W     = []string{netmodel.RoleHV, netmodel.RoleMV, netmodel.RoleLV}
)

// DefaultRegistry returns the editor's component library.
func DefaultRegistry() *Registry {
	return NewRegistry(
		Category{Kind: netmodel.KindExternalGrid, Tag: "External Grid", Rule: RuleTerminal, Roles: roleBus, Fields: fields(
			req("vm_pu"), req("va_degree"),
			opt("s_sc_max_mva"), opt("s_sc_min_mva"), opt("rx_max"), opt("rx_min"),
			opt("r0x0_max"), opt("x0x_max"),
		)},
		Category{Kind: netmodel.KindGenerator, Tag: "Generator", Rule: RuleTerminal, Roles: roleBus, Fields: fields(
			req("p_mw"), req("vm_pu"),
			opt("sn_mva"), opt("scaling"), opt("vn_kv"), opt("xdss_pu"), opt("rdss_ohm"),
			opt("cos_phi"), opt("pg_percent"),
		)},
		Category{Kind: netmodel.KindStaticGenerator, Tag: "Static Generator", Rule: RuleTerminal, Roles: roleBus, Fields: fields(
			req("p_mw"), req("q_mvar"),
			opt("sn_mva"), opt("scaling"), opt("type"), opt("k"), opt("rx"), opt("generator_type"),
		)},
		Category{Kind: netmodel.KindAsymmetricStaticGenerator, Tag: "Asymmetric Static Generator", Rule: RuleTerminal, Roles: roleBus, Fields: fields(
			req("p_a_mw"), req("p_b_mw"), req("p_c_mw"),
			req("q_a_mvar"), req("q_b_mvar"), req("q_c_mvar"),
			opt("sn_mva"), opt("scaling"), opt("type"),
		)},
		Category{Kind: netmodel.KindBus, Tag: "Bus", Rule: RuleNone, Fields: fields(
			legacy("vn_kv", 2),
		)},
		Category{Kind: netmodel.KindTransformer, Tag: "Transformer", Rule: RuleTerminal, Roles: role2W, Fields: fields(
			req("sn_mva"), req("vn_hv_kv"), req("vn_lv_kv"),
			req("vkr_percent"), req("vk_percent"), req("pfe_kw"), req("i0_percent"),
			opt("shift_degree"), opt("std_type"), opt("parallel"), opt("vector_group"),
			opt("tap_side"), opt("tap_pos"), opt("tap_neutral"), opt("tap_max"), opt("tap_min"),
			opt("tap_step_percent"), opt("vk0_percent"), opt("vkr0_percent"),
		)},
		Category{Kind: netmodel.KindThreeWindingTransformer, Tag: "Three Winding Transformer", Rule: RuleThreeWinding, Roles: role3W, Fields: fields(
			req("sn_hv_mva"), req("sn_mv_mva"), req("sn_lv_mva"),
			req("vn_hv_kv"), req("vn_mv_kv"), req("vn_lv_kv"),
			req("vk_hv_percent"), req("vk_mv_percent"), req("vk_lv_percent"),
			req("vkr_hv_percent"), req("vkr_mv_percent"), req("vkr_lv_percent"),
			req("pfe_kw"), req("i0_percent"),
			opt("shift_mv_degree"), opt("shift_lv_degree"), opt("tap_side"), opt("tap_pos"), opt("std_type"),
		)},
		Category{Kind: netmodel.KindShuntReactor, Tag: "Shunt Reactor", Rule: RuleTerminal, Roles: roleBus, Fields: fields(
			req("p_mw"), req("q_mvar"), req("vn_kv"), opt("step"), opt("max_step"),
		)},
		Category{Kind: netmodel.KindCapacitor, Tag: "Capacitor", Rule: RuleTerminal, Roles: roleBus, Fields: fields(
			req("q_mvar"), req("loss_factor"), req("vn_kv"), opt("step"), opt("max_step"),
		)},
		Category{Kind: netmodel.KindLoad, Tag: "Load", Rule: RuleTerminal, Roles: roleBus, Fields: fields(
			req("p_mw"), req("q_mvar"),
			opt("const_z_percent"), opt("const_i_percent"), opt("sn_mva"), opt("scaling"), opt("type"),
		)},
		Category{Kind: netmodel.KindAsymmetricLoad, Tag: "Asymmetric Load", Rule: RuleTerminal, Roles: roleBus, Fields: fields(
			req("p_a_mw"), req("p_b_mw"), req("p_c_mw"),
			req("q_a_mvar"), req("q_b_mvar"), req("q_c_mvar"),
			opt("sn_mva"), opt("scaling"), opt("type"),
		)},
		Category{Kind: netmodel.KindImpedance, Tag: "Impedance", Rule: RuleImpedance, Roles: roleBranch, Fields: fields(
			req("rft_pu"), req("xft_pu"), req("sn_mva"), opt("rtf_pu"), opt("xtf_pu"),
		)},
		Category{Kind: netmodel.KindWard, Tag: "Ward", Rule: RuleTerminal, Roles: roleBus, Fields: fields(
			req("ps_mw"), req("qs_mvar"), req("pz_mw"), req("qz_mvar"),
		)},
		Category{Kind: netmodel.KindExtendedWard, Tag: "Extended Ward", Rule: RuleTerminal, Roles: roleBus, Fields: fields(
			req("ps_mw"), req("qs_mvar"), req("pz_mw"), req("qz_mvar"),
			req("r_ohm"), req("x_ohm"), req("vm_pu"),
		)},
		Category{Kind: netmodel.KindMotor, Tag: "Motor", Rule: RuleTerminal, Roles: roleBus, Fields: fields(
			req("pn_mech_mw"), req("cos_phi"),
			opt("efficiency_percent"), opt("loading_percent"), opt("scaling"), opt("cos_phi_n"),
			opt("efficiency_n_percent"), opt("lrc_pu"), opt("rx"), opt("vn_kv"),
		)},
		Category{Kind: netmodel.KindStorage, Tag: "Storage", Rule: RuleTerminal, Roles: roleBus, Fields: fields(
			req("p_mw"), req("max_e_mwh"),
			opt("q_mvar"), opt("sn_mva"), opt("soc_percent"), opt("min_e_mwh"), opt("scaling"), opt("type"),
		)},
		Category{Kind: netmodel.KindSSC, Tag: "SSC", Rule: RuleTerminal, Roles: roleBus, Fields: fields(
			req("r_ohm"), req("x_ohm"), req("set_vm_pu"),
			opt("vm_internal_pu"), opt("va_internal_degree"), opt("controllable"),
		)},
		Category{Kind: netmodel.KindSVC, Tag: "SVC", Rule: RuleTerminal, Roles: roleBus, Fields: fields(
			req("x_l_ohm"), req("x_cvar_ohm"), req("set_vm_pu"), req("thyristor_firing_angle_degree"),
			opt("controllable"), opt("min_angle_degree"), opt("max_angle_degree"),
		)},
		Category{Kind: netmodel.KindTCSC, Tag: "TCSC", Rule: RuleTerminal, Roles: roleBus, Fields: fields(
			req("x_l_ohm"), req("x_cvar_ohm"), req("set_p_to_mw"), req("thyristor_firing_angle_degree"),
			opt("controllable"), opt("min_angle_degree"), opt("max_angle_degree"),
		)},
		Category{Kind: netmodel.KindVSC, Tag: "VSC", Rule: RuleTerminal, Roles: []string{"bus", "bus_dc"}, Fields: fields(
			req("r_ohm"), req("x_ohm"), req("r_dc_ohm"),
			req("control_mode_ac"), req("control_value_ac"), req("control_mode_dc"), req("control_value_dc"),
			opt("pl_dc_mw"), opt("controllable"),
		)},
		Category{Kind: netmodel.KindB2BVSC, Tag: "B2B VSC", Rule: RuleTerminal, Roles: []string{"bus", "bus_dc_plus", "bus_dc_minus"}, Fields: fields(
			req("r_ohm"), req("x_ohm"), req("r_dc_ohm"),
			req("control_mode_ac"), req("control_value_ac"), req("control_mode_dc"), req("control_value_dc"),
			opt("pl_dc_mw"), opt("controllable"),
		)},
		Category{Kind: netmodel.KindDCBus, Tag: "DC Bus", Rule: RuleNone, Fields: fields(
			req("vn_kv"),
		)},
		Category{Kind: netmodel.KindDCLoad, Tag: "DC Load", Rule: RuleTerminal, Roles: roleBus, Fields: fields(
			req("p_mw"), opt("scaling"), opt("type"),
		)},
		Category{Kind: netmodel.KindDCSource, Tag: "DC Source", Rule: RuleTerminal, Roles: roleBus, Fields: fields(
			req("vm_pu"), opt("p_mw"),
		)},
		Category{Kind: netmodel.KindSwitch, Tag: "Switch", Rule: RuleTerminal, Roles: []string{"bus", "element"}, Fields: fields(
			req("closed"), opt("et"), opt("type"), opt("z_ohm"),
		)},
		Category{Kind: netmodel.KindDCLine, Tag: "DC Line", Rule: RuleBranch, Roles: roleBranch, Fields: fields(
			req("p_mw"), req("loss_percent"), req("loss_mw"), req("vm_from_pu"), req("vm_to_pu"),
		)},
		Category{Kind: netmodel.KindLine, Tag: "Line", Rule: RuleBranch, Roles: roleBranch, Fields: fields(
			legacy("length_km", 2), req("r_ohm_per_km"), req("x_ohm_per_km"), req("c_nf_per_km"), req("max_i_ka"),
			opt("std_type"), opt("g_us_per_km"), opt("type"), opt("parallel"), opt("df"),
			opt("r0_ohm_per_km"), opt("x0_ohm_per_km"), opt("c0_nf_per_km"), opt("endtemp_degree"),
		)},
	)
}
