package extract

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/WessleyAI/gridlink/engine/diagram"
	"github.com/WessleyAI/gridlink/engine/domain"
	"github.com/WessleyAI/gridlink/engine/netmodel"
)

type busInfo struct {
	name string
	vnKV float64
	seq  int
	err  error
}

// AssignRoles orders transformer bus references by the nominal voltage of
// the resolved busbars. It must run after every busbar of the pass is in c.
//
// Candidates are ranked by vn_kv descending, then by bus sequence number
// ascending, so equal voltages resolve the same way on every run. A
// transformer whose buses cannot be ranked keeps its provisional references
// and is flagged.
func AssignRoles(c *netmodel.Collection) ([]diagram.Command, []domain.Notice) {
	buses := indexBuses(c.Records(netmodel.KindBus))
	var (
		cmds    []diagram.Command
		notices []domain.Notice
	)
	fail := func(r *netmodel.Record, color string, err error) {
		cmds = append(cmds, diagram.Flag(r.ID, color))
		notices = append(notices, domain.Notice{
			Severity: domain.SeverityError,
			CellID:   r.ID,
			Message:  fmt.Sprintf("%s: cannot assign winding roles: %v", r.FriendlyName, err),
		})
	}

	two := c.Records(netmodel.KindTransformer)
	for i := range two {
		r := &two[i]
		ranked, err := rank(buses, r, netmodel.RoleHV, netmodel.RoleLV)
		if err != nil {
			fail(r, domain.ColorTwoWindingFailure, err)
			continue
		}
		r.SetBus(netmodel.RoleHV, ranked[0].name)
		r.SetBus(netmodel.RoleLV, ranked[1].name)
	}

	three := c.Records(netmodel.KindThreeWindingTransformer)
	for i := range three {
		r := &three[i]
		ranked, err := rank(buses, r, netmodel.RoleHV, netmodel.RoleMV, netmodel.RoleLV)
		if err != nil {
			fail(r, domain.ColorThreeWindingFailure, err)
			continue
		}
		r.SetBus(netmodel.RoleHV, ranked[0].name)
		r.SetBus(netmodel.RoleMV, ranked[1].name)
		r.SetBus(netmodel.RoleLV, ranked[2].name)
	}

	c.MarkRolesAssigned()
	return cmds, notices
}

func indexBuses(records []netmodel.Record) map[string]busInfo {
	idx := make(map[string]busInfo, len(records))
	for _, r := range records {
		b := busInfo{name: r.Name, seq: r.Seq}
		raw, _ := r.Attr("vn_kv")
		v, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
		if err != nil {
			b.err = domain.NewElementError(r.ID, "vn_kv", domain.ErrInvalidVoltage)
		}
		b.vnKV = v
		idx[r.Name] = b
	}
	return idx
}

// rank looks up the buses bound to roles on r and sorts them high to low.
func rank(buses map[string]busInfo, r *netmodel.Record, roles ...string) ([]busInfo, error) {
	out := make([]busInfo, 0, len(roles))
	for _, role := range roles {
		name := r.Bus(role)
		b, ok := buses[name]
		if !ok {
			return nil, domain.NewElementError(r.ID, role, domain.ErrBusNotFound)
		}
		if b.err != nil {
			return nil, b.err
		}
		out = append(out, b)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].vnKV != out[j].vnKV {
			return out[i].vnKV > out[j].vnKV
		}
		return out[i].seq < out[j].seq
	})
	return out, nil
}
