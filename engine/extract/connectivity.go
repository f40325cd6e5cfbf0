package extract

import (
	"github.com/WessleyAI/gridlink/engine/diagram"
	"github.com/WessleyAI/gridlink/engine/domain"
	"github.com/WessleyAI/gridlink/engine/netmodel"
)

// ResolveBuses returns the bus references of cell under cat's rule.
func ResolveBuses(cache *Cache, cell *diagram.Cell, cat *Category) ([]netmodel.BusRef, error) {
	switch cat.Rule {
	case RuleNone:
		return nil, nil
	case RuleTerminal:
		return resolveTerminals(cache, cell, cat.Roles, domain.ErrUnconnectedDevice)
	case RuleThreeWinding:
		return resolveTerminals(cache, cell, cat.Roles, domain.ErrIncompleteWindingSet)
	case RuleBranch:
		return resolveBranch(cache, cell, cat.Roles)
	case RuleImpedance:
		if cell.Edge {
			return resolveBranch(cache, cell, cat.Roles)
		}
		return resolveTerminals(cache, cell, cat.Roles, domain.ErrUnconnectedBranch)
	}
	return nil, nil
}

// resolveTerminals binds roles, in order, to the far endpoints of the
// cell's incident connections.
func resolveTerminals(cache *Cache, cell *diagram.Cell, roles []string, missing error) ([]netmodel.BusRef, error) {
	conns := connections(cache, cell)
	if len(conns) < len(roles) {
		return nil, domain.NewElementError(cell.ID, "", missing)
	}
	refs := make([]netmodel.BusRef, 0, len(roles))
	for i, role := range roles {
		far := otherEnd(conns[i], cell.ID)
		if far == "" {
			return nil, domain.NewElementError(cell.ID, role, missing)
		}
		if _, ok := cache.Cell(far); !ok {
			return nil, domain.NewElementError(cell.ID, role, missing)
		}
		refs = append(refs, netmodel.BusRef{Role: role, Bus: netmodel.CellName(far)})
	}
	return refs, nil
}

// resolveBranch reads the connection's declared endpoints.
func resolveBranch(cache *Cache, cell *diagram.Cell, roles []string) ([]netmodel.BusRef, error) {
	ends := [2]string{cell.Source, cell.Target}
	refs := make([]netmodel.BusRef, 0, 2)
	for i, end := range ends {
		role := roles[i]
		if end == "" {
			return nil, domain.NewElementError(cell.ID, role, domain.ErrUnconnectedBranch)
		}
		if _, ok := cache.Cell(end); !ok {
			return nil, domain.NewElementError(cell.ID, role, domain.ErrUnconnectedBranch)
		}
		refs = append(refs, netmodel.BusRef{Role: role, Bus: netmodel.CellName(end)})
	}
	return refs, nil
}

// connections returns the incident connections of cell, ignoring overlays.
func connections(cache *Cache, cell *diagram.Cell) []*diagram.Cell {
	out := make([]*diagram.Cell, 0, len(cell.Edges))
	for _, id := range cell.Edges {
		e, ok := cache.Cell(id)
		if !ok || diagram.IsOverlay(e) {
			continue
		}
		out = append(out, e)
	}
	return out
}

func otherEnd(e *diagram.Cell, self string) string {
	switch self {
	case e.Source:
		return e.Target
	case e.Target:
		return e.Source
	}
	return ""
}
