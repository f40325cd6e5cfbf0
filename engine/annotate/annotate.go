// Package annotate renders solver results back onto the diagram as overlay
// labels and threshold colors.
package annotate

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/WessleyAI/gridlink/engine/diagram"
	"github.com/WessleyAI/gridlink/engine/domain"
)

const (
	overlayWidth = 120
	lineHeight   = 12
)

// Overlay is a result label to be placed next to a source element. Overlays
// of connections are label edges over the same endpoints.
type Overlay struct {
	ID       string
	SourceID string
	Lines    []string
	Color    string
	Geometry diagram.Geometry
	// Source and Target are set when the annotated element is a connection.
	Source string
	Target string
}

// Edge reports whether o is rendered as a label edge.
func (o Overlay) Edge() bool { return o.Source != "" || o.Target != "" }

// Cell builds the overlay cell.
func (o Overlay) Cell() *diagram.Cell {
	s := diagram.ResultMarker + ";text;html=1;whiteSpace=wrap;align=left;verticalAlign=top;fontSize=9;strokeColor=none;fillColor=none;"
	if o.Edge() {
		s += "endArrow=none;startArrow=none;"
	}
	if o.Color != "" {
		s += "fontColor=" + o.Color + ";"
	}
	c := &diagram.Cell{
		ID:       o.ID,
		Style:    s,
		Label:    strings.Join(o.Lines, "<br>"),
		Geometry: o.Geometry,
	}
	if o.Edge() {
		c.Edge, c.Source, c.Target = true, o.Source, o.Target
	} else {
		c.Vertex = true
	}
	return c
}

// Plan is the set of diagram changes for one response.
type Plan struct {
	Overlays []Overlay
	Commands []diagram.Command
	Notices  []domain.Notice
	// Unmatched counts rows that name no diagram element.
	Unmatched int
}

// Annotator turns responses into plans.
type Annotator struct {
	handlers []Handler
	log      *slog.Logger
}

// Option configures an Annotator.
type Option func(*Annotator)

// WithLogger sets the diagnostic logger.
func WithLogger(l *slog.Logger) Option {
	return func(a *Annotator) { a.log = l }
}

// WithHandlers replaces the default handler table.
func WithHandlers(h []Handler) Option {
	return func(a *Annotator) { a.handlers = h }
}

// New creates an Annotator.
func New(opts ...Option) *Annotator {
	a := &Annotator{handlers: DefaultHandlers(), log: slog.Default()}
	for _, o := range opts {
		o(a)
	}
	return a
}

// OverlayID is the id of the overlay rendered for a source element.
func OverlayID(sourceID string) string { return diagram.ResultMarker + "_" + sourceID }

// Plan computes the overlays, colors and notices for resp without touching
// the diagram. An element named by several rows gets one overlay, built from
// the last row.
func (a *Annotator) Plan(lookup diagram.Lookup, resp *Response) Plan {
	var p Plan
	for _, s := range resp.Signals {
		p.Notices = append(p.Notices, signalNotices(s)...)
	}
	at := make(map[string]int)
	known := make(map[string]bool, len(a.handlers))
	for i := range a.handlers {
		h := &a.handlers[i]
		known[h.Collection] = true
		for _, row := range resp.Collections[h.Collection] {
			src, ok := lookup.Cell(row.CellID())
			if !ok {
				p.Unmatched++
				a.log.Warn("annotate: row names no element", "collection", h.Collection, "name", row.Name)
				continue
			}
			o := Overlay{ID: OverlayID(src.ID), SourceID: src.ID, Color: h.Color(row)}
			for _, c := range h.Columns {
				if _, present := row.Value(c.Key); present {
					o.Lines = append(o.Lines, c.Line(row))
				}
			}
			o.Geometry = place(lookup, src, h, len(o.Lines))
			if src.Edge {
				o.Source, o.Target = src.Source, src.Target
			}
			if i, dup := at[src.ID]; dup {
				a.log.Debug("annotate: element repeated in response", "collection", h.Collection, "name", row.Name)
				p.Overlays[i] = o
				continue
			}
			at[src.ID] = len(p.Overlays)
			p.Overlays = append(p.Overlays, o)
		}
	}
	for _, o := range p.Overlays {
		if o.Color != "" {
			p.Commands = append(p.Commands, diagram.Recolor(o.SourceID, o.Color))
		}
	}
	for _, name := range resp.Keys() {
		if !known[name] {
			a.log.Debug("annotate: no handler for collection", "collection", name)
		}
	}
	return p
}

// place positions an overlay relative to its source. Connections are
// anchored at the midpoint of their endpoints.
func place(lookup diagram.Lookup, src *diagram.Cell, h *Handler, lines int) diagram.Geometry {
	x, y := src.Geometry.X+src.Geometry.Width, src.Geometry.Y
	if src.Edge {
		x, y = midpoint(lookup, src)
	}
	return diagram.Geometry{
		X:      x + h.DX,
		Y:      y + h.DY,
		Width:  overlayWidth,
		Height: float64(lines*lineHeight + 4),
	}
}

func midpoint(lookup diagram.Lookup, e *diagram.Cell) (float64, float64) {
	a, okA := lookup.Cell(e.Source)
	b, okB := lookup.Cell(e.Target)
	switch {
	case okA && okB:
		ax, ay := a.Center()
		bx, by := b.Center()
		return (ax + bx) / 2, (ay + by) / 2
	case okA:
		return a.Center()
	case okB:
		return b.Center()
	}
	return e.Center()
}

// Apply purges stale overlays and applies p to g as one transaction. It
// returns the number of overlays added. An overlay that cannot be added is
// reported in the joined error; the rest of the plan is still applied.
func Apply(g diagram.Graph, p Plan) (int, error) {
	g.BeginUpdate()
	defer g.EndUpdate()
	diagram.PurgeOverlays(g)
	var (
		n    int
		errs []error
	)
	for _, o := range p.Overlays {
		if err := g.Add(o.Cell()); err != nil {
			errs = append(errs, fmt.Errorf("annotate: overlay %s: %w", o.ID, err))
			continue
		}
		n++
	}
	diagram.Apply(g, p.Commands)
	return n, errors.Join(errs...)
}

// Annotate plans and applies resp on g.
func (a *Annotator) Annotate(g diagram.Graph, resp *Response) (Plan, error) {
	p := a.Plan(g, resp)
	n, err := Apply(g, p)
	if err != nil {
		return p, err
	}
	a.log.Debug("annotate: applied",
		"overlays", n,
		"recolored", len(p.Commands),
		"notices", len(p.Notices),
		"unmatched", p.Unmatched,
	)
	return p, nil
}

var signalText = map[string]string{
	"line":          "line %s: power flow did not converge",
	"bus":           "bus %s: voltage could not be solved",
	"ext_grid":      "external grid %s: check the slack connection",
	"3wtransformer": "three-winding transformer %s: power flow did not converge",
	"overload":      "element %s is overloaded",
}

var signalGeneric = map[string]string{
	"line":          "power flow did not converge on one or more lines",
	"bus":           "power flow did not converge on one or more buses",
	"ext_grid":      "no external grid is connected to the network",
	"3wtransformer": "power flow did not converge on a three-winding transformer",
	"overload":      "the network is overloaded; the power flow did not converge",
}

// signalNotices yields one notice per offending row, or one generic notice
// when the signal carries no rows.
func signalNotices(s Signal) []domain.Notice {
	format, known := signalText[s.Kind]
	if len(s.Rows) == 0 || !known {
		msg, ok := signalGeneric[s.Kind]
		if !ok {
			msg = fmt.Sprintf("solver reported %q", s.Kind)
		}
		return []domain.Notice{{Severity: domain.SeverityError, Message: msg}}
	}
	out := make([]domain.Notice, 0, len(s.Rows))
	for _, r := range s.Rows {
		out = append(out, domain.Notice{
			Severity: domain.SeverityError,
			CellID:   r.CellID(),
			Message:  fmt.Sprintf(format, r.Name),
		})
	}
	return out
}
