// Package extract walks a diagram and builds the typed network model handed
// to the solver.
package extract

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/WessleyAI/gridlink/engine/diagram"
	"github.com/WessleyAI/gridlink/engine/domain"
	"github.com/WessleyAI/gridlink/engine/netmodel"
)

// Options controls one extraction pass.
type Options struct {
	// PurgeOverlays removes result overlays left by an earlier run before
	// the diagram is scanned.
	PurgeOverlays bool
}

// Result is the outcome of a pass. Commands are not applied by the pass;
// see diagram.Apply.
type Result struct {
	Model    *netmodel.Model
	Commands []diagram.Command
	Notices  []domain.Notice
	// Failures holds every per-element error; each is also a Notice.
	Failures []error
	Purged   int
	Skipped  int
}

// Extractor runs extraction passes. It is not safe for concurrent use.
type Extractor struct {
	registry *Registry
	cache    *Cache
	log      *slog.Logger
}

// Option configures an Extractor.
type Option func(*Extractor)

// WithLogger sets the diagnostic logger.
func WithLogger(l *slog.Logger) Option {
	return func(x *Extractor) { x.log = l }
}

// WithRegistry replaces the default component registry.
func WithRegistry(r *Registry) Option {
	return func(x *Extractor) { x.registry = r }
}

// New creates an Extractor.
func New(opts ...Option) *Extractor {
	x := &Extractor{registry: DefaultRegistry(), cache: NewCache(nil), log: slog.Default()}
	for _, o := range opts {
		o(x)
	}
	return x
}

// Cache exposes the pass cache; it is empty outside Run.
func (x *Extractor) Cache() *Cache { return x.cache }

// Run extracts g into a network model behind params. Per-element failures
// are collected in the Result; only a pass-level failure returns an error.
func (x *Extractor) Run(g diagram.Graph, params netmodel.Parameters, opts Options) (*Result, error) {
	if params.Marker == "" {
		return nil, fmt.Errorf("extract: %w", domain.ErrMissingParameters)
	}
	x.cache.Bind(g)
	defer x.cache.Reset()

	res := &Result{}
	if opts.PurgeOverlays {
		res.Purged = diagram.PurgeOverlays(g)
	}

	counters := NewCounters()
	coll := netmodel.NewCollection()
	for _, cell := range g.Cells() {
		cat, ok := x.registry.Classify(cell)
		if !ok {
			res.Skipped++
			continue
		}
		rec, err := x.record(cell, cat)
		if err != nil {
			x.fail(res, cell, cat, err)
			continue
		}
		rec.Seq = counters.Next(cat.Kind)
		rec.Type = netmodel.TypeLabel(cat.Kind, rec.Seq)
		coll.Add(rec)
	}

	cmds, notices := AssignRoles(coll)
	res.Commands = append(res.Commands, cmds...)
	res.Notices = append(res.Notices, notices...)

	model, err := netmodel.Assemble(params, coll)
	if err != nil {
		return nil, fmt.Errorf("extract: %w", err)
	}
	res.Model = model
	hits, misses := x.cache.Stats()
	x.log.Debug("extract: pass complete",
		"records", len(model.Records),
		"failures", len(res.Failures),
		"purged", res.Purged,
		"cache_hits", hits,
		"cache_misses", misses,
	)
	return res, nil
}

func (x *Extractor) record(cell *diagram.Cell, cat *Category) (netmodel.Record, error) {
	attrs, err := x.cache.Attributes(cell, cat)
	if err != nil {
		return netmodel.Record{}, err
	}
	buses, err := ResolveBuses(x.cache, cell, cat)
	if err != nil {
		return netmodel.Record{}, err
	}
	return netmodel.Record{
		Kind:         cat.Kind,
		Name:         netmodel.CellName(cell.ID),
		ID:           cell.ID,
		FriendlyName: x.cache.FriendlyName(cell),
		Buses:        buses,
		Attrs:        attrs,
	}, nil
}

// fail records a recoverable element failure. The element is flagged on the
// canvas unless it is an impedance, which only notifies.
func (x *Extractor) fail(res *Result, cell *diagram.Cell, cat *Category, err error) {
	var ee *domain.ElementError
	if errors.As(err, &ee) && ee.Name == "" {
		ee.Name = x.cache.FriendlyName(cell)
	}
	res.Failures = append(res.Failures, err)
	n := domain.NoticeFromError(err)
	if cat.Rule == RuleImpedance {
		n.Message = fmt.Sprintf("impedance %s excluded from the model: %v", x.cache.FriendlyName(cell), err)
	}
	res.Notices = append(res.Notices, n)

	if cat.Rule != RuleImpedance {
		res.Commands = append(res.Commands, diagram.Flag(cell.ID, domain.ColorUnconnected))
	}
	x.log.Warn("extract: element skipped", "cell", cell.ID, "kind", cat.Kind.String(), "err", err)
}
