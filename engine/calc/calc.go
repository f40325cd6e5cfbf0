// Package calc runs the load-flow and storage-sizing workflows: extract the
// network model from a diagram, hand it to the solver and render the
// results back onto the diagram.
package calc

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/WessleyAI/gridlink/engine/annotate"
	"github.com/WessleyAI/gridlink/engine/diagram"
	"github.com/WessleyAI/gridlink/engine/domain"
	"github.com/WessleyAI/gridlink/engine/extract"
	"github.com/WessleyAI/gridlink/engine/identity"
	"github.com/WessleyAI/gridlink/engine/netmodel"
	"github.com/WessleyAI/gridlink/engine/solver"
	"github.com/WessleyAI/gridlink/engine/topology"
	"github.com/WessleyAI/gridlink/pkg/fn"
)

// ErrNoSolver is returned by New when no solver client is configured.
var ErrNoSolver = errors.New("calc: solver client required")

// Metrics receives calculation measurements. *metrics.Registry satisfies it.
type Metrics interface {
	RecordExtraction(calc string, records, failures, purged int)
	RecordCalculation(calc string, err error, d time.Duration)
	RecordNotice(severity string)
	RecordOverlays(n int)
}

// Snapshots persists extracted models.
type Snapshots interface {
	Save(ctx context.Context, runID, calc string, m *netmodel.Model) (topology.Snapshot, error)
}

// Deps holds the collaborators of a Service. Only Solver is required.
type Deps struct {
	Solver    solver.Client
	Registry  *extract.Registry
	Annotator *annotate.Annotator
	Identity  identity.Resolver
	Metrics   Metrics
	Events    Publisher
	Snapshots Snapshots
	Logger    *slog.Logger
}

// Service runs calculations. It is safe for concurrent use; each run gets
// its own extractor.
type Service struct {
	deps Deps
	log  *slog.Logger
	now  func() time.Time
}

// New creates a Service.
func New(d Deps) (*Service, error) {
	if d.Solver == nil {
		return nil, ErrNoSolver
	}
	if d.Registry == nil {
		d.Registry = extract.DefaultRegistry()
	}
	if d.Logger == nil {
		d.Logger = slog.Default()
	}
	if d.Annotator == nil {
		d.Annotator = annotate.New(annotate.WithLogger(d.Logger))
	}
	return &Service{deps: d, log: d.Logger, now: time.Now}, nil
}

// Report summarizes one calculation.
type Report struct {
	RunID      string          `json:"run_id"`
	Calc       Kind            `json:"calc"`
	User       string          `json:"user"`
	Records    int             `json:"records"`
	Failures   int             `json:"failures"`
	Purged     int             `json:"purged"`
	Flagged    int             `json:"flagged"`
	Overlays   int             `json:"overlays"`
	Recolored  int             `json:"recolored"`
	Unmatched  int             `json:"unmatched"`
	SnapshotID string          `json:"snapshot_id,omitempty"`
	Notices    []domain.Notice `json:"notices"`
	Duration   time.Duration   `json:"duration"`
}

// job carries one calculation through the pipeline stages.
type job struct {
	graph   diagram.Graph
	params  Params
	report  *Report
	model   *netmodel.Model
	payload []byte
	resp    *annotate.Response
}

// LoadFlow runs a load-flow calculation on g.
func (s *Service) LoadFlow(ctx context.Context, g diagram.Graph, p LoadFlowParams) (*Report, error) {
	return s.Run(ctx, g, p)
}

// StorageSizing runs a storage-sizing calculation on g.
func (s *Service) StorageSizing(ctx context.Context, g diagram.Graph, p StorageParams) (*Report, error) {
	return s.Run(ctx, g, p)
}

// Run extracts g, solves it and annotates g with the results. The report is
// returned even when the run fails part way, carrying what was learned up
// to the failure.
func (s *Service) Run(ctx context.Context, g diagram.Graph, p Params) (*Report, error) {
	pipeline := fn.Then(
		fn.Then(
			fn.Then(
				fn.Traced("calc.extract", s.extractStage()),
				fn.Traced("calc.snapshot", fn.Tap(s.snapshot)),
			),
			fn.Traced("calc.solve", s.solveStage()),
		),
		fn.Traced("calc.annotate", s.annotateStage()),
	)
	return s.execute(ctx, g, p, pipeline)
}

// Extract builds the network model without calling the solver. Failure
// flags are still applied to g.
func (s *Service) Extract(ctx context.Context, g diagram.Graph, p Params) (*Report, *netmodel.Model, error) {
	var model *netmodel.Model
	stage := fn.Then(
		fn.Traced("calc.extract", s.extractStage()),
		fn.Tap(func(_ context.Context, j *job) { model = j.model }),
	)
	rep, err := s.execute(ctx, g, p, stage)
	return rep, model, err
}

func (s *Service) execute(ctx context.Context, g diagram.Graph, p Params, stage fn.Stage[*job, *job]) (*Report, error) {
	start := s.now()
	rep := &Report{
		RunID: uuid.NewString(),
		Calc:  p.Kind(),
		User:  identity.Resolve(ctx, s.deps.Identity),
	}
	var err error
	if verr := p.Validate(); verr != nil {
		err = fmt.Errorf("calc: %w", verr)
	} else {
		_, err = stage(ctx, &job{graph: g, params: p, report: rep}).Unwrap()
	}
	rep.Duration = s.now().Sub(start)
	s.finish(ctx, rep, err)
	return rep, err
}

func (s *Service) finish(ctx context.Context, rep *Report, err error) {
	if m := s.deps.Metrics; m != nil {
		m.RecordCalculation(string(rep.Calc), err, rep.Duration)
		for _, n := range rep.Notices {
			m.RecordNotice(string(n.Severity))
		}
	}
	log := s.log.With("run", rep.RunID, "calc", rep.Calc, "user", rep.User)
	if err != nil {
		log.Error("calc: run failed", "error", err, "duration", rep.Duration)
	} else {
		log.Info("calc: run complete",
			"records", rep.Records,
			"failures", rep.Failures,
			"overlays", rep.Overlays,
			"notices", len(rep.Notices),
			"duration", rep.Duration,
		)
	}
	if s.deps.Events == nil {
		return
	}
	ev := Event{
		RunID:      rep.RunID,
		Calc:       rep.Calc,
		User:       rep.User,
		Records:    rep.Records,
		Failures:   rep.Failures,
		Overlays:   rep.Overlays,
		Notices:    len(rep.Notices),
		SnapshotID: rep.SnapshotID,
		DurationMS: rep.Duration.Milliseconds(),
		At:         s.now().UTC(),
	}
	if err != nil {
		ev.Error = err.Error()
	}
	if perr := s.deps.Events.Publish(ctx, ev); perr != nil {
		log.Warn("calc: publish event", "error", perr)
	}
}

func (s *Service) extractStage() fn.Stage[*job, *job] {
	return fn.Lift(func(_ context.Context, j *job) (*job, error) {
		x := extract.New(extract.WithRegistry(s.deps.Registry), extract.WithLogger(s.log))
		params := netmodel.Parameters{
			Marker:   j.params.Marker(),
			User:     j.report.User,
			Settings: j.params.Settings(),
		}
		res, err := x.Run(j.graph, params, extract.Options{PurgeOverlays: j.params.PurgeOverlays()})
		if err != nil {
			return nil, err
		}
		rep := j.report
		rep.Records = len(res.Model.Records)
		rep.Failures = len(res.Failures)
		rep.Purged = res.Purged
		rep.Flagged = diagram.Apply(j.graph, res.Commands)
		rep.Notices = append(rep.Notices, res.Notices...)
		if m := s.deps.Metrics; m != nil {
			m.RecordExtraction(string(rep.Calc), rep.Records, rep.Failures, rep.Purged)
		}
		payload, err := json.Marshal(res.Model)
		if err != nil {
			return nil, fmt.Errorf("calc: encode model: %w", err)
		}
		j.model = res.Model
		j.payload = payload
		return j, nil
	})
}

// snapshot persists the model. Storage failures do not fail the run.
func (s *Service) snapshot(ctx context.Context, j *job) {
	if s.deps.Snapshots == nil {
		return
	}
	snap, err := s.deps.Snapshots.Save(ctx, j.report.RunID, string(j.report.Calc), j.model)
	if err != nil {
		s.log.Warn("calc: snapshot", "run", j.report.RunID, "error", err)
		return
	}
	j.report.SnapshotID = snap.ID
}

func (s *Service) solveStage() fn.Stage[*job, *job] {
	return fn.Lift(func(ctx context.Context, j *job) (*job, error) {
		raw, err := s.deps.Solver.Solve(ctx, j.payload)
		if err != nil {
			return nil, fmt.Errorf("calc: solve: %w", err)
		}
		resp, err := annotate.Decode(raw)
		if err != nil {
			return nil, fmt.Errorf("calc: %w", err)
		}
		j.resp = resp
		return j, nil
	})
}

func (s *Service) annotateStage() fn.Stage[*job, *job] {
	return fn.Lift(func(_ context.Context, j *job) (*job, error) {
		plan, err := s.deps.Annotator.Annotate(j.graph, j.resp)
		rep := j.report
		rep.Notices = append(rep.Notices, plan.Notices...)
		rep.Unmatched = plan.Unmatched
		if err != nil {
			return nil, fmt.Errorf("calc: %w", err)
		}
		rep.Overlays = len(plan.Overlays)
		rep.Recolored = len(plan.Commands)
		if m := s.deps.Metrics; m != nil {
			m.RecordOverlays(rep.Overlays)
		}
		return j, nil
	})
}
