package calc

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/WessleyAI/gridlink/engine/diagram"
	"github.com/WessleyAI/gridlink/engine/domain"
	"github.com/WessleyAI/gridlink/engine/identity"
	"github.com/WessleyAI/gridlink/engine/netmodel"
	"github.com/WessleyAI/gridlink/engine/solver"
	"github.com/WessleyAI/gridlink/engine/topology"
)

const converged = `[
	{"externalgrids":[{"name":"mxCell_10","p_mw":0.412,"q_mvar":0.103}]},
	{"busbars":[{"name":"mxCell_11","vm_pu":1.0},{"name":"mxCell_12","vm_pu":0.93}]},
	{"lines":[{"name":"mxCell_14","p_from_mw":0.412,"loading_percent":45.2}]},
	{"loads":[{"name":"mxCell_15","p_mw":0.4,"q_mvar":0.1}]}
]`

func feeder(t *testing.T) *diagram.Model {
	t.Helper()
	f, err := os.Open("testdata/feeder.xml")
	require.NoError(t, err)
	defer f.Close()
	m, err := diagram.DecodeXML(f)
	require.NoError(t, err)
	return m
}

type recorder struct {
	mu           sync.Mutex
	extractions  int
	calcErrors   int
	calcOK       int
	notices      map[string]int
	overlays     int
	lastRecords  int
	lastFailures int
	lastPurged   int
}

func (r *recorder) RecordExtraction(_ string, records, failures, purged int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.extractions++
	r.lastRecords, r.lastFailures, r.lastPurged = records, failures, purged
}

func (r *recorder) RecordCalculation(_ string, err error, _ time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err != nil {
		r.calcErrors++
		return
	}
	r.calcOK++
}

func (r *recorder) RecordNotice(severity string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.notices == nil {
		r.notices = map[string]int{}
	}
	r.notices[severity]++
}

func (r *recorder) RecordOverlays(n int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.overlays += n
}

type outbox struct{ events []Event }

func (o *outbox) Publish(_ context.Context, e Event) error {
	o.events = append(o.events, e)
	return nil
}

type snapshots struct {
	err   error
	saved []*netmodel.Model
}

func (s *snapshots) Save(_ context.Context, runID, calc string, m *netmodel.Model) (topology.Snapshot, error) {
	if s.err != nil {
		return topology.Snapshot{}, s.err
	}
	s.saved = append(s.saved, m)
	return topology.Snapshot{ID: "snap-" + runID, RunID: runID, Calc: calc}, nil
}

type harness struct {
	svc      *Service
	metrics  *recorder
	events   *outbox
	snaps    *snapshots
	payloads [][]byte
}

func newHarness(t *testing.T, reply func([]byte) ([]byte, error)) *harness {
	t.Helper()
	h := &harness{metrics: &recorder{}, events: &outbox{}, snaps: &snapshots{}}
	svc, err := New(Deps{
		Solver: solver.ClientFunc(func(_ context.Context, payload []byte) ([]byte, error) {
			h.payloads = append(h.payloads, payload)
			return reply(payload)
		}),
		Identity:  identity.Static("ops@example.com"),
		Metrics:   h.metrics,
		Events:    h.events,
		Snapshots: h.snaps,
		Logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
	require.NoError(t, err)
	h.svc = svc
	return h
}

func answer(raw string) func([]byte) ([]byte, error) {
	return func([]byte) ([]byte, error) { return []byte(raw), nil }
}

func overlays(g diagram.Graph) int {
	n := 0
	for _, c := range g.Cells() {
		if diagram.IsOverlay(c) {
			n++
		}
	}
	return n
}

func TestNewRequiresSolver(t *testing.T) {
	_, err := New(Deps{})
	assert.ErrorIs(t, err, ErrNoSolver)
}

func TestLoadFlowRoundTrip(t *testing.T) {
	h := newHarness(t, answer(converged))
	g := feeder(t)

	rep, err := h.svc.LoadFlow(context.Background(), g, DefaultLoadFlow())
	require.NoError(t, err)

	assert.NotEmpty(t, rep.RunID)
	assert.Equal(t, KindLoadFlow, rep.Calc)
	assert.Equal(t, "ops@example.com", rep.User)
	assert.Equal(t, 5, rep.Records)
	assert.Zero(t, rep.Failures)
	assert.Equal(t, 5, rep.Overlays)
	assert.Equal(t, 3, rep.Recolored)
	assert.Empty(t, rep.Notices)
	assert.Equal(t, "snap-"+rep.RunID, rep.SnapshotID)

	require.Len(t, h.payloads, 1)
	var payload map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(h.payloads[0], &payload))
	assert.Len(t, payload, 6)
	var params map[string]string
	require.NoError(t, json.Unmarshal(payload["0"], &params))
	assert.Equal(t, netmodel.MarkerLoadFlow, params["typ"])
	assert.Equal(t, "ops@example.com", params["user_email"])
	assert.Equal(t, "nr", params["algorithm"])
	assert.Equal(t, "auto", params["max_iteration"])

	bus, _ := g.Cell("12")
	assert.Contains(t, bus.Style, "strokeColor="+domain.ColorWarning)
	line, _ := g.Cell("14")
	assert.Contains(t, line.Style, "strokeColor="+domain.ColorGood)
	assert.Equal(t, 5, overlays(g))
	_, ok := g.Cell("17")
	assert.True(t, ok, "placeholder kept")

	assert.Equal(t, 1, h.metrics.calcOK)
	assert.Equal(t, 5, h.metrics.overlays)
	assert.Equal(t, 5, h.metrics.lastRecords)
	require.Len(t, h.events.events, 1)
	ev := h.events.events[0]
	assert.Equal(t, rep.RunID, ev.RunID)
	assert.Equal(t, 5, ev.Overlays)
	assert.Empty(t, ev.Error)
	require.Len(t, h.snaps.saved, 1)
}

func TestRepeatedLoadFlowReplacesOverlays(t *testing.T) {
	h := newHarness(t, answer(converged))
	g := feeder(t)

	_, err := h.svc.LoadFlow(context.Background(), g, DefaultLoadFlow())
	require.NoError(t, err)
	rep, err := h.svc.LoadFlow(context.Background(), g, DefaultLoadFlow())
	require.NoError(t, err)

	assert.Equal(t, 5, rep.Purged)
	assert.Equal(t, 5, overlays(g))
	assert.JSONEq(t, string(h.payloads[0]), string(h.payloads[1]))
}

func TestStorageSizingLeavesOverlaysForAnnotation(t *testing.T) {
	h := newHarness(t, answer(converged))
	g := feeder(t)
	require.NoError(t, g.Add(&diagram.Cell{ID: "Result_99", Vertex: true, Style: "Result;text"}))

	rep, err := h.svc.StorageSizing(context.Background(), g, DefaultStorage())
	require.NoError(t, err)
	assert.Equal(t, KindStorageSizing, rep.Calc)
	assert.Zero(t, rep.Purged)

	var payload map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(h.payloads[0], &payload))
	var params map[string]string
	require.NoError(t, json.Unmarshal(payload["0"], &params))
	assert.Equal(t, netmodel.MarkerStorageSizing, params["typ"])
	assert.Equal(t, "peak_shaving", params["objective"])

	_, stale := g.Cell("Result_99")
	assert.False(t, stale, "stale overlay removed when results are rendered")
	assert.Equal(t, 5, overlays(g))
}

func TestSolverFailureKeepsExtractionReport(t *testing.T) {
	down := errors.New("connection refused")
	h := newHarness(t, func([]byte) ([]byte, error) { return nil, down })
	g := feeder(t)

	rep, err := h.svc.LoadFlow(context.Background(), g, DefaultLoadFlow())
	require.ErrorIs(t, err, down)
	require.NotNil(t, rep)
	assert.Equal(t, 5, rep.Records)
	assert.Zero(t, rep.Overlays)
	assert.Zero(t, overlays(g))

	assert.Equal(t, 1, h.metrics.calcErrors)
	require.Len(t, h.events.events, 1)
	assert.Contains(t, h.events.events[0].Error, "connection refused")
}

func TestMalformedResponse(t *testing.T) {
	h := newHarness(t, answer(`<html>gateway timeout</html>`))
	_, err := h.svc.LoadFlow(context.Background(), feeder(t), DefaultLoadFlow())
	assert.ErrorIs(t, err, domain.ErrMalformedResponse)
}

func TestInvalidParamsStopBeforeExtraction(t *testing.T) {
	h := newHarness(t, answer(converged))
	p := DefaultLoadFlow()
	p.Algorithm = "magic"

	_, err := h.svc.LoadFlow(context.Background(), feeder(t), p)
	assert.ErrorIs(t, err, domain.ErrInvalidParameters)
	assert.Empty(t, h.payloads)
	assert.Zero(t, h.metrics.extractions)

	s := DefaultStorage()
	s.MinSOC, s.MaxSOC = 80, 20
	_, err = h.svc.StorageSizing(context.Background(), feeder(t), s)
	assert.ErrorIs(t, err, domain.ErrInvalidParameters)
}

func TestExtractFlagsWithoutSolving(t *testing.T) {
	h := newHarness(t, answer(converged))
	g := feeder(t)
	require.NoError(t, g.Add(&diagram.Cell{
		ID: "30", Vertex: true, Style: "shapeELXXX=Load",
		Value: []diagram.Attribute{{Name: "name", Value: "Orphan"}, {Name: "p_mw", Value: "0.1"}, {Name: "q_mvar", Value: "0"}},
	}))

	rep, model, err := h.svc.Extract(context.Background(), g, DefaultLoadFlow())
	require.NoError(t, err)
	require.NotNil(t, model)
	assert.Equal(t, 5, len(model.Records))
	assert.Equal(t, 1, rep.Failures)
	assert.Equal(t, 1, rep.Flagged)
	require.Len(t, rep.Notices, 1)
	assert.Equal(t, "30", rep.Notices[0].CellID)
	assert.Empty(t, h.payloads)
	assert.Empty(t, h.snaps.saved)

	orphan, _ := g.Cell("30")
	assert.Contains(t, orphan.Style, "strokeColor="+domain.ColorUnconnected)
	assert.Equal(t, 1, h.metrics.notices[string(domain.SeverityError)])
}

func TestSnapshotFailureIsNotFatal(t *testing.T) {
	h := newHarness(t, answer(converged))
	h.snaps.err = errors.New("neo4j unavailable")

	rep, err := h.svc.LoadFlow(context.Background(), feeder(t), DefaultLoadFlow())
	require.NoError(t, err)
	assert.Empty(t, rep.SnapshotID)
	assert.Equal(t, 5, rep.Overlays)
}

func TestAnonymousRun(t *testing.T) {
	svc, err := New(Deps{
		Solver: solver.ClientFunc(func(context.Context, []byte) ([]byte, error) { return []byte(`{}`), nil }),
		Logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
	require.NoError(t, err)
	rep, err := svc.LoadFlow(context.Background(), feeder(t), DefaultLoadFlow())
	require.NoError(t, err)
	assert.Equal(t, domain.UnknownUser, rep.User)
	assert.Zero(t, rep.Overlays)
}

type natsConn struct{ msgs []*nats.Msg }

func (c *natsConn) PublishMsg(m *nats.Msg) error {
	c.msgs = append(c.msgs, m)
	return nil
}

func (c *natsConn) RequestMsgWithContext(context.Context, *nats.Msg) (*nats.Msg, error) {
	return nil, errors.New("not used")
}

func TestNATSPublisher(t *testing.T) {
	nc := &natsConn{}
	p := NewNATSPublisher(nc, "")
	require.NoError(t, p.Publish(context.Background(), Event{RunID: "r1", Calc: KindLoadFlow, Records: 5}))

	require.Len(t, nc.msgs, 1)
	assert.Equal(t, DefaultEventsSubject, nc.msgs[0].Subject)
	var ev Event
	require.NoError(t, json.Unmarshal(nc.msgs[0].Data, &ev))
	assert.Equal(t, "r1", ev.RunID)
	assert.Equal(t, 5, ev.Records)
}
