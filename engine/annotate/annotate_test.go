package annotate

import (
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/WessleyAI/gridlink/engine/diagram"
	"github.com/WessleyAI/gridlink/engine/domain"
)

func TestVoltageBands(t *testing.T) {
	for _, tc := range []struct {
		vm   float64
		want string
	}{
		{0.85, domain.ColorDanger},
		{0.899, domain.ColorWarning}, // rounds to 0.90
		{0.90, domain.ColorWarning},
		{0.94, domain.ColorWarning},
		{0.95, domain.ColorGood},
		{1.00, domain.ColorGood},
		{1.05, domain.ColorGood},
		{1.06, domain.ColorWarning},
		{1.09, domain.ColorWarning},
		{1.10, domain.ColorDanger},
		{1.2, domain.ColorDanger},
	} {
		assert.Equal(t, tc.want, VoltageColor(tc.vm), "vm=%v", tc.vm)
	}
}

func TestLoadingBands(t *testing.T) {
	for _, tc := range []struct {
		pct  float64
		want string
	}{
		{0, ""},
		{-3, ""},
		{0.04, ""}, // rounds to 0.0
		{12.5, domain.ColorGood},
		{80, domain.ColorGood},
		{80.04, domain.ColorGood},
		{80.1, domain.ColorWarning},
		{100, domain.ColorWarning},
		{100.1, domain.ColorDanger},
	} {
		assert.Equal(t, tc.want, LoadingColor(tc.pct), "loading=%v", tc.pct)
	}
}

func TestColumnFormatting(t *testing.T) {
	v := 1.23456789
	r := Row{Values: map[string]*float64{"vm_pu": &v, "pl_mw": &v, "loading_percent": &v, "q_mvar": nil}}
	assert.Equal(t, "Vm[pu]: 1.235", col("vm_pu").Line(r))
	assert.Equal(t, "Pl[MW]: 1.234568", col("pl_mw").Line(r))
	assert.Equal(t, "Loading[%]: 1.2", col("loading_percent").Line(r))
	assert.Equal(t, "Q[MVar]: n/a", col("q_mvar").Line(r))
}

func TestDecodeBareObject(t *testing.T) {
	resp, err := Decode([]byte(`{"busbars":[{"name":"mxCell_2","vm_pu":1.01,"va_degree":null}]}`))
	require.NoError(t, err)
	require.Len(t, resp.Collections["busbars"], 1)
	row := resp.Collections["busbars"][0]
	assert.Equal(t, "2", row.CellID())
	v, ok := row.Value("va_degree")
	assert.True(t, ok)
	assert.Nil(t, v)
	assert.Empty(t, resp.Signals)
}

func TestDecodeMixedArray(t *testing.T) {
	resp, err := Decode([]byte(`[
		{"error":"bus","rows":[{"name":"mxCell_3"}]},
		{"busbars":[{"name":"mxCell_2","vm_pu":0.97}]},
		{"lines":[{"name":"mxCell_4","loading_percent":55.0}]}
	]`))
	require.NoError(t, err)
	require.Len(t, resp.Signals, 1)
	assert.Equal(t, "bus", resp.Signals[0].Kind)
	assert.Equal(t, []string{"busbars", "lines"}, resp.Keys())
}

func TestDecodeRejectsGarbage(t *testing.T) {
	for _, raw := range []string{"", "nope", `{"busbars": 3}`, `[1, 2]`} {
		_, err := Decode([]byte(raw))
		assert.ErrorIs(t, err, domain.ErrMalformedResponse, "input %q", raw)
	}
}

func grid(t *testing.T) *diagram.Model {
	t.Helper()
	m, err := diagram.NewModel(
		&diagram.Cell{ID: "2", Vertex: true, Style: "shapeELXXX=Bus", Geometry: diagram.Geometry{X: 100, Y: 100, Width: 200, Height: 10}},
		&diagram.Cell{ID: "3", Vertex: true, Style: "shapeELXXX=Bus", Geometry: diagram.Geometry{X: 100, Y: 300, Width: 200, Height: 10}},
		&diagram.Cell{ID: "4", Edge: true, Style: "shapeELXXX=Line", Source: "2", Target: "3"},
		&diagram.Cell{ID: "5", Vertex: true, Style: "ResultPlaceholder;text", Label: "keep"},
	)
	require.NoError(t, err)
	return m
}

func quiet() *Annotator {
	return New(WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))
}

const converged = `[
	{"busbars":[{"name":"mxCell_2","vm_pu":1.0},{"name":"mxCell_3","vm_pu":0.95}]},
	{"lines":[{"name":"mxCell_4","p_from_mw":0.4,"loading_percent":80.1}]}
]`

func TestAnnotateColorsAndOverlays(t *testing.T) {
	m := grid(t)
	resp, err := Decode([]byte(converged))
	require.NoError(t, err)

	p, err := quiet().Annotate(m, resp)
	require.NoError(t, err)
	assert.Len(t, p.Overlays, 3)
	assert.Equal(t, 1, m.UndoSteps())

	bus, _ := m.Cell("3")
	assert.Contains(t, bus.Style, "strokeColor="+domain.ColorGood)
	line, _ := m.Cell("4")
	assert.Contains(t, line.Style, "strokeColor="+domain.ColorWarning)

	o, ok := m.Cell(OverlayID("4"))
	require.True(t, ok)
	assert.True(t, diagram.IsOverlay(o))
	assert.Equal(t, "P_from[MW]: 0.400<br>Loading[%]: 80.1", o.Label)
	assert.Equal(t, 210.0, o.Geometry.X)
	assert.Equal(t, 205.0, o.Geometry.Y)
	assert.True(t, o.Edge, "line results are a label edge")
	assert.False(t, o.Vertex)
	assert.Equal(t, "2", o.Source)
	assert.Equal(t, "3", o.Target)

	b, ok := m.Cell(OverlayID("3"))
	require.True(t, ok)
	assert.True(t, b.Vertex)
	assert.Empty(t, b.Source)
}

func TestRepeatedCollectionRendersOncePerElement(t *testing.T) {
	m := grid(t)
	resp, err := Decode([]byte(`[
		{"busbars":[{"name":"mxCell_2","vm_pu":0.80}]},
		{"lines":[{"name":"mxCell_4","loading_percent":20.0}]},
		{"busbars":[{"name":"mxCell_2","vm_pu":1.0},{"name":"mxCell_3","vm_pu":0.92}]}
	]`))
	require.NoError(t, err)

	p, err := quiet().Annotate(m, resp)
	require.NoError(t, err)
	require.Len(t, p.Overlays, 3)

	o, ok := m.Cell(OverlayID("2"))
	require.True(t, ok)
	assert.Equal(t, "Vm[pu]: 1.000", strings.SplitN(o.Label, "<br>", 2)[0])
	bus2, _ := m.Cell("2")
	assert.Contains(t, bus2.Style, "strokeColor="+domain.ColorGood)

	_, ok = m.Cell(OverlayID("3"))
	assert.True(t, ok)
	bus3, _ := m.Cell("3")
	assert.Contains(t, bus3.Style, "strokeColor="+domain.ColorWarning)
	line, _ := m.Cell("4")
	assert.Contains(t, line.Style, "strokeColor="+domain.ColorGood)
}

func TestApplyContinuesPastRejectedOverlay(t *testing.T) {
	m := grid(t)
	p := Plan{
		Overlays: []Overlay{
			{ID: "2", SourceID: "2", Lines: []string{"clash"}},
			{ID: OverlayID("3"), SourceID: "3", Lines: []string{"ok"}},
		},
		Commands: []diagram.Command{diagram.Recolor("3", domain.ColorDanger)},
	}
	n, err := Apply(m, p)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "overlay 2")
	assert.Equal(t, 1, n)
	_, ok := m.Cell(OverlayID("3"))
	assert.True(t, ok)
	bus, _ := m.Cell("3")
	assert.Contains(t, bus.Style, "strokeColor="+domain.ColorDanger)
}

func TestAnnotateTwiceKeepsOneOverlayEach(t *testing.T) {
	m := grid(t)
	resp, err := Decode([]byte(converged))
	require.NoError(t, err)
	a := quiet()
	for i := 0; i < 2; i++ {
		_, err := a.Annotate(m, resp)
		require.NoError(t, err)
	}
	overlays := 0
	for _, c := range m.Cells() {
		if diagram.IsOverlay(c) {
			overlays++
		}
	}
	assert.Equal(t, 3, overlays)
	_, ok := m.Cell("5")
	assert.True(t, ok, "placeholder survives purge")
}

func TestBusSignalStillRendersBusbars(t *testing.T) {
	m := grid(t)
	resp, err := Decode([]byte(`[
		{"error":"bus","rows":[{"name":"mxCell_3"}]},
		{"busbars":[{"name":"mxCell_2","vm_pu":1.12},{"name":"mxCell_3","vm_pu":null}]}
	]`))
	require.NoError(t, err)

	p, err := quiet().Annotate(m, resp)
	require.NoError(t, err)
	require.Len(t, p.Notices, 1)
	assert.Equal(t, "3", p.Notices[0].CellID)
	assert.Equal(t, domain.SeverityError, p.Notices[0].Severity)

	require.Len(t, p.Overlays, 2)
	o, ok := m.Cell(OverlayID("3"))
	require.True(t, ok)
	assert.Equal(t, "Vm[pu]: n/a", o.Label)
	bus, _ := m.Cell("2")
	assert.Contains(t, bus.Style, "strokeColor="+domain.ColorDanger)
}

func TestGenericSignalNotice(t *testing.T) {
	resp, err := Decode([]byte(`[{"error":"overload"},{"error":"mystery"}]`))
	require.NoError(t, err)
	p := quiet().Plan(grid(t), resp)
	require.Len(t, p.Notices, 2)
	assert.True(t, strings.Contains(p.Notices[0].Message, "overloaded"))
	assert.Contains(t, p.Notices[1].Message, "mystery")
}

func TestUnmatchedRowsAreCounted(t *testing.T) {
	resp, err := Decode([]byte(`{"loads":[{"name":"mxCell_99","p_mw":1}]}`))
	require.NoError(t, err)
	p := quiet().Plan(grid(t), resp)
	assert.Equal(t, 1, p.Unmatched)
	assert.Empty(t, p.Overlays)
}
