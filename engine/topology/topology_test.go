package topology

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/WessleyAI/gridlink/engine/netmodel"
	"github.com/WessleyAI/gridlink/pkg/repo/repotest"
)

func feeder() *netmodel.Model {
	return &netmodel.Model{
		Params: netmodel.Parameters{Marker: netmodel.MarkerLoadFlow, User: "ops@example.com"},
		Records: []netmodel.Record{
			{Kind: netmodel.KindBus, Type: "Bus0", Name: "mxCell_2", ID: "2", Attrs: []netmodel.Attr{{Name: "vn_kv", Value: "20"}}},
			{Kind: netmodel.KindBus, Type: "Bus1", Name: "mxCell_3", ID: "3", Attrs: []netmodel.Attr{{Name: "vn_kv", Value: "20"}}},
			{Kind: netmodel.KindLoad, Type: "Load0", Name: "mxCell_5", ID: "5",
				Buses: []netmodel.BusRef{{Role: netmodel.RoleBus, Bus: "mxCell_3"}}},
			{Kind: netmodel.KindLine, Type: "Line0", Name: "mxCell_4", ID: "4",
				Buses: []netmodel.BusRef{{Role: netmodel.RoleBusFrom, Bus: "mxCell_2"}, {Role: netmodel.RoleBusTo, Bus: "mxCell_3"}}},
		},
	}
}

func TestRows(t *testing.T) {
	buses, elements, links := Rows(feeder())
	require.Len(t, buses, 2)
	require.Len(t, elements, 2)
	require.Len(t, links, 3)
	assert.Equal(t, "20", buses[0]["attr_vn_kv"])
	assert.Equal(t, "Load", elements[0]["kind"])
	assert.Equal(t, map[string]any{"element": "mxCell_4", "bus": "mxCell_2", "role": "busFrom"}, links[1])
}

func newStore(t *testing.T, f *repotest.Fake) *Store {
	t.Helper()
	s, err := New(f.Sessions(), slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)
	s.now = func() time.Time { return time.Date(2026, 10, 1, 12, 0, 0, 0, time.UTC) }
	return s
}

func echo(cypher string, p map[string]any) ([]*neo4j.Record, error) {
	if props, ok := p["props"].(map[string]any); ok {
		return []*neo4j.Record{repotest.Node("n", props)}, nil
	}
	return nil, nil
}

func TestSaveWritesSnapshotThenMembers(t *testing.T) {
	f := &repotest.Fake{Reply: echo}
	snap, err := newStore(t, f).Save(context.Background(), "run-1", "loadflow", feeder())
	require.NoError(t, err)

	assert.NotEmpty(t, snap.ID)
	assert.Equal(t, "ops@example.com", snap.User)
	assert.Equal(t, 2, snap.Buses)
	assert.Equal(t, 2, snap.Elements)

	stmts := f.Statements()
	require.Len(t, stmts, 4)
	assert.True(t, strings.HasPrefix(stmts[0], "MERGE (n:Snapshot"))
	assert.Contains(t, stmts[1], "MERGE (n:Bus")
	assert.Contains(t, stmts[2], "MERGE (n:Element")
	assert.Contains(t, stmts[3], "CONNECTS")
	for _, c := range f.Calls[1:] {
		assert.Equal(t, snap.ID, c.Params["sid"])
	}
	assert.Equal(t, 4, f.Closed)
}

func TestSaveSkipsEmptyGroups(t *testing.T) {
	f := &repotest.Fake{Reply: echo}
	m := &netmodel.Model{Params: netmodel.Parameters{Marker: netmodel.MarkerLoadFlow}}
	_, err := newStore(t, f).Save(context.Background(), "run-2", "loadflow", m)
	require.NoError(t, err)
	assert.Len(t, f.Statements(), 1)
}

func TestSaveReportsMemberFailure(t *testing.T) {
	boom := errors.New("constraint violated")
	f := &repotest.Fake{Reply: func(cypher string, p map[string]any) ([]*neo4j.Record, error) {
		if strings.Contains(cypher, ":Element") {
			return nil, boom
		}
		return echo(cypher, p)
	}}
	snap, err := newStore(t, f).Save(context.Background(), "run-3", "loadflow", feeder())
	assert.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "elements")
	assert.Empty(t, snap.ID)

	stmts := f.Statements()
	require.Len(t, stmts, 5)
	assert.Equal(t, deleteMembers, stmts[3])
	assert.Contains(t, stmts[4], "MATCH (n:Snapshot {id: $id}) DETACH DELETE n")
	created := f.Calls[0].Params
	assert.Equal(t, created["id"], f.Calls[4].Params["id"], "the snapshot that was created is the one removed")
}

func TestGetReadsProperties(t *testing.T) {
	at := time.Date(2026, 10, 1, 12, 0, 0, 0, time.UTC)
	f := &repotest.Fake{Reply: func(string, map[string]any) ([]*neo4j.Record, error) {
		return []*neo4j.Record{repotest.Node("n", map[string]any{
			"id": "s1", "run_id": "run-1", "calc": "loadflow", "created_at": at, "buses": int64(4),
		})}, nil
	}}
	snap, err := newStore(t, f).Get(context.Background(), "s1")
	require.NoError(t, err)
	assert.Equal(t, Snapshot{ID: "s1", RunID: "run-1", Calc: "loadflow", CreatedAt: at, Buses: 4}, snap)
}

func TestDeleteRemovesMembersFirst(t *testing.T) {
	f := &repotest.Fake{}
	require.NoError(t, newStore(t, f).Delete(context.Background(), "s1"))
	stmts := f.Statements()
	require.Len(t, stmts, 2)
	assert.Equal(t, deleteMembers, stmts[0])
	assert.Contains(t, stmts[1], "MATCH (n:Snapshot {id: $id}) DETACH DELETE n")
}
