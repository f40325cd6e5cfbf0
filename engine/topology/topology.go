// Package topology persists extracted network models to Neo4j as snapshots:
// buses and elements become nodes, bus references become CONNECTS
// relationships.
package topology

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/WessleyAI/gridlink/engine/netmodel"
	"github.com/WessleyAI/gridlink/pkg/repo"
)

// Snapshot describes one persisted network model.
type Snapshot struct {
	ID        string    `json:"id"`
	RunID     string    `json:"run_id"`
	Calc      string    `json:"calc"`
	User      string    `json:"user"`
	CreatedAt time.Time `json:"created_at"`
	Buses     int       `json:"buses"`
	Elements  int       `json:"elements"`
}

// Store reads and writes snapshots.
type Store struct {
	open      repo.SessionFactory
	snapshots *repo.Neo4jRepo[Snapshot, string]
	now       func() time.Time
	log       *slog.Logger
}

// New creates a Store on open.
func New(open repo.SessionFactory, log *slog.Logger) (*Store, error) {
	snaps, err := repo.NewNeo4jRepo[Snapshot, string](open, "Snapshot", snapshotToMap, snapshotFromRecord)
	if err != nil {
		return nil, err
	}
	if log == nil {
		log = slog.Default()
	}
	return &Store{open: open, snapshots: snaps, now: time.Now, log: log}, nil
}

// NewDriverStore creates a Store on a Neo4j driver.
func NewDriverStore(driver neo4j.DriverWithContext, log *slog.Logger) (*Store, error) {
	return New(repo.DriverSessions(driver), log)
}

const (
	saveBuses = `MATCH (s:Snapshot {id: $sid})
UNWIND $rows AS row
MERGE (n:Bus {snapshot: $sid, name: row.name})
SET n += row
MERGE (s)-[:CONTAINS]->(n)`

	saveElements = `MATCH (s:Snapshot {id: $sid})
UNWIND $rows AS row
MERGE (n:Element {snapshot: $sid, name: row.name})
SET n += row
MERGE (s)-[:CONTAINS]->(n)`

	saveLinks = `UNWIND $rows AS row
MATCH (e:Element {snapshot: $sid, name: row.element})
MATCH (b:Bus {snapshot: $sid, name: row.bus})
MERGE (e)-[r:CONNECTS {role: row.role}]->(b)`

	deleteMembers = `MATCH (n {snapshot: $sid}) DETACH DELETE n`
)

// Save writes m as a new snapshot tagged with runID and calc.
func (s *Store) Save(ctx context.Context, runID, calc string, m *netmodel.Model) (Snapshot, error) {
	buses, elements, links := Rows(m)
	snap := Snapshot{
		ID:        uuid.NewString(),
		RunID:     runID,
		Calc:      calc,
		User:      m.Params.User,
		CreatedAt: s.now().UTC(),
		Buses:     len(buses),
		Elements:  len(elements),
	}
	if _, err := s.snapshots.Save(ctx, snap); err != nil {
		return Snapshot{}, fmt.Errorf("topology: save snapshot: %w", err)
	}
	for _, step := range []struct {
		name   string
		cypher string
		rows   []map[string]any
	}{
		{"buses", saveBuses, buses},
		{"elements", saveElements, elements},
		{"links", saveLinks, links},
	} {
		if len(step.rows) == 0 {
			continue
		}
		err := repo.Exec(ctx, s.open, step.cypher, map[string]any{"sid": snap.ID, "rows": step.rows})
		if err != nil {
			s.discard(ctx, snap.ID)
			return Snapshot{}, fmt.Errorf("topology: save %s: %w", step.name, err)
		}
	}
	s.log.Debug("topology: snapshot saved", "snapshot", snap.ID, "run", runID, "buses", snap.Buses, "elements", snap.Elements)
	return snap, nil
}

// discard removes a partly written snapshot. It runs even when ctx is
// already cancelled.
func (s *Store) discard(ctx context.Context, id string) {
	if err := s.Delete(context.WithoutCancel(ctx), id); err != nil {
		s.log.Warn("topology: partial snapshot left behind", "snapshot", id, "err", err)
	}
}

// Get returns a snapshot by id.
func (s *Store) Get(ctx context.Context, id string) (Snapshot, error) {
	return s.snapshots.Get(ctx, id)
}

// List returns snapshots, newest first.
func (s *Store) List(ctx context.Context, offset, limit int) ([]Snapshot, error) {
	return s.snapshots.List(ctx, repo.ListOpts{Offset: offset, Limit: limit, OrderBy: "created_at"})
}

// Delete removes a snapshot and its members.
func (s *Store) Delete(ctx context.Context, id string) error {
	if err := repo.Exec(ctx, s.open, deleteMembers, map[string]any{"sid": id}); err != nil {
		return fmt.Errorf("topology: delete %s: %w", id, err)
	}
	return s.snapshots.Delete(ctx, id)
}

// Rows flattens m into property rows for buses, elements and their bus
// links.
func Rows(m *netmodel.Model) (buses, elements, links []map[string]any) {
	for _, r := range m.Records {
		row := map[string]any{
			"name":          r.Name,
			"cell_id":       r.ID,
			"type":          r.Type,
			"kind":          r.Kind.String(),
			"friendly_name": r.FriendlyName,
		}
		for _, a := range r.Attrs {
			row["attr_"+a.Name] = a.Value
		}
		if r.Kind == netmodel.KindBus || r.Kind == netmodel.KindDCBus {
			buses = append(buses, row)
			continue
		}
		elements = append(elements, row)
		for _, b := range r.Buses {
			links = append(links, map[string]any{"element": r.Name, "bus": b.Bus, "role": b.Role})
		}
	}
	return buses, elements, links
}

func snapshotToMap(s Snapshot) map[string]any {
	return map[string]any{
		"id":         s.ID,
		"run_id":     s.RunID,
		"calc":       s.Calc,
		"user":       s.User,
		"created_at": s.CreatedAt,
		"buses":      int64(s.Buses),
		"elements":   int64(s.Elements),
	}
}

func snapshotFromRecord(rec *neo4j.Record) (Snapshot, error) {
	node, _, err := neo4j.GetRecordValue[neo4j.Node](rec, "n")
	if err != nil {
		return Snapshot{}, err
	}
	p := node.Props
	s := Snapshot{
		ID:    str(p, "id"),
		RunID: str(p, "run_id"),
		Calc:  str(p, "calc"),
		User:  str(p, "user"),
	}
	if t, ok := p["created_at"].(time.Time); ok {
		s.CreatedAt = t
	}
	if n, ok := p["buses"].(int64); ok {
		s.Buses = int(n)
	}
	if n, ok := p["elements"].(int64); ok {
		s.Elements = int(n)
	}
	return s, nil
}

func str(props map[string]any, key string) string {
	s, _ := props[key].(string)
	return s
}
