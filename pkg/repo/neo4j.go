package repo

import (
	"context"
	"fmt"
	"regexp"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
)

// Result is the subset of neo4j.ResultWithContext the repository reads.
type Result interface {
	Next(ctx context.Context) bool
	Record() *neo4j.Record
	Err() error
}

// Session is the subset of neo4j.SessionWithContext the repository uses.
type Session interface {
	Run(ctx context.Context, cypher string, params map[string]any) (Result, error)
	Close(ctx context.Context) error
}

// SessionFactory opens sessions.
type SessionFactory func(ctx context.Context) Session

// DriverSessions opens write sessions on driver.
func DriverSessions(driver neo4j.DriverWithContext) SessionFactory {
	return func(ctx context.Context) Session {
		return &driverSession{sess: driver.NewSession(ctx, neo4j.SessionConfig{AccessMode: neo4j.AccessModeWrite})}
	}
}

type driverSession struct {
	sess neo4j.SessionWithContext
}

func (d *driverSession) Run(ctx context.Context, cypher string, params map[string]any) (Result, error) {
	return d.sess.Run(ctx, cypher, params)
}

func (d *driverSession) Close(ctx context.Context) error { return d.sess.Close(ctx) }

var identifier = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// Neo4jRepo stores T as nodes with one label.
type Neo4jRepo[T any, ID comparable] struct {
	open       SessionFactory
	label      string
	idKey      string
	toMap      func(T) map[string]any
	fromRecord func(*neo4j.Record) (T, error)
}

var _ Repository[any, string] = (*Neo4jRepo[any, string])(nil)

// Option configures a Neo4jRepo.
type Option[T any, ID comparable] func(*Neo4jRepo[T, ID])

// WithIDKey sets the id property (default "id").
func WithIDKey[T any, ID comparable](key string) Option[T, ID] {
	return func(r *Neo4jRepo[T, ID]) { r.idKey = key }
}

// NewNeo4jRepo creates a repository for nodes labelled label. fromRecord
// reads a record whose node is bound to "n".
func NewNeo4jRepo[T any, ID comparable](
	open SessionFactory,
	label string,
	toMap func(T) map[string]any,
	fromRecord func(*neo4j.Record) (T, error),
	opts ...Option[T, ID],
) (*Neo4jRepo[T, ID], error) {
	r := &Neo4jRepo[T, ID]{open: open, label: label, idKey: "id", toMap: toMap, fromRecord: fromRecord}
	for _, o := range opts {
		o(r)
	}
	if !identifier.MatchString(r.label) || !identifier.MatchString(r.idKey) {
		return nil, fmt.Errorf("repo: invalid label %q or id key %q", r.label, r.idKey)
	}
	return r, nil
}

// Exec runs a statement and drains its result.
func Exec(ctx context.Context, open SessionFactory, cypher string, params map[string]any) error {
	sess := open(ctx)
	defer sess.Close(ctx)
	res, err := sess.Run(ctx, cypher, params)
	if err != nil {
		return err
	}
	for res.Next(ctx) {
	}
	return res.Err()
}

func (r *Neo4jRepo[T, ID]) one(ctx context.Context, cypher string, params map[string]any) (T, error) {
	var zero T
	sess := r.open(ctx)
	defer sess.Close(ctx)
	res, err := sess.Run(ctx, cypher, params)
	if err != nil {
		return zero, fmt.Errorf("repo: %s: %w", r.label, err)
	}
	if !res.Next(ctx) {
		if err := res.Err(); err != nil {
			return zero, fmt.Errorf("repo: %s: %w", r.label, err)
		}
		return zero, fmt.Errorf("repo: %s: %w", r.label, ErrNotFound)
	}
	return r.fromRecord(res.Record())
}

// Get returns the node with the given id.
func (r *Neo4jRepo[T, ID]) Get(ctx context.Context, id ID) (T, error) {
	cypher := fmt.Sprintf("MATCH (n:%s {%s: $id}) RETURN n", r.label, r.idKey)
	return r.one(ctx, cypher, map[string]any{"id": id})
}

// List returns a page of nodes.
func (r *Neo4jRepo[T, ID]) List(ctx context.Context, opts ListOpts) ([]T, error) {
	limit := opts.Limit
	if limit <= 0 {
		limit = 100
	}
	order := ""
	if opts.OrderBy != "" {
		if !identifier.MatchString(opts.OrderBy) {
			return nil, fmt.Errorf("repo: invalid order key %q", opts.OrderBy)
		}
		order = " ORDER BY n." + opts.OrderBy + " DESC"
	}
	cypher := fmt.Sprintf("MATCH (n:%s) RETURN n%s SKIP $offset LIMIT $limit", r.label, order)

	sess := r.open(ctx)
	defer sess.Close(ctx)
	res, err := sess.Run(ctx, cypher, map[string]any{"offset": opts.Offset, "limit": limit})
	if err != nil {
		return nil, fmt.Errorf("repo: %s: %w", r.label, err)
	}
	var items []T
	for res.Next(ctx) {
		item, err := r.fromRecord(res.Record())
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, res.Err()
}

// Save creates or updates the node keyed by the entity's id property.
func (r *Neo4jRepo[T, ID]) Save(ctx context.Context, entity T) (T, error) {
	props := r.toMap(entity)
	cypher := fmt.Sprintf("MERGE (n:%s {%s: $id}) SET n += $props RETURN n", r.label, r.idKey)
	return r.one(ctx, cypher, map[string]any{"id": props[r.idKey], "props": props})
}

// Delete removes the node and its relationships.
func (r *Neo4jRepo[T, ID]) Delete(ctx context.Context, id ID) error {
	cypher := fmt.Sprintf("MATCH (n:%s {%s: $id}) DETACH DELETE n", r.label, r.idKey)
	return Exec(ctx, r.open, cypher, map[string]any{"id": id})
}
