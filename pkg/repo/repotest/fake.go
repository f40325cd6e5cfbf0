// Package repotest provides an in-memory stand-in for Neo4j sessions.
package repotest

import (
	"context"
	"sync"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/WessleyAI/gridlink/pkg/repo"
)

// Call is one recorded statement.
type Call struct {
	Cypher string
	Params map[string]any
}

// Fake records statements and answers them with canned records.
type Fake struct {
	mu    sync.Mutex
	Calls []Call
	// Reply, if set, produces the records returned for a statement.
	Reply func(cypher string, params map[string]any) ([]*neo4j.Record, error)
	// Closed counts closed sessions.
	Closed int
}

// Sessions returns a factory bound to f.
func (f *Fake) Sessions() repo.SessionFactory {
	return func(context.Context) repo.Session { return (*session)(f) }
}

// Statements returns the recorded cypher texts.
func (f *Fake) Statements() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.Calls))
	for i, c := range f.Calls {
		out[i] = c.Cypher
	}
	return out
}

type session Fake

func (s *session) Run(_ context.Context, cypher string, params map[string]any) (repo.Result, error) {
	f := (*Fake)(s)
	f.mu.Lock()
	f.Calls = append(f.Calls, Call{Cypher: cypher, Params: params})
	reply := f.Reply
	f.mu.Unlock()
	if reply == nil {
		return &result{}, nil
	}
	recs, err := reply(cypher, params)
	if err != nil {
		return nil, err
	}
	return &result{recs: recs}, nil
}

func (s *session) Close(context.Context) error {
	f := (*Fake)(s)
	f.mu.Lock()
	f.Closed++
	f.mu.Unlock()
	return nil
}

type result struct {
	recs []*neo4j.Record
	pos  int
}

func (r *result) Next(context.Context) bool {
	if r.pos >= len(r.recs) {
		return false
	}
	r.pos++
	return true
}

func (r *result) Record() *neo4j.Record { return r.recs[r.pos-1] }

func (r *result) Err() error { return nil }

// Node builds a record binding a node with props to key.
func Node(key string, props map[string]any) *neo4j.Record {
	return &neo4j.Record{Keys: []string{key}, Values: []any{neo4j.Node{Props: props}}}
}
