// Package solver sends network models to the external power-flow service and
// returns its raw reply.
package solver

import (
	"context"
	"time"
)

// Client performs one solver round trip. payload is the serialized network
// model; the reply is sanitized JSON.
type Client interface {
	Solve(ctx context.Context, payload []byte) ([]byte, error)
}

// Observer receives one call per round trip.
type Observer interface {
	RecordSolver(transport string, err error, d time.Duration)
}

type nopObserver struct{}

func (nopObserver) RecordSolver(string, error, time.Duration) {}

// ClientFunc adapts a function to Client.
type ClientFunc func(ctx context.Context, payload []byte) ([]byte, error)

func (f ClientFunc) Solve(ctx context.Context, payload []byte) ([]byte, error) { return f(ctx, payload) }
