package solver

import (
	"context"
	"time"

	"github.com/WessleyAI/gridlink/pkg/natsutil"
	"github.com/WessleyAI/gridlink/pkg/resilience"
)

// NATSClient sends payloads as NATS requests to a solver worker.
type NATSClient struct {
	nc       natsutil.Conn
	subject  string
	timeout  time.Duration
	breaker  *resilience.Breaker
	observer Observer
}

var _ Client = (*NATSClient)(nil)

// NewNATSClient creates a client publishing requests on subject.
func NewNATSClient(nc natsutil.Conn, subject string, timeout time.Duration, breaker *resilience.Breaker, obs Observer) *NATSClient {
	if breaker == nil {
		breaker = resilience.NewBreaker(resilience.BreakerOpts{Ignore: isCallerError})
	}
	if obs == nil {
		obs = nopObserver{}
	}
	if timeout <= 0 {
		timeout = 2 * time.Minute
	}
	return &NATSClient{nc: nc, subject: subject, timeout: timeout, breaker: breaker, observer: obs}
}

// Solve sends payload and waits for the worker's reply.
func (c *NATSClient) Solve(ctx context.Context, payload []byte) ([]byte, error) {
	start := time.Now()
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	body, err := resilience.Do(ctx, c.breaker, func(ctx context.Context) ([]byte, error) {
		return natsutil.RequestRaw(ctx, c.nc, c.subject, payload)
	})
	c.observer.RecordSolver("nats", err, time.Since(start))
	if err != nil {
		return nil, err
	}
	return Sanitize(body), nil
}
