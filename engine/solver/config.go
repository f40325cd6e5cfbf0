package solver

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/WessleyAI/gridlink/pkg/config"
	"github.com/WessleyAI/gridlink/pkg/fn"
	"github.com/WessleyAI/gridlink/pkg/natsutil"
	"github.com/WessleyAI/gridlink/pkg/resilience"
)

// ErrNoConn is returned by FromConfig when the nats transport is selected
// without a connection.
var ErrNoConn = errors.New("solver: nats transport needs a connection")

// Setup is the outbound solver stack built from configuration.
type Setup struct {
	Client  Client
	Breaker *resilience.Breaker
}

// FromConfig builds the client selected by cfg.Transport. nc is only used by
// the nats transport. onChange, if set, observes breaker transitions.
func FromConfig(cfg config.SolverConfig, nc natsutil.Conn, obs Observer, onChange func(from, to resilience.State), log *slog.Logger) (Setup, error) {
	breaker := resilience.NewBreaker(resilience.BreakerOpts{
		FailThreshold: cfg.BreakerThreshold,
		Cooldown:      cfg.BreakerCooldown,
		OnChange:      onChange,
		Ignore:        isCallerError,
	})
	switch cfg.Transport {
	case "", "http":
		retry := fn.DefaultRetry
		if cfg.Retries > 0 {
			retry.MaxAttempts = cfg.Retries
		}
		c := NewHTTPClient(cfg.URL, HTTPOptions{
			Timeout:  cfg.Timeout,
			Retry:    retry,
			Breaker:  breaker,
			Limiter:  resilience.NewLimiter(resilience.LimiterOpts{Rate: cfg.RatePerSec, Burst: cfg.Burst}),
			Observer: obs,
			Logger:   log,
		})
		return Setup{Client: c, Breaker: breaker}, nil
	case "nats":
		if nc == nil {
			return Setup{}, ErrNoConn
		}
		return Setup{Client: NewNATSClient(nc, cfg.Subject, cfg.Timeout, breaker, obs), Breaker: breaker}, nil
	}
	return Setup{}, fmt.Errorf("solver: unknown transport %q", cfg.Transport)
}
