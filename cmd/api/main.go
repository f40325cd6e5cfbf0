// Package main implements the gridlink calculation API server.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/WessleyAI/gridlink/engine/calc"
	"github.com/WessleyAI/gridlink/engine/identity"
	"github.com/WessleyAI/gridlink/engine/solver"
	"github.com/WessleyAI/gridlink/engine/topology"
	"github.com/WessleyAI/gridlink/pkg/config"
	"github.com/WessleyAI/gridlink/pkg/metrics"
	"github.com/WessleyAI/gridlink/pkg/natsutil"
	"github.com/WessleyAI/gridlink/pkg/resilience"
)

func main() {
	cfg, err := config.Load(os.Getenv("GRIDLINK_CONFIG"))
	if err != nil {
		slog.Error("load config", "err", err)
		os.Exit(1)
	}
	logger := cfg.Log.Logger()
	slog.SetDefault(logger)

	if err := run(cfg, logger); err != nil {
		logger.Error("server exited with error", "err", err)
		os.Exit(1)
	}
}

func run(cfg config.Config, logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	reg := metrics.Default()
	deps := calc.Deps{
		Identity: identity.FromContext,
		Metrics:  reg,
		Logger:   logger,
	}

	// --- Connect to NATS (events, optional solver transport) ---
	var nc *nats.Conn
	if cfg.NATS.URL != "" {
		var err error
		nc, err = nats.Connect(cfg.NATS.URL, nats.Name("gridlink-api"))
		if err != nil {
			return fmt.Errorf("nats connect: %w", err)
		}
		defer nc.Drain()
		deps.Events = calc.NewNATSPublisher(nc, cfg.NATS.EventsSubject)
	}

	// --- Connect to Neo4j (topology snapshots) ---
	if cfg.Neo4j.URL != "" {
		driver, err := neo4j.NewDriverWithContext(cfg.Neo4j.URL, neo4j.BasicAuth(cfg.Neo4j.User, cfg.Neo4j.Pass, ""))
		if err != nil {
			return fmt.Errorf("neo4j driver: %w", err)
		}
		defer driver.Close(ctx)
		store, err := topology.NewDriverStore(driver, logger)
		if err != nil {
			return fmt.Errorf("topology store: %w", err)
		}
		deps.Snapshots = store
	}

	// --- Solver client ---
	onChange := func(from, to resilience.State) {
		reg.SetBreakerState(int(to))
		logger.Warn("solver breaker", "from", from.String(), "to", to.String())
	}
	var solverConn natsutil.Conn
	if nc != nil {
		solverConn = nc
	}
	conn, err := solver.FromConfig(cfg.Solver, solverConn, reg, onChange, logger)
	if err != nil {
		return err
	}
	deps.Solver = conn.Client

	svc, err := calc.New(deps)
	if err != nil {
		return err
	}

	api := &server{svc: svc, breaker: conn.Breaker, log: logger}
	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      api.routes(reg, cfg.Server),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: cfg.Solver.Timeout + 30*time.Second,
		IdleTimeout:  120 * time.Second,
	}

	// --- Graceful shutdown ---
	errCh := make(chan error, 1)
	go func() {
		logger.Info("api server starting", "port", cfg.Server.Port, "solver", cfg.Solver.Transport)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && err != http.ErrServerClosed {
			return err
		}
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	}

	shutCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutCtx)
}
