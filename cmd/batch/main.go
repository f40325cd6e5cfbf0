// Command batch watches a directory for saved diagrams and runs a
// calculation on each, writing the annotated diagram and a JSON report
// next to it.
package main

import (
	"context"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/WessleyAI/gridlink/engine/calc"
	"github.com/WessleyAI/gridlink/engine/solver"
	"github.com/WessleyAI/gridlink/pkg/config"
	"github.com/WessleyAI/gridlink/pkg/metrics"
	"github.com/WessleyAI/gridlink/pkg/natsutil"
	"github.com/WessleyAI/gridlink/pkg/resilience"
)

func main() {
	var (
		dataDir     = flag.String("dir", "/tmp/gridlink-diagrams", "directory to watch for diagram files")
		outDir      = flag.String("out", "", "directory for results (default: next to the input)")
		configPath  = flag.String("config", os.Getenv("GRIDLINK_CONFIG"), "YAML configuration file")
		kind        = flag.String("calc", string(calc.KindLoadFlow), "calculation: loadflow or storage-sizing")
		user        = flag.String("user", "", "e-mail address recorded with each calculation")
		interval    = flag.Duration("interval", 30*time.Second, "scan interval")
		stateFile   = flag.String("state", "", "processed files state (default: <dir>/.batch-state.json)")
		metricsAddr = flag.String("metrics", ":9091", "metrics listen address, empty to disable")
		submitSubj  = flag.String("submit", DefaultSubmitSubject, "NATS subject for submitted diagrams (needs nats.url)")
	)
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("load config", "error", err)
		os.Exit(1)
	}
	log := cfg.Log.Logger()
	slog.SetDefault(log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	reg := metrics.Default()
	if *metricsAddr != "" {
		go func() {
			if err := http.ListenAndServe(*metricsAddr, reg.Handler()); err != nil {
				log.Warn("metrics server stopped", "error", err)
			}
		}()
	}

	deps := calc.Deps{Metrics: reg, Logger: log}
	var solverConn natsutil.Conn
	var nc *nats.Conn
	if cfg.NATS.URL != "" {
		nc, err = nats.Connect(cfg.NATS.URL, nats.Name("gridlink-batch"))
		if err != nil {
			log.Error("nats connect failed", "error", err)
			os.Exit(1)
		}
		defer nc.Drain()
		solverConn = nc
		deps.Events = calc.NewNATSPublisher(nc, cfg.NATS.EventsSubject)
	}

	conn, err := solver.FromConfig(cfg.Solver, solverConn, reg, func(_, to resilience.State) {
		reg.SetBreakerState(int(to))
	}, log)
	if err != nil {
		log.Error("solver setup failed", "error", err)
		os.Exit(1)
	}

	deps.Solver = conn.Client
	w, err := newWatcher(watchOpts{
		Dir:       *dataDir,
		OutDir:    *outDir,
		StateFile: *stateFile,
		Calc:      calc.Kind(*kind),
		User:      *user,
	}, deps)
	if err != nil {
		log.Error("batch setup failed", "error", err)
		os.Exit(1)
	}

	if nc != nil && *submitSubj != "" {
		sub, err := natsutil.Subscribe(nc, *submitSubj, w.onSubmit)
		if err != nil {
			log.Error("subscribe failed", "subject", *submitSubj, "error", err)
			os.Exit(1)
		}
		defer sub.Unsubscribe()
		log.Info("accepting submitted diagrams", "subject", *submitSubj)
	}

	log.Info("watching for diagrams", "dir", *dataDir, "interval", *interval, "calc", *kind)
	w.scan(ctx)

	ticker := time.NewTicker(*interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			log.Info("shutting down")
			return
		case <-ticker.C:
			w.scan(ctx)
		}
	}
}
