package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/WessleyAI/gridlink/engine/calc"
	"github.com/WessleyAI/gridlink/engine/diagram"
	"github.com/WessleyAI/gridlink/engine/identity"
)

const (
	annotatedSuffix = ".annotated.xml"
	reportSuffix    = ".report.json"
)

type watchOpts struct {
	Dir       string
	OutDir    string
	StateFile string
	Calc      calc.Kind
	User      string
}

type watcher struct {
	opts      watchOpts
	svc       *calc.Service
	params    calc.Params
	log       *slog.Logger
	processed map[string]bool
}

func newWatcher(opts watchOpts, deps calc.Deps) (*watcher, error) {
	var params calc.Params
	switch opts.Calc {
	case calc.KindLoadFlow:
		params = calc.DefaultLoadFlow()
	case calc.KindStorageSizing:
		params = calc.DefaultStorage()
	default:
		return nil, fmt.Errorf("invalid calc: %s", opts.Calc)
	}
	if opts.OutDir == "" {
		opts.OutDir = opts.Dir
	}
	if opts.StateFile == "" {
		opts.StateFile = filepath.Join(opts.Dir, ".batch-state.json")
	}
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	deps.Identity = identity.Static(opts.User)
	svc, err := calc.New(deps)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(opts.Dir, 0o755); err != nil {
		return nil, err
	}
	if err := os.MkdirAll(opts.OutDir, 0o755); err != nil {
		return nil, err
	}
	return &watcher{
		opts:      opts,
		svc:       svc,
		params:    params,
		log:       deps.Logger,
		processed: loadState(opts.StateFile),
	}, nil
}

// scan runs every new diagram in the watched directory. A file is keyed by
// name and size; failed files are retried on the next scan.
func (w *watcher) scan(ctx context.Context) (done, failed int) {
	entries, err := os.ReadDir(w.opts.Dir)
	if err != nil {
		w.log.Error("readdir failed", "error", err)
		return 0, 0
	}
	for _, e := range entries {
		if ctx.Err() != nil {
			break
		}
		name := e.Name()
		if e.IsDir() || name[0] == '.' || !strings.HasSuffix(name, ".xml") || strings.HasSuffix(name, annotatedSuffix) {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		key := fmt.Sprintf("%s:%d", name, info.Size())
		if w.processed[key] {
			continue
		}

		w.log.Info("processing diagram", "file", name)
		if err := w.process(ctx, filepath.Join(w.opts.Dir, name)); err != nil {
			w.log.Warn("diagram failed, will retry on next scan", "file", name, "error", err)
			failed++
			continue
		}
		w.processed[key] = true
		saveState(w.opts.StateFile, w.processed)
		done++
	}
	return done, failed
}

func (w *watcher) process(ctx context.Context, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	g, err := diagram.DecodeXML(f)
	f.Close()
	if err != nil {
		return err
	}

	rep, err := w.svc.Run(ctx, g, w.params)
	base := filepath.Join(w.opts.OutDir, strings.TrimSuffix(filepath.Base(path), ".xml"))
	if rep != nil {
		data, _ := json.MarshalIndent(rep, "", "  ")
		if werr := os.WriteFile(base+reportSuffix, data, 0o644); werr != nil {
			return werr
		}
	}
	if err != nil {
		return err
	}
	out, err := g.XML()
	if err != nil {
		return err
	}
	return os.WriteFile(base+annotatedSuffix, out, 0o644)
}

func loadState(path string) map[string]bool {
	m := make(map[string]bool)
	data, err := os.ReadFile(path)
	if err != nil {
		return m
	}
	json.Unmarshal(data, &m)
	return m
}

func saveState(path string, m map[string]bool) {
	data, _ := json.Marshal(m)
	os.WriteFile(path, data, 0o644)
}
