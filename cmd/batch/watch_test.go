package main

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/WessleyAI/gridlink/engine/calc"
	"github.com/WessleyAI/gridlink/engine/solver"
)

const converged = `{"busbars":[{"name":"mxCell_11","vm_pu":1.0},{"name":"mxCell_12","vm_pu":0.98}]}`

func copyFixture(t *testing.T, dir, name string) {
	t.Helper()
	data, err := os.ReadFile("../../engine/calc/testdata/feeder.xml")
	if err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, name), data, 0o644); err != nil {
		t.Fatal(err)
	}
}

func newTestWatcher(t *testing.T, dir string, reply solver.ClientFunc) *watcher {
	t.Helper()
	w, err := newWatcher(watchOpts{Dir: dir, Calc: calc.KindLoadFlow, User: "ops@example.com"}, calc.Deps{
		Solver: reply,
		Logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
	if err != nil {
		t.Fatalf("newWatcher: %v", err)
	}
	return w
}

func TestScanProcessesEachDiagramOnce(t *testing.T) {
	dir := t.TempDir()
	copyFixture(t, dir, "north.xml")
	copyFixture(t, dir, "south.xml")
	os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("skip me"), 0o644)

	var calls atomic.Int32
	w := newTestWatcher(t, dir, func(context.Context, []byte) ([]byte, error) {
		calls.Add(1)
		return []byte(converged), nil
	})

	done, failed := w.scan(context.Background())
	if done != 2 || failed != 0 {
		t.Fatalf("first scan: done=%d failed=%d", done, failed)
	}
	for _, name := range []string{"north.annotated.xml", "north.report.json", "south.annotated.xml"} {
		if _, err := os.Stat(filepath.Join(dir, name)); err != nil {
			t.Errorf("missing %s: %v", name, err)
		}
	}
	out, _ := os.ReadFile(filepath.Join(dir, "north.annotated.xml"))
	if !strings.Contains(string(out), `id="Result_12"`) {
		t.Error("annotated diagram lacks overlays")
	}

	done, _ = w.scan(context.Background())
	if done != 0 || calls.Load() != 2 {
		t.Fatalf("second scan reprocessed: done=%d calls=%d", done, calls.Load())
	}

	again := newTestWatcher(t, dir, func(context.Context, []byte) ([]byte, error) {
		t.Fatal("state file should prevent reprocessing")
		return nil, nil
	})
	if done, _ := again.scan(context.Background()); done != 0 {
		t.Fatalf("restarted watcher reprocessed %d files", done)
	}
}

func TestScanRetriesFailures(t *testing.T) {
	dir := t.TempDir()
	copyFixture(t, dir, "feeder.xml")

	var down atomic.Bool
	down.Store(true)
	w := newTestWatcher(t, dir, func(context.Context, []byte) ([]byte, error) {
		if down.Load() {
			return nil, errors.New("solver unavailable")
		}
		return []byte(converged), nil
	})

	if _, failed := w.scan(context.Background()); failed != 1 {
		t.Fatalf("expected one failure, got %d", failed)
	}
	if _, err := os.Stat(filepath.Join(dir, "feeder.report.json")); err != nil {
		t.Errorf("failed run should still write its report: %v", err)
	}
	down.Store(false)
	if done, _ := w.scan(context.Background()); done != 1 {
		t.Fatalf("expected retry to succeed, got %d", done)
	}
}

func TestNewWatcherRejectsUnknownCalc(t *testing.T) {
	_, err := newWatcher(watchOpts{Dir: t.TempDir(), Calc: "harmonics"}, calc.Deps{
		Solver: solver.ClientFunc(func(context.Context, []byte) ([]byte, error) { return nil, nil }),
	})
	if err == nil {
		t.Fatal("expected error")
	}
}
