package main

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/WessleyAI/gridlink/engine/diagram"
)

// DefaultSubmitSubject carries diagrams pushed to the batch runner.
const DefaultSubmitSubject = "diagrams.submitted"

// submission is a diagram delivered over NATS instead of dropped in the
// watched directory.
type submission struct {
	Name    string `json:"name"`
	Diagram string `json:"diagram"`
}

// accept stores s in the watched directory so the next scan picks it up.
// The file is written under a dot name and renamed, so a scan never sees a
// partial diagram.
func (w *watcher) accept(_ context.Context, s submission) error {
	name := strings.TrimSuffix(filepath.Base(strings.TrimSpace(s.Name)), ".xml")
	if name == "" || name == "." || name[0] == '.' || strings.HasSuffix(name, ".annotated") {
		return fmt.Errorf("submission: invalid name %q", s.Name)
	}
	if _, err := diagram.DecodeXML(strings.NewReader(s.Diagram)); err != nil {
		return fmt.Errorf("submission %s: %w", name, err)
	}

	final := filepath.Join(w.opts.Dir, name+".xml")
	tmp := filepath.Join(w.opts.Dir, "."+name+".xml.part")
	if err := os.WriteFile(tmp, bytes.TrimSpace([]byte(s.Diagram)), 0o644); err != nil {
		return err
	}
	if err := os.Rename(tmp, final); err != nil {
		os.Remove(tmp)
		return err
	}
	w.log.Info("diagram submitted", "file", name+".xml")
	return nil
}

// onSubmit is the NATS handler for submissions.
func (w *watcher) onSubmit(ctx context.Context, s submission) {
	if err := w.accept(ctx, s); err != nil {
		w.log.Warn("submission rejected", "name", s.Name, "error", err)
	}
}
