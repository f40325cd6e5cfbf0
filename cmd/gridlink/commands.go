package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/WessleyAI/gridlink/engine/annotate"
	"github.com/WessleyAI/gridlink/engine/calc"
	"github.com/WessleyAI/gridlink/engine/diagram"
	"github.com/WessleyAI/gridlink/engine/domain"
	"github.com/WessleyAI/gridlink/engine/extract"
	"github.com/WessleyAI/gridlink/engine/identity"
	"github.com/WessleyAI/gridlink/engine/netmodel"
	"github.com/WessleyAI/gridlink/engine/solver"
	"github.com/WessleyAI/gridlink/pkg/config"
)

func newExtractCmd(g *globalOpts) *cobra.Command {
	return &cobra.Command{
		Use:   "extract <diagram.xml>",
		Short: "Print the solver payload extracted from a diagram",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			params, err := g.params()
			if err != nil {
				return err
			}
			d, err := readDiagram(args[0])
			if err != nil {
				return err
			}
			x := extract.New(extract.WithLogger(g.logger(cmd)))
			res, err := x.Run(d, netmodel.Parameters{
				Marker:   params.Marker(),
				User:     g.identity(),
				Settings: params.Settings(),
			}, extract.Options{PurgeOverlays: params.PurgeOverlays()})
			if err != nil {
				return fmt.Errorf("extraction failed: %w", err)
			}
			printNotices(cmd.ErrOrStderr(), res.Notices)

			var out []byte
			if g.pretty {
				out, err = json.MarshalIndent(res.Model, "", "  ")
			} else {
				out, err = json.Marshal(res.Model)
			}
			if err != nil {
				return fmt.Errorf("serialization failed: %w", err)
			}
			return g.write(cmd, append(out, '\n'))
		},
	}
}

func newAnnotateCmd(g *globalOpts) *cobra.Command {
	return &cobra.Command{
		Use:   "annotate <diagram.xml> <response.json>",
		Short: "Render a saved solver response onto a diagram",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := readDiagram(args[0])
			if err != nil {
				return err
			}
			raw, err := os.ReadFile(args[1])
			if err != nil {
				return fmt.Errorf("read response: %w", err)
			}
			resp, err := annotate.Decode(solver.Sanitize(raw))
			if err != nil {
				return err
			}
			plan, err := annotate.New(annotate.WithLogger(g.logger(cmd))).Annotate(d, resp)
			if err != nil {
				return err
			}
			printNotices(cmd.ErrOrStderr(), plan.Notices)
			return g.writeDiagram(cmd, d)
		},
	}
}

func newRunCmd(g *globalOpts) *cobra.Command {
	return &cobra.Command{
		Use:   "run <diagram.xml>",
		Short: "Run a calculation against the configured solver and write the annotated diagram",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(g.configPath)
			if err != nil {
				return err
			}
			params, err := g.params()
			if err != nil {
				return err
			}
			d, err := readDiagram(args[0])
			if err != nil {
				return err
			}
			log := g.logger(cmd)
			conn, err := solver.FromConfig(cfg.Solver, nil, nil, nil, log)
			if err != nil {
				return err
			}
			svc, err := calc.New(calc.Deps{
				Solver:   conn.Client,
				Identity: identity.Static(g.identity()),
				Logger:   log,
			})
			if err != nil {
				return err
			}
			rep, err := svc.Run(cmd.Context(), d, params)
			if rep != nil {
				printNotices(cmd.ErrOrStderr(), rep.Notices)
			}
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "%s %s: %d records, %d overlays, %d failures\n",
				rep.Calc, rep.RunID, rep.Records, rep.Overlays, rep.Failures)
			return g.writeDiagram(cmd, d)
		},
	}
}

// params returns the calculation parameters: defaults for --calc, then
// the --params file.
func (g *globalOpts) params() (calc.Params, error) {
	var data []byte
	if g.paramsPath != "" {
		var err error
		if data, err = os.ReadFile(g.paramsPath); err != nil {
			return nil, fmt.Errorf("read params: %w", err)
		}
	}
	switch calc.Kind(g.calc) {
	case calc.KindLoadFlow:
		p := calc.DefaultLoadFlow()
		if err := yaml.Unmarshal(data, &p); err != nil {
			return nil, fmt.Errorf("params %s: %w", g.paramsPath, err)
		}
		return p, p.Validate()
	case calc.KindStorageSizing:
		p := calc.DefaultStorage()
		if err := yaml.Unmarshal(data, &p); err != nil {
			return nil, fmt.Errorf("params %s: %w", g.paramsPath, err)
		}
		return p, p.Validate()
	}
	return nil, fmt.Errorf("invalid calc: %s (must be loadflow or storage-sizing)", g.calc)
}

func (g *globalOpts) identity() string {
	return identity.Resolve(context.Background(), identity.Chain{identity.Static(g.user)})
}

func (g *globalOpts) logger(cmd *cobra.Command) *slog.Logger {
	return slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: slog.LevelWarn}))
}

func (g *globalOpts) write(cmd *cobra.Command, data []byte) error {
	if g.outputPath == "" {
		_, err := cmd.OutOrStdout().Write(data)
		return err
	}
	if err := os.WriteFile(g.outputPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func (g *globalOpts) writeDiagram(cmd *cobra.Command, d *diagram.Model) error {
	out, err := d.XML()
	if err != nil {
		return err
	}
	return g.write(cmd, append(bytes.TrimRight(out, "\n"), '\n'))
}

func readDiagram(path string) (*diagram.Model, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("file not found: %s", path)
	}
	defer f.Close()
	return diagram.DecodeXML(f)
}

func printNotices(w io.Writer, notices []domain.Notice) {
	for _, n := range notices {
		if n.CellID != "" {
			fmt.Fprintf(w, "%s: [%s] %s\n", n.Severity, n.CellID, n.Message)
			continue
		}
		fmt.Fprintf(w, "%s: %s\n", n.Severity, n.Message)
	}
}
