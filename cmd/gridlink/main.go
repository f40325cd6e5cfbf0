// Package main provides the gridlink command line: extract network models
// from saved diagrams, annotate diagrams with solver replies, or run a full
// calculation against the configured solver.
package main

import (
	"os"

	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

type globalOpts struct {
	configPath string
	user       string
	calc       string
	paramsPath string
	outputPath string
	pretty     bool
}

func newRootCmd() *cobra.Command {
	var g globalOpts
	root := &cobra.Command{
		Use:   "gridlink",
		Short: "Translate network diagrams to and from power-flow solvers",
		Long: `gridlink extracts the network model from an mxGraph diagram, sends it to a
power-flow solver and renders the results back onto the diagram.`,
		SilenceUsage: true,
	}
	pf := root.PersistentFlags()
	pf.StringVar(&g.configPath, "config", "", "YAML configuration file")
	pf.StringVar(&g.user, "user", "", "E-mail address recorded with the calculation")
	pf.StringVar(&g.calc, "calc", "loadflow", "Calculation: loadflow or storage-sizing")
	pf.StringVar(&g.paramsPath, "params", "", "YAML file overriding calculation parameters")
	pf.StringVarP(&g.outputPath, "output", "o", "", "Output file path (default: stdout)")
	pf.BoolVar(&g.pretty, "pretty", false, "Pretty-print JSON output")

	root.AddCommand(newExtractCmd(&g), newAnnotateCmd(&g), newRunCmd(&g), newSnapshotsCmd(&g))
	return root
}
