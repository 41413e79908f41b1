package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/paiml/depyler-sub011/internal/config"
	"github.com/paiml/depyler-sub011/internal/diag"
	"github.com/paiml/depyler-sub011/internal/diagfmt"
	"github.com/paiml/depyler-sub011/internal/observ"
	"github.com/paiml/depyler-sub011/internal/source"
)

type globalFlags struct {
	colorOut       bool // stdout
	colorErr       bool // stderr
	quiet          bool
	timings        bool
	maxDiagnostics int
}

func readGlobalFlags(cmd *cobra.Command) (globalFlags, error) {
	var g globalFlags
	flags := cmd.Root().PersistentFlags()
	colorFlag, err := flags.GetString("color")
	if err != nil {
		return g, fmt.Errorf("failed to get color flag: %w", err)
	}
	if g.colorOut, err = readColorMode(colorFlag, os.Stdout); err != nil {
		return g, err
	}
	if g.colorErr, err = readColorMode(colorFlag, os.Stderr); err != nil {
		return g, err
	}
	if g.quiet, err = flags.GetBool("quiet"); err != nil {
		return g, fmt.Errorf("failed to get quiet flag: %w", err)
	}
	if g.timings, err = flags.GetBool("timings"); err != nil {
		return g, fmt.Errorf("failed to get timings flag: %w", err)
	}
	if g.maxDiagnostics, err = flags.GetInt("max-diagnostics"); err != nil {
		return g, fmt.Errorf("failed to get max-diagnostics flag: %w", err)
	}
	return g, nil
}

// loadConfig honours --config, otherwise walks up from the input.
func loadConfig(cmd *cobra.Command, input string) (*config.Config, error) {
	path, err := cmd.Flags().GetString("config")
	if err != nil {
		return nil, fmt.Errorf("failed to get config flag: %w", err)
	}
	if path != "" {
		return config.Load(path)
	}
	dir := input
	if info, err := os.Stat(input); err == nil && !info.IsDir() {
		dir = filepath.Dir(input)
	}
	return config.LoadNear(dir)
}

type diagFormat string

const (
	formatPretty diagFormat = "pretty"
	formatJSON   diagFormat = "json"
	formatShort  diagFormat = "short"
	formatGolden diagFormat = "golden"
)

func readDiagFormat(value string) (diagFormat, error) {
	switch f := diagFormat(strings.ToLower(strings.TrimSpace(value))); f {
	case formatPretty, formatJSON, formatShort, formatGolden:
		return f, nil
	case "":
		return formatPretty, nil
	}
	return "", fmt.Errorf("unsupported format %q (must be pretty, json, short or golden)", value)
}

// printDiagnostics renders bag in the requested format.
func printDiagnostics(w io.Writer, format diagFormat, bag *diag.Bag, fs *source.FileSet, useColor, withNotes bool, maxDiagnostics int) error {
	if bag == nil || bag.Len() == 0 {
		if format == formatJSON {
			return diagfmt.JSON(w, bag, fs, diagfmt.JSONOpts{})
		}
		return nil
	}
	switch format {
	case formatJSON:
		return diagfmt.JSON(w, bag, fs, diagfmt.JSONOpts{
			IncludePositions: true,
			IncludeNotes:     withNotes,
			Max:              maxDiagnostics,
		})
	case formatShort:
		diagfmt.Short(w, bag, fs, diagfmt.PrettyOpts{Color: useColor})
	case formatGolden:
		if out := diag.FormatGoldenDiagnostics(bag.Items(), fs, withNotes); out != "" {
			fmt.Fprintln(w, out)
		}
	default:
		diagfmt.Pretty(w, bag, fs, diagfmt.PrettyOpts{
			Color:     useColor,
			Context:   1,
			ShowNotes: withNotes,
		})
	}
	return nil
}

func printTimings(out io.Writer, label string, report observ.Report) {
	if out == nil || len(report.Phases) == 0 {
		return
	}
	fmt.Fprintf(out, "%s %.1f ms\n", label, report.TotalMS)
	for _, p := range report.Phases {
		if p.Note != "" {
			fmt.Fprintf(out, "  %-10s %8.2f ms  %s\n", p.Name, p.DurationMS, p.Note)
			continue
		}
		fmt.Fprintf(out, "  %-10s %8.2f ms\n", p.Name, p.DurationMS)
	}
}
