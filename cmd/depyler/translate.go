package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/paiml/depyler-sub011/internal/driver"
)

var translateCmd = &cobra.Command{
	Use:   "translate [flags] <file|directory>",
	Short: "Translate Python sources to Rust",
	Long: `Translate a .py file, a JSON or msgpack ast dump, or every input under a directory.
A single file without -o is printed to stdout.`,
	Args: cobra.ExactArgs(1),
	RunE: runTranslate,
}

func init() {
	translateCmd.Flags().StringP("output", "o", "", "output .rs file or directory")
	translateCmd.Flags().Bool("cargo", false, "emit a Cargo crate (Cargo.toml + src/main.rs) per module")
	translateCmd.Flags().String("config", "", "path to depyler.toml (default: search upwards from the input)")
	translateCmd.Flags().Bool("watch", false, "retranslate when inputs change")
	translateCmd.Flags().Int("jobs", 0, "max parallel workers (0=auto)")
	translateCmd.Flags().String("ui", "auto", "progress UI (auto|on|off)")
	translateCmd.Flags().String("format", "pretty", "diagnostic format (pretty|json|short|golden)")
	translateCmd.Flags().Bool("with-notes", false, "include diagnostic notes")
	translateCmd.Flags().Bool("no-cache", false, "disable the translation cache")
	translateCmd.Flags().Bool("directives", true, "honour # @depyler: comments in .py inputs")
}

type translateFlags struct {
	output     string
	cargo      bool
	watch      bool
	jobs       int
	ui         uiMode
	format     diagFormat
	withNotes  bool
	noCache    bool
	directives bool
}

func readTranslateFlags(cmd *cobra.Command) (translateFlags, error) {
	var f translateFlags
	var err error
	flags := cmd.Flags()
	if f.output, err = flags.GetString("output"); err != nil {
		return f, fmt.Errorf("failed to get output flag: %w", err)
	}
	if f.cargo, err = flags.GetBool("cargo"); err != nil {
		return f, fmt.Errorf("failed to get cargo flag: %w", err)
	}
	if f.watch, err = flags.GetBool("watch"); err != nil {
		return f, fmt.Errorf("failed to get watch flag: %w", err)
	}
	if f.jobs, err = flags.GetInt("jobs"); err != nil {
		return f, fmt.Errorf("failed to get jobs flag: %w", err)
	}
	uiFlag, err := flags.GetString("ui")
	if err != nil {
		return f, fmt.Errorf("failed to get ui flag: %w", err)
	}
	if f.ui, err = readUIMode(uiFlag); err != nil {
		return f, err
	}
	formatFlag, err := flags.GetString("format")
	if err != nil {
		return f, fmt.Errorf("failed to get format flag: %w", err)
	}
	if f.format, err = readDiagFormat(formatFlag); err != nil {
		return f, err
	}
	if f.withNotes, err = flags.GetBool("with-notes"); err != nil {
		return f, fmt.Errorf("failed to get with-notes flag: %w", err)
	}
	if f.noCache, err = flags.GetBool("no-cache"); err != nil {
		return f, fmt.Errorf("failed to get no-cache flag: %w", err)
	}
	if f.directives, err = flags.GetBool("directives"); err != nil {
		return f, fmt.Errorf("failed to get directives flag: %w", err)
	}
	return f, nil
}

func runTranslate(cmd *cobra.Command, args []string) error {
	defer dumpTraceOnPanic()

	input := args[0]
	g, err := readGlobalFlags(cmd)
	if err != nil {
		return err
	}
	tf, err := readTranslateFlags(cmd)
	if err != nil {
		return err
	}
	info, err := os.Stat(input)
	if err != nil {
		return err
	}
	single := !info.IsDir()

	var cache *driver.DiskCache
	if !tf.noCache {
		if cache, err = driver.OpenDiskCache("depyler"); err != nil {
			if !g.quiet {
				fmt.Fprintf(cmd.ErrOrStderr(), "warning: translation cache disabled: %v\n", err)
			}
			cache = nil
		}
	}

	run := func(ctx context.Context) error {
		cfg, err := loadConfig(cmd, input)
		if err != nil {
			return err
		}
		inputs, err := driver.ListInputs(input)
		if err != nil {
			return err
		}
		if len(inputs) == 0 {
			return fmt.Errorf("no inputs under %s", input)
		}
		crate := tf.cargo || cfg.EmitCargo
		toStdout := single && tf.output == "" && !crate
		exactFile := single && !crate && strings.HasSuffix(tf.output, ".rs")

		opts := driver.Options{
			Config:         cfg,
			Jobs:           tf.jobs,
			MaxDiagnostics: g.maxDiagnostics,
			Cache:          cache,
			OutDir:         tf.output,
			NoWrite:        toStdout || exactFile,
			Cargo:          tf.cargo,
			Directives:     tf.directives,
			Timings:        g.timings,
		}

		var rep *driver.Report
		if len(inputs) > 1 && !g.quiet && shouldUseTUI(tf.ui) {
			rep, err = runBatchWithUI(ctx, "translating", inputs, opts)
		} else {
			rep, err = driver.Run(ctx, inputs, opts)
		}
		if err != nil {
			return err
		}

		stderr := cmd.ErrOrStderr()
		for i := range rep.Files {
			r := &rep.Files[i]
			if err := printDiagnostics(stderr, tf.format, r.Bag, r.FileSet, g.colorErr, tf.withNotes, g.maxDiagnostics); err != nil {
				return err
			}
			if r.Timing != nil {
				printTimings(stderr, r.Path, *r.Timing)
			}
			if r.Failed() {
				continue
			}
			switch {
			case toStdout:
				fmt.Fprint(cmd.OutOrStdout(), r.Code)
			case exactFile:
				if err := driver.WriteFileAtomic(tf.output, []byte(r.Code)); err != nil {
					return err
				}
				r.OutPath = tf.output
			}
		}
		if rep.Timings != nil {
			printTimings(stderr, "batch", rep.Timings.Report())
		}
		if !g.quiet && !toStdout {
			printSummary(cmd, rep, g.colorErr)
		}
		if rep.Failed > 0 {
			return errDiagnostics
		}
		return nil
	}

	if !tf.watch {
		return run(cmd.Context())
	}
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()
	if err := run(ctx); err != nil && !errors.Is(err, errDiagnostics) {
		fmt.Fprintf(cmd.ErrOrStderr(), "depyler: %v\n", err)
	}
	return watchInputs(ctx, input, cmd.ErrOrStderr(), run)
}

func printSummary(cmd *cobra.Command, rep *driver.Report, useColor bool) {
	ok := lipgloss.NewStyle().Foreground(lipgloss.Color("2")).Bold(true)
	bad := lipgloss.NewStyle().Foreground(lipgloss.Color("1")).Bold(true)
	dim := lipgloss.NewStyle().Faint(true)
	if !useColor {
		ok, bad, dim = lipgloss.NewStyle(), lipgloss.NewStyle(), lipgloss.NewStyle()
	}
	written := 0
	for _, r := range rep.Files {
		if r.OutPath != "" {
			written++
		}
	}
	line := ok.Render(fmt.Sprintf("translated %d file(s)", len(rep.Files)-rep.Failed))
	if rep.Failed > 0 {
		line += ", " + bad.Render(fmt.Sprintf("%d failed", rep.Failed))
	}
	line += dim.Render(fmt.Sprintf(" (%d cached, %d written)", rep.Cached, written))
	fmt.Fprintln(cmd.ErrOrStderr(), line)
}
