package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/paiml/depyler-sub011/internal/diag"
)

var checkCmd = &cobra.Command{
	Use:   "check [flags] <file>",
	Short: "Run the translation and report diagnostics only",
	Long:  `Run every pass over the input and print diagnostics. Exits with status 1 when any error is reported.`,
	Args:  cobra.ExactArgs(1),
	RunE:  runCheck,
}

func init() {
	checkCmd.Flags().String("config", "", "path to depyler.toml (default: search upwards from the input)")
	checkCmd.Flags().String("format", "pretty", "output format (pretty|json|short|golden)")
	checkCmd.Flags().Bool("with-notes", false, "include diagnostic notes in output")
	checkCmd.Flags().Bool("warnings-as-errors", false, "treat warnings as errors")
	checkCmd.Flags().String("min-severity", "info", "hide diagnostics below this severity (info|warning|error)")
}

func runCheck(cmd *cobra.Command, args []string) error {
	defer dumpTraceOnPanic()

	g, err := readGlobalFlags(cmd)
	if err != nil {
		return err
	}
	formatFlag, err := cmd.Flags().GetString("format")
	if err != nil {
		return fmt.Errorf("failed to get format flag: %w", err)
	}
	format, err := readDiagFormat(formatFlag)
	if err != nil {
		return err
	}
	withNotes, err := cmd.Flags().GetBool("with-notes")
	if err != nil {
		return fmt.Errorf("failed to get with-notes flag: %w", err)
	}
	warningsAsErrors, err := cmd.Flags().GetBool("warnings-as-errors")
	if err != nil {
		return fmt.Errorf("failed to get warnings-as-errors flag: %w", err)
	}

	minSeverityFlag, err := cmd.Flags().GetString("min-severity")
	if err != nil {
		return fmt.Errorf("failed to get min-severity flag: %w", err)
	}
	minSeverity, err := diag.ParseSeverity(minSeverityFlag)
	if err != nil {
		return err
	}

	r, err := translateSingle(cmd, args[0], g)
	if r == nil {
		return err
	}
	if warningsAsErrors && r.Bag != nil {
		r.Bag.Promote(diag.SevWarning, diag.SevError)
	}
	r.Bag.Filter(minSeverity)
	if err := printDiagnostics(cmd.OutOrStdout(), format, r.Bag, r.FileSet, g.colorOut, withNotes, g.maxDiagnostics); err != nil {
		return err
	}
	if r.Failed() {
		return errDiagnostics
	}
	if !g.quiet && format == formatPretty {
		fmt.Fprintf(cmd.ErrOrStderr(), "%s: ok (%d diagnostics)\n", r.Path, r.Bag.Len())
	}
	return nil
}
