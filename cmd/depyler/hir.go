package main

import (
	"github.com/spf13/cobra"

	"github.com/paiml/depyler-sub011/internal/hir"
)

var hirCmd = &cobra.Command{
	Use:   "hir [flags] <file>",
	Short: "Dump the HIR after type and ownership inference",
	Args:  cobra.ExactArgs(1),
	RunE:  runHIR,
}

func init() {
	hirCmd.Flags().String("config", "", "path to depyler.toml (default: search upwards from the input)")
	hirCmd.Flags().Bool("types", true, "annotate expressions with inferred types")
	hirCmd.Flags().Bool("ownership", true, "annotate parameters and uses with ownership decisions")
}

func runHIR(cmd *cobra.Command, args []string) error {
	defer dumpTraceOnPanic()

	g, err := readGlobalFlags(cmd)
	if err != nil {
		return err
	}
	emitTypes, err := cmd.Flags().GetBool("types")
	if err != nil {
		return err
	}
	emitOwnership, err := cmd.Flags().GetBool("ownership")
	if err != nil {
		return err
	}
	r, err := translateSingle(cmd, args[0], g)
	if err != nil {
		return err
	}
	if err := printDiagnostics(cmd.ErrOrStderr(), formatShort, r.Bag, r.FileSet, g.colorErr, false, g.maxDiagnostics); err != nil {
		return err
	}
	return hir.Dump(cmd.OutOrStdout(), r.Result.Module, hir.DumpOptions{
		EmitTypes:     emitTypes,
		EmitOwnership: emitOwnership,
	})
}
