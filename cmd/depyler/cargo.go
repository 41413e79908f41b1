package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var cargoCmd = &cobra.Command{
	Use:   "cargo [flags] <file>",
	Short: "Print the Cargo.toml the translated module needs",
	Args:  cobra.ExactArgs(1),
	RunE:  runCargo,
}

func init() {
	cargoCmd.Flags().String("config", "", "path to depyler.toml (default: search upwards from the input)")
	cargoCmd.Flags().String("name", "", "package name (default: crate_name from the config, then the module name)")
}

func runCargo(cmd *cobra.Command, args []string) error {
	defer dumpTraceOnPanic()

	g, err := readGlobalFlags(cmd)
	if err != nil {
		return err
	}
	name, err := cmd.Flags().GetString("name")
	if err != nil {
		return fmt.Errorf("failed to get name flag: %w", err)
	}
	r, err := translateSingle(cmd, args[0], g)
	if err != nil {
		return err
	}
	if r.Failed() {
		if err := printDiagnostics(cmd.ErrOrStderr(), formatPretty, r.Bag, r.FileSet, g.colorErr, false, g.maxDiagnostics); err != nil {
			return err
		}
		return errDiagnostics
	}
	cfg, err := loadConfig(cmd, args[0])
	if err != nil {
		return err
	}
	opts := cfg.CargoOptions(r.Module)
	if name != "" {
		opts.Name = name
	}
	manifest, err := r.Result.CargoToml(opts)
	if err != nil {
		return err
	}
	fmt.Fprint(cmd.OutOrStdout(), manifest)
	return nil
}
