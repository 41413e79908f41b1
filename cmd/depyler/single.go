package main

import (
	"github.com/spf13/cobra"

	"github.com/paiml/depyler-sub011/internal/driver"
	"github.com/paiml/depyler-sub011/internal/pyast"
)

// translateSingle runs the whole pipeline on one input without caching or
// writing, for the inspection commands.
func translateSingle(cmd *cobra.Command, path string, g globalFlags) (*driver.FileResult, error) {
	if _, err := pyast.FormatOf(path); err != nil {
		return nil, err
	}
	cfg, err := loadConfig(cmd, path)
	if err != nil {
		return nil, err
	}
	rep, err := driver.Run(cmd.Context(), []string{path}, driver.Options{
		Config:         cfg,
		Jobs:           1,
		MaxDiagnostics: g.maxDiagnostics,
		NoWrite:        true,
		Directives:     true,
		Timings:        g.timings,
	})
	if err != nil {
		return nil, err
	}
	r := &rep.Files[0]
	if r.Timing != nil {
		printTimings(cmd.ErrOrStderr(), r.Path, *r.Timing)
	}
	if r.Err != nil && r.Result == nil {
		return r, r.Err
	}
	return r, nil
}
