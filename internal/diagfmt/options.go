// Package diagfmt renders diagnostic bags for people and for tools.
package diagfmt

import (
	"path/filepath"
	"strings"
)

// PathMode specifies how file paths are displayed.
type PathMode uint8

const (
	// PathModeAuto uses paths relative to BaseDir when they stay inside
	// it and absolute paths otherwise.
	PathModeAuto PathMode = iota
	// PathModeAbsolute always uses absolute paths.
	PathModeAbsolute
	PathModeRelative
	PathModeBasename
)

// PrettyOpts configures pretty-printing of diagnostics.
type PrettyOpts struct {
	Color     bool
	Context   int8 // lines shown around the primary line
	PathMode  PathMode
	BaseDir   string // for relative paths; "" means the working directory
	ShowNotes bool
}

// JSONOpts configures JSON output of diagnostics.
type JSONOpts struct {
	IncludePositions bool // add line/col
	PathMode         PathMode
	BaseDir          string
	Max              int // truncates the output, not the bag
	IncludeNotes     bool
}

// formatPath renders path according to mode.
func formatPath(path string, mode PathMode, baseDir string) string {
	if path == "" {
		return "<unknown>"
	}
	switch mode {
	case PathModeBasename:
		return filepath.Base(path)
	case PathModeAbsolute:
		if abs, err := filepath.Abs(path); err == nil {
			return filepath.ToSlash(abs)
		}
		return path
	case PathModeRelative:
		if rel, ok := relativeTo(path, baseDir); ok {
			return rel
		}
		return path
	default:
		if rel, ok := relativeTo(path, baseDir); ok && !strings.HasPrefix(rel, "../") {
			return rel
		}
		if filepath.IsAbs(path) {
			return filepath.ToSlash(path)
		}
		return path
	}
}

func relativeTo(path, baseDir string) (string, bool) {
	if baseDir == "" {
		if !filepath.IsAbs(path) {
			return filepath.ToSlash(path), true
		}
		wd, err := filepath.Abs(".")
		if err != nil {
			return "", false
		}
		baseDir = wd
	}
	absBase, err := filepath.Abs(baseDir)
	if err != nil {
		return "", false
	}
	absPath, err := filepath.Abs(path)
	if err != nil {
		return "", false
	}
	rel, err := filepath.Rel(absBase, absPath)
	if err != nil {
		return "", false
	}
	return filepath.ToSlash(rel), true
}
