package diag

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"github.com/paiml/depyler-sub011/internal/source"
)

type goldenDiagnostic struct {
	Severity string
	Code     string
	Path     string
	Line     uint32
	Column   uint32
	Message  string
}

// FormatGoldenDiagnostics renders one line per diagnostic
// ("<sev> <ID> <path>:<line>:<col> <message>"), sorted deterministically.
// Notes follow as "note" lines when includeNotes is set.
func FormatGoldenDiagnostics(diags []Diagnostic, fs *source.FileSet, includeNotes bool) string {
	if fs == nil || len(diags) == 0 {
		return ""
	}
	rendered := make([]goldenDiagnostic, 0, len(diags))
	for i := range diags {
		rendered = appendGolden(rendered, &diags[i], fs, includeNotes)
	}
	sort.SliceStable(rendered, func(i, j int) bool {
		di, dj := rendered[i], rendered[j]
		if di.Path != dj.Path {
			return di.Path < dj.Path
		}
		if di.Line != dj.Line {
			return di.Line < dj.Line
		}
		if di.Column != dj.Column {
			return di.Column < dj.Column
		}
		if di.Severity != dj.Severity {
			return di.Severity < dj.Severity
		}
		if di.Code != dj.Code {
			return di.Code < dj.Code
		}
		return di.Message < dj.Message
	})
	var b strings.Builder
	for i, d := range rendered {
		if i > 0 {
			b.WriteByte('\n')
		}
		fmt.Fprintf(&b, "%s %s %s:%d:%d %s", d.Severity, d.Code, d.Path, d.Line, d.Column, d.Message)
	}
	return b.String()
}

func appendGolden(out []goldenDiagnostic, d *Diagnostic, fs *source.FileSet, includeNotes bool) []goldenDiagnostic {
	if g, ok := resolveGolden(fs, d.Primary, d.Severity.Label(), d.Code, d.Message); ok {
		out = append(out, g)
	}
	if !includeNotes {
		return out
	}
	for _, n := range d.Notes {
		if g, ok := resolveGolden(fs, n.Span, "note", d.Code, n.Msg); ok {
			out = append(out, g)
		}
	}
	return out
}

func resolveGolden(fs *source.FileSet, sp source.Span, sev string, code Code, msg string) (goldenDiagnostic, bool) {
	f := fs.Get(sp.File)
	if f == nil {
		return goldenDiagnostic{}, false
	}
	start, _ := fs.Resolve(sp)
	return goldenDiagnostic{
		Severity: sev,
		Code:     code.ID(),
		Path:     filepath.ToSlash(f.Path),
		Line:     start.Line,
		Column:   start.Col,
		Message:  sanitizeMessage(msg),
	}, true
}

func sanitizeMessage(msg string) string {
	msg = strings.ReplaceAll(msg, "\r\n", "\n")
	msg = strings.ReplaceAll(msg, "\n", " ")
	return strings.TrimSpace(msg)
}
