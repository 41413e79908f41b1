package diagfmt

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/fatih/color"
	"github.com/mattn/go-runewidth"

	"github.com/paiml/depyler-sub011/internal/diag"
	"github.com/paiml/depyler-sub011/internal/source"
)

type palette struct {
	err, warn, info, code, loc, gutter, caret, note *color.Color
}

func newPalette(enabled bool) palette {
	p := palette{
		err:    color.New(color.FgRed, color.Bold),
		warn:   color.New(color.FgYellow, color.Bold),
		info:   color.New(color.FgCyan, color.Bold),
		code:   color.New(color.Bold),
		loc:    color.New(color.FgWhite, color.Bold),
		gutter: color.New(color.FgBlue),
		caret:  color.New(color.FgGreen, color.Bold),
		note:   color.New(color.FgCyan),
	}
	for _, c := range []*color.Color{p.err, p.warn, p.info, p.code, p.loc, p.gutter, p.caret, p.note} {
		if enabled {
			c.EnableColor()
		} else {
			c.DisableColor()
		}
	}
	return p
}

func (p palette) severity(sev diag.Severity) *color.Color {
	switch sev {
	case diag.SevError:
		return p.err
	case diag.SevWarning:
		return p.warn
	default:
		return p.info
	}
}

// Pretty renders diagnostics for a terminal, in bag order (call bag.Sort
// first). Each diagnostic prints as
//
//	<path>:<line>:<col>: <SEV> <CODE>: <Message>
//
// followed by the source line with the span underlined ^~~~ and its notes.
func Pretty(w io.Writer, bag *diag.Bag, fs *source.FileSet, opts PrettyOpts) {
	if bag == nil {
		return
	}
	p := newPalette(opts.Color)
	for _, d := range bag.Items() {
		prettyOne(w, &d, fs, opts, p)
	}
}

func prettyOne(w io.Writer, d *diag.Diagnostic, fs *source.FileSet, opts PrettyOpts, p palette) {
	file, start, end := locate(fs, d.Primary)
	path := "<unknown>"
	if file != nil {
		path = formatPath(file.Path, opts.PathMode, opts.BaseDir)
	}
	fmt.Fprintf(w, "%s %s %s: %s\n",
		p.loc.Sprintf("%s:%d:%d:", path, start.Line, start.Col),
		p.severity(d.Severity).Sprint(d.Severity.String()),
		p.code.Sprint(d.Code.ID()),
		d.Message,
	)
	if file != nil && len(file.Content) > 0 {
		snippet(w, file, start, end, int(opts.Context), p)
	}
	if !opts.ShowNotes {
		return
	}
	for _, n := range d.Notes {
		nf, ns, _ := locate(fs, n.Span)
		if nf == nil || n.Span.File != d.Primary.File || (n.Span.Start == 0 && n.Span.End == 0) {
			fmt.Fprintf(w, "  %s %s\n", p.note.Sprint("note:"), n.Msg)
			continue
		}
		fmt.Fprintf(w, "  %s %s:%d:%d: %s\n", p.note.Sprint("note:"),
			formatPath(nf.Path, opts.PathMode, opts.BaseDir), ns.Line, ns.Col, n.Msg)
	}
}

func locate(fs *source.FileSet, sp source.Span) (*source.File, source.LineCol, source.LineCol) {
	if fs == nil {
		return nil, source.LineCol{Line: 1, Col: 1}, source.LineCol{Line: 1, Col: 1}
	}
	start, end := fs.Resolve(sp)
	return fs.Get(sp.File), start, end
}

func snippet(w io.Writer, f *source.File, start, end source.LineCol, context int, p palette) {
	last := uint32(len(f.LineIdx) + 1)
	from := start.Line
	to := start.Line
	if context > 0 {
		c := uint32(context)
		if from > c {
			from -= c
		} else {
			from = 1
		}
		to = min(to+c, last)
	}
	width := len(strconv.FormatUint(uint64(to), 10))
	blank := strings.Repeat(" ", width)

	for n := from; n <= to; n++ {
		line := expandTabs(f.Line(n))
		if n == last && line == "" {
			break
		}
		fmt.Fprintf(w, " %s %s %s\n", p.gutter.Sprintf("%*d", width, n), p.gutter.Sprint("|"), line)
		if n != start.Line {
			continue
		}
		pad, length := caretColumns(f.Line(n), start, end)
		marks := "^" + strings.Repeat("~", max(length-1, 0))
		fmt.Fprintf(w, " %s %s %s%s\n", blank, p.gutter.Sprint("|"), strings.Repeat(" ", pad), p.caret.Sprint(marks))
	}
}

// caretColumns converts the byte columns of a span on line into display
// columns, so wide characters keep the underline aligned.
func caretColumns(line string, start, end source.LineCol) (pad, length int) {
	from := min(int(start.Col)-1, len(line))
	from = max(from, 0)
	pad = runewidth.StringWidth(expandTabs(line[:from]))
	to := len(line)
	if end.Line == start.Line {
		to = min(max(int(end.Col)-1, from), len(line))
	}
	length = runewidth.StringWidth(expandTabs(line[from:to]))
	return pad, max(length, 1)
}

func expandTabs(s string) string {
	return strings.ReplaceAll(s, "\t", "    ")
}
