package diagfmt

import (
	"fmt"
	"io"

	"github.com/paiml/depyler-sub011/internal/diag"
	"github.com/paiml/depyler-sub011/internal/source"
)

// Short prints one line per diagnostic, without source context:
//
//	<path>:<line>:<col>: <sev> <CODE>: <Message>
func Short(w io.Writer, bag *diag.Bag, fs *source.FileSet, opts PrettyOpts) {
	if bag == nil {
		return
	}
	p := newPalette(opts.Color)
	for _, d := range bag.Items() {
		file, start, _ := locate(fs, d.Primary)
		path := "<unknown>"
		if file != nil {
			path = formatPath(file.Path, opts.PathMode, opts.BaseDir)
		}
		fmt.Fprintf(w, "%s:%d:%d: %s %s: %s\n", path, start.Line, start.Col,
			p.severity(d.Severity).Sprint(d.Severity.String()), d.Code.ID(), d.Message)
	}
}
