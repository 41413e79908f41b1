package bridge

import (
	"fmt"
	"strings"

	"github.com/hashicorp/go-set/v3"
	"golang.org/x/text/unicode/norm"

	"github.com/paiml/depyler-sub011/internal/diag"
	"github.com/paiml/depyler-sub011/internal/hir"
	"github.com/paiml/depyler-sub011/internal/pyast"
	"github.com/paiml/depyler-sub011/internal/source"
	"github.com/paiml/depyler-sub011/internal/trace"
)

// Options configures one lowering.
type Options struct {
	ModuleName  string
	Imports     ImportTable                // nil means DefaultImportTable
	Annotations map[string]hir.Annotations // keyed by qualified name
	Decisions   *trace.DecisionLog
}

// Lower converts mod into HIR. Spans are resolved against file in fs;
// fs may be nil for synthesized trees.
func Lower(mod *pyast.Module, fs *source.FileSet, file source.FileID, opts Options, rep diag.Reporter) *hir.Module {
	if rep == nil {
		rep = diag.NopReporter{}
	}
	if opts.Imports == nil {
		opts.Imports = DefaultImportTable()
	}
	name := opts.ModuleName
	if name == "" {
		name = moduleNameOf(mod.Path)
	}
	l := &lowerer{
		fs:        fs,
		file:      file,
		opts:      opts,
		rep:       rep,
		module:    &hir.Module{Name: name, Path: mod.Path, Entry: &hir.Block{}},
		classes:   map[string]bool{},
		protocols: map[string]bool{},
	}
	l.lowerModule(mod)
	return l.module
}

func moduleNameOf(path string) string {
	base := path
	if i := strings.LastIndexAny(base, `/\`); i >= 0 {
		base = base[i+1:]
	}
	for _, ext := range []string{".pyast.mp", ".json", ".py"} {
		base = strings.TrimSuffix(base, ext)
	}
	if base == "" {
		return "main"
	}
	return base
}

// lowerer holds context for the lowering pass.
type lowerer struct {
	fs      *source.FileSet
	file    source.FileID
	opts    Options
	rep     diag.Reporter
	module  *hir.Module
	classes map[string]bool // class names declared in the module

	fn        *hir.Func // function being lowered, nil at module scope
	entry     *hir.Func // synthesized script entry
	entryVars *set.Set[string]
	bound     *set.Set[string] // names bound in the current function
	loops     []loopCtx
	labelSeq  int
	protocols map[string]bool
	typeVars  *set.Set[string]
}

// loopCtx tracks the innermost loops; elseLabel is set when the loop has
// an else clause and `break` must leave the surrounding labelled block.
type loopCtx struct {
	elseLabel string
}

func (l *lowerer) span(n pyast.Node) source.Span {
	if n == nil || l.fs == nil {
		return source.NoSpan
	}
	p := n.Position()
	if p.Line == 0 {
		return source.Span{File: l.file}
	}
	return l.fs.SpanOf(l.file, p.Line, p.Col, p.EndLine, p.EndCol)
}

func (l *lowerer) unsupported(code diag.Code, n pyast.Node, format string, args ...any) {
	diag.Report(l.rep, code, l.span(n), format, args...).Emit()
}

func (l *lowerer) newLabel(prefix string) string {
	l.labelSeq++
	return fmt.Sprintf("%s_%d", prefix, l.labelSeq)
}

// ident normalizes a Python identifier the way the interpreter does
// (NFKC), so visually identical names bind the same symbol.
func ident(name string) string {
	if isASCII(name) {
		return name
	}
	return norm.NFKC.String(name)
}

func isASCII(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] >= 0x80 {
			return false
		}
	}
	return true
}

func (l *lowerer) site() string {
	if l.fn == nil {
		return "<module>"
	}
	return l.fn.QualName()
}

func (l *lowerer) record(cat trace.DecisionCategory, choice, reason string, sp source.Span) {
	l.opts.Decisions.Record(cat, l.site(), choice, reason, sp)
}

func (l *lowerer) annotationsFor(qual string) hir.Annotations {
	if l.opts.Annotations == nil {
		return hir.Annotations{}
	}
	return l.opts.Annotations[qual]
}
