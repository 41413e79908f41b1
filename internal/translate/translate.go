// Package translate runs the whole pipeline for one module: bridge, type
// inference, ownership inference and Rust generation.
package translate

import (
	"context"
	"fmt"
	"maps"
	"path/filepath"
	"slices"
	"strings"

	"github.com/paiml/depyler-sub011/internal/bridge"
	"github.com/paiml/depyler-sub011/internal/cargo"
	"github.com/paiml/depyler-sub011/internal/diag"
	"github.com/paiml/depyler-sub011/internal/hir"
	"github.com/paiml/depyler-sub011/internal/infer"
	"github.com/paiml/depyler-sub011/internal/observ"
	"github.com/paiml/depyler-sub011/internal/ownership"
	"github.com/paiml/depyler-sub011/internal/pyast"
	"github.com/paiml/depyler-sub011/internal/rustgen"
	"github.com/paiml/depyler-sub011/internal/source"
	"github.com/paiml/depyler-sub011/internal/trace"
)

// Options configures one translation.
type Options struct {
	ModuleName     string
	Imports        bridge.ImportTable         // merged over the built-in table
	Annotations    map[string]hir.Annotations // keyed by qualified name
	IntType        string                     // "i32" or "i64"
	SafetyMode     bool
	MaxDiagnostics int
	// Verify checks structural HIR invariants after inference and panics
	// on a violation.
	Verify bool
	// Timer receives one phase per pass; nil disables timing.
	Timer *observ.Timer
	// Decisions collects the decision trace; a fresh log is created when nil.
	Decisions *trace.DecisionLog
}

// Result is everything one translation produced.
type Result struct {
	Path      string
	Module    *hir.Module
	Code      string
	Needs     []string          // crates, sorted
	Versions  map[string]string // crate version requirements from the import table
	Bag       *diag.Bag
	Decisions *trace.DecisionLog
	FileSet   *source.FileSet
	File      source.FileID
}

// Failed reports whether any error-severity diagnostic was produced.
func (r *Result) Failed() bool {
	return r == nil || r.Bag.HasErrors()
}

// Module runs bridge, inference, ownership and code generation over an
// already decoded tree. fs may be nil for synthesized trees.
func Module(ctx context.Context, mod *pyast.Module, fs *source.FileSet, file source.FileID, opts Options) *Result {
	if opts.MaxDiagnostics <= 0 {
		opts.MaxDiagnostics = 100
	}
	tracer := trace.FromContext(ctx)
	root := trace.Begin(tracer, trace.ScopeDriver, "translate", trace.ParentFromContext(ctx))
	root.WithFile(mod.Path)

	bag := diag.NewBag(opts.MaxDiagnostics)
	rep := diag.NewDedupReporter(diag.BagReporter{Bag: bag})
	log := opts.Decisions
	if log == nil {
		log = trace.NewDecisionLog(tracer, root.ID())
	}
	timer := opts.Timer

	pass := func(name string, fn func() string) {
		span := root.Child(trace.ScopePass, name)
		idx := timer.Begin(name)
		note := fn()
		timer.End(idx, note)
		span.End(note)
	}

	imports := bridge.DefaultImportTable()
	if opts.Imports != nil {
		imports = imports.Merge(opts.Imports)
	}

	var m *hir.Module
	pass("bridge", func() string {
		m = bridge.Lower(mod, fs, file, bridge.Options{
			ModuleName:  opts.ModuleName,
			Imports:     imports,
			Annotations: opts.Annotations,
			Decisions:   log,
		}, rep)
		return fmt.Sprintf("funcs=%d classes=%d", len(m.Funcs), len(m.Classes))
	})
	pass("infer", func() string {
		infer.Infer(m, infer.Options{Reporter: rep, Decisions: log})
		return fmt.Sprintf("diags=%d", bag.Len())
	})
	if opts.Verify {
		if vs := hir.Verify(m, hir.VerifyOptions{}); len(vs) > 0 {
			panic(fmt.Errorf("hir verification failed: %w", vs[0]))
		}
	}
	pass("ownership", func() string {
		ownership.Analyze(m, ownership.Options{Reporter: rep, Decisions: log})
		return fmt.Sprintf("diags=%d", bag.Len())
	})
	var out *rustgen.Output
	pass("rustgen", func() string {
		out = rustgen.Generate(m, rustgen.Options{
			IntType:    opts.IntType,
			SafetyMode: opts.SafetyMode,
			Reporter:   rep,
			Decisions:  log,
		})
		return fmt.Sprintf("bytes=%d needs=%s", len(out.Code), strings.Join(out.Needs, ","))
	})

	needs, versions := crateNeeds(m, out.Needs)

	bag.Dedup()
	bag.Sort()
	root.End(fmt.Sprintf("diags=%d decisions=%d", bag.Len(), len(log.Entries())))

	return &Result{
		Path:      mod.Path,
		Module:    m,
		Code:      out.Code,
		Needs:     needs,
		Versions:  versions,
		Bag:       bag,
		Decisions: log,
		FileSet:   fs,
		File:      file,
	}
}

// crateNeeds adds crates of imported modules the built-in crate table does
// not know about; generated code only names those through user mappings.
func crateNeeds(m *hir.Module, needs []string) ([]string, map[string]string) {
	out := slices.Clone(needs)
	versions := map[string]string{}
	for _, imp := range m.Imports {
		if imp.Crate == "" {
			continue
		}
		if imp.Version != "" {
			versions[imp.Crate] = imp.Version
		}
		if _, known := cargo.Lookup(imp.Crate); !known && !slices.Contains(out, imp.Crate) {
			out = append(out, imp.Crate)
		}
	}
	slices.Sort(out)
	return out, versions
}

// CargoToml renders the manifest for the translated module. Versions in
// opts win over the ones the import table carried.
func (r *Result) CargoToml(opts cargo.Options) (string, error) {
	versions := maps.Clone(r.Versions)
	if versions == nil {
		versions = map[string]string{}
	}
	maps.Copy(versions, opts.Versions)
	opts.Versions = versions
	if opts.Name == "" && r.Module != nil {
		opts.Name = r.Module.Name
	}
	return cargo.Render(r.Needs, opts)
}

// File loads path with loader and translates it. Load failures are
// returned as errors; everything after loading is a diagnostic.
func File(ctx context.Context, loader pyast.Loader, path string, opts Options) (*Result, error) {
	timer := opts.Timer
	idx := timer.Begin("load")
	doc, err := loader.Load(ctx, path)
	timer.End(idx, "")
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", path, err)
	}
	return Document(ctx, doc, path, opts), nil
}

// Source translates Python text by handing it to loader's interpreter.
func Source(ctx context.Context, loader pyast.Loader, name string, src []byte, opts Options) (*Result, error) {
	doc, err := loader.ParseSource(ctx, name, src)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", name, err)
	}
	return Document(ctx, doc, name, opts), nil
}

// Document translates an already loaded input. Spans resolve against
// doc.Source, which is empty for pre-parsed trees.
func Document(ctx context.Context, doc *pyast.Document, path string, opts Options) *Result {
	fs := source.NewFileSet()
	file := fs.Add(path, doc.Source, 0)
	if opts.ModuleName == "" {
		opts.ModuleName = ModuleName(path)
	}
	return Module(ctx, doc.Module, fs, file, opts)
}

// ModuleName derives a Rust-friendly module name from an input path.
func ModuleName(path string) string {
	base := filepath.Base(path)
	for _, ext := range []string{".pyast.mp", ".mp", ".json", ".py"} {
		if strings.HasSuffix(base, ext) {
			base = strings.TrimSuffix(base, ext)
			break
		}
	}
	var b strings.Builder
	for i, r := range base {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r == '_':
			b.WriteRune(r)
		case r >= '0' && r <= '9':
			if i == 0 {
				b.WriteByte('_')
			}
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	if b.Len() == 0 {
		return "main"
	}
	return b.String()
}
