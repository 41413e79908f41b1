package bridge

import (
	"strings"

	"github.com/paiml/depyler-sub011/internal/diag"
	"github.com/paiml/depyler-sub011/internal/hir"
	"github.com/paiml/depyler-sub011/internal/pyast"
	"github.com/paiml/depyler-sub011/internal/source"
	"github.com/paiml/depyler-sub011/internal/trace"
)

func (l *lowerer) lowerImport(st *pyast.Import) {
	for _, a := range st.Names {
		imp := l.resolveImport(a.Name, l.span(st))
		imp.Alias = ident(a.AsName)
		l.addImport(imp, st)
	}
}

func (l *lowerer) lowerImportFrom(st *pyast.ImportFrom) {
	if st.Level > 0 {
		l.unsupported(diag.UnsImport, st, "relative import from %q is not supported", st.Module)
		return
	}
	imp := l.resolveImport(st.Module, l.span(st))
	m := l.opts.Imports.Lookup(st.Module)
	for _, a := range st.Names {
		if a.Name == "*" {
			l.unsupported(diag.UnsImport, st, "wildcard import from %q", st.Module)
			continue
		}
		it := &hir.ImportItem{Name: a.Name, Alias: ident(a.AsName)}
		if m != nil {
			it.Rust = m.Items[a.Name]
		}
		// `from os import path` names a submodule.
		if sub := l.opts.Imports.Lookup(st.Module + "." + a.Name); sub != nil && it.Rust == "" {
			it.Rust = sub.RustPath
		}
		imp.Items = append(imp.Items, it)
	}
	l.addImport(imp, st)
}

func (l *lowerer) resolveImport(module string, sp source.Span) *hir.Import {
	imp := &hir.Import{Module: module, Span: sp}
	if m := l.opts.Imports.Lookup(module); m != nil {
		imp.Path = m.RustPath
		imp.Crate = m.Crate
		imp.Version = m.Version
		imp.Resolved = true
		choice := m.RustPath
		if choice == "" {
			choice = "(types only)"
		}
		l.record(trace.DecisionImportResolve, module+" -> "+choice, crateReason(m), sp)
	}
	return imp
}

func crateReason(m *ModuleMapping) string {
	if m.External() {
		return "external crate " + m.Crate + " " + m.Version
	}
	return "standard library"
}

func (l *lowerer) addImport(imp *hir.Import, n pyast.Node) {
	if !imp.Resolved {
		diag.ReportWarning(l.rep, diag.UnsImport, l.span(n),
			"module "+imp.Module+" has no Rust mapping; calls into it are emitted as-is").Emit()
	}
	l.module.Imports = append(l.module.Imports, imp)
}

// dottedName spells a chain of attribute accesses on a name, e.g.
// "os.path" for os.path, or "" for anything else.
func dottedName(e pyast.Expr) string {
	switch v := e.(type) {
	case *pyast.Name:
		return ident(v.ID)
	case *pyast.Attribute:
		base := dottedName(v.Value)
		if base == "" {
			return ""
		}
		return base + "." + v.Attr
	}
	return ""
}

// moduleRef resolves e to an imported module when it names one. Dotted
// submodules of an imported root (os.path after `import os`) are added
// as implicit imports.
func (l *lowerer) moduleRef(e pyast.Expr) *hir.Import {
	name := dottedName(e)
	if name == "" || l.isLocal(rootOf(name)) {
		return nil
	}
	if imp := l.module.Import(name); imp != nil && len(imp.Items) == 0 {
		return imp
	}
	// `from os import path` binds the submodule to a local name.
	if imp, it := l.module.ImportedItem(name); imp != nil {
		full := imp.Module + "." + it.Name
		if m := l.opts.Imports.Lookup(full); m != nil {
			if existing := l.module.Import(full); existing != nil {
				return existing
			}
			sub := l.resolveImport(full, imp.Span)
			sub.Alias = name
			l.module.Imports = append(l.module.Imports, sub)
			return sub
		}
		return nil
	}
	root := rootOf(name)
	if root == name || l.module.Import(root) == nil {
		return nil
	}
	full := l.module.Import(root).Module + strings.TrimPrefix(name, root)
	if l.opts.Imports.Lookup(full) == nil {
		return nil
	}
	if existing := l.module.Import(full); existing != nil {
		return existing
	}
	sub := l.resolveImport(full, l.module.Import(root).Span)
	l.module.Imports = append(l.module.Imports, sub)
	return sub
}

func rootOf(dotted string) string {
	if i := strings.IndexByte(dotted, '.'); i >= 0 {
		return dotted[:i]
	}
	return dotted
}
