package hir

import (
	"github.com/paiml/depyler-sub011/internal/source"
	"github.com/paiml/depyler-sub011/internal/types"
)

// Module is one translation unit in program order.
type Module struct {
	Name        string
	Path        string
	Doc         string
	Imports     []*Import
	TypeAliases []*TypeAlias
	Globals     []*Global
	Funcs       []*Func
	Classes     []*Class
	Protocols   []*Protocol
	// Entry holds executable top-level statements and the body of the
	// `if __name__ == "__main__":` guard, in source order.
	Entry *Block
}

// Func looks up a module-level function by name.
func (m *Module) Func(name string) *Func {
	for _, f := range m.Funcs {
		if f.Name == name {
			return f
		}
	}
	return nil
}

// Class looks up a class by source name.
func (m *Module) Class(name string) *Class {
	for _, c := range m.Classes {
		if c.Name == name {
			return c
		}
	}
	return nil
}

// Global looks up a module-level binding by name.
func (m *Module) Global(name string) *Global {
	for _, g := range m.Globals {
		if g.Name == name {
			return g
		}
	}
	return nil
}

// Import looks up the import binding a local name, if any.
func (m *Module) Import(local string) *Import {
	for _, imp := range m.Imports {
		if imp.LocalName() == local {
			return imp
		}
	}
	return nil
}

// ImportedItem finds the import that brought name in via `from m import name`.
func (m *Module) ImportedItem(local string) (*Import, *ImportItem) {
	for _, imp := range m.Imports {
		for _, it := range imp.Items {
			if it.LocalName() == local {
				return imp, it
			}
		}
	}
	return nil, nil
}

// AllFuncs yields every function including methods, in declaration order.
func (m *Module) AllFuncs() []*Func {
	out := make([]*Func, 0, len(m.Funcs))
	out = append(out, m.Funcs...)
	for _, c := range m.Classes {
		out = append(out, c.Methods...)
	}
	return out
}

// Import is one resolved import statement.
type Import struct {
	Module   string        // source module, e.g. "os.path"
	Alias    string        // `import m as alias`
	Items    []*ImportItem // `from m import a, b`; empty for plain imports
	Path     string        // target path, e.g. "std::path"
	Crate    string        // external crate the path lives in, "" for std
	Version  string        // crate version requirement
	Resolved bool          // false when the module mapper has no entry
	Span     source.Span
}

// LocalName is the name a plain import binds in module scope.
func (imp *Import) LocalName() string {
	if imp.Alias != "" {
		return imp.Alias
	}
	return imp.Module
}

// Item finds the mapping for a source symbol of this module.
func (imp *Import) Item(name string) *ImportItem {
	for _, it := range imp.Items {
		if it.Name == name {
			return it
		}
	}
	return nil
}

// ImportItem maps one imported symbol to its target spelling.
type ImportItem struct {
	Name  string
	Alias string
	Rust  string // target path or method spelling, "" when unmapped
}

func (it *ImportItem) LocalName() string {
	if it.Alias != "" {
		return it.Alias
	}
	return it.Name
}

type TypeAlias struct {
	Name string
	Type *types.Type
	Span source.Span
}

// GlobalKind says how a module-level binding is emitted.
type GlobalKind uint8

const (
	// GlobalConst is a read-only primitive: `pub const`.
	GlobalConst GlobalKind = iota
	// GlobalStatic is a read-only value needing runtime init: LazyLock.
	GlobalStatic
	// GlobalMutable is rebound through `global`: LazyLock<Mutex<T>>.
	GlobalMutable
	// GlobalLocal stays a local of the entry function.
	GlobalLocal
)

func (k GlobalKind) String() string {
	switch k {
	case GlobalConst:
		return "const"
	case GlobalStatic:
		return "static"
	case GlobalMutable:
		return "mutable"
	case GlobalLocal:
		return "local"
	default:
		return "?"
	}
}

// Global is a module-level binding.
type Global struct {
	Name  string
	Type  *types.Type
	Value *Expr
	Kind  GlobalKind
	Span  source.Span
}

// Class is a lowered class definition.
type Class struct {
	Name       string
	RustName   string // after std-name collision handling
	Base       string // single base class, "" when none
	Fields     []*Field
	Methods    []*Func
	Constants  []*Global
	Decorators []string
	Dataclass  bool
	Doc        string
	Span       source.Span
}

// Method finds a method by name.
func (c *Class) Method(name string) *Func {
	for _, m := range c.Methods {
		if m.Name == name {
			return m
		}
	}
	return nil
}

// Field finds a field by name.
func (c *Class) Field(name string) *Field {
	for _, f := range c.Fields {
		if f.Name == name {
			return f
		}
	}
	return nil
}

type Field struct {
	Name    string
	Type    *types.Type
	Default *Expr
	Span    source.Span
}

// Protocol is a structural interface: `class P(Protocol)`.
type Protocol struct {
	Name    string
	Methods []*Func // bodies are empty
	Doc     string
	Span    source.Span
}
