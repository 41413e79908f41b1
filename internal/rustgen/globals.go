package rustgen

import (
	"github.com/paiml/depyler-sub011/internal/hir"
	"github.com/paiml/depyler-sub011/internal/trace"
	"github.com/paiml/depyler-sub011/internal/types"
)

// emitGlobals writes module-level bindings. Primitive literals become
// consts, other values are built lazily on first use, and globals some
// function rebinds sit behind a mutex.
func (e *Emitter) emitGlobals() {
	n := 0
	for _, g := range e.mod.Globals {
		if g.Kind == hir.GlobalLocal {
			continue
		}
		t := g.Type
		if t == nil && g.Value != nil {
			t = g.Value.Type
			g.Type = t
		}
		if t == nil {
			continue
		}
		f := e.constEmitter(g.Name, 0, &e.body)
		value := func() string {
			if g.Value == nil {
				return e.mapper.Default(t)
			}
			return f.coerce(g.Value, t)
		}
		switch g.Kind {
		case hir.GlobalConst:
			if g.Value == nil {
				f.line("pub const %s: %s = %s;", g.Name, e.rust(t), value())
			} else if t.Kind == types.KindStr {
				f.line("pub const %s: &str = %s;", g.Name, f.constValue(g.Value, t))
			} else {
				f.line("pub const %s: %s = %s;", g.Name, e.rust(t), f.constValue(g.Value, t))
			}
		case hir.GlobalStatic:
			f.line("pub static %s: std::sync::LazyLock<%s> = std::sync::LazyLock::new(|| %s);", g.Name, e.rust(t), value())
		case hir.GlobalMutable:
			e.record(trace.DecisionOwnership, g.Name, "LazyLock<Mutex<"+e.rust(t)+">>", "module global rebound inside a function", g.Span)
			f.line("pub static %s: std::sync::LazyLock<std::sync::Mutex<%s>> = std::sync::LazyLock::new(|| std::sync::Mutex::new(%s));", g.Name, e.rust(t), value())
		}
		n++
	}
	if n > 0 {
		e.body.WriteString("\n")
	}
}
