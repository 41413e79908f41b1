package ownership

import (
	"github.com/paiml/depyler-sub011/internal/hir"
	"github.com/paiml/depyler-sub011/internal/types"
)

// mutatingMethods are receiver-mutating methods of builtin and library
// types, keyed by name only: a dynamic receiver calling one is treated
// as mutated too.
var mutatingMethods = map[string]bool{
	"append": true, "extend": true, "insert": true, "remove": true, "pop": true,
	"clear": true, "sort": true, "reverse": true, "add": true, "discard": true,
	"update": true, "setdefault": true, "popitem": true, "__delitem__": true,
	"difference_update": true, "intersection_update": true,
	"write": true, "writelines": true, "flush": true, "writerow": true,
	"writerows": true, "writeheader": true, "add_argument": true,
	"wait": true, "communicate": true, "kill": true, "terminate": true, "poll": true,
	"shuffle": true, "seed": true,
}

// randomMethods mutate an explicit random generator.
var randomMethods = map[string]bool{
	"randint": true, "randrange": true, "random": true, "uniform": true, "choice": true,
	"sample": true, "gauss": true, "getrandbits": true,
}

// IsMutatingMethod reports whether calling method on a receiver of type
// rt mutates the receiver.
func IsMutatingMethod(rt *types.Type, method string) bool {
	if rt.IsExtern(types.ExtRandom) && randomMethods[method] {
		return true
	}
	if rt != nil && rt.Kind == types.KindStr {
		return false
	}
	return mutatingMethods[method]
}

// scanMutation recomputes fn's mutable bindings and mutated parameters.
// It reports whether anything new was found.
func (a *analyzer) scanMutation(fn *hir.Func) bool {
	changed := false
	assigned := map[string]int{}
	mutate := func(root string) {
		switch {
		case root == "":
		case root == "self":
			if fn.IsMethod() && !fn.Flags.HasFlag(hir.FuncMutSelf) {
				fn.Flags |= hir.FuncMutSelf
				changed = true
			}
		case fn.Globals.Contains(root):
		default:
			if p := fn.Param(root); p != nil {
				if !p.Mutated && !p.Type.IsCopy() {
					p.Mutated = true
					changed = true
				}
				return
			}
			if !fn.Mutable.Contains(root) {
				fn.Mutable.Insert(root)
				changed = true
			}
		}
	}
	var assign func(t *hir.Target)
	assign = func(t *hir.Target) {
		if t == nil {
			return
		}
		switch t.Kind {
		case hir.TargetSymbol:
			assigned[t.Name]++
		case hir.TargetTuple:
			for _, el := range t.Elems {
				assign(el)
			}
		case hir.TargetSubscript, hir.TargetAttribute:
			mutate(hir.RootName(t.Base))
		}
	}
	hir.Inspect(fn.Body, hir.Visitor{
		Stmt: func(s *hir.Stmt) bool {
			switch d := s.Data.(type) {
			case *hir.AssignData:
				assign(d.Target)
			case *hir.AugAssignData:
				if d.Target.Kind == hir.TargetSymbol {
					assigned[d.Target.Name] += 2
				} else {
					assign(d.Target)
				}
			}
			return true
		},
		Expr: func(e *hir.Expr) bool {
			switch d := e.Data.(type) {
			case *hir.NamedData:
				assigned[d.Name]++
			case *hir.MethodCallData:
				if d.Module != nil {
					break
				}
				switch {
				case d.Target != nil:
					if d.Target.Flags.HasFlag(hir.FuncMutSelf) {
						mutate(hir.RootName(d.Recv))
					}
					a.mutateArgs(d.Target, d.Args, mutate)
				case IsMutatingMethod(d.Recv.Type, d.Method):
					mutate(hir.RootName(d.Recv))
				}
			case *hir.CallData:
				if d.Target != nil {
					a.mutateArgs(d.Target, d.Args, mutate)
				}
			}
			return true
		},
	})
	for name, n := range assigned {
		if fn.Globals.Contains(name) {
			continue
		}
		if n > 1 || fn.Param(name) != nil {
			if !fn.Mutable.Contains(name) {
				fn.Mutable.Insert(name)
				changed = true
			}
		}
	}
	return changed
}

// mutateArgs marks arguments bound to mutated parameters of callee.
func (a *analyzer) mutateArgs(callee *hir.Func, args []*hir.Expr, mutate func(string)) {
	positional := positionalParams(callee)
	for i, arg := range args {
		if i < len(positional) && positional[i].Mutated {
			mutate(hir.RootName(arg))
		}
	}
}

func positionalParams(fn *hir.Func) []*hir.Param {
	out := make([]*hir.Param, 0, len(fn.Params))
	for _, p := range fn.Params {
		if p.Kind == hir.ParamPositional {
			out = append(out, p)
		}
	}
	return out
}
