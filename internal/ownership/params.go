package ownership

import (
	"github.com/paiml/depyler-sub011/internal/hir"
	"github.com/paiml/depyler-sub011/internal/trace"
	"github.com/paiml/depyler-sub011/internal/types"
)

// storingMethods keep their argument inside the receiver.
var storingMethods = map[string]bool{
	"append": true, "insert": true, "add": true, "setdefault": true, "push": true,
}

// decideParams picks the mode of every parameter of fn and reports
// whether any mode changed.
func (a *analyzer) decideParams(fn *hir.Func) bool {
	changed := false
	for _, p := range fn.Params {
		mode := a.paramMode(fn, p)
		if mode != p.Mode {
			p.Mode = mode
			changed = true
		}
	}
	return changed
}

func (a *analyzer) paramMode(fn *hir.Func, p *hir.Param) hir.Ownership {
	ann := fn.Annotations
	switch {
	case p.Type.IsCopy():
		return hir.OwnershipCopy
	case p.Kind == hir.ParamVarArgs || p.Kind == hir.ParamKwArgs:
		return hir.OwnershipOwn
	case fn.IsGenerator() || fn.IsAsync() || fn.Flags.HasFlag(hir.FuncReturnsIterator):
		// The returned state outlives the call frame.
		return hir.OwnershipOwn
	case fn.Name == "__init__":
		return hir.OwnershipOwn
	case ann.Ownership == "owned":
		return hir.OwnershipOwn
	case fn.Mutable.Contains(p.Name):
		return hir.OwnershipOwn
	case p.Mutated:
		return hir.OwnershipRefMut
	case a.escapes(fn, p.Name):
		return hir.OwnershipOwn
	case optionalContainer(p):
		return hir.OwnershipRefMut
	}
	return hir.OwnershipRef
}

// optionalContainer reports an optional list, dict or set parameter
// whose default is None. It is borrowed exclusively so the body can
// fill it in place.
func optionalContainer(p *hir.Param) bool {
	if p.Type.Kind != types.KindOptional || p.Default == nil || !hir.IsNoneLit(p.Default) {
		return false
	}
	switch p.Type.Elem.Kind {
	case types.KindList, types.KindDict, types.KindSet:
		return true
	}
	return false
}

// escapes reports whether fn stores or returns the value bound to name,
// which requires owning it.
func (a *analyzer) escapes(fn *hir.Func, name string) bool {
	found := false
	is := func(e *hir.Expr) bool { return hir.NameOf(e) == name }
	var flows func(e *hir.Expr) bool
	flows = func(e *hir.Expr) bool {
		if e == nil {
			return false
		}
		if is(e) {
			return true
		}
		switch d := e.Data.(type) {
		case *hir.ElemsData:
			for _, el := range d.Elems {
				if flows(el) {
					return true
				}
			}
		case *hir.DictData:
			for _, v := range d.Values {
				if flows(v) {
					return true
				}
			}
			for _, k := range d.Keys {
				if flows(k) {
					return true
				}
			}
		case *hir.IfExprData:
			return flows(d.Then) || flows(d.Else)
		case *hir.LambdaData:
			return hasFreeName(d, name)
		}
		return false
	}
	hir.Inspect(fn.Body, hir.Visitor{
		Stmt: func(s *hir.Stmt) bool {
			switch d := s.Data.(type) {
			case *hir.ReturnData:
				found = found || flows(d.Value)
			case *hir.AssignData:
				switch d.Target.Kind {
				case hir.TargetSubscript, hir.TargetAttribute:
					found = found || flows(d.Value)
				case hir.TargetSymbol:
					if is(d.Value) && fn.Mutable.Contains(d.Target.Name) {
						found = true
					}
				}
			}
			return !found
		},
		Expr: func(e *hir.Expr) bool {
			switch d := e.Data.(type) {
			case *hir.YieldData:
				found = found || flows(d.Value)
			case *hir.MethodCallData:
				if d.Target != nil {
					found = found || a.passesOwned(d.Target, d.Args, name)
				} else if storingMethods[d.Method] {
					for _, arg := range d.Args {
						found = found || flows(arg)
					}
				}
			case *hir.CallData:
				switch {
				case d.Class != nil:
					for _, arg := range d.Args {
						found = found || flows(arg)
					}
					for _, kw := range d.Kwargs {
						found = found || flows(kw.Value)
					}
				case d.Target != nil:
					found = found || a.passesOwned(d.Target, d.Args, name)
				}
			}
			return !found
		},
	})
	return found
}

func (a *analyzer) passesOwned(callee *hir.Func, args []*hir.Expr, name string) bool {
	positional := positionalParams(callee)
	for i, arg := range args {
		if hir.NameOf(arg) != name {
			continue
		}
		if i < len(positional) && positional[i].Mode == hir.OwnershipOwn {
			return true
		}
		if i >= len(positional) {
			return true
		}
	}
	return false
}

func hasFreeName(l *hir.LambdaData, name string) bool {
	for _, p := range l.Params {
		if p.Name == name {
			return false
		}
	}
	found := false
	hir.InspectExpr(l.Body, hir.Visitor{Expr: func(e *hir.Expr) bool {
		if hir.NameOf(e) == name {
			found = true
		}
		return !found
	}})
	return found
}

func (a *analyzer) recordParams(fn *hir.Func) {
	for _, p := range fn.Params {
		if p.Mode == hir.OwnershipCopy {
			continue
		}
		reason := "read only"
		switch p.Mode {
		case hir.OwnershipOwn:
			reason = "stored, returned or reassigned"
		case hir.OwnershipRefMut:
			reason = "mutated in the body"
			if !p.Mutated && optionalContainer(p) {
				reason = "optional container defaulting to None"
			}
		}
		a.record(fn, trace.DecisionBorrowStrategy, p.Name+": "+p.Mode.String()+" "+p.Type.String(), reason, p.Span)
	}
}

// cloneable reports whether the Rust spelling of t implements Clone.
func cloneable(t *types.Type) bool {
	if t == nil {
		return true
	}
	switch t.Kind {
	case types.KindIterator, types.KindFunc:
		return false
	case types.KindExtern:
		switch t.Name {
		case types.ExtFile, types.ExtPopen, types.ExtCSVReader, types.ExtCSVWriter,
			types.ExtCSVDictReader, types.ExtCSVDictWriter, types.ExtMatch:
			return false
		}
	case types.KindOptional, types.KindList, types.KindSet:
		return cloneable(t.Elem)
	case types.KindDict:
		return cloneable(t.Key) && cloneable(t.Value)
	}
	return true
}
