package ownership

import (
	"github.com/paiml/depyler-sub011/internal/diag"
	"github.com/paiml/depyler-sub011/internal/hir"
	"github.com/paiml/depyler-sub011/internal/trace"
	"github.com/paiml/depyler-sub011/internal/types"
)

// position is how an occurrence consumes its value.
type position uint8

const (
	posRead      position = iota // operand, receiver, condition
	posValue                     // moved into a new owner
	posBorrow                    // passed to a shared-borrow parameter
	posBorrowMut                 // passed to an exclusive-borrow parameter
	posIter                      // iterated over
)

// event is one occurrence of a binding in program order.
type event struct {
	name   string
	assign bool
	expr   *hir.Expr // nil for assignments
	pos    position
	loops  int // enclosing loop depth
}

// iterBuiltins consume an iterable argument.
var iterBuiltins = map[string]bool{
	"list": true, "set": true, "tuple": true, "sorted": true, "reversed": true,
	"enumerate": true, "zip": true, "sum": true, "min": true, "max": true,
	"any": true, "all": true, "map": true, "filter": true, "iter": true, "dict": true, "frozenset": true,
}

type collector struct {
	a      *analyzer
	fn     *hir.Func
	events []event
	loops  int
	shadow map[string]int // comprehension and lambda bindings in scope
}

// decideUses sets Expr.Use for every occurrence of a non-copy binding.
func (a *analyzer) decideUses(fn *hir.Func) {
	c := &collector{a: a, fn: fn, shadow: map[string]int{}}
	c.block(fn.Body)

	intro := map[string]int{}
	for _, p := range fn.Params {
		intro[p.Name] = 0
	}
	for i, ev := range c.events {
		if ev.assign {
			if _, ok := intro[ev.name]; !ok {
				intro[ev.name] = ev.loops
			}
			continue
		}
		depth, local := intro[ev.name]
		last := local && c.lastUse(i) && ev.loops <= depth
		a.decide(fn, ev, local, last)
	}
}

// lastUse reports whether no later read of the same binding happens
// before it is reassigned.
func (c *collector) lastUse(i int) bool {
	name := c.events[i].name
	for _, ev := range c.events[i+1:] {
		if ev.name != name {
			continue
		}
		return ev.assign
	}
	return true
}

func (a *analyzer) decide(fn *hir.Func, ev event, local, last bool) {
	e := ev.expr
	t := e.Type
	if t.IsCopy() {
		if ev.pos != posRead {
			e.Use = hir.UseCopy
		}
		return
	}
	p := fn.Param(ev.name)
	borrowedParam := p != nil && (p.Mode == hir.OwnershipRef || p.Mode == hir.OwnershipRefMut)
	ann := fn.Annotations
	switch ev.pos {
	case posRead:
		return
	case posBorrow:
		if !borrowedParam {
			e.Use = hir.UseBorrow
		}
		return
	case posBorrowMut:
		if !borrowedParam {
			e.Use = hir.UseBorrowMut
		}
		return
	case posIter:
		if last && !borrowedParam && local {
			e.Use = hir.UseMove
			fn.Moved.Insert(ev.name)
		} else {
			e.Use = hir.UseBorrow
		}
		return
	}
	switch {
	case contains(ann.Borrow, ev.name):
		e.Use = hir.UseBorrow
	case contains(ann.Clone, ev.name):
		e.Use = hir.UseClone
		a.record(fn, trace.DecisionOwnership, ev.name+".clone()", "clone requested by annotation", e.Span)
	case borrowedParam || !local:
		e.Use = hir.UseClone
		a.record(fn, trace.DecisionOwnership, ev.name+".clone()", "value is borrowed here", e.Span)
	case last:
		e.Use = hir.UseMove
		fn.Moved.Insert(ev.name)
	case !cloneable(t):
		e.Use = hir.UseMove
		fn.Moved.Insert(ev.name)
		a.report(diag.OwnUseAfterMove, e.Span, "%s (%s) is used after being moved and cannot be cloned", ev.name, t)
	default:
		e.Use = hir.UseClone
		a.record(fn, trace.DecisionOwnership, ev.name+".clone()", "used again later", e.Span)
	}
}

func contains(xs []string, x string) bool {
	for _, s := range xs {
		if s == x {
			return true
		}
	}
	return false
}

func (c *collector) use(e *hir.Expr, name string, pos position) {
	if c.shadow[name] > 0 {
		return
	}
	c.events = append(c.events, event{name: name, expr: e, pos: pos, loops: c.loops})
}

func (c *collector) assign(name string) {
	if name == "" || c.shadow[name] > 0 {
		return
	}
	c.events = append(c.events, event{name: name, assign: true, loops: c.loops})
}

func (c *collector) block(b *hir.Block) {
	if b == nil {
		return
	}
	for _, s := range b.Stmts {
		c.stmt(s)
	}
}

func (c *collector) stmt(s *hir.Stmt) {
	switch d := s.Data.(type) {
	case *hir.AssignData:
		c.expr(d.Value, posValue)
		c.target(d.Target)
	case *hir.AugAssignData:
		pos := posRead
		if d.Target.Type != nil && !d.Target.Type.IsCopy() && d.Op == hir.OpAdd {
			pos = posValue
		}
		c.expr(d.Value, pos)
		if d.Target.Kind == hir.TargetSymbol {
			c.events = append(c.events, event{name: d.Target.Name, expr: nil, assign: true, loops: c.loops})
		} else {
			c.target(d.Target)
		}
	case *hir.ReturnData:
		c.expr(d.Value, posValue)
	case *hir.IfData:
		c.expr(d.Cond, posRead)
		c.block(d.Then)
		c.block(d.Else)
	case *hir.WhileData:
		c.loops++
		c.expr(d.Cond, posRead)
		c.block(d.Body)
		c.loops--
	case *hir.ForData:
		c.expr(d.Iter, posIter)
		c.loops++
		c.target(d.Target)
		c.block(d.Body)
		c.loops--
	case *hir.ExprStmtData:
		c.expr(d.Value, posRead)
	case *hir.RaiseData:
		c.expr(d.Exc, posRead)
	case *hir.WithData:
		for _, it := range d.Items {
			c.expr(it.Context, posValue)
			c.assign(it.Name)
		}
		c.block(d.Body)
	case *hir.TryData:
		c.block(d.Body)
		for _, h := range d.Handlers {
			c.assign(h.Name)
			c.block(h.Body)
		}
		c.block(d.Else)
		c.block(d.Finally)
	case *hir.AssertData:
		c.expr(d.Test, posRead)
		c.expr(d.Msg, posRead)
	case *hir.BlockData:
		c.block(d.Body)
	case *hir.FuncDefData:
		// The nested body reads outer bindings wherever it is called.
		for _, name := range freeNames(d.Func) {
			if c.fn.LocalType(name) != nil {
				c.events = append(c.events, event{name: name, expr: &hir.Expr{Type: c.fn.LocalType(name)}, loops: c.loops + 1})
			}
		}
		c.assign(d.Func.Name)
	}
}

func (c *collector) target(t *hir.Target) {
	if t == nil {
		return
	}
	switch t.Kind {
	case hir.TargetSymbol:
		c.assign(t.Name)
	case hir.TargetTuple:
		for _, el := range t.Elems {
			c.target(el)
		}
	default:
		c.expr(t.Base, posRead)
		c.expr(t.Index, posRead)
	}
}

func (c *collector) exprs(es []*hir.Expr, pos position) {
	for _, e := range es {
		c.expr(e, pos)
	}
}

func (c *collector) expr(e *hir.Expr, pos position) {
	if e == nil {
		return
	}
	switch d := e.Data.(type) {
	case *hir.NameData:
		c.use(e, d.Name, pos)
	case *hir.BinaryData:
		c.expr(d.Left, posRead)
		c.expr(d.Right, posRead)
	case *hir.UnaryData:
		c.expr(d.Operand, posRead)
	case *hir.CallData:
		switch {
		case d.Class != nil:
			c.exprs(d.Args, posValue)
			for _, kw := range d.Kwargs {
				c.expr(kw.Value, posValue)
			}
		case d.Target != nil:
			c.args(d.Target, d.Args, d.Kwargs)
		case iterBuiltins[d.Func] && len(d.Args) > 0:
			c.expr(d.Args[0], posIter)
			c.exprs(d.Args[1:], posRead)
			c.kwargs(d.Kwargs, posRead)
		default:
			c.exprs(d.Args, posRead)
			c.kwargs(d.Kwargs, posRead)
		}
	case *hir.DynCallData:
		c.expr(d.Callee, posRead)
		c.exprs(d.Args, posValue)
	case *hir.MethodCallData:
		c.expr(d.Recv, posRead)
		switch {
		case d.Target != nil:
			c.args(d.Target, d.Args, d.Kwargs)
		case d.Module == nil && storingMethods[d.Method]:
			c.exprs(d.Args, posValue)
			c.kwargs(d.Kwargs, posRead)
		default:
			c.exprs(d.Args, posRead)
			c.kwargs(d.Kwargs, posRead)
		}
	case *hir.IndexData:
		c.expr(d.Base, posRead)
		c.expr(d.Index, posRead)
		c.cloneProjection(e, pos)
	case *hir.SliceData:
		c.expr(d.Base, posRead)
		c.expr(d.Start, posRead)
		c.expr(d.Stop, posRead)
		c.expr(d.Step, posRead)
	case *hir.AttrData:
		if d.Module == nil {
			c.expr(d.Base, posRead)
			c.cloneProjection(e, pos)
		}
	case *hir.ElemsData:
		c.exprs(d.Elems, posValue)
	case *hir.DictData:
		c.exprs(d.Keys, posValue)
		c.exprs(d.Values, posValue)
	case *hir.CompData:
		c.comp(d)
	case *hir.LambdaData:
		for _, p := range d.Params {
			c.shadow[p.Name]++
		}
		c.expr(d.Body, posRead)
		for _, p := range d.Params {
			c.shadow[p.Name]--
		}
	case *hir.BorrowData:
		c.expr(d.Value, posRead)
	case *hir.AwaitData:
		c.expr(d.Value, posValue)
	case *hir.YieldData:
		c.expr(d.Value, posValue)
	case *hir.FStringData:
		for _, part := range d.Parts {
			c.expr(part.Expr, posRead)
		}
	case *hir.NamedData:
		c.expr(d.Value, posValue)
		c.assign(d.Name)
	case *hir.IfExprData:
		c.expr(d.Cond, posRead)
		c.expr(d.Then, pos)
		c.expr(d.Else, pos)
	case *hir.SortByKeyData:
		c.expr(d.Iter, posIter)
		c.expr(d.Key, posRead)
		c.expr(d.Reverse, posRead)
	}
}

// cloneProjection marks a field or element read that must be copied out
// of its container when it is moved somewhere.
func (c *collector) cloneProjection(e *hir.Expr, pos position) {
	if pos == posValue && !e.Type.IsCopy() {
		e.Use = hir.UseClone
	}
}

func (c *collector) kwargs(kws []*hir.Kwarg, pos position) {
	for _, kw := range kws {
		c.expr(kw.Value, pos)
	}
}

// args places each argument by the mode of the parameter it binds.
func (c *collector) args(callee *hir.Func, args []*hir.Expr, kwargs []*hir.Kwarg) {
	positional := positionalParams(callee)
	for i, arg := range args {
		pos := posValue
		if i < len(positional) {
			pos = argPosition(positional[i], arg)
		}
		c.expr(arg, pos)
	}
	for _, kw := range kwargs {
		pos := posValue
		if p := callee.Param(kw.Name); p != nil {
			pos = argPosition(p, kw.Value)
		}
		c.expr(kw.Value, pos)
	}
}

// argPosition is paramPosition for one argument. A plain value passed
// to a borrowed optional parameter is wrapped in a fresh Some, so it is
// consumed rather than borrowed.
func argPosition(p *hir.Param, arg *hir.Expr) position {
	if p.Mode == hir.OwnershipRefMut && p.Type.Kind == types.KindOptional &&
		arg.Type != nil && arg.Type.Kind != types.KindOptional {
		return posValue
	}
	return paramPosition(p)
}

func paramPosition(p *hir.Param) position {
	switch p.Mode {
	case hir.OwnershipRef:
		return posBorrow
	case hir.OwnershipRefMut:
		return posBorrowMut
	}
	return posValue
}

func (c *collector) comp(d *hir.CompData) {
	var bound []string
	for i, g := range d.Gens {
		if i == 0 {
			c.expr(g.Iter, posIter)
		} else {
			c.expr(g.Iter, posRead)
		}
		for _, name := range targetNames(g.Target) {
			c.shadow[name]++
			bound = append(bound, name)
		}
		c.exprs(g.Ifs, posRead)
	}
	c.expr(d.Elem, posRead)
	c.expr(d.Value, posRead)
	for _, name := range bound {
		c.shadow[name]--
	}
}

func targetNames(t *hir.Target) []string {
	if t == nil {
		return nil
	}
	if t.Kind == hir.TargetSymbol {
		return []string{t.Name}
	}
	var out []string
	for _, el := range t.Elems {
		out = append(out, targetNames(el)...)
	}
	return out
}
