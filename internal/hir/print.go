package hir

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/paiml/depyler-sub011/internal/types"
)

// DumpOptions configures HIR dumping.
type DumpOptions struct {
	EmitTypes     bool
	EmitOwnership bool
}

// Printer is used to dump HIR to text format.
type Printer struct {
	w      io.Writer
	indent int
	opts   DumpOptions
	err    error
}

// NewPrinter creates a new HIR printer.
func NewPrinter(w io.Writer, opts DumpOptions) *Printer {
	return &Printer{w: w, opts: opts}
}

// Dump writes the HIR module to the writer.
func Dump(w io.Writer, m *Module, opts DumpOptions) error {
	return NewPrinter(w, opts).PrintModule(m)
}

// PrintModule prints a complete module.
func (p *Printer) PrintModule(m *Module) error {
	p.printf("module %s\n", m.Name)
	for _, imp := range m.Imports {
		status := imp.Path
		if !imp.Resolved {
			status = "<unresolved>"
		}
		p.printf("import %s as %s -> %s", imp.Module, imp.LocalName(), status)
		for _, it := range imp.Items {
			p.printf(" %s=%s", it.LocalName(), it.Rust)
		}
		p.printf("\n")
	}
	for _, ta := range m.TypeAliases {
		p.printf("type %s = %s\n", ta.Name, ta.Type)
	}
	for _, g := range m.Globals {
		p.printf("%s %s: %s = %s\n", g.Kind, g.Name, g.Type, p.expr(g.Value))
	}
	for _, pr := range m.Protocols {
		p.printf("protocol %s\n", pr.Name)
		p.indent++
		for _, fn := range pr.Methods {
			p.printf("%sfn %s(%s) -> %s\n", p.pad(), fn.Name, p.params(fn.Params), fn.Result)
		}
		p.indent--
	}
	for _, c := range m.Classes {
		p.printClass(c)
	}
	for _, fn := range m.Funcs {
		p.printFunc(fn)
	}
	if m.Entry.Len() > 0 {
		p.printf("entry\n")
		p.printBlock(m.Entry)
	}
	return p.err
}

func (p *Printer) printClass(c *Class) {
	p.printf("%sclass %s", p.pad(), c.Name)
	if c.RustName != "" && c.RustName != c.Name {
		p.printf(" (as %s)", c.RustName)
	}
	if c.Base != "" {
		p.printf(" : %s", c.Base)
	}
	if c.Dataclass {
		p.printf(" @dataclass")
	}
	p.printf("\n")
	p.indent++
	for _, f := range c.Fields {
		p.printf("%sfield %s: %s\n", p.pad(), f.Name, f.Type)
	}
	for _, k := range c.Constants {
		p.printf("%sconst %s: %s = %s\n", p.pad(), k.Name, k.Type, p.expr(k.Value))
	}
	for _, m := range c.Methods {
		p.printFunc(m)
	}
	p.indent--
}

// PrintFunc prints one function.
func (p *Printer) PrintFunc(fn *Func) error {
	p.printFunc(fn)
	return p.err
}

func (p *Printer) printFunc(fn *Func) {
	p.printf("%sfn %s(%s) -> %s", p.pad(), fn.Name, p.params(fn.Params), fn.Result)
	if fn.Flags != 0 {
		p.printf(" [%s]", fn.Flags)
	}
	if fn.ErrorType != "" && fn.CanFail() {
		p.printf(" raises %s", fn.ErrorType)
	}
	p.printf("\n")
	p.printBlock(fn.Body)
}

func (p *Printer) params(ps []*Param) string {
	parts := make([]string, 0, len(ps))
	for _, prm := range ps {
		s := prm.Name + ": "
		if p.opts.EmitOwnership && prm.Mode != OwnershipOwn {
			s += prm.Mode.String() + " "
		}
		s += prm.Type.String()
		if prm.Kind != ParamPositional {
			s += " (" + prm.Kind.String() + ")"
		}
		if prm.Default != nil {
			s += " = " + p.expr(prm.Default)
		}
		parts = append(parts, s)
	}
	return strings.Join(parts, ", ")
}

func (p *Printer) printBlock(b *Block) {
	if b == nil {
		return
	}
	p.indent++
	for _, s := range b.Stmts {
		p.printStmt(s)
	}
	p.indent--
}

func (p *Printer) printStmt(s *Stmt) {
	pad := p.pad()
	switch d := s.Data.(type) {
	case *AssignData:
		p.printf("%s%s = %s\n", pad, p.target(d.Target), p.expr(d.Value))
	case *AugAssignData:
		p.printf("%s%s %s= %s\n", pad, p.target(d.Target), d.Op, p.expr(d.Value))
	case *ReturnData:
		p.printf("%sreturn %s\n", pad, p.expr(d.Value))
	case *IfData:
		p.printf("%sif %s\n", pad, p.expr(d.Cond))
		p.printBlock(d.Then)
		if d.Else.Len() > 0 {
			p.printf("%selse\n", pad)
			p.printBlock(d.Else)
		}
	case *WhileData:
		p.printf("%s%swhile %s\n", pad, label(d.Label), p.expr(d.Cond))
		p.printBlock(d.Body)
	case *ForData:
		p.printf("%s%sfor %s in %s\n", pad, label(d.Label), p.target(d.Target), p.expr(d.Iter))
		p.printBlock(d.Body)
	case *BranchData:
		word := "break"
		if s.Kind == StmtContinue {
			word = "continue"
		}
		if d.Label != "" {
			word += " '" + d.Label
		}
		p.printf("%s%s\n", pad, word)
	case *ExprStmtData:
		p.printf("%s%s\n", pad, p.expr(d.Value))
	case *RaiseData:
		p.printf("%sraise %s %s\n", pad, d.Class, p.expr(d.Message))
	case *WithData:
		parts := make([]string, len(d.Items))
		for i, it := range d.Items {
			parts[i] = p.expr(it.Context)
			if it.Name != "" {
				parts[i] += " as " + it.Name
			}
		}
		p.printf("%swith %s\n", pad, strings.Join(parts, ", "))
		p.printBlock(d.Body)
	case *TryData:
		p.printf("%stry\n", pad)
		p.printBlock(d.Body)
		for _, h := range d.Handlers {
			p.printf("%sexcept %s", pad, strings.Join(h.Classes, " | "))
			if h.Name != "" {
				p.printf(" as %s", h.Name)
			}
			p.printf("\n")
			p.printBlock(h.Body)
		}
		if d.Else.Len() > 0 {
			p.printf("%selse\n", pad)
			p.printBlock(d.Else)
		}
		if d.Finally.Len() > 0 {
			p.printf("%sfinally\n", pad)
			p.printBlock(d.Finally)
		}
	case *AssertData:
		p.printf("%sassert %s\n", pad, p.expr(d.Test))
	case *BlockData:
		p.printf("%s%sblock\n", pad, label(d.Label))
		p.printBlock(d.Body)
	case *FuncDefData:
		p.printFunc(d.Func)
	case *UnsupportedData:
		p.printf("%s<unsupported %s>\n", pad, d.What)
	default:
		p.printf("%s%s\n", pad, s.Kind)
	}
}

func label(l string) string {
	if l == "" {
		return ""
	}
	return "'" + l + ": "
}

func (p *Printer) target(t *Target) string {
	if t == nil {
		return "_"
	}
	switch t.Kind {
	case TargetSymbol:
		return t.Name
	case TargetSubscript:
		return p.expr(t.Base) + "[" + p.expr(t.Index) + "]"
	case TargetAttribute:
		return p.expr(t.Base) + "." + t.Field
	default:
		parts := make([]string, len(t.Elems))
		for i, e := range t.Elems {
			parts[i] = p.target(e)
		}
		return "(" + strings.Join(parts, ", ") + ")"
	}
}

// FormatExpr renders an expression on one line.
func FormatExpr(e *Expr) string {
	return (&Printer{}).expr(e)
}

func (p *Printer) expr(e *Expr) string {
	if e == nil {
		return "_"
	}
	s := p.exprBody(e)
	if p.opts.EmitOwnership && e.Use != UseDefault {
		s = e.Use.String() + "(" + s + ")"
	}
	if p.opts.EmitTypes && e.Type != nil {
		s += "::" + e.Type.String()
	}
	return s
}

func (p *Printer) list(es []*Expr) string {
	parts := make([]string, len(es))
	for i, e := range es {
		parts[i] = p.expr(e)
	}
	return strings.Join(parts, ", ")
}

func (p *Printer) exprBody(e *Expr) string {
	switch d := e.Data.(type) {
	case *LiteralData:
		switch d.Kind {
		case LiteralInt:
			return d.Text
		case LiteralFloat:
			return strconv.FormatFloat(d.Float, 'g', -1, 64)
		case LiteralStr:
			return strconv.Quote(d.Text)
		case LiteralBool:
			if d.Bool {
				return "True"
			}
			return "False"
		case LiteralBytes:
			return "b" + strconv.Quote(string(d.Bytes))
		default:
			return "None"
		}
	case *NameData:
		return d.Name
	case *BinaryData:
		return "(" + p.expr(d.Left) + " " + d.Op.String() + " " + p.expr(d.Right) + ")"
	case *UnaryData:
		return d.Op.String() + p.expr(d.Operand)
	case *CallData:
		return d.Func + "(" + p.callArgs(d.Args, d.Kwargs) + ")" + failMark(d.CanFail)
	case *DynCallData:
		return p.expr(d.Callee) + "(" + p.list(d.Args) + ")"
	case *MethodCallData:
		return p.expr(d.Recv) + "." + d.Method + "(" + p.callArgs(d.Args, d.Kwargs) + ")" + failMark(d.CanFail)
	case *IndexData:
		return p.expr(d.Base) + "[" + p.expr(d.Index) + "]"
	case *SliceData:
		return p.expr(d.Base) + "[" + p.opt(d.Start) + ":" + p.opt(d.Stop) + ":" + p.opt(d.Step) + "]"
	case *AttrData:
		return p.expr(d.Base) + "." + d.Name
	case *ElemsData:
		switch e.Kind {
		case ExprSet:
			return "{" + p.list(d.Elems) + "}"
		case ExprTuple:
			return "(" + p.list(d.Elems) + ")"
		default:
			return "[" + p.list(d.Elems) + "]"
		}
	case *DictData:
		parts := make([]string, len(d.Values))
		for i := range d.Values {
			parts[i] = p.expr(d.Keys[i]) + ": " + p.expr(d.Values[i])
		}
		return "{" + strings.Join(parts, ", ") + "}"
	case *CompData:
		var sb strings.Builder
		sb.WriteString(d.Kind.String() + "[" + p.expr(d.Elem))
		if d.Value != nil {
			sb.WriteString(": " + p.expr(d.Value))
		}
		for _, g := range d.Gens {
			sb.WriteString(" for " + p.target(g.Target) + " in " + p.expr(g.Iter))
			for _, c := range g.Ifs {
				sb.WriteString(" if " + p.expr(c))
			}
		}
		sb.WriteString("]")
		return sb.String()
	case *LambdaData:
		names := make([]string, len(d.Params))
		for i, prm := range d.Params {
			names[i] = prm.Name
		}
		s := "lambda " + strings.Join(names, ", ") + ": " + p.expr(d.Body)
		if len(d.Captures) > 0 {
			s += " [clone " + strings.Join(d.Captures, ", ") + "]"
		}
		return s
	case *BorrowData:
		if d.Mut {
			return "&mut " + p.expr(d.Value)
		}
		return "&" + p.expr(d.Value)
	case *AwaitData:
		return "await " + p.expr(d.Value)
	case *YieldData:
		if d.From {
			return "yield from " + p.expr(d.Value)
		}
		return "yield " + p.expr(d.Value)
	case *FStringData:
		var sb strings.Builder
		sb.WriteString("f\"")
		for _, part := range d.Parts {
			if part.Expr == nil {
				sb.WriteString(part.Lit)
				continue
			}
			sb.WriteString("{" + p.expr(part.Expr))
			if part.Spec != "" {
				sb.WriteString(":" + part.Spec)
			}
			sb.WriteString("}")
		}
		sb.WriteString("\"")
		return sb.String()
	case *NamedData:
		return "(" + d.Name + " := " + p.expr(d.Value) + ")"
	case *IfExprData:
		return "(" + p.expr(d.Then) + " if " + p.expr(d.Cond) + " else " + p.expr(d.Else) + ")"
	case *SortByKeyData:
		return "sorted(" + p.expr(d.Iter) + ", key=" + p.opt(d.Key) + ", reverse=" + p.opt(d.Reverse) + ")"
	case *PlaceholderData:
		return "<" + d.What + ">"
	}
	return e.Kind.String()
}

func (p *Printer) opt(e *Expr) string {
	if e == nil {
		return ""
	}
	return p.expr(e)
}

func (p *Printer) callArgs(args []*Expr, kws []*Kwarg) string {
	s := p.list(args)
	for _, kw := range kws {
		if s != "" {
			s += ", "
		}
		s += kw.Name + "=" + p.expr(kw.Value)
	}
	return s
}

func failMark(canFail bool) string {
	if canFail {
		return "?"
	}
	return ""
}

func (p *Printer) pad() string { return strings.Repeat("  ", p.indent) }

func (p *Printer) printf(format string, args ...any) {
	if p.err != nil || p.w == nil {
		return
	}
	_, p.err = fmt.Fprintf(p.w, format, args...)
}

// TypeOf returns e's type or unknown for nil.
func TypeOf(e *Expr) *types.Type {
	if e == nil || e.Type == nil {
		return types.Unknown
	}
	return e.Type
}
