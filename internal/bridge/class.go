package bridge

import (
	"github.com/paiml/depyler-sub011/internal/diag"
	"github.com/paiml/depyler-sub011/internal/hir"
	"github.com/paiml/depyler-sub011/internal/pyast"
	"github.com/paiml/depyler-sub011/internal/types"
)

// ignoredBases carry no data and are not emitted as a parent.
var ignoredBases = map[string]bool{
	"object": true, "ABC": true, "abc.ABC": true, "Generic": true, "typing.Generic": true,
}

func (l *lowerer) lowerClass(st *pyast.ClassDef) *hir.Class {
	c := &hir.Class{Name: ident(st.Name), Span: l.span(st)}
	for _, kw := range st.Keywords {
		if kw.Name == "metaclass" {
			l.unsupported(diag.UnsMetaclass, kw, "metaclass on class %s is not supported", c.Name)
		}
	}
	var bases []string
	for _, b := range st.Bases {
		name := dottedName(b)
		if sub, ok := b.(*pyast.Subscript); ok {
			name = dottedName(sub.Value)
		}
		if ignoredBases[name] {
			continue
		}
		bases = append(bases, name)
	}
	switch {
	case len(bases) > 1:
		l.unsupported(diag.UnsMultipleInheritance, st, "class %s has %d base classes; only single inheritance is supported", c.Name, len(bases))
		c.Base = bases[0]
	case len(bases) == 1:
		c.Base = bases[0]
	}
	for _, d := range st.Decorators {
		name := dottedName(d)
		if call, ok := d.(*pyast.Call); ok {
			name = dottedName(call.Func)
		}
		c.Decorators = append(c.Decorators, name)
		switch name {
		case "dataclass", "dataclasses.dataclass":
			c.Dataclass = true
		default:
			l.unsupported(diag.UnsDecorator, d, "class decorator @%s is not supported", name)
		}
	}

	body := st.Body
	if doc, ok := docstring(body); ok {
		c.Doc = doc
		body = body[1:]
	}
	for _, s := range body {
		switch v := s.(type) {
		case *pyast.AnnAssign:
			n, ok := v.Target.(*pyast.Name)
			if !ok {
				l.unsupported(diag.UnsStatement, s, "unsupported class attribute target")
				continue
			}
			f := &hir.Field{Name: ident(n.ID), Type: l.typeOf(v.Annotation), Span: l.span(s)}
			if v.Value != nil {
				f.Default = l.fieldDefault(v.Value)
			}
			if isClassVar(v.Annotation) {
				c.Constants = append(c.Constants, &hir.Global{Name: f.Name, Type: f.Type, Value: f.Default, Kind: constKind(f.Default), Span: f.Span})
				continue
			}
			c.Fields = append(c.Fields, f)
		case *pyast.Assign:
			n, ok := v.Targets[0].(*pyast.Name)
			if len(v.Targets) != 1 || !ok {
				l.unsupported(diag.UnsStatement, s, "unsupported class attribute target")
				continue
			}
			val := l.lowerExpr(v.Value)
			c.Constants = append(c.Constants, &hir.Global{Name: ident(n.ID), Value: val, Kind: constKind(val), Span: l.span(s)})
		case *pyast.FunctionDef:
			c.Methods = append(c.Methods, l.lowerFunc(v, c))
		case *pyast.Pass:
		case *pyast.ExprStmt:
			if isEllipsis(v.Value) {
				continue
			}
			l.unsupported(diag.UnsStatement, s, "unsupported statement in class body")
		case *pyast.ClassDef:
			l.unsupported(diag.UnsStatement, s, "nested class %s is not supported", v.Name)
		default:
			l.unsupported(diag.UnsStatement, s, "unsupported statement in class body")
		}
	}
	l.collectInitFields(c)
	markMutatingMethods(c)
	return c
}

// fieldDefault unwraps dataclasses.field(default=...) and
// field(default_factory=list).
func (l *lowerer) fieldDefault(e pyast.Expr) *hir.Expr {
	call, ok := e.(*pyast.Call)
	if !ok || (dottedName(call.Func) != "field" && dottedName(call.Func) != "dataclasses.field") {
		return l.lowerExpr(e)
	}
	for _, kw := range call.Keywords {
		switch kw.Name {
		case "default":
			return l.lowerExpr(kw.Value)
		case "default_factory":
			return l.lowerExpr(&pyast.Call{Pos: call.Pos, Func: kw.Value})
		}
	}
	return nil
}

func isClassVar(e pyast.Expr) bool {
	if sub, ok := e.(*pyast.Subscript); ok {
		e = sub.Value
	}
	name := dottedName(e)
	return name == "ClassVar" || name == "typing.ClassVar" || name == "Final" || name == "typing.Final"
}

func constKind(v *hir.Expr) hir.GlobalKind {
	if isPrimitiveLiteral(v) {
		return hir.GlobalConst
	}
	return hir.GlobalStatic
}

// collectInitFields adds instance attributes assigned in __init__.
func (l *lowerer) collectInitFields(c *hir.Class) {
	init := c.Method("__init__")
	if init == nil {
		return
	}
	hir.Inspect(init.Body, hir.Visitor{Stmt: func(s *hir.Stmt) bool {
		var t *hir.Target
		var declared *types.Type
		var value *hir.Expr
		switch d := s.Data.(type) {
		case *hir.AssignData:
			t, declared, value = d.Target, d.Declared, d.Value
		default:
			return true
		}
		if t.Kind != hir.TargetAttribute || hir.NameOf(t.Base) != "self" || c.Field(t.Field) != nil {
			return true
		}
		f := &hir.Field{Name: t.Field, Type: types.Unknown, Span: t.Span}
		switch {
		case declared != nil:
			f.Type = declared
		case value != nil:
			if p := init.Param(hir.NameOf(value)); p != nil && p.Declared {
				f.Type = p.Type
			}
		}
		c.Fields = append(c.Fields, f)
		return true
	}})
}

// markMutatingMethods flags methods that assign through self.
func markMutatingMethods(c *hir.Class) {
	for _, m := range c.Methods {
		if !m.IsMethod() || m.Name == "__init__" {
			continue
		}
		hir.Inspect(m.Body, hir.Visitor{Stmt: func(s *hir.Stmt) bool {
			var t *hir.Target
			switch d := s.Data.(type) {
			case *hir.AssignData:
				t = d.Target
			case *hir.AugAssignData:
				t = d.Target
			default:
				return true
			}
			if (t.Kind == hir.TargetAttribute || t.Kind == hir.TargetSubscript) && t.Root() == "self" {
				m.Flags |= hir.FuncMutSelf
			}
			return true
		}})
	}
}

func (l *lowerer) lowerProtocol(st *pyast.ClassDef) *hir.Protocol {
	p := &hir.Protocol{Name: ident(st.Name), Span: l.span(st)}
	body := st.Body
	if doc, ok := docstring(body); ok {
		p.Doc = doc
		body = body[1:]
	}
	owner := &hir.Class{Name: p.Name}
	for _, s := range body {
		fd, ok := s.(*pyast.FunctionDef)
		if !ok {
			continue
		}
		m := l.lowerFunc(fd, owner)
		m.Body = &hir.Block{Span: m.Span}
		m.Flags &^= hir.FuncGenerator
		p.Methods = append(p.Methods, m)
	}
	return p
}
