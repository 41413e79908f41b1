// Package testkit holds checks shared by pipeline tests.
package testkit

import (
	"fmt"

	"fortio.org/safecast"

	"github.com/paiml/depyler-sub011/internal/hir"
	"github.com/paiml/depyler-sub011/internal/source"
)

// CheckSpanInvariants runs a minimal set of span invariants on a lowered
// module:
// 1) every span lies within the file content and has End >= Start
// 2) every non-empty statement span is contained in its function's span,
// when that span is non-empty
// 3) every span points at sf
func CheckSpanInvariants(m *hir.Module, sf *source.File) error {
	if m == nil || sf == nil {
		return fmt.Errorf("nil module or file")
	}
	size, err := safecast.Conv[uint32](len(sf.Content))
	if err != nil {
		return fmt.Errorf("len content overflow: %w", err)
	}
	check := func(what string, sp source.Span) error {
		if sp.End < sp.Start {
			return fmt.Errorf("%s: inverted span %v", what, sp)
		}
		if sp.End > size {
			return fmt.Errorf("%s: span end beyond content: %d > %d", what, sp.End, size)
		}
		if !sp.Empty() && sp.File != sf.ID {
			return fmt.Errorf("%s: span points to different file id: got=%d want=%d", what, sp.File, sf.ID)
		}
		return nil
	}

	for _, fn := range m.AllFuncs() {
		name := fn.QualName()
		if err := check(name, fn.Span); err != nil {
			return err
		}
		var firstErr error
		hir.Inspect(fn.Body, hir.Visitor{
			Stmt: func(s *hir.Stmt) bool {
				if firstErr != nil {
					return false
				}
				what := fmt.Sprintf("%s: %s statement", name, s.Kind)
				if err := check(what, s.Span); err != nil {
					firstErr = err
					return false
				}
				if !fn.Span.Empty() && !s.Span.Empty() && !fn.Span.Contains(s.Span) {
					firstErr = fmt.Errorf("%s %v escapes function span %v", what, s.Span, fn.Span)
					return false
				}
				return true
			},
			Expr: func(e *hir.Expr) bool {
				if firstErr != nil {
					return false
				}
				if err := check(fmt.Sprintf("%s: %s expression", name, e.Kind), e.Span); err != nil {
					firstErr = err
					return false
				}
				return true
			},
		})
		if firstErr != nil {
			return firstErr
		}
	}
	return nil
}
