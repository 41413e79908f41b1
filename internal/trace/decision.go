package trace

import (
	"fmt"

	"github.com/paiml/depyler-sub011/internal/source"
)

// DecisionCategory classifies a recorded code generation choice.
type DecisionCategory uint8

const (
	DecisionTypeMapping DecisionCategory = iota + 1
	DecisionBorrowStrategy
	DecisionMethodDispatch
	DecisionImportResolve
	DecisionErrorHandling
	DecisionOwnership
	DecisionGenerator
)

func (c DecisionCategory) String() string {
	switch c {
	case DecisionTypeMapping:
		return "type-mapping"
	case DecisionBorrowStrategy:
		return "borrow-strategy"
	case DecisionMethodDispatch:
		return "method-dispatch"
	case DecisionImportResolve:
		return "import-resolve"
	case DecisionErrorHandling:
		return "error-handling"
	case DecisionOwnership:
		return "ownership"
	case DecisionGenerator:
		return "generator"
	}
	return "unknown"
}

// Decision is one entry of the decision trace.
type Decision struct {
	Category DecisionCategory
	Site     string // function or construct the decision was made in
	Choice   string // what was emitted
	Reason   string
	Span     source.Span
}

func (d Decision) String() string {
	return fmt.Sprintf("[%s] %s: %s (%s)", d.Category, d.Site, d.Choice, d.Reason)
}

// DecisionLog collects decisions for one translation. It is owned by a
// single translation and is not safe for concurrent use.
type DecisionLog struct {
	entries []Decision
	tracer  Tracer
	parent  uint64
}

// NewDecisionLog creates a log that also forwards entries to t as point
// events (only emitted at debug level).
func NewDecisionLog(t Tracer, parent uint64) *DecisionLog {
	if t == nil {
		t = Nop
	}
	return &DecisionLog{tracer: t, parent: parent}
}

func (l *DecisionLog) Record(cat DecisionCategory, site, choice, reason string, sp source.Span) {
	if l == nil {
		return
	}
	d := Decision{Category: cat, Site: site, Choice: choice, Reason: reason, Span: sp}
	l.entries = append(l.entries, d)
	Point(l.tracer, ScopeNode, "decision:"+cat.String(), d.String(), l.parent)
}

func (l *DecisionLog) Entries() []Decision {
	if l == nil {
		return nil
	}
	return l.entries
}

// Filter returns the entries of one category in recording order.
func (l *DecisionLog) Filter(cat DecisionCategory) []Decision {
	var out []Decision
	for _, d := range l.Entries() {
		if d.Category == cat {
			out = append(out, d)
		}
	}
	return out
}
