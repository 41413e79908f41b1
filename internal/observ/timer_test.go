package observ_test

import (
	"strings"
	"testing"

	"github.com/paiml/depyler-sub011/internal/observ"
)

func TestTimerPhases(t *testing.T) {
	timer := observ.NewTimer()
	idx := timer.Begin("bridge")
	timer.End(idx, "3 functions")
	timer.Measure("infer", func() string { return "" })

	report := timer.Report()
	if len(report.Phases) != 2 {
		t.Fatalf("expected 2 phases, got %d", len(report.Phases))
	}
	if report.Phases[0].Name != "bridge" || report.Phases[0].Note != "3 functions" {
		t.Errorf("unexpected first phase: %+v", report.Phases[0])
	}
	sum := timer.Summary()
	if !strings.Contains(sum, "bridge") || !strings.Contains(sum, "total") {
		t.Errorf("summary missing rows:\n%s", sum)
	}
}

func TestNilTimerIsInert(t *testing.T) {
	var timer *observ.Timer
	timer.End(timer.Begin("x"), "")
	if r := timer.Report(); len(r.Phases) != 0 {
		t.Errorf("nil timer recorded phases: %+v", r)
	}
}
