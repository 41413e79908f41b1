package trace_test

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/paiml/depyler-sub011/internal/source"
	"github.com/paiml/depyler-sub011/internal/trace"
)

func TestParseLevel(t *testing.T) {
	for in, want := range map[string]trace.Level{
		"off": trace.LevelOff, "PHASE": trace.LevelPhase, "debug": trace.LevelDebug, "": trace.LevelOff,
	} {
		got, err := trace.ParseLevel(in)
		if err != nil || got != want {
			t.Errorf("ParseLevel(%q) = %v, %v; want %v", in, got, err, want)
		}
	}
	if _, err := trace.ParseLevel("loud"); err == nil {
		t.Error("expected error for unknown level")
	}
}

func TestLevelFiltersScopes(t *testing.T) {
	if !trace.LevelPhase.ShouldEmit(trace.ScopePass) || trace.LevelPhase.ShouldEmit(trace.ScopeFunc) {
		t.Error("phase level should emit pass scope only")
	}
	if !trace.LevelDebug.ShouldEmit(trace.ScopeNode) {
		t.Error("debug should emit node scope")
	}
}

func TestStreamTracerSpans(t *testing.T) {
	var buf bytes.Buffer
	tr, err := trace.New(trace.Config{Level: trace.LevelDetail, Mode: trace.ModeStream, Output: &buf, Format: trace.FormatText})
	if err != nil {
		t.Fatal(err)
	}
	ctx := trace.WithTracer(context.Background(), tr)
	root := trace.Begin(trace.FromContext(ctx), trace.ScopePass, "infer", 0)
	child := trace.Begin(trace.FromContext(ctx), trace.ScopeFunc, "infer:add", root.ID())
	child.WithExtra("params", "2").End("")
	root.End("ok")

	out := buf.String()
	for _, want := range []string{"> infer", "< infer:add {params=2}", "< infer (ok)"} {
		if !strings.Contains(out, want) {
			t.Errorf("trace output missing %q:\n%s", want, out)
		}
	}
	// node scope is filtered at detail level
	trace.Point(tr, trace.ScopeNode, "hidden", "", 0)
	if strings.Contains(buf.String(), "hidden") {
		t.Error("node-scope point leaked at detail level")
	}
}

func TestRingTracerKeepsMostRecent(t *testing.T) {
	ring := trace.NewRingTracer(2, trace.LevelDebug)
	for _, name := range []string{"a", "b", "c"} {
		trace.Point(ring, trace.ScopePass, name, "", 0)
	}
	snap := ring.Snapshot()
	if len(snap) != 2 || snap[0].Name != "b" || snap[1].Name != "c" {
		t.Fatalf("unexpected snapshot: %+v", snap)
	}
}

func TestDecisionLog(t *testing.T) {
	ring := trace.NewRingTracer(16, trace.LevelDebug)
	log := trace.NewDecisionLog(ring, 0)
	log.Record(trace.DecisionMethodDispatch, "main", "v.as_array().len()", "len on dynamic value", source.Span{})
	log.Record(trace.DecisionOwnership, "main", "clone", "used after move", source.Span{})

	if got := len(log.Filter(trace.DecisionMethodDispatch)); got != 1 {
		t.Fatalf("Filter(method-dispatch) = %d entries, want 1", got)
	}
	if len(ring.Snapshot()) != 2 {
		t.Errorf("decisions should be forwarded to the tracer at debug level")
	}
	var nilLog *trace.DecisionLog
	nilLog.Record(trace.DecisionOwnership, "x", "y", "z", source.Span{})
	if nilLog.Entries() != nil {
		t.Error("nil log should stay empty")
	}
}

func TestChildSpansInheritFile(t *testing.T) {
	ring := trace.NewRingTracer(16, trace.LevelDetail)
	root := trace.Begin(ring, trace.ScopeDriver, "translate", 0).WithFile("src/calc.py")
	child := root.Child(trace.ScopePass, "infer")
	child.End("diags=0")
	root.Child(trace.ScopeNode, "filtered").End("")
	root.End("")

	snap := ring.Snapshot()
	if len(snap) != 4 {
		t.Fatalf("want 4 events, got %d: %+v", len(snap), snap)
	}
	for _, ev := range snap[1:] {
		if ev.File != "src/calc.py" {
			t.Errorf("%s %s: file = %q", ev.Kind, ev.Name, ev.File)
		}
	}
	if snap[1].ParentID != root.ID() {
		t.Errorf("child parent = %d, want %d", snap[1].ParentID, root.ID())
	}

	var buf bytes.Buffer
	if err := ring.Dump(&buf, trace.FormatNDJSON); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(buf.String(), `"file":"src/calc.py"`) {
		t.Errorf("ndjson missing file:\n%s", buf.String())
	}
	buf.Reset()
	if err := ring.Dump(&buf, trace.FormatText); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(buf.String(), "< infer [src/calc.py] (diags=0) +") {
		t.Errorf("text output:\n%s", buf.String())
	}
}
