package ui

import (
	"strings"
	"testing"

	"github.com/paiml/depyler-sub011/internal/driver"
)

func TestTruncate(t *testing.T) {
	cases := []struct {
		in    string
		width int
		want  string
	}{
		{"short.py", 20, "short.py"},
		{"a/very/long/path/module.py", 10, "a/very/..."},
		{"abcdef", 3, "abc"},
		{"模块模块.py", 7, "模块..."},
		{"keep", 0, "keep"},
	}
	for _, tc := range cases {
		if got := truncate(tc.in, tc.width); got != tc.want {
			t.Errorf("truncate(%q, %d) = %q, want %q", tc.in, tc.width, got, tc.want)
		}
	}
}

func TestApplyEventTracksFiles(t *testing.T) {
	events := make(chan driver.Event)
	m := NewProgressModel("translating", []string{"a.py", "b.py"}, events).(*progressModel)

	m.applyEvent(driver.Event{File: "a.py", Stage: driver.StageTranslate, Status: driver.StatusWorking})
	m.applyEvent(driver.Event{File: "b.py", Stage: driver.StageCache, Status: driver.StatusCached})
	m.applyEvent(driver.Event{File: "b.py", Stage: driver.StageWrite, Status: driver.StatusDone})
	m.applyEvent(driver.Event{File: "unknown.py", Stage: driver.StageLoad, Status: driver.StatusError})

	if got := m.items[0].status; got != "translating" {
		t.Errorf("a.py status = %q", got)
	}
	if got := m.items[1].status; got != "cached" {
		t.Errorf("b.py status = %q", got)
	}
	if p := m.percent(); p < 0.69 || p > 0.71 {
		t.Errorf("percent = %v", p)
	}
	if view := m.View(); !strings.Contains(view, "(1/2)") {
		t.Errorf("view:\n%s", view)
	}
}

func TestErrorFinishesFile(t *testing.T) {
	m := NewProgressModel("x", []string{"a.py"}, nil).(*progressModel)
	m.applyEvent(driver.Event{File: "a.py", Stage: driver.StageLoad, Status: driver.StatusError})
	if m.items[0].frac != 1 || m.items[0].status != "error" {
		t.Errorf("item = %+v", m.items[0])
	}
}
