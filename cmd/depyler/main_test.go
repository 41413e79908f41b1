package main

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/fsnotify/fsnotify"
)

func TestReadUIMode(t *testing.T) {
	cases := map[string]uiMode{"": uiModeAuto, "AUTO": uiModeAuto, "on": uiModeOn, " off ": uiModeOff}
	for in, want := range cases {
		got, err := readUIMode(in)
		if err != nil || got != want {
			t.Errorf("readUIMode(%q) = %q, %v", in, got, err)
		}
	}
	if _, err := readUIMode("sometimes"); err == nil {
		t.Error("expected an error for an unknown mode")
	}
}

func TestReadDiagFormat(t *testing.T) {
	for _, in := range []string{"pretty", "JSON", "short", ""} {
		if _, err := readDiagFormat(in); err != nil {
			t.Errorf("readDiagFormat(%q): %v", in, err)
		}
	}
	if _, err := readDiagFormat("sarif"); err == nil {
		t.Error("sarif should be rejected")
	}
}

func TestRenderVersionJSON(t *testing.T) {
	var buf bytes.Buffer
	info := versionInfo{Version: "1.2.3", GitCommit: ""}
	if err := renderVersionJSON(&buf, info, versionOptions{showHash: true}); err != nil {
		t.Fatal(err)
	}
	var payload versionPayload
	if err := json.Unmarshal(buf.Bytes(), &payload); err != nil {
		t.Fatal(err)
	}
	if payload.Tool != "depyler" || payload.Version != "1.2.3" || payload.GitCommit != "unknown" || payload.BuildDate != "" {
		t.Errorf("payload = %+v", payload)
	}
}

func TestRenderVersionPretty(t *testing.T) {
	var buf bytes.Buffer
	renderVersionPretty(&buf, versionInfo{Version: "0.4.0"}, versionOptions{showDate: true})
	out := buf.String()
	if !strings.HasPrefix(out, "depyler 0.4.0 (") || !strings.Contains(out, "built:  unknown") {
		t.Errorf("output:\n%s", out)
	}
}

func TestRelevantChange(t *testing.T) {
	cases := []struct {
		root  string
		isDir bool
		ev    fsnotify.Event
		want  bool
	}{
		{"src", true, fsnotify.Event{Name: "src/a.py", Op: fsnotify.Write}, true},
		{"src", true, fsnotify.Event{Name: "src/a.rs", Op: fsnotify.Write}, false},
		{"src", true, fsnotify.Event{Name: "src/a.py", Op: fsnotify.Chmod}, false},
		{"src", true, fsnotify.Event{Name: "src/depyler.toml", Op: fsnotify.Create}, true},
		{"src/a.py", false, fsnotify.Event{Name: "src/b.py", Op: fsnotify.Write}, false},
		{"src/a.py", false, fsnotify.Event{Name: "src/a.py", Op: fsnotify.Rename}, true},
	}
	for _, tc := range cases {
		if got := relevantChange(tc.root, tc.isDir, tc.ev); got != tc.want {
			t.Errorf("relevantChange(%s, %v) = %v", tc.ev.Name, tc.ev.Op, got)
		}
	}
}
