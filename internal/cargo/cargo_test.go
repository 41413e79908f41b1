package cargo_test

import (
	"errors"
	"strings"
	"testing"

	"github.com/BurntSushi/toml"

	"github.com/paiml/depyler-sub011/internal/cargo"
)

func TestRenderManifest(t *testing.T) {
	out, err := cargo.Render([]string{"regex", "clap", "serde_json"}, cargo.Options{Name: "word_count"})
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	for _, want := range []string{
		"[package]",
		`name = "word-count"`,
		`edition = "2021"`,
		"[dependencies]",
		`regex = "1.10"`,
		`serde_json = "1.0"`,
		"[dependencies.clap]",
		`features = ["string"]`,
		"[dependencies.serde]",
		"[[bin]]",
		`path = "src/main.rs"`,
	} {
		if !strings.Contains(out, want) {
			t.Errorf("manifest missing %q:\n%s", want, out)
		}
	}

	// the output must read back as TOML with the same dependencies
	var back struct {
		Package      map[string]string `toml:"package"`
		Dependencies map[string]any    `toml:"dependencies"`
	}
	if _, err := toml.Decode(out, &back); err != nil {
		t.Fatalf("manifest is not valid TOML: %v\n%s", err, out)
	}
	if back.Package["name"] != "word-count" {
		t.Errorf("package name = %q", back.Package["name"])
	}
	if len(back.Dependencies) != 4 {
		t.Errorf("dependencies = %v, want regex, clap, serde_json and serde", back.Dependencies)
	}
}

func TestResolveIsSortedAndOverridable(t *testing.T) {
	crates, err := cargo.Resolve([]string{"sha2", "hex", "tokio"}, map[string]string{"tokio": "1.38"})
	if err != nil {
		t.Fatal(err)
	}
	var names []string
	for _, c := range crates {
		names = append(names, c.Name)
		if c.Name == "tokio" {
			if c.Version != "1.38" {
				t.Errorf("tokio version = %s, want override 1.38", c.Version)
			}
			if len(c.Features) != 1 || c.Features[0] != "full" {
				t.Errorf("tokio features = %v", c.Features)
			}
		}
	}
	if got := strings.Join(names, ","); got != "hex,sha2,tokio" {
		t.Errorf("order = %s", got)
	}
}

func TestUnknownCrateGetsWildcard(t *testing.T) {
	crates, err := cargo.Resolve([]string{"itertools"}, nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(crates) != 1 || crates[0].Version != "*" {
		t.Fatalf("crates = %+v", crates)
	}
}

func TestInvalidVersionIsRejected(t *testing.T) {
	_, err := cargo.Resolve([]string{"regex"}, map[string]string{"regex": "not-a-version"})
	var verr *cargo.VersionError
	if !errors.As(err, &verr) {
		t.Fatalf("err = %v, want *VersionError", err)
	}
	if verr.Crate != "regex" {
		t.Errorf("crate = %s", verr.Crate)
	}

	if _, err := cargo.Build(nil, cargo.Options{Version: "one"}); err == nil {
		t.Error("non-semver package version should fail")
	}
}

func TestEmptyNeeds(t *testing.T) {
	m, err := cargo.Build(nil, cargo.Options{})
	if err != nil {
		t.Fatal(err)
	}
	if m.Package.Name != "main" || len(m.Dependencies) != 0 || len(m.Bin) != 1 {
		t.Errorf("unexpected manifest: %+v", m)
	}
}
