package config_test

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/paiml/depyler-sub011/internal/config"
)

const full = `
[translate]
int_width = "i64"
safety_mode = true
emit_cargo = true
crate_name = "word-count"
edition = "2021"

[imports."leftpad"]
rust_path = "leftpad::pad"
external = true
version = "0.2"

[imports."leftpad".items]
pad = "leftpad::pad"

[imports."json"]
version = "1.0.100"
crate = "serde_json"

[annotations."Stack.push"]
optimization = "speed"
ownership = "borrowed"
clone = ["items"]
`

func TestDecodeFullConfig(t *testing.T) {
	cfg, err := config.Decode(full)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if cfg.IntType != "i64" || !cfg.SafetyMode || !cfg.EmitCargo || cfg.CrateName != "word-count" {
		t.Errorf("translate section = %+v", cfg)
	}
	pad := cfg.Imports["leftpad"]
	if pad == nil || pad.Crate != "leftpad" || pad.Version != "0.2" || pad.Items["pad"] != "leftpad::pad" {
		t.Errorf("leftpad mapping = %+v", pad)
	}
	if cfg.Imports["json"].Version != "1.0.100" {
		t.Errorf("json override = %+v", cfg.Imports["json"])
	}
	push := cfg.Annotations["Stack.push"]
	if push.Optimization != "speed" || push.Ownership != "borrowed" || len(push.Clone) != 1 {
		t.Errorf("annotations = %+v", push)
	}

	opts := cfg.TranslateOptions()
	if opts.IntType != "i64" || !opts.SafetyMode || opts.Imports["leftpad"] == nil {
		t.Errorf("translate options = %+v", opts)
	}
	if got := cfg.CargoOptions("main").Name; got != "word-count" {
		t.Errorf("cargo name = %q", got)
	}
}

func TestDefaults(t *testing.T) {
	cfg, err := config.Decode("")
	if err != nil {
		t.Fatal(err)
	}
	if cfg.IntType != "i32" || cfg.Edition != "2021" || cfg.SafetyMode {
		t.Errorf("defaults = %+v", cfg)
	}
	if cfg.Fingerprint() != config.Default().Fingerprint() {
		t.Error("an empty file should fingerprint like the defaults")
	}
}

func TestInvalidConfigs(t *testing.T) {
	cases := []struct {
		name, text, want string
	}{
		{"unknown key", "[translate]\nint_with = \"i64\"\n", "translate.int_with"},
		{"int width", "[translate]\nint_width = \"i128\"\n", "int_width"},
		{"edition", "[translate]\nedition = \"2030\"\n", "edition"},
		{"bad version", "[imports.\"x\"]\ncrate = \"x\"\nversion = \"soon\"\n", "version"},
		{"missing version", "[imports.\"x\"]\nrust_path = \"x\"\nexternal = true\n", "needs a version"},
		{"orphan version", "[imports.\"x\"]\nrust_path = \"std::x\"\nversion = \"1\"\n", "no crate"},
		{"ownership", "[annotations.\"f\"]\nownership = \"leased\"\n", "leased"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := config.Decode(tc.text)
			if !errors.Is(err, config.ErrInvalid) {
				t.Fatalf("err = %v, want ErrInvalid", err)
			}
			if !strings.Contains(err.Error(), tc.want) {
				t.Errorf("err = %v, want mention of %q", err, tc.want)
			}
		})
	}
}

func TestFingerprintChangesWithContent(t *testing.T) {
	a, err := config.Decode("[translate]\nint_width = \"i32\"\n")
	if err != nil {
		t.Fatal(err)
	}
	b, err := config.Decode("[translate]\nint_width = \"i64\"\n")
	if err != nil {
		t.Fatal(err)
	}
	if a.Fingerprint() == b.Fingerprint() {
		t.Error("different int widths must fingerprint differently")
	}
	if a.Fingerprint() != a.Fingerprint() {
		t.Error("fingerprint is not stable")
	}
}

func TestLoadNearWalksUp(t *testing.T) {
	root := t.TempDir()
	nested := filepath.Join(root, "src", "pkg")
	if err := os.MkdirAll(nested, 0o755); err != nil {
		t.Fatal(err)
	}

	cfg, err := config.LoadNear(nested)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Path != "" {
		t.Fatalf("expected defaults, found %s", cfg.Path)
	}

	path := filepath.Join(root, config.FileName)
	if err := os.WriteFile(path, []byte("[translate]\nsafety_mode = true\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	cfg, err = config.LoadNear(nested)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Path != path || !cfg.SafetyMode {
		t.Errorf("cfg = %+v", cfg)
	}
}
