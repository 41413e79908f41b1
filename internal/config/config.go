// Package config loads depyler.toml: translation options, import table
// overrides and per-function annotations.
package config

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/Masterminds/semver/v3"

	"github.com/paiml/depyler-sub011/internal/bridge"
	"github.com/paiml/depyler-sub011/internal/cargo"
	"github.com/paiml/depyler-sub011/internal/directive"
	"github.com/paiml/depyler-sub011/internal/hir"
	"github.com/paiml/depyler-sub011/internal/pyast"
	"github.com/paiml/depyler-sub011/internal/translate"
)

// FileName is the configuration file looked up from the input directory
// upwards.
const FileName = "depyler.toml"

// ErrInvalid marks configuration that decoded but failed validation.
var ErrInvalid = errors.New("invalid configuration")

// File is the TOML shape of depyler.toml.
type File struct {
	Translate   TranslateSection             `toml:"translate"`
	Imports     map[string]ImportSection     `toml:"imports"`
	Annotations map[string]AnnotationSection `toml:"annotations"`
}

type TranslateSection struct {
	IntWidth   string `toml:"int_width"`
	SafetyMode bool   `toml:"safety_mode"`
	EmitCargo  bool   `toml:"emit_cargo"`
	CrateName  string `toml:"crate_name"`
	Edition    string `toml:"edition"`
	Python     string `toml:"python"`
}

type ImportSection struct {
	RustPath string            `toml:"rust_path"`
	External bool              `toml:"external"`
	Crate    string            `toml:"crate"`
	Version  string            `toml:"version"`
	Items    map[string]string `toml:"items"`
}

type AnnotationSection struct {
	Optimization string   `toml:"optimization"`
	Ownership    string   `toml:"ownership"`
	Clone        []string `toml:"clone"`
	Borrow       []string `toml:"borrow"`
	SafetyMode   bool     `toml:"safety_mode"`
}

// Config is the validated configuration.
type Config struct {
	Path        string // "" for the built-in defaults
	IntType     string
	SafetyMode  bool
	EmitCargo   bool
	CrateName   string
	Edition     string
	Python      string
	Imports     bridge.ImportTable
	Annotations map[string]hir.Annotations

	raw File
}

// Default returns the configuration used when no depyler.toml exists.
func Default() *Config {
	return &Config{
		IntType:     "i32",
		Edition:     "2021",
		Imports:     bridge.ImportTable{},
		Annotations: map[string]hir.Annotations{},
	}
}

// Find walks from startDir up to the filesystem root looking for
// depyler.toml.
func Find(startDir string) (string, bool, error) {
	if startDir == "" {
		startDir = "."
	}
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return "", false, fmt.Errorf("failed to resolve start directory: %w", err)
	}
	for {
		candidate := filepath.Join(dir, FileName)
		if _, err := os.Stat(candidate); err == nil {
			return candidate, true, nil
		} else if !errors.Is(err, os.ErrNotExist) {
			return "", false, fmt.Errorf("failed to stat %q: %w", candidate, err)
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return "", false, nil
}

// Load decodes and validates path.
func Load(path string) (*Config, error) {
	var f File
	meta, err := toml.DecodeFile(path, &f)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to parse TOML: %w", path, err)
	}
	cfg, err := build(f, meta)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	cfg.Path = path
	return cfg, nil
}

// Decode is Load for in-memory text.
func Decode(text string) (*Config, error) {
	var f File
	meta, err := toml.Decode(text, &f)
	if err != nil {
		return nil, fmt.Errorf("failed to parse TOML: %w", err)
	}
	return build(f, meta)
}

// LoadNear finds and loads the configuration governing startDir, falling
// back to Default when there is none.
func LoadNear(startDir string) (*Config, error) {
	path, ok, err := Find(startDir)
	if err != nil {
		return nil, err
	}
	if !ok {
		return Default(), nil
	}
	return Load(path)
}

func build(f File, meta toml.MetaData) (*Config, error) {
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return nil, fmt.Errorf("%w: unknown keys: %s", ErrInvalid, strings.Join(keys, ", "))
	}
	cfg := Default()
	cfg.raw = f

	t := f.Translate
	if meta.IsDefined("translate", "int_width") {
		switch t.IntWidth {
		case "i32", "i64":
			cfg.IntType = t.IntWidth
		default:
			return nil, fmt.Errorf("%w: [translate].int_width must be i32 or i64, got %q", ErrInvalid, t.IntWidth)
		}
	}
	if meta.IsDefined("translate", "edition") {
		switch t.Edition {
		case "2015", "2018", "2021", "2024":
			cfg.Edition = t.Edition
		default:
			return nil, fmt.Errorf("%w: [translate].edition %q is not a Rust edition", ErrInvalid, t.Edition)
		}
	}
	cfg.SafetyMode = t.SafetyMode
	cfg.EmitCargo = t.EmitCargo
	cfg.CrateName = strings.TrimSpace(t.CrateName)
	cfg.Python = strings.TrimSpace(t.Python)

	for _, name := range sortedKeys(f.Imports) {
		m, err := importMapping(name, f.Imports[name])
		if err != nil {
			return nil, err
		}
		cfg.Imports[name] = m
	}
	for _, name := range sortedKeys(f.Annotations) {
		a, err := annotations(name, f.Annotations[name])
		if err != nil {
			return nil, err
		}
		cfg.Annotations[name] = a
	}
	return cfg, nil
}

func importMapping(name string, s ImportSection) (*bridge.ModuleMapping, error) {
	m := &bridge.ModuleMapping{
		RustPath: strings.TrimSpace(s.RustPath),
		Crate:    strings.TrimSpace(s.Crate),
		Version:  strings.TrimSpace(s.Version),
		Items:    s.Items,
	}
	if s.External && m.Crate == "" {
		root, _, _ := strings.Cut(m.RustPath, "::")
		m.Crate = root
	}
	if m.Crate == "" {
		if m.Version != "" {
			return nil, fmt.Errorf("%w: [imports.%q] has a version but no crate", ErrInvalid, name)
		}
		return m, nil
	}
	if m.Version == "" {
		if c, ok := cargo.Lookup(m.Crate); ok {
			m.Version = c.Version
		} else {
			return nil, fmt.Errorf("%w: [imports.%q] external crate %s needs a version", ErrInvalid, name, m.Crate)
		}
	}
	if _, err := semver.NewConstraint(m.Version); err != nil {
		return nil, fmt.Errorf("%w: [imports.%q] version %q: %w", ErrInvalid, name, m.Version, err)
	}
	return m, nil
}

func annotations(name string, s AnnotationSection) (hir.Annotations, error) {
	var a hir.Annotations
	for _, kv := range [][2]string{{"optimization", s.Optimization}, {"ownership", s.Ownership}} {
		if err := directive.Apply(&a, kv[0], kv[1]); err != nil {
			return a, fmt.Errorf("%w: [annotations.%q] %w", ErrInvalid, name, err)
		}
	}
	a.Clone = append(a.Clone, s.Clone...)
	a.Borrow = append(a.Borrow, s.Borrow...)
	a.SafetyMode = s.SafetyMode
	return a, nil
}

// Fingerprint is a stable digest of the configuration, used to key cached
// translations.
func (c *Config) Fingerprint() string {
	var buf bytes.Buffer
	enc := toml.NewEncoder(&buf)
	if err := enc.Encode(c.raw); err != nil {
		panic(fmt.Errorf("encode config fingerprint: %w", err))
	}
	fmt.Fprintf(&buf, "int=%s safety=%v edition=%s\n", c.IntType, c.SafetyMode, c.Edition)
	sum := sha256.Sum256(buf.Bytes())
	return hex.EncodeToString(sum[:])
}

// TranslateOptions returns the per-translation options this
// configuration implies.
func (c *Config) TranslateOptions() translate.Options {
	return translate.Options{
		Imports:     c.Imports,
		Annotations: c.Annotations,
		IntType:     c.IntType,
		SafetyMode:  c.SafetyMode,
	}
}

// Loader returns the input loader, honouring [translate].python.
func (c *Config) Loader() pyast.Loader {
	return pyast.Loader{Python: c.Python}
}

// CargoOptions returns the manifest options this configuration implies.
func (c *Config) CargoOptions(moduleName string) cargo.Options {
	name := c.CrateName
	if name == "" {
		name = moduleName
	}
	return cargo.Options{Name: name, Edition: c.Edition}
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
