// Package cargo renders the Cargo.toml a translated module needs.
package cargo

import (
	"bytes"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/Masterminds/semver/v3"
)

// Crate is one dependency entry.
type Crate struct {
	Name     string
	Version  string
	Features []string
}

// builtin lists the crates generated code may reference.
var builtin = map[string]Crate{
	"serde_json": {Name: "serde_json", Version: "1.0"},
	"regex":      {Name: "regex", Version: "1.10"},
	"chrono":     {Name: "chrono", Version: "0.4"},
	"rand":       {Name: "rand", Version: "0.8"},
	"md-5":       {Name: "md-5", Version: "0.10"},
	"sha2":       {Name: "sha2", Version: "0.10"},
	"hex":        {Name: "hex", Version: "0.4"},
	"base64":     {Name: "base64", Version: "0.21"},
	"csv":        {Name: "csv", Version: "1.3"},
	"clap":       {Name: "clap", Version: "4.5", Features: []string{"string"}},
	"tokio":      {Name: "tokio", Version: "1", Features: []string{"full"}},
}

// companions are crates pulled in alongside another one.
var companions = map[string][]Crate{
	"serde_json": {{Name: "serde", Version: "1.0", Features: []string{"derive"}}},
}

// Lookup returns the built-in entry for a crate.
func Lookup(name string) (Crate, bool) {
	c, ok := builtin[name]
	return c, ok
}

// Options configures manifest generation.
type Options struct {
	Name    string // package name; "main" when empty
	Version string // package version; "0.1.0" when empty
	Edition string // "2021" when empty
	BinPath string // path of the generated source; "src/main.rs" when empty
	// Versions overrides crate versions, keyed by crate name.
	Versions map[string]string
}

// Manifest is the TOML shape of a Cargo.toml.
type Manifest struct {
	Package      Package        `toml:"package"`
	Dependencies map[string]any `toml:"dependencies"`
	Bin          []Bin          `toml:"bin"`
}

type Package struct {
	Name    string `toml:"name"`
	Version string `toml:"version"`
	Edition string `toml:"edition"`
}

type Bin struct {
	Name string `toml:"name"`
	Path string `toml:"path"`
}

type detailed struct {
	Version  string   `toml:"version"`
	Features []string `toml:"features,omitempty"`
}

// VersionError reports a crate version that is not a valid requirement.
type VersionError struct {
	Crate   string
	Version string
	Err     error
}

func (e *VersionError) Error() string {
	return fmt.Sprintf("crate %s: invalid version requirement %q: %v", e.Crate, e.Version, e.Err)
}

func (e *VersionError) Unwrap() error { return e.Err }

// ValidateVersion checks that v is a version requirement Cargo accepts.
func ValidateVersion(crate, v string) error {
	if strings.TrimSpace(v) == "" {
		return &VersionError{Crate: crate, Version: v, Err: fmt.Errorf("empty")}
	}
	if _, err := semver.NewConstraint(v); err != nil {
		return &VersionError{Crate: crate, Version: v, Err: err}
	}
	return nil
}

// Resolve maps needed crate names to dependency entries, sorted by name.
// Unknown crates get the "*" requirement unless a version is supplied.
func Resolve(needs []string, versions map[string]string) ([]Crate, error) {
	byName := map[string]Crate{}
	add := func(c Crate) {
		if v, ok := versions[c.Name]; ok {
			c.Version = v
		}
		if prev, ok := byName[c.Name]; ok {
			c.Features = mergeFeatures(prev.Features, c.Features)
		}
		byName[c.Name] = c
	}
	for _, name := range needs {
		c, ok := builtin[name]
		if !ok {
			c = Crate{Name: name, Version: "*"}
		}
		add(c)
		for _, extra := range companions[name] {
			add(extra)
		}
	}
	out := make([]Crate, 0, len(byName))
	for _, c := range byName {
		if err := ValidateVersion(c.Name, c.Version); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func mergeFeatures(a, b []string) []string {
	seen := map[string]bool{}
	var out []string
	for _, f := range append(append([]string(nil), a...), b...) {
		if !seen[f] {
			seen[f] = true
			out = append(out, f)
		}
	}
	sort.Strings(out)
	return out
}

// Build assembles the manifest for needs.
func Build(needs []string, opts Options) (*Manifest, error) {
	if opts.Name == "" {
		opts.Name = "main"
	}
	if opts.Version == "" {
		opts.Version = "0.1.0"
	}
	if opts.Edition == "" {
		opts.Edition = "2021"
	}
	if opts.BinPath == "" {
		opts.BinPath = "src/main.rs"
	}
	if _, err := semver.StrictNewVersion(opts.Version); err != nil {
		return nil, fmt.Errorf("package version %q: %w", opts.Version, err)
	}
	crates, err := Resolve(needs, opts.Versions)
	if err != nil {
		return nil, err
	}
	deps := make(map[string]any, len(crates))
	for _, c := range crates {
		if len(c.Features) == 0 {
			deps[c.Name] = c.Version
			continue
		}
		deps[c.Name] = detailed{Version: c.Version, Features: c.Features}
	}
	name := packageName(opts.Name)
	return &Manifest{
		Package:      Package{Name: name, Version: opts.Version, Edition: opts.Edition},
		Dependencies: deps,
		Bin:          []Bin{{Name: name, Path: opts.BinPath}},
	}, nil
}

// Encode writes m as TOML.
func (m *Manifest) Encode(w io.Writer) error {
	enc := toml.NewEncoder(w)
	enc.Indent = ""
	return enc.Encode(m)
}

// Render builds and encodes the manifest for needs.
func Render(needs []string, opts Options) (string, error) {
	m, err := Build(needs, opts)
	if err != nil {
		return "", err
	}
	var buf bytes.Buffer
	if err := m.Encode(&buf); err != nil {
		return "", fmt.Errorf("encode Cargo.toml: %w", err)
	}
	return buf.String(), nil
}

// packageName makes name acceptable to Cargo: lowercase, with
// underscores turned into dashes.
func packageName(name string) string {
	name = strings.ToLower(strings.TrimSpace(name))
	name = strings.ReplaceAll(name, "_", "-")
	name = strings.Trim(name, "-")
	if name == "" {
		return "main"
	}
	return name
}
