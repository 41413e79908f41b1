package pyast

import (
	"bytes"
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/vmihailenco/msgpack/v5"
)

//go:embed dump_ast.py
var dumpScript string

// DefaultPython is the interpreter used to parse .py inputs.
const DefaultPython = "python3"

// Input formats accepted by ReadTree.
type Format uint8

const (
	FormatPython Format = iota
	FormatJSON
	FormatMsgpack
)

// FormatOf picks the input format from the file name.
func FormatOf(path string) (Format, error) {
	switch {
	case strings.HasSuffix(path, ".pyast.mp"), strings.HasSuffix(path, ".mp"):
		return FormatMsgpack, nil
	case strings.HasSuffix(path, ".json"):
		return FormatJSON, nil
	case strings.HasSuffix(path, ".py"):
		return FormatPython, nil
	}
	return 0, fmt.Errorf("%s: unsupported input extension %q", path, filepath.Ext(path))
}

// Document is a loaded input: the decoded module plus, for .py inputs,
// the raw source text spans refer to.
type Document struct {
	Module *Module
	Source []byte
	Tree   any
}

// Loader turns input files into syntax trees.
type Loader struct {
	Python string
}

// Load reads path in whatever format its extension names and decodes it.
func (l Loader) Load(ctx context.Context, path string) (*Document, error) {
	tree, src, err := l.ReadTree(ctx, path)
	if err != nil {
		return nil, err
	}
	mod, err := Decode(tree)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	mod.Path = path
	return &Document{Module: mod, Source: src, Tree: tree}, nil
}

// ReadTree returns the generic tree for path without decoding it.
func (l Loader) ReadTree(ctx context.Context, path string) (tree any, src []byte, err error) {
	format, err := FormatOf(path)
	if err != nil {
		return nil, nil, err
	}
	switch format {
	case FormatMsgpack:
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, nil, err
		}
		tree, err = DecodeMsgpack(data)
		return tree, nil, err
	case FormatJSON:
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, nil, err
		}
		tree, err = DecodeJSON(data)
		return tree, nil, err
	default:
		src, err = os.ReadFile(path)
		if err != nil {
			return nil, nil, err
		}
		data, err := l.dump(ctx, path)
		if err != nil {
			return nil, nil, err
		}
		tree, err = DecodeJSON(data)
		return tree, src, err
	}
}

// LoadBytes decodes data already read from path, picking the format from
// the path's extension.
func (l Loader) LoadBytes(ctx context.Context, path string, data []byte) (*Document, error) {
	format, err := FormatOf(path)
	if err != nil {
		return nil, err
	}
	var tree any
	switch format {
	case FormatPython:
		return l.ParseSource(ctx, path, data)
	case FormatMsgpack:
		tree, err = DecodeMsgpack(data)
	default:
		tree, err = DecodeJSON(data)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	mod, err := Decode(tree)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	mod.Path = path
	return &Document{Module: mod, Tree: tree}, nil
}

// ParseSource parses Python text through the interpreter. The text is
// staged in a temporary file so positions match what Python reports.
func (l Loader) ParseSource(ctx context.Context, name string, src []byte) (*Document, error) {
	f, err := os.CreateTemp("", "depyler-*.py")
	if err != nil {
		return nil, err
	}
	defer func() { _ = os.Remove(f.Name()) }()
	if _, err := f.Write(src); err != nil {
		_ = f.Close()
		return nil, err
	}
	if err := f.Close(); err != nil {
		return nil, err
	}
	data, err := l.dump(ctx, f.Name())
	if err != nil {
		return nil, err
	}
	tree, err := DecodeJSON(data)
	if err != nil {
		return nil, err
	}
	mod, err := Decode(tree)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	mod.Path = name
	return &Document{Module: mod, Source: src, Tree: tree}, nil
}

// SyntaxError is returned when the interpreter rejects the input.
type SyntaxError struct {
	Path    string
	Message string
}

func (e *SyntaxError) Error() string { return e.Message }

func (l Loader) dump(ctx context.Context, path string) ([]byte, error) {
	python := l.Python
	if python == "" {
		python = DefaultPython
	}
	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, python, "-c", dumpScript, path)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) && exitErr.ExitCode() == 2 {
			return nil, &SyntaxError{Path: path, Message: strings.TrimSpace(stderr.String())}
		}
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return nil, fmt.Errorf("%s: %w: %s", python, err, msg)
		}
		return nil, fmt.Errorf("%s: %w", python, err)
	}
	return stdout.Bytes(), nil
}

// DecodeJSON parses a JSON ast dump. Numbers stay json.Number so large
// integers survive.
func DecodeJSON(data []byte) (any, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var tree any
	if err := dec.Decode(&tree); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformed, err)
	}
	return tree, nil
}

// DecodeMsgpack parses a msgpack ast dump.
func DecodeMsgpack(data []byte) (any, error) {
	dec := msgpack.NewDecoder(bytes.NewReader(data))
	tree, err := dec.DecodeInterface()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformed, err)
	}
	return tree, nil
}

// EncodeMsgpack serializes a generic tree in the compact interchange form.
func EncodeMsgpack(tree any) ([]byte, error) {
	var buf bytes.Buffer
	enc := msgpack.NewEncoder(&buf)
	enc.SetSortMapKeys(true)
	if err := enc.Encode(normalize(tree)); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// WriteMsgpack stores tree at path, replacing any previous file atomically.
func WriteMsgpack(path string, tree any) error {
	data, err := EncodeMsgpack(tree)
	if err != nil {
		return err
	}
	f, err := os.CreateTemp(filepath.Dir(path), "tmp-*")
	if err != nil {
		return err
	}
	defer func() { _ = os.Remove(f.Name()) }()
	if _, err := f.Write(data); err != nil {
		_ = f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	return os.Rename(f.Name(), path)
}

// normalize replaces json.Number leaves with concrete numbers; msgpack
// would otherwise write them as strings.
func normalize(v any) any {
	switch n := v.(type) {
	case json.Number:
		if i, err := strconv.ParseInt(string(n), 10, 64); err == nil {
			return i
		}
		if f, err := strconv.ParseFloat(string(n), 64); err == nil && strings.ContainsAny(string(n), ".eE") {
			return f
		}
		return map[string]any{"_bigint": string(n)}
	case map[string]any:
		out := make(map[string]any, len(n))
		for k, val := range n {
			out[k] = normalize(val)
		}
		return out
	case []any:
		out := make([]any, len(n))
		for i, val := range n {
			out[i] = normalize(val)
		}
		return out
	}
	return v
}
