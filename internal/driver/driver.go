// Package driver translates batches of inputs in parallel, reusing cached
// results and reporting progress as it goes.
package driver

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/paiml/depyler-sub011/internal/cargo"
	"github.com/paiml/depyler-sub011/internal/config"
	"github.com/paiml/depyler-sub011/internal/diag"
	"github.com/paiml/depyler-sub011/internal/directive"
	"github.com/paiml/depyler-sub011/internal/observ"
	"github.com/paiml/depyler-sub011/internal/pyast"
	"github.com/paiml/depyler-sub011/internal/source"
	"github.com/paiml/depyler-sub011/internal/trace"
	"github.com/paiml/depyler-sub011/internal/translate"
)

// Options configures a batch.
type Options struct {
	Config         *config.Config // nil means config.Default()
	Jobs           int            // <= 0 means GOMAXPROCS
	MaxDiagnostics int
	Cache          *DiskCache // nil disables caching
	// OutDir receives generated files. Empty means next to each input;
	// NoWrite skips writing altogether.
	OutDir  string
	NoWrite bool
	// Cargo writes a crate directory per module instead of a bare .rs file.
	Cargo bool
	// Directives reads `# @depyler:` comments from .py inputs.
	Directives bool
	Timings    bool
	Sink       ProgressSink
	Observer   PhaseObserver
}

// FileResult is the outcome for one input.
type FileResult struct {
	Path     string
	OutPath  string // "" when nothing was written
	Module   string
	Code     string
	Needs    []string
	Versions map[string]string
	Bag      *diag.Bag
	FileSet  *source.FileSet
	Cached   bool
	Err      error // load, decode or write failure
	Timing   *observ.Report
	// Result is nil for cached entries and failed loads.
	Result *translate.Result
}

// Failed reports whether the input produced an error of any kind.
func (r *FileResult) Failed() bool {
	return r.Err != nil || (r.Bag != nil && r.Bag.HasErrors())
}

// Report summarizes a batch.
type Report struct {
	Files   []FileResult // same order as the inputs
	Timings *observ.Timer
	Cached  int
	Failed  int
}

// isInput reports whether path names something the loader understands.
func isInput(path string) bool {
	_, err := pyast.FormatOf(path)
	return err == nil
}

// ListInputs returns the sorted inputs under root. A file root is returned
// as is. Hidden directories and __pycache__ are skipped.
func ListInputs(root string) ([]string, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return []string{root}, nil
	}
	var files []string
	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			name := d.Name()
			if path != root && (strings.HasPrefix(name, ".") || name == "__pycache__") {
				return filepath.SkipDir
			}
			return nil
		}
		if isInput(path) {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Strings(files)
	return files, nil
}

// Run translates inputs with at most opts.Jobs workers. Per-file failures
// land in the returned report; the error is non-nil only when ctx is
// cancelled.
func Run(ctx context.Context, inputs []string, opts Options) (*Report, error) {
	if opts.Config == nil {
		opts.Config = config.Default()
	}
	if opts.MaxDiagnostics <= 0 {
		opts.MaxDiagnostics = 100
	}
	jobs := opts.Jobs
	if jobs <= 0 {
		jobs = runtime.GOMAXPROCS(0)
	}

	report := &Report{Files: make([]FileResult, len(inputs))}
	if opts.Timings {
		report.Timings = observ.NewTimer()
	}
	if len(inputs) == 0 {
		return report, nil
	}
	for _, path := range inputs {
		emit(opts.Sink, Event{File: path, Stage: StageLoad, Status: StatusQueued})
	}

	tracer := trace.FromContext(ctx)
	span := trace.Begin(tracer, trace.ScopeDriver, "batch", trace.ParentFromContext(ctx))
	span.WithExtra("files", fmt.Sprint(len(inputs)))
	ctx = trace.WithParent(ctx, span)

	phase(opts.Observer, "translate", PhaseStart, 0)
	started := time.Now()
	batchIdx := report.Timings.Begin("translate")

	fingerprint := opts.Config.Fingerprint()

	// Each goroutine owns its index in report.Files.
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(min(jobs, len(inputs)))
	for i, path := range inputs {
		g.Go(func() error {
			select {
			case <-gctx.Done():
				return gctx.Err()
			default:
			}
			report.Files[i] = translateOne(gctx, path, fingerprint, opts)
			return nil
		})
	}
	err := g.Wait()

	report.Timings.End(batchIdx, fmt.Sprintf("files=%d", len(inputs)))
	phase(opts.Observer, "translate", PhaseEnd, time.Since(started))

	for i := range report.Files {
		r := &report.Files[i]
		if r.Cached {
			report.Cached++
		}
		if r.Failed() {
			report.Failed++
		}
	}
	span.End(fmt.Sprintf("cached=%d failed=%d", report.Cached, report.Failed))
	if err != nil {
		return report, err
	}
	return report, nil
}

func phase(obs PhaseObserver, name string, status PhaseStatus, elapsed time.Duration) {
	if obs != nil {
		obs(PhaseEvent{Name: name, Status: status, Elapsed: elapsed})
	}
}

func translateOne(ctx context.Context, path string, fingerprint string, opts Options) (res FileResult) {
	res = FileResult{Path: path, Module: translate.ModuleName(path)}
	var timer *observ.Timer
	if opts.Timings {
		timer = observ.NewTimer()
		defer func() {
			rep := timer.Report()
			res.Timing = &rep
		}()
	}

	start := time.Now()
	emit(opts.Sink, Event{File: path, Stage: StageLoad, Status: StatusWorking})
	loadIdx := timer.Begin("read")
	data, err := os.ReadFile(path)
	timer.End(loadIdx, "")
	if err != nil {
		res.fail(path, nil, diag.IOLoadFileError, fmt.Errorf("read %s: %w", path, err), opts)
		emit(opts.Sink, Event{File: path, Stage: StageLoad, Status: StatusError, Err: res.Err, Elapsed: time.Since(start)})
		return res
	}

	key := CacheKey(data, fmt.Sprintf("%s\x00%s\x00%s\x00directives=%v", fingerprint, res.Module, filepath.Ext(path), opts.Directives))
	if opts.Cache != nil {
		emit(opts.Sink, Event{File: path, Stage: StageCache, Status: StatusWorking})
		var payload DiskPayload
		hit, err := opts.Cache.Get(key, &payload)
		if err == nil && hit {
			res.fromCache(path, data, &payload, opts.MaxDiagnostics)
			emit(opts.Sink, Event{File: path, Stage: StageCache, Status: StatusCached, Elapsed: time.Since(start)})
			res.write(opts, start)
			return res
		}
	}

	loader := opts.Config.Loader()
	decodeIdx := timer.Begin("load")
	doc, err := loader.LoadBytes(ctx, path, data)
	timer.End(decodeIdx, "")
	if err != nil {
		res.fail(path, data, diag.IODecodeError, fmt.Errorf("load %s: %w", path, err), opts)
		emit(opts.Sink, Event{File: path, Stage: StageLoad, Status: StatusError, Err: res.Err, Elapsed: time.Since(start)})
		return res
	}

	emit(opts.Sink, Event{File: path, Stage: StageTranslate, Status: StatusWorking})
	topts := opts.Config.TranslateOptions()
	topts.MaxDiagnostics = opts.MaxDiagnostics
	topts.Timer = timer
	var problems []error
	if opts.Directives && len(doc.Source) > 0 {
		reg := directive.NewRegistry()
		problems = reg.CollectFromSource(path, doc.Source)
		merged, applyErrs := reg.Annotations(topts.Annotations)
		topts.Annotations = merged
		problems = append(problems, applyErrs...)
	}
	result := translate.Document(ctx, doc, path, topts)
	for _, p := range problems {
		result.Bag.Add(directiveDiagnostic(result, p))
	}
	if len(problems) > 0 {
		result.Bag.Sort()
	}

	res.Result = result
	res.Module = result.Module.Name
	res.Code = result.Code
	res.Needs = result.Needs
	res.Versions = result.Versions
	res.Bag = result.Bag
	res.FileSet = result.FileSet

	if opts.Cache != nil {
		payload := &DiskPayload{
			Path:        path,
			Module:      res.Module,
			Code:        res.Code,
			Needs:       res.Needs,
			Versions:    res.Versions,
			Diagnostics: cacheDiagnostics(result.Bag.Items()),
			Decisions:   len(result.Decisions.Entries()),
		}
		// A failed store only costs a retranslation next time.
		_ = opts.Cache.Put(key, payload)
	}

	status := StatusDone
	if result.Failed() {
		status = StatusError
	}
	emit(opts.Sink, Event{File: path, Stage: StageTranslate, Status: status, Elapsed: time.Since(start)})
	res.write(opts, start)
	return res
}

func directiveDiagnostic(result *translate.Result, err error) diag.Diagnostic {
	var sp source.Span
	sp.File = result.File
	var p *directive.Problem
	if errors.As(err, &p) && result.FileSet != nil {
		off := result.FileSet.Offset(result.File, p.Line, 1)
		sp.Start, sp.End = off, off
	}
	return diag.Newf(diag.CfgInvalid, sp, "directive: %v", err)
}

func (r *FileResult) fail(path string, data []byte, code diag.Code, err error, opts Options) {
	r.Err = err
	r.FileSet = source.NewFileSet()
	file := r.FileSet.Add(path, data, 0)
	r.Bag = diag.NewBag(opts.MaxDiagnostics)
	r.Bag.Add(diag.Newf(code, source.Span{File: file}, "%v", err))
}

func (r *FileResult) fromCache(path string, data []byte, p *DiskPayload, maxDiagnostics int) {
	r.Cached = true
	r.Module = p.Module
	r.Code = p.Code
	r.Needs = p.Needs
	r.Versions = p.Versions
	r.FileSet = source.NewFileSet()
	var text []byte
	if format, err := pyast.FormatOf(path); err == nil && format == pyast.FormatPython {
		text = data
	}
	file := r.FileSet.Add(path, text, 0)
	r.Bag = restoreDiagnostics(p.Diagnostics, file, maxDiagnostics)
}

// write stores the generated code unless the file failed or writing is
// disabled.
func (r *FileResult) write(opts Options, start time.Time) {
	if opts.NoWrite || r.Failed() {
		return
	}
	emit(opts.Sink, Event{File: r.Path, Stage: StageWrite, Status: StatusWorking})
	out, err := r.writeOutputs(opts)
	if err != nil {
		r.Err = err
		r.Bag.Add(diag.Newf(diag.IOLoadFileError, source.Span{}, "%v", err))
		emit(opts.Sink, Event{File: r.Path, Stage: StageWrite, Status: StatusError, Err: err, Elapsed: time.Since(start)})
		return
	}
	r.OutPath = out
	emit(opts.Sink, Event{File: r.Path, Stage: StageWrite, Status: StatusDone, Elapsed: time.Since(start)})
}

// OutputPath is where a translation of input lands: <dir>/<module>.rs, or
// <dir>/<module>/src/main.rs for crates.
func OutputPath(input, outDir, module string, crate bool) string {
	dir := outDir
	if dir == "" {
		dir = filepath.Dir(input)
	}
	if crate {
		return filepath.Join(dir, module, "src", "main.rs")
	}
	return filepath.Join(dir, module+".rs")
}

func (r *FileResult) writeOutputs(opts Options) (string, error) {
	crate := opts.Cargo || opts.Config.EmitCargo
	out := OutputPath(r.Path, opts.OutDir, r.Module, crate)
	if err := WriteFileAtomic(out, []byte(r.Code)); err != nil {
		return "", err
	}
	if !crate {
		return out, nil
	}
	copts := opts.Config.CargoOptions(r.Module)
	copts.Versions = r.Versions
	manifest, err := cargo.Render(r.Needs, copts)
	if err != nil {
		return "", fmt.Errorf("%s: %w", r.Path, err)
	}
	crateDir := filepath.Dir(filepath.Dir(out))
	if err := WriteFileAtomic(filepath.Join(crateDir, "Cargo.toml"), []byte(manifest)); err != nil {
		return "", err
	}
	return out, nil
}

// WriteFileAtomic writes data to a temp file in the target directory and
// renames it into place.
func WriteFileAtomic(path string, data []byte) (err error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create %s: %w", dir, err)
	}
	f, err := os.CreateTemp(dir, ".depyler-*")
	if err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	defer func() {
		if err != nil {
			_ = os.Remove(f.Name())
		}
	}()
	if _, err = f.Write(data); err != nil {
		_ = f.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	if err = f.Close(); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	if err = os.Chmod(f.Name(), 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	if err = os.Rename(f.Name(), path); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}
