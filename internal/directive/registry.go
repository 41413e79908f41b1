package directive

import (
	"fmt"
	"sync"

	"github.com/paiml/depyler-sub011/internal/hir"
)

// Registry collects directives from one or more files and folds them into
// per-target annotations. Safe for concurrent use.
type Registry struct {
	mu         sync.Mutex
	directives []Directive
	byTarget   map[string][]int // target -> indices into directives
}

// NewRegistry creates an empty directive registry.
func NewRegistry() *Registry {
	return &Registry{
		directives: make([]Directive, 0),
		byTarget:   make(map[string][]int),
	}
}

// Add registers one directive.
func (r *Registry) Add(d Directive) {
	r.mu.Lock()
	defer r.mu.Unlock()

	idx := len(r.directives)
	r.directives = append(r.directives, d)
	r.byTarget[d.Target] = append(r.byTarget[d.Target], idx)
}

// CollectFromSource scans src and registers what it finds. Scan problems
// are returned with file prefixed.
func (r *Registry) CollectFromSource(file string, src []byte) []error {
	found, problems := Scan(src)
	for _, d := range found {
		r.Add(d)
	}
	for i, p := range problems {
		problems[i] = fmt.Errorf("%s: %w", file, p)
	}
	return problems
}

// All returns all registered directives in registration order.
func (r *Registry) All() []Directive {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Directive(nil), r.directives...)
}

// ForTarget returns the directives attached to one qualified name.
func (r *Registry) ForTarget(target string) []Directive {
	r.mu.Lock()
	defer r.mu.Unlock()

	var result []Directive
	for _, idx := range r.byTarget[target] {
		result = append(result, r.directives[idx])
	}
	return result
}

// Len returns the total number of directives.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.directives)
}

// Annotations applies directives in order over base (which is not
// modified) and returns the merged map. Invalid values are reported and
// skipped.
func (r *Registry) Annotations(base map[string]hir.Annotations) (map[string]hir.Annotations, []error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make(map[string]hir.Annotations, len(base)+len(r.byTarget))
	for k, v := range base {
		out[k] = v
	}
	var errs []error
	for _, d := range r.directives {
		a := out[d.Target]
		if err := Apply(&a, d.Key, d.Value); err != nil {
			errs = append(errs, &Problem{Line: d.Line, Msg: err.Error()})
			continue
		}
		out[d.Target] = a
	}
	return out, errs
}
