package trace

import (
	"sync/atomic"
	"time"
)

var (
	globalSeq   atomic.Uint64
	globalSpans atomic.Uint64
)

func nextSeq() uint64 { return globalSeq.Add(1) }

// Span tracks one begin/end pair.
type Span struct {
	tracer   Tracer
	id       uint64
	parentID uint64
	scope    Scope
	name     string
	file     string
	started  time.Time
	extra    map[string]string
}

// Begin emits a begin event and returns the span; parent is 0 for roots.
// The returned span is never nil so callers can chain WithExtra/End freely.
func Begin(t Tracer, scope Scope, name string, parent uint64) *Span {
	if t == nil || !t.Enabled() || !t.Level().ShouldEmit(scope) {
		return &Span{tracer: Nop}
	}
	s := &Span{
		tracer:   t,
		id:       globalSpans.Add(1),
		parentID: parent,
		scope:    scope,
		name:     name,
		started:  time.Now(),
	}
	t.Emit(&Event{
		Time:     s.started,
		Kind:     KindSpanBegin,
		Scope:    scope,
		SpanID:   s.id,
		ParentID: parent,
		Name:     name,
	})
	return s
}

// End emits the end event and returns the elapsed time.
func (s *Span) End(detail string) time.Duration {
	if s == nil || s.tracer == nil || !s.tracer.Enabled() {
		return 0
	}
	dur := time.Since(s.started)
	s.tracer.Emit(&Event{
		Time:     time.Now(),
		Kind:     KindSpanEnd,
		Scope:    s.scope,
		SpanID:   s.id,
		ParentID: s.parentID,
		Name:     s.name,
		File:     s.file,
		Detail:   detail,
		Elapsed:  dur,
		Extra:    s.extra,
	})
	return dur
}

// WithFile tags the span, and every child begun from it, with the input
// path. Only the end event carries it; the begin event was already sent.
func (s *Span) WithFile(path string) *Span {
	if s == nil || s.tracer == nil || !s.tracer.Enabled() {
		return s
	}
	s.file = path
	return s
}

// Child begins a span under s on the same tracer, inheriting its file.
func (s *Span) Child(scope Scope, name string) *Span {
	if s == nil || s.tracer == nil || !s.tracer.Enabled() {
		return &Span{tracer: Nop}
	}
	if !s.tracer.Level().ShouldEmit(scope) {
		return &Span{tracer: Nop}
	}
	c := &Span{
		tracer:   s.tracer,
		id:       globalSpans.Add(1),
		parentID: s.id,
		scope:    scope,
		name:     name,
		file:     s.file,
		started:  time.Now(),
	}
	s.tracer.Emit(&Event{
		Time:     c.started,
		Kind:     KindSpanBegin,
		Scope:    scope,
		SpanID:   c.id,
		ParentID: c.parentID,
		Name:     name,
		File:     c.file,
	})
	return c
}

func (s *Span) WithExtra(key, value string) *Span {
	if s == nil || s.tracer == nil || !s.tracer.Enabled() {
		return s
	}
	if s.extra == nil {
		s.extra = make(map[string]string)
	}
	s.extra[key] = value
	return s
}

func (s *Span) ID() uint64 {
	if s == nil {
		return 0
	}
	return s.id
}

// Point emits an instant event.
func Point(t Tracer, scope Scope, name, detail string, parent uint64) {
	if t == nil || !t.Enabled() || !t.Level().ShouldEmit(scope) {
		return
	}
	t.Emit(&Event{
		Time:     time.Now(),
		Kind:     KindPoint,
		Scope:    scope,
		ParentID: parent,
		Name:     name,
		Detail:   detail,
	})
}
