// Package trace records what the translator did and when.
//
// Two streams live here. Pass tracing emits begin/end span events for the
// driver, every pass and (at debug level) every function; a Tracer is carried
// in context.Context and retrieved with FromContext. The decision trace is a
// per-translation DecisionLog listing the non-obvious choices code generation
// made (how a dynamic value was dispatched, why a clone was inserted, which
// import mapping was used). Tests read the DecisionLog directly; when a
// tracer is attached at debug level every decision is also emitted as a
// point event.
//
// Levels: off < error < phase < detail < debug. Storage: stream writes each
// event immediately, ring keeps the last N in memory, both does the two.
package trace
