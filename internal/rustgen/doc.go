// Package rustgen renders a typed, ownership-annotated HIR module as a
// single Rust source file.
//
// Every expression is spelled from its inferred type and the Use mark set
// by ownership inference. Library calls are dispatched through per-type
// tables; calls that land on values of unresolved type go through the
// DynValue runtime enum, which is emitted into the file only when used.
// Choices with more than one plausible spelling are recorded in the
// decision trace.
package rustgen
