// Package diag defines the diagnostic model shared by every translation pass.
//
// A Diagnostic carries a Severity, a Code, a message and a primary
// source.Span. Codes are grouped by their thousands digit into the
// translator's failure categories:
//
//   - 1xxx unsupported-construct: the input uses something outside the
//     supported subset; the bridge emits a placeholder node.
//   - 2xxx codegen-unsupported: an HIR shape no emitter handles; nothing is
//     emitted for it.
//   - 3xxx unknown-method: a method on a known receiver type has no table
//     entry; a direct method call is emitted instead.
//   - 4xxx type-unresolved: inference fell back to the dynamic value type.
//   - 5xxx ownership-conflict: a use after move that cloning cannot fix.
//
// Passes emit through a Reporter (usually BagReporter wrapped in a
// DedupReporter) so that translation never stops on a recoverable problem.
// Rendering lives in internal/diagfmt.
package diag
