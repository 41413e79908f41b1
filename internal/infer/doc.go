// Package infer assigns a semantic type to every HIR expression and
// computes the per-function flags codegen depends on: can-fail,
// returns-optional and returns-iterator.
//
// Inference is forward and flow-insensitive within a function: bindings
// accumulate every type assigned to them through types.Join. The module
// is visited in rounds so that unannotated callees resolve before their
// callers settle; a final pass replaces whatever stayed unknown with the
// dynamic placeholder and reports it.
package infer
