// Package bridge lowers the Python syntax tree into HIR.
//
// Lowering normalizes control-flow sugar (elif chains, chained
// comparisons, for/else), resolves imports through the module mapper,
// turns annotations into semantic types and records decorators as flags.
// Constructs outside the supported subset produce an unsupported-construct
// diagnostic and a placeholder node; lowering never stops early.
package bridge
