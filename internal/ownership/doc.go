// Package ownership decides how values flow in the emitted code: which
// bindings are mutable, how each parameter is taken (by value, shared
// borrow or exclusive borrow) and, for every use of a non-copy value,
// whether it is moved, borrowed or cloned.
//
// The pass runs after type inference and writes its results into the
// HIR: Param.Mode and Param.Mutated, Func.Mutable, Func.Moved,
// Func.Captured, Expr.Use, and LambdaData.Captures/Move.
package ownership
