// Package constraint implements predicates over attributes and attribute
// sequences, the per-call Context that binds constraint variables, and the
// type-variable substitution used to specialize generic schemas.
//
// Two kinds of constraint exist:
//   - AttrConstraint checks a single attribute
//   - RangeConstraint checks an ordered sequence of attributes
//
// Both share the Constraint interface so declaration tables can hold either;
// consumers type-switch to pick the right entry point.
//
// Constraints are immutable values. All mutable state lives in Context, which
// callers allocate fresh for every verify or construct call.
//
// Constraints can also be written as text (see Parse):
//
//	any | i32 | index          alternatives
//	$T:integer                 constraint variable, bound on first use
//	?T  ?T:tensor              generic type variable, substituted at registration
//	range(i32)  range(any, 2)  sequences
//	$R*:range(tensor)          sequence variable
//	tensor_of($T)  int_attr_of(index)  dense<i16>  base(mesh.sharding)
package constraint
