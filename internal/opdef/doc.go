// Package opdef turns declarative operation definitions into immutable
// schemas and uses them to build, read, and verify IR operations.
//
// A definition is a Decl: an ordered table of Fields built with the
// constructors in slot.go (Operand, VarResult, OptProp, Traits, Options,
// and so on), plus explicit ancestors. Build resolves the table once:
//
//	schema, err := opdef.Build(&opdef.Decl{
//	    Name: "test.concat",
//	    Fields: []opdef.Field{
//	        opdef.VarOperand("inputs", constraint.Base{Kind: ir.KindTensorType}),
//	        opdef.Result("out", constraint.Base{Kind: ir.KindTensorType}),
//	    },
//	})
//
// A Schema is never modified after Build returns and is safe for
// concurrent use. Operations themselves carry only flat operand, result,
// region, and successor lists; the schema maps slot names onto ranges of
// those lists on every call (VariadicSizes, SlotSpans, View).
//
// # Variadic slots
//
// A construct with at most one Optional or Variadic slot needs no extra
// information: the variadic slot takes what the fixed slots leave. With
// several, the schema must declare either SameVariadicSize, which splits the
// remainder evenly, or AttrSizedSegments, which stores one size per slot in
// a dense i32 array named operandSegmentSizes, resultSegmentSizes,
// regionSegmentSizes, or successorSegmentSizes.
//
// # Errors
//
// Errors fall into three classes, each with a stable code:
//
//   - DefinitionError (E2xx): the declaration is malformed; raised by Build
//     and Registry.Register.
//   - VerifyError (E3xx): an instance does not satisfy its schema.
//   - ConstructionError (E4xx): Schema.Build was given slot values whose
//     shape does not fit the slot cardinality.
package opdef
