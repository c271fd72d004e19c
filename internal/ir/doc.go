// Package ir provides the IR graph primitives consumed by the operation
// schema framework.
//
// The package owns attributes (including the builtin type and value
// attributes), SSA values, operations, blocks, and regions. It knows nothing
// about schemas: an Operation carries flat operand, result, region, and
// successor lists plus name-keyed attribute and property maps, and the
// opdef package is the only place that maps those flat lists back to named
// slots.
//
// Key design constraints:
//   - ir imports nothing internal; every other internal package imports ir
//   - Attribute equality is canonical-encoding equality (see AttrEqual)
//   - Operations are built only through NewOperation
package ir
