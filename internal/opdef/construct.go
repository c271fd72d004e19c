package opdef

import (
	"fmt"
	"slices"

	"github.com/roach88/irdl/internal/ir"
)

// ArgKind tags a construction argument.
type ArgKind int

const (
	ArgAbsent ArgKind = iota
	ArgSingle
	ArgMany
)

func (k ArgKind) String() string {
	switch k {
	case ArgSingle:
		return "single"
	case ArgMany:
		return "many"
	}
	return "absent"
}

// Arg is the caller-supplied value of one slot: Absent, Single(v), or
// Many(vs...). The zero value is Absent.
type Arg[T any] struct {
	kind ArgKind
	vals []T
}

// Absent returns an absent argument.
func Absent[T any]() Arg[T] { return Arg[T]{} }

// One returns a single-element argument.
func One[T any](v T) Arg[T] { return Arg[T]{kind: ArgSingle, vals: []T{v}} }

// Many returns a sequence argument. Many() with no values is an empty
// sequence, distinct from Absent.
func Many[T any](vs ...T) Arg[T] { return Arg[T]{kind: ArgMany, vals: slices.Clone(vs)} }

// Kind returns the argument's tag.
func (a Arg[T]) Kind() ArgKind { return a.kind }

// Values returns the elements the argument contributes to the flat list.
func (a Arg[T]) Values() []T { return a.vals }

// BuildInput holds one argument per declared slot, in declaration order,
// plus the attribute and property maps. Nil map values are dropped.
type BuildInput struct {
	Operands    []Arg[ir.Value]
	ResultTypes []Arg[ir.Attribute]
	Regions     []Arg[*ir.Region]
	Successors  []Arg[*ir.Block]
	Attributes  map[string]ir.Attribute
	Properties  map[string]ir.Attribute
}

// Build constructs an instance from per-slot arguments. It flattens each
// construct, encodes segment sizes when the schema stores them, checks
// same-size grouping, creates the operation, and then fills defaults.
//
// Build does not verify constraints; call Verify on the result.
// Shape errors are *ConstructionError.
func (s *Schema) Build(in BuildInput) (*ir.Operation, error) {
	operands, operandSizes, err := flatten(s, OperandConstruct, in.Operands)
	if err != nil {
		return nil, err
	}
	results, resultSizes, err := flatten(s, ResultConstruct, in.ResultTypes)
	if err != nil {
		return nil, err
	}
	regions, regionSizes, err := flatten(s, RegionConstruct, in.Regions)
	if err != nil {
		return nil, err
	}
	successors, successorSizes, err := flatten(s, SuccessorConstruct, in.Successors)
	if err != nil {
		return nil, err
	}

	attrs := dropNil(in.Attributes)
	props := dropNil(in.Properties)

	sizes := map[Construct][]int{
		OperandConstruct:   operandSizes,
		ResultConstruct:    resultSizes,
		RegionConstruct:    regionSizes,
		SuccessorConstruct: successorSizes,
	}
	for _, o := range s.Options {
		switch opt := o.(type) {
		case AttrSizedSegments:
			dst := attrs
			if opt.AsProperty {
				dst = props
			}
			dst[opt.Name()] = ir.DenseI32(sizes[opt.Construct]...)
		case SameVariadicSize:
			if err := s.checkSameSize(opt.Construct, sizes[opt.Construct]); err != nil {
				return nil, err
			}
		}
	}

	op := ir.NewOperation(s.Name, ir.OperationState{
		Operands:    operands,
		ResultTypes: results,
		Attributes:  attrs,
		Properties:  props,
		Regions:     regions,
		Successors:  successors,
	})
	s.ApplyDefaults(op)
	return op, nil
}

// flatten normalizes one construct's arguments into a flat list and the
// per-slot sizes.
func flatten[T any](s *Schema, c Construct, args []Arg[T]) ([]T, []int, error) {
	slots := s.Slots(c)
	if len(args) != len(slots) {
		return nil, nil, &ConstructionError{
			Code:      ErrArgCount,
			Op:        s.Name,
			Construct: c,
			Index:     len(args),
			Message:   fmt.Sprintf("expected %d %s arguments, but got %d", len(slots), c, len(args)),
		}
	}

	var flat []T
	sizes := make([]int, len(slots))
	for i, slot := range slots {
		arg := args[i]
		fail := func(code, format string, a ...any) error {
			return &ConstructionError{
				Code: code, Op: s.Name, Construct: c, Index: i, Slot: slot.Name,
				Message: fmt.Sprintf(format, a...),
			}
		}

		switch arg.Kind() {
		case ArgAbsent:
			if slot.Cardinality != Optional {
				return nil, nil, fail(ErrAbsentForRequired, "passed Absent to a non-optional %s", c)
			}
		case ArgMany:
			if !slot.Cardinality.IsVariadic() {
				return nil, nil, fail(ErrManyForSingle, "passed Many to a non-variadic %s", c)
			}
			if slot.Cardinality == Optional && len(arg.Values()) > 1 {
				return nil, nil, fail(ErrOptionalTooMany,
					"optional %s expects at most 1 element or Absent, but got %d", c, len(arg.Values()))
			}
		case ArgSingle:
			if slot.Cardinality == Variadic {
				return nil, nil, fail(ErrSingleForVariadic, "passed Single to a variadic %s; use Many", c)
			}
		}
		flat = append(flat, arg.Values()...)
		sizes[i] = len(arg.Values())
	}
	return flat, sizes, nil
}

func (s *Schema) checkSameSize(c Construct, sizes []int) error {
	var variadic []int
	for i, slot := range s.Slots(c) {
		if slot.Cardinality.IsVariadic() {
			variadic = append(variadic, sizes[i])
		}
	}
	for _, n := range variadic[min(1, len(variadic)):] {
		if n != variadic[0] {
			return &ConstructionError{
				Code:      ErrSameSizeMismatch,
				Op:        s.Name,
				Construct: c,
				Message:   fmt.Sprintf("variadic %ss have different sizes: %v", c, variadic),
			}
		}
	}
	return nil
}

// ApplyDefaults stores the default of every required attribute and property
// that is absent from op. Optional ones are left absent; their accessors
// return the default instead. Defaults are not re-verified.
func (s *Schema) ApplyDefaults(op *ir.Operation) {
	for name, def := range s.Properties {
		if _, ok := op.Properties[name]; !ok && !def.Optional && def.Default != nil {
			op.Properties[name] = def.Default
		}
	}
	for name, def := range s.Attributes {
		if _, ok := op.Attributes[name]; !ok && !def.Optional && def.Default != nil {
			op.Attributes[name] = def.Default
		}
	}
}

func dropNil(m map[string]ir.Attribute) map[string]ir.Attribute {
	out := make(map[string]ir.Attribute, len(m))
	for k, v := range m {
		if v != nil {
			out[k] = v
		}
	}
	return out
}
