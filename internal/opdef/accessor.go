package opdef

import (
	"fmt"

	"github.com/roach88/irdl/internal/ir"
)

// SlotAccessor reads one slot of an instance. It is precomputed at Build
// time; the slot's span is resolved against the live instance on every
// call.
type SlotAccessor struct {
	schema *Schema

	Construct         Construct
	Index             int // position in the construct's slot list
	PrecedingVariadic int // variadic slots declared before this one
	Cardinality       Cardinality
}

// Span resolves the slot's range of the flat list.
func (a SlotAccessor) Span(op *ir.Operation) (Span, error) {
	sizes, err := a.schema.VariadicSizes(op, a.Construct)
	if err != nil {
		return Span{}, err
	}
	start := a.Index - a.PrecedingVariadic
	for _, n := range sizes[:a.PrecedingVariadic] {
		start += n
	}
	if !a.Cardinality.IsVariadic() {
		return Span{Start: start, Len: 1}, nil
	}
	return Span{Start: start, Len: sizes[a.PrecedingVariadic]}, nil
}

// Operands returns the operands in the slot's span.
func (a SlotAccessor) Operands(op *ir.Operation) ([]ir.Value, error) {
	return sliceSpan(a, op, OperandConstruct, op.Operands())
}

// Results returns the results in the slot's span.
func (a SlotAccessor) Results(op *ir.Operation) ([]*ir.OpResult, error) {
	return sliceSpan(a, op, ResultConstruct, op.Results())
}

// Regions returns the regions in the slot's span.
func (a SlotAccessor) Regions(op *ir.Operation) ([]*ir.Region, error) {
	return sliceSpan(a, op, RegionConstruct, op.Regions())
}

// Successors returns the successors in the slot's span.
func (a SlotAccessor) Successors(op *ir.Operation) ([]*ir.Block, error) {
	return sliceSpan(a, op, SuccessorConstruct, op.Successors())
}

func sliceSpan[T any](a SlotAccessor, op *ir.Operation, c Construct, flat []T) ([]T, error) {
	if a.Construct != c {
		return nil, fmt.Errorf("%s slot read as a %s", a.Construct, c)
	}
	sp, err := a.Span(op)
	if err != nil {
		return nil, err
	}
	return flat[sp.Start : sp.Start+sp.Len : sp.Start+sp.Len], nil
}

// one collapses a resolved span for Single and Optional slots. An empty
// Optional slot yields the zero value.
func one[T any](a SlotAccessor, vals []T, err error) (T, error) {
	var zero T
	if err != nil {
		return zero, err
	}
	if a.Cardinality == Variadic {
		return zero, fmt.Errorf("variadic %s slot holds a sequence", a.Construct)
	}
	if len(vals) == 0 {
		return zero, nil
	}
	return vals[0], nil
}

// AttrAccessor reads and writes one attribute or property.
type AttrAccessor struct {
	def AttrDef
}

// Def returns the definition behind the accessor.
func (a AttrAccessor) Def() AttrDef { return a.def }

func (a AttrAccessor) container(op *ir.Operation) map[string]ir.Attribute {
	if a.def.Container == PropertyContainer {
		return op.Properties
	}
	return op.Attributes
}

// Get returns the stored value. An absent optional value falls back to the
// declared default, which may be nil. An absent required value is an error.
func (a AttrAccessor) Get(op *ir.Operation) (ir.Attribute, error) {
	if v, ok := a.container(op)[a.def.Name]; ok {
		return v, nil
	}
	if a.def.Optional {
		return a.def.Default, nil
	}
	return nil, &VerifyError{
		Code:    ErrMissingAttr,
		Op:      op.Name,
		Slot:    a.def.Name,
		Message: fmt.Sprintf("%s '%s' expected in operation '%s'", a.def.Container, a.def.Name, op.Name),
	}
}

// Set stores v. Setting nil removes an optional value; it is an error for a
// required one. The value is not verified.
func (a AttrAccessor) Set(op *ir.Operation, v ir.Attribute) error {
	m := a.container(op)
	if v == nil {
		if !a.def.Optional {
			return fmt.Errorf("%s: cannot remove required %s '%s'", op.Name, a.def.Container, a.def.Name)
		}
		delete(m, a.def.Name)
		return nil
	}
	m[a.def.Name] = v
	return nil
}

// SlotAccessor returns the accessor for a declared slot.
func (s *Schema) SlotAccessor(name string) (SlotAccessor, bool) {
	a, ok := s.slotAccessors[name]
	return a, ok
}

// AttrAccessor returns the accessor for a declared attribute or property,
// keyed by its declared field name.
func (s *Schema) AttrAccessor(name string) (AttrAccessor, bool) {
	a, ok := s.attrAccessors[name]
	return a, ok
}

// View binds an instance to its schema and reads slots and attributes by
// declared name.
type View struct {
	Schema *Schema
	Op     *ir.Operation
}

func (v View) slot(name string) (SlotAccessor, error) {
	a, ok := v.Schema.SlotAccessor(name)
	if !ok {
		return SlotAccessor{}, fmt.Errorf("%s has no slot %q", v.Schema.Name, name)
	}
	return a, nil
}

func (v View) attr(name string) (AttrAccessor, error) {
	a, ok := v.Schema.AttrAccessor(name)
	if !ok {
		return AttrAccessor{}, fmt.Errorf("%s has no attribute or property %q", v.Schema.Name, name)
	}
	return a, nil
}

// Operand returns a single or optional operand; nil when an optional
// operand is absent.
func (v View) Operand(name string) (ir.Value, error) {
	a, err := v.slot(name)
	if err != nil {
		return nil, err
	}
	vals, err := a.Operands(v.Op)
	return one(a, vals, err)
}

// VarOperand returns the operands of any slot as a sequence.
func (v View) VarOperand(name string) ([]ir.Value, error) {
	a, err := v.slot(name)
	if err != nil {
		return nil, err
	}
	return a.Operands(v.Op)
}

// Result returns a single or optional result.
func (v View) Result(name string) (*ir.OpResult, error) {
	a, err := v.slot(name)
	if err != nil {
		return nil, err
	}
	vals, err := a.Results(v.Op)
	return one(a, vals, err)
}

// VarResult returns the results of any slot as a sequence.
func (v View) VarResult(name string) ([]*ir.OpResult, error) {
	a, err := v.slot(name)
	if err != nil {
		return nil, err
	}
	return a.Results(v.Op)
}

// Region returns a single or optional region.
func (v View) Region(name string) (*ir.Region, error) {
	a, err := v.slot(name)
	if err != nil {
		return nil, err
	}
	vals, err := a.Regions(v.Op)
	return one(a, vals, err)
}

// VarRegion returns the regions of any slot as a sequence.
func (v View) VarRegion(name string) ([]*ir.Region, error) {
	a, err := v.slot(name)
	if err != nil {
		return nil, err
	}
	return a.Regions(v.Op)
}

// Successor returns a single or optional successor.
func (v View) Successor(name string) (*ir.Block, error) {
	a, err := v.slot(name)
	if err != nil {
		return nil, err
	}
	vals, err := a.Successors(v.Op)
	return one(a, vals, err)
}

// VarSuccessor returns the successors of any slot as a sequence.
func (v View) VarSuccessor(name string) ([]*ir.Block, error) {
	a, err := v.slot(name)
	if err != nil {
		return nil, err
	}
	return a.Successors(v.Op)
}

// Attr returns an attribute or property by declared name.
func (v View) Attr(name string) (ir.Attribute, error) {
	a, err := v.attr(name)
	if err != nil {
		return nil, err
	}
	return a.Get(v.Op)
}

// SetAttr stores or, with nil, removes an attribute or property.
func (v View) SetAttr(name string, val ir.Attribute) error {
	a, err := v.attr(name)
	if err != nil {
		return err
	}
	return a.Set(v.Op, val)
}
