package opdef

import (
	"fmt"

	"github.com/roach88/irdl/internal/ir"
)

// flatLen returns the length of an operation's flat list for a construct.
func flatLen(op *ir.Operation, c Construct) int {
	switch c {
	case OperandConstruct:
		return op.NumOperands()
	case ResultConstruct:
		return op.NumResults()
	case RegionConstruct:
		return op.NumRegions()
	case SuccessorConstruct:
		return op.NumSuccessors()
	}
	return 0
}

// VariadicSizes resolves the size of every Optional and Variadic slot of one
// construct, in declaration order. Sizes are computed from the live
// instance on every call and never cached.
//
// Resolution order:
//  1. a segment-size side channel, when declared
//  2. no variadic slots: the flat length must equal the slot count
//  3. one variadic slot: it takes whatever the fixed slots leave
//  4. several variadic slots: same-size grouping divides the remainder
//
// All failures are *VerifyError.
func (s *Schema) VariadicSizes(op *ir.Operation, c Construct) ([]int, error) {
	slots := s.Slots(c)
	n := flatLen(op, c)

	if seg, ok := s.SegmentOption(c); ok {
		return s.sizesFromSegments(op, c, seg, n)
	}

	var variadic []SlotDef
	for _, slot := range slots {
		if slot.Cardinality.IsVariadic() {
			variadic = append(variadic, slot)
		}
	}

	switch len(variadic) {
	case 0:
		if n != len(slots) {
			return nil, s.arityErr(c, "expected %d %ss, but got %d", len(slots), c, n)
		}
		return []int{}, nil

	case 1:
		size := n - len(slots) + 1
		if size < 0 {
			return nil, s.arityErr(c, "expected at least %d %ss, but got %d", len(slots)-1, c, n)
		}
		if variadic[0].Cardinality == Optional && size > 1 {
			return nil, s.arityErr(c, "optional %s '%s' resolves to %d elements; expected %d or %d %ss in total",
				c, variadic[0].Name, size, len(slots)-1, len(slots), c)
		}
		return []int{size}, nil
	}

	if !s.HasSameSize(c) {
		// Build rejects this combination; reaching it means the schema was
		// assembled by hand.
		return nil, s.arityErr(c, "%d variadic %ss without a sizing option", len(variadic), c)
	}

	fixed := len(slots) - len(variadic)
	remainder := n - fixed
	if remainder < 0 {
		return nil, s.arityErr(c, "expected at least %d %ss, but got %d", fixed, c, n)
	}
	if remainder%len(variadic) != 0 {
		return nil, s.arityErr(c,
			"operation has %d %ss for %d variadic %ss marked as having the same size",
			remainder, c, len(variadic), c)
	}
	each := remainder / len(variadic)
	sizes := make([]int, len(variadic))
	for i, slot := range variadic {
		if slot.Cardinality == Optional && each > 1 {
			return nil, s.arityErr(c, "optional %s '%s' resolves to %d elements", c, slot.Name, each)
		}
		sizes[i] = each
	}
	return sizes, nil
}

// sizesFromSegments reads and validates the segment-size side channel.
func (s *Schema) sizesFromSegments(op *ir.Operation, c Construct, seg AttrSizedSegments, n int) ([]int, error) {
	slots := s.Slots(c)
	name := seg.Name()
	container := op.Attributes
	if seg.AsProperty {
		container = op.Properties
	}

	raw, ok := container[name]
	if !ok {
		return nil, &VerifyError{
			Code: ErrSegmentAttr, Op: op.Name, Construct: c, Slot: name,
			Message: fmt.Sprintf("expected %s %s in %s operation", name, seg.Container(), op.Name),
		}
	}
	arr, ok := raw.(ir.DenseArray)
	if !ok || arr.Element != ir.I32 {
		return nil, &VerifyError{
			Code: ErrSegmentAttr, Op: op.Name, Construct: c, Slot: name,
			Message: fmt.Sprintf("%s %s is expected to be a dense array of i32, got %s",
				name, seg.Container(), ir.FormatAttr(raw)),
		}
	}
	if len(arr.Values) != len(slots) {
		return nil, &VerifyError{
			Code: ErrSegmentAttr, Op: op.Name, Construct: c, Slot: name,
			Message: fmt.Sprintf("expected %d values in %s, but got %d", len(slots), name, len(arr.Values)),
		}
	}

	var sizes []int
	total := 0
	for i, slot := range slots {
		size := int(arr.Values[i])
		switch {
		case size < 0:
			return nil, s.segmentErr(c, slot, "%s '%s' has negative size %d in %s", c, slot.Name, size, name)
		case slot.Cardinality == Optional && size > 1:
			return nil, s.segmentErr(c, slot,
				"optional %s '%s' is expected to be of size 0 or 1 in %s, but got %d", c, slot.Name, name, size)
		case slot.Cardinality == Single && size != 1:
			return nil, s.segmentErr(c, slot,
				"non-variadic %s '%s' is expected to be of size 1 in %s, but got %d", c, slot.Name, name, size)
		}
		total += size
		if slot.Cardinality.IsVariadic() {
			sizes = append(sizes, size)
		}
	}
	if total != n {
		return nil, &VerifyError{
			Code: ErrSegmentSize, Op: op.Name, Construct: c, Slot: name,
			Message: fmt.Sprintf("%s sums to %d, but the operation has %d %ss", name, total, n, c),
		}
	}
	if sizes == nil {
		sizes = []int{}
	}
	return sizes, nil
}

// Span is a contiguous range of a flat list.
type Span struct {
	Start int
	Len   int
}

// SlotSpans resolves every slot of a construct to its span of the flat
// list, in declaration order.
func (s *Schema) SlotSpans(op *ir.Operation, c Construct) ([]Span, error) {
	sizes, err := s.VariadicSizes(op, c)
	if err != nil {
		return nil, err
	}
	slots := s.Slots(c)
	spans := make([]Span, len(slots))
	pos, v := 0, 0
	for i, slot := range slots {
		size := 1
		if slot.Cardinality.IsVariadic() {
			size = sizes[v]
			v++
		}
		spans[i] = Span{Start: pos, Len: size}
		pos += size
	}
	return spans, nil
}

func (s *Schema) arityErr(c Construct, format string, args ...any) *VerifyError {
	return &VerifyError{Code: ErrArity, Op: s.Name, Construct: c, Message: fmt.Sprintf(format, args...)}
}

func (s *Schema) segmentErr(c Construct, slot SlotDef, format string, args ...any) *VerifyError {
	return &VerifyError{
		Code: ErrSegmentSize, Op: s.Name, Construct: c, Slot: slot.Name,
		Message: fmt.Sprintf(format, args...),
	}
}
