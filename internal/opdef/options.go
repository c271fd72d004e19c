package opdef

import "fmt"

// Option is a structural option on a schema.
//
// This is a sealed interface - only the types in this file implement it.
type Option interface {
	String() string
	option()
}

// AttrSizedSegments stores the per-slot sizes of one construct in a
// dense i32 array under a reserved name (see SegmentSizesName). The array
// has one entry per declared slot, variadic or not.
type AttrSizedSegments struct {
	Construct  Construct
	AsProperty bool
}

func (AttrSizedSegments) option() {}

func (o AttrSizedSegments) String() string {
	if o.AsProperty {
		return fmt.Sprintf("segments(%s, property)", o.Construct)
	}
	return fmt.Sprintf("segments(%s)", o.Construct)
}

// Name returns the reserved attribute/property name the sizes are stored under.
func (o AttrSizedSegments) Name() string {
	return SegmentSizesName(o.Construct)
}

// Container returns where the sizes are stored.
func (o AttrSizedSegments) Container() Container {
	if o.AsProperty {
		return PropertyContainer
	}
	return AttributeContainer
}

// SameVariadicSize requires every variadic slot of one construct to resolve
// to the same size.
type SameVariadicSize struct {
	Construct Construct
}

func (SameVariadicSize) option() {}

func (o SameVariadicSize) String() string {
	return fmt.Sprintf("same_size(%s)", o.Construct)
}

// ParsePropInAttrDict lets the assembly format read properties from the
// attribute dictionary.
type ParsePropInAttrDict struct{}

func (ParsePropInAttrDict) option() {}

func (ParsePropInAttrDict) String() string { return "prop_in_attr_dict" }

// SegmentSizesName returns the reserved segment-size name for a construct.
func SegmentSizesName(c Construct) string {
	switch c {
	case OperandConstruct:
		return "operandSegmentSizes"
	case ResultConstruct:
		return "resultSegmentSizes"
	case RegionConstruct:
		return "regionSegmentSizes"
	case SuccessorConstruct:
		return "successorSegmentSizes"
	}
	return ""
}

// Container says whether a named constant is stored as an attribute or a
// property.
type Container int

const (
	AttributeContainer Container = iota
	PropertyContainer
)

func (c Container) String() string {
	if c == PropertyContainer {
		return "property"
	}
	return "attribute"
}
