package ir

import "fmt"

// Attribute is a compile-time constant attached to an operation, or the type
// of an SSA value. Types are attributes too.
//
// AttrName identifies the attribute kind (e.g. "builtin.integer_type") and is
// what base-kind constraints match against.
type Attribute interface {
	AttrName() string
}

// ParamAttribute is implemented by dialect-defined attributes that want to
// take part in canonical encoding and equality. Builtin attributes are
// handled directly and do not need it.
type ParamAttribute interface {
	Attribute
	Parameters() []Attribute
}

// Builtin attribute kind names.
const (
	KindIntegerType = "builtin.integer_type"
	KindIndexType   = "builtin.index"
	KindFloatType   = "builtin.float_type"
	KindTensorType  = "builtin.tensor"
	KindString      = "builtin.string"
	KindInteger     = "builtin.integer"
	KindBool        = "builtin.bool"
	KindUnit        = "builtin.unit"
	KindArray       = "builtin.array"
	KindDenseArray  = "builtin.dense_array"
	KindSymbolRef   = "builtin.symbol_ref"
)

// Signedness of an integer type.
type Signedness int

const (
	Signless Signedness = iota
	Signed
	Unsigned
)

// IntegerType is a fixed-width integer type: i32, si8, ui64.
type IntegerType struct {
	Width      int
	Signedness Signedness
}

func (IntegerType) AttrName() string { return KindIntegerType }

// Common signless integer types.
var (
	I1  = IntegerType{Width: 1}
	I8  = IntegerType{Width: 8}
	I16 = IntegerType{Width: 16}
	I32 = IntegerType{Width: 32}
	I64 = IntegerType{Width: 64}
)

// IndexType is the target-sized integer type used for indices and sizes.
type IndexType struct{}

func (IndexType) AttrName() string { return KindIndexType }

// Index is the index type.
var Index = IndexType{}

// FloatType is an IEEE float type of the given width.
type FloatType struct {
	Width int
}

func (FloatType) AttrName() string { return KindFloatType }

// Common float types.
var (
	F16 = FloatType{Width: 16}
	F32 = FloatType{Width: 32}
	F64 = FloatType{Width: 64}
)

// DynamicDim marks a tensor dimension whose extent is unknown.
const DynamicDim int64 = -1

// TensorType is a ranked tensor type. A dimension of DynamicDim is printed as '?'.
type TensorType struct {
	Shape   []int64
	Element Attribute
}

func (TensorType) AttrName() string { return KindTensorType }

// NewTensorType creates a TensorType with the given element type and shape.
func NewTensorType(elem Attribute, shape ...int64) TensorType {
	return TensorType{Shape: shape, Element: elem}
}

// StringAttr is a string constant.
type StringAttr string

func (StringAttr) AttrName() string { return KindString }

// IntegerAttr is an integer constant of the given integer or index type.
type IntegerAttr struct {
	Value int64
	Type  Attribute
}

func (IntegerAttr) AttrName() string { return KindInteger }

// NewIntegerAttr creates an IntegerAttr. Example: NewIntegerAttr(4, Index)
func NewIntegerAttr(v int64, typ Attribute) IntegerAttr {
	return IntegerAttr{Value: v, Type: typ}
}

// BoolAttr is a boolean constant.
type BoolAttr bool

func (BoolAttr) AttrName() string { return KindBool }

// UnitAttr carries no value; its presence is the information.
type UnitAttr struct{}

func (UnitAttr) AttrName() string { return KindUnit }

// ArrayAttr is an ordered list of attributes.
type ArrayAttr []Attribute

func (ArrayAttr) AttrName() string { return KindArray }

// DenseArray is a fixed-width integer array. Segment sizes are stored as
// DenseArray values with an i32 element type.
type DenseArray struct {
	Element IntegerType
	Values  []int64
}

func (DenseArray) AttrName() string { return KindDenseArray }

// NewDenseArray creates a DenseArray of the given element type.
func NewDenseArray(elem IntegerType, vals ...int64) DenseArray {
	return DenseArray{Element: elem, Values: vals}
}

// DenseI32 creates an i32 DenseArray from ints.
func DenseI32(vals ...int) DenseArray {
	out := make([]int64, len(vals))
	for i, v := range vals {
		out[i] = int64(v)
	}
	return DenseArray{Element: I32, Values: out}
}

// Ints returns the array values as ints.
func (d DenseArray) Ints() []int {
	out := make([]int, len(d.Values))
	for i, v := range d.Values {
		out[i] = int(v)
	}
	return out
}

// SymbolRefAttr references a symbol by name: @mesh0.
type SymbolRefAttr string

func (SymbolRefAttr) AttrName() string { return KindSymbolRef }

// OpaqueAttr is an attribute owned by a dialect that has no Go type of its
// own. It is printed as #dialect.name<params>.
type OpaqueAttr struct {
	Dialect string
	Name    string
	Params  []Attribute
}

// AttrName returns "dialect.name".
func (a OpaqueAttr) AttrName() string {
	return a.Dialect + "." + a.Name
}

// Parameters implements ParamAttribute.
func (a OpaqueAttr) Parameters() []Attribute {
	return a.Params
}

// AttrEqual reports whether two attributes are structurally equal.
// Equality is defined on canonical encodings; attributes that cannot be
// canonically encoded are never equal to anything but nil-equal pairs.
func AttrEqual(a, b Attribute) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	if a.AttrName() != b.AttrName() {
		return false
	}
	ka, err := MarshalCanonical(a)
	if err != nil {
		return false
	}
	kb, err := MarshalCanonical(b)
	if err != nil {
		return false
	}
	return string(ka) == string(kb)
}

// AttrTypes returns the types of the given values.
func AttrTypes[V Value](vals []V) []Attribute {
	out := make([]Attribute, len(vals))
	for i, v := range vals {
		out[i] = v.Type()
	}
	return out
}

// MustAttr panics if err is non-nil. Use only in tests and static tables.
func MustAttr(a Attribute, err error) Attribute {
	if err != nil {
		panic(fmt.Sprintf("ir.MustAttr: %v", err))
	}
	return a
}
