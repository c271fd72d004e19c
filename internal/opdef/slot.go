package opdef

import (
	"io"

	"github.com/roach88/irdl/internal/constraint"
	"github.com/roach88/irdl/internal/ir"
)

// Cardinality is how many flat elements a slot takes.
type Cardinality int

const (
	Single   Cardinality = iota // exactly one
	Optional                    // zero or one
	Variadic                    // zero or more
)

func (c Cardinality) String() string {
	switch c {
	case Single:
		return "single"
	case Optional:
		return "optional"
	case Variadic:
		return "variadic"
	}
	return "unknown"
}

// IsVariadic reports whether the slot's size must be resolved (Optional or
// Variadic).
func (c Cardinality) IsVariadic() bool { return c != Single }

// Construct is a kind of flat list on an operation.
type Construct int

const (
	OperandConstruct Construct = iota
	ResultConstruct
	RegionConstruct
	SuccessorConstruct
)

// Constructs lists every construct in verification order.
var Constructs = []Construct{OperandConstruct, ResultConstruct, RegionConstruct, SuccessorConstruct}

func (c Construct) String() string {
	switch c {
	case OperandConstruct:
		return "operand"
	case ResultConstruct:
		return "result"
	case RegionConstruct:
		return "region"
	case SuccessorConstruct:
		return "successor"
	}
	return "unknown"
}

// FieldKind classifies a declaration table entry.
type FieldKind int

const (
	FieldInvalid FieldKind = iota
	FieldOperand
	FieldResult
	FieldRegion
	FieldSuccessor
	FieldAttribute
	FieldProperty
	FieldTraits
	FieldOptions
	FieldMethod
	FieldCustomVerify
	FieldCustomParse
	FieldCustomPrint
)

func (k FieldKind) String() string {
	switch k {
	case FieldOperand:
		return "operand"
	case FieldResult:
		return "result"
	case FieldRegion:
		return "region"
	case FieldSuccessor:
		return "successor"
	case FieldAttribute:
		return "attribute"
	case FieldProperty:
		return "property"
	case FieldTraits:
		return "traits"
	case FieldOptions:
		return "options"
	case FieldMethod:
		return "method"
	case FieldCustomVerify:
		return "custom verify"
	case FieldCustomParse:
		return "custom parse"
	case FieldCustomPrint:
		return "custom print"
	}
	return "invalid"
}

// construct maps slot field kinds to their construct.
func (k FieldKind) construct() (Construct, bool) {
	switch k {
	case FieldOperand:
		return OperandConstruct, true
	case FieldResult:
		return ResultConstruct, true
	case FieldRegion:
		return RegionConstruct, true
	case FieldSuccessor:
		return SuccessorConstruct, true
	}
	return 0, false
}

// ParseFunc is a hand-written parser for an operation's custom syntax.
type ParseFunc func(input string, scope ValueScope) (*ir.Operation, error)

// PrintFunc is a hand-written printer for an operation's custom syntax.
type PrintFunc func(w io.Writer, op *ir.Operation, scope ValueScope) error

// VerifyFunc is a hand-written verifier run after schema verification.
type VerifyFunc func(op *ir.Operation) error

// Field is one entry of a declaration table. Build fields with the
// constructors below rather than by hand.
type Field struct {
	Name        string
	Kind        FieldKind
	Cardinality Cardinality

	// Constraint is the element constraint for operands and results, the
	// entry-argument constraint for regions, and the value constraint for
	// attributes and properties.
	Constraint constraint.Constraint

	SingleBlock bool         // regions only
	Default     ir.Attribute // attributes and properties only
	IRName      string       // attributes and properties only; defaults to Name

	Traits  []Trait
	Options []Option

	Verify VerifyFunc
	Parse  ParseFunc
	Print  PrintFunc
}

// WithDefault sets the default of an attribute or property field.
func (f Field) WithDefault(a ir.Attribute) Field {
	f.Default = a
	return f
}

// WithIRName sets the stored name of an attribute or property field when
// it differs from the accessor name.
func (f Field) WithIRName(name string) Field {
	f.IRName = name
	return f
}

// WithEntryArgs sets the entry-block argument constraint of a region field.
func (f Field) WithEntryArgs(c constraint.Constraint) Field {
	f.Constraint = c
	return f
}

// ---------------------------------------------------------------------------
// Operands and results
// ---------------------------------------------------------------------------

// Operand declares a single operand.
func Operand(name string, c constraint.Constraint) Field {
	return Field{Name: name, Kind: FieldOperand, Cardinality: Single, Constraint: c}
}

// OptOperand declares an optional operand.
func OptOperand(name string, c constraint.Constraint) Field {
	return Field{Name: name, Kind: FieldOperand, Cardinality: Optional, Constraint: c}
}

// VarOperand declares a variadic operand.
func VarOperand(name string, c constraint.Constraint) Field {
	return Field{Name: name, Kind: FieldOperand, Cardinality: Variadic, Constraint: c}
}

// Result declares a single result.
func Result(name string, c constraint.Constraint) Field {
	return Field{Name: name, Kind: FieldResult, Cardinality: Single, Constraint: c}
}

// OptResult declares an optional result.
func OptResult(name string, c constraint.Constraint) Field {
	return Field{Name: name, Kind: FieldResult, Cardinality: Optional, Constraint: c}
}

// VarResult declares a variadic result.
func VarResult(name string, c constraint.Constraint) Field {
	return Field{Name: name, Kind: FieldResult, Cardinality: Variadic, Constraint: c}
}

// ---------------------------------------------------------------------------
// Regions and successors
// ---------------------------------------------------------------------------

// Region declares a single region. Its entry arguments are unconstrained
// unless WithEntryArgs is used.
func Region(name string) Field {
	return Field{Name: name, Kind: FieldRegion, Cardinality: Single}
}

// OptRegion declares an optional region.
func OptRegion(name string) Field {
	return Field{Name: name, Kind: FieldRegion, Cardinality: Optional}
}

// VarRegion declares a variadic region.
func VarRegion(name string) Field {
	return Field{Name: name, Kind: FieldRegion, Cardinality: Variadic}
}

// SingleBlockRegion declares a single region that must hold exactly one block.
func SingleBlockRegion(name string) Field {
	return Field{Name: name, Kind: FieldRegion, Cardinality: Single, SingleBlock: true}
}

// OptSingleBlockRegion declares an optional single-block region.
func OptSingleBlockRegion(name string) Field {
	return Field{Name: name, Kind: FieldRegion, Cardinality: Optional, SingleBlock: true}
}

// VarSingleBlockRegion declares a variadic list of single-block regions.
func VarSingleBlockRegion(name string) Field {
	return Field{Name: name, Kind: FieldRegion, Cardinality: Variadic, SingleBlock: true}
}

// Successor declares a single successor block.
func Successor(name string) Field {
	return Field{Name: name, Kind: FieldSuccessor, Cardinality: Single}
}

// OptSuccessor declares an optional successor.
func OptSuccessor(name string) Field {
	return Field{Name: name, Kind: FieldSuccessor, Cardinality: Optional}
}

// VarSuccessor declares a variadic successor list.
func VarSuccessor(name string) Field {
	return Field{Name: name, Kind: FieldSuccessor, Cardinality: Variadic}
}

// ---------------------------------------------------------------------------
// Attributes and properties
// ---------------------------------------------------------------------------

// Attr declares a required attribute.
func Attr(name string, c constraint.AttrConstraint) Field {
	return Field{Name: name, Kind: FieldAttribute, Cardinality: Single, Constraint: c}
}

// OptAttr declares an optional attribute.
func OptAttr(name string, c constraint.AttrConstraint) Field {
	return Field{Name: name, Kind: FieldAttribute, Cardinality: Optional, Constraint: c}
}

// Prop declares a required property.
func Prop(name string, c constraint.AttrConstraint) Field {
	return Field{Name: name, Kind: FieldProperty, Cardinality: Single, Constraint: c}
}

// OptProp declares an optional property.
func OptProp(name string, c constraint.AttrConstraint) Field {
	return Field{Name: name, Kind: FieldProperty, Cardinality: Optional, Constraint: c}
}

// ---------------------------------------------------------------------------
// Traits, options, and behavior
// ---------------------------------------------------------------------------

// Traits declares the trait set. The closest declaration in the ancestor
// chain wins.
func Traits(ts ...Trait) Field {
	return Field{Name: "traits", Kind: FieldTraits, Traits: ts}
}

// Options declares structural options. Options accumulate across ancestors.
func Options(opts ...Option) Field {
	return Field{Name: "irdl_options", Kind: FieldOptions, Options: opts}
}

// Method declares a named method implemented by the client outside the
// schema. It is recorded but otherwise opaque.
func Method(name string) Field {
	return Field{Name: name, Kind: FieldMethod}
}

// CustomVerify declares a verifier run after every schema check.
func CustomVerify(fn VerifyFunc) Field {
	return Field{Name: "verify_", Kind: FieldCustomVerify, Verify: fn}
}

// CustomParse declares a hand-written parser.
func CustomParse(fn ParseFunc) Field {
	return Field{Name: "parse", Kind: FieldCustomParse, Parse: fn}
}

// CustomPrint declares a hand-written printer.
func CustomPrint(fn PrintFunc) Field {
	return Field{Name: "print", Kind: FieldCustomPrint, Print: fn}
}
