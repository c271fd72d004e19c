package constraint

import (
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/roach88/irdl/internal/ir"
)

// Constraint is the common surface of AttrConstraint and RangeConstraint.
type Constraint interface {
	// String returns the textual form, parseable by Parse.
	String() string

	// TypeVars returns the names of unresolved generic type variables,
	// sorted and without duplicates.
	TypeVars() []string
}

// AttrConstraint checks a single attribute.
type AttrConstraint interface {
	Constraint
	Verify(a ir.Attribute, ctx *Context) error

	// MapTypeVars returns a copy with every type variable named in m replaced
	// by its binding. Variables not in m are left in place.
	MapTypeVars(m map[string]AttrConstraint) AttrConstraint
}

// RangeConstraint checks an ordered sequence of attributes.
type RangeConstraint interface {
	Constraint
	VerifyRange(as []ir.Attribute, ctx *Context) error
	MapTypeVars(m map[string]AttrConstraint) RangeConstraint
}

// Compile-time interface checks.
var (
	_ AttrConstraint  = Any{}
	_ AttrConstraint  = Eq{}
	_ AttrConstraint  = Base{}
	_ AttrConstraint  = AnyOf{}
	_ AttrConstraint  = AllOf{}
	_ AttrConstraint  = Var{}
	_ AttrConstraint  = TypeVar{}
	_ AttrConstraint  = IntegerAttrOf{}
	_ AttrConstraint  = TensorOf{}
	_ AttrConstraint  = ArrayOf{}
	_ AttrConstraint  = DenseArrayOf{}
	_ RangeConstraint = RangeOf{}
	_ RangeConstraint = RangeVar{}
)

// Any accepts every attribute.
type Any struct{}

func (Any) String() string                                      { return "any" }
func (Any) TypeVars() []string                                  { return nil }
func (Any) Verify(ir.Attribute, *Context) error                 { return nil }
func (c Any) MapTypeVars(map[string]AttrConstraint) AttrConstraint { return c }

// Eq accepts exactly one attribute value.
type Eq struct {
	Attr ir.Attribute
}

func (c Eq) String() string     { return ir.FormatAttr(c.Attr) }
func (Eq) TypeVars() []string   { return nil }

func (c Eq) Verify(a ir.Attribute, _ *Context) error {
	if !ir.AttrEqual(c.Attr, a) {
		return violation(c, a)
	}
	return nil
}

func (c Eq) MapTypeVars(map[string]AttrConstraint) AttrConstraint { return c }

// Base accepts any attribute of the given kind (matched on AttrName).
type Base struct {
	Kind string
}

func (c Base) String() string {
	if name, ok := baseNames[c.Kind]; ok {
		return name
	}
	return "base(" + c.Kind + ")"
}

func (Base) TypeVars() []string { return nil }

func (c Base) Verify(a ir.Attribute, _ *Context) error {
	if a == nil || a.AttrName() != c.Kind {
		return violation(c, a)
	}
	return nil
}

func (c Base) MapTypeVars(map[string]AttrConstraint) AttrConstraint { return c }

// AnyOf accepts an attribute satisfying at least one alternative. Bindings
// made by a failed alternative are discarded.
type AnyOf struct {
	Alts []AttrConstraint
}

func (c AnyOf) String() string {
	parts := make([]string, len(c.Alts))
	for i, alt := range c.Alts {
		parts[i] = alt.String()
	}
	return strings.Join(parts, " | ")
}

func (c AnyOf) TypeVars() []string { return collectTypeVars(attrConstraints(c.Alts)...) }

func (c AnyOf) Verify(a ir.Attribute, ctx *Context) error {
	for _, alt := range c.Alts {
		trial := ctx.Copy()
		if alt.Verify(a, trial) == nil {
			ctx.Update(trial)
			return nil
		}
	}
	return violation(c, a)
}

func (c AnyOf) MapTypeVars(m map[string]AttrConstraint) AttrConstraint {
	return AnyOf{Alts: mapAll(c.Alts, m)}
}

// AllOf accepts an attribute satisfying every part, checked in order.
type AllOf struct {
	Parts []AttrConstraint
}

func (c AllOf) String() string {
	parts := make([]string, len(c.Parts))
	for i, p := range c.Parts {
		parts[i] = p.String()
	}
	return "all(" + strings.Join(parts, ", ") + ")"
}

func (c AllOf) TypeVars() []string { return collectTypeVars(attrConstraints(c.Parts)...) }

func (c AllOf) Verify(a ir.Attribute, ctx *Context) error {
	for _, p := range c.Parts {
		if err := p.Verify(a, ctx); err != nil {
			return err
		}
	}
	return nil
}

func (c AllOf) MapTypeVars(m map[string]AttrConstraint) AttrConstraint {
	return AllOf{Parts: mapAll(c.Parts, m)}
}

// Var is a constraint variable. The first attribute that satisfies Inner is
// bound to Name; every later use must be equal to it.
type Var struct {
	Name  string
	Inner AttrConstraint
}

func (c Var) String() string {
	if _, ok := c.Inner.(Any); ok || c.Inner == nil {
		return "$" + c.Name
	}
	return "$" + c.Name + ":" + wrapAlternatives(c.Inner)
}

func (c Var) TypeVars() []string { return innerTypeVars(c.Inner) }

func (c Var) Verify(a ir.Attribute, ctx *Context) error {
	if bound, ok := ctx.Var(c.Name); ok {
		if !ir.AttrEqual(bound, a) {
			return &Violation{
				Constraint: c.String(),
				Got:        ir.FormatAttr(a),
				Message: fmt.Sprintf("variable $%s is bound to %s, got %s",
					c.Name, ir.FormatAttr(bound), ir.FormatAttr(a)),
			}
		}
		return nil
	}
	if c.Inner != nil {
		if err := c.Inner.Verify(a, ctx); err != nil {
			return err
		}
	}
	ctx.SetVar(c.Name, a)
	return nil
}

func (c Var) MapTypeVars(m map[string]AttrConstraint) AttrConstraint {
	if c.Inner == nil {
		return c
	}
	return Var{Name: c.Name, Inner: c.Inner.MapTypeVars(m)}
}

// TypeVar is a generic type variable. It is replaced by a concrete
// constraint when a generic schema is specialized; until then it verifies
// against Bound.
type TypeVar struct {
	Name  string
	Bound AttrConstraint
}

func (c TypeVar) String() string {
	if _, ok := c.Bound.(Any); ok || c.Bound == nil {
		return "?" + c.Name
	}
	return "?" + c.Name + ":" + wrapAlternatives(c.Bound)
}

func (c TypeVar) TypeVars() []string { return []string{c.Name} }

func (c TypeVar) Verify(a ir.Attribute, ctx *Context) error {
	if c.Bound == nil {
		return nil
	}
	return c.Bound.Verify(a, ctx)
}

func (c TypeVar) MapTypeVars(m map[string]AttrConstraint) AttrConstraint {
	if repl, ok := m[c.Name]; ok {
		return repl
	}
	return c
}

// IntegerAttrOf accepts an IntegerAttr whose type satisfies Type.
type IntegerAttrOf struct {
	Type AttrConstraint
}

func (c IntegerAttrOf) String() string     { return "int_attr_of(" + c.Type.String() + ")" }
func (c IntegerAttrOf) TypeVars() []string { return innerTypeVars(c.Type) }

func (c IntegerAttrOf) Verify(a ir.Attribute, ctx *Context) error {
	ia, ok := a.(ir.IntegerAttr)
	if !ok {
		return violation(c, a)
	}
	return c.Type.Verify(ia.Type, ctx)
}

func (c IntegerAttrOf) MapTypeVars(m map[string]AttrConstraint) AttrConstraint {
	return IntegerAttrOf{Type: c.Type.MapTypeVars(m)}
}

// TensorOf accepts a TensorType whose element type satisfies Element.
type TensorOf struct {
	Element AttrConstraint
}

func (c TensorOf) String() string     { return "tensor_of(" + c.Element.String() + ")" }
func (c TensorOf) TypeVars() []string { return innerTypeVars(c.Element) }

func (c TensorOf) Verify(a ir.Attribute, ctx *Context) error {
	tt, ok := a.(ir.TensorType)
	if !ok {
		return violation(c, a)
	}
	return c.Element.Verify(tt.Element, ctx)
}

func (c TensorOf) MapTypeVars(m map[string]AttrConstraint) AttrConstraint {
	return TensorOf{Element: c.Element.MapTypeVars(m)}
}

// ArrayOf accepts an ArrayAttr whose every element satisfies Element.
type ArrayOf struct {
	Element AttrConstraint
}

func (c ArrayOf) String() string     { return "array_of(" + c.Element.String() + ")" }
func (c ArrayOf) TypeVars() []string { return innerTypeVars(c.Element) }

func (c ArrayOf) Verify(a ir.Attribute, ctx *Context) error {
	arr, ok := a.(ir.ArrayAttr)
	if !ok {
		return violation(c, a)
	}
	for i, elem := range arr {
		if err := c.Element.Verify(elem, ctx); err != nil {
			return fmt.Errorf("array element %d: %w", i, err)
		}
	}
	return nil
}

func (c ArrayOf) MapTypeVars(m map[string]AttrConstraint) AttrConstraint {
	return ArrayOf{Element: c.Element.MapTypeVars(m)}
}

// DenseArrayOf accepts a DenseArray with exactly the given element type.
type DenseArrayOf struct {
	Element ir.IntegerType
}

func (c DenseArrayOf) String() string { return "dense<" + ir.FormatAttr(c.Element) + ">" }
func (DenseArrayOf) TypeVars() []string { return nil }

func (c DenseArrayOf) Verify(a ir.Attribute, _ *Context) error {
	d, ok := a.(ir.DenseArray)
	if !ok || d.Element != c.Element {
		return violation(c, a)
	}
	return nil
}

func (c DenseArrayOf) MapTypeVars(map[string]AttrConstraint) AttrConstraint { return c }

// AnyLength marks a RangeOf without a length requirement.
const AnyLength = -1

// RangeOf accepts a sequence whose every element satisfies Element. If
// Length is not AnyLength the sequence must have exactly that many elements.
type RangeOf struct {
	Element AttrConstraint
	Length  int
}

// NewRangeOf returns a RangeOf of any length.
func NewRangeOf(elem AttrConstraint) RangeOf {
	return RangeOf{Element: elem, Length: AnyLength}
}

func (c RangeOf) String() string {
	if c.Length == AnyLength {
		return "range(" + c.Element.String() + ")"
	}
	return "range(" + c.Element.String() + ", " + strconv.Itoa(c.Length) + ")"
}

func (c RangeOf) TypeVars() []string { return innerTypeVars(c.Element) }

func (c RangeOf) VerifyRange(as []ir.Attribute, ctx *Context) error {
	if c.Length != AnyLength && len(as) != c.Length {
		return rangeViolation(c, as, fmt.Sprintf("expected %d elements, got %d", c.Length, len(as)))
	}
	for i, a := range as {
		if err := c.Element.Verify(a, ctx); err != nil {
			return fmt.Errorf("element %d: %w", i, err)
		}
	}
	return nil
}

func (c RangeOf) MapTypeVars(m map[string]AttrConstraint) RangeConstraint {
	return RangeOf{Element: c.Element.MapTypeVars(m), Length: c.Length}
}

// RangeVar is a sequence variable: the first sequence satisfying Inner is
// bound to Name, and every later use must be element-wise equal.
type RangeVar struct {
	Name  string
	Inner RangeConstraint
}

func (c RangeVar) String() string {
	if r, ok := c.Inner.(RangeOf); ok && r.Length == AnyLength {
		if _, isAny := r.Element.(Any); isAny {
			return "$" + c.Name + "*"
		}
	}
	return "$" + c.Name + "*:" + c.Inner.String()
}

func (c RangeVar) TypeVars() []string { return innerTypeVars(c.Inner) }

func (c RangeVar) VerifyRange(as []ir.Attribute, ctx *Context) error {
	if bound, ok := ctx.RangeVar(c.Name); ok {
		if !slices.EqualFunc(bound, as, ir.AttrEqual) {
			return rangeViolation(c, as, fmt.Sprintf("variable $%s* is bound to [%s], got [%s]",
				c.Name, ir.FormatAttrs(bound), ir.FormatAttrs(as)))
		}
		return nil
	}
	if err := c.Inner.VerifyRange(as, ctx); err != nil {
		return err
	}
	ctx.SetRangeVar(c.Name, as)
	return nil
}

func (c RangeVar) MapTypeVars(m map[string]AttrConstraint) RangeConstraint {
	return RangeVar{Name: c.Name, Inner: c.Inner.MapTypeVars(m)}
}

// AsRange coerces a Constraint to a RangeConstraint. An AttrConstraint
// becomes RangeOf(c) of any length.
func AsRange(c Constraint) (RangeConstraint, error) {
	switch v := c.(type) {
	case RangeConstraint:
		return v, nil
	case AttrConstraint:
		return NewRangeOf(v), nil
	case nil:
		return NewRangeOf(Any{}), nil
	default:
		return nil, fmt.Errorf("constraint %T is neither an attribute nor a range constraint", c)
	}
}

// VerifyAttr checks a single attribute against c, failing if c is a
// RangeConstraint.
func VerifyAttr(c Constraint, a ir.Attribute, ctx *Context) error {
	ac, ok := c.(AttrConstraint)
	if !ok {
		return fmt.Errorf("constraint %s is a range constraint and cannot check a single attribute", c)
	}
	return ac.Verify(a, ctx)
}

// ---------------------------------------------------------------------------
// helpers
// ---------------------------------------------------------------------------

func innerTypeVars(c Constraint) []string {
	if c == nil {
		return nil
	}
	return c.TypeVars()
}

func attrConstraints(cs []AttrConstraint) []Constraint {
	out := make([]Constraint, len(cs))
	for i, c := range cs {
		out[i] = c
	}
	return out
}

func collectTypeVars(cs ...Constraint) []string {
	var names []string
	for _, c := range cs {
		names = append(names, innerTypeVars(c)...)
	}
	slices.Sort(names)
	return slices.Compact(names)
}

func mapAll(cs []AttrConstraint, m map[string]AttrConstraint) []AttrConstraint {
	out := make([]AttrConstraint, len(cs))
	for i, c := range cs {
		out[i] = c.MapTypeVars(m)
	}
	return out
}

func wrapAlternatives(c AttrConstraint) string {
	if _, ok := c.(AnyOf); ok {
		return "(" + c.String() + ")"
	}
	return c.String()
}
