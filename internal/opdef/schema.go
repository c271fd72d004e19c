package opdef

import (
	"fmt"
	"io"
	"maps"
	"slices"

	"github.com/roach88/irdl/internal/constraint"
	"github.com/roach88/irdl/internal/ir"
)

// SlotDef is a resolved operand, result, region, or successor slot.
type SlotDef struct {
	Name        string
	Construct   Construct
	Cardinality Cardinality

	// Constraint checks the slot's element types (operands, results) or its
	// entry-block argument types (regions). Nil for successors. Single
	// operand and result slots hold a length-1 RangeOf.
	Constraint constraint.RangeConstraint

	SingleBlock bool // regions only
}

// ConstraintString renders the slot constraint as it was declared.
func (d SlotDef) ConstraintString() string {
	if d.Constraint == nil {
		return ""
	}
	if r, ok := d.Constraint.(constraint.RangeOf); ok && d.Cardinality == Single && r.Length == 1 {
		return r.Element.String()
	}
	if r, ok := d.Constraint.(constraint.RangeOf); ok && r.Length == constraint.AnyLength {
		return r.Element.String()
	}
	return d.Constraint.String()
}

// AttrDef is a resolved attribute or property.
type AttrDef struct {
	Name       string // stored (IR) name
	Accessor   string // declared field name
	Container  Container
	Constraint constraint.AttrConstraint
	Default    ir.Attribute // nil if none
	Optional   bool
}

// ValueScope names SSA values for textual parsing and printing.
type ValueScope interface {
	Lookup(name string) (ir.Value, bool)
	NameOf(v ir.Value) (string, bool)
}

// FormatProgram is a compiled assembly format.
type FormatProgram interface {
	Parse(input string, scope ValueScope) (*ir.Operation, error)
	Print(w io.Writer, op *ir.Operation, scope ValueScope) error
}

// FormatCompiler compiles an assembly format string against a schema.
type FormatCompiler interface {
	Compile(format string, s *Schema) (FormatProgram, error)
}

// Schema is the immutable definition of one operation kind. It is built
// once by Build and shared by every instance; all methods are safe for
// concurrent use.
//
// The exported fields must not be modified after Build returns.
type Schema struct {
	Name string

	Operands   []SlotDef
	Results    []SlotDef
	Regions    []SlotDef
	Successors []SlotDef

	// Attributes and Properties are keyed by stored (IR) name.
	Attributes map[string]AttrDef
	Properties map[string]AttrDef

	Options []Option
	Traits  []Trait
	Methods []string

	AssemblyFormat string

	customVerify VerifyFunc
	customParse  ParseFunc
	customPrint  PrintFunc
	program      FormatProgram

	slotAccessors map[string]SlotAccessor
	attrAccessors map[string]AttrAccessor
}

// Slots returns the slot list of one construct.
func (s *Schema) Slots(c Construct) []SlotDef {
	switch c {
	case OperandConstruct:
		return s.Operands
	case ResultConstruct:
		return s.Results
	case RegionConstruct:
		return s.Regions
	case SuccessorConstruct:
		return s.Successors
	}
	return nil
}

// Defs returns the attribute or property definitions of one container.
func (s *Schema) Defs(c Container) map[string]AttrDef {
	if c == PropertyContainer {
		return s.Properties
	}
	return s.Attributes
}

// SegmentOption returns the segment-size option for a construct, if declared.
func (s *Schema) SegmentOption(c Construct) (AttrSizedSegments, bool) {
	for _, o := range s.Options {
		if seg, ok := o.(AttrSizedSegments); ok && seg.Construct == c {
			return seg, true
		}
	}
	return AttrSizedSegments{}, false
}

// HasSameSize reports whether same-size grouping is declared for a construct.
func (s *Schema) HasSameSize(c Construct) bool {
	for _, o := range s.Options {
		if ss, ok := o.(SameVariadicSize); ok && ss.Construct == c {
			return true
		}
	}
	return false
}

// HasOption reports whether an option equal to o is declared.
func (s *Schema) HasOption(o Option) bool {
	return slices.Contains(s.Options, o)
}

// HasTrait reports whether a trait with the given name is declared.
func (s *Schema) HasTrait(name string) bool {
	return slices.ContainsFunc(s.Traits, func(t Trait) bool { return t.Name() == name })
}

// HasCustomFormat reports whether hand-written parse or print is declared.
func (s *Schema) HasCustomFormat() bool {
	return s.customParse != nil || s.customPrint != nil
}

// Program returns the compiled assembly format, or nil.
func (s *Schema) Program() FormatProgram { return s.program }

// Parse parses an instance from its custom syntax, through the hand-written
// parser or the compiled assembly format.
func (s *Schema) Parse(input string, scope ValueScope) (*ir.Operation, error) {
	switch {
	case s.customParse != nil:
		return s.customParse(input, scope)
	case s.program != nil:
		return s.program.Parse(input, scope)
	}
	return nil, fmt.Errorf("%s has no custom syntax", s.Name)
}

// Print prints an instance in its custom syntax.
func (s *Schema) Print(w io.Writer, op *ir.Operation, scope ValueScope) error {
	switch {
	case s.customPrint != nil:
		return s.customPrint(w, op, scope)
	case s.program != nil:
		return s.program.Print(w, op, scope)
	}
	return fmt.Errorf("%s has no custom syntax", s.Name)
}

// ---------------------------------------------------------------------------
// Description
// ---------------------------------------------------------------------------

// Description is a deterministic, JSON-friendly summary of a schema.
type Description struct {
	Name           string            `json:"name"`
	Operands       []SlotDescription `json:"operands,omitempty"`
	Results        []SlotDescription `json:"results,omitempty"`
	Regions        []SlotDescription `json:"regions,omitempty"`
	Successors     []SlotDescription `json:"successors,omitempty"`
	Attributes     []AttrDescription `json:"attributes,omitempty"`
	Properties     []AttrDescription `json:"properties,omitempty"`
	Options        []string          `json:"options,omitempty"`
	Traits         []string          `json:"traits,omitempty"`
	Methods        []string          `json:"methods,omitempty"`
	AssemblyFormat string            `json:"assembly_format,omitempty"`
	CustomSyntax   bool              `json:"custom_syntax,omitempty"`
	CustomVerify   bool              `json:"custom_verify,omitempty"`
}

// SlotDescription summarizes one slot.
type SlotDescription struct {
	Name        string `json:"name"`
	Cardinality string `json:"cardinality"`
	Constraint  string `json:"constraint,omitempty"`
	SingleBlock bool   `json:"single_block,omitempty"`
}

// AttrDescription summarizes one attribute or property.
type AttrDescription struct {
	Name       string `json:"name"`
	Accessor   string `json:"accessor,omitempty"`
	Constraint string `json:"constraint"`
	Default    string `json:"default,omitempty"`
	Optional   bool   `json:"optional,omitempty"`
}

// Describe returns a summary of the schema. Attributes and properties are
// sorted by name; slots keep declaration order.
func (s *Schema) Describe() Description {
	d := Description{
		Name:           s.Name,
		Operands:       describeSlots(s.Operands),
		Results:        describeSlots(s.Results),
		Regions:        describeSlots(s.Regions),
		Successors:     describeSlots(s.Successors),
		Attributes:     describeAttrs(s.Attributes),
		Properties:     describeAttrs(s.Properties),
		Methods:        s.Methods,
		AssemblyFormat: s.AssemblyFormat,
		CustomSyntax:   s.HasCustomFormat(),
		CustomVerify:   s.customVerify != nil,
	}
	for _, o := range s.Options {
		d.Options = append(d.Options, o.String())
	}
	for _, t := range s.Traits {
		d.Traits = append(d.Traits, t.Name())
	}
	return d
}

func describeSlots(slots []SlotDef) []SlotDescription {
	var out []SlotDescription
	for _, sl := range slots {
		out = append(out, SlotDescription{
			Name:        sl.Name,
			Cardinality: sl.Cardinality.String(),
			Constraint:  sl.ConstraintString(),
			SingleBlock: sl.SingleBlock,
		})
	}
	return out
}

func describeAttrs(defs map[string]AttrDef) []AttrDescription {
	var out []AttrDescription
	for _, name := range slices.Sorted(maps.Keys(defs)) {
		def := defs[name]
		ad := AttrDescription{
			Name:       name,
			Constraint: def.Constraint.String(),
			Optional:   def.Optional,
		}
		if def.Accessor != name {
			ad.Accessor = def.Accessor
		}
		if def.Default != nil {
			ad.Default = ir.FormatAttr(def.Default)
		}
		out = append(out, ad)
	}
	return out
}
