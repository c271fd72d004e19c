package opdef

import (
	"slices"
	"strings"

	"github.com/roach88/irdl/internal/constraint"
	"github.com/roach88/irdl/internal/ir"
)

// Decl is the declaration table of one operation kind.
//
// Ancestors are composed explicitly through Extends. Their fields are
// merged with a most-derived-wins rule: the first declaration of a name
// along the linearized ancestor chain is kept, and later ones are skipped
// after checking they have the same category. Options are the exception:
// they accumulate from every ancestor.
type Decl struct {
	// Name is the fully qualified kind name, e.g. "mesh.all_gather".
	// Abstract bases may use a short label.
	Name string

	// Abstract declarations can be extended but not registered.
	Abstract bool

	// Extends lists direct ancestors, most important first.
	Extends []*Decl

	// Fields is the ordered declaration table.
	Fields []Field

	// Bind specializes generic ancestors: every type variable named here is
	// replaced by its constraint. Bindings on nearer declarations win.
	Bind map[string]constraint.AttrConstraint

	// AssemblyFormat is the declarative textual syntax. The nearest
	// non-empty format in the chain is used.
	AssemblyFormat string
}

// reservedNames are already provided by every operation and are skipped
// when they appear in a declaration table.
var reservedNames = map[string]bool{
	"name":       true,
	"operands":   true,
	"results":    true,
	"attributes": true,
	"properties": true,
	"regions":    true,
	"successors": true,
	"parent":     true,
}

// Build resolves a declaration and its ancestors into a Schema.
// All errors are *DefinitionError.
func Build(d *Decl) (*Schema, error) {
	if d == nil {
		return nil, defErr("<nil>", "", ErrAbstractKind, "declaration is nil")
	}
	if d.Name == "" {
		return nil, defErr("<unnamed>", "", ErrAbstractKind, "declaration has no name")
	}
	if d.Abstract {
		return nil, defErr(d.Name, "", ErrAbstractKind, "abstract declaration cannot be built")
	}

	chain, err := linearize(d, nil)
	if err != nil {
		return nil, err
	}

	b := &schemaBuilder{
		kind:     d.Name,
		bindings: mergeBindings(chain),
		schema: &Schema{
			Name:          d.Name,
			Attributes:    make(map[string]AttrDef),
			Properties:    make(map[string]AttrDef),
			slotAccessors: make(map[string]SlotAccessor),
			attrAccessors: make(map[string]AttrAccessor),
		},
		winner: make(map[string]fieldOrigin),
	}

	for depth, decl := range chain {
		for _, f := range decl.Fields {
			if err := b.add(f, depth, decl.Name); err != nil {
				return nil, err
			}
		}
		if b.schema.AssemblyFormat == "" {
			b.schema.AssemblyFormat = decl.AssemblyFormat
		}
	}

	if err := b.finish(); err != nil {
		return nil, err
	}
	return b.schema, nil
}

// fieldOrigin records where the winning declaration of a name came from.
type fieldOrigin struct {
	kind  FieldKind
	depth int
	decl  string
}

type schemaBuilder struct {
	kind     string
	bindings map[string]constraint.AttrConstraint
	schema   *Schema
	winner   map[string]fieldOrigin
}

func (b *schemaBuilder) errf(field, code, format string, args ...any) error {
	return defErr(b.kind, field, code, format, args...)
}

// add classifies one field. depth is the position of its declaration in
// the linearized chain (0 = the kind itself).
func (b *schemaBuilder) add(f Field, depth int, declName string) error {
	if f.Kind == FieldInvalid || f.Kind > FieldCustomPrint {
		return b.errf(f.Name, ErrInvalidField,
			"is neither an operand, result, region, successor, attribute, property, "+
				"trait set, option set, nor method declaration")
	}
	if f.Name == "" {
		return b.errf("", ErrInvalidField, "%s field has no name", f.Kind)
	}
	if reservedNames[f.Name] {
		return nil
	}

	if f.Kind == FieldOptions {
		for _, o := range f.Options {
			if o == nil {
				return b.errf(f.Name, ErrInvalidField, "nil option")
			}
			if !slices.Contains(b.schema.Options, o) {
				b.schema.Options = append(b.schema.Options, o)
			}
		}
		return nil
	}

	if prev, ok := b.winner[f.Name]; ok {
		if prev.depth == depth {
			return b.errf(f.Name, ErrInvalidField, "declared twice in %s", declName)
		}
		if prev.kind != f.Kind {
			return b.errf(f.Name, ErrOverrideMismatch,
				"%s in %s overrides %s inherited from %s", prev.kind, prev.decl, f.Kind, declName)
		}
		return nil
	}
	b.winner[f.Name] = fieldOrigin{kind: f.Kind, depth: depth, decl: declName}

	switch f.Kind {
	case FieldOperand, FieldResult:
		return b.addValueSlot(f)
	case FieldRegion:
		return b.addRegion(f)
	case FieldSuccessor:
		b.appendSlot(SlotDef{Name: f.Name, Construct: SuccessorConstruct, Cardinality: f.Cardinality})
		return nil
	case FieldAttribute, FieldProperty:
		return b.addAttr(f)
	case FieldTraits:
		b.schema.Traits = slices.Clone(f.Traits)
		return nil
	case FieldMethod:
		b.schema.Methods = append(b.schema.Methods, f.Name)
		return nil
	case FieldCustomVerify:
		b.schema.customVerify = f.Verify
		return nil
	case FieldCustomParse:
		b.schema.customParse = f.Parse
		return nil
	case FieldCustomPrint:
		b.schema.customPrint = f.Print
		return nil
	}
	return nil
}

func (b *schemaBuilder) addValueSlot(f Field) error {
	construct, _ := f.Kind.construct()
	slot := SlotDef{Name: f.Name, Construct: construct, Cardinality: f.Cardinality}

	if f.Cardinality == Single {
		if _, isRange := f.Constraint.(constraint.RangeConstraint); isRange {
			return b.errf(f.Name, ErrRangeOnSingle,
				"cannot use a range constraint on a single %s; declare it optional or variadic", construct)
		}
		elem, err := b.attrConstraint(f)
		if err != nil {
			return err
		}
		slot.Constraint = constraint.RangeOf{Element: elem, Length: 1}
	} else {
		rc, err := b.rangeConstraint(f)
		if err != nil {
			return err
		}
		slot.Constraint = rc
	}
	b.appendSlot(slot)
	return nil
}

func (b *schemaBuilder) addRegion(f Field) error {
	rc, err := b.rangeConstraint(f)
	if err != nil {
		return err
	}
	b.appendSlot(SlotDef{
		Name:        f.Name,
		Construct:   RegionConstruct,
		Cardinality: f.Cardinality,
		Constraint:  rc,
		SingleBlock: f.SingleBlock,
	})
	return nil
}

func (b *schemaBuilder) appendSlot(slot SlotDef) {
	s := b.schema
	var list *[]SlotDef
	switch slot.Construct {
	case OperandConstruct:
		list = &s.Operands
	case ResultConstruct:
		list = &s.Results
	case RegionConstruct:
		list = &s.Regions
	case SuccessorConstruct:
		list = &s.Successors
	}
	*list = append(*list, slot)
}

func (b *schemaBuilder) addAttr(f Field) error {
	if _, isRange := f.Constraint.(constraint.RangeConstraint); isRange {
		return b.errf(f.Name, ErrInvalidField, "attributes and properties take a single-attribute constraint")
	}
	if f.Cardinality == Variadic {
		return b.errf(f.Name, ErrInvalidField, "attributes and properties cannot be variadic")
	}
	c, err := b.attrConstraint(f)
	if err != nil {
		return err
	}

	container := AttributeContainer
	if f.Kind == FieldProperty {
		container = PropertyContainer
	}
	irName := f.IRName
	if irName == "" {
		irName = f.Name
	}
	if _, dup := b.schema.Attributes[irName]; dup {
		return b.errf(f.Name, ErrDuplicateIRName, "name %q is already used by another attribute", irName)
	}
	if _, dup := b.schema.Properties[irName]; dup {
		return b.errf(f.Name, ErrDuplicateIRName, "name %q is already used by another property", irName)
	}

	if f.Default != nil {
		if err := c.Verify(f.Default, constraint.NewContext()); err != nil {
			return b.errf(f.Name, ErrInvalidField, "default %s does not satisfy its constraint: %v",
				ir.FormatAttr(f.Default), err)
		}
	}

	def := AttrDef{
		Name:       irName,
		Accessor:   f.Name,
		Container:  container,
		Constraint: c,
		Default:    f.Default,
		Optional:   f.Cardinality == Optional,
	}
	b.schema.Defs(container)[irName] = def
	return nil
}

// attrConstraint returns f's constraint as an AttrConstraint with bindings
// applied. A nil constraint accepts anything.
func (b *schemaBuilder) attrConstraint(f Field) (constraint.AttrConstraint, error) {
	if f.Constraint == nil {
		return constraint.Any{}, nil
	}
	ac, ok := f.Constraint.(constraint.AttrConstraint)
	if !ok {
		return nil, b.errf(f.Name, ErrInvalidField, "unsupported constraint %T", f.Constraint)
	}
	if len(b.bindings) > 0 {
		ac = ac.MapTypeVars(b.bindings)
	}
	if vars := ac.TypeVars(); len(vars) > 0 {
		return nil, b.unresolved(f.Name, vars)
	}
	return ac, nil
}

// rangeConstraint returns f's constraint as a RangeConstraint with bindings
// applied. Attribute constraints are lifted with RangeOf.
func (b *schemaBuilder) rangeConstraint(f Field) (constraint.RangeConstraint, error) {
	rc, err := constraint.AsRange(f.Constraint)
	if err != nil {
		return nil, b.errf(f.Name, ErrInvalidField, "%v", err)
	}
	if len(b.bindings) > 0 {
		rc = rc.MapTypeVars(b.bindings)
	}
	if vars := rc.TypeVars(); len(vars) > 0 {
		return nil, b.unresolved(f.Name, vars)
	}
	return rc, nil
}

func (b *schemaBuilder) unresolved(field string, vars []string) error {
	return b.errf(field, ErrUnresolvedTypeVar,
		"type variable %s is not bound; add it to Bind on %s or a nearer ancestor",
		"?"+strings.Join(vars, ", ?"), b.kind)
}

// finish applies options and runs whole-schema checks.
func (b *schemaBuilder) finish() error {
	s := b.schema

	segments := make(map[Construct]AttrSizedSegments)
	for _, o := range s.Options {
		seg, ok := o.(AttrSizedSegments)
		if !ok {
			continue
		}
		if prev, dup := segments[seg.Construct]; dup && prev != seg {
			return b.errf("irdl_options", ErrSegmentNameClash,
				"conflicting options %s and %s", prev, seg)
		}
		segments[seg.Construct] = seg
	}
	for _, c := range Constructs {
		seg, ok := segments[c]
		if !ok {
			continue
		}
		name := seg.Name()
		if _, clash := s.Attributes[name]; clash {
			return b.errf(name, ErrSegmentNameClash,
				"has a %q attribute, which is incompatible with the %s option", name, seg)
		}
		if _, clash := s.Properties[name]; clash {
			return b.errf(name, ErrSegmentNameClash,
				"has a %q property, which is incompatible with the %s option", name, seg)
		}
		s.Defs(seg.Container())[name] = AttrDef{
			Name:       name,
			Accessor:   name,
			Container:  seg.Container(),
			Constraint: constraint.DenseArrayOf{Element: ir.I32},
		}
	}

	for _, c := range Constructs {
		variadics := 0
		for _, slot := range s.Slots(c) {
			if slot.Cardinality.IsVariadic() {
				variadics++
			}
		}
		_, hasSeg := segments[c]
		if variadics > 1 && !hasSeg && !s.HasSameSize(c) {
			return b.errf("", ErrMultipleVariadic,
				"defines %d variadic %ss, but declares neither %s nor %s",
				variadics, c, SameVariadicSize{Construct: c}, AttrSizedSegments{Construct: c})
		}
	}

	if s.AssemblyFormat != "" && s.HasCustomFormat() {
		return b.errf("", ErrFormatConflict,
			"cannot define both an assembly format and custom parse/print")
	}

	b.buildAccessors()
	return nil
}

func (b *schemaBuilder) buildAccessors() {
	s := b.schema
	for _, c := range Constructs {
		preceding := 0
		for i, slot := range s.Slots(c) {
			s.slotAccessors[slot.Name] = SlotAccessor{
				schema:            s,
				Construct:         c,
				Index:             i,
				PrecedingVariadic: preceding,
				Cardinality:       slot.Cardinality,
			}
			if slot.Cardinality.IsVariadic() {
				preceding++
			}
		}
	}
	for _, container := range []Container{AttributeContainer, PropertyContainer} {
		for _, def := range s.Defs(container) {
			s.attrAccessors[def.Accessor] = AttrAccessor{def: def}
		}
	}
}

// ---------------------------------------------------------------------------
// Ancestor linearization
// ---------------------------------------------------------------------------

// linearize returns d followed by its ancestors in C3 order, so a
// declaration always precedes its own ancestors and direct ancestors keep
// their listed order.
func linearize(d *Decl, visiting []*Decl) ([]*Decl, error) {
	if slices.Contains(visiting, d) {
		path := make([]string, 0, len(visiting)+1)
		for _, v := range visiting {
			path = append(path, v.Name)
		}
		path = append(path, d.Name)
		return nil, defErr(visiting[0].Name, "", ErrInheritanceCycle,
			"inheritance cycle: %s", strings.Join(path, " -> "))
	}
	visiting = append(visiting, d)

	var seqs [][]*Decl
	for _, parent := range d.Extends {
		if parent == nil {
			return nil, defErr(d.Name, "", ErrInvalidField, "nil ancestor")
		}
		pl, err := linearize(parent, visiting)
		if err != nil {
			return nil, err
		}
		seqs = append(seqs, pl)
	}
	seqs = append(seqs, slices.Clone(d.Extends))

	out := []*Decl{d}
	for {
		seqs = slices.DeleteFunc(seqs, func(s []*Decl) bool { return len(s) == 0 })
		if len(seqs) == 0 {
			return out, nil
		}
		var head *Decl
		for _, s := range seqs {
			cand := s[0]
			if !inAnyTail(cand, seqs) {
				head = cand
				break
			}
		}
		if head == nil {
			return nil, defErr(d.Name, "", ErrInheritanceCycle,
				"cannot linearize ancestors: inconsistent order in Extends")
		}
		out = append(out, head)
		for i, s := range seqs {
			if s[0] == head {
				seqs[i] = s[1:]
			}
		}
	}
}

func inAnyTail(d *Decl, seqs [][]*Decl) bool {
	for _, s := range seqs {
		if slices.Contains(s[1:], d) {
			return true
		}
	}
	return false
}

// mergeBindings collects type-variable bindings along the chain; nearer
// declarations win.
func mergeBindings(chain []*Decl) map[string]constraint.AttrConstraint {
	out := make(map[string]constraint.AttrConstraint)
	for i := len(chain) - 1; i >= 0; i-- {
		for k, v := range chain[i].Bind {
			out[k] = v
		}
	}
	return out
}
