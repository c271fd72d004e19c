package compiler

import (
	"fmt"

	"github.com/roach88/irdl/internal/constraint"
	"github.com/roach88/irdl/internal/ir"
	"github.com/roach88/irdl/internal/opdef"
)

// Dialect holds the declaration tables resolved from a DialectSpec.
type Dialect struct {
	Name string

	// Decls are the concrete declarations in declaration order. Abstract
	// bases are reachable through Extends.
	Decls []*opdef.Decl
}

// Register adds every concrete declaration to r, stopping at the first
// definition error.
func (d *Dialect) Register(r *opdef.Registry) error {
	for _, decl := range d.Decls {
		if _, err := r.Register(decl); err != nil {
			return fmt.Errorf("dialect %s: %w", d.Name, err)
		}
	}
	return nil
}

// Resolve turns a validated DialectSpec into opdef declarations. Shared
// ancestors resolve to a single *opdef.Decl, so diamond inheritance
// linearizes as declared. Resolve assumes Validate reported nothing and
// returns the first error it meets otherwise.
func Resolve(spec *DialectSpec) (*Dialect, error) {
	r := &resolver{spec: spec, decls: make(map[string]*opdef.Decl)}
	out := &Dialect{Name: spec.Name}
	for i := range spec.Ops {
		op := &spec.Ops[i]
		d, err := r.decl(op, nil)
		if err != nil {
			return nil, err
		}
		if !op.Abstract {
			out.Decls = append(out.Decls, d)
		}
	}
	return out, nil
}

type resolver struct {
	spec  *DialectSpec
	decls map[string]*opdef.Decl
}

func (r *resolver) decl(op *OpSpec, visiting []string) (*opdef.Decl, error) {
	if d, ok := r.decls[op.Label]; ok {
		return d, nil
	}
	for _, l := range visiting {
		if l == op.Label {
			return nil, fmt.Errorf("ops.%s: inheritance cycle", op.Label)
		}
	}
	visiting = append(visiting, op.Label)

	name := op.Name
	if name == "" {
		name = op.Label
	}
	d := &opdef.Decl{Name: name, Abstract: op.Abstract, AssemblyFormat: op.Format}

	for _, label := range op.Extends {
		anc, ok := r.spec.Op(label)
		if !ok {
			return nil, fmt.Errorf("ops.%s: unknown op %q", op.Label, label)
		}
		ad, err := r.decl(anc, visiting)
		if err != nil {
			return nil, err
		}
		d.Extends = append(d.Extends, ad)
	}

	if len(op.Bind) > 0 {
		d.Bind = make(map[string]constraint.AttrConstraint, len(op.Bind))
		for tv, expr := range op.Bind {
			c, err := constraint.ParseAttrConstraint(expr)
			if err != nil {
				return nil, fmt.Errorf("ops.%s.bind.%s: %w", op.Label, tv, err)
			}
			d.Bind[tv] = c
		}
	}

	fields, err := r.fields(op)
	if err != nil {
		return nil, err
	}
	d.Fields = fields

	r.decls[op.Label] = d
	return d, nil
}

func (r *resolver) fields(op *OpSpec) ([]opdef.Field, error) {
	var fields []opdef.Field
	path := "ops." + op.Label

	valueSlots := []struct {
		key   string
		slots []SlotSpec
		ctors [3]func(string, constraint.Constraint) opdef.Field
	}{
		{"operands", op.Operands, [3]func(string, constraint.Constraint) opdef.Field{opdef.Operand, opdef.OptOperand, opdef.VarOperand}},
		{"results", op.Results, [3]func(string, constraint.Constraint) opdef.Field{opdef.Result, opdef.OptResult, opdef.VarResult}},
	}
	for _, sec := range valueSlots {
		for i, s := range sec.slots {
			c, err := parseOr(s.Constraint, constraint.Any{})
			if err != nil {
				return nil, fmt.Errorf("%s.%s[%d]: %w", path, sec.key, i, err)
			}
			card, err := cardinality(s.Kind)
			if err != nil {
				return nil, fmt.Errorf("%s.%s[%d]: %w", path, sec.key, i, err)
			}
			fields = append(fields, sec.ctors[card](s.Name, c))
		}
	}

	for i, s := range op.Regions {
		card, err := cardinality(s.Kind)
		if err != nil {
			return nil, fmt.Errorf("%s.regions[%d]: %w", path, i, err)
		}
		ctors := [3]func(string) opdef.Field{opdef.Region, opdef.OptRegion, opdef.VarRegion}
		if s.SingleBlock {
			ctors = [3]func(string) opdef.Field{opdef.SingleBlockRegion, opdef.OptSingleBlockRegion, opdef.VarSingleBlockRegion}
		}
		f := ctors[card](s.Name)
		if s.EntryArgs != "" {
			c, err := constraint.Parse(s.EntryArgs)
			if err != nil {
				return nil, fmt.Errorf("%s.regions[%d].entry_args: %w", path, i, err)
			}
			f = f.WithEntryArgs(c)
		}
		fields = append(fields, f)
	}

	for i, s := range op.Successors {
		card, err := cardinality(s.Kind)
		if err != nil {
			return nil, fmt.Errorf("%s.successors[%d]: %w", path, i, err)
		}
		ctors := [3]func(string) opdef.Field{opdef.Successor, opdef.OptSuccessor, opdef.VarSuccessor}
		fields = append(fields, ctors[card](s.Name))
	}

	for _, sec := range []struct {
		key           string
		attrs         []AttrSpec
		req, optional func(string, constraint.AttrConstraint) opdef.Field
	}{
		{"attributes", op.Attributes, opdef.Attr, opdef.OptAttr},
		{"properties", op.Properties, opdef.Prop, opdef.OptProp},
	} {
		for _, a := range sec.attrs {
			f, err := attrField(a, sec.req, sec.optional)
			if err != nil {
				return nil, fmt.Errorf("%s.%s.%s: %w", path, sec.key, a.Name, err)
			}
			fields = append(fields, f)
		}
	}

	if op.Traits != nil {
		traits := make([]opdef.Trait, 0, len(op.Traits))
		for _, name := range op.Traits {
			t, err := opdef.TraitByName(name)
			if err != nil {
				return nil, fmt.Errorf("%s.traits: %w", path, err)
			}
			traits = append(traits, t)
		}
		fields = append(fields, opdef.Traits(traits...))
	}

	if len(op.Options) > 0 {
		opts := make([]opdef.Option, 0, len(op.Options))
		for i, o := range op.Options {
			opt, err := option(o)
			if err != nil {
				return nil, fmt.Errorf("%s.options[%d]: %w", path, i, err)
			}
			opts = append(opts, opt)
		}
		fields = append(fields, opdef.Options(opts...))
	}
	return fields, nil
}

func attrField(a AttrSpec, req, optional func(string, constraint.AttrConstraint) opdef.Field) (opdef.Field, error) {
	c, err := constraint.ParseAttrConstraint(a.Constraint)
	if err != nil {
		return opdef.Field{}, err
	}
	f := req(a.Name, c)
	if a.Optional {
		f = optional(a.Name, c)
	}
	if a.Default != "" {
		def, err := ir.ParseAttr(a.Default)
		if err != nil {
			return opdef.Field{}, fmt.Errorf("default: %w", err)
		}
		f = f.WithDefault(def)
	}
	if a.IRName != "" {
		f = f.WithIRName(a.IRName)
	}
	return f, nil
}

func option(o OptionSpec) (opdef.Option, error) {
	switch {
	case o.Segments != "":
		c, ok := constructByName(o.Segments)
		if !ok {
			return nil, fmt.Errorf("unknown construct %q", o.Segments)
		}
		return opdef.AttrSizedSegments{Construct: c, AsProperty: o.AsProperty}, nil
	case o.SameSize != "":
		c, ok := constructByName(o.SameSize)
		if !ok {
			return nil, fmt.Errorf("unknown construct %q", o.SameSize)
		}
		return opdef.SameVariadicSize{Construct: c}, nil
	case o.PropInAttrDict:
		return opdef.ParsePropInAttrDict{}, nil
	}
	return nil, fmt.Errorf("empty option")
}

// cardinality maps a slot kind to an index into a constructor triple.
func cardinality(kind string) (int, error) {
	switch kind {
	case "", KindSingle:
		return 0, nil
	case KindOptional:
		return 1, nil
	case KindVariadic:
		return 2, nil
	}
	return 0, fmt.Errorf("unknown slot kind %q", kind)
}

func parseOr(expr string, def constraint.Constraint) (constraint.Constraint, error) {
	if expr == "" {
		return def, nil
	}
	return constraint.Parse(expr)
}
