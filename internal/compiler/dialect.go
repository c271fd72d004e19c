package compiler

import (
	"fmt"
	"slices"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/token"
)

// DialectSpec is the declaration file form of a dialect: a set of
// operation declarations whose constraints, defaults, traits, and options
// are still text. Validate checks it; Resolve turns it into opdef tables.
type DialectSpec struct {
	Name string   `json:"name"`
	Ops  []OpSpec `json:"ops"` // in declaration order
}

// Op returns the declaration with the given label.
func (d *DialectSpec) Op(label string) (*OpSpec, bool) {
	for i := range d.Ops {
		if d.Ops[i].Label == label {
			return &d.Ops[i], true
		}
	}
	return nil, false
}

// OpSpec declares one operation kind or abstract base.
type OpSpec struct {
	// Label is the key under ops; Extends refers to other ops by label.
	Label    string   `json:"label"`
	Name     string   `json:"name"`
	Abstract bool     `json:"abstract,omitempty"`
	Extends  []string `json:"extends,omitempty"`

	// Params names the generic type variables (?T) a base introduces;
	// Bind specializes them with constraint expressions.
	Params []string          `json:"params,omitempty"`
	Bind   map[string]string `json:"bind,omitempty"`

	Operands   []SlotSpec `json:"operands,omitempty"`
	Results    []SlotSpec `json:"results,omitempty"`
	Regions    []SlotSpec `json:"regions,omitempty"`
	Successors []SlotSpec `json:"successors,omitempty"`

	Attributes []AttrSpec `json:"attributes,omitempty"`
	Properties []AttrSpec `json:"properties,omitempty"`

	Options []OptionSpec `json:"options,omitempty"`
	Traits  []string     `json:"traits,omitempty"`
	Format  string       `json:"format,omitempty"`

	Pos token.Pos `json:"-"`
}

// SlotSpec declares an operand, result, region, or successor.
type SlotSpec struct {
	Name        string `json:"name"`
	Constraint  string `json:"constraint,omitempty"`
	Kind        string `json:"kind,omitempty"` // single (default), optional, variadic
	SingleBlock bool   `json:"single_block,omitempty"`
	EntryArgs   string `json:"entry_args,omitempty"`
}

// AttrSpec declares an attribute or property.
type AttrSpec struct {
	Name       string `json:"name"`
	Constraint string `json:"constraint"`
	Default    string `json:"default,omitempty"`
	Optional   bool   `json:"optional,omitempty"`
	IRName     string `json:"ir_name,omitempty"`
}

// OptionSpec is one structural option. Exactly one of Segments, SameSize,
// and PropInAttrDict is set.
type OptionSpec struct {
	Segments       string `json:"segments,omitempty"`
	AsProperty     bool   `json:"as_property,omitempty"`
	SameSize       string `json:"same_size,omitempty"`
	PropInAttrDict bool   `json:"prop_in_attr_dict,omitempty"`
}

// Slot kinds accepted in declaration files.
const (
	KindSingle   = "single"
	KindOptional = "optional"
	KindVariadic = "variadic"
)

var opKeys = []string{
	"name", "abstract", "extends", "params", "bind",
	"operands", "results", "regions", "successors",
	"attributes", "properties", "options", "traits", "format",
}

// CompileDialect decodes a dialect declaration from a CUE value holding
// `dialect` and `ops` fields:
//
//	ctx := cuecontext.New()
//	v := ctx.CompileString(`dialect: "mesh", ops: { ... }`)
//	spec, err := CompileDialect(v)
//
// Concrete ops without an explicit name are named "<dialect>.<label>".
// CompileDialect only decodes; Validate checks the result.
func CompileDialect(v cue.Value) (*DialectSpec, error) {
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}

	spec := &DialectSpec{}
	name, ok, err := lookupString(v, "dialect")
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, &CompileError{Field: "dialect", Message: "dialect name is required", Pos: v.Pos()}
	}
	spec.Name = name

	opsVal := v.LookupPath(cue.ParsePath("ops"))
	if !opsVal.Exists() {
		return spec, nil
	}
	iter, err := opsVal.Fields()
	if err != nil {
		return nil, formatCUEError(err)
	}
	for iter.Next() {
		op, err := compileOp(iter.Label(), iter.Value())
		if err != nil {
			return nil, err
		}
		if op.Name == "" && !op.Abstract {
			op.Name = spec.Name + "." + op.Label
		}
		spec.Ops = append(spec.Ops, *op)
	}
	return spec, nil
}

func compileOp(label string, v cue.Value) (*OpSpec, error) {
	op := &OpSpec{Label: label, Pos: v.Pos()}
	field := func(f string) string { return fmt.Sprintf("ops.%s.%s", label, f) }

	keys, err := v.Fields()
	if err != nil {
		return nil, formatCUEError(err)
	}
	for keys.Next() {
		if k := keys.Label(); !slices.Contains(opKeys, k) {
			return nil, &CompileError{Field: field(k), Message: "unknown field", Pos: keys.Value().Pos()}
		}
	}

	if op.Name, _, err = lookupString(v, "name"); err != nil {
		return nil, err
	}
	if op.Abstract, _, err = lookupBool(v, "abstract"); err != nil {
		return nil, err
	}
	if op.Format, _, err = lookupString(v, "format"); err != nil {
		return nil, err
	}
	if op.Extends, err = lookupStrings(v, "extends"); err != nil {
		return nil, err
	}
	if op.Params, err = lookupStrings(v, "params"); err != nil {
		return nil, err
	}
	if op.Traits, err = lookupStrings(v, "traits"); err != nil {
		return nil, err
	}

	bindVal := v.LookupPath(cue.ParsePath("bind"))
	if bindVal.Exists() {
		iter, err := bindVal.Fields()
		if err != nil {
			return nil, formatCUEError(err)
		}
		op.Bind = make(map[string]string)
		for iter.Next() {
			expr, err := iter.Value().String()
			if err != nil {
				return nil, formatCUEError(err)
			}
			op.Bind[iter.Label()] = expr
		}
	}

	for _, sec := range []struct {
		key string
		dst *[]SlotSpec
	}{
		{"operands", &op.Operands},
		{"results", &op.Results},
		{"regions", &op.Regions},
		{"successors", &op.Successors},
	} {
		if *sec.dst, err = parseSlots(v, sec.key); err != nil {
			return nil, err
		}
	}

	if op.Attributes, err = parseAttrs(v, "attributes"); err != nil {
		return nil, err
	}
	if op.Properties, err = parseAttrs(v, "properties"); err != nil {
		return nil, err
	}
	if op.Options, err = parseOptions(v, field("options")); err != nil {
		return nil, err
	}
	return op, nil
}

// parseSlots reads a list of slot entries.
func parseSlots(v cue.Value, key string) ([]SlotSpec, error) {
	listVal := v.LookupPath(cue.ParsePath(key))
	if !listVal.Exists() {
		return nil, nil
	}
	iter, err := listVal.List()
	if err != nil {
		return nil, formatCUEError(err)
	}

	var slots []SlotSpec
	for iter.Next() {
		ev := iter.Value()
		var s SlotSpec
		var ok bool
		if s.Name, ok, err = lookupString(ev, "name"); err != nil {
			return nil, err
		}
		if !ok {
			return nil, &CompileError{Field: key, Message: "slot name is required", Pos: ev.Pos()}
		}
		if s.Constraint, _, err = lookupString(ev, "constraint"); err != nil {
			return nil, err
		}
		if s.Kind, _, err = lookupString(ev, "kind"); err != nil {
			return nil, err
		}
		if s.SingleBlock, _, err = lookupBool(ev, "single_block"); err != nil {
			return nil, err
		}
		if s.EntryArgs, _, err = lookupString(ev, "entry_args"); err != nil {
			return nil, err
		}
		slots = append(slots, s)
	}
	return slots, nil
}

// parseAttrs reads a struct of attribute entries keyed by accessor name.
// A bare string is shorthand for {constraint: <string>}.
func parseAttrs(v cue.Value, key string) ([]AttrSpec, error) {
	structVal := v.LookupPath(cue.ParsePath(key))
	if !structVal.Exists() {
		return nil, nil
	}
	iter, err := structVal.Fields()
	if err != nil {
		return nil, formatCUEError(err)
	}

	var attrs []AttrSpec
	for iter.Next() {
		ev := iter.Value()
		a := AttrSpec{Name: iter.Label()}
		if s, err := ev.String(); err == nil {
			a.Constraint = s
			attrs = append(attrs, a)
			continue
		}
		var ok bool
		if a.Constraint, ok, err = lookupString(ev, "constraint"); err != nil {
			return nil, err
		}
		if !ok {
			return nil, &CompileError{
				Field:   fmt.Sprintf("%s.%s", key, a.Name),
				Message: "constraint is required",
				Pos:     ev.Pos(),
			}
		}
		if a.Default, _, err = lookupString(ev, "default"); err != nil {
			return nil, err
		}
		if a.Optional, _, err = lookupBool(ev, "optional"); err != nil {
			return nil, err
		}
		if a.IRName, _, err = lookupString(ev, "ir_name"); err != nil {
			return nil, err
		}
		attrs = append(attrs, a)
	}
	return attrs, nil
}

func parseOptions(v cue.Value, field string) ([]OptionSpec, error) {
	listVal := v.LookupPath(cue.ParsePath("options"))
	if !listVal.Exists() {
		return nil, nil
	}
	iter, err := listVal.List()
	if err != nil {
		return nil, formatCUEError(err)
	}

	var opts []OptionSpec
	for iter.Next() {
		ev := iter.Value()
		var o OptionSpec
		if o.Segments, _, err = lookupString(ev, "segments"); err != nil {
			return nil, err
		}
		if o.AsProperty, _, err = lookupBool(ev, "as_property"); err != nil {
			return nil, err
		}
		if o.SameSize, _, err = lookupString(ev, "same_size"); err != nil {
			return nil, err
		}
		if o.PropInAttrDict, _, err = lookupBool(ev, "prop_in_attr_dict"); err != nil {
			return nil, err
		}
		if o == (OptionSpec{}) {
			return nil, &CompileError{
				Field:   field,
				Message: "option must set segments, same_size, or prop_in_attr_dict",
				Pos:     ev.Pos(),
			}
		}
		opts = append(opts, o)
	}
	return opts, nil
}

func lookupString(v cue.Value, path string) (string, bool, error) {
	fv := v.LookupPath(cue.ParsePath(path))
	if !fv.Exists() {
		return "", false, nil
	}
	s, err := fv.String()
	if err != nil {
		return "", false, formatCUEError(err)
	}
	return s, true, nil
}

func lookupBool(v cue.Value, path string) (bool, bool, error) {
	fv := v.LookupPath(cue.ParsePath(path))
	if !fv.Exists() {
		return false, false, nil
	}
	b, err := fv.Bool()
	if err != nil {
		return false, false, formatCUEError(err)
	}
	return b, true, nil
}

func lookupStrings(v cue.Value, path string) ([]string, error) {
	fv := v.LookupPath(cue.ParsePath(path))
	if !fv.Exists() {
		return nil, nil
	}
	iter, err := fv.List()
	if err != nil {
		return nil, formatCUEError(err)
	}
	var out []string
	for iter.Next() {
		s, err := iter.Value().String()
		if err != nil {
			return nil, formatCUEError(err)
		}
		out = append(out, s)
	}
	return out, nil
}

// CompileError represents a decoding error with source position.
type CompileError struct {
	Field   string
	Message string
	Pos     token.Pos
}

func (e *CompileError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s",
			e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(),
			e.Field, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// formatCUEError extracts position info from CUE errors.
func formatCUEError(err error) error {
	if err == nil {
		return nil
	}

	errs := errors.Errors(err)
	if len(errs) == 0 {
		return err
	}

	first := errs[0]
	positions := errors.Positions(first)
	if len(positions) > 0 {
		return &CompileError{
			Field:   "cue",
			Message: first.Error(),
			Pos:     positions[0],
		}
	}
	return err
}
