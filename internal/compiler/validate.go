package compiler

import (
	"fmt"
	"maps"
	"regexp"
	"slices"

	"github.com/roach88/irdl/internal/constraint"
	"github.com/roach88/irdl/internal/ir"
	"github.com/roach88/irdl/internal/opdef"
)

// Validation error codes (E100-E199)
const (
	ErrDialectName      = "E101" // dialect name missing or malformed
	ErrNoOps            = "E102" // dialect declares no concrete operation
	ErrOpName           = "E103" // kind name not of the form <dialect>.<name>
	ErrConstraintExpr   = "E104" // constraint expression does not parse
	ErrDuplicateName    = "E105" // duplicate label, kind, slot, or attribute name
	ErrSlotKind         = "E106" // unknown slot kind or misplaced region flag
	ErrUnknownAncestor  = "E107" // extends names an undeclared op
	ErrUnknownTrait     = "E108" // trait name not recognized
	ErrInvalidOption    = "E109" // malformed structural option
	ErrDefaultValue     = "E110" // default does not parse or fails its constraint
	ErrTypeParam        = "E111" // type variable undeclared, or binding of an unknown parameter
	ErrInheritanceCycle = "E112" // extends chain loops back on itself
	ErrInvalidName      = "E113" // slot, attribute, or IR name is not an identifier
)

// ValidationError represents a static declaration error.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code"`
	Line    int    `json:"line,omitempty"`
}

// Error implements the error interface.
func (e ValidationError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("[%s] line %d: %s: %s", e.Code, e.Line, e.Field, e.Message)
	}
	return fmt.Sprintf("[%s] %s: %s", e.Code, e.Field, e.Message)
}

var (
	identPattern = regexp.MustCompile(`^[a-z_][a-z0-9_]*$`)
	namePattern  = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)
)

// Validate checks a decoded dialect. It returns all errors found rather
// than stopping at the first, so a declaration file can be fixed in one
// pass. A dialect that validates cleanly resolves without error unless
// the schema builder rejects a combination it alone can see (for example
// several unsized variadic slots).
func Validate(spec *DialectSpec) []ValidationError {
	v := &validator{spec: spec}
	v.dialect()

	labels := map[string]bool{}
	kinds := map[string]bool{}
	for i := range spec.Ops {
		op := &spec.Ops[i]
		path := "ops." + op.Label
		if labels[op.Label] {
			v.add(op, path, ErrDuplicateName, "duplicate op label %q", op.Label)
		}
		labels[op.Label] = true
		if op.Name != "" {
			if kinds[op.Name] {
				v.add(op, path+".name", ErrDuplicateName, "kind %q is declared twice", op.Name)
			}
			kinds[op.Name] = true
		}
		v.op(op, path)
	}

	for _, c := range AnalyzeInheritance(spec) {
		v.errs = append(v.errs, ValidationError{
			Field:   "ops." + c.Path[0] + ".extends",
			Message: c.Message,
			Code:    ErrInheritanceCycle,
		})
	}
	return v.errs
}

type validator struct {
	spec *DialectSpec
	errs []ValidationError
}

func (v *validator) add(op *OpSpec, field, code, format string, args ...any) {
	e := ValidationError{Field: field, Message: fmt.Sprintf(format, args...), Code: code}
	if op != nil && op.Pos.IsValid() {
		e.Line = op.Pos.Line()
	}
	v.errs = append(v.errs, e)
}

func (v *validator) dialect() {
	if !identPattern.MatchString(v.spec.Name) {
		v.add(nil, "dialect", ErrDialectName, "dialect name %q must match %s", v.spec.Name, identPattern)
	}
	concrete := slices.ContainsFunc(v.spec.Ops, func(op OpSpec) bool { return !op.Abstract })
	if !concrete {
		v.add(nil, "ops", ErrNoOps, "at least one concrete op is required")
	}
}

func (v *validator) op(op *OpSpec, path string) {
	if !op.Abstract {
		prefix := v.spec.Name + "."
		if len(op.Name) <= len(prefix) || op.Name[:len(prefix)] != prefix {
			v.add(op, path+".name", ErrOpName, "kind %q must be qualified by the dialect, as %s<name>", op.Name, prefix)
		}
	}

	for i, anc := range op.Extends {
		if _, ok := v.spec.Op(anc); !ok {
			v.add(op, fmt.Sprintf("%s.extends[%d]", path, i), ErrUnknownAncestor, "unknown op %q", anc)
		}
	}

	params := v.visibleParams(op)
	names := map[string]bool{}
	var used []string

	seen := func(field, name string) {
		if names[name] {
			v.add(op, field, ErrDuplicateName, "%q is declared twice", name)
		}
		names[name] = true
	}

	for _, sec := range []struct {
		key   string
		slots []SlotSpec
	}{
		{"operands", op.Operands},
		{"results", op.Results},
		{"regions", op.Regions},
		{"successors", op.Successors},
	} {
		for i, s := range sec.slots {
			field := fmt.Sprintf("%s.%s[%d]", path, sec.key, i)
			seen(field+".name", s.Name)
			used = append(used, v.slot(op, field, sec.key, s)...)
		}
	}

	for _, sec := range []struct {
		key   string
		attrs []AttrSpec
	}{
		{"attributes", op.Attributes},
		{"properties", op.Properties},
	} {
		for _, a := range sec.attrs {
			field := fmt.Sprintf("%s.%s.%s", path, sec.key, a.Name)
			seen(field, a.Name)
			used = append(used, v.attr(op, field, a)...)
		}
	}

	for i, name := range op.Traits {
		if _, err := opdef.TraitByName(name); err != nil {
			v.add(op, fmt.Sprintf("%s.traits[%d]", path, i), ErrUnknownTrait, "%v", err)
		}
	}
	for i, o := range op.Options {
		v.option(op, fmt.Sprintf("%s.options[%d]", path, i), o)
	}

	for _, name := range slices.Sorted(maps.Keys(op.Bind)) {
		field := fmt.Sprintf("%s.bind.%s", path, name)
		if !params[name] {
			v.add(op, field, ErrTypeParam, "no ancestor declares type parameter %q", name)
		}
		if _, err := constraint.ParseAttrConstraint(op.Bind[name]); err != nil {
			v.add(op, field, ErrConstraintExpr, "%v", err)
		}
	}

	slices.Sort(used)
	for _, tv := range slices.Compact(used) {
		if !params[tv] {
			v.add(op, path, ErrTypeParam, "type variable ?%s is not declared in params of %s or its ancestors", tv, op.Label)
		}
	}
}

func (v *validator) slot(op *OpSpec, field, section string, s SlotSpec) []string {
	if !namePattern.MatchString(s.Name) {
		v.add(op, field+".name", ErrInvalidName, "slot name %q must match %s", s.Name, namePattern)
	}
	switch s.Kind {
	case "", KindSingle, KindOptional, KindVariadic:
	default:
		v.add(op, field+".kind", ErrSlotKind, "kind %q must be single, optional, or variadic", s.Kind)
	}

	isValue := section == "operands" || section == "results"
	if !isValue && s.Constraint != "" {
		v.add(op, field+".constraint", ErrSlotKind, "%s take no constraint", section)
	}
	if section != "regions" && (s.SingleBlock || s.EntryArgs != "") {
		v.add(op, field, ErrSlotKind, "single_block and entry_args apply to regions only")
	}

	expr, key := s.Constraint, ".constraint"
	switch section {
	case "regions":
		expr, key = s.EntryArgs, ".entry_args"
	case "successors":
		return nil
	}
	if expr == "" {
		return nil
	}
	c, err := constraint.Parse(expr)
	if err != nil {
		v.add(op, field+key, ErrConstraintExpr, "%v", err)
		return nil
	}
	return c.TypeVars()
}

func (v *validator) attr(op *OpSpec, field string, a AttrSpec) []string {
	if !namePattern.MatchString(a.Name) {
		v.add(op, field, ErrInvalidName, "attribute name %q must match %s", a.Name, namePattern)
	}
	if a.IRName != "" && !namePattern.MatchString(a.IRName) {
		v.add(op, field+".ir_name", ErrInvalidName, "ir_name %q must match %s", a.IRName, namePattern)
	}
	c, err := constraint.ParseAttrConstraint(a.Constraint)
	if err != nil {
		v.add(op, field+".constraint", ErrConstraintExpr, "%v", err)
		return nil
	}
	if a.Default == "" {
		return c.TypeVars()
	}

	def, err := ir.ParseAttr(a.Default)
	if err != nil {
		v.add(op, field+".default", ErrDefaultValue, "%v", err)
		return c.TypeVars()
	}
	if len(c.TypeVars()) == 0 {
		if err := c.Verify(def, constraint.NewContext()); err != nil {
			v.add(op, field+".default", ErrDefaultValue, "default %s does not satisfy %s: %v", a.Default, c, err)
		}
	}
	return c.TypeVars()
}

func (v *validator) option(op *OpSpec, field string, o OptionSpec) {
	set := 0
	for _, b := range []bool{o.Segments != "", o.SameSize != "", o.PropInAttrDict} {
		if b {
			set++
		}
	}
	if set != 1 {
		v.add(op, field, ErrInvalidOption, "exactly one of segments, same_size, prop_in_attr_dict must be set")
		return
	}
	if o.AsProperty && o.Segments == "" {
		v.add(op, field+".as_property", ErrInvalidOption, "as_property applies to segments only")
	}
	for _, c := range []string{o.Segments, o.SameSize} {
		if c == "" {
			continue
		}
		if _, ok := constructByName(c); !ok {
			v.add(op, field, ErrInvalidOption, "unknown construct %q, expected operand, result, region, or successor", c)
		}
	}
}

// visibleParams collects the type parameters declared by op and all of its
// ancestors. Unknown labels and cycles are reported elsewhere.
func (v *validator) visibleParams(op *OpSpec) map[string]bool {
	out := map[string]bool{}
	visited := map[string]bool{}
	var walk func(o *OpSpec)
	walk = func(o *OpSpec) {
		if visited[o.Label] {
			return
		}
		visited[o.Label] = true
		for _, p := range o.Params {
			out[p] = true
		}
		for _, anc := range o.Extends {
			if a, ok := v.spec.Op(anc); ok {
				walk(a)
			}
		}
	}
	walk(op)
	return out
}

func constructByName(name string) (opdef.Construct, bool) {
	for _, c := range opdef.Constructs {
		if c.String() == name {
			return c, true
		}
	}
	return 0, false
}
