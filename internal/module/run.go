package module

import (
	"errors"
	"fmt"
	"maps"
	"slices"
	"strconv"

	"gopkg.in/yaml.v3"

	"github.com/roach88/irdl/internal/asmformat"
	"github.com/roach88/irdl/internal/ir"
	"github.com/roach88/irdl/internal/opdef"
)

// Stage names the step at which an operation failed.
type Stage string

const (
	StageParse     Stage = "parse"
	StageConstruct Stage = "construct"
	StageBind      Stage = "bind"
	StageVerify    Stage = "verify"
)

// Outcome is the result of running one operation.
type Outcome struct {
	Index int
	Kind  string
	Form  string

	// Op is nil when the operation could not be built.
	Op *ir.Operation

	// Fingerprint is the shape hash of Op, or empty.
	Fingerprint string

	// Stage and Err are set when the operation failed.
	Stage Stage
	Err   error
}

// OK reports whether the operation was built and verified.
func (o Outcome) OK() bool { return o.Err == nil }

// Code returns the error code of a failed outcome, or "".
func (o Outcome) Code() string { return opdef.ErrorCode(o.Err) }

// Report collects the outcomes of one run.
type Report struct {
	Module   string
	Block    *ir.Block
	Scope    *asmformat.Scope
	Outcomes []Outcome
}

// Failed returns the number of failed operations.
func (r *Report) Failed() int {
	n := 0
	for _, o := range r.Outcomes {
		if !o.OK() {
			n++
		}
	}
	return n
}

// Run builds and verifies every operation of f in order. The returned
// error is set only when the block arguments themselves are malformed;
// per-operation failures are recorded in the report.
func Run(reg *opdef.Registry, f *File) (*Report, error) {
	rep := &Report{Module: f.Name, Scope: asmformat.NewScope()}

	types := make([]ir.Attribute, len(f.Args))
	for i, a := range f.Args {
		t, err := ir.ParseAttr(a.Type)
		if err != nil {
			return nil, fmt.Errorf("arg %s: %w", a.Name, err)
		}
		types[i] = t
	}
	rep.Block = ir.NewBlock(types...)
	for i, a := range f.Args {
		if err := rep.Scope.Define(a.Name, rep.Block.Arg(i)); err != nil {
			return nil, err
		}
	}

	r := &runner{reg: reg, rep: rep}
	for i, d := range f.Ops {
		rep.Outcomes = append(rep.Outcomes, r.run(i, d))
	}
	return rep, nil
}

type runner struct {
	reg  *opdef.Registry
	rep  *Report
	next int
}

func (r *runner) run(index int, d OpDecl) Outcome {
	out := Outcome{Index: index, Kind: d.Op, Form: d.Form()}
	fail := func(stage Stage, err error) Outcome {
		out.Stage, out.Err = stage, err
		return out
	}

	var (
		op  *ir.Operation
		err error
	)
	switch out.Form {
	case FormText:
		s, ok := r.reg.Lookup(d.Op)
		if !ok {
			return fail(StageParse, fmt.Errorf("%w: %s", opdef.ErrUnknownOp, d.Op))
		}
		if op, err = s.Parse(d.Text, r.rep.Scope); err != nil {
			return fail(StageParse, err)
		}
	case FormSlots:
		if op, err = r.buildSlots(d.Op, d.Slots); err != nil {
			return fail(StageConstruct, err)
		}
	case FormCreate:
		if op, err = r.create(d.Op, d.Create); err != nil {
			return fail(StageConstruct, err)
		}
	case FormFlat:
		if op, err = r.flat(d.Op, d.Flat); err != nil {
			return fail(StageConstruct, err)
		}
	default:
		return fail(StageConstruct, fmt.Errorf("no operation form given"))
	}

	out.Op = op
	r.rep.Block.AddOp(op)
	if out.Fingerprint, err = ir.OpFingerprint(op); err != nil {
		return fail(StageConstruct, err)
	}
	if err := r.bind(op, d.Results); err != nil {
		return fail(StageBind, err)
	}
	if err := r.reg.Verify(op); err != nil {
		return fail(StageVerify, err)
	}
	return out
}

// bind defines result names in scope. With no names given, results are
// numbered in order of appearance across the module.
func (r *runner) bind(op *ir.Operation, names []string) error {
	if len(names) > 0 && len(names) != op.NumResults() {
		return fmt.Errorf("%s has %d results, but %d names are given", op.Name, op.NumResults(), len(names))
	}
	for i, res := range op.Results() {
		name := ""
		if len(names) > 0 {
			name = names[i]
		} else {
			name = r.fresh()
		}
		if err := r.rep.Scope.Define(name, res); err != nil {
			return err
		}
	}
	return nil
}

func (r *runner) fresh() string {
	for {
		name := strconv.Itoa(r.next)
		r.next++
		if _, taken := r.rep.Scope.Lookup(name); !taken {
			return name
		}
	}
}

func (r *runner) value(name string) (ir.Value, error) {
	v, ok := r.rep.Scope.Lookup(name)
	if !ok {
		return nil, fmt.Errorf("use of undefined value %%%s", name)
	}
	return v, nil
}

func (r *runner) values(names []string) ([]ir.Value, error) {
	vals := make([]ir.Value, len(names))
	for i, n := range names {
		v, err := r.value(n)
		if err != nil {
			return nil, err
		}
		vals[i] = v
	}
	return vals, nil
}

func parseAttrs(m map[string]string) (map[string]ir.Attribute, error) {
	if len(m) == 0 {
		return nil, nil
	}
	out := make(map[string]ir.Attribute, len(m))
	for _, k := range slices.Sorted(maps.Keys(m)) {
		a, err := ir.ParseAttr(m[k])
		if err != nil {
			return nil, fmt.Errorf("%s: %w", k, err)
		}
		out[k] = a
	}
	return out, nil
}

func parseTypes(strs []string) ([]ir.Attribute, error) {
	types := make([]ir.Attribute, len(strs))
	for i, s := range strs {
		t, err := ir.ParseAttr(s)
		if err != nil {
			return nil, fmt.Errorf("type #%d: %w", i, err)
		}
		types[i] = t
	}
	return types, nil
}

// ---------------------------------------------------------------------------
// Construction forms
// ---------------------------------------------------------------------------

func (r *runner) buildSlots(kind string, f *SlotsForm) (*ir.Operation, error) {
	s, ok := r.reg.Lookup(kind)
	if !ok {
		return nil, fmt.Errorf("%w: %s", opdef.ErrUnknownOp, kind)
	}
	if err := checkSlotKeys(s, opdef.OperandConstruct, f.Operands); err != nil {
		return nil, err
	}
	if err := checkSlotKeys(s, opdef.ResultConstruct, f.Results); err != nil {
		return nil, err
	}

	var in opdef.BuildInput
	for _, sl := range s.Operands {
		arg, err := slotArg(f.Operands, sl.Name, r.value)
		if err != nil {
			return nil, fmt.Errorf("operand '%s': %w", sl.Name, err)
		}
		in.Operands = append(in.Operands, arg)
	}
	for _, sl := range s.Results {
		arg, err := slotArg(f.Results, sl.Name, ir.ParseAttr)
		if err != nil {
			return nil, fmt.Errorf("result '%s': %w", sl.Name, err)
		}
		in.ResultTypes = append(in.ResultTypes, arg)
	}

	var err error
	if in.Attributes, err = parseAttrs(f.Attributes); err != nil {
		return nil, fmt.Errorf("attribute %w", err)
	}
	if in.Properties, err = parseAttrs(f.Properties); err != nil {
		return nil, fmt.Errorf("property %w", err)
	}
	return s.Build(in)
}

func checkSlotKeys(s *opdef.Schema, c opdef.Construct, m map[string]yaml.Node) error {
	for _, k := range slices.Sorted(maps.Keys(m)) {
		if !slices.ContainsFunc(s.Slots(c), func(sl opdef.SlotDef) bool { return sl.Name == k }) {
			return fmt.Errorf("%s has no %s slot '%s'", s.Name, c, k)
		}
	}
	return nil
}

// slotArg converts one YAML slot value into a tagged construction
// argument.
func slotArg[T any](m map[string]yaml.Node, name string, conv func(string) (T, error)) (opdef.Arg[T], error) {
	node, ok := m[name]
	if !ok || node.Tag == "!!null" {
		return opdef.Absent[T](), nil
	}
	switch node.Kind {
	case yaml.ScalarNode:
		v, err := conv(node.Value)
		if err != nil {
			return opdef.Arg[T]{}, err
		}
		return opdef.One(v), nil
	case yaml.SequenceNode:
		vals := make([]T, 0, len(node.Content))
		for _, item := range node.Content {
			if item.Kind != yaml.ScalarNode {
				return opdef.Arg[T]{}, fmt.Errorf("line %d: list items must be scalars", item.Line)
			}
			v, err := conv(item.Value)
			if err != nil {
				return opdef.Arg[T]{}, err
			}
			vals = append(vals, v)
		}
		return opdef.Many(vals...), nil
	}
	return opdef.Arg[T]{}, fmt.Errorf("line %d: expected a scalar, a list, or null", node.Line)
}

func (r *runner) create(kind string, f *CreateForm) (*ir.Operation, error) {
	operands, err := r.values(f.Operands)
	if err != nil {
		return nil, err
	}
	results, err := parseTypes(f.Results)
	if err != nil {
		return nil, err
	}
	named, err := parseAttrs(f.Named)
	if err != nil {
		return nil, fmt.Errorf("named %w", err)
	}
	return r.reg.Create(kind, opdef.CreateInput{Operands: operands, ResultTypes: results, Named: named})
}

func (r *runner) flat(kind string, f *FlatForm) (*ir.Operation, error) {
	operands, err := r.values(f.Operands)
	if err != nil {
		return nil, err
	}
	results, err := parseTypes(f.Results)
	if err != nil {
		return nil, err
	}
	attrs, err := parseAttrs(f.Attributes)
	if err != nil {
		return nil, fmt.Errorf("attribute %w", err)
	}
	props, err := parseAttrs(f.Properties)
	if err != nil {
		return nil, fmt.Errorf("property %w", err)
	}
	return ir.NewOperation(kind, ir.OperationState{
		Operands:    operands,
		ResultTypes: results,
		Attributes:  attrs,
		Properties:  props,
	}), nil
}

// IsUnknownOp reports whether an outcome failed because its kind is not
// registered.
func IsUnknownOp(err error) bool {
	return errors.Is(err, opdef.ErrUnknownOp)
}
