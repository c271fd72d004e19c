package asmformat

import (
	"fmt"
	"io"
	"maps"
	"slices"
	"strings"
	"unicode"

	"github.com/roach88/irdl/internal/ir"
	"github.com/roach88/irdl/internal/opdef"
)

// Program is a compiled assembly format. It is immutable and safe for
// concurrent use.
type Program struct {
	schema *opdef.Schema
	elems  []element
}

var _ opdef.FormatProgram = (*Program)(nil)

// ---------------------------------------------------------------------------
// Parsing
// ---------------------------------------------------------------------------

// Parse parses the text following the operation name and builds an
// instance. Operand names are resolved in scope without their '%' prefix.
// The result is not verified.
func (p *Program) Parse(input string, scope opdef.ValueScope) (*ir.Operation, error) {
	st := &parseState{
		src:      input,
		scope:    scope,
		operands: make(map[string][]ir.Value),
		types:    make(map[string][]ir.Attribute),
		named:    make(map[string]ir.Attribute),
		props:    make(map[string]ir.Attribute),
	}
	for _, e := range p.elems {
		if err := st.element(e); err != nil {
			return nil, err
		}
	}
	st.skipSpace()
	if st.pos < len(st.src) {
		return nil, st.errorf("unexpected trailing input %q", st.src[st.pos:])
	}
	return p.build(st)
}

func (p *Program) build(st *parseState) (*ir.Operation, error) {
	s := p.schema
	var in opdef.BuildInput
	for _, sl := range s.Operands {
		in.Operands = append(in.Operands, arg(sl, st.operands[sl.Name]))
	}
	for _, sl := range s.Results {
		in.ResultTypes = append(in.ResultTypes, arg(sl, st.types[sl.Name]))
	}

	in.Attributes = make(map[string]ir.Attribute)
	in.Properties = st.props
	routeProps := s.HasOption(opdef.ParsePropInAttrDict{})
	for name, v := range st.named {
		if _, isProp := s.Properties[name]; isProp && routeProps {
			in.Properties[name] = v
			continue
		}
		in.Attributes[name] = v
	}
	return s.Build(in)
}

// arg shapes parsed elements for one slot.
func arg[T any](sl opdef.SlotDef, vals []T) opdef.Arg[T] {
	switch {
	case sl.Cardinality == opdef.Variadic:
		return opdef.Many(vals...)
	case len(vals) == 0:
		return opdef.Absent[T]()
	}
	return opdef.One(vals[0])
}

type parseState struct {
	src   string
	pos   int
	scope opdef.ValueScope

	operands map[string][]ir.Value
	types    map[string][]ir.Attribute
	named    map[string]ir.Attribute // attr-dict entries
	props    map[string]ir.Attribute // properties referenced by $name
}

func (st *parseState) errorf(format string, args ...any) error {
	return &Error{Src: st.src, Offset: st.pos, Message: fmt.Sprintf(format, args...)}
}

func (st *parseState) skipSpace() {
	for st.pos < len(st.src) && unicode.IsSpace(rune(st.src[st.pos])) {
		st.pos++
	}
}

func (st *parseState) peek() byte {
	st.skipSpace()
	if st.pos >= len(st.src) {
		return 0
	}
	return st.src[st.pos]
}

func (st *parseState) got(c byte) bool {
	if st.peek() == c {
		st.pos++
		return true
	}
	return false
}

func (st *parseState) ident() string {
	st.skipSpace()
	start := st.pos
	for st.pos < len(st.src) {
		r := rune(st.src[st.pos])
		if r == '_' || r == '.' || unicode.IsLetter(r) || unicode.IsDigit(r) {
			st.pos++
			continue
		}
		break
	}
	return st.src[start:st.pos]
}

func (st *parseState) element(e element) error {
	switch e.kind {
	case elemLiteral:
		return st.literal(e.text)
	case elemOperand:
		return st.operand(e.slot)
	case elemAttr:
		a, err := st.attribute()
		if err != nil {
			return err
		}
		if e.attr.Container == opdef.PropertyContainer {
			st.props[e.attr.Name] = a
		} else {
			st.named[e.attr.Name] = a
		}
		return nil
	case elemType:
		return st.typeList(e.slot)
	case elemAttrDict:
		return st.attrDict()
	}
	return fmt.Errorf("unknown format element %d", e.kind)
}

func (st *parseState) literal(lit string) error {
	st.skipSpace()
	if !strings.HasPrefix(st.src[st.pos:], lit) {
		return st.errorf("expected %q", lit)
	}
	end := st.pos + len(lit)
	if isWord(lit) && end < len(st.src) {
		if r := rune(st.src[end]); r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r) {
			return st.errorf("expected %q", lit)
		}
	}
	st.pos = end
	return nil
}

func (st *parseState) value() (ir.Value, error) {
	if !st.got('%') {
		return nil, st.errorf("expected SSA value")
	}
	name := st.ident()
	if name == "" {
		return nil, st.errorf("expected SSA value name after '%%'")
	}
	if st.scope == nil {
		return nil, st.errorf("no scope to resolve %%%s", name)
	}
	v, ok := st.scope.Lookup(name)
	if !ok {
		return nil, st.errorf("use of undefined value %%%s", name)
	}
	return v, nil
}

// operand parses one operand, an optional operand, or a comma-separated
// (possibly empty) operand list.
func (st *parseState) operand(sl opdef.SlotDef) error {
	switch sl.Cardinality {
	case opdef.Single:
		v, err := st.value()
		if err != nil {
			return err
		}
		st.operands[sl.Name] = []ir.Value{v}
	case opdef.Optional:
		if st.peek() == '%' {
			v, err := st.value()
			if err != nil {
				return err
			}
			st.operands[sl.Name] = []ir.Value{v}
		}
	case opdef.Variadic:
		vals := []ir.Value{}
		if st.peek() == '%' {
			for {
				v, err := st.value()
				if err != nil {
					return err
				}
				vals = append(vals, v)
				save := st.pos
				if !st.got(',') || st.peek() != '%' {
					st.pos = save
					break
				}
			}
		}
		st.operands[sl.Name] = vals
	}
	return nil
}

func (st *parseState) attribute() (ir.Attribute, error) {
	st.skipSpace()
	a, rest, err := ir.ParseAttrPrefix(st.src[st.pos:])
	if err != nil {
		return nil, st.errorf("%v", err)
	}
	st.pos = len(st.src) - len(rest)
	return a, nil
}

// typeList parses the types of an operand or result slot. Operand types
// must match the parsed operands; result types are taken as given.
func (st *parseState) typeList(sl opdef.SlotDef) error {
	if sl.Construct == opdef.OperandConstruct {
		vals := st.operands[sl.Name]
		for i, v := range vals {
			if i > 0 && !st.got(',') {
				return st.errorf("expected ','")
			}
			t, err := st.attribute()
			if err != nil {
				return err
			}
			if !ir.AttrEqual(t, v.Type()) {
				return st.errorf("operand '%s' has type %s, but the format gives %s",
					sl.Name, ir.FormatAttr(v.Type()), ir.FormatAttr(t))
			}
		}
		return nil
	}

	var types []ir.Attribute
	if sl.Cardinality == opdef.Single {
		t, err := st.attribute()
		if err != nil {
			return err
		}
		st.types[sl.Name] = []ir.Attribute{t}
		return nil
	}
	save := st.pos
	t, err := st.attribute()
	if err != nil {
		st.pos = save
		st.types[sl.Name] = nil
		return nil
	}
	types = append(types, t)
	for sl.Cardinality == opdef.Variadic {
		save = st.pos
		if !st.got(',') {
			break
		}
		t, err := st.attribute()
		if err != nil {
			st.pos = save
			break
		}
		types = append(types, t)
	}
	st.types[sl.Name] = types
	return nil
}

// attrDict parses an optional {name = value, ...} dictionary. A bare name
// stands for a unit attribute.
func (st *parseState) attrDict() error {
	if !st.got('{') {
		return nil
	}
	if st.got('}') {
		return nil
	}
	for {
		name := st.ident()
		if name == "" {
			return st.errorf("expected attribute name")
		}
		if _, dup := st.named[name]; dup {
			return st.errorf("duplicate attribute %q", name)
		}
		var a ir.Attribute = ir.UnitAttr{}
		if st.got('=') {
			v, err := st.attribute()
			if err != nil {
				return err
			}
			a = v
		}
		st.named[name] = a
		if st.got('}') {
			return nil
		}
		if !st.got(',') {
			return st.errorf("expected ',' or '}' in attribute dictionary")
		}
	}
}

// ---------------------------------------------------------------------------
// Printing
// ---------------------------------------------------------------------------

// Print writes op in the program's syntax. Operand names come from scope
// and are printed with a '%' prefix.
func (p *Program) Print(w io.Writer, op *ir.Operation, scope opdef.ValueScope) error {
	view := opdef.View{Schema: p.schema, Op: op}
	pr := &printer{}
	for _, e := range p.elems {
		switch e.kind {
		case elemLiteral:
			pr.token(e.text)
		case elemOperand:
			vals, err := view.VarOperand(e.text)
			if err != nil {
				return err
			}
			names := make([]string, len(vals))
			for i, v := range vals {
				name, ok := scope.NameOf(v)
				if !ok {
					return fmt.Errorf("%s: operand '%s' #%d has no name in scope", op.Name, e.text, i)
				}
				names[i] = "%" + name
			}
			pr.list(names)
		case elemAttr:
			a, err := view.Attr(e.text)
			if err != nil {
				return err
			}
			pr.token(ir.FormatAttr(a))
		case elemType:
			types, err := p.slotTypes(view, e.slot)
			if err != nil {
				return err
			}
			strs := make([]string, len(types))
			for i, t := range types {
				strs[i] = ir.FormatAttr(t)
			}
			pr.list(strs)
		case elemAttrDict:
			pr.token(p.attrDict(op))
		}
	}
	_, err := io.WriteString(w, pr.sb.String())
	return err
}

func (p *Program) slotTypes(view opdef.View, sl opdef.SlotDef) ([]ir.Attribute, error) {
	if sl.Construct == opdef.OperandConstruct {
		vals, err := view.VarOperand(sl.Name)
		return ir.AttrTypes(vals), err
	}
	vals, err := view.VarResult(sl.Name)
	return ir.AttrTypes(vals), err
}

// attrDict renders the entries not printed elsewhere: attributes, plus
// properties when they are carried by attr-dict. Segment sizes and values
// equal to their default are elided.
func (p *Program) attrDict(op *ir.Operation) string {
	s := p.schema
	printed := map[string]bool{}
	for _, e := range p.elems {
		if e.kind == elemAttr {
			printed[e.attr.Name] = true
		}
	}
	for _, c := range opdef.Constructs {
		printed[opdef.SegmentSizesName(c)] = true
	}

	entries := map[string]ir.Attribute{}
	for name, v := range op.Attributes {
		entries[name] = v
	}
	if s.HasOption(opdef.ParsePropInAttrDict{}) {
		for name, v := range op.Properties {
			entries[name] = v
		}
	}

	var parts []string
	for _, name := range slices.Sorted(maps.Keys(entries)) {
		if printed[name] {
			continue
		}
		v := entries[name]
		def, ok := s.Attributes[name]
		if !ok {
			def, ok = s.Properties[name]
		}
		if ok && def.Default != nil && ir.AttrEqual(def.Default, v) {
			continue
		}
		if _, unit := v.(ir.UnitAttr); unit {
			parts = append(parts, name)
			continue
		}
		parts = append(parts, name+" = "+ir.FormatAttr(v))
	}
	if len(parts) == 0 {
		return ""
	}
	return "{" + strings.Join(parts, ", ") + "}"
}

type printer struct {
	sb   strings.Builder
	last string
}

// token appends one token, separated from the previous one by a space
// except around punctuation that hugs its neighbor.
func (pr *printer) token(t string) {
	if t == "" {
		return
	}
	if pr.sb.Len() > 0 && !strings.ContainsAny(t[:1], ",)]") && pr.last != "(" && pr.last != "[" {
		pr.sb.WriteByte(' ')
	}
	pr.sb.WriteString(t)
	pr.last = t
}

func (pr *printer) list(items []string) {
	if len(items) == 0 {
		return
	}
	pr.token(strings.Join(items, ", "))
}
