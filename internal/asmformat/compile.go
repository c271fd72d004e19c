package asmformat

import (
	"fmt"
	"maps"
	"slices"
	"strings"
	"unicode"

	"github.com/roach88/irdl/internal/opdef"
)

// Error reports a malformed format string or unparseable input.
type Error struct {
	Src     string
	Offset  int
	Message string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%q: offset %d: %s", e.Src, e.Offset, e.Message)
}

type elemKind int

const (
	elemLiteral elemKind = iota
	elemOperand
	elemAttr
	elemType
	elemAttrDict
)

// element is one compiled directive.
type element struct {
	kind   elemKind
	text   string // literal text, or the referenced name
	slot   opdef.SlotDef
	attr   opdef.AttrDef
	offset int
}

// Compiler implements opdef.FormatCompiler.
type Compiler struct{}

// Compile checks format against s and returns a program for it.
func (Compiler) Compile(format string, s *opdef.Schema) (opdef.FormatProgram, error) {
	return Compile(format, s)
}

// Compile parses a format string and checks that it covers the schema:
// every operand and every operand and result type appears exactly once, and
// every attribute and property is either referenced or can be carried by
// attr-dict. Regions and successors have no directive.
func Compile(format string, s *opdef.Schema) (*Program, error) {
	c := &compiler{src: format, schema: s}
	if err := c.tokenize(); err != nil {
		return nil, err
	}
	if err := c.check(); err != nil {
		return nil, err
	}
	return &Program{schema: s, elems: c.elems}, nil
}

type compiler struct {
	src    string
	pos    int
	schema *opdef.Schema
	elems  []element
}

func (c *compiler) errorf(offset int, format string, args ...any) error {
	return &Error{Src: c.src, Offset: offset, Message: fmt.Sprintf(format, args...)}
}

func (c *compiler) skipSpace() {
	for c.pos < len(c.src) && unicode.IsSpace(rune(c.src[c.pos])) {
		c.pos++
	}
}

func (c *compiler) ident() string {
	start := c.pos
	for c.pos < len(c.src) {
		r := rune(c.src[c.pos])
		if r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r) {
			c.pos++
			continue
		}
		break
	}
	return c.src[start:c.pos]
}

func (c *compiler) tokenize() error {
	for {
		c.skipSpace()
		if c.pos >= len(c.src) {
			return nil
		}
		start := c.pos
		switch {
		case c.src[c.pos] == '`':
			end := strings.IndexByte(c.src[c.pos+1:], '`')
			if end < 0 {
				return c.errorf(start, "unterminated literal")
			}
			lit := c.src[c.pos+1 : c.pos+1+end]
			if lit == "" || strings.ContainsFunc(lit, unicode.IsSpace) {
				return c.errorf(start, "literal must be non-empty and contain no spaces")
			}
			c.elems = append(c.elems, element{kind: elemLiteral, text: lit, offset: start})
			c.pos += end + 2

		case c.src[c.pos] == '$':
			c.pos++
			name := c.ident()
			e, err := c.variable(name, start)
			if err != nil {
				return err
			}
			c.elems = append(c.elems, e)

		case strings.HasPrefix(c.src[c.pos:], "attr-dict"):
			c.pos += len("attr-dict")
			c.elems = append(c.elems, element{kind: elemAttrDict, offset: start})

		case strings.HasPrefix(c.src[c.pos:], "type("):
			c.pos += len("type(")
			if c.pos >= len(c.src) || c.src[c.pos] != '$' {
				return c.errorf(c.pos, "expected $name inside type(...)")
			}
			c.pos++
			name := c.ident()
			if c.pos >= len(c.src) || c.src[c.pos] != ')' {
				return c.errorf(c.pos, "expected ')'")
			}
			c.pos++
			e, err := c.typeOf(name, start)
			if err != nil {
				return err
			}
			c.elems = append(c.elems, e)

		default:
			return c.errorf(start, "unknown directive %q", c.rest())
		}
	}
}

func (c *compiler) rest() string {
	end := strings.IndexFunc(c.src[c.pos:], unicode.IsSpace)
	if end < 0 {
		return c.src[c.pos:]
	}
	return c.src[c.pos : c.pos+end]
}

// slotByName finds a slot in one construct.
func (c *compiler) slotByName(con opdef.Construct, name string) (opdef.SlotDef, bool) {
	for _, sl := range c.schema.Slots(con) {
		if sl.Name == name {
			return sl, true
		}
	}
	return opdef.SlotDef{}, false
}

func (c *compiler) variable(name string, offset int) (element, error) {
	if name == "" {
		return element{}, c.errorf(offset, "expected a name after '$'")
	}
	if sl, ok := c.slotByName(opdef.OperandConstruct, name); ok {
		return element{kind: elemOperand, text: name, slot: sl, offset: offset}, nil
	}
	if _, ok := c.slotByName(opdef.ResultConstruct, name); ok {
		return element{}, c.errorf(offset, "result '%s' can only be referenced through type($%s)", name, name)
	}
	acc, ok := c.schema.AttrAccessor(name)
	if !ok {
		return element{}, c.errorf(offset, "'%s' is not an operand, attribute, or property of %s", name, c.schema.Name)
	}
	def := acc.Def()
	if def.Optional {
		return element{}, c.errorf(offset, "optional %s '%s' must be carried by attr-dict", def.Container, name)
	}
	return element{kind: elemAttr, text: name, attr: def, offset: offset}, nil
}

func (c *compiler) typeOf(name string, offset int) (element, error) {
	for _, con := range []opdef.Construct{opdef.OperandConstruct, opdef.ResultConstruct} {
		if sl, ok := c.slotByName(con, name); ok {
			return element{kind: elemType, text: name, slot: sl, offset: offset}, nil
		}
	}
	return element{}, c.errorf(offset, "type($%s) does not name an operand or result", name)
}

func (c *compiler) check() error {
	s := c.schema
	if len(s.Regions) > 0 || len(s.Successors) > 0 {
		return c.errorf(0, "%s has regions or successors, which have no format directive", s.Name)
	}

	seen := map[string]int{}
	typed := map[string]int{}
	attrDict := false
	for _, e := range c.elems {
		switch e.kind {
		case elemOperand, elemAttr:
			seen[e.text]++
			if seen[e.text] > 1 {
				return c.errorf(e.offset, "$%s is referenced more than once", e.text)
			}
		case elemType:
			typed[e.text]++
			if typed[e.text] > 1 {
				return c.errorf(e.offset, "type($%s) is referenced more than once", e.text)
			}
			if e.slot.Construct == opdef.OperandConstruct && seen[e.text] == 0 {
				return c.errorf(e.offset, "type($%s) must follow $%s", e.text, e.text)
			}
		case elemAttrDict:
			if attrDict {
				return c.errorf(e.offset, "attr-dict is referenced more than once")
			}
			attrDict = true
		}
	}

	for _, con := range []opdef.Construct{opdef.OperandConstruct, opdef.ResultConstruct} {
		for _, sl := range s.Slots(con) {
			if con == opdef.OperandConstruct && seen[sl.Name] == 0 {
				return c.errorf(len(c.src), "operand '%s' not found in the format", sl.Name)
			}
			if typed[sl.Name] == 0 {
				return c.errorf(len(c.src), "type of %s '%s' not found in the format", con, sl.Name)
			}
		}
	}

	propsInDict := s.HasOption(opdef.ParsePropInAttrDict{})
	segment := map[string]bool{}
	for _, con := range opdef.Constructs {
		segment[opdef.SegmentSizesName(con)] = true
	}
	for _, container := range []opdef.Container{opdef.AttributeContainer, opdef.PropertyContainer} {
		defs := s.Defs(container)
		for _, name := range slices.Sorted(maps.Keys(defs)) {
			def := defs[name]
			if segment[name] || seen[def.Accessor] > 0 {
				continue
			}
			if !attrDict {
				return c.errorf(len(c.src), "%s '%s' not found in the format and there is no attr-dict", container, name)
			}
			if container == opdef.PropertyContainer && !propsInDict {
				return c.errorf(len(c.src),
					"property '%s' not found in the format; reference it or declare %s",
					name, opdef.ParsePropInAttrDict{})
			}
		}
	}
	return nil
}

func isWord(s string) bool {
	return s != "" && (unicode.IsLetter(rune(s[0])) || s[0] == '_')
}
