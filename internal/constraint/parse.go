package constraint

import (
	"fmt"
	"strconv"
	"unicode"

	"github.com/roach88/irdl/internal/ir"
)

// SyntaxError reports a malformed constraint expression.
type SyntaxError struct {
	Src    string
	Offset int
	Msg    string
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("constraint %q: offset %d: %s", e.Src, e.Offset, e.Msg)
}

// Parse parses a constraint expression. The result is an AttrConstraint
// unless the expression is a range(...) or $R* sequence form.
func Parse(src string) (Constraint, error) {
	p := &parser{src: src}
	c, err := p.top()
	if err != nil {
		return nil, err
	}
	if p.peek() != 0 {
		return nil, p.errorf("unexpected %q", p.src[p.pos:])
	}
	return c, nil
}

// ParseAttrConstraint parses an expression that must check a single
// attribute.
func ParseAttrConstraint(src string) (AttrConstraint, error) {
	c, err := Parse(src)
	if err != nil {
		return nil, err
	}
	ac, ok := c.(AttrConstraint)
	if !ok {
		return nil, &SyntaxError{Src: src, Msg: "expected an attribute constraint, got a range constraint"}
	}
	return ac, nil
}

// MustParse is like Parse but panics on error.
// Use only in tests and static declaration tables.
func MustParse(src string) Constraint {
	c, err := Parse(src)
	if err != nil {
		panic(err)
	}
	return c
}

type parser struct {
	src string
	pos int
}

func (p *parser) errorf(format string, args ...any) error {
	return &SyntaxError{Src: p.src, Offset: p.pos, Msg: fmt.Sprintf(format, args...)}
}

func (p *parser) peek() byte {
	for p.pos < len(p.src) && unicode.IsSpace(rune(p.src[p.pos])) {
		p.pos++
	}
	if p.pos >= len(p.src) {
		return 0
	}
	return p.src[p.pos]
}

// got consumes c if it is next.
func (p *parser) got(c byte) bool {
	if p.peek() == c {
		p.pos++
		return true
	}
	return false
}

// want consumes c or fails.
func (p *parser) want(c byte) error {
	if !p.got(c) {
		return p.errorf("expected %q", c)
	}
	return nil
}

// name reads an identifier of letters, digits, '_' and '.'.
func (p *parser) name() string {
	p.peek()
	start := p.pos
	for p.pos < len(p.src) {
		c := rune(p.src[p.pos])
		if c == '_' || c == '.' || unicode.IsLetter(c) || unicode.IsDigit(c) {
			p.pos++
			continue
		}
		break
	}
	return p.src[start:p.pos]
}

// top := range(...) | $R* [':' top] | alternatives
func (p *parser) top() (Constraint, error) {
	save := p.pos
	if p.got('$') {
		n := p.name()
		if n != "" && p.got('*') {
			return p.rangeVar(n)
		}
	}
	p.pos = save

	if p.name() == "range" && p.peek() == '(' {
		return p.rangeOf()
	}
	p.pos = save

	return p.alternatives()
}

func (p *parser) rangeVar(name string) (Constraint, error) {
	var inner RangeConstraint = NewRangeOf(Any{})
	if p.got(':') {
		c, err := p.top()
		if err != nil {
			return nil, err
		}
		if inner, err = AsRange(c); err != nil {
			return nil, p.errorf("%v", err)
		}
	}
	return RangeVar{Name: name, Inner: inner}, nil
}

func (p *parser) rangeOf() (Constraint, error) {
	if err := p.want('('); err != nil {
		return nil, err
	}
	elem, err := p.alternatives()
	if err != nil {
		return nil, err
	}
	r := NewRangeOf(elem)
	if p.got(',') {
		p.peek()
		start := p.pos
		for p.pos < len(p.src) && p.src[p.pos] >= '0' && p.src[p.pos] <= '9' {
			p.pos++
		}
		n, err := strconv.Atoi(p.src[start:p.pos])
		if err != nil {
			return nil, p.errorf("expected range length")
		}
		r.Length = n
	}
	if err := p.want(')'); err != nil {
		return nil, err
	}
	return r, nil
}

// alternatives := unary ('|' unary)*
func (p *parser) alternatives() (AttrConstraint, error) {
	first, err := p.unary()
	if err != nil {
		return nil, err
	}
	alts := []AttrConstraint{first}
	for p.got('|') {
		next, err := p.unary()
		if err != nil {
			return nil, err
		}
		alts = append(alts, next)
	}
	if len(alts) == 1 {
		return first, nil
	}
	return AnyOf{Alts: alts}, nil
}

func (p *parser) unary() (AttrConstraint, error) {
	switch p.peek() {
	case 0:
		return nil, p.errorf("expected constraint, got end of input")
	case '(':
		p.pos++
		c, err := p.alternatives()
		if err != nil {
			return nil, err
		}
		if err := p.want(')'); err != nil {
			return nil, err
		}
		return c, nil
	case '$':
		p.pos++
		n := p.name()
		if n == "" {
			return nil, p.errorf("expected variable name after '$'")
		}
		v := Var{Name: n, Inner: Any{}}
		if p.got(':') {
			inner, err := p.unary()
			if err != nil {
				return nil, err
			}
			v.Inner = inner
		}
		return v, nil
	case '?':
		p.pos++
		n := p.name()
		if n == "" {
			return nil, p.errorf("expected type variable name after '?'")
		}
		tv := TypeVar{Name: n, Bound: Any{}}
		if p.got(':') {
			bound, err := p.unary()
			if err != nil {
				return nil, err
			}
			tv.Bound = bound
		}
		return tv, nil
	}

	save := p.pos
	word := p.name()
	switch {
	case word == "dense" && p.peek() == '<':
		return p.denseOf()
	case word == "base" && p.peek() == '(':
		p.pos++
		kind := p.name()
		if kind == "" {
			return nil, p.errorf("expected attribute kind name")
		}
		if err := p.want(')'); err != nil {
			return nil, err
		}
		return Base{Kind: kind}, nil
	case word == "all" && p.peek() == '(':
		return p.allOf()
	case (word == "tensor_of" || word == "int_attr_of" || word == "array_of") && p.peek() == '(':
		p.pos++
		inner, err := p.alternatives()
		if err != nil {
			return nil, err
		}
		if err := p.want(')'); err != nil {
			return nil, err
		}
		switch word {
		case "tensor_of":
			return TensorOf{Element: inner}, nil
		case "int_attr_of":
			return IntegerAttrOf{Type: inner}, nil
		default:
			return ArrayOf{Element: inner}, nil
		}
	}
	if c, ok := Named(word); ok && p.peek() != '<' {
		return c, nil
	}

	// Fall back to an attribute literal.
	p.pos = save
	a, rest, err := ir.ParseAttrPrefix(p.src[p.pos:])
	if err != nil {
		return nil, p.errorf("unknown constraint: %v", err)
	}
	p.pos = len(p.src) - len(rest)
	return Eq{Attr: a}, nil
}

func (p *parser) denseOf() (AttrConstraint, error) {
	if err := p.want('<'); err != nil {
		return nil, err
	}
	elem, err := ir.ParseAttr(p.name())
	if err != nil {
		return nil, p.errorf("dense element: %v", err)
	}
	it, ok := elem.(ir.IntegerType)
	if !ok {
		return nil, p.errorf("dense element must be an integer type, got %s", ir.FormatAttr(elem))
	}
	if err := p.want('>'); err != nil {
		return nil, err
	}
	return DenseArrayOf{Element: it}, nil
}

func (p *parser) allOf() (AttrConstraint, error) {
	p.pos++ // '('
	var parts []AttrConstraint
	for {
		c, err := p.alternatives()
		if err != nil {
			return nil, err
		}
		parts = append(parts, c)
		if p.got(')') {
			return AllOf{Parts: parts}, nil
		}
		if err := p.want(','); err != nil {
			return nil, err
		}
	}
}
