package ir

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"
)

// FormatAttr renders an attribute in its textual syntax:
//
//	i32  si8  ui64  index  f32
//	tensor<2x?xf32>
//	"text"   4 : i64   true   unit   @sym
//	[a, b]   array<i32: 1, 2>   #mesh.sharding<...>
func FormatAttr(a Attribute) string {
	var sb strings.Builder
	writeAttr(&sb, a)
	return sb.String()
}

// FormatAttrs renders a list of attributes separated by ", ".
func FormatAttrs(attrs []Attribute) string {
	parts := make([]string, len(attrs))
	for i, a := range attrs {
		parts[i] = FormatAttr(a)
	}
	return strings.Join(parts, ", ")
}

func writeAttr(sb *strings.Builder, a Attribute) {
	switch v := a.(type) {
	case nil:
		sb.WriteString("<<null>>")
	case IntegerType:
		switch v.Signedness {
		case Signed:
			sb.WriteString("si")
		case Unsigned:
			sb.WriteString("ui")
		default:
			sb.WriteString("i")
		}
		sb.WriteString(strconv.Itoa(v.Width))
	case IndexType:
		sb.WriteString("index")
	case FloatType:
		fmt.Fprintf(sb, "f%d", v.Width)
	case TensorType:
		sb.WriteString("tensor<")
		for _, d := range v.Shape {
			if d == DynamicDim {
				sb.WriteString("?")
			} else {
				sb.WriteString(strconv.FormatInt(d, 10))
			}
			sb.WriteString("x")
		}
		writeAttr(sb, v.Element)
		sb.WriteString(">")
	case StringAttr:
		sb.WriteString(strconv.Quote(string(v)))
	case IntegerAttr:
		sb.WriteString(strconv.FormatInt(v.Value, 10))
		sb.WriteString(" : ")
		writeAttr(sb, v.Type)
	case BoolAttr:
		sb.WriteString(strconv.FormatBool(bool(v)))
	case UnitAttr:
		sb.WriteString("unit")
	case ArrayAttr:
		sb.WriteString("[")
		sb.WriteString(FormatAttrs(v))
		sb.WriteString("]")
	case DenseArray:
		sb.WriteString("array<")
		writeAttr(sb, v.Element)
		for i, n := range v.Values {
			if i == 0 {
				sb.WriteString(": ")
			} else {
				sb.WriteString(", ")
			}
			sb.WriteString(strconv.FormatInt(n, 10))
		}
		sb.WriteString(">")
	case SymbolRefAttr:
		sb.WriteString("@")
		sb.WriteString(string(v))
	case OpaqueAttr:
		sb.WriteString("#")
		sb.WriteString(v.AttrName())
		if len(v.Params) > 0 {
			sb.WriteString("<")
			sb.WriteString(FormatAttrs(v.Params))
			sb.WriteString(">")
		}
	case fmt.Stringer:
		sb.WriteString(v.String())
	default:
		fmt.Fprintf(sb, "#%s", a.AttrName())
	}
}

// ParseAttr parses a complete attribute from its textual syntax.
func ParseAttr(s string) (Attribute, error) {
	a, rest, err := ParseAttrPrefix(s)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(rest) != "" {
		return nil, fmt.Errorf("unexpected trailing input %q after attribute", rest)
	}
	return a, nil
}

// ParseAttrPrefix parses one attribute from the front of s and returns the
// unconsumed remainder. Leading whitespace is skipped.
func ParseAttrPrefix(s string) (Attribute, string, error) {
	p := &attrParser{src: s}
	a, err := p.parseAttr()
	if err != nil {
		return nil, s, err
	}
	return a, p.src[p.pos:], nil
}

// attrParser is a small recursive-descent parser over the attribute syntax.
type attrParser struct {
	src string
	pos int
}

func (p *attrParser) errorf(format string, args ...any) error {
	return fmt.Errorf("attribute syntax at offset %d: %s", p.pos, fmt.Sprintf(format, args...))
}

func (p *attrParser) skipSpace() {
	for p.pos < len(p.src) && unicode.IsSpace(rune(p.src[p.pos])) {
		p.pos++
	}
}

func (p *attrParser) peek() byte {
	p.skipSpace()
	if p.pos >= len(p.src) {
		return 0
	}
	return p.src[p.pos]
}

func (p *attrParser) consume(c byte) bool {
	if p.peek() == c {
		p.pos++
		return true
	}
	return false
}

func (p *attrParser) expect(c byte) error {
	if !p.consume(c) {
		return p.errorf("expected %q", c)
	}
	return nil
}

// ident reads [A-Za-z0-9_.$-]+ without skipping a leading sign.
func (p *attrParser) ident() string {
	p.skipSpace()
	start := p.pos
	for p.pos < len(p.src) {
		c := p.src[p.pos]
		if c == '_' || c == '.' || c == '$' || unicode.IsLetter(rune(c)) || unicode.IsDigit(rune(c)) {
			p.pos++
			continue
		}
		break
	}
	return p.src[start:p.pos]
}

func (p *attrParser) integer() (int64, error) {
	p.skipSpace()
	start := p.pos
	if p.pos < len(p.src) && p.src[p.pos] == '-' {
		p.pos++
	}
	for p.pos < len(p.src) && p.src[p.pos] >= '0' && p.src[p.pos] <= '9' {
		p.pos++
	}
	n, err := strconv.ParseInt(p.src[start:p.pos], 10, 64)
	if err != nil {
		p.pos = start
		return 0, p.errorf("expected integer")
	}
	return n, nil
}

func (p *attrParser) parseAttr() (Attribute, error) {
	switch c := p.peek(); {
	case c == 0:
		return nil, p.errorf("expected attribute, got end of input")
	case c == '"':
		return p.parseString()
	case c == '@':
		p.pos++
		name := p.ident()
		if name == "" {
			return nil, p.errorf("expected symbol name after '@'")
		}
		return SymbolRefAttr(name), nil
	case c == '[':
		p.pos++
		elems, err := p.parseList(']')
		if err != nil {
			return nil, err
		}
		return ArrayAttr(elems), nil
	case c == '#':
		p.pos++
		return p.parseOpaque()
	case c == '-' || (c >= '0' && c <= '9'):
		n, err := p.integer()
		if err != nil {
			return nil, err
		}
		if err := p.expect(':'); err != nil {
			return nil, err
		}
		typ, err := p.parseAttr()
		if err != nil {
			return nil, err
		}
		return IntegerAttr{Value: n, Type: typ}, nil
	}

	word := p.ident()
	switch word {
	case "":
		return nil, p.errorf("unexpected character %q", p.src[p.pos])
	case "index":
		return Index, nil
	case "unit":
		return UnitAttr{}, nil
	case "true":
		return BoolAttr(true), nil
	case "false":
		return BoolAttr(false), nil
	case "tensor":
		return p.parseTensor()
	case "array":
		return p.parseDenseArray()
	}
	if t, ok := parseScalarType(word); ok {
		return t, nil
	}
	return nil, p.errorf("unknown attribute %q", word)
}

func (p *attrParser) parseString() (Attribute, error) {
	start := p.pos
	p.pos++
	for p.pos < len(p.src) {
		switch p.src[p.pos] {
		case '\\':
			p.pos += 2
			continue
		case '"':
			p.pos++
			s, err := strconv.Unquote(p.src[start:p.pos])
			if err != nil {
				return nil, p.errorf("invalid string literal: %v", err)
			}
			return StringAttr(s), nil
		}
		p.pos++
	}
	return nil, p.errorf("unterminated string literal")
}

func (p *attrParser) parseList(end byte) ([]Attribute, error) {
	var elems []Attribute
	if p.consume(end) {
		return elems, nil
	}
	for {
		a, err := p.parseAttr()
		if err != nil {
			return nil, err
		}
		elems = append(elems, a)
		if p.consume(end) {
			return elems, nil
		}
		if err := p.expect(','); err != nil {
			return nil, err
		}
	}
}

func (p *attrParser) parseTensor() (Attribute, error) {
	if err := p.expect('<'); err != nil {
		return nil, err
	}
	var shape []int64
	for {
		p.skipSpace()
		save := p.pos
		if p.consume('?') {
			if !p.consume('x') {
				return nil, p.errorf("expected 'x' after dynamic dimension")
			}
			shape = append(shape, DynamicDim)
			continue
		}
		if c := p.peek(); c >= '0' && c <= '9' {
			n, err := p.integer()
			if err == nil && p.pos < len(p.src) && p.src[p.pos] == 'x' {
				p.pos++
				shape = append(shape, n)
				continue
			}
			p.pos = save
		}
		break
	}
	elem, err := p.parseAttr()
	if err != nil {
		return nil, err
	}
	if err := p.expect('>'); err != nil {
		return nil, err
	}
	return TensorType{Shape: shape, Element: elem}, nil
}

func (p *attrParser) parseDenseArray() (Attribute, error) {
	if err := p.expect('<'); err != nil {
		return nil, err
	}
	t, ok := parseScalarType(p.ident())
	it, isInt := t.(IntegerType)
	if !ok || !isInt {
		return nil, p.errorf("dense array element must be an integer type")
	}
	arr := DenseArray{Element: it}
	if p.consume(':') {
		for {
			n, err := p.integer()
			if err != nil {
				return nil, err
			}
			arr.Values = append(arr.Values, n)
			if !p.consume(',') {
				break
			}
		}
	}
	if err := p.expect('>'); err != nil {
		return nil, err
	}
	return arr, nil
}

func (p *attrParser) parseOpaque() (Attribute, error) {
	full := p.ident()
	dot := strings.IndexByte(full, '.')
	if dot <= 0 || dot == len(full)-1 {
		return nil, p.errorf("opaque attribute name %q must be dialect.name", full)
	}
	a := OpaqueAttr{Dialect: full[:dot], Name: full[dot+1:]}
	if p.consume('<') {
		params, err := p.parseList('>')
		if err != nil {
			return nil, err
		}
		a.Params = params
	}
	return a, nil
}

// parseScalarType recognizes iN, siN, uiN, and fN.
func parseScalarType(word string) (Attribute, bool) {
	prefixes := []struct {
		prefix string
		sign   Signedness
	}{{"si", Signed}, {"ui", Unsigned}, {"i", Signless}}
	for _, pf := range prefixes {
		if rest, ok := strings.CutPrefix(word, pf.prefix); ok {
			if w, err := strconv.Atoi(rest); err == nil && w > 0 {
				return IntegerType{Width: w, Signedness: pf.sign}, true
			}
		}
	}
	if rest, ok := strings.CutPrefix(word, "f"); ok {
		if w, err := strconv.Atoi(rest); err == nil && w > 0 {
			return FloatType{Width: w}, true
		}
	}
	return nil, false
}
