package ir

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"

	"golang.org/x/text/unicode/norm"
)

// MarshalCanonical produces the canonical JSON encoding of an attribute.
// This is the ONLY encoding used for attribute equality and operation
// fingerprints.
//
// Every attribute encodes as an object whose "kind" member is its AttrName
// and whose remaining members are its parameters. Differences from
// json.Marshal:
//  1. Object keys are sorted
//  2. No HTML escaping (< > & are NOT escaped)
//  3. Strings are NFC normalized
//  4. Floats never appear; all numbers are int64
func MarshalCanonical(a Attribute) ([]byte, error) {
	var buf bytes.Buffer
	if err := writeCanonicalAttr(&buf, a); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// canonicalFields is an ordered set of key/value pairs awaiting encoding.
type canonicalFields map[string]any

func writeCanonicalAttr(buf *bytes.Buffer, a Attribute) error {
	if a == nil {
		return fmt.Errorf("nil attribute is not encodable")
	}
	fields := canonicalFields{"kind": a.AttrName()}

	switch v := a.(type) {
	case IntegerType:
		fields["width"] = int64(v.Width)
		fields["signedness"] = int64(v.Signedness)
	case IndexType, UnitAttr:
	case FloatType:
		fields["width"] = int64(v.Width)
	case TensorType:
		fields["shape"] = v.Shape
		fields["element"] = v.Element
	case StringAttr:
		fields["value"] = string(v)
	case IntegerAttr:
		fields["value"] = v.Value
		fields["type"] = v.Type
	case BoolAttr:
		fields["value"] = bool(v)
	case ArrayAttr:
		fields["elements"] = []Attribute(v)
	case DenseArray:
		fields["element"] = Attribute(v.Element)
		fields["values"] = v.Values
	case SymbolRefAttr:
		fields["value"] = string(v)
	case ParamAttribute:
		fields["params"] = v.Parameters()
	default:
		return fmt.Errorf("attribute %T does not support canonical encoding", a)
	}

	return writeCanonicalObject(buf, fields)
}

func writeCanonicalObject(buf *bytes.Buffer, fields canonicalFields) error {
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	buf.WriteByte('{')
	for i, k := range keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		if err := writeCanonicalString(buf, k); err != nil {
			return err
		}
		buf.WriteByte(':')
		if err := writeCanonicalValue(buf, fields[k]); err != nil {
			return fmt.Errorf("value for key %q: %w", k, err)
		}
	}
	buf.WriteByte('}')
	return nil
}

func writeCanonicalValue(buf *bytes.Buffer, v any) error {
	switch val := v.(type) {
	case nil:
		buf.WriteString("null")
	case string:
		return writeCanonicalString(buf, val)
	case int64:
		buf.WriteString(strconv.FormatInt(val, 10))
	case bool:
		buf.WriteString(strconv.FormatBool(val))
	case []int64:
		buf.WriteByte('[')
		for i, n := range val {
			if i > 0 {
				buf.WriteByte(',')
			}
			buf.WriteString(strconv.FormatInt(n, 10))
		}
		buf.WriteByte(']')
	case Attribute:
		return writeCanonicalAttr(buf, val)
	case []Attribute:
		buf.WriteByte('[')
		for i, elem := range val {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := writeCanonicalAttr(buf, elem); err != nil {
				return fmt.Errorf("array[%d]: %w", i, err)
			}
		}
		buf.WriteByte(']')
	case canonicalFields:
		return writeCanonicalObject(buf, val)
	default:
		return fmt.Errorf("unsupported canonical value: %T", v)
	}
	return nil
}

// writeCanonicalString writes an NFC-normalized JSON string without HTML escaping.
func writeCanonicalString(buf *bytes.Buffer, s string) error {
	var tmp bytes.Buffer
	enc := json.NewEncoder(&tmp)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(norm.NFC.String(s)); err != nil {
		return err
	}
	// json.Encoder adds a trailing newline
	buf.Write(bytes.TrimSuffix(tmp.Bytes(), []byte("\n")))
	return nil
}
