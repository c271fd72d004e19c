package ir

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
)

// Domain prefixes for content-addressed identity. The suffix tracks
// IRVersion, so a change to the canonical encoding changes every hash.
const (
	DomainOperation = "irdl/op/v" + IRVersion
)

// hashWithDomain computes SHA-256 hash with domain separation.
// Format: SHA256(domain + 0x00 + data)
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// OpFingerprint computes a content-addressed ID for the shape of an
// operation: its name, operand and result types, attributes, properties, and
// region/successor counts. Operand identity is not part of the fingerprint,
// so two ops of the same shape over different values hash equal.
//
// Returns error if any attribute cannot be canonically encoded.
func OpFingerprint(op *Operation) (string, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')

	buf.WriteString(`"attributes":`)
	if err := writeCanonicalAttrMap(&buf, op.Attributes); err != nil {
		return "", fmt.Errorf("OpFingerprint: attributes: %w", err)
	}

	buf.WriteString(`,"name":`)
	if err := writeCanonicalString(&buf, op.Name); err != nil {
		return "", err
	}

	buf.WriteString(`,"operand_types":`)
	if err := writeCanonicalValue(&buf, op.OperandTypes()); err != nil {
		return "", fmt.Errorf("OpFingerprint: operand types: %w", err)
	}

	buf.WriteString(`,"properties":`)
	if err := writeCanonicalAttrMap(&buf, op.Properties); err != nil {
		return "", fmt.Errorf("OpFingerprint: properties: %w", err)
	}

	fmt.Fprintf(&buf, `,"regions":%d`, op.NumRegions())

	buf.WriteString(`,"result_types":`)
	if err := writeCanonicalValue(&buf, op.ResultTypes()); err != nil {
		return "", fmt.Errorf("OpFingerprint: result types: %w", err)
	}

	fmt.Fprintf(&buf, `,"successors":%d`, op.NumSuccessors())
	buf.WriteByte('}')

	return hashWithDomain(DomainOperation, buf.Bytes()), nil
}

// MustOpFingerprint is like OpFingerprint but panics on error.
// Use only in tests or when inputs are known to be valid.
func MustOpFingerprint(op *Operation) string {
	id, err := OpFingerprint(op)
	if err != nil {
		panic(err)
	}
	return id
}

func writeCanonicalAttrMap(buf *bytes.Buffer, m map[string]Attribute) error {
	keys := make([]string, 0, len(m))
	for k := range m {
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
		if err := writeCanonicalAttr(buf, m[k]); err != nil {
			return fmt.Errorf("key %q: %w", k, err)
		}
	}
	buf.WriteByte('}')
	return nil
}
