package store

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// marshalDialects encodes dialect names as a JSON array TEXT column.
func marshalDialects(names []string) (string, error) {
	if names == nil {
		names = []string{}
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(names); err != nil {
		return "", fmt.Errorf("marshal dialects: %w", err)
	}
	// Encoder adds a trailing newline, remove it
	return strings.TrimSpace(buf.String()), nil
}

// unmarshalDialects decodes a dialects column.
func unmarshalDialects(data string) ([]string, error) {
	names := []string{}
	if data == "" {
		return names, nil
	}
	if err := json.Unmarshal([]byte(data), &names); err != nil {
		return nil, fmt.Errorf("unmarshal dialects: %w", err)
	}
	return names, nil
}
