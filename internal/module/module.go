package module

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/roach88/irdl/internal/ir"
)

// File is a decoded module file.
type File struct {
	// Name identifies the module in reports.
	Name string `yaml:"name"`

	// Args are the block arguments shared by every operation.
	Args []ArgDecl `yaml:"args,omitempty"`

	// Ops are run in order.
	Ops []OpDecl `yaml:"ops"`
}

// ArgDecl declares one block argument.
type ArgDecl struct {
	Name string `yaml:"name"`
	Type string `yaml:"type"`
}

// OpDecl is one operation. Exactly one of Text, Slots, Create, and Flat is
// set.
type OpDecl struct {
	// Op is the operation kind name.
	Op string `yaml:"op"`

	// Results names the operation's results in flat order. Unnamed results
	// are numbered.
	Results []string `yaml:"results,omitempty"`

	Text   string      `yaml:"text,omitempty"`
	Slots  *SlotsForm  `yaml:"slots,omitempty"`
	Create *CreateForm `yaml:"create,omitempty"`
	Flat   *FlatForm   `yaml:"flat,omitempty"`
}

// Form reports which form the declaration uses.
func (d OpDecl) Form() string {
	switch {
	case d.Text != "":
		return FormText
	case d.Slots != nil:
		return FormSlots
	case d.Create != nil:
		return FormCreate
	case d.Flat != nil:
		return FormFlat
	}
	return ""
}

// Operation forms.
const (
	FormText   = "text"
	FormSlots  = "slots"
	FormCreate = "create"
	FormFlat   = "flat"
)

// SlotsForm gives one value per declared slot, keyed by slot name. A
// scalar is a single value, a sequence is a list (possibly empty), and a
// null or missing key means absent.
type SlotsForm struct {
	Operands   map[string]yaml.Node `yaml:"operands,omitempty"`
	Results    map[string]yaml.Node `yaml:"results,omitempty"`
	Attributes map[string]string    `yaml:"attributes,omitempty"`
	Properties map[string]string    `yaml:"properties,omitempty"`
}

// CreateForm is the generic construction input: named constants are
// routed to properties or attributes by the schema.
type CreateForm struct {
	Operands []string          `yaml:"operands,omitempty"`
	Results  []string          `yaml:"results,omitempty"`
	Named    map[string]string `yaml:"named,omitempty"`
}

// FlatForm describes an operation exactly as stored, bypassing every
// schema-driven construction path.
type FlatForm struct {
	Operands   []string          `yaml:"operands,omitempty"`
	Results    []string          `yaml:"results,omitempty"`
	Attributes map[string]string `yaml:"attributes,omitempty"`
	Properties map[string]string `yaml:"properties,omitempty"`
}

// Load reads and decodes a module file. Unknown fields are rejected.
func Load(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read module file: %w", err)
	}
	f, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return f, nil
}

// Parse decodes module YAML and checks its structure.
func Parse(data []byte) (*File, error) {
	var f File
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&f); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}
	if err := validateFile(&f); err != nil {
		return nil, fmt.Errorf("invalid module: %w", err)
	}
	return &f, nil
}

func validateFile(f *File) error {
	if f.Name == "" {
		return fmt.Errorf("name is required")
	}
	if len(f.Ops) == 0 {
		return fmt.Errorf("ops list is required and must be non-empty")
	}

	seen := make(map[string]bool)
	for i, a := range f.Args {
		if a.Name == "" {
			return fmt.Errorf("args[%d]: name is required", i)
		}
		if seen[a.Name] {
			return fmt.Errorf("args[%d]: duplicate name %q", i, a.Name)
		}
		seen[a.Name] = true
		if _, err := ir.ParseAttr(a.Type); err != nil {
			return fmt.Errorf("args[%d] (%s): type: %w", i, a.Name, err)
		}
	}

	for i, op := range f.Ops {
		if op.Op == "" {
			return fmt.Errorf("ops[%d]: op is required", i)
		}
		forms := 0
		for _, set := range []bool{op.Text != "", op.Slots != nil, op.Create != nil, op.Flat != nil} {
			if set {
				forms++
			}
		}
		if forms != 1 {
			return fmt.Errorf("ops[%d] (%s): exactly one of text, slots, create, flat is required, got %d",
				i, op.Op, forms)
		}
	}
	return nil
}
