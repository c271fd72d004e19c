package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"slices"

	"gopkg.in/yaml.v3"

	"github.com/roach88/irdl/internal/module"
)

// Scenario defines a conformance test scenario.
type Scenario struct {
	// Name uniquely identifies this scenario and names its golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Dialects lists CUE dialect directories to load, in order.
	Dialects []string `yaml:"dialects"`

	// Module is the IR module file to run.
	Module string `yaml:"module"`

	// Expect lists the operations that must fail. All others must verify.
	Expect []Expectation `yaml:"expect,omitempty"`

	// Assertions validate the trace and the recorded history.
	Assertions []Assertion `yaml:"assertions,omitempty"`

	// RunIDPrefix prefixes the deterministic run ID. Defaults to the
	// scenario name.
	RunIDPrefix string `yaml:"run_id_prefix,omitempty"`
}

// Expectation describes one expected failure. Empty fields are not
// checked.
type Expectation struct {
	// Index is the position of the operation in the module.
	Index int `yaml:"index"`

	// Stage is parse, construct, bind, or verify.
	Stage string `yaml:"stage,omitempty"`

	// Code is the error code, e.g. E308.
	Code string `yaml:"code,omitempty"`

	// Contains must be a substring of the error message.
	Contains string `yaml:"contains,omitempty"`
}

// Assertion validates the trace or the recorded history.
type Assertion struct {
	// Type specifies the assertion type:
	// - "trace_contains": Check a kind appears, optionally failing at Stage with Code
	// - "trace_order": Check kinds appear in order
	// - "trace_count": Check a kind appears exactly Count times
	// - "final_state": Query a store table and verify expected values
	Type string `yaml:"type"`

	// Kind is the operation kind (trace_contains, trace_count).
	Kind string `yaml:"kind,omitempty"`

	// Stage and Code narrow trace_contains.
	Stage string `yaml:"stage,omitempty"`
	Code  string `yaml:"code,omitempty"`

	// Count is the expected number of occurrences (trace_count).
	Count int `yaml:"count,omitempty"`

	// Kinds is the expected order (trace_order).
	Kinds []string `yaml:"kinds,omitempty"`

	// Table is "runs" or "results" (final_state).
	Table string `yaml:"table,omitempty"`

	// Where specifies query filters (final_state).
	// All fields must match exactly.
	Where map[string]interface{} `yaml:"where,omitempty"`

	// Expect contains expected field values (final_state).
	// Subset match - only specified fields are validated.
	Expect map[string]interface{} `yaml:"expect,omitempty"`
}

// Assertion type constants.
const (
	AssertTraceContains = "trace_contains"
	AssertTraceOrder    = "trace_order"
	AssertTraceCount    = "trace_count"
	AssertFinalState    = "final_state"
)

var validStages = []string{
	string(module.StageParse),
	string(module.StageConstruct),
	string(module.StageBind),
	string(module.StageVerify),
}

// LoadScenario reads and parses a scenario YAML file, resolving dialect
// and module paths relative to the file's directory.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	return LoadScenarioWithBasePath(path, filepath.Dir(path))
}

// LoadScenarioWithBasePath reads and parses a scenario YAML file,
// resolving relative paths against basePath.
func LoadScenarioWithBasePath(path, basePath string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	// Parse YAML with strict field validation (catches typos like "assertion:" vs "assertions:")
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	// Resolve paths relative to base path BEFORE validation
	resolve := func(p string) string {
		if p != "" && !filepath.IsAbs(p) && basePath != "" {
			return filepath.Join(basePath, p)
		}
		return p
	}
	for i, dir := range scenario.Dialects {
		scenario.Dialects[i] = resolve(dir)
	}
	scenario.Module = resolve(scenario.Module)

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}

	return &scenario, nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}

	if s.Description == "" {
		return fmt.Errorf("description is required")
	}

	if len(s.Dialects) == 0 {
		return fmt.Errorf("dialects list is required and must be non-empty")
	}

	if s.Module == "" {
		return fmt.Errorf("module is required")
	}

	for _, dir := range s.Dialects {
		if _, err := os.Stat(dir); os.IsNotExist(err) {
			return fmt.Errorf("dialect directory not found: %s", dir)
		}
	}
	if _, err := os.Stat(s.Module); os.IsNotExist(err) {
		return fmt.Errorf("module file not found: %s", s.Module)
	}

	seen := make(map[int]bool)
	for i, e := range s.Expect {
		if e.Index < 0 {
			return fmt.Errorf("expect[%d]: index must be non-negative", i)
		}
		if seen[e.Index] {
			return fmt.Errorf("expect[%d]: duplicate index %d", i, e.Index)
		}
		seen[e.Index] = true
		if e.Stage != "" && !slices.Contains(validStages, e.Stage) {
			return fmt.Errorf("expect[%d]: unknown stage %q", i, e.Stage)
		}
	}

	for i, assertion := range s.Assertions {
		if err := validateAssertion(i, &assertion); err != nil {
			return err
		}
	}

	return nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a *Assertion) error {
	if a.Type == "" {
		return fmt.Errorf("assertions[%d]: type is required", index)
	}

	switch a.Type {
	case AssertTraceContains:
		if a.Kind == "" {
			return fmt.Errorf("assertions[%d]: kind is required for trace_contains", index)
		}
	case AssertTraceOrder:
		if len(a.Kinds) == 0 {
			return fmt.Errorf("assertions[%d]: kinds list is required for trace_order", index)
		}
	case AssertTraceCount:
		if a.Kind == "" {
			return fmt.Errorf("assertions[%d]: kind is required for trace_count", index)
		}
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for trace_count", index)
		}
	case AssertFinalState:
		if a.Table == "" {
			return fmt.Errorf("assertions[%d]: table is required for final_state", index)
		}
		if len(a.Expect) == 0 {
			return fmt.Errorf("assertions[%d]: expect is required for final_state", index)
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}

	return nil
}
