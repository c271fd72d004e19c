package opdef

import (
	"fmt"
	"log/slog"
	"maps"
	"slices"
	"sync"

	"github.com/roach88/irdl/internal/ir"
)

// Registry maps kind names to schemas. Each kind is registered once; the
// stored schema is then shared read-only by every caller.
type Registry struct {
	mu      sync.RWMutex
	schemas map[string]*Schema
	logger  *slog.Logger
	formats FormatCompiler
}

// RegistryOption configures a Registry.
type RegistryOption func(*Registry)

// WithLogger sets the registry logger. The default is slog.Default().
func WithLogger(l *slog.Logger) RegistryOption {
	return func(r *Registry) { r.logger = l }
}

// WithFormatCompiler compiles declared assembly formats at registration.
// Without one, formats are recorded but Parse and Print are unavailable.
func WithFormatCompiler(fc FormatCompiler) RegistryOption {
	return func(r *Registry) { r.formats = fc }
}

// NewRegistry creates an empty registry.
func NewRegistry(opts ...RegistryOption) *Registry {
	r := &Registry{
		schemas: make(map[string]*Schema),
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Register builds d and stores the resulting schema under its name.
func (r *Registry) Register(d *Decl) (*Schema, error) {
	s, err := Build(d)
	if err != nil {
		return nil, err
	}

	if s.AssemblyFormat != "" && r.formats != nil {
		prog, err := r.formats.Compile(s.AssemblyFormat, s)
		if err != nil {
			return nil, &DefinitionError{
				Code:    ErrFormatCompile,
				Kind:    s.Name,
				Message: fmt.Sprintf("assembly format: %v", err),
			}
		}
		s.program = prog
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, dup := r.schemas[s.Name]; dup {
		return nil, defErr(s.Name, "", ErrDuplicateKind, "kind is already registered")
	}
	r.schemas[s.Name] = s

	r.logger.Debug("registered operation",
		"kind", s.Name,
		"operands", len(s.Operands),
		"results", len(s.Results),
		"regions", len(s.Regions),
		"successors", len(s.Successors),
		"attributes", len(s.Attributes),
		"properties", len(s.Properties),
	)
	return s, nil
}

// MustRegister is like Register but panics on error. It is intended for
// package-level dialect tables.
func (r *Registry) MustRegister(d *Decl) *Schema {
	s, err := r.Register(d)
	if err != nil {
		panic(err)
	}
	return s
}

// Lookup returns the schema registered under name.
func (r *Registry) Lookup(name string) (*Schema, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.schemas[name]
	return s, ok
}

// Names returns every registered kind name in sorted order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Sorted(maps.Keys(r.schemas))
}

// Verify verifies op against the schema registered under op.Name.
func (r *Registry) Verify(op *ir.Operation) error {
	s, ok := r.Lookup(op.Name)
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownOp, op.Name)
	}
	return s.Verify(op)
}

// CreateInput is the generic, schema-agnostic construction input: flat
// lists plus one map of named constants.
type CreateInput struct {
	Operands    []ir.Value
	ResultTypes []ir.Attribute
	Named       map[string]ir.Attribute
	Regions     []*ir.Region
	Successors  []*ir.Block
}

// Create builds an instance of a registered kind from flat lists. Each
// named constant is stored as a property when the schema declares a
// property of that name, and as an attribute otherwise. Defaults are then
// applied. The result is not verified.
func (r *Registry) Create(name string, in CreateInput) (*ir.Operation, error) {
	s, ok := r.Lookup(name)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownOp, name)
	}

	attrs := make(map[string]ir.Attribute)
	props := make(map[string]ir.Attribute)
	for k, v := range in.Named {
		if v == nil {
			continue
		}
		if _, isProp := s.Properties[k]; isProp {
			props[k] = v
		} else {
			attrs[k] = v
		}
	}

	op := ir.NewOperation(name, ir.OperationState{
		Operands:    in.Operands,
		ResultTypes: in.ResultTypes,
		Attributes:  attrs,
		Properties:  props,
		Regions:     in.Regions,
		Successors:  in.Successors,
	})
	s.ApplyDefaults(op)
	return op, nil
}
