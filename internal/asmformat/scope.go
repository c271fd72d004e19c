package asmformat

import (
	"fmt"

	"github.com/roach88/irdl/internal/ir"
)

// Scope is a map-backed opdef.ValueScope. Names are stored without the
// '%' sigil.
type Scope struct {
	byName  map[string]ir.Value
	byValue map[ir.Value]string
}

// NewScope creates an empty scope.
func NewScope() *Scope {
	return &Scope{
		byName:  make(map[string]ir.Value),
		byValue: make(map[ir.Value]string),
	}
}

// Define binds name to v. Redefining a name is an error.
func (s *Scope) Define(name string, v ir.Value) error {
	if _, dup := s.byName[name]; dup {
		return fmt.Errorf("value %%%s is already defined", name)
	}
	s.byName[name] = v
	s.byValue[v] = name
	return nil
}

// Lookup returns the value bound to name.
func (s *Scope) Lookup(name string) (ir.Value, bool) {
	v, ok := s.byName[name]
	return v, ok
}

// NameOf returns the name bound to v.
func (s *Scope) NameOf(v ir.Value) (string, bool) {
	name, ok := s.byValue[v]
	return name, ok
}

// Len returns the number of defined values.
func (s *Scope) Len() int { return len(s.byName) }
