package constraint

import (
	"maps"
	"slices"

	"github.com/roach88/irdl/internal/ir"
)

// Context holds the constraint-variable bindings for one verify or construct
// call. A variable is bound the first time a value satisfying its inner
// constraint is seen; later uses must match that binding exactly.
//
// A Context is not safe for concurrent use. Allocate one per call.
type Context struct {
	vars      map[string]ir.Attribute
	rangeVars map[string][]ir.Attribute
}

// NewContext returns an empty Context.
func NewContext() *Context {
	return &Context{
		vars:      make(map[string]ir.Attribute),
		rangeVars: make(map[string][]ir.Attribute),
	}
}

// Var returns the binding of a single-attribute variable.
func (c *Context) Var(name string) (ir.Attribute, bool) {
	a, ok := c.vars[name]
	return a, ok
}

// SetVar binds a single-attribute variable, replacing any previous binding.
func (c *Context) SetVar(name string, a ir.Attribute) {
	c.vars[name] = a
}

// RangeVar returns the binding of a sequence variable.
func (c *Context) RangeVar(name string) ([]ir.Attribute, bool) {
	as, ok := c.rangeVars[name]
	return as, ok
}

// SetRangeVar binds a sequence variable, replacing any previous binding.
func (c *Context) SetRangeVar(name string, as []ir.Attribute) {
	c.rangeVars[name] = slices.Clone(as)
}

// Vars returns the names of all bound variables, sorted. Sequence variables
// are suffixed with "*".
func (c *Context) Vars() []string {
	names := slices.Collect(maps.Keys(c.vars))
	for k := range c.rangeVars {
		names = append(names, k+"*")
	}
	slices.Sort(names)
	return names
}

// Copy returns an independent copy of c. Used to try alternatives without
// leaking bindings from failed branches.
func (c *Context) Copy() *Context {
	return &Context{
		vars:      maps.Clone(c.vars),
		rangeVars: maps.Clone(c.rangeVars),
	}
}

// Update replaces c's bindings with other's.
func (c *Context) Update(other *Context) {
	maps.Copy(c.vars, other.vars)
	maps.Copy(c.rangeVars, other.rangeVars)
}
