package constraint

import (
	"maps"
	"slices"

	"github.com/roach88/irdl/internal/ir"
)

// named holds the builtin constraint names understood by Parse. Concrete
// types such as i32 or index are not listed: they parse as attribute
// literals and become Eq constraints.
var named = map[string]AttrConstraint{
	"any":        Any{},
	"integer":    Base{Kind: ir.KindIntegerType},
	"float":      Base{Kind: ir.KindFloatType},
	"tensor":     Base{Kind: ir.KindTensorType},
	"string":     Base{Kind: ir.KindString},
	"symbol":     Base{Kind: ir.KindSymbolRef},
	"unit":       Base{Kind: ir.KindUnit},
	"bool":       Base{Kind: ir.KindBool},
	"int_attr":   Base{Kind: ir.KindInteger},
	"array":      Base{Kind: ir.KindArray},
	"dense":      Base{Kind: ir.KindDenseArray},
	"index_attr": IntegerAttrOf{Type: Eq{Attr: ir.Index}},
}

// baseNames maps a Base kind back to its builtin name for printing.
var baseNames = func() map[string]string {
	out := make(map[string]string)
	for name, c := range named {
		if b, ok := c.(Base); ok {
			out[b.Kind] = name
		}
	}
	return out
}()

// Named returns the builtin constraint with the given name.
func Named(name string) (AttrConstraint, bool) {
	c, ok := named[name]
	return c, ok
}

// Builtins returns the builtin constraint names, sorted.
func Builtins() []string {
	return slices.Sorted(maps.Keys(named))
}
