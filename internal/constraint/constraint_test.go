package constraint

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/irdl/internal/ir"
)

// ============================================================================
// Single-attribute constraints
// ============================================================================

func TestAttrConstraints(t *testing.T) {
	tests := []struct {
		name   string
		c      AttrConstraint
		accept []ir.Attribute
		reject []ir.Attribute
	}{
		{
			name:   "any",
			c:      Any{},
			accept: []ir.Attribute{ir.I32, ir.UnitAttr{}},
		},
		{
			name:   "eq",
			c:      Eq{Attr: ir.I32},
			accept: []ir.Attribute{ir.IntegerType{Width: 32}},
			reject: []ir.Attribute{ir.I64, ir.Index, nil},
		},
		{
			name:   "base",
			c:      Base{Kind: ir.KindIntegerType},
			accept: []ir.Attribute{ir.I1, ir.IntegerType{Width: 7, Signedness: ir.Unsigned}},
			reject: []ir.Attribute{ir.Index, ir.F32, nil},
		},
		{
			name:   "any of",
			c:      AnyOf{Alts: []AttrConstraint{Eq{Attr: ir.I32}, Eq{Attr: ir.Index}}},
			accept: []ir.Attribute{ir.I32, ir.Index},
			reject: []ir.Attribute{ir.I64},
		},
		{
			name:   "all of",
			c:      AllOf{Parts: []AttrConstraint{Base{Kind: ir.KindTensorType}, TensorOf{Element: Eq{Attr: ir.F32}}}},
			accept: []ir.Attribute{ir.NewTensorType(ir.F32, 2)},
			reject: []ir.Attribute{ir.NewTensorType(ir.F64, 2), ir.F32},
		},
		{
			name:   "integer attr of index",
			c:      IntegerAttrOf{Type: Eq{Attr: ir.Index}},
			accept: []ir.Attribute{ir.NewIntegerAttr(3, ir.Index)},
			reject: []ir.Attribute{ir.NewIntegerAttr(3, ir.I64), ir.Index},
		},
		{
			name:   "array of",
			c:      ArrayOf{Element: Base{Kind: ir.KindSymbolRef}},
			accept: []ir.Attribute{ir.ArrayAttr{}, ir.ArrayAttr{ir.SymbolRefAttr("a")}},
			reject: []ir.Attribute{ir.ArrayAttr{ir.SymbolRefAttr("a"), ir.I32}, ir.SymbolRefAttr("a")},
		},
		{
			name:   "dense array of",
			c:      DenseArrayOf{Element: ir.I16},
			accept: []ir.Attribute{ir.NewDenseArray(ir.I16, 1, 2)},
			reject: []ir.Attribute{ir.DenseI32(1, 2), ir.ArrayAttr{}},
		},
		{
			name:   "type var verifies against bound",
			c:      TypeVar{Name: "T", Bound: Base{Kind: ir.KindFloatType}},
			accept: []ir.Attribute{ir.F16},
			reject: []ir.Attribute{ir.I32},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for _, a := range tt.accept {
				assert.NoError(t, tt.c.Verify(a, NewContext()), "should accept %s", ir.FormatAttr(a))
			}
			for _, a := range tt.reject {
				err := tt.c.Verify(a, NewContext())
				require.Error(t, err, "should reject %s", ir.FormatAttr(a))
				assert.True(t, IsViolation(err))
			}
		})
	}
}

func TestViolationMessage(t *testing.T) {
	err := Eq{Attr: ir.I32}.Verify(ir.I64, NewContext())
	require.Error(t, err)
	assert.Equal(t, "expected i32, got i64", err.Error())

	v := &Violation{}
	require.ErrorAs(t, err, &v)
	assert.Equal(t, "i32", v.Constraint)
	assert.Equal(t, "i64", v.Got)
}

// ============================================================================
// Variables and Context
// ============================================================================

func TestVarBindsOnFirstUse(t *testing.T) {
	v := Var{Name: "T", Inner: Base{Kind: ir.KindIntegerType}}
	ctx := NewContext()

	require.NoError(t, v.Verify(ir.I32, ctx))
	bound, ok := ctx.Var("T")
	require.True(t, ok)
	assert.Equal(t, ir.I32, bound)

	assert.NoError(t, v.Verify(ir.I32, ctx))

	err := v.Verify(ir.I64, ctx)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "variable $T is bound to i32, got i64")
}

func TestVarInnerFailureDoesNotBind(t *testing.T) {
	v := Var{Name: "T", Inner: Base{Kind: ir.KindIntegerType}}
	ctx := NewContext()

	require.Error(t, v.Verify(ir.F32, ctx))
	_, ok := ctx.Var("T")
	assert.False(t, ok)
}

func TestAnyOfDiscardsFailedBranchBindings(t *testing.T) {
	// First alternative binds $T then fails on the tensor element check.
	c := AnyOf{Alts: []AttrConstraint{
		AllOf{Parts: []AttrConstraint{Var{Name: "T", Inner: Any{}}, Eq{Attr: ir.I64}}},
		Eq{Attr: ir.I32},
	}}
	ctx := NewContext()

	require.NoError(t, c.Verify(ir.I32, ctx))
	_, ok := ctx.Var("T")
	assert.False(t, ok, "binding from failed alternative must not leak")

	require.NoError(t, c.Verify(ir.I64, ctx))
	bound, ok := ctx.Var("T")
	require.True(t, ok)
	assert.Equal(t, ir.I64, bound)
}

func TestContextCopyIsIndependent(t *testing.T) {
	ctx := NewContext()
	ctx.SetVar("A", ir.I1)
	cp := ctx.Copy()
	cp.SetVar("B", ir.I8)
	cp.SetRangeVar("R", []ir.Attribute{ir.I16})

	assert.Equal(t, []string{"A"}, ctx.Vars())
	assert.Equal(t, []string{"A", "B", "R*"}, cp.Vars())

	ctx.Update(cp)
	assert.Equal(t, []string{"A", "B", "R*"}, ctx.Vars())
}

// ============================================================================
// Range constraints
// ============================================================================

func TestRangeOf(t *testing.T) {
	r := NewRangeOf(Base{Kind: ir.KindIntegerType})

	assert.NoError(t, r.VerifyRange(nil, NewContext()))
	assert.NoError(t, r.VerifyRange([]ir.Attribute{ir.I1, ir.I64}, NewContext()))

	err := r.VerifyRange([]ir.Attribute{ir.I1, ir.F32}, NewContext())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "element 1")
	assert.True(t, IsViolation(err))

	fixed := RangeOf{Element: Any{}, Length: 2}
	err = fixed.VerifyRange([]ir.Attribute{ir.I1}, NewContext())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "expected 2 elements, got 1")
}

func TestRangeVar(t *testing.T) {
	r := RangeVar{Name: "R", Inner: NewRangeOf(Any{})}
	ctx := NewContext()

	require.NoError(t, r.VerifyRange([]ir.Attribute{ir.I32, ir.F32}, ctx))
	assert.NoError(t, r.VerifyRange([]ir.Attribute{ir.I32, ir.F32}, ctx))

	err := r.VerifyRange([]ir.Attribute{ir.I32}, ctx)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "variable $R* is bound to [i32, f32], got [i32]")
}

func TestAsRange(t *testing.T) {
	r, err := AsRange(Eq{Attr: ir.I32})
	require.NoError(t, err)
	assert.Equal(t, NewRangeOf(Eq{Attr: ir.I32}), r)

	rv := RangeVar{Name: "R", Inner: NewRangeOf(Any{})}
	r, err = AsRange(rv)
	require.NoError(t, err)
	assert.Equal(t, rv, r)

	r, err = AsRange(nil)
	require.NoError(t, err)
	assert.Equal(t, NewRangeOf(Any{}), r)
}

func TestVerifyAttrRejectsRange(t *testing.T) {
	err := VerifyAttr(NewRangeOf(Any{}), ir.I32, NewContext())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "range constraint")

	assert.NoError(t, VerifyAttr(Any{}, ir.I32, NewContext()))
}

// ============================================================================
// Type variables
// ============================================================================

func TestTypeVarsAndMapping(t *testing.T) {
	c := AnyOf{Alts: []AttrConstraint{
		TensorOf{Element: TypeVar{Name: "T"}},
		Var{Name: "X", Inner: TypeVar{Name: "U"}},
		TypeVar{Name: "T"},
	}}
	assert.Equal(t, []string{"T", "U"}, c.TypeVars())

	mapped := c.MapTypeVars(map[string]AttrConstraint{"T": Eq{Attr: ir.F32}})
	assert.Equal(t, []string{"U"}, mapped.TypeVars())
	assert.Equal(t, "tensor_of(f32) | $X:?U | f32", mapped.String())

	r := NewRangeOf(TypeVar{Name: "T", Bound: Any{}})
	mr := r.MapTypeVars(map[string]AttrConstraint{"T": Eq{Attr: ir.Index}})
	assert.Empty(t, mr.TypeVars())
	assert.NoError(t, mr.VerifyRange([]ir.Attribute{ir.Index}, NewContext()))
	assert.Error(t, mr.VerifyRange([]ir.Attribute{ir.I32}, NewContext()))
}

func TestBuiltins(t *testing.T) {
	names := Builtins()
	assert.Contains(t, names, "any")
	assert.Contains(t, names, "index_attr")
	assert.IsIncreasing(t, names)

	c, ok := Named("symbol")
	require.True(t, ok)
	assert.NoError(t, c.Verify(ir.SymbolRefAttr("m"), NewContext()))

	_, ok = Named("i32")
	assert.False(t, ok, "concrete types are literals, not names")
}
