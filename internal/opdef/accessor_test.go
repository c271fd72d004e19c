package opdef

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/irdl/internal/ir"
)

func TestSlotAccessor_Precomputed(t *testing.T) {
	s := mustBuild(t, &Decl{Name: "test.acc", Fields: []Field{
		Operand("a", anyC),
		VarOperand("b", anyC),
		Operand("c", anyC),
		VarOperand("d", anyC),
		Options(SameVariadicSize{Construct: OperandConstruct}),
	}})

	c, ok := s.SlotAccessor("c")
	require.True(t, ok)
	assert.Equal(t, OperandConstruct, c.Construct)
	assert.Equal(t, 2, c.Index)
	assert.Equal(t, 1, c.PrecedingVariadic)

	d, ok := s.SlotAccessor("d")
	require.True(t, ok)
	assert.Equal(t, 3, d.Index)
	assert.Equal(t, 1, d.PrecedingVariadic)

	// a, b b, c, d d
	op := withOperands(s, 6, nil)
	sp, err := c.Span(op)
	require.NoError(t, err)
	assert.Equal(t, Span{Start: 3, Len: 1}, sp)
	sp, err = d.Span(op)
	require.NoError(t, err)
	assert.Equal(t, Span{Start: 4, Len: 2}, sp)

	_, ok = s.SlotAccessor("missing")
	assert.False(t, ok)
}

func TestView_WrongConstructOrName(t *testing.T) {
	s := mustBuild(t, &Decl{Name: "test.view", Fields: []Field{
		Operand("x", anyC),
		VarResult("ys", anyC),
	}})
	op := ir.NewOperation(s.Name, ir.OperationState{
		Operands:    values(ir.I32),
		ResultTypes: repeat(ir.I32, 2),
	})
	v := View{Schema: s, Op: op}

	_, err := v.Result("x")
	assert.ErrorContains(t, err, "operand slot read as a result")

	_, err = v.Result("ys")
	assert.ErrorContains(t, err, "variadic result slot holds a sequence")

	_, err = v.Operand("nope")
	assert.ErrorContains(t, err, `test.view has no slot "nope"`)

	ys, err := v.VarResult("ys")
	require.NoError(t, err)
	assert.Equal(t, op.Results(), ys)

	// Single slots are readable as sequences too.
	xs, err := v.VarOperand("x")
	require.NoError(t, err)
	assert.Len(t, xs, 1)
}

func TestView_RegionsAndSuccessors(t *testing.T) {
	s := mustBuild(t, &Decl{Name: "test.cf", Fields: []Field{
		OptRegion("else"),
		Successor("next"),
	}})
	r := ir.NewRegion(ir.NewBlock())
	next := ir.NewBlock()
	op := ir.NewOperation(s.Name, ir.OperationState{Regions: []*ir.Region{r}, Successors: []*ir.Block{next}})
	v := View{Schema: s, Op: op}

	got, err := v.Region("else")
	require.NoError(t, err)
	assert.Same(t, r, got)
	assert.Same(t, op, got.Parent())

	succ, err := v.Successor("next")
	require.NoError(t, err)
	assert.Same(t, next, succ)

	empty := ir.NewOperation(s.Name, ir.OperationState{Successors: []*ir.Block{next}})
	got, err = View{Schema: s, Op: empty}.Region("else")
	require.NoError(t, err)
	assert.Nil(t, got)
}

// ============================================================================
// Attribute accessors
// ============================================================================

func TestAttrAccessor_GetAndSet(t *testing.T) {
	s := mustBuild(t, &Decl{Name: "test.attrs", Fields: []Field{
		Prop("mode", anyC).WithDefault(ir.StringAttr("fast")),
		OptProp("level", anyC).WithDefault(ir.NewIntegerAttr(1, ir.I64)),
		OptAttr("note", anyC),
		Attr("tag", anyC),
	}})
	op := ir.NewOperation(s.Name, ir.OperationState{})
	v := View{Schema: s, Op: op}

	t.Run("optional falls back to default", func(t *testing.T) {
		got, err := v.Attr("level")
		require.NoError(t, err)
		assert.Equal(t, ir.NewIntegerAttr(1, ir.I64), got)
		assert.NotContains(t, op.Properties, "level")
	})

	t.Run("optional without default is nil", func(t *testing.T) {
		got, err := v.Attr("note")
		require.NoError(t, err)
		assert.Nil(t, got)
	})

	t.Run("required absent is an error", func(t *testing.T) {
		_, err := v.Attr("tag")
		requireCode(t, err, ErrMissingAttr)
	})

	t.Run("set stores in the declared container", func(t *testing.T) {
		require.NoError(t, v.SetAttr("level", ir.NewIntegerAttr(5, ir.I64)))
		assert.Equal(t, ir.NewIntegerAttr(5, ir.I64), op.Properties["level"])
		require.NoError(t, v.SetAttr("tag", ir.UnitAttr{}))
		assert.Equal(t, ir.UnitAttr{}, op.Attributes["tag"])
	})

	t.Run("set nil removes optional", func(t *testing.T) {
		require.NoError(t, v.SetAttr("level", nil))
		assert.NotContains(t, op.Properties, "level")
		got, err := v.Attr("level")
		require.NoError(t, err)
		assert.Equal(t, ir.NewIntegerAttr(1, ir.I64), got)
	})

	t.Run("set nil on required is an error", func(t *testing.T) {
		err := v.SetAttr("tag", nil)
		assert.ErrorContains(t, err, "cannot remove required attribute 'tag'")
		assert.Contains(t, op.Attributes, "tag")
	})

	t.Run("unknown name", func(t *testing.T) {
		_, err := v.Attr("nope")
		assert.ErrorContains(t, err, "no attribute or property")
	})
}
