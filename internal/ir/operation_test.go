package ir

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewOperationCopiesState(t *testing.T) {
	blk := NewBlock(I32, F32)
	attrs := map[string]Attribute{"a": UnitAttr{}}
	operands := []Value{blk.Arg(0), blk.Arg(1)}

	op := NewOperation("test.op", OperationState{
		Operands:    operands,
		ResultTypes: []Attribute{I64},
		Attributes:  attrs,
	})

	attrs["b"] = UnitAttr{}
	operands[0] = blk.Arg(1)

	assert.Len(t, op.Attributes, 1, "attribute map must be copied")
	assert.Same(t, blk.Arg(0), op.Operand(0), "operand slice must be copied")
	assert.NotNil(t, op.Properties, "nil property map becomes empty")
	assert.Equal(t, []Attribute{I32, F32}, op.OperandTypes())
	assert.Equal(t, []Attribute{I64}, op.ResultTypes())
}

func TestOperationResults(t *testing.T) {
	op := NewOperation("test.op", OperationState{ResultTypes: []Attribute{I32, Index}})

	require.Equal(t, 2, op.NumResults())
	r := op.Result(1)
	assert.Same(t, op, r.Owner())
	assert.Equal(t, 1, r.Index())
	assert.Equal(t, "test.op#1", r.String())

	r.SetType(I64)
	assert.Equal(t, []Attribute{I32, I64}, op.ResultTypes())

	v, err := SingleResult(op)
	assert.Error(t, err)
	assert.Nil(t, v)

	single := NewOperation("test.one", OperationState{ResultTypes: []Attribute{I1}})
	v, err = SingleResult(single)
	require.NoError(t, err)
	assert.Equal(t, I1, v.Type())
}

func TestOperationSetOperand(t *testing.T) {
	blk := NewBlock(I32, I64)
	op := NewOperation("test.op", OperationState{Operands: []Value{blk.Arg(0)}})

	require.NoError(t, op.SetOperand(0, blk.Arg(1)))
	assert.Equal(t, []Attribute{I64}, op.OperandTypes())

	err := op.SetOperand(1, blk.Arg(0))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "out of range")

	op.SetOperands([]Value{blk.Arg(0), blk.Arg(1), blk.Arg(0)})
	assert.Equal(t, 3, op.NumOperands())
}

func TestOperationRegionsAndSuccessors(t *testing.T) {
	body := NewBlock(Index)
	r := NewRegion(body)
	op := NewOperation("test.loop", OperationState{Regions: []*Region{r}})

	assert.Same(t, op, r.Parent())
	assert.Same(t, r, body.Parent())
	assert.Same(t, body, r.Entry())
	assert.Nil(t, NewRegion().Entry())

	inner := NewOperation("test.yield", OperationState{})
	body.AddOp(inner)
	assert.Same(t, body, inner.Parent())
	assert.Len(t, body.Ops(), 1)

	dest := NewBlock()
	op.SetSuccessors([]*Block{dest, dest})
	assert.Equal(t, 2, op.NumSuccessors())
	assert.Equal(t, 1, op.NumRegions())

	op.AddRegion(NewRegion())
	assert.Equal(t, 2, op.NumRegions())
}

func TestBlockArgs(t *testing.T) {
	b := NewBlock()
	a := b.AddArg(F16)

	assert.Same(t, b, a.Owner())
	assert.Equal(t, 0, a.Index())
	assert.Equal(t, "arg0", a.String())
	assert.Equal(t, []Attribute{F16}, b.ArgTypes())
}
