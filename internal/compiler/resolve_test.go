package compiler

import (
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/irdl/internal/asmformat"
	"github.com/roach88/irdl/internal/ir"
	"github.com/roach88/irdl/internal/opdef"
)

func quietRegistry() *opdef.Registry {
	return opdef.NewRegistry(
		opdef.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
		opdef.WithFormatCompiler(asmformat.Compiler{}),
	)
}

func resolveSource(t *testing.T, src string) *Dialect {
	t.Helper()
	spec := compileSource(t, src)
	require.Empty(t, Validate(spec))
	d, err := Resolve(spec)
	require.NoError(t, err)
	return d
}

func TestResolve_Mesh(t *testing.T) {
	d := resolveSource(t, meshSource)
	require.Len(t, d.Decls, 2)
	assert.Equal(t, "mesh.all_gather", d.Decls[0].Name)
	assert.Equal(t, "mesh.shift", d.Decls[1].Name)

	reg := quietRegistry()
	require.NoError(t, d.Register(reg))
	assert.Equal(t, []string{"mesh.all_gather", "mesh.shift"}, reg.Names())

	gather, ok := reg.Lookup("mesh.all_gather")
	require.True(t, ok)
	desc := gather.Describe()
	assert.Equal(t, []string{"pure"}, desc.Traits)
	require.Len(t, desc.Properties, 3)

	x := ir.NewBlock(ir.NewTensorType(ir.F32, 4)).Arg(0)
	sc := asmformat.NewScope()
	require.NoError(t, sc.Define("x", x))
	op, err := gather.Parse("%x on @grid {gather_axis = 0 : index} : tensor<4xf32> -> tensor<8xf32>", sc)
	require.NoError(t, err)
	require.NoError(t, reg.Verify(op))
	assert.Equal(t, ir.NewDenseArray(ir.I16), op.Properties["mesh_axes"], "inherited default applied")
}

func TestResolve_SegmentsAsProperty(t *testing.T) {
	d := resolveSource(t, meshSource)
	reg := quietRegistry()
	require.NoError(t, d.Register(reg))

	shift, _ := reg.Lookup("mesh.shift")
	in := ir.NewBlock(ir.NewTensorType(ir.F32, 4), ir.Index, ir.Index)
	op, err := shift.Build(opdef.BuildInput{
		Operands:    []opdef.Arg[ir.Value]{opdef.One[ir.Value](in.Arg(0)), opdef.Many[ir.Value](in.Arg(1), in.Arg(2))},
		ResultTypes: []opdef.Arg[ir.Attribute]{opdef.One[ir.Attribute](ir.NewTensorType(ir.F32, 4))},
	})
	require.NoError(t, err)
	assert.Equal(t, ir.DenseI32(1, 2), op.Properties["operandSegmentSizes"])
	require.NoError(t, reg.Verify(op))

	acc, ok := shift.AttrAccessor("note")
	require.True(t, ok)
	assert.Equal(t, "shiftNote", acc.Def().Name)
}

func TestResolve_GenericsAndDiamond(t *testing.T) {
	d := resolveSource(t, `
		dialect: "arith"
		ops: {
			typed: {abstract: true, params: ["T"], results: [{name: "out", constraint: "?T"}]}
			lhs: {abstract: true, extends: ["typed"], operands: [{name: "lhs", constraint: "?T"}]}
			rhs: {abstract: true, extends: ["typed"], operands: [{name: "rhs", constraint: "?T"}]}
			addi: {extends: ["lhs", "rhs"], bind: T: "integer", traits: ["same_operands_and_result_type"]}
		}
	`)
	require.Len(t, d.Decls, 1)
	addi := d.Decls[0]
	require.Len(t, addi.Extends, 2)
	assert.Same(t, addi.Extends[0].Extends[0], addi.Extends[1].Extends[0], "shared ancestor resolves once")

	s, err := opdef.Build(addi)
	require.NoError(t, err)
	var names []string
	for _, sl := range s.Operands {
		names = append(names, sl.Name)
	}
	assert.Equal(t, []string{"lhs", "rhs"}, names)

	blk := ir.NewBlock(ir.I32, ir.I32, ir.F32)
	good := ir.NewOperation("arith.addi", ir.OperationState{
		Operands:    []ir.Value{blk.Arg(0), blk.Arg(1)},
		ResultTypes: []ir.Attribute{ir.I32},
	})
	require.NoError(t, s.Verify(good))

	bad := ir.NewOperation("arith.addi", ir.OperationState{
		Operands:    []ir.Value{blk.Arg(0), blk.Arg(2)},
		ResultTypes: []ir.Attribute{ir.I32},
	})
	assert.Equal(t, opdef.ErrSlotConstraint, opdef.ErrorCode(s.Verify(bad)))
}

func TestResolve_RegionsAndSuccessors(t *testing.T) {
	d := resolveSource(t, `
		dialect: "cf"
		ops: loop: {
			regions: [{name: "body", single_block: true, entry_args: "range(index, 1)"}]
			successors: [{name: "exit", kind: "variadic"}]
			attributes: flag: {constraint: "unit", optional: true}
		}
	`)
	s, err := opdef.Build(d.Decls[0])
	require.NoError(t, err)
	require.Len(t, s.Regions, 1)
	assert.True(t, s.Regions[0].SingleBlock)
	require.Len(t, s.Successors, 1)
	assert.Equal(t, opdef.Variadic, s.Successors[0].Cardinality)
	assert.True(t, s.Attributes["flag"].Optional)
}

func TestDialect_RegisterStopsOnDefinitionError(t *testing.T) {
	d := resolveSource(t, `
		dialect: "bad"
		ops: two: {
			operands: [{name: "a", kind: "variadic"}, {name: "b", kind: "variadic"}]
		}
	`)
	err := d.Register(quietRegistry())
	require.Error(t, err)
	assert.Equal(t, opdef.ErrMultipleVariadic, opdef.ErrorCode(err))
	assert.Contains(t, err.Error(), "dialect bad")
}
