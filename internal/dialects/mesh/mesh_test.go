package mesh

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/irdl/internal/asmformat"
	"github.com/roach88/irdl/internal/ir"
	"github.com/roach88/irdl/internal/module"
	"github.com/roach88/irdl/internal/opdef"
	"github.com/roach88/irdl/internal/testutil"
)

var tensor4 = ir.NewTensorType(ir.F32, 4)

func newDialect(t *testing.T) (*Dialect, *opdef.Registry) {
	t.Helper()
	reg := testutil.QuietRegistry()
	d, err := Register(reg)
	require.NoError(t, err)
	return d, reg
}

func requireCode(t *testing.T, err error, code string) {
	t.Helper()
	require.Error(t, err)
	require.Equal(t, code, opdef.ErrorCode(err), "error: %v", err)
}

// ============================================================================
// Registration
// ============================================================================

func TestRegister(t *testing.T) {
	_, reg := newDialect(t)
	assert.Equal(t, []string{
		KindAllGather, KindAllReduce, KindAllSlice, KindAllToAll,
		KindBroadcast, KindGather, KindMesh, KindSharding,
	}, reg.Names())
}

func TestRegister_Twice(t *testing.T) {
	_, reg := newDialect(t)
	_, err := Register(reg)
	requireCode(t, err, opdef.ErrDuplicateKind)
	assert.Contains(t, err.Error(), "dialect mesh")
}

func TestDecls_MatchCUEDialect(t *testing.T) {
	_, goReg := newDialect(t)
	cueReg := testutil.LoadDialects(t, "mesh")
	require.Equal(t, cueReg.Names(), goReg.Names())

	for _, name := range goReg.Names() {
		t.Run(name, func(t *testing.T) {
			goSchema, _ := goReg.Lookup(name)
			cueSchema, _ := cueReg.Lookup(name)
			want := cueSchema.Describe()
			got := goSchema.Describe()

			// Hand-written verifiers exist only on the Go side.
			switch name {
			case KindMesh, KindSharding:
				assert.True(t, got.CustomVerify)
			default:
				assert.False(t, got.CustomVerify)
			}
			got.CustomVerify = false
			assert.Equal(t, want, got)
		})
	}
}

func TestDecls_RunModule(t *testing.T) {
	f, err := module.Load(testutil.Testdata("modules", "mesh.yaml"))
	require.NoError(t, err)

	_, goReg := newDialect(t)
	goRep, err := module.Run(goReg, f)
	require.NoError(t, err)
	cueRep, err := module.Run(testutil.LoadDialects(t, "mesh"), f)
	require.NoError(t, err)

	require.Len(t, goRep.Outcomes, len(cueRep.Outcomes))
	for i, o := range goRep.Outcomes {
		want := cueRep.Outcomes[i]
		assert.Equal(t, want.Stage, o.Stage, "ops[%d]", i)
		assert.Equal(t, want.Code(), o.Code(), "ops[%d]", i)
		assert.Equal(t, want.Fingerprint, o.Fingerprint, "ops[%d]", i)
	}
}

// ============================================================================
// Custom verifiers
// ============================================================================

func TestMesh(t *testing.T) {
	d, _ := newDialect(t)

	m, err := d.NewMesh("grid", 2, 4)
	require.NoError(t, err)
	name, err := m.SymName()
	require.NoError(t, err)
	assert.Equal(t, "grid", name)
	rank, err := m.Rank()
	require.NoError(t, err)
	assert.Equal(t, 2, rank)

	_, err = d.NewMesh("empty")
	requireCode(t, err, opdef.ErrCustomVerify)
	assert.Contains(t, err.Error(), errMeshRank)
}

func TestSharding_Verify(t *testing.T) {
	d, _ := newDialect(t)
	dyn := ir.NewBlock(ir.I64, ir.I64)

	tests := []struct {
		name string
		spec ShardingSpec
		ok   bool
	}{
		{
			name: "split only",
			spec: ShardingSpec{Mesh: "grid", SplitAxes: [][]int64{{0}, {}}},
			ok:   true,
		},
		{
			name: "static offsets",
			spec: ShardingSpec{Mesh: "grid", ShardedDimsOffsets: []int64{0, 2, 4}},
			ok:   true,
		},
		{
			name: "static halos",
			spec: ShardingSpec{Mesh: "grid", HaloSizes: []int64{1, 1}},
			ok:   true,
		},
		{
			name: "dynamic halos",
			spec: ShardingSpec{Mesh: "grid", DynamicHaloSizes: []ir.Value{dyn.Arg(0)}},
			ok:   true,
		},
		{
			name: "static offsets and static halos",
			spec: ShardingSpec{Mesh: "grid", ShardedDimsOffsets: []int64{0, 2}, HaloSizes: []int64{1, 1}},
		},
		{
			name: "static offsets and dynamic halos",
			spec: ShardingSpec{Mesh: "grid", ShardedDimsOffsets: []int64{0, 2}, DynamicHaloSizes: []ir.Value{dyn.Arg(0)}},
		},
		{
			name: "dynamic offsets and static halos",
			spec: ShardingSpec{Mesh: "grid", DynamicOffsets: []ir.Value{dyn.Arg(1)}, HaloSizes: []int64{1}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := d.NewSharding(tt.spec)
			if tt.ok {
				require.NoError(t, err)
				return
			}
			requireCode(t, err, opdef.ErrCustomVerify)
			assert.Contains(t, err.Error(), errHaloAndOffsets)
		})
	}
}

func TestSharding_Accessors(t *testing.T) {
	d, _ := newDialect(t)
	dyn := ir.NewBlock(ir.I64)

	s, err := d.NewSharding(ShardingSpec{
		Mesh:           "grid",
		SplitAxes:      [][]int64{{0, 1}, {}},
		PartialType:    "max",
		PartialAxes:    []int64{2},
		DynamicOffsets: []ir.Value{dyn.Arg(0)},
	})
	require.NoError(t, err)

	mesh, err := s.Mesh()
	require.NoError(t, err)
	assert.Equal(t, "grid", mesh)

	split, err := s.SplitAxes()
	require.NoError(t, err)
	assert.Equal(t, [][]int64{{0, 1}, {}}, split)

	kind, axes, ok, err := s.Partial()
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "max", kind)
	assert.Equal(t, []int64{2}, axes)

	static, dynamic, err := s.ShardedDimsOffsets()
	require.NoError(t, err)
	assert.Empty(t, static)
	assert.Equal(t, []ir.Value{dyn.Arg(0)}, dynamic)

	static, dynamic, err = s.HaloSizes()
	require.NoError(t, err)
	assert.Empty(t, static)
	assert.Empty(t, dynamic)

	res, err := s.Result()
	require.NoError(t, err)
	assert.True(t, ir.AttrEqual(ShardingType, res.Type()))
}

func TestSharding_NoPartial(t *testing.T) {
	d, _ := newDialect(t)
	s, err := d.NewSharding(ShardingSpec{Mesh: "grid"})
	require.NoError(t, err)

	_, _, ok, err := s.Partial()
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestSharding_BadPartialType(t *testing.T) {
	d, _ := newDialect(t)
	_, err := d.NewSharding(ShardingSpec{Mesh: "grid", PartialType: "mean"})
	requireCode(t, err, opdef.ErrAttrConstraint)
}

// ============================================================================
// Typed wrappers
// ============================================================================

func TestAllGather_Parsed(t *testing.T) {
	d, reg := newDialect(t)
	x := ir.NewBlock(tensor4).Arg(0)
	sc := asmformat.NewScope()
	require.NoError(t, sc.Define("x", x))

	schema, _ := reg.Lookup(KindAllGather)
	op, err := schema.Parse("%x on @grid gather_axis = 1 : index : tensor<4xf32> -> tensor<16xf32>", sc)
	require.NoError(t, err)

	g, err := d.AllGather(op)
	require.NoError(t, err)
	assert.Same(t, op, g.Op())

	in, err := g.Input()
	require.NoError(t, err)
	assert.Equal(t, ir.Value(x), in)

	mesh, err := g.Mesh()
	require.NoError(t, err)
	assert.Equal(t, "grid", mesh)

	axis, err := g.GatherAxis()
	require.NoError(t, err)
	assert.Equal(t, int64(1), axis)

	axes, err := g.MeshAxes()
	require.NoError(t, err)
	assert.Empty(t, axes, "default applied")

	res, err := g.Result()
	require.NoError(t, err)
	assert.Equal(t, ir.NewTensorType(ir.F32, 16), res.Type())
}

func TestNewAllGather(t *testing.T) {
	d, _ := newDialect(t)
	x := ir.NewBlock(tensor4).Arg(0)

	g, err := d.NewAllGather(x, ir.NewTensorType(ir.F32, 8), "grid", 0)
	require.NoError(t, err)
	axis, err := g.GatherAxis()
	require.NoError(t, err)
	assert.Equal(t, int64(0), axis)

	_, err = d.NewAllGather(x, ir.F32, "grid", 0)
	requireCode(t, err, opdef.ErrSlotConstraint)
}

func TestAllReduce_Default(t *testing.T) {
	d, reg := newDialect(t)
	x := ir.NewBlock(tensor4).Arg(0)

	op, err := reg.Create(KindAllReduce, opdef.CreateInput{
		Operands:    []ir.Value{x},
		ResultTypes: []ir.Attribute{tensor4},
		Named:       map[string]ir.Attribute{"mesh": ir.SymbolRefAttr("grid")},
	})
	require.NoError(t, err)

	r, err := d.AllReduce(op)
	require.NoError(t, err)
	kind, err := r.Reduction()
	require.NoError(t, err)
	assert.Equal(t, "sum", kind)
}

func TestAllToAll(t *testing.T) {
	d, reg := newDialect(t)
	x := ir.NewBlock(tensor4).Arg(0)

	op, err := reg.Create(KindAllToAll, opdef.CreateInput{
		Operands:    []ir.Value{x},
		ResultTypes: []ir.Attribute{tensor4},
		Named: map[string]ir.Attribute{
			"mesh":        ir.SymbolRefAttr("grid"),
			"split_axis":  ir.NewIntegerAttr(0, ir.Index),
			"concat_axis": ir.NewIntegerAttr(1, ir.Index),
		},
	})
	require.NoError(t, err)

	a, err := d.AllToAll(op)
	require.NoError(t, err)
	split, err := a.SplitAxis()
	require.NoError(t, err)
	concat, err := a.ConcatAxis()
	require.NoError(t, err)
	assert.Equal(t, []int64{0, 1}, []int64{split, concat})
}

func TestBroadcast(t *testing.T) {
	d, _ := newDialect(t)
	blk := ir.NewBlock(tensor4, ir.Index, ir.Index)

	b, err := d.NewBroadcast(blk.Arg(0), "grid", []int64{0}, blk.Arg(1), blk.Arg(2))
	require.NoError(t, err)

	root, err := b.Root()
	require.NoError(t, err)
	assert.Equal(t, []int64{0}, root)

	dyn, err := b.RootDynamic()
	require.NoError(t, err)
	assert.Equal(t, []ir.Value{blk.Arg(1), blk.Arg(2)}, dyn)

	res, err := b.Result()
	require.NoError(t, err)
	assert.Equal(t, ir.Attribute(tensor4), res.Type())

	_, err = d.NewBroadcast(blk.Arg(0), "grid", []int64{0}, blk.Arg(0))
	requireCode(t, err, opdef.ErrSlotConstraint)
}

func TestWrappers_Reject(t *testing.T) {
	d, reg := newDialect(t)
	x := ir.NewBlock(tensor4).Arg(0)

	t.Run("wrong kind", func(t *testing.T) {
		m, err := d.NewMesh("grid", 2)
		require.NoError(t, err)
		_, err = d.AllGather(m.Op())
		require.Error(t, err)
		assert.Equal(t, "expected mesh.all_gather, got mesh.mesh", err.Error())
	})

	t.Run("unverified instance", func(t *testing.T) {
		op, err := reg.Create(KindAllSlice, opdef.CreateInput{
			Operands:    []ir.Value{x},
			ResultTypes: []ir.Attribute{tensor4},
			Named:       map[string]ir.Attribute{"mesh": ir.SymbolRefAttr("grid")},
		})
		require.NoError(t, err)
		_, err = d.AllSlice(op)
		requireCode(t, err, opdef.ErrMissingAttr)
	})

	t.Run("unregistered kind", func(t *testing.T) {
		empty := &Dialect{reg: testutil.QuietRegistry()}
		_, err := empty.Gather(ir.NewOperation(KindGather, ir.OperationState{}))
		assert.ErrorIs(t, err, opdef.ErrUnknownOp)
	})
}
