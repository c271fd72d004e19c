package mesh

import (
	"errors"

	"github.com/roach88/irdl/internal/constraint"
	"github.com/roach88/irdl/internal/ir"
	"github.com/roach88/irdl/internal/opdef"
)

// Kind names.
const (
	KindAllGather = "mesh.all_gather"
	KindAllReduce = "mesh.all_reduce"
	KindAllSlice  = "mesh.all_slice"
	KindAllToAll  = "mesh.all_to_all"
	KindBroadcast = "mesh.broadcast"
	KindGather    = "mesh.gather"
	KindMesh      = "mesh.mesh"
	KindSharding  = "mesh.sharding"
)

// ShardingType is the type of a mesh.sharding result.
var ShardingType = ir.OpaqueAttr{Dialect: "mesh", Name: "sharding"}

// Reduction kinds accepted by all_reduce and sharding.partial_type.
var ReductionKinds = []string{"sum", "max", "min", "product", "average"}

var (
	tensor    = constraint.Base{Kind: ir.KindTensorType}
	symbol    = constraint.Base{Kind: ir.KindSymbolRef}
	str       = constraint.Base{Kind: ir.KindString}
	array     = constraint.Base{Kind: ir.KindArray}
	indexAttr = constraint.IntegerAttrOf{Type: constraint.Eq{Attr: ir.Index}}
	denseI16  = constraint.DenseArrayOf{Element: ir.I16}
	denseI64  = constraint.DenseArrayOf{Element: ir.I64}
	reduction = func() constraint.AnyOf {
		var alts []constraint.AttrConstraint
		for _, k := range ReductionKinds {
			alts = append(alts, constraint.Eq{Attr: ir.StringAttr(k)})
		}
		return constraint.AnyOf{Alts: alts}
	}()
)

const (
	errMeshRank       = "rank of mesh is expected to be a positive integer"
	errHaloAndOffsets = "cannot use both halo_sizes and sharded_dims_offsets"
)

// collective is the base of every communication op: one tensor in, one
// tensor out, over the axes of a named mesh.
var collective = &opdef.Decl{
	Name:     "collective",
	Abstract: true,
	Fields: []opdef.Field{
		opdef.Operand("input", tensor),
		opdef.Result("result", tensor),
		opdef.Prop("mesh", symbol),
		opdef.Prop("mesh_axes", denseI16).WithDefault(ir.NewDenseArray(ir.I16)),
		opdef.Traits(opdef.Pure{}),
		opdef.Options(opdef.ParsePropInAttrDict{}),
	},
}

// rooted collectives take their root as static indices plus dynamic index
// operands.
var rooted = &opdef.Decl{
	Name:     "rooted",
	Abstract: true,
	Extends:  []*opdef.Decl{collective},
	Fields: []opdef.Field{
		opdef.Operand("input", tensor),
		opdef.VarOperand("root_dynamic", constraint.Eq{Attr: ir.Index}),
		opdef.Prop("root", denseI64),
	},
}

var allGather = &opdef.Decl{
	Name:           KindAllGather,
	Extends:        []*opdef.Decl{collective},
	Fields:         []opdef.Field{opdef.Prop("gather_axis", indexAttr)},
	AssemblyFormat: "$input `on` $mesh `gather_axis` `=` $gather_axis attr-dict `:` type($input) `->` type($result)",
}

var allReduce = &opdef.Decl{
	Name:    KindAllReduce,
	Extends: []*opdef.Decl{collective},
	Fields: []opdef.Field{
		opdef.Prop("reduction", reduction).WithDefault(ir.StringAttr("sum")),
	},
	AssemblyFormat: "$input `on` $mesh attr-dict `:` type($input) `->` type($result)",
}

var allSlice = &opdef.Decl{
	Name:           KindAllSlice,
	Extends:        []*opdef.Decl{collective},
	Fields:         []opdef.Field{opdef.Prop("slice_axis", indexAttr)},
	AssemblyFormat: "$input `on` $mesh `slice_axis` `=` $slice_axis attr-dict `:` type($input) `->` type($result)",
}

var allToAll = &opdef.Decl{
	Name:    KindAllToAll,
	Extends: []*opdef.Decl{collective},
	Fields: []opdef.Field{
		opdef.Prop("split_axis", indexAttr),
		opdef.Prop("concat_axis", indexAttr),
	},
	AssemblyFormat: "$input `on` $mesh `split_axis` `=` $split_axis `concat_axis` `=` $concat_axis attr-dict `:` type($input) `->` type($result)",
}

var broadcast = &opdef.Decl{
	Name:           KindBroadcast,
	Extends:        []*opdef.Decl{rooted},
	AssemblyFormat: "$input `on` $mesh `root` `=` $root `[` $root_dynamic `]` attr-dict `:` type($input) `[` type($root_dynamic) `]` `->` type($result)",
}

var gather = &opdef.Decl{
	Name:           KindGather,
	Extends:        []*opdef.Decl{rooted},
	Fields:         []opdef.Field{opdef.Prop("gather_axis", indexAttr)},
	AssemblyFormat: "$input `on` $mesh `gather_axis` `=` $gather_axis `root` `=` $root `[` $root_dynamic `]` attr-dict `:` type($input) `[` type($root_dynamic) `]` `->` type($result)",
}

var meshDecl = &opdef.Decl{
	Name: KindMesh,
	Fields: []opdef.Field{
		opdef.Prop("sym_name", str),
		opdef.Prop("shape", denseI64),
		opdef.CustomVerify(verifyMesh),
	},
	AssemblyFormat: "$sym_name `(` `shape` `=` $shape `)` attr-dict",
}

var sharding = &opdef.Decl{
	Name: KindSharding,
	Fields: []opdef.Field{
		opdef.VarOperand("dynamic_sharded_dims_offsets", constraint.Eq{Attr: ir.I64}),
		opdef.VarOperand("dynamic_halo_sizes", constraint.Eq{Attr: ir.I64}),
		opdef.Result("result", constraint.Eq{Attr: ShardingType}),
		opdef.Prop("mesh", symbol),
		opdef.Prop("split_axes", array),
		opdef.OptProp("partial_axes", denseI16),
		opdef.OptProp("partial_type", reduction),
		opdef.Prop("static_sharded_dims_offsets", denseI64).WithDefault(ir.NewDenseArray(ir.I64)),
		opdef.Prop("static_halo_sizes", denseI64).WithDefault(ir.NewDenseArray(ir.I64)),
		opdef.Traits(opdef.Pure{}),
		opdef.Options(opdef.AttrSizedSegments{Construct: opdef.OperandConstruct, AsProperty: true}),
		opdef.CustomVerify(verifySharding),
	},
}

// Decls returns the concrete declarations in registration order.
func Decls() []*opdef.Decl {
	return []*opdef.Decl{allGather, allReduce, allSlice, allToAll, broadcast, gather, meshDecl, sharding}
}

func verifyMesh(op *ir.Operation) error {
	shape, _ := op.Properties["shape"].(ir.DenseArray)
	if len(shape.Values) == 0 {
		return errors.New(errMeshRank)
	}
	return nil
}

// verifySharding runs after the schema checks, so the segment sizes are
// known to be well formed.
func verifySharding(op *ir.Operation) error {
	seg, _ := op.Properties[opdef.SegmentSizesName(opdef.OperandConstruct)].(ir.DenseArray)
	dynamic := seg.Ints()
	offsets := denseLen(op, "static_sharded_dims_offsets") > 0 || (len(dynamic) > 0 && dynamic[0] > 0)
	halos := denseLen(op, "static_halo_sizes") > 0 || (len(dynamic) > 1 && dynamic[1] > 0)
	if offsets && halos {
		return errors.New(errHaloAndOffsets)
	}
	return nil
}

func denseLen(op *ir.Operation, prop string) int {
	d, _ := op.Properties[prop].(ir.DenseArray)
	return len(d.Values)
}
