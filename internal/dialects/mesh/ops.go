package mesh

import (
	"fmt"

	"github.com/roach88/irdl/internal/ir"
	"github.com/roach88/irdl/internal/opdef"
)

// Dialect gives typed access to mesh instances checked against one
// registry.
type Dialect struct {
	reg *opdef.Registry
}

// Register adds every mesh kind to reg, stopping at the first definition
// error.
func Register(reg *opdef.Registry) (*Dialect, error) {
	for _, decl := range Decls() {
		if _, err := reg.Register(decl); err != nil {
			return nil, fmt.Errorf("dialect mesh: %w", err)
		}
	}
	return &Dialect{reg: reg}, nil
}

// view verifies op as an instance of kind and binds it to its schema.
func (d *Dialect) view(op *ir.Operation, kind string) (opdef.View, error) {
	if op.Name != kind {
		return opdef.View{}, fmt.Errorf("expected %s, got %s", kind, op.Name)
	}
	s, ok := d.reg.Lookup(kind)
	if !ok {
		return opdef.View{}, fmt.Errorf("%w: %s", opdef.ErrUnknownOp, kind)
	}
	if err := s.Verify(op); err != nil {
		return opdef.View{}, err
	}
	return opdef.View{Schema: s, Op: op}, nil
}

func (d *Dialect) build(kind string, in opdef.BuildInput) (opdef.View, error) {
	s, ok := d.reg.Lookup(kind)
	if !ok {
		return opdef.View{}, fmt.Errorf("%w: %s", opdef.ErrUnknownOp, kind)
	}
	op, err := s.Build(in)
	if err != nil {
		return opdef.View{}, err
	}
	return d.view(op, kind)
}

func (d *Dialect) collective(op *ir.Operation, kind string) (Collective, error) {
	v, err := d.view(op, kind)
	return Collective{v: v}, err
}

// AllGather wraps a verified mesh.all_gather.
func (d *Dialect) AllGather(op *ir.Operation) (AllGather, error) {
	c, err := d.collective(op, KindAllGather)
	return AllGather{c}, err
}

// AllReduce wraps a verified mesh.all_reduce.
func (d *Dialect) AllReduce(op *ir.Operation) (AllReduce, error) {
	c, err := d.collective(op, KindAllReduce)
	return AllReduce{c}, err
}

// AllSlice wraps a verified mesh.all_slice.
func (d *Dialect) AllSlice(op *ir.Operation) (AllSlice, error) {
	c, err := d.collective(op, KindAllSlice)
	return AllSlice{c}, err
}

// AllToAll wraps a verified mesh.all_to_all.
func (d *Dialect) AllToAll(op *ir.Operation) (AllToAll, error) {
	c, err := d.collective(op, KindAllToAll)
	return AllToAll{c}, err
}

// Broadcast wraps a verified mesh.broadcast.
func (d *Dialect) Broadcast(op *ir.Operation) (Broadcast, error) {
	c, err := d.collective(op, KindBroadcast)
	return Broadcast{Rooted{c}}, err
}

// Gather wraps a verified mesh.gather.
func (d *Dialect) Gather(op *ir.Operation) (Gather, error) {
	c, err := d.collective(op, KindGather)
	return Gather{Rooted{c}}, err
}

// Mesh wraps a verified mesh.mesh.
func (d *Dialect) Mesh(op *ir.Operation) (Mesh, error) {
	v, err := d.view(op, KindMesh)
	return Mesh{v: v}, err
}

// Sharding wraps a verified mesh.sharding.
func (d *Dialect) Sharding(op *ir.Operation) (Sharding, error) {
	v, err := d.view(op, KindSharding)
	return Sharding{v: v}, err
}

// NewMesh builds and verifies a mesh.mesh named name.
func (d *Dialect) NewMesh(name string, shape ...int64) (Mesh, error) {
	v, err := d.build(KindMesh, opdef.BuildInput{
		Properties: map[string]ir.Attribute{
			"sym_name": ir.StringAttr(name),
			"shape":    ir.NewDenseArray(ir.I64, shape...),
		},
	})
	return Mesh{v: v}, err
}

// NewAllGather builds and verifies a mesh.all_gather over every axis of
// the named mesh.
func (d *Dialect) NewAllGather(input ir.Value, result ir.Attribute, mesh string, axis int64) (AllGather, error) {
	v, err := d.build(KindAllGather, opdef.BuildInput{
		Operands:    []opdef.Arg[ir.Value]{opdef.One(input)},
		ResultTypes: []opdef.Arg[ir.Attribute]{opdef.One(result)},
		Properties: map[string]ir.Attribute{
			"mesh":        ir.SymbolRefAttr(mesh),
			"gather_axis": ir.NewIntegerAttr(axis, ir.Index),
		},
	})
	return AllGather{Collective{v: v}}, err
}

// NewBroadcast builds and verifies a mesh.broadcast. The root is given by
// static indices followed by dynamic index values.
func (d *Dialect) NewBroadcast(input ir.Value, mesh string, root []int64, rootDynamic ...ir.Value) (Broadcast, error) {
	v, err := d.build(KindBroadcast, opdef.BuildInput{
		Operands:    []opdef.Arg[ir.Value]{opdef.One(input), opdef.Many(rootDynamic...)},
		ResultTypes: []opdef.Arg[ir.Attribute]{opdef.One(input.Type())},
		Properties: map[string]ir.Attribute{
			"mesh": ir.SymbolRefAttr(mesh),
			"root": ir.NewDenseArray(ir.I64, root...),
		},
	})
	return Broadcast{Rooted{Collective{v: v}}}, err
}

// ShardingSpec describes a mesh.sharding to build. Static and dynamic
// parts of the offsets and halo sizes are kept separately.
type ShardingSpec struct {
	Mesh               string
	SplitAxes          [][]int64
	PartialAxes        []int64
	PartialType        string
	ShardedDimsOffsets []int64
	DynamicOffsets     []ir.Value
	HaloSizes          []int64
	DynamicHaloSizes   []ir.Value
}

// NewSharding builds and verifies a mesh.sharding.
func (d *Dialect) NewSharding(spec ShardingSpec) (Sharding, error) {
	split := make(ir.ArrayAttr, len(spec.SplitAxes))
	for i, axes := range spec.SplitAxes {
		split[i] = ir.NewDenseArray(ir.I16, axes...)
	}
	props := map[string]ir.Attribute{
		"mesh":                        ir.SymbolRefAttr(spec.Mesh),
		"split_axes":                  split,
		"static_sharded_dims_offsets": ir.NewDenseArray(ir.I64, spec.ShardedDimsOffsets...),
		"static_halo_sizes":           ir.NewDenseArray(ir.I64, spec.HaloSizes...),
	}
	if spec.PartialType != "" {
		props["partial_type"] = ir.StringAttr(spec.PartialType)
		props["partial_axes"] = ir.NewDenseArray(ir.I16, spec.PartialAxes...)
	}
	v, err := d.build(KindSharding, opdef.BuildInput{
		Operands: []opdef.Arg[ir.Value]{
			opdef.Many(spec.DynamicOffsets...),
			opdef.Many(spec.DynamicHaloSizes...),
		},
		ResultTypes: []opdef.Arg[ir.Attribute]{opdef.One[ir.Attribute](ShardingType)},
		Properties:  props,
	})
	return Sharding{v: v}, err
}

// ---------------------------------------------------------------------------
// Wrappers
// ---------------------------------------------------------------------------

// Collective holds the accessors shared by every communication op.
type Collective struct {
	v opdef.View
}

// Op returns the wrapped instance.
func (c Collective) Op() *ir.Operation { return c.v.Op }

func (c Collective) Input() (ir.Value, error)      { return c.v.Operand("input") }
func (c Collective) Result() (*ir.OpResult, error) { return c.v.Result("result") }
func (c Collective) Mesh() (string, error)         { return symbolProp(c.v, "mesh") }

// MeshAxes returns the mesh axes the op communicates over. Empty means
// every axis.
func (c Collective) MeshAxes() ([]int64, error) { return denseProp(c.v, "mesh_axes") }

type AllGather struct{ Collective }

func (o AllGather) GatherAxis() (int64, error) { return indexProp(o.v, "gather_axis") }

type AllReduce struct{ Collective }

func (o AllReduce) Reduction() (string, error) { return stringProp(o.v, "reduction") }

type AllSlice struct{ Collective }

func (o AllSlice) SliceAxis() (int64, error) { return indexProp(o.v, "slice_axis") }

type AllToAll struct{ Collective }

func (o AllToAll) SplitAxis() (int64, error)  { return indexProp(o.v, "split_axis") }
func (o AllToAll) ConcatAxis() (int64, error) { return indexProp(o.v, "concat_axis") }

// Rooted holds the accessors of collectives with a root process.
type Rooted struct{ Collective }

func (o Rooted) Root() ([]int64, error)           { return denseProp(o.v, "root") }
func (o Rooted) RootDynamic() ([]ir.Value, error) { return o.v.VarOperand("root_dynamic") }

type Broadcast struct{ Rooted }

type Gather struct{ Rooted }

func (o Gather) GatherAxis() (int64, error) { return indexProp(o.v, "gather_axis") }

// Mesh is a device mesh declaration.
type Mesh struct {
	v opdef.View
}

func (m Mesh) Op() *ir.Operation        { return m.v.Op }
func (m Mesh) SymName() (string, error) { return stringProp(m.v, "sym_name") }
func (m Mesh) Shape() ([]int64, error)  { return denseProp(m.v, "shape") }

// Rank returns the number of mesh axes.
func (m Mesh) Rank() (int, error) {
	shape, err := m.Shape()
	return len(shape), err
}

// Sharding describes how a tensor is split across a mesh.
type Sharding struct {
	v opdef.View
}

func (s Sharding) Op() *ir.Operation             { return s.v.Op }
func (s Sharding) Result() (*ir.OpResult, error) { return s.v.Result("result") }
func (s Sharding) Mesh() (string, error)         { return symbolProp(s.v, "mesh") }

// SplitAxes returns, per tensor dimension, the mesh axes it is split over.
func (s Sharding) SplitAxes() ([][]int64, error) {
	arr, err := prop[ir.ArrayAttr](s.v, "split_axes")
	if err != nil {
		return nil, err
	}
	out := make([][]int64, len(arr))
	for i, a := range arr {
		d, ok := a.(ir.DenseArray)
		if !ok {
			return nil, fmt.Errorf("%s: split_axes[%d] is %s, not a dense array", s.v.Schema.Name, i, ir.FormatAttr(a))
		}
		out[i] = d.Values
	}
	return out, nil
}

// Partial returns the partial reduction and its axes; ok is false when
// the sharding has no partial part.
func (s Sharding) Partial() (kind string, axes []int64, ok bool, err error) {
	a, err := s.v.Attr("partial_type")
	if err != nil || a == nil {
		return "", nil, false, err
	}
	kind, err = stringProp(s.v, "partial_type")
	if err != nil {
		return "", nil, false, err
	}
	if p, _ := s.v.Attr("partial_axes"); p != nil {
		axes, err = denseProp(s.v, "partial_axes")
	}
	return kind, axes, true, err
}

// ShardedDimsOffsets returns the static offsets and the dynamic offset
// operands.
func (s Sharding) ShardedDimsOffsets() ([]int64, []ir.Value, error) {
	return s.mixed("static_sharded_dims_offsets", "dynamic_sharded_dims_offsets")
}

// HaloSizes returns the static halo sizes and the dynamic halo operands.
func (s Sharding) HaloSizes() ([]int64, []ir.Value, error) {
	return s.mixed("static_halo_sizes", "dynamic_halo_sizes")
}

func (s Sharding) mixed(static, dynamic string) ([]int64, []ir.Value, error) {
	vals, err := denseProp(s.v, static)
	if err != nil {
		return nil, nil, err
	}
	dyn, err := s.v.VarOperand(dynamic)
	if err != nil {
		return nil, nil, err
	}
	return vals, dyn, nil
}

// ---------------------------------------------------------------------------
// Typed property reads
// ---------------------------------------------------------------------------

func prop[T ir.Attribute](v opdef.View, name string) (T, error) {
	var zero T
	a, err := v.Attr(name)
	if err != nil {
		return zero, err
	}
	t, ok := a.(T)
	if !ok {
		return zero, fmt.Errorf("%s: %s is %s, not %T", v.Schema.Name, name, ir.FormatAttr(a), zero)
	}
	return t, nil
}

func symbolProp(v opdef.View, name string) (string, error) {
	s, err := prop[ir.SymbolRefAttr](v, name)
	return string(s), err
}

func stringProp(v opdef.View, name string) (string, error) {
	s, err := prop[ir.StringAttr](v, name)
	return string(s), err
}

func indexProp(v opdef.View, name string) (int64, error) {
	i, err := prop[ir.IntegerAttr](v, name)
	return i.Value, err
}

func denseProp(v opdef.View, name string) ([]int64, error) {
	d, err := prop[ir.DenseArray](v, name)
	return d.Values, err
}
