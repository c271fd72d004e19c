// Package mesh declares the mesh dialect with the opdef Go DSL.
//
// The declarations mirror testdata/dialects/mesh, the same dialect written
// in CUE, and add the hand-written verifiers that a declarative schema
// cannot express: a mesh must have a positive rank, and a sharding cannot
// carry both halo sizes and sharded dimension offsets.
//
// Each concrete kind has a typed wrapper (AllGather, Sharding, ...) whose
// methods read slots and properties by declared name through opdef.View.
// Wrappers are obtained from a Dialect, which verifies the instance first:
//
//	d, err := mesh.Register(reg)
//	gather, err := d.AllGather(op)
//	axis, err := gather.GatherAxis()
package mesh
