// Package module loads IR module files and runs their operations through
// a registry.
//
// A module file is YAML. It declares the block arguments every operation
// may use, then a list of operations. Each operation is written in exactly
// one of four forms:
//
//	text    custom assembly syntax, parsed by the kind's format program
//	slots   one tagged value per declared slot, built through Schema.Build
//	create  flat lists plus named constants, built through Registry.Create
//	flat    raw flat lists and dictionaries, created with no schema at all
//
// Example:
//
//	name: gather
//	args:
//	  - {name: x, type: "tensor<4xf32>"}
//	ops:
//	  - op: mesh.all_gather
//	    results: [y]
//	    text: "%x on @grid gather_axis = 0 : index : tensor<4xf32> -> tensor<16xf32>"
//	  - op: mesh.all_reduce
//	    slots:
//	      operands: {input: y}
//	      results: {result: "tensor<16xf32>"}
//	      properties: {mesh: "@grid"}
//
// Run verifies every operation that could be built and reports one Outcome
// per operation. A failing operation does not stop the run; values it would
// have defined are simply missing for later operations.
package module
