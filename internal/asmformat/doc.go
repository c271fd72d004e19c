// Package asmformat compiles declarative assembly formats into programs
// that parse and print operations in a custom textual syntax.
//
// A format is a whitespace-separated list of directives:
//
//	`lit`      a literal keyword or punctuation, e.g. `on` or `->`
//	$name      an operand (as %ssa names) or a required attribute/property
//	type($x)   the type(s) of an operand or result
//	attr-dict  an optional {name = value, ...} dictionary
//
// Example, for mesh.all_gather:
//
//	$input `on` $mesh attr-dict `:` type($input) `->` type($result)
//
// parses and prints
//
//	%x on @mesh {gather_axis = 0 : index} : tensor<4xf32> -> tensor<16xf32>
//
// Parsed operations are assembled through opdef.Schema.Build, so segment
// sizes and defaults are filled exactly as for programmatic construction.
// Result names are not part of the format; callers bind them.
package asmformat
