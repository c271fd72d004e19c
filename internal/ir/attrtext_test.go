package ir

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatAttr(t *testing.T) {
	tests := []struct {
		input    Attribute
		expected string
	}{
		{I32, "i32"},
		{IntegerType{Width: 8, Signedness: Signed}, "si8"},
		{IntegerType{Width: 64, Signedness: Unsigned}, "ui64"},
		{Index, "index"},
		{F16, "f16"},
		{NewTensorType(F32, 2, DynamicDim), "tensor<2x?xf32>"},
		{NewTensorType(I1), "tensor<i1>"},
		{StringAttr(`say "hi"`), `"say \"hi\""`},
		{NewIntegerAttr(4, I64), "4 : i64"},
		{BoolAttr(false), "false"},
		{UnitAttr{}, "unit"},
		{ArrayAttr{I32, UnitAttr{}}, "[i32, unit]"},
		{ArrayAttr{}, "[]"},
		{DenseI32(0, 1, 3), "array<i32: 0, 1, 3>"},
		{NewDenseArray(I16), "array<i16>"},
		{SymbolRefAttr("mesh0"), "@mesh0"},
		{OpaqueAttr{Dialect: "mesh", Name: "sharding", Params: []Attribute{SymbolRefAttr("m")}}, "#mesh.sharding<@m>"},
		{OpaqueAttr{Dialect: "test", Name: "marker"}, "#test.marker"},
	}

	for _, tt := range tests {
		t.Run(tt.expected, func(t *testing.T) {
			assert.Equal(t, tt.expected, FormatAttr(tt.input))
		})
	}
}

func TestParseAttrRoundTrip(t *testing.T) {
	inputs := []string{
		"i32",
		"si8",
		"ui64",
		"index",
		"f64",
		"tensor<2x?xf32>",
		"tensor<4xtensor<i1>>",
		"tensor<i8>",
		`"text with spaces"`,
		"-7 : index",
		"true",
		"unit",
		"[i32, [unit], @s]",
		"array<i32: 0, 1, 3>",
		"array<i16>",
		"@mesh0",
		"#mesh.sharding<@m, array<i64: 1>>",
		"#test.marker",
	}

	for _, in := range inputs {
		t.Run(in, func(t *testing.T) {
			a, err := ParseAttr(in)
			require.NoError(t, err)
			assert.Equal(t, in, FormatAttr(a))
		})
	}
}

func TestParseAttrValues(t *testing.T) {
	a, err := ParseAttr("  tensor<2x3xi32>  ")
	require.NoError(t, err)
	assert.True(t, AttrEqual(NewTensorType(I32, 2, 3), a))

	a, err = ParseAttr("array<i32: 1, 2>")
	require.NoError(t, err)
	assert.Equal(t, DenseI32(1, 2), a)
}

func TestParseAttrPrefix(t *testing.T) {
	a, rest, err := ParseAttrPrefix("i32 -> tensor<f32>")
	require.NoError(t, err)
	assert.Equal(t, I32, a)
	assert.Equal(t, " -> tensor<f32>", rest)

	a, rest, err = ParseAttrPrefix(`@m, "x"`)
	require.NoError(t, err)
	assert.Equal(t, SymbolRefAttr("m"), a)
	assert.Equal(t, `, "x"`, rest)
}

func TestParseAttrErrors(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"empty", ""},
		{"unknown word", "widget"},
		{"trailing", "i32 i32"},
		{"unterminated string", `"abc`},
		{"integer without type", "4"},
		{"dense of float", "array<f32: 1>"},
		{"unclosed tensor", "tensor<2xi32"},
		{"bad opaque", "#nodot"},
		{"bad symbol", "@"},
		{"unclosed array", "[i32, "},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseAttr(tt.input)
			assert.Error(t, err)
		})
	}
}
