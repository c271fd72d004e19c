package opdef

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/roach88/irdl/internal/constraint"
	"github.com/roach88/irdl/internal/ir"
)

var (
	anyC     = constraint.Any{}
	i32C     = constraint.Eq{Attr: ir.I32}
	i64C     = constraint.Eq{Attr: ir.I64}
	intC     = constraint.Base{Kind: ir.KindIntegerType}
	tensorC  = constraint.Base{Kind: ir.KindTensorType}
	symbolC  = constraint.Base{Kind: ir.KindSymbolRef}
	tensorTy = ir.NewTensorType(ir.F32, 4)
)

// values returns fresh SSA values of the given types.
func values(types ...ir.Attribute) []ir.Value {
	src := ir.NewOperation("test.source", ir.OperationState{ResultTypes: types})
	out := make([]ir.Value, len(types))
	for i, r := range src.Results() {
		out[i] = r
	}
	return out
}

func repeat(a ir.Attribute, n int) []ir.Attribute {
	out := make([]ir.Attribute, n)
	for i := range out {
		out[i] = a
	}
	return out
}

func mustBuild(t *testing.T, d *Decl) *Schema {
	t.Helper()
	s, err := Build(d)
	require.NoError(t, err)
	return s
}

// withOperands creates a bare instance of s carrying n i32 operands.
func withOperands(s *Schema, n int, attrs map[string]ir.Attribute) *ir.Operation {
	return ir.NewOperation(s.Name, ir.OperationState{
		Operands:   values(repeat(ir.I32, n)...),
		Attributes: attrs,
	})
}

func requireCode(t *testing.T, err error, code string) {
	t.Helper()
	require.Error(t, err)
	require.Equal(t, code, ErrorCode(err), "error: %v", err)
}
