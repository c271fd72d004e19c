package opdef

import (
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/irdl/internal/constraint"
	"github.com/roach88/irdl/internal/ir"
)

// ============================================================================
// Field classification
// ============================================================================

func TestBuild_ClassifiesFields(t *testing.T) {
	s := mustBuild(t, &Decl{
		Name: "test.all",
		Fields: []Field{
			Operand("lhs", i32C),
			VarOperand("rest", intC),
			Result("out", tensorC),
			SingleBlockRegion("body"),
			OptSuccessor("next"),
			Attr("sym", symbolC),
			OptProp("level", intC).WithDefault(ir.I64),
			Traits(Pure{}),
			Method("fold"),
		},
	})

	assert.Equal(t, "test.all", s.Name)
	require.Len(t, s.Operands, 2)
	assert.Equal(t, "lhs", s.Operands[0].Name)
	assert.Equal(t, Single, s.Operands[0].Cardinality)
	assert.Equal(t, "i32", s.Operands[0].ConstraintString())
	assert.Equal(t, "rest", s.Operands[1].Name)
	assert.Equal(t, Variadic, s.Operands[1].Cardinality)
	assert.Equal(t, "integer", s.Operands[1].ConstraintString())

	require.Len(t, s.Results, 1)
	require.Len(t, s.Regions, 1)
	assert.True(t, s.Regions[0].SingleBlock)
	require.Len(t, s.Successors, 1)
	assert.Equal(t, Optional, s.Successors[0].Cardinality)

	assert.Contains(t, s.Attributes, "sym")
	require.Contains(t, s.Properties, "level")
	assert.True(t, s.Properties["level"].Optional)
	assert.Equal(t, ir.I64, s.Properties["level"].Default)

	assert.True(t, s.HasTrait("pure"))
	assert.Equal(t, []string{"fold"}, s.Methods)
}

func TestBuild_SkipsReservedNames(t *testing.T) {
	s := mustBuild(t, &Decl{
		Name:   "test.reserved",
		Fields: []Field{Operand("name", anyC), Attr("parent", anyC), Operand("x", anyC)},
	})
	require.Len(t, s.Operands, 1)
	assert.Equal(t, "x", s.Operands[0].Name)
	assert.Empty(t, s.Attributes)
}

func TestBuild_RegionEntryArgsDefaultToAnyRange(t *testing.T) {
	s := mustBuild(t, &Decl{
		Name:   "test.region",
		Fields: []Field{Region("body"), Region("typed").WithEntryArgs(i32C)},
	})
	assert.Equal(t, constraint.NewRangeOf(constraint.Any{}), s.Regions[0].Constraint)
	assert.Equal(t, constraint.NewRangeOf(i32C), s.Regions[1].Constraint)
}

func TestBuild_IRName(t *testing.T) {
	s := mustBuild(t, &Decl{
		Name:   "test.irname",
		Fields: []Field{Prop("axis", intC).WithIRName("gather_axis")},
	})
	require.Contains(t, s.Properties, "gather_axis")
	assert.Equal(t, "axis", s.Properties["gather_axis"].Accessor)

	acc, ok := s.AttrAccessor("axis")
	require.True(t, ok)
	assert.Equal(t, "gather_axis", acc.Def().Name)
}

// ============================================================================
// Inheritance
// ============================================================================

func TestBuild_InheritanceMostDerivedWins(t *testing.T) {
	base := &Decl{
		Name:     "base",
		Abstract: true,
		Fields: []Field{
			Operand("lhs", anyC),
			Operand("rhs", anyC),
			Traits(Pure{}),
			Options(SameVariadicSize{Construct: ResultConstruct}),
		},
	}
	derived := &Decl{
		Name:    "test.derived",
		Extends: []*Decl{base},
		Fields: []Field{
			Operand("lhs", i64C),
			Traits(IsTerminator{}),
			Options(AttrSizedSegments{Construct: RegionConstruct}),
		},
	}
	s := mustBuild(t, derived)

	require.Len(t, s.Operands, 2)
	assert.Equal(t, "lhs", s.Operands[0].Name)
	assert.Equal(t, "i64", s.Operands[0].ConstraintString())
	assert.Equal(t, "rhs", s.Operands[1].Name)

	// Traits: closest declaration wins.
	assert.True(t, s.HasTrait("terminator"))
	assert.False(t, s.HasTrait("pure"))

	// Options: accumulate.
	assert.True(t, s.HasOption(SameVariadicSize{Construct: ResultConstruct}))
	assert.True(t, s.HasOption(AttrSizedSegments{Construct: RegionConstruct}))
	assert.Contains(t, s.Attributes, "regionSegmentSizes")
}

func TestBuild_DiamondInheritance(t *testing.T) {
	root := &Decl{Name: "root", Abstract: true, Fields: []Field{Attr("tag", anyC)}}
	left := &Decl{Name: "left", Abstract: true, Extends: []*Decl{root}, Fields: []Field{Operand("a", anyC)}}
	right := &Decl{Name: "right", Abstract: true, Extends: []*Decl{root}, Fields: []Field{Operand("b", anyC)}}
	s := mustBuild(t, &Decl{Name: "test.diamond", Extends: []*Decl{left, right}})

	require.Len(t, s.Operands, 2)
	assert.Equal(t, "a", s.Operands[0].Name)
	assert.Equal(t, "b", s.Operands[1].Name)
	assert.Contains(t, s.Attributes, "tag")
}

func TestBuild_GenericSpecialization(t *testing.T) {
	generic := &Decl{
		Name:     "binary",
		Abstract: true,
		Fields: []Field{
			Operand("lhs", constraint.TypeVar{Name: "T"}),
			Operand("rhs", constraint.TypeVar{Name: "T"}),
			Result("out", constraint.TypeVar{Name: "T"}),
		},
	}

	t.Run("bound", func(t *testing.T) {
		s := mustBuild(t, &Decl{
			Name:    "test.addi",
			Extends: []*Decl{generic},
			Bind:    map[string]constraint.AttrConstraint{"T": i32C},
		})
		assert.Equal(t, "i32", s.Operands[0].ConstraintString())
		assert.Equal(t, "i32", s.Results[0].ConstraintString())
	})

	t.Run("nearer binding wins", func(t *testing.T) {
		mid := &Decl{
			Name: "mid", Abstract: true, Extends: []*Decl{generic},
			Bind: map[string]constraint.AttrConstraint{"T": i32C},
		}
		s := mustBuild(t, &Decl{
			Name:    "test.addl",
			Extends: []*Decl{mid},
			Bind:    map[string]constraint.AttrConstraint{"T": i64C},
		})
		assert.Equal(t, "i64", s.Operands[1].ConstraintString())
	})

	t.Run("unbound", func(t *testing.T) {
		_, err := Build(&Decl{Name: "test.unbound", Extends: []*Decl{generic}})
		requireCode(t, err, ErrUnresolvedTypeVar)
		assert.Contains(t, err.Error(), "?T")
	})
}

// ============================================================================
// Definition errors
// ============================================================================

func TestBuild_DefinitionErrors(t *testing.T) {
	base := &Decl{Name: "base", Abstract: true, Fields: []Field{Operand("x", anyC)}}

	cyclic := &Decl{Name: "test.a"}
	other := &Decl{Name: "test.b", Extends: []*Decl{cyclic}}
	cyclic.Extends = []*Decl{other}

	tests := []struct {
		name string
		decl *Decl
		code string
	}{
		{
			name: "nil declaration",
			decl: nil,
			code: ErrAbstractKind,
		},
		{
			name: "abstract declaration",
			decl: base,
			code: ErrAbstractKind,
		},
		{
			name: "unclassifiable field",
			decl: &Decl{Name: "test.bad", Fields: []Field{{Name: "x"}}},
			code: ErrInvalidField,
		},
		{
			name: "field declared twice",
			decl: &Decl{Name: "test.dup", Fields: []Field{Operand("x", anyC), Result("x", anyC)}},
			code: ErrInvalidField,
		},
		{
			name: "range constraint on single operand",
			decl: &Decl{Name: "test.range", Fields: []Field{Operand("x", constraint.NewRangeOf(anyC))}},
			code: ErrRangeOnSingle,
		},
		{
			name: "range constraint on attribute",
			decl: &Decl{Name: "test.rattr", Fields: []Field{
				{Name: "x", Kind: FieldAttribute, Constraint: constraint.NewRangeOf(anyC)},
			}},
			code: ErrInvalidField,
		},
		{
			name: "default violates constraint",
			decl: &Decl{Name: "test.def", Fields: []Field{Prop("x", i32C).WithDefault(ir.I64)}},
			code: ErrInvalidField,
		},
		{
			name: "segment attribute declared by hand",
			decl: &Decl{Name: "test.seg", Fields: []Field{
				Attr("operandSegmentSizes", anyC),
				Options(AttrSizedSegments{Construct: OperandConstruct}),
			}},
			code: ErrSegmentNameClash,
		},
		{
			name: "conflicting segment options",
			decl: &Decl{Name: "test.seg2", Fields: []Field{
				Options(
					AttrSizedSegments{Construct: OperandConstruct},
					AttrSizedSegments{Construct: OperandConstruct, AsProperty: true},
				),
			}},
			code: ErrSegmentNameClash,
		},
		{
			name: "format with custom print",
			decl: &Decl{
				Name:           "test.fmt",
				Fields:         []Field{CustomPrint(func(io.Writer, *ir.Operation, ValueScope) error { return nil })},
				AssemblyFormat: "attr-dict",
			},
			code: ErrFormatConflict,
		},
		{
			name: "two variadic operands without option",
			decl: &Decl{Name: "test.vv", Fields: []Field{VarOperand("a", anyC), VarOperand("b", anyC)}},
			code: ErrMultipleVariadic,
		},
		{
			name: "optional and variadic result without option",
			decl: &Decl{Name: "test.ov", Fields: []Field{OptResult("a", anyC), VarResult("b", anyC)}},
			code: ErrMultipleVariadic,
		},
		{
			name: "override changes category",
			decl: &Decl{Name: "test.ovr", Extends: []*Decl{base}, Fields: []Field{Attr("x", anyC)}},
			code: ErrOverrideMismatch,
		},
		{
			name: "duplicate ir name",
			decl: &Decl{Name: "test.irn", Fields: []Field{
				Attr("a", anyC).WithIRName("x"),
				Prop("x", anyC),
			}},
			code: ErrDuplicateIRName,
		},
		{
			name: "inheritance cycle",
			decl: cyclic,
			code: ErrInheritanceCycle,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := Build(tt.decl)
			assert.Nil(t, s)
			requireCode(t, err, tt.code)
			assert.True(t, IsDefinitionError(err))
		})
	}
}

func TestBuild_SizingOptionsAllowSeveralVariadics(t *testing.T) {
	for _, opt := range []Option{
		SameVariadicSize{Construct: OperandConstruct},
		AttrSizedSegments{Construct: OperandConstruct},
		AttrSizedSegments{Construct: OperandConstruct, AsProperty: true},
	} {
		t.Run(opt.String(), func(t *testing.T) {
			_, err := Build(&Decl{Name: "test.ok", Fields: []Field{
				VarOperand("a", anyC), OptOperand("b", anyC), Options(opt),
			}})
			require.NoError(t, err)
		})
	}
}

func TestBuild_SegmentPropertyDeclared(t *testing.T) {
	s := mustBuild(t, &Decl{Name: "test.segprop", Fields: []Field{
		Options(AttrSizedSegments{Construct: ResultConstruct, AsProperty: true}),
	}})
	require.Contains(t, s.Properties, "resultSegmentSizes")
	assert.Equal(t, "dense<i32>", s.Properties["resultSegmentSizes"].Constraint.String())
	assert.NotContains(t, s.Attributes, "resultSegmentSizes")
}

func TestDefinitionError_Format(t *testing.T) {
	_, err := Build(&Decl{Name: "test.range", Fields: []Field{Operand("x", constraint.NewRangeOf(anyC))}})
	require.Error(t, err)
	assert.Equal(t,
		"[E202] test.range.x: cannot use a range constraint on a single operand; declare it optional or variadic",
		err.Error())
}
