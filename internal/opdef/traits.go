package opdef

import (
	"fmt"
	"slices"
	"strings"

	"github.com/roach88/irdl/internal/ir"
)

// Trait is a named invariant shared across kinds. Verify runs after the
// schema's structural checks, so it may assume slots resolve.
type Trait interface {
	Name() string
	Verify(op *ir.Operation) error
}

// Pure marks operations without side effects. It has no invariant.
type Pure struct{}

func (Pure) Name() string               { return "pure" }
func (Pure) Verify(*ir.Operation) error { return nil }

// IsTerminator requires the operation to be the last one in its block.
type IsTerminator struct{}

func (IsTerminator) Name() string { return "terminator" }

func (IsTerminator) Verify(op *ir.Operation) error {
	blk := op.Parent()
	if blk == nil {
		return nil
	}
	ops := blk.Ops()
	if len(ops) == 0 || ops[len(ops)-1] != op {
		return fmt.Errorf("%s must be the last operation in its block", op.Name)
	}
	return nil
}

// SameOperandsAndResultType requires every operand and result to have the
// same type.
type SameOperandsAndResultType struct{}

func (SameOperandsAndResultType) Name() string { return "same_operands_and_result_type" }

func (SameOperandsAndResultType) Verify(op *ir.Operation) error {
	types := append(op.OperandTypes(), op.ResultTypes()...)
	for _, t := range types[min(1, len(types)):] {
		if !ir.AttrEqual(types[0], t) {
			return fmt.Errorf("requires the same type for all operands and results, got %s and %s",
				ir.FormatAttr(types[0]), ir.FormatAttr(t))
		}
	}
	return nil
}

// HasParent requires the operation's enclosing operation to be one of the
// named kinds.
type HasParent struct {
	Names []string
}

func (t HasParent) Name() string {
	return "has_parent(" + strings.Join(t.Names, ", ") + ")"
}

func (t HasParent) Verify(op *ir.Operation) error {
	var parent *ir.Operation
	if blk := op.Parent(); blk != nil {
		if r := blk.Parent(); r != nil {
			parent = r.Parent()
		}
	}
	if parent == nil || !slices.Contains(t.Names, parent.Name) {
		got := "none"
		if parent != nil {
			got = parent.Name
		}
		return fmt.Errorf("expects parent op to be one of [%s], got %s", strings.Join(t.Names, ", "), got)
	}
	return nil
}

// TraitByName resolves a trait from its textual name: pure, terminator,
// same_operands_and_result_type, or has_parent(a.b, c.d).
func TraitByName(name string) (Trait, error) {
	switch name {
	case "pure":
		return Pure{}, nil
	case "terminator":
		return IsTerminator{}, nil
	case "same_operands_and_result_type":
		return SameOperandsAndResultType{}, nil
	}
	if inner, ok := strings.CutPrefix(name, "has_parent("); ok {
		inner, ok = strings.CutSuffix(inner, ")")
		if ok && strings.TrimSpace(inner) != "" {
			var names []string
			for _, n := range strings.Split(inner, ",") {
				names = append(names, strings.TrimSpace(n))
			}
			return HasParent{Names: names}, nil
		}
	}
	return nil, fmt.Errorf("unknown trait %q", name)
}
