package module

import (
	"fmt"
	"io"
	"maps"
	"slices"
	"strings"

	"github.com/roach88/irdl/internal/ir"
	"github.com/roach88/irdl/internal/opdef"
)

// Render writes the block arguments and one line per operation of rep.
// Verified operations with custom syntax use it; everything else is
// printed in the generic form
//
//	"kind"(%a, %b) <{props}> {attrs} : (operand types) -> (result types)
//
// Operations that could not be built are written as comments.
func Render(w io.Writer, reg *opdef.Registry, rep *Report) error {
	var sb strings.Builder
	fmt.Fprintf(&sb, "module @%s(", rep.Module)
	for i, a := range rep.Block.Args() {
		if i > 0 {
			sb.WriteString(", ")
		}
		name, _ := rep.Scope.NameOf(a)
		fmt.Fprintf(&sb, "%%%s: %s", name, ir.FormatAttr(a.Type()))
	}
	sb.WriteString(") {\n")

	for _, o := range rep.Outcomes {
		sb.WriteString("  ")
		if o.Op == nil {
			fmt.Fprintf(&sb, "// ops[%d] %s: %s: %v\n", o.Index, o.Kind, o.Stage, o.Err)
			continue
		}
		line, err := renderOp(reg, rep, o)
		if err != nil {
			return fmt.Errorf("ops[%d] %s: %w", o.Index, o.Kind, err)
		}
		sb.WriteString(line)
		if !o.OK() {
			fmt.Fprintf(&sb, "  // %s: %v", o.Stage, o.Err)
		}
		sb.WriteByte('\n')
	}
	sb.WriteString("}\n")

	_, err := io.WriteString(w, sb.String())
	return err
}

func renderOp(reg *opdef.Registry, rep *Report, o Outcome) (string, error) {
	var sb strings.Builder
	if o.Op.NumResults() > 0 {
		names := make([]string, o.Op.NumResults())
		for i, res := range o.Op.Results() {
			name, ok := rep.Scope.NameOf(res)
			if !ok {
				name = "?"
			}
			names[i] = "%" + name
		}
		sb.WriteString(strings.Join(names, ", "))
		sb.WriteString(" = ")
	}

	if s, ok := reg.Lookup(o.Op.Name); ok && o.OK() && (s.Program() != nil || s.HasCustomFormat()) {
		sb.WriteString(o.Op.Name)
		var body strings.Builder
		if err := s.Print(&body, o.Op, rep.Scope); err != nil {
			return "", err
		}
		if body.Len() > 0 {
			sb.WriteByte(' ')
			sb.WriteString(body.String())
		}
		return sb.String(), nil
	}

	sb.WriteString(Generic(o.Op, rep.Scope))
	return sb.String(), nil
}

// NameScope resolves values to names for printing.
type NameScope interface {
	NameOf(v ir.Value) (string, bool)
}

// Generic prints op without consulting any schema. Values missing from
// scope print as %?.
func Generic(op *ir.Operation, scope NameScope) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%q(", op.Name)
	for i, v := range op.Operands() {
		if i > 0 {
			sb.WriteString(", ")
		}
		name, ok := scope.NameOf(v)
		if !ok {
			name = "?"
		}
		sb.WriteString("%" + name)
	}
	sb.WriteByte(')')
	if len(op.Properties) > 0 {
		sb.WriteString(" <" + dict(op.Properties) + ">")
	}
	if len(op.Attributes) > 0 {
		sb.WriteString(" " + dict(op.Attributes))
	}
	fmt.Fprintf(&sb, " : (%s) -> (%s)", ir.FormatAttrs(op.OperandTypes()), ir.FormatAttrs(op.ResultTypes()))
	return sb.String()
}

func dict(m map[string]ir.Attribute) string {
	parts := make([]string, 0, len(m))
	for _, k := range slices.Sorted(maps.Keys(m)) {
		parts = append(parts, k+" = "+ir.FormatAttr(m[k]))
	}
	return "{" + strings.Join(parts, ", ") + "}"
}
