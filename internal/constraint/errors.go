package constraint

import (
	"errors"

	"github.com/roach88/irdl/internal/ir"
)

// Violation is returned when an attribute or sequence fails a constraint.
type Violation struct {
	Constraint string // textual form of the failing constraint
	Got        string // textual form of the offending value
	Message    string // overrides the default "expected X, got Y" text
}

func (e *Violation) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return "expected " + e.Constraint + ", got " + e.Got
}

// IsViolation reports whether err (or anything it wraps) is a Violation.
func IsViolation(err error) bool {
	var v *Violation
	return errors.As(err, &v)
}

func violation(c Constraint, got ir.Attribute) *Violation {
	return &Violation{Constraint: c.String(), Got: ir.FormatAttr(got)}
}

func rangeViolation(c Constraint, got []ir.Attribute, msg string) *Violation {
	return &Violation{
		Constraint: c.String(),
		Got:        "[" + ir.FormatAttrs(got) + "]",
		Message:    msg,
	}
}
