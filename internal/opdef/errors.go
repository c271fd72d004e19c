package opdef

import (
	"errors"
	"fmt"
)

// Definition error codes (E201-E299). Raised once, at registration.
const (
	ErrInvalidField      = "E201" // field is none of the known categories, or malformed
	ErrRangeOnSingle     = "E202" // range constraint given to a single operand/result
	ErrSegmentNameClash  = "E203" // segment-size option collides with a declared name
	ErrFormatConflict    = "E204" // assembly format declared with custom parse/print
	ErrMultipleVariadic  = "E205" // several variadic slots without a sizing option
	ErrOverrideMismatch  = "E206" // override changes the category of an inherited field
	ErrUnresolvedTypeVar = "E207" // type variable left after specialization
	ErrDuplicateIRName   = "E208" // two fields map to the same attribute/property name
	ErrDuplicateKind     = "E209" // kind name already registered
	ErrInheritanceCycle  = "E210" // a kind extends itself
	ErrAbstractKind      = "E211" // abstract or unnamed declaration registered
	ErrFormatCompile     = "E212" // assembly format does not compile
)

// Verification error codes (E301-E399). Raised when an instance is checked.
const (
	ErrWrongOpName     = "E301" // instance name differs from the schema kind
	ErrArity           = "E302" // flat length does not fit the declared slots
	ErrSegmentAttr     = "E303" // segment-size attribute missing or malformed
	ErrSegmentSize     = "E304" // segment sizes violate slot cardinality or sum
	ErrSlotConstraint  = "E305" // operand/result type fails its constraint
	ErrRegionBlocks    = "E306" // single-block region has another block count
	ErrRegionEntryArgs = "E307" // region entry arguments fail their constraint
	ErrMissingAttr     = "E308" // required attribute/property absent
	ErrAttrConstraint  = "E309" // attribute/property value fails its constraint
	ErrUndeclaredAttr  = "E310" // attribute/property not declared by the schema
	ErrTraitVerify     = "E311" // trait invariant failed
	ErrCustomVerify    = "E312" // custom verifier failed
)

// Construction error codes (E401-E499). Raised by Build.
const (
	ErrArgCount          = "E401" // argument list length differs from slot count
	ErrAbsentForRequired = "E402" // Absent passed to a non-optional slot
	ErrManyForSingle     = "E403" // Many passed to a non-variadic slot
	ErrOptionalTooMany   = "E404" // Many of length > 1 passed to an optional slot
	ErrSameSizeMismatch  = "E405" // same-size variadic slots given different sizes
	ErrSingleForVariadic = "E406" // Single passed to a variadic, non-optional slot
)

// DefinitionError reports a malformed schema declaration.
type DefinitionError struct {
	Code    string
	Kind    string // declaration name
	Field   string // offending field, if any
	Message string
}

func (e *DefinitionError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("[%s] %s.%s: %s", e.Code, e.Kind, e.Field, e.Message)
	}
	return fmt.Sprintf("[%s] %s: %s", e.Code, e.Kind, e.Message)
}

// VerifyError reports an instance that does not satisfy its schema.
type VerifyError struct {
	Code      string
	Op        string    // operation name
	Construct Construct // slot category, when the failure is slot-related
	Slot      string    // slot, attribute, or property name, if known
	Position  string    // flat position ("2" or "1 to 3"), if known
	Message   string
	Cause     error // underlying constraint or trait failure
}

func (e *VerifyError) Error() string {
	msg := fmt.Sprintf("[%s] %s: %s", e.Code, e.Op, e.Message)
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

// Unwrap returns the underlying cause.
func (e *VerifyError) Unwrap() error {
	return e.Cause
}

// ConstructionError reports caller-supplied slot values whose shape does not
// fit the slot's cardinality.
type ConstructionError struct {
	Code      string
	Op        string
	Construct Construct
	Index     int // slot index within its construct
	Slot      string
	Message   string
}

func (e *ConstructionError) Error() string {
	return fmt.Sprintf("[%s] error in %s builder: %s %d '%s': %s",
		e.Code, e.Op, e.Construct, e.Index, e.Slot, e.Message)
}

// IsDefinitionError reports whether err is a DefinitionError.
// Uses errors.As to handle wrapped errors.
func IsDefinitionError(err error) bool {
	var de *DefinitionError
	return errors.As(err, &de)
}

// IsVerifyError reports whether err is a VerifyError.
func IsVerifyError(err error) bool {
	var ve *VerifyError
	return errors.As(err, &ve)
}

// IsConstructionError reports whether err is a ConstructionError.
func IsConstructionError(err error) bool {
	var ce *ConstructionError
	return errors.As(err, &ce)
}

// ErrorCode extracts the code from any of the opdef error types, or returns
// "" if err is none of them.
func ErrorCode(err error) string {
	var de *DefinitionError
	if errors.As(err, &de) {
		return de.Code
	}
	var ve *VerifyError
	if errors.As(err, &ve) {
		return ve.Code
	}
	var ce *ConstructionError
	if errors.As(err, &ce) {
		return ce.Code
	}
	return ""
}

// ErrUnknownOp is returned when an operation name has no registered schema.
var ErrUnknownOp = errors.New("unknown operation")

func defErr(kind, field, code, format string, args ...any) *DefinitionError {
	return &DefinitionError{Code: code, Kind: kind, Field: field, Message: fmt.Sprintf(format, args...)}
}
