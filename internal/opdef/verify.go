package opdef

import (
	"fmt"
	"maps"
	"slices"

	"github.com/roach88/irdl/internal/constraint"
	"github.com/roach88/irdl/internal/ir"
)

// Verify checks op against the schema. It stops at the first violation.
//
// Checks run in this order, sharing one constraint.Context so a variable
// bound by an operand is enforced on later operands, results, regions, and
// attributes:
//
//	name, operands, results, regions, successors, properties, attributes,
//	traits, custom verifier
func (s *Schema) Verify(op *ir.Operation) error {
	if op.Name != s.Name {
		return &VerifyError{
			Code:    ErrWrongOpName,
			Op:      op.Name,
			Message: fmt.Sprintf("schema %s cannot verify operation %s", s.Name, op.Name),
		}
	}

	ctx := constraint.NewContext()

	if err := s.verifyValues(op, OperandConstruct, op.OperandTypes(), ctx); err != nil {
		return err
	}
	if err := s.verifyValues(op, ResultConstruct, op.ResultTypes(), ctx); err != nil {
		return err
	}
	if err := s.verifyRegions(op, ctx); err != nil {
		return err
	}
	if _, err := s.VariadicSizes(op, SuccessorConstruct); err != nil {
		return err
	}
	if err := s.verifyDefs(op, PropertyContainer, op.Properties, ctx); err != nil {
		return err
	}
	if err := s.verifyDefs(op, AttributeContainer, op.Attributes, ctx); err != nil {
		return err
	}

	for _, t := range s.Traits {
		if err := t.Verify(op); err != nil {
			return &VerifyError{
				Code:    ErrTraitVerify,
				Op:      op.Name,
				Message: fmt.Sprintf("trait %s does not hold", t.Name()),
				Cause:   err,
			}
		}
	}

	if s.customVerify != nil {
		if err := s.customVerify(op); err != nil {
			return &VerifyError{Code: ErrCustomVerify, Op: op.Name, Message: "custom verification failed", Cause: err}
		}
	}
	return nil
}

// verifyValues checks each operand or result slot's constraint against the
// types in its span.
func (s *Schema) verifyValues(op *ir.Operation, c Construct, types []ir.Attribute, ctx *constraint.Context) error {
	spans, err := s.SlotSpans(op, c)
	if err != nil {
		return err
	}
	for i, slot := range s.Slots(c) {
		sp := spans[i]
		if err := slot.Constraint.VerifyRange(types[sp.Start:sp.Start+sp.Len], ctx); err != nil {
			pos := positionString(sp)
			return &VerifyError{
				Code:      ErrSlotConstraint,
				Op:        op.Name,
				Construct: c,
				Slot:      slot.Name,
				Position:  pos,
				Message:   fmt.Sprintf("%s '%s' at position %s does not verify", c, slot.Name, pos),
				Cause:     err,
			}
		}
	}
	return nil
}

func (s *Schema) verifyRegions(op *ir.Operation, ctx *constraint.Context) error {
	spans, err := s.SlotSpans(op, RegionConstruct)
	if err != nil {
		return err
	}
	regions := op.Regions()
	for i, slot := range s.Regions {
		sp := spans[i]
		for idx := sp.Start; idx < sp.Start+sp.Len; idx++ {
			r := regions[idx]
			if slot.SingleBlock && len(r.Blocks()) != 1 {
				return &VerifyError{
					Code:      ErrRegionBlocks,
					Op:        op.Name,
					Construct: RegionConstruct,
					Slot:      slot.Name,
					Position:  fmt.Sprint(idx),
					Message: fmt.Sprintf("region '%s' at position %d expected a single block, but got %d blocks",
						slot.Name, idx, len(r.Blocks())),
				}
			}
			entry := r.Entry()
			if entry == nil {
				continue
			}
			if err := slot.Constraint.VerifyRange(entry.ArgTypes(), ctx); err != nil {
				return &VerifyError{
					Code:      ErrRegionEntryArgs,
					Op:        op.Name,
					Construct: RegionConstruct,
					Slot:      slot.Name,
					Position:  fmt.Sprint(idx),
					Message:   fmt.Sprintf("region #%d entry arguments do not verify", idx),
					Cause:     err,
				}
			}
		}
	}
	return nil
}

// verifyDefs checks one container: every required definition is present,
// every present value satisfies its constraint, and nothing undeclared is
// stored. Undeclared names are reported in sorted order.
func (s *Schema) verifyDefs(op *ir.Operation, c Container, stored map[string]ir.Attribute, ctx *constraint.Context) error {
	defs := s.Defs(c)
	for _, name := range slices.Sorted(maps.Keys(defs)) {
		def := defs[name]
		val, ok := stored[name]
		if !ok {
			if def.Optional {
				continue
			}
			return &VerifyError{
				Code:    ErrMissingAttr,
				Op:      op.Name,
				Slot:    name,
				Message: fmt.Sprintf("%s '%s' expected in operation '%s'", c, name, op.Name),
			}
		}
		if err := def.Constraint.Verify(val, ctx); err != nil {
			return &VerifyError{
				Code:    ErrAttrConstraint,
				Op:      op.Name,
				Slot:    name,
				Message: fmt.Sprintf("%s '%s' does not verify", c, name),
				Cause:   err,
			}
		}
	}

	for _, name := range slices.Sorted(maps.Keys(stored)) {
		if _, ok := defs[name]; !ok {
			return &VerifyError{
				Code:    ErrUndeclaredAttr,
				Op:      op.Name,
				Slot:    name,
				Message: fmt.Sprintf("undeclared %s '%s' is not defined by the operation '%s'", c, name, op.Name),
			}
		}
	}
	return nil
}

func positionString(sp Span) string {
	if sp.Len == 1 {
		return fmt.Sprint(sp.Start)
	}
	if sp.Len == 0 {
		return fmt.Sprintf("%d (empty)", sp.Start)
	}
	return fmt.Sprintf("%d to %d", sp.Start, sp.Start+sp.Len-1)
}
