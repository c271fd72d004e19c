package ir

import "fmt"

// Value is an SSA value: either an operation result or a block argument.
//
// This is a sealed interface - only OpResult and BlockArgument implement it.
type Value interface {
	Type() Attribute
	value() // Sealed - only these types implement it
}

// OpResult is the i-th result of an operation.
type OpResult struct {
	op    *Operation
	index int
	typ   Attribute
}

func (*OpResult) value() {}

// Type returns the result type.
func (r *OpResult) Type() Attribute { return r.typ }

// SetType replaces the result type.
func (r *OpResult) SetType(t Attribute) { r.typ = t }

// Owner returns the operation defining this result.
func (r *OpResult) Owner() *Operation { return r.op }

// Index returns the position of this result in its owner's result list.
func (r *OpResult) Index() int { return r.index }

func (r *OpResult) String() string {
	return fmt.Sprintf("%s#%d", r.op.Name, r.index)
}

// BlockArgument is the i-th argument of a block.
type BlockArgument struct {
	block *Block
	index int
	typ   Attribute
}

func (*BlockArgument) value() {}

// Type returns the argument type.
func (a *BlockArgument) Type() Attribute { return a.typ }

// Owner returns the block declaring this argument.
func (a *BlockArgument) Owner() *Block { return a.block }

// Index returns the position of this argument in its block's argument list.
func (a *BlockArgument) Index() int { return a.index }

func (a *BlockArgument) String() string {
	return fmt.Sprintf("arg%d", a.index)
}

// SingleResult returns the only result of op, failing if op does not have
// exactly one result.
func SingleResult(op *Operation) (Value, error) {
	if op.NumResults() != 1 {
		return nil, fmt.Errorf("operation %s has %d results, expected exactly 1", op.Name, op.NumResults())
	}
	return op.Result(0), nil
}
