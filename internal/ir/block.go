package ir

// Block is an ordered list of operations with typed entry arguments.
type Block struct {
	args   []*BlockArgument
	ops    []*Operation
	parent *Region
}

// NewBlock creates a detached block whose arguments have the given types.
func NewBlock(argTypes ...Attribute) *Block {
	b := &Block{}
	for _, t := range argTypes {
		b.AddArg(t)
	}
	return b
}

// AddArg appends an argument of type t and returns it.
func (b *Block) AddArg(t Attribute) *BlockArgument {
	arg := &BlockArgument{block: b, index: len(b.args), typ: t}
	b.args = append(b.args, arg)
	return arg
}

// Args returns the block arguments. The slice must not be modified.
func (b *Block) Args() []*BlockArgument { return b.args }

// Arg returns the i-th block argument.
func (b *Block) Arg(i int) *BlockArgument { return b.args[i] }

// ArgTypes returns the types of the block arguments in order.
func (b *Block) ArgTypes() []Attribute { return AttrTypes(b.args) }

// Ops returns the operations in the block. The slice must not be modified.
func (b *Block) Ops() []*Operation { return b.ops }

// AddOp appends op to the block and sets its parent.
func (b *Block) AddOp(op *Operation) {
	op.parent = b
	b.ops = append(b.ops, op)
}

// Parent returns the region containing the block, or nil if detached.
func (b *Block) Parent() *Region { return b.parent }

// Region is an ordered list of blocks owned by an operation.
type Region struct {
	blocks []*Block
	parent *Operation
}

// NewRegion creates a detached region holding the given blocks.
func NewRegion(blocks ...*Block) *Region {
	r := &Region{}
	for _, b := range blocks {
		r.AddBlock(b)
	}
	return r
}

// AddBlock appends b to the region and sets its parent.
func (r *Region) AddBlock(b *Block) {
	b.parent = r
	r.blocks = append(r.blocks, b)
}

// Blocks returns the blocks of the region. The slice must not be modified.
func (r *Region) Blocks() []*Block { return r.blocks }

// Entry returns the first block, or nil if the region is empty.
func (r *Region) Entry() *Block {
	if len(r.blocks) == 0 {
		return nil
	}
	return r.blocks[0]
}

// Parent returns the operation owning the region, or nil if detached.
func (r *Region) Parent() *Operation { return r.parent }
