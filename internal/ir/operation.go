package ir

import "fmt"

// OperationState holds the flat collections an operation is created from.
// Nil maps are treated as empty.
type OperationState struct {
	Operands    []Value
	ResultTypes []Attribute
	Attributes  map[string]Attribute
	Properties  map[string]Attribute
	Regions     []*Region
	Successors  []*Block
}

// Operation is a generic IR node. It carries flat operand, result, region,
// and successor lists; it has no knowledge of how those lists map to named
// slots.
type Operation struct {
	// Name is the fully qualified kind name, e.g. "mesh.all_gather".
	Name string

	// Attributes are discardable, name-keyed constants.
	Attributes map[string]Attribute

	// Properties are inherent, name-keyed constants.
	Properties map[string]Attribute

	operands   []Value
	results    []*OpResult
	regions    []*Region
	successors []*Block
	parent     *Block
}

// NewOperation creates an operation from flat collections. Regions are
// re-parented to the new operation.
func NewOperation(name string, st OperationState) *Operation {
	op := &Operation{
		Name:       name,
		Attributes: make(map[string]Attribute, len(st.Attributes)),
		Properties: make(map[string]Attribute, len(st.Properties)),
		operands:   append([]Value(nil), st.Operands...),
		successors: append([]*Block(nil), st.Successors...),
	}
	for k, v := range st.Attributes {
		op.Attributes[k] = v
	}
	for k, v := range st.Properties {
		op.Properties[k] = v
	}
	op.results = make([]*OpResult, len(st.ResultTypes))
	for i, t := range st.ResultTypes {
		op.results[i] = &OpResult{op: op, index: i, typ: t}
	}
	for _, r := range st.Regions {
		op.AddRegion(r)
	}
	return op
}

// Operands returns the flat operand list. The slice must not be modified.
func (op *Operation) Operands() []Value { return op.operands }

// Operand returns the i-th operand.
func (op *Operation) Operand(i int) Value { return op.operands[i] }

// NumOperands returns the number of flat operands.
func (op *Operation) NumOperands() int { return len(op.operands) }

// SetOperands replaces the whole operand list.
func (op *Operation) SetOperands(vals []Value) {
	op.operands = append([]Value(nil), vals...)
}

// SetOperand replaces the i-th operand.
func (op *Operation) SetOperand(i int, v Value) error {
	if i < 0 || i >= len(op.operands) {
		return fmt.Errorf("operand index %d out of range for %s with %d operands", i, op.Name, len(op.operands))
	}
	op.operands[i] = v
	return nil
}

// OperandTypes returns the types of the operands in order.
func (op *Operation) OperandTypes() []Attribute { return AttrTypes(op.operands) }

// Results returns the flat result list. The slice must not be modified.
func (op *Operation) Results() []*OpResult { return op.results }

// Result returns the i-th result.
func (op *Operation) Result(i int) *OpResult { return op.results[i] }

// NumResults returns the number of results.
func (op *Operation) NumResults() int { return len(op.results) }

// ResultTypes returns the types of the results in order.
func (op *Operation) ResultTypes() []Attribute { return AttrTypes(op.results) }

// Regions returns the flat region list. The slice must not be modified.
func (op *Operation) Regions() []*Region { return op.regions }

// NumRegions returns the number of regions.
func (op *Operation) NumRegions() int { return len(op.regions) }

// AddRegion appends r and re-parents it to op.
func (op *Operation) AddRegion(r *Region) {
	r.parent = op
	op.regions = append(op.regions, r)
}

// Successors returns the flat successor list. The slice must not be modified.
func (op *Operation) Successors() []*Block { return op.successors }

// NumSuccessors returns the number of successors.
func (op *Operation) NumSuccessors() int { return len(op.successors) }

// SetSuccessors replaces the successor list.
func (op *Operation) SetSuccessors(bs []*Block) {
	op.successors = append([]*Block(nil), bs...)
}

// Parent returns the block containing op, or nil if detached.
func (op *Operation) Parent() *Block { return op.parent }

func (op *Operation) String() string {
	return op.Name
}
