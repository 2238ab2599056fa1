package graph

import (
	t "github.com/samuelfneumann/gockpt/tensor"
)

// Node is the graph node type the checkpointing core augments with
// checkpoint annotations (spec.md section 3). Inputs are ordered,
// owning references to parent nodes — the only strong edges in the
// graph; recomputation replays along these edges rather than holding a
// second, duplicate set of "saved input" references (spec.md section
// 9's cyclic-reference design note).
type Node struct {
	Op     Op
	Inputs []*Node
	Attrs  Attrs

	Value        *t.Dense
	SavedTensors []*t.Dense

	RequiresGrad bool
	Grad         *t.Dense

	// Checkpoint annotations. Default zero values match spec.md's
	// lifecycle: (false, false, nil, 0, 0).
	IsCheckpoint      bool
	ValueDeleted      bool
	CachedShape       []int
	MemoryFootprint   uint64
	RecomputePriority int

	// name is optional and used only for diagnostics (error messages,
	// verbose logging); it has no semantic role in the core.
	name string
}

// NewLeaf creates a leaf node (no inputs) holding value — a
// user-supplied parameter or input tensor. Leaves are never deleted
// (I2) and never marked as checkpoints (marking one is legal but
// pointless, since I2 already protects it).
func NewLeaf(name string, value *t.Dense, requiresGrad bool) *Node {
	return &Node{
		Op:           Leaf,
		Value:        value,
		RequiresGrad: requiresGrad,
		name:         name,
	}
}

// NewOp creates an interior node representing the application of op to
// inputs, with value already computed by the forward pass (the core
// never computes a node's first value — it only recomputes the values
// of nodes that existed already).
func NewOp(op Op, inputs []*Node, attrs Attrs, value *t.Dense) *Node {
	requiresGrad := false
	for _, in := range inputs {
		if in.RequiresGrad {
			requiresGrad = true
			break
		}
	}
	return &Node{
		Op:           op,
		Inputs:       inputs,
		Attrs:        attrs,
		Value:        value,
		RequiresGrad: requiresGrad,
	}
}

// Name returns the node's diagnostic name, or its op's name if none was
// given.
func (n *Node) Name() string {
	if n.name != "" {
		return n.name
	}
	return n.Op.String()
}

// IsLeaf reports whether n has no inputs.
func (n *Node) IsLeaf() bool {
	return len(n.Inputs) == 0
}

// Shape answers the node's current tensor shape regardless of whether
// its value has been deleted (I3): when ValueDeleted is true it returns
// the shape cached at deletion time, otherwise it reads the live value.
func (n *Node) Shape() []int {
	if n.ValueDeleted {
		return n.CachedShape
	}
	if n.Value == nil {
		return nil
	}
	return append([]int(nil), n.Value.Shape()...)
}

// HasLiveValue reports whether n currently holds a materialized,
// non-empty value.
func (n *Node) HasLiveValue() bool {
	return !n.ValueDeleted && n.Value != nil
}
