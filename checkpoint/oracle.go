package checkpoint

import "github.com/samuelfneumann/gockpt/graph"

// ShouldCheckpoint is the operator cost oracle (C2): a pure,
// advisory classification of op as a good checkpoint candidate.
// Elementwise arithmetic, simple activations, and shape ops are cheap
// to recompute and therefore poor checkpoints; MatMul-class ops are
// expensive enough that retaining their output usually beats replaying
// them. The placement policies in placement.go may override this
// classification using footprint or an explicit budget.
func ShouldCheckpoint(op graph.Op) bool {
	return op.IsExpensive()
}
