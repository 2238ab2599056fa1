package checkpoint

import (
	"github.com/samuelfneumann/gockpt/graph"
	t "github.com/samuelfneumann/gockpt/tensor"
)

// Footprint computes the number of bytes reclaimable by deleting n's
// value and saved tensors (spec.md section 4.1, component C1). Leaves
// and already-deleted nodes report zero: a leaf is never deleted (I2),
// and an already-deleted node has nothing left to reclaim. The result
// is cached on n.MemoryFootprint for reuse by the placement policies.
func Footprint(n *graph.Node) (uint64, error) {
	if n.IsLeaf() || n.ValueDeleted {
		n.MemoryFootprint = 0
		return 0, nil
	}

	var total uint64
	if n.Value != nil {
		bytes, err := t.Bytes(n.Value.Shape(), n.Value.Dtype())
		if err != nil {
			return 0, wrapErr(ConfigInvalidKind, n, "footprint: value", err)
		}
		total += bytes
	}
	for _, saved := range n.SavedTensors {
		if saved == nil {
			continue
		}
		bytes, err := t.Bytes(saved.Shape(), saved.Dtype())
		if err != nil {
			return 0, wrapErr(ConfigInvalidKind, n, "footprint: saved tensor", err)
		}
		total += bytes
	}

	n.MemoryFootprint = total
	return total, nil
}
