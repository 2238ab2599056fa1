package checkpoint

import "github.com/samuelfneumann/gockpt/graph"

// DeleteUnmarked releases the value and saved-tensor storage of every
// non-leaf, non-checkpoint node reachable from root, returning the
// total bytes freed (spec.md section 4.4, component C4). It is
// idempotent: a node already marked ValueDeleted is skipped, so a
// second call over the same graph frees zero additional bytes.
//
// A node that ends up with no live ancestor checkpoint (a violation of
// I4) is not detected here — it only surfaces later, as
// NoCheckpointReachable from Recompute, per spec.md section 4.4's
// failure-semantics note. The pass does return an error, and stops, when
// it reaches a stochastic op while saveRNG is false or when a node's
// footprint cannot be sized; nodes deleted before that point stay
// deleted.
func DeleteUnmarked(root *graph.Node, saveRNG bool) (uint64, error) {
	order := graph.TopologicalOrder(root)

	var freed uint64
	for _, n := range order {
		if n.IsLeaf() || n.IsCheckpoint || n.ValueDeleted {
			continue
		}

		if n.Op.Stochastic() && !saveRNG {
			return freed, newErr(StochasticOpOnDeletedPathKind, n,
				"stochastic op would be deleted without an RNG hook; mark it as a checkpoint or enable save_rng")
		}

		n.CachedShape = n.Shape()

		fp, err := Footprint(n)
		if err != nil {
			return freed, err
		}
		freed += fp

		n.Value = nil
		n.SavedTensors = nil
		n.ValueDeleted = true
	}

	return freed, nil
}
