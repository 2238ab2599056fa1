package checkpoint

import (
	"math"
	"sort"

	"github.com/samuelfneumann/gockpt/graph"
)

// Policy selects which of C3's three placement strategies
// analyze_and_mark uses.
type Policy int

const (
	// Manual disables automatic placement: the caller marks nodes one
	// at a time via Checkpoint.
	Manual Policy = iota
	Uniform
	Adaptive
	Budget
)

func (p Policy) String() string {
	switch p {
	case Manual:
		return "Manual"
	case Uniform:
		return "Uniform"
	case Adaptive:
		return "Adaptive"
	case Budget:
		return "Budget"
	default:
		return "Unknown"
	}
}

// Checkpoint marks n as a checkpoint and returns n, mirroring spec.md's
// user-facing `checkpoint(value) → value` marker for Manual mode.
func Checkpoint(n *graph.Node) *graph.Node {
	n.IsCheckpoint = true
	return n
}

// Mark walks the DAG rooted at root and sets IsCheckpoint on the nodes
// policy selects, returning how many nodes were marked. The root is
// always marked (spec.md section 4.3); leaves are never marked, since
// I2 already protects them and marking one would only waste a footprint
// lookup. Mark never un-sets IsCheckpoint on a node already marked by a
// prior call, so repeated calls within one pass only add checkpoints.
func Mark(root *graph.Node, policy Policy, params Params) (int, error) {
	if root.IsLeaf() {
		// A single-leaf graph has nothing to checkpoint; marking the
		// root would violate "leaves are never marked".
		return 0, nil
	}

	switch policy {
	case Manual:
		root.IsCheckpoint = true
		return 1, nil
	case Uniform:
		return markUniform(root, params.Interval)
	case Adaptive:
		return markAdaptive(root)
	case Budget:
		return markBudget(root, params.BudgetBytes)
	default:
		return 0, newErr(ConfigInvalidKind, root, "unknown placement policy")
	}
}

// Params bundles the policy-specific parameters C3's strategies need.
type Params struct {
	Interval    int
	BudgetBytes uint64
}

// markUniform implements spec.md section 4.3's Uniform(interval k):
// number the topological order 0..N-1 and mark node i iff i mod k == 0
// or i is the root (last in the order).
func markUniform(root *graph.Node, interval int) (int, error) {
	if interval <= 0 {
		return 0, newErr(ConfigInvalidKind, root, "uniform interval must be positive")
	}

	order := graph.TopologicalOrder(root)
	marked := 0
	last := len(order) - 1
	for i, n := range order {
		if n.IsLeaf() {
			continue
		}
		if i%interval == 0 || i == last {
			if !n.IsCheckpoint {
				marked++
			}
			n.IsCheckpoint = true
		}
	}
	return marked, nil
}

// markAdaptive implements spec.md section 4.3's Adaptive (sqrt(N))
// policy: rank non-leaf nodes by (ShouldCheckpoint(op), footprint),
// expensive-op nodes first and larger footprints breaking ties, then
// mark the top ceil(sqrt(N)) candidates plus the root.
func markAdaptive(root *graph.Node) (int, error) {
	order := graph.TopologicalOrder(root)

	var candidates []*graph.Node
	for _, n := range order {
		if !n.IsLeaf() {
			candidates = append(candidates, n)
		}
	}
	if len(candidates) == 0 {
		return 0, nil
	}

	for _, n := range candidates {
		if _, err := Footprint(n); err != nil {
			return 0, err
		}
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		a, b := candidates[i], candidates[j]
		aExp, bExp := ShouldCheckpoint(a.Op), ShouldCheckpoint(b.Op)
		if aExp != bExp {
			return aExp // expensive-op nodes sort first
		}
		return a.MemoryFootprint > b.MemoryFootprint
	})

	target := int(math.Ceil(math.Sqrt(float64(len(candidates)))))
	if target > len(candidates) {
		target = len(candidates)
	}

	marked := 0
	for i := 0; i < target; i++ {
		if !candidates[i].IsCheckpoint {
			marked++
		}
		candidates[i].IsCheckpoint = true
	}
	if !root.IsCheckpoint {
		marked++
	}
	root.IsCheckpoint = true
	return marked, nil
}

// markBudget implements spec.md section 4.3's Budget(max_bytes B):
// walk the topological order in reverse, accumulating footprint; when
// the running sum would exceed B, mark the current node and reset the
// accumulator. This bounds the live non-checkpoint frontier to B bytes
// at any point during the backward pass.
func markBudget(root *graph.Node, budget uint64) (int, error) {
	if budget == 0 {
		return 0, newErr(ConfigInvalidKind, root, "budget_bytes must be positive")
	}

	order := graph.TopologicalOrder(root)

	marked := 0
	var running uint64
	for i := len(order) - 1; i >= 0; i-- {
		n := order[i]
		if n.IsLeaf() {
			continue
		}
		fp, err := Footprint(n)
		if err != nil {
			return 0, err
		}
		if running+fp > budget {
			if !n.IsCheckpoint {
				marked++
			}
			n.IsCheckpoint = true
			running = 0
			continue
		}
		running += fp
	}

	if !root.IsCheckpoint {
		marked++
	}
	root.IsCheckpoint = true
	return marked, nil
}
