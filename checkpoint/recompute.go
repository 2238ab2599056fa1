package checkpoint

import (
	"github.com/samuelfneumann/gockpt/graph"
	t "github.com/samuelfneumann/gockpt/tensor"
)

// Recompute ensures target.ValueDeleted is false and target.Value holds
// the tensor the original forward pass would have produced (spec.md
// section 4.5, component C5). Calling Recompute on a node that is
// already live is a no-op.
//
// The algorithm locates the nearest ancestor with a live value (the
// anchor) by breadth-first search through target's inputs, then
// replays the forward ops of every deleted node between the anchor and
// the target, in topological order. Any input of a replayed node that
// is itself still deleted but was not reached by the anchor search
// (possible when a node on the path has a second, independently
// deleted input branch) is resolved by a recursive Recompute call
// before that node is replayed; the single-anchor BFS spec.md section
// 4.5 describes is the common-case fast path, and this recursion is its
// natural generalization to nodes with more than one deleted input
// chain.
func Recompute(target *graph.Node) error {
	if !target.ValueDeleted {
		return nil
	}

	anchor, nearestLeaf, err := findAnchor(target)
	if err != nil {
		if nearestLeaf != nil {
			return newErr(NoCheckpointReachableKind, target,
				"no live ancestor found; nearest leaf encountered was "+nearestLeaf.Name())
		}
		return newErr(NoCheckpointReachableKind, target, "no live ancestor found")
	}

	path := replayPath(anchor, target)

	for _, n := range path {
		if err := ensureInputsResolved(n); err != nil {
			return err
		}

		inputValues := make([]*t.Dense, len(n.Inputs))
		for i, in := range n.Inputs {
			if in.Value == nil {
				return newErr(NoCheckpointReachableKind, n,
					"input "+in.Name()+" has no live value during replay")
			}
			inputValues[i] = in.Value
		}

		if n.Op.Stochastic() {
			return newErr(StochasticOpOnDeletedPathKind, n,
				"cannot recompute stochastic op "+n.Op.String()+" without a restored RNG hook")
		}

		value, evalErr := graph.ForwardEval(n.Op, inputValues, n.Attrs)
		if evalErr != nil {
			return wrapErr(UnsupportedOpDuringRecomputeKind, n,
				"recompute: op "+n.Op.String()+" has no forward dispatch entry", evalErr)
		}

		if n.CachedShape != nil && !shapeEqual(value.Shape(), n.CachedShape) {
			return newErr(ShapeMismatchKind, n, "recomputed shape does not match cached shape")
		}

		n.Value = value
		n.SavedTensors = nil
		n.ValueDeleted = false
	}

	if target.ValueDeleted {
		return newErr(NoCheckpointReachableKind, target, "target still deleted after replay")
	}
	return nil
}

// ensureInputsResolved recursively recomputes any of n's inputs that
// are still deleted after the main replay path was built.
func ensureInputsResolved(n *graph.Node) error {
	for _, in := range n.Inputs {
		if in.ValueDeleted {
			if err := Recompute(in); err != nil {
				return err
			}
		}
	}
	return nil
}

// findAnchor performs the BFS backward search of spec.md section 4.5
// step 1. It returns the first node reachable from target.Inputs (in
// breadth-first order) whose value is live. If none is found, it
// returns the nearest leaf encountered, for use in the error message.
func findAnchor(target *graph.Node) (anchor, nearestLeaf *graph.Node, err error) {
	visited := map[*graph.Node]bool{target: true}
	queue := append([]*graph.Node{}, target.Inputs...)
	for _, n := range queue {
		visited[n] = true
	}

	for len(queue) > 0 {
		n := queue[0]
		queue = queue[1:]

		if n.HasLiveValue() {
			return n, nil, nil
		}
		if n.IsLeaf() && nearestLeaf == nil {
			nearestLeaf = n
		}
		for _, in := range n.Inputs {
			if !visited[in] {
				visited[in] = true
				queue = append(queue, in)
			}
		}
	}

	return nil, nearestLeaf, newErr(NoCheckpointReachableKind, target, "BFS exhausted inputs")
}

// replayPath returns the deleted nodes strictly between anchor and
// target (target included, anchor excluded), ordered so every node
// appears after its inputs — spec.md section 4.5 step 2. It restricts
// graph.TopologicalOrder(target) to the nodes downstream of anchor:
// anchor's own ancestors, and any sibling branch that does not pass
// through anchor, are never part of this target's replay.
func replayPath(anchor, target *graph.Node) []*graph.Node {
	// Reachable(target) is target's ancestor set (target included);
	// whether a node also depends on anchor is checked per node by
	// onAnchorSide below.
	ancestorsOfTarget := graph.Reachable(target)

	order := graph.TopologicalOrder(target)
	path := make([]*graph.Node, 0, len(order))
	for _, n := range order {
		if n == anchor {
			continue
		}
		if !ancestorsOfTarget[n] {
			continue
		}
		if !n.ValueDeleted {
			continue
		}
		if !onAnchorSide(n, anchor) {
			continue
		}
		path = append(path, n)
	}
	return path
}

// onAnchorSide reports whether anchor is reachable from n by walking
// n's own input chain — i.e. whether n genuinely depends on anchor,
// as opposed to being an unrelated ancestor of target reached through a
// different branch.
func onAnchorSide(n, anchor *graph.Node) bool {
	if n == anchor {
		return true
	}
	visited := map[*graph.Node]bool{n: true}
	stack := []*graph.Node{n}
	for len(stack) > 0 {
		cur := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if cur == anchor {
			return true
		}
		for _, in := range cur.Inputs {
			if !visited[in] {
				visited[in] = true
				stack = append(stack, in)
			}
		}
	}
	return false
}

func shapeEqual(a, b []int) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
