package autodiff

import (
	"fmt"

	"github.com/samuelfneumann/gockpt/checkpoint"
	"github.com/samuelfneumann/gockpt/graph"
	t "github.com/samuelfneumann/gockpt/tensor"
	gt "gorgonia.org/tensor"
)

// Backward runs a reverse-mode pass over the graph rooted at root,
// seeding root's gradient with ones and accumulating into every
// reachable node's Grad field. Before reading a node's own value it
// calls mgr.EnsureLive, and before reading its inputs' values it calls
// mgr.EnsureInputsLive — the two C6 hooks spec.md section 4.6 requires
// the reverse engine to call, so checkpointed graphs and
// non-checkpointed graphs produce identical gradients regardless of
// which nodes had their values released in between.
func Backward(root *graph.Node, mgr *checkpoint.Manager) error {
	order := graph.TopologicalOrder(root)

	if err := mgr.EnsureLive(root); err != nil {
		return fmt.Errorf("autodiff: backward: %w", err)
	}
	// root's shape is always live at this point (EnsureLive just ran).
	root.Grad = t.Ones(root.Shape())

	for i := len(order) - 1; i >= 0; i-- {
		n := order[i]
		if n.Grad == nil {
			continue
		}
		if n.IsLeaf() {
			continue
		}

		if err := mgr.EnsureLive(n); err != nil {
			return fmt.Errorf("autodiff: backward at %s: %w", n.Name(), err)
		}
		if err := mgr.EnsureInputsLive(n); err != nil {
			return fmt.Errorf("autodiff: backward at %s: %w", n.Name(), err)
		}

		inputGrads, err := VJP(n, n.Grad)
		if err != nil {
			return fmt.Errorf("autodiff: backward at %s: %w", n.Name(), err)
		}
		if len(inputGrads) != len(n.Inputs) {
			return fmt.Errorf("autodiff: backward at %s: VJP returned %d gradient(s) for %d input(s)",
				n.Name(), len(inputGrads), len(n.Inputs))
		}

		for j, in := range n.Inputs {
			if !in.RequiresGrad {
				continue
			}
			newGrad, err := accumulate(in.Grad, inputGrads[j])
			if err != nil {
				return fmt.Errorf("autodiff: backward at %s: %w", n.Name(), err)
			}
			in.Grad = newGrad
		}
	}

	return nil
}

func accumulate(existing, grad *gt.Dense) (*gt.Dense, error) {
	if existing == nil {
		return grad, nil
	}
	out, err := gt.Add(existing, grad)
	if err != nil {
		return nil, fmt.Errorf("autodiff: accumulate: %w", err)
	}
	dense, ok := out.(*gt.Dense)
	if !ok {
		return nil, fmt.Errorf("autodiff: accumulate: unexpected result type %T", out)
	}
	return dense, nil
}
