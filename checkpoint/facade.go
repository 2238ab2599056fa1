package checkpoint

import (
	"github.com/samuelfneumann/gockpt/graph"
	t "github.com/samuelfneumann/gockpt/tensor"
)

// EnsureLive is the first of the two hooks the reverse-mode engine
// calls (spec.md section 4.6, component C6). The engine calls it before
// reading n's own value or saved tensors to compute its VJP; if n's
// value has been deleted, it triggers Recompute.
func EnsureLive(n *graph.Node) error {
	if !n.ValueDeleted {
		return nil
	}
	return Recompute(n)
}

// EnsureInputsLive is the second hook: the engine calls it before
// enumerating n's inputs to propagate gradients, and it recomputes any
// input whose value has been deleted.
func EnsureInputsLive(n *graph.Node) error {
	for _, in := range n.Inputs {
		if in.ValueDeleted {
			if err := Recompute(in); err != nil {
				return err
			}
		}
	}
	return nil
}

// ZeroGrad walks the graph reachable from root and zeros the gradient
// buffer of every node with RequiresGrad set, sizing the buffer from
// CachedShape when the node's value has been deleted (tolerating I3)
// rather than forcing a recompute just to read a shape. Nodes that do
// not require a gradient are skipped regardless of deletion state.
func ZeroGrad(root *graph.Node) error {
	for n := range graph.Reachable(root) {
		if !n.RequiresGrad {
			continue
		}

		dims := n.Shape()
		if dims == nil {
			continue
		}

		zeros, err := zeroTensor(dims, dtypeOf(n))
		if err != nil {
			return wrapErr(ConfigInvalidKind, n, "zero_grad", err)
		}
		n.Grad = zeros
	}
	return nil
}

func dtypeOf(n *graph.Node) dtypeLike {
	if n.Value != nil {
		return n.Value.Dtype()
	}
	if n.Grad != nil {
		return n.Grad.Dtype()
	}
	return defaultDtype
}

func zeroTensor(dims []int, dt dtypeLike) (*t.Dense, error) {
	return newZeroDense(dims, dt)
}
