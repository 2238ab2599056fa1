// Command gockpt builds a small two-layer MLP forward graph, applies
// each placement policy in turn, runs the checkpointed backward pass,
// and logs how many nodes were marked and recomputed, how many bytes
// checkpointing freed, and the shapes of the weight gradients. It does
// not run an uncheckpointed pass to compare gradients against (the
// autodiff package's tests do that). It exists as a runnable
// demonstration of the checkpoint package, in the same direct,
// flag-free style as the teacher's own main.go.
package main

import (
	"log"

	"github.com/samuelfneumann/gockpt/autodiff"
	"github.com/samuelfneumann/gockpt/checkpoint"
	"github.com/samuelfneumann/gockpt/graph"
	t "github.com/samuelfneumann/gockpt/tensor"
	gt "gorgonia.org/tensor"
)

// buildMLP constructs h1 = matmul(x, w1); h2 = relu(h1); y =
// sum(matmul(h2, w2)) — the two-layer MLP from spec.md section 8's
// Adaptive-policy scenario.
func buildMLP() (root *graph.Node, x, w1, w2 *graph.Node) {
	xVal := t.FromFloat64([]int{4, 3}, []float64{
		1, 2, 3,
		4, 5, 6,
		7, 8, 9,
		1, 1, 1,
	})
	w1Val := t.FromFloat64([]int{3, 5}, make([]float64, 15))
	for i := range w1Val.Data().([]float64) {
		w1Val.Data().([]float64)[i] = 0.1 * float64(i%5+1)
	}
	w2Val := t.FromFloat64([]int{5, 1}, []float64{0.2, -0.1, 0.3, 0.05, -0.2})

	x = graph.NewLeaf("x", xVal, false)
	w1 = graph.NewLeaf("w1", w1Val, true)
	w2 = graph.NewLeaf("w2", w2Val, true)

	h1Val, err := graph.ForwardEval(graph.MatMul, []*t.Dense{xVal, w1Val}, graph.Attrs{})
	must(err)
	h1 := graph.NewOp(graph.MatMul, []*graph.Node{x, w1}, graph.Attrs{}, h1Val)

	h2Val, err := graph.ForwardEval(graph.ReLU, []*t.Dense{h1Val}, graph.Attrs{})
	must(err)
	h2 := graph.NewOp(graph.ReLU, []*graph.Node{h1}, graph.Attrs{}, h2Val)

	mVal, err := graph.ForwardEval(graph.MatMul, []*t.Dense{h2Val, w2Val}, graph.Attrs{})
	must(err)
	m := graph.NewOp(graph.MatMul, []*graph.Node{h2, w2}, graph.Attrs{}, mVal)

	yVal, err := graph.ForwardEval(graph.Sum, []*t.Dense{mVal}, graph.Attrs{})
	must(err)
	root = graph.NewOp(graph.Sum, []*graph.Node{m}, graph.Attrs{}, yVal)

	return root, x, w1, w2
}

func must(err error) {
	if err != nil {
		log.Fatal(err)
	}
}

func main() {
	for _, policy := range []checkpoint.Policy{checkpoint.Uniform, checkpoint.Adaptive, checkpoint.Budget} {
		root, _, w1, w2 := buildMLP()

		cfg := checkpoint.Config{
			Policy:      policy,
			Interval:    2,
			BudgetBytes: 512,
			Verbose:     true,
		}
		mgr, err := checkpoint.NewManager(cfg)
		must(err)

		must(mgr.AnalyzeAndMark(root))
		freed, err := mgr.DeleteUnmarked(root)
		must(err)

		must(autodiff.Backward(root, mgr))

		stats := mgr.Stats()
		log.Printf("policy=%s marked=%d freed=%dB recomputed=%d w1.grad.shape=%v w2.grad.shape=%v",
			policy, stats.MarkedCount, freed, stats.RecomputeCount, shapeOf(w1), shapeOf(w2))
	}
}

func shapeOf(n *graph.Node) gt.Shape {
	if n.Grad == nil {
		return nil
	}
	return n.Grad.Shape()
}
