package autodiff_test

import (
	"testing"

	"github.com/samuelfneumann/gockpt/autodiff"
	"github.com/samuelfneumann/gockpt/checkpoint"
	"github.com/samuelfneumann/gockpt/graph"
	t "github.com/samuelfneumann/gockpt/tensor"
	"gonum.org/v1/gonum/floats"
)

// buildMLP constructs the two-layer MLP from spec.md section 8's
// Adaptive-policy scenario: h1 = matmul(x, w1); h2 = relu(h1); y =
// sum(matmul(h2, w2)). Every call with the same seed data produces
// value-identical, but node-distinct, graphs, so a checkpointed run and
// an uncheckpointed run never share mutable state.
func buildMLP() (root, w1, w2 *graph.Node) {
	xVal := t.FromFloat64([]int{4, 3}, []float64{
		1, 2, 3,
		4, 5, 6,
		7, 8, 9,
		1, 1, 1,
	})
	w1Val := t.FromFloat64([]int{3, 5}, []float64{
		0.1, 0.2, 0.3, 0.4, 0.5,
		0.6, 0.7, 0.8, 0.9, 1.0,
		1.1, 1.2, 1.3, 1.4, 1.5,
	})
	w2Val := t.FromFloat64([]int{5, 1}, []float64{0.2, -0.1, 0.3, 0.05, -0.2})

	x := graph.NewLeaf("x", xVal, false)
	w1 = graph.NewLeaf("w1", w1Val, true)
	w2 = graph.NewLeaf("w2", w2Val, true)

	h1Val, err := graph.ForwardEval(graph.MatMul, []*t.Dense{xVal, w1Val}, graph.Attrs{})
	if err != nil {
		panic(err)
	}
	h1 := graph.NewOp(graph.MatMul, []*graph.Node{x, w1}, graph.Attrs{}, h1Val)

	h2Val, err := graph.ForwardEval(graph.ReLU, []*t.Dense{h1Val}, graph.Attrs{})
	if err != nil {
		panic(err)
	}
	h2 := graph.NewOp(graph.ReLU, []*graph.Node{h1}, graph.Attrs{}, h2Val)

	mVal, err := graph.ForwardEval(graph.MatMul, []*t.Dense{h2Val, w2Val}, graph.Attrs{})
	if err != nil {
		panic(err)
	}
	m := graph.NewOp(graph.MatMul, []*graph.Node{h2, w2}, graph.Attrs{}, mVal)

	yVal, err := graph.ForwardEval(graph.Sum, []*t.Dense{mVal}, graph.Attrs{})
	if err != nil {
		panic(err)
	}
	root = graph.NewOp(graph.Sum, []*graph.Node{m}, graph.Attrs{}, yVal)

	return root, w1, w2
}

func runBackward(t *testing.T, cfg checkpoint.Config) (w1Grad, w2Grad []float64, stats checkpoint.Stats) {
	t.Helper()
	root, w1, w2 := buildMLP()

	mgr, err := checkpoint.NewManager(cfg)
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}
	if err := mgr.AnalyzeAndMark(root); err != nil {
		t.Fatalf("AnalyzeAndMark: %v", err)
	}
	// A Manual config marks nothing here and serves as the uncheckpointed
	// baseline; running the deletion pass on it would release every
	// interior node, so it is skipped.
	if cfg.Policy != checkpoint.Manual {
		if _, err := mgr.DeleteUnmarked(root); err != nil {
			t.Fatalf("DeleteUnmarked: %v", err)
		}
	}
	if err := autodiff.Backward(root, mgr); err != nil {
		t.Fatalf("Backward: %v", err)
	}
	return w1.Grad.Data().([]float64), w2.Grad.Data().([]float64), mgr.Stats()
}

// TestBackwardGradientsAreCheckpointInvariant is the central property
// spec.md section 8 calls out: a checkpointed backward pass must
// produce the same gradients as an uncheckpointed one, regardless of
// which placement policy released which node's value in between.
func TestBackwardGradientsAreCheckpointInvariant(t *testing.T) {
	baselineW1, baselineW2, baselineStats := runBackward(t, checkpoint.Config{Policy: checkpoint.Manual})
	if baselineStats.RecomputeCount != 0 {
		t.Fatalf("Manual-policy baseline should trigger no recomputes, got %d", baselineStats.RecomputeCount)
	}

	policies := []checkpoint.Config{
		{Policy: checkpoint.Uniform, Interval: 1},
		{Policy: checkpoint.Uniform, Interval: 2},
		{Policy: checkpoint.Adaptive},
		{Policy: checkpoint.Budget, BudgetBytes: 64},
	}

	for _, cfg := range policies {
		cfg := cfg
		t.Run(cfg.Policy.String(), func(t *testing.T) {
			gotW1, gotW2, stats := runBackward(t, cfg)

			const tol = 1e-9
			for i := range baselineW1 {
				if !floats.EqualWithinAbs(gotW1[i], baselineW1[i], tol) {
					t.Errorf("w1.grad[%d]: checkpointed=%v baseline=%v", i, gotW1[i], baselineW1[i])
				}
			}
			for i := range baselineW2 {
				if !floats.EqualWithinAbs(gotW2[i], baselineW2[i], tol) {
					t.Errorf("w2.grad[%d]: checkpointed=%v baseline=%v", i, gotW2[i], baselineW2[i])
				}
			}
			if stats.MarkedCount == 0 {
				t.Errorf("expected %s to mark at least one node", cfg.Policy)
			}
		})
	}
}

func TestBackwardLeavesNotRequiringGradUntouched(t *testing.T) {
	root, w1, _ := buildMLP()
	mgr, err := checkpoint.NewManager(checkpoint.Config{Policy: checkpoint.Manual})
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}
	if err := autodiff.Backward(root, mgr); err != nil {
		t.Fatalf("Backward: %v", err)
	}
	if w1.Grad == nil {
		t.Fatalf("expected w1 (RequiresGrad) to receive a gradient")
	}
	// x (the MLP's input leaf) does not require a gradient and must be
	// left alone by the engine.
	x := root.Inputs[0].Inputs[0].Inputs[0].Inputs[0]
	if x.RequiresGrad {
		t.Fatalf("test setup error: expected the input leaf to not require grad")
	}
	if x.Grad != nil {
		t.Errorf("leaf not requiring grad should not receive a gradient")
	}
}
