package checkpoint_test

import (
	"testing"

	"github.com/samuelfneumann/gockpt/checkpoint"
	"github.com/samuelfneumann/gockpt/graph"
	t2 "github.com/samuelfneumann/gockpt/tensor"
)

func TestMarkUniform(t *testing.T) {
	root, _, nodes := buildChain(t)

	marked, err := checkpoint.Mark(root, checkpoint.Uniform, checkpoint.Params{Interval: 2})
	if err != nil {
		t.Fatalf("Mark: %v", err)
	}
	if marked == 0 {
		t.Fatalf("expected at least one node marked, got 0")
	}
	if !root.IsCheckpoint {
		t.Errorf("root must always be marked")
	}
	for _, n := range nodes {
		if n.IsLeaf() && n.IsCheckpoint {
			t.Errorf("leaf nodes must never be marked")
		}
	}
}

func TestMarkUniformRejectsNonPositiveInterval(t *testing.T) {
	root, _, _ := buildChain(t)
	if _, err := checkpoint.Mark(root, checkpoint.Uniform, checkpoint.Params{Interval: 0}); err == nil {
		t.Fatalf("expected ConfigInvalid for interval=0")
	}
}

func TestMarkAdaptivePrefersExpensiveOps(t *testing.T) {
	root, _, _, _, h1, h2 := buildMLP(t)

	marked, err := checkpoint.Mark(root, checkpoint.Adaptive, checkpoint.Params{})
	if err != nil {
		t.Fatalf("Mark: %v", err)
	}
	if marked == 0 {
		t.Fatalf("expected at least one node marked")
	}
	if !root.IsCheckpoint {
		t.Errorf("root must always be marked")
	}
	// h1 is a MatMul (expensive); it should be strongly preferred over
	// h2 (a ReLU, cheap) for the available checkpoint slots.
	if !h1.IsCheckpoint {
		t.Errorf("expected the MatMul node h1 to be marked by Adaptive placement")
	}
	_ = h2
}

func TestMarkBudgetMarksEveryNodeWhenEachExceedsBudget(t *testing.T) {
	// Ten chained 50x50 float64 tensors (20000 bytes each) against an 8
	// KiB budget: every node exceeds the budget alone, so every node
	// must be marked (spec.md section 8 scenario 3, adapted to float64
	// sizing used throughout this module's demo tensors).
	leafVal := make([]float64, 50*50)
	for i := range leafVal {
		leafVal[i] = 1
	}
	prev := graph.NewLeaf("x0", t2.FromFloat64([]int{50, 50}, leafVal), true)
	var nodes []*graph.Node
	for i := 0; i < 10; i++ {
		n := mustOp(t, graph.ReLU, []*graph.Node{prev})
		nodes = append(nodes, n)
		prev = n
	}
	root := prev

	marked, err := checkpoint.Mark(root, checkpoint.Budget, checkpoint.Params{BudgetBytes: 8 * 1024})
	if err != nil {
		t.Fatalf("Mark: %v", err)
	}
	if marked != len(nodes) {
		t.Errorf("expected all %d interior nodes marked, got %d", len(nodes), marked)
	}
	for _, n := range nodes {
		if !n.IsCheckpoint {
			t.Errorf("node %s should be marked under a budget every node exceeds", n.Name())
		}
	}
}

func TestMarkBudgetRejectsZeroBudget(t *testing.T) {
	root, _, _ := buildChain(t)
	if _, err := checkpoint.Mark(root, checkpoint.Budget, checkpoint.Params{BudgetBytes: 0}); err == nil {
		t.Fatalf("expected ConfigInvalid for budget_bytes=0")
	}
}

func TestMarkSingleLeafGraphMarksNothing(t *testing.T) {
	leaf := graph.NewLeaf("x", t2.FromFloat64([]int{2}, []float64{1, 2}), false)
	marked, err := checkpoint.Mark(leaf, checkpoint.Uniform, checkpoint.Params{Interval: 1})
	if err != nil {
		t.Fatalf("Mark: %v", err)
	}
	if marked != 0 {
		t.Errorf("expected 0 marks on a single-leaf graph, got %d", marked)
	}
}

func TestMarkRootOnlyExpensiveOp(t *testing.T) {
	x := graph.NewLeaf("x", t2.FromFloat64([]int{2, 2}, []float64{1, 2, 3, 4}), true)
	w := graph.NewLeaf("w", t2.FromFloat64([]int{2, 2}, []float64{1, 0, 0, 1}), true)
	root := mustOp(t, graph.MatMul, []*graph.Node{x, w})

	for _, policy := range []checkpoint.Policy{checkpoint.Uniform, checkpoint.Adaptive, checkpoint.Budget} {
		root.IsCheckpoint = false
		params := checkpoint.Params{Interval: 1, BudgetBytes: 1}
		if _, err := checkpoint.Mark(root, policy, params); err != nil {
			t.Fatalf("Mark(%s): %v", policy, err)
		}
		if !root.IsCheckpoint {
			t.Errorf("policy %s: root-only graph must mark the root", policy)
		}
	}
}
