package checkpoint_test

import (
	"testing"

	"github.com/samuelfneumann/gockpt/graph"
	t "github.com/samuelfneumann/gockpt/tensor"
)

// buildChain constructs the 7-node chain from spec.md section 8
// scenario 1: leaf x; n1 = x+1; n2 = n1*2; n3 = n2+1; n4 = n3*2; n5 =
// sum(n4); root = n5.
func buildChain(tb testing.TB) (root *graph.Node, x *graph.Node, nodes []*graph.Node) {
	tb.Helper()

	xVal := t.FromFloat64([]int{2, 2}, []float64{1, 2, 3, 4})
	x = graph.NewLeaf("x", xVal, true)

	one := graph.NewLeaf("one", t.FromFloat64([]int{2, 2}, []float64{1, 1, 1, 1}), false)
	two := graph.NewLeaf("two", t.FromFloat64([]int{2, 2}, []float64{2, 2, 2, 2}), false)

	n1 := mustOp(tb, graph.Add, []*graph.Node{x, one})
	n2 := mustOp(tb, graph.Mul, []*graph.Node{n1, two})
	n3 := mustOp(tb, graph.Add, []*graph.Node{n2, one})
	n4 := mustOp(tb, graph.Mul, []*graph.Node{n3, two})
	n5 := mustOpAttrs(tb, graph.Sum, []*graph.Node{n4}, graph.Attrs{})

	return n5, x, []*graph.Node{n1, n2, n3, n4, n5}
}

func mustOp(tb testing.TB, op graph.Op, inputs []*graph.Node) *graph.Node {
	return mustOpAttrs(tb, op, inputs, graph.Attrs{})
}

func mustOpAttrs(tb testing.TB, op graph.Op, inputs []*graph.Node, attrs graph.Attrs) *graph.Node {
	tb.Helper()
	values := make([]*t.Dense, len(inputs))
	for i, in := range inputs {
		values[i] = in.Value
	}
	val, err := graph.ForwardEval(op, values, attrs)
	if err != nil {
		tb.Fatalf("forward eval %s: %v", op, err)
	}
	return graph.NewOp(op, inputs, attrs, val)
}

// buildMLP constructs the 2-layer MLP from spec.md section 8 scenario
// 2: h1 = matmul(x, w1); h2 = relu(h1); y = sum(matmul(h2, w2)).
func buildMLP(tb testing.TB) (root, x, w1, w2, h1, h2 *graph.Node) {
	tb.Helper()

	xVal := t.FromFloat64([]int{2, 3}, []float64{1, 2, 3, 4, 5, 6})
	w1Val := t.FromFloat64([]int{3, 4}, []float64{
		0.1, 0.2, 0.3, 0.4,
		0.5, 0.6, 0.7, 0.8,
		0.9, 1.0, 1.1, 1.2,
	})
	w2Val := t.FromFloat64([]int{4, 1}, []float64{0.1, -0.2, 0.3, -0.4})

	x = graph.NewLeaf("x", xVal, false)
	w1 = graph.NewLeaf("w1", w1Val, true)
	w2 = graph.NewLeaf("w2", w2Val, true)

	h1 = mustOp(tb, graph.MatMul, []*graph.Node{x, w1})
	h2 = mustOp(tb, graph.ReLU, []*graph.Node{h1})
	m := mustOp(tb, graph.MatMul, []*graph.Node{h2, w2})
	root = mustOpAttrs(tb, graph.Sum, []*graph.Node{m}, graph.Attrs{})

	return root, x, w1, w2, h1, h2
}

func uniformTensorBytes(dims []int) uint64 {
	n := uint64(1)
	for _, d := range dims {
		n *= uint64(d)
	}
	return n * 8 // float64
}
