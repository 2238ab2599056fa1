package checkpoint_test

import (
	"testing"

	"github.com/samuelfneumann/gockpt/checkpoint"
	"github.com/samuelfneumann/gockpt/graph"
	t2 "github.com/samuelfneumann/gockpt/tensor"
	gt "gorgonia.org/tensor"
)

func TestFootprintLeafIsAlwaysZero(t *testing.T) {
	leaf := graph.NewLeaf("x", t2.FromFloat64([]int{4, 4}, make([]float64, 16)), true)
	got, err := checkpoint.Footprint(leaf)
	if err != nil {
		t.Fatalf("Footprint: %v", err)
	}
	if got != 0 {
		t.Errorf("leaf footprint: want 0, got %d", got)
	}
}

func TestFootprintCountsValueAndSavedTensors(t *testing.T) {
	x := graph.NewLeaf("x", t2.FromFloat64([]int{2, 2}, []float64{1, 2, 3, 4}), false)
	n := mustOp(t, graph.ReLU, []*graph.Node{x})
	n.SavedTensors = []*t2.Dense{t2.FromFloat64([]int{2, 2}, []float64{1, 1, 1, 1})}

	got, err := checkpoint.Footprint(n)
	if err != nil {
		t.Fatalf("Footprint: %v", err)
	}
	want := uint64(4*8 + 4*8) // value + one saved tensor, float64
	if got != want {
		t.Errorf("Footprint: want %d, got %d", want, got)
	}
	if n.MemoryFootprint != got {
		t.Errorf("MemoryFootprint not cached: want %d, got %d", got, n.MemoryFootprint)
	}
}

func TestFootprintAlreadyDeletedIsZero(t *testing.T) {
	x := graph.NewLeaf("x", t2.FromFloat64([]int{3}, []float64{1, 2, 3}), false)
	n := mustOp(t, graph.ReLU, []*graph.Node{x})
	n.ValueDeleted = true
	n.Value = nil

	got, err := checkpoint.Footprint(n)
	if err != nil {
		t.Fatalf("Footprint: %v", err)
	}
	if got != 0 {
		t.Errorf("deleted node footprint: want 0, got %d", got)
	}
}

func TestBytesRejectsUnknownDtype(t *testing.T) {
	_, err := t2.Bytes([]int{2, 2}, gt.Dtype{})
	if err == nil {
		t.Fatalf("expected an error for an unrecognized dtype")
	}
}

func TestBytesRankZeroIsOneElement(t *testing.T) {
	got, err := t2.Bytes(nil, gt.Float64)
	if err != nil {
		t.Fatalf("Bytes: %v", err)
	}
	if got != 8 {
		t.Errorf("rank-0 tensor footprint: want 8, got %d", got)
	}
}
