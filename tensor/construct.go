package tensor

import gt "gorgonia.org/tensor"

// Ones allocates a float64 dense tensor of the given shape filled with
// 1.0 — used to seed the output gradient of a backward pass the way
// most reverse-mode engines seed dL/dy = 1 at the root.
func Ones(dims []int) *Dense {
	n := int(NumElements(dims))
	backing := make([]float64, n)
	for i := range backing {
		backing[i] = 1
	}
	return gt.New(gt.WithShape(dims...), gt.WithBacking(backing))
}

// Zeros allocates a float64 dense tensor of the given shape filled with
// zero.
func Zeros(dims []int) *Dense {
	n := int(NumElements(dims))
	return gt.New(gt.WithShape(dims...), gt.WithBacking(make([]float64, n)))
}

// FromFloat64 wraps a flat float64 slice as a dense tensor with the
// given shape, the same convention the teacher's own fixtures use when
// building small test tensors by hand.
func FromFloat64(dims []int, data []float64) *Dense {
	return gt.New(gt.WithShape(dims...), gt.WithBacking(data))
}
