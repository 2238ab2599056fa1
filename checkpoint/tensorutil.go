package checkpoint

import (
	t "github.com/samuelfneumann/gockpt/tensor"
	gt "gorgonia.org/tensor"
)

// dtypeLike is a local alias kept narrow on purpose: the only
// gorgonia.org/tensor symbol zero_grad needs is the dtype tag itself.
type dtypeLike = gt.Dtype

var defaultDtype = gt.Float64

// newZeroDense allocates a zero-filled dense tensor of the given shape
// and dtype, the same construction gorgonia.org/tensor.New performs for
// a freshly allocated gradient buffer.
func newZeroDense(dims []int, dt dtypeLike) (*t.Dense, error) {
	shape := gt.Shape(append([]int(nil), dims...))
	return gt.New(gt.WithShape(shape...), gt.Of(dt)), nil
}
