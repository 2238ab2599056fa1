// Package tensor supplies the byte-accounting helpers the checkpoint
// core needs on top of gorgonia.org/tensor's *tensor.Dense, the same
// tensor type the teacher repository uses throughout network/ for
// weight and bias storage.
package tensor

import (
	"fmt"

	gt "gorgonia.org/tensor"
)

// Dense is the tensor value type the checkpointing core operates on.
// It is an alias, not a wrapper: nodes hold gorgonia tensors directly,
// so forward ops and the recomputation dispatch never need to
// translate between types.
type Dense = gt.Dense

// BytesPerElement returns the number of bytes a single element of dt
// occupies. An unrecognized dtype is a hard error — spec.md section
// 4.1 requires the footprint pass to fail rather than silently assume
// a size.
func BytesPerElement(dt gt.Dtype) (uint64, error) {
	switch dt {
	case gt.Float32:
		return 4, nil
	case gt.Float64:
		return 8, nil
	case gt.Int, gt.Uint, gt.Int64, gt.Uint64:
		return 8, nil
	case gt.Int32, gt.Uint32:
		return 4, nil
	case gt.Int16, gt.Uint16:
		return 2, nil
	case gt.Int8, gt.Uint8, gt.Bool:
		return 1, nil
	default:
		return 0, fmt.Errorf("tensor: unknown dtype %v: cannot size element", dt)
	}
}

// NumElements returns the product of a shape's dimensions, with the
// rank-0 convention that an empty shape has exactly one element (spec.md
// section 4.1's rank-0 edge case).
func NumElements(dims []int) uint64 {
	n := uint64(1)
	for _, d := range dims {
		n *= uint64(d)
	}
	return n
}

// Bytes returns the total byte footprint of a tensor with the given
// shape and dtype.
func Bytes(dims []int, dt gt.Dtype) (uint64, error) {
	perElem, err := BytesPerElement(dt)
	if err != nil {
		return 0, err
	}
	return NumElements(dims) * perElem, nil
}
