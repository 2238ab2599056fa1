// Package autodiff is the thin, structural stand-in spec.md section 1
// treats as an external collaborator: "the reverse-mode engine itself
// (topological ordering, vector-Jacobian products, gradient
// accumulation)". The checkpointing core does not depend on this
// package; this package depends on the core, calling its C6 hooks the
// way a full autodiff engine would, so the core's gradient-equality
// properties (spec.md section 8) can be exercised end-to-end rather
// than asserted against a mock.
package autodiff

import (
	"fmt"

	"github.com/samuelfneumann/gockpt/graph"
	t "github.com/samuelfneumann/gockpt/tensor"
	gt "gorgonia.org/tensor"
)

// VJP computes the vector-Jacobian product of n's forward op: given the
// gradient flowing into n's output, it returns the gradient with
// respect to each of n's inputs, in input order.
func VJP(n *graph.Node, gradOutput *t.Dense) ([]*t.Dense, error) {
	switch n.Op {
	case graph.Add:
		return []*t.Dense{gradOutput, gradOutput}, nil

	case graph.Sub:
		negGrad, err := unary(gt.Neg, gradOutput)
		if err != nil {
			return nil, err
		}
		return []*t.Dense{gradOutput, negGrad}, nil

	case graph.Mul:
		a, b := n.Inputs[0].Value, n.Inputs[1].Value
		da, err := binary(gt.Mul, gradOutput, b)
		if err != nil {
			return nil, err
		}
		db, err := binary(gt.Mul, gradOutput, a)
		if err != nil {
			return nil, err
		}
		return []*t.Dense{da, db}, nil

	case graph.Div:
		a, b := n.Inputs[0].Value, n.Inputs[1].Value
		da, err := binary(gt.Div, gradOutput, b)
		if err != nil {
			return nil, err
		}
		bSq, err := binary(gt.Mul, b, b)
		if err != nil {
			return nil, err
		}
		aOverBSq, err := binary(gt.Div, a, bSq)
		if err != nil {
			return nil, err
		}
		dbUnsigned, err := binary(gt.Mul, gradOutput, aOverBSq)
		if err != nil {
			return nil, err
		}
		db, err := unary(gt.Neg, dbUnsigned)
		if err != nil {
			return nil, err
		}
		return []*t.Dense{da, db}, nil

	case graph.Neg:
		da, err := unary(gt.Neg, gradOutput)
		if err != nil {
			return nil, err
		}
		return []*t.Dense{da}, nil

	case graph.MatMul:
		a, b := n.Inputs[0].Value, n.Inputs[1].Value
		bT, err := transposed(b)
		if err != nil {
			return nil, err
		}
		aT, err := transposed(a)
		if err != nil {
			return nil, err
		}
		da, err := matmul(gradOutput, bT)
		if err != nil {
			return nil, err
		}
		db, err := matmul(aT, gradOutput)
		if err != nil {
			return nil, err
		}
		return []*t.Dense{da, db}, nil

	case graph.ReLU:
		a := n.Inputs[0].Value
		maskOut, err := a.Clone().(*t.Dense).Apply(func(x float64) float64 {
			if x > 0 {
				return 1
			}
			return 0
		}, gt.UseUnsafe())
		if err != nil {
			return nil, fmt.Errorf("autodiff: ReLU backward: %w", err)
		}
		mask, ok := maskOut.(*t.Dense)
		if !ok {
			return nil, fmt.Errorf("autodiff: ReLU backward: unexpected result type %T", maskOut)
		}
		da, err := binary(gt.Mul, gradOutput, mask)
		if err != nil {
			return nil, err
		}
		return []*t.Dense{da}, nil

	case graph.Tanh:
		y := n.Value // tanh(a), already computed by the forward pass
		ySq, err := binary(gt.Mul, y, y)
		if err != nil {
			return nil, err
		}
		oneMinusYSq, err := unary(func(x gt.Tensor, opts ...gt.FuncOpt) (gt.Tensor, error) {
			return gt.Sub(onesLike(x), x)
		}, ySq)
		if err != nil {
			return nil, err
		}
		da, err := binary(gt.Mul, gradOutput, oneMinusYSq)
		if err != nil {
			return nil, err
		}
		return []*t.Dense{da}, nil

	case graph.Sigmoid:
		y := n.Value
		oneMinusY, err := unary(func(x gt.Tensor, opts ...gt.FuncOpt) (gt.Tensor, error) {
			return gt.Sub(onesLike(x), x)
		}, y)
		if err != nil {
			return nil, err
		}
		yTimesOneMinusY, err := binary(gt.Mul, y, oneMinusY)
		if err != nil {
			return nil, err
		}
		da, err := binary(gt.Mul, gradOutput, yTimesOneMinusY)
		if err != nil {
			return nil, err
		}
		return []*t.Dense{da}, nil

	case graph.Exp:
		y := n.Value // exp(a)
		da, err := binary(gt.Mul, gradOutput, y)
		if err != nil {
			return nil, err
		}
		return []*t.Dense{da}, nil

	case graph.Log:
		a := n.Inputs[0].Value
		da, err := binary(gt.Div, gradOutput, a)
		if err != nil {
			return nil, err
		}
		return []*t.Dense{da}, nil

	case graph.Sum:
		// graph.ForwardEval's Sum dispatch entry always performs a full
		// reduction to a scalar (graph/dispatch.go), so broadcasting
		// gradOutput's single value across every element of a's shape is
		// its exact adjoint; this VJP does not support a partial-axis sum.
		a := n.Inputs[0].Value
		da, err := broadcastTo(gradOutput, a.Shape())
		if err != nil {
			return nil, err
		}
		return []*t.Dense{da}, nil

	case graph.Transpose:
		da, err := transposed(gradOutput)
		if err != nil {
			return nil, err
		}
		return []*t.Dense{da}, nil

	default:
		return nil, fmt.Errorf("autodiff: no VJP registered for op %s", n.Op)
	}
}

func binary(fn func(a, b gt.Tensor, opts ...gt.FuncOpt) (gt.Tensor, error), a, b *t.Dense) (*t.Dense, error) {
	out, err := fn(a, b)
	if err != nil {
		return nil, fmt.Errorf("autodiff: binary op: %w", err)
	}
	dense, ok := out.(*t.Dense)
	if !ok {
		return nil, fmt.Errorf("autodiff: binary op: unexpected result type %T", out)
	}
	return dense, nil
}

func unary(fn func(a gt.Tensor, opts ...gt.FuncOpt) (gt.Tensor, error), a *t.Dense) (*t.Dense, error) {
	out, err := fn(a)
	if err != nil {
		return nil, fmt.Errorf("autodiff: unary op: %w", err)
	}
	dense, ok := out.(*t.Dense)
	if !ok {
		return nil, fmt.Errorf("autodiff: unary op: unexpected result type %T", out)
	}
	return dense, nil
}

func transposed(x *t.Dense) (*t.Dense, error) {
	cloned, ok := x.Clone().(*t.Dense)
	if !ok {
		return nil, fmt.Errorf("autodiff: transpose: clone did not yield a dense tensor")
	}
	if err := cloned.T(); err != nil {
		return nil, fmt.Errorf("autodiff: transpose: %w", err)
	}
	if err := cloned.Transpose(); err != nil {
		return nil, fmt.Errorf("autodiff: transpose: %w", err)
	}
	return cloned, nil
}

func matmul(a, b *t.Dense) (*t.Dense, error) {
	out, err := gt.MatMul(a, b)
	if err != nil {
		return nil, fmt.Errorf("autodiff: matmul: %w", err)
	}
	dense, ok := out.(*t.Dense)
	if !ok {
		return nil, fmt.Errorf("autodiff: matmul: unexpected result type %T", out)
	}
	return dense, nil
}

func onesLike(x gt.Tensor) *t.Dense {
	return t.Ones(append([]int(nil), x.Shape()...))
}

// broadcastTo expands a reduced (e.g. scalar, from Sum) gradient back
// out to dims by repeating its value, the adjoint of a sum-reduction.
func broadcastTo(x *t.Dense, dims []int) (*t.Dense, error) {
	total := 1
	for _, d := range dims {
		total *= d
	}
	val := x.Data()
	var scalar float64
	switch v := val.(type) {
	case float64:
		scalar = v
	case []float64:
		for _, e := range v {
			scalar += e
		}
	default:
		return nil, fmt.Errorf("autodiff: broadcastTo: unsupported backing type %T", val)
	}
	backing := make([]float64, total)
	for i := range backing {
		backing[i] = scalar
	}
	return t.FromFloat64(dims, backing), nil
}
