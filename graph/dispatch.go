package graph

import (
	"fmt"
	"math"

	t "github.com/samuelfneumann/gockpt/tensor"
	gt "gorgonia.org/tensor"
)

// ForwardEval is the side-effect-free forward re-execution primitive
// spec.md section 5 requires: given an op tag and already-materialized
// input tensors, it returns the tensor that op produces. This is the
// single table the recomputation engine (checkpoint/recompute.go)
// dispatches through; it is deliberately a plain switch over a closed
// tag set rather than virtual methods on Op, so an unsupported tag is
// one explicit branch (spec.md section 9).
func ForwardEval(op Op, inputs []*t.Dense, attrs Attrs) (*t.Dense, error) {
	switch op {
	case Add:
		return binary(gt.Add, inputs, "Add")
	case Sub:
		return binary(gt.Sub, inputs, "Sub")
	case Mul:
		return binary(gt.Mul, inputs, "Mul")
	case Div:
		return binary(gt.Div, inputs, "Div")
	case Neg:
		return unaryFn(inputs, "Neg", func(x float64) float64 { return -x })
	case ReLU:
		return unaryFn(inputs, "ReLU", func(x float64) float64 {
			if x < 0 {
				return 0
			}
			return x
		})
	case Tanh:
		return unaryFn(inputs, "Tanh", math.Tanh)
	case Sigmoid:
		return unaryFn(inputs, "Sigmoid", func(x float64) float64 {
			return 1 / (1 + math.Exp(-x))
		})
	case LeakyReLU:
		return unaryFn(inputs, "LeakyReLU", func(x float64) float64 {
			if x < 0 {
				return 0.01 * x
			}
			return x
		})
	case Exp:
		return unaryFn(inputs, "Exp", math.Exp)
	case Log:
		return unaryFn(inputs, "Log", math.Log)
	case Transpose:
		return transpose(inputs)
	case Reshape:
		return reshape(inputs, attrs)
	case Sum:
		return sum(inputs, attrs)
	case MatMul:
		return matmul(inputs)
	case Softmax:
		return softmax(inputs, attrs)
	case Custom:
		return nil, fmt.Errorf("graph: no forward dispatch entry for custom op %q", attrs.CustomName)
	default:
		return nil, fmt.Errorf("graph: no forward dispatch entry for op %s", op)
	}
}

func requireArity(inputs []*t.Dense, n int, op string) error {
	if len(inputs) != n {
		return fmt.Errorf("graph: %s expects %d input(s), got %d", op, n, len(inputs))
	}
	return nil
}

func binary(fn func(a, b gt.Tensor, opts ...gt.FuncOpt) (gt.Tensor, error), inputs []*t.Dense, name string) (*t.Dense, error) {
	if err := requireArity(inputs, 2, name); err != nil {
		return nil, err
	}
	out, err := fn(inputs[0], inputs[1])
	if err != nil {
		return nil, fmt.Errorf("graph: %s: %w", name, err)
	}
	dense, ok := out.(*t.Dense)
	if !ok {
		return nil, fmt.Errorf("graph: %s: unexpected result type %T", name, out)
	}
	return dense, nil
}

func unaryFn(inputs []*t.Dense, name string, fn func(float64) float64) (*t.Dense, error) {
	if err := requireArity(inputs, 1, name); err != nil {
		return nil, err
	}
	cloned, ok := inputs[0].Clone().(*t.Dense)
	if !ok {
		return nil, fmt.Errorf("graph: %s: clone did not yield a dense tensor", name)
	}
	out, err := cloned.Apply(fn, gt.UseUnsafe())
	if err != nil {
		return nil, fmt.Errorf("graph: %s: %w", name, err)
	}
	dense, ok := out.(*t.Dense)
	if !ok {
		return nil, fmt.Errorf("graph: %s: unexpected result type %T", name, out)
	}
	return dense, nil
}

func transpose(inputs []*t.Dense) (*t.Dense, error) {
	if err := requireArity(inputs, 1, "Transpose"); err != nil {
		return nil, err
	}
	cloned, ok := inputs[0].Clone().(*t.Dense)
	if !ok {
		return nil, fmt.Errorf("graph: Transpose: clone did not yield a dense tensor")
	}
	if err := cloned.T(); err != nil {
		return nil, fmt.Errorf("graph: Transpose: %w", err)
	}
	if err := cloned.Transpose(); err != nil {
		return nil, fmt.Errorf("graph: Transpose: %w", err)
	}
	return cloned, nil
}

func reshape(inputs []*t.Dense, attrs Attrs) (*t.Dense, error) {
	if err := requireArity(inputs, 1, "Reshape"); err != nil {
		return nil, err
	}
	cloned, ok := inputs[0].Clone().(*t.Dense)
	if !ok {
		return nil, fmt.Errorf("graph: Reshape: clone did not yield a dense tensor")
	}
	if err := cloned.Reshape(attrs.Dims...); err != nil {
		return nil, fmt.Errorf("graph: Reshape: %w", err)
	}
	return cloned, nil
}

// sum always reduces its input to a single scalar. The Sum op's VJP
// (autodiff/vjp.go) broadcasts the incoming gradient back across every
// element of the input, which is only the correct adjoint for a full
// reduction; a partial, per-axis Sum is not part of this module's
// supported op set, and attrs.Axis is unused here (Softmax's internal
// per-axis normalization sum does not go through this dispatch entry).
func sum(inputs []*t.Dense, attrs Attrs) (*t.Dense, error) {
	if err := requireArity(inputs, 1, "Sum"); err != nil {
		return nil, err
	}
	out, err := inputs[0].Sum()
	if err != nil {
		return nil, fmt.Errorf("graph: Sum: %w", err)
	}
	return out, nil
}

func matmul(inputs []*t.Dense) (*t.Dense, error) {
	if err := requireArity(inputs, 2, "MatMul"); err != nil {
		return nil, err
	}
	out, err := gt.MatMul(inputs[0], inputs[1])
	if err != nil {
		return nil, fmt.Errorf("graph: MatMul: %w", err)
	}
	dense, ok := out.(*t.Dense)
	if !ok {
		return nil, fmt.Errorf("graph: MatMul: unexpected result type %T", out)
	}
	return dense, nil
}

func softmax(inputs []*t.Dense, attrs Attrs) (*t.Dense, error) {
	if err := requireArity(inputs, 1, "Softmax"); err != nil {
		return nil, err
	}
	exp, err := unaryFn(inputs, "Softmax", math.Exp)
	if err != nil {
		return nil, err
	}
	denom, err := exp.Sum(attrs.Axis)
	if err != nil {
		return nil, fmt.Errorf("graph: Softmax: %w", err)
	}
	out, err := gt.Div(exp, denom)
	if err != nil {
		return nil, fmt.Errorf("graph: Softmax: %w", err)
	}
	dense, ok := out.(*t.Dense)
	if !ok {
		return nil, fmt.Errorf("graph: Softmax: unexpected result type %T", out)
	}
	return dense, nil
}
