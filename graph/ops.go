// Package graph implements the minimal node/op substrate the
// checkpointing core consumes: a tagged forward-op enumeration, a node
// type carrying checkpoint annotations, and the plumbing (topological
// order, forward re-execution) the checkpoint package drives.
package graph

// Op tags a forward operator. Kept as a closed variant rather than an
// interface so the forward re-execution dispatch in dispatch.go can be
// a single table indexed by tag (see spec design note on dynamic
// dispatch): an unhandled Op is one missing table entry, not a type
// assertion scattered through the codebase.
type Op int

const (
	// Leaf marks a node with no inputs: a user-supplied parameter or
	// input tensor. Leaves are never deleted or checkpointed.
	Leaf Op = iota

	Add
	Sub
	Mul
	Div
	Neg

	ReLU
	Tanh
	Sigmoid
	LeakyReLU

	Transpose
	Reshape
	Sum

	MatMul
	Attention
	LayerNorm
	RMSNorm
	Softmax
	Exp
	Log
	Conv2D

	// Dropout is the only stochastic op in the table. It has no
	// ForwardEval dispatch entry, and the recompute engine refuses to
	// replay it.
	Dropout

	// Custom identifies an operator unknown to this module's dispatch
	// table. Its CustomName attribute carries the caller-supplied tag. Used
	// to exercise UnsupportedOpDuringRecompute without needing a real
	// unbounded op set.
	Custom
)

func (o Op) String() string {
	switch o {
	case Leaf:
		return "Leaf"
	case Add:
		return "Add"
	case Sub:
		return "Sub"
	case Mul:
		return "Mul"
	case Div:
		return "Div"
	case Neg:
		return "Neg"
	case ReLU:
		return "ReLU"
	case Tanh:
		return "Tanh"
	case Sigmoid:
		return "Sigmoid"
	case LeakyReLU:
		return "LeakyReLU"
	case Transpose:
		return "Transpose"
	case Reshape:
		return "Reshape"
	case Sum:
		return "Sum"
	case MatMul:
		return "MatMul"
	case Attention:
		return "Attention"
	case LayerNorm:
		return "LayerNorm"
	case RMSNorm:
		return "RMSNorm"
	case Softmax:
		return "Softmax"
	case Exp:
		return "Exp"
	case Log:
		return "Log"
	case Conv2D:
		return "Conv2D"
	case Dropout:
		return "Dropout"
	case Custom:
		return "Custom"
	default:
		return "Unknown"
	}
}

// Stochastic reports whether op's forward evaluation consumes RNG
// state, and therefore cannot be safely recomputed without a restored
// RNG hook (spec.md section 9, "RNG-state capture for stochastic ops").
func (o Op) Stochastic() bool {
	return o == Dropout
}

// expensiveOps is the oracle's checkpoint-preferred set. Every op not in
// it is cheap: cheap to recompute, so retaining its activation as a
// checkpoint wastes memory. See
// checkpoint/oracle.go for how this table is consumed.
var expensiveOps = map[Op]bool{
	MatMul:    true,
	Attention: true,
	LayerNorm: true,
	RMSNorm:   true,
	Softmax:   true,
	Exp:       true,
	Log:       true,
	Conv2D:    true,
}

// IsExpensive classifies op using the static cheap/expensive table from
// spec.md section 4.2. Leaf and Custom are never expensive by this
// table; a Custom op's cost is unknown to the oracle and defaults to
// cheap (advisory only — the placement policy may still select it by
// footprint).
func (o Op) IsExpensive() bool {
	return expensiveOps[o]
}

// Attrs carries the op-specific parameters a forward op needs beyond
// its input tensors (axis for Softmax, target dims for Reshape, a custom
// op's name).
// Zero value is valid for ops that need no attributes.
type Attrs struct {
	// Axis is consulted by Softmax.
	Axis int

	// Dims is consulted by Reshape.
	Dims []int

	// CustomName identifies a Custom op for error messages and the
	// dispatch-table lookup miss.
	CustomName string
}
