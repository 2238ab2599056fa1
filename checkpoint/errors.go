package checkpoint

import (
	"fmt"

	"github.com/pkg/errors"
	"github.com/samuelfneumann/gockpt/graph"
)

// Kind identifies one of the error categories spec.md section 7
// defines for the checkpointing core. All five are fatal to the
// backward pass that triggers them; none is retried automatically.
type Kind int

const (
	// NoCheckpointReachableKind: C5's backward BFS from a target
	// exhausted the target's inputs without finding a node whose value
	// is live. Indicates a placement that violates I4.
	NoCheckpointReachableKind Kind = iota

	// UnsupportedOpDuringRecomputeKind: a node on a replay path has an
	// op with no ForwardEval dispatch entry.
	UnsupportedOpDuringRecomputeKind

	// ShapeMismatchKind: a re-executed op produced a tensor whose shape
	// disagrees with the node's CachedShape.
	ShapeMismatchKind

	// StochasticOpOnDeletedPathKind: a stochastic op would be deleted
	// without RNG state being saved, or sits on a replay path (the
	// recompute engine never replays a stochastic op).
	StochasticOpOnDeletedPathKind

	// ConfigInvalidKind: a CheckpointManager configuration value is out
	// of its valid range.
	ConfigInvalidKind
)

func (k Kind) String() string {
	switch k {
	case NoCheckpointReachableKind:
		return "NoCheckpointReachable"
	case UnsupportedOpDuringRecomputeKind:
		return "UnsupportedOpDuringRecompute"
	case ShapeMismatchKind:
		return "ShapeMismatch"
	case StochasticOpOnDeletedPathKind:
		return "StochasticOpOnDeletedPath"
	case ConfigInvalidKind:
		return "ConfigInvalid"
	default:
		return "Unknown"
	}
}

// Error wraps one of the five checkpointing error kinds with the node
// identity needed to diagnose it, following the teacher's convention of
// naming the failing function in the error text (network/FullyConnected.go's
// "gobdecode: ..." messages) rather than relying solely on a type switch.
type Error struct {
	Kind Kind
	Node *graph.Node
	msg  string
	err  error
}

func (e *Error) Error() string {
	if e.err != nil {
		return fmt.Sprintf("checkpoint: %s: %s: %v", e.Kind, e.msg, e.err)
	}
	return fmt.Sprintf("checkpoint: %s: %s", e.Kind, e.msg)
}

func (e *Error) Unwrap() error { return e.err }

// Is allows errors.Is(err, checkpoint.NoCheckpointReachable) style
// checks against one of the Kind sentinels declared below, without
// comparing node identity.
func (e *Error) Is(target error) bool {
	other, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Kind == other.Kind
}

func newErr(kind Kind, node *graph.Node, msg string) *Error {
	return &Error{Kind: kind, Node: node, msg: msg}
}

func wrapErr(kind Kind, node *graph.Node, msg string, cause error) *Error {
	return &Error{Kind: kind, Node: node, msg: msg, err: errors.WithStack(cause)}
}

// NoCheckpointReachable is a sentinel usable with errors.Is to test for
// the NoCheckpointReachableKind without a node identity.
var NoCheckpointReachable = &Error{Kind: NoCheckpointReachableKind}

// UnsupportedOpDuringRecompute is the UnsupportedOpDuringRecomputeKind sentinel.
var UnsupportedOpDuringRecompute = &Error{Kind: UnsupportedOpDuringRecomputeKind}

// ShapeMismatch is the ShapeMismatchKind sentinel.
var ShapeMismatch = &Error{Kind: ShapeMismatchKind}

// StochasticOpOnDeletedPath is the StochasticOpOnDeletedPathKind sentinel.
var StochasticOpOnDeletedPath = &Error{Kind: StochasticOpOnDeletedPathKind}

// ConfigInvalid is the ConfigInvalidKind sentinel.
var ConfigInvalid = &Error{Kind: ConfigInvalidKind}
