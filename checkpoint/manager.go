package checkpoint

import (
	"github.com/samuelfneumann/gockpt/graph"
	"github.com/samuelfneumann/gockpt/internal/logging"
	"github.com/samuelfneumann/gockpt/rng"
)

// Config configures a Manager's placement policy and its options,
// following the teacher's plain exported-struct convention
// (agent/nonlinear/discrete/deepq.Config) rather than a flags or YAML
// layer — a CheckpointManager is constructed with a literal the way the
// teacher's own main.go constructs its agent configs.
type Config struct {
	Policy      Policy
	Interval    int    // Uniform only
	BudgetBytes uint64 // Budget only
	Verbose     bool

	// SaveRNG opts into deleting stochastic-op values. It has no effect
	// unless the Manager also has an rng.Hook attached via SetRNGHook: a
	// stochastic op is only ever deleted when both are present, so
	// StochasticOpOnDeletedPath is the default outcome for a Manager with
	// no RNG plumbing, not a silently wrong recompute later.
	SaveRNG bool
}

// Validate reports a ConfigInvalid error for out-of-range fields
// (spec.md section 7).
func (c Config) Validate() error {
	switch c.Policy {
	case Manual, Uniform, Adaptive, Budget:
	default:
		return newErr(ConfigInvalidKind, nil, "unknown policy")
	}
	if c.Policy == Uniform && c.Interval <= 0 {
		return newErr(ConfigInvalidKind, nil, "interval must be positive for Uniform policy")
	}
	if c.Policy == Budget && c.BudgetBytes == 0 {
		return newErr(ConfigInvalidKind, nil, "budget_bytes must be positive for Budget policy")
	}
	return nil
}

// Stats reports a Manager's activity since it was created or last
// reset with ResetStats: MarkedCount, BytesFreed and RecomputeCount
// accumulate across calls, while DeletedCount is the number of deleted
// nodes reachable from the root passed to the most recent
// DeleteUnmarked.
type Stats struct {
	MarkedCount    int
	DeletedCount   int
	BytesFreed     uint64
	RecomputeCount int
}

// Manager is the user-facing orchestration facade (spec.md section 4.7,
// component C7): policy selection, analyze_and_mark, delete_unmarked,
// and stats, scoped to one training step the way the teacher scopes a
// NeuralNet to one gorgonia.ExprGraph. A Manager holds no global state
// and is safe to construct fresh per step or reuse with stats reset.
type Manager struct {
	cfg     Config
	stats   Stats
	rngHook *rng.Hook
}

// NewManager validates cfg and returns a Manager configured to use it.
func NewManager(cfg Config) (*Manager, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Manager{cfg: cfg}, nil
}

// SetPolicy changes the active placement policy.
func (m *Manager) SetPolicy(p Policy) { m.cfg.Policy = p }

// SetInterval changes the Uniform policy's interval.
func (m *Manager) SetInterval(k int) { m.cfg.Interval = k }

// SetBudget changes the Budget policy's byte ceiling.
func (m *Manager) SetBudget(b uint64) { m.cfg.BudgetBytes = b }

// SetRNGHook attaches the RNG source registry a future stochastic-op
// recompute would restore from. A stochastic op's value is only ever
// released by DeleteUnmarked when both SaveRNG is set and a hook is
// attached here; deleting it without one would make Recompute's refusal
// the only thing standing between a release and a silently different
// sample on replay.
func (m *Manager) SetRNGHook(h *rng.Hook) { m.rngHook = h }

// AnalyzeAndMark dispatches to the configured placement strategy. In
// Manual mode this is a documented no-op: the caller marks nodes
// individually with Checkpoint.
func (m *Manager) AnalyzeAndMark(root *graph.Node) error {
	if err := m.cfg.Validate(); err != nil {
		return err
	}
	if m.cfg.Policy == Manual {
		return nil
	}

	count, err := Mark(root, m.cfg.Policy, Params{
		Interval:    m.cfg.Interval,
		BudgetBytes: m.cfg.BudgetBytes,
	})
	if err != nil {
		return err
	}
	m.stats.MarkedCount += count
	if m.cfg.Verbose {
		logging.Event("checkpoint: marked %d node(s) under %s policy", count, m.cfg.Policy)
	}
	return nil
}

// DeleteUnmarked releases the values of unmarked interior nodes and
// records the bytes freed in Stats.
func (m *Manager) DeleteUnmarked(root *graph.Node) (uint64, error) {
	freed, err := DeleteUnmarked(root, m.cfg.SaveRNG && m.rngHook != nil)
	m.stats.BytesFreed += freed
	m.stats.DeletedCount = countDeleted(root)
	if err != nil {
		return freed, err
	}
	if m.cfg.Verbose {
		logging.Event("checkpoint: freed %d byte(s)", freed)
	}
	return freed, nil
}

// EnsureLive delegates to the C6 hook of the same name, counting
// recomputes it triggers.
func (m *Manager) EnsureLive(n *graph.Node) error {
	wasDeleted := n.ValueDeleted
	if err := EnsureLive(n); err != nil {
		return err
	}
	if wasDeleted {
		m.stats.RecomputeCount++
		if m.cfg.Verbose {
			logging.Event("checkpoint: recomputed %s", n.Name())
		}
	}
	return nil
}

// EnsureInputsLive delegates to the C6 hook of the same name, counting
// recomputes it triggers.
func (m *Manager) EnsureInputsLive(n *graph.Node) error {
	for _, in := range n.Inputs {
		if in.ValueDeleted {
			if err := m.EnsureLive(in); err != nil {
				return err
			}
		}
	}
	return nil
}

// Stats returns a snapshot of the manager's accumulated statistics.
func (m *Manager) Stats() Stats { return m.stats }

// ResetStats zeroes the accumulated statistics, for reuse across
// training steps.
func (m *Manager) ResetStats() { m.stats = Stats{} }

func countDeleted(root *graph.Node) int {
	n := 0
	for node := range graph.Reachable(root) {
		if node.ValueDeleted {
			n++
		}
	}
	return n
}
