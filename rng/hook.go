// Package rng defines the RNG-state capture/restore hook spec.md
// section 9 reserves for stochastic-op recomputation (Dropout and
// similar ops). Deterministic replay of stochastic ops is a non-goal of
// this module (spec.md section 1); this package exists so a future
// implementation has a seam to plug into without reopening the
// checkpoint package's API, and so the current implementation has
// something concrete to check the absence of.
package rng

import "golang.org/x/exp/rand"

// Source captures and restores the state of an RNG stream backing a
// stochastic forward op. It is built on golang.org/x/exp/rand.Source,
// the same RNG package the teacher imports in
// environment/wrappers/TileCoding_test.go, rather than the standard
// library's math/rand, since x/exp/rand's Source is what the rest of
// the retrieved corpus already standardizes on for seeded,
// reproducible sampling.
type Source interface {
	rand.Source

	// State returns an opaque snapshot of the stream's current
	// position, taken immediately before a stochastic op consumes it.
	State() []byte

	// Restore rewinds the stream to a snapshot previously returned by
	// State.
	Restore(state []byte) error
}

// Hook holds the RNG sources registered for stochastic ops, keyed by
// node name. The checkpoint package only checks whether a Hook is
// attached to a Manager: Manager.DeleteUnmarked releases a stochastic
// op's value only when SaveRNG is set and a Hook is attached, and
// refuses otherwise. No registered Source is looked up or restored, and
// checkpoint.Recompute refuses to replay a stochastic op in every case
// rather than silently producing a different sample.
type Hook struct {
	sources map[string]Source
}

// NewHook returns an empty Hook.
func NewHook() *Hook {
	return &Hook{sources: make(map[string]Source)}
}

// Register associates an RNG source with the node name that will
// consume it.
func (h *Hook) Register(nodeName string, src Source) {
	h.sources[nodeName] = src
}

// Lookup returns the RNG source registered for nodeName, if any.
func (h *Hook) Lookup(nodeName string) (Source, bool) {
	src, ok := h.sources[nodeName]
	return src, ok
}
