// Package ledger implements the vote ledger (C1): the incrementally
// maintained VoteTally derived from unspent outputs, and the 2% concentration
// cap (I2) enforced against it.
package ledger

import (
	"sync/atomic"

	"dposcore/core/types"
	"dposcore/observability/metrics"
)

// state is an immutable snapshot of the ledger's committed view. A new state
// is built copy-on-write from the previous one and published atomically, so
// readers never observe a partially applied block (§5).
type state struct {
	outputs     map[types.OutputID]types.UnspentOutput
	tally       types.VoteTally
	totalSupply uint64
}

func emptyState() *state {
	return &state{
		outputs: make(map[types.OutputID]types.UnspentOutput),
		tally:   make(types.VoteTally),
	}
}

func (s *state) clone() *state {
	out := &state{
		outputs:     make(map[types.OutputID]types.UnspentOutput, len(s.outputs)),
		tally:       make(types.VoteTally, len(s.tally)),
		totalSupply: s.totalSupply,
	}
	for k, v := range s.outputs {
		out.outputs[k] = v
	}
	for k, v := range s.tally {
		out.tally[k] = v
	}
	return out
}

// Snapshot is a read-only view of the ledger at a commit boundary. It is
// safe to hold and query concurrently with further block application: the
// underlying state is never mutated once published.
type Snapshot struct{ s *state }

// Net returns the net votes (positive - negative) for the given base
// delegate id.
func (s Snapshot) Net(id uint64) int64 {
	return s.s.tally[id].Net()
}

// Bucket returns the raw positive/negative bucket for the given base
// delegate id.
func (s Snapshot) Bucket(id uint64) types.VoteBucket {
	return s.s.tally[id]
}

// TotalSupply returns Σ of all live unspent output amounts (I1).
func (s Snapshot) TotalSupply() uint64 {
	return s.s.totalSupply
}

// Output returns the live output for id, if any.
func (s Snapshot) Output(id types.OutputID) (types.UnspentOutput, bool) {
	o, ok := s.s.outputs[id]
	return o, ok
}

// CapLimit returns the maximum net votes an eligible delegate may hold
// against the current total supply.
func (s Snapshot) CapLimit() int64 {
	return capLimit(s.s.totalSupply)
}

func capLimit(totalSupply uint64) int64 {
	return int64(float64(totalSupply) * types.VoteCap)
}

// Ledger is the copy-on-write vote ledger (C1). Reads go through Snapshot()
// and never block on a writer (§5). Callers building and committing a
// Builder must serialize that sequence themselves — the core Coordinator
// does this with the single write lock it shares across C1/C2/C3 (§5).
type Ledger struct {
	current atomic.Pointer[state]
}

// New returns an empty ledger.
func New() *Ledger {
	l := &Ledger{}
	l.current.Store(emptyState())
	return l
}

// Snapshot returns the current committed view.
func (l *Ledger) Snapshot() Snapshot {
	return Snapshot{s: l.current.Load()}
}

// Builder accumulates the effects of one block (or one admission check)
// against a cloned working copy. Nothing is visible to readers until
// Commit succeeds.
type Builder struct {
	ledger  *Ledger
	base    *state
	working *state
	touched map[uint64]struct{}
}

// NewBuilder clones the current committed state and returns a Builder ready
// to accumulate spends and creates. The caller must hold no assumption about
// exclusivity: callers that intend to Commit must serialize through the
// same write path (the core Coordinator owns this responsibility per §5).
func (l *Ledger) NewBuilder() *Builder {
	base := l.current.Load()
	return &Builder{
		ledger:  l,
		base:    base,
		working: base.clone(),
		touched: make(map[uint64]struct{}),
	}
}

// ApplySpend removes a live output and subtracts its amount from the
// appropriate vote bucket of |output.Vote| (C1 apply_spend).
func (b *Builder) ApplySpend(id types.OutputID) error {
	out, ok := b.working.outputs[id]
	if !ok {
		return ErrUnknownOutput
	}
	delete(b.working.outputs, id)
	base := out.Vote.Base()
	bucket := b.working.tally[base]
	if out.Vote.Polarity() >= 0 {
		bucket.Positive -= out.Amount
	} else {
		bucket.Negative -= out.Amount
	}
	b.working.tally[base] = bucket
	b.working.totalSupply -= out.Amount
	if base != 0 {
		b.touched[base] = struct{}{}
	}
	return nil
}

// ApplyCreate adds a new live output and its amount to the appropriate vote
// bucket of |output.Vote| (C1 apply_create).
func (b *Builder) ApplyCreate(out types.UnspentOutput) error {
	if _, exists := b.working.outputs[out.ID]; exists {
		return ErrOutputExists
	}
	b.working.outputs[out.ID] = out
	base := out.Vote.Base()
	bucket := b.working.tally[base]
	if out.Vote.Polarity() >= 0 {
		bucket.Positive += out.Amount
	} else {
		bucket.Negative += out.Amount
	}
	b.working.tally[base] = bucket
	b.working.totalSupply += out.Amount
	if base != 0 {
		b.touched[base] = struct{}{}
	}
	return nil
}

// Net returns the projected net votes for id in the working state.
func (b *Builder) Net(id uint64) int64 {
	return b.working.tally[id].Net()
}

// TotalSupply returns the working total supply.
func (b *Builder) TotalSupply() uint64 {
	return b.working.totalSupply
}

// WouldExceedCap reports whether any delegate touched so far in this
// builder (plus any explicitly named in extra) has projected net votes
// exceeding VoteCap of the working total supply.
func (b *Builder) WouldExceedCap(extra ...uint64) bool {
	limit := capLimit(b.working.totalSupply)
	for id := range b.touched {
		if b.working.tally[id].Net() > limit {
			return true
		}
	}
	for _, id := range extra {
		if b.working.tally[id].Net() > limit {
			return true
		}
	}
	return false
}

// Commit validates the 2% cap (I2) against every delegate touched during
// this builder's lifetime and, if it holds, atomically publishes the
// working state. On failure the ledger is left entirely unchanged — no
// partial state is ever observable (§5 cancellation).
func (b *Builder) Commit() (Snapshot, error) {
	if b.WouldExceedCap() {
		metrics.Ledger().ObserveCapRejected()
		return Snapshot{}, ErrCapExceeded
	}
	b.ledger.current.Store(b.working)
	metrics.Ledger().ObserveCommit(b.working.totalSupply, len(b.working.outputs))
	return Snapshot{s: b.working}, nil
}

// Discard abandons the builder without publishing anything. Equivalent to
// simply not calling Commit, provided for readability at call sites.
func (b *Builder) Discard() {}
