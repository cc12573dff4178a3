// Package wallet implements the wallet vote selector (C6): per-transaction
// vote target and input selection driven by a wallet's local trust policy
// and observed delegate scores (§4.6), layered on top of the core's public
// read paths (ranking, ledger snapshot, score observer).
package wallet

import (
	"sort"
	"time"

	"dposcore/core/ledger"
	"dposcore/core/ranking"
	"dposcore/core/types"
	"dposcore/native/score"
)

// observedCapFraction is the 1% ceiling §4.6 rule 3 applies when picking a
// vote target from the observed set, distinct from the 2% consensus cap
// (types.VoteCap) enforced at commit time.
const observedCapFraction = 0.01

// inactivityThreshold is the output age past which a vote is proactively
// refreshed (§4.6 rule 3 of input selection): the renewal period less the
// grace window, i.e. 11 months when RENEWAL_PERIOD is one year and
// RENEWAL_GRACE is one month.
const inactivityThreshold = types.RenewalPeriod - types.RenewalGrace

// State is the wallet-local trust policy and observation set (§3 Wallet
// state). Observed delegates live in the Observer passed to NewSelector,
// not here.
type State struct {
	Trusted    map[uint64]struct{}
	Distrusted map[uint64]struct{}
}

// Selector picks a vote target and input set for one outgoing transaction.
// It never mutates core state — every decision is a read against the
// current committed ranking/ledger snapshot, with a final would-exceed-cap
// check against the live ledger before a target is returned.
type Selector struct {
	ledger   *ledger.Ledger
	ranking  *ranking.Ranking
	observer *score.Observer
	state    State
}

// NewSelector constructs a Selector. ranking and ledger are normally
// Coordinator.Ranking() and the Coordinator's underlying ledger as of the
// wallet's last observed commit.
func NewSelector(l *ledger.Ledger, r *ranking.Ranking, observer *score.Observer, state State) *Selector {
	return &Selector{ledger: l, ranking: r, observer: observer, state: state}
}

// ChooseVoteTarget applies the §4.6 rule order, skipping any candidate whose
// would_exceed_cap projection fails and falling through to the next rule
// (§4.6 final paragraph).
func (s *Selector) ChooseVoteTarget() (types.DelegateID, error) {
	if target, ok := s.distrustTarget(); ok && !s.wouldExceedCap(target) {
		return target, nil
	}
	if target, ok := s.trustedTarget(); ok && !s.wouldExceedCap(target) {
		return target, nil
	}
	if target, ok := s.observedTarget(); ok && !s.wouldExceedCap(target) {
		return target, nil
	}
	return 0, ErrNoVoteTarget
}

// distrustTarget implements rule 1: the first (i.e. most strongly ranked)
// member of Distrusted within top(200), voted against.
func (s *Selector) distrustTarget() (types.DelegateID, bool) {
	for _, id := range s.ranking.Top(200) {
		if _, ok := s.state.Distrusted[id.Base()]; ok {
			return types.WithPolarity(id.Base(), false), true
		}
	}
	return 0, false
}

// trustedTarget implements rule 2. The spec text names "lowest current
// rank" but its own worked example (spec.md §8 Scenario 4: trusted at
// rank=5 and rank=80, no distrust in top(200), vote goes to rank=80) votes
// for the *weakest* ranked ally — the one furthest from rank 0 — matching
// the parenthetical "helps the weakest ally". This implementation follows
// the worked example: among ranked trusted delegates, pick the one with the
// largest rank index.
func (s *Selector) trustedTarget() (types.DelegateID, bool) {
	worstRank := -1
	var chosen uint64
	found := false
	ids := make([]uint64, 0, len(s.state.Trusted))
	for id := range s.state.Trusted {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	for _, id := range ids {
		rank, ok := s.ranking.RankOf(id)
		if !ok {
			continue
		}
		if rank > worstRank {
			worstRank = rank
			chosen = id
			found = true
		}
	}
	if !found {
		return 0, false
	}
	return types.WithPolarity(chosen, true), true
}

// observedTarget implements rule 3: the observed delegate with the highest
// local score whose net votes remain below 1% of total supply.
func (s *Selector) observedTarget() (types.DelegateID, bool) {
	snap := s.ledger.Snapshot()
	threshold := int64(float64(snap.TotalSupply()) * observedCapFraction)
	scores := s.observer.Scores()

	ids := make([]uint64, 0, len(scores))
	for id := range scores {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	bestScore := -1.0
	var chosen uint64
	found := false
	for _, id := range ids {
		if snap.Net(id) >= threshold {
			continue
		}
		if sc := scores[id]; sc > bestScore {
			bestScore = sc
			chosen = id
			found = true
		}
	}
	if !found {
		return 0, false
	}
	return types.WithPolarity(chosen, true), true
}

// wouldExceedCap checks a candidate positive-polarity target against the
// live ledger's current cap limit (§4.6 final paragraph). A negative
// (against) vote only ever reduces a delegate's net votes, so it can never
// trip the cap.
func (s *Selector) wouldExceedCap(target types.DelegateID) bool {
	if target.Polarity() <= 0 {
		return false
	}
	snap := s.ledger.Snapshot()
	return snap.Net(target.Base()) >= snap.CapLimit()
}

// SelectInputs applies the §4.6 input-selection rules over a wallet's owned
// unspent outputs: every distrusted-voting output is included unconditionally
// (rule 1), every output older than inactivityThreshold is proactively
// included (rule 3), and remaining candidates are added oldest-first until
// target is met (rule 2). It returns the selected output ids and their total
// amount.
func SelectInputs(owned []types.UnspentOutput, state State, height uint64, blockInterval time.Duration, target uint64) ([]types.OutputID, uint64) {
	included := make(map[types.OutputID]bool, len(owned))
	var ids []types.OutputID
	var sum uint64
	add := func(o types.UnspentOutput) {
		if included[o.ID] {
			return
		}
		included[o.ID] = true
		ids = append(ids, o.ID)
		sum += o.Amount
	}

	var forced, rest []types.UnspentOutput
	for _, o := range owned {
		base := o.Vote.Base()
		if _, distrusted := state.Distrusted[base]; distrusted && base != 0 {
			forced = append(forced, o)
		} else {
			rest = append(rest, o)
		}
	}
	byOldestFirst := func(xs []types.UnspentOutput) {
		sort.Slice(xs, func(i, j int) bool {
			return xs[i].AgeInBlocks(height) > xs[j].AgeInBlocks(height)
		})
	}
	byOldestFirst(forced)
	for _, o := range forced {
		add(o)
	}

	byOldestFirst(rest)
	thresholdBlocks := blocksFor(inactivityThreshold, blockInterval)
	var remaining []types.UnspentOutput
	for _, o := range rest {
		if o.AgeInBlocks(height) >= thresholdBlocks {
			add(o)
		} else {
			remaining = append(remaining, o)
		}
	}

	for _, o := range remaining {
		if sum >= target {
			break
		}
		add(o)
	}

	return ids, sum
}

func blocksFor(d time.Duration, blockInterval time.Duration) uint64 {
	if blockInterval <= 0 {
		return 0
	}
	return uint64(d / blockInterval)
}
