// Package ranking implements the ranking index (C3): a sorted view over
// eligible delegates by net votes, with top-N queries.
package ranking

import (
	"sort"

	"dposcore/core/types"
)

// Entry pairs a delegate with its net votes at the time the Ranking was
// built.
type Entry struct {
	Delegate types.Delegate
	Net      int64
}

// Ranking is an immutable, deterministically ordered view over eligible
// delegates, keyed on (-net_votes, id, name) per §4.3.
type Ranking struct {
	order []Entry
	index map[uint64]int
}

// Build sorts eligible delegates by net votes descending, breaking ties by
// lower id first then lexicographic name (§3 RankedDelegates). netOf
// resolves the current net votes for a base delegate id, typically
// ledger.Snapshot.Net.
func Build(eligible []types.Delegate, netOf func(id uint64) int64) *Ranking {
	entries := make([]Entry, len(eligible))
	for i, d := range eligible {
		entries[i] = Entry{Delegate: d, Net: netOf(d.ID)}
	}
	sort.Slice(entries, func(i, j int) bool {
		a, b := entries[i], entries[j]
		if a.Net != b.Net {
			return a.Net > b.Net
		}
		if a.Delegate.ID != b.Delegate.ID {
			return a.Delegate.ID < b.Delegate.ID
		}
		return a.Delegate.Name < b.Delegate.Name
	})
	index := make(map[uint64]int, len(entries))
	for i, e := range entries {
		index[e.Delegate.ID] = i
	}
	return &Ranking{order: entries, index: index}
}

// RankOf returns the 0-indexed rank of id, and whether it was found at all
// (i.e. whether it is currently eligible and ranked).
func (r *Ranking) RankOf(id uint64) (int, bool) {
	i, ok := r.index[id]
	return i, ok
}

// Top returns the first n ranked delegate ids, fewer if the ranking is
// smaller than n.
func (r *Ranking) Top(n int) []types.DelegateID {
	if n > len(r.order) {
		n = len(r.order)
	}
	out := make([]types.DelegateID, n)
	for i := 0; i < n; i++ {
		out[i] = types.DelegateID(r.order[i].Delegate.ID)
	}
	return out
}

// At returns the entry at the given 0-indexed rank.
func (r *Ranking) At(rank int) (Entry, bool) {
	if rank < 0 || rank >= len(r.order) {
		return Entry{}, false
	}
	return r.order[rank], true
}

// Len reports the number of ranked delegates.
func (r *Ranking) Len() int { return len(r.order) }
