package ranking

import (
	"testing"

	"dposcore/core/types"
)

func TestBuildOrdersByNetDescendingThenIDThenName(t *testing.T) {
	delegates := []types.Delegate{
		{ID: 3, Name: "charlie"},
		{ID: 1, Name: "zed"},
		{ID: 2, Name: "alpha"},
		{ID: 4, Name: "beta"},
	}
	net := map[uint64]int64{1: 100, 2: 100, 3: 50, 4: 100}
	r := Build(delegates, func(id uint64) int64 { return net[id] })

	got := r.Top(4)
	want := []types.DelegateID{1, 2, 4, 3}
	for i, w := range want {
		if got[i] != w {
			t.Fatalf("top[%d] = %v, want %v (full: %v)", i, got[i], w, got)
		}
	}
}

func TestRankOfAndTopN(t *testing.T) {
	delegates := make([]types.Delegate, 0, 150)
	net := map[uint64]int64{}
	for i := uint64(1); i <= 150; i++ {
		delegates = append(delegates, types.Delegate{ID: i, Name: "d"})
		net[i] = int64(200 - i) // descending with id
	}
	r := Build(delegates, func(id uint64) int64 { return net[id] })

	if r.Len() != 150 {
		t.Fatalf("len = %d, want 150", r.Len())
	}
	rank, ok := r.RankOf(1)
	if !ok || rank != 0 {
		t.Fatalf("rank of id 1 = %d,%v want 0,true", rank, ok)
	}
	top100 := r.Top(100)
	if len(top100) != 100 {
		t.Fatalf("top(100) len = %d, want 100", len(top100))
	}
	if top100[0] != 1 || top100[99] != 100 {
		t.Fatalf("unexpected top100 boundaries: %v ... %v", top100[0], top100[99])
	}

	if _, ok := r.RankOf(999); ok {
		t.Fatalf("unexpected rank for unknown id")
	}
}

// rank_of(d) must equal the position of d in a freshly sorted view (§8
// invariants).
func TestRankOfMatchesFreshSort(t *testing.T) {
	delegates := []types.Delegate{
		{ID: 10, Name: "a"},
		{ID: 11, Name: "b"},
		{ID: 12, Name: "c"},
	}
	net := map[uint64]int64{10: 5, 11: 5, 12: 9}
	r1 := Build(delegates, func(id uint64) int64 { return net[id] })
	r2 := Build(delegates, func(id uint64) int64 { return net[id] })
	for _, d := range delegates {
		r1rank, _ := r1.RankOf(d.ID)
		r2rank, _ := r2.RankOf(d.ID)
		if r1rank != r2rank {
			t.Fatalf("determinism violated for id %d: %d != %d", d.ID, r1rank, r2rank)
		}
	}
}
