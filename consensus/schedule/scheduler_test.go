package schedule

import (
	"context"
	"testing"
	"time"

	"dposcore/core/types"
)

// Scenario 2 from spec.md §8: BLOCK_INTERVAL=10, utc_now=1,000,000.
func TestProduceTimeScenario(t *testing.T) {
	now := time.Unix(1_000_000, 0).UTC()
	interval := 10 * time.Second

	cases := []struct {
		rank int
		want int64
	}{
		{0, 1_000_000},
		{5, 1_000_050},
		{99, 1_000_990},
	}
	for _, c := range cases {
		got, _ := ProduceTime(now, interval, c.rank)
		if got.Unix() != c.want {
			t.Fatalf("rank %d: produce_time = %d, want %d", c.rank, got.Unix(), c.want)
		}
	}
}

func TestProduceTimeAdvancesRoundWhenSlotPassed(t *testing.T) {
	now := time.Unix(1_000_500, 0).UTC()
	interval := 10 * time.Second
	got, _ := ProduceTime(now, interval, 3)
	if got.Unix() != 1_001_030 {
		t.Fatalf("produce_time = %d, want 1,001,030", got.Unix())
	}
}

func TestProducerForSlotRotatesByRank(t *testing.T) {
	top := make([]types.DelegateID, 100)
	for i := range top {
		top[i] = types.DelegateID(i + 1)
	}
	id, ok := ProducerForSlot(top, 205)
	if !ok || id != 6 {
		t.Fatalf("producer for slot 205 = %v,%v want 6,true", id, ok)
	}
}

func TestProducerForSlotMissingRank(t *testing.T) {
	top := []types.DelegateID{1, 2, 3}
	if _, ok := ProducerForSlot(top, 50); ok {
		t.Fatalf("expected no producer for an unranked slot")
	}
}

func TestIsStaleDiscardsMoreThanOneRoundLate(t *testing.T) {
	interval := 10 * time.Second
	slot := uint64(1000)
	onTime := time.Unix(int64(slot*10), 0).UTC()
	if IsStale(slot, onTime, interval) {
		t.Fatalf("on-time block should not be stale")
	}
	justLate := time.Unix(int64((slot+100)*10), 0).UTC()
	if IsStale(slot, justLate, interval) {
		t.Fatalf("exactly one round late should still be buffered, not discarded")
	}
	tooLate := time.Unix(int64((slot+101)*10), 0).UTC()
	if !IsStale(slot, tooLate, interval) {
		t.Fatalf("more than one round late must be discarded")
	}
}

func TestRunStopsWhenRankLost(t *testing.T) {
	// A fixed clock sitting exactly on rank 0's produce time makes every wait
	// zero, so the loop polls rankOf without real sleeps.
	fixed := time.Unix(1_000_000, 0).UTC()
	s := New(10 * time.Second).WithNow(func() time.Time { return fixed })
	calls := 0
	err := s.Run(context.Background(), func() (int, bool) {
		calls++
		return 0, calls <= 2
	}, func(time.Time, uint64) {})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if calls < 3 {
		t.Fatalf("expected rankOf to be polled until it reported false, got %d calls", calls)
	}
}

func TestRunRespectsContextCancellation(t *testing.T) {
	s := New(time.Hour)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := s.Run(ctx, func() (int, bool) { return 0, true }, func(time.Time, uint64) {})
	if err != context.Canceled {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
}
