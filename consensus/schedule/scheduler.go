// Package schedule implements the slot scheduler (C4): the deterministic
// mapping from UTC instants to the delegate authorized to produce the next
// block, and the wall-clock wait loop that drives production (§4.4, §5).
package schedule

import (
	"context"
	"time"

	"dposcore/core/types"
)

// SlotNow returns the slot index containing t.
func SlotNow(t time.Time, blockInterval time.Duration) uint64 {
	if blockInterval <= 0 {
		return 0
	}
	return uint64(t.Unix()) / uint64(blockInterval/time.Second)
}

// RoundBase returns the first slot of the round containing slot.
func RoundBase(slot uint64) uint64 {
	return (slot / types.RoundSize) * types.RoundSize
}

// ProduceTime computes the next wall-clock instant at which the delegate
// holding rank r is authorized to produce, given the current time (§4.4):
//
//	slot_now   = floor(utc_now / BLOCK_INTERVAL)
//	round_base = floor(slot_now / 100) * 100
//	produce_slot = round_base + r
//	if produce_slot * BLOCK_INTERVAL < utc_now: produce_slot += 100
//	produce_time = produce_slot * BLOCK_INTERVAL
func ProduceTime(now time.Time, blockInterval time.Duration, rank int) (time.Time, uint64) {
	intervalSecs := uint64(blockInterval / time.Second)
	slotNow := SlotNow(now, blockInterval)
	roundBase := RoundBase(slotNow)
	produceSlot := roundBase + uint64(rank)
	nowUnix := uint64(now.Unix())
	if produceSlot*intervalSecs < nowUnix {
		produceSlot += types.RoundSize
	}
	return time.Unix(int64(produceSlot*intervalSecs), 0).UTC(), produceSlot
}

// ProducerForSlot returns the delegate authorized to produce at slot,
// selected from the top-RoundSize ranking as of the end of the previous
// block (§4.4). ok is false if the ranking has fewer than slot%RoundSize+1
// entries, meaning no delegate currently holds that rank.
func ProducerForSlot(top []types.DelegateID, slot uint64) (types.DelegateID, bool) {
	r := int(slot % types.RoundSize)
	if r >= len(top) {
		return 0, false
	}
	return top[r], true
}

// IsStale reports whether a block for slot arriving at arrival is more than
// one full round late and should be discarded without buffering (§4.4).
func IsStale(slot uint64, arrival time.Time, blockInterval time.Duration) bool {
	arrivalSlot := SlotNow(arrival, blockInterval)
	if arrivalSlot <= slot {
		return false
	}
	return arrivalSlot-slot > types.RoundSize
}

// Scheduler drives the production wait loop for one held delegate identity.
// A wallet holding multiple identities runs one Scheduler per identity
// (§4.4).
type Scheduler struct {
	blockInterval time.Duration
	now           func() time.Time
}

// New returns a Scheduler for the given network block interval.
func New(blockInterval time.Duration) *Scheduler {
	return &Scheduler{blockInterval: blockInterval, now: time.Now}
}

// WithNow overrides the clock, for deterministic tests.
func (s *Scheduler) WithNow(now func() time.Time) *Scheduler {
	s.now = now
	return s
}

// Next returns the next produce time for the given rank, as of now.
func (s *Scheduler) Next(rank int) (time.Time, uint64) {
	return ProduceTime(s.now(), s.blockInterval, rank)
}

// RankFunc resolves the caller's current rank, or ok=false if it has fallen
// out of the ranked set (in which case Run stops scheduling, per §5
// "timers are cancelled ... when a delegate falls out of top 100").
type RankFunc func() (rank int, ok bool)

// Run blocks, waking at each of the caller's scheduled produce times and
// invoking onSlot, until ctx is cancelled or rankOf reports the delegate is
// no longer ranked. It recomputes produce_slot on every wakeup rather than
// trusting elapsed time, so early or late timer fires self-correct (§5).
func (s *Scheduler) Run(ctx context.Context, rankOf RankFunc, onSlot func(produceTime time.Time, slot uint64)) error {
	for {
		rank, ok := rankOf()
		if !ok {
			return nil
		}
		produceTime, slot := s.Next(rank)
		wait := produceTime.Sub(s.now())
		if wait < 0 {
			wait = 0
		}
		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
			onSlot(produceTime, slot)
		}
	}
}
