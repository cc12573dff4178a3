// Package validator implements the stateless block-acceptance rules of the
// block validator (C7): producer authorization, timestamp alignment, and
// the delegate fee cap (§4.7). It deliberately holds no state — the core
// Coordinator owns the single mutating path (§5) and calls these rules
// while applying a block's transactions to the ledger and registry.
package validator

import (
	"time"

	"dposcore/consensus/schedule"
	"dposcore/core/types"
)

// VerifyProducer checks that producerID matches the delegate holding rank
// slot % RoundSize in top, the ranking as of the end of the previous block
// (§4.7 rule 1).
func VerifyProducer(top []types.DelegateID, slot uint64, producerID uint64) error {
	expected, ok := schedule.ProducerForSlot(top, slot)
	if !ok || expected.Base() != producerID {
		return ErrWrongProducer
	}
	return nil
}

// VerifyTimestamp checks that a block's timestamp aligns with slot *
// BLOCK_INTERVAL within a tolerance of one block interval (§4.7 rule 2).
func VerifyTimestamp(timestamp int64, slot uint64, blockInterval time.Duration) error {
	intervalSecs := int64(blockInterval / time.Second)
	expected := int64(slot) * intervalSecs
	delta := timestamp - expected
	if delta < 0 {
		delta = -delta
	}
	if delta > intervalSecs {
		return ErrTimestampMisaligned
	}
	return nil
}

// VerifyFeePayout checks that a producer's self-paid fee does not exceed
// FEE_CAP_FRACTION of the rolling average per-block revenue (§4.7 rule 4).
func VerifyFeePayout(feePaid uint64, avgRevenue uint64) error {
	limit := uint64(float64(avgRevenue) * types.FeeCapFraction)
	if feePaid > limit {
		return ErrFeeTooLarge
	}
	return nil
}
