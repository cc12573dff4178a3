package validator

import (
	"testing"
	"time"

	"dposcore/core/types"
)

func topOf(ids ...int64) []types.DelegateID {
	out := make([]types.DelegateID, len(ids))
	for i, id := range ids {
		out[i] = types.DelegateID(id)
	}
	return out
}

func TestVerifyProducer(t *testing.T) {
	top := topOf(1, 2, 3)
	if err := VerifyProducer(top, 1, 2); err != nil {
		t.Fatalf("expected correct producer to pass: %v", err)
	}
	if err := VerifyProducer(top, 1, 3); err != ErrWrongProducer {
		t.Fatalf("err = %v, want ErrWrongProducer", err)
	}
	if err := VerifyProducer(top, 10, 1); err != ErrWrongProducer {
		t.Fatalf("err = %v, want ErrWrongProducer for unranked slot", err)
	}
}

func TestVerifyTimestamp(t *testing.T) {
	interval := 10 * time.Second
	if err := VerifyTimestamp(100, 10, interval); err != nil {
		t.Fatalf("exact alignment should pass: %v", err)
	}
	if err := VerifyTimestamp(109, 10, interval); err != nil {
		t.Fatalf("within tolerance should pass: %v", err)
	}
	if err := VerifyTimestamp(111, 10, interval); err != ErrTimestampMisaligned {
		t.Fatalf("err = %v, want ErrTimestampMisaligned", err)
	}
}

// Scenario 6 from spec.md §8: average revenue 1000; fee of 100 accepted,
// 101 rejected.
func TestVerifyFeePayoutScenario(t *testing.T) {
	if err := VerifyFeePayout(100, 1000); err != nil {
		t.Fatalf("fee of 100 against revenue 1000 should pass: %v", err)
	}
	if err := VerifyFeePayout(101, 1000); err != ErrFeeTooLarge {
		t.Fatalf("err = %v, want ErrFeeTooLarge", err)
	}
}
