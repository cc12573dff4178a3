package registry

import (
	"testing"
	"time"

	"dposcore/core/types"
)

func newTestRegistry() *Registry {
	return New(NewMemStore(), Config{BlockInterval: 10 * time.Second})
}

func TestRegisterRejectsInvalidName(t *testing.T) {
	r := newTestRegistry()
	_, err := r.Register(1, types.ClaimName{DelegateID: 1, Name: "AB"}, 1000, 1000)
	if err != ErrInvalidName {
		t.Fatalf("err = %v, want ErrInvalidName", err)
	}
}

func TestRegisterRejectsInsufficientFee(t *testing.T) {
	r := newTestRegistry()
	_, err := r.Register(1, types.ClaimName{DelegateID: 1, Name: "alice"}, 999, 1000)
	if err != ErrInsufficientFee {
		t.Fatalf("err = %v, want ErrInsufficientFee", err)
	}
}

func TestRegisterRejectsDuplicateNameAndID(t *testing.T) {
	r := newTestRegistry()
	if _, err := r.Register(1, types.ClaimName{DelegateID: 1, Name: "alice"}, 1000, 1000); err != nil {
		t.Fatalf("register: %v", err)
	}
	if _, err := r.Register(1, types.ClaimName{DelegateID: 2, Name: "alice"}, 1000, 1000); err != ErrNameTaken {
		t.Fatalf("err = %v, want ErrNameTaken", err)
	}
	if _, err := r.Register(1, types.ClaimName{DelegateID: 1, Name: "bob"}, 1000, 1000); err != ErrIDTaken {
		t.Fatalf("err = %v, want ErrIDTaken", err)
	}
}

func TestRegisterZeroIDIsParkedNotEligible(t *testing.T) {
	r := newTestRegistry()
	d, err := r.Register(1, types.ClaimName{DelegateID: 0, Name: "parked"}, 1000, 1000)
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if d.Eligible(1) {
		t.Fatalf("id-0 registration must be ineligible")
	}
}

// Scenario 5 from spec.md §8: a top-100 delegate renews free within the
// grace window; a delegate outside top-100 pays the full fee.
func TestRenewalPricing(t *testing.T) {
	r := newTestRegistry()
	blockInterval := 10 * time.Second
	renewalPeriodBlocks := uint64(types.RenewalPeriod / blockInterval)
	graceBlocks := uint64(types.RenewalGrace / blockInterval)

	d, err := r.Register(0, types.ClaimName{DelegateID: 1, Name: "top-delegate"}, 1000, 1000)
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	heightNearExpiry := d.ExpiresAt - graceBlocks/2

	free, err := r.RenewalCost(1, heightNearExpiry, true)
	if err != nil {
		t.Fatalf("renewal cost: %v", err)
	}
	if !free {
		t.Fatalf("expected free renewal for top-100 delegate inside grace window")
	}
	if err := r.Renew(1, heightNearExpiry, true, 0, 1000); err != nil {
		t.Fatalf("renew free: %v", err)
	}
	got, _, _ := r.Get(1)
	if got.ExpiresAt != heightNearExpiry+renewalPeriodBlocks {
		t.Fatalf("expires_at = %d, want %d", got.ExpiresAt, heightNearExpiry+renewalPeriodBlocks)
	}

	free2, err := r.RenewalCost(1, heightNearExpiry, false)
	if err != nil {
		t.Fatalf("renewal cost: %v", err)
	}
	if free2 {
		t.Fatalf("expected paid renewal for delegate outside top-100")
	}
	if err := r.Renew(1, heightNearExpiry, false, 0, 1000); err != ErrInsufficientFee {
		t.Fatalf("err = %v, want ErrInsufficientFee", err)
	}
	if err := r.Renew(1, heightNearExpiry, false, 1000, 1000); err != nil {
		t.Fatalf("renew paid: %v", err)
	}
}

func TestExpiryTreatedAsResignedForEligibility(t *testing.T) {
	r := newTestRegistry()
	d, err := r.Register(0, types.ClaimName{DelegateID: 9, Name: "expiring"}, 1000, 1000)
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if !d.Eligible(d.ExpiresAt - 1) {
		t.Fatalf("expected eligible before expiry")
	}
	if d.Eligible(d.ExpiresAt) {
		t.Fatalf("expected ineligible at/after expiry")
	}
}

func TestResignThenGC(t *testing.T) {
	r := newTestRegistry()
	if _, err := r.Register(0, types.ClaimName{DelegateID: 4, Name: "quitter"}, 1000, 1000); err != nil {
		t.Fatalf("register: %v", err)
	}
	if err := r.GC(4, false); err != ErrAlreadyResigned {
		t.Fatalf("err = %v, want ErrAlreadyResigned (not yet resigned)", err)
	}
	if err := r.Resign(4); err != nil {
		t.Fatalf("resign: %v", err)
	}
	if err := r.Resign(4); err != ErrAlreadyResigned {
		t.Fatalf("err = %v, want ErrAlreadyResigned", err)
	}
	if err := r.GC(4, true); err != ErrStillReferenced {
		t.Fatalf("err = %v, want ErrStillReferenced", err)
	}
	if err := r.GC(4, false); err != nil {
		t.Fatalf("gc: %v", err)
	}
	if _, ok, _ := r.Get(4); ok {
		t.Fatalf("expected delegate gone after gc")
	}
}
