// Package registry implements the delegate registry (C2): registration,
// renewal, and resignation lifecycle over a unique (id, name) key space
// (§4.2, I3).
package registry

import (
	"strings"
	"time"

	"dposcore/core/types"
	"dposcore/observability/metrics"
)

const (
	minNameLen = 3
	maxNameLen = 32
)

// ValidateName enforces the bounded character set decided for this
// implementation (documented as an Open Question resolution in DESIGN.md):
// lowercase ASCII letters, digits, and hyphens, 3-32 characters, not
// starting or ending with a hyphen.
func ValidateName(name string) error {
	if len(name) < minNameLen || len(name) > maxNameLen {
		return ErrInvalidName
	}
	if strings.HasPrefix(name, "-") || strings.HasSuffix(name, "-") {
		return ErrInvalidName
	}
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z':
		case r >= '0' && r <= '9':
		case r == '-':
		default:
			return ErrInvalidName
		}
	}
	return nil
}

// Config parameterizes block-height/time conversions the registry needs for
// renewal bookkeeping.
type Config struct {
	// BlockInterval is the wall-clock duration of one block (network
	// constant, §6).
	BlockInterval time.Duration
}

func (c Config) blocksFor(d time.Duration) uint64 {
	if c.BlockInterval <= 0 {
		return 0
	}
	return uint64(d / c.BlockInterval)
}

// Registry is the delegate registry (C2).
type Registry struct {
	store Store
	cfg   Config
}

// New constructs a Registry over the given Store.
func New(store Store, cfg Config) *Registry {
	return &Registry{store: store, cfg: cfg}
}

// Get returns the delegate for id.
func (r *Registry) Get(id uint64) (types.Delegate, bool, error) {
	return r.store.Get(id)
}

// All returns every registry entry, including resigned and expired ones.
func (r *Registry) All() ([]types.Delegate, error) {
	return r.store.All()
}

// Register applies a ClaimName transaction at the given height, burning
// requiredFee (the caller, typically the Coordinator, computes requiredFee
// as 100 × the rolling 100-block average revenue per §4.2). feePaid is the
// amount the transaction actually burns.
func (r *Registry) Register(height uint64, claim types.ClaimName, feePaid, requiredFee uint64) (types.Delegate, error) {
	if err := ValidateName(claim.Name); err != nil {
		metrics.Registry().ObserveRegistration("rejected")
		return types.Delegate{}, err
	}
	if feePaid < requiredFee {
		metrics.Registry().ObserveRegistration("rejected")
		return types.Delegate{}, ErrInsufficientFee
	}
	if existing, ok, err := r.store.GetByName(claim.Name); err != nil {
		return types.Delegate{}, err
	} else if ok && existing.ID != claim.DelegateID {
		metrics.Registry().ObserveRegistration("rejected")
		return types.Delegate{}, ErrNameTaken
	}
	if claim.DelegateID != 0 {
		if _, ok, err := r.store.Get(claim.DelegateID); err != nil {
			return types.Delegate{}, err
		} else if ok {
			metrics.Registry().ObserveRegistration("rejected")
			return types.Delegate{}, ErrIDTaken
		}
	}
	d := types.Delegate{
		ID:           claim.DelegateID,
		Name:         claim.Name,
		Data:         claim.Data,
		RegisteredAt: height,
		ExpiresAt:    height + r.cfg.blocksFor(types.RenewalPeriod),
	}
	if err := r.store.Put(d); err != nil {
		return types.Delegate{}, err
	}
	metrics.Registry().ObserveRegistration("accepted")
	return d, nil
}

// RenewalCost reports whether renewal at the given height is free (a top-100
// delegate renewing inside the grace window before expiry, §4.2) and, if
// not, that the caller must collect requiredFee.
func (r *Registry) RenewalCost(id uint64, height uint64, inTop100 bool) (free bool, err error) {
	d, ok, err := r.store.Get(id)
	if err != nil {
		return false, err
	}
	if !ok {
		return false, ErrNotFound
	}
	if !inTop100 {
		return false, nil
	}
	graceBlocks := r.cfg.blocksFor(types.RenewalGrace)
	if d.ExpiresAt == 0 {
		return false, nil
	}
	remaining := int64(d.ExpiresAt) - int64(height)
	return remaining >= 0 && uint64(remaining) <= graceBlocks, nil
}

// Renew bumps a delegate's expiry by one renewal period. feePaid/requiredFee
// are ignored when free is true.
func (r *Registry) Renew(id uint64, height uint64, free bool, feePaid, requiredFee uint64) error {
	d, ok, err := r.store.Get(id)
	if err != nil {
		return err
	}
	if !ok {
		return ErrNotFound
	}
	if d.Resigned {
		return ErrAlreadyResigned
	}
	if !free && feePaid < requiredFee {
		return ErrInsufficientFee
	}
	d.ExpiresAt = height + r.cfg.blocksFor(types.RenewalPeriod)
	if err := r.store.Put(d); err != nil {
		return err
	}
	metrics.Registry().ObserveRenewal(free)
	return nil
}

// Resign marks a delegate resigned (I5): it becomes ineligible for ranking
// immediately, but its id/name remain reserved and any votes already cast on
// unspent outputs are left untouched until spent.
func (r *Registry) Resign(id uint64) error {
	d, ok, err := r.store.Get(id)
	if err != nil {
		return err
	}
	if !ok {
		return ErrNotFound
	}
	if d.Resigned {
		return ErrAlreadyResigned
	}
	d.Resigned = true
	if err := r.store.Put(d); err != nil {
		return err
	}
	metrics.Registry().ObserveResignation()
	return nil
}

// GC removes a resigned delegate's registry entry once referenced reports
// that no unspent output still votes for it. It is a no-op (returning
// ErrStillReferenced) otherwise, so id/name remain reserved while a "stuck"
// vote exists (§9 Open Questions).
func (r *Registry) GC(id uint64, referenced bool) error {
	d, ok, err := r.store.Get(id)
	if err != nil {
		return err
	}
	if !ok {
		return ErrNotFound
	}
	if !d.Resigned {
		return ErrAlreadyResigned // not yet eligible for GC
	}
	if referenced {
		return ErrStillReferenced
	}
	return r.store.Delete(id)
}

// Eligible returns every registry entry eligible for ranking at height
// (§3 Eligible, I5).
func (r *Registry) Eligible(height uint64) ([]types.Delegate, error) {
	all, err := r.store.All()
	if err != nil {
		return nil, err
	}
	out := all[:0:0]
	for _, d := range all {
		if d.Eligible(height) {
			out = append(out, d)
		}
	}
	metrics.Registry().SetEligibleCount(len(out))
	return out, nil
}
