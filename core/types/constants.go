package types

import "time"

// Network constants (§6). BlockInterval is a network-specific parameter and
// is supplied at runtime by configuration rather than hardcoded here; the
// rest are protocol constants fixed by this specification.
const (
	// RoundSize is the number of slots in one production round, i.e. the
	// size of the top-N set that rotates through block production.
	RoundSize = 100

	// VoteCap is the maximum fraction of total supply any eligible
	// delegate's net votes may reach (I2).
	VoteCap = 0.02

	// FeeCapFraction bounds the producer's self-paid fee as a fraction of
	// the rolling average per-block revenue (§4.7 rule 4).
	FeeCapFraction = 0.10

	// RevenueWindow is the number of trailing blocks averaged for fee and
	// registration-cost calculations (§4.2, §4.7).
	RevenueWindow = 100

	// RenewalPeriod is how often a registered delegate must renew.
	RenewalPeriod = 365 * 24 * time.Hour

	// RenewalGrace is the window, measured back from expiry, during which a
	// top-100 delegate may renew at zero cost (§4.2: "at month 11").
	RenewalGrace = 30 * 24 * time.Hour

	// RegistrationFeeMultiple is the number of average per-block revenues
	// burned by a registration (or a non-free renewal).
	RegistrationFeeMultiple = 100
)
