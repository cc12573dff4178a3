package score

// Observation is a node's local per-delegate statistics, used only to derive
// that node's local score (§3 Observation, §4.5). It never propagates to
// other nodes.
type Observation struct {
	Produced uint64
	Missed   uint64

	LateLatencyMedian  float64 // seconds, streaming approximation
	EarlyLatencyMedian float64

	ExpectedTxIncluded   float64 // fraction, ideal = 1
	UnexpectedTxIncluded float64 // fraction, ideal = 0

	InvalidSigned uint64 // any value >= 1 disqualifies locally (§4.5)

	FeeFractionMedian float64 // claimed fee / fee cap (mean revenue x FeeCapFraction), ideal = 0

	lateEstimator  *medianEstimator
	earlyEstimator *medianEstimator
	feeEstimator   *medianEstimator
}

func newObservation() *Observation {
	return &Observation{
		lateEstimator:  newMedianEstimator(),
		earlyEstimator: newMedianEstimator(),
		feeEstimator:   newMedianEstimator(),
	}
}

// Disqualified reports whether this delegate has at least one invalid
// signature on record, which disqualifies it from local trust (§4.5).
func (o Observation) Disqualified() bool {
	return o.InvalidSigned >= 1
}

// Weights are the comparative-rank averaging weights for score composition
// (§4.5). Latency applies equally to both the late and early latency
// metrics — there is deliberately only one knob for both, so no
// configuration can give a node an advantage by skewing its own clock.
type Weights struct {
	Uptime      float64
	Latency     float64
	ExpectedTx  float64
	UnexpectedTx float64
	FeeFraction float64
}

// DefaultWeights weighs all five comparative-rank metrics equally.
func DefaultWeights() Weights {
	return Weights{
		Uptime:       1,
		Latency:      1,
		ExpectedTx:   1,
		UnexpectedTx: 1,
		FeeFraction:  1,
	}
}
