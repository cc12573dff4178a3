// Package score implements the score observer (C5): per-node, per-delegate
// observation bookkeeping and the comparative-rank score derived from it
// that informs wallet voting decisions (§4.5).
package score

import (
	"sort"
	"sync"
	"time"

	"dposcore/observability/metrics"
)

// Observer tracks Observations for every delegate this node has seen blocks
// from. It has its own write path and does not contend with the ledger or
// registry's write lock (§5).
type Observer struct {
	mu      sync.Mutex
	weights Weights
	byID    map[uint64]*Observation
}

// NewObserver constructs an Observer with the given scoring weights.
func NewObserver(weights Weights) *Observer {
	return &Observer{weights: weights, byID: make(map[uint64]*Observation)}
}

func (o *Observer) entry(id uint64) *Observation {
	obs, ok := o.byID[id]
	if !ok {
		obs = newObservation()
		o.byID[id] = obs
	}
	return obs
}

// RecordProduced records a block produced on schedule and the latency
// between its scheduled and arrival time (positive = late, negative =
// early), per §4.5.
func (o *Observer) RecordProduced(id uint64, scheduled, arrival time.Time) {
	o.mu.Lock()
	defer o.mu.Unlock()
	obs := o.entry(id)
	obs.Produced++
	delta := arrival.Sub(scheduled).Seconds()
	if delta > 0 {
		obs.lateEstimator.Update(delta)
		obs.LateLatencyMedian = obs.lateEstimator.Value()
	} else if delta < 0 {
		obs.earlyEstimator.Update(-delta)
		obs.EarlyLatencyMedian = obs.earlyEstimator.Value()
	}
	metrics.Score().ObserveProduced(id)
}

// RecordMissed records a scheduled slot that elapsed with no block received
// before the next slot began.
func (o *Observer) RecordMissed(id uint64) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.entry(id).Missed++
	metrics.Score().ObserveMissed(id)
}

// RecordTxInclusion records the fraction of transactions this node had seen
// before scheduled_time that appear in the block (expected) and the
// fraction in the block this node had not seen before scheduled_time
// (unexpected), per §4.5.
func (o *Observer) RecordTxInclusion(id uint64, expectedFraction, unexpectedFraction float64) {
	o.mu.Lock()
	defer o.mu.Unlock()
	obs := o.entry(id)
	obs.ExpectedTxIncluded = expectedFraction
	obs.UnexpectedTxIncluded = unexpectedFraction
}

// RecordInvalidSigned records that a block signed by this delegate was
// rejected at validation (§4.7); any value >= 1 disqualifies it locally.
func (o *Observer) RecordInvalidSigned(id uint64) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.entry(id).InvalidSigned++
	metrics.Score().ObserveInvalidSigned(id)
}

// RecordFeeFraction records the ratio of a delegate's claimed block fee to
// the fee cap (§4.5 fee_fraction; ideal = 0).
func (o *Observer) RecordFeeFraction(id uint64, fraction float64) {
	o.mu.Lock()
	defer o.mu.Unlock()
	obs := o.entry(id)
	obs.feeEstimator.Update(fraction)
	obs.FeeFractionMedian = obs.feeEstimator.Value()
}

// Observation returns a copy of the current observation for id.
func (o *Observer) Observation(id uint64) (Observation, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	obs, ok := o.byID[id]
	if !ok {
		return Observation{}, false
	}
	return *obs, true
}

type metricDir int

const (
	higherBetter metricDir = iota
	lowerBetter
)

// Scores returns every observed delegate's composite local score: the
// weighted average of its comparative rank within each metric (§4.5). No
// absolute scale is used, so a single badly-behaved delegate cannot distort
// another's score beyond its rank position.
func (o *Observer) Scores() map[uint64]float64 {
	o.mu.Lock()
	ids := make([]uint64, 0, len(o.byID))
	uptime := make(map[uint64]float64, len(o.byID))
	late := make(map[uint64]float64, len(o.byID))
	early := make(map[uint64]float64, len(o.byID))
	expected := make(map[uint64]float64, len(o.byID))
	unexpected := make(map[uint64]float64, len(o.byID))
	fee := make(map[uint64]float64, len(o.byID))
	for id, obs := range o.byID {
		ids = append(ids, id)
		total := obs.Produced + obs.Missed
		if total > 0 {
			uptime[id] = float64(obs.Produced) / float64(total)
		}
		late[id] = obs.LateLatencyMedian
		early[id] = obs.EarlyLatencyMedian
		expected[id] = obs.ExpectedTxIncluded
		unexpected[id] = obs.UnexpectedTxIncluded
		fee[id] = obs.FeeFractionMedian
	}
	w := o.weights
	o.mu.Unlock()

	rUptime := comparativeRanks(ids, uptime, higherBetter)
	rLate := comparativeRanks(ids, late, lowerBetter)
	rEarly := comparativeRanks(ids, early, lowerBetter)
	rExpected := comparativeRanks(ids, expected, higherBetter)
	rUnexpected := comparativeRanks(ids, unexpected, lowerBetter)
	rFee := comparativeRanks(ids, fee, lowerBetter)

	latencyHalf := w.Latency / 2
	totalWeight := w.Uptime + w.Latency + w.ExpectedTx + w.UnexpectedTx + w.FeeFraction
	scores := make(map[uint64]float64, len(ids))
	for _, id := range ids {
		if totalWeight <= 0 {
			scores[id] = 0
			continue
		}
		sum := w.Uptime*rUptime[id] +
			latencyHalf*rLate[id] +
			latencyHalf*rEarly[id] +
			w.ExpectedTx*rExpected[id] +
			w.UnexpectedTx*rUnexpected[id] +
			w.FeeFraction*rFee[id]
		scores[id] = sum / totalWeight
		metrics.Score().SetScore(id, scores[id])
	}
	return scores
}

// comparativeRanks maps each id to a value in [0,1], 1 being best, based on
// its position among ids when sorted by the chosen direction. Equal values
// share the position of the first of them, so ties do not depend on map or
// sort order. A single observed delegate always ranks 1.0 (best of one).
func comparativeRanks(ids []uint64, values map[uint64]float64, dir metricDir) map[uint64]float64 {
	ordered := append([]uint64(nil), ids...)
	sort.Slice(ordered, func(i, j int) bool {
		vi, vj := values[ordered[i]], values[ordered[j]]
		if dir == higherBetter {
			return vi > vj
		}
		return vi < vj
	})
	out := make(map[uint64]float64, len(ordered))
	n := len(ordered)
	pos := 0
	for i, id := range ordered {
		if n <= 1 {
			out[id] = 1
			continue
		}
		if i > 0 && values[id] != values[ordered[i-1]] {
			pos = i
		}
		out[id] = 1 - float64(pos)/float64(n-1)
	}
	return out
}
