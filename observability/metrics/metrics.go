// Package metrics exposes Prometheus collectors for the consensus
// subsystems (C1-C5), one lazily-constructed struct per subsystem via
// sync.Once, mirroring the teacher's observability/metrics/potso.go.
package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// LedgerMetrics tracks vote-ledger (C1) activity.
type LedgerMetrics struct {
	commits      prometheus.Counter
	capRejected  prometheus.Counter
	totalSupply  prometheus.Gauge
	outputsAlive prometheus.Gauge
}

var (
	ledgerOnce sync.Once
	ledgerReg  *LedgerMetrics
)

// Ledger returns the process-wide LedgerMetrics, registering its collectors
// on first use.
func Ledger() *LedgerMetrics {
	ledgerOnce.Do(func() {
		ledgerReg = &LedgerMetrics{
			commits: prometheus.NewCounter(prometheus.CounterOpts{
				Name: "dpos_ledger_commits_total",
				Help: "Count of ledger Builder.Commit calls that succeeded.",
			}),
			capRejected: prometheus.NewCounter(prometheus.CounterOpts{
				Name: "dpos_ledger_cap_rejected_total",
				Help: "Count of commits rejected for exceeding the vote cap (I2).",
			}),
			totalSupply: prometheus.NewGauge(prometheus.GaugeOpts{
				Name: "dpos_ledger_total_supply",
				Help: "Total unspent output supply as of the last committed snapshot.",
			}),
			outputsAlive: prometheus.NewGauge(prometheus.GaugeOpts{
				Name: "dpos_ledger_outputs_alive",
				Help: "Number of live unspent outputs as of the last committed snapshot.",
			}),
		}
		prometheus.MustRegister(
			ledgerReg.commits,
			ledgerReg.capRejected,
			ledgerReg.totalSupply,
			ledgerReg.outputsAlive,
		)
	})
	return ledgerReg
}

// ObserveCommit records a successful ledger commit and its resulting
// supply/output counts.
func (m *LedgerMetrics) ObserveCommit(totalSupply uint64, outputsAlive int) {
	if m == nil {
		return
	}
	m.commits.Inc()
	m.totalSupply.Set(float64(totalSupply))
	m.outputsAlive.Set(float64(outputsAlive))
}

// ObserveCapRejected records a commit rejected for exceeding the vote cap.
func (m *LedgerMetrics) ObserveCapRejected() {
	if m == nil {
		return
	}
	m.capRejected.Inc()
}

// RegistryMetrics tracks delegate registry (C2) activity.
type RegistryMetrics struct {
	registrations *prometheus.CounterVec
	renewals      *prometheus.CounterVec
	resignations  prometheus.Counter
	eligibleCount prometheus.Gauge
}

var (
	registryOnce sync.Once
	registryReg  *RegistryMetrics
)

// Registry returns the process-wide RegistryMetrics.
func Registry() *RegistryMetrics {
	registryOnce.Do(func() {
		registryReg = &RegistryMetrics{
			registrations: prometheus.NewCounterVec(prometheus.CounterOpts{
				Name: "dpos_registry_registrations_total",
				Help: "Count of new delegate registrations by outcome.",
			}, []string{"outcome"}),
			renewals: prometheus.NewCounterVec(prometheus.CounterOpts{
				Name: "dpos_registry_renewals_total",
				Help: "Count of delegate renewals by whether the grace window applied.",
			}, []string{"free"}),
			resignations: prometheus.NewCounter(prometheus.CounterOpts{
				Name: "dpos_registry_resignations_total",
				Help: "Count of delegate resignations.",
			}),
			eligibleCount: prometheus.NewGauge(prometheus.GaugeOpts{
				Name: "dpos_registry_eligible_count",
				Help: "Number of delegates eligible for ranking as of the last block.",
			}),
		}
		prometheus.MustRegister(
			registryReg.registrations,
			registryReg.renewals,
			registryReg.resignations,
			registryReg.eligibleCount,
		)
	})
	return registryReg
}

// ObserveRegistration records a registration outcome ("accepted"/"rejected").
func (m *RegistryMetrics) ObserveRegistration(outcome string) {
	if m == nil {
		return
	}
	m.registrations.WithLabelValues(outcome).Inc()
}

// ObserveRenewal records a renewal, labeled by whether it landed in the free
// grace window.
func (m *RegistryMetrics) ObserveRenewal(free bool) {
	if m == nil {
		return
	}
	label := "false"
	if free {
		label = "true"
	}
	m.renewals.WithLabelValues(label).Inc()
}

// ObserveResignation records a resignation.
func (m *RegistryMetrics) ObserveResignation() {
	if m == nil {
		return
	}
	m.resignations.Inc()
}

// SetEligibleCount sets the current eligible-delegate gauge.
func (m *RegistryMetrics) SetEligibleCount(n int) {
	if m == nil {
		return
	}
	m.eligibleCount.Set(float64(n))
}

// ScoreMetrics tracks score-observer (C5) activity.
type ScoreMetrics struct {
	produced      *prometheus.CounterVec
	missed        *prometheus.CounterVec
	invalidSigned *prometheus.CounterVec
	score         *prometheus.GaugeVec
}

var (
	scoreOnce sync.Once
	scoreReg  *ScoreMetrics
)

// Score returns the process-wide ScoreMetrics.
func Score() *ScoreMetrics {
	scoreOnce.Do(func() {
		scoreReg = &ScoreMetrics{
			produced: prometheus.NewCounterVec(prometheus.CounterOpts{
				Name: "dpos_score_blocks_produced_total",
				Help: "Count of blocks produced per delegate.",
			}, []string{"delegate"}),
			missed: prometheus.NewCounterVec(prometheus.CounterOpts{
				Name: "dpos_score_slots_missed_total",
				Help: "Count of slots missed per delegate.",
			}, []string{"delegate"}),
			invalidSigned: prometheus.NewCounterVec(prometheus.CounterOpts{
				Name: "dpos_score_invalid_signed_total",
				Help: "Count of invalid-signature blocks recorded per delegate.",
			}, []string{"delegate"}),
			score: prometheus.NewGaugeVec(prometheus.GaugeOpts{
				Name: "dpos_score_composite",
				Help: "Most recently computed composite score per delegate.",
			}, []string{"delegate"}),
		}
		prometheus.MustRegister(
			scoreReg.produced,
			scoreReg.missed,
			scoreReg.invalidSigned,
			scoreReg.score,
		)
	})
	return scoreReg
}

func uintToString(id uint64) string {
	if id == 0 {
		return "0"
	}
	var buf [20]byte
	i := len(buf)
	for id > 0 {
		i--
		buf[i] = byte('0' + id%10)
		id /= 10
	}
	return string(buf[i:])
}

// ObserveProduced records a produced block for delegate id.
func (m *ScoreMetrics) ObserveProduced(id uint64) {
	if m == nil {
		return
	}
	m.produced.WithLabelValues(uintToString(id)).Inc()
}

// ObserveMissed records a missed slot for delegate id.
func (m *ScoreMetrics) ObserveMissed(id uint64) {
	if m == nil {
		return
	}
	m.missed.WithLabelValues(uintToString(id)).Inc()
}

// ObserveInvalidSigned records an invalid-signature block for delegate id.
func (m *ScoreMetrics) ObserveInvalidSigned(id uint64) {
	if m == nil {
		return
	}
	m.invalidSigned.WithLabelValues(uintToString(id)).Inc()
}

// SetScore records the most recently computed composite score for delegate
// id.
func (m *ScoreMetrics) SetScore(id uint64, score float64) {
	if m == nil {
		return
	}
	m.score.WithLabelValues(uintToString(id)).Set(score)
}
