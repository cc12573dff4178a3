// Package core wires the vote ledger (C1), delegate registry (C2), and
// ranking index (C3) behind the single write-serialized mutating path the
// rest of the system shares (§5): Coordinator is the sole mutator of
// consensus state, mirroring the teacher's Node type and its stateMu-guarded
// write path.
package core

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel/codes"

	"dposcore/consensus/sign"
	"dposcore/consensus/validator"
	"dposcore/core/ledger"
	"dposcore/core/ranking"
	"dposcore/core/registry"
	"dposcore/core/types"
	"dposcore/native/score"
	"dposcore/observability/tracing"
)

// Config configures a Coordinator.
type Config struct {
	BlockInterval time.Duration
	RegistryStore registry.Store // nil uses an in-memory store
	Signer        sign.Verifier  // nil uses Secp256k1Verifier
	Observer      *score.Observer
}

// Coordinator owns C1/C2/C3 and is the only component allowed to mutate
// them. Readers call Ranking()/LedgerSnapshot(), which return immutable
// views. LedgerSnapshot() reads without the lock and never waits on a
// writer; Ranking(), Height() and Registry() take the write lock, so they
// wait for an in-progress ApplyBlock to finish before returning.
type Coordinator struct {
	mu sync.Mutex

	ledger       *ledger.Ledger
	registryCfg  registry.Config
	registryBase registry.Store
	registry     *registry.Registry

	blockInterval time.Duration
	signer        sign.Verifier
	observer      *score.Observer

	height   uint64
	lastHash [32]byte
	ranking  *ranking.Ranking
	revenue  *revenueWindow
}

// New constructs a Coordinator with an empty ledger and registry.
func New(cfg Config) *Coordinator {
	store := cfg.RegistryStore
	if store == nil {
		store = registry.NewMemStore()
	}
	signer := cfg.Signer
	if signer == nil {
		signer = sign.Secp256k1Verifier{}
	}
	observer := cfg.Observer
	if observer == nil {
		observer = score.NewObserver(score.DefaultWeights())
	}
	regCfg := registry.Config{BlockInterval: cfg.BlockInterval}
	c := &Coordinator{
		ledger:        ledger.New(),
		registryCfg:   regCfg,
		registryBase:  store,
		registry:      registry.New(store, regCfg),
		blockInterval: cfg.BlockInterval,
		signer:        signer,
		observer:      observer,
		revenue:       newRevenueWindow(types.RevenueWindow),
	}
	c.ranking = ranking.Build(nil, func(uint64) int64 { return 0 })
	return c
}

// Height returns the last committed block height.
func (c *Coordinator) Height() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.height
}

// Ranking returns the ranking index as of the last commit (C3).
func (c *Coordinator) Ranking() *ranking.Ranking {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ranking
}

// LedgerSnapshot returns the vote ledger's view as of the last commit (C1).
func (c *Coordinator) LedgerSnapshot() ledger.Snapshot {
	return c.ledger.Snapshot()
}

// Ledger exposes the underlying vote ledger so a local wallet (sdk/wallet)
// can be constructed against the live, committed state rather than a
// one-off snapshot. Selector never mutates it — every read goes through
// Ledger.Snapshot().
func (c *Coordinator) Ledger() *ledger.Ledger {
	return c.ledger
}

// Registry exposes read-only registry lookups (C2).
func (c *Coordinator) Registry() *registry.Registry {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.registry
}

// Observer returns the node-local score observer (C5).
func (c *Coordinator) Observer() *score.Observer {
	return c.observer
}

// RegistrationFee returns 100x the rolling REVENUE_WINDOW-block mean
// revenue, the fee a ClaimName registration (or non-free renewal) must
// burn (§4.2).
func (c *Coordinator) RegistrationFee() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return types.RegistrationFeeMultiple * c.revenue.Mean()
}

// FeeCap returns the maximum delegate self-payment for the next block
// (§4.7 rule 4).
func (c *Coordinator) FeeCap() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return uint64(float64(c.revenue.Mean()) * types.FeeCapFraction)
}

// AdmitTransaction runs the admission-recoverable checks for a mempool
// candidate against the current committed snapshot (§4.1, §7): it never
// mutates state, so a rejection simply means the submitter should retry
// with different inputs.
func (c *Coordinator) AdmitTransaction(tx types.Transaction, height uint64) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	overlay := registry.NewOverlay(c.registryBase)
	regView := registry.New(overlay, c.registryCfg)
	builder := c.ledger.NewBuilder()

	if err := c.applyTransaction(builder, regView, tx, height); err != nil {
		return err
	}
	if builder.WouldExceedCap() {
		return ledger.ErrCapExceeded
	}
	return nil
}

// applyTransaction applies one transaction's spends, creates, and optional
// registration to the given (not-yet-committed) ledger builder and registry
// view, enforcing I4 on every output's vote target.
func (c *Coordinator) applyTransaction(b *ledger.Builder, regView *registry.Registry, tx types.Transaction, height uint64) error {
	for _, in := range tx.Inputs {
		if err := b.ApplySpend(in); err != nil {
			return err
		}
	}
	for _, out := range tx.Outputs {
		if err := c.checkVoteTarget(regView, out.Vote); err != nil {
			return err
		}
		if err := b.ApplyCreate(out); err != nil {
			return err
		}
	}
	if tx.Claim != nil {
		if _, err := regView.Register(height, *tx.Claim, tx.Fee, c.requiredRegistrationFeeLocked()); err != nil {
			return err
		}
	}
	return nil
}

func (c *Coordinator) requiredRegistrationFeeLocked() uint64 {
	return types.RegistrationFeeMultiple * c.revenue.Mean()
}

// checkVoteTarget enforces I4: a non-zero vote target's base delegate must
// exist in the registry and not be resigned at inclusion time. Polarity is
// always permitted.
func (c *Coordinator) checkVoteTarget(regView *registry.Registry, vote types.DelegateID) error {
	base := vote.Base()
	if base == 0 {
		return nil
	}
	d, ok, err := regView.Get(base)
	if err != nil {
		return err
	}
	if !ok || d.Resigned {
		return ErrUnknownOrResignedDelegate
	}
	return nil
}

// ApplyBlock applies block B to state atomically (§4.7, §5): it verifies
// the producer and timestamp against the ranking/slot as of the previous
// block, applies every transaction's ledger and registry effects against
// scratch copy-on-write layers, and only publishes them — and updates the
// score observer — once every rule holds. On any failure state is left
// completely unchanged. Each call opens an OTEL span tagged with the
// block's height and producer (§4.7).
func (c *Coordinator) ApplyBlock(ctx context.Context, block types.Block, arrival time.Time) (err error) {
	_, span := tracing.StartBlockSpan(ctx, block.Height, block.ProducerID)
	defer func() {
		if err != nil {
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	c.mu.Lock()
	defer c.mu.Unlock()

	if block.Height != c.height+1 {
		return ErrHeightMismatch
	}
	if c.height > 0 && block.PrevHash != c.lastHash {
		return ErrPrevHashMismatch
	}

	top := c.ranking.Top(types.RoundSize)
	if err := validatorVerifyProducer(top, block.Slot, block.ProducerID); err != nil {
		return err
	}
	if err := validatorVerifyTimestamp(block.Timestamp, block.Slot, c.blockInterval); err != nil {
		return err
	}
	if c.signer != nil && len(block.Signature) > 0 {
		if err := c.signer.Verify(block.Digest(), block.Signature, block.ProducerAddr); err != nil {
			return err
		}
	}

	overlay := registry.NewOverlay(c.registryBase)
	regView := registry.New(overlay, c.registryCfg)
	builder := c.ledger.NewBuilder()

	var blockRevenue uint64
	for i, tx := range block.Txs {
		if err := c.applyTransaction(builder, regView, tx, block.Height); err != nil {
			return err
		}
		if i != block.FeePayoutTx {
			blockRevenue += tx.Fee
		}
	}

	var feeFraction float64
	recordFee := false
	if block.FeePayoutTx >= 0 && block.FeePayoutTx < len(block.Txs) {
		feeTx := block.Txs[block.FeePayoutTx]
		if err := validatorVerifyFeePayout(feeTx.Fee, c.revenue.Mean()); err != nil {
			return err
		}
		if cap := c.FeeCapLocked(); cap > 0 {
			feeFraction = float64(feeTx.Fee) / float64(cap)
			recordFee = true
		}
	}

	snap, err := builder.Commit()
	if err != nil {
		return err
	}
	if err := overlay.Merge(); err != nil {
		// Ledger already committed: this is a transient persistence
		// failure (§7), not a consensus rejection. The registry will
		// reconcile on the next successful merge for the same height
		// during replay.
		return err
	}

	eligible, err := c.registry.Eligible(block.Height)
	if err != nil {
		return err
	}
	c.ranking = ranking.Build(eligible, func(id uint64) int64 { return snap.Net(id) })
	c.height = block.Height
	c.lastHash = block.Hash
	c.revenue.Add(blockRevenue)

	scheduledAt := time.Unix(int64(block.Slot)*int64(c.blockInterval/time.Second), 0).UTC()
	c.observer.RecordProduced(block.ProducerID, scheduledAt, arrival)
	if recordFee {
		c.observer.RecordFeeFraction(block.ProducerID, feeFraction)
	}

	return nil
}

// RefreshRanking rebuilds the cached ranking from the current committed
// ledger and registry state. Call it once after constructing a Coordinator
// over a pre-populated Store/Ledger (e.g. on node startup, after loading
// persisted state) so the first ApplyBlock sees an accurate top-N instead of
// the empty ranking New() starts with.
func (c *Coordinator) RefreshRanking(height uint64) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	eligible, err := c.registry.Eligible(height)
	if err != nil {
		return err
	}
	snap := c.ledger.Snapshot()
	c.ranking = ranking.Build(eligible, func(id uint64) int64 { return snap.Net(id) })
	return nil
}

// FeeCapLocked returns FeeCap() assuming c.mu is already held.
func (c *Coordinator) FeeCapLocked() uint64 {
	return uint64(float64(c.revenue.Mean()) * types.FeeCapFraction)
}

// indirection so this file reads top-to-bottom without a long import alias
// list; kept as thin wrappers over the validator package's pure rules.
func validatorVerifyProducer(top []types.DelegateID, slot uint64, producerID uint64) error {
	return validator.VerifyProducer(top, slot, producerID)
}

func validatorVerifyTimestamp(ts int64, slot uint64, blockInterval time.Duration) error {
	return validator.VerifyTimestamp(ts, slot, blockInterval)
}

func validatorVerifyFeePayout(feePaid, avgRevenue uint64) error {
	return validator.VerifyFeePayout(feePaid, avgRevenue)
}
