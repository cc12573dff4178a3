package core

import "errors"

var (
	// ErrHeightMismatch is returned when a block's height is not exactly
	// one past the coordinator's committed height — this rejects both
	// out-of-order blocks and re-application of an already-committed block
	// (§8 Idempotence law).
	ErrHeightMismatch = errors.New("core: block height mismatch")
	// ErrPrevHashMismatch is returned when a block's PrevHash does not
	// match the coordinator's last committed block hash.
	ErrPrevHashMismatch = errors.New("core: previous hash mismatch")
	// ErrUnknownOrResignedDelegate is returned when a transaction's vote
	// field references a delegate whose base id is not registered, or is
	// resigned, at the time of inclusion (I4).
	ErrUnknownOrResignedDelegate = errors.New("core: vote targets unknown or resigned delegate")
)
