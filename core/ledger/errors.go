package ledger

import "errors"

var (
	// ErrDuplicateSpend is returned when a block or transaction spends the
	// same output more than once.
	ErrDuplicateSpend = errors.New("ledger: duplicate spend")
	// ErrUnknownOutput is returned when a spend references an output the
	// ledger has no record of.
	ErrUnknownOutput = errors.New("ledger: unknown output")
	// ErrOutputExists is returned when a create collides with an existing
	// output id.
	ErrOutputExists = errors.New("ledger: output already exists")
	// ErrCapExceeded is returned when applying a change would push a
	// delegate's net votes past VoteCap of total supply (I2).
	ErrCapExceeded = errors.New("ledger: vote cap exceeded")
)
