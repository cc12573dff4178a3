package registry

import "errors"

var (
	// ErrInvalidName is returned when a candidate name fails the charset or
	// length bound.
	ErrInvalidName = errors.New("registry: invalid name")
	// ErrNameTaken is returned when a name collides with an existing
	// registry entry (I3).
	ErrNameTaken = errors.New("registry: name already taken")
	// ErrIDTaken is returned when a non-zero delegate id collides with an
	// existing registry entry (I3).
	ErrIDTaken = errors.New("registry: delegate id already taken")
	// ErrInsufficientFee is returned when a registration or renewal does
	// not burn the required fee (§4.2).
	ErrInsufficientFee = errors.New("registry: insufficient fee")
	// ErrNotFound is returned when an operation references a delegate id
	// the registry has no record of.
	ErrNotFound = errors.New("registry: delegate not found")
	// ErrAlreadyResigned is returned by Resign and Renew on an
	// already-resigned delegate, and by GC on a delegate that has not
	// resigned yet.
	ErrAlreadyResigned = errors.New("registry: already resigned")
	// ErrStillReferenced is returned by GC when a resigned delegate still
	// has live votes referencing it (§3 Delegate lifecycle).
	ErrStillReferenced = errors.New("registry: delegate still referenced by unspent outputs")
)
