package wallet

import "errors"

// ErrNoVoteTarget is returned when no rule in the vote-target selection
// order (§4.6) yields a candidate — e.g. an empty observed set and no
// trusted delegates.
var ErrNoVoteTarget = errors.New("wallet: no vote target available")
