package types

// VoteBucket holds the positive and negative amounts accumulated for one
// delegate's base id.
type VoteBucket struct {
	Positive uint64
	Negative uint64
}

// Net returns positive minus negative votes. The result can be negative if a
// delegate is more opposed than supported.
func (b VoteBucket) Net() int64 {
	return int64(b.Positive) - int64(b.Negative)
}

// VoteTally is the derived mapping from base DelegateID to its vote bucket.
// Callers must treat a returned tally as a read-only snapshot.
type VoteTally map[uint64]VoteBucket
