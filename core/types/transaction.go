package types

import (
	"crypto/sha256"
	"encoding/binary"

	"dposcore/identity"
)

// ClaimName is the registration output carried by a registration
// transaction (§4.2, §6).
type ClaimName struct {
	DelegateID uint64
	Name       string
	Data       []byte
}

// Transaction is the minimal envelope the ledger, registry, and validator
// operate on. A real wire transaction carries additional fields (signatures,
// arbitrary payments) that are out of scope for the core per spec.md §1;
// only the fields consensus rules touch are modeled here.
type Transaction struct {
	Inputs  []OutputID
	Outputs []UnspentOutput
	Vote    DelegateID
	Claim   *ClaimName // non-nil for a ClaimName registration transaction
	Fee     uint64     // burned fee, e.g. the registration fee (§4.2)
}

// Block is an ordered list of transactions produced by one delegate for one
// slot, plus the producer's identity, signature, and aligned timestamp
// (§4.4, §6). The terminal transaction may carry the producer's fee payout
// (§4.7 rule 4).
type Block struct {
	Height       uint64
	Slot         uint64
	ProducerID   uint64
	ProducerAddr identity.Address // identity the Signature must recover to
	Timestamp    int64            // unix seconds, must align to Slot*BLOCK_INTERVAL
	Signature    []byte
	PrevHash     [32]byte
	Hash         [32]byte
	Txs          []Transaction
	FeePayoutTx  int // index into Txs carrying the producer fee, or -1
}

// Digest returns the consensus digest signed by the producer: a hash over
// the header fields that determine validity (height, slot, producer,
// timestamp, previous hash). Arbitrary transaction serialization is out of
// scope for the core (§1); this digest only needs to be stable and
// collision-resistant for the fields consensus rules actually check.
func (b Block) Digest() [32]byte {
	buf := make([]byte, 0, 8+8+8+8+32)
	buf = binary.BigEndian.AppendUint64(buf, b.Height)
	buf = binary.BigEndian.AppendUint64(buf, b.Slot)
	buf = binary.BigEndian.AppendUint64(buf, b.ProducerID)
	buf = binary.BigEndian.AppendUint64(buf, uint64(b.Timestamp))
	buf = append(buf, b.PrevHash[:]...)
	return sha256.Sum256(buf)
}
