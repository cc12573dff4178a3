// Package identity provides the 20-byte address type used to name output
// owners and block producers. Generic key management, signing, and
// transaction serialization are out of scope for the core (spec.md §1) —
// this package only carries the identity representation the core's data
// model references by value.
package identity

import (
	"fmt"

	"github.com/btcsuite/btcutil/bech32"
	"github.com/ethereum/go-ethereum/crypto"
)

// Prefix is the human-readable bech32 prefix applied to rendered addresses.
type Prefix string

const (
	// DelegatePrefix renders a delegate-producer address.
	DelegatePrefix Prefix = "dpos"
	// OwnerPrefix renders an unspent-output owner address.
	OwnerPrefix Prefix = "dposowner"
)

// Address is a 20-byte identity, derived the same way the teacher derives
// account addresses: the low 20 bytes of keccak256(pubkey).
type Address struct {
	prefix Prefix
	bytes  [20]byte
}

// New constructs an Address from exactly 20 bytes.
func New(prefix Prefix, b []byte) (Address, error) {
	if len(b) != 20 {
		return Address{}, fmt.Errorf("identity: address must be 20 bytes, got %d", len(b))
	}
	var a Address
	a.prefix = prefix
	copy(a.bytes[:], b)
	return a, nil
}

// FromPublicKeyBytes derives the producer/owner address for an uncompressed
// secp256k1 public key, mirroring crypto.PubkeyToAddress.
func FromPublicKeyBytes(prefix Prefix, pub []byte) (Address, error) {
	pk, err := crypto.UnmarshalPubkey(pub)
	if err != nil {
		return Address{}, fmt.Errorf("identity: unmarshal pubkey: %w", err)
	}
	return New(prefix, crypto.PubkeyToAddress(*pk).Bytes())
}

// Bytes returns a copy of the raw 20-byte address.
func (a Address) Bytes() []byte {
	out := make([]byte, 20)
	copy(out, a.bytes[:])
	return out
}

// String renders the address in bech32 with its prefix.
func (a Address) String() string {
	conv, err := bech32.ConvertBits(a.bytes[:], 8, 5, true)
	if err != nil {
		panic(err) // unreachable: fixed 20-byte input always converts
	}
	encoded, err := bech32.Encode(string(a.prefix), conv)
	if err != nil {
		panic(err)
	}
	return encoded
}

// Decode parses a bech32-rendered address back into its prefix and bytes.
func Decode(s string) (Address, error) {
	prefix, decoded, err := bech32.Decode(s)
	if err != nil {
		return Address{}, fmt.Errorf("identity: invalid bech32 string: %w", err)
	}
	conv, err := bech32.ConvertBits(decoded, 5, 8, false)
	if err != nil {
		return Address{}, fmt.Errorf("identity: error converting bits: %w", err)
	}
	return New(Prefix(prefix), conv)
}
