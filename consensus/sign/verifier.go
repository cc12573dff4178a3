// Package sign isolates block-signature verification behind an interface so
// the generic cryptography it depends on (out of scope per spec.md §1)
// stays swappable and test doubles never need a real key.
package sign

import (
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/crypto"

	"dposcore/identity"
)

// ErrBadSignature is returned when a block's signature does not recover to
// its claimed producer (§4.7 rule 1, consensus-fatal per §7).
var ErrBadSignature = errors.New("sign: signature does not match producer")

// Verifier checks that a block digest was signed by the claimed producer.
type Verifier interface {
	Verify(digest [32]byte, signature []byte, producer identity.Address) error
}

// Secp256k1Verifier recovers the signer's public key from an
// Ethereum-style recoverable signature and compares the derived address to
// the claimed producer, mirroring identity.FromPublicKeyBytes.
type Secp256k1Verifier struct{}

// Verify implements Verifier.
func (Secp256k1Verifier) Verify(digest [32]byte, signature []byte, producer identity.Address) error {
	pub, err := crypto.SigToPub(digest[:], signature)
	if err != nil {
		return fmt.Errorf("sign: recover pubkey: %w", err)
	}
	recovered := crypto.PubkeyToAddress(*pub).Bytes()
	addr, err := identity.New(identity.DelegatePrefix, recovered)
	if err != nil {
		return err
	}
	if addr.String() != producer.String() {
		return ErrBadSignature
	}
	return nil
}
