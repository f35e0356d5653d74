package paillier

import (
	"encoding"
	"fmt"

	"github.com/cronokirby/saferith"
)

var _ encoding.BinaryMarshaler = (*PublicKey)(nil)
var _ encoding.BinaryUnmarshaler = (*PublicKey)(nil)

type publicKeyMarshal struct {
	N []byte
}

// MarshalBinary implements encoding.BinaryMarshaler.
// Only N is written; the fingerprint and N² are recomputed on unmarshal.
func (pk *PublicKey) MarshalBinary() ([]byte, error) {
	return encMode.Marshal(publicKeyMarshal{N: pk.nNat.Bytes()})
}

// UnmarshalBinary implements encoding.BinaryUnmarshaler.
// The modulus is checked with ValidateN.
func (pk *PublicKey) UnmarshalBinary(data []byte) error {
	var x publicKeyMarshal
	if err := decMode.Unmarshal(data, &x); err != nil {
		return fmt.Errorf("paillier: public key: %w", err)
	}
	if len(x.N) == 0 {
		return fmt.Errorf("paillier: public key: %w", ErrPaillierNil)
	}
	n := saferith.ModulusFromBytes(x.N)
	if err := ValidateN(n); err != nil {
		return fmt.Errorf("paillier: public key: %w", err)
	}
	*pk = *NewPublicKey(n)
	return nil
}
