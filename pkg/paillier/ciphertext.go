package paillier

import (
	"crypto/rand"
	"fmt"

	"github.com/cronokirby/saferith"
	"github.com/lambdae2e/hecore/pkg/math/sample"
)

// Ciphertext represents an integer of the form (1+N)ᵐρᴺ (mod N²), representing the encryption of m ∈ ℤₙ.
//
// A Ciphertext remembers the PublicKey it was produced under. Operations
// mixing ciphertexts of different keys fail with ErrKeyMismatch, and
// decrypting one under another key fails with ErrDecryptionMismatch.
type Ciphertext struct {
	c *saferith.Nat
	// pk is the key c was encrypted with, nil for a zero Ciphertext
	pk *PublicKey
}

// owns reports whether ct was produced under pk.
func (pk *PublicKey) owns(ct *Ciphertext) bool {
	return ct != nil && sameKey(pk, ct.pk)
}

func sameKey(a, b *PublicKey) bool {
	if a == b {
		return true
	}
	return a != nil && a.Equal(b)
}

// checkOperand returns ErrKeyMismatch for a ciphertext of another key,
// and ErrInvalidCiphertext if ct is not in ℤ_{N²}ˣ.
func (pk *PublicKey) checkOperand(op, arg string, ct *Ciphertext) error {
	if !pk.owns(ct) {
		return newError(op, arg, ErrKeyMismatch)
	}
	if !pk.ValidateCiphertexts(ct) {
		return newError(op, arg, ErrInvalidCiphertext)
	}
	return nil
}

// Add returns the homomorphic sum ct₁ ⊕ ct₂.
// ct = ct₁•ct₂ (mod N²).
//
// ErrKeyMismatch is returned when either operand was produced under another key.
func (pk *PublicKey) Add(ct1, ct2 *Ciphertext) (*Ciphertext, error) {
	if err := pk.checkOperand("add", "ct1", ct1); err != nil {
		return nil, err
	}
	if err := pk.checkOperand("add", "ct2", ct2); err != nil {
		return nil, err
	}
	return pk.add(ct1, ct2), nil
}

func (pk *PublicKey) add(ct1, ct2 *Ciphertext) *Ciphertext {
	c := new(saferith.Nat).ModMul(ct1.c, ct2.c, pk.nSquared.Modulus)
	return &Ciphertext{c: c, pk: pk}
}

// Mul returns the homomorphic multiplication k ⊙ ct.
// ct = ctᵏ (mod N²).
//
// Only k ⩾ 0 is supported; use N-k to subtract.
func (pk *PublicKey) Mul(ct *Ciphertext, k *saferith.Int) (*Ciphertext, error) {
	if err := pk.checkOperand("multiply", "ct", ct); err != nil {
		return nil, err
	}
	if k == nil || k.IsNegative() == 1 {
		return nil, newError("multiply", "k", ErrPlaintextOutOfRange)
	}
	c := pk.nSquared.Exp(ct.c, k.Abs())
	return &Ciphertext{c: c, pk: pk}, nil
}

// Sum returns the homomorphic sum of all cts, folding left to right:
// ((cts[0] ⊕ cts[1]) ⊕ cts[2]) ⊕ ….
//
// The group operation is commutative, so the order does not affect the plaintext,
// but it is fixed so that identical inputs give identical ciphertexts.
func (pk *PublicKey) Sum(cts []*Ciphertext) (*Ciphertext, error) {
	if len(cts) == 0 {
		return nil, newError("sum", "cts", ErrEmptyInput)
	}
	for i, ct := range cts {
		if err := pk.checkOperand("sum", fmt.Sprintf("cts[%d]", i), ct); err != nil {
			return nil, err
		}
	}
	sum := cts[0].Clone()
	for _, ct := range cts[1:] {
		sum = pk.add(sum, ct)
	}
	return sum, nil
}

// Equal check whether ct ≡ ctₐ (mod N²), under the same key.
func (ct *Ciphertext) Equal(ctA *Ciphertext) bool {
	return sameKey(ct.pk, ctA.pk) && ct.c.Eq(ctA.c) == 1
}

// Clone returns a deep copy of ct, bound to the same key.
func (ct Ciphertext) Clone() *Ciphertext {
	c := new(saferith.Nat).SetNat(ct.c)
	return &Ciphertext{c: c, pk: ct.pk}
}

// Randomize multiplies the ciphertext's nonce by a newly generated one.
// ct ← ct ⋅ nonceᴺ (mod N²).
// If nonce is nil, a random one is generated.
// The receiver is updated, and the nonce update is returned.
func (ct *Ciphertext) Randomize(pk *PublicKey, nonce *saferith.Nat) (*saferith.Nat, error) {
	if err := pk.checkOperand("randomize", "ct", ct); err != nil {
		return nil, err
	}
	if nonce == nil {
		nonce = sample.UnitModN(rand.Reader, pk.n.Modulus)
	} else if nonce.IsUnit(pk.n.Modulus) != 1 {
		return nil, newError("randomize", "nonce", ErrInvalidNonce)
	}
	// c = c*r^N
	tmp := pk.nSquared.Exp(nonce, pk.nNat)
	ct.c.ModMul(ct.c, tmp, pk.nSquared.Modulus)
	return nonce, nil
}

// Nat returns a copy of the underlying integer.
func (ct *Ciphertext) Nat() *saferith.Nat {
	return new(saferith.Nat).SetNat(ct.c)
}
