package paillier

import (
	"crypto/rand"
	"errors"
	"fmt"
	"io"

	"github.com/cronokirby/saferith"
	"github.com/lambdae2e/hecore/internal/hash"
	"github.com/lambdae2e/hecore/internal/params"
	"github.com/lambdae2e/hecore/pkg/math/arith"
	"github.com/lambdae2e/hecore/pkg/math/sample"
)

var (
	ErrPaillierLength = errors.New("wrong number bit length of Paillier modulus N")
	ErrPaillierEven   = errors.New("modulus N is even")
	ErrPaillierNil    = errors.New("modulus N is nil")
)

var oneNat = new(saferith.Nat).SetUint64(1)

// PublicKey is a Paillier public key. It is represented by a modulus N.
//
// A PublicKey never holds the factorization of N, it is safe to hand to an
// untrusted aggregator. It is immutable and may be shared between goroutines.
type PublicKey struct {
	// n = p⋅q
	n *arith.Modulus
	// nSquared = n²
	nSquared *arith.Modulus

	// These values are cached out of convenience, and performance
	nNat        *saferith.Nat
	fingerprint []byte
}

// NewPublicKey returns an initialized paillier.PublicKey and caches N² and the key fingerprint.
// The modulus is not validated, see ValidateN.
func NewPublicKey(n *saferith.Modulus) *PublicKey {
	nNat := n.Nat()
	nSquared := saferith.ModulusFromNat(new(saferith.Nat).Mul(nNat, nNat, -1))
	pk := &PublicKey{
		n:        arith.ModulusFromN(n),
		nSquared: arith.ModulusFromN(nSquared),
		nNat:     nNat,
	}
	pk.fingerprint = computeFingerprint(pk)
	return pk
}

// ValidateN performs basic checks to make sure the modulus is valid:
// - log₂(n) ⩾ params.MinBitsPaillier.
// - n is odd.
func ValidateN(n *saferith.Modulus) error {
	if n == nil {
		return ErrPaillierNil
	}
	if bits := n.BitLen(); bits < params.MinBitsPaillier {
		return fmt.Errorf("have: %d, need at least %d: %w", bits, params.MinBitsPaillier, ErrPaillierLength)
	}
	if n.Nat().Byte(0)&1 != 1 {
		return ErrPaillierEven
	}
	return nil
}

// Enc returns the encryption of m under the public key pk, using a fresh nonce.
// The nonce used to encrypt is returned.
//
// The message m must be in the range [0, …, N-1], ErrPlaintextOutOfRange is returned otherwise.
//
// ct = (1+N)ᵐρᴺ (mod N²).
func (pk *PublicKey) Enc(m *saferith.Int) (*Ciphertext, *saferith.Nat, error) {
	if err := pk.checkPlaintext("encrypt", "m", m); err != nil {
		return nil, nil, err
	}
	nonce := sample.UnitModN(rand.Reader, pk.n.Modulus)
	ct, err := pk.EncWithNonce(m, nonce)
	if err != nil {
		return nil, nil, err
	}
	return ct, nonce, nil
}

// EncWithNonce returns the encryption of m under the public key pk.
// The nonce must be a unit mod N.
//
// ct = (1+N)ᵐρᴺ (mod N²).
func (pk *PublicKey) EncWithNonce(m *saferith.Int, nonce *saferith.Nat) (*Ciphertext, error) {
	if err := pk.checkPlaintext("encrypt", "m", m); err != nil {
		return nil, err
	}
	if nonce == nil || nonce.IsUnit(pk.n.Modulus) != 1 {
		return nil, newError("encrypt", "nonce", ErrInvalidNonce)
	}
	mAbs := m.Abs()

	// (1+N)ᵐ = 1 + m⋅N (mod N²), and m⋅N < N² since m < N
	c := new(saferith.Nat).Mul(mAbs, pk.nNat, -1)
	c.ModAdd(c, oneNat, pk.nSquared.Modulus)
	// ρᴺ mod N²
	rhoN := pk.nSquared.Exp(nonce, pk.nNat)
	// (1+N)ᵐ⋅ρᴺ
	c.ModMul(c, rhoN, pk.nSquared.Modulus)
	return &Ciphertext{c: c, pk: pk}, nil
}

// checkPlaintext verifies m ∈ [0, N).
func (pk *PublicKey) checkPlaintext(op, arg string, m *saferith.Int) error {
	if m == nil || m.IsNegative() == 1 {
		return newError(op, arg, ErrPlaintextOutOfRange)
	}
	if _, _, lt := m.Abs().CmpMod(pk.n.Modulus); lt != 1 {
		return newError(op, arg, ErrPlaintextOutOfRange)
	}
	return nil
}

// Equal returns true if pk ≡ other.
func (pk *PublicKey) Equal(other *PublicKey) bool {
	if other == nil {
		return false
	}
	return pk.nNat.Eq(other.nNat) == 1
}

// ValidateCiphertexts checks if all ciphertexts are in the correct range and coprime to N²
// ct ∈ [1, …, N²-1] AND GCD(ct,N²) = 1.
// It looks at the value only; the key a ciphertext is bound to is checked by the operations.
func (pk *PublicKey) ValidateCiphertexts(cts ...*Ciphertext) bool {
	for _, ct := range cts {
		if ct == nil || ct.c == nil {
			return false
		}
		if _, _, lt := ct.c.CmpMod(pk.nSquared.Modulus); lt != 1 {
			return false
		}
		if ct.c.IsUnit(pk.nSquared.Modulus) != 1 {
			return false
		}
	}
	return true
}

// N is the public modulus making up this key.
// WARNING: Do not modify the returned value.
func (pk *PublicKey) N() *saferith.Modulus {
	return pk.n.Modulus
}

// N2 returns the modulus N² in which ciphertexts live.
// WARNING: Do not modify the returned value.
func (pk *PublicKey) N2() *saferith.Modulus {
	return pk.nSquared.Modulus
}

// BitLen returns the size of N in bits.
func (pk *PublicKey) BitLen() int {
	return pk.n.BitLen()
}

// Fingerprint returns a short identifier of this key, attached to serialized ciphertexts.
// It is not a commitment: equal fingerprints make key equality likely, not certain.
func (pk *PublicKey) Fingerprint() []byte {
	out := make([]byte, len(pk.fingerprint))
	copy(out, pk.fingerprint)
	return out
}

func computeFingerprint(pk *PublicKey) []byte {
	h := hash.New("paillier key fingerprint")
	if err := h.WriteAny(pk); err != nil {
		panic(fmt.Sprintf("paillier: fingerprint: %v", err))
	}
	return h.Sum()[:params.FingerprintBytes]
}

// WriteTo implements io.WriterTo and should be used within the hash.Hash function.
func (pk *PublicKey) WriteTo(w io.Writer) (int64, error) {
	if pk == nil {
		return 0, io.ErrUnexpectedEOF
	}
	buf := pk.nNat.Bytes()
	n, err := w.Write(buf)
	return int64(n), err
}

// Domain implements hash.WriterToWithDomain, and separates this type within hash.Hash.
func (PublicKey) Domain() string {
	return "Paillier PublicKey"
}
