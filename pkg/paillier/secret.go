package paillier

import (
	"errors"
	"fmt"

	"github.com/cronokirby/saferith"
	"github.com/lambdae2e/hecore/internal/params"
	"github.com/lambdae2e/hecore/pkg/math/arith"
)

var (
	ErrPrimeBadLength = errors.New("prime factor is not the right length")
	ErrNotPrime       = errors.New("supposed prime factor is not prime")
	ErrPrimeNil       = errors.New("prime is nil")
	ErrPrimesEqual    = errors.New("prime factors are equal")
)

// validatePrimeRounds is the number of Miller-Rabin rounds used when
// checking externally supplied primes.
const validatePrimeRounds = 20

// SecretKey is the secret key corresponding to a Public Paillier Key.
//
// A public key is a modulus N, and the secret key contains the information
// needed to factor N into two primes, P and Q. This allows us to decrypt
// values encrypted using this modulus.
type SecretKey struct {
	*PublicKey
	// p, q such that N = p⋅q
	p, q *saferith.Nat
	// phi = ϕ = (p-1)(q-1)
	phi *saferith.Nat
	// phiInv = ϕ⁻¹ mod N
	phiInv *saferith.Nat
	// nSquared is N² with its factorization p², q², for CRT exponentiation.
	// It stays here rather than in PublicKey, which must not reveal p and q.
	nSquared *arith.Modulus
}

// P returns the first of the two factors composing this key.
func (sk *SecretKey) P() *saferith.Nat {
	return sk.p
}

// Q returns the second of the two factors composing this key.
func (sk *SecretKey) Q() *saferith.Nat {
	return sk.q
}

// Phi returns ϕ = (P-1)(Q-1).
//
// This is the result of the totient function ϕ(N), where N = P⋅Q
// is our public key. Decrypting with ϕ instead of λ = lcm(P-1, Q-1)
// gives the same plaintext, since ϕ is a multiple of λ.
func (sk *SecretKey) Phi() *saferith.Nat {
	return sk.phi
}

// NewSecretKeyFromPrimes generates a new SecretKey from the factors of N.
// P and Q are checked for primality and must be distinct.
func NewSecretKeyFromPrimes(P, Q *saferith.Nat) (*SecretKey, error) {
	if err := ValidatePrime(P); err != nil {
		return nil, newError("secret key", "p", err)
	}
	if err := ValidatePrime(Q); err != nil {
		return nil, newError("secret key", "q", err)
	}
	sk, err := newSecretKey(P, Q)
	if err != nil {
		return nil, newError("secret key", "", err)
	}
	return sk, nil
}

// newSecretKey derives the key material from two primes, without checking their primality.
// It fails if P = Q, or if gcd(ϕ, N) ≠ 1.
func newSecretKey(P, Q *saferith.Nat) (*SecretKey, error) {
	if P.Eq(Q) == 1 {
		return nil, ErrPrimesEqual
	}
	n := arith.ModulusFromFactors(P, Q)

	pMinus1 := new(saferith.Nat).Sub(P, oneNat, -1)
	qMinus1 := new(saferith.Nat).Sub(Q, oneNat, -1)
	phi := new(saferith.Nat).Mul(pMinus1, qMinus1, -1)
	if !arith.IsCoprime(phi, n.Nat()) {
		return nil, arith.ErrNoInverse
	}
	// ϕ⁻¹ mod N
	phiInv, err := arith.ModInverse(phi, n.Modulus)
	if err != nil {
		return nil, err
	}

	pSquared := new(saferith.Nat).Mul(P, P, -1)
	qSquared := new(saferith.Nat).Mul(Q, Q, -1)
	nSquared := arith.ModulusFromFactors(pSquared, qSquared)

	return &SecretKey{
		p:         P,
		q:         Q,
		phi:       phi,
		phiInv:    phiInv,
		nSquared:  nSquared,
		PublicKey: NewPublicKey(n.Modulus),
	}, nil
}

// Dec decrypts c and returns the plaintext m ∈ [0, N).
//
// It returns ErrDecryptionMismatch if c was produced under another key, and
// ErrInvalidCiphertext if c is not in [1, N²-1] or gcd(c, N²) ≠ 1.
func (sk *SecretKey) Dec(ct *Ciphertext) (*saferith.Nat, error) {
	if ct == nil || ct.c == nil {
		return nil, newError("decrypt", "ct", ErrInvalidCiphertext)
	}
	if !sk.PublicKey.owns(ct) {
		return nil, newError("decrypt", "ct", ErrDecryptionMismatch)
	}
	if !sk.PublicKey.ValidateCiphertexts(ct) {
		return nil, newError("decrypt", "ct", ErrInvalidCiphertext)
	}

	n := sk.PublicKey.n.Modulus

	// r = c^Phi 						(mod N²)
	result := sk.nSquared.Exp(ct.c, sk.phi)
	// r = c^Phi - 1
	result.Sub(result, oneNat, -1)
	// r = [(c^Phi - 1)/N]
	result.Div(result, n, -1)
	// r = [(c^Phi - 1)/N] • Phi^-1		(mod N)
	result.ModMul(result, sk.phiInv, n)
	return result, nil
}

// ValidatePrime checks whether p is a suitable prime for Paillier.
// Checks:
// - log₂(p) ⩾ params.MinBitsPaillier / 2.
// - p is prime, with overwhelming probability.
func ValidatePrime(p *saferith.Nat) error {
	if p == nil {
		return ErrPrimeNil
	}
	const bitsWant = params.MinBitsPaillier / 2
	if bits := p.TrueLen(); bits < bitsWant {
		return fmt.Errorf("invalid prime size: have: %d, need at least %d: %w", bits, bitsWant, ErrPrimeBadLength)
	}
	if !p.Big().ProbablyPrime(validatePrimeRounds) {
		return ErrNotPrime
	}
	return nil
}
