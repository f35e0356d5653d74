package arith

import (
	"errors"

	"github.com/cronokirby/saferith"
)

// ErrNoInverse is returned when asking for the inverse of an element sharing a factor with the modulus.
var ErrNoInverse = errors.New("arith: no inverse exists")

// IsCoprime returns true if gcd(a,b) = 1.
func IsCoprime(a, b *saferith.Nat) bool {
	return a.Coprime(b) == 1
}

// ModInverse returns x⁻¹ (mod m).
// It returns ErrNoInverse when gcd(x, m) ≠ 1.
func ModInverse(x *saferith.Nat, m *saferith.Modulus) (*saferith.Nat, error) {
	if x.IsUnit(m) != 1 {
		return nil, ErrNoInverse
	}
	return new(saferith.Nat).ModInverse(x, m), nil
}
