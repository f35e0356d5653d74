package arith

import (
	"github.com/cronokirby/saferith"
)

// Modulus is a saferith.Modulus m, optionally split as m = a⋅b with gcd(a, b) = 1.
//
// A Paillier public key holds N and N² without their split. The secret key
// builds N² from the factors p² and q², so that c^ϕ (mod N²) during
// decryption costs two exponentiations on half sized moduli, recombined with
// the CRT. The factors need not be prime.
type Modulus struct {
	*saferith.Modulus

	// crt is nil when the split of the modulus is unknown
	crt *crtParams
}

// crtParams caches what is needed to recombine residues mod a and mod b.
type crtParams struct {
	a, b *saferith.Modulus
	// aNat = a, as a Nat
	aNat *saferith.Nat
	// aInvB = a⁻¹ (mod b)
	aInvB *saferith.Nat
}

// ModulusFromN wraps m without a split. The modulus is not copied.
func ModulusFromN(m *saferith.Modulus) *Modulus {
	return &Modulus{Modulus: m}
}

// ModulusFromFactors returns the modulus a⋅b, which exponentiates with the CRT.
// a and b must be odd and coprime, e.g. (p, q) for N or (p², q²) for N².
func ModulusFromFactors(a, b *saferith.Nat) *Modulus {
	aMod := saferith.ModulusFromNat(a)
	bMod := saferith.ModulusFromNat(b)
	return &Modulus{
		Modulus: saferith.ModulusFromNat(new(saferith.Nat).Mul(a, b, -1)),
		crt: &crtParams{
			a:     aMod,
			b:     bMod,
			aNat:  new(saferith.Nat).SetNat(a),
			aInvB: new(saferith.Nat).ModInverse(a, bMod),
		},
	}
}

// Exp returns xᵉ (mod m), the same value as (saferith.Nat).Exp(x, e, m.Modulus).
func (m *Modulus) Exp(x, e *saferith.Nat) *saferith.Nat {
	if m.crt == nil {
		return new(saferith.Nat).Exp(x, e, m.Modulus)
	}
	// with ya = xᵉ mod a and yb = xᵉ mod b,
	// xᵉ ≡ ya + a⋅(yb - ya)⋅a⁻¹ (mod a⋅b), where a⁻¹ is taken mod b
	var ya, yb saferith.Nat
	ya.Exp(x, e, m.crt.a)
	yb.Exp(x, e, m.crt.b)
	h := new(saferith.Nat).ModSub(&yb, &ya, m.Modulus)
	h.ModMul(h, m.crt.aInvB, m.Modulus)
	h.ModMul(h, m.crt.aNat, m.Modulus)
	return h.ModAdd(h, &ya, m.Modulus)
}

// HasFactorization reports whether Exp uses the CRT.
func (m *Modulus) HasFactorization() bool {
	return m.crt != nil
}
