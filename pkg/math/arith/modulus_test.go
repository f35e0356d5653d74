package arith

import (
	mrand "math/rand"
	"testing"

	"github.com/cronokirby/saferith"
	"github.com/lambdae2e/hecore/pkg/math/sample"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestModulus_Exp(t *testing.T) {
	r := mrand.New(mrand.NewSource(0))

	assert.True(t, mFast.Nat().Eq(mSlow.Nat()) == 1, "n moduli should be the same")
	assert.True(t, mFast.HasFactorization())
	assert.False(t, mSlow.HasFactorization())

	for i := 0; i < 10; i++ {
		x := sample.ModN(r, n)
		e := sample.ModN(r, nSquared)

		yExpected := new(saferith.Nat).Exp(x, e, n)
		yFast := mFast.Exp(x, e)
		ySlow := mSlow.Exp(x, e)
		assert.True(t, yExpected.Eq(yFast) == 1, "exponentiation with acceleration should give the same result")
		assert.True(t, yExpected.Eq(ySlow) == 1, "exponentiation without acceleration should give the same result")
	}
}

func TestModulus_ExpSquared(t *testing.T) {
	r := mrand.New(mrand.NewSource(1))

	assert.True(t, mSquaredFast.Nat().Eq(mSquaredSlow.Nat()) == 1, "n² moduli should be the same")

	x := sample.ModN(r, nSquared)
	e := sample.ModN(r, n)
	yFast := mSquaredFast.Exp(x, e)
	ySlow := mSquaredSlow.Exp(x, e)
	assert.True(t, yFast.Eq(ySlow) == 1, "exponentiation mod n² should agree")
}

func TestModInverse(t *testing.T) {
	m := saferith.ModulusFromUint64(3 * 11 * 17)

	x := new(saferith.Nat).SetUint64(5)
	xInv, err := ModInverse(x, m)
	require.NoError(t, err)
	prod := new(saferith.Nat).ModMul(x, xInv, m)
	assert.True(t, prod.Eq(new(saferith.Nat).SetUint64(1)) == 1, "x⋅x⁻¹ should be 1")

	_, err = ModInverse(new(saferith.Nat).SetUint64(33), m)
	assert.ErrorIs(t, err, ErrNoInverse)

	_, err = ModInverse(new(saferith.Nat).SetUint64(0), m)
	assert.ErrorIs(t, err, ErrNoInverse)
}

func TestIsCoprime(t *testing.T) {
	a := new(saferith.Nat).SetUint64(3 * 7)
	b := new(saferith.Nat).SetUint64(5 * 11)
	c := new(saferith.Nat).SetUint64(7 * 13)
	assert.True(t, IsCoprime(a, b))
	assert.False(t, IsCoprime(a, c))
}

func benchmarkExpCRT(b *testing.B, m *Modulus, size int) {
	r := mrand.New(mrand.NewSource(0))
	e := new(saferith.Nat)
	buf := make([]byte, size/8)
	for i := 0; i < b.N; i++ {
		x := sample.ModN(r, m.Modulus)
		r.Read(buf)
		e.SetBytes(buf)
		m.Exp(x, e)
	}
}

func BenchmarkExp(b *testing.B) {
	sizes := map[string]int{
		"256":  256,
		"1024": 1024,
		"2048": 2048,
	}
	ms := map[string]*Modulus{
		"fast":        mFast,
		"slow":        mSlow,
		"fastSquared": mSquaredFast,
		"slowSquared": mSquaredSlow,
	}
	for sizeStr, size := range sizes {
		for mStr, m := range ms {
			b.Run(sizeStr+mStr, func(b *testing.B) {
				benchmarkExpCRT(b, m, size)
			})
		}
	}
}

var (
	p, pSquared, q, qSquared   *saferith.Nat
	n                          *saferith.Modulus
	nSquared                   *saferith.Modulus
	mFast, mSlow               *Modulus
	mSquaredFast, mSquaredSlow *Modulus
)

func init() {
	p, _ = new(saferith.Nat).SetHex("D08769E92F80F7FDFB85EC02AFFDAED0FDE2782070757F191DCDC4D108110AC1E31C07FC253B5F7B91C5D9F203AA0572D3F2062A3D2904C535C6ACCA7D5674E1C2640720E762C72B66931F483C2D910908CF02EA6723A0CBBB1016CA696C38FEAC59B31E40584C8141889A11F7A38F5B17811D11F42CD15B8470F11C6183802B")
	q, _ = new(saferith.Nat).SetHex("C21239C3484FC3C8409F40A9A22FABFFE26CA10C27506E3E017C2EC8C4B98D7A6D30DED0686869884BE9BAD27F5241B7313F73D19E9E4B384FABF9554B5BB4D517CBAC0268420C63D545612C9ADABEEDF20F94244E7F8F2080B0C675AC98D97C580D43375F999B1AC127EC580B89B2D302EF33DD5FD8474A241B0398F6088CA7")
	nNat := new(saferith.Nat).Mul(p, q, -1)
	n = saferith.ModulusFromNat(nNat)
	mFast = ModulusFromFactors(p, q)
	mSlow = ModulusFromN(n)

	pSquared = new(saferith.Nat).Mul(p, p, -1)
	qSquared = new(saferith.Nat).Mul(q, q, -1)
	nSquaredNat := new(saferith.Nat).Mul(pSquared, qSquared, -1)
	nSquared = saferith.ModulusFromNat(nSquaredNat)
	mSquaredFast = ModulusFromFactors(pSquared, qSquared)
	mSquaredSlow = ModulusFromN(nSquared)
}
