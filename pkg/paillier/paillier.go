package paillier

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/lambdae2e/hecore/internal/params"
	"github.com/lambdae2e/hecore/pkg/math/arith"
	"github.com/lambdae2e/hecore/pkg/math/sample"
	"github.com/lambdae2e/hecore/pkg/pool"
)

// Parameters configures key generation.
type Parameters struct {
	// Bits is the size of the modulus N. Each prime factor has Bits/2 bits.
	Bits int
	// PrimalityRounds is the number of Miller-Rabin rounds run on every prime candidate.
	PrimalityRounds int
}

// DefaultParameters returns 2048 bit moduli with 40 Miller-Rabin rounds.
func DefaultParameters() Parameters {
	return Parameters{
		Bits:            params.BitsPaillier,
		PrimalityRounds: params.PrimalityRounds,
	}
}

// Validate returns ErrInsecureParameters if the parameters are unusable.
func (p Parameters) Validate() error {
	if p.Bits < params.MinBitsPaillier {
		return newError("keygen", "bits", fmt.Errorf("%w: modulus of %d bits, need at least %d", ErrInsecureParameters, p.Bits, params.MinBitsPaillier))
	}
	if p.Bits%2 != 0 {
		return newError("keygen", "bits", fmt.Errorf("%w: modulus size %d is odd", ErrInsecureParameters, p.Bits))
	}
	if p.PrimalityRounds < 1 {
		return newError("keygen", "rounds", fmt.Errorf("%w: %d primality rounds", ErrInsecureParameters, p.PrimalityRounds))
	}
	return nil
}

// maxKeyGenAttempts bounds the number of prime pairs drawn. A pair is only
// rejected when p = q or gcd(ϕ, N) ≠ 1, neither of which happens in practice.
const maxKeyGenAttempts = 16

// KeyGen generates a new PublicKey and its associated SecretKey.
//
// The primes are searched on the workers of pl, or on the calling goroutine if pl is nil.
// Parameters are checked before any prime search begins.
// Failures of rand, or ctx being done, are reported as ErrKeyGeneration.
func KeyGen(ctx context.Context, rand io.Reader, pl *pool.Pool, prm Parameters) (pk *PublicKey, sk *SecretKey, err error) {
	if err = prm.Validate(); err != nil {
		return nil, nil, err
	}
	for i := 0; i < maxKeyGenAttempts; i++ {
		p, q, err := sample.Paillier(ctx, rand, pl, prm.Bits/2, prm.PrimalityRounds)
		if err != nil {
			return nil, nil, newError("keygen", "", fmt.Errorf("%w: %w", ErrKeyGeneration, err))
		}
		sk, err = newSecretKey(p, q)
		if errors.Is(err, ErrPrimesEqual) || errors.Is(err, arith.ErrNoInverse) {
			continue
		}
		if err != nil {
			return nil, nil, newError("keygen", "", fmt.Errorf("%w: %w", ErrKeyGeneration, err))
		}
		return sk.PublicKey, sk, nil
	}
	return nil, nil, newError("keygen", "", fmt.Errorf("%w: no usable primes after %d attempts", ErrKeyGeneration, maxKeyGenAttempts))
}
