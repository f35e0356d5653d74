package sample

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math/big"

	"github.com/cronokirby/saferith"
	"github.com/lambdae2e/hecore/pkg/pool"
)

// trialPrimes contains the first 128 odd prime numbers.
//
// Candidates divisible by any of them are skipped before running the
// expensive Miller-Rabin rounds.
var trialPrimes = []uint64{
	3, 5, 7, 11, 13, 17, 19, 23,
	29, 31, 37, 41, 43, 47, 53, 59,
	61, 67, 71, 73, 79, 83, 89, 97,
	101, 103, 107, 109, 113, 127, 131, 137,
	139, 149, 151, 157, 163, 167, 173, 179,
	181, 191, 193, 197, 199, 211, 223, 227,
	229, 233, 239, 241, 251, 257, 263, 269,
	271, 277, 281, 283, 293, 307, 311, 313,
	317, 331, 337, 347, 349, 353, 359, 367,
	373, 379, 383, 389, 397, 401, 409, 419,
	421, 431, 433, 439, 443, 449, 457, 461,
	463, 467, 479, 487, 491, 499, 503, 509,
	521, 523, 541, 547, 557, 563, 569, 571,
	577, 587, 593, 599, 601, 607, 613, 617,
	619, 631, 641, 643, 647, 653, 659, 661,
	673, 677, 683, 691, 701, 709, 719, 727,
}

// MinPrimeBits is the smallest prime size accepted by Prime.
const MinPrimeBits = 16

// maxDelta bounds how far from the random starting point we walk looking for
// a candidate that survives trial division. This is a heuristic cap used by OpenSSL.
var maxDelta = (uint64(1) << 32) - trialPrimes[len(trialPrimes)-1]

// maxPrimeIterations is the number of candidates Prime tests before giving up.
//
// By the prime number theorem a random odd 1024 bit number is prime with
// probability around 1/355, so this is never reached in practice.
const maxPrimeIterations = 100_000

// ErrMaxPrimeIterations is the error we return when we fail to generate a prime.
var ErrMaxPrimeIterations = fmt.Errorf("sample: failed to generate prime after %d iterations", maxPrimeIterations)

// potentialPrime generates an odd candidate prime of exactly the given size.
//
// The candidate returned by this function will have undergone trial division
// by small primes, but not the heavier Miller-Rabin test.
func potentialPrime(rand io.Reader, bits int) (p *big.Int, err error) {
	// This function was adapted from `rand.Prime`.
	//
	// The general strategy is to generate random numbers without an obviously
	// deficient bit pattern, and then check that this number, or one nearby,
	// isn't divisible by any of our trial primes.
	if bits < MinPrimeBits {
		return nil, fmt.Errorf("sample: prime size must be at least %d bits", MinPrimeBits)
	}

	// The number of significant bits in the first byte of our number
	lastBits := uint(bits % 8)
	if lastBits == 0 {
		lastBits = 8
	}

	bytes := make([]byte, (bits+7)/8)
	p = new(big.Int)
	scratch := new(big.Int)
	// We store a different remainder for each prime, so that we can then adjust
	// these values with deltas, instead of adjusting our large prime, and
	// then recalculating the remainder.
	mods := make([]uint64, len(trialPrimes))

	for {
		if _, err = io.ReadFull(rand, bytes); err != nil {
			return nil, err
		}

		// Clear bits in the first byte to make sure the candidate has a size <= bits.
		bytes[0] &= uint8(int(1<<lastBits) - 1)
		// Setting the top two bits, rather than just the top bit,
		// means that when two of these values are multiplied together,
		// the result isn't ever one bit short.
		if lastBits >= 2 {
			bytes[0] |= 0b11 << (lastBits - 2)
		} else {
			bytes[0] |= 1
			bytes[1] |= 0b1000_0000
		}
		// odd
		bytes[len(bytes)-1] |= 1

		p.SetBytes(bytes)

		for i := 0; i < len(trialPrimes); i++ {
			scratch.SetUint64(trialPrimes[i])
			mods[i] = scratch.Mod(p, scratch).Uint64()
		}
	NextDelta:
		for delta := uint64(0); delta < maxDelta; delta += 2 {
			for i := 0; i < len(trialPrimes); i++ {
				if (mods[i]+delta)%trialPrimes[i] == 0 {
					continue NextDelta
				}
			}
			scratch.SetUint64(delta)
			p.Add(p, scratch)

			// There is a tiny possibility that, by adding delta, we caused
			// the number to be one bit too long.
			if p.BitLen() == bits {
				return p, nil
			}
			break
		}
	}
}

// tryPrime tests a single candidate, returning nil if it is composite.
func tryPrime(rand io.Reader, bits, rounds int) (*saferith.Nat, error) {
	p, err := potentialPrime(rand, bits)
	if err != nil {
		return nil, err
	}
	// ProbablyPrime runs the requested Miller-Rabin rounds with random bases,
	// followed by a Baillie-PSW test.
	if !p.ProbablyPrime(rounds) {
		return nil, nil
	}
	return new(saferith.Nat).SetBig(p, bits), nil
}

// Prime returns a random prime p of exactly bits bits, whose two most significant bits are set.
//
// Each candidate goes through `rounds` iterations of Miller-Rabin.
func Prime(rand io.Reader, bits, rounds int) (*saferith.Nat, error) {
	if rounds < 1 {
		return nil, errors.New("sample: at least one primality round is required")
	}
	for i := 0; i < maxPrimeIterations; i++ {
		p, err := tryPrime(rand, bits, rounds)
		if err != nil {
			return nil, err
		}
		if p != nil {
			return p, nil
		}
	}
	return nil, ErrMaxPrimeIterations
}

// Paillier generates the two primes p, q of a Paillier modulus N = p⋅q of size 2⋅bits.
//
// The search runs on the workers of pl, if any, sharing rand between them.
// The primes are not guaranteed to be distinct; the caller must check.
func Paillier(ctx context.Context, rand io.Reader, pl *pool.Pool, bits, rounds int) (p, q *saferith.Nat, err error) {
	if rounds < 1 {
		return nil, nil, errors.New("sample: at least one primality round is required")
	}
	reader := pool.NewLockedReader(rand)
	results, err := pl.Search(ctx, 2, func() (interface{}, error) {
		p, err := tryPrime(reader, bits, rounds)
		// You have to do this, because of how Go handles nil.
		if p == nil {
			return nil, err
		}
		return p, nil
	})
	if err != nil {
		return nil, nil, err
	}
	return results[0].(*saferith.Nat), results[1].(*saferith.Nat), nil
}
