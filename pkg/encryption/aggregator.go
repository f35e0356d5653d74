package encryption

import (
	"fmt"

	"github.com/lambdae2e/hecore/pkg/paillier"
	"github.com/rs/zerolog"
)

// Aggregate is the homomorphic sum of a list of ciphertexts, with the number of terms.
//
// The scheme cannot divide, so an average is obtained by decrypting Sum and
// dividing by Count on the trusted side, see Engine.Average.
type Aggregate struct {
	Sum   string
	Count int
}

// Tally is the encrypted outcome of a vote.
type Tally struct {
	EncryptedTotal string
	Voters         int
}

// SalaryStats is the encrypted total of a list of salaries.
type SalaryStats struct {
	EncryptedTotal string
	Employees      int
}

// Aggregate returns the total and count, ready for Engine.Average.
func (s SalaryStats) Aggregate() Aggregate {
	return Aggregate{Sum: s.EncryptedTotal, Count: s.Employees}
}

// Aggregator combines ciphertexts without being able to decrypt them.
// It only ever holds a public key.
type Aggregator struct {
	pk  *paillier.PublicKey
	log zerolog.Logger
}

// NewAggregator returns an Aggregator for ciphertexts encrypted under pk.
func NewAggregator(pk *paillier.PublicKey, logger zerolog.Logger) *Aggregator {
	return &Aggregator{
		pk:  pk,
		log: logger.With().Hex("key", pk.Fingerprint()).Logger(),
	}
}

// AddEncrypted returns an encryption of the sum of the plaintexts of x and y.
func (a *Aggregator) AddEncrypted(x, y string) (string, error) {
	ctX, err := a.pk.Decode(x)
	if err != nil {
		return "", fail(a.log, "addEncrypted", fmt.Errorf("x: %w", err))
	}
	ctY, err := a.pk.Decode(y)
	if err != nil {
		return "", fail(a.log, "addEncrypted", fmt.Errorf("y: %w", err))
	}
	sum, err := a.pk.Add(ctX, ctY)
	if err != nil {
		return "", fail(a.log, "addEncrypted", err)
	}
	s, err := a.pk.Encode(sum)
	if err != nil {
		return "", fail(a.log, "addEncrypted", err)
	}
	a.log.Debug().Str("op", "addEncrypted").Msg("added ciphertexts")
	return s, nil
}

// MultiplyEncrypted returns an encryption of k times the plaintext of ct. k must not be negative.
func (a *Aggregator) MultiplyEncrypted(ct string, k int64) (string, error) {
	c, err := a.pk.Decode(ct)
	if err != nil {
		return "", fail(a.log, "multiplyEncrypted", err)
	}
	prod, err := a.pk.Mul(c, intFrom(k))
	if err != nil {
		return "", fail(a.log, "multiplyEncrypted", err)
	}
	s, err := a.pk.Encode(prod)
	if err != nil {
		return "", fail(a.log, "multiplyEncrypted", err)
	}
	a.log.Debug().Str("op", "multiplyEncrypted").Int64("k", k).Msg("multiplied ciphertext")
	return s, nil
}

// Aggregate sums cts homomorphically, in order.
func (a *Aggregator) Aggregate(cts []string) (Aggregate, error) {
	sum, err := a.sum(cts)
	if err != nil {
		return Aggregate{}, fail(a.log, "aggregate", err)
	}
	a.log.Debug().Str("op", "aggregate").Int("n", len(cts)).Msg("aggregated ciphertexts")
	return Aggregate{Sum: sum, Count: len(cts)}, nil
}

// TallyVotes sums encrypted ballots produced by Engine.SecureVote.
func (a *Aggregator) TallyVotes(votes []string) (Tally, error) {
	sum, err := a.sum(votes)
	if err != nil {
		return Tally{}, fail(a.log, "tallyVotes", err)
	}
	a.log.Debug().Str("op", "tallyVotes").Int("voters", len(votes)).Msg("counted votes")
	return Tally{EncryptedTotal: sum, Voters: len(votes)}, nil
}

// SalaryStats sums encrypted salaries.
func (a *Aggregator) SalaryStats(salaries []string) (SalaryStats, error) {
	sum, err := a.sum(salaries)
	if err != nil {
		return SalaryStats{}, fail(a.log, "salaryStats", err)
	}
	a.log.Debug().Str("op", "salaryStats").Int("employees", len(salaries)).Msg("computed salary total")
	return SalaryStats{EncryptedTotal: sum, Employees: len(salaries)}, nil
}

func (a *Aggregator) sum(in []string) (string, error) {
	if len(in) == 0 {
		return "", paillier.ErrEmptyInput
	}
	cts := make([]*paillier.Ciphertext, len(in))
	for i, s := range in {
		ct, err := a.pk.Decode(s)
		if err != nil {
			return "", fmt.Errorf("cts[%d]: %w", i, err)
		}
		cts[i] = ct
	}
	sum, err := a.pk.Sum(cts)
	if err != nil {
		return "", err
	}
	return a.pk.Encode(sum)
}
