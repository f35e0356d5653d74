package encryption

import (
	"context"
	"crypto/rand"
	"fmt"
	"math"
	"math/big"
	"time"

	"github.com/cronokirby/saferith"
	"github.com/lambdae2e/hecore/pkg/paillier"
	"github.com/lambdae2e/hecore/pkg/pool"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// Engine is the trusted side of the scheme: it holds the key pair, encrypts
// inputs and decrypts aggregated results.
//
// An Engine is immutable once created and may be shared between goroutines.
// Ciphertexts cross its boundary in the textual form of paillier.PublicKey.Encode.
type Engine struct {
	cfg Config
	sk  *paillier.SecretKey
	pk  *paillier.PublicKey
	log zerolog.Logger
}

// New generates a key pair according to cfg and returns an Engine using it.
func New(ctx context.Context, cfg Config, logger zerolog.Logger) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("generate: %w", err)
	}
	var pl *pool.Pool
	if cfg.Workers >= 0 {
		pl = pool.NewPool(cfg.Workers)
		defer pl.TearDown()
	}

	log := logger.With().Str("component", "encryption").Logger()
	start := time.Now()
	_, sk, err := paillier.KeyGen(ctx, rand.Reader, pl, cfg.Parameters)
	if err != nil {
		return nil, fail(log, "generate", err)
	}
	log.Info().
		Int("bits", sk.BitLen()).
		Int("workers", pl.Size()).
		Dur("t", time.Since(start)).
		Hex("fingerprint", sk.Fingerprint()).
		Msg("generated key pair")
	return newEngine(sk, cfg, log), nil
}

// NewWithKey returns an Engine using an existing secret key.
// cfg.Parameters is not used to check the key.
func NewWithKey(sk *paillier.SecretKey, cfg Config, logger zerolog.Logger) (*Engine, error) {
	if sk == nil {
		return nil, fmt.Errorf("%w: nil secret key", ErrInvalidConfig)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return newEngine(sk, cfg, logger.With().Str("component", "encryption").Logger()), nil
}

func newEngine(sk *paillier.SecretKey, cfg Config, log zerolog.Logger) *Engine {
	return &Engine{
		cfg: cfg,
		sk:  sk,
		pk:  sk.PublicKey,
		log: log,
	}
}

// PublicKey returns the public half of the key pair.
func (e *Engine) PublicKey() *paillier.PublicKey {
	return e.pk
}

// Aggregator returns an Aggregator for this Engine's public key, sharing its logger.
func (e *Engine) Aggregator() *Aggregator {
	return NewAggregator(e.pk, e.log)
}

// EncryptValue encrypts m, which must lie in [0, N).
func (e *Engine) EncryptValue(m int64) (string, error) {
	s, err := e.encrypt(m)
	if err != nil {
		return "", fail(e.log, "encryptValue", err)
	}
	e.log.Debug().Str("op", "encryptValue").Msg("encrypted value")
	return s, nil
}

func (e *Engine) encrypt(m int64) (string, error) {
	ct, _, err := e.pk.Enc(intFrom(m))
	if err != nil {
		return "", err
	}
	return e.pk.Encode(ct)
}

// DecryptValue decrypts a ciphertext produced for this Engine's key.
func (e *Engine) DecryptValue(s string) (*big.Int, error) {
	m, err := e.decrypt(s)
	if err != nil {
		return nil, fail(e.log, "decryptValue", err)
	}
	e.log.Debug().Str("op", "decryptValue").Msg("decrypted value")
	return m, nil
}

func (e *Engine) decrypt(s string) (*big.Int, error) {
	ct, err := e.pk.Decode(s)
	if err != nil {
		return nil, err
	}
	m, err := e.sk.Dec(ct)
	if err != nil {
		return nil, err
	}
	return m.Big(), nil
}

// SecureVote encrypts a ballot, which must be 0 or 1.
func (e *Engine) SecureVote(vote int64) (string, error) {
	if vote != 0 && vote != 1 {
		return "", fail(e.log, "secureVote", fmt.Errorf("%w: vote must be 0 or 1, got %d", paillier.ErrPlaintextOutOfRange, vote))
	}
	s, err := e.encrypt(vote)
	if err != nil {
		return "", fail(e.log, "secureVote", err)
	}
	e.log.Debug().Str("op", "secureVote").Msg("encrypted vote")
	return s, nil
}

// Average decrypts the sum of an Aggregate and divides it by its count.
func (e *Engine) Average(a Aggregate) (*big.Rat, error) {
	if a.Count < 1 {
		return nil, fail(e.log, "average", fmt.Errorf("%w: count is %d", paillier.ErrEmptyInput, a.Count))
	}
	sum, err := e.decrypt(a.Sum)
	if err != nil {
		return nil, fail(e.log, "average", err)
	}
	avg := new(big.Rat).SetFrac(sum, big.NewInt(int64(a.Count)))
	e.log.Debug().Str("op", "average").Int("count", a.Count).Msg("computed average")
	return avg, nil
}

// EncryptArray encrypts every value, BatchConcurrency of them at a time.
// Either all values are encrypted, or an error is returned.
func (e *Engine) EncryptArray(ctx context.Context, values []int64) ([]string, error) {
	out, err := e.encryptAll(ctx, values)
	if err != nil {
		return nil, fail(e.log, "encryptArray", err)
	}
	e.log.Debug().Str("op", "encryptArray").Int("n", len(values)).Msg("encrypted values")
	return out, nil
}

func (e *Engine) encryptAll(ctx context.Context, values []int64) ([]string, error) {
	out := make([]string, len(values))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.cfg.BatchConcurrency)
	for i := range values {
		i := i
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			s, err := e.encrypt(values[i])
			if err != nil {
				return fmt.Errorf("values[%d]: %w", i, err)
			}
			out[i] = s
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// DecryptArray decrypts every ciphertext, BatchConcurrency of them at a time.
// Either all ciphertexts are decrypted, or an error is returned.
func (e *Engine) DecryptArray(ctx context.Context, cts []string) ([]*big.Int, error) {
	out := make([]*big.Int, len(cts))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.cfg.BatchConcurrency)
	for i := range cts {
		i := i
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			m, err := e.decrypt(cts[i])
			if err != nil {
				return fmt.Errorf("cts[%d]: %w", i, err)
			}
			out[i] = m
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fail(e.log, "decryptArray", err)
	}
	if err := ctx.Err(); err != nil {
		return nil, fail(e.log, "decryptArray", err)
	}
	e.log.Debug().Str("op", "decryptArray").Int("n", len(cts)).Msg("decrypted values")
	return out, nil
}

// EncryptSpectrum encrypts non negative magnitudes, such as the bins of an FFT,
// after scaling them by SpectrumScale and rounding to the nearest integer.
func (e *Engine) EncryptSpectrum(ctx context.Context, magnitudes []float64) ([]string, error) {
	scale := float64(e.cfg.SpectrumScale)
	values := make([]int64, len(magnitudes))
	for i, m := range magnitudes {
		v := math.Round(m * scale)
		// 2⁶³ is the first float64 outside of the int64 range
		if math.IsNaN(v) || v < 0 || v >= math.MaxInt64 {
			return nil, fail(e.log, "encryptSpectrum", fmt.Errorf("magnitudes[%d]: %w: %v", i, paillier.ErrPlaintextOutOfRange, m))
		}
		values[i] = int64(v)
	}
	out, err := e.encryptAll(ctx, values)
	if err != nil {
		return nil, fail(e.log, "encryptSpectrum", err)
	}
	e.log.Debug().Str("op", "encryptSpectrum").Int("n", len(values)).Int64("scale", e.cfg.SpectrumScale).Msg("encrypted spectrum")
	return out, nil
}

func intFrom(v int64) *saferith.Int {
	return new(saferith.Int).SetBig(big.NewInt(v), 64)
}

// fail prefixes err with the failing operation and logs it.
func fail(log zerolog.Logger, op string, err error) error {
	err = fmt.Errorf("%s: %w", op, err)
	log.Warn().Err(err).Str("op", op).Msg("operation failed")
	return err
}
