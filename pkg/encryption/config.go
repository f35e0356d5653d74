package encryption

import (
	"errors"
	"fmt"
	"runtime"

	"github.com/lambdae2e/hecore/internal/params"
	"github.com/lambdae2e/hecore/pkg/paillier"
)

// ErrInvalidConfig is returned by Config.Validate for settings outside of the key parameters.
var ErrInvalidConfig = errors.New("invalid configuration")

// Config holds the settings of an Engine.
type Config struct {
	// Parameters of the key generated by New.
	Parameters paillier.Parameters
	// Workers is the size of the pool searching for primes.
	// 0 uses one worker per CPU, a negative value searches on the calling goroutine.
	Workers int
	// BatchConcurrency bounds the number of elements of a batch processed at once.
	BatchConcurrency int
	// SpectrumScale is the fixed point factor applied by EncryptSpectrum.
	SpectrumScale int64
}

// DefaultConfig returns a Config generating 2048 bit keys on all CPUs.
func DefaultConfig() Config {
	return Config{
		Parameters:       paillier.DefaultParameters(),
		Workers:          0,
		BatchConcurrency: runtime.NumCPU(),
		SpectrumScale:    params.SpectrumScale,
	}
}

// Validate checks the key parameters and the batch settings.
func (c Config) Validate() error {
	if err := c.Parameters.Validate(); err != nil {
		return err
	}
	if c.BatchConcurrency < 1 {
		return fmt.Errorf("%w: batch concurrency %d", ErrInvalidConfig, c.BatchConcurrency)
	}
	if c.SpectrumScale < 1 {
		return fmt.Errorf("%w: spectrum scale %d", ErrInvalidConfig, c.SpectrumScale)
	}
	return nil
}
