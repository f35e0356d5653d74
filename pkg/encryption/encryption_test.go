package encryption

import (
	"bytes"
	"context"
	"math"
	"math/big"
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/lambdae2e/hecore/internal/params"
	"github.com/lambdae2e/hecore/pkg/paillier"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	enginesOnce             sync.Once
	testEngine, otherEngine *Engine
)

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.Parameters = paillier.Parameters{Bits: 1024, PrimalityRounds: 20}
	cfg.Workers = 2
	cfg.BatchConcurrency = 4
	return cfg
}

// engines returns two engines with independent keys, shared by all tests of the package.
func engines(t testing.TB) (*Engine, *Engine) {
	enginesOnce.Do(func() {
		var err error
		if testEngine, err = New(context.Background(), testConfig(), zerolog.Nop()); err != nil {
			panic(err)
		}
		if otherEngine, err = New(context.Background(), testConfig(), zerolog.Nop()); err != nil {
			panic(err)
		}
	})
	require.NotNil(t, testEngine)
	return testEngine, otherEngine
}

func toInt64s(xs []*big.Int) []int64 {
	out := make([]int64, len(xs))
	for i, x := range xs {
		out[i] = x.Int64()
	}
	return out
}

func TestConfig(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.Validate())
	want := Config{
		Parameters:       paillier.Parameters{Bits: 2048, PrimalityRounds: 40},
		Workers:          0,
		BatchConcurrency: cfg.BatchConcurrency,
		SpectrumScale:    1000,
	}
	assert.Empty(t, cmp.Diff(want, cfg))
	assert.GreaterOrEqual(t, cfg.BatchConcurrency, 1)

	bad := cfg
	bad.BatchConcurrency = 0
	assert.ErrorIs(t, bad.Validate(), ErrInvalidConfig)

	bad = cfg
	bad.SpectrumScale = 0
	assert.ErrorIs(t, bad.Validate(), ErrInvalidConfig)

	bad = cfg
	bad.Parameters.Bits = 256
	assert.ErrorIs(t, bad.Validate(), paillier.ErrInsecureParameters)
}

func TestNew_InsecureParameters(t *testing.T) {
	cfg := testConfig()
	cfg.Parameters.Bits = 256
	_, err := New(context.Background(), cfg, zerolog.Nop())
	assert.ErrorIs(t, err, paillier.ErrInsecureParameters)

	_, err = NewWithKey(nil, testConfig(), zerolog.Nop())
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestNew_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	cfg := testConfig()
	cfg.Workers = -1
	_, err := New(ctx, cfg, zerolog.Nop())
	assert.ErrorIs(t, err, paillier.ErrKeyGeneration)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestEncryptDecryptValue(t *testing.T) {
	e, _ := engines(t)
	for _, m := range []int64{0, 1, 42, 1 << 40, math.MaxInt64} {
		s, err := e.EncryptValue(m)
		require.NoError(t, err)
		got, err := e.DecryptValue(s)
		require.NoError(t, err)
		assert.Equal(t, m, got.Int64())
	}

	_, err := e.EncryptValue(-1)
	assert.ErrorIs(t, err, paillier.ErrPlaintextOutOfRange)
	assert.Contains(t, err.Error(), "encryptValue")
}

func TestDecryptValue_Invalid(t *testing.T) {
	e, other := engines(t)

	_, err := e.DecryptValue("definitely not a ciphertext")
	assert.ErrorIs(t, err, paillier.ErrMalformedEncoding)
	_, err = e.DecryptValue("")
	assert.ErrorIs(t, err, paillier.ErrMalformedEncoding)

	foreign, err := other.EncryptValue(3)
	require.NoError(t, err)
	_, err = e.DecryptValue(foreign)
	assert.ErrorIs(t, err, paillier.ErrKeyMismatch)
}

func TestAggregator_AddMultiply(t *testing.T) {
	e, other := engines(t)
	agg := e.Aggregator()

	a, err := e.EncryptValue(10)
	require.NoError(t, err)
	b, err := e.EncryptValue(32)
	require.NoError(t, err)

	sum, err := agg.AddEncrypted(a, b)
	require.NoError(t, err)
	got, err := e.DecryptValue(sum)
	require.NoError(t, err)
	assert.Equal(t, int64(42), got.Int64())

	prod, err := agg.MultiplyEncrypted(a, 7)
	require.NoError(t, err)
	got, err = e.DecryptValue(prod)
	require.NoError(t, err)
	assert.Equal(t, int64(70), got.Int64())

	_, err = agg.MultiplyEncrypted(a, -2)
	assert.ErrorIs(t, err, paillier.ErrPlaintextOutOfRange)
	_, err = agg.MultiplyEncrypted("%%%", 2)
	assert.ErrorIs(t, err, paillier.ErrMalformedEncoding)

	_, err = agg.AddEncrypted(a, "%%%")
	assert.ErrorIs(t, err, paillier.ErrMalformedEncoding)
	foreign, err := other.EncryptValue(1)
	require.NoError(t, err)
	_, err = agg.AddEncrypted(foreign, b)
	assert.ErrorIs(t, err, paillier.ErrKeyMismatch)
}

func TestAggregator_FromMarshalledKey(t *testing.T) {
	e, _ := engines(t)
	data, err := e.PublicKey().MarshalBinary()
	require.NoError(t, err)
	pk := new(paillier.PublicKey)
	require.NoError(t, pk.UnmarshalBinary(data))
	agg := NewAggregator(pk, zerolog.Nop())

	values := []int64{3, 5, 8}
	cts, err := e.EncryptArray(context.Background(), values)
	require.NoError(t, err)
	res, err := agg.Aggregate(cts)
	require.NoError(t, err)
	assert.Equal(t, 3, res.Count)
	got, err := e.DecryptValue(res.Sum)
	require.NoError(t, err)
	assert.Equal(t, int64(16), got.Int64())
}

func TestSecureVote_Tally(t *testing.T) {
	e, _ := engines(t)
	agg := e.Aggregator()

	var ballots []string
	for _, v := range []int64{1, 0, 1, 1} {
		s, err := e.SecureVote(v)
		require.NoError(t, err)
		ballots = append(ballots, s)
	}
	tally, err := agg.TallyVotes(ballots)
	require.NoError(t, err)
	assert.Equal(t, 4, tally.Voters)
	total, err := e.DecryptValue(tally.EncryptedTotal)
	require.NoError(t, err)
	assert.Equal(t, int64(3), total.Int64())

	for _, v := range []int64{2, -1} {
		_, err = e.SecureVote(v)
		assert.ErrorIs(t, err, paillier.ErrPlaintextOutOfRange)
	}
	_, err = agg.TallyVotes(nil)
	assert.ErrorIs(t, err, paillier.ErrEmptyInput)
}

func TestSalaryStats_Average(t *testing.T) {
	e, _ := engines(t)
	agg := e.Aggregator()

	cts, err := e.EncryptArray(context.Background(), []int64{50000, 60000, 75000})
	require.NoError(t, err)
	stats, err := agg.SalaryStats(cts)
	require.NoError(t, err)
	assert.Equal(t, 3, stats.Employees)

	total, err := e.DecryptValue(stats.EncryptedTotal)
	require.NoError(t, err)
	assert.Equal(t, int64(185000), total.Int64())

	avg, err := e.Average(stats.Aggregate())
	require.NoError(t, err)
	assert.Equal(t, 0, avg.Cmp(big.NewRat(185000, 3)), "got %v", avg)

	_, err = agg.SalaryStats([]string{})
	assert.ErrorIs(t, err, paillier.ErrEmptyInput)
	_, err = e.Average(Aggregate{Sum: stats.EncryptedTotal})
	assert.ErrorIs(t, err, paillier.ErrEmptyInput)
}

func TestAggregate(t *testing.T) {
	e, _ := engines(t)
	agg := e.Aggregator()

	_, err := agg.Aggregate(nil)
	assert.ErrorIs(t, err, paillier.ErrEmptyInput)

	cts, err := e.EncryptArray(context.Background(), []int64{4, 6})
	require.NoError(t, err)
	_, err = agg.Aggregate(append(cts, "garbage"))
	assert.ErrorIs(t, err, paillier.ErrMalformedEncoding)
	assert.Contains(t, err.Error(), "cts[2]")

	single, err := agg.Aggregate(cts[:1])
	require.NoError(t, err)
	avg, err := e.Average(single)
	require.NoError(t, err)
	assert.Equal(t, 0, avg.Cmp(big.NewRat(4, 1)))
}

func TestBatch(t *testing.T) {
	e, _ := engines(t)
	ctx := context.Background()

	values := []int64{0, 1, 2, 3, 5, 8, 13, 21, 34}
	cts, err := e.EncryptArray(ctx, values)
	require.NoError(t, err)
	require.Len(t, cts, len(values))
	got, err := e.DecryptArray(ctx, cts)
	require.NoError(t, err)
	assert.Empty(t, cmp.Diff(values, toInt64s(got)))

	out, err := e.EncryptArray(ctx, []int64{1, -1, 2})
	assert.ErrorIs(t, err, paillier.ErrPlaintextOutOfRange)
	assert.Nil(t, out)

	res, err := e.DecryptArray(ctx, append(cts[:2:2], "garbage"))
	assert.ErrorIs(t, err, paillier.ErrMalformedEncoding)
	assert.Nil(t, res)

	empty, err := e.EncryptArray(ctx, nil)
	require.NoError(t, err)
	assert.Empty(t, empty)

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	_, err = e.EncryptArray(cancelled, values)
	assert.ErrorIs(t, err, context.Canceled)
	_, err = e.DecryptArray(cancelled, cts)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestEncryptSpectrum(t *testing.T) {
	e, _ := engines(t)
	ctx := context.Background()

	cts, err := e.EncryptSpectrum(ctx, []float64{0, 0.25, 1.5, 2.0004, 7})
	require.NoError(t, err)
	got, err := e.DecryptArray(ctx, cts)
	require.NoError(t, err)
	want := []int64{0, 250, 1500, 2000, 7 * params.SpectrumScale}
	assert.Empty(t, cmp.Diff(want, toInt64s(got)))

	for _, bad := range []float64{-0.5, math.NaN(), math.Inf(1), 1e300} {
		_, err = e.EncryptSpectrum(ctx, []float64{1, bad})
		assert.ErrorIs(t, err, paillier.ErrPlaintextOutOfRange, "%v", bad)
	}
}

func TestLogging(t *testing.T) {
	e, _ := engines(t)
	var buf bytes.Buffer
	logged, err := NewWithKey(e.sk, testConfig(), zerolog.New(&buf).Level(zerolog.DebugLevel))
	require.NoError(t, err)

	_, err = logged.EncryptValue(1)
	require.NoError(t, err)
	assert.Contains(t, buf.String(), `"level":"debug"`)
	assert.Contains(t, buf.String(), `"op":"encryptValue"`)
	assert.Contains(t, buf.String(), `"component":"encryption"`)

	buf.Reset()
	_, err = logged.DecryptValue("bad")
	require.Error(t, err)
	assert.Contains(t, buf.String(), `"level":"warn"`)
	assert.Contains(t, buf.String(), `"op":"decryptValue"`)
	assert.NotContains(t, buf.String(), e.sk.P().Big().String(), "secret material must never be logged")
}

func BenchmarkEncryptArray(b *testing.B) {
	e, _ := engines(b)
	values := make([]int64, 64)
	for i := range values {
		values[i] = int64(i)
	}
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = e.EncryptArray(context.Background(), values)
	}
}
