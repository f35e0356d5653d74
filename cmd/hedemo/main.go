// Command hedemo runs the encrypted voting and salary scenarios end to end:
// a trusted engine encrypts the inputs, an aggregator holding only the public
// key combines them, and the engine decrypts the results.
package main

import (
	"context"
	"flag"
	"fmt"
	"math/big"
	"os"
	"os/signal"

	"github.com/lambdae2e/hecore/pkg/encryption"
	"github.com/lambdae2e/hecore/pkg/paillier"
	"github.com/montanaflynn/stats"
	"github.com/rs/zerolog"
)

func main() {
	cfg := encryption.DefaultConfig()
	var (
		bits     = flag.Int("bits", cfg.Parameters.Bits, "size of the Paillier modulus in bits")
		rounds   = flag.Int("rounds", cfg.Parameters.PrimalityRounds, "Miller-Rabin rounds per prime candidate")
		workers  = flag.Int("workers", cfg.Workers, "prime search workers, 0 for one per CPU, negative for none")
		votes    = flag.String("votes", "1,0,1,1", "comma separated ballots, each 0 or 1")
		salaries = flag.String("salaries", "52000,61000,75500", "comma separated salaries")
		spectrum = flag.String("spectrum", "0.5,1.25,3.125", "comma separated FFT magnitudes")
		level    = flag.String("log-level", "info", "log level")
	)
	flag.Parse()

	lvl, err := zerolog.ParseLevel(*level)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	log := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).Level(lvl).With().Timestamp().Logger()

	cfg.Parameters = paillier.Parameters{Bits: *bits, PrimalityRounds: *rounds}
	cfg.Workers = *workers

	in, err := parseInputs(*votes, *salaries, *spectrum)
	if err != nil {
		log.Error().Err(err).Msg("invalid input")
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	if err = run(ctx, cfg, in, log); err != nil {
		log.Error().Err(err).Msg("demo failed")
		stop()
		os.Exit(1)
	}
}

type inputs struct {
	votes    []int64
	salaries []int64
	spectrum []float64
}

func run(ctx context.Context, cfg encryption.Config, in inputs, log zerolog.Logger) error {
	engine, err := encryption.New(ctx, cfg, log)
	if err != nil {
		return err
	}

	// the aggregator only ever sees the serialized public key
	data, err := engine.PublicKey().MarshalBinary()
	if err != nil {
		return err
	}
	pk := new(paillier.PublicKey)
	if err = pk.UnmarshalBinary(data); err != nil {
		return err
	}
	agg := encryption.NewAggregator(pk, log.With().Str("component", "aggregator").Logger())

	if err = voting(engine, agg, in.votes, log); err != nil {
		return fmt.Errorf("voting: %w", err)
	}
	if err = salary(ctx, engine, agg, in.salaries, log); err != nil {
		return fmt.Errorf("salaries: %w", err)
	}
	if err = spectrum(ctx, engine, agg, in.spectrum, cfg.SpectrumScale, log); err != nil {
		return fmt.Errorf("spectrum: %w", err)
	}
	return nil
}

func voting(engine *encryption.Engine, agg *encryption.Aggregator, votes []int64, log zerolog.Logger) error {
	ballots := make([]string, 0, len(votes))
	for _, v := range votes {
		b, err := engine.SecureVote(v)
		if err != nil {
			return err
		}
		ballots = append(ballots, b)
	}
	tally, err := agg.TallyVotes(ballots)
	if err != nil {
		return err
	}
	total, err := engine.DecryptValue(tally.EncryptedTotal)
	if err != nil {
		return err
	}
	log.Info().Int("voters", tally.Voters).Str("yes", total.String()).Msg("vote tallied")
	return nil
}

func salary(ctx context.Context, engine *encryption.Engine, agg *encryption.Aggregator, salaries []int64, log zerolog.Logger) error {
	cts, err := engine.EncryptArray(ctx, salaries)
	if err != nil {
		return err
	}
	st, err := agg.SalaryStats(cts)
	if err != nil {
		return err
	}
	total, err := engine.DecryptValue(st.EncryptedTotal)
	if err != nil {
		return err
	}
	avg, err := engine.Average(st.Aggregate())
	if err != nil {
		return err
	}
	homomorphic, _ := avg.Float64()

	plain := make(stats.Float64Data, len(salaries))
	for i, s := range salaries {
		plain[i] = float64(s)
	}
	mean, err := stats.Mean(plain)
	if err != nil {
		return err
	}
	if diff := homomorphic - mean; diff > 1e-6 || diff < -1e-6 {
		return fmt.Errorf("homomorphic average %v differs from plaintext mean %v", homomorphic, mean)
	}
	log.Info().
		Int("employees", st.Employees).
		Str("total", total.String()).
		Str("average", avg.FloatString(2)).
		Float64("plaintext_mean", mean).
		Msg("salary statistics")
	return nil
}

func spectrum(ctx context.Context, engine *encryption.Engine, agg *encryption.Aggregator, magnitudes []float64, scale int64, log zerolog.Logger) error {
	cts, err := engine.EncryptSpectrum(ctx, magnitudes)
	if err != nil {
		return err
	}
	res, err := agg.Aggregate(cts)
	if err != nil {
		return err
	}
	sum, err := engine.DecryptValue(res.Sum)
	if err != nil {
		return err
	}
	energy := new(big.Rat).SetFrac(sum, big.NewInt(scale))
	log.Info().Int("bins", res.Count).Str("total_magnitude", energy.FloatString(3)).Msg("spectrum aggregated")
	return nil
}
