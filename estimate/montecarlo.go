package estimate

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"strings"

	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/stat"

	"github.com/linksim/linksim/channel"
	"github.com/linksim/linksim/pipeline"
	"github.com/linksim/linksim/textbits"
)

// ErrNoTrials is returned when fewer than one trial is requested.
var ErrNoTrials = errors.New("estimate: trial count must be at least 1")

// Transmitter is satisfied by *pipeline.Pipeline.
type Transmitter interface {
	Transmit(bits []uint8, variance float64) (*pipeline.Result, error)
}

// Metric selects the unit errors are counted in.
type Metric int

const (
	Bits Metric = iota
	Characters
)

func (m Metric) String() string {
	if m == Characters {
		return "cer"
	}
	return "ber"
}

// Label is the probability name used in data files: Pb or Pc.
func (m Metric) Label() string {
	if m == Characters {
		return "Pc"
	}
	return "Pb"
}

func ParseMetric(s string) (Metric, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "ber", "pb", "bits":
		return Bits, nil
	case "cer", "pc", "chars", "characters":
		return Characters, nil
	}
	return Bits, fmt.Errorf("estimate: unknown metric %q", s)
}

func (m Metric) units(bits []uint8) (int, error) {
	if m == Characters {
		if len(bits)%textbits.BitsPerChar != 0 {
			return 0, &textbits.LengthError{Len: len(bits)}
		}
		return len(bits) / textbits.BitsPerChar, nil
	}
	return len(bits), nil
}

func (m Metric) score(r *pipeline.Result) (Ratio, error) {
	if m == Characters {
		return CharacterErrorRateBits(r.Original, r.Decoded)
	}
	return BitErrorRate(r.Original, r.Decoded)
}

// Report accumulates a Monte-Carlo run.
type Report struct {
	Metric   Metric
	SNRdB    float64
	Trials   int
	Errors   int
	Units    int       // bits or characters per trial
	PerTrial []float64 // error rate of every trial, in trial order
}

// Probability is total errors over Trials×Units.
func (r Report) Probability() float64 {
	return Ratio{Errors: r.Errors, Total: r.Trials * r.Units}.Float()
}

// StdDev is the sample standard deviation of the per-trial error rates.
func (r Report) StdDev() float64 {
	if len(r.PerTrial) < 2 {
		return 0
	}
	return stat.StdDev(r.PerTrial, nil)
}

// Mean of the per-trial error rates; equals Probability.
func (r Report) Mean() float64 {
	if len(r.PerTrial) == 0 {
		return 0
	}
	return stat.Mean(r.PerTrial, nil)
}

// Run transmits bits exactly trials times at snrDB, sequentially, and counts
// errors in the given metric. The result is deterministic for a seeded
// transmitter.
func Run(t Transmitter, metric Metric, bits []uint8, snrDB float64, trials int) (Report, error) {
	if trials < 1 {
		return Report{}, ErrNoTrials
	}
	units, err := metric.units(bits)
	if err != nil {
		return Report{}, err
	}
	variance := channel.SNRdBToVariance(snrDB)
	rep := Report{Metric: metric, SNRdB: snrDB, Trials: trials, Units: units, PerTrial: make([]float64, trials)}
	for i := 0; i < trials; i++ {
		res, err := t.Transmit(bits, variance)
		if err != nil {
			return Report{}, fmt.Errorf("estimate: trial %d: %w", i, err)
		}
		r, err := metric.score(res)
		if err != nil {
			return Report{}, fmt.Errorf("estimate: trial %d: %w", i, err)
		}
		rep.Errors += r.Errors
		rep.PerTrial[i] = r.Float()
	}
	return rep, nil
}

// MonteCarloBitErrorProbability runs exactly trials transmissions and returns
// total_errors / (trials × len(bits)).
func MonteCarloBitErrorProbability(t Transmitter, bits []uint8, snrDB float64, trials int) (float64, error) {
	rep, err := Run(t, Bits, bits, snrDB, trials)
	if err != nil {
		return 0, err
	}
	return rep.Probability(), nil
}

// MonteCarloCharacterErrorProbability is the character-level counterpart;
// bits must be a whole number of characters.
func MonteCarloCharacterErrorProbability(t Transmitter, bits []uint8, snrDB float64, trials int) (float64, error) {
	rep, err := Run(t, Characters, bits, snrDB, trials)
	if err != nil {
		return 0, err
	}
	return rep.Probability(), nil
}

// Factory returns the transmitter for one trial. Giving each trial its own
// seeded channel makes parallel runs reproducible regardless of scheduling.
type Factory func(trial int) Transmitter

// RunParallel is Run with trials spread over workers goroutines.
func RunParallel(ctx context.Context, f Factory, metric Metric, bits []uint8, snrDB float64, trials, workers int) (Report, error) {
	if trials < 1 {
		return Report{}, ErrNoTrials
	}
	units, err := metric.units(bits)
	if err != nil {
		return Report{}, err
	}
	if workers < 1 {
		workers = 1
	}
	variance := channel.SNRdBToVariance(snrDB)
	errs := make([]int, trials)
	perTrial := make([]float64, trials)

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i := 0; i < trials; i++ {
		i := i
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			res, err := f(i).Transmit(bits, variance)
			if err != nil {
				return fmt.Errorf("estimate: trial %d: %w", i, err)
			}
			r, err := metric.score(res)
			if err != nil {
				return fmt.Errorf("estimate: trial %d: %w", i, err)
			}
			errs[i] = r.Errors
			perTrial[i] = r.Float()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return Report{}, err
	}
	rep := Report{Metric: metric, SNRdB: snrDB, Trials: trials, Units: units, PerTrial: perTrial}
	for _, e := range errs {
		rep.Errors += e
	}
	return rep, nil
}

// ParallelBitErrorProbability is MonteCarloBitErrorProbability over workers.
func ParallelBitErrorProbability(ctx context.Context, f Factory, bits []uint8, snrDB float64, trials, workers int) (float64, error) {
	rep, err := RunParallel(ctx, f, Bits, bits, snrDB, trials, workers)
	if err != nil {
		return 0, err
	}
	return rep.Probability(), nil
}

// SeededFactory derives per-trial channels from one seed.
func SeededFactory(p *pipeline.Pipeline, seed uint64) Factory {
	return func(trial int) Transmitter {
		return p.WithNoiser(channel.New(newTrialSource(seed, trial)))
	}
}

func newTrialSource(seed uint64, trial int) rand.Source {
	return rand.NewPCG(seed, uint64(trial)+1)
}
