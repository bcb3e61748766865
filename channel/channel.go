// Package channel models a BPSK link over an additive white Gaussian noise channel.
//
// Signal-to-noise ratios are always expressed as 10·log10(1/σ²). Some of the
// older experiment scripts used the natural logarithm in that formula; those
// values are not comparable with the ones produced here.
package channel

import (
	"math"
	"math/rand/v2"

	"gonum.org/v1/gonum/stat/distuv"
)

// DefaultEs is the symbol energy used when none is configured.
const DefaultEs = 1.0

// Noiser corrupts a transmitted signal.
type Noiser interface {
	AddNoise(signal []float64, variance float64) []float64
}

// Model is an AWGN channel drawing from an injected random source.
// A Model is not safe for concurrent use; give each goroutine its own.
type Model struct {
	src rand.Source
}

// New returns a channel drawing noise from src.
func New(src rand.Source) *Model {
	return &Model{src: src}
}

// NewSeeded returns a channel with a PCG source for the given seed.
func NewSeeded(seed uint64) *Model {
	return New(rand.NewPCG(seed, 0))
}

// AddNoise adds zero-mean Gaussian noise of the given variance to every sample.
// Non-positive variances leave the signal unchanged.
func (m *Model) AddNoise(signal []float64, variance float64) []float64 {
	out := make([]float64, len(signal))
	copy(out, signal)
	if variance <= 0 || math.IsNaN(variance) {
		return out
	}
	n := distuv.Normal{Mu: 0, Sigma: math.Sqrt(variance), Src: m.src}
	for i := range out {
		out[i] += n.Rand()
	}
	return out
}

// Noiseless passes the signal through untouched.
type Noiseless struct{}

func (Noiseless) AddNoise(signal []float64, _ float64) []float64 {
	return append([]float64(nil), signal...)
}

// Fixed adds a predetermined noise vector, cycling when the signal is longer.
type Fixed []float64

func (f Fixed) AddNoise(signal []float64, _ float64) []float64 {
	out := append([]float64(nil), signal...)
	if len(f) == 0 {
		return out
	}
	for i := range out {
		out[i] += f[i%len(f)]
	}
	return out
}

// Modulate maps 0 to -1 and 1 to +1.
func Modulate(bits []uint8) []float64 {
	return ModulateEs(bits, DefaultEs)
}

// ModulateEs maps 0 to -√Es and 1 to +√Es.
func ModulateEs(bits []uint8, es float64) []float64 {
	a := math.Sqrt(es)
	out := make([]float64, len(bits))
	for i, b := range bits {
		if b != 0 {
			out[i] = a
		} else {
			out[i] = -a
		}
	}
	return out
}

// VarianceToSNRdB returns 10·log10(1/variance). Zero variance is +Inf.
func VarianceToSNRdB(variance float64) float64 {
	if variance <= 0 {
		return math.Inf(1)
	}
	return 10 * math.Log10(1/variance)
}

// SNRdBToVariance is the inverse of VarianceToSNRdB.
func SNRdBToVariance(snrDB float64) float64 {
	return math.Pow(10, -snrDB/10)
}

// LogLikelihoodRatios computes -2·y·√Es/No per sample, No = 2·variance.
// Positive values favour bit 0.
func LogLikelihoodRatios(received []float64, variance, es float64) []float64 {
	no := 2 * variance
	a := math.Sqrt(es)
	out := make([]float64, len(received))
	for i, y := range received {
		out[i] = -2 * y * a / no
	}
	return out
}
