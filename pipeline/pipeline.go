// Package pipeline runs one message through the simulated link:
//
//	Pad → Encode → Modulate → AddNoise → Decode → ExtractMessage → Truncate
//
// Randomness enters only in AddNoise, through the injected channel.Noiser.
package pipeline

import (
	"errors"
	"fmt"
	"math"

	"github.com/linksim/linksim/channel"
	"github.com/linksim/linksim/fec"
	"github.com/linksim/linksim/textbits"
)

// ErrInvalidBit is returned for an input element other than 0 or 1.
var ErrInvalidBit = errors.New("pipeline: bit vector element is not 0 or 1")

// ErrInvalidVariance is returned for a negative, NaN or infinite variance.
var ErrInvalidVariance = errors.New("pipeline: variance must be a finite non-negative number")

// OversizeError reports an input longer than the code's message length K.
type OversizeError struct {
	Len      int
	Capacity int
}

func (e *OversizeError) Error() string {
	return fmt.Sprintf("pipeline: message of %d bits exceeds code capacity of %d", e.Len, e.Capacity)
}

// Result records every stage of one transmission.
type Result struct {
	Original []uint8   // input bits, before padding
	Encoded  []uint8   // codeword
	Received []float64 // channel output
	Soft     []float64 // decoder output
	Decoded  []uint8   // recovered message, truncated to len(Original)
	Variance float64
	SNRdB    float64
}

// Pipeline is safe for concurrent use only if its Noiser is; use WithNoiser
// to give each goroutine its own channel.
type Pipeline struct {
	codec  fec.Codec
	m      *fec.Matrices
	noiser channel.Noiser
}

func New(codec fec.Codec, m *fec.Matrices, n channel.Noiser) *Pipeline {
	return &Pipeline{codec: codec, m: m, noiser: n}
}

// WithNoiser returns a pipeline sharing codec and matrices but using n.
func (p *Pipeline) WithNoiser(n channel.Noiser) *Pipeline {
	return &Pipeline{codec: p.codec, m: p.m, noiser: n}
}

// K is the largest message the pipeline accepts, in bits.
func (p *Pipeline) K() int { return p.m.K() }

func (p *Pipeline) Matrices() *fec.Matrices { return p.m }

func (p *Pipeline) Codec() fec.Codec { return p.codec }

// Pad zero-extends bits to k.
func Pad(bits []uint8, k int) ([]uint8, error) {
	if len(bits) > k {
		return nil, &OversizeError{Len: len(bits), Capacity: k}
	}
	out := make([]uint8, k)
	for i, b := range bits {
		if b > 1 {
			return nil, fmt.Errorf("%w: index %d is %d", ErrInvalidBit, i, b)
		}
		out[i] = b
	}
	return out, nil
}

// Truncate cuts a recovered message back to the caller's original length.
func Truncate(bits []uint8, n int) []uint8 {
	if n > len(bits) {
		n = len(bits)
	}
	return append([]uint8(nil), bits[:n]...)
}

// Transmit sends bits over a channel with the given noise variance.
func (p *Pipeline) Transmit(bits []uint8, variance float64) (*Result, error) {
	if variance < 0 || math.IsNaN(variance) || math.IsInf(variance, 0) {
		return nil, fmt.Errorf("%w: %v", ErrInvalidVariance, variance)
	}
	msg, err := Pad(bits, p.K())
	if err != nil {
		return nil, err
	}
	encoded, err := p.codec.Encode(p.m, msg)
	if err != nil {
		return nil, fmt.Errorf("pipeline: encode: %w", err)
	}
	received := p.noiser.AddNoise(channel.Modulate(encoded), variance)
	snr := channel.VarianceToSNRdB(variance)
	soft, err := p.codec.Decode(p.m, received, snr)
	if err != nil {
		return nil, fmt.Errorf("pipeline: decode: %w", err)
	}
	extracted, err := p.codec.ExtractMessage(p.m, soft)
	if err != nil {
		return nil, fmt.Errorf("pipeline: extract: %w", err)
	}
	return &Result{
		Original: append([]uint8(nil), bits...),
		Encoded:  encoded,
		Received: received,
		Soft:     soft,
		Decoded:  Truncate(extracted, len(bits)),
		Variance: variance,
		SNRdB:    snr,
	}, nil
}

// TextResult is a transmission of a text message.
type TextResult struct {
	*Result
	Text        string
	DecodedText string
}

// TransmitText converts text to bits with tc, transmits, and converts back.
func (p *Pipeline) TransmitText(tc *textbits.Codec, text string, variance float64) (*TextResult, error) {
	bits, err := tc.TextToBits(text)
	if err != nil {
		return nil, err
	}
	res, err := p.Transmit(bits, variance)
	if err != nil {
		return nil, err
	}
	out, err := textbits.BitsToText(res.Decoded)
	if err != nil {
		return nil, err
	}
	return &TextResult{Result: res, Text: text, DecodedText: out}, nil
}
