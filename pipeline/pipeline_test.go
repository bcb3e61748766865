package pipeline

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/linksim/linksim/channel"
	"github.com/linksim/linksim/fec"
	"github.com/linksim/linksim/internal/mocks"
	"github.com/linksim/linksim/textbits"
)

func newLDPCPipeline(t *testing.T, n channel.Noiser) *Pipeline {
	t.Helper()
	c := fec.NewLDPC(0)
	m, err := c.Construct(fec.Params{N: 96, Dv: 3, Dc: 4, Seed: 42})
	require.NoError(t, err)
	return New(c, m, n)
}

func newPolarPipeline(t *testing.T, n channel.Noiser) *Pipeline {
	t.Helper()
	c := fec.NewPolar(0)
	m, err := c.Construct(fec.Params{N: 128, Dv: 1, Dc: 2})
	require.NoError(t, err)
	return New(c, m, n)
}

func alternating(n int) []uint8 {
	b := make([]uint8, n)
	for i := range b {
		b[i] = uint8(i % 2)
	}
	return b
}

func TestZeroNoiseReproducesInput(t *testing.T) {
	for name, p := range map[string]*Pipeline{
		"ldpc":  newLDPCPipeline(t, channel.NewSeeded(1)),
		"polar": newPolarPipeline(t, channel.NewSeeded(1)),
	} {
		for _, l := range []int{1, 16, p.K() - 1, p.K()} {
			bits := alternating(l)
			bits[0] = 1
			res, err := p.Transmit(bits, 0)
			require.NoError(t, err, name)
			assert.Equal(t, bits, res.Decoded, "%s L=%d", name, l)
			assert.Len(t, res.Encoded, p.Matrices().N())
			assert.Len(t, res.Received, p.Matrices().N())
			assert.True(t, math.IsInf(res.SNRdB, 1))
		}
	}
}

func TestTransmitTextAB(t *testing.T) {
	p := newLDPCPipeline(t, channel.NewSeeded(3))
	res, err := p.TransmitText(textbits.New(textbits.Reject), "AB", 0)
	require.NoError(t, err)
	assert.Equal(t, []uint8{0, 1, 0, 0, 0, 0, 0, 1, 0, 1, 0, 0, 0, 0, 1, 0}, res.Original)
	assert.Equal(t, "AB", res.DecodedText)
	assert.Equal(t, res.Original, res.Decoded)
}

func TestTransmitTextEncodingError(t *testing.T) {
	p := newLDPCPipeline(t, channel.Noiseless{})
	_, err := p.TransmitText(textbits.New(textbits.Reject), "ĀB", 0)
	var ee *textbits.EncodingError
	assert.True(t, errors.As(err, &ee))
}

func TestOversize(t *testing.T) {
	p := newLDPCPipeline(t, channel.Noiseless{})
	_, err := p.Transmit(make([]uint8, p.K()+1), 0)
	var oe *OversizeError
	require.True(t, errors.As(err, &oe), "got %v", err)
	assert.Equal(t, p.K()+1, oe.Len)
	assert.Equal(t, p.K(), oe.Capacity)
}

func TestInvalidInput(t *testing.T) {
	p := newLDPCPipeline(t, channel.Noiseless{})
	_, err := p.Transmit([]uint8{0, 2}, 0)
	assert.True(t, errors.Is(err, ErrInvalidBit))
	_, err = p.Transmit([]uint8{0, 1}, -1)
	assert.True(t, errors.Is(err, ErrInvalidVariance))
	_, err = p.Transmit([]uint8{0, 1}, math.NaN())
	assert.True(t, errors.Is(err, ErrInvalidVariance))
	_, err = p.Transmit([]uint8{0, 1}, math.Inf(1))
	assert.True(t, errors.Is(err, ErrInvalidVariance))
}

func TestPadTruncate(t *testing.T) {
	out, err := Pad([]uint8{1, 0, 1}, 5)
	require.NoError(t, err)
	assert.Equal(t, []uint8{1, 0, 1, 0, 0}, out)
	assert.Equal(t, []uint8{1, 0, 1}, Truncate(out, 3))
	assert.Equal(t, out, Truncate(out, 9))
	_, err = Pad(make([]uint8, 6), 5)
	var oe *OversizeError
	assert.True(t, errors.As(err, &oe))
}

func TestStagesInOrder(t *testing.T) {
	ctrl := gomock.NewController(t)
	codec := mocks.NewMockCodec(ctrl)
	noiser := mocks.NewMockNoiser(ctrl)
	m := &fec.Matrices{Params: fec.Params{N: 4}, InfoSet: []int{0, 1, 2}}

	codeword := []uint8{1, 0, 1, 1}
	noise := []float64{0.9, -1.2, 1.1, 0.7}
	soft := []float64{-3, 3, -3, -3}
	gomock.InOrder(
		codec.EXPECT().Encode(m, []uint8{1, 1, 0}).Return(codeword, nil),
		noiser.EXPECT().AddNoise([]float64{1, -1, 1, 1}, 0.5).Return(noise),
		codec.EXPECT().Decode(m, noise, gomock.Any()).
			DoAndReturn(func(_ *fec.Matrices, _ []float64, snr float64) ([]float64, error) {
				assert.InDelta(t, 3.0103, snr, 1e-4)
				return soft, nil
			}),
		codec.EXPECT().ExtractMessage(m, soft).Return([]uint8{1, 1, 0}, nil),
	)

	res, err := New(codec, m, noiser).Transmit([]uint8{1, 1}, 0.5)
	require.NoError(t, err)
	assert.Equal(t, []uint8{1, 1}, res.Decoded)
	assert.Equal(t, codeword, res.Encoded)
	assert.Equal(t, noise, res.Received)
	assert.Equal(t, soft, res.Soft)
	assert.Equal(t, 0.5, res.Variance)
}

func TestDecodeErrorPropagates(t *testing.T) {
	ctrl := gomock.NewController(t)
	codec := mocks.NewMockCodec(ctrl)
	m := &fec.Matrices{Params: fec.Params{N: 2}, InfoSet: []int{0}}
	boom := errors.New("boom")
	codec.EXPECT().Encode(m, gomock.Any()).Return([]uint8{0, 0}, nil)
	codec.EXPECT().Decode(m, gomock.Any(), gomock.Any()).Return(nil, boom)

	_, err := New(codec, m, channel.Noiseless{}).Transmit([]uint8{0}, 1)
	assert.True(t, errors.Is(err, boom))
}

func TestWithNoiserSharesMatrices(t *testing.T) {
	p := newLDPCPipeline(t, channel.Noiseless{})
	q := p.WithNoiser(channel.Fixed{5})
	assert.Same(t, p.Matrices(), q.Matrices())
	res, err := q.Transmit([]uint8{0, 1}, 1)
	require.NoError(t, err)
	for _, y := range res.Received {
		assert.Greater(t, y, 0.0)
	}
}
