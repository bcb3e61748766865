package matcache

import (
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/linksim/linksim/fec"
	"github.com/linksim/linksim/internal/mocks"
)

var smallLDPC = fec.Params{Scheme: fec.SchemeLDPC, N: 96, Dv: 3, Dc: 4, Seed: 42}

type countingCodec struct {
	fec.Codec
	mu    sync.Mutex
	calls int
}

func (c *countingCodec) Construct(p fec.Params) (*fec.Matrices, error) {
	c.mu.Lock()
	c.calls++
	c.mu.Unlock()
	return c.Codec.Construct(p)
}

type recorder struct {
	mu  sync.Mutex
	got []Outcome
}

func (r *recorder) observe(o Outcome) {
	r.mu.Lock()
	r.got = append(r.got, o)
	r.mu.Unlock()
}

func TestMemoryHit(t *testing.T) {
	codec := &countingCodec{Codec: fec.NewLDPC(0)}
	rec := &recorder{}
	c := New("", codec, WithObserver(rec.observe))
	a, err := c.GetOrBuild(smallLDPC)
	require.NoError(t, err)
	b, err := c.GetOrBuild(smallLDPC)
	require.NoError(t, err)
	assert.Same(t, a, b)
	assert.Equal(t, 1, codec.calls)
	assert.Equal(t, []Outcome{Miss, HitMemory}, rec.got)
}

func TestSchemeDefaultsToCodec(t *testing.T) {
	c := New("", fec.NewPolar(0))
	m, err := c.GetOrBuild(fec.Params{N: 64, Dv: 1, Dc: 2})
	require.NoError(t, err)
	assert.Equal(t, fec.SchemePolar, m.Params.Scheme)
}

func TestDiskHitEquivalent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cache", "matrices.bin")
	codec := &countingCodec{Codec: fec.NewLDPC(0)}

	first, err := New(path, codec).GetOrBuild(smallLDPC)
	require.NoError(t, err)
	require.FileExists(t, path)

	rec := &recorder{}
	second, err := New(path, codec, WithObserver(rec.observe)).GetOrBuild(smallLDPC)
	require.NoError(t, err)
	assert.Equal(t, 1, codec.calls, "second cache must load from disk")
	assert.Equal(t, []Outcome{HitDisk}, rec.got)

	assert.True(t, first.H.Equal(second.H))
	assert.True(t, first.G.Equal(second.G))
	assert.Equal(t, first.InfoSet, second.InfoSet)

	msg := make([]uint8, first.K())
	for i := range msg {
		msg[i] = uint8(i % 2)
	}
	c1, err := codec.Encode(first, msg)
	require.NoError(t, err)
	c2, err := codec.Encode(second, msg)
	require.NoError(t, err)
	assert.Equal(t, c1, c2)
}

func TestRebuildMatchesFreshBuild(t *testing.T) {
	path := filepath.Join(t.TempDir(), "m.bin")
	a, err := New(path, fec.NewLDPC(0)).GetOrBuild(smallLDPC)
	require.NoError(t, err)
	require.NoError(t, os.Remove(path))
	b, err := New(path, fec.NewLDPC(0)).GetOrBuild(smallLDPC)
	require.NoError(t, err)
	assert.True(t, a.H.Equal(b.H))
	assert.True(t, a.G.Equal(b.G))
}

func TestParameterChangeReplacesEntry(t *testing.T) {
	path := filepath.Join(t.TempDir(), "m.bin")
	codec := &countingCodec{Codec: fec.NewLDPC(0)}
	c := New(path, codec)
	_, err := c.GetOrBuild(smallLDPC)
	require.NoError(t, err)

	other := smallLDPC
	other.Dc = 6
	m, err := c.GetOrBuild(other)
	require.NoError(t, err)
	assert.Equal(t, 6, m.Params.Dc)
	assert.Equal(t, 2, codec.calls)

	b, err := os.ReadFile(path)
	require.NoError(t, err)
	var h Header
	require.NoError(t, h.UnmarshalBinary(b))
	assert.Equal(t, uint16(6), h.Dc)

	// the old triple is gone
	rec := &recorder{}
	_, err = New(path, codec, WithObserver(rec.observe)).GetOrBuild(smallLDPC)
	require.NoError(t, err)
	assert.Equal(t, []Outcome{Miss}, rec.got)
	assert.Equal(t, 3, codec.calls)
}

func TestSeedNotPartOfKey(t *testing.T) {
	path := filepath.Join(t.TempDir(), "m.bin")
	codec := &countingCodec{Codec: fec.NewLDPC(0)}
	_, err := New(path, codec).GetOrBuild(smallLDPC)
	require.NoError(t, err)
	p := smallLDPC
	p.Seed = 7
	m, err := New(path, codec).GetOrBuild(p)
	require.NoError(t, err)
	assert.Equal(t, 1, codec.calls)
	assert.Equal(t, int64(42), m.Params.Seed)
}

func TestCorruptFileRebuilds(t *testing.T) {
	good, err := fec.NewLDPC(0).Construct(smallLDPC)
	require.NoError(t, err)

	cases := map[string]func(t *testing.T, path string){
		"garbage": func(t *testing.T, path string) {
			require.NoError(t, os.WriteFile(path, []byte("not a cache file"), 0o644))
		},
		"truncated": func(t *testing.T, path string) {
			b, err := os.ReadFile(path)
			require.NoError(t, err)
			require.NoError(t, os.WriteFile(path, b[:len(b)-10], 0o644))
		},
		"flipped body": func(t *testing.T, path string) {
			b, err := os.ReadFile(path)
			require.NoError(t, err)
			b[HeaderLen+3] ^= 0xff
			require.NoError(t, os.WriteFile(path, b, 0o644))
		},
		"forged digest": func(t *testing.T, path string) {
			body := []byte("definitely not zstd")
			h := newHeader(smallLDPC, body)
			require.NoError(t, os.WriteFile(path, append(h.MarshalBinary(), body...), 0o644))
		},
	}
	for name, corrupt := range cases {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "m.bin")
			_, err := New(path, fec.NewLDPC(0)).GetOrBuild(smallLDPC)
			require.NoError(t, err)
			corrupt(t, path)

			rec := &recorder{}
			m, err := New(path, fec.NewLDPC(0), WithObserver(rec.observe)).GetOrBuild(smallLDPC)
			require.NoError(t, err)
			assert.Equal(t, []Outcome{Corrupt, Miss}, rec.got)
			assert.True(t, good.G.Equal(m.G))

			// rebuilt file is healthy again
			rec = &recorder{}
			_, err = New(path, fec.NewLDPC(0), WithObserver(rec.observe)).GetOrBuild(smallLDPC)
			require.NoError(t, err)
			assert.Equal(t, []Outcome{HitDisk}, rec.got)
		})
	}
}

func TestLoadReportsCorruption(t *testing.T) {
	path := filepath.Join(t.TempDir(), "m.bin")
	require.NoError(t, os.WriteFile(path, []byte("LSMC"), 0o644))
	_, err := New(path, fec.NewLDPC(0)).load(smallLDPC)
	var ce *CorruptionError
	require.True(t, errors.As(err, &ce))
	assert.Equal(t, path, ce.Path)
}

func TestSaveFailureIsNotFatal(t *testing.T) {
	dir := t.TempDir()
	blocker := filepath.Join(dir, "file")
	require.NoError(t, os.WriteFile(blocker, nil, 0o644))
	path := filepath.Join(blocker, "m.bin")

	m, err := New(path, fec.NewLDPC(0)).GetOrBuild(smallLDPC)
	require.NoError(t, err)
	assert.NotNil(t, m)
}

func TestConstructFailureIsFatal(t *testing.T) {
	ctrl := gomock.NewController(t)
	codec := mocks.NewMockCodec(ctrl)
	bad := fec.Params{Scheme: fec.SchemeLDPC, N: 10, Dv: 3, Dc: 4}
	codec.EXPECT().Construct(bad).Return(nil, fec.ErrInvalidParams).Times(1)

	path := filepath.Join(t.TempDir(), "m.bin")
	_, err := New(path, codec).GetOrBuild(bad)
	require.Error(t, err)
	assert.True(t, errors.Is(err, fec.ErrInvalidParams))
	assert.NoFileExists(t, path)
}

func TestConcurrentGetOrBuild(t *testing.T) {
	path := filepath.Join(t.TempDir(), "m.bin")
	codec := &countingCodec{Codec: fec.NewLDPC(0)}
	c := New(path, codec)
	var wg sync.WaitGroup
	res := make([]*fec.Matrices, 8)
	for i := range res {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			m, err := c.GetOrBuild(smallLDPC)
			assert.NoError(t, err)
			res[i] = m
		}(i)
	}
	wg.Wait()
	assert.Equal(t, 1, codec.calls)
	for _, m := range res {
		assert.Same(t, res[0], m)
	}
}
