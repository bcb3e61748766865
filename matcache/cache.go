// Package matcache keeps the constructed code matrices for one code
// configuration and persists them so later runs skip construction.
//
// The cache holds a single entry: asking for different (scheme, n, d_v, d_c)
// replaces both the in-memory entry and the file. Anything wrong with the file
// is treated as a miss and the matrices are rebuilt.
package matcache

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/klauspost/compress/zstd"

	"github.com/linksim/linksim/fec"
)

// Outcome classifies one GetOrBuild call.
type Outcome string

const (
	HitMemory Outcome = "hit_memory"
	HitDisk   Outcome = "hit_disk"
	Miss      Outcome = "miss"
	Corrupt   Outcome = "corrupt"
)

// CorruptionError describes an unusable cache file. GetOrBuild never returns
// it; it is logged and the entry rebuilt.
type CorruptionError struct {
	Path string
	Err  error
}

func (e *CorruptionError) Error() string {
	return fmt.Sprintf("matcache: corrupt cache file %s: %v", e.Path, e.Err)
}

func (e *CorruptionError) Unwrap() error { return e.Err }

var errStale = errors.New("matcache: cached entry is for other parameters")

// Cache is safe for concurrent use. Writers in different processes are
// serialized by an advisory lock next to the cache file.
type Cache struct {
	path    string
	codec   fec.Codec
	log     *slog.Logger
	observe func(Outcome)

	mu  sync.Mutex
	cur *fec.Matrices
}

type Option func(*Cache)

func WithLogger(l *slog.Logger) Option {
	return func(c *Cache) {
		if l != nil {
			c.log = l
		}
	}
}

// WithObserver registers a callback invoked once per lookup outcome.
func WithObserver(f func(Outcome)) Option {
	return func(c *Cache) { c.observe = f }
}

// New returns a cache persisting to path. An empty path keeps the entry in
// memory only.
func New(path string, codec fec.Codec, opts ...Option) *Cache {
	c := &Cache{
		path:  path,
		codec: codec,
		log:   slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

func (c *Cache) Path() string { return c.path }

func (c *Cache) note(o Outcome) {
	if c.observe != nil {
		c.observe(o)
	}
}

// GetOrBuild returns the matrices for p, loading them from disk when the
// stored parameters match and constructing (then persisting) them otherwise.
// Construction errors are returned; storage errors are not.
func (c *Cache) GetOrBuild(p fec.Params) (*fec.Matrices, error) {
	if p.Scheme == 0 {
		s, err := fec.ParseScheme(c.codec.Name())
		if err != nil {
			return nil, err
		}
		p.Scheme = s
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.cur != nil && c.cur.Params.SameCode(p) {
		c.note(HitMemory)
		return c.cur, nil
	}

	if c.path != "" {
		unlock := c.lock()
		defer unlock()

		m, err := c.load(p)
		if err == nil {
			c.log.Debug("matcache.hit", "path", c.path, "params", p.String(), "k", m.K())
			c.note(HitDisk)
			c.cur = m
			return m, nil
		}
		var ce *CorruptionError
		switch {
		case errors.Is(err, fs.ErrNotExist):
			c.log.Debug("matcache.empty", "path", c.path)
		case errors.Is(err, errStale):
			c.log.Info("matcache.stale", "path", c.path, "params", p.String())
		case errors.As(err, &ce):
			c.log.Warn("matcache.corrupt", "path", c.path, "err", err)
			c.note(Corrupt)
		default:
			c.log.Warn("matcache.unreadable", "path", c.path, "err", err)
			c.note(Corrupt)
		}
	}

	c.note(Miss)
	c.log.Info("matcache.build", "params", p.String())
	m, err := c.codec.Construct(p)
	if err != nil {
		return nil, fmt.Errorf("matcache: construct %s: %w", p, err)
	}
	if c.path != "" {
		if err := c.save(m); err != nil {
			c.log.Warn("matcache.save_failed", "path", c.path, "err", err)
		}
	}
	c.cur = m
	return m, nil
}

func (c *Cache) lock() func() {
	if err := os.MkdirAll(filepath.Dir(c.path), 0o755); err != nil {
		c.log.Warn("matcache.lock_failed", "path", c.path, "err", err)
		return func() {}
	}
	unlock, err := lockFile(c.path + ".lock")
	if err != nil {
		c.log.Warn("matcache.lock_failed", "path", c.path, "err", err)
		return func() {}
	}
	return unlock
}

func (c *Cache) load(p fec.Params) (*fec.Matrices, error) {
	b, err := os.ReadFile(c.path)
	if err != nil {
		return nil, err
	}
	bad := func(err error) error { return &CorruptionError{Path: c.path, Err: err} }

	var h Header
	if err := h.UnmarshalBinary(b); err != nil {
		return nil, bad(err)
	}
	if !h.Params().SameCode(p) {
		return nil, errStale
	}
	body := b[HeaderLen:]
	if err := h.verify(body); err != nil {
		return nil, bad(err)
	}
	dec, err := zstd.NewReader(nil)
	if err != nil {
		return nil, err
	}
	defer dec.Close()
	raw, err := dec.DecodeAll(body, nil)
	if err != nil {
		return nil, bad(fmt.Errorf("decompress: %w", err))
	}
	m, err := fec.UnmarshalTable(raw)
	if err != nil {
		return nil, bad(err)
	}
	if !m.Params.SameCode(h.Params()) {
		return nil, bad(errors.New("header and table disagree"))
	}
	return m, nil
}

// save writes the entry to a temporary file and renames it over the old one.
func (c *Cache) save(m *fec.Matrices) error {
	if err := headerFits(m.Params); err != nil {
		return err
	}
	raw, err := fec.MarshalTable(m)
	if err != nil {
		return err
	}
	enc, err := zstd.NewWriter(nil)
	if err != nil {
		return err
	}
	body := enc.EncodeAll(raw, nil)
	if err := enc.Close(); err != nil {
		return err
	}
	h := newHeader(m.Params, body)

	dir := filepath.Dir(c.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	f, err := os.CreateTemp(dir, filepath.Base(c.path)+".tmp-*")
	if err != nil {
		return err
	}
	tmp := f.Name()
	if _, err := f.Write(h.MarshalBinary()); err != nil {
		_ = f.Close()
		_ = os.Remove(tmp)
		return err
	}
	if _, err := f.Write(body); err != nil {
		_ = f.Close()
		_ = os.Remove(tmp)
		return err
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(tmp)
		return err
	}
	if err := os.Rename(tmp, c.path); err != nil {
		_ = os.Remove(tmp)
		return err
	}
	c.log.Info("matcache.saved", "path", c.path, "bytes", HeaderLen+len(body), "k", m.K())
	return nil
}
