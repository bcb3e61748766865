// Package config loads the linksim YAML configuration.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"math"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/linksim/linksim/fec"
	"github.com/linksim/linksim/textbits"
)

type Config struct {
	Code    Code    `yaml:"code"`
	Cache   Cache   `yaml:"cache"`
	Channel Channel `yaml:"channel"`
	Text    Text    `yaml:"text"`
	Server  Server  `yaml:"server"`
	Log     Log     `yaml:"log"`
}

type Code struct {
	Scheme      string  `yaml:"scheme"`
	N           int     `yaml:"n"`
	Dv          int     `yaml:"dv"`
	Dc          int     `yaml:"dc"`
	Seed        int64   `yaml:"seed"`
	MaxIter     int     `yaml:"max_iter"`
	DesignSNRdB float64 `yaml:"design_snr_db"`
}

type Cache struct {
	// Path of the matrix cache file. Empty keeps matrices in memory only.
	Path string `yaml:"path"`
}

type Channel struct {
	// Seed of the noise source used by the CLI and the server.
	Seed uint64 `yaml:"seed"`
}

type Text struct {
	Policy   string `yaml:"policy"`
	MaxChars int    `yaml:"max_chars"`
}

type Server struct {
	Addr        string   `yaml:"addr"`
	CORSOrigins []string `yaml:"cors_origins"`
}

type Log struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	File   string `yaml:"file"`
}

// DefaultMaxChars bounds interactive and web messages.
const DefaultMaxChars = 140

// Default returns the reference setup: a (4480, 3, 4) Gallager code sized
// for 140 characters.
func Default() Config {
	return Config{
		Code: Code{
			Scheme:      "ldpc",
			N:           4 * textbits.BitsPerChar * DefaultMaxChars,
			Dv:          3,
			Dc:          4,
			Seed:        42,
			MaxIter:     fec.DefaultMaxIter,
			DesignSNRdB: fec.DefaultDesignSNRdB,
		},
		Cache:   Cache{Path: ".linksim/matrices.bin"},
		Channel: Channel{Seed: 1},
		Text:    Text{Policy: textbits.Reject.String(), MaxChars: DefaultMaxChars},
		Server:  Server{Addr: ":5000", CORSOrigins: []string{"*"}},
		Log:     Log{Level: "info", Format: "text"},
	}
}

// Load reads path over the defaults and validates the result.
func Load(path string) (Config, error) {
	cfg := Default()
	b, err := os.ReadFile(path)
	if err != nil {
		kind := KindInvalid
		if errors.Is(err, fs.ErrNotExist) {
			kind = KindNotFound
		}
		return Config{}, &OpError{Op: "config.load", Kind: kind, Path: path, Err: err}
	}
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return Config{}, &OpError{Op: "config.load", Kind: KindInvalid, Path: path, Err: err}
	}
	if err := cfg.Validate(); err != nil {
		var oe *OpError
		if errors.As(err, &oe) {
			oe.Path = path
		}
		return Config{}, err
	}
	return cfg, nil
}

// LoadOptional is Load, except that an empty path yields the defaults.
func LoadOptional(path string) (Config, error) {
	if path == "" {
		return Default(), nil
	}
	return Load(path)
}

// Validate checks value ranges. Code shape rules are left to the codecs.
func (c Config) Validate() error {
	invalid := func(format string, args ...any) error {
		return &OpError{Op: "config.validate", Kind: KindInvalid, Err: fmt.Errorf(format, args...)}
	}
	if _, err := fec.ParseScheme(c.Code.Scheme); err != nil {
		return invalid("code.scheme: %v", err)
	}
	if c.Code.N <= 0 || c.Code.Dv <= 0 || c.Code.Dc <= 0 {
		return invalid("code: n, dv and dc must be positive (got %d, %d, %d)", c.Code.N, c.Code.Dv, c.Code.Dc)
	}
	if int64(c.Code.N) > math.MaxUint32 || c.Code.Dv > math.MaxUint16 || c.Code.Dc > math.MaxUint16 {
		return invalid("code: n, dv or dc out of range (got %d, %d, %d)", c.Code.N, c.Code.Dv, c.Code.Dc)
	}
	if c.Code.MaxIter < 0 {
		return invalid("code.max_iter: %d is negative", c.Code.MaxIter)
	}
	if _, err := textbits.ParsePolicy(c.Text.Policy); err != nil {
		return invalid("text.policy: %v", err)
	}
	if c.Text.MaxChars <= 0 {
		return invalid("text.max_chars: %d must be positive", c.Text.MaxChars)
	}
	switch strings.ToLower(c.Log.Level) {
	case "debug", "info", "warn", "error":
	default:
		return invalid("log.level: unknown level %q", c.Log.Level)
	}
	switch strings.ToLower(c.Log.Format) {
	case "text", "json":
	default:
		return invalid("log.format: unknown format %q", c.Log.Format)
	}
	return nil
}

// Params returns the code parameters.
func (c Config) Params() (fec.Params, error) {
	s, err := fec.ParseScheme(c.Code.Scheme)
	if err != nil {
		return fec.Params{}, err
	}
	return fec.Params{Scheme: s, N: c.Code.N, Dv: c.Code.Dv, Dc: c.Code.Dc, Seed: c.Code.Seed}, nil
}

func (c Config) CodecOptions() fec.Options {
	return fec.Options{MaxIter: c.Code.MaxIter, DesignSNRdB: c.Code.DesignSNRdB}
}

func (c Config) TextPolicy() textbits.Policy {
	p, err := textbits.ParsePolicy(c.Text.Policy)
	if err != nil {
		return textbits.Reject
	}
	return p
}
