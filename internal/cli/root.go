// Package cli implements the linksim command line.
package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/linksim/linksim/channel"
	"github.com/linksim/linksim/fec"
	"github.com/linksim/linksim/internal/config"
	"github.com/linksim/linksim/internal/logger"
	"github.com/linksim/linksim/internal/metrics"
	"github.com/linksim/linksim/matcache"
	"github.com/linksim/linksim/pipeline"
	"github.com/linksim/linksim/textbits"
)

func Execute() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

// app is the state shared by subcommands once the root has parsed its flags.
type app struct {
	cfgPath   string
	debug     bool
	cachePath string

	cfg     config.Config
	metrics *metrics.Metrics
	cleanup func() error
}

func newRootCmd() *cobra.Command {
	a := &app{}
	cmd := &cobra.Command{
		Use:          "linksim",
		Short:        "Simulate text transmission over a coded BPSK/AWGN link",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.setup(cmd)
		},
		PersistentPostRunE: func(_ *cobra.Command, _ []string) error {
			if a.cleanup != nil {
				return a.cleanup()
			}
			return nil
		},
	}

	pf := cmd.PersistentFlags()
	pf.StringVar(&a.cfgPath, "config", "", "YAML configuration file")
	pf.BoolVar(&a.debug, "debug", false, "enable debug logging")
	pf.StringVar(&a.cachePath, "cache", "", "matrix cache file (overrides cache.path)")

	cmd.AddCommand(
		newSendCmd(a),
		newSweepCmd(a),
		newServeCmd(a),
		newBuildCacheCmd(a),
	)
	return cmd
}

func (a *app) setup(cmd *cobra.Command) error {
	cfg, err := config.LoadOptional(a.cfgPath)
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("cache") {
		cfg.Cache.Path = a.cachePath
	}
	_, cleanup, err := logger.Setup(logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		File:   cfg.Log.File,
		Output: cmd.ErrOrStderr(),
		Debug:  a.debug,
	})
	if err != nil {
		return err
	}
	a.cfg = cfg
	a.cleanup = cleanup
	a.metrics = metrics.New()
	return nil
}

func (a *app) textCodec() *textbits.Codec {
	return textbits.New(a.cfg.TextPolicy())
}

// pipeline builds the configured codec, fetching its matrices through the cache.
func (a *app) pipeline() (*pipeline.Pipeline, error) {
	params, err := a.cfg.Params()
	if err != nil {
		return nil, err
	}
	codec, err := fec.NewCodec(params.Scheme, a.cfg.CodecOptions())
	if err != nil {
		return nil, err
	}
	cache := matcache.New(a.cfg.Cache.Path, codec,
		matcache.WithLogger(logger.L()),
		matcache.WithObserver(a.metrics.ObserveCache),
	)
	m, err := cache.GetOrBuild(params)
	if err != nil {
		return nil, fmt.Errorf("building %s matrices: %w", params, err)
	}
	logger.L().Debug("cli.pipeline", "params", params.String(), "k", m.K(), "cache", cache.Path())
	return pipeline.New(codec, m, channel.NewSeeded(a.cfg.Channel.Seed)), nil
}
