package cli

import (
	"errors"
	"fmt"
	"io"
	"os"
	"runtime"

	"github.com/spf13/cobra"
	"gonum.org/v1/gonum/floats"

	"github.com/linksim/linksim/estimate"
	"github.com/linksim/linksim/internal/logger"
	"github.com/linksim/linksim/textbits"
)

type sweepOptions struct {
	snrs    []float64
	from    float64
	to      float64
	points  int
	trials  int
	metric  string
	out     string
	workers int
	message string
}

func newSweepCmd(a *app) *cobra.Command {
	o := &sweepOptions{}
	cmd := &cobra.Command{
		Use:   "sweep",
		Short: "Estimate the error probability over a range of SNRs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runSweep(cmd, a, o)
		},
	}
	f := cmd.Flags()
	f.Float64SliceVar(&o.snrs, "snrs", nil, "explicit SNR points in dB (overrides --from/--to/--points)")
	f.Float64Var(&o.from, "from", -3, "first SNR in dB")
	f.Float64Var(&o.to, "to", 1, "last SNR in dB")
	f.IntVar(&o.points, "points", 10, "number of evenly spaced SNR points")
	f.IntVar(&o.trials, "trials", 100, "transmissions per SNR point")
	f.StringVar(&o.metric, "metric", "ber", "error metric: ber or cer")
	f.StringVar(&o.out, "out", "", "write points to this file instead of stdout")
	f.IntVar(&o.workers, "workers", runtime.GOMAXPROCS(0), "parallel trials")
	f.StringVar(&o.message, "message", "", "text to send (default: alternating bits filling the code)")
	return cmd
}

func (o *sweepOptions) grid() ([]float64, error) {
	if len(o.snrs) > 0 {
		return o.snrs, nil
	}
	if o.points < 2 {
		return nil, errors.New("--points must be at least 2")
	}
	return floats.Span(make([]float64, o.points), o.from, o.to), nil
}

// alternatingBits is 0,1,0,1,... of length n.
func alternatingBits(n int) []uint8 {
	b := make([]uint8, n)
	for i := range b {
		b[i] = uint8(i % 2)
	}
	return b
}

func runSweep(cmd *cobra.Command, a *app, o *sweepOptions) error {
	metric, err := estimate.ParseMetric(o.metric)
	if err != nil {
		return err
	}
	snrs, err := o.grid()
	if err != nil {
		return err
	}
	p, err := a.pipeline()
	if err != nil {
		return err
	}

	var bits []uint8
	if o.message != "" {
		if bits, err = a.textCodec().TextToBits(o.message); err != nil {
			return err
		}
	} else {
		k := p.K()
		if metric == estimate.Characters {
			k -= k % textbits.BitsPerChar
		}
		bits = alternatingBits(k)
	}

	ctx := cmd.Context()
	factory := estimate.SeededFactory(p, a.cfg.Channel.Seed)
	points, err := estimate.Sweep(snrs, func(snr float64) (estimate.Report, error) {
		rep, err := estimate.RunParallel(ctx, factory, metric, bits, snr, o.trials, o.workers)
		if err != nil {
			return rep, err
		}
		a.metrics.ObserveTrials(rep.Trials)
		logger.L().Info("sweep.point",
			"snr_db", snr,
			metric.Label(), rep.Probability(),
			"errors", rep.Errors,
			"stddev", rep.StdDev(),
		)
		return rep, nil
	})
	if err != nil {
		return err
	}

	var w io.Writer = cmd.OutOrStdout()
	if o.out != "" {
		f, err := os.Create(o.out)
		if err != nil {
			return err
		}
		defer f.Close()
		w = f
	}
	if err := estimate.WritePoints(w, points, metric.Label()); err != nil {
		return fmt.Errorf("writing points: %w", err)
	}
	if o.out != "" {
		fmt.Fprintf(cmd.OutOrStdout(), "wrote %d points to %s\n", len(points), o.out)
	}
	return nil
}
