package estimate

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// Point is one sample of an error-probability curve.
type Point struct {
	SNRdB       float64
	Probability float64
}

// Sweep evaluates run at every SNR, in order.
func Sweep(snrs []float64, run func(snrDB float64) (Report, error)) ([]Point, error) {
	out := make([]Point, 0, len(snrs))
	for _, s := range snrs {
		rep, err := run(s)
		if err != nil {
			return nil, fmt.Errorf("estimate: snr %g: %w", s, err)
		}
		out = append(out, Point{SNRdB: s, Probability: rep.Probability()})
	}
	return out, nil
}

// WritePoints writes one "SNR = x, <label> = y" line per point.
func WritePoints(w io.Writer, points []Point, label string) error {
	bw := bufio.NewWriter(w)
	for _, p := range points {
		if _, err := fmt.Fprintf(bw, "SNR = %s, %s = %s\n",
			strconv.FormatFloat(p.SNRdB, 'g', -1, 64), label,
			strconv.FormatFloat(p.Probability, 'g', -1, 64)); err != nil {
			return err
		}
	}
	return bw.Flush()
}

// ReadPoints parses the format written by WritePoints. Blank lines are skipped.
func ReadPoints(r io.Reader) ([]Point, error) {
	var out []Point
	sc := bufio.NewScanner(r)
	line := 0
	for sc.Scan() {
		line++
		text := strings.TrimSpace(sc.Text())
		if text == "" {
			continue
		}
		parts := strings.Split(text, ",")
		if len(parts) != 2 {
			return nil, fmt.Errorf("estimate: line %d: want 2 fields, got %d", line, len(parts))
		}
		snr, err := fieldValue(parts[0])
		if err != nil {
			return nil, fmt.Errorf("estimate: line %d: %w", line, err)
		}
		p, err := fieldValue(parts[1])
		if err != nil {
			return nil, fmt.Errorf("estimate: line %d: %w", line, err)
		}
		out = append(out, Point{SNRdB: snr, Probability: p})
	}
	return out, sc.Err()
}

func fieldValue(s string) (float64, error) {
	_, v, ok := strings.Cut(s, "=")
	if !ok {
		return 0, fmt.Errorf("missing '=' in %q", s)
	}
	return strconv.ParseFloat(strings.TrimSpace(v), 64)
}
