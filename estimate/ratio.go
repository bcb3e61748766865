// Package estimate measures bit and character error rates of the link, for a
// single transmission or averaged over Monte-Carlo trials.
package estimate

import (
	"fmt"

	"github.com/linksim/linksim/textbits"
)

// Ratio is an exact error count over a total.
type Ratio struct {
	Errors int
	Total  int
}

// String formats the ratio as "errors/total".
func (r Ratio) String() string { return fmt.Sprintf("%d/%d", r.Errors, r.Total) }

// Float returns Errors/Total, or 0 for an empty total.
func (r Ratio) Float() float64 {
	if r.Total == 0 {
		return 0
	}
	return float64(r.Errors) / float64(r.Total)
}

// Add sums two ratios.
func (r Ratio) Add(o Ratio) Ratio {
	return Ratio{Errors: r.Errors + o.Errors, Total: r.Total + o.Total}
}

// BitErrorRate counts positions where decoded, hard-decided, differs from original.
func BitErrorRate(original, decoded []uint8) (Ratio, error) {
	if len(original) != len(decoded) {
		return Ratio{}, fmt.Errorf("estimate: comparing %d bits with %d", len(original), len(decoded))
	}
	r := Ratio{Total: len(original)}
	for i, b := range original {
		d := uint8(0)
		if decoded[i] > 0 {
			d = 1
		}
		if b != d {
			r.Errors++
		}
	}
	return r, nil
}

// CharacterErrorRate compares two texts character by character over the
// length of original. Characters missing from received count as errors.
func CharacterErrorRate(original, received string) Ratio {
	a, b := []rune(original), []rune(received)
	r := Ratio{Total: len(a)}
	for i, c := range a {
		if i >= len(b) || b[i] != c {
			r.Errors++
		}
	}
	return r
}

// CharacterErrorRateBits decodes both bit vectors to text before comparing.
func CharacterErrorRateBits(original, decoded []uint8) (Ratio, error) {
	a, err := textbits.BitsToText(original)
	if err != nil {
		return Ratio{}, err
	}
	b, err := textbits.BitsToText(decoded)
	if err != nil {
		return Ratio{}, err
	}
	return CharacterErrorRate(a, b), nil
}
