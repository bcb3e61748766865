// Package textbits converts between text messages and 8-bit-per-character
// bit vectors.
package textbits

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"
)

// BitsPerChar is the fixed width of one character.
const BitsPerChar = 8

// Policy decides what happens to characters whose ordinal does not fit in a byte.
type Policy int

const (
	// Reject fails with an *EncodingError.
	Reject Policy = iota
	// Truncate keeps the ordinal modulo 256. This is lossy: 'ā' (U+0101)
	// is sent as U+0001.
	Truncate
)

func (p Policy) String() string {
	switch p {
	case Reject:
		return "reject"
	case Truncate:
		return "truncate"
	default:
		return fmt.Sprintf("policy(%d)", int(p))
	}
}

// ParsePolicy reads a policy name as used in config files.
func ParsePolicy(s string) (Policy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "reject":
		return Reject, nil
	case "truncate":
		return Truncate, nil
	}
	return Reject, fmt.Errorf("unknown encoding policy %q", s)
}

// EncodingError reports a character that cannot be represented in 8 bits.
type EncodingError struct {
	Index int // character index in the message
	Rune  rune
}

func (e *EncodingError) Error() string {
	if e.Rune == utf8.RuneError {
		return fmt.Sprintf("textbits: invalid UTF-8 at character %d", e.Index)
	}
	return fmt.Sprintf("textbits: character %q (U+%04X) at %d exceeds 8 bits", e.Rune, e.Rune, e.Index)
}

// LengthError reports a bit count that is not a multiple of BitsPerChar.
type LengthError struct {
	Len int
}

func (e *LengthError) Error() string {
	return fmt.Sprintf("textbits: %d bits is not a multiple of %d", e.Len, BitsPerChar)
}

// Codec maps characters through ISO-8859-1, whose code points equal the byte values.
type Codec struct {
	Policy Policy
}

// New returns a Codec with the given policy.
func New(p Policy) *Codec { return &Codec{Policy: p} }

// TextToBits encodes every character as its 8-bit big-endian ordinal.
func (c *Codec) TextToBits(text string) ([]uint8, error) {
	out := make([]uint8, 0, utf8.RuneCountInString(text)*BitsPerChar)
	idx := 0
	for i, w := 0, 0; i < len(text); i += w {
		r, size := utf8.DecodeRuneInString(text[i:])
		w = size
		if r == utf8.RuneError && size <= 1 {
			return nil, &EncodingError{Index: idx, Rune: r}
		}
		b, ok := charmap.ISO8859_1.EncodeRune(r)
		if !ok {
			if c.Policy != Truncate {
				return nil, &EncodingError{Index: idx, Rune: r}
			}
			b = byte(r % 256)
		}
		out = appendByte(out, b)
		idx++
	}
	return out, nil
}

// BitsToText groups hard bits into characters.
func BitsToText(bits []uint8) (string, error) {
	if len(bits)%BitsPerChar != 0 {
		return "", &LengthError{Len: len(bits)}
	}
	var sb strings.Builder
	sb.Grow(len(bits) / BitsPerChar)
	for i := 0; i < len(bits); i += BitsPerChar {
		var b byte
		for j := 0; j < BitsPerChar; j++ {
			b <<= 1
			if bits[i+j] > 0 {
				b |= 1
			}
		}
		sb.WriteRune(charmap.ISO8859_1.DecodeByte(b))
	}
	return sb.String(), nil
}

// SoftToText hard-decides soft or noisy values (> 0 is 1) before grouping.
func SoftToText(soft []float64) (string, error) {
	return BitsToText(HardDecide(soft))
}

// HardDecide clamps every value to 0 or 1.
func HardDecide(soft []float64) []uint8 {
	out := make([]uint8, len(soft))
	for i, v := range soft {
		if v > 0 {
			out[i] = 1
		}
	}
	return out
}

// CharCount is the number of characters as counted by the message length limit.
func CharCount(text string) int { return utf8.RuneCountInString(text) }

func appendByte(dst []uint8, b byte) []uint8 {
	for j := BitsPerChar - 1; j >= 0; j-- {
		dst = append(dst, (b>>uint(j))&1)
	}
	return dst
}
