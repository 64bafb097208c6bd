// Package codec implements the arbitrary-radix integer codec used by the token engines,
// along with integer packing, digests, a 32-bit string hash and random string helpers.
//
// Encoded values carry a leading parity byte equal to (len(data) mod 2)+1 so that a decode
// detects truncation and preserves leading zero bytes. The parity byte is an integrity marker,
// not a MAC.
package codec

import (
	"github.com/turtacn/tokenkit/pkg/errors"
)

const canonical36 = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZ"

const canonical62 = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz"

// Alphabet is an ordered set of unique symbols used as a numeral system.
// The symbol at position 0 has digit value 0.
type Alphabet struct {
	symbols []rune
	values  map[rune]int
}

var (
	// Digits36 is the canonical alphabet of digits followed by upper-case letters
	Digits36 = mustAlphabet(canonical36, 0)

	// Digits62 extends Digits36 with lower-case letters
	Digits62 = mustAlphabet(canonical62, 0)
)

// NewAlphabet builds an alphabet from symbols rotated left by rotation positions.
// Symbols must be unique and at least two long.
func NewAlphabet(symbols string, rotation int) (*Alphabet, error) {
	runes := []rune(symbols)
	if len(runes) < 2 {
		return nil, errors.ErrInvalidAlphabetIndex.WithMetadata("symbols", len(runes))
	}
	if rotation < 0 || rotation >= len(runes) {
		return nil, errors.ErrInvalidAlphabetIndex.WithMetadata("rotation", rotation)
	}

	rotated := make([]rune, 0, len(runes))
	rotated = append(rotated, runes[rotation:]...)
	rotated = append(rotated, runes[:rotation]...)

	values := make(map[rune]int, len(rotated))
	for i, r := range rotated {
		if _, dup := values[r]; dup {
			return nil, errors.ErrInvalidSymbol.WithMetadata("duplicate", string(r))
		}
		values[r] = i
	}
	return &Alphabet{symbols: rotated, values: values}, nil
}

// GetDigits returns the canonical 36-symbol alphabet rotated left by index.
// The rotation acts as a cheap alphabet-level key.
func GetDigits(index int) (*Alphabet, error) {
	if index < 0 || index >= len(canonical36) {
		return nil, errors.ErrInvalidAlphabetIndex.WithMetadata("index", index)
	}
	return NewAlphabet(canonical36, index)
}

func mustAlphabet(symbols string, rotation int) *Alphabet {
	a, err := NewAlphabet(symbols, rotation)
	if err != nil {
		panic(err)
	}
	return a
}

// Base returns the radix of the alphabet
func (a *Alphabet) Base() int { return len(a.symbols) }

// Symbol returns the symbol for digit value v
func (a *Alphabet) Symbol(v int) rune { return a.symbols[v] }

// Value returns the digit value of symbol r
func (a *Alphabet) Value(r rune) (int, bool) {
	v, ok := a.values[r]
	return v, ok
}

// String returns the symbols in digit order
func (a *Alphabet) String() string { return string(a.symbols) }
