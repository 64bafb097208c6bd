package codec

import (
	"math/big"
	"strings"

	"github.com/turtacn/tokenkit/pkg/errors"
)

// parity returns the marker byte prepended to data of length n
func parity(n int) byte {
	return byte(n%2 + 1)
}

// EncodeString renders b, prefixed with its parity byte, as a big-endian
// magnitude in the radix of a.
func EncodeString(b []byte, a *Alphabet) string {
	if a == nil {
		a = Digits36
	}
	buf := make([]byte, 0, len(b)+1)
	buf = append(buf, parity(len(b)))
	buf = append(buf, b...)

	n := new(big.Int).SetBytes(buf)
	base := big.NewInt(int64(a.Base()))
	mod := new(big.Int)

	// the parity byte keeps n above zero
	digits := make([]rune, 0, len(buf)*2)
	for n.Sign() > 0 {
		n.QuoRem(n, base, mod)
		digits = append(digits, a.Symbol(int(mod.Int64())))
	}
	for i, j := 0, len(digits)-1; i < j; i, j = i+1, j-1 {
		digits[i], digits[j] = digits[j], digits[i]
	}
	return string(digits)
}

// DecodeString reverses EncodeString. It fails with ErrInvalidSymbol when s holds a
// symbol outside a, and with ErrParityMismatch when the recovered parity byte does not
// match the recovered length.
func DecodeString(s string, a *Alphabet) ([]byte, error) {
	if a == nil {
		a = Digits36
	}
	n := new(big.Int)
	base := big.NewInt(int64(a.Base()))
	d := new(big.Int)
	for _, r := range s {
		v, ok := a.Value(r)
		if !ok {
			return nil, errors.ErrInvalidSymbol
		}
		n.Mul(n, base)
		n.Add(n, d.SetInt64(int64(v)))
	}

	raw := n.Bytes()
	if len(raw) == 0 {
		return nil, errors.ErrParityMismatch
	}
	data := raw[1:]
	if raw[0] != parity(len(data)) {
		return nil, errors.ErrParityMismatch.WithMetadata("length", len(data))
	}
	return data, nil
}

// EncodeInt renders a non-negative big integer through EncodeString
func EncodeInt(v *big.Int, a *Alphabet) string {
	return EncodeString(v.Bytes(), a)
}

// DecodeInt parses a value produced by EncodeInt
func DecodeInt(s string, a *Alphabet) (*big.Int, error) {
	b, err := DecodeString(strings.TrimSpace(s), a)
	if err != nil {
		return nil, err
	}
	return new(big.Int).SetBytes(b), nil
}
