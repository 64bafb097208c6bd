package codec

import (
	"crypto/rand"
	"math/big"
	"strings"
)

// symbol classes for RandomFormat
const (
	classDigits = "0123456789"
	classUpper  = "ABCDEFGHIJKLMNOPQRSTUVWXYZ"
	classLower  = "abcdefghijklmnopqrstuvwxyz"
	classAlnum  = classDigits + classUpper + classLower
	classPunct  = "!#$%&()*+,-./:;<=>?@[]^_{|}~"
)

// RandomInt returns a uniform value in [min, max]. Arguments are swapped when max < min.
func RandomInt(min, max int) int {
	if max < min {
		min, max = max, min
	}
	if max == min {
		return min
	}
	span := new(big.Int).Sub(big.NewInt(int64(max)), big.NewInt(int64(min)))
	span.Add(span, big.NewInt(1))
	n, err := rand.Int(rand.Reader, span)
	if err != nil {
		// crypto/rand does not fail on supported platforms
		panic(err)
	}
	return min + int(n.Int64())
}

// RandomPermutation returns a Fisher-Yates shuffle of 0..n-1
func RandomPermutation(n int) []int {
	if n <= 0 {
		return []int{}
	}
	out := make([]int, n)
	for i := range out {
		out[i] = i
	}
	for i := n - 1; i > 0; i-- {
		j := RandomInt(0, i)
		out[i], out[j] = out[j], out[i]
	}
	return out
}

// RandomFormat expands a template: '9' draws a digit, 'X' a mixed-case alphanumeric,
// 'Z' an upper-case letter, 'z' a lower-case letter and '*' a punctuation symbol.
// Any other character is copied as is.
func RandomFormat(format string) string {
	var sb strings.Builder
	sb.Grow(len(format))
	for _, r := range format {
		var class string
		switch r {
		case '9':
			class = classDigits
		case 'X':
			class = classAlnum
		case 'Z':
			class = classUpper
		case 'z':
			class = classLower
		case '*':
			class = classPunct
		default:
			sb.WriteRune(r)
			continue
		}
		sb.WriteByte(class[RandomInt(0, len(class)-1)])
	}
	return sb.String()
}

// RandomBytes returns n bytes from crypto/rand
func RandomBytes(n int) ([]byte, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return nil, err
	}
	return b, nil
}
