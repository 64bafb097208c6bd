package codec

import (
	"encoding/binary"

	"github.com/turtacn/tokenkit/pkg/errors"
)

// EncodeNumbers packs v, prefixed with its own length, as 4-byte big-endian words
// and encodes the result over Digits36.
func EncodeNumbers(v []int32) string {
	return EncodeNumbersWith(v, Digits36)
}

// DecodeNumbers reverses EncodeNumbers
func DecodeNumbers(s string) ([]int32, error) {
	return DecodeNumbersWith(s, Digits36)
}

// EncodeNumbersWith is EncodeNumbers over a caller-supplied alphabet
func EncodeNumbersWith(v []int32, a *Alphabet) string {
	buf := make([]byte, 4*(len(v)+1))
	binary.BigEndian.PutUint32(buf, uint32(len(v)))
	for i, n := range v {
		binary.BigEndian.PutUint32(buf[4*(i+1):], uint32(n))
	}
	return EncodeString(buf, a)
}

// DecodeNumbersWith is DecodeNumbers over a caller-supplied alphabet
func DecodeNumbersWith(s string, a *Alphabet) ([]int32, error) {
	buf, err := DecodeString(s, a)
	if err != nil {
		return nil, err
	}
	if len(buf) < 4 || len(buf)%4 != 0 {
		return nil, errors.ErrParityMismatch.WithMetadata("length", len(buf))
	}

	count := binary.BigEndian.Uint32(buf)
	if uint64(count) != uint64(len(buf)/4-1) {
		return nil, errors.ErrParityMismatch.WithMetadata("count", count)
	}

	out := make([]int32, count)
	for i := range out {
		out[i] = int32(binary.BigEndian.Uint32(buf[4*(i+1):]))
	}
	return out, nil
}
