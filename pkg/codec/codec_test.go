package codec

import (
	"encoding/hex"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/turtacn/tokenkit/pkg/errors"
)

func TestEncodeString_KnownValues(t *testing.T) {
	rotated, err := GetDigits(5)
	require.NoError(t, err)

	tests := []struct {
		name     string
		input    []byte
		alphabet *Alphabet
		want     string
	}{
		{"empty", []byte{}, Digits36, "1"},
		{"leading zero", []byte{0x00, 0x01}, Digits36, "1EKH"},
		{"ascii", []byte("hello"), Digits36, "XS76H373"},
		{"rotated alphabet", []byte("hello"), rotated, "2XCBM8C8"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, EncodeString(tt.input, tt.alphabet))
		})
	}
}

func TestEncodeString_RoundTrip(t *testing.T) {
	inputs := [][]byte{
		{},
		{0x00},
		{0x00, 0x00, 0x07},
		{0xff},
		[]byte("the quick brown fox"),
	}
	for i := 0; i < 16; i++ {
		b, err := RandomBytes(RandomInt(1, 64))
		require.NoError(t, err)
		inputs = append(inputs, b)
	}

	alphabets := []*Alphabet{Digits36, Digits62}
	for i := 0; i < 36; i += 7 {
		a, err := GetDigits(i)
		require.NoError(t, err)
		alphabets = append(alphabets, a)
	}

	for _, a := range alphabets {
		for _, in := range inputs {
			got, err := DecodeString(EncodeString(in, a), a)
			require.NoError(t, err)
			assert.Equal(t, len(in), len(got))
			assert.Equal(t, hex.EncodeToString(in), hex.EncodeToString(got))
		}
	}
}

func TestDecodeString_Errors(t *testing.T) {
	t.Run("symbol outside alphabet", func(t *testing.T) {
		_, err := DecodeString("1EK#", Digits36)
		assert.True(t, errors.Is(err, errors.ErrInvalidSymbol))
	})

	t.Run("lower case under Digits36", func(t *testing.T) {
		_, err := DecodeString("abc", Digits36)
		assert.True(t, errors.Is(err, errors.ErrInvalidSymbol))
	})

	t.Run("empty string", func(t *testing.T) {
		_, err := DecodeString("", Digits36)
		assert.True(t, errors.Is(err, errors.ErrParityMismatch))
	})

	t.Run("truncated value", func(t *testing.T) {
		// "XS76H373" carries 5 bytes; dropping a digit shifts the parity byte
		_, err := DecodeString("XS76H37", Digits36)
		assert.True(t, errors.Is(err, errors.ErrParityMismatch))
	})
}

func TestGetDigits(t *testing.T) {
	a, err := GetDigits(0)
	require.NoError(t, err)
	assert.Equal(t, canonical36, a.String())

	a, err = GetDigits(10)
	require.NoError(t, err)
	assert.Equal(t, "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789", a.String())
	assert.Equal(t, 36, a.Base())

	for _, idx := range []int{-1, 36, 100} {
		_, err := GetDigits(idx)
		assert.True(t, errors.Is(err, errors.ErrInvalidAlphabetIndex), "index %d", idx)
	}
}

func TestNewAlphabet(t *testing.T) {
	a, err := NewAlphabet("01", 1)
	require.NoError(t, err)
	assert.Equal(t, "10", a.String())

	_, err = NewAlphabet("0", 0)
	assert.Error(t, err)

	_, err = NewAlphabet("011", 0)
	assert.True(t, errors.Is(err, errors.ErrInvalidSymbol))

	bin, err := NewAlphabet("01", 0)
	require.NoError(t, err)
	got, err := DecodeString(EncodeString([]byte{0, 1, 2}, bin), bin)
	require.NoError(t, err)
	assert.Equal(t, []byte{0, 1, 2}, got)
}

func TestEncodeNumbers(t *testing.T) {
	assert.Equal(t, "1Z141Z4", EncodeNumbers([]int32{}))
	assert.Equal(t, "7OIYLPQEU87WAMLV08V", EncodeNumbers([]int32{1, -1}))

	cases := [][]int32{
		{},
		{0},
		{-2147483648, 2147483647, 0, -1},
		{20261019, 123456, 1216985755, 999, -1062731420, 42, 7, 8, 9},
	}
	for _, v := range cases {
		got, err := DecodeNumbers(EncodeNumbers(v))
		require.NoError(t, err)
		assert.Equal(t, v, got)
	}
}

func TestDecodeNumbers_LengthMismatch(t *testing.T) {
	// three bytes is not a whole word
	_, err := DecodeNumbers(EncodeString([]byte{0, 0, 1}, Digits36))
	assert.True(t, errors.Is(err, errors.ErrParityMismatch))

	// count word claims two elements, one present
	_, err = DecodeNumbers(EncodeString([]byte{0, 0, 0, 2, 0, 0, 0, 1}, Digits36))
	assert.True(t, errors.Is(err, errors.ErrParityMismatch))
}

func TestDigest(t *testing.T) {
	sum, err := Digest("password", MD5)
	require.NoError(t, err)
	assert.Equal(t, "5f4dcc3b5aa765d61d8327deb882cf99", hex.EncodeToString(sum))
	assert.Equal(t, sum, MD5Sum("password"))

	sum, err = Digest("password", "SHA-1")
	require.NoError(t, err)
	assert.Equal(t, "5baa61e4c9b93f3f0682250b6cf8331b7ee68fd8", hex.EncodeToString(sum))

	sum, err = Digest("password", SHA256)
	require.NoError(t, err)
	assert.Len(t, sum, 32)

	_, err = Digest("password", "CRC32")
	assert.True(t, errors.Is(err, errors.ErrUnsupportedAlgorithm))
}

func TestHash32(t *testing.T) {
	tests := map[string]int32{
		"":         0,
		"hello":    99162322,
		"Hoge":     2254917,
		"password": 1216985755,
		"日本":       835047,
		"😀":        1772899,
	}
	for in, want := range tests {
		assert.Equal(t, want, Hash32(in), in)
	}
}

func TestRandomInt(t *testing.T) {
	seen := map[int]bool{}
	for i := 0; i < 500; i++ {
		v := RandomInt(3, 6)
		assert.GreaterOrEqual(t, v, 3)
		assert.LessOrEqual(t, v, 6)
		seen[v] = true
	}
	assert.Len(t, seen, 4)
	assert.Equal(t, 5, RandomInt(5, 5))
	v := RandomInt(10, 1)
	assert.True(t, v >= 1 && v <= 10)
}

func TestRandomPermutation(t *testing.T) {
	p := RandomPermutation(50)
	require.Len(t, p, 50)
	seen := make([]bool, 50)
	for _, v := range p {
		require.False(t, seen[v])
		seen[v] = true
	}
	assert.Empty(t, RandomPermutation(0))
}

func TestRandomFormat(t *testing.T) {
	out := []rune(RandomFormat("99-ZZ-zz-XX-**"))
	require.Len(t, out, 14)
	assert.Contains(t, classDigits, string(out[0]))
	assert.Contains(t, classDigits, string(out[1]))
	assert.Equal(t, '-', out[2])
	assert.Contains(t, classUpper, string(out[3]))
	assert.Contains(t, classLower, string(out[6]))
	assert.Contains(t, classAlnum, string(out[9]))
	assert.Contains(t, classPunct, string(out[12]))
	assert.Equal(t, "literal", RandomFormat("literal"))
}

func TestCompactTimestamp(t *testing.T) {
	ts := time.Date(2026, time.October, 19, 7, 5, 9, 0, time.UTC)
	assert.Equal(t, int64(20261019070509), CompactTimestamp(ts))

	tokyo := time.FixedZone("JST", 9*3600)
	assert.Equal(t, int64(20261019070509), CompactTimestamp(ts.In(tokyo)))

	back, err := ParseCompactTimestamp(20261019070509)
	require.NoError(t, err)
	assert.True(t, back.Equal(ts))

	assert.Less(t, CompactTimestamp(ts), CompactTimestamp(ts.Add(time.Second)))

	for _, bad := range []int64{0, 20261319000000, 20260230000000, 20261019246000} {
		_, err := ParseCompactTimestamp(bad)
		assert.Error(t, err, "value %d", bad)
	}
}
