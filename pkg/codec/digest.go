package codec

import (
	"crypto/md5"
	"crypto/sha1"
	"crypto/sha256"
	"hash"
	"strings"
	"unicode/utf16"

	"github.com/turtacn/tokenkit/pkg/errors"
)

// DigestAlgorithm names a hash used for compact fingerprints
type DigestAlgorithm string

const (
	MD5    DigestAlgorithm = "MD5"
	SHA1   DigestAlgorithm = "SHA1"
	SHA256 DigestAlgorithm = "SHA256"
)

// Digest returns the raw hash of text's UTF-8 bytes.
// These digests derive key bytes and fingerprints; they are not password storage.
func Digest(text string, alg DigestAlgorithm) ([]byte, error) {
	var h hash.Hash
	switch DigestAlgorithm(strings.ToUpper(strings.ReplaceAll(string(alg), "-", ""))) {
	case MD5:
		h = md5.New()
	case SHA1:
		h = sha1.New()
	case SHA256:
		h = sha256.New()
	default:
		return nil, errors.ErrUnsupportedAlgorithm.WithMetadata("digest", string(alg))
	}
	h.Write([]byte(text))
	return h.Sum(nil), nil
}

// MD5Sum is Digest(text, MD5) without the error path
func MD5Sum(text string) []byte {
	sum := md5.Sum([]byte(text))
	return sum[:]
}

// Hash32 is the 31-polynomial hash over UTF-16 code units (s[0]*31^(n-1) + ... + s[n-1]),
// wrapping at 32 bits. Credential, address and role hashes in session tokens use it, so the
// value must stay stable across processes and releases.
func Hash32(s string) int32 {
	var h int32
	for _, u := range utf16.Encode([]rune(s)) {
		h = 31*h + int32(u)
	}
	return h
}
