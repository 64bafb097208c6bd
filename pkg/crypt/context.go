package crypt

import (
	"crypto/md5"
	"crypto/rsa"
	"encoding/base64"
	"math/big"
	"strings"

	"github.com/turtacn/tokenkit/pkg/codec"
	"github.com/turtacn/tokenkit/pkg/constants"
	"github.com/turtacn/tokenkit/pkg/errors"
	"github.com/turtacn/tokenkit/pkg/keys"
)

// Context is resolved key material for one algorithm. It is never mutated after
// construction; replacing key material means building a new Context.
type Context struct {
	algorithm Algorithm
	key       []byte
	iv        []byte
	rsa       *RSAKeyPair
	tiny      *TinyKeyPair
}

// Algorithm returns the algorithm the material belongs to
func (c *Context) Algorithm() Algorithm { return c.algorithm }

// SymmetricKey returns copies of the AES/DES key and IV
func (c *Context) SymmetricKey() (key, iv []byte) {
	return append([]byte(nil), c.key...), append([]byte(nil), c.iv...)
}

// RSA returns the RSA key pair, or nil for other algorithms
func (c *Context) RSA() *RSAKeyPair { return c.rsa }

// Tiny returns the Tiny key pair, or nil for other algorithms
func (c *Context) Tiny() *TinyKeyPair { return c.tiny }

// NewSymmetricContext derives AES or DES material from a passphrase and optional IV text.
// Each is MD5-digested to 16 bytes; an empty iv uses the digest of the reversed key.
// DES keeps the first 8 bytes of each.
func NewSymmetricContext(alg Algorithm, key, iv string) (*Context, error) {
	if alg != AES && alg != DES {
		return nil, errors.ErrUnsupportedAlgorithm.WithMetadata("algorithm", string(alg))
	}
	if key == "" {
		return nil, errors.ErrInvalidDescriptor.WithMetadata("reason", "empty key")
	}
	if iv == "" {
		iv = reverse(key)
	}

	k := md5.Sum([]byte(key))
	v := md5.Sum([]byte(iv))
	size := constants.SymmetricKeySize
	if alg == DES {
		size = constants.DESKeySize
	}
	return &Context{
		algorithm: alg,
		key:       append([]byte(nil), k[:size]...),
		iv:        append([]byte(nil), v[:size]...),
	}, nil
}

// NewRSAContext wraps a key pair
func NewRSAContext(pair *RSAKeyPair) (*Context, error) {
	if pair == nil || pair.pub == nil {
		return nil, errors.ErrInvalidDescriptor
	}
	return &Context{algorithm: RSA, rsa: pair}, nil
}

// NewTinyContext wraps a key pair
func NewTinyContext(pair *TinyKeyPair) (*Context, error) {
	if pair == nil || pair.Modulus == nil || pair.Modulus.Sign() <= 0 {
		return nil, errors.ErrInvalidDescriptor
	}
	return &Context{algorithm: TINY, tiny: pair}, nil
}

// ParseDescriptor parses "{ALG}:{rest}":
//
//	AES:key[:iv]  DES:key[:iv]
//	RSA:modulusB64:publicExpB64[:privateExpB64]
//	TINY:modulus:publicExp:privateExp   (codec-encoded over Digits36)
func ParseDescriptor(descriptor string) (*Context, error) {
	descriptor = strings.TrimSpace(descriptor)
	head, rest, found := strings.Cut(descriptor, constants.DescriptorSeparator)
	if !found {
		return nil, errors.ErrInvalidDescriptor
	}
	alg, err := ParseAlgorithm(head)
	if err != nil {
		return nil, err
	}
	return ParseDescriptorBody(alg, rest)
}

// ParseDescriptorBody parses the part of a descriptor after "{ALG}:". A body that still
// carries its own "{ALG}:" prefix is accepted too.
func ParseDescriptorBody(alg Algorithm, body string) (*Context, error) {
	body = strings.TrimSpace(body)
	if prefix := string(alg) + constants.DescriptorSeparator; strings.HasPrefix(strings.ToUpper(body), prefix) {
		body = body[len(prefix):]
	}
	if body == "" {
		return nil, errors.ErrInvalidDescriptor
	}

	switch alg {
	case AES, DES:
		key, iv, _ := strings.Cut(body, constants.DescriptorSeparator)
		return NewSymmetricContext(alg, key, iv)

	case RSA:
		parts := strings.Split(body, constants.DescriptorSeparator)
		if len(parts) < 2 || len(parts) > 3 {
			return nil, errors.ErrInvalidDescriptor
		}
		ints := make([]*big.Int, len(parts))
		for i, p := range parts {
			b, err := decodeB64(p)
			if err != nil || len(b) == 0 {
				return nil, errors.Wrap(err, errors.ErrInvalidDescriptor)
			}
			ints[i] = new(big.Int).SetBytes(b)
		}
		var d *big.Int
		if len(ints) == 3 {
			d = ints[2]
		}
		pair, err := NewRSAKeyPairFromComponents(ints[0], ints[1], d)
		if err != nil {
			return nil, err
		}
		return NewRSAContext(pair)

	case TINY:
		parts := strings.Split(body, constants.DescriptorSeparator)
		if len(parts) != 3 {
			return nil, errors.ErrInvalidDescriptor
		}
		ints := make([]*big.Int, 3)
		for i, p := range parts {
			v, err := codec.DecodeInt(p, codec.Digits36)
			if err != nil {
				return nil, errors.Wrap(err, errors.ErrInvalidDescriptor)
			}
			ints[i] = v
		}
		return NewTinyContext(&TinyKeyPair{Modulus: ints[0], PublicExp: ints[1], PrivateExp: ints[2]})
	}
	return nil, errors.ErrUnsupportedAlgorithm
}

// PrivateKeyContext builds an RSA context from a parsed key, e.g. a PEM key file
func PrivateKeyContext(key *rsa.PrivateKey) (*Context, error) {
	pair, err := NewRSAKeyPair(key)
	if err != nil {
		return nil, err
	}
	return NewRSAContext(pair)
}

func parsePEMContext(alg Algorithm, text string) (*Context, error) {
	if alg != RSA {
		return nil, errors.ErrInvalidDescriptor
	}
	key, err := keys.DecodePrivateKeyPEM(text)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrInvalidDescriptor)
	}
	rsaKey, ok := key.(*rsa.PrivateKey)
	if !ok {
		return nil, errors.ErrInvalidDescriptor
	}
	return PrivateKeyContext(rsaKey)
}

func decodeB64(s string) ([]byte, error) {
	s = strings.TrimSpace(s)
	if b, err := base64.StdEncoding.DecodeString(s); err == nil {
		return b, nil
	}
	return base64.RawStdEncoding.DecodeString(s)
}

func reverse(s string) string {
	r := []rune(s)
	for i, j := 0, len(r)-1; i < j; i, j = i+1, j-1 {
		r[i], r[j] = r[j], r[i]
	}
	return string(r)
}
