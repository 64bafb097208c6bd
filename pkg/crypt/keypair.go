package crypt

import (
	"crypto/rand"
	"crypto/rsa"
	"encoding/base64"
	"math/big"
	"strings"

	"github.com/turtacn/tokenkit/pkg/codec"
	"github.com/turtacn/tokenkit/pkg/constants"
	"github.com/turtacn/tokenkit/pkg/errors"
	"github.com/turtacn/tokenkit/pkg/keys"
)

// RSAKeyPair holds an RSA public key and, when known, its private half
type RSAKeyPair struct {
	pub  *rsa.PublicKey
	priv *rsa.PrivateKey
}

// NewRSAKeyPair wraps a private key
func NewRSAKeyPair(key *rsa.PrivateKey) (*RSAKeyPair, error) {
	if key == nil {
		return nil, errors.ErrInvalidDescriptor
	}
	if err := key.Validate(); err != nil {
		return nil, errors.Wrap(err, errors.ErrInvalidDescriptor)
	}
	key.Precompute()
	return &RSAKeyPair{pub: &key.PublicKey, priv: key}, nil
}

// NewRSAPublicKeyPair wraps a public key only; private-key operations fail
func NewRSAPublicKeyPair(pub *rsa.PublicKey) (*RSAKeyPair, error) {
	if pub == nil || pub.N == nil || pub.E < 2 {
		return nil, errors.ErrInvalidDescriptor
	}
	return &RSAKeyPair{pub: pub}, nil
}

// NewRSAKeyPairFromComponents rebuilds a key from modulus and exponents. When d is non-nil
// the prime factors are recovered so the result is a full CRT key.
func NewRSAKeyPairFromComponents(n, e, d *big.Int) (*RSAKeyPair, error) {
	if n == nil || e == nil || n.Sign() <= 0 || !e.IsInt64() || e.Int64() < 2 || e.Int64() > 1<<31-1 {
		return nil, errors.ErrInvalidDescriptor
	}
	pub := &rsa.PublicKey{N: new(big.Int).Set(n), E: int(e.Int64())}
	if d == nil {
		return NewRSAPublicKeyPair(pub)
	}

	p, q, err := recoverPrimes(n, e, d)
	if err != nil {
		return nil, err
	}
	return NewRSAKeyPair(&rsa.PrivateKey{
		PublicKey: *pub,
		D:         new(big.Int).Set(d),
		Primes:    []*big.Int{p, q},
	})
}

// recoverPrimes factors n from a known exponent pair (NIST SP 800-56B, appendix C)
func recoverPrimes(n, e, d *big.Int) (*big.Int, *big.Int, error) {
	one := big.NewInt(1)
	nMinus1 := new(big.Int).Sub(n, one)

	k := new(big.Int).Mul(d, e)
	k.Sub(k, one)
	if k.Sign() <= 0 || k.Bit(0) != 0 {
		return nil, nil, errors.ErrInvalidDescriptor
	}
	t := new(big.Int).Set(k)
	for t.Bit(0) == 0 {
		t.Rsh(t, 1)
	}

	for g := int64(2); g < 1000; g++ {
		x := new(big.Int).Exp(big.NewInt(g), t, n)
		for r := new(big.Int).Set(t); r.Cmp(k) < 0; r.Lsh(r, 1) {
			if x.Cmp(one) == 0 || x.Cmp(nMinus1) == 0 {
				break
			}
			y := new(big.Int).Exp(x, big.NewInt(2), n)
			if y.Cmp(one) == 0 {
				p := new(big.Int).GCD(nil, nil, new(big.Int).Sub(x, one), n)
				q := new(big.Int).Div(n, p)
				if p.Cmp(one) > 0 && new(big.Int).Mul(p, q).Cmp(n) == 0 {
					if p.Cmp(q) < 0 {
						p, q = q, p
					}
					return p, q, nil
				}
				break
			}
			x = y
		}
	}
	return nil, nil, errors.ErrInvalidDescriptor.WithMetadata("reason", "modulus not factorable from exponents")
}

// PublicKey returns the public half
func (k *RSAKeyPair) PublicKey() *rsa.PublicKey { return k.pub }

// PrivateKey returns the private half, or nil for a public-only pair
func (k *RSAKeyPair) PrivateKey() *rsa.PrivateKey { return k.priv }

// Size is the modulus length in bytes
func (k *RSAKeyPair) Size() int { return k.pub.Size() }

// Modulus returns the base64 big-endian modulus
func (k *RSAKeyPair) Modulus() string {
	return base64.StdEncoding.EncodeToString(k.pub.N.Bytes())
}

// PublicExponent returns the base64 big-endian public exponent
func (k *RSAKeyPair) PublicExponent() string {
	return base64.StdEncoding.EncodeToString(big.NewInt(int64(k.pub.E)).Bytes())
}

// PrivateExponent returns the base64 private exponent, encrypted with wrap when wrap is non-nil
func (k *RSAKeyPair) PrivateExponent(wrap *Cipher) (string, error) {
	if k.priv == nil {
		return "", errors.ErrKeyNotFound
	}
	return exportSecret(k.priv.D.Bytes(), wrap)
}

// PublicKeyB64 returns the base64 X.509 SubjectPublicKeyInfo
func (k *RSAKeyPair) PublicKeyB64() (string, error) {
	return keys.EncodeRSAPublicKeyB64(k.pub)
}

// PrivateKeyB64 returns the base64 PKCS#8 private key, encrypted with wrap when wrap is non-nil
func (k *RSAKeyPair) PrivateKeyB64(wrap *Cipher) (string, error) {
	if k.priv == nil {
		return "", errors.ErrKeyNotFound
	}
	der, err := keys.EncodePKCS8(k.priv, nil)
	if err != nil {
		return "", err
	}
	return exportSecret(der, wrap)
}

// Descriptor renders the pair in the form accepted by Apply
func (k *RSAKeyPair) Descriptor() string {
	parts := []string{string(RSA), k.Modulus(), k.PublicExponent()}
	if k.priv != nil {
		parts = append(parts, base64.StdEncoding.EncodeToString(k.priv.D.Bytes()))
	}
	return strings.Join(parts, constants.DescriptorSeparator)
}

func exportSecret(raw []byte, wrap *Cipher) (string, error) {
	if wrap == nil {
		return base64.StdEncoding.EncodeToString(raw), nil
	}
	enc, err := wrap.Encrypt(raw)
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(enc), nil
}

// TinyKeyPair is the unpadded RSA-like key used by the TINY algorithm.
// The values are shared between goroutines and must be treated as read-only.
type TinyKeyPair struct {
	Modulus    *big.Int
	PublicExp  *big.Int
	PrivateExp *big.Int
}

// GenerateTinyKeyPair searches for two distinct probable primes of bits/2 each and a prime
// public exponent coprime to phi. Latency grows quickly with bits.
func GenerateTinyKeyPair(bits int) (*TinyKeyPair, error) {
	if bits < 32 {
		return nil, errors.ErrInvalidDescriptor.WithMetadata("bits", bits)
	}
	one := big.NewInt(1)
	for {
		p, err := rand.Prime(rand.Reader, bits/2)
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrCipherFailure)
		}
		q, err := rand.Prime(rand.Reader, bits-bits/2)
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrCipherFailure)
		}
		if p.Cmp(q) == 0 {
			continue
		}

		phi := new(big.Int).Mul(new(big.Int).Sub(p, one), new(big.Int).Sub(q, one))
		e, err := rand.Prime(rand.Reader, bits/4)
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrCipherFailure)
		}
		d := new(big.Int).ModInverse(e, phi)
		if d == nil {
			continue
		}
		return &TinyKeyPair{Modulus: new(big.Int).Mul(p, q), PublicExp: e, PrivateExp: d}, nil
	}
}

// BitLen is the modulus size; plaintext must stay below the modulus
func (k *TinyKeyPair) BitLen() int { return k.Modulus.BitLen() }

// Descriptor renders the pair in the form accepted by Apply
func (k *TinyKeyPair) Descriptor() string {
	return strings.Join([]string{
		string(TINY),
		codec.EncodeInt(k.Modulus, codec.Digits36),
		codec.EncodeInt(k.PublicExp, codec.Digits36),
		codec.EncodeInt(k.PrivateExp, codec.Digits36),
	}, constants.DescriptorSeparator)
}
