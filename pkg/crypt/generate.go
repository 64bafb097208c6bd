package crypt

import (
	"crypto/rand"
	"crypto/rsa"

	"github.com/turtacn/tokenkit/pkg/constants"
	"github.com/turtacn/tokenkit/pkg/errors"
)

// GeneratedKey is the textual export of a fresh RSA key pair. All values are base64;
// PrivateExponent and PrivateKey are ciphertext when a wrapping cipher was supplied.
type GeneratedKey struct {
	Modulus         string `json:"modulus"`
	Exponent        string `json:"exponent"`
	PublicKey       string `json:"publicKey"`
	PrivateExponent string `json:"privateExponent"`
	PrivateKey      string `json:"privateKey"`

	// Pair is the generated key itself
	Pair *RSAKeyPair `json:"-"`
}

// Generate creates a 1024-bit key pair, see GenerateRSA
func Generate(wrap *Cipher) (*GeneratedKey, error) {
	return GenerateRSA(constants.DefaultRSABits, wrap)
}

// GenerateRSA creates a key pair of the given size. When wrap is non-nil the private
// exponent and private key are encrypted with it before export.
func GenerateRSA(bits int, wrap *Cipher) (*GeneratedKey, error) {
	priv, err := rsa.GenerateKey(rand.Reader, bits)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCipherFailure)
	}
	pair, err := NewRSAKeyPair(priv)
	if err != nil {
		return nil, err
	}

	out := &GeneratedKey{
		Modulus:  pair.Modulus(),
		Exponent: pair.PublicExponent(),
		Pair:     pair,
	}
	if out.PublicKey, err = pair.PublicKeyB64(); err != nil {
		return nil, err
	}
	if out.PrivateExponent, err = pair.PrivateExponent(wrap); err != nil {
		return nil, err
	}
	if out.PrivateKey, err = pair.PrivateKeyB64(wrap); err != nil {
		return nil, err
	}
	return out, nil
}
