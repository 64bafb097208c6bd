package crypt

import (
	"crypto"
	"crypto/rsa"
	"crypto/sha256"
	"encoding/base64"
	"strings"

	"github.com/turtacn/tokenkit/pkg/errors"
	"github.com/turtacn/tokenkit/pkg/keys"
)

// Stateless RSA helpers for exchanging data with other processes. Keys are base64 DER
// without PEM armour: X.509 SubjectPublicKeyInfo for public keys, PKCS#8 for private keys
// (PKCS#1 is accepted too). Chunking matches Cipher.

func publicPair(keyB64 string) (*RSAKeyPair, error) {
	pub, err := keys.ParseRSAPublicKeyB64(keyB64)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCipherFailure)
	}
	return NewRSAPublicKeyPair(pub)
}

func privatePair(keyB64 string) (*RSAKeyPair, error) {
	priv, err := keys.ParseRSAPrivateKeyB64(keyB64)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCipherFailure)
	}
	return NewRSAKeyPair(priv)
}

// EncryptByPublicKey encrypts data for the holder of the matching private key
func EncryptByPublicKey(publicKeyB64 string, data []byte) ([]byte, error) {
	pair, err := publicPair(publicKeyB64)
	if err != nil {
		return nil, err
	}
	return rsaEncrypt(pair, UsePublicKey, data)
}

// EncryptByPrivateKey produces ciphertext that the matching public key opens
func EncryptByPrivateKey(privateKeyB64 string, data []byte) ([]byte, error) {
	pair, err := privatePair(privateKeyB64)
	if err != nil {
		return nil, err
	}
	return rsaEncrypt(pair, UsePrivateKey, data)
}

// DecryptByPublicKey opens ciphertext produced by EncryptByPrivateKey
func DecryptByPublicKey(publicKeyB64 string, data []byte) ([]byte, error) {
	pair, err := publicPair(publicKeyB64)
	if err != nil {
		return nil, err
	}
	return rsaDecrypt(pair, UsePublicKey, data)
}

// DecryptByPrivateKey opens ciphertext produced by EncryptByPublicKey
func DecryptByPrivateKey(privateKeyB64 string, data []byte) ([]byte, error) {
	pair, err := privatePair(privateKeyB64)
	if err != nil {
		return nil, err
	}
	return rsaDecrypt(pair, UsePrivateKey, data)
}

// Sign returns the base64 SHA256withRSA (PKCS#1 v1.5) signature of data
func Sign(data []byte, privateKeyB64 string) (string, error) {
	priv, err := keys.ParseRSAPrivateKeyB64(privateKeyB64)
	if err != nil {
		return "", errors.Wrap(err, errors.ErrCipherFailure)
	}
	digest := sha256.Sum256(data)
	sig, err := rsa.SignPKCS1v15(nil, priv, crypto.SHA256, digest[:])
	if err != nil {
		return "", errors.Wrap(err, errors.ErrCipherFailure)
	}
	return base64.StdEncoding.EncodeToString(sig), nil
}

// Verify checks a base64 SHA256withRSA signature. Any decoding problem reports false.
func Verify(data []byte, publicKeyB64, signatureB64 string) bool {
	pub, err := keys.ParseRSAPublicKeyB64(publicKeyB64)
	if err != nil {
		return false
	}
	sig, err := base64.StdEncoding.DecodeString(strings.TrimSpace(signatureB64))
	if err != nil {
		return false
	}
	digest := sha256.Sum256(data)
	return rsa.VerifyPKCS1v15(pub, crypto.SHA256, digest[:], sig) == nil
}
