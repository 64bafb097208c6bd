package keys

import (
	"crypto"
	"crypto/dsa"
	"crypto/ecdsa"
	"crypto/ed25519"
	"crypto/rsa"
	"crypto/x509"
	"encoding/base64"
	"strings"

	"github.com/youmark/pkcs8"

	"github.com/turtacn/tokenkit/pkg/errors"
)

// EncodePrivateKey returns the traditional DER form of key and its PEM type:
// PKCS#1 for RSA, SEC1 for EC, the OpenSSL sequence for DSA and PKCS#8 for everything else.
func EncodePrivateKey(key crypto.PrivateKey) ([]byte, string, error) {
	switch k := key.(type) {
	case *rsa.PrivateKey:
		return x509.MarshalPKCS1PrivateKey(k), TypeRSAPrivateKey, nil
	case *ecdsa.PrivateKey:
		der, err := x509.MarshalECPrivateKey(k)
		if err != nil {
			return nil, "", errors.Wrap(err, errors.ErrUnsupportedKey)
		}
		return der, TypeECPrivateKey, nil
	case *dsa.PrivateKey:
		der, err := marshalDSAPrivateKey(k)
		if err != nil {
			return nil, "", err
		}
		return der, TypeDSAPrivateKey, nil
	case ed25519.PrivateKey:
		der, err := x509.MarshalPKCS8PrivateKey(k)
		if err != nil {
			return nil, "", errors.Wrap(err, errors.ErrUnsupportedKey)
		}
		return der, TypePrivateKey, nil
	default:
		return nil, "", errors.ErrUnsupportedKey
	}
}

// DecodePrivateKey parses PKCS#1, SEC1, DSA or unencrypted PKCS#8 DER
func DecodePrivateKey(der []byte) (crypto.PrivateKey, error) {
	if len(der) == 0 {
		return nil, errors.ErrInvalidEncoding
	}
	if k, err := x509.ParsePKCS1PrivateKey(der); err == nil {
		return k, nil
	}
	if k, err := x509.ParseECPrivateKey(der); err == nil {
		return k, nil
	}
	if k, err := parseDSAPrivateKey(der); err == nil {
		return k, nil
	}
	k, err := pkcs8.ParsePKCS8PrivateKey(der)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrInvalidEncoding)
	}
	return k, nil
}

// EncodePublicKey marshals pub as an X.509 SubjectPublicKeyInfo
func EncodePublicKey(pub crypto.PublicKey) ([]byte, error) {
	if k, ok := pub.(*dsa.PublicKey); ok {
		return marshalDSAPublicKey(k)
	}
	der, err := x509.MarshalPKIXPublicKey(pub)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrUnsupportedKey)
	}
	return der, nil
}

// DecodePublicKey parses an X.509 SubjectPublicKeyInfo, falling back to a PKCS#1 RSA key
func DecodePublicKey(der []byte) (crypto.PublicKey, error) {
	if len(der) == 0 {
		return nil, errors.ErrInvalidEncoding
	}
	pub, err := x509.ParsePKIXPublicKey(der)
	if err == nil {
		return pub, nil
	}
	if k, perr := x509.ParsePKCS1PublicKey(der); perr == nil {
		return k, nil
	}
	return nil, errors.Wrap(err, errors.ErrInvalidEncoding)
}

// EncodePrivateKeyPEM wraps the traditional DER form of key in PEM
func EncodePrivateKeyPEM(key crypto.PrivateKey) (string, error) {
	der, blockType, err := EncodePrivateKey(key)
	if err != nil {
		return "", err
	}
	return WrapPEM(der, blockType), nil
}

// DecodePrivateKeyPEM parses an unencrypted private key in PEM or bare base64 form
func DecodePrivateKeyPEM(text string) (crypto.PrivateKey, error) {
	der, blockType, err := StripPEM(text)
	if err != nil {
		return nil, err
	}
	if blockType == TypeEncryptedPrivateKey {
		return nil, errors.ErrInvalidPassword
	}
	return DecodePrivateKey(der)
}

// DecodeEncryptedPrivateKeyPEM parses an "ENCRYPTED PRIVATE KEY" block
func DecodeEncryptedPrivateKeyPEM(text string, password []byte) (crypto.PrivateKey, error) {
	der, blockType, err := StripPEM(text)
	if err != nil {
		return nil, err
	}
	if blockType == TypeEncryptedPrivateKey && len(password) == 0 {
		return nil, errors.ErrInvalidPassword
	}
	return DecodePKCS8(der, password)
}

// EncodePublicKeyPEM wraps the SubjectPublicKeyInfo of pub in a "PUBLIC KEY" block
func EncodePublicKeyPEM(pub crypto.PublicKey) (string, error) {
	der, err := EncodePublicKey(pub)
	if err != nil {
		return "", err
	}
	return WrapPEM(der, TypePublicKey), nil
}

// DecodePublicKeyPEM parses a public key in PEM or bare base64 form
func DecodePublicKeyPEM(text string) (crypto.PublicKey, error) {
	der, _, err := StripPEM(text)
	if err != nil {
		return nil, err
	}
	return DecodePublicKey(der)
}

// EncodePKCS8 marshals key as PKCS#8. A non-empty password encrypts the result
// with PBES2 (PBKDF2 + AES-256-CBC).
func EncodePKCS8(key crypto.PrivateKey, password []byte) ([]byte, error) {
	if key == nil {
		return nil, errors.ErrUnsupportedKey
	}
	der, err := pkcs8.MarshalPrivateKey(key, password, nil)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrUnsupportedKey)
	}
	return der, nil
}

// DecodePKCS8 parses PKCS#8 DER, decrypting it when password is non-empty
func DecodePKCS8(der []byte, password []byte) (crypto.PrivateKey, error) {
	if len(der) == 0 {
		return nil, errors.ErrInvalidEncoding
	}
	key, err := pkcs8.ParsePKCS8PrivateKey(der, password)
	if err != nil {
		if isPasswordError(err) {
			return nil, errors.Wrap(err, errors.ErrInvalidPassword)
		}
		return nil, errors.Wrap(err, errors.ErrInvalidEncoding)
	}
	return key, nil
}

// isPasswordError reports the pkcs8 failure for a decryption that produced no valid key
func isPasswordError(err error) bool {
	return strings.Contains(err.Error(), "pkcs8: incorrect password")
}

// ParseRSAPublicKeyB64 parses base64 DER without PEM headers (SPKI or PKCS#1)
func ParseRSAPublicKeyB64(b64 string) (*rsa.PublicKey, error) {
	der, err := base64.StdEncoding.DecodeString(strings.TrimSpace(b64))
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrInvalidEncoding)
	}
	pub, err := DecodePublicKey(der)
	if err != nil {
		return nil, err
	}
	rsaPub, ok := pub.(*rsa.PublicKey)
	if !ok {
		return nil, errors.ErrUnsupportedKey
	}
	return rsaPub, nil
}

// ParseRSAPrivateKeyB64 parses base64 DER without PEM headers (PKCS#8 or PKCS#1)
func ParseRSAPrivateKeyB64(b64 string) (*rsa.PrivateKey, error) {
	der, err := base64.StdEncoding.DecodeString(strings.TrimSpace(b64))
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrInvalidEncoding)
	}
	key, err := DecodePrivateKey(der)
	if err != nil {
		return nil, err
	}
	rsaKey, ok := key.(*rsa.PrivateKey)
	if !ok {
		return nil, errors.ErrUnsupportedKey
	}
	return rsaKey, nil
}

// EncodeRSAPublicKeyB64 returns the base64 SubjectPublicKeyInfo of pub
func EncodeRSAPublicKeyB64(pub *rsa.PublicKey) (string, error) {
	der, err := EncodePublicKey(pub)
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(der), nil
}

// EncodeRSAPrivateKeyB64 returns the base64 unencrypted PKCS#8 form of key
func EncodeRSAPrivateKeyB64(key *rsa.PrivateKey) (string, error) {
	der, err := EncodePKCS8(key, nil)
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(der), nil
}
