package jwtoken

import (
	"crypto"
	"crypto/ecdsa"
	"crypto/rand"
	"crypto/rsa"
	"crypto/subtle"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	"github.com/turtacn/tokenkit/pkg/errors"
	"github.com/turtacn/tokenkit/pkg/keys"
)

// Signer signs and verifies the "header.claims" signing input
type Signer interface {
	Algorithm() Algorithm
	Sign(signingInput []byte) ([]byte, error)
	Verify(signingInput, signature []byte) bool
}

// NewSigner builds the signer for alg. The key may be a []byte or string secret for HS*,
// an RSA or ECDSA key (private or public), or PEM text holding one.
func NewSigner(alg Algorithm, key any) (Signer, error) {
	switch alg.Family() {
	case FamilyHMAC:
		switch k := key.(type) {
		case []byte:
			return NewMacSigner(alg, k)
		case string:
			return NewMacSigner(alg, []byte(k))
		}
		return nil, errors.ErrInvalidKey.WithMetadata("algorithm", string(alg))
	case FamilyRSA:
		k, err := asymmetricKey(key)
		if err != nil {
			return nil, err
		}
		return NewRsaSigner(alg, k)
	case FamilyECDSA:
		k, err := asymmetricKey(key)
		if err != nil {
			return nil, err
		}
		return NewEllipticCurveSigner(alg, k)
	}
	return nil, errors.ErrJWTUnsupported.WithMetadata("algorithm", string(alg))
}

// asymmetricKey decodes PEM text; keys already parsed pass through
func asymmetricKey(key any) (any, error) {
	var text string
	switch k := key.(type) {
	case string:
		text = k
	case []byte:
		text = string(k)
	default:
		return key, nil
	}
	if priv, err := keys.DecodePrivateKeyPEM(text); err == nil {
		return priv, nil
	}
	pub, err := keys.DecodePublicKeyPEM(text)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrInvalidKey)
	}
	return pub, nil
}

// isPEM reports whether key is text holding a PEM block
func isPEM(key any) bool {
	switch k := key.(type) {
	case string:
		return strings.Contains(k, "-----BEGIN ")
	case []byte:
		return strings.Contains(string(k), "-----BEGIN ")
	}
	return false
}

// ================================================================================
// HMAC
// ================================================================================

// MacSigner signs with a shared secret. Verification re-signs and compares.
type MacSigner struct {
	alg    Algorithm
	method jwt.SigningMethod
	secret []byte
}

// NewMacSigner creates an HS* signer. The secret must not be empty.
func NewMacSigner(alg Algorithm, secret []byte) (*MacSigner, error) {
	if alg.Family() != FamilyHMAC {
		return nil, errors.ErrJWTUnsupported.WithMetadata("algorithm", string(alg))
	}
	if len(secret) == 0 {
		return nil, errors.ErrInvalidKey.WithMetadata("reason", "empty secret")
	}
	m, err := alg.method()
	if err != nil {
		return nil, err
	}
	return &MacSigner{alg: alg, method: m, secret: append([]byte(nil), secret...)}, nil
}

func (s *MacSigner) Algorithm() Algorithm { return s.alg }

func (s *MacSigner) Sign(signingInput []byte) ([]byte, error) {
	return s.method.Sign(string(signingInput), s.secret)
}

func (s *MacSigner) Verify(signingInput, signature []byte) bool {
	return s.method.Verify(string(signingInput), signature, s.secret) == nil
}

// ================================================================================
// RSA
// ================================================================================

// RsaSigner signs RS* with PKCS#1 v1.5 and PS* with RSASSA-PSS (MGF1 with the algorithm's
// hash, salt length equal to the hash size).
//
// A signer holding a private key verifies RS* signatures by re-signing and comparing. That
// only holds because PKCS#1 v1.5 is deterministic and both sides share the key; PS* always
// goes through public key verification.
type RsaSigner struct {
	alg    Algorithm
	method jwt.SigningMethod
	priv   *rsa.PrivateKey
	pub    *rsa.PublicKey
}

// NewRsaSigner accepts *rsa.PrivateKey or *rsa.PublicKey (or their value forms)
func NewRsaSigner(alg Algorithm, key any) (*RsaSigner, error) {
	if alg.Family() != FamilyRSA {
		return nil, errors.ErrJWTUnsupported.WithMetadata("algorithm", string(alg))
	}
	m, err := alg.method()
	if err != nil {
		return nil, err
	}

	s := &RsaSigner{alg: alg, method: m}
	switch k := key.(type) {
	case *rsa.PrivateKey:
		s.priv, s.pub = k, &k.PublicKey
	case rsa.PrivateKey:
		s.priv, s.pub = &k, &k.PublicKey
	case *rsa.PublicKey:
		s.pub = k
	case rsa.PublicKey:
		s.pub = &k
	default:
		return nil, errors.ErrInvalidKey.WithMetadata("algorithm", string(alg))
	}
	if s.pub == nil || s.pub.N == nil {
		return nil, errors.ErrInvalidKey.WithMetadata("algorithm", string(alg))
	}
	return s, nil
}

func (s *RsaSigner) Algorithm() Algorithm { return s.alg }

func (s *RsaSigner) Sign(signingInput []byte) ([]byte, error) {
	if s.priv == nil {
		return nil, errors.ErrInvalidKey.WithMetadata("reason", "public key cannot sign")
	}
	return s.method.Sign(string(signingInput), s.priv)
}

func (s *RsaSigner) Verify(signingInput, signature []byte) bool {
	if s.priv != nil && !s.alg.pss() {
		expected, err := s.Sign(signingInput)
		if err != nil {
			return false
		}
		return subtle.ConstantTimeCompare(expected, signature) == 1
	}
	return s.method.Verify(string(signingInput), signature, s.pub) == nil
}

// ================================================================================
// ECDSA
// ================================================================================

// EllipticCurveSigner emits JOSE r||s signatures. Verify also accepts DER signatures: an
// input whose length is not the JOSE size and that starts with a SEQUENCE tag is passed to
// the verifier untouched. Any other input must be exactly the JOSE size.
type EllipticCurveSigner struct {
	alg  Algorithm
	hash crypto.Hash
	size int
	priv *ecdsa.PrivateKey
	pub  *ecdsa.PublicKey
}

// NewEllipticCurveSigner accepts *ecdsa.PrivateKey or *ecdsa.PublicKey on the curve alg names
func NewEllipticCurveSigner(alg Algorithm, key any) (*EllipticCurveSigner, error) {
	if alg.Family() != FamilyECDSA {
		return nil, errors.ErrJWTUnsupported.WithMetadata("algorithm", string(alg))
	}
	m, err := alg.method()
	if err != nil {
		return nil, err
	}
	em, ok := m.(*jwt.SigningMethodECDSA)
	if !ok {
		return nil, errors.ErrJWTUnsupported.WithMetadata("algorithm", string(alg))
	}

	s := &EllipticCurveSigner{alg: alg, hash: em.Hash, size: SignatureSize(alg)}
	switch k := key.(type) {
	case *ecdsa.PrivateKey:
		s.priv, s.pub = k, &k.PublicKey
	case *ecdsa.PublicKey:
		s.pub = k
	default:
		return nil, errors.ErrInvalidKey.WithMetadata("algorithm", string(alg))
	}
	if s.pub == nil || s.pub.Curve == nil || s.pub.Curve.Params().BitSize != em.CurveBits {
		return nil, errors.ErrInvalidKey.WithMetadata("reason", "curve does not match algorithm")
	}
	return s, nil
}

func (s *EllipticCurveSigner) Algorithm() Algorithm { return s.alg }

func (s *EllipticCurveSigner) digest(input []byte) []byte {
	h := s.hash.New()
	h.Write(input)
	return h.Sum(nil)
}

func (s *EllipticCurveSigner) Sign(signingInput []byte) ([]byte, error) {
	if s.priv == nil {
		return nil, errors.ErrInvalidKey.WithMetadata("reason", "public key cannot sign")
	}
	der, err := ecdsa.SignASN1(rand.Reader, s.priv, s.digest(signingInput))
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrSignatureInvalid)
	}
	return TranscodeToConcat(der, s.size)
}

func (s *EllipticCurveSigner) Verify(signingInput, signature []byte) bool {
	der := signature
	if len(signature) != s.size {
		if len(signature) == 0 || signature[0] != derSequenceTag {
			return false
		}
	} else {
		var err error
		if der, err = TranscodeToDER(signature); err != nil {
			return false
		}
	}
	return ecdsa.VerifyASN1(s.pub, s.digest(signingInput), der)
}
