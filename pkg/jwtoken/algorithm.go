// Package jwtoken builds and verifies JSON Web Tokens in compact serialization.
//
// Tokens carry a fixed header {"typ":"JWT","alg":...} and a claims object with a private
// version claim "v" and the caller's payload nested under "d". Signatures are produced by a
// Signer: MacSigner for HS*, RsaSigner for RS* and PS*, EllipticCurveSigner for ES*.
package jwtoken

import (
	"strings"

	"github.com/golang-jwt/jwt/v5"

	"github.com/turtacn/tokenkit/pkg/errors"
)

// Algorithm is a JOSE "alg" value
type Algorithm string

const (
	HS256 Algorithm = "HS256"
	HS384 Algorithm = "HS384"
	HS512 Algorithm = "HS512"
	RS256 Algorithm = "RS256"
	RS384 Algorithm = "RS384"
	RS512 Algorithm = "RS512"
	PS256 Algorithm = "PS256"
	PS384 Algorithm = "PS384"
	PS512 Algorithm = "PS512"
	ES256 Algorithm = "ES256"
	ES384 Algorithm = "ES384"
	ES512 Algorithm = "ES512"
)

// Family groups algorithms that share a key type
type Family int

const (
	FamilyUnknown Family = iota
	FamilyHMAC
	FamilyRSA
	FamilyECDSA
)

var families = map[Algorithm]Family{
	HS256: FamilyHMAC, HS384: FamilyHMAC, HS512: FamilyHMAC,
	RS256: FamilyRSA, RS384: FamilyRSA, RS512: FamilyRSA,
	PS256: FamilyRSA, PS384: FamilyRSA, PS512: FamilyRSA,
	ES256: FamilyECDSA, ES384: FamilyECDSA, ES512: FamilyECDSA,
}

// ParseAlgorithm accepts any case
func ParseAlgorithm(s string) (Algorithm, error) {
	alg := Algorithm(strings.ToUpper(strings.TrimSpace(s)))
	if _, ok := families[alg]; !ok {
		return "", errors.ErrJWTUnsupported.WithMetadata("algorithm", s)
	}
	return alg, nil
}

func (a Algorithm) String() string { return string(a) }

// Family returns the key family, FamilyUnknown for unsupported values
func (a Algorithm) Family() Family { return families[a] }

// pss reports whether a is an RSASSA-PSS variant
func (a Algorithm) pss() bool { return strings.HasPrefix(string(a), "PS") }

// method returns the golang-jwt primitive for a
func (a Algorithm) method() (jwt.SigningMethod, error) {
	if a.Family() == FamilyUnknown {
		return nil, errors.ErrJWTUnsupported.WithMetadata("algorithm", string(a))
	}
	m := jwt.GetSigningMethod(string(a))
	if m == nil {
		return nil, errors.ErrJWTUnsupported.WithMetadata("algorithm", string(a))
	}
	return m, nil
}
