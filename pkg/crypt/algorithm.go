// Package crypt is the cipher engine shared by the token packages: AES and DES in CBC mode,
// chunked RSA with PKCS#1 v1.5 padding, and the unpadded modPow "Tiny" scheme.
//
// Key material lives in immutable Context snapshots held by a Provider. The first use of an
// algorithm resolves its material from a KeySource, falling back to an embedded default, and
// Apply replaces a snapshot with a single atomic swap.
package crypt

import (
	"strings"

	"github.com/turtacn/tokenkit/pkg/constants"
	"github.com/turtacn/tokenkit/pkg/errors"
)

// Algorithm names a cipher family
type Algorithm string

const (
	AES  Algorithm = constants.AlgorithmAES
	DES  Algorithm = constants.AlgorithmDES
	RSA  Algorithm = constants.AlgorithmRSA
	TINY Algorithm = constants.AlgorithmTiny
)

// Algorithms lists every supported algorithm
var Algorithms = []Algorithm{AES, DES, RSA, TINY}

// ParseAlgorithm is case-insensitive
func ParseAlgorithm(s string) (Algorithm, error) {
	alg := Algorithm(strings.ToUpper(strings.TrimSpace(s)))
	switch alg {
	case AES, DES, RSA, TINY:
		return alg, nil
	}
	return "", errors.ErrUnsupportedAlgorithm.WithMetadata("algorithm", s)
}

func (a Algorithm) String() string { return string(a) }

// Asymmetric reports whether the algorithm distinguishes public and private keys
func (a Algorithm) Asymmetric() bool { return a == RSA || a == TINY }

// KeyUse selects the half of an asymmetric key pair an operation runs with.
// Symmetric algorithms ignore it.
type KeyUse int

const (
	// UsePublicKey encrypts for the private key holder, or decrypts what the private key produced
	UsePublicKey KeyUse = iota
	// UsePrivateKey decrypts public-key ciphertext, or produces ciphertext only the public key opens
	UsePrivateKey
)

func (u KeyUse) String() string {
	if u == UsePrivateKey {
		return "private"
	}
	return "public"
}
