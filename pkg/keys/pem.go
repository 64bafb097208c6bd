// Package keys encodes and decodes RSA, DSA, EC and Ed25519 keys as PEM, raw DER and the SSH
// public key wire format, and identifies named curves from raw curve parameters.
package keys

import (
	"encoding/base64"
	"encoding/pem"
	"strings"

	"github.com/turtacn/tokenkit/pkg/errors"
)

// PEM block types
const (
	TypePublicKey           = "PUBLIC KEY"
	TypeRSAPrivateKey       = "RSA PRIVATE KEY"
	TypeDSAPrivateKey       = "DSA PRIVATE KEY"
	TypeECPrivateKey        = "EC PRIVATE KEY"
	TypePrivateKey          = "PRIVATE KEY"
	TypeEncryptedPrivateKey = "ENCRYPTED PRIVATE KEY"
)

// WrapPEM wraps der in a "-----BEGIN {blockType}-----" armour
func WrapPEM(der []byte, blockType string) string {
	return string(pem.EncodeToMemory(&pem.Block{Type: blockType, Bytes: der}))
}

// StripPEM removes the PEM armour from text and returns the DER bytes with the block type.
// Text without armour is read as bare base64 DER and yields an empty type.
func StripPEM(text string) ([]byte, string, error) {
	trimmed := strings.TrimSpace(text)
	if strings.HasPrefix(trimmed, "-----BEGIN") {
		block, _ := pem.Decode([]byte(trimmed))
		if block == nil {
			return nil, "", errors.ErrInvalidEncoding
		}
		return block.Bytes, block.Type, nil
	}

	compact := strings.Map(func(r rune) rune {
		switch r {
		case ' ', '\t', '\r', '\n':
			return -1
		}
		return r
	}, trimmed)
	der, err := base64.StdEncoding.DecodeString(compact)
	if err != nil || len(der) == 0 {
		return nil, "", errors.Wrap(err, errors.ErrInvalidEncoding)
	}
	return der, "", nil
}
