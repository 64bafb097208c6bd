package crypt

import (
	_ "embed"
	"strings"
)

// Built-in key material. It is public and only keeps a development setup working;
// the provider logs a security warning whenever it is used.
var (
	//go:embed defaults/symmetric.key
	embeddedSymmetric string

	//go:embed defaults/rsa.pem
	embeddedRSA string

	//go:embed defaults/tiny.key
	embeddedTiny string
)

func embeddedDefaults() map[Algorithm]string {
	return map[Algorithm]string{
		AES:  strings.TrimSpace(embeddedSymmetric),
		DES:  strings.TrimSpace(embeddedSymmetric),
		RSA:  embeddedRSA,
		TINY: strings.TrimSpace(embeddedTiny),
	}
}
