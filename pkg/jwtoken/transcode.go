package jwtoken

import (
	"math/big"

	"golang.org/x/crypto/cryptobyte"
	"golang.org/x/crypto/cryptobyte/asn1"

	"github.com/turtacn/tokenkit/pkg/errors"
)

// derSequenceTag opens an ASN.1 DER SEQUENCE
const derSequenceTag = 0x30

// SignatureSize returns the length of a JOSE r||s signature for an ES* algorithm, 0 otherwise
func SignatureSize(alg Algorithm) int {
	switch alg {
	case ES256:
		return 64
	case ES384:
		return 96
	case ES512:
		return 132
	}
	return 0
}

// TranscodeToConcat converts a DER SEQUENCE{INTEGER r, INTEGER s} into the fixed width
// r||s form of size bytes.
func TranscodeToConcat(der []byte, size int) ([]byte, error) {
	if size <= 0 || size%2 != 0 {
		return nil, errors.ErrSignatureFormat.WithMetadata("size", size)
	}

	var (
		r, s  = new(big.Int), new(big.Int)
		input = cryptobyte.String(der)
		seq   cryptobyte.String
	)
	if !input.ReadASN1(&seq, asn1.SEQUENCE) || !input.Empty() ||
		!seq.ReadASN1Integer(r) || !seq.ReadASN1Integer(s) || !seq.Empty() {
		return nil, errors.ErrSignatureFormat.WithMetadata("reason", "der")
	}

	half := size / 2
	if r.Sign() < 0 || s.Sign() < 0 || len(r.Bytes()) > half || len(s.Bytes()) > half {
		return nil, errors.ErrSignatureFormat.WithMetadata("reason", "integer width")
	}

	out := make([]byte, size)
	r.FillBytes(out[:half])
	s.FillBytes(out[half:])
	return out, nil
}

// TranscodeToDER converts an r||s signature into DER. Leading zero bytes are stripped from
// each integer, and one is added back when the high bit is set.
func TranscodeToDER(concat []byte) ([]byte, error) {
	if len(concat) == 0 || len(concat)%2 != 0 {
		return nil, errors.ErrSignatureFormat.WithMetadata("length", len(concat))
	}
	half := len(concat) / 2
	r := new(big.Int).SetBytes(concat[:half])
	s := new(big.Int).SetBytes(concat[half:])

	var b cryptobyte.Builder
	b.AddASN1(asn1.SEQUENCE, func(b *cryptobyte.Builder) {
		b.AddASN1BigInt(r)
		b.AddASN1BigInt(s)
	})
	return b.Bytes()
}
