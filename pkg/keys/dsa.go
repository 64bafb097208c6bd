package keys

import (
	"crypto/dsa"
	encasn1 "encoding/asn1"
	"math/big"

	"golang.org/x/crypto/cryptobyte"
	"golang.org/x/crypto/cryptobyte/asn1"

	"github.com/turtacn/tokenkit/pkg/errors"
)

// crypto/x509 parses DSA public keys but cannot marshal them
var oidPublicKeyDSA = encasn1.ObjectIdentifier{1, 2, 840, 10040, 4, 1}

func marshalDSAPublicKey(pub *dsa.PublicKey) ([]byte, error) {
	if pub == nil || pub.P == nil || pub.Q == nil || pub.G == nil || pub.Y == nil {
		return nil, errors.ErrUnsupportedKey
	}

	var key cryptobyte.Builder
	key.AddASN1BigInt(pub.Y)
	keyBytes, err := key.Bytes()
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrInvalidEncoding)
	}

	var b cryptobyte.Builder
	b.AddASN1(asn1.SEQUENCE, func(b *cryptobyte.Builder) {
		b.AddASN1(asn1.SEQUENCE, func(b *cryptobyte.Builder) {
			b.AddASN1ObjectIdentifier(oidPublicKeyDSA)
			b.AddASN1(asn1.SEQUENCE, func(b *cryptobyte.Builder) {
				b.AddASN1BigInt(pub.P)
				b.AddASN1BigInt(pub.Q)
				b.AddASN1BigInt(pub.G)
			})
		})
		b.AddASN1BitString(keyBytes)
	})
	der, err := b.Bytes()
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrInvalidEncoding)
	}
	return der, nil
}

// marshalDSAPrivateKey writes the OpenSSL "DSA PRIVATE KEY" sequence {0, p, q, g, y, x}
func marshalDSAPrivateKey(k *dsa.PrivateKey) ([]byte, error) {
	if k == nil || k.X == nil || k.Y == nil || k.P == nil {
		return nil, errors.ErrUnsupportedKey
	}
	var b cryptobyte.Builder
	b.AddASN1(asn1.SEQUENCE, func(b *cryptobyte.Builder) {
		b.AddASN1Int64(0)
		b.AddASN1BigInt(k.P)
		b.AddASN1BigInt(k.Q)
		b.AddASN1BigInt(k.G)
		b.AddASN1BigInt(k.Y)
		b.AddASN1BigInt(k.X)
	})
	der, err := b.Bytes()
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrInvalidEncoding)
	}
	return der, nil
}

func parseDSAPrivateKey(der []byte) (*dsa.PrivateKey, error) {
	input := cryptobyte.String(der)
	var seq cryptobyte.String
	var version int64
	if !input.ReadASN1(&seq, asn1.SEQUENCE) || !input.Empty() || !seq.ReadASN1Integer(&version) || version != 0 {
		return nil, errors.ErrInvalidEncoding
	}

	ints := make([]*big.Int, 5)
	for i := range ints {
		ints[i] = new(big.Int)
		if !seq.ReadASN1Integer(ints[i]) {
			return nil, errors.ErrInvalidEncoding
		}
	}
	if !seq.Empty() {
		return nil, errors.ErrInvalidEncoding
	}

	key := &dsa.PrivateKey{
		PublicKey: dsa.PublicKey{
			Parameters: dsa.Parameters{P: ints[0], Q: ints[1], G: ints[2]},
			Y:          ints[3],
		},
		X: ints[4],
	}
	// y must equal g^x mod p
	if key.P.Sign() <= 0 || new(big.Int).Exp(key.G, key.X, key.P).Cmp(key.Y) != 0 {
		return nil, errors.ErrInvalidEncoding
	}
	return key, nil
}
