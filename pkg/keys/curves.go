package keys

import (
	"crypto/elliptic"
	"math/big"
	"strings"

	"github.com/turtacn/tokenkit/pkg/errors"
)

type namedCurve struct {
	name  string
	sshID string
	curve elliptic.Curve
}

var namedCurves = []namedCurve{
	{name: "P-256", sshID: "nistp256", curve: elliptic.P256()},
	{name: "P-384", sshID: "nistp384", curve: elliptic.P384()},
	{name: "P-521", sshID: "nistp521", curve: elliptic.P521()},
}

// IdentifyCurve matches a raw short-Weierstrass parameter set against the NIST prime curves.
// Every supported curve has a = p-3 and cofactor h = 1.
func IdentifyCurve(p, a, b, gx, gy, n, h *big.Int) (string, error) {
	if p == nil || a == nil || b == nil || gx == nil || gy == nil || n == nil || h == nil {
		return "", errors.ErrUnknownCurve
	}
	for _, nc := range namedCurves {
		params := nc.curve.Params()
		expectedA := new(big.Int).Sub(params.P, big.NewInt(3))
		if params.P.Cmp(p) == 0 &&
			expectedA.Cmp(a) == 0 &&
			params.B.Cmp(b) == 0 &&
			params.Gx.Cmp(gx) == 0 &&
			params.Gy.Cmp(gy) == 0 &&
			params.N.Cmp(n) == 0 &&
			h.Cmp(big.NewInt(1)) == 0 {
			return nc.name, nil
		}
	}
	return "", errors.ErrUnknownCurve
}

// CurveName returns the NIST name of c
func CurveName(c elliptic.Curve) (string, error) {
	nc, err := lookupCurve(c)
	if err != nil {
		return "", err
	}
	return nc.name, nil
}

// CurveByName accepts NIST, SSH and SEC names ("P-256", "nistp256", "secp256r1", "prime256v1")
func CurveByName(name string) (elliptic.Curve, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "p-256", "p256", "nistp256", "secp256r1", "prime256v1":
		return elliptic.P256(), nil
	case "p-384", "p384", "nistp384", "secp384r1":
		return elliptic.P384(), nil
	case "p-521", "p521", "nistp521", "secp521r1":
		return elliptic.P521(), nil
	}
	return nil, errors.ErrUnknownCurve.WithMetadata("name", name)
}

// SSHCurveID returns the curve identifier used in "ecdsa-sha2-{id}"
func SSHCurveID(c elliptic.Curve) (string, error) {
	nc, err := lookupCurve(c)
	if err != nil {
		return "", err
	}
	return nc.sshID, nil
}

// lookupCurve compares parameters rather than identity so that curves rebuilt from
// raw parameters resolve too.
func lookupCurve(c elliptic.Curve) (namedCurve, error) {
	if c == nil {
		return namedCurve{}, errors.ErrUnknownCurve
	}
	params := c.Params()
	name, err := IdentifyCurve(params.P, new(big.Int).Sub(params.P, big.NewInt(3)),
		params.B, params.Gx, params.Gy, params.N, big.NewInt(1))
	if err != nil {
		return namedCurve{}, err
	}
	for _, nc := range namedCurves {
		if nc.name == name {
			return nc, nil
		}
	}
	return namedCurve{}, errors.ErrUnknownCurve
}
