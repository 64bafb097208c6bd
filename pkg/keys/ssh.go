package keys

import (
	"crypto"
	"crypto/dsa"
	"crypto/ecdsa"
	"crypto/ed25519"
	"crypto/elliptic"
	"crypto/rsa"
	"encoding/base64"
	"math/big"
	"strings"

	"golang.org/x/crypto/cryptobyte"
	"golang.org/x/crypto/ssh"

	"github.com/turtacn/tokenkit/pkg/errors"
)

// SSH public key algorithm names
const (
	SSHAlgRSA      = "ssh-rsa"
	SSHAlgDSA      = "ssh-dss"
	SSHAlgEd25519  = "ssh-ed25519"
	sshECDSAPrefix = "ecdsa-sha2-"
)

// SSHAlgorithmName returns the OpenSSH algorithm name for pub
func SSHAlgorithmName(pub crypto.PublicKey) (string, error) {
	switch k := pub.(type) {
	case *rsa.PublicKey:
		return SSHAlgRSA, nil
	case *dsa.PublicKey:
		return SSHAlgDSA, nil
	case ed25519.PublicKey:
		return SSHAlgEd25519, nil
	case *ecdsa.PublicKey:
		id, err := SSHCurveID(k.Curve)
		if err != nil {
			return "", err
		}
		return sshECDSAPrefix + id, nil
	}
	return "", errors.ErrUnsupportedKey
}

// MarshalSSHPublicKey encodes pub in the SSH wire format: a length-prefixed algorithm
// name followed by the algorithm's mpints, or by the curve id and point for ECDSA.
func MarshalSSHPublicKey(pub crypto.PublicKey) ([]byte, error) {
	alg, err := SSHAlgorithmName(pub)
	if err != nil {
		return nil, err
	}

	var b cryptobyte.Builder
	addSSHString(&b, []byte(alg))

	switch k := pub.(type) {
	case *rsa.PublicKey:
		addMPInt(&b, big.NewInt(int64(k.E)))
		addMPInt(&b, k.N)
	case *dsa.PublicKey:
		addMPInt(&b, k.P)
		addMPInt(&b, k.Q)
		addMPInt(&b, k.G)
		addMPInt(&b, k.Y)
	case ed25519.PublicKey:
		addSSHString(&b, k)
	case *ecdsa.PublicKey:
		point, err := k.ECDH()
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrUnsupportedKey)
		}
		addSSHString(&b, []byte(strings.TrimPrefix(alg, sshECDSAPrefix)))
		addSSHString(&b, point.Bytes())
	}

	wire, err := b.Bytes()
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrInvalidEncoding)
	}
	return wire, nil
}

// EncodeSSHPublicKey renders pub as an authorized_keys line "{alg} {base64} {comment}"
func EncodeSSHPublicKey(pub crypto.PublicKey, comment string) (string, error) {
	wire, err := MarshalSSHPublicKey(pub)
	if err != nil {
		return "", err
	}
	alg, _ := SSHAlgorithmName(pub)
	line := alg + " " + base64.StdEncoding.EncodeToString(wire)
	if comment = strings.TrimSpace(comment); comment != "" {
		line += " " + comment
	}
	return line, nil
}

// DecodeSSHPublicKey parses an authorized_keys line and returns the key with its comment
func DecodeSSHPublicKey(line string) (crypto.PublicKey, string, error) {
	fields := strings.Fields(line)
	if len(fields) < 2 {
		return nil, "", errors.ErrInvalidEncoding
	}

	sshPub, comment, _, _, err := ssh.ParseAuthorizedKey([]byte(line))
	if err != nil {
		return nil, "", errors.Wrap(err, errors.ErrInvalidEncoding)
	}
	cpk, ok := sshPub.(ssh.CryptoPublicKey)
	if !ok {
		return nil, "", errors.ErrUnsupportedKey
	}
	return cpk.CryptoPublicKey(), comment, nil
}

// UnmarshalSSHPublicKey reverses MarshalSSHPublicKey for RSA, DSA, ECDSA and Ed25519 keys
func UnmarshalSSHPublicKey(wire []byte) (crypto.PublicKey, error) {
	s := cryptobyte.String(wire)
	var alg []byte
	if !readSSHString(&s, &alg) {
		return nil, errors.ErrInvalidEncoding
	}

	var pub crypto.PublicKey
	switch name := string(alg); {
	case name == SSHAlgRSA:
		e, n := new(big.Int), new(big.Int)
		if !readMPInt(&s, e) || !readMPInt(&s, n) || !e.IsInt64() {
			return nil, errors.ErrInvalidEncoding
		}
		pub = &rsa.PublicKey{N: n, E: int(e.Int64())}
	case name == SSHAlgDSA:
		p, q, g, y := new(big.Int), new(big.Int), new(big.Int), new(big.Int)
		if !readMPInt(&s, p) || !readMPInt(&s, q) || !readMPInt(&s, g) || !readMPInt(&s, y) {
			return nil, errors.ErrInvalidEncoding
		}
		pub = &dsa.PublicKey{Parameters: dsa.Parameters{P: p, Q: q, G: g}, Y: y}
	case name == SSHAlgEd25519:
		var key []byte
		if !readSSHString(&s, &key) || len(key) != ed25519.PublicKeySize {
			return nil, errors.ErrInvalidEncoding
		}
		pub = ed25519.PublicKey(key)
	case strings.HasPrefix(name, sshECDSAPrefix):
		var id, point []byte
		if !readSSHString(&s, &id) || !readSSHString(&s, &point) || string(id) != strings.TrimPrefix(name, sshECDSAPrefix) {
			return nil, errors.ErrInvalidEncoding
		}
		curve, err := CurveByName(string(id))
		if err != nil {
			return nil, err
		}
		x, y := elliptic.Unmarshal(curve, point)
		if x == nil {
			return nil, errors.ErrInvalidEncoding
		}
		pub = &ecdsa.PublicKey{Curve: curve, X: x, Y: y}
	default:
		return nil, errors.ErrUnsupportedKey.WithMetadata("algorithm", name)
	}

	if !s.Empty() {
		return nil, errors.ErrInvalidEncoding
	}
	return pub, nil
}

func addSSHString(b *cryptobyte.Builder, v []byte) {
	b.AddUint32LengthPrefixed(func(b *cryptobyte.Builder) {
		b.AddBytes(v)
	})
}

// addMPInt writes a non-negative integer as an SSH mpint: minimal two's complement,
// with a leading zero byte when the high bit is set, and no bytes for zero.
func addMPInt(b *cryptobyte.Builder, n *big.Int) {
	raw := n.Bytes()
	if len(raw) > 0 && raw[0]&0x80 != 0 {
		raw = append([]byte{0}, raw...)
	}
	addSSHString(b, raw)
}

func readSSHString(s *cryptobyte.String, out *[]byte) bool {
	var n uint32
	var v []byte
	if !s.ReadUint32(&n) || !s.ReadBytes(&v, int(n)) {
		return false
	}
	*out = v
	return true
}

func readMPInt(s *cryptobyte.String, out *big.Int) bool {
	var raw []byte
	if !readSSHString(s, &raw) {
		return false
	}
	if len(raw) > 0 && raw[0]&0x80 != 0 {
		// negative values never appear in public keys
		return false
	}
	out.SetBytes(raw)
	return true
}
