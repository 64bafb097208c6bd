// Package usertoken mints and verifies opaque session tokens.
//
// A token packs a username, a credential hash, the client address, an expiry and a set of
// role hashes into one AES-encrypted string. A structural checksum over the fields detects
// tampering, and ParseAndBind ties a token to the address it was issued to.
package usertoken

import (
	"encoding/binary"
	"net/netip"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/turtacn/tokenkit/pkg/codec"
	"github.com/turtacn/tokenkit/pkg/constants"
	"github.com/turtacn/tokenkit/pkg/errors"
)

// Token is the decoded content of an opaque session token
type Token struct {
	Username       string
	CredentialHash int32
	// Address is the bound client address. Tokens read back from their serialized form
	// carry the dotted IPv4 rendering of AddressCode.
	Address     string
	AddressCode int32
	Issuer      int32
	// Expiry is a compact YYYYMMDDHHMMSS timestamp in UTC
	Expiry int64
	// RoleHashes is sorted and free of duplicates
	RoleHashes []int32
	Checksum   int32
}

// Mint creates a token that expires ttl from now. The credential is stored as its hash.
func Mint(username, credential, address string, ttl time.Duration, issuer int32, roles ...string) (*Token, error) {
	return mintAt(time.Now(), username, credential, address, ttl, issuer, roles...)
}

func mintAt(now time.Time, username, credential, address string, ttl time.Duration, issuer int32, roles ...string) (*Token, error) {
	if err := validateUsername(username); err != nil {
		return nil, err
	}
	t := &Token{
		Username:       username,
		CredentialHash: codec.Hash32(credential),
		Address:        strings.TrimSpace(address),
		AddressCode:    AddressCode(address),
		Issuer:         issuer,
		Expiry:         codec.CompactTimestamp(now.Add(ttl)),
	}
	t.SetRoles(roles...)
	t.Checksum = t.ComputeChecksum()
	return t, nil
}

func validateUsername(username string) error {
	if username == "" || strings.Contains(username, constants.SessionTokenSeparator) {
		return errors.ErrMalformed.WithMetadata("reason", "username")
	}
	return nil
}

// AddressCode reduces a client address to 32 bits. IPv4 addresses, including IPv4-mapped
// IPv6, are packed big-endian; anything else is hashed from its lower-case canonical text.
func AddressCode(address string) int32 {
	address = strings.TrimSpace(address)
	if ip, err := netip.ParseAddr(address); err == nil {
		ip = ip.Unmap()
		if ip.Is4() {
			b := ip.As4()
			return int32(binary.BigEndian.Uint32(b[:]))
		}
		address = ip.String()
	}
	return codec.Hash32(strings.ToLower(address))
}

// addressFromCode renders a code as dotted IPv4
func addressFromCode(code int32) string {
	var b [4]byte
	binary.BigEndian.PutUint32(b[:], uint32(code))
	return netip.AddrFrom4(b).String()
}

// ComputeChecksum hashes the token's fields in a fixed order
func (t *Token) ComputeChecksum() int32 {
	var sb strings.Builder
	sb.WriteString(t.Username)
	for _, v := range []int64{int64(t.CredentialHash), int64(t.AddressCode), t.Expiry, int64(t.Issuer)} {
		sb.WriteByte('|')
		sb.WriteString(strconv.FormatInt(v, 10))
	}
	for _, r := range t.RoleHashes {
		sb.WriteByte('|')
		sb.WriteString(strconv.FormatInt(int64(r), 10))
	}
	return codec.Hash32(sb.String())
}

// IsExpired reports whether the expiry lies before now
func (t *Token) IsExpired(now time.Time) bool {
	return t.Expiry < codec.CompactTimestamp(now)
}

// KeepAlive moves the expiry. The checksum is refreshed on the next Serialize.
func (t *Token) KeepAlive(expiry time.Time) {
	t.Expiry = codec.CompactTimestamp(expiry)
}

// ExpiresAt converts the compact expiry back to a time
func (t *Token) ExpiresAt() (time.Time, error) {
	return codec.ParseCompactTimestamp(t.Expiry)
}

// CheckAddress returns ErrAddressMismatch unless observed encodes to the bound address code
func (t *Token) CheckAddress(observed string) error {
	if AddressCode(observed) != t.AddressCode {
		return errors.ErrAddressMismatch
	}
	return nil
}

// SetRoles replaces the role set with the hashes of roles
func (t *Token) SetRoles(roles ...string) {
	t.RoleHashes = hashRoles(roles)
}

// InRole reports whether the token holds every one of allowed. A token without roles is
// unrestricted and passes any check.
func (t *Token) InRole(allowed ...string) bool {
	if len(t.RoleHashes) == 0 {
		return true
	}
	for _, h := range hashRoles(allowed) {
		if _, found := slices.BinarySearch(t.RoleHashes, h); !found {
			return false
		}
	}
	return true
}

func hashRoles(roles []string) []int32 {
	out := make([]int32, 0, len(roles))
	for _, r := range roles {
		out = append(out, codec.Hash32(r))
	}
	return normalizeRoles(out)
}

func normalizeRoles(hashes []int32) []int32 {
	slices.Sort(hashes)
	return slices.Compact(hashes)
}

// pack lays out [expiryHi, expiryLo, credential, issuer, address, checksum, roles...]
func (t *Token) pack() []int32 {
	out := make([]int32, 0, constants.SessionTokenMinNumbers+len(t.RoleHashes))
	out = append(out,
		int32(t.Expiry>>32),
		int32(t.Expiry),
		t.CredentialHash,
		t.Issuer,
		t.AddressCode,
		t.Checksum,
	)
	return append(out, t.RoleHashes...)
}

func unpack(username string, v []int32) (*Token, error) {
	if len(v) < constants.SessionTokenMinNumbers {
		return nil, errors.ErrMalformed.WithMetadata("reason", "too few fields")
	}
	roles := append([]int32(nil), v[constants.SessionTokenMinNumbers:]...)
	if !slices.IsSorted(roles) || len(slices.Compact(slices.Clone(roles))) != len(roles) {
		return nil, errors.ErrMalformed.WithMetadata("reason", "role order")
	}
	return &Token{
		Username:       username,
		Expiry:         int64(v[0])<<32 | int64(uint32(v[1])),
		CredentialHash: v[2],
		Issuer:         v[3],
		AddressCode:    v[4],
		Address:        addressFromCode(v[4]),
		Checksum:       v[5],
		RoleHashes:     roles,
	}, nil
}
