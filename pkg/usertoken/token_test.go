package usertoken

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/tokenkit/pkg/crypt"
	"github.com/turtacn/tokenkit/pkg/errors"
	"github.com/turtacn/tokenkit/pkg/logger"
)

var testNow = time.Date(2024, 3, 15, 10, 30, 0, 0, time.UTC)

type recordedOp struct {
	operation string
	result    string
}

type fakeRecorder struct {
	ops []recordedOp
}

func (f *fakeRecorder) ObserveOperation(component, operation, result string, d time.Duration) {
	f.ops = append(f.ops, recordedOp{operation: operation, result: result})
}

func newTestIssuer(t *testing.T, opts ...Option) *Issuer {
	t.Helper()
	ctx, err := crypt.NewSymmetricContext(crypt.AES, "session-secret", "")
	require.NoError(t, err)

	base := []Option{
		WithCipher(crypt.NewCipher(ctx)),
		WithLogger(logger.NewNoopLogger()),
		WithClock(func() time.Time { return testNow }),
	}
	i, err := NewIssuer(append(base, opts...)...)
	require.NoError(t, err)
	return i
}

func mintHoge(t *testing.T, i *Issuer, roles ...string) *Token {
	t.Helper()
	tok, err := i.Mint("Hoge", "password", "192.168.1.100", 30*time.Minute, 7, roles...)
	require.NoError(t, err)
	return tok
}

// ================================================================================
// Token
// ================================================================================

func TestAddressCode(t *testing.T) {
	assert.Equal(t, int32(-1062731420), AddressCode("192.168.1.100"))
	assert.Equal(t, AddressCode("192.168.1.100"), AddressCode(" 192.168.1.100 "))
	assert.Equal(t, AddressCode("10.0.0.1"), AddressCode("::ffff:10.0.0.1"))
	assert.Equal(t, AddressCode("2001:DB8::1"), AddressCode("2001:db8:0:0::1"))
	assert.Equal(t, AddressCode("Gateway.Local"), AddressCode("gateway.local"))
	assert.NotEqual(t, AddressCode("192.168.1.100"), AddressCode("192.168.1.200"))

	assert.Equal(t, "192.168.1.100", addressFromCode(AddressCode("192.168.1.100")))
	assert.Equal(t, "0.0.0.0", addressFromCode(0))
}

func TestMint(t *testing.T) {
	i := newTestIssuer(t)
	tok := mintHoge(t, i, "user", "admin", "user")

	assert.Equal(t, "Hoge", tok.Username)
	assert.Equal(t, int32(1216985755), tok.CredentialHash)
	assert.Equal(t, int64(20240315110000), tok.Expiry)
	assert.Equal(t, int32(7), tok.Issuer)
	assert.Len(t, tok.RoleHashes, 2)
	assert.True(t, tok.RoleHashes[0] < tok.RoleHashes[1])
	assert.Equal(t, tok.ComputeChecksum(), tok.Checksum)

	_, err := i.Mint("a/b", "password", "127.0.0.1", time.Minute, 0)
	assert.True(t, errors.Is(err, errors.ErrMalformed))

	_, err = Mint("", "password", "127.0.0.1", time.Minute, 0)
	assert.True(t, errors.Is(err, errors.ErrMalformed))
}

func TestToken_Expiry(t *testing.T) {
	tok := &Token{}
	tok.KeepAlive(testNow)

	assert.False(t, tok.IsExpired(testNow))
	assert.False(t, tok.IsExpired(testNow.Add(-time.Hour)))
	assert.True(t, tok.IsExpired(testNow.Add(time.Second)))

	at, err := tok.ExpiresAt()
	require.NoError(t, err)
	assert.True(t, at.Equal(testNow))
}

func TestToken_InRole(t *testing.T) {
	tok := &Token{}
	assert.True(t, tok.InRole("anything"), "a token without roles is unrestricted")

	tok.SetRoles("admin", "user")
	assert.True(t, tok.InRole())
	assert.True(t, tok.InRole("admin"))
	assert.True(t, tok.InRole("user", "admin"))
	assert.False(t, tok.InRole("root"))
	assert.False(t, tok.InRole("admin", "root"))
}

func TestToken_ChecksumCoversEveryField(t *testing.T) {
	base := Token{Username: "Hoge", CredentialHash: 1, AddressCode: 2, Expiry: 20240101000000, Issuer: 3, RoleHashes: []int32{4, 5}}
	sum := base.ComputeChecksum()

	mutations := map[string]func(*Token){
		"username":   func(t *Token) { t.Username = "hoge" },
		"credential": func(t *Token) { t.CredentialHash++ },
		"address":    func(t *Token) { t.AddressCode++ },
		"expiry":     func(t *Token) { t.Expiry++ },
		"issuer":     func(t *Token) { t.Issuer++ },
		"roles":      func(t *Token) { t.RoleHashes = []int32{4} },
	}
	for name, mutate := range mutations {
		t.Run(name, func(t *testing.T) {
			tok := base
			tok.RoleHashes = append([]int32(nil), base.RoleHashes...)
			mutate(&tok)
			assert.NotEqual(t, sum, tok.ComputeChecksum())
		})
	}
}

func TestPackUnpack(t *testing.T) {
	tok := &Token{
		Username:       "Hoge",
		CredentialHash: -5,
		AddressCode:    AddressCode("10.1.2.3"),
		Expiry:         99991231235959,
		Issuer:         -1,
		RoleHashes:     []int32{-9, 3},
	}
	tok.Checksum = tok.ComputeChecksum()

	got, err := unpack("Hoge", tok.pack())
	require.NoError(t, err)
	assert.Equal(t, tok.Expiry, got.Expiry)
	assert.Equal(t, "10.1.2.3", got.Address)
	tok.Address = got.Address
	assert.Equal(t, tok, got)

	_, err = unpack("Hoge", []int32{1, 2, 3})
	assert.True(t, errors.Is(err, errors.ErrMalformed))

	_, err = unpack("Hoge", []int32{1, 2, 3, 4, 5, 6, 9, 3})
	assert.True(t, errors.Is(err, errors.ErrMalformed))
}

// ================================================================================
// Issuer
// ================================================================================

func TestIssuer_RoundTrip(t *testing.T) {
	i := newTestIssuer(t)
	tok := mintHoge(t, i, "admin")

	s, err := i.Serialize(tok, false)
	require.NoError(t, err)
	assert.NotContains(t, s, "Hoge")

	got, err := i.Parse(s)
	require.NoError(t, err)
	assert.Equal(t, tok.Username, got.Username)
	assert.Equal(t, tok.CredentialHash, got.CredentialHash)
	assert.Equal(t, "192.168.1.100", got.Address)
	assert.Equal(t, tok.Expiry, got.Expiry)
	assert.Equal(t, tok.RoleHashes, got.RoleHashes)
	assert.True(t, got.InRole("admin"))
}

func TestIssuer_ParseAndBind(t *testing.T) {
	rec := &fakeRecorder{}
	i := newTestIssuer(t, WithRecorder(rec))
	s, err := i.Serialize(mintHoge(t, i), true)
	require.NoError(t, err)

	tok, ok, err := i.ParseAndBind(s, "192.168.1.100")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "Hoge", tok.Username)

	tok, ok, err = i.ParseAndBind(s, "192.168.1.200")
	assert.NoError(t, err)
	assert.False(t, ok)
	assert.Nil(t, tok)

	assert.Contains(t, rec.ops, recordedOp{operation: "bind", result: "rejected"})
}

func TestToken_CheckAddress(t *testing.T) {
	tok := mintHoge(t, newTestIssuer(t))

	assert.NoError(t, tok.CheckAddress("192.168.1.100"))
	assert.NoError(t, tok.CheckAddress("::ffff:192.168.1.100"))
	assert.True(t, errors.Is(tok.CheckAddress("192.168.1.200"), errors.ErrAddressMismatch))
}

func TestIssuer_MutationWithoutRecompute(t *testing.T) {
	i := newTestIssuer(t)
	tok := mintHoge(t, i)
	tok.SetRoles("admin")

	s, err := i.Serialize(tok, false)
	require.NoError(t, err)
	_, err = i.Parse(s)
	assert.True(t, errors.Is(err, errors.ErrChecksumMismatch))

	s, err = i.Serialize(tok, true)
	require.NoError(t, err)
	got, err := i.Parse(s)
	require.NoError(t, err)
	assert.True(t, got.InRole("admin"))
}

func TestIssuer_Tampered(t *testing.T) {
	i := newTestIssuer(t)
	s, err := i.Serialize(mintHoge(t, i), true)
	require.NoError(t, err)

	const b64 = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789+/"
	for pos := 0; pos < len(s); pos++ {
		b := []byte(s)
		idx := strings.IndexByte(b64, b[pos])
		if idx < 0 {
			b[pos] = 'A'
		} else {
			b[pos] = b64[(idx+1)%len(b64)]
		}

		_, err := i.Parse(string(b))
		require.Error(t, err, "position %d", pos)
		assert.True(t, errors.Is(err, errors.ErrMalformed) || errors.Is(err, errors.ErrChecksumMismatch),
			"position %d: %v", pos, err)
	}
}

func TestIssuer_Garbage(t *testing.T) {
	i := newTestIssuer(t)

	for _, s := range []string{"", "not base64!", "AAAA", "aGVsbG8gd29ybGQ="} {
		_, err := i.Parse(s)
		assert.True(t, errors.Is(err, errors.ErrMalformed), "input %q", s)
	}

	// well-formed ciphertext whose plaintext lacks the separator
	enc, err := i.cipher.EncryptString("no-separator-here")
	require.NoError(t, err)
	_, err = i.Parse(enc)
	assert.True(t, errors.Is(err, errors.ErrMalformed))

	enc, err = i.cipher.EncryptString("Hoge/!!!")
	require.NoError(t, err)
	_, err = i.Parse(enc)
	assert.True(t, errors.Is(err, errors.ErrMalformed))
}

func TestIssuer_Expired(t *testing.T) {
	now := testNow
	i := newTestIssuer(t, WithClock(func() time.Time { return now }))
	s, err := i.Serialize(mintHoge(t, i), true)
	require.NoError(t, err)

	now = testNow.Add(30 * time.Minute)
	_, err = i.Parse(s)
	assert.NoError(t, err)

	now = testNow.Add(31 * time.Minute)
	_, err = i.Parse(s)
	assert.True(t, errors.Is(err, errors.ErrExpired))

	_, ok, err := i.ParseAndBind(s, "192.168.1.100")
	assert.False(t, ok)
	assert.True(t, errors.Is(err, errors.ErrExpired))
}

func TestIssuer_Refresh(t *testing.T) {
	now := testNow
	i := newTestIssuer(t, WithClock(func() time.Time { return now }))
	s, err := i.Serialize(mintHoge(t, i), true)
	require.NoError(t, err)

	now = testNow.Add(20 * time.Minute)
	refreshed, err := i.Refresh(s, 30*time.Minute)
	require.NoError(t, err)

	now = testNow.Add(45 * time.Minute)
	_, err = i.Parse(s)
	assert.True(t, errors.Is(err, errors.ErrExpired))

	tok, err := i.Parse(refreshed)
	require.NoError(t, err)
	assert.Equal(t, int64(20240315112000), tok.Expiry)
}

func TestIssuer_DifferentKeyRejects(t *testing.T) {
	i := newTestIssuer(t)
	s, err := i.Serialize(mintHoge(t, i), true)
	require.NoError(t, err)

	ctx, err := crypt.NewSymmetricContext(crypt.AES, "another-secret", "")
	require.NoError(t, err)
	other := newTestIssuer(t, WithCipher(crypt.NewCipher(ctx)))

	_, err = other.Parse(s)
	assert.True(t, errors.Is(err, errors.ErrMalformed) || errors.Is(err, errors.ErrChecksumMismatch))
}

func TestIssuer_SerializeRejectsSeparator(t *testing.T) {
	i := newTestIssuer(t)
	tok := mintHoge(t, i)
	tok.Username = "Ho/ge"

	_, err := i.Serialize(tok, true)
	assert.True(t, errors.Is(err, errors.ErrMalformed))

	_, err = i.Serialize(nil, true)
	assert.True(t, errors.Is(err, errors.ErrMalformed))
}

func TestNewIssuer_DefaultCipher(t *testing.T) {
	crypt.SetDefault(crypt.NewProvider(crypt.WithSource(crypt.StaticSource{}), crypt.WithLogger(logger.NewNoopLogger())))

	i, err := NewIssuer(WithLogger(logger.NewNoopLogger()))
	require.NoError(t, err)
	assert.Equal(t, crypt.AES, i.cipher.Algorithm())

	tok, err := i.Mint("Hoge", "password", "127.0.0.1", time.Minute, 0)
	require.NoError(t, err)
	s, err := i.Serialize(tok, true)
	require.NoError(t, err)
	_, err = i.Parse(s)
	assert.NoError(t, err)
}
