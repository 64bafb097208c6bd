package jwtoken

import (
	"context"
	stderrors "errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/tokenkit/pkg/errors"
	"github.com/turtacn/tokenkit/pkg/keys"
	"github.com/turtacn/tokenkit/pkg/logger"
)

type mapDenylist struct {
	mu      sync.Mutex
	entries map[string]time.Time
	err     error
}

func (m *mapDenylist) Revoke(_ context.Context, jti string, until time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.entries == nil {
		m.entries = map[string]time.Time{}
	}
	m.entries[jti] = until
	return m.err
}

func (m *mapDenylist) IsRevoked(_ context.Context, jti string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return false, m.err
	}
	_, ok := m.entries[jti]
	return ok, nil
}

func newTestValidator(t *testing.T, key any, now *time.Time, opts ...Option) *Validator {
	t.Helper()
	base := []Option{
		WithLogger(logger.NewNoopLogger()),
		WithClock(func() time.Time { return *now }),
	}
	v, err := NewValidator(key, append(base, opts...)...)
	require.NoError(t, err)
	return v
}

func TestValidator_Accepts(t *testing.T) {
	now := buildNow
	v := newTestValidator(t, "s", &now, WithIssuer("tokenkit"), WithAudience("api"))

	token, err := newTestBuilder().Signer(hs256(t, "s")).Issuer("tokenkit").Audience("api", "web").Build("x")
	require.NoError(t, err)

	decoded, err := v.Validate(context.Background(), token)
	require.NoError(t, err)
	assert.Equal(t, "tokenkit", decoded.Issuer())
}

func TestValidator_Rejects(t *testing.T) {
	now := buildNow
	b := func() *Builder { return newTestBuilder().Signer(hs256(t, "s")) }

	valid, err := b().Build("x")
	require.NoError(t, err)
	early, err := b().NotBefore(buildNow.Add(time.Hour)).Build("x")
	require.NoError(t, err)
	otherIssuer, err := b().Issuer("someone").Build("x")
	require.NoError(t, err)
	otherKey, err := newTestBuilder().Signer(hs256(t, "other")).Build("x")
	require.NoError(t, err)

	tests := []struct {
		name  string
		token string
		opts  []Option
		at    time.Time
		want  error
	}{
		{"malformed", "a.b", nil, buildNow, errors.ErrTokenMalformed},
		{"too large", string(make([]byte, 2000)), nil, buildNow, errors.ErrTokenTooLarge},
		{"bad signature", otherKey, nil, buildNow, errors.ErrSignatureInvalid},
		{"expired", valid, nil, buildNow.Add(2 * time.Hour), errors.ErrTokenExpired},
		{"not yet valid", early, nil, buildNow, errors.ErrTokenNotYetValid},
		{"issuer", otherIssuer, []Option{WithIssuer("tokenkit")}, buildNow, errors.ErrClaimMismatch},
		{"audience", valid, []Option{WithAudience("api")}, buildNow, errors.ErrClaimMismatch},
		{"algorithm not allowed", valid, []Option{WithAlgorithms(HS512)}, buildNow, errors.ErrJWTUnsupported},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			now = tt.at
			v := newTestValidator(t, "s", &now, tt.opts...)
			_, err := v.Validate(context.Background(), tt.token)
			assert.True(t, errors.Is(err, tt.want), "got %v", err)
		})
	}
}

func TestValidator_Leeway(t *testing.T) {
	now := buildNow.Add(time.Hour + 30*time.Second)
	token, err := newTestBuilder().Signer(hs256(t, "s")).Build("x")
	require.NoError(t, err)

	_, err = newTestValidator(t, "s", &now).Validate(context.Background(), token)
	assert.True(t, errors.Is(err, errors.ErrTokenExpired))

	_, err = newTestValidator(t, "s", &now, WithLeeway(time.Minute)).Validate(context.Background(), token)
	assert.NoError(t, err)
}

func TestValidator_Revoke(t *testing.T) {
	now := buildNow
	deny := &mapDenylist{}
	v := newTestValidator(t, "s", &now, WithDenylist(deny))
	ctx := context.Background()

	token, err := newTestBuilder().Signer(hs256(t, "s")).WithJTI(true).Build("x")
	require.NoError(t, err)

	decoded, err := v.Validate(ctx, token)
	require.NoError(t, err)
	require.NoError(t, v.Revoke(ctx, decoded))
	assert.Equal(t, buildNow.Add(time.Hour).Unix(), deny.entries[decoded.ID()].Unix())

	_, err = v.Validate(ctx, token)
	assert.True(t, errors.Is(err, errors.ErrTokenRevoked))

	noJTI, err := newTestBuilder().Signer(hs256(t, "s")).Build("x")
	require.NoError(t, err)
	assert.True(t, errors.Is(v.Revoke(ctx, Decode(noJTI)), errors.ErrTokenMalformed))

	plain := newTestValidator(t, "s", &now)
	assert.True(t, errors.Is(plain.Revoke(ctx, decoded), errors.ErrDenylistFailure))
}

func TestValidator_DenylistFailureRejects(t *testing.T) {
	now := buildNow
	deny := &mapDenylist{err: stderrors.New("connection refused")}
	v := newTestValidator(t, "s", &now, WithDenylist(deny))

	token, err := newTestBuilder().Signer(hs256(t, "s")).WithJTI(true).Build("x")
	require.NoError(t, err)

	_, err = v.Validate(context.Background(), token)
	assert.True(t, errors.Is(err, errors.ErrDenylistFailure))
}

func TestValidator_PublicKeyIsNotAnHMACSecret(t *testing.T) {
	now := buildNow
	k := testRSAKey(t)
	pubPEM, err := keys.EncodePublicKeyPEM(&k.PublicKey)
	require.NoError(t, err)

	forged, err := newTestBuilder().Signer(hs256(t, pubPEM)).Build("x")
	require.NoError(t, err)
	assert.True(t, Decode(forged).Verify(pubPEM), "Verify trusts the header algorithm")

	v := newTestValidator(t, pubPEM, &now)
	_, err = v.Validate(context.Background(), forged)
	assert.True(t, errors.Is(err, errors.ErrJWTUnsupported))

	rs, err := NewRsaSigner(RS256, k)
	require.NoError(t, err)
	genuine, err := newTestBuilder().Signer(rs).Build("x")
	require.NoError(t, err)
	_, err = v.Validate(context.Background(), genuine)
	assert.NoError(t, err)
}

func TestNewValidator_Errors(t *testing.T) {
	_, err := NewValidator("")
	assert.True(t, errors.Is(err, errors.ErrInvalidKey))
	_, err = NewValidator(42)
	assert.True(t, errors.Is(err, errors.ErrInvalidKey))
	_, err = NewValidator("s", WithAlgorithms(RS256))
	assert.True(t, errors.Is(err, errors.ErrInvalidKey))
	_, err = NewValidator("-----BEGIN PUBLIC KEY-----\nAAAA\n-----END PUBLIC KEY-----\n")
	assert.True(t, errors.Is(err, errors.ErrInvalidKey))
}
