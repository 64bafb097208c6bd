package jwtoken

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/turtacn/tokenkit/pkg/constants"
	"github.com/turtacn/tokenkit/pkg/errors"
	"github.com/turtacn/tokenkit/pkg/logger"
)

var segment = base64.RawURLEncoding

type header struct {
	Type      string    `json:"typ"`
	Algorithm Algorithm `json:"alg"`
}

// claimSet fixes the claim order; optional claims are omitted unless configured
type claimSet struct {
	Version   int             `json:"v"`
	IssuedAt  int64           `json:"iat"`
	ExpiresAt int64           `json:"exp,omitempty"`
	NotBefore int64           `json:"nbf,omitempty"`
	ID        string          `json:"jti,omitempty"`
	Issuer    string          `json:"iss,omitempty"`
	Audience  any             `json:"aud,omitempty"`
	Subject   string          `json:"sub,omitempty"`
	Data      json.RawMessage `json:"d,omitempty"`
}

// Builder accumulates claims and signs tokens. A Builder is not safe for concurrent
// configuration; Build itself does not modify it.
type Builder struct {
	signer    Signer
	expires   time.Time
	expiresIn time.Duration
	notBefore time.Time
	issuer    string
	subject   string
	audience  []string
	jti       bool
	cfg       settings
}

// NewBuilder creates a builder that signs with DefaultSigner and expires tokens after an hour
func NewBuilder(opts ...Option) *Builder {
	b := &Builder{cfg: newSettings(opts)}
	b.cfg.log = b.cfg.log.WithComponent(constants.ComponentJWT)
	return b
}

// Signer sets the signer
func (b *Builder) Signer(s Signer) *Builder {
	b.signer = s
	return b
}

// Expires sets an absolute expiry
func (b *Builder) Expires(t time.Time) *Builder {
	b.expires, b.expiresIn = t, 0
	return b
}

// ExpiresIn sets the expiry relative to the build time
func (b *Builder) ExpiresIn(d time.Duration) *Builder {
	b.expires, b.expiresIn = time.Time{}, d
	return b
}

func (b *Builder) NotBefore(t time.Time) *Builder {
	b.notBefore = t
	return b
}

func (b *Builder) Issuer(issuer string) *Builder {
	b.issuer = issuer
	return b
}

// Audience sets aud. A single value is encoded as a string, several as an array.
func (b *Builder) Audience(audience ...string) *Builder {
	b.audience = append([]string(nil), audience...)
	return b
}

func (b *Builder) Subject(subject string) *Builder {
	b.subject = subject
	return b
}

// WithJTI adds a random UUID as jti
func (b *Builder) WithJTI(on bool) *Builder {
	b.jti = on
	return b
}

func (b *Builder) configured() bool {
	return b.issuer != "" || b.subject != "" || len(b.audience) > 0 || b.jti ||
		!b.notBefore.IsZero() || !b.expires.IsZero() || b.expiresIn != 0
}

// Build signs payload, which is nested under the "d" claim. An empty payload is only
// accepted when at least one claim was configured.
func (b *Builder) Build(payload any) (token string, err error) {
	start := time.Now()
	defer func() {
		result := constants.ResultSuccess
		if err != nil {
			result = constants.ResultFailure
			b.cfg.log.Debug(context.Background(), "token build failed",
				logger.String("code", string(errors.CodeOf(err))),
				logger.Error(errors.Cause(err)),
			)
		}
		b.cfg.rec.ObserveOperation(constants.ComponentJWT, "build", result, time.Since(start))
	}()

	data, err := marshalPayload(payload)
	if err != nil {
		return "", err
	}
	if data == nil && !b.configured() {
		return "", errors.ErrInvalidPayload
	}

	signer := b.signer
	if signer == nil {
		signer = DefaultSigner()
	}

	now := b.cfg.now()
	claims := claimSet{
		Version:   constants.JWTVersion,
		Data:      data,
		Issuer:    b.issuer,
		Subject:   b.subject,
		ExpiresAt: b.expiry(now).Unix(),
		IssuedAt:  now.Unix(),
	}
	switch len(b.audience) {
	case 0:
	case 1:
		claims.Audience = b.audience[0]
	default:
		claims.Audience = b.audience
	}
	if !b.notBefore.IsZero() {
		claims.NotBefore = b.notBefore.Unix()
	}
	if b.jti {
		claims.ID = uuid.NewString()
	}

	return encode(signer, claims)
}

func (b *Builder) expiry(now time.Time) time.Time {
	switch {
	case !b.expires.IsZero():
		return b.expires
	case b.expiresIn != 0:
		return now.Add(b.expiresIn)
	}
	return now.Add(constants.JWTDefaultTTL)
}

// marshalPayload returns nil for payloads that encode to nothing meaningful
func marshalPayload(payload any) (json.RawMessage, error) {
	if payload == nil {
		return nil, nil
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrInvalidPayload)
	}
	switch string(bytes.TrimSpace(raw)) {
	case "null", `""`, "{}", "[]":
		return nil, nil
	}
	return raw, nil
}

func encode(signer Signer, claims claimSet) (string, error) {
	h, err := json.Marshal(header{Type: constants.JWTType, Algorithm: signer.Algorithm()})
	if err != nil {
		return "", errors.Wrap(err, errors.ErrInvalidPayload)
	}
	c, err := json.Marshal(claims)
	if err != nil {
		return "", errors.Wrap(err, errors.ErrInvalidPayload)
	}

	input := segment.EncodeToString(h) + "." + segment.EncodeToString(c)
	sig, err := signer.Sign([]byte(input))
	if err != nil {
		return "", err
	}

	token := input + "." + segment.EncodeToString(sig)
	if len(token) > constants.JWTMaxSize {
		return "", errors.ErrTokenTooLarge.WithMetadata("size", len(token))
	}
	return token, nil
}
