package jwtoken

import (
	"context"
	"crypto/ecdsa"
	"crypto/rsa"
	"slices"
	"time"

	"github.com/turtacn/tokenkit/pkg/constants"
	"github.com/turtacn/tokenkit/pkg/errors"
	"github.com/turtacn/tokenkit/pkg/logger"
	"github.com/turtacn/tokenkit/pkg/metrics"
)

// Denylist records revoked token ids until their expiry
type Denylist interface {
	Revoke(ctx context.Context, jti string, until time.Time) error
	IsRevoked(ctx context.Context, jti string) (bool, error)
}

// Validator checks signature, time claims, issuer, audience and revocation in one call.
// Unlike Token.Verify it pins the accepted algorithms to the key's family, so a public key
// can never be replayed as an HMAC secret.
type Validator struct {
	key     any
	allowed []Algorithm
	cfg     settings
}

// NewValidator creates a validator for key (a secret, an RSA or ECDSA key, or PEM text)
func NewValidator(key any, opts ...Option) (*Validator, error) {
	cfg := newSettings(opts)
	cfg.log = cfg.log.WithComponent(constants.ComponentJWT)

	if isPEM(key) {
		parsed, err := asymmetricKey(key)
		if err != nil {
			return nil, err
		}
		key = parsed
	}
	family, err := keyFamily(key)
	if err != nil {
		return nil, err
	}

	allowed := cfg.algs
	if len(allowed) == 0 {
		for alg, f := range families {
			if f == family {
				allowed = append(allowed, alg)
			}
		}
		slices.Sort(allowed)
	}
	for _, alg := range allowed {
		if alg.Family() != family {
			return nil, errors.ErrInvalidKey.WithMetadata("algorithm", string(alg))
		}
	}

	return &Validator{key: key, allowed: allowed, cfg: cfg}, nil
}

func keyFamily(key any) (Family, error) {
	switch k := key.(type) {
	case []byte:
		if len(k) > 0 {
			return FamilyHMAC, nil
		}
	case string:
		if k != "" {
			return FamilyHMAC, nil
		}
	case *rsa.PrivateKey, *rsa.PublicKey:
		return FamilyRSA, nil
	case *ecdsa.PrivateKey, *ecdsa.PublicKey:
		return FamilyECDSA, nil
	}
	return FamilyUnknown, errors.ErrInvalidKey.WithMetadata("reason", "unsupported key type")
}

// Validate decodes and checks raw. exp and nbf are read in seconds with the configured leeway.
func (v *Validator) Validate(ctx context.Context, raw string) (t *Token, err error) {
	start := time.Now()
	ctx, span := metrics.StartSpan(ctx, constants.ComponentJWT, "validate")
	defer func() {
		metrics.EndSpan(span, err)
		result := constants.ResultSuccess
		if err != nil {
			result = constants.ResultRejected
			v.cfg.log.Debug(ctx, "token rejected",
				logger.String("code", string(errors.CodeOf(err))),
				logger.Error(errors.Cause(err)),
			)
		}
		v.cfg.rec.ObserveOperation(constants.ComponentJWT, "validate", result, time.Since(start))
	}()

	if len(raw) > constants.JWTMaxSize {
		return nil, errors.ErrTokenTooLarge.WithMetadata("size", len(raw))
	}
	t = Decode(raw)
	if t == nil {
		return nil, errors.ErrTokenMalformed
	}
	if !slices.Contains(v.allowed, t.Algorithm()) {
		return nil, errors.ErrJWTUnsupported.WithMetadata("algorithm", string(t.Algorithm()))
	}
	if !t.Verify(v.key) {
		return nil, errors.ErrSignatureInvalid
	}

	now := v.cfg.now()
	if t.ExpiresBefore(now.Add(-v.cfg.leeway)) {
		return nil, errors.ErrTokenExpired
	}
	if t.NotBeforeAfter(now.Add(v.cfg.leeway)) {
		return nil, errors.ErrTokenNotYetValid
	}
	if v.cfg.issuer != "" && t.Issuer() != v.cfg.issuer {
		return nil, errors.ErrClaimMismatch.WithMetadata("claim", constants.ClaimKeyIssuer)
	}
	if v.cfg.audience != "" && !slices.Contains(t.Audience(), v.cfg.audience) {
		return nil, errors.ErrClaimMismatch.WithMetadata("claim", constants.ClaimKeyAudience)
	}

	if jti := t.ID(); jti != "" && v.cfg.denylist != nil {
		revoked, err := v.cfg.denylist.IsRevoked(ctx, jti)
		if err != nil {
			v.cfg.log.Error(ctx, "deny-list lookup failed", err)
			return nil, errors.Wrap(err, errors.ErrDenylistFailure)
		}
		if revoked {
			return nil, errors.ErrTokenRevoked
		}
	}
	return t, nil
}

// Revoke adds the token's jti to the deny-list until the token expires, or for the default
// token lifetime when it has no exp.
func (v *Validator) Revoke(ctx context.Context, t *Token) error {
	if v.cfg.denylist == nil {
		return errors.ErrDenylistFailure.WithMetadata("reason", "not configured")
	}
	if t == nil || t.ID() == "" {
		return errors.ErrTokenMalformed.WithMetadata("reason", "missing jti")
	}

	until, ok := t.ExpiresAt()
	if !ok {
		until = v.cfg.now().Add(constants.JWTDefaultTTL)
	}
	if err := v.cfg.denylist.Revoke(ctx, t.ID(), until); err != nil {
		return errors.Wrap(err, errors.ErrDenylistFailure)
	}
	v.cfg.log.Info(ctx, "token revoked", logger.String("jti", t.ID()), logger.Any("until", until))
	return nil
}
