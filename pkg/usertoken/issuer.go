package usertoken

import (
	"context"
	"strings"
	"time"

	"github.com/turtacn/tokenkit/pkg/codec"
	"github.com/turtacn/tokenkit/pkg/constants"
	"github.com/turtacn/tokenkit/pkg/crypt"
	"github.com/turtacn/tokenkit/pkg/errors"
	"github.com/turtacn/tokenkit/pkg/logger"
	"github.com/turtacn/tokenkit/pkg/metrics"
)

// Issuer serializes and verifies tokens with one cipher
type Issuer struct {
	cipher *crypt.Cipher
	log    logger.Logger
	rec    metrics.Recorder
	now    func() time.Time
}

// Option configures an Issuer
type Option func(*Issuer)

// WithCipher sets the cipher; the default is AES from the process-wide crypt provider
func WithCipher(c *crypt.Cipher) Option {
	return func(i *Issuer) { i.cipher = c }
}

// WithLogger sets the logger
func WithLogger(l logger.Logger) Option {
	return func(i *Issuer) { i.log = l }
}

// WithRecorder sets the metrics recorder
func WithRecorder(r metrics.Recorder) Option {
	return func(i *Issuer) { i.rec = r }
}

// WithClock overrides time.Now
func WithClock(now func() time.Time) Option {
	return func(i *Issuer) { i.now = now }
}

// NewIssuer creates an issuer
func NewIssuer(opts ...Option) (*Issuer, error) {
	i := &Issuer{
		log: logger.Default(),
		rec: metrics.NewNoopRecorder(),
		now: time.Now,
	}
	for _, opt := range opts {
		opt(i)
	}
	if i.cipher == nil {
		c, err := crypt.Create(crypt.AES)
		if err != nil {
			return nil, err
		}
		i.cipher = c
	}
	i.log = i.log.WithComponent(constants.ComponentUserToken)
	return i, nil
}

// Mint creates a token expiring ttl after the issuer's clock
func (i *Issuer) Mint(username, credential, address string, ttl time.Duration, issuer int32, roles ...string) (*Token, error) {
	return mintAt(i.now(), username, credential, address, ttl, issuer, roles...)
}

// Serialize encrypts "{username}/{packed fields}". With recompute the checksum is refreshed
// from the current fields first, which is required after any mutation.
func (i *Issuer) Serialize(t *Token, recompute bool) (s string, err error) {
	defer i.observe("serialize", time.Now(), &err)

	if t == nil {
		return "", errors.ErrMalformed
	}
	if err := validateUsername(t.Username); err != nil {
		return "", err
	}
	t.RoleHashes = normalizeRoles(t.RoleHashes)
	if recompute {
		t.Checksum = t.ComputeChecksum()
	}

	plain := t.Username + constants.SessionTokenSeparator + codec.EncodeNumbers(t.pack())
	return i.cipher.EncryptString(plain)
}

// Parse decrypts and verifies a token. Failures are ErrMalformed, ErrChecksumMismatch or
// ErrExpired; the detailed reason is only logged.
func (i *Issuer) Parse(s string) (t *Token, err error) {
	defer i.observe("parse", time.Now(), &err)

	t, err = i.parse(s)
	if err != nil {
		i.log.Debug(context.Background(), "session token rejected",
			logger.String("code", string(errors.CodeOf(err))),
			logger.Error(errors.Cause(err)),
		)
		return nil, err
	}
	return t, nil
}

func (i *Issuer) parse(s string) (*Token, error) {
	plain, err := i.cipher.DecryptString(strings.TrimSpace(s))
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrMalformed)
	}

	parts := strings.Split(plain, constants.SessionTokenSeparator)
	if len(parts) != 2 || parts[0] == "" {
		return nil, errors.ErrMalformed.WithMetadata("reason", "shape")
	}
	numbers, err := codec.DecodeNumbers(parts[1])
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrMalformed)
	}
	t, err := unpack(parts[0], numbers)
	if err != nil {
		return nil, err
	}

	if t.ComputeChecksum() != t.Checksum {
		return nil, errors.ErrChecksumMismatch
	}
	if t.IsExpired(i.now()) {
		return nil, errors.ErrExpired.WithMetadata("expiry", t.Expiry)
	}
	return t, nil
}

// ParseAndBind parses s and requires it to be bound to observed. An address mismatch is
// not an error: it yields (nil, false, nil) and a warning in the log.
func (i *Issuer) ParseAndBind(s, observed string) (*Token, bool, error) {
	t, err := i.Parse(s)
	if err != nil {
		return nil, false, err
	}

	start := time.Now()
	if err := t.CheckAddress(observed); err != nil {
		i.log.Warn(context.Background(), "session token presented from another address",
			logger.String("username", t.Username),
			logger.String("bound_address", t.Address),
			logger.String("observed_address", observed),
		)
		i.rec.ObserveOperation(constants.ComponentUserToken, "bind", constants.ResultRejected, time.Since(start))
		return nil, false, nil
	}
	i.rec.ObserveOperation(constants.ComponentUserToken, "bind", constants.ResultSuccess, time.Since(start))
	return t, true, nil
}

// Refresh parses s, extends its expiry to ttl from now and serializes it again
func (i *Issuer) Refresh(s string, ttl time.Duration) (string, error) {
	t, err := i.Parse(s)
	if err != nil {
		return "", err
	}
	t.KeepAlive(i.now().Add(ttl))
	return i.Serialize(t, true)
}

func (i *Issuer) observe(operation string, start time.Time, err *error) {
	result := constants.ResultSuccess
	if *err != nil {
		result = constants.ResultFailure
	}
	i.rec.ObserveOperation(constants.ComponentUserToken, operation, result, time.Since(start))
}
