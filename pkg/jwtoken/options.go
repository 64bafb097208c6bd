package jwtoken

import (
	"time"

	"github.com/turtacn/tokenkit/pkg/logger"
	"github.com/turtacn/tokenkit/pkg/metrics"
)

type settings struct {
	log      logger.Logger
	rec      metrics.Recorder
	now      func() time.Time
	denylist Denylist
	leeway   time.Duration
	issuer   string
	audience string
	algs     []Algorithm
}

func newSettings(opts []Option) settings {
	s := settings{
		log: logger.Default(),
		rec: metrics.NewNoopRecorder(),
		now: time.Now,
	}
	for _, opt := range opts {
		opt(&s)
	}
	return s
}

// Option configures a Builder or a Validator. Validation options are ignored by builders.
type Option func(*settings)

// WithLogger sets the logger
func WithLogger(l logger.Logger) Option {
	return func(s *settings) { s.log = l }
}

// WithRecorder sets the metrics recorder
func WithRecorder(r metrics.Recorder) Option {
	return func(s *settings) { s.rec = r }
}

// WithClock overrides time.Now
func WithClock(now func() time.Time) Option {
	return func(s *settings) { s.now = now }
}

// WithDenylist makes the validator reject revoked jti values
func WithDenylist(d Denylist) Option {
	return func(s *settings) { s.denylist = d }
}

// WithLeeway tolerates clock skew on exp and nbf
func WithLeeway(d time.Duration) Option {
	return func(s *settings) { s.leeway = d }
}

// WithIssuer requires the iss claim to equal issuer
func WithIssuer(issuer string) Option {
	return func(s *settings) { s.issuer = issuer }
}

// WithAudience requires audience among the aud claim values
func WithAudience(audience string) Option {
	return func(s *settings) { s.audience = audience }
}

// WithAlgorithms restricts the accepted header algorithms. Without it the validator accepts
// the algorithms of the key's family.
func WithAlgorithms(algs ...Algorithm) Option {
	return func(s *settings) { s.algs = append([]Algorithm(nil), algs...) }
}
