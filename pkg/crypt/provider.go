package crypt

import (
	"context"
	"strings"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/singleflight"

	"github.com/turtacn/tokenkit/pkg/constants"
	"github.com/turtacn/tokenkit/pkg/errors"
	"github.com/turtacn/tokenkit/pkg/logger"
	"github.com/turtacn/tokenkit/pkg/metrics"
)

// Provider owns the current key material for every algorithm
type Provider struct {
	source   KeySource
	log      logger.Logger
	rec      metrics.Recorder
	defaults map[Algorithm]string

	// fixed at construction; only the pointers move
	slots map[Algorithm]*atomic.Pointer[Context]
	group singleflight.Group
}

// Option configures a Provider
type Option func(*Provider)

// WithSource sets where key material is looked up on first use
func WithSource(s KeySource) Option {
	return func(p *Provider) { p.source = s }
}

// WithLogger sets the provider logger
func WithLogger(l logger.Logger) Option {
	return func(p *Provider) { p.log = l }
}

// WithRecorder sets the metrics recorder shared with created ciphers
func WithRecorder(r metrics.Recorder) Option {
	return func(p *Provider) { p.rec = r }
}

// WithDefaults replaces the embedded fallback material for the given algorithms
func WithDefaults(defaults map[Algorithm]string) Option {
	return func(p *Provider) {
		for alg, material := range defaults {
			p.defaults[alg] = material
		}
	}
}

// NewProvider creates a provider. Without WithSource it reads key files named by the
// TOKENKIT_{ALG}_KEY_FILE environment variables.
func NewProvider(opts ...Option) *Provider {
	p := &Provider{
		source:   EnvFileSource{},
		log:      logger.Default(),
		rec:      metrics.NewNoopRecorder(),
		defaults: embeddedDefaults(),
		slots:    make(map[Algorithm]*atomic.Pointer[Context], len(Algorithms)),
	}
	for _, alg := range Algorithms {
		p.slots[alg] = new(atomic.Pointer[Context])
	}
	for _, opt := range opts {
		opt(p)
	}
	p.log = p.log.WithComponent(constants.ComponentCrypt)
	return p
}

// Context returns the current material for alg, resolving it on first use.
// Concurrent first calls share one resolution, and material stored by Apply meanwhile wins.
func (p *Provider) Context(ctx context.Context, alg Algorithm) (*Context, error) {
	slot, ok := p.slots[alg]
	if !ok {
		return nil, errors.ErrUnsupportedAlgorithm.WithMetadata("algorithm", string(alg))
	}
	if c := slot.Load(); c != nil {
		return c, nil
	}

	v, err, _ := p.group.Do(string(alg), func() (interface{}, error) {
		if c := slot.Load(); c != nil {
			return c, nil
		}
		c, err := p.resolve(ctx, alg)
		if err != nil {
			return nil, err
		}
		if !slot.CompareAndSwap(nil, c) {
			return slot.Load(), nil
		}
		return c, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*Context), nil
}

func (p *Provider) resolve(ctx context.Context, alg Algorithm) (c *Context, err error) {
	start := time.Now()
	ctx, span := metrics.StartSpan(ctx, constants.ComponentKeySource, "resolve", attribute.String("algorithm", string(alg)))
	result := constants.ResultSuccess
	defer func() {
		if err != nil {
			result = constants.ResultFailure
		}
		p.rec.ObserveOperation(constants.ComponentKeySource, "resolve", result, time.Since(start))
		metrics.EndSpan(span, err)
	}()

	material, err := p.source.Lookup(ctx, alg)
	if err == nil {
		c, err = materialContext(alg, material)
		if err != nil {
			p.log.Error(ctx, "key material from source is invalid", err, logger.String("algorithm", string(alg)))
			return nil, err
		}
		p.log.Info(ctx, "key material resolved", logger.String("algorithm", string(alg)))
		return c, nil
	}
	if !errors.Is(err, errors.ErrKeyNotFound) {
		p.log.Error(ctx, "key source lookup failed", err, logger.String("algorithm", string(alg)))
	}

	p.log.Warn(ctx, "using built-in key material; supply key material before production use",
		logger.String("algorithm", string(alg)),
		logger.String("security", "embedded_default_key"),
	)
	return materialContext(alg, p.defaults[alg])
}

// Apply parses a "{ALG}:..." descriptor and atomically replaces that algorithm's material.
// A rejected descriptor leaves the current material untouched.
func (p *Provider) Apply(descriptor string) error {
	start := time.Now()
	c, err := ParseDescriptor(descriptor)
	if err != nil {
		p.rec.ObserveOperation(constants.ComponentKeySource, "apply", constants.ResultRejected, time.Since(start))
		p.log.Warn(context.Background(), "key material descriptor rejected", logger.Error(errors.Cause(err)))
		return err
	}
	p.Store(c)
	p.rec.ObserveOperation(constants.ComponentKeySource, "apply", constants.ResultSuccess, time.Since(start))
	return nil
}

// Store installs c as the current material for its algorithm
func (p *Provider) Store(c *Context) {
	p.slots[c.Algorithm()].Store(c)
	p.log.Info(context.Background(), "key material applied", logger.String("algorithm", string(c.Algorithm())))
}

// Cipher resolves alg and returns a cipher that follows later Apply calls
func (p *Provider) Cipher(ctx context.Context, alg Algorithm) (*Cipher, error) {
	if _, err := p.Context(ctx, alg); err != nil {
		return nil, err
	}
	return &Cipher{
		alg: alg,
		snapshot: func() (*Context, error) {
			return p.Context(context.Background(), alg)
		},
		log: p.log,
		rec: p.rec,
	}, nil
}

// Create is Cipher with a background context
func (p *Provider) Create(alg Algorithm) (*Cipher, error) {
	return p.Cipher(context.Background(), alg)
}

func materialContext(alg Algorithm, material string) (*Context, error) {
	if strings.Contains(material, "-----BEGIN") {
		return parsePEMContext(alg, material)
	}
	return ParseDescriptorBody(alg, material)
}

// ================================================================================
// Process-wide default
// ================================================================================

var defaultProvider atomic.Pointer[Provider]

// Default returns the process-wide provider, created on first use
func Default() *Provider {
	if p := defaultProvider.Load(); p != nil {
		return p
	}
	defaultProvider.CompareAndSwap(nil, NewProvider())
	return defaultProvider.Load()
}

// SetDefault replaces the process-wide provider
func SetDefault(p *Provider) {
	defaultProvider.Store(p)
}

// Create returns a cipher from the process-wide provider
func Create(alg Algorithm) (*Cipher, error) {
	return Default().Create(alg)
}

// Apply replaces key material in the process-wide provider
func Apply(descriptor string) error {
	return Default().Apply(descriptor)
}
