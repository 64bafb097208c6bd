package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"slices"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	goredis "github.com/redis/go-redis/v9"

	"github.com/turtacn/tokenkit/internal/config"
	"github.com/turtacn/tokenkit/internal/infrastructure/kms"
	"github.com/turtacn/tokenkit/internal/infrastructure/memory"
	"github.com/turtacn/tokenkit/internal/infrastructure/monitoring"
	"github.com/turtacn/tokenkit/internal/infrastructure/redis"
	"github.com/turtacn/tokenkit/pkg/crypt"
	"github.com/turtacn/tokenkit/pkg/errors"
	"github.com/turtacn/tokenkit/pkg/jwtoken"
	"github.com/turtacn/tokenkit/pkg/logger"
	"github.com/turtacn/tokenkit/pkg/metrics"
)

type globalFlags struct {
	configPath  string
	logLevel    string
	showMetrics bool
}

// app carries everything a command needs, assembled once per invocation
type app struct {
	flags globalFlags

	cfg      *config.Config
	log      logger.Logger
	registry *prometheus.Registry
	recorder metrics.Recorder
	provider *crypt.Provider

	rdb     *goredis.Client
	closers []func() error
}

func (a *app) setup(ctx context.Context) error {
	cfg, err := config.LoadConfig(a.flags.configPath, logger.NewNoopLogger())
	if err != nil {
		return err
	}
	if a.flags.logLevel != "" {
		cfg.Log.Level = a.flags.logLevel
	}
	a.cfg = cfg

	log, closeLog, err := monitoring.NewZapLogger(cfg.Log)
	if err != nil {
		return err
	}
	a.log = log
	a.closers = append(a.closers, func() error { closeLog(); return nil })

	tracing := monitoring.NewTracingManager(cfg.Tracing, log)
	a.closers = append(a.closers, func() error { return tracing.Shutdown(context.Background()) })

	a.registry = prometheus.NewRegistry()
	a.recorder = metrics.NewNoopRecorder()
	if cfg.Metrics.Enabled || a.flags.showMetrics {
		a.recorder = monitoring.NewMetrics(cfg.Metrics, a.registry)
	}

	source, err := a.keySource()
	if err != nil {
		return err
	}
	a.provider = crypt.NewProvider(
		crypt.WithSource(source),
		crypt.WithLogger(log),
		crypt.WithRecorder(a.recorder),
	)

	if cfg.Keys.File == "" {
		return nil
	}
	watcher := kms.NewFileWatcher(cfg.Keys.File, a.provider, log)
	if !cfg.Keys.Watch {
		return watcher.Load(ctx)
	}
	if err := watcher.Start(ctx); err != nil {
		return err
	}
	a.closers = append(a.closers, watcher.Close)
	return nil
}

func (a *app) keySource() (crypt.KeySource, error) {
	var chain crypt.ChainSource
	for _, name := range a.cfg.Keys.Sources {
		switch strings.ToLower(name) {
		case config.SourceEnv:
			chain = append(chain, crypt.EnvFileSource{})
		case config.SourceVault:
			client, err := kms.NewVaultClient(a.cfg.Vault)
			if err != nil {
				return nil, err
			}
			chain = append(chain, kms.NewVaultSource(a.cfg.Vault, client, a.log))
		case config.SourceRedis:
			chain = append(chain, redis.NewKeySource(a.redisClient(), a.cfg.Redis.KeyPrefix, a.log))
		}
	}
	return chain, nil
}

func (a *app) redisClient() *goredis.Client {
	if a.rdb == nil {
		a.rdb = redis.NewClient(a.cfg.Redis)
		a.closers = append(a.closers, a.rdb.Close)
	}
	return a.rdb
}

func (a *app) cipher(ctx context.Context, name string) (*crypt.Cipher, error) {
	alg, err := crypt.ParseAlgorithm(name)
	if err != nil {
		return nil, err
	}
	return a.provider.Cipher(ctx, alg)
}

// jwtKey returns the configured signing key: PEM text from jwt.key_file, or jwt.secret
func (a *app) jwtKey() (any, error) {
	if path := a.cfg.JWT.KeyFile; path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrInvalidKey).WithMetadata("path", path)
		}
		return string(data), nil
	}
	if a.cfg.JWT.Secret != "" {
		return []byte(a.cfg.JWT.Secret), nil
	}
	return nil, errors.ErrInvalidKey.WithMetadata("reason", "jwt.secret or jwt.key_file is required")
}

func (a *app) jwtOptions() []jwtoken.Option {
	opts := []jwtoken.Option{
		jwtoken.WithLogger(a.log),
		jwtoken.WithRecorder(a.recorder),
		jwtoken.WithLeeway(a.cfg.JWT.Leeway),
		jwtoken.WithIssuer(a.cfg.JWT.Issuer),
		jwtoken.WithAudience(a.cfg.JWT.Audience),
	}
	switch a.cfg.JWT.Denylist {
	case config.DenylistMemory:
		opts = append(opts, jwtoken.WithDenylist(memory.NewDenylist(time.Minute)))
	case config.DenylistRedis:
		opts = append(opts, jwtoken.WithDenylist(redis.NewDenylist(a.redisClient(), a.cfg.Redis.KeyPrefix)))
	}
	return opts
}

func (a *app) validator() (*jwtoken.Validator, error) {
	key, err := a.jwtKey()
	if err != nil {
		return nil, err
	}
	alg, err := jwtoken.ParseAlgorithm(a.cfg.JWT.Algorithm)
	if err != nil {
		return nil, err
	}
	opts := append(a.jwtOptions(), jwtoken.WithAlgorithms(alg))
	return jwtoken.NewValidator(key, opts...)
}

func (a *app) printMetrics(w io.Writer) error {
	families, err := a.registry.Gather()
	if err != nil {
		return err
	}
	for _, mf := range families {
		for _, m := range mf.GetMetric() {
			fmt.Fprintf(w, "%s{%s} %s\n", mf.GetName(), labelString(m.GetLabel()), sampleString(mf.GetType(), m))
		}
	}
	return nil
}

func labelString(pairs []*dto.LabelPair) string {
	parts := make([]string, 0, len(pairs))
	for _, p := range pairs {
		parts = append(parts, fmt.Sprintf("%s=%q", p.GetName(), p.GetValue()))
	}
	slices.Sort(parts)
	return strings.Join(parts, ",")
}

func sampleString(t dto.MetricType, m *dto.Metric) string {
	switch t {
	case dto.MetricType_COUNTER:
		return fmt.Sprintf("%g", m.GetCounter().GetValue())
	case dto.MetricType_HISTOGRAM:
		h := m.GetHistogram()
		return fmt.Sprintf("count=%d sum=%g", h.GetSampleCount(), h.GetSampleSum())
	case dto.MetricType_GAUGE:
		return fmt.Sprintf("%g", m.GetGauge().GetValue())
	}
	return ""
}

func (a *app) close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		_ = a.closers[i]()
	}
	a.closers = nil
}
