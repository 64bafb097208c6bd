package config

import (
	"strings"
	"time"

	"github.com/turtacn/tokenkit/pkg/errors"
	"github.com/turtacn/tokenkit/pkg/jwtoken"
)

// Key material sources
const (
	SourceEnv   = "env"
	SourceVault = "vault"
	SourceRedis = "redis"
)

// Deny-list backends
const (
	DenylistNone   = ""
	DenylistMemory = "memory"
	DenylistRedis  = "redis"
)

// Config holds the toolkit configuration.
type Config struct {
	Keys    KeysConfig    `mapstructure:"keys"`
	Token   TokenConfig   `mapstructure:"token"`
	JWT     JWTConfig     `mapstructure:"jwt"`
	Vault   VaultConfig   `mapstructure:"vault"`
	Redis   RedisConfig   `mapstructure:"redis"`
	Log     LogConfig     `mapstructure:"log"`
	Metrics MetricsConfig `mapstructure:"metrics"`
	Tracing TracingConfig `mapstructure:"tracing"`
}

// KeysConfig selects where cipher key material comes from. Sources are consulted in order
// and the embedded defaults are used when none has material.
type KeysConfig struct {
	Sources []string `mapstructure:"sources"`
	// File holds descriptors, one per line, applied at start and on every change when Watch is set
	File  string `mapstructure:"file"`
	Watch bool   `mapstructure:"watch"`
}

type TokenConfig struct {
	TTL    time.Duration `mapstructure:"ttl"`
	Issuer int32         `mapstructure:"issuer"`
}

type JWTConfig struct {
	Algorithm string        `mapstructure:"algorithm"`
	Secret    string        `mapstructure:"secret"`
	KeyFile   string        `mapstructure:"key_file"`
	TTL       time.Duration `mapstructure:"ttl"`
	Issuer    string        `mapstructure:"issuer"`
	Audience  string        `mapstructure:"audience"`
	Leeway    time.Duration `mapstructure:"leeway"`
	Denylist  string        `mapstructure:"denylist"`
}

type VaultConfig struct {
	Address    string        `mapstructure:"address"`
	Token      string        `mapstructure:"token"`
	MountPath  string        `mapstructure:"mount_path"`
	PathPrefix string        `mapstructure:"path_prefix"`
	Timeout    time.Duration `mapstructure:"timeout"`
	MaxRetries int           `mapstructure:"max_retries"`
}

type RedisConfig struct {
	Address   string `mapstructure:"address"`
	Password  string `mapstructure:"password"`
	DB        int    `mapstructure:"db"`
	KeyPrefix string `mapstructure:"key_prefix"`
}

type LogConfig struct {
	Level      string `mapstructure:"level"`
	OutputPath string `mapstructure:"output_path"`
}

type MetricsConfig struct {
	Enabled   bool   `mapstructure:"enabled"`
	Namespace string `mapstructure:"namespace"`
}

type TracingConfig struct {
	Enabled      bool    `mapstructure:"enabled"`
	ServiceName  string  `mapstructure:"service_name"`
	SamplingRate float64 `mapstructure:"sampling_rate"`
}

// UsesSource reports whether name is one of the configured key sources
func (c *KeysConfig) UsesSource(name string) bool {
	for _, s := range c.Sources {
		if strings.EqualFold(s, name) {
			return true
		}
	}
	return false
}

// Validate checks for essential configuration values.
func (c *Config) Validate() error {
	for _, s := range c.Keys.Sources {
		switch strings.ToLower(s) {
		case SourceEnv, SourceVault, SourceRedis:
		default:
			return invalid("keys.sources", s)
		}
	}
	if c.Keys.Watch && c.Keys.File == "" {
		return invalid("keys.file", "watch requires a file")
	}

	if c.Token.TTL <= 0 {
		return invalid("token.ttl", c.Token.TTL)
	}

	if _, err := jwtoken.ParseAlgorithm(c.JWT.Algorithm); err != nil {
		return invalid("jwt.algorithm", c.JWT.Algorithm)
	}
	if c.JWT.TTL <= 0 {
		return invalid("jwt.ttl", c.JWT.TTL)
	}
	if c.JWT.Leeway < 0 {
		return invalid("jwt.leeway", c.JWT.Leeway)
	}
	switch c.JWT.Denylist {
	case DenylistNone, DenylistMemory, DenylistRedis:
	default:
		return invalid("jwt.denylist", c.JWT.Denylist)
	}

	if c.Keys.UsesSource(SourceVault) && c.Vault.Address == "" {
		return invalid("vault.address", "required by the vault key source")
	}
	if c.Tracing.SamplingRate < 0 || c.Tracing.SamplingRate > 1 {
		return invalid("tracing.sampling_rate", c.Tracing.SamplingRate)
	}
	if (c.Keys.UsesSource(SourceRedis) || c.JWT.Denylist == DenylistRedis) && c.Redis.Address == "" {
		return invalid("redis.address", "required by redis key source or deny-list")
	}
	return nil
}

func invalid(key string, value interface{}) error {
	return errors.ErrInvalidConfig.WithMetadata("key", key).WithMetadata("value", value)
}
