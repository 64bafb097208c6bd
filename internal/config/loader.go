package config

import (
	"context"
	"strings"

	"github.com/spf13/viper"

	"github.com/turtacn/tokenkit/pkg/constants"
	"github.com/turtacn/tokenkit/pkg/errors"
	"github.com/turtacn/tokenkit/pkg/logger"
)

// SetDefaults registers the default value of every key
func SetDefaults(v *viper.Viper) {
	v.SetDefault("keys.sources", []string{SourceEnv})
	v.SetDefault("keys.file", "")
	v.SetDefault("keys.watch", false)

	v.SetDefault("token.ttl", constants.SessionTokenDefaultTTL)
	v.SetDefault("token.issuer", 0)

	v.SetDefault("jwt.algorithm", "HS256")
	v.SetDefault("jwt.secret", "")
	v.SetDefault("jwt.key_file", "")
	v.SetDefault("jwt.ttl", constants.JWTDefaultTTL)
	v.SetDefault("jwt.issuer", "")
	v.SetDefault("jwt.audience", "")
	v.SetDefault("jwt.leeway", 0)
	v.SetDefault("jwt.denylist", DenylistNone)

	v.SetDefault("vault.address", "")
	v.SetDefault("vault.token", "")
	v.SetDefault("vault.mount_path", "secret")
	v.SetDefault("vault.path_prefix", "tokenkit/keys")
	v.SetDefault("vault.timeout", "10s")
	v.SetDefault("vault.max_retries", 2)

	v.SetDefault("redis.address", "")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.key_prefix", "tokenkit:")

	v.SetDefault("log.level", string(constants.LogLevelInfo))
	v.SetDefault("log.output_path", "stderr")

	v.SetDefault("metrics.enabled", false)
	v.SetDefault("metrics.namespace", "tokenkit")

	v.SetDefault("tracing.enabled", false)
	v.SetDefault("tracing.service_name", "tokenkit")
	v.SetDefault("tracing.sampling_rate", 1.0)
}

// LoadConfig loads the configuration from file and environment variables. An explicit path
// must exist; otherwise tokenkit.yaml is looked up in /etc/tokenkit/ and the working
// directory and is optional.
func LoadConfig(path string, log logger.Logger) (*Config, error) {
	v := viper.New()
	SetDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("tokenkit")
		v.SetConfigType("yaml")
		v.AddConfigPath("/etc/tokenkit/")
		v.AddConfigPath(".")
	}
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok || path != "" {
			return nil, errors.Wrap(err, errors.ErrInvalidConfig)
		}
	}

	v.SetEnvPrefix(constants.EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, errors.Wrap(err, errors.ErrInvalidConfig)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	if log != nil {
		log.Debug(context.Background(), "configuration loaded", logger.String("file", v.ConfigFileUsed()))
	}
	return &cfg, nil
}
