package redis

import (
	"context"
	"strings"

	"github.com/redis/go-redis/v9"

	"github.com/turtacn/tokenkit/pkg/crypt"
	"github.com/turtacn/tokenkit/pkg/errors"
	"github.com/turtacn/tokenkit/pkg/logger"
)

// Applier installs a descriptor, as crypt.Provider.Apply does
type Applier interface {
	Apply(descriptor string) error
}

// KeySource shares key descriptors between processes. The current descriptor of each
// algorithm lives under {prefix}keys:{alg}; rotations are also announced on {prefix}keys.
type KeySource struct {
	rdb    *redis.Client
	prefix string
	logger logger.Logger
}

// NewKeySource creates a key source whose keys start with prefix
func NewKeySource(rdb *redis.Client, prefix string, log logger.Logger) *KeySource {
	return &KeySource{rdb: rdb, prefix: prefix, logger: log.WithComponent("redis_key_source")}
}

func (s *KeySource) key(alg crypt.Algorithm) string {
	return s.prefix + "keys:" + strings.ToLower(string(alg))
}

func (s *KeySource) channel() string { return s.prefix + "keys" }

// Lookup implements crypt.KeySource
func (s *KeySource) Lookup(ctx context.Context, alg crypt.Algorithm) (string, error) {
	v, err := s.rdb.Get(ctx, s.key(alg)).Result()
	if errors.Is(err, redis.Nil) {
		return "", errors.ErrKeyNotFound.WithMetadata("key", s.key(alg))
	}
	if err != nil {
		return "", err
	}
	return v, nil
}

// Publish validates a "{ALG}:..." descriptor, stores it and announces it to subscribers
func (s *KeySource) Publish(ctx context.Context, descriptor string) error {
	descriptor = strings.TrimSpace(descriptor)
	c, err := crypt.ParseDescriptor(descriptor)
	if err != nil {
		return err
	}

	pipe := s.rdb.TxPipeline()
	pipe.Set(ctx, s.key(c.Algorithm()), descriptor, 0)
	pipe.Publish(ctx, s.channel(), descriptor)
	if _, err := pipe.Exec(ctx); err != nil {
		s.logger.Error(ctx, "failed to publish key material", err, logger.String("algorithm", string(c.Algorithm())))
		return err
	}
	s.logger.Info(ctx, "key material published", logger.String("algorithm", string(c.Algorithm())))
	return nil
}

// Subscribe applies every descriptor announced by Publish until ctx is done. It returns
// once the subscription is confirmed.
func (s *KeySource) Subscribe(ctx context.Context, target Applier) error {
	sub := s.rdb.Subscribe(ctx, s.channel())
	if _, err := sub.Receive(ctx); err != nil {
		sub.Close()
		return err
	}

	go func() {
		defer sub.Close()
		ch := sub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				if err := target.Apply(msg.Payload); err != nil {
					s.logger.Error(ctx, "announced key material rejected", err)
				}
			}
		}
	}()
	return nil
}
