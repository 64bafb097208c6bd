package crypt

import (
	"context"
	"os"
	"strings"

	"github.com/turtacn/tokenkit/pkg/constants"
	"github.com/turtacn/tokenkit/pkg/errors"
)

// KeySource supplies key material for an algorithm: a descriptor body, a full
// "{ALG}:..." descriptor, or PEM text for RSA. It returns errors.ErrKeyNotFound
// when it has nothing for the algorithm.
type KeySource interface {
	Lookup(ctx context.Context, alg Algorithm) (string, error)
}

// EnvFileSource reads the file named by {Prefix}_{ALG}_KEY_FILE, e.g. TOKENKIT_AES_KEY_FILE.
// The file holds one line of key material; surrounding whitespace is ignored.
type EnvFileSource struct {
	// Prefix defaults to TOKENKIT
	Prefix string
}

// EnvVar returns the variable name consulted for alg
func (s EnvFileSource) EnvVar(alg Algorithm) string {
	prefix := s.Prefix
	if prefix == "" {
		prefix = constants.EnvPrefix
	}
	return prefix + "_" + string(alg) + constants.EnvKeyFileSuffix
}

func (s EnvFileSource) Lookup(_ context.Context, alg Algorithm) (string, error) {
	path := strings.TrimSpace(os.Getenv(s.EnvVar(alg)))
	if path == "" {
		return "", errors.ErrKeyNotFound
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	material := strings.TrimSpace(string(data))
	if material == "" {
		return "", errors.ErrKeyNotFound.WithMetadata("path", path)
	}
	return material, nil
}

// StaticSource serves fixed material, mostly for tests and embedding applications
type StaticSource map[Algorithm]string

func (s StaticSource) Lookup(_ context.Context, alg Algorithm) (string, error) {
	if v, ok := s[alg]; ok && strings.TrimSpace(v) != "" {
		return v, nil
	}
	return "", errors.ErrKeyNotFound
}

// ChainSource asks each source in order; the first hit wins. Errors other than
// ErrKeyNotFound stop the chain.
type ChainSource []KeySource

func (c ChainSource) Lookup(ctx context.Context, alg Algorithm) (string, error) {
	for _, s := range c {
		if s == nil {
			continue
		}
		v, err := s.Lookup(ctx, alg)
		if err == nil {
			return v, nil
		}
		if !errors.Is(err, errors.ErrKeyNotFound) {
			return "", err
		}
	}
	return "", errors.ErrKeyNotFound
}
