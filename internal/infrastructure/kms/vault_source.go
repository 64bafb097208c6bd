// Package kms supplies cipher key material from external stores: Vault and watched files.
package kms

import (
	"context"
	"path"
	"strings"

	vault "github.com/hashicorp/vault/api"

	"github.com/turtacn/tokenkit/internal/config"
	"github.com/turtacn/tokenkit/pkg/crypt"
	"github.com/turtacn/tokenkit/pkg/errors"
	"github.com/turtacn/tokenkit/pkg/logger"
)

// descriptorField is the secret field holding the "{ALG}:..." descriptor or its body
const descriptorField = "descriptor"

// VaultSource reads key descriptors from a Vault KV v2 mount, one secret per algorithm at
// {mount}/data/{prefix}/{alg}.
type VaultSource struct {
	client *vault.Client
	logger logger.Logger
	config config.VaultConfig
}

// NewVaultClient creates a client for cfg. A token in cfg overrides VAULT_TOKEN.
func NewVaultClient(cfg config.VaultConfig) (*vault.Client, error) {
	vc := vault.DefaultConfig()
	if cfg.Address != "" {
		vc.Address = cfg.Address
	}
	if cfg.Timeout > 0 {
		vc.Timeout = cfg.Timeout
	}
	vc.MaxRetries = cfg.MaxRetries

	client, err := vault.NewClient(vc)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrInvalidConfig).WithMetadata("key", "vault")
	}
	if cfg.Token != "" {
		client.SetToken(cfg.Token)
	}
	return client, nil
}

// NewVaultSource creates a new VaultSource.
func NewVaultSource(cfg config.VaultConfig, client *vault.Client, log logger.Logger) *VaultSource {
	if cfg.MountPath == "" {
		cfg.MountPath = "secret"
	}
	return &VaultSource{
		client: client,
		logger: log.WithComponent("vault_source"),
		config: cfg,
	}
}

func (s *VaultSource) secretPath(alg crypt.Algorithm) string {
	return path.Join(s.config.MountPath, "data", s.config.PathPrefix, strings.ToLower(string(alg)))
}

// Lookup implements crypt.KeySource. A missing secret or field is crypto/key_not_found.
func (s *VaultSource) Lookup(ctx context.Context, alg crypt.Algorithm) (string, error) {
	ref := s.secretPath(alg)
	secret, err := s.client.Logical().ReadWithContext(ctx, ref)
	if err != nil {
		s.logger.Error(ctx, "failed to read key material from Vault", err, logger.String("path", ref))
		return "", err
	}
	if secret == nil || secret.Data == nil {
		return "", errors.ErrKeyNotFound.WithMetadata("path", ref)
	}

	data := secret.Data
	if nested, ok := data["data"].(map[string]interface{}); ok {
		data = nested
	}
	descriptor, ok := data[descriptorField].(string)
	if !ok || strings.TrimSpace(descriptor) == "" {
		return "", errors.ErrKeyNotFound.WithMetadata("path", ref)
	}
	return strings.TrimSpace(descriptor), nil
}

// Store writes a descriptor for alg
func (s *VaultSource) Store(ctx context.Context, alg crypt.Algorithm, descriptor string) error {
	ref := s.secretPath(alg)
	_, err := s.client.Logical().WriteWithContext(ctx, ref, map[string]interface{}{
		"data": map[string]interface{}{descriptorField: descriptor},
	})
	if err != nil {
		s.logger.Error(ctx, "failed to write key material to Vault", err, logger.String("path", ref))
		return err
	}
	s.logger.Info(ctx, "key material stored in Vault", logger.String("algorithm", string(alg)))
	return nil
}
