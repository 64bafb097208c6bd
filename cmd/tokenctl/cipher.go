package main

import (
	"encoding/base64"
	"strings"

	"github.com/spf13/cobra"

	"github.com/turtacn/tokenkit/internal/config"
	"github.com/turtacn/tokenkit/internal/infrastructure/kms"
	"github.com/turtacn/tokenkit/internal/infrastructure/redis"
	"github.com/turtacn/tokenkit/pkg/crypt"
	"github.com/turtacn/tokenkit/pkg/errors"
)

type cipherFlags struct {
	alg     string
	private bool
}

func (f *cipherFlags) bind(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.alg, "alg", string(crypt.AES), "AES, DES, RSA or TINY")
	cmd.Flags().BoolVar(&f.private, "private", false, "use the private half of an RSA or TINY key")
}

func (f *cipherFlags) use() crypt.KeyUse {
	if f.private {
		return crypt.UsePrivateKey
	}
	return crypt.UsePublicKey
}

func newEncryptCmd(a *app) *cobra.Command {
	var f cipherFlags
	cmd := &cobra.Command{
		Use:   "encrypt [text...]",
		Short: "Encrypt text (or stdin) and print base64",
		RunE: func(cmd *cobra.Command, args []string) error {
			text, err := inputText(cmd, args)
			if err != nil {
				return err
			}
			c, err := a.cipher(cmd.Context(), f.alg)
			if err != nil {
				return err
			}
			out, err := c.EncryptWith([]byte(text), f.use())
			if err != nil {
				return err
			}
			writeLine(cmd, encodeB64(out))
			return nil
		},
	}
	f.bind(cmd)
	return cmd
}

func newDecryptCmd(a *app) *cobra.Command {
	var f cipherFlags
	cmd := &cobra.Command{
		Use:   "decrypt [base64]",
		Short: "Decrypt base64 ciphertext (or stdin)",
		RunE: func(cmd *cobra.Command, args []string) error {
			text, err := inputText(cmd, args)
			if err != nil {
				return err
			}
			raw, err := decodeB64(text)
			if err != nil {
				return err
			}
			c, err := a.cipher(cmd.Context(), f.alg)
			if err != nil {
				return err
			}
			out, err := c.DecryptWith(raw, f.use())
			if err != nil {
				return err
			}
			writeLine(cmd, string(out))
			return nil
		},
	}
	f.bind(cmd)
	return cmd
}

func newApplyCmd(a *app) *cobra.Command {
	var publish string
	cmd := &cobra.Command{
		Use:   "apply {ALG}:{material}",
		Short: "Validate a key descriptor, optionally storing it in vault or redis",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			descriptor := args[0]
			parsed, err := crypt.ParseDescriptor(descriptor)
			if err != nil {
				return err
			}
			a.provider.Store(parsed)

			switch publish {
			case "":
			case config.SourceRedis:
				src := redis.NewKeySource(a.redisClient(), a.cfg.Redis.KeyPrefix, a.log)
				if err := src.Publish(cmd.Context(), descriptor); err != nil {
					return err
				}
			case config.SourceVault:
				client, err := kms.NewVaultClient(a.cfg.Vault)
				if err != nil {
					return err
				}
				src := kms.NewVaultSource(a.cfg.Vault, client, a.log)
				if err := src.Store(cmd.Context(), parsed.Algorithm(), descriptor); err != nil {
					return err
				}
			default:
				return errors.ErrInvalidConfig.WithMetadata("publish", publish)
			}
			writeLine(cmd, string(parsed.Algorithm()))
			return nil
		},
	}
	cmd.Flags().StringVar(&publish, "publish", "", "also store the descriptor in \"redis\" (notifying subscribers) or \"vault\"")
	return cmd
}

func encodeB64(b []byte) string {
	return base64.StdEncoding.EncodeToString(b)
}

func decodeB64(s string) ([]byte, error) {
	raw, err := base64.StdEncoding.Strict().DecodeString(strings.TrimSpace(s))
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCipherFailure)
	}
	return raw, nil
}
