package main

import (
	"crypto"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/turtacn/tokenkit/pkg/errors"
	"github.com/turtacn/tokenkit/pkg/keys"
)

type publicKeyHolder interface {
	Public() crypto.PublicKey
}

// readPublicKey accepts a PEM public key, an unencrypted PEM private key, or an
// encrypted PKCS#8 key when password is set
func readPublicKey(path, password string) (crypto.PublicKey, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrInvalidEncoding).WithMetadata("path", path)
	}
	text := string(data)

	var priv crypto.PrivateKey
	switch {
	case strings.Contains(text, keys.TypeEncryptedPrivateKey):
		priv, err = keys.DecodeEncryptedPrivateKeyPEM(text, []byte(password))
	case strings.Contains(text, keys.TypePublicKey):
		return keys.DecodePublicKeyPEM(text)
	default:
		priv, err = keys.DecodePrivateKeyPEM(text)
	}
	if err != nil {
		return nil, err
	}
	holder, ok := priv.(publicKeyHolder)
	if !ok {
		return nil, errors.ErrUnsupportedKey
	}
	return holder.Public(), nil
}

func newKeyCmd(_ *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "key",
		Short: "Convert keys between PEM and SSH formats",
	}

	var (
		comment  string
		password string
	)
	sshCmd := &cobra.Command{
		Use:   "ssh <pem-file>",
		Short: "Print the authorized_keys line for a PEM key",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			pub, err := readPublicKey(args[0], password)
			if err != nil {
				return err
			}
			line, err := keys.EncodeSSHPublicKey(pub, comment)
			if err != nil {
				return err
			}
			writeLine(cmd, line)
			return nil
		},
	}
	sshCmd.Flags().StringVar(&comment, "comment", "", "comment appended to the line")
	sshCmd.Flags().StringVar(&password, "password", "", "password of an encrypted PKCS#8 key")

	pemCmd := &cobra.Command{
		Use:   "pem [authorized-keys-line]",
		Short: "Print the PEM public key for an SSH public key line (or stdin)",
		RunE: func(cmd *cobra.Command, args []string) error {
			line, err := inputText(cmd, args)
			if err != nil {
				return err
			}
			pub, _, err := keys.DecodeSSHPublicKey(line)
			if err != nil {
				return err
			}
			text, err := keys.EncodePublicKeyPEM(pub)
			if err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), text)
			return nil
		},
	}

	cmd.AddCommand(sshCmd, pemCmd)
	return cmd
}
