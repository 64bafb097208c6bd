package main

import (
	"crypto/ecdsa"
	"crypto/rand"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/turtacn/tokenkit/pkg/constants"
	"github.com/turtacn/tokenkit/pkg/crypt"
	"github.com/turtacn/tokenkit/pkg/errors"
	"github.com/turtacn/tokenkit/pkg/keys"
)

func newKeygenCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "keygen",
		Short: "Generate key material",
	}

	var (
		rsaBits    int
		wrapAlg    string
		descriptor bool
	)
	rsaCmd := &cobra.Command{
		Use:   "rsa",
		Short: "Generate an RSA key pair and print its base64 export",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var wrap *crypt.Cipher
			if wrapAlg != "" {
				c, err := a.cipher(cmd.Context(), wrapAlg)
				if err != nil {
					return err
				}
				wrap = c
			}
			key, err := crypt.GenerateRSA(rsaBits, wrap)
			if err != nil {
				return err
			}
			if descriptor {
				writeLine(cmd, key.Pair.Descriptor())
				return nil
			}
			return printJSON(cmd, key)
		},
	}
	rsaCmd.Flags().IntVar(&rsaBits, "bits", constants.DefaultRSABits, "modulus size")
	rsaCmd.Flags().StringVar(&wrapAlg, "wrap", "", "encrypt the private parts with this algorithm's current key")
	rsaCmd.Flags().BoolVar(&descriptor, "descriptor", false, "print an RSA descriptor instead of the JSON export")

	var tinyBits int
	tinyCmd := &cobra.Command{
		Use:   "tiny",
		Short: "Generate a Tiny key pair and print its descriptor",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			pair, err := crypt.GenerateTinyKeyPair(tinyBits)
			if err != nil {
				return err
			}
			writeLine(cmd, pair.Descriptor())
			return nil
		},
	}
	tinyCmd.Flags().IntVar(&tinyBits, "bits", constants.DefaultTinyBits, "modulus size")

	var (
		curveName string
		password  string
	)
	ecCmd := &cobra.Command{
		Use:   "ec",
		Short: "Generate an ECDSA private key in PEM form",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			curve, err := keys.CurveByName(curveName)
			if err != nil {
				return err
			}
			priv, err := ecdsa.GenerateKey(curve, rand.Reader)
			if err != nil {
				return errors.Wrap(err, errors.ErrCipherFailure)
			}
			if password == "" {
				text, err := keys.EncodePrivateKeyPEM(priv)
				if err != nil {
					return err
				}
				fmt.Fprint(cmd.OutOrStdout(), text)
				return nil
			}
			der, err := keys.EncodePKCS8(priv, []byte(password))
			if err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), keys.WrapPEM(der, keys.TypeEncryptedPrivateKey))
			return nil
		},
	}
	ecCmd.Flags().StringVar(&curveName, "curve", "P-256", "P-256, P-384 or P-521")
	ecCmd.Flags().StringVar(&password, "password", "", "encrypt the key as PKCS#8 with this password")

	cmd.AddCommand(rsaCmd, tinyCmd, ecCmd)
	return cmd
}
