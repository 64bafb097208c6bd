package main

import (
	"encoding/json"
	"time"

	"github.com/spf13/cobra"

	"github.com/turtacn/tokenkit/pkg/errors"
	"github.com/turtacn/tokenkit/pkg/jwtoken"
)

func newJWTCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "jwt",
		Short: "Sign, verify and inspect JWTs",
	}

	var (
		subject  string
		audience []string
		ttl      time.Duration
		noJTI    bool
	)
	signCmd := &cobra.Command{
		Use:   "sign [json-payload]",
		Short: "Sign a JSON payload (or stdin) with the configured jwt key",
		RunE: func(cmd *cobra.Command, args []string) error {
			text, err := inputText(cmd, args)
			if err != nil {
				return err
			}
			if !json.Valid([]byte(text)) {
				return errors.ErrInvalidPayload.WithMetadata("reason", "payload is not JSON")
			}
			key, err := a.jwtKey()
			if err != nil {
				return err
			}
			alg, err := jwtoken.ParseAlgorithm(a.cfg.JWT.Algorithm)
			if err != nil {
				return err
			}
			signer, err := jwtoken.NewSigner(alg, key)
			if err != nil {
				return err
			}
			if ttl <= 0 {
				ttl = a.cfg.JWT.TTL
			}

			b := jwtoken.NewBuilder(a.jwtOptions()...).
				Signer(signer).
				ExpiresIn(ttl).
				Issuer(a.cfg.JWT.Issuer).
				Subject(subject).
				WithJTI(!noJTI)
			if len(audience) > 0 {
				b.Audience(audience...)
			} else if a.cfg.JWT.Audience != "" {
				b.Audience(a.cfg.JWT.Audience)
			}
			token, err := b.Build(json.RawMessage(text))
			if err != nil {
				return err
			}
			writeLine(cmd, token)
			return nil
		},
	}
	signCmd.Flags().StringVar(&subject, "sub", "", "subject claim")
	signCmd.Flags().StringSliceVar(&audience, "aud", nil, "audience claim, repeatable (default jwt.audience)")
	signCmd.Flags().DurationVar(&ttl, "ttl", 0, "lifetime (default jwt.ttl)")
	signCmd.Flags().BoolVar(&noJTI, "no-jti", false, "omit the jti claim")

	verifyCmd := &cobra.Command{
		Use:   "verify [token]",
		Short: "Validate a token and print its claims",
		RunE: func(cmd *cobra.Command, args []string) error {
			raw, err := inputText(cmd, args)
			if err != nil {
				return err
			}
			v, err := a.validator()
			if err != nil {
				return err
			}
			t, err := v.Validate(cmd.Context(), raw)
			if err != nil {
				return err
			}
			return printJSON(cmd, t.Claims())
		},
	}

	revokeCmd := &cobra.Command{
		Use:   "revoke [token]",
		Short: "Validate a token and add its jti to the configured deny-list",
		RunE: func(cmd *cobra.Command, args []string) error {
			raw, err := inputText(cmd, args)
			if err != nil {
				return err
			}
			v, err := a.validator()
			if err != nil {
				return err
			}
			t, err := v.Validate(cmd.Context(), raw)
			if err != nil {
				return err
			}
			if err := v.Revoke(cmd.Context(), t); err != nil {
				return err
			}
			writeLine(cmd, t.ID())
			return nil
		},
	}

	decodeCmd := &cobra.Command{
		Use:   "decode [token]",
		Short: "Print the header and claims of a token without verifying it",
		RunE: func(cmd *cobra.Command, args []string) error {
			raw, err := inputText(cmd, args)
			if err != nil {
				return err
			}
			t := jwtoken.Decode(raw)
			if t == nil {
				return errors.ErrTokenMalformed
			}
			return printJSON(cmd, map[string]any{
				"header":  t.Header(),
				"claims":  t.Claims(),
				"expired": t.ExpiresBefore(time.Now()),
			})
		},
	}

	cmd.AddCommand(signCmd, verifyCmd, revokeCmd, decodeCmd)
	return cmd
}
