package main

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/turtacn/tokenkit/pkg/usertoken"
)

type sessionView struct {
	Username       string    `json:"username"`
	CredentialHash int32     `json:"credentialHash"`
	Address        string    `json:"address"`
	Issuer         int32     `json:"issuer"`
	Expiry         int64     `json:"expiry"`
	ExpiresAt      time.Time `json:"expiresAt"`
	Roles          []int32   `json:"roleHashes,omitempty"`
	Bound          *bool     `json:"bound,omitempty"`
}

func newSessionView(t *usertoken.Token) sessionView {
	at, _ := t.ExpiresAt()
	return sessionView{
		Username:       t.Username,
		CredentialHash: t.CredentialHash,
		Address:        t.Address,
		Issuer:         t.Issuer,
		Expiry:         t.Expiry,
		ExpiresAt:      at,
		Roles:          t.RoleHashes,
	}
}

func (a *app) issuer(cmd *cobra.Command, alg string) (*usertoken.Issuer, error) {
	c, err := a.cipher(cmd.Context(), alg)
	if err != nil {
		return nil, err
	}
	return usertoken.NewIssuer(
		usertoken.WithCipher(c),
		usertoken.WithLogger(a.log),
		usertoken.WithRecorder(a.recorder),
	)
}

func newSessionCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "session",
		Short: "Mint and inspect opaque session tokens",
	}

	var (
		alg        string
		credential string
		address    string
		ttl        time.Duration
		roles      []string
	)
	mintCmd := &cobra.Command{
		Use:   "mint <username>",
		Short: "Mint a session token",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			iss, err := a.issuer(cmd, alg)
			if err != nil {
				return err
			}
			if ttl <= 0 {
				ttl = a.cfg.Token.TTL
			}
			t, err := iss.Mint(args[0], credential, address, ttl, a.cfg.Token.Issuer, roles...)
			if err != nil {
				return err
			}
			s, err := iss.Serialize(t, false)
			if err != nil {
				return err
			}
			writeLine(cmd, s)
			return nil
		},
	}
	mintCmd.Flags().StringVar(&credential, "credential", "", "credential hashed into the token")
	mintCmd.Flags().StringVar(&address, "address", "", "client address the token is bound to")
	mintCmd.Flags().DurationVar(&ttl, "ttl", 0, "lifetime (default token.ttl)")
	mintCmd.Flags().StringSliceVar(&roles, "role", nil, "role name, repeatable")

	var bind string
	parseCmd := &cobra.Command{
		Use:   "parse [token]",
		Short: "Parse and check a session token (or stdin)",
		RunE: func(cmd *cobra.Command, args []string) error {
			raw, err := inputText(cmd, args)
			if err != nil {
				return err
			}
			iss, err := a.issuer(cmd, alg)
			if err != nil {
				return err
			}
			if bind == "" {
				t, err := iss.Parse(raw)
				if err != nil {
					return err
				}
				return printJSON(cmd, newSessionView(t))
			}

			t, ok, err := iss.ParseAndBind(raw, bind)
			if err != nil {
				return err
			}
			if !ok {
				return printJSON(cmd, sessionView{Bound: &ok})
			}
			view := newSessionView(t)
			view.Bound = &ok
			return printJSON(cmd, view)
		},
	}
	parseCmd.Flags().StringVar(&bind, "bind", "", "require the token to be bound to this address")

	var refreshTTL time.Duration
	refreshCmd := &cobra.Command{
		Use:   "refresh [token]",
		Short: "Extend a valid session token and print the new token",
		RunE: func(cmd *cobra.Command, args []string) error {
			raw, err := inputText(cmd, args)
			if err != nil {
				return err
			}
			iss, err := a.issuer(cmd, alg)
			if err != nil {
				return err
			}
			if refreshTTL <= 0 {
				refreshTTL = a.cfg.Token.TTL
			}
			s, err := iss.Refresh(raw, refreshTTL)
			if err != nil {
				return err
			}
			writeLine(cmd, s)
			return nil
		},
	}
	refreshCmd.Flags().DurationVar(&refreshTTL, "ttl", 0, "new lifetime from now (default token.ttl)")

	cmd.PersistentFlags().StringVar(&alg, "alg", "AES", "cipher protecting the token")
	cmd.AddCommand(mintCmd, parseCmd, refreshCmd)
	return cmd
}
