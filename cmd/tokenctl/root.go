package main

import (
	"context"
	"io"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/turtacn/tokenkit/pkg/logger"
)

// execute builds a fresh command tree, runs it with args and releases whatever the
// command opened (log sink, key watcher, redis connection).
func execute(ctx context.Context, args []string, in io.Reader, out, errOut io.Writer) error {
	a := &app{}
	defer a.close()

	root := newRootCmd(a)
	root.SetArgs(args)
	root.SetIn(in)
	root.SetOut(out)
	root.SetErr(errOut)
	return root.ExecuteContext(logger.WithInvocationID(ctx, uuid.NewString()))
}

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:           "tokenctl",
		Short:         "Key material, cipher and token tool for tokenkit",
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.setup(cmd.Context())
		},
		PersistentPostRunE: func(cmd *cobra.Command, _ []string) error {
			if !a.flags.showMetrics {
				return nil
			}
			return a.printMetrics(cmd.OutOrStdout())
		},
	}

	pf := root.PersistentFlags()
	pf.StringVar(&a.flags.configPath, "config", "", "config file (default: tokenkit.yaml in /etc/tokenkit or the working directory)")
	pf.StringVar(&a.flags.logLevel, "log-level", "", "override log.level (debug, info, warn, error)")
	pf.BoolVar(&a.flags.showMetrics, "metrics", false, "print the collected metrics when the command finishes")

	root.AddCommand(
		newKeygenCmd(a),
		newEncryptCmd(a),
		newDecryptCmd(a),
		newApplyCmd(a),
		newSessionCmd(a),
		newJWTCmd(a),
		newKeyCmd(a),
	)
	return root
}
