package ctl

import (
	"fmt"
	"time"

	"github.com/dmitrijs2005/gophcredits/internal/server/auth"
	"github.com/spf13/cobra"
)

func newTokenCmd(o *rootOptions) *cobra.Command {
	var (
		ttl    time.Duration
		scopes []string
	)

	cmd := &cobra.Command{
		Use:   "token USER_ID",
		Short: "Issue an access token",
		Long: `Issue an HS256 access token for USER_ID signed with the configured secret.
Service callers of the debit RPC need --scope ` + auth.ScopeDebit + `.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := o.config()
			if err != nil {
				return err
			}

			tok, err := auth.GenerateToken(args[0], []byte(cfg.SecretKey), ttl, scopes...)
			if err != nil {
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), tok)
			return nil
		},
	}

	cmd.Flags().DurationVar(&ttl, "ttl", time.Hour, "token validity")
	cmd.Flags().StringSliceVar(&scopes, "scope", nil, "scope to grant, repeatable")
	return cmd
}
