package ctl

import (
	"fmt"

	"github.com/dmitrijs2005/gophcredits/internal/server"
	"github.com/spf13/cobra"
)

func newMigrateCmd(o *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply database migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := o.config()
			if err != nil {
				return err
			}

			app, err := server.NewApp(cmd.Context(), cfg, o.logger(cmd, cfg))
			if err != nil {
				return err
			}
			defer app.Close()

			fmt.Fprintln(cmd.OutOrStdout(), "migrations applied")
			return nil
		},
	}
}
