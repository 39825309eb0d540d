package ctl

import (
	"fmt"

	"github.com/dmitrijs2005/gophcredits/internal/server"
	"github.com/spf13/cobra"
)

func newReconcileCmd(o *rootOptions) *cobra.Command {
	var failOnDivergence bool

	cmd := &cobra.Command{
		Use:   "reconcile",
		Short: "Run one reconciliation pass and print the report",
		Long: `Recompute every account's balance and lifetime earnings from its
transaction log and print the accounts whose cached values disagree.
Nothing is repaired. The report is also uploaded when a bucket is configured.`,
		Args: cobra.NoArgs,
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

			report, err := app.Reconciler().Run(cmd.Context())
			if report == nil {
				return err
			}
			if perr := printJSON(cmd.OutOrStdout(), report); perr != nil {
				return perr
			}
			if err != nil {
				return err
			}

			if failOnDivergence && len(report.Divergences) > 0 {
				return fmt.Errorf("%d of %d accounts diverge from their ledger", len(report.Divergences), report.AccountsChecked)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&failOnDivergence, "fail-on-divergence", false, "exit non-zero when any account diverges")
	return cmd
}
