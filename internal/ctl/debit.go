package ctl

import (
	"strconv"
	"time"

	"github.com/dmitrijs2005/gophcredits/internal/server/auth"
	"github.com/spf13/cobra"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	gs "github.com/dmitrijs2005/gophcredits/internal/server/grpc"
)

func newDebitCmd(o *rootOptions) *cobra.Command {
	var (
		addr  string
		token string
	)

	cmd := &cobra.Command{
		Use:   "debit USER_ID AMOUNT FEATURE_REF",
		Short: "Debit credits through the gRPC API",
		Long: `Debit AMOUNT credits from USER_ID for FEATURE_REF. Without --token a
short-lived service token is signed with the configured secret.`,
		Args: cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			amount, err := strconv.ParseInt(args[1], 10, 64)
			if err != nil {
				return err
			}

			cfg, err := o.config()
			if err != nil {
				return err
			}

			if token == "" {
				token, err = auth.GenerateToken("creditsctl", []byte(cfg.SecretKey), 5*time.Minute, auth.ScopeDebit)
				if err != nil {
					return err
				}
			}
			if addr == "" {
				addr = cfg.EndpointAddrGRPC
			}

			conn, err := grpc.NewClient(addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
			if err != nil {
				return err
			}
			defer conn.Close()

			res, err := gs.NewClient(conn, token).Debit(cmd.Context(), args[0], amount, args[2])
			if err != nil {
				return err
			}

			return printJSON(cmd.OutOrStdout(), map[string]any{
				"transactionId": res.TransactionID,
				"balanceBefore": res.BalanceBefore,
				"balanceAfter":  res.BalanceAfter,
			})
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "gRPC address (default from config)")
	cmd.Flags().StringVar(&token, "token", "", "access token with the "+auth.ScopeDebit+" scope")
	return cmd
}
