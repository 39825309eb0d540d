// Package ctl implements creditsctl, the operator command line of the
// credit ledger.
package ctl

import (
	"encoding/json"
	"io"
	"os"

	"github.com/dmitrijs2005/gophcredits/internal/logging"
	"github.com/dmitrijs2005/gophcredits/internal/server/config"
	"github.com/spf13/cobra"
)

type rootOptions struct {
	configFile    string
	dsn           string
	secret        string
	webhookSecret string
	logLevel      string
}

// NewRootCmd builds the creditsctl command tree.
func NewRootCmd() *cobra.Command {
	o := &rootOptions{}

	root := &cobra.Command{
		Use:   "creditsctl",
		Short: "Operate the credit ledger",
		Long: `creditsctl runs maintenance tasks against the credit ledger database
and talks to a running server: it applies migrations, reconciles balances,
issues tokens, replays processor webhooks and debits credits over gRPC.`,
		SilenceUsage: true,
	}

	pf := root.PersistentFlags()
	pf.StringVarP(&o.configFile, "config", "c", "", "config file, JSON or TOML (default $CREDITS_CONFIG)")
	pf.StringVarP(&o.dsn, "dsn", "d", "", "database DSN")
	pf.StringVarP(&o.secret, "secret", "s", "", "JWT secret key")
	pf.StringVar(&o.webhookSecret, "webhook-secret", "", "webhook signing secret")
	pf.StringVarP(&o.logLevel, "log-level", "l", "", "log level")

	root.AddCommand(
		newMigrateCmd(o),
		newReconcileCmd(o),
		newTokenCmd(o),
		newWebhookCmd(o),
		newDebitCmd(o),
	)
	return root
}

// Execute runs creditsctl with os.Args.
func Execute() error {
	return NewRootCmd().Execute()
}

// config layers defaults, the config file and explicit flags.
func (o *rootOptions) config() (*config.Config, error) {
	cfg := &config.Config{}
	cfg.LoadDefaults()

	path := o.configFile
	if path == "" {
		path = os.Getenv("CREDITS_CONFIG")
	}
	if path != "" {
		if err := config.LoadFile(path, cfg); err != nil {
			return nil, err
		}
	}

	if o.dsn != "" {
		cfg.DatabaseDSN = o.dsn
	}
	if o.secret != "" {
		cfg.SecretKey = o.secret
	}
	if o.webhookSecret != "" {
		cfg.StripeWebhookSecret = o.webhookSecret
	}
	if o.logLevel != "" {
		cfg.LogLevel = o.logLevel
	}
	return cfg, nil
}

func (o *rootOptions) logger(cmd *cobra.Command, cfg *config.Config) logging.Logger {
	return logging.NewJSONLogger(cmd.ErrOrStderr(), cfg.LogLevel)
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
