package config

import (
	"flag"
	"os"
	"time"

	"github.com/dmitrijs2005/gophcredits/internal/flagx"
)

// parseFlags populates selected server Config fields from command-line flags.
//
// Supported flags (short forms):
//
//	-a string   HTTP bind address (e.g., ":8080")
//	-g string   gRPC bind address (e.g., ":50051")
//	-d string   database DSN (postgres:// or sqlite://)
//	-s string   JWT HMAC secret key
//	-k string   Stripe secret API key
//	-w string   Stripe webhook signing secret
//	-b int      welcome bonus credits
//	-r int      max retries for conflicting transactions
//	-i int      reconciliation interval, minutes (0 disables)
//	-l string   log level
//
// Notes:
//   - os.Args is first filtered through flagx.FilterArgs so unrelated flags
//     (including -c/-config) do not break parsing.
//   - The interval flag is accepted as integer minutes.
func parseFlags(config *Config) {
	args := flagx.FilterArgs(os.Args[1:], []string{"-a", "-g", "-d", "-s", "-k", "-w", "-b", "-r", "-i", "-l"})

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&config.EndpointAddrHTTP, "a", config.EndpointAddrHTTP, "address and port of the HTTP API")
	fs.StringVar(&config.EndpointAddrGRPC, "g", config.EndpointAddrGRPC, "address and port of the gRPC API")
	fs.StringVar(&config.DatabaseDSN, "d", config.DatabaseDSN, "database DSN")
	fs.StringVar(&config.SecretKey, "s", config.SecretKey, "secret key")
	fs.StringVar(&config.StripeSecretKey, "k", config.StripeSecretKey, "Stripe secret key")
	fs.StringVar(&config.StripeWebhookSecret, "w", config.StripeWebhookSecret, "Stripe webhook secret")
	fs.Int64Var(&config.WelcomeBonusCredits, "b", config.WelcomeBonusCredits, "welcome bonus credits")
	fs.Uint64Var(&config.TxMaxRetries, "r", config.TxMaxRetries, "max transaction retries on conflict")
	reconcileInterval := fs.Int("i", int(config.ReconcileInterval.Minutes()), "reconcile interval (in minutes)")
	fs.StringVar(&config.LogLevel, "l", config.LogLevel, "log level")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}

	config.ReconcileInterval = time.Duration(*reconcileInterval) * time.Minute
}
