package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/dmitrijs2005/gophcredits/internal/flagx"
	"github.com/dmitrijs2005/gophcredits/internal/timex"
)

// FileConfig is the on-disk shape of the configuration, decoded from JSON or
// TOML depending on the file extension. Unset fields keep their previous
// value; pointer fields distinguish an explicit zero from absence.
type FileConfig struct {
	EndpointAddrHTTP    string          `json:"endpoint_addr_http" toml:"endpoint_addr_http"`
	EndpointAddrGRPC    string          `json:"endpoint_addr_grpc" toml:"endpoint_addr_grpc"`
	DatabaseDSN         string          `json:"database_dsn" toml:"database_dsn"`
	SecretKey           string          `json:"secret_key" toml:"secret_key"`
	LogLevel            string          `json:"log_level" toml:"log_level"`
	StripeSecretKey     string          `json:"stripe_secret_key" toml:"stripe_secret_key"`
	StripeWebhookSecret string          `json:"stripe_webhook_secret" toml:"stripe_webhook_secret"`
	CheckoutSuccessURL  string          `json:"checkout_success_url" toml:"checkout_success_url"`
	CheckoutCancelURL   string          `json:"checkout_cancel_url" toml:"checkout_cancel_url"`
	Currency            string          `json:"currency" toml:"currency"`
	WelcomeBonusCredits *int64          `json:"welcome_bonus_credits" toml:"welcome_bonus_credits"`
	TxMaxRetries        *uint64         `json:"tx_max_retries" toml:"tx_max_retries"`
	TxRetryBaseDelay    *timex.Duration `json:"tx_retry_base_delay" toml:"tx_retry_base_delay"`
	ReconcileInterval   *timex.Duration `json:"reconcile_interval" toml:"reconcile_interval"`
	S3RootUser          string          `json:"s3_root_user" toml:"s3_root_user"`
	S3RootPassword      string          `json:"s3_root_password" toml:"s3_root_password"`
	S3Bucket            string          `json:"s3_bucket" toml:"s3_bucket"`
	S3Region            string          `json:"s3_region" toml:"s3_region"`
	S3BaseEndpoint      string          `json:"s3_base_endpoint" toml:"s3_base_endpoint"`
}

// parseFile loads configuration values from the file named by -c/-config
// (or CREDITS_CONFIG) into config. An unreadable or malformed file panics,
// matching flag parsing.
func parseFile(config *Config) {
	path := flagx.ConfigFileFlag()
	if path == "" {
		return
	}

	if err := LoadFile(path, config); err != nil {
		panic(err)
	}
}

// LoadFile overlays the values set in the file at path onto config. Files
// ending in .toml are decoded as TOML, everything else as JSON.
func LoadFile(path string, config *Config) error {
	c := &FileConfig{}

	if strings.EqualFold(filepath.Ext(path), ".toml") {
		if _, err := toml.DecodeFile(path, c); err != nil {
			return err
		}
	} else {
		file, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		if err := json.Unmarshal(file, c); err != nil {
			return err
		}
	}

	c.apply(config)
	return nil
}

func (c *FileConfig) apply(config *Config) {
	setString(&config.EndpointAddrHTTP, c.EndpointAddrHTTP)
	setString(&config.EndpointAddrGRPC, c.EndpointAddrGRPC)
	setString(&config.DatabaseDSN, c.DatabaseDSN)
	setString(&config.SecretKey, c.SecretKey)
	setString(&config.LogLevel, c.LogLevel)
	setString(&config.StripeSecretKey, c.StripeSecretKey)
	setString(&config.StripeWebhookSecret, c.StripeWebhookSecret)
	setString(&config.CheckoutSuccessURL, c.CheckoutSuccessURL)
	setString(&config.CheckoutCancelURL, c.CheckoutCancelURL)
	setString(&config.Currency, c.Currency)
	setString(&config.S3RootUser, c.S3RootUser)
	setString(&config.S3RootPassword, c.S3RootPassword)
	setString(&config.S3Bucket, c.S3Bucket)
	setString(&config.S3Region, c.S3Region)
	setString(&config.S3BaseEndpoint, c.S3BaseEndpoint)

	if c.WelcomeBonusCredits != nil {
		config.WelcomeBonusCredits = *c.WelcomeBonusCredits
	}
	if c.TxMaxRetries != nil {
		config.TxMaxRetries = *c.TxMaxRetries
	}
	if c.TxRetryBaseDelay != nil {
		config.TxRetryBaseDelay = c.TxRetryBaseDelay.Duration
	}
	if c.ReconcileInterval != nil {
		config.ReconcileInterval = c.ReconcileInterval.Duration
	}
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}
