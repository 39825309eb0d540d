package ctl

import (
	"bytes"
	"fmt"
	"io"
	"net/http"

	"github.com/dmitrijs2005/gophcredits/internal/common"
	"github.com/dmitrijs2005/gophcredits/internal/server/payments"
	"github.com/spf13/cobra"
)

func newWebhookCmd(o *rootOptions) *cobra.Command {
	var (
		url           string
		eventType     string
		paymentStatus string
	)

	cmd := &cobra.Command{
		Use:   "webhook SESSION_ID",
		Short: "Send a signed checkout event to the webhook endpoint",
		Long: `Sign a checkout session event with the webhook secret and post it to the
server. Sessions opened through the local gateway are settled this way.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := o.config()
			if err != nil {
				return err
			}

			body, signature, err := payments.SignEvent(cfg.StripeWebhookSecret, eventType, args[0], paymentStatus)
			if err != nil {
				return err
			}

			req, err := http.NewRequestWithContext(cmd.Context(), http.MethodPost, url, bytes.NewReader(body))
			if err != nil {
				return err
			}
			req.Header.Set("Content-Type", "application/json")
			req.Header.Set(common.StripeSignatureHeaderName, signature)

			resp, err := http.DefaultClient.Do(req)
			if err != nil {
				return err
			}
			defer resp.Body.Close()

			respBody, err := io.ReadAll(resp.Body)
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "%d %s\n", resp.StatusCode, bytes.TrimSpace(respBody))
			if resp.StatusCode >= http.StatusMultipleChoices {
				return fmt.Errorf("webhook rejected with status %d", resp.StatusCode)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&url, "url", "http://localhost:8080/api/v1/webhooks/stripe", "webhook endpoint")
	cmd.Flags().StringVar(&eventType, "type", payments.EventCheckoutCompleted, "event type")
	cmd.Flags().StringVar(&paymentStatus, "payment-status", "paid", "payment status of the session")
	return cmd
}
