// Package httpapi is the public HTTP API of the credits server: balances,
// history, checkout, the package catalog and the payment webhook.
package httpapi

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/dmitrijs2005/gophcredits/internal/common"
	"github.com/dmitrijs2005/gophcredits/internal/logging"
	"github.com/dmitrijs2005/gophcredits/internal/server/metrics"
	"github.com/dmitrijs2005/gophcredits/internal/server/models"
	"github.com/dmitrijs2005/gophcredits/internal/server/services"
	"github.com/gorilla/mux"
)

// maxWebhookBody bounds the webhook payload read into memory.
const maxWebhookBody = 1 << 20

type Handler struct {
	db         *sql.DB
	accounts   *services.AccountService
	checkout   *services.CheckoutService
	settlement *services.SettlementService
	history    *services.HistoryService
	metrics    *metrics.Metrics
	jwtSecret  []byte
	log        logging.Logger
}

func NewHandler(db *sql.DB, accounts *services.AccountService, checkout *services.CheckoutService,
	settlement *services.SettlementService, history *services.HistoryService, m *metrics.Metrics,
	secretKey string, log logging.Logger) *Handler {
	return &Handler{
		db:         db,
		accounts:   accounts,
		checkout:   checkout,
		settlement: settlement,
		history:    history,
		metrics:    m,
		jwtSecret:  []byte(secretKey),
		log:        log.With("module", "http"),
	}
}

type balanceResponse struct {
	UserID  string `json:"userId"`
	Credits int64  `json:"credits"`
}

func (h *Handler) GetBalance(w http.ResponseWriter, r *http.Request) {
	userID, err := resolveUser(r.Context(), mux.Vars(r)["userID"])
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	acct, err := h.accounts.GetBalance(r.Context(), userID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	writeJSON(r.Context(), h.log, w, http.StatusOK, balanceResponse{UserID: acct.UserID, Credits: acct.Credits})
}

type transactionResponse struct {
	ID            string          `json:"id"`
	Type          string          `json:"type"`
	Credits       int64           `json:"credits"`
	BalanceBefore int64           `json:"balanceBefore"`
	BalanceAfter  int64           `json:"balanceAfter"`
	Description   string          `json:"description"`
	Metadata      models.Metadata `json:"metadata"`
	CreatedAt     time.Time       `json:"createdAt"`
}

type historyResponse struct {
	Items   []transactionResponse `json:"items"`
	HasMore bool                  `json:"hasMore"`
	Cursor  string                `json:"cursor,omitempty"`
}

func (h *Handler) ListTransactions(w http.ResponseWriter, r *http.Request) {
	userID, err := resolveUser(r.Context(), mux.Vars(r)["userID"])
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	q := r.URL.Query()
	limit := 0
	if s := q.Get("limit"); s != "" {
		limit, err = strconv.Atoi(s)
		if err != nil || limit < 1 {
			h.writeError(w, r, fmt.Errorf("%w: limit must be a positive integer", common.ErrorValidation))
			return
		}
	}

	page, err := h.history.ListTransactions(r.Context(), userID, limit, q.Get("cursor"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	resp := historyResponse{
		Items:   make([]transactionResponse, 0, len(page.Items)),
		HasMore: page.HasMore,
		Cursor:  page.Cursor,
	}
	for _, t := range page.Items {
		resp.Items = append(resp.Items, transactionResponse{
			ID:            t.ID,
			Type:          string(t.Type),
			Credits:       t.Credits,
			BalanceBefore: t.BalanceBefore,
			BalanceAfter:  t.BalanceAfter,
			Description:   t.Description,
			Metadata:      t.Metadata,
			CreatedAt:     t.CreatedAt,
		})
	}
	writeJSON(r.Context(), h.log, w, http.StatusOK, resp)
}

type checkoutRequest struct {
	PackageID string `json:"packageId"`
}

type checkoutResponse struct {
	SessionID   string `json:"sessionId"`
	RedirectURL string `json:"redirectUrl"`
}

func (h *Handler) CreateCheckout(w http.ResponseWriter, r *http.Request) {
	id, ok := identityFromContext(r.Context())
	if !ok {
		h.writeError(w, r, common.ErrorUnauthorized)
		return
	}

	var req checkoutRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, r, fmt.Errorf("%w: invalid request body", common.ErrorValidation))
		return
	}

	res, err := h.checkout.CreateSession(r.Context(), id.UserID, req.PackageID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	writeJSON(r.Context(), h.log, w, http.StatusOK, checkoutResponse{SessionID: res.SessionID, RedirectURL: res.RedirectURL})
}

type packageResponse struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Credits   int64  `json:"credits"`
	AmountDue int64  `json:"amountDue"`
	Currency  string `json:"currency"`
}

func (h *Handler) ListPackages(w http.ResponseWriter, r *http.Request) {
	pkgs, err := h.checkout.ListPackages(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	resp := make([]packageResponse, 0, len(pkgs))
	for _, p := range pkgs {
		resp = append(resp, packageResponse{ID: p.ID, Name: p.Name, Credits: p.Credits, AmountDue: p.AmountDue, Currency: p.Currency})
	}
	writeJSON(r.Context(), h.log, w, http.StatusOK, resp)
}

type webhookResponse struct {
	Received bool   `json:"received"`
	Outcome  string `json:"outcome"`
}

// HandleStripeWebhook answers 400 for unauthenticated or malformed events,
// 500 when settlement could not commit, and 200 for everything else.
func (h *Handler) HandleStripeWebhook(w http.ResponseWriter, r *http.Request) {
	payload, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxWebhookBody))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			h.writeError(w, r, fmt.Errorf("%w: payload too large", common.ErrorValidation))
			return
		}
		h.writeError(w, r, fmt.Errorf("%w: failed to read body", common.ErrorValidation))
		return
	}

	outcome, err := h.settlement.HandleEvent(r.Context(), payload, r.Header.Get(common.StripeSignatureHeaderName))
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	writeJSON(r.Context(), h.log, w, http.StatusOK, webhookResponse{Received: true, Outcome: string(outcome)})
}

func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	if err := h.db.PingContext(r.Context()); err != nil {
		h.log.Warn(r.Context(), "health check failed", "error", err)
		writeJSON(r.Context(), h.log, w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
		return
	}
	writeJSON(r.Context(), h.log, w, http.StatusOK, map[string]string{"status": "ok"})
}
