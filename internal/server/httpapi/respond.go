package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/dmitrijs2005/gophcredits/internal/common"
	"github.com/dmitrijs2005/gophcredits/internal/logging"
)

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(ctx context.Context, log logging.Logger, w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error(ctx, "failed to encode response", "error", err)
	}
}

// statusFor maps an error to its HTTP status and the message shown to the
// caller. Signature, contention and internal failures get generic messages.
func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, common.ErrorUnauthorized),
		errors.Is(err, common.ErrInvalidToken),
		errors.Is(err, common.ErrTokenExpired):
		return http.StatusUnauthorized, "unauthorized"
	case errors.Is(err, common.ErrorForbidden):
		return http.StatusForbidden, "forbidden"
	case errors.Is(err, common.ErrPackageNotFound):
		return http.StatusNotFound, err.Error()
	case errors.Is(err, common.ErrorValidation):
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, common.ErrSignatureVerification):
		return http.StatusBadRequest, "invalid signature"
	case errors.Is(err, common.ErrInsufficientCredits):
		return http.StatusPaymentRequired, err.Error()
	case errors.Is(err, common.ErrorNotFound):
		return http.StatusNotFound, "not found"
	case errors.Is(err, common.ErrPersistenceConflict):
		return http.StatusInternalServerError, "temporarily unavailable, retry later"
	default:
		return http.StatusInternalServerError, "internal server error"
	}
}

func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status, msg := statusFor(err)
	if status >= http.StatusInternalServerError {
		h.log.Error(r.Context(), "request failed", "method", r.Method, "path", r.URL.Path, "error", err)
	}
	writeJSON(r.Context(), h.log, w, status, errorResponse{Error: msg})
}
