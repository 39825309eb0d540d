package httpapi

import (
	"context"
	"net/http"
	"strings"

	"github.com/dmitrijs2005/gophcredits/internal/common"
	"github.com/dmitrijs2005/gophcredits/internal/server/auth"
)

const bearerPrefix = "Bearer "

type ctxKey string

const identityKey ctxKey = "identity"

// RequireAuth rejects requests without a valid bearer token and stores the
// caller's identity in the request context.
func (h *Handler) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get(common.AuthorizationHeaderName)
		if !strings.HasPrefix(header, bearerPrefix) {
			h.writeError(w, r, common.ErrorUnauthorized)
			return
		}

		id, err := auth.ParseToken(strings.TrimPrefix(header, bearerPrefix), h.jwtSecret)
		if err != nil {
			h.writeError(w, r, err)
			return
		}

		ctx := context.WithValue(r.Context(), identityKey, id)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func identityFromContext(ctx context.Context) (*auth.Identity, bool) {
	id, ok := ctx.Value(identityKey).(*auth.Identity)
	return id, ok
}

// resolveUser maps the {userID} path segment to the caller. "me" is the
// caller; any other user's id is forbidden.
func resolveUser(ctx context.Context, pathUserID string) (string, error) {
	id, ok := identityFromContext(ctx)
	if !ok {
		return "", common.ErrorUnauthorized
	}
	if pathUserID == "me" || pathUserID == id.UserID {
		return id.UserID, nil
	}
	return "", common.ErrorForbidden
}
