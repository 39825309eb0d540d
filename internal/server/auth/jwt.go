// Package auth issues and verifies the HS256 JWTs that identify callers of
// the HTTP API and the debit RPC.
package auth

import (
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/dmitrijs2005/gophcredits/internal/common"
	"github.com/golang-jwt/jwt/v5"
)

// ScopeDebit allows a service to debit any user's credits over gRPC.
const ScopeDebit = "credits:debit"

// Claims holds the registered claims plus the caller's user id and scopes.
type Claims struct {
	jwt.RegisteredClaims
	UserID string
	Scopes []string `json:"scopes,omitempty"`
}

// Identity is the verified content of a token.
type Identity struct {
	UserID string
	Scopes []string
}

func (i *Identity) HasScope(scope string) bool {
	return slices.Contains(i.Scopes, scope)
}

func GenerateToken(userID string, secretKey []byte, validityDuration time.Duration, scopes ...string) (string, error) {
	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(validityDuration)),
		},
		UserID: userID,
		Scopes: scopes,
	})

	tokenString, err := token.SignedString(secretKey)
	if err != nil {
		return "", err
	}

	return tokenString, nil
}

// ParseToken verifies tokenString. Expired tokens yield common.ErrTokenExpired;
// every other failure wraps common.ErrInvalidToken.
func ParseToken(tokenString string, secretKey []byte) (*Identity, error) {
	claims := &Claims{}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		return secretKey, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, common.ErrTokenExpired
		}
		return nil, fmt.Errorf("%w: %v", common.ErrInvalidToken, err)
	}

	if !token.Valid || claims.UserID == "" {
		return nil, common.ErrInvalidToken
	}

	return &Identity{UserID: claims.UserID, Scopes: claims.Scopes}, nil
}

func GetUserIDFromToken(tokenString string, secretKey []byte) (string, error) {
	id, err := ParseToken(tokenString, secretKey)
	if err != nil {
		return "", err
	}
	return id.UserID, nil
}
