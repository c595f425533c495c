package admin

import (
	"net/http"
	"strings"

	"github.com/velstore/storefront-edge/internal/httputil"
)

// TokenVerifier validates admin session tokens
type TokenVerifier interface {
	VerifyToken(token string) (*TokenClaims, error)
}

// Middleware guards the admin routes
type Middleware struct {
	tokens TokenVerifier
}

func NewMiddleware(tokens TokenVerifier) *Middleware {
	return &Middleware{tokens: tokens}
}

// RequireAdmin validates the bearer token on admin routes
func (m *Middleware) RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			httputil.RespondErrorWithCode(w, "missing authentication", httputil.CodeMissingAuth, http.StatusUnauthorized)
			return
		}

		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || parts[0] != "Bearer" {
			httputil.RespondErrorWithCode(w, "invalid authorization header format", httputil.CodeInvalidAuthHeader, http.StatusUnauthorized)
			return
		}

		if _, err := m.tokens.VerifyToken(parts[1]); err != nil {
			if err == ErrExpiredToken {
				httputil.RespondErrorWithCode(w, "token has expired", httputil.CodeTokenExpired, http.StatusUnauthorized)
				return
			}
			httputil.RespondErrorWithCode(w, "invalid token", httputil.CodeInvalidToken, http.StatusUnauthorized)
			return
		}

		next.ServeHTTP(w, r)
	})
}
