package server

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"lookout/internal/auth"
)

// claimsKey is the context key carrying the authenticated user's claims.
type claimsKey struct{}

// requireToken guards the API behind a Bearer token when auth is enabled.
// Validated claims travel in the request context so handlers can name the
// acting user.
func (s *Server) requireToken(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !s.deps.Auth.IsEnabled() {
			next.ServeHTTP(w, r)
			return
		}

		token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
		if !ok || token == "" {
			writeError(w, http.StatusUnauthorized, "missing or malformed authorization header")
			return
		}

		claims, err := s.deps.Auth.ValidateToken(token)
		if err != nil {
			msg := "invalid token"
			if errors.Is(err, auth.ErrExpiredToken) {
				msg = "token has expired"
			}
			writeError(w, http.StatusUnauthorized, msg)
			return
		}

		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), claimsKey{}, claims)))
	})
}

// requestUser names the authenticated user, or "anonymous" when auth is
// disabled.
func requestUser(ctx context.Context) string {
	if claims, ok := ctx.Value(claimsKey{}).(*auth.Claims); ok {
		return claims.Username
	}
	return "anonymous"
}
