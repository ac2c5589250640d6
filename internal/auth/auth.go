// Package auth reads the caller identity forwarded by the API gateway. Tokens
// are verified upstream; the service only trusts the gateway headers.
package auth

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/vasiliy-maslov/ecommerce-microservices/storefront/internal/user"
)

const (
	HeaderUserEmail = "X-User-Email"
	HeaderUserRole  = "X-User-Role"
)

type Principal struct {
	Email string
	Role  user.Role
}

func (p Principal) IsAdmin() bool {
	return p.Role == user.RoleAdmin
}

type principalKey struct{}

func WithPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, principalKey{}, p)
}

func FromContext(ctx context.Context) (Principal, bool) {
	p, ok := ctx.Value(principalKey{}).(Principal)
	return p, ok
}

// Middleware rejects requests without a forwarded identity with 401.
// A missing role header means USER.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		email := strings.TrimSpace(r.Header.Get(HeaderUserEmail))
		if email == "" {
			log.Warn().Str("path", r.URL.Path).Msg("auth: request without user identity")
			writeError(w, http.StatusUnauthorized, "Authentication required")
			return
		}

		role := user.Role(strings.ToUpper(strings.TrimSpace(r.Header.Get(HeaderUserRole))))
		if role == "" {
			role = user.RoleUser
		}

		ctx := WithPrincipal(r.Context(), Principal{Email: email, Role: role})
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequireRole lets through principals holding one of roles and answers 403
// otherwise. It must run after Middleware.
func RequireRole(roles ...user.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			p, ok := FromContext(r.Context())
			if !ok {
				writeError(w, http.StatusUnauthorized, "Authentication required")
				return
			}
			for _, role := range roles {
				if p.Role == role {
					next.ServeHTTP(w, r)
					return
				}
			}

			log.Warn().Str("email", p.Email).Str("role", string(p.Role)).Str("path", r.URL.Path).Msg("auth: access denied")
			writeError(w, http.StatusForbidden, "Access denied")
		})
	}
}

func writeError(w http.ResponseWriter, code int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": message})
}
