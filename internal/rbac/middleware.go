// Package rbac enforces role based access for HTTP routes.
package rbac

import (
	"log/slog"
	"net/http"

	"github.com/decagraff/lc-service/internal/platform/httpx"
	"github.com/decagraff/lc-service/internal/shared"
)

// Middleware wires role authorization helpers for HTTP handlers.
type Middleware struct {
	Logger *slog.Logger
}

// RequireRole ensures the current user holds one of the given roles.
func (m Middleware) RequireRole(roles ...shared.Role) func(http.Handler) http.Handler {
	allowed := make(map[shared.Role]struct{}, len(roles))
	for _, r := range roles {
		allowed[r] = struct{}{}
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			actor, ok := shared.ActorFromContext(r.Context())
			if !ok {
				httpx.Fail(w, http.StatusUnauthorized, "authentication required")
				return
			}
			if len(allowed) == 0 {
				next.ServeHTTP(w, r)
				return
			}
			if _, ok := allowed[actor.Role]; !ok {
				if m.Logger != nil {
					m.Logger.Warn("role denied", slog.String("path", r.URL.Path), slog.String("role", string(actor.Role)))
				}
				httpx.Fail(w, http.StatusForbidden, "insufficient role")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireUser ensures a session user exists, regardless of role.
func (m Middleware) RequireUser() func(http.Handler) http.Handler {
	return m.RequireRole(shared.RoleAdmin, shared.RoleVendedor, shared.RoleCliente)
}
