package middleware

import (
	"log/slog"
	"net/http"

	"github.com/frahmantamala/expense-approval/internal/auth"
)

// RequireRole gates a route to users holding one of the given roles. The
// per-expense approver check still happens in the service layer; this only
// keeps plain employees off the approval endpoints.
func RequireRole(roles ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user, ok := auth.UserFromContext(r.Context())
			if !ok || user == nil {
				http.Error(w, "Unauthorized", http.StatusUnauthorized)
				return
			}

			if !user.HasAnyRole(roles...) {
				slog.Warn("access denied: user lacks required role",
					"user_id", user.ID,
					"user_role", user.Role,
					"required_roles", roles)
				http.Error(w, "Forbidden: insufficient role", http.StatusForbidden)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
