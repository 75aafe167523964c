package auth

import (
	"log/slog"
	"net/http"
)

// RBACAuthorization gates routes on permissions derived from the session
// user's stored role. It deliberately ignores any client-asserted or
// simulated role; the shared role → permission table is the only source.
type RBACAuthorization struct {
	logger *slog.Logger
}

func NewRBACAuthorization(logger *slog.Logger) *RBACAuthorization {
	return &RBACAuthorization{logger: logger}
}

func (ra *RBACAuthorization) Require(permission string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user, ok := UserFromContext(r.Context())
			if !ok || user == nil {
				ra.logger.Warn("authorization check failed: user not found in context")
				http.Error(w, "Unauthorized", http.StatusUnauthorized)
				return
			}

			if !user.HasPermission(permission) {
				ra.logger.WarnContext(r.Context(), "access denied: insufficient permissions",
					"user_id", user.ID,
					"role", user.Role,
					"required_permission", permission)
				http.Error(w, "Forbidden: insufficient permissions", http.StatusForbidden)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func (ra *RBACAuthorization) RequireApproveReservists() func(http.Handler) http.Handler {
	return ra.Require(PermApproveReservists)
}

func (ra *RBACAuthorization) RequireViewAuditLogs() func(http.Handler) http.Handler {
	return ra.Require(PermViewAuditLogs)
}
