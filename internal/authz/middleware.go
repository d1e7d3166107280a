package authz

import (
	"net/http"

	"github.com/driftsync/driftsync-api/internal/models"
)

// RequireRole gates a route on the caller holding at least the given role
// tier. Viewer < operator < admin.
func RequireRole(required models.UserRole) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if roles, ok := RolesFromRequest(r); !ok || !models.HasAtLeast(roles, required) {
				http.Error(w, "insufficient permissions", http.StatusForbidden)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
