package authz

import (
	"context"
	"net/http"

	"github.com/driftsync/driftsync-api/internal/models"
)

// Identity is the authenticated caller, as established by the JWT
// middleware.
type Identity struct {
	UserID string
	Roles  []models.UserRole
}

type identityKey struct{}

// WithIdentity stashes the caller identity on the context. Roles are
// normalized so downstream checks never see duplicates or an empty set.
func WithIdentity(ctx context.Context, userID string, roles []models.UserRole) context.Context {
	return context.WithValue(ctx, identityKey{}, Identity{
		UserID: userID,
		Roles:  models.EnsureDefaultRole(models.NormalizeRoles(roles)),
	})
}

func IdentityFromRequest(r *http.Request) (Identity, bool) {
	id, ok := r.Context().Value(identityKey{}).(Identity)
	return id, ok
}

func RolesFromRequest(r *http.Request) ([]models.UserRole, bool) {
	id, ok := IdentityFromRequest(r)
	if !ok || !models.IsValidRoleList(id.Roles) {
		return nil, false
	}
	return id.Roles, true
}
