package models

type UserRole string

const (
	RoleViewer   UserRole = "viewer"
	RoleOperator UserRole = "operator"
	RoleAdmin    UserRole = "admin"
)

var roleRank = map[UserRole]int{
	RoleViewer:   1,
	RoleOperator: 2,
	RoleAdmin:    3,
}

type User struct {
	ID           string     `json:"id"`
	Email        string     `json:"email"`
	FirstName    string     `json:"first_name"`
	LastName     string     `json:"last_name"`
	PasswordHash string     `json:"-"`
	IsActive     bool       `json:"is_active"`
	Roles        []UserRole `json:"roles"`
}

// NormalizeRoles deduplicates and drops unknown roles.
func NormalizeRoles(roles []UserRole) []UserRole {
	seen := make(map[UserRole]bool, len(roles))
	var out []UserRole
	for _, r := range roles {
		if _, known := roleRank[r]; !known || seen[r] {
			continue
		}
		seen[r] = true
		out = append(out, r)
	}
	return out
}

// EnsureDefaultRole guarantees every user carries at least the viewer role.
func EnsureDefaultRole(roles []UserRole) []UserRole {
	if len(roles) == 0 {
		return []UserRole{RoleViewer}
	}
	return roles
}

func IsValidRole(role UserRole) bool {
	_, ok := roleRank[role]
	return ok
}

func IsValidRoleList(roles []UserRole) bool {
	if len(roles) == 0 {
		return false
	}
	for _, r := range roles {
		if _, ok := roleRank[r]; !ok {
			return false
		}
	}
	return true
}

// HighestRole returns the most privileged role in the list.
func HighestRole(roles []UserRole) UserRole {
	highest := RoleViewer
	for _, r := range roles {
		if roleRank[r] > roleRank[highest] {
			highest = r
		}
	}
	return highest
}

// HasAtLeast reports whether any held role meets the required tier.
func HasAtLeast(roles []UserRole, required UserRole) bool {
	for _, r := range roles {
		if roleRank[r] >= roleRank[required] {
			return true
		}
	}
	return false
}
