package shared

import "fmt"

// AuthContext is the per-request authorization context derived from a
// verified session token: the subject plus the role and permission sets
// resolved at verification time.
type AuthContext struct {
	Subject     string
	Roles       map[string]struct{}
	Permissions map[string]struct{}
}

// NewAuthContext builds a context from a subject and its role and permission lists.
func NewAuthContext(subject string, roles, permissions []string) *AuthContext {
	ctx := &AuthContext{
		Subject:     subject,
		Roles:       make(map[string]struct{}, len(roles)),
		Permissions: make(map[string]struct{}, len(permissions)),
	}
	for _, r := range roles {
		ctx.Roles[r] = struct{}{}
	}
	for _, p := range permissions {
		ctx.Permissions[p] = struct{}{}
	}
	return ctx
}

// HasRole reports whether the subject holds the named role.
func (a *AuthContext) HasRole(name string) bool {
	if a == nil {
		return false
	}
	_, ok := a.Roles[name]
	return ok
}

// HasPermission reports whether the subject holds the named permission action.
func (a *AuthContext) HasPermission(action string) bool {
	if a == nil {
		return false
	}
	_, ok := a.Permissions[action]
	return ok
}

// RequireRole returns ErrForbidden unless the subject holds the named role.
func (a *AuthContext) RequireRole(name string) error {
	if !a.HasRole(name) {
		return fmt.Errorf("%w: %s role required", ErrForbidden, name)
	}
	return nil
}

// RequirePermission returns ErrForbidden unless the subject holds the named action.
func (a *AuthContext) RequirePermission(action string) error {
	if !a.HasPermission(action) {
		return fmt.Errorf("%w: %s permission required", ErrForbidden, action)
	}
	return nil
}

// RoleNames returns the role set as a slice.
func (a *AuthContext) RoleNames() []string {
	if a == nil {
		return nil
	}
	names := make([]string, 0, len(a.Roles))
	for r := range a.Roles {
		names = append(names, r)
	}
	return names
}
