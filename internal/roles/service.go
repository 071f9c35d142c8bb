package roles

import (
	"context"
	"fmt"

	"github.com/gatehouse/gatehouse/internal/rbac"
	"github.com/gatehouse/gatehouse/internal/shared"
)

// Repository defines persistence operations for roles and permissions.
type Repository interface {
	List(ctx context.Context) ([]Role, error)
	FindByID(ctx context.Context, id int64) (Role, error)
	Insert(ctx context.Context, name string) (Role, error)
	Rename(ctx context.Context, id int64, name string) error
	// Delete removes the role and its permission grants together.
	Delete(ctx context.Context, id int64) error
	ListUsers(ctx context.Context, roleName string) ([]RoleUser, error)
	ListRolePermissions(ctx context.Context, roleName string) ([]string, error)
	InsertPermission(ctx context.Context, action string) (Permission, error)
	ListPermissions(ctx context.Context) ([]Permission, error)
}

// Service handles role and permission business rules.
type Service struct {
	repo Repository
}

// NewService builds a Service instance.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// List returns all roles. Requires the Read permission.
func (s *Service) List(ctx context.Context, ac *shared.AuthContext) ([]Role, error) {
	if err := ac.RequirePermission(rbac.ActionRead); err != nil {
		return nil, err
	}
	return s.repo.List(ctx)
}

// Create inserts a new role. Administrators only.
func (s *Service) Create(ctx context.Context, ac *shared.AuthContext, name string) (Role, error) {
	if err := ac.RequireRole(rbac.RoleAdmin); err != nil {
		return Role{}, err
	}
	return s.repo.Insert(ctx, name)
}

// Rename changes a role's name. Administrators only; the Admin role is
// immutable.
func (s *Service) Rename(ctx context.Context, ac *shared.AuthContext, id int64, name string) error {
	if err := ac.RequireRole(rbac.RoleAdmin); err != nil {
		return err
	}
	role, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return err
	}
	if role.Name == rbac.RoleAdmin {
		return fmt.Errorf("%w: the %s role cannot be renamed", shared.ErrProtectedRole, rbac.RoleAdmin)
	}
	return s.repo.Rename(ctx, id, name)
}

// Delete removes a role and its grants. Administrators only; the Admin
// role is non-deletable.
func (s *Service) Delete(ctx context.Context, ac *shared.AuthContext, id int64) error {
	if err := ac.RequireRole(rbac.RoleAdmin); err != nil {
		return err
	}
	role, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return err
	}
	if role.Name == rbac.RoleAdmin {
		return fmt.Errorf("%w: the %s role cannot be deleted", shared.ErrProtectedRole, rbac.RoleAdmin)
	}
	return s.repo.Delete(ctx, id)
}

// Users lists the members of a role. Administrators only.
func (s *Service) Users(ctx context.Context, ac *shared.AuthContext, roleName string) ([]RoleUser, error) {
	if err := ac.RequireRole(rbac.RoleAdmin); err != nil {
		return nil, err
	}
	return s.repo.ListUsers(ctx, roleName)
}

// Permissions lists the actions granted to a role. Administrators only.
func (s *Service) Permissions(ctx context.Context, ac *shared.AuthContext, roleName string) ([]string, error) {
	if err := ac.RequireRole(rbac.RoleAdmin); err != nil {
		return nil, err
	}
	return s.repo.ListRolePermissions(ctx, roleName)
}

// CreatePermission inserts a new permission action. Administrators only.
// Nothing grants dynamically created actions automatically.
func (s *Service) CreatePermission(ctx context.Context, ac *shared.AuthContext, action string) (Permission, error) {
	if err := ac.RequireRole(rbac.RoleAdmin); err != nil {
		return Permission{}, err
	}
	return s.repo.InsertPermission(ctx, action)
}

// ListPermissions returns the permission vocabulary. Requires the Read
// permission.
func (s *Service) ListPermissions(ctx context.Context, ac *shared.AuthContext) ([]Permission, error) {
	if err := ac.RequirePermission(rbac.ActionRead); err != nil {
		return nil, err
	}
	return s.repo.ListPermissions(ctx)
}
