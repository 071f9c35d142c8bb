package rbac

import (
	"context"
	"fmt"

	"github.com/gatehouse/gatehouse/internal/platform/cache"
	"github.com/gatehouse/gatehouse/internal/shared"
)

// Repository defines persistence operations for the assignment graph.
type Repository interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
	FindUserIDByName(ctx context.Context, name string) (int64, error)
	FindRoleIDByName(ctx context.Context, name string) (int64, error)
	FindPermissionIDByAction(ctx context.Context, action string) (int64, error)
	AssignUserRole(ctx context.Context, userID, roleID int64) error
	AssignRolePermission(ctx context.Context, roleID, permissionID int64) error
	ReassignUserRole(ctx context.Context, userID, currentRoleID, newRoleID int64) error
	PermissionsForRoles(ctx context.Context, roleNames []string) ([]string, error)
	UserRolePermissions(ctx context.Context, userID int64) ([]RolePermissions, error)
}

// TxRepository is the slice of the repository visible inside a guarded
// transaction. The cardinality re-check and the delete run through it so
// both happen under one transaction.
type TxRepository interface {
	CountUserRoles(ctx context.Context, userID int64) (int64, error)
	RemoveUserRole(ctx context.Context, userID, roleID int64) error
	CountRolePermissions(ctx context.Context, roleID int64) (int64, error)
	RemoveRolePermission(ctx context.Context, roleID, permissionID int64) error
}

// Service orchestrates assignment mutations and permission resolution.
type Service struct {
	repo  Repository
	cache *cache.Cache
}

// NewService constructs a Service. The cache may be nil; resolution then
// always hits storage.
func NewService(repo Repository, c *cache.Cache) *Service {
	return &Service{repo: repo, cache: c}
}

// PermissionsForRoles returns the de-duplicated union of actions granted
// to any of the given roles. Unknown role names contribute nothing. Each
// role's action list is cached individually under a short TTL, kept well
// below the token lifetime.
func (s *Service) PermissionsForRoles(ctx context.Context, roleNames []string) ([]string, error) {
	seen := make(map[string]struct{})
	var perms []string
	for _, role := range roleNames {
		role := role
		var actions []string
		err := s.cache.FetchJSON(ctx, "rbac:perms:"+role, &actions, func(ctx context.Context) (interface{}, error) {
			return s.repo.PermissionsForRoles(ctx, []string{role})
		})
		if err != nil {
			return nil, err
		}
		for _, action := range actions {
			if _, ok := seen[action]; ok {
				continue
			}
			seen[action] = struct{}{}
			perms = append(perms, action)
		}
	}
	return perms, nil
}

// AssignUserRole grants a role to a user. The Admin role cannot be granted
// through assignment; the caller needs the Update permission.
func (s *Service) AssignUserRole(ctx context.Context, ac *shared.AuthContext, username, roleName string) error {
	if roleName == RoleAdmin {
		return fmt.Errorf("%w: the %s role cannot be assigned", shared.ErrProtectedRole, RoleAdmin)
	}
	if err := ac.RequirePermission(ActionUpdate); err != nil {
		return err
	}
	userID, err := s.repo.FindUserIDByName(ctx, username)
	if err != nil {
		return err
	}
	roleID, err := s.repo.FindRoleIDByName(ctx, roleName)
	if err != nil {
		return err
	}
	return s.repo.AssignUserRole(ctx, userID, roleID)
}

// RemoveUserRole revokes a role from a user. Guard order follows the
// original flow: protected role, cardinality, then capability. The count
// is re-checked inside the transaction right before the delete.
func (s *Service) RemoveUserRole(ctx context.Context, ac *shared.AuthContext, username, roleName string) error {
	if roleName == RoleAdmin {
		return fmt.Errorf("%w: the %s role cannot be removed", shared.ErrProtectedRole, RoleAdmin)
	}
	userID, err := s.repo.FindUserIDByName(ctx, username)
	if err != nil {
		return err
	}
	roleID, err := s.repo.FindRoleIDByName(ctx, roleName)
	if err != nil {
		return err
	}
	if err := ac.RequirePermission(ActionDelete); err != nil {
		return err
	}
	return s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		count, err := tx.CountUserRoles(ctx, userID)
		if err != nil {
			return err
		}
		if count <= 1 {
			return fmt.Errorf("%w: a user keeps at least one role", shared.ErrMinCardinality)
		}
		return tx.RemoveUserRole(ctx, userID, roleID)
	})
}

// AssignRolePermission grants an action to a role. Requires the Create
// permission.
func (s *Service) AssignRolePermission(ctx context.Context, ac *shared.AuthContext, roleName, action string) error {
	if err := ac.RequirePermission(ActionCreate); err != nil {
		return err
	}
	roleID, err := s.repo.FindRoleIDByName(ctx, roleName)
	if err != nil {
		return err
	}
	permissionID, err := s.repo.FindPermissionIDByAction(ctx, action)
	if err != nil {
		return err
	}
	if err := s.repo.AssignRolePermission(ctx, roleID, permissionID); err != nil {
		return err
	}
	return s.invalidateRole(ctx, roleName)
}

// RemoveRolePermission revokes an action from a role. The Admin grant set
// never shrinks; every other role keeps at least one action. Only an
// administrator may do this.
func (s *Service) RemoveRolePermission(ctx context.Context, ac *shared.AuthContext, roleName, action string) error {
	if roleName == RoleAdmin {
		return fmt.Errorf("%w: the %s role grants cannot be reduced", shared.ErrProtectedRole, RoleAdmin)
	}
	roleID, err := s.repo.FindRoleIDByName(ctx, roleName)
	if err != nil {
		return err
	}
	permissionID, err := s.repo.FindPermissionIDByAction(ctx, action)
	if err != nil {
		return err
	}
	if err := ac.RequireRole(RoleAdmin); err != nil {
		return err
	}
	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		count, err := tx.CountRolePermissions(ctx, roleID)
		if err != nil {
			return err
		}
		if count <= 1 {
			return fmt.Errorf("%w: a role keeps at least one permission", shared.ErrMinCardinality)
		}
		return tx.RemoveRolePermission(ctx, roleID, permissionID)
	})
	if err != nil {
		return err
	}
	return s.invalidateRole(ctx, roleName)
}

// ReassignUserRole swaps one of a user's roles for another. Requires the
// Update permission; the new role must exist.
func (s *Service) ReassignUserRole(ctx context.Context, ac *shared.AuthContext, userID int64, currentRole, newRole string) error {
	if err := ac.RequirePermission(ActionUpdate); err != nil {
		return err
	}
	newRoleID, err := s.repo.FindRoleIDByName(ctx, newRole)
	if err != nil {
		return err
	}
	currentRoleID, err := s.repo.FindRoleIDByName(ctx, currentRole)
	if err != nil {
		return err
	}
	return s.repo.ReassignUserRole(ctx, userID, currentRoleID, newRoleID)
}

// UserRolePermissions reports the role → actions breakdown for one user.
// Requires the Read permission.
func (s *Service) UserRolePermissions(ctx context.Context, ac *shared.AuthContext, userID int64) ([]RolePermissions, error) {
	if err := ac.RequirePermission(ActionRead); err != nil {
		return nil, err
	}
	return s.repo.UserRolePermissions(ctx, userID)
}

func (s *Service) invalidateRole(ctx context.Context, roleName string) error {
	return s.cache.Invalidate(ctx, "rbac:perms:"+roleName)
}
