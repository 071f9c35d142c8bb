package users

import (
	"context"
	"fmt"
	"strconv"

	"github.com/gatehouse/gatehouse/internal/auth"
	"github.com/gatehouse/gatehouse/internal/rbac"
	"github.com/gatehouse/gatehouse/internal/shared"
)

// Repository defines persistence operations for user accounts.
type Repository interface {
	List(ctx context.Context) ([]User, error)
	FindByID(ctx context.Context, id int64) (User, error)
	// CreateWithRole inserts the user and its first role assignment in one
	// transaction, so an account never exists without a role.
	CreateWithRole(ctx context.Context, name, email, digest, roleName string) (User, error)
	UpdateName(ctx context.Context, id int64, name string) error
	UpdateCredential(ctx context.Context, id int64, digest string) error
	// Delete removes the user's assignments and the account together.
	Delete(ctx context.Context, id int64) error
	HasRole(ctx context.Context, userID int64, roleName string) (bool, error)
}

// Service handles user account business rules.
type Service struct {
	repo   Repository
	hasher *auth.Hasher
}

// NewService builds a Service instance.
func NewService(repo Repository, hasher *auth.Hasher) *Service {
	return &Service{repo: repo, hasher: hasher}
}

// Create registers a new account with the Viewer role. Anonymous callers
// may self-register; an authenticated caller must be an administrator.
func (s *Service) Create(ctx context.Context, ac *shared.AuthContext, name, email, password string) (User, error) {
	if ac != nil {
		if err := ac.RequireRole(rbac.RoleAdmin); err != nil {
			return User{}, err
		}
	}
	return s.repo.CreateWithRole(ctx, name, email, s.hasher.Hash(password), rbac.RoleViewer)
}

// List returns all accounts. Requires the Read permission.
func (s *Service) List(ctx context.Context, ac *shared.AuthContext) ([]User, error) {
	if err := ac.RequirePermission(rbac.ActionRead); err != nil {
		return nil, err
	}
	return s.repo.List(ctx)
}

// Get returns one account. Requires the Read permission; administrator
// accounts are hidden from non-administrators.
func (s *Service) Get(ctx context.Context, ac *shared.AuthContext, id int64) (User, error) {
	if err := ac.RequirePermission(rbac.ActionRead); err != nil {
		return User{}, err
	}
	if !ac.HasRole(rbac.RoleAdmin) {
		isAdmin, err := s.repo.HasRole(ctx, id, rbac.RoleAdmin)
		if err != nil {
			return User{}, err
		}
		if isAdmin {
			return User{}, fmt.Errorf("%w: cannot view an administrator account", shared.ErrForbidden)
		}
	}
	return s.repo.FindByID(ctx, id)
}

// Delete removes an account and its assignments. Only an administrator,
// and never their own account.
func (s *Service) Delete(ctx context.Context, ac *shared.AuthContext, id int64) error {
	if err := ac.RequireRole(rbac.RoleAdmin); err != nil {
		return err
	}
	if ac.Subject == strconv.FormatInt(id, 10) {
		return fmt.Errorf("%w: administrators cannot delete themselves", shared.ErrSelfProtect)
	}
	return s.repo.Delete(ctx, id)
}

// UpdateName renames an account. Any authenticated caller.
func (s *Service) UpdateName(ctx context.Context, ac *shared.AuthContext, id int64, name string) error {
	if ac == nil {
		return fmt.Errorf("%w: token is required", shared.ErrUnauthenticated)
	}
	return s.repo.UpdateName(ctx, id, name)
}

// UpdatePassword replaces an account's credential digest. Allowed for the
// account owner or an administrator.
func (s *Service) UpdatePassword(ctx context.Context, ac *shared.AuthContext, id int64, password string) error {
	if ac == nil {
		return fmt.Errorf("%w: token is required", shared.ErrUnauthenticated)
	}
	if ac.Subject != strconv.FormatInt(id, 10) && !ac.HasRole(rbac.RoleAdmin) {
		return fmt.Errorf("%w: only the account owner or an administrator may change the password", shared.ErrForbidden)
	}
	if _, err := s.repo.FindByID(ctx, id); err != nil {
		return err
	}
	return s.repo.UpdateCredential(ctx, id, s.hasher.Hash(password))
}
