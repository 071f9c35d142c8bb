package rbac

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/gatehouse/gatehouse/internal/auth"
)

// AdminEmail is the built-in administrator's address, fixed so the first
// login after a fresh bootstrap is well known.
const AdminEmail = "admin@test.com"

// seedGrants maps seeded roles to their initial permission actions.
var seedGrants = map[string][]string{
	RoleAdmin:  {ActionCreate, ActionUpdate, ActionDelete, ActionRead},
	RoleEditor: {ActionUpdate, ActionRead},
	RoleViewer: {ActionRead},
}

// seedRoles and seedPermissions fix the seed order.
var (
	seedRoles       = []string{RoleAdmin, RoleViewer, RoleEditor}
	seedPermissions = []string{ActionCreate, ActionUpdate, ActionDelete, ActionRead}
)

// Seeder is the storage surface the bootstrap needs.
type Seeder interface {
	AdminUserExists(ctx context.Context) (bool, error)
	InsertRole(ctx context.Context, name string) error
	InsertPermission(ctx context.Context, action string) error
	GrantRolePermission(ctx context.Context, roleName, action string) error
	InsertUserWithRole(ctx context.Context, name, email, digest, roleName string) error
}

// Bootstrap seeds the graph on first start: roles, permissions, grants,
// and the built-in administrator. A no-op when a user named "admin"
// (case-insensitive) already exists.
func Bootstrap(ctx context.Context, seeder Seeder, hasher *auth.Hasher, adminPassword string, logger *slog.Logger) error {
	exists, err := seeder.AdminUserExists(ctx)
	if err != nil {
		return fmt.Errorf("rbac: bootstrap check: %w", err)
	}
	if exists {
		if logger != nil {
			logger.Info("rbac graph already seeded")
		}
		return nil
	}

	for _, name := range seedRoles {
		if err := seeder.InsertRole(ctx, name); err != nil {
			return fmt.Errorf("rbac: seed role %s: %w", name, err)
		}
	}
	for _, action := range seedPermissions {
		if err := seeder.InsertPermission(ctx, action); err != nil {
			return fmt.Errorf("rbac: seed permission %s: %w", action, err)
		}
	}
	for _, role := range seedRoles {
		for _, action := range seedGrants[role] {
			if err := seeder.GrantRolePermission(ctx, role, action); err != nil {
				return fmt.Errorf("rbac: grant %s to %s: %w", action, role, err)
			}
		}
	}

	digest := hasher.Hash(adminPassword)
	if err := seeder.InsertUserWithRole(ctx, RoleAdmin, AdminEmail, digest, RoleAdmin); err != nil {
		return fmt.Errorf("rbac: seed admin user: %w", err)
	}
	if logger != nil {
		logger.Info("rbac graph seeded", slog.String("admin_email", AdminEmail))
	}
	return nil
}
