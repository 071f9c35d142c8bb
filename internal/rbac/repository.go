package rbac

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/gatehouse/gatehouse/internal/platform/db"
	"github.com/gatehouse/gatehouse/internal/shared"
)

// PGRepository provides PostgreSQL backed persistence for the graph.
type PGRepository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

// WithTx runs fn against a transactional view of the repository.
func (r *PGRepository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, &pgTxRepository{tx: tx})
	})
}

// FindUserIDByName resolves a user name to its id.
func (r *PGRepository) FindUserIDByName(ctx context.Context, name string) (int64, error) {
	return r.findID(ctx, `SELECT id FROM users WHERE name = $1`, name, "user")
}

// FindRoleIDByName resolves a role name to its id.
func (r *PGRepository) FindRoleIDByName(ctx context.Context, name string) (int64, error) {
	return r.findID(ctx, `SELECT id FROM roles WHERE name = $1`, name, "role")
}

// FindPermissionIDByAction resolves a permission action to its id.
func (r *PGRepository) FindPermissionIDByAction(ctx context.Context, action string) (int64, error) {
	return r.findID(ctx, `SELECT id FROM permissions WHERE action = $1`, action, "permission")
}

func (r *PGRepository) findID(ctx context.Context, query, arg, kind string) (int64, error) {
	var id int64
	if err := r.pool.QueryRow(ctx, query, arg).Scan(&id); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, fmt.Errorf("%w: %s %q", shared.ErrNotFound, kind, arg)
		}
		return 0, fmt.Errorf("%w: find %s: %v", shared.ErrStorage, kind, err)
	}
	return id, nil
}

// AssignUserRole inserts a user/role pair.
func (r *PGRepository) AssignUserRole(ctx context.Context, userID, roleID int64) error {
	_, err := r.pool.Exec(ctx, `INSERT INTO user_roles (user_id, role_id) VALUES ($1, $2)`, userID, roleID)
	return mapWriteError(err, "user already holds this role")
}

// AssignRolePermission inserts a role/permission pair.
func (r *PGRepository) AssignRolePermission(ctx context.Context, roleID, permissionID int64) error {
	_, err := r.pool.Exec(ctx, `INSERT INTO role_permissions (role_id, permission_id) VALUES ($1, $2)`, roleID, permissionID)
	return mapWriteError(err, "role already holds this permission")
}

// ReassignUserRole swaps one assignment row for another role.
func (r *PGRepository) ReassignUserRole(ctx context.Context, userID, currentRoleID, newRoleID int64) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE user_roles SET role_id = $1 WHERE user_id = $2 AND role_id = $3`,
		newRoleID, userID, currentRoleID)
	if err != nil {
		return mapWriteError(err, "user already holds the new role")
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: user does not hold the current role", shared.ErrNotFound)
	}
	return nil
}

// PermissionsForRoles returns the actions granted to any of the roles.
func (r *PGRepository) PermissionsForRoles(ctx context.Context, roleNames []string) ([]string, error) {
	const query = `
		SELECT DISTINCT p.action
		FROM roles r
		JOIN role_permissions rp ON rp.role_id = r.id
		JOIN permissions p ON p.id = rp.permission_id
		WHERE r.name = ANY($1)
		ORDER BY p.action`
	rows, err := r.pool.Query(ctx, query, roleNames)
	if err != nil {
		return nil, fmt.Errorf("%w: resolve permissions: %v", shared.ErrStorage, err)
	}
	defer rows.Close()

	actions := []string{}
	for rows.Next() {
		var action string
		if err := rows.Scan(&action); err != nil {
			return nil, fmt.Errorf("%w: scan permission: %v", shared.ErrStorage, err)
		}
		actions = append(actions, action)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: resolve permissions: %v", shared.ErrStorage, err)
	}
	return actions, nil
}

// UserRolePermissions returns the role → actions breakdown for one user.
func (r *PGRepository) UserRolePermissions(ctx context.Context, userID int64) ([]RolePermissions, error) {
	const query = `
		SELECT r.name, p.action
		FROM user_roles ur
		JOIN roles r ON r.id = ur.role_id
		JOIN role_permissions rp ON rp.role_id = r.id
		JOIN permissions p ON p.id = rp.permission_id
		WHERE ur.user_id = $1
		ORDER BY r.name, p.action`
	rows, err := r.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("%w: user role permissions: %v", shared.ErrStorage, err)
	}
	defer rows.Close()

	var result []RolePermissions
	for rows.Next() {
		var role, action string
		if err := rows.Scan(&role, &action); err != nil {
			return nil, fmt.Errorf("%w: scan role permission: %v", shared.ErrStorage, err)
		}
		if len(result) == 0 || result[len(result)-1].Role != role {
			result = append(result, RolePermissions{Role: role})
		}
		last := &result[len(result)-1]
		last.Actions = append(last.Actions, action)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: user role permissions: %v", shared.ErrStorage, err)
	}
	return result, nil
}

type pgTxRepository struct {
	tx pgx.Tx
}

func (r *pgTxRepository) CountUserRoles(ctx context.Context, userID int64) (int64, error) {
	var count int64
	if err := r.tx.QueryRow(ctx, `SELECT count(*) FROM user_roles WHERE user_id = $1`, userID).Scan(&count); err != nil {
		return 0, fmt.Errorf("%w: count user roles: %v", shared.ErrStorage, err)
	}
	return count, nil
}

func (r *pgTxRepository) RemoveUserRole(ctx context.Context, userID, roleID int64) error {
	tag, err := r.tx.Exec(ctx, `DELETE FROM user_roles WHERE user_id = $1 AND role_id = $2`, userID, roleID)
	if err != nil {
		return fmt.Errorf("%w: remove user role: %v", shared.ErrStorage, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: user does not hold this role", shared.ErrNotFound)
	}
	return nil
}

func (r *pgTxRepository) CountRolePermissions(ctx context.Context, roleID int64) (int64, error) {
	var count int64
	if err := r.tx.QueryRow(ctx, `SELECT count(*) FROM role_permissions WHERE role_id = $1`, roleID).Scan(&count); err != nil {
		return 0, fmt.Errorf("%w: count role permissions: %v", shared.ErrStorage, err)
	}
	return count, nil
}

func (r *pgTxRepository) RemoveRolePermission(ctx context.Context, roleID, permissionID int64) error {
	tag, err := r.tx.Exec(ctx, `DELETE FROM role_permissions WHERE role_id = $1 AND permission_id = $2`, roleID, permissionID)
	if err != nil {
		return fmt.Errorf("%w: remove role permission: %v", shared.ErrStorage, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: role does not hold this permission", shared.ErrNotFound)
	}
	return nil
}

// mapWriteError converts a unique violation into ErrAlreadyExists and
// anything else into ErrStorage.
func mapWriteError(err error, detail string) error {
	if err == nil {
		return nil
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return fmt.Errorf("%w: %s", shared.ErrAlreadyExists, detail)
	}
	return fmt.Errorf("%w: %v", shared.ErrStorage, err)
}

var _ Repository = (*PGRepository)(nil)
var _ TxRepository = (*pgTxRepository)(nil)
