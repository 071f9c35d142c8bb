package roles

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

// PGRepository provides PostgreSQL backed persistence.
type PGRepository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

// List returns all roles ordered by id.
func (r *PGRepository) List(ctx context.Context) ([]Role, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, name FROM roles ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("%w: list roles: %v", shared.ErrStorage, err)
	}
	defer rows.Close()
	var roles []Role
	for rows.Next() {
		var role Role
		if err := rows.Scan(&role.ID, &role.Name); err != nil {
			return nil, fmt.Errorf("%w: scan role: %v", shared.ErrStorage, err)
		}
		roles = append(roles, role)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: list roles: %v", shared.ErrStorage, err)
	}
	return roles, nil
}

// FindByID fetches one role.
func (r *PGRepository) FindByID(ctx context.Context, id int64) (Role, error) {
	var role Role
	err := r.pool.QueryRow(ctx, `SELECT id, name FROM roles WHERE id = $1`, id).
		Scan(&role.ID, &role.Name)
	if errors.Is(err, pgx.ErrNoRows) {
		return Role{}, fmt.Errorf("%w: role %d", shared.ErrNotFound, id)
	}
	if err != nil {
		return Role{}, fmt.Errorf("%w: find role: %v", shared.ErrStorage, err)
	}
	return role, nil
}

// Insert creates a role.
func (r *PGRepository) Insert(ctx context.Context, name string) (Role, error) {
	var role Role
	err := r.pool.QueryRow(ctx, `INSERT INTO roles (name) VALUES ($1) RETURNING id, name`, name).
		Scan(&role.ID, &role.Name)
	if err != nil {
		return Role{}, mapRoleWriteError(err, "a role with this name exists")
	}
	return role, nil
}

// Rename changes a role's name.
func (r *PGRepository) Rename(ctx context.Context, id int64, name string) error {
	tag, err := r.pool.Exec(ctx, `UPDATE roles SET name = $1 WHERE id = $2`, name, id)
	if err != nil {
		return mapRoleWriteError(err, "a role with this name exists")
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: role %d", shared.ErrNotFound, id)
	}
	return nil
}

// Delete removes the role's grants and the role together.
func (r *PGRepository) Delete(ctx context.Context, id int64) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `DELETE FROM role_permissions WHERE role_id = $1`, id); err != nil {
			return fmt.Errorf("%w: delete grants: %v", shared.ErrStorage, err)
		}
		tag, err := tx.Exec(ctx, `DELETE FROM roles WHERE id = $1`, id)
		if err != nil {
			return fmt.Errorf("%w: delete role: %v", shared.ErrStorage, err)
		}
		if tag.RowsAffected() == 0 {
			return fmt.Errorf("%w: role %d", shared.ErrNotFound, id)
		}
		return nil
	})
}

// ListUsers returns the members of the named role.
func (r *PGRepository) ListUsers(ctx context.Context, roleName string) ([]RoleUser, error) {
	const query = `
		SELECT u.id, u.name, u.email
		FROM users u
		JOIN user_roles ur ON ur.user_id = u.id
		JOIN roles r ON r.id = ur.role_id
		WHERE r.name = $1
		ORDER BY u.id`
	rows, err := r.pool.Query(ctx, query, roleName)
	if err != nil {
		return nil, fmt.Errorf("%w: list role users: %v", shared.ErrStorage, err)
	}
	defer rows.Close()
	var users []RoleUser
	for rows.Next() {
		var user RoleUser
		if err := rows.Scan(&user.ID, &user.Name, &user.Email); err != nil {
			return nil, fmt.Errorf("%w: scan role user: %v", shared.ErrStorage, err)
		}
		users = append(users, user)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: list role users: %v", shared.ErrStorage, err)
	}
	return users, nil
}

// ListRolePermissions returns the actions granted to the named role.
func (r *PGRepository) ListRolePermissions(ctx context.Context, roleName string) ([]string, error) {
	const query = `
		SELECT p.action
		FROM permissions p
		JOIN role_permissions rp ON rp.permission_id = p.id
		JOIN roles r ON r.id = rp.role_id
		WHERE r.name = $1
		ORDER BY p.action`
	rows, err := r.pool.Query(ctx, query, roleName)
	if err != nil {
		return nil, fmt.Errorf("%w: list role permissions: %v", shared.ErrStorage, err)
	}
	defer rows.Close()
	var actions []string
	for rows.Next() {
		var action string
		if err := rows.Scan(&action); err != nil {
			return nil, fmt.Errorf("%w: scan action: %v", shared.ErrStorage, err)
		}
		actions = append(actions, action)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: list role permissions: %v", shared.ErrStorage, err)
	}
	return actions, nil
}

// InsertPermission creates a permission action.
func (r *PGRepository) InsertPermission(ctx context.Context, action string) (Permission, error) {
	var perm Permission
	err := r.pool.QueryRow(ctx, `INSERT INTO permissions (action) VALUES ($1) RETURNING id, action`, action).
		Scan(&perm.ID, &perm.Action)
	if err != nil {
		return Permission{}, mapRoleWriteError(err, "a permission with this action exists")
	}
	return perm, nil
}

// ListPermissions returns all permission actions ordered by id.
func (r *PGRepository) ListPermissions(ctx context.Context) ([]Permission, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, action FROM permissions ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("%w: list permissions: %v", shared.ErrStorage, err)
	}
	defer rows.Close()
	var perms []Permission
	for rows.Next() {
		var perm Permission
		if err := rows.Scan(&perm.ID, &perm.Action); err != nil {
			return nil, fmt.Errorf("%w: scan permission: %v", shared.ErrStorage, err)
		}
		perms = append(perms, perm)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: list permissions: %v", shared.ErrStorage, err)
	}
	return perms, nil
}

func mapRoleWriteError(err error, detail string) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return fmt.Errorf("%w: %s", shared.ErrAlreadyExists, detail)
	}
	return fmt.Errorf("%w: %v", shared.ErrStorage, err)
}

var _ Repository = (*PGRepository)(nil)
