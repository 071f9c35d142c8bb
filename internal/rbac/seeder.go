package rbac

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/gatehouse/gatehouse/internal/platform/db"
	"github.com/gatehouse/gatehouse/internal/shared"
)

// AdminUserExists reports whether a user named "admin" exists, ignoring case.
func (r *PGRepository) AdminUserExists(ctx context.Context) (bool, error) {
	var id int64
	err := r.pool.QueryRow(ctx, `SELECT id FROM users WHERE lower(name) = 'admin'`).Scan(&id)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("%w: admin check: %v", shared.ErrStorage, err)
	}
	return true, nil
}

// InsertRole adds a seed role.
func (r *PGRepository) InsertRole(ctx context.Context, name string) error {
	_, err := r.pool.Exec(ctx, `INSERT INTO roles (name) VALUES ($1)`, name)
	return mapWriteError(err, "role exists")
}

// InsertPermission adds a seed permission.
func (r *PGRepository) InsertPermission(ctx context.Context, action string) error {
	_, err := r.pool.Exec(ctx, `INSERT INTO permissions (action) VALUES ($1)`, action)
	return mapWriteError(err, "permission exists")
}

// GrantRolePermission links a seed role to a seed permission by name.
func (r *PGRepository) GrantRolePermission(ctx context.Context, roleName, action string) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO role_permissions (role_id, permission_id)
		VALUES ((SELECT id FROM roles WHERE name = $1), (SELECT id FROM permissions WHERE action = $2))`,
		roleName, action)
	return mapWriteError(err, "grant exists")
}

// InsertUserWithRole creates a user and assigns a role in one transaction.
func (r *PGRepository) InsertUserWithRole(ctx context.Context, name, email, digest, roleName string) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		var userID int64
		err := tx.QueryRow(ctx,
			`INSERT INTO users (name, email, password_hash) VALUES ($1, $2, $3) RETURNING id`,
			name, email, digest).Scan(&userID)
		if err != nil {
			return mapWriteError(err, "user exists")
		}
		_, err = tx.Exec(ctx, `
			INSERT INTO user_roles (user_id, role_id)
			VALUES ($1, (SELECT id FROM roles WHERE name = $2))`,
			userID, roleName)
		return mapWriteError(err, "assignment exists")
	})
}

var _ Seeder = (*PGRepository)(nil)
