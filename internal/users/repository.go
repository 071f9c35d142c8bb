package users

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

// List returns all accounts ordered by id.
func (r *PGRepository) List(ctx context.Context) ([]User, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, name, email FROM users ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("%w: list users: %v", shared.ErrStorage, err)
	}
	defer rows.Close()
	var users []User
	for rows.Next() {
		var user User
		if err := rows.Scan(&user.ID, &user.Name, &user.Email); err != nil {
			return nil, fmt.Errorf("%w: scan user: %v", shared.ErrStorage, err)
		}
		users = append(users, user)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: list users: %v", shared.ErrStorage, err)
	}
	return users, nil
}

// FindByID fetches one account.
func (r *PGRepository) FindByID(ctx context.Context, id int64) (User, error) {
	var user User
	err := r.pool.QueryRow(ctx, `SELECT id, name, email FROM users WHERE id = $1`, id).
		Scan(&user.ID, &user.Name, &user.Email)
	if errors.Is(err, pgx.ErrNoRows) {
		return User{}, fmt.Errorf("%w: user %d", shared.ErrNotFound, id)
	}
	if err != nil {
		return User{}, fmt.Errorf("%w: find user: %v", shared.ErrStorage, err)
	}
	return user, nil
}

// CreateWithRole inserts the account and its first role assignment in one
// transaction.
func (r *PGRepository) CreateWithRole(ctx context.Context, name, email, digest, roleName string) (User, error) {
	var user User
	err := db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		err := tx.QueryRow(ctx,
			`INSERT INTO users (name, email, password_hash) VALUES ($1, $2, $3) RETURNING id, name, email`,
			name, email, digest).Scan(&user.ID, &user.Name, &user.Email)
		if err != nil {
			return mapUserWriteError(err, "a user with this name or email exists")
		}
		tag, err := tx.Exec(ctx, `
			INSERT INTO user_roles (user_id, role_id)
			VALUES ($1, (SELECT id FROM roles WHERE name = $2))`,
			user.ID, roleName)
		if err != nil {
			return mapUserWriteError(err, "assignment exists")
		}
		if tag.RowsAffected() == 0 {
			return fmt.Errorf("%w: role %q", shared.ErrNotFound, roleName)
		}
		return nil
	})
	if err != nil {
		return User{}, err
	}
	return user, nil
}

// UpdateName renames an account.
func (r *PGRepository) UpdateName(ctx context.Context, id int64, name string) error {
	tag, err := r.pool.Exec(ctx, `UPDATE users SET name = $1 WHERE id = $2`, name, id)
	if err != nil {
		return mapUserWriteError(err, "a user with this name exists")
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: user %d", shared.ErrNotFound, id)
	}
	return nil
}

// UpdateCredential replaces the stored digest.
func (r *PGRepository) UpdateCredential(ctx context.Context, id int64, digest string) error {
	tag, err := r.pool.Exec(ctx, `UPDATE users SET password_hash = $1 WHERE id = $2`, digest, id)
	if err != nil {
		return fmt.Errorf("%w: update credential: %v", shared.ErrStorage, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: user %d", shared.ErrNotFound, id)
	}
	return nil
}

// Delete removes the account's assignments and the account together.
func (r *PGRepository) Delete(ctx context.Context, id int64) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `DELETE FROM user_roles WHERE user_id = $1`, id); err != nil {
			return fmt.Errorf("%w: delete assignments: %v", shared.ErrStorage, err)
		}
		tag, err := tx.Exec(ctx, `DELETE FROM users WHERE id = $1`, id)
		if err != nil {
			return fmt.Errorf("%w: delete user: %v", shared.ErrStorage, err)
		}
		if tag.RowsAffected() == 0 {
			return fmt.Errorf("%w: user %d", shared.ErrNotFound, id)
		}
		return nil
	})
}

// HasRole reports whether the user holds the named role.
func (r *PGRepository) HasRole(ctx context.Context, userID int64, roleName string) (bool, error) {
	const query = `
		SELECT EXISTS (
			SELECT 1 FROM user_roles ur
			JOIN roles r ON r.id = ur.role_id
			WHERE ur.user_id = $1 AND r.name = $2
		)`
	var exists bool
	if err := r.pool.QueryRow(ctx, query, userID, roleName).Scan(&exists); err != nil {
		return false, fmt.Errorf("%w: has role: %v", shared.ErrStorage, err)
	}
	return exists, nil
}

func mapUserWriteError(err error, detail string) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return fmt.Errorf("%w: %s", shared.ErrAlreadyExists, detail)
	}
	return fmt.Errorf("%w: %v", shared.ErrStorage, err)
}

var _ Repository = (*PGRepository)(nil)
