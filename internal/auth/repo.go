package auth

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/gatehouse/gatehouse/internal/shared"
)

// PGRepository implements Repository using PostgreSQL.
type PGRepository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a PostgreSQL repository.
func NewRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

// FindCredentialsByEmail fetches the account id, stored digest, and role
// names for an email. Returns ErrNotFound when no account matches.
func (r *PGRepository) FindCredentialsByEmail(ctx context.Context, email string) (*Credentials, error) {
	const query = `
		SELECT u.id, u.password_hash, r.name
		FROM users u
		JOIN user_roles ur ON ur.user_id = u.id
		JOIN roles r ON r.id = ur.role_id
		WHERE u.email = $1`
	rows, err := r.pool.Query(ctx, query, email)
	if err != nil {
		return nil, fmt.Errorf("%w: find credentials: %v", shared.ErrStorage, err)
	}
	defer rows.Close()

	var creds *Credentials
	for rows.Next() {
		var id int64
		var digest, role string
		if err := rows.Scan(&id, &digest, &role); err != nil {
			return nil, fmt.Errorf("%w: scan credentials: %v", shared.ErrStorage, err)
		}
		if creds == nil {
			creds = &Credentials{ID: id, Digest: digest}
		}
		creds.Roles = append(creds.Roles, role)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: find credentials: %v", shared.ErrStorage, err)
	}
	if creds == nil {
		return nil, fmt.Errorf("%w: no account for email", shared.ErrNotFound)
	}
	return creds, nil
}

var _ Repository = (*PGRepository)(nil)
