package rbac

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// schema creates the five relations when they are missing. Idempotent.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id BIGSERIAL PRIMARY KEY,
		name VARCHAR(255) UNIQUE NOT NULL,
		email VARCHAR(255) UNIQUE NOT NULL,
		password_hash VARCHAR(255) NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS roles (
		id BIGSERIAL PRIMARY KEY,
		name VARCHAR(255) UNIQUE NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS permissions (
		id BIGSERIAL PRIMARY KEY,
		action VARCHAR(255) UNIQUE NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS user_roles (
		user_id BIGINT REFERENCES users(id),
		role_id BIGINT REFERENCES roles(id),
		PRIMARY KEY (user_id, role_id)
	)`,
	`CREATE TABLE IF NOT EXISTS role_permissions (
		role_id BIGINT REFERENCES roles(id),
		permission_id BIGINT REFERENCES permissions(id),
		PRIMARY KEY (role_id, permission_id)
	)`,
}

// EnsureSchema creates missing tables at startup.
func EnsureSchema(ctx context.Context, pool *pgxpool.Pool) error {
	for _, stmt := range schema {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("rbac: ensure schema: %w", err)
		}
	}
	return nil
}
