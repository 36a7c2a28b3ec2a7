// Copyright 2026 The Lexgate Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/lexgate/lexgate/internal/identity"
	"github.com/lexgate/lexgate/internal/rbac"
)

// UserRepository implements identity.Repository backed by PostgreSQL.
type UserRepository struct {
	db *DB
}

// NewUserRepository creates a user repository.
func NewUserRepository(db *DB) *UserRepository {
	return &UserRepository{db: db}
}

// Create inserts a new firm member.
func (r *UserRepository) Create(ctx context.Context, user *identity.User) error {
	grants, err := json.Marshal(user.CustomPermissions)
	if err != nil {
		return fmt.Errorf("failed to encode custom permissions: %w", err)
	}

	_, err = r.db.pool.Exec(ctx, `
		INSERT INTO tenant_users (id, tenant_id, username, email, full_name, oab_number, role, custom_permissions, is_active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		user.ID, user.TenantID, user.Username, user.Email, user.FullName,
		user.OABNumber, string(user.Role), grants, user.Active, user.CreatedAt, user.UpdatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return identity.ErrUserAlreadyExists
		}
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}

// GetByID returns a user within the tenant.
func (r *UserRepository) GetByID(ctx context.Context, tenantID, id string) (*identity.User, error) {
	return r.get(ctx, "tenant_id = $1 AND id = $2", tenantID, id)
}

// GetByEmail returns a user by email within the tenant.
func (r *UserRepository) GetByEmail(ctx context.Context, tenantID, email string) (*identity.User, error) {
	return r.get(ctx, "tenant_id = $1 AND email = $2", tenantID, email)
}

func (r *UserRepository) get(ctx context.Context, where string, args ...any) (*identity.User, error) {
	row := r.db.pool.QueryRow(ctx, `
		SELECT id, tenant_id, username, email, full_name, oab_number, role, custom_permissions, is_active, created_at, updated_at
		FROM tenant_users WHERE `+where, args...)

	user, err := scanUser(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, identity.ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return user, nil
}

// Update persists mutable user fields.
func (r *UserRepository) Update(ctx context.Context, user *identity.User) error {
	grants, err := json.Marshal(user.CustomPermissions)
	if err != nil {
		return fmt.Errorf("failed to encode custom permissions: %w", err)
	}

	tag, err := r.db.pool.Exec(ctx, `
		UPDATE tenant_users
		SET username = $3, email = $4, full_name = $5, oab_number = $6, role = $7,
		    custom_permissions = $8, is_active = $9, updated_at = $10
		WHERE tenant_id = $1 AND id = $2`,
		user.TenantID, user.ID, user.Username, user.Email, user.FullName,
		user.OABNumber, string(user.Role), grants, user.Active, user.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to update user: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return identity.ErrUserNotFound
	}
	return nil
}

// CountByTenant returns how many users the tenant holds, active or not.
func (r *UserRepository) CountByTenant(ctx context.Context, tenantID string) (int, error) {
	var count int
	err := r.db.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM tenant_users WHERE tenant_id = $1`, tenantID,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count users: %w", err)
	}
	return count, nil
}

// ListByTenant returns the tenant's users ordered by creation time.
func (r *UserRepository) ListByTenant(ctx context.Context, tenantID string, limit, offset int) ([]*identity.User, error) {
	rows, err := r.db.pool.Query(ctx, `
		SELECT id, tenant_id, username, email, full_name, oab_number, role, custom_permissions, is_active, created_at, updated_at
		FROM tenant_users WHERE tenant_id = $1 ORDER BY created_at LIMIT $2 OFFSET $3`,
		tenantID, limit, offset,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	defer rows.Close()

	var users []*identity.User
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		users = append(users, user)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read users: %w", err)
	}
	return users, nil
}

func scanUser(row pgx.Row) (*identity.User, error) {
	var user identity.User
	var role string
	var grants []byte
	if err := row.Scan(
		&user.ID, &user.TenantID, &user.Username, &user.Email, &user.FullName,
		&user.OABNumber, &role, &grants, &user.Active, &user.CreatedAt, &user.UpdatedAt,
	); err != nil {
		return nil, err
	}
	user.Role = rbac.Role(role)
	if len(grants) > 0 {
		if err := json.Unmarshal(grants, &user.CustomPermissions); err != nil {
			return nil, fmt.Errorf("failed to decode custom permissions: %w", err)
		}
	}
	return &user, nil
}
