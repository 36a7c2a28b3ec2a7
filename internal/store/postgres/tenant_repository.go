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
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/lexgate/lexgate/internal/tenant"
)

// TenantRepository implements tenant.Repository backed by PostgreSQL.
type TenantRepository struct {
	db *DB
}

// NewTenantRepository creates a tenant repository.
func NewTenantRepository(db *DB) *TenantRepository {
	return &TenantRepository{db: db}
}

// Create inserts a new firm.
func (r *TenantRepository) Create(ctx context.Context, t *tenant.Tenant) error {
	_, err := r.db.pool.Exec(ctx, `
		INSERT INTO tenants (id, name, oab_number, cnpj, email, phone, address, max_users, retention_policy, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		t.ID, t.Name, t.OABNumber, t.CNPJ, t.Email, t.Phone, t.Address,
		t.MaxUsers, t.RetentionPolicy, t.Status, t.CreatedAt, t.UpdatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return tenant.ErrTenantAlreadyExists
		}
		return fmt.Errorf("failed to create tenant: %w", err)
	}
	return nil
}

// GetByID returns the firm with the given id.
func (r *TenantRepository) GetByID(ctx context.Context, id string) (*tenant.Tenant, error) {
	return r.get(ctx, "id = $1", id)
}

// GetByName returns the firm with the given name.
func (r *TenantRepository) GetByName(ctx context.Context, name string) (*tenant.Tenant, error) {
	return r.get(ctx, "name = $1", name)
}

func (r *TenantRepository) get(ctx context.Context, where string, arg any) (*tenant.Tenant, error) {
	var t tenant.Tenant
	err := r.db.pool.QueryRow(ctx, `
		SELECT id, name, oab_number, cnpj, email, phone, address, max_users, retention_policy, status, created_at, updated_at
		FROM tenants WHERE `+where, arg,
	).Scan(
		&t.ID, &t.Name, &t.OABNumber, &t.CNPJ, &t.Email, &t.Phone, &t.Address,
		&t.MaxUsers, &t.RetentionPolicy, &t.Status, &t.CreatedAt, &t.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, tenant.ErrTenantNotFound
		}
		return nil, fmt.Errorf("failed to get tenant: %w", err)
	}
	return &t, nil
}

// Update persists mutable firm fields.
func (r *TenantRepository) Update(ctx context.Context, t *tenant.Tenant) error {
	tag, err := r.db.pool.Exec(ctx, `
		UPDATE tenants
		SET name = $2, oab_number = $3, cnpj = $4, email = $5, phone = $6, address = $7,
		    max_users = $8, retention_policy = $9, status = $10, updated_at = $11
		WHERE id = $1`,
		t.ID, t.Name, t.OABNumber, t.CNPJ, t.Email, t.Phone, t.Address,
		t.MaxUsers, t.RetentionPolicy, t.Status, t.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to update tenant: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return tenant.ErrTenantNotFound
	}
	return nil
}

// List returns firms ordered by creation time.
func (r *TenantRepository) List(ctx context.Context, limit, offset int) ([]*tenant.Tenant, error) {
	rows, err := r.db.pool.Query(ctx, `
		SELECT id, name, oab_number, cnpj, email, phone, address, max_users, retention_policy, status, created_at, updated_at
		FROM tenants ORDER BY created_at LIMIT $1 OFFSET $2`,
		limit, offset,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list tenants: %w", err)
	}
	defer rows.Close()

	var tenants []*tenant.Tenant
	for rows.Next() {
		var t tenant.Tenant
		if err := rows.Scan(
			&t.ID, &t.Name, &t.OABNumber, &t.CNPJ, &t.Email, &t.Phone, &t.Address,
			&t.MaxUsers, &t.RetentionPolicy, &t.Status, &t.CreatedAt, &t.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan tenant: %w", err)
		}
		tenants = append(tenants, &t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read tenants: %w", err)
	}
	return tenants, nil
}

// ListRetentionPolicies returns (tenant id, retention policy) pairs for the
// retention job.
func (r *TenantRepository) ListRetentionPolicies(ctx context.Context) (map[string]string, error) {
	rows, err := r.db.pool.Query(ctx, `SELECT id, retention_policy FROM tenants`)
	if err != nil {
		return nil, fmt.Errorf("failed to list retention policies: %w", err)
	}
	defer rows.Close()

	policies := make(map[string]string)
	for rows.Next() {
		var id, policy string
		if err := rows.Scan(&id, &policy); err != nil {
			return nil, fmt.Errorf("failed to scan retention policy: %w", err)
		}
		policies[id] = policy
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read retention policies: %w", err)
	}
	return policies, nil
}
