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
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/lexgate/lexgate/internal/wall"
)

// RestrictionRepository implements wall.Repository backed by PostgreSQL.
type RestrictionRepository struct {
	db *DB
}

// NewRestrictionRepository creates a restriction repository.
func NewRestrictionRepository(db *DB) *RestrictionRepository {
	return &RestrictionRepository{db: db}
}

// Upsert inserts or replaces restriction rows. Replacement keeps the stored
// set keyed on (user, resource): a re-add updates reason and expiry in place.
func (r *RestrictionRepository) Upsert(ctx context.Context, restrictions []wall.Restriction) error {
	if len(restrictions) == 0 {
		return nil
	}

	batch := &pgx.Batch{}
	for _, res := range restrictions {
		batch.Queue(`
			INSERT INTO restrictions (tenant_id, user_id, resource_id, resource_type, reason, created_by, created_at, expires_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
			ON CONFLICT (user_id, resource_id) DO UPDATE SET
				resource_type = EXCLUDED.resource_type,
				reason = EXCLUDED.reason,
				created_by = EXCLUDED.created_by,
				created_at = EXCLUDED.created_at,
				expires_at = EXCLUDED.expires_at`,
			res.TenantID, res.UserID, res.ResourceID, res.ResourceType,
			res.Reason, res.CreatedBy, res.CreatedAt, res.ExpiresAt,
		)
	}

	results := r.db.pool.SendBatch(ctx, batch)
	defer results.Close()

	for range restrictions {
		if _, err := results.Exec(); err != nil {
			return fmt.Errorf("failed to upsert restriction: %w", err)
		}
	}
	return nil
}

// Delete removes restriction rows for the given resources. Absent rows are
// not an error.
func (r *RestrictionRepository) Delete(ctx context.Context, tenantID, userID string, resourceIDs []string) error {
	_, err := r.db.pool.Exec(ctx, `
		DELETE FROM restrictions
		WHERE tenant_id = $1 AND user_id = $2 AND resource_id = ANY($3)`,
		tenantID, userID, resourceIDs,
	)
	if err != nil {
		return fmt.Errorf("failed to delete restrictions: %w", err)
	}
	return nil
}

// ListForUser returns every stored restriction for the user, expired rows
// included. Expiry is evaluated by the caller.
func (r *RestrictionRepository) ListForUser(ctx context.Context, tenantID, userID string) ([]wall.Restriction, error) {
	rows, err := r.db.pool.Query(ctx, `
		SELECT tenant_id, user_id, resource_id, resource_type, reason, created_by, created_at, expires_at
		FROM restrictions
		WHERE tenant_id = $1 AND user_id = $2`,
		tenantID, userID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list restrictions: %w", err)
	}
	defer rows.Close()

	var restrictions []wall.Restriction
	for rows.Next() {
		var res wall.Restriction
		if err := rows.Scan(
			&res.TenantID, &res.UserID, &res.ResourceID, &res.ResourceType,
			&res.Reason, &res.CreatedBy, &res.CreatedAt, &res.ExpiresAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan restriction: %w", err)
		}
		restrictions = append(restrictions, res)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read restrictions: %w", err)
	}
	return restrictions, nil
}

// DeleteExpired removes restrictions whose expiry passed before the given
// instant and reports how many rows were removed.
func (r *RestrictionRepository) DeleteExpired(ctx context.Context, before time.Time) (int64, error) {
	tag, err := r.db.pool.Exec(ctx, `
		DELETE FROM restrictions
		WHERE expires_at IS NOT NULL AND expires_at <= $1`,
		before,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to delete expired restrictions: %w", err)
	}
	return tag.RowsAffected(), nil
}
