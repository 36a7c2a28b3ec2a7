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
	"fmt"
	"time"

	"github.com/lexgate/lexgate/internal/audit"
)

const defaultAuditListLimit = 100

// AuditRepository is the durable audit recorder. Record failures wrap
// audit.ErrUnavailable so callers can fail the guarded operation closed.
type AuditRepository struct {
	db *DB
}

// NewAuditRepository creates a PostgreSQL-backed audit recorder.
func NewAuditRepository(db *DB) *AuditRepository {
	return &AuditRepository{db: db}
}

// Record appends one entry to the trail. The table is append-only; this
// repository issues no UPDATE or DELETE against audit_log.
func (r *AuditRepository) Record(ctx context.Context, entry audit.Entry) error {
	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now().UTC()
	}

	metadata, err := json.Marshal(entry.Metadata)
	if err != nil {
		return fmt.Errorf("%w: failed to encode metadata: %w", audit.ErrUnavailable, err)
	}

	_, err = r.db.pool.Exec(ctx, `
		INSERT INTO audit_log (id, tenant_id, user_id, action, resource_type, resource_id, ts, ip_address, user_agent, metadata)
		VALUES ($1, $2, $3, $4, $5, NULLIF($6, ''), $7, NULLIF($8, ''), NULLIF($9, ''), $10)`,
		entry.ID, entry.TenantID, entry.UserID, entry.Action, entry.ResourceType,
		entry.ResourceID, entry.Timestamp, entry.IPAddress, entry.UserAgent, metadata,
	)
	if err != nil {
		return fmt.Errorf("%w: %w", audit.ErrUnavailable, err)
	}
	return nil
}

// List returns entries matching the filter, newest first.
func (r *AuditRepository) List(ctx context.Context, filter audit.Filter) ([]audit.Entry, error) {
	query := `
		SELECT id, tenant_id, user_id, action, resource_type, COALESCE(resource_id, ''), ts,
		       COALESCE(ip_address, ''), COALESCE(user_agent, ''), metadata
		FROM audit_log
		WHERE 1=1`
	args := []any{}

	addArg := func(clause string, value any) {
		args = append(args, value)
		query += fmt.Sprintf(clause, len(args))
	}

	if filter.TenantID != "" {
		addArg(" AND tenant_id = $%d", filter.TenantID)
	}
	if filter.UserID != "" {
		addArg(" AND user_id = $%d", filter.UserID)
	}
	if filter.Action != "" {
		addArg(" AND action = $%d", filter.Action)
	}
	if filter.ResourceType != "" {
		addArg(" AND resource_type = $%d", filter.ResourceType)
	}
	if !filter.Since.IsZero() {
		addArg(" AND ts >= $%d", filter.Since)
	}
	if !filter.Until.IsZero() {
		addArg(" AND ts < $%d", filter.Until)
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = defaultAuditListLimit
	}
	addArg(" ORDER BY ts DESC LIMIT $%d", limit)

	rows, err := r.db.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query audit log: %w", err)
	}
	defer rows.Close()

	var entries []audit.Entry
	for rows.Next() {
		var entry audit.Entry
		var metadata []byte
		if err := rows.Scan(
			&entry.ID, &entry.TenantID, &entry.UserID, &entry.Action, &entry.ResourceType,
			&entry.ResourceID, &entry.Timestamp, &entry.IPAddress, &entry.UserAgent, &metadata,
		); err != nil {
			return nil, fmt.Errorf("failed to scan audit entry: %w", err)
		}
		if len(metadata) > 0 {
			if err := json.Unmarshal(metadata, &entry.Metadata); err != nil {
				return nil, fmt.Errorf("failed to decode audit metadata: %w", err)
			}
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read audit entries: %w", err)
	}
	return entries, nil
}

// DeleteOlderThan removes entries recorded before the cutoff. It exists for
// the retention job only; the serving path never deletes trail entries.
func (r *AuditRepository) DeleteOlderThan(ctx context.Context, tenantID string, cutoff time.Time) (int64, error) {
	tag, err := r.db.pool.Exec(ctx, `
		DELETE FROM audit_log WHERE tenant_id = $1 AND ts < $2`,
		tenantID, cutoff,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to apply audit retention: %w", err)
	}
	return tag.RowsAffected(), nil
}
