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

package http

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/lexgate/lexgate/internal/audit"
	"github.com/lexgate/lexgate/internal/observability/logger"
	"github.com/lexgate/lexgate/internal/rbac"
)

// AuditEntryResponse is one trail entry as returned by the API.
type AuditEntryResponse struct {
	ID           string         `json:"id"`
	UserID       string         `json:"user_id"`
	Action       string         `json:"action"`
	ResourceType string         `json:"resource_type"`
	ResourceID   string         `json:"resource_id,omitempty"`
	Timestamp    time.Time      `json:"timestamp"`
	IPAddress    string         `json:"ip_address,omitempty"`
	Metadata     map[string]any `json:"metadata,omitempty"`
}

// ListAuditEntries returns the caller's tenant trail, newest first. The
// filter is always scoped to the caller's tenant; there is no cross-tenant
// view of the trail through this API.
func (h *Handler) ListAuditEntries(w http.ResponseWriter, r *http.Request) {
	access, ok := h.authorize(w, r, rbac.ActionView, rbac.ResourceAudit, "")
	if !ok {
		return
	}

	q := r.URL.Query()
	filter := audit.Filter{
		TenantID:     access.TenantID,
		UserID:       q.Get("user_id"),
		Action:       q.Get("action"),
		ResourceType: q.Get("resource_type"),
	}
	if raw := q.Get("since"); raw != "" {
		since, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			respondError(w, http.StatusBadRequest, "since must be RFC 3339")
			return
		}
		filter.Since = since
	}
	if raw := q.Get("until"); raw != "" {
		until, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			respondError(w, http.StatusBadRequest, "until must be RFC 3339")
			return
		}
		filter.Until = until
	}
	if raw := q.Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 1 {
			respondError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		filter.Limit = limit
	}

	entries, err := h.auditReader.List(r.Context(), filter)
	if err != nil {
		slog.ErrorContext(r.Context(), "failed to list audit entries", logger.Error(err))
		respondError(w, http.StatusInternalServerError, "failed to list audit entries")
		return
	}

	resp := make([]AuditEntryResponse, 0, len(entries))
	for _, entry := range entries {
		resp = append(resp, AuditEntryResponse{
			ID:           entry.ID,
			UserID:       entry.UserID,
			Action:       entry.Action,
			ResourceType: entry.ResourceType,
			ResourceID:   entry.ResourceID,
			Timestamp:    entry.Timestamp,
			IPAddress:    entry.IPAddress,
			Metadata:     entry.Metadata,
		})
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"entries": resp,
	})
}
