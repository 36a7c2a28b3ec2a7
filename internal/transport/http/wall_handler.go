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
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/lexgate/lexgate/internal/audit"
	"github.com/lexgate/lexgate/internal/authz"
	"github.com/lexgate/lexgate/internal/observability/logger"
	"github.com/lexgate/lexgate/internal/rbac"
	"github.com/lexgate/lexgate/internal/wall"
)

// AddRestrictionRequest places an ethical wall between a user and resources.
type AddRestrictionRequest struct {
	ResourceIDs  []string   `json:"resource_ids"`
	ResourceType string     `json:"resource_type"`
	Reason       string     `json:"reason"`
	ExpiresAt    *time.Time `json:"expires_at,omitempty"`
}

// RestrictionResponse is one wall entry as returned by the API.
type RestrictionResponse struct {
	ResourceID   string     `json:"resource_id"`
	ResourceType string     `json:"resource_type"`
	Reason       string     `json:"reason"`
	CreatedBy    string     `json:"created_by"`
	CreatedAt    time.Time  `json:"created_at"`
	ExpiresAt    *time.Time `json:"expires_at,omitempty"`
}

// AddRestriction walls the target user off from the named resources.
func (h *Handler) AddRestriction(w http.ResponseWriter, r *http.Request) {
	access, ok := h.authorize(w, r, rbac.ActionManage, rbac.ResourceWall, "")
	if !ok {
		return
	}

	var req AddRestrictionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	targetUserID := chi.URLParam(r, "userID")
	err := h.wallService.AddRestriction(r.Context(), wall.AddCommand{
		TenantID:     access.TenantID,
		UserID:       targetUserID,
		ResourceIDs:  req.ResourceIDs,
		ResourceType: req.ResourceType,
		Reason:       req.Reason,
		CreatedBy:    access.UserID,
		ExpiresAt:    req.ExpiresAt,
	})
	if err != nil {
		switch {
		case errors.Is(err, wall.ErrEmptyUserID),
			errors.Is(err, wall.ErrNoResourceIDs),
			errors.Is(err, wall.ErrMissingReason),
			errors.Is(err, wall.ErrExpiryInPast):
			respondError(w, http.StatusBadRequest, err.Error())
		default:
			slog.ErrorContext(r.Context(), "failed to add restriction", logger.Error(err))
			respondError(w, http.StatusInternalServerError, "failed to add restriction")
		}
		return
	}

	h.metrics.RecordWallMutation(r.Context(), "add")
	if !h.recordWallEvent(w, r, audit.ActionRestrictionAdded, access, targetUserID, map[string]any{
		"resource_ids": req.ResourceIDs,
		"reason":       req.Reason,
	}) {
		return
	}
	respondJSON(w, http.StatusCreated, map[string]any{
		"user_id":   targetUserID,
		"resources": len(req.ResourceIDs),
	})
}

// RemoveRestrictionRequest lifts a wall from the named resources.
type RemoveRestrictionRequest struct {
	ResourceIDs []string `json:"resource_ids"`
}

// RemoveRestriction lifts the wall between the target user and resources.
// Removing a restriction that does not exist succeeds.
func (h *Handler) RemoveRestriction(w http.ResponseWriter, r *http.Request) {
	access, ok := h.authorize(w, r, rbac.ActionManage, rbac.ResourceWall, "")
	if !ok {
		return
	}

	var req RemoveRestrictionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	targetUserID := chi.URLParam(r, "userID")
	err := h.wallService.RemoveRestriction(r.Context(), access.TenantID, targetUserID, req.ResourceIDs)
	if err != nil {
		switch {
		case errors.Is(err, wall.ErrEmptyUserID), errors.Is(err, wall.ErrNoResourceIDs):
			respondError(w, http.StatusBadRequest, err.Error())
		default:
			slog.ErrorContext(r.Context(), "failed to remove restriction", logger.Error(err))
			respondError(w, http.StatusInternalServerError, "failed to remove restriction")
		}
		return
	}

	h.metrics.RecordWallMutation(r.Context(), "remove")
	if !h.recordWallEvent(w, r, audit.ActionRestrictionRemoved, access, targetUserID, map[string]any{
		"resource_ids": req.ResourceIDs,
	}) {
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"user_id":   targetUserID,
		"resources": len(req.ResourceIDs),
	})
}

// recordWallEvent writes the mutation's trail entry. The wall change is
// already committed when this runs; a failed write is reported to the caller
// so an operator re-checks the trail before relying on the change.
func (h *Handler) recordWallEvent(w http.ResponseWriter, r *http.Request, action string, access authz.AccessContext, targetUserID string, metadata map[string]any) bool {
	err := h.recorder.Record(r.Context(), audit.Entry{
		ID:           uuid.NewString(),
		TenantID:     access.TenantID,
		UserID:       access.UserID,
		Action:       action,
		ResourceType: rbac.ResourceWall,
		ResourceID:   targetUserID,
		Timestamp:    time.Now().UTC(),
		IPAddress:    access.IPAddress,
		UserAgent:    access.UserAgent,
		Metadata:     metadata,
	})
	if err != nil {
		h.metrics.RecordAuditFailure(r.Context())
		slog.ErrorContext(r.Context(), "audit write failed for wall mutation", logger.Error(err))
		respondError(w, http.StatusServiceUnavailable, "wall updated but audit trail unavailable")
		return false
	}
	return true
}

// ListRestrictions returns the target user's active restrictions.
func (h *Handler) ListRestrictions(w http.ResponseWriter, r *http.Request) {
	access, ok := h.authorize(w, r, rbac.ActionView, rbac.ResourceWall, "")
	if !ok {
		return
	}

	targetUserID := chi.URLParam(r, "userID")
	restrictions, err := h.wallService.RestrictionsFor(r.Context(), access.TenantID, targetUserID)
	if err != nil {
		if errors.Is(err, wall.ErrEmptyUserID) {
			respondError(w, http.StatusBadRequest, err.Error())
			return
		}
		slog.ErrorContext(r.Context(), "failed to list restrictions", logger.Error(err))
		respondError(w, http.StatusInternalServerError, "failed to list restrictions")
		return
	}

	resp := make([]RestrictionResponse, 0, len(restrictions))
	for _, res := range restrictions {
		resp = append(resp, RestrictionResponse{
			ResourceID:   res.ResourceID,
			ResourceType: res.ResourceType,
			Reason:       res.Reason,
			CreatedBy:    res.CreatedBy,
			CreatedAt:    res.CreatedAt,
			ExpiresAt:    res.ExpiresAt,
		})
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"user_id":      targetUserID,
		"restrictions": resp,
	})
}
