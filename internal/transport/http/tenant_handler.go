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
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/lexgate/lexgate/internal/observability/logger"
	"github.com/lexgate/lexgate/internal/rbac"
	"github.com/lexgate/lexgate/internal/tenant"
)

// CreateTenantRequest registers a law firm.
type CreateTenantRequest struct {
	Name      string `json:"name"`
	OABNumber string `json:"oab_number,omitempty"`
	CNPJ      string `json:"cnpj,omitempty"`
	Email     string `json:"email,omitempty"`
	Phone     string `json:"phone,omitempty"`
	Address   string `json:"address,omitempty"`
	MaxUsers  int    `json:"max_users,omitempty"`
}

// CreateTenant registers a new law firm.
func (h *Handler) CreateTenant(w http.ResponseWriter, r *http.Request) {
	access, ok := h.authorize(w, r, rbac.ActionManage, rbac.ResourceTenant, "")
	if !ok {
		return
	}

	var req CreateTenantRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Name == "" {
		respondError(w, http.StatusBadRequest, "name is required")
		return
	}

	t, err := h.tenantService.CreateTenant(r.Context(), tenant.CreateCommand{
		Name:      req.Name,
		OABNumber: req.OABNumber,
		CNPJ:      req.CNPJ,
		Email:     req.Email,
		Phone:     req.Phone,
		Address:   req.Address,
		MaxUsers:  req.MaxUsers,
		CreatedBy: access.UserID,
	})
	if err != nil {
		if errors.Is(err, tenant.ErrTenantAlreadyExists) {
			respondError(w, http.StatusConflict, "tenant already exists")
			return
		}
		slog.ErrorContext(r.Context(), "failed to create tenant", logger.Error(err))
		respondError(w, http.StatusInternalServerError, "failed to create tenant")
		return
	}

	respondJSON(w, http.StatusCreated, t)
}

// GetTenant returns one firm by id.
func (h *Handler) GetTenant(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.authorize(w, r, rbac.ActionManage, rbac.ResourceTenant, ""); !ok {
		return
	}

	t, err := h.tenantService.GetTenant(r.Context(), chi.URLParam(r, "tenantID"))
	if err != nil {
		if errors.Is(err, tenant.ErrTenantNotFound) {
			respondError(w, http.StatusNotFound, "tenant not found")
			return
		}
		slog.ErrorContext(r.Context(), "failed to get tenant", logger.Error(err))
		respondError(w, http.StatusInternalServerError, "failed to get tenant")
		return
	}

	respondJSON(w, http.StatusOK, t)
}

// ListTenants returns firms with pagination.
func (h *Handler) ListTenants(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.authorize(w, r, rbac.ActionManage, rbac.ResourceTenant, ""); !ok {
		return
	}

	limit, offset := paginationParams(r, 50)
	tenants, err := h.tenantService.ListTenants(r.Context(), limit, offset)
	if err != nil {
		slog.ErrorContext(r.Context(), "failed to list tenants", logger.Error(err))
		respondError(w, http.StatusInternalServerError, "failed to list tenants")
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"tenants": tenants,
	})
}

// DeactivateTenant marks a firm inactive. Repeating the call succeeds.
func (h *Handler) DeactivateTenant(w http.ResponseWriter, r *http.Request) {
	access, ok := h.authorize(w, r, rbac.ActionManage, rbac.ResourceTenant, "")
	if !ok {
		return
	}

	err := h.tenantService.Deactivate(r.Context(), chi.URLParam(r, "tenantID"), access.UserID)
	if err != nil {
		if errors.Is(err, tenant.ErrTenantNotFound) {
			respondError(w, http.StatusNotFound, "tenant not found")
			return
		}
		slog.ErrorContext(r.Context(), "failed to deactivate tenant", logger.Error(err))
		respondError(w, http.StatusInternalServerError, "failed to deactivate tenant")
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{
		"status": tenant.StatusInactive,
	})
}

func paginationParams(r *http.Request, defaultLimit int) (limit, offset int) {
	limit = defaultLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 {
			limit = n
		}
	}
	if raw := r.URL.Query().Get("offset"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n >= 0 {
			offset = n
		}
	}
	return limit, offset
}
