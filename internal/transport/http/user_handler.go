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

	"github.com/go-chi/chi/v5"

	"github.com/lexgate/lexgate/internal/identity"
	"github.com/lexgate/lexgate/internal/observability/logger"
	"github.com/lexgate/lexgate/internal/rbac"
	"github.com/lexgate/lexgate/internal/tenant"
)

// CreateUserRequest provisions a firm member. The user is created in the
// caller's tenant; there is no cross-tenant provisioning.
type CreateUserRequest struct {
	Username          string   `json:"username"`
	Email             string   `json:"email"`
	FullName          string   `json:"full_name,omitempty"`
	OABNumber         string   `json:"oab_number,omitempty"`
	Role              string   `json:"role"`
	CustomPermissions []string `json:"custom_permissions,omitempty"`
}

// UserResponse is one directory entry as returned by the API.
type UserResponse struct {
	ID                string   `json:"id"`
	Username          string   `json:"username"`
	Email             string   `json:"email"`
	FullName          string   `json:"full_name,omitempty"`
	OABNumber         string   `json:"oab_number,omitempty"`
	Role              string   `json:"role"`
	CustomPermissions []string `json:"custom_permissions,omitempty"`
	Active            bool     `json:"active"`
}

func userResponse(u *identity.User) UserResponse {
	return UserResponse{
		ID:                u.ID,
		Username:          u.Username,
		Email:             u.Email,
		FullName:          u.FullName,
		OABNumber:         u.OABNumber,
		Role:              string(u.Role),
		CustomPermissions: u.CustomPermissions,
		Active:            u.Active,
	}
}

// CreateUser provisions a new firm member.
func (h *Handler) CreateUser(w http.ResponseWriter, r *http.Request) {
	access, ok := h.authorize(w, r, rbac.ActionManage, rbac.ResourceUser, "")
	if !ok {
		return
	}

	var req CreateUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	user, err := h.identityService.CreateUser(r.Context(), identity.CreateUserCommand{
		TenantID:          access.TenantID,
		Username:          req.Username,
		Email:             req.Email,
		FullName:          req.FullName,
		OABNumber:         req.OABNumber,
		Role:              req.Role,
		CustomPermissions: req.CustomPermissions,
		CreatedBy:         access.UserID,
	})
	if err != nil {
		switch {
		case errors.Is(err, identity.ErrInvalidEmail), errors.Is(err, rbac.ErrUnknownRole),
			errors.Is(err, rbac.ErrInvalidPermission):
			respondError(w, http.StatusBadRequest, err.Error())
		case errors.Is(err, identity.ErrUserAlreadyExists):
			respondError(w, http.StatusConflict, "user already exists")
		case errors.Is(err, identity.ErrTenantFull):
			respondError(w, http.StatusUnprocessableEntity, "tenant user limit reached")
		case errors.Is(err, tenant.ErrTenantInactive), errors.Is(err, tenant.ErrTenantNotFound):
			respondError(w, http.StatusUnprocessableEntity, err.Error())
		default:
			slog.ErrorContext(r.Context(), "failed to create user", logger.Error(err))
			respondError(w, http.StatusInternalServerError, "failed to create user")
		}
		return
	}

	respondJSON(w, http.StatusCreated, userResponse(user))
}

// GetUser returns one firm member.
func (h *Handler) GetUser(w http.ResponseWriter, r *http.Request) {
	access, ok := h.authorize(w, r, rbac.ActionView, rbac.ResourceUser, "")
	if !ok {
		return
	}

	user, err := h.identityService.GetUser(r.Context(), access.TenantID, chi.URLParam(r, "userID"))
	if err != nil {
		if errors.Is(err, identity.ErrUserNotFound) {
			respondError(w, http.StatusNotFound, "user not found")
			return
		}
		slog.ErrorContext(r.Context(), "failed to get user", logger.Error(err))
		respondError(w, http.StatusInternalServerError, "failed to get user")
		return
	}

	respondJSON(w, http.StatusOK, userResponse(user))
}

// ListUsers returns the caller's tenant directory.
func (h *Handler) ListUsers(w http.ResponseWriter, r *http.Request) {
	access, ok := h.authorize(w, r, rbac.ActionView, rbac.ResourceUser, "")
	if !ok {
		return
	}

	limit, offset := paginationParams(r, 50)
	users, err := h.identityService.ListUsers(r.Context(), access.TenantID, limit, offset)
	if err != nil {
		slog.ErrorContext(r.Context(), "failed to list users", logger.Error(err))
		respondError(w, http.StatusInternalServerError, "failed to list users")
		return
	}

	resp := make([]UserResponse, 0, len(users))
	for _, u := range users {
		resp = append(resp, userResponse(u))
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"users": resp,
	})
}

// GrantPermissionsRequest widens a user's permission set beyond their role.
type GrantPermissionsRequest struct {
	Permissions []string `json:"permissions"`
}

// GrantPermissions adds custom permission tokens to a firm member. One
// invalid token rejects the whole grant.
func (h *Handler) GrantPermissions(w http.ResponseWriter, r *http.Request) {
	access, ok := h.authorize(w, r, rbac.ActionManage, rbac.ResourceUser, "")
	if !ok {
		return
	}

	var req GrantPermissionsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if len(req.Permissions) == 0 {
		respondError(w, http.StatusBadRequest, "permissions are required")
		return
	}

	user, err := h.identityService.GrantPermissions(
		r.Context(), access.TenantID, chi.URLParam(r, "userID"), req.Permissions, access.UserID)
	if err != nil {
		switch {
		case errors.Is(err, rbac.ErrInvalidPermission):
			respondError(w, http.StatusBadRequest, err.Error())
		case errors.Is(err, identity.ErrUserNotFound):
			respondError(w, http.StatusNotFound, "user not found")
		default:
			slog.ErrorContext(r.Context(), "failed to grant permissions", logger.Error(err))
			respondError(w, http.StatusInternalServerError, "failed to grant permissions")
		}
		return
	}

	respondJSON(w, http.StatusOK, userResponse(user))
}
