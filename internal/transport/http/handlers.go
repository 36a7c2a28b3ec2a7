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

// Package http is the REST surface of the authorization platform. Every
// route below /api/v1 runs behind AuthMiddleware; administrative routes are
// additionally gated through the authorization engine itself, so managing a
// wall or reading the trail leaves the same audit footprint as any other
// guarded operation.
package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/lexgate/lexgate/internal/audit"
	"github.com/lexgate/lexgate/internal/authz"
	"github.com/lexgate/lexgate/internal/identity"
	"github.com/lexgate/lexgate/internal/observability/logger"
	"github.com/lexgate/lexgate/internal/observability/metrics"
	"github.com/lexgate/lexgate/internal/tenant"
	"github.com/lexgate/lexgate/internal/wall"
)

// Handler holds HTTP handlers and dependencies
type Handler struct {
	authzService    *authz.Service
	wallService     *wall.Service
	tenantService   *tenant.Service
	identityService *identity.Service
	auditReader     audit.Reader
	recorder        audit.Recorder
	verifier        *TokenVerifier
	metrics         *metrics.AuthzMetrics
}

// NewHandler creates a new HTTP handler
func NewHandler(
	authzService *authz.Service,
	wallService *wall.Service,
	tenantService *tenant.Service,
	identityService *identity.Service,
	auditReader audit.Reader,
	recorder audit.Recorder,
	verifier *TokenVerifier,
	m *metrics.AuthzMetrics,
) *Handler {
	return &Handler{
		authzService:    authzService,
		wallService:     wallService,
		tenantService:   tenantService,
		identityService: identityService,
		auditReader:     auditReader,
		recorder:        recorder,
		verifier:        verifier,
		metrics:         m,
	}
}

// NewRouter creates a new HTTP router
func NewRouter(h *Handler, rateLimiter *RateLimiter) *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(RateLimitMiddleware(rateLimiter))
	r.Use(func(handler http.Handler) http.Handler {
		return otelhttp.NewHandler(handler, "http_request",
			otelhttp.WithSpanNameFormatter(func(operation string, r *http.Request) string {
				return r.Method + " " + r.URL.Path
			}),
		)
	})
	r.Use(LoggingMiddleware())
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	// Health check
	r.Get("/health", h.HealthCheck)

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(h.AuthMiddleware)

		// Decision surface
		r.Post("/authz/check", h.CheckAccess)
		r.Get("/authz/permissions", h.GetEffectivePermissions)

		// Ethical wall administration
		r.Route("/walls/{userID}", func(r chi.Router) {
			r.Get("/", h.ListRestrictions)
			r.Post("/", h.AddRestriction)
			r.Delete("/", h.RemoveRestriction)
		})

		// Audit trail
		r.Get("/audit", h.ListAuditEntries)

		// Firm administration
		r.Route("/tenants", func(r chi.Router) {
			r.Post("/", h.CreateTenant)
			r.Get("/", h.ListTenants)
			r.Get("/{tenantID}", h.GetTenant)
			r.Delete("/{tenantID}", h.DeactivateTenant)
		})

		// User directory
		r.Route("/users", func(r chi.Router) {
			r.Post("/", h.CreateUser)
			r.Get("/", h.ListUsers)
			r.Get("/{userID}", h.GetUser)
			r.Post("/{userID}/permissions", h.GrantPermissions)
		})
	})

	return r
}

// HealthCheck returns the health status
func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{
		"status":  "healthy",
		"service": "lexgate",
	})
}

// CheckAccessRequest asks whether the caller may perform an action.
type CheckAccessRequest struct {
	Action       string `json:"action"`
	ResourceType string `json:"resource_type"`
	ResourceID   string `json:"resource_id,omitempty"`
}

// CheckAccessResponse carries the decision back to the enforcement point.
type CheckAccessResponse struct {
	Allowed    bool   `json:"allowed"`
	Reason     string `json:"reason,omitempty"`
	Permission string `json:"permission,omitempty"`
}

// CheckAccess evaluates one authorization decision for the caller.
func (h *Handler) CheckAccess(w http.ResponseWriter, r *http.Request) {
	access, ok := GetAccessContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "not authenticated")
		return
	}

	var req CheckAccessRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Action == "" || req.ResourceType == "" {
		respondError(w, http.StatusBadRequest, "action and resource_type are required")
		return
	}

	start := time.Now()
	decision, err := h.authzService.Authorize(r.Context(), access, req.Action, req.ResourceType, req.ResourceID)
	h.metrics.RecordDecision(r.Context(), decision.Allowed, string(decision.Reason), time.Since(start).Seconds())

	if err != nil {
		if errors.Is(err, audit.ErrUnavailable) {
			h.metrics.RecordAuditFailure(r.Context())
			respondError(w, http.StatusServiceUnavailable, "audit trail unavailable; operation not authorized")
			return
		}
		slog.ErrorContext(r.Context(), "authorization check failed", logger.Error(err))
		respondError(w, http.StatusServiceUnavailable, "authorization check failed")
		return
	}

	respondJSON(w, http.StatusOK, CheckAccessResponse{
		Allowed:    decision.Allowed,
		Reason:     string(decision.Reason),
		Permission: string(decision.MatchedPermission),
	})
}

// GetEffectivePermissions returns the caller's effective permission set.
func (h *Handler) GetEffectivePermissions(w http.ResponseWriter, r *http.Request) {
	access, ok := GetAccessContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "not authenticated")
		return
	}

	perms, invalid, err := h.authzService.EffectivePermissions(access)
	if err != nil {
		respondError(w, http.StatusUnauthorized, "invalid access context")
		return
	}

	resp := map[string]any{
		"role":        string(access.Role),
		"permissions": perms.List(),
	}
	if len(invalid) > 0 {
		resp["invalid_grants"] = invalid
	}
	respondJSON(w, http.StatusOK, resp)
}

// authorize gates an administrative handler through the decision engine so
// privileged operations are audited like any other. It writes the response
// on denial and reports whether the handler may proceed.
func (h *Handler) authorize(w http.ResponseWriter, r *http.Request, action, resourceType, resourceID string) (authz.AccessContext, bool) {
	access, ok := GetAccessContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "not authenticated")
		return authz.AccessContext{}, false
	}

	start := time.Now()
	decision, err := h.authzService.Authorize(r.Context(), access, action, resourceType, resourceID)
	h.metrics.RecordDecision(r.Context(), decision.Allowed, string(decision.Reason), time.Since(start).Seconds())

	if err != nil {
		if errors.Is(err, audit.ErrUnavailable) {
			h.metrics.RecordAuditFailure(r.Context())
			respondError(w, http.StatusServiceUnavailable, "audit trail unavailable; operation not authorized")
			return access, false
		}
		slog.ErrorContext(r.Context(), "authorization check failed", logger.Error(err))
		respondError(w, http.StatusServiceUnavailable, "authorization check failed")
		return access, false
	}
	if !decision.Allowed {
		respondError(w, http.StatusForbidden, "permission denied")
		return access, false
	}
	return access, true
}
