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
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lexgate/lexgate/internal/audit"
	"github.com/lexgate/lexgate/internal/authz"
	"github.com/lexgate/lexgate/internal/observability/metrics"
	"github.com/lexgate/lexgate/internal/rbac"
	"github.com/lexgate/lexgate/internal/wall"
)

const (
	testSecret = "test-secret-at-least-32-bytes-long!!"
	testIssuer = "lexgate-auth"
)

// memoryRecorder keeps recorded entries for assertions and serves them back
// through the Reader interface.
type memoryRecorder struct {
	mu      sync.Mutex
	entries []audit.Entry
}

func (m *memoryRecorder) Record(_ context.Context, entry audit.Entry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = append(m.entries, entry)
	return nil
}

func (m *memoryRecorder) List(_ context.Context, filter audit.Filter) ([]audit.Entry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []audit.Entry
	for i := len(m.entries) - 1; i >= 0; i-- {
		e := m.entries[i]
		if filter.TenantID != "" && e.TenantID != filter.TenantID {
			continue
		}
		if filter.Action != "" && e.Action != filter.Action {
			continue
		}
		out = append(out, e)
	}
	return out, nil
}

func newTestRouter(t *testing.T) (http.Handler, *memoryRecorder) {
	t.Helper()

	evaluator, err := rbac.NewEvaluator()
	require.NoError(t, err)

	recorder := &memoryRecorder{}
	wallService := wall.NewService(wall.NewMemoryRepository())
	authzService := authz.NewService(evaluator, wallService, recorder)

	m, err := metrics.New(context.Background(), metrics.Config{}, "lexgate-test")
	require.NoError(t, err)

	h := NewHandler(authzService, wallService, nil, nil, recorder, recorder,
		NewTokenVerifier(testSecret, testIssuer), m)
	return NewRouter(h, NewRateLimiter(1000, 1000)), recorder
}

func signToken(t *testing.T, tenantID, userID string, role rbac.Role, grants []string) string {
	t.Helper()

	claims := accessClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    testIssuer,
			Subject:   userID,
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
		TenantID:    tenantID,
		Role:        string(role),
		Permissions: grants,
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
	require.NoError(t, err)
	return signed
}

func doJSON(t *testing.T, router http.Handler, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestCheckAccess_RequiresToken(t *testing.T) {
	router, _ := newTestRouter(t)

	rec := doJSON(t, router, http.MethodPost, "/api/v1/authz/check", "",
		CheckAccessRequest{Action: "view", ResourceType: "case"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestCheckAccess_RejectsTenantHeader(t *testing.T) {
	router, _ := newTestRouter(t)
	token := signToken(t, "firm-1", "user-1", rbac.RolePartner, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/authz/check", bytes.NewBufferString("{}"))
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("X-Tenant-ID", "firm-2")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCheckAccess_RejectsForgedToken(t *testing.T) {
	router, _ := newTestRouter(t)

	claims := accessClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    testIssuer,
			Subject:   "user-1",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
		TenantID: "firm-1",
		Role:     string(rbac.RolePartner),
	}
	forged, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("wrong-secret"))
	require.NoError(t, err)

	rec := doJSON(t, router, http.MethodPost, "/api/v1/authz/check", forged,
		CheckAccessRequest{Action: "view", ResourceType: "case"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestCheckAccess_AllowsAndDenies(t *testing.T) {
	router, _ := newTestRouter(t)

	tests := []struct {
		name    string
		role    rbac.Role
		req     CheckAccessRequest
		allowed bool
		reason  string
	}{
		{
			name:    "partner views case",
			role:    rbac.RolePartner,
			req:     CheckAccessRequest{Action: "view", ResourceType: "case"},
			allowed: true,
		},
		{
			name:    "client cannot delete case",
			role:    rbac.RoleClient,
			req:     CheckAccessRequest{Action: "delete", ResourceType: "case"},
			allowed: false,
			reason:  "insufficient_permission",
		},
		{
			name:    "unmapped action denied",
			role:    rbac.RolePartner,
			req:     CheckAccessRequest{Action: "export", ResourceType: "case"},
			allowed: false,
			reason:  "insufficient_permission",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			token := signToken(t, "firm-1", "user-1", tt.role, nil)
			rec := doJSON(t, router, http.MethodPost, "/api/v1/authz/check", token, tt.req)
			require.Equal(t, http.StatusOK, rec.Code)

			var resp CheckAccessResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
			assert.Equal(t, tt.allowed, resp.Allowed)
			assert.Equal(t, tt.reason, resp.Reason)
		})
	}
}

func TestWallLifecycle_RestrictionOverridesRole(t *testing.T) {
	router, recorder := newTestRouter(t)

	partnerToken := signToken(t, "firm-1", "partner-1", rbac.RolePartner, nil)
	associateToken := signToken(t, "firm-1", "associate-1", rbac.RoleAssociate, nil)

	// Before the wall: the associate may view the case.
	rec := doJSON(t, router, http.MethodPost, "/api/v1/authz/check", associateToken,
		CheckAccessRequest{Action: "view", ResourceType: "case", ResourceID: "case-9"})
	require.Equal(t, http.StatusOK, rec.Code)
	var resp CheckAccessResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.True(t, resp.Allowed)

	// Partner walls the associate off the case.
	rec = doJSON(t, router, http.MethodPost, "/api/v1/walls/associate-1", partnerToken,
		AddRestrictionRequest{
			ResourceIDs:  []string{"case-9"},
			ResourceType: "case",
			Reason:       "represents opposing party",
		})
	require.Equal(t, http.StatusCreated, rec.Code)

	// Now the same check is denied by the wall.
	rec = doJSON(t, router, http.MethodPost, "/api/v1/authz/check", associateToken,
		CheckAccessRequest{Action: "view", ResourceType: "case", ResourceID: "case-9"})
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.False(t, resp.Allowed)
	assert.Equal(t, "ethical_wall_restricted", resp.Reason)

	// The wall is listed.
	rec = doJSON(t, router, http.MethodGet, "/api/v1/walls/associate-1/", partnerToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var listResp struct {
		Restrictions []RestrictionResponse `json:"restrictions"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &listResp))
	require.Len(t, listResp.Restrictions, 1)
	assert.Equal(t, "case-9", listResp.Restrictions[0].ResourceID)

	// Lifting the wall restores access.
	rec = doJSON(t, router, http.MethodDelete, "/api/v1/walls/associate-1", partnerToken,
		RemoveRestrictionRequest{ResourceIDs: []string{"case-9"}})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, router, http.MethodPost, "/api/v1/authz/check", associateToken,
		CheckAccessRequest{Action: "view", ResourceType: "case", ResourceID: "case-9"})
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp.Allowed)

	// Both mutations left trail entries.
	added, err := recorder.List(context.Background(), audit.Filter{Action: audit.ActionRestrictionAdded})
	require.NoError(t, err)
	assert.Len(t, added, 1)
	removed, err := recorder.List(context.Background(), audit.Filter{Action: audit.ActionRestrictionRemoved})
	require.NoError(t, err)
	assert.Len(t, removed, 1)
}

func TestWallAdministration_RequiresManageUsers(t *testing.T) {
	router, _ := newTestRouter(t)

	internToken := signToken(t, "firm-1", "intern-1", rbac.RoleIntern, nil)
	rec := doJSON(t, router, http.MethodPost, "/api/v1/walls/associate-1", internToken,
		AddRestrictionRequest{
			ResourceIDs:  []string{"case-9"},
			ResourceType: "case",
			Reason:       "conflict",
		})
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestWallAdministration_CustomGrantAllows(t *testing.T) {
	router, _ := newTestRouter(t)

	// admin_staff has no manage_users baseline; a custom grant supplies it.
	granted := signToken(t, "firm-1", "staff-1", rbac.RoleAdminStaff, []string{"manage_users"})
	rec := doJSON(t, router, http.MethodPost, "/api/v1/walls/associate-1", granted,
		AddRestrictionRequest{
			ResourceIDs:  []string{"case-9"},
			ResourceType: "case",
			Reason:       "conflict",
		})
	assert.Equal(t, http.StatusCreated, rec.Code)
}

func TestAddRestriction_ValidationErrors(t *testing.T) {
	router, _ := newTestRouter(t)
	partnerToken := signToken(t, "firm-1", "partner-1", rbac.RolePartner, nil)

	tests := []struct {
		name string
		req  AddRestrictionRequest
	}{
		{
			name: "no resources",
			req:  AddRestrictionRequest{ResourceType: "case", Reason: "conflict"},
		},
		{
			name: "no reason",
			req:  AddRestrictionRequest{ResourceIDs: []string{"case-1"}, ResourceType: "case"},
		},
		{
			name: "expiry in the past",
			req: AddRestrictionRequest{
				ResourceIDs:  []string{"case-1"},
				ResourceType: "case",
				Reason:       "conflict",
				ExpiresAt:    ptrTime(time.Now().Add(-time.Hour)),
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := doJSON(t, router, http.MethodPost, "/api/v1/walls/associate-1", partnerToken, tt.req)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
		})
	}
}

func TestListAuditEntries_ScopedToCallerTenant(t *testing.T) {
	router, _ := newTestRouter(t)

	// Generate decisions in two tenants.
	for _, tenantID := range []string{"firm-1", "firm-2"} {
		token := signToken(t, tenantID, "partner-1", rbac.RolePartner, nil)
		rec := doJSON(t, router, http.MethodPost, "/api/v1/authz/check", token,
			CheckAccessRequest{Action: "view", ResourceType: "case"})
		require.Equal(t, http.StatusOK, rec.Code)
	}

	token := signToken(t, "firm-1", "partner-1", rbac.RolePartner, nil)
	rec := doJSON(t, router, http.MethodGet, "/api/v1/audit", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Entries []AuditEntryResponse `json:"entries"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.NotEmpty(t, resp.Entries)
	// The newest firm-1 entry is the audit read's own decision.
	assert.Equal(t, audit.ActionDecisionAllowed, resp.Entries[0].Action)
}

func TestListAuditEntries_DeniedWithoutPermission(t *testing.T) {
	router, _ := newTestRouter(t)

	token := signToken(t, "firm-1", "associate-1", rbac.RoleAssociate, nil)
	rec := doJSON(t, router, http.MethodGet, "/api/v1/audit", token, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestGetEffectivePermissions(t *testing.T) {
	router, _ := newTestRouter(t)

	token := signToken(t, "firm-1", "intern-1", rbac.RoleIntern, []string{"view_clients", "bogus"})
	rec := doJSON(t, router, http.MethodGet, "/api/v1/authz/permissions", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Role          string   `json:"role"`
		Permissions   []string `json:"permissions"`
		InvalidGrants []string `json:"invalid_grants"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "intern", resp.Role)
	assert.Contains(t, resp.Permissions, "view_cases")
	assert.Contains(t, resp.Permissions, "view_clients")
	assert.NotContains(t, resp.Permissions, "bogus")
	assert.Equal(t, []string{"bogus"}, resp.InvalidGrants)
}

func TestHealthCheck(t *testing.T) {
	router, _ := newTestRouter(t)

	rec := doJSON(t, router, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func ptrTime(t time.Time) *time.Time {
	return &t
}
