//go:build e2e

// Package e2e exercises a running lexgate server over HTTP. Start the stack
// first:
//
//	docker compose up -d postgres
//	AUTH_TOKEN_SECRET=... DB_PASSWORD=... go run ./cmd/server &
//	LEXGATE_API_URL=http://127.0.0.1:8080 LEXGATE_AUTH_SECRET=... go test -tags e2e ./tests/e2e/...
//
// The suite plays the external auth service: it signs its own access tokens
// with the shared secret.
package e2e

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"os"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	baseURL = getEnv("LEXGATE_API_URL", "http://127.0.0.1:8080")
	apiBase = baseURL + "/api/v1"
	secret  = getEnv("LEXGATE_AUTH_SECRET", "dev-secret-change-me")
	issuer  = getEnv("LEXGATE_AUTH_ISSUER", "lexgate-auth")
)

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

type TestClient struct {
	httpClient *http.Client
	token      string
}

// NewTestClient signs an access token for the given identity, standing in
// for the external auth service.
func NewTestClient(t *testing.T, tenantID, userID, role string, grants []string) *TestClient {
	t.Helper()

	claims := jwt.MapClaims{
		"iss":       issuer,
		"sub":       userID,
		"exp":       jwt.NewNumericDate(time.Now().Add(time.Hour)),
		"iat":       jwt.NewNumericDate(time.Now()),
		"tenant_id": tenantID,
		"role":      role,
	}
	if len(grants) > 0 {
		claims["permissions"] = grants
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	require.NoError(t, err)

	return &TestClient{
		httpClient: &http.Client{Timeout: 10 * time.Second},
		token:      token,
	}
}

func (c *TestClient) Do(t *testing.T, method, path string, body any) (*http.Response, []byte) {
	t.Helper()

	var bodyReader io.Reader
	if body != nil {
		jsonBody, err := json.Marshal(body)
		require.NoError(t, err)
		bodyReader = bytes.NewBuffer(jsonBody)
	}

	req, err := http.NewRequest(method, path, bodyReader)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, data
}

func TestE2E_AuthorizationWorkflow(t *testing.T) {
	tenantID := uuid.NewString()
	partner := NewTestClient(t, tenantID, uuid.NewString(), "partner", nil)
	associateID := uuid.NewString()
	associate := NewTestClient(t, tenantID, associateID, "associate", nil)
	caseID := "case-" + uuid.NewString()

	t.Run("health", func(t *testing.T) {
		resp, _ := (&TestClient{httpClient: &http.Client{Timeout: 10 * time.Second}}).Do(t, http.MethodGet, baseURL+"/health", nil)
		require.Equal(t, http.StatusOK, resp.StatusCode)
	})

	t.Run("associate may view the case", func(t *testing.T) {
		resp, body := associate.Do(t, http.MethodPost, apiBase+"/authz/check", map[string]string{
			"action":        "view",
			"resource_type": "case",
			"resource_id":   caseID,
		})
		require.Equal(t, http.StatusOK, resp.StatusCode)

		var decision struct {
			Allowed bool `json:"allowed"`
		}
		require.NoError(t, json.Unmarshal(body, &decision))
		assert.True(t, decision.Allowed)
	})

	t.Run("partner walls the associate off", func(t *testing.T) {
		resp, _ := partner.Do(t, http.MethodPost, apiBase+"/walls/"+associateID, map[string]any{
			"resource_ids":  []string{caseID},
			"resource_type": "case",
			"reason":        "represents opposing party",
		})
		require.Equal(t, http.StatusCreated, resp.StatusCode)
	})

	t.Run("wall overrides the role", func(t *testing.T) {
		resp, body := associate.Do(t, http.MethodPost, apiBase+"/authz/check", map[string]string{
			"action":        "view",
			"resource_type": "case",
			"resource_id":   caseID,
		})
		require.Equal(t, http.StatusOK, resp.StatusCode)

		var decision struct {
			Allowed bool   `json:"allowed"`
			Reason  string `json:"reason"`
		}
		require.NoError(t, json.Unmarshal(body, &decision))
		assert.False(t, decision.Allowed)
		assert.Equal(t, "ethical_wall_restricted", decision.Reason)
	})

	t.Run("associate may not manage walls", func(t *testing.T) {
		resp, _ := associate.Do(t, http.MethodDelete, apiBase+"/walls/"+associateID, map[string]any{
			"resource_ids": []string{caseID},
		})
		assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	})

	t.Run("partner lifts the wall", func(t *testing.T) {
		resp, _ := partner.Do(t, http.MethodDelete, apiBase+"/walls/"+associateID, map[string]any{
			"resource_ids": []string{caseID},
		})
		require.Equal(t, http.StatusOK, resp.StatusCode)

		checkResp, body := associate.Do(t, http.MethodPost, apiBase+"/authz/check", map[string]string{
			"action":        "view",
			"resource_type": "case",
			"resource_id":   caseID,
		})
		require.Equal(t, http.StatusOK, checkResp.StatusCode)

		var decision struct {
			Allowed bool `json:"allowed"`
		}
		require.NoError(t, json.Unmarshal(body, &decision))
		assert.True(t, decision.Allowed)
	})

	t.Run("trail records the decisions", func(t *testing.T) {
		resp, body := partner.Do(t, http.MethodGet, apiBase+"/audit?limit=50", nil)
		require.Equal(t, http.StatusOK, resp.StatusCode)

		var trail struct {
			Entries []struct {
				Action string `json:"action"`
			} `json:"entries"`
		}
		require.NoError(t, json.Unmarshal(body, &trail))

		actions := map[string]bool{}
		for _, e := range trail.Entries {
			actions[e.Action] = true
		}
		assert.True(t, actions["decision_allowed"])
		assert.True(t, actions["decision_denied"])
		assert.True(t, actions["restriction_added"])
		assert.True(t, actions["restriction_removed"])
	})

	t.Run("unauthenticated check is rejected", func(t *testing.T) {
		anon := &TestClient{httpClient: &http.Client{Timeout: 10 * time.Second}}
		resp, _ := anon.Do(t, http.MethodPost, apiBase+"/authz/check", map[string]string{
			"action":        "view",
			"resource_type": "case",
		})
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	})
}
