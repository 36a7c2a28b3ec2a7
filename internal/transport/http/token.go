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
	"errors"
	"fmt"

	"github.com/golang-jwt/jwt/v5"

	"github.com/lexgate/lexgate/internal/authz"
	"github.com/lexgate/lexgate/internal/rbac"
)

// ErrInvalidToken covers every token verification failure. The distinction
// between expired, malformed, and forged is logged, never returned to the
// client.
var ErrInvalidToken = errors.New("invalid access token")

// accessClaims is the claim set the external auth service issues. The
// platform trusts these claims after signature verification; role and grant
// validity are still re-checked by the authorization engine on every call.
type accessClaims struct {
	jwt.RegisteredClaims
	TenantID    string   `json:"tenant_id"`
	Role        string   `json:"role"`
	Permissions []string `json:"permissions,omitempty"`
}

// TokenVerifier validates HMAC-signed access tokens from the auth service.
type TokenVerifier struct {
	secret []byte
	issuer string
}

// NewTokenVerifier creates a verifier for the shared-secret token scheme.
func NewTokenVerifier(secret, issuer string) *TokenVerifier {
	return &TokenVerifier{secret: []byte(secret), issuer: issuer}
}

// Verify checks the token signature and standard claims and maps the claim
// set onto an access context. The returned context is already validated.
func (v *TokenVerifier) Verify(tokenString string) (authz.AccessContext, error) {
	var claims accessClaims

	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{"HS256"}),
		jwt.WithExpirationRequired(),
	}
	if v.issuer != "" {
		opts = append(opts, jwt.WithIssuer(v.issuer))
	}

	_, err := jwt.ParseWithClaims(tokenString, &claims, func(t *jwt.Token) (any, error) {
		return v.secret, nil
	}, opts...)
	if err != nil {
		return authz.AccessContext{}, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}

	access := authz.AccessContext{
		TenantID:          claims.TenantID,
		UserID:            claims.Subject,
		Role:              rbac.Role(claims.Role),
		CustomPermissions: claims.Permissions,
	}
	if err := access.Validate(); err != nil {
		return authz.AccessContext{}, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}
	return access, nil
}
