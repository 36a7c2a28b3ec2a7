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

package authz

import (
	"errors"

	"github.com/lexgate/lexgate/internal/rbac"
)

// ErrUnauthenticatedContext marks an operation attempted without a complete
// access context. The authentication layer owns context construction; an
// incomplete context reaching this package is fatal to the operation.
var ErrUnauthenticatedContext = errors.New("unauthenticated access context")

// AccessContext is the per-operation bundle of verified identity data. It is
// constructed once by the authentication layer, passed explicitly through
// the call chain, and discarded when the operation ends. It must never live
// in a process-wide location: concurrent operations for different users each
// carry their own.
type AccessContext struct {
	TenantID          string
	UserID            string
	Role              rbac.Role
	CustomPermissions []string

	// Request metadata carried into the audit trail.
	IPAddress string
	UserAgent string
}

// Validate checks that the context identifies a tenant, a user, and a role
// from the closed set.
func (a AccessContext) Validate() error {
	if a.TenantID == "" || a.UserID == "" || a.Role == "" {
		return ErrUnauthenticatedContext
	}
	if _, err := rbac.ParseRole(string(a.Role)); err != nil {
		return ErrUnauthenticatedContext
	}
	return nil
}
