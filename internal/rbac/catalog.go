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

// Package rbac defines the closed role and permission catalog for the legal
// practice platform and the stateless evaluator that answers permission
// questions against it. The catalog is fixed at compile time and validated
// once at startup; it is safe to share across concurrent requests.
package rbac

import (
	"errors"
	"fmt"
)

// Domain errors
var (
	ErrUnknownRole       = errors.New("unknown role")
	ErrInvalidPermission = errors.New("invalid permission token")
)

// Role is one of the fixed set of roles in a law firm tenant.
type Role string

const (
	RolePartner    Role = "partner"
	RoleAssociate  Role = "associate"
	RoleParalegal  Role = "paralegal"
	RoleClient     Role = "client"
	RoleAdminStaff Role = "admin_staff"
	RoleIntern     Role = "intern"
)

// Permission is an atomic capability token.
type Permission string

const (
	// Case management
	PermViewCases   Permission = "view_cases"
	PermCreateCases Permission = "create_cases"
	PermEditCases   Permission = "edit_cases"
	PermDeleteCases Permission = "delete_cases"

	// Documents
	PermViewDocuments   Permission = "view_documents"
	PermUploadDocuments Permission = "upload_documents"
	PermEditDocuments   Permission = "edit_documents"
	PermDeleteDocuments Permission = "delete_documents"

	// Clients
	PermViewClients   Permission = "view_clients"
	PermCreateClients Permission = "create_clients"
	PermEditClients   Permission = "edit_clients"
	PermDeleteClients Permission = "delete_clients"

	// Financial
	PermViewFinancial Permission = "view_financial"
	PermManageBilling Permission = "manage_billing"

	// Administration
	PermManageUsers    Permission = "manage_users"
	PermManageSettings Permission = "manage_settings"
	PermViewAuditLogs  Permission = "view_audit_logs"

	// Legal research
	PermSearchCNJ     Permission = "search_cnj"
	PermAccessLegalAI Permission = "access_legal_ai"
)

// AllRoles lists every role in the catalog.
var AllRoles = []Role{
	RolePartner,
	RoleAssociate,
	RoleParalegal,
	RoleClient,
	RoleAdminStaff,
	RoleIntern,
}

// AllPermissions lists every permission in the catalog.
var AllPermissions = []Permission{
	PermViewCases, PermCreateCases, PermEditCases, PermDeleteCases,
	PermViewDocuments, PermUploadDocuments, PermEditDocuments, PermDeleteDocuments,
	PermViewClients, PermCreateClients, PermEditClients, PermDeleteClients,
	PermViewFinancial, PermManageBilling,
	PermManageUsers, PermManageSettings, PermViewAuditLogs,
	PermSearchCNJ, PermAccessLegalAI,
}

// rolePermissions is the deploy-time role to permission-set mapping.
// Partner is the ceiling: its set must be a superset of every other role's.
var rolePermissions = map[Role][]Permission{
	RolePartner: {
		PermViewCases, PermCreateCases, PermEditCases, PermDeleteCases,
		PermViewDocuments, PermUploadDocuments, PermEditDocuments, PermDeleteDocuments,
		PermViewClients, PermCreateClients, PermEditClients, PermDeleteClients,
		PermViewFinancial, PermManageBilling,
		PermManageUsers, PermManageSettings, PermViewAuditLogs,
		PermSearchCNJ, PermAccessLegalAI,
	},
	RoleAssociate: {
		PermViewCases, PermCreateCases, PermEditCases,
		PermViewDocuments, PermUploadDocuments, PermEditDocuments,
		PermViewClients, PermCreateClients, PermEditClients,
		PermSearchCNJ, PermAccessLegalAI,
	},
	RoleParalegal: {
		PermViewCases,
		PermViewDocuments, PermUploadDocuments,
		PermViewClients,
		PermSearchCNJ,
	},
	RoleClient: {
		PermViewCases,
		PermViewDocuments,
	},
	RoleAdminStaff: {
		PermViewClients, PermCreateClients, PermEditClients,
		PermViewFinancial, PermManageBilling,
	},
	RoleIntern: {
		PermViewCases,
		PermViewDocuments,
		PermSearchCNJ,
	},
}

// PermissionSet is an unordered set of permissions.
type PermissionSet map[Permission]struct{}

// NewPermissionSet builds a set from the given permissions.
func NewPermissionSet(perms ...Permission) PermissionSet {
	set := make(PermissionSet, len(perms))
	for _, p := range perms {
		set[p] = struct{}{}
	}
	return set
}

// Has reports whether the set contains the permission.
func (s PermissionSet) Has(p Permission) bool {
	_, ok := s[p]
	return ok
}

// Contains reports whether the set is a superset of other.
func (s PermissionSet) Contains(other PermissionSet) bool {
	for p := range other {
		if !s.Has(p) {
			return false
		}
	}
	return true
}

// List returns the set's members as a slice. Ordering is not significant.
func (s PermissionSet) List() []Permission {
	out := make([]Permission, 0, len(s))
	for p := range s {
		out = append(out, p)
	}
	return out
}

// PermissionsFor returns the baseline permission set for a role. The catalog
// is total over AllRoles; an unknown role here is a programming error caught
// by ValidateCatalog at startup, so the empty set is returned rather than an
// error at call time.
func PermissionsFor(role Role) PermissionSet {
	return NewPermissionSet(rolePermissions[role]...)
}

// ParseRole validates a string against the closed role set.
func ParseRole(s string) (Role, error) {
	role := Role(s)
	if _, ok := rolePermissions[role]; !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownRole, s)
	}
	return role, nil
}

var permissionIndex = func() map[Permission]struct{} {
	idx := make(map[Permission]struct{}, len(AllPermissions))
	for _, p := range AllPermissions {
		idx[p] = struct{}{}
	}
	return idx
}()

// ParsePermission validates a string against the closed permission set.
// An unrecognized token yields ErrInvalidPermission, never a panic; callers
// decide whether to drop the token or reject the request.
func ParsePermission(s string) (Permission, error) {
	p := Permission(s)
	if _, ok := permissionIndex[p]; !ok {
		return "", fmt.Errorf("%w: %q", ErrInvalidPermission, s)
	}
	return p, nil
}

// ValidateCatalog checks the catalog invariants: every role maps to a
// non-empty permission set, every mapped permission is in the closed set,
// Partner's set is a superset of every other role's, and every action-table
// entry targets a known permission. Called once at startup; a failure is a
// configuration error and must abort the process.
func ValidateCatalog() error {
	partner := PermissionsFor(RolePartner)

	for _, role := range AllRoles {
		perms, ok := rolePermissions[role]
		if !ok || len(perms) == 0 {
			return fmt.Errorf("role %q has no permissions mapped", role)
		}
		for _, p := range perms {
			if _, known := permissionIndex[p]; !known {
				return fmt.Errorf("role %q maps unknown permission %q", role, p)
			}
		}
		if !partner.Contains(NewPermissionSet(perms...)) {
			return fmt.Errorf("partner permissions are not a superset of role %q", role)
		}
	}

	for key, p := range actionPermissions {
		if _, known := permissionIndex[p]; !known {
			return fmt.Errorf("action (%s, %s) maps unknown permission %q", key.resourceType, key.action, p)
		}
	}

	return nil
}
