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

package rbac

import (
	"log/slog"
)

// Evaluator answers permission questions against the catalog. It is
// stateless and side-effect-free so checks can run many times per request
// and be tested exhaustively against the full role x permission matrix.
type Evaluator struct{}

// NewEvaluator validates the catalog and returns a shared evaluator.
// A validation failure is a deploy-time configuration error; callers must
// treat it as fatal.
func NewEvaluator() (*Evaluator, error) {
	if err := ValidateCatalog(); err != nil {
		return nil, err
	}
	return &Evaluator{}, nil
}

// HasPermission reports whether the role's baseline set contains the
// permission.
func (e *Evaluator) HasPermission(role Role, permission Permission) bool {
	return PermissionsFor(role).Has(permission)
}

// EffectivePermissions unions the role's baseline set with the valid subset
// of customGrants. Grant strings that do not parse as permissions are
// dropped, returned in invalid, and logged as warnings; they never fail the
// evaluation.
func (e *Evaluator) EffectivePermissions(role Role, customGrants []string) (PermissionSet, []string) {
	perms := PermissionsFor(role)

	var invalid []string
	for _, grant := range customGrants {
		p, err := ParsePermission(grant)
		if err != nil {
			invalid = append(invalid, grant)
			slog.Warn("dropping invalid custom permission grant",
				slog.String("role", string(role)),
				slog.String("grant", grant),
			)
			continue
		}
		perms[p] = struct{}{}
	}

	return perms, invalid
}

// CanPerform reports whether the effective permission set allows an action
// on a resource type. Unmapped (resource type, action) pairs are denied.
func (e *Evaluator) CanPerform(perms PermissionSet, resourceType, action string) (Permission, bool) {
	required, ok := ActionPermission(resourceType, action)
	if !ok {
		return "", false
	}
	if !perms.Has(required) {
		return "", false
	}
	return required, true
}
