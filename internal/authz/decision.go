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
	"github.com/lexgate/lexgate/internal/rbac"
	"github.com/lexgate/lexgate/internal/wall"
)

// ReasonCode classifies a denial. Denials are outcomes, not errors: they are
// returned inside the decision so the calling surface can render a clear
// message without an exception trace.
type ReasonCode string

const (
	// ReasonNone accompanies an allow.
	ReasonNone ReasonCode = ""

	// ReasonInsufficientPermission: the role plus custom grants does not
	// hold the permission the action table requires.
	ReasonInsufficientPermission ReasonCode = "insufficient_permission"

	// ReasonEthicalWallRestricted: an ethical wall names this user for this
	// specific resource. Takes precedence over any role permission.
	ReasonEthicalWallRestricted ReasonCode = "ethical_wall_restricted"
)

// AccessDecision is the structured outcome of one authorization check. It is
// always produced, even when denying.
type AccessDecision struct {
	Allowed bool
	Reason  ReasonCode

	// MatchedPermission is the permission that satisfied the action table,
	// set when RBAC evaluation passed.
	MatchedPermission rbac.Permission

	// MatchedRestriction is the wall entry that forced the denial, set when
	// Reason is ReasonEthicalWallRestricted.
	MatchedRestriction *wall.Restriction
}
