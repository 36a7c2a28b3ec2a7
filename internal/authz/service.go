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

// Package authz is the single enforcement entry point: every case, document,
// client, and administrative operation calls Service.Authorize before acting.
// It composes the RBAC evaluator (coarse: does the role hold the permission)
// with the ethical wall (fine: is this specific resource barred for this
// user) and records every decision in the audit trail.
package authz

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/lexgate/lexgate/internal/audit"
	"github.com/lexgate/lexgate/internal/rbac"
	"github.com/lexgate/lexgate/internal/wall"
)

// Service is the authorization facade.
type Service struct {
	evaluator *rbac.Evaluator
	walls     *wall.Service
	recorder  audit.Recorder
}

// NewService creates the facade. The evaluator is stateless and shared; the
// wall service is the one piece of shared mutable state and is owned by the
// caller; the recorder must be durable for production use (fail-closed).
func NewService(evaluator *rbac.Evaluator, walls *wall.Service, recorder audit.Recorder) *Service {
	return &Service{
		evaluator: evaluator,
		walls:     walls,
		recorder:  recorder,
	}
}

// Authorize decides whether the context's user may perform action on the
// resource, records the decision, and returns it.
//
// Evaluation order is a deliberate contract: RBAC first, then the ethical
// wall, and the wall always wins — a Partner with every permission is still
// blocked from a case an ethical wall names them on. The wall models a hard
// legal prohibition, not a business preference.
//
// Exactly one audit entry is written per call, denials included. If the
// entry cannot be durably recorded the returned error wraps
// audit.ErrUnavailable and the caller must treat the operation as not yet
// authorized, whatever the decision says: losing the trail silently is a
// compliance violation.
func (s *Service) Authorize(ctx context.Context, access AccessContext, action, resourceType, resourceID string) (AccessDecision, error) {
	if err := access.Validate(); err != nil {
		slog.WarnContext(ctx, "authorization attempted without valid context",
			slog.String("action", action),
			slog.String("resource_type", resourceType),
		)
		return AccessDecision{}, err
	}

	perms, invalidGrants := s.evaluator.EffectivePermissions(access.Role, access.CustomPermissions)
	matchedPerm, rbacAllowed := s.evaluator.CanPerform(perms, resourceType, action)

	decision := AccessDecision{
		Allowed:           rbacAllowed,
		MatchedPermission: matchedPerm,
	}
	if !rbacAllowed {
		decision.Reason = ReasonInsufficientPermission
	}

	if resourceID != "" {
		restricted, restriction, err := s.walls.IsRestricted(ctx, access.TenantID, access.UserID, resourceID)
		if err != nil {
			// No decision can be made without the wall. Still leave a trail
			// for the failed check, then fail the operation.
			s.recordDecision(ctx, access, action, resourceType, resourceID, AccessDecision{},
				invalidGrants, map[string]any{"wall_error": err.Error()})
			return AccessDecision{}, fmt.Errorf("ethical wall check failed: %w", err)
		}
		if restricted {
			decision.Allowed = false
			decision.Reason = ReasonEthicalWallRestricted
			decision.MatchedRestriction = restriction
		}
	}

	if err := s.recordDecision(ctx, access, action, resourceType, resourceID, decision, invalidGrants, nil); err != nil {
		return decision, fmt.Errorf("recording authorization decision: %w", err)
	}

	return decision, nil
}

// EffectivePermissions returns the union of the role's baseline set and the
// context's valid custom grants, for UI and feature-flag purposes. Invalid
// grant tokens are returned separately; they never fail the call.
func (s *Service) EffectivePermissions(access AccessContext) (rbac.PermissionSet, []string, error) {
	if err := access.Validate(); err != nil {
		return nil, nil, err
	}
	perms, invalid := s.evaluator.EffectivePermissions(access.Role, access.CustomPermissions)
	return perms, invalid, nil
}

func (s *Service) recordDecision(ctx context.Context, access AccessContext, action, resourceType, resourceID string, decision AccessDecision, invalidGrants []string, extra map[string]any) error {
	auditAction := audit.ActionDecisionAllowed
	if !decision.Allowed {
		auditAction = audit.ActionDecisionDenied
	}

	metadata := map[string]any{
		"requested_action": action,
	}
	if decision.Reason != ReasonNone {
		metadata["reason"] = string(decision.Reason)
	}
	if decision.MatchedPermission != "" {
		metadata["permission"] = string(decision.MatchedPermission)
	}
	if decision.MatchedRestriction != nil {
		metadata["restriction_reason"] = decision.MatchedRestriction.Reason
	}
	if len(invalidGrants) > 0 {
		metadata["invalid_grants"] = invalidGrants
	}
	for k, v := range extra {
		metadata[k] = v
	}

	err := s.recorder.Record(ctx, audit.Entry{
		ID:           uuid.NewString(),
		TenantID:     access.TenantID,
		UserID:       access.UserID,
		Action:       auditAction,
		ResourceType: resourceType,
		ResourceID:   resourceID,
		Timestamp:    time.Now().UTC(),
		IPAddress:    access.IPAddress,
		UserAgent:    access.UserAgent,
		Metadata:     metadata,
	})
	if err != nil {
		slog.ErrorContext(ctx, "audit write failed for authorization decision",
			slog.String("tenant_id", access.TenantID),
			slog.String("user_id", access.UserID),
			slog.String("action", action),
			slog.String("error", err.Error()),
		)
	}
	return err
}
