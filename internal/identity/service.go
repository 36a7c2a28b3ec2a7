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

package identity

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/lexgate/lexgate/internal/audit"
	"github.com/lexgate/lexgate/internal/rbac"
	"github.com/lexgate/lexgate/internal/tenant"
)

// CreateUserCommand carries the fields needed to enroll a firm member.
type CreateUserCommand struct {
	TenantID          string
	Username          string
	Email             string
	FullName          string
	OABNumber         string
	Role              string
	CustomPermissions []string
	CreatedBy         string
}

// Service provides user directory business logic
type Service struct {
	repo       Repository
	tenantRepo tenant.Repository
	recorder   audit.Recorder
}

// NewService creates a new identity service
func NewService(repo Repository, tenantRepo tenant.Repository, recorder audit.Recorder) *Service {
	return &Service{
		repo:       repo,
		tenantRepo: tenantRepo,
		recorder:   recorder,
	}
}

// CreateUser enrolls a member into a firm. The role must parse against the
// closed role set; custom permission tokens are validated at grant time —
// an invalid token rejects the grant and is recorded, never silently
// applied.
func (s *Service) CreateUser(ctx context.Context, cmd CreateUserCommand) (*User, error) {
	if cmd.Username == "" || !strings.Contains(cmd.Email, "@") {
		return nil, ErrInvalidEmail
	}

	role, err := rbac.ParseRole(cmd.Role)
	if err != nil {
		return nil, err
	}

	grants, rejected := validateGrants(cmd.CustomPermissions)
	if len(rejected) > 0 {
		if err := s.recorder.Record(ctx, audit.Entry{
			ID:           uuid.NewString(),
			TenantID:     cmd.TenantID,
			UserID:       cmd.CreatedBy,
			Action:       audit.ActionGrantRejected,
			ResourceType: "user",
			Timestamp:    time.Now().UTC(),
			Metadata:     map[string]any{"rejected_grants": rejected, "subject": cmd.Username},
		}); err != nil {
			return nil, fmt.Errorf("recording rejected grants: %w", err)
		}
		return nil, fmt.Errorf("%w: %s", rbac.ErrInvalidPermission, strings.Join(rejected, ", "))
	}

	firm, err := s.tenantRepo.GetByID(ctx, cmd.TenantID)
	if err != nil {
		return nil, err
	}
	if !firm.Active() {
		return nil, tenant.ErrTenantInactive
	}

	count, err := s.repo.CountByTenant(ctx, cmd.TenantID)
	if err != nil {
		return nil, fmt.Errorf("failed to count tenant users: %w", err)
	}
	if firm.MaxUsers > 0 && count >= firm.MaxUsers {
		return nil, ErrTenantFull
	}

	if _, err := s.repo.GetByEmail(ctx, cmd.TenantID, cmd.Email); err == nil {
		return nil, ErrUserAlreadyExists
	}

	now := time.Now().UTC()
	user := &User{
		ID:                uuid.NewString(),
		TenantID:          cmd.TenantID,
		Username:          cmd.Username,
		Email:             cmd.Email,
		FullName:          cmd.FullName,
		OABNumber:         cmd.OABNumber,
		Role:              role,
		CustomPermissions: grants,
		Active:            true,
		CreatedAt:         now,
		UpdatedAt:         now,
	}

	if err := s.repo.Create(ctx, user); err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	if err := s.recorder.Record(ctx, audit.Entry{
		ID:           uuid.NewString(),
		TenantID:     cmd.TenantID,
		UserID:       cmd.CreatedBy,
		Action:       audit.ActionUserCreated,
		ResourceType: "user",
		ResourceID:   user.ID,
		Timestamp:    now,
		Metadata:     map[string]any{"role": string(role), "username": user.Username},
	}); err != nil {
		return nil, fmt.Errorf("recording user creation: %w", err)
	}

	return user, nil
}

// GetUser retrieves a user scoped to a tenant.
func (s *Service) GetUser(ctx context.Context, tenantID, id string) (*User, error) {
	return s.repo.GetByID(ctx, tenantID, id)
}

// ListUsers lists a tenant's users with pagination.
func (s *Service) ListUsers(ctx context.Context, tenantID string, limit, offset int) ([]*User, error) {
	return s.repo.ListByTenant(ctx, tenantID, limit, offset)
}

// GrantPermissions adds validated custom permission tokens to a user.
// Invalid tokens reject the whole grant so an operator can correct it; the
// rejection is audited.
func (s *Service) GrantPermissions(ctx context.Context, tenantID, userID string, permissions []string, grantedBy string) (*User, error) {
	grants, rejected := validateGrants(permissions)
	if len(rejected) > 0 {
		if err := s.recorder.Record(ctx, audit.Entry{
			ID:           uuid.NewString(),
			TenantID:     tenantID,
			UserID:       grantedBy,
			Action:       audit.ActionGrantRejected,
			ResourceType: "user",
			ResourceID:   userID,
			Timestamp:    time.Now().UTC(),
			Metadata:     map[string]any{"rejected_grants": rejected},
		}); err != nil {
			return nil, fmt.Errorf("recording rejected grants: %w", err)
		}
		return nil, fmt.Errorf("%w: %s", rbac.ErrInvalidPermission, strings.Join(rejected, ", "))
	}

	user, err := s.repo.GetByID(ctx, tenantID, userID)
	if err != nil {
		return nil, err
	}

	existing := make(map[string]struct{}, len(user.CustomPermissions))
	for _, p := range user.CustomPermissions {
		existing[p] = struct{}{}
	}
	for _, p := range grants {
		if _, ok := existing[p]; !ok {
			user.CustomPermissions = append(user.CustomPermissions, p)
		}
	}
	user.UpdatedAt = time.Now().UTC()

	if err := s.repo.Update(ctx, user); err != nil {
		return nil, fmt.Errorf("failed to update user: %w", err)
	}

	if err := s.recorder.Record(ctx, audit.Entry{
		ID:           uuid.NewString(),
		TenantID:     tenantID,
		UserID:       grantedBy,
		Action:       audit.ActionUserUpdated,
		ResourceType: "user",
		ResourceID:   userID,
		Timestamp:    user.UpdatedAt,
		Metadata:     map[string]any{"granted": grants},
	}); err != nil {
		return nil, fmt.Errorf("recording permission grant: %w", err)
	}

	return user, nil
}

// validateGrants splits tokens into valid permissions and rejects.
func validateGrants(tokens []string) (valid []string, rejected []string) {
	for _, token := range tokens {
		if _, err := rbac.ParsePermission(token); err != nil {
			rejected = append(rejected, token)
			continue
		}
		valid = append(valid, token)
	}
	return valid, rejected
}
