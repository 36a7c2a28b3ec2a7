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

package tenant

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/lexgate/lexgate/internal/audit"
)

// CreateCommand carries the fields needed to register a law firm.
type CreateCommand struct {
	Name      string
	OABNumber string
	CNPJ      string
	Email     string
	Phone     string
	Address   string
	MaxUsers  int
	CreatedBy string
}

// Service provides tenant management business logic
type Service struct {
	repo     Repository
	recorder audit.Recorder
}

// NewService creates a new tenant service
func NewService(repo Repository, recorder audit.Recorder) *Service {
	return &Service{
		repo:     repo,
		recorder: recorder,
	}
}

// CreateTenant registers a new law firm. The registration is audited; an
// audit failure fails the registration.
func (s *Service) CreateTenant(ctx context.Context, cmd CreateCommand) (*Tenant, error) {
	if cmd.Name == "" {
		return nil, fmt.Errorf("tenant name is required")
	}
	if cmd.MaxUsers <= 0 {
		cmd.MaxUsers = 50
	}

	if _, err := s.repo.GetByName(ctx, cmd.Name); err == nil {
		return nil, ErrTenantAlreadyExists
	}

	now := time.Now().UTC()
	t := &Tenant{
		ID:              uuid.NewString(),
		Name:            cmd.Name,
		OABNumber:       cmd.OABNumber,
		CNPJ:            cmd.CNPJ,
		Email:           cmd.Email,
		Phone:           cmd.Phone,
		Address:         cmd.Address,
		MaxUsers:        cmd.MaxUsers,
		RetentionPolicy: DefaultRetentionPolicy,
		Status:          StatusActive,
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	if err := s.repo.Create(ctx, t); err != nil {
		return nil, fmt.Errorf("failed to create tenant: %w", err)
	}

	if err := s.recorder.Record(ctx, audit.Entry{
		ID:           uuid.NewString(),
		TenantID:     t.ID,
		UserID:       cmd.CreatedBy,
		Action:       audit.ActionTenantCreated,
		ResourceType: "tenant",
		ResourceID:   t.ID,
		Timestamp:    now,
		Metadata:     map[string]any{"name": t.Name},
	}); err != nil {
		return nil, fmt.Errorf("recording tenant creation: %w", err)
	}

	return t, nil
}

// GetTenant retrieves a tenant by ID
func (s *Service) GetTenant(ctx context.Context, id string) (*Tenant, error) {
	return s.repo.GetByID(ctx, id)
}

// ListTenants lists tenants with pagination
func (s *Service) ListTenants(ctx context.Context, limit, offset int) ([]*Tenant, error) {
	return s.repo.List(ctx, limit, offset)
}

// Deactivate marks a firm inactive. Resources are retained per the firm's
// retention policy; nothing is deleted here.
func (s *Service) Deactivate(ctx context.Context, id, actorID string) error {
	t, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if !t.Active() {
		return nil
	}

	t.Status = StatusInactive
	t.UpdatedAt = time.Now().UTC()
	if err := s.repo.Update(ctx, t); err != nil {
		return fmt.Errorf("failed to deactivate tenant: %w", err)
	}

	if err := s.recorder.Record(ctx, audit.Entry{
		ID:           uuid.NewString(),
		TenantID:     t.ID,
		UserID:       actorID,
		Action:       audit.ActionTenantDeactivated,
		ResourceType: "tenant",
		ResourceID:   t.ID,
		Timestamp:    t.UpdatedAt,
	}); err != nil {
		return fmt.Errorf("recording tenant deactivation: %w", err)
	}
	return nil
}
