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

package wall

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// AddCommand describes a batch of restrictions to place on one user.
type AddCommand struct {
	TenantID     string
	UserID       string
	ResourceIDs  []string
	ResourceType string
	Reason       string
	CreatedBy    string
	ExpiresAt    *time.Time
}

// Service provides ethical wall business logic on top of a Repository.
//
// Writes for the same user must not interleave: the restricted set is a
// union/difference and lost updates would silently widen access. A single
// mutex serializes all writes; restriction churn is administrative and low,
// so per-user striping is not worth the bookkeeping. Reads go straight to
// the repository and may observe a snapshot a write is about to replace;
// a writer's own subsequent reads see its writes.
type Service struct {
	mu   sync.Mutex
	repo Repository
	now  func() time.Time
}

// NewService creates a new ethical wall service.
func NewService(repo Repository) *Service {
	return &Service{
		repo: repo,
		now:  time.Now,
	}
}

// AddRestriction idempotently unions the command's resource ids into the
// user's restricted set. Re-adding an already-restricted id does not grow
// the set; the stored reason and expiry are replaced with the most recent
// values (last write wins).
func (s *Service) AddRestriction(ctx context.Context, cmd AddCommand) error {
	if err := s.validateAdd(cmd); err != nil {
		return err
	}

	now := s.now().UTC()
	restrictions := make([]Restriction, 0, len(cmd.ResourceIDs))
	seen := make(map[string]struct{}, len(cmd.ResourceIDs))
	for _, id := range cmd.ResourceIDs {
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		restrictions = append(restrictions, Restriction{
			TenantID:     cmd.TenantID,
			UserID:       cmd.UserID,
			ResourceID:   id,
			ResourceType: cmd.ResourceType,
			Reason:       cmd.Reason,
			CreatedBy:    cmd.CreatedBy,
			CreatedAt:    now,
			ExpiresAt:    cmd.ExpiresAt,
		})
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.repo.Upsert(ctx, restrictions); err != nil {
		return fmt.Errorf("failed to store restrictions: %w", err)
	}

	slog.InfoContext(ctx, "ethical wall restriction added",
		slog.String("tenant_id", cmd.TenantID),
		slog.String("user_id", cmd.UserID),
		slog.Int("resources", len(restrictions)),
		slog.String("reason", cmd.Reason),
	)
	return nil
}

// RemoveRestriction removes exactly the given resource ids from the user's
// restricted set. Ids not present are ignored; removal is never an error.
func (s *Service) RemoveRestriction(ctx context.Context, tenantID, userID string, resourceIDs []string) error {
	if userID == "" {
		return ErrEmptyUserID
	}
	if len(resourceIDs) == 0 {
		return ErrNoResourceIDs
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.repo.Delete(ctx, tenantID, userID, resourceIDs); err != nil {
		return fmt.Errorf("failed to remove restrictions: %w", err)
	}

	slog.InfoContext(ctx, "ethical wall restriction removed",
		slog.String("tenant_id", tenantID),
		slog.String("user_id", userID),
		slog.Int("resources", len(resourceIDs)),
	)
	return nil
}

// IsRestricted reports whether the resource id is in the user's restricted
// set and not expired. Expiry is evaluated lazily against the clock; expired
// rows may still exist in storage until cleanup purges them.
func (s *Service) IsRestricted(ctx context.Context, tenantID, userID, resourceID string) (bool, *Restriction, error) {
	if userID == "" || resourceID == "" {
		return false, nil, nil
	}

	restrictions, err := s.repo.ListForUser(ctx, tenantID, userID)
	if err != nil {
		return false, nil, fmt.Errorf("failed to load restrictions: %w", err)
	}

	now := s.now()
	for i := range restrictions {
		r := &restrictions[i]
		if r.ResourceID == resourceID && r.Active(now) {
			return true, r, nil
		}
	}
	return false, nil, nil
}

// RestrictionsFor returns the user's current non-expired restrictions.
// Ordering is not significant.
func (s *Service) RestrictionsFor(ctx context.Context, tenantID, userID string) ([]Restriction, error) {
	if userID == "" {
		return nil, ErrEmptyUserID
	}

	restrictions, err := s.repo.ListForUser(ctx, tenantID, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load restrictions: %w", err)
	}

	now := s.now()
	active := make([]Restriction, 0, len(restrictions))
	for _, r := range restrictions {
		if r.Active(now) {
			active = append(active, r)
		}
	}
	return active, nil
}

// PurgeExpired deletes restrictions whose expiry has passed. Lazy expiry in
// IsRestricted already treats them as absent; this reclaims storage.
func (s *Service) PurgeExpired(ctx context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	purged, err := s.repo.DeleteExpired(ctx, s.now().UTC())
	if err != nil {
		return 0, fmt.Errorf("failed to purge expired restrictions: %w", err)
	}
	return purged, nil
}

func (s *Service) validateAdd(cmd AddCommand) error {
	if cmd.UserID == "" {
		return ErrEmptyUserID
	}
	if len(cmd.ResourceIDs) == 0 {
		return ErrNoResourceIDs
	}
	if cmd.Reason == "" {
		return ErrMissingReason
	}
	if cmd.CreatedBy == "" {
		return ErrMissingCreator
	}
	if cmd.ExpiresAt != nil && !cmd.ExpiresAt.After(s.now()) {
		return ErrExpiryInPast
	}
	return nil
}
