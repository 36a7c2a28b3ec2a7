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

// Package wall implements ethical walls: conflict-of-interest restrictions
// that bar a specific user from a specific resource regardless of what their
// role would otherwise permit. The wall is default-allow — a resource is
// accessible unless explicitly restricted — which is the inverse of the RBAC
// action table's default-deny. The two compose in internal/authz.
package wall

import (
	"context"
	"errors"
	"time"
)

// Domain errors
var (
	ErrEmptyUserID      = errors.New("user id must not be empty")
	ErrNoResourceIDs    = errors.New("at least one resource id is required")
	ErrMissingReason    = errors.New("restriction reason is required")
	ErrMissingCreator   = errors.New("restriction creator is required")
	ErrExpiryInPast     = errors.New("restriction expiry is in the past")
	ErrStoreUnavailable = errors.New("restriction store unavailable")
)

// Restriction bars one user from one resource. A user's restrictions form a
// set keyed by resource id: presence is boolean, never counted.
type Restriction struct {
	TenantID     string
	UserID       string
	ResourceID   string
	ResourceType string
	Reason       string
	CreatedBy    string
	CreatedAt    time.Time
	ExpiresAt    *time.Time
}

// Active reports whether the restriction is in force at the given instant.
// A nil expiry never lapses; an expired restriction is treated as absent.
func (r *Restriction) Active(now time.Time) bool {
	return r.ExpiresAt == nil || r.ExpiresAt.After(now)
}

// Repository defines restriction persistence, keyed by (tenant, user).
// Upsert replaces any existing row for the same (user, resource) pair so the
// stored set mirrors the set semantics of the domain.
type Repository interface {
	Upsert(ctx context.Context, restrictions []Restriction) error
	Delete(ctx context.Context, tenantID, userID string, resourceIDs []string) error
	ListForUser(ctx context.Context, tenantID, userID string) ([]Restriction, error)
	DeleteExpired(ctx context.Context, before time.Time) (int64, error)
}
