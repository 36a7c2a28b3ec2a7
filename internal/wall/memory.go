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
	"sync"
	"time"
)

// MemoryRepository is an in-process Repository for development and tests.
type MemoryRepository struct {
	mu sync.RWMutex
	// keyed by "{tenant}:{user}", inner map keyed by resource id
	users map[string]map[string]Restriction
}

// NewMemoryRepository creates an empty in-memory repository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		users: make(map[string]map[string]Restriction),
	}
}

func userKey(tenantID, userID string) string {
	return tenantID + ":" + userID
}

// Upsert replaces any existing entry for the same (user, resource) pair.
func (r *MemoryRepository) Upsert(ctx context.Context, restrictions []Restriction) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, restriction := range restrictions {
		key := userKey(restriction.TenantID, restriction.UserID)
		set, ok := r.users[key]
		if !ok {
			set = make(map[string]Restriction)
			r.users[key] = set
		}
		set[restriction.ResourceID] = restriction
	}
	return nil
}

// Delete removes the given resource ids if present.
func (r *MemoryRepository) Delete(ctx context.Context, tenantID, userID string, resourceIDs []string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	set, ok := r.users[userKey(tenantID, userID)]
	if !ok {
		return nil
	}
	for _, id := range resourceIDs {
		delete(set, id)
	}
	return nil
}

// ListForUser returns the stored restrictions for a user, expired included.
func (r *MemoryRepository) ListForUser(ctx context.Context, tenantID, userID string) ([]Restriction, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	set, ok := r.users[userKey(tenantID, userID)]
	if !ok {
		return nil, nil
	}
	out := make([]Restriction, 0, len(set))
	for _, restriction := range set {
		out = append(out, restriction)
	}
	return out, nil
}

// DeleteExpired removes restrictions whose expiry is at or before the cutoff.
func (r *MemoryRepository) DeleteExpired(ctx context.Context, before time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var purged int64
	for key, set := range r.users {
		for id, restriction := range set {
			if restriction.ExpiresAt != nil && !restriction.ExpiresAt.After(before) {
				delete(set, id)
				purged++
			}
		}
		if len(set) == 0 {
			delete(r.users, key)
		}
	}
	return purged, nil
}
