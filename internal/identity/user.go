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

// Package identity is the tenant user directory: who works at the firm,
// which role they hold, and which extra permissions were granted to them
// individually. Authentication lives in the external auth service; this
// package never sees credentials.
package identity

import (
	"context"
	"errors"
	"time"

	"github.com/lexgate/lexgate/internal/rbac"
)

// Domain errors
var (
	ErrUserNotFound      = errors.New("user not found")
	ErrUserAlreadyExists = errors.New("user already exists")
	ErrInvalidEmail      = errors.New("invalid email address")
	ErrTenantFull        = errors.New("tenant user limit reached")
)

// User represents a member of a law firm tenant.
type User struct {
	ID       string
	TenantID string
	Username string
	Email    string
	FullName string

	// OABNumber is the individual bar registration, set for lawyers.
	OABNumber string

	Role rbac.Role

	// CustomPermissions widens the role's baseline set for this user.
	// Every token is validated against the closed permission catalog at
	// grant time; this slice never holds an invalid token.
	CustomPermissions []string

	Active    bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Repository defines the interface for user persistence
type Repository interface {
	Create(ctx context.Context, user *User) error
	GetByID(ctx context.Context, tenantID, id string) (*User, error)
	GetByEmail(ctx context.Context, tenantID, email string) (*User, error)
	Update(ctx context.Context, user *User) error
	CountByTenant(ctx context.Context, tenantID string) (int, error)
	ListByTenant(ctx context.Context, tenantID string, limit, offset int) ([]*User, error)
}
