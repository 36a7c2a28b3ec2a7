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

// Package tenant manages law-firm organizations. Every resource and user
// belongs to exactly one tenant; isolation between tenants is enforced by
// scoping every query with the tenant id from the access context.
package tenant

import (
	"time"
)

// Status constants
const (
	StatusActive   = "active"
	StatusInactive = "inactive"
)

// DefaultRetentionPolicy is the audit/document retention applied to new
// firms unless configured otherwise. Seven years tracks the Brazilian bar's
// record-keeping guidance the original deployment operated under.
const DefaultRetentionPolicy = "7_years"

// Tenant represents a law firm on the platform.
type Tenant struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	OABNumber string `json:"oab_number,omitempty"`
	CNPJ      string `json:"cnpj,omitempty"`
	Email     string `json:"email,omitempty"`
	Phone     string `json:"phone,omitempty"`
	Address   string `json:"address,omitempty"`

	MaxUsers        int    `json:"max_users"`
	RetentionPolicy string `json:"retention_policy"`

	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Active reports whether the firm may be operated on.
func (t *Tenant) Active() bool {
	return t.Status == StatusActive
}
