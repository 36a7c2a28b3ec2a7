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

// Resource types accepted by the action table.
const (
	ResourceCase     = "case"
	ResourceDocument = "document"
	ResourceClient   = "client"
	ResourceTenant   = "tenant"
	ResourceUser     = "user"
	ResourceWall     = "wall"
	ResourceAudit    = "audit"
)

// Actions accepted by the action table.
const (
	ActionView   = "view"
	ActionCreate = "create"
	ActionEdit   = "edit"
	ActionDelete = "delete"
	ActionUpload = "upload"
	ActionManage = "manage"
)

type actionKey struct {
	resourceType string
	action       string
}

// actionPermissions maps a (resource type, action) pair to the permission
// required to perform it. Pairs absent from the table are denied; that is
// deny-by-default, not an error condition.
var actionPermissions = map[actionKey]Permission{
	{ResourceCase, ActionView}:   PermViewCases,
	{ResourceCase, ActionCreate}: PermCreateCases,
	{ResourceCase, ActionEdit}:   PermEditCases,
	{ResourceCase, ActionDelete}: PermDeleteCases,

	{ResourceDocument, ActionView}:   PermViewDocuments,
	{ResourceDocument, ActionUpload}: PermUploadDocuments,
	{ResourceDocument, ActionEdit}:   PermEditDocuments,
	{ResourceDocument, ActionDelete}: PermDeleteDocuments,

	{ResourceClient, ActionView}:   PermViewClients,
	{ResourceClient, ActionCreate}: PermCreateClients,
	{ResourceClient, ActionEdit}:   PermEditClients,
	{ResourceClient, ActionDelete}: PermDeleteClients,

	{ResourceTenant, ActionManage}: PermManageSettings,
	{ResourceUser, ActionView}:     PermManageUsers,
	{ResourceUser, ActionManage}:   PermManageUsers,
	{ResourceWall, ActionView}:     PermManageUsers,
	{ResourceWall, ActionManage}:   PermManageUsers,
	{ResourceAudit, ActionView}:    PermViewAuditLogs,
}

// ActionPermission looks up the permission required for an action on a
// resource type. The second return is false for unmapped pairs.
func ActionPermission(resourceType, action string) (Permission, bool) {
	p, ok := actionPermissions[actionKey{resourceType, action}]
	return p, ok
}
