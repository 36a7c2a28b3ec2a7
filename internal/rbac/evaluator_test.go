package rbac

import (
	"testing"
)

func newTestEvaluator(t *testing.T) *Evaluator {
	t.Helper()
	e, err := NewEvaluator()
	if err != nil {
		t.Fatalf("NewEvaluator() error = %v", err)
	}
	return e
}

// TestPurpose: Exhaustively validates the role x permission matrix.
// Scope: Unit Test
// Expected: HasPermission is true exactly for permissions in the role's
// baseline set.
func TestEvaluator_HasPermission_Matrix(t *testing.T) {
	e := newTestEvaluator(t)

	for _, role := range AllRoles {
		baseline := PermissionsFor(role)
		for _, p := range AllPermissions {
			got := e.HasPermission(role, p)
			want := baseline.Has(p)
			if got != want {
				t.Errorf("HasPermission(%q, %q) = %v, want %v", role, p, got, want)
			}
		}
	}
}

// TestPurpose: Validates that no custom grants leave the baseline unchanged.
// Expected: EffectivePermissions(role, nil) equals PermissionsFor(role).
func TestEvaluator_EffectivePermissions_NoGrants(t *testing.T) {
	e := newTestEvaluator(t)

	for _, role := range AllRoles {
		perms, invalid := e.EffectivePermissions(role, nil)
		if len(invalid) != 0 {
			t.Errorf("EffectivePermissions(%q, nil) invalid = %v, want none", role, invalid)
		}
		baseline := PermissionsFor(role)
		if len(perms) != len(baseline) || !perms.Contains(baseline) {
			t.Errorf("EffectivePermissions(%q, nil) = %v, want %v", role, perms.List(), baseline.List())
		}
	}
}

// TestPurpose: Validates custom grant union and invalid token handling.
// Expected: valid grants are added, invalid tokens are dropped and reported,
// never raised as an error.
func TestEvaluator_EffectivePermissions_CustomGrants(t *testing.T) {
	e := newTestEvaluator(t)

	perms, invalid := e.EffectivePermissions(RoleAssociate, []string{
		"manage_users",
		"not_a_permission",
		"view_financial",
	})

	if !perms.Has(PermManageUsers) {
		t.Error("manage_users grant not applied to associate")
	}
	if !perms.Has(PermViewFinancial) {
		t.Error("view_financial grant not applied to associate")
	}
	if len(invalid) != 1 || invalid[0] != "not_a_permission" {
		t.Errorf("invalid = %v, want [not_a_permission]", invalid)
	}

	// Baseline remains present alongside grants.
	if !perms.Contains(PermissionsFor(RoleAssociate)) {
		t.Error("grants displaced baseline permissions")
	}
}

func TestEvaluator_CanPerform(t *testing.T) {
	e := newTestEvaluator(t)

	tests := []struct {
		name         string
		role         Role
		resourceType string
		action       string
		wantPerm     Permission
		wantAllowed  bool
	}{
		{"client views case", RoleClient, ResourceCase, ActionView, PermViewCases, true},
		{"client deletes case", RoleClient, ResourceCase, ActionDelete, "", false},
		{"partner deletes case", RolePartner, ResourceCase, ActionDelete, PermDeleteCases, true},
		{"paralegal uploads document", RoleParalegal, ResourceDocument, ActionUpload, PermUploadDocuments, true},
		{"intern edits document", RoleIntern, ResourceDocument, ActionEdit, "", false},
		{"admin staff manages wall", RoleAdminStaff, ResourceWall, ActionManage, "", false},
		{"partner manages wall", RolePartner, ResourceWall, ActionManage, PermManageUsers, true},
		{"unmapped pair denied", RolePartner, "unknown_resource", "unknown_action", "", false},
		{"unmapped action on known type", RolePartner, ResourceCase, ActionUpload, "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			perms, _ := e.EffectivePermissions(tt.role, nil)
			perm, allowed := e.CanPerform(perms, tt.resourceType, tt.action)
			if allowed != tt.wantAllowed {
				t.Fatalf("CanPerform(%q, %q, %q) allowed = %v, want %v",
					tt.role, tt.resourceType, tt.action, allowed, tt.wantAllowed)
			}
			if perm != tt.wantPerm {
				t.Errorf("matched permission = %q, want %q", perm, tt.wantPerm)
			}
		})
	}
}
