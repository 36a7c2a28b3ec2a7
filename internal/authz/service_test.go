package authz_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lexgate/lexgate/internal/audit"
	"github.com/lexgate/lexgate/internal/authz"
	"github.com/lexgate/lexgate/internal/rbac"
	"github.com/lexgate/lexgate/internal/wall"
)

type capturingRecorder struct {
	entries []audit.Entry
	err     error
}

func (r *capturingRecorder) Record(_ context.Context, e audit.Entry) error {
	r.entries = append(r.entries, e)
	return r.err
}

type failingWallRepo struct{}

func (failingWallRepo) Upsert(context.Context, []wall.Restriction) error { return wall.ErrStoreUnavailable }
func (failingWallRepo) Delete(context.Context, string, string, []string) error {
	return wall.ErrStoreUnavailable
}
func (failingWallRepo) ListForUser(context.Context, string, string) ([]wall.Restriction, error) {
	return nil, wall.ErrStoreUnavailable
}
func (failingWallRepo) DeleteExpired(context.Context, time.Time) (int64, error) {
	return 0, wall.ErrStoreUnavailable
}

func newFacade(t *testing.T, recorder audit.Recorder) (*authz.Service, *wall.Service) {
	t.Helper()
	evaluator, err := rbac.NewEvaluator()
	require.NoError(t, err)
	walls := wall.NewService(wall.NewMemoryRepository())
	return authz.NewService(evaluator, walls, recorder), walls
}

func partnerContext() authz.AccessContext {
	return authz.AccessContext{
		TenantID:  "tenant-1",
		UserID:    "partner-1",
		Role:      rbac.RolePartner,
		IPAddress: "203.0.113.7",
		UserAgent: "lexgate-test/1.0",
	}
}

// TestPurpose: Validates the precedence contract — an ethical wall blocks a
// Partner with full RBAC permissions on the named resource.
func TestAuthorize_WallOverridesPartner(t *testing.T) {
	ctx := context.Background()
	recorder := &capturingRecorder{}
	svc, walls := newFacade(t, recorder)

	require.NoError(t, walls.AddRestriction(ctx, wall.AddCommand{
		TenantID:     "tenant-1",
		UserID:       "partner-1",
		ResourceIDs:  []string{"case-x"},
		ResourceType: rbac.ResourceCase,
		Reason:       "opposing party is a former client",
		CreatedBy:    "partner-2",
	}))

	decision, err := svc.Authorize(ctx, partnerContext(), rbac.ActionView, rbac.ResourceCase, "case-x")
	require.NoError(t, err)
	assert.False(t, decision.Allowed)
	assert.Equal(t, authz.ReasonEthicalWallRestricted, decision.Reason)
	require.NotNil(t, decision.MatchedRestriction)
	assert.Equal(t, "case-x", decision.MatchedRestriction.ResourceID)

	// The same partner is unrestricted on other cases.
	decision, err = svc.Authorize(ctx, partnerContext(), rbac.ActionView, rbac.ResourceCase, "case-y")
	require.NoError(t, err)
	assert.True(t, decision.Allowed)
	assert.Equal(t, authz.ReasonNone, decision.Reason)
}

// TestPurpose: Validates the RBAC scenarios from the access contract —
// Client may view but not delete a case.
func TestAuthorize_ClientScenarios(t *testing.T) {
	ctx := context.Background()
	recorder := &capturingRecorder{}
	svc, _ := newFacade(t, recorder)

	client := authz.AccessContext{TenantID: "tenant-1", UserID: "client-1", Role: rbac.RoleClient}

	decision, err := svc.Authorize(ctx, client, rbac.ActionView, rbac.ResourceCase, "case-1")
	require.NoError(t, err)
	assert.True(t, decision.Allowed)
	assert.Equal(t, authz.ReasonNone, decision.Reason)
	assert.Equal(t, rbac.PermViewCases, decision.MatchedPermission)

	decision, err = svc.Authorize(ctx, client, rbac.ActionDelete, rbac.ResourceCase, "case-1")
	require.NoError(t, err)
	assert.False(t, decision.Allowed)
	assert.Equal(t, authz.ReasonInsufficientPermission, decision.Reason)
}

// TestPurpose: Validates default-deny on unmapped (resource, action) pairs.
func TestAuthorize_UnmappedActionDenied(t *testing.T) {
	ctx := context.Background()
	recorder := &capturingRecorder{}
	svc, _ := newFacade(t, recorder)

	decision, err := svc.Authorize(ctx, partnerContext(), "unknown_action", "unknown_resource", "")
	require.NoError(t, err)
	assert.False(t, decision.Allowed)
	assert.Equal(t, authz.ReasonInsufficientPermission, decision.Reason)
}

// TestPurpose: Validates that every Authorize call produces exactly one
// audit entry, denials included.
func TestAuthorize_OneAuditEntryPerCall(t *testing.T) {
	ctx := context.Background()
	recorder := &capturingRecorder{}
	svc, _ := newFacade(t, recorder)

	client := authz.AccessContext{TenantID: "tenant-1", UserID: "client-1", Role: rbac.RoleClient}

	_, err := svc.Authorize(ctx, client, rbac.ActionView, rbac.ResourceCase, "case-1")
	require.NoError(t, err)
	_, err = svc.Authorize(ctx, client, rbac.ActionDelete, rbac.ResourceCase, "case-1")
	require.NoError(t, err)

	require.Len(t, recorder.entries, 2)
	assert.Equal(t, audit.ActionDecisionAllowed, recorder.entries[0].Action)
	assert.Equal(t, audit.ActionDecisionDenied, recorder.entries[1].Action)

	for _, entry := range recorder.entries {
		assert.Equal(t, "tenant-1", entry.TenantID)
		assert.Equal(t, "client-1", entry.UserID)
		assert.Equal(t, rbac.ResourceCase, entry.ResourceType)
		assert.Equal(t, "case-1", entry.ResourceID)
		assert.False(t, entry.Timestamp.IsZero())
		assert.NotEmpty(t, entry.ID)
	}
}

// TestPurpose: Validates the fail-closed audit contract — a persistence
// failure surfaces to the caller and is distinguishable from a denial.
func TestAuthorize_AuditFailureIsFailClosed(t *testing.T) {
	ctx := context.Background()
	recorder := &capturingRecorder{err: audit.ErrUnavailable}
	svc, _ := newFacade(t, recorder)

	_, err := svc.Authorize(ctx, partnerContext(), rbac.ActionView, rbac.ResourceCase, "case-1")
	require.Error(t, err)
	assert.ErrorIs(t, err, audit.ErrUnavailable)
	assert.NotErrorIs(t, err, authz.ErrUnauthenticatedContext)
}

// TestPurpose: Validates that an incomplete access context fails the
// operation without touching the audit trail.
func TestAuthorize_UnauthenticatedContext(t *testing.T) {
	ctx := context.Background()
	recorder := &capturingRecorder{}
	svc, _ := newFacade(t, recorder)

	tests := []struct {
		name   string
		access authz.AccessContext
	}{
		{"empty", authz.AccessContext{}},
		{"missing tenant", authz.AccessContext{UserID: "u", Role: rbac.RolePartner}},
		{"missing user", authz.AccessContext{TenantID: "t", Role: rbac.RolePartner}},
		{"unknown role", authz.AccessContext{TenantID: "t", UserID: "u", Role: "superuser"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Authorize(ctx, tt.access, rbac.ActionView, rbac.ResourceCase, "case-1")
			assert.ErrorIs(t, err, authz.ErrUnauthenticatedContext)
		})
	}
	assert.Empty(t, recorder.entries)
}

// TestPurpose: Validates custom grant handling — a valid grant widens the
// effective set, an invalid token is dropped without error and surfaced in
// the audit metadata.
func TestAuthorize_CustomGrants(t *testing.T) {
	ctx := context.Background()
	recorder := &capturingRecorder{}
	svc, _ := newFacade(t, recorder)

	associate := authz.AccessContext{
		TenantID:          "tenant-1",
		UserID:            "associate-1",
		Role:              rbac.RoleAssociate,
		CustomPermissions: []string{"manage_users", "not_a_permission"},
	}

	perms, invalid, err := svc.EffectivePermissions(associate)
	require.NoError(t, err)
	assert.True(t, perms.Has(rbac.PermManageUsers))
	assert.Equal(t, []string{"not_a_permission"}, invalid)

	// The grant is honored at authorization time too: wall administration
	// requires manage_users, which base Associate lacks.
	decision, err := svc.Authorize(ctx, associate, rbac.ActionManage, rbac.ResourceWall, "")
	require.NoError(t, err)
	assert.True(t, decision.Allowed)

	require.Len(t, recorder.entries, 1)
	assert.Equal(t, []string{"not_a_permission"}, recorder.entries[0].Metadata["invalid_grants"])
}

// TestPurpose: Validates behavior when the wall store is unreachable — the
// operation fails rather than falling open, and the failed check still
// leaves an audit entry.
func TestAuthorize_WallStoreUnavailable(t *testing.T) {
	ctx := context.Background()
	recorder := &capturingRecorder{}
	evaluator, err := rbac.NewEvaluator()
	require.NoError(t, err)
	svc := authz.NewService(evaluator, wall.NewService(failingWallRepo{}), recorder)

	_, err = svc.Authorize(ctx, partnerContext(), rbac.ActionView, rbac.ResourceCase, "case-1")
	require.Error(t, err)
	assert.ErrorIs(t, err, wall.ErrStoreUnavailable)

	require.Len(t, recorder.entries, 1)
	assert.Equal(t, audit.ActionDecisionDenied, recorder.entries[0].Action)
	assert.Contains(t, recorder.entries[0].Metadata, "wall_error")
}

// TestPurpose: Validates context isolation — concurrent operations with
// different contexts never observe each other's tenant or role.
func TestAuthorize_ConcurrentContexts(t *testing.T) {
	ctx := context.Background()
	evaluator, err := rbac.NewEvaluator()
	require.NoError(t, err)
	walls := wall.NewService(wall.NewMemoryRepository())

	done := make(chan struct{})
	// Separate facades and recorders per goroutine keep entry capture
	// race-free; the evaluator and wall service are shared, as in
	// production.
	for i := 0; i < 2; i++ {
		role := rbac.RolePartner
		wantAllowed := true
		if i == 1 {
			role = rbac.RoleClient
			wantAllowed = false
		}
		go func(role rbac.Role, wantAllowed bool) {
			defer func() { done <- struct{}{} }()
			local := authz.NewService(evaluator, walls, &capturingRecorder{})
			access := authz.AccessContext{TenantID: "tenant-" + string(role), UserID: "user-" + string(role), Role: role}
			for j := 0; j < 100; j++ {
				decision, err := local.Authorize(ctx, access, rbac.ActionDelete, rbac.ResourceCase, "")
				if err != nil || decision.Allowed != wantAllowed {
					t.Errorf("role %s: decision = %+v, err = %v", role, decision, err)
					return
				}
			}
		}(role, wantAllowed)
	}
	<-done
	<-done
}
