package identity

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/lexgate/lexgate/internal/audit"
	"github.com/lexgate/lexgate/internal/rbac"
	"github.com/lexgate/lexgate/internal/tenant"
)

type mockUserRepo struct {
	mock.Mock
}

func (m *mockUserRepo) Create(ctx context.Context, u *User) error {
	args := m.Called(ctx, u)
	return args.Error(0)
}

func (m *mockUserRepo) GetByID(ctx context.Context, tenantID, id string) (*User, error) {
	args := m.Called(ctx, tenantID, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*User), args.Error(1)
}

func (m *mockUserRepo) GetByEmail(ctx context.Context, tenantID, email string) (*User, error) {
	args := m.Called(ctx, tenantID, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*User), args.Error(1)
}

func (m *mockUserRepo) Update(ctx context.Context, u *User) error {
	args := m.Called(ctx, u)
	return args.Error(0)
}

func (m *mockUserRepo) CountByTenant(ctx context.Context, tenantID string) (int, error) {
	args := m.Called(ctx, tenantID)
	return args.Int(0), args.Error(1)
}

func (m *mockUserRepo) ListByTenant(ctx context.Context, tenantID string, limit, offset int) ([]*User, error) {
	args := m.Called(ctx, tenantID, limit, offset)
	return args.Get(0).([]*User), args.Error(1)
}

type mockTenantRepo struct {
	mock.Mock
}

func (m *mockTenantRepo) Create(ctx context.Context, t *tenant.Tenant) error {
	args := m.Called(ctx, t)
	return args.Error(0)
}

func (m *mockTenantRepo) GetByID(ctx context.Context, id string) (*tenant.Tenant, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*tenant.Tenant), args.Error(1)
}

func (m *mockTenantRepo) GetByName(ctx context.Context, name string) (*tenant.Tenant, error) {
	args := m.Called(ctx, name)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*tenant.Tenant), args.Error(1)
}

func (m *mockTenantRepo) Update(ctx context.Context, t *tenant.Tenant) error {
	args := m.Called(ctx, t)
	return args.Error(0)
}

func (m *mockTenantRepo) List(ctx context.Context, limit, offset int) ([]*tenant.Tenant, error) {
	args := m.Called(ctx, limit, offset)
	return args.Get(0).([]*tenant.Tenant), args.Error(1)
}

type mockRecorder struct {
	mock.Mock
}

func (m *mockRecorder) Record(ctx context.Context, e audit.Entry) error {
	args := m.Called(ctx, e)
	return args.Error(0)
}

func activeFirm() *tenant.Tenant {
	return &tenant.Tenant{ID: "tenant-1", Name: "Firm", Status: tenant.StatusActive, MaxUsers: 50}
}

func TestService_CreateUser(t *testing.T) {
	ctx := context.Background()
	users := new(mockUserRepo)
	tenants := new(mockTenantRepo)
	recorder := new(mockRecorder)
	svc := NewService(users, tenants, recorder)

	tenants.On("GetByID", ctx, "tenant-1").Return(activeFirm(), nil)
	users.On("CountByTenant", ctx, "tenant-1").Return(3, nil)
	users.On("GetByEmail", ctx, "tenant-1", "ana@firm.example").Return(nil, ErrUserNotFound)
	users.On("Create", ctx, mock.AnythingOfType("*identity.User")).Return(nil)
	recorder.On("Record", ctx, mock.MatchedBy(func(e audit.Entry) bool {
		return e.Action == audit.ActionUserCreated
	})).Return(nil)

	user, err := svc.CreateUser(ctx, CreateUserCommand{
		TenantID:          "tenant-1",
		Username:          "ana.souza",
		Email:             "ana@firm.example",
		FullName:          "Ana Souza",
		Role:              "associate",
		CustomPermissions: []string{"view_financial"},
		CreatedBy:         "partner-1",
	})
	require.NoError(t, err)
	assert.Equal(t, rbac.RoleAssociate, user.Role)
	assert.Equal(t, []string{"view_financial"}, user.CustomPermissions)
	assert.True(t, user.Active)

	users.AssertExpectations(t)
	recorder.AssertExpectations(t)
}

// TestPurpose: Validates that an invalid custom grant token rejects the
// enrollment, is audited, and is never silently applied.
func TestService_CreateUser_InvalidGrantRejected(t *testing.T) {
	ctx := context.Background()
	users := new(mockUserRepo)
	tenants := new(mockTenantRepo)
	recorder := new(mockRecorder)
	svc := NewService(users, tenants, recorder)

	recorder.On("Record", ctx, mock.MatchedBy(func(e audit.Entry) bool {
		return e.Action == audit.ActionGrantRejected
	})).Return(nil)

	_, err := svc.CreateUser(ctx, CreateUserCommand{
		TenantID:          "tenant-1",
		Username:          "bob",
		Email:             "bob@firm.example",
		Role:              "paralegal",
		CustomPermissions: []string{"view_cases", "not_a_permission"},
		CreatedBy:         "partner-1",
	})
	assert.ErrorIs(t, err, rbac.ErrInvalidPermission)
	users.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	recorder.AssertExpectations(t)
}

func TestService_CreateUser_UnknownRole(t *testing.T) {
	ctx := context.Background()
	svc := NewService(new(mockUserRepo), new(mockTenantRepo), new(mockRecorder))

	_, err := svc.CreateUser(ctx, CreateUserCommand{
		TenantID: "tenant-1",
		Username: "bob",
		Email:    "bob@firm.example",
		Role:     "senior_partner",
	})
	assert.ErrorIs(t, err, rbac.ErrUnknownRole)
}

func TestService_CreateUser_TenantFull(t *testing.T) {
	ctx := context.Background()
	users := new(mockUserRepo)
	tenants := new(mockTenantRepo)
	svc := NewService(users, tenants, new(mockRecorder))

	firm := activeFirm()
	firm.MaxUsers = 3
	tenants.On("GetByID", ctx, "tenant-1").Return(firm, nil)
	users.On("CountByTenant", ctx, "tenant-1").Return(3, nil)

	_, err := svc.CreateUser(ctx, CreateUserCommand{
		TenantID: "tenant-1",
		Username: "bob",
		Email:    "bob@firm.example",
		Role:     "intern",
	})
	assert.ErrorIs(t, err, ErrTenantFull)
}

func TestService_GrantPermissions(t *testing.T) {
	ctx := context.Background()
	users := new(mockUserRepo)
	recorder := new(mockRecorder)
	svc := NewService(users, new(mockTenantRepo), recorder)

	existing := &User{
		ID:                "user-1",
		TenantID:          "tenant-1",
		Role:              rbac.RoleAssociate,
		CustomPermissions: []string{"view_financial"},
	}
	users.On("GetByID", ctx, "tenant-1", "user-1").Return(existing, nil)
	users.On("Update", ctx, mock.MatchedBy(func(u *User) bool {
		return len(u.CustomPermissions) == 2
	})).Return(nil)
	recorder.On("Record", ctx, mock.MatchedBy(func(e audit.Entry) bool {
		return e.Action == audit.ActionUserUpdated
	})).Return(nil)

	// view_financial already granted: the set must not grow a duplicate.
	user, err := svc.GrantPermissions(ctx, "tenant-1", "user-1", []string{"manage_users", "view_financial"}, "partner-1")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"view_financial", "manage_users"}, user.CustomPermissions)
	users.AssertExpectations(t)
}
