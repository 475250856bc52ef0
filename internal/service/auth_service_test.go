package service

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tejasnaveen/Shakti/internal/domain"
	"github.com/tejasnaveen/Shakti/internal/repository"
	"github.com/tejasnaveen/Shakti/internal/store"
)

func TestLogin_CompanyAdminOnTenantHost(t *testing.T) {
	f := newFixture(t)

	res, err := f.login(acmeHost, domain.RoleCompanyAdmin, "bob", bobPassword)
	require.NoError(t, err)

	assert.NotEmpty(t, res.Token)
	assert.Equal(t, "/companyadmin", res.HomePath)
	require.NotNil(t, res.Tenant)
	assert.Equal(t, f.acme.ID, res.Tenant.ID)
	assert.Equal(t, domain.SessionIdentity{
		PrincipalID: f.bob.ID,
		Username:    "bob",
		Name:        "Bob",
		Role:        domain.RoleCompanyAdmin,
		TenantID:    f.acme.ID,
		Email:       "bob@acme.example.com",
	}, res.Identity)

	stored, err := f.auth.Session(context.Background(), res.Token)
	require.NoError(t, err)
	assert.Equal(t, res.Identity, *stored)

	bob, err := f.repos.Admins.GetAdmin(context.Background(), f.bob.ID)
	require.NoError(t, err)
	require.NotNil(t, bob.LastLoginAt)
	assert.True(t, bob.LastLoginAt.Equal(f.clock.Now()))

	ev := f.events.last()
	assert.Equal(t, "login", ev.Type)
	assert.Equal(t, "success", ev.Outcome)
	assert.Equal(t, f.acme.ID, ev.TenantID)
	assert.Equal(t, f.bob.ID, ev.PrincipalID)
	assert.Equal(t, "10.0.0.7", ev.IPAddress)
}

func TestLogin_HostWithPortAndCase(t *testing.T) {
	f := newFixture(t)

	for _, host := range []string{"ACME.example.com:8443", "acme.localhost:5173", "acme.example.com."} {
		_, err := f.login(host, domain.RoleCompanyAdmin, "bob", bobPassword)
		assert.NoError(t, err, host)
	}
}

func TestLogin_InvalidCredentialsAreIndistinguishable(t *testing.T) {
	f := newFixture(t)

	_, wrongPw := f.login(acmeHost, domain.RoleCompanyAdmin, "bob", "wrong-pw")
	_, unknown := f.login(acmeHost, domain.RoleCompanyAdmin, "mallory", bobPassword)
	_, empty := f.login(acmeHost, domain.RoleCompanyAdmin, "bob", "")

	for _, err := range []error{wrongPw, unknown, empty} {
		assert.ErrorIs(t, err, domain.ErrInvalidCredential)
		assert.Equal(t, domain.ErrInvalidCredential.Error(), err.Error())
	}
	assert.Equal(t, "invalid_password", f.events.events[0].Outcome)
	assert.Equal(t, "user_not_found", f.events.events[1].Outcome)
	assert.Equal(t, "missing_credentials", f.events.events[2].Outcome)
}

func TestLogin_TenantUnavailable(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	tests := []struct {
		name string
		host string
	}{
		{"apex domain", "example.com"},
		{"www", "www.example.com"},
		{"unknown subdomain", "ghost.example.com"},
		{"bare localhost", "localhost:5173"},
		{"ip literal", "127.0.0.1:8080"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.login(tt.host, domain.RoleCompanyAdmin, "bob", bobPassword)
			assert.ErrorIs(t, err, domain.ErrTenantUnavailable)
		})
	}

	t.Run("inactive tenant regardless of credentials", func(t *testing.T) {
		_, err := f.tenants.SetTenantStatus(ctx, f.acme.ID, domain.StatusInactive)
		require.NoError(t, err)

		_, err = f.login(acmeHost, domain.RoleCompanyAdmin, "bob", bobPassword)
		assert.ErrorIs(t, err, domain.ErrTenantUnavailable)
		_, err = f.login(acmeHost, domain.RoleCompanyAdmin, "bob", "wrong-pw")
		assert.ErrorIs(t, err, domain.ErrTenantUnavailable)
	})
}

func TestLogin_AdminOfAnotherTenant(t *testing.T) {
	f := newFixture(t)
	_, err := f.tenants.CreateTenant(context.Background(), TenantInput{Name: "Globex", Subdomain: "globex"})
	require.NoError(t, err)

	_, err = f.login("globex.example.com", domain.RoleCompanyAdmin, "bob", bobPassword)
	assert.ErrorIs(t, err, domain.ErrInvalidCredential)
}

func TestLogin_SuperAdminIgnoresTenantState(t *testing.T) {
	f := newFixture(t)
	_, err := f.tenants.SetTenantStatus(context.Background(), f.acme.ID, domain.StatusInactive)
	require.NoError(t, err)

	for _, host := range []string{"www.example.com", "example.com", "localhost:5173", acmeHost} {
		res, err := f.login(host, domain.RoleSuperAdmin, "root", rootPassword)
		require.NoError(t, err, host)
		assert.Equal(t, "/superadmin", res.HomePath)
		assert.Nil(t, res.Tenant)
		assert.Empty(t, res.Identity.TenantID)
		assert.Equal(t, "Platform Root", res.Identity.Name)
	}

	_, err = f.login("www.example.com", domain.RoleSuperAdmin, "root", "nope")
	assert.ErrorIs(t, err, domain.ErrInvalidCredential)
}

func TestLogin_EmployeeByMobileOrCode(t *testing.T) {
	f := newFixture(t)
	emp := f.addEmployee(t, f.acme.ID, domain.RoleTelecaller, "9876543210", "TC001")

	byMobile, err := f.login(acmeHost, domain.RoleTelecaller, "9876543210", empPassword)
	require.NoError(t, err)
	assert.Equal(t, emp.ID, byMobile.Identity.PrincipalID)
	assert.Equal(t, "TC001", byMobile.Identity.Username)
	assert.Equal(t, "/telecaller", byMobile.HomePath)

	byCode, err := f.login(acmeHost, domain.RoleTelecaller, " TC001 ", empPassword)
	require.NoError(t, err)
	assert.Equal(t, emp.ID, byCode.Identity.PrincipalID)
}

func TestLogin_MobileMatchWinsOverCode(t *testing.T) {
	f := newFixture(t)
	byMobile := f.addEmployee(t, f.acme.ID, domain.RoleTelecaller, "1111", "TC100")
	f.addEmployee(t, f.acme.ID, domain.RoleTelecaller, "2222", "1111")

	res, err := f.login(acmeHost, domain.RoleTelecaller, "1111", empPassword)
	require.NoError(t, err)
	assert.Equal(t, byMobile.ID, res.Identity.PrincipalID)
}

func TestLogin_RoleMismatch(t *testing.T) {
	f := newFixture(t)
	f.addEmployee(t, f.acme.ID, domain.RoleTeamIncharge, "9000000001", "TI001")

	_, err := f.login(acmeHost, domain.RoleTelecaller, "TI001", empPassword)
	assert.ErrorIs(t, err, domain.ErrRoleMismatch)
	assert.Equal(t, "role_mismatch", f.events.last().Outcome)

	// the password is checked before the role
	_, err = f.login(acmeHost, domain.RoleTelecaller, "TI001", "wrong-pw")
	assert.ErrorIs(t, err, domain.ErrInvalidCredential)

	// a company admin claiming an employee role is looked up in the wrong table
	_, err = f.login(acmeHost, domain.RoleTeamIncharge, "bob", bobPassword)
	assert.ErrorIs(t, err, domain.ErrInvalidCredential)

	res, err := f.login(acmeHost, domain.RoleTeamIncharge, "TI001", empPassword)
	require.NoError(t, err)
	assert.Equal(t, "/teamincharge", res.HomePath)
}

func TestLogin_RoleMismatchDoesNotCountTowardsLockout(t *testing.T) {
	f := newFixture(t)
	f.addEmployee(t, f.acme.ID, domain.RoleTeamIncharge, "9000000001", "TI001")

	for i := 0; i < DefaultLockoutPolicy.MaxAttempts+1; i++ {
		_, err := f.login(acmeHost, domain.RoleTelecaller, "TI001", empPassword)
		require.ErrorIs(t, err, domain.ErrRoleMismatch)
	}
	_, err := f.login(acmeHost, domain.RoleTeamIncharge, "TI001", empPassword)
	assert.NoError(t, err)
}

func TestLogin_InactiveAccount(t *testing.T) {
	f := newFixture(t)
	_, err := f.admins.ToggleStatus(context.Background(), f.bob.ID)
	require.NoError(t, err)

	_, err = f.login(acmeHost, domain.RoleCompanyAdmin, "bob", bobPassword)
	assert.ErrorIs(t, err, domain.ErrAccountInactive)
}

func TestLogin_UnknownRole(t *testing.T) {
	f := newFixture(t)
	_, err := f.login(acmeHost, domain.Role("Auditor"), "bob", bobPassword)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestLogin_LockoutAfterRepeatedFailures(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	for i := 0; i < DefaultLockoutPolicy.MaxAttempts; i++ {
		_, err := f.login(acmeHost, domain.RoleCompanyAdmin, "bob", "wrong-pw")
		require.ErrorIs(t, err, domain.ErrInvalidCredential, "attempt %d", i+1)
	}

	_, err := f.login(acmeHost, domain.RoleCompanyAdmin, "bob", bobPassword)
	assert.ErrorIs(t, err, domain.ErrAccountLocked)
	assert.Equal(t, "account_locked", f.events.last().Outcome)

	f.clock.Advance(DefaultLockoutPolicy.Window - time.Second)
	_, err = f.login(acmeHost, domain.RoleCompanyAdmin, "bob", bobPassword)
	assert.ErrorIs(t, err, domain.ErrAccountLocked)

	f.clock.Advance(2 * time.Second)
	_, err = f.login(acmeHost, domain.RoleCompanyAdmin, "bob", bobPassword)
	require.NoError(t, err)

	bob, err := f.repos.Admins.GetAdmin(ctx, f.bob.ID)
	require.NoError(t, err)
	assert.Zero(t, bob.FailedAttempts)
	assert.Nil(t, bob.LockedUntil)
}

func TestLogin_ExpiredLockRestartsCounter(t *testing.T) {
	f := newFixture(t)

	for i := 0; i < DefaultLockoutPolicy.MaxAttempts; i++ {
		_, _ = f.login(acmeHost, domain.RoleCompanyAdmin, "bob", "wrong-pw")
	}
	f.clock.Advance(DefaultLockoutPolicy.Window + time.Second)

	_, err := f.login(acmeHost, domain.RoleCompanyAdmin, "bob", "wrong-pw")
	assert.ErrorIs(t, err, domain.ErrInvalidCredential)

	bob, err := f.repos.Admins.GetAdmin(context.Background(), f.bob.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, bob.FailedAttempts)
	assert.False(t, bob.LockedAt(f.clock.Now()))
}

func TestLogin_LockoutDisabled(t *testing.T) {
	f := newFixture(t, WithLockoutPolicy(LockoutPolicy{}))

	for i := 0; i < 10; i++ {
		_, err := f.login(acmeHost, domain.RoleCompanyAdmin, "bob", "wrong-pw")
		require.ErrorIs(t, err, domain.ErrInvalidCredential)
	}
	_, err := f.login(acmeHost, domain.RoleCompanyAdmin, "bob", bobPassword)
	assert.NoError(t, err)
}

type failingLockoutAdmins struct {
	repository.CompanyAdminsRepository
}

func (failingLockoutAdmins) RegisterFailure(context.Context, string, time.Time, int, time.Duration) (domain.Lockout, error) {
	return domain.Lockout{}, errors.New("write timeout")
}

func TestLogin_CounterWriteFailureKeepsCredentialError(t *testing.T) {
	repos := repository.NewMemoryRepositories()
	wrapped := *repos
	wrapped.Admins = failingLockoutAdmins{repos.Admins}
	f := newFixtureWithRepos(t, &wrapped)

	_, err := f.login(acmeHost, domain.RoleCompanyAdmin, "bob", "wrong-pw")
	assert.ErrorIs(t, err, domain.ErrInvalidCredential)
	assert.NotContains(t, err.Error(), "write timeout")
}

type unavailableTenants struct {
	repository.TenantsRepository
}

func (unavailableTenants) FindTenantBySubdomain(context.Context, string) (*domain.Tenant, error) {
	return nil, fmt.Errorf("find tenant: %w: %w", domain.ErrDependencyUnavailable, errors.New("dial tcp: connection refused"))
}

func TestLogin_StoreOutagePropagates(t *testing.T) {
	repos := repository.NewMemoryRepositories()
	wrapped := *repos
	wrapped.Tenants = unavailableTenants{repos.Tenants}
	f := newFixtureWithRepos(t, &wrapped)

	_, err := f.login(acmeHost, domain.RoleCompanyAdmin, "bob", bobPassword)
	assert.ErrorIs(t, err, domain.ErrDependencyUnavailable)
	assert.NotErrorIs(t, err, domain.ErrTenantUnavailable)
	assert.NotErrorIs(t, err, domain.ErrInvalidCredential)
	assert.Equal(t, "lookup_error", f.events.last().Outcome)
}

func TestLogout(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	res, err := f.login(acmeHost, domain.RoleCompanyAdmin, "bob", bobPassword)
	require.NoError(t, err)

	require.NoError(t, f.auth.Logout(ctx, res.Token))
	_, err = f.auth.Session(ctx, res.Token)
	assert.ErrorIs(t, err, store.ErrSessionNotFound)

	ev := f.events.last()
	assert.Equal(t, "logout", ev.Type)
	assert.Equal(t, f.bob.ID, ev.PrincipalID)

	assert.NoError(t, f.auth.Logout(ctx, res.Token))
	assert.NoError(t, f.auth.Logout(ctx, "never-issued"))
}

func TestSession_RevokedWhenTenantDeactivated(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	admin, err := f.login(acmeHost, domain.RoleCompanyAdmin, "bob", bobPassword)
	require.NoError(t, err)
	root, err := f.login(acmeHost, domain.RoleSuperAdmin, "root", rootPassword)
	require.NoError(t, err)

	_, err = f.tenants.SetTenantStatus(ctx, f.acme.ID, domain.StatusInactive)
	require.NoError(t, err)

	_, err = f.auth.Session(ctx, admin.Token)
	assert.ErrorIs(t, err, ErrSessionRevoked)
	assert.ErrorIs(t, err, store.ErrSessionNotFound)
	_, err = f.sessions.Get(ctx, admin.Token)
	assert.ErrorIs(t, err, store.ErrSessionNotFound, "revoked session is deleted")

	// reactivating the tenant does not bring the session back
	_, err = f.tenants.SetTenantStatus(ctx, f.acme.ID, domain.StatusActive)
	require.NoError(t, err)
	_, err = f.auth.Session(ctx, admin.Token)
	assert.ErrorIs(t, err, store.ErrSessionNotFound)

	identity, err := f.auth.Session(ctx, root.Token)
	require.NoError(t, err)
	assert.Equal(t, f.root.ID, identity.PrincipalID)
}

func TestSession_RevokedWhenPrincipalDisabled(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	emp := f.addEmployee(t, f.acme.ID, domain.RoleTelecaller, "9876543210", "TC001")

	admin, err := f.login(acmeHost, domain.RoleCompanyAdmin, "bob", bobPassword)
	require.NoError(t, err)
	caller, err := f.login(acmeHost, domain.RoleTelecaller, "TC001", empPassword)
	require.NoError(t, err)

	_, err = f.admins.ToggleStatus(ctx, f.bob.ID)
	require.NoError(t, err)
	_, err = f.auth.Session(ctx, admin.Token)
	assert.ErrorIs(t, err, ErrSessionRevoked)

	_, err = f.auth.Session(ctx, caller.Token)
	require.NoError(t, err)
	require.NoError(t, f.employees.Delete(ctx, f.acme.ID, emp.ID))
	_, err = f.auth.Session(ctx, caller.Token)
	assert.ErrorIs(t, err, ErrSessionRevoked)
}

type flakyAdmins struct {
	repository.CompanyAdminsRepository
	down *bool
}

func (a flakyAdmins) GetAdmin(ctx context.Context, id string) (*domain.CompanyAdmin, error) {
	if *a.down {
		return nil, fmt.Errorf("get admin: %w", domain.ErrDependencyUnavailable)
	}
	return a.CompanyAdminsRepository.GetAdmin(ctx, id)
}

func TestSession_StoreOutageKeepsSession(t *testing.T) {
	repos := repository.NewMemoryRepositories()
	wrapped := *repos
	down := false
	wrapped.Admins = flakyAdmins{repos.Admins, &down}
	f := newFixtureWithRepos(t, &wrapped)
	ctx := context.Background()

	res, err := f.login(acmeHost, domain.RoleCompanyAdmin, "bob", bobPassword)
	require.NoError(t, err)

	down = true
	_, err = f.auth.Session(ctx, res.Token)
	assert.ErrorIs(t, err, domain.ErrDependencyUnavailable)
	assert.NotErrorIs(t, err, store.ErrSessionNotFound)

	down = false
	_, err = f.auth.Session(ctx, res.Token)
	assert.NoError(t, err)
}

func TestAuthenticate_DoesNotCreateSession(t *testing.T) {
	f := newFixture(t)

	auth, err := f.auth.Authenticate(context.Background(), LoginRequest{
		Host: acmeHost, Role: domain.RoleCompanyAdmin, Identifier: "bob", Password: bobPassword,
	})
	require.NoError(t, err)
	assert.Equal(t, f.bob.ID, auth.Identity.PrincipalID)
}
