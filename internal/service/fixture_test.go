package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/tejasnaveen/Shakti/internal/domain"
	"github.com/tejasnaveen/Shakti/internal/repository"
	"github.com/tejasnaveen/Shakti/internal/store"
)

const (
	acmeHost     = "acme.example.com"
	bobPassword  = "bob-s3cret"
	rootPassword = "root-s3cret"
	empPassword  = "caller-pw1"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []AuthEvent
}

func (p *recordingPublisher) Publish(_ context.Context, ev AuthEvent) error {
	p.mu.Lock()
	p.events = append(p.events, ev)
	p.mu.Unlock()
	return nil
}

func (p *recordingPublisher) last() AuthEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.events[len(p.events)-1]
}

type fixture struct {
	repos     *repository.Repositories
	hasher    PasswordHasher
	clock     *fakeClock
	events    *recordingPublisher
	sessions  *store.SessionStore
	tenants   *TenantService
	admins    *AdminService
	employees *EmployeeService
	auth      *AuthService

	root *domain.Operator
	acme *domain.Tenant
	bob  *domain.CompanyAdmin
}

// newFixture seeds operator "root", active tenant "acme" and its company admin "bob".
func newFixture(t *testing.T, opts ...AuthOption) *fixture {
	t.Helper()
	return newFixtureWithRepos(t, repository.NewMemoryRepositories(), opts...)
}

func newFixtureWithRepos(t *testing.T, repos *repository.Repositories, opts ...AuthOption) *fixture {
	t.Helper()
	ctx := context.Background()
	logger := zap.NewNop()

	f := &fixture{
		repos:    repos,
		hasher:   NewBcryptHasher(bcrypt.MinCost),
		clock:    &fakeClock{now: time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)},
		events:   &recordingPublisher{},
		sessions: store.NewSessionStore(store.NewMemoryKV(), "test:session:", 0),
	}
	f.tenants = NewTenantService(repos, nil, logger)
	f.admins = NewAdminService(repos, f.hasher, nil, logger)
	f.employees = NewEmployeeService(repos, f.hasher, nil, logger)

	base := []AuthOption{WithClock(f.clock.Now), WithEventPublisher(f.events)}
	f.auth = NewAuthService(f.tenants, repos, f.hasher, f.sessions, logger, append(base, opts...)...)

	hash, err := f.hasher.Hash(rootPassword)
	require.NoError(t, err)
	f.root, err = repos.Operators.CreateOperator(ctx, &domain.Operator{
		Username: "root", Name: "Platform Root", Hash: hash, Status: domain.StatusActive,
	})
	require.NoError(t, err)

	f.acme, err = f.tenants.CreateTenant(ctx, TenantInput{Name: "Acme Recoveries", Subdomain: "acme", CreatedBy: f.root.ID})
	require.NoError(t, err)

	f.bob, err = f.admins.Create(ctx, f.acme.ID, AdminInput{
		Name: "Bob", EmployeeID: "EMP001", Email: "bob@acme.example.com", Username: "bob", Password: bobPassword,
	})
	require.NoError(t, err)
	return f
}

func (f *fixture) addEmployee(t *testing.T, tenantID string, role domain.Role, mobile, code string) *domain.Employee {
	t.Helper()
	e, err := f.employees.Create(context.Background(), tenantID, EmployeeInput{
		Name: "Caller " + code, Mobile: mobile, EmpCode: code, Password: empPassword, Role: role,
	})
	require.NoError(t, err)
	return e
}

func (f *fixture) login(host string, role domain.Role, identifier, password string) (*LoginResult, error) {
	return f.auth.Login(context.Background(), LoginRequest{
		Host: host, Role: role, Identifier: identifier, Password: password, IPAddress: "10.0.0.7",
	})
}
