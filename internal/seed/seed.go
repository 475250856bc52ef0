// Package seed bootstraps platform operators, tenants and their first company admins
// from a YAML file. Entries that already exist are left untouched, so the file can be
// applied on every start.
package seed

import (
	"context"
	"fmt"
	"os"
	"strings"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/tejasnaveen/Shakti/internal/domain"
	"github.com/tejasnaveen/Shakti/internal/repository"
	"github.com/tejasnaveen/Shakti/internal/service"
)

// File is the seed document.
//
//	operators:
//	  - username: root
//	    password_env: SHAKTI_ROOT_PASSWORD
//	tenants:
//	  - name: Acme Recoveries
//	    subdomain: acme
//	    admins:
//	      - name: Bob
//	        employee_id: EMP001
//	        email: bob@acme.example.com
//	        username: bob
//	        password_env: ACME_BOB_PASSWORD
type File struct {
	Operators []Operator `yaml:"operators"`
	Tenants   []Tenant   `yaml:"tenants"`
}

// Secret is a literal password or the name of an environment variable holding one.
type Secret struct {
	Password    string `yaml:"password"`
	PasswordEnv string `yaml:"password_env"`
}

func (s Secret) resolve() (string, error) {
	if s.PasswordEnv != "" {
		v := os.Getenv(s.PasswordEnv)
		if v == "" {
			return "", fmt.Errorf("environment variable %s is empty", s.PasswordEnv)
		}
		return v, nil
	}
	if s.Password == "" {
		return "", fmt.Errorf("password or password_env is required")
	}
	return s.Password, nil
}

type Operator struct {
	Username string `yaml:"username"`
	Name     string `yaml:"name"`
	Email    string `yaml:"email"`
	Secret   `yaml:",inline"`
}

type Tenant struct {
	Name           string         `yaml:"name"`
	Subdomain      string         `yaml:"subdomain"`
	Status         string         `yaml:"status"`
	Plan           string         `yaml:"plan_type"`
	MaxUsers       int            `yaml:"max_users"`
	MaxConnections int            `yaml:"max_connections"`
	ProprietorName string         `yaml:"proprietor_name"`
	PhoneNumber    string         `yaml:"phone_number"`
	Address        string         `yaml:"address"`
	GSTNumber      string         `yaml:"gst_number"`
	Settings       map[string]any `yaml:"settings"`
	Admins         []Admin        `yaml:"admins"`
}

type Admin struct {
	Name       string `yaml:"name"`
	EmployeeID string `yaml:"employee_id"`
	Email      string `yaml:"email"`
	Username   string `yaml:"username"`
	Secret     `yaml:",inline"`
}

// Report counts what Apply created and skipped.
type Report struct {
	OperatorsCreated int
	TenantsCreated   int
	AdminsCreated    int
	Skipped          int
}

func Load(path string) (*File, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read seed file: %w", err)
	}
	return Parse(b)
}

func Parse(b []byte) (*File, error) {
	var f File
	if err := yaml.Unmarshal(b, &f); err != nil {
		return nil, fmt.Errorf("parse seed file: %w", err)
	}
	return &f, nil
}

type Seeder struct {
	operators repository.OperatorsRepository
	admins    repository.CompanyAdminsRepository
	tenants   *service.TenantService
	adminSvc  *service.AdminService
	hasher    service.PasswordHasher
	logger    *zap.Logger
}

func NewSeeder(
	repos *repository.Repositories,
	tenants *service.TenantService,
	admins *service.AdminService,
	hasher service.PasswordHasher,
	logger *zap.Logger,
) *Seeder {
	return &Seeder{
		operators: repos.Operators,
		admins:    repos.Admins,
		tenants:   tenants,
		adminSvc:  admins,
		hasher:    hasher,
		logger:    logger,
	}
}

// Apply creates every missing entry. The first operator in the file becomes
// the creator of seeded tenants.
func (s *Seeder) Apply(ctx context.Context, f *File) (Report, error) {
	var rep Report
	var creator string

	for _, o := range f.Operators {
		id, created, err := s.ensureOperator(ctx, o)
		if err != nil {
			return rep, fmt.Errorf("seed operator %q: %w", o.Username, err)
		}
		if created {
			rep.OperatorsCreated++
		} else {
			rep.Skipped++
		}
		if creator == "" {
			creator = id
		}
	}

	for _, t := range f.Tenants {
		tenant, created, err := s.ensureTenant(ctx, t, creator)
		if err != nil {
			return rep, fmt.Errorf("seed tenant %q: %w", t.Subdomain, err)
		}
		if created {
			rep.TenantsCreated++
		} else {
			rep.Skipped++
		}

		for _, a := range t.Admins {
			created, err := s.ensureAdmin(ctx, tenant.ID, a, creator)
			if err != nil {
				return rep, fmt.Errorf("seed admin %q of %q: %w", a.Username, t.Subdomain, err)
			}
			if created {
				rep.AdminsCreated++
			} else {
				rep.Skipped++
			}
		}
	}

	s.logger.Info("Seed applied",
		zap.Int("operators_created", rep.OperatorsCreated),
		zap.Int("tenants_created", rep.TenantsCreated),
		zap.Int("admins_created", rep.AdminsCreated),
		zap.Int("skipped", rep.Skipped),
	)
	return rep, nil
}

func (s *Seeder) ensureOperator(ctx context.Context, o Operator) (string, bool, error) {
	username := strings.TrimSpace(o.Username)
	if username == "" {
		return "", false, fmt.Errorf("%w: username is required", domain.ErrInvalidInput)
	}
	existing, err := s.operators.FindOperatorByUsername(ctx, username)
	if err != nil {
		return "", false, err
	}
	if existing != nil {
		return existing.ID, false, nil
	}

	pw, err := o.resolve()
	if err != nil {
		return "", false, err
	}
	hash, err := s.hasher.Hash(pw)
	if err != nil {
		return "", false, err
	}
	created, err := s.operators.CreateOperator(ctx, &domain.Operator{
		Username: username,
		Name:     o.Name,
		Email:    o.Email,
		Hash:     hash,
		Status:   domain.StatusActive,
	})
	if err != nil {
		return "", false, err
	}
	return created.ID, true, nil
}

func (s *Seeder) ensureTenant(ctx context.Context, t Tenant, creator string) (*domain.Tenant, bool, error) {
	existing, err := s.tenants.FetchTenantByLabel(ctx, t.Subdomain)
	if err != nil {
		return nil, false, err
	}
	if existing != nil {
		return existing, false, nil
	}

	in := service.TenantInput{
		Name:           t.Name,
		Subdomain:      t.Subdomain,
		Status:         t.Status,
		Plan:           t.Plan,
		MaxUsers:       t.MaxUsers,
		MaxConnections: t.MaxConnections,
		ProprietorName: t.ProprietorName,
		PhoneNumber:    t.PhoneNumber,
		Address:        t.Address,
		GSTNumber:      t.GSTNumber,
		CreatedBy:      creator,
	}
	if len(t.Settings) > 0 {
		if in.Settings, err = settingsJSON(t.Settings); err != nil {
			return nil, false, err
		}
	}
	created, err := s.tenants.CreateTenant(ctx, in)
	if err != nil {
		return nil, false, err
	}
	return created, true, nil
}

func (s *Seeder) ensureAdmin(ctx context.Context, tenantID string, a Admin, creator string) (bool, error) {
	username := strings.TrimSpace(a.Username)
	if username == "" {
		username = strings.TrimSpace(a.EmployeeID)
	}
	existing, err := s.admins.FindAdminByUsername(ctx, tenantID, username)
	if err != nil {
		return false, err
	}
	if existing != nil {
		return false, nil
	}

	pw, err := a.resolve()
	if err != nil {
		return false, err
	}
	_, err = s.adminSvc.Create(ctx, tenantID, service.AdminInput{
		Name:       a.Name,
		EmployeeID: a.EmployeeID,
		Email:      a.Email,
		Username:   username,
		Password:   pw,
		CreatedBy:  creator,
	})
	return err == nil, err
}
