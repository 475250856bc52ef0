package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tejasnaveen/Shakti/internal/domain"
)

func TestEmployeeCreate_Validation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.addEmployee(t, f.acme.ID, domain.RoleTelecaller, "9000000001", "TC001")

	valid := EmployeeInput{Name: "Asha", Mobile: "9000000002", EmpCode: "TC002", Password: empPassword, Role: domain.RoleTelecaller}

	tests := []struct {
		name    string
		mutate  func(in *EmployeeInput)
		wantErr error
	}{
		{"company admin role", func(in *EmployeeInput) { in.Role = domain.RoleCompanyAdmin }, domain.ErrInvalidInput},
		{"missing role", func(in *EmployeeInput) { in.Role = "" }, domain.ErrInvalidInput},
		{"missing mobile", func(in *EmployeeInput) { in.Mobile = "" }, domain.ErrInvalidInput},
		{"short password", func(in *EmployeeInput) { in.Password = "pw" }, domain.ErrInvalidInput},
		{"duplicate mobile", func(in *EmployeeInput) { in.Mobile = "9000000001" }, domain.ErrConflict},
		{"duplicate code", func(in *EmployeeInput) { in.EmpCode = "TC001" }, domain.ErrConflict},
		{"unknown incharge", func(in *EmployeeInput) { in.TeamInchargeID = "1c2d3e4f-0000-4000-8000-000000000000" }, domain.ErrReference},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := valid
			tt.mutate(&in)
			_, err := f.employees.Create(ctx, f.acme.ID, in)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}

	e, err := f.employees.Create(ctx, f.acme.ID, valid)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusActive, e.Status)
	assert.Equal(t, f.acme.ID, e.TenantID)
}

func TestEmployeeCreate_TeamInchargeMustLeadInSameTenant(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	globex, err := f.tenants.CreateTenant(ctx, TenantInput{Name: "Globex", Subdomain: "globex"})
	require.NoError(t, err)

	lead := f.addEmployee(t, f.acme.ID, domain.RoleTeamIncharge, "9100000001", "TI001")
	caller := f.addEmployee(t, f.acme.ID, domain.RoleTelecaller, "9100000002", "TC001")
	foreignLead := f.addEmployee(t, globex.ID, domain.RoleTeamIncharge, "9100000003", "TI001")

	in := EmployeeInput{Name: "New", Mobile: "9100000009", EmpCode: "TC009", Password: empPassword, Role: domain.RoleTelecaller}

	in.TeamInchargeID = caller.ID
	_, err = f.employees.Create(ctx, f.acme.ID, in)
	assert.ErrorIs(t, err, domain.ErrReference, "a telecaller cannot lead")

	in.TeamInchargeID = foreignLead.ID
	_, err = f.employees.Create(ctx, f.acme.ID, in)
	assert.ErrorIs(t, err, domain.ErrReference, "lead of another tenant")

	in.TeamInchargeID = lead.ID
	e, err := f.employees.Create(ctx, f.acme.ID, in)
	require.NoError(t, err)
	assert.Equal(t, lead.ID, e.TeamInchargeID)

	self := lead.ID
	_, err = f.employees.Update(ctx, f.acme.ID, lead.ID, EmployeeUpdate{EmployeePatch: domain.EmployeePatch{TeamInchargeID: &self}})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestEmployeeList_RoleFilterAndOrder(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	lead := f.addEmployee(t, f.acme.ID, domain.RoleTeamIncharge, "9200000001", "TI001")
	first := f.addEmployee(t, f.acme.ID, domain.RoleTelecaller, "9200000002", "TC001")
	second := f.addEmployee(t, f.acme.ID, domain.RoleTelecaller, "9200000003", "TC002")

	all, err := f.employees.List(ctx, f.acme.ID, nil)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, []string{second.ID, first.ID, lead.ID}, []string{all[0].ID, all[1].ID, all[2].ID})

	role := domain.RoleTelecaller
	callers, err := f.employees.List(ctx, f.acme.ID, &role)
	require.NoError(t, err)
	assert.Len(t, callers, 2)

	bad := domain.RoleSuperAdmin
	_, err = f.employees.List(ctx, f.acme.ID, &bad)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestEmployee_TenantScoping(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	globex, err := f.tenants.CreateTenant(ctx, TenantInput{Name: "Globex", Subdomain: "globex"})
	require.NoError(t, err)
	e := f.addEmployee(t, f.acme.ID, domain.RoleTelecaller, "9300000001", "TC001")

	_, err = f.employees.Get(ctx, globex.ID, e.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)
	_, err = f.employees.ToggleStatus(ctx, globex.ID, e.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)
	_, err = f.employees.ResetPassword(ctx, globex.ID, e.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)
	err = f.employees.Delete(ctx, globex.ID, e.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	got, err := f.employees.Get(ctx, f.acme.ID, e.ID)
	require.NoError(t, err)
	assert.Equal(t, e.ID, got.ID)
}

func TestEmployeeUpdate(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	e := f.addEmployee(t, f.acme.ID, domain.RoleTelecaller, "9400000001", "TC001")
	f.addEmployee(t, f.acme.ID, domain.RoleTelecaller, "9400000002", "TC002")

	promoted := domain.RoleTeamIncharge
	updated, err := f.employees.Update(ctx, f.acme.ID, e.ID, EmployeeUpdate{EmployeePatch: domain.EmployeePatch{Role: &promoted}})
	require.NoError(t, err)
	assert.Equal(t, domain.RoleTeamIncharge, updated.Role)

	// the stored role now decides which dashboard the employee may claim
	_, err = f.login(acmeHost, domain.RoleTelecaller, "TC001", empPassword)
	assert.ErrorIs(t, err, domain.ErrRoleMismatch)

	taken := "9400000002"
	_, err = f.employees.Update(ctx, f.acme.ID, e.ID, EmployeeUpdate{EmployeePatch: domain.EmployeePatch{Mobile: &taken}})
	assert.ErrorIs(t, err, domain.ErrConflict)

	admin := domain.RoleCompanyAdmin
	_, err = f.employees.Update(ctx, f.acme.ID, e.ID, EmployeeUpdate{EmployeePatch: domain.EmployeePatch{Role: &admin}})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestEmployeeToggleAndReset(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	e := f.addEmployee(t, f.acme.ID, domain.RoleTelecaller, "9500000001", "TC001")

	off, err := f.employees.ToggleStatus(ctx, f.acme.ID, e.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusInactive, off.Status)
	_, err = f.login(acmeHost, domain.RoleTelecaller, "TC001", empPassword)
	assert.ErrorIs(t, err, domain.ErrAccountInactive)

	on, err := f.employees.ToggleStatus(ctx, f.acme.ID, e.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusActive, on.Status)

	pw, err := f.employees.ResetPassword(ctx, f.acme.ID, e.ID)
	require.NoError(t, err)
	_, err = f.login(acmeHost, domain.RoleTelecaller, "9500000001", pw)
	assert.NoError(t, err)
}
