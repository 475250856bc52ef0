package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/tejasnaveen/Shakti/internal/domain"
	"github.com/tejasnaveen/Shakti/internal/tenancy"
)

func TestAdminRoutes_RequireSuperAdmin(t *testing.T) {
	api := newTestAPI(t)

	r := api.do(t, http.MethodGet, rootHost, "/admin/api/v1/tenants", "", nil)
	assert.Equal(t, http.StatusUnauthorized, r.Status)
	assert.Equal(t, ResultTokenExpired, r.Code)

	r = api.do(t, http.MethodGet, rootHost, "/admin/api/v1/tenants", "not-a-session", nil)
	assert.Equal(t, http.StatusUnauthorized, r.Status)

	bob := api.login(t, acmeHost, "CompanyAdmin", "bob", bobPassword)
	r = api.do(t, http.MethodGet, rootHost, "/admin/api/v1/tenants", bob, nil)
	assert.Equal(t, http.StatusForbidden, r.Status)
	r = api.do(t, http.MethodPost, rootHost, "/admin/api/v1/admins/"+api.bob.ID+"/reset-password", bob, nil)
	assert.Equal(t, http.StatusForbidden, r.Status)
}

func TestTenantsCRUD(t *testing.T) {
	api := newTestAPI(t)
	root := api.login(t, rootHost, "SuperAdmin", "root", rootPass)

	r := api.do(t, http.MethodPost, rootHost, "/admin/api/v1/tenants", root, map[string]any{
		"name": "Globex Collections", "subdomain": "Globex", "max_users": 40,
	})
	require.Equal(t, http.StatusOK, r.Status, r.Message)
	var created tenantView
	require.NoError(t, json.Unmarshal(r.Result.Result, &created))
	assert.Equal(t, "globex", created.Subdomain)
	assert.Equal(t, 40, created.MaxUsers)
	assert.Equal(t, "basic", created.Plan)
	assert.Equal(t, "https://globex.example.com/login", created.LoginURL)
	assert.NotEmpty(t, created.CreatedBy)

	r = api.do(t, http.MethodPost, rootHost, "/admin/api/v1/tenants", root, map[string]any{"name": "Dup", "subdomain": "globex"})
	assert.Equal(t, http.StatusConflict, r.Status)

	r = api.do(t, http.MethodPost, rootHost, "/admin/api/v1/tenants", root, map[string]any{"name": "Bad", "subdomain": "admin"})
	assert.Equal(t, http.StatusBadRequest, r.Status)

	r = api.do(t, http.MethodGet, rootHost, "/admin/api/v1/tenants", root, nil)
	require.Equal(t, http.StatusOK, r.Status)
	var list struct {
		Items []tenantView `json:"items"`
		Total int          `json:"total"`
	}
	require.NoError(t, json.Unmarshal(r.Result.Result, &list))
	assert.Equal(t, 2, list.Total)
	assert.Equal(t, created.ID, list.Items[0].ID)

	r = api.do(t, http.MethodPut, rootHost, "/admin/api/v1/tenants/"+created.ID, root, map[string]any{"plan_type": "premium"})
	require.Equal(t, http.StatusOK, r.Status)
	var updated tenantView
	require.NoError(t, json.Unmarshal(r.Result.Result, &updated))
	assert.Equal(t, "premium", updated.Plan)
	assert.Equal(t, "Globex Collections", updated.Name)

	r = api.do(t, http.MethodPut, rootHost, "/admin/api/v1/tenants/"+created.ID, root, map[string]any{})
	assert.Equal(t, http.StatusBadRequest, r.Status)

	r = api.do(t, http.MethodPut, rootHost, "/admin/api/v1/tenants/"+created.ID+"/status", root, map[string]any{"status": "inactive"})
	require.Equal(t, http.StatusOK, r.Status)

	r = api.do(t, http.MethodDelete, rootHost, "/admin/api/v1/tenants/"+api.acme.ID, root, nil)
	assert.Equal(t, http.StatusConflict, r.Status, "acme still has bob")

	r = api.do(t, http.MethodDelete, rootHost, "/admin/api/v1/tenants/"+created.ID, root, nil)
	assert.Equal(t, http.StatusOK, r.Status)
	r = api.do(t, http.MethodGet, rootHost, "/admin/api/v1/tenants/"+created.ID, root, nil)
	assert.Equal(t, http.StatusNotFound, r.Status)
}

func TestTenantAdmins(t *testing.T) {
	api := newTestAPI(t)
	root := api.login(t, rootHost, "SuperAdmin", "root", rootPass)
	base := "/admin/api/v1/tenants/" + api.acme.ID + "/admins"

	r := api.do(t, http.MethodPost, rootHost, base, root, map[string]any{
		"name": "Carol", "employee_id": "EMP002", "email": "carol@acme.example.com", "username": "carol", "password": "carol-pw",
	})
	require.Equal(t, http.StatusOK, r.Status, r.Message)
	assert.NotContains(t, string(r.Result.Result), "carol-pw")
	var carol struct {
		ID       string `json:"id"`
		Status   string `json:"status"`
		TenantID string `json:"tenant_id"`
	}
	require.NoError(t, json.Unmarshal(r.Result.Result, &carol))
	assert.Equal(t, api.acme.ID, carol.TenantID)

	r = api.do(t, http.MethodPost, rootHost, base, root, map[string]any{
		"name": "Carol 2", "employee_id": "EMP003", "email": "c2@acme.example.com", "username": "carol", "password": "carol-pw",
	})
	assert.Equal(t, http.StatusConflict, r.Status)

	r = api.do(t, http.MethodGet, rootHost, base, root, nil)
	require.Equal(t, http.StatusOK, r.Status)
	var list struct {
		Total int `json:"total"`
	}
	require.NoError(t, json.Unmarshal(r.Result.Result, &list))
	assert.Equal(t, 2, list.Total)

	r = api.do(t, http.MethodPost, rootHost, "/admin/api/v1/admins/"+carol.ID+"/toggle-status", root, nil)
	require.Equal(t, http.StatusOK, r.Status)
	require.NoError(t, json.Unmarshal(r.Result.Result, &carol))
	assert.Equal(t, "inactive", carol.Status)

	r = api.do(t, http.MethodPost, rootHost, "/admin/api/v1/admins/"+api.bob.ID+"/reset-password", root, nil)
	require.Equal(t, http.StatusOK, r.Status)
	var reset struct {
		TempPassword string `json:"temp_password"`
	}
	require.NoError(t, json.Unmarshal(r.Result.Result, &reset))
	api.login(t, acmeHost, "CompanyAdmin", "bob", reset.TempPassword)

	r = api.do(t, http.MethodDelete, rootHost, "/admin/api/v1/admins/"+carol.ID, root, nil)
	assert.Equal(t, http.StatusOK, r.Status)
	r = api.do(t, http.MethodGet, rootHost, "/admin/api/v1/admins/"+carol.ID, root, nil)
	assert.Equal(t, http.StatusNotFound, r.Status)
}

func TestCompanyEmployees(t *testing.T) {
	api := newTestAPI(t)
	bob := api.login(t, acmeHost, "CompanyAdmin", "bob", bobPassword)

	r := api.do(t, http.MethodPost, acmeHost, "/company/api/v1/employees", bob, map[string]any{
		"name": "Asha", "mobile": "9876543210", "emp_id": "TC001", "password": "asha-pw", "role": "Telecaller",
	})
	require.Equal(t, http.StatusOK, r.Status, r.Message)
	var emp struct {
		ID        string `json:"id"`
		TenantID  string `json:"tenant_id"`
		CreatedBy string `json:"created_by"`
	}
	require.NoError(t, json.Unmarshal(r.Result.Result, &emp))
	assert.Equal(t, api.acme.ID, emp.TenantID)
	assert.Equal(t, api.bob.ID, emp.CreatedBy)

	asha := api.login(t, acmeHost, "Telecaller", "9876543210", "asha-pw")
	r = api.do(t, http.MethodGet, acmeHost, "/company/api/v1/employees", asha, nil)
	assert.Equal(t, http.StatusForbidden, r.Status, "telecallers cannot manage employees")

	r = api.do(t, http.MethodGet, acmeHost, "/company/api/v1/employees?role=TeamIncharge", bob, nil)
	require.Equal(t, http.StatusOK, r.Status)
	var list struct {
		Total int `json:"total"`
	}
	require.NoError(t, json.Unmarshal(r.Result.Result, &list))
	assert.Equal(t, 0, list.Total)

	r = api.do(t, http.MethodGet, acmeHost, "/company/api/v1/employees?role=All", bob, nil)
	require.NoError(t, json.Unmarshal(r.Result.Result, &list))
	assert.Equal(t, 1, list.Total)

	r = api.do(t, http.MethodPost, acmeHost, "/company/api/v1/employees/"+emp.ID+"/toggle-status", bob, nil)
	assert.Equal(t, http.StatusOK, r.Status)

	root := api.login(t, rootHost, "SuperAdmin", "root", rootPass)
	r = api.do(t, http.MethodGet, rootHost, "/company/api/v1/employees", root, nil)
	assert.Equal(t, http.StatusBadRequest, r.Status, "operators must name the tenant")
	r = api.do(t, http.MethodGet, rootHost, "/company/api/v1/employees?tenant_id="+api.acme.ID, root, nil)
	assert.Equal(t, http.StatusOK, r.Status)

	r = api.do(t, http.MethodDelete, acmeHost, "/company/api/v1/employees/"+emp.ID, bob, nil)
	assert.Equal(t, http.StatusOK, r.Status)
}

func TestSessions_DeactivatedTenantLosesAccess(t *testing.T) {
	api := newTestAPI(t)
	bob := api.login(t, acmeHost, "CompanyAdmin", "bob", bobPassword)
	root := api.login(t, rootHost, "SuperAdmin", "root", rootPass)

	r := api.do(t, http.MethodGet, acmeHost, "/company/api/v1/employees", bob, nil)
	require.Equal(t, http.StatusOK, r.Status)

	_, err := api.tenants.SetTenantStatus(context.Background(), api.acme.ID, domain.StatusInactive)
	require.NoError(t, err)

	r = api.do(t, http.MethodPost, acmeHost, "/company/api/v1/employees", bob, map[string]any{
		"name": "Asha", "mobile": "9876543210", "emp_id": "TC001", "password": "asha-pw", "role": "Telecaller",
	})
	assert.Equal(t, http.StatusUnauthorized, r.Status)
	assert.Equal(t, ResultTokenExpired, r.Code)
	r = api.do(t, http.MethodGet, acmeHost, "/company/api/v1/employees", bob, nil)
	assert.Equal(t, http.StatusUnauthorized, r.Status)
	r = api.do(t, http.MethodGet, acmeHost, "/auth/api/v1/session", bob, nil)
	assert.Equal(t, http.StatusUnauthorized, r.Status)

	r = api.do(t, http.MethodGet, rootHost, "/admin/api/v1/tenants", root, nil)
	assert.Equal(t, http.StatusOK, r.Status, "operators are not tenant scoped")
}

func TestSessions_DeactivatedAdminLosesAccess(t *testing.T) {
	api := newTestAPI(t)
	bob := api.login(t, acmeHost, "CompanyAdmin", "bob", bobPassword)

	_, err := api.admins.ToggleStatus(context.Background(), api.bob.ID)
	require.NoError(t, err)

	r := api.do(t, http.MethodGet, acmeHost, "/company/api/v1/employees", bob, nil)
	assert.Equal(t, http.StatusUnauthorized, r.Status)
	assert.Equal(t, ResultTokenExpired, r.Code)
	r = api.do(t, http.MethodGet, acmeHost, "/auth/api/v1/session", bob, nil)
	assert.Equal(t, http.StatusUnauthorized, r.Status)

	// reactivation requires a fresh login
	_, err = api.admins.ToggleStatus(context.Background(), api.bob.ID)
	require.NoError(t, err)
	r = api.do(t, http.MethodGet, acmeHost, "/company/api/v1/employees", bob, nil)
	assert.Equal(t, http.StatusUnauthorized, r.Status)
	bob = api.login(t, acmeHost, "CompanyAdmin", "bob", bobPassword)
	r = api.do(t, http.MethodGet, acmeHost, "/company/api/v1/employees", bob, nil)
	assert.Equal(t, http.StatusOK, r.Status)
}

func TestTenants_MalformedIDIsNotFound(t *testing.T) {
	api := newTestAPI(t)
	root := api.login(t, rootHost, "SuperAdmin", "root", rootPass)

	r := api.do(t, http.MethodGet, rootHost, "/admin/api/v1/tenants/nope", root, nil)
	assert.Equal(t, http.StatusNotFound, r.Status)
	r = api.do(t, http.MethodPut, rootHost, "/admin/api/v1/tenants/nope", root, map[string]any{"plan_type": "premium"})
	assert.Equal(t, http.StatusNotFound, r.Status)
	r = api.do(t, http.MethodDelete, rootHost, "/admin/api/v1/tenants/nope", root, nil)
	assert.Equal(t, http.StatusNotFound, r.Status)
	r = api.do(t, http.MethodGet, rootHost, "/admin/api/v1/admins/42", root, nil)
	assert.Equal(t, http.StatusNotFound, r.Status)
}

func TestTenantsHandler_ResetBaseDomain(t *testing.T) {
	h := NewTenantsHandler(nil, nil, tenancy.DomainConfig{Environment: tenancy.EnvProduction}, zap.NewNop())
	acme := &domain.Tenant{Subdomain: "acme"}

	viewFrom := func(host string) string {
		r := httptest.NewRequest(http.MethodGet, "/admin/api/v1/tenants", nil)
		r.Host = host
		return h.view(r, acme).LoginURL
	}

	assert.Equal(t, "https://acme.shakti.in/login", viewFrom("ops.shakti.in"))
	assert.Equal(t, "https://acme.shakti.in/login", viewFrom("ops.recovery.example"), "first host sticks")

	h.ResetBaseDomain()
	assert.Equal(t, "https://acme.recovery.example/login", viewFrom("ops.recovery.example"))
}
