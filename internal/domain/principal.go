package domain

import "time"

// PrincipalKind tags the Principal variants.
type PrincipalKind string

const (
	KindOperator     PrincipalKind = "operator"
	KindCompanyAdmin PrincipalKind = "company_admin"
	KindEmployee     PrincipalKind = "employee"
)

// Principal is implemented by *Operator, *CompanyAdmin and *Employee.
type Principal interface {
	Kind() PrincipalKind
	PrincipalID() string
	// TenantRef is empty for operators.
	TenantRef() string
	StoredRole() Role
	Active() bool
	PasswordHash() string
	LockState() Lockout
	Identity() SessionIdentity
}

// Lockout is the repeated-failure state stored on every principal row.
type Lockout struct {
	FailedAttempts int        `db:"failed_attempts" json:"-"`
	LockedUntil    *time.Time `db:"locked_until" json:"-"`
}

// LockedAt reports whether the lock window is still open at now.
func (l Lockout) LockedAt(now time.Time) bool {
	return l.LockedUntil != nil && now.Before(*l.LockedUntil)
}

// AfterFailure is the state after one more failed login at at. A lock that has
// expired restarts the count; reaching limit locks the account until at+window.
func (l Lockout) AfterFailure(at time.Time, limit int, window time.Duration) Lockout {
	next := Lockout{FailedAttempts: l.FailedAttempts + 1}
	if l.LockedUntil != nil && !l.LockedAt(at) {
		next.FailedAttempts = 1
	} else if l.LockedUntil != nil {
		until := *l.LockedUntil
		next.LockedUntil = &until
	}
	if next.FailedAttempts >= limit {
		until := at.Add(window)
		next.LockedUntil = &until
	}
	return next
}

// Operator maps super_admins. Platform operators are not tenant scoped.
type Operator struct {
	ID       string `db:"id" json:"id"`
	Username string `db:"username" json:"username"`
	Name     string `db:"name" json:"name,omitempty"`
	Email    string `db:"email" json:"email,omitempty"`
	Hash     string `db:"password_hash" json:"-"`
	Status   string `db:"status" json:"status"`
	Lockout

	LastLoginAt *time.Time `db:"last_login_at" json:"last_login_at,omitempty"`
	CreatedAt   time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time  `db:"updated_at" json:"updated_at"`
}

func (o *Operator) Kind() PrincipalKind { return KindOperator }
func (o *Operator) PrincipalID() string { return o.ID }
func (o *Operator) TenantRef() string   { return "" }
func (o *Operator) StoredRole() Role    { return RoleSuperAdmin }

// Active treats an empty status as active; older operator rows carry none.
func (o *Operator) Active() bool         { return o.Status == "" || o.Status == StatusActive }
func (o *Operator) PasswordHash() string { return o.Hash }
func (o *Operator) LockState() Lockout   { return o.Lockout }

func (o *Operator) Identity() SessionIdentity {
	name := o.Name
	if name == "" {
		name = o.Username
	}
	return SessionIdentity{
		PrincipalID: o.ID,
		Username:    o.Username,
		Name:        name,
		Role:        RoleSuperAdmin,
		Email:       o.Email,
	}
}

// CompanyAdmin maps company_admins.
type CompanyAdmin struct {
	ID         string `db:"id" json:"id"`
	TenantID   string `db:"tenant_id" json:"tenant_id"`
	Name       string `db:"name" json:"name"`
	EmployeeID string `db:"employee_id" json:"employee_id"`
	Email      string `db:"email" json:"email"`
	Username   string `db:"username" json:"username"`
	Hash       string `db:"password_hash" json:"-"`
	Status     string `db:"status" json:"status"`
	Lockout

	CreatedBy   string     `db:"created_by" json:"created_by,omitempty"`
	LastLoginAt *time.Time `db:"last_login_at" json:"last_login_at,omitempty"`
	CreatedAt   time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time  `db:"updated_at" json:"updated_at"`
}

func (a *CompanyAdmin) Kind() PrincipalKind  { return KindCompanyAdmin }
func (a *CompanyAdmin) PrincipalID() string  { return a.ID }
func (a *CompanyAdmin) TenantRef() string    { return a.TenantID }
func (a *CompanyAdmin) StoredRole() Role     { return RoleCompanyAdmin }
func (a *CompanyAdmin) Active() bool         { return a.Status == StatusActive }
func (a *CompanyAdmin) PasswordHash() string { return a.Hash }
func (a *CompanyAdmin) LockState() Lockout   { return a.Lockout }

func (a *CompanyAdmin) Identity() SessionIdentity {
	return SessionIdentity{
		PrincipalID: a.ID,
		Username:    a.Username,
		Name:        a.Name,
		Role:        RoleCompanyAdmin,
		TenantID:    a.TenantID,
		Email:       a.Email,
	}
}

// Employee maps employees (TeamIncharge or Telecaller).
type Employee struct {
	ID             string `db:"id" json:"id"`
	TenantID       string `db:"tenant_id" json:"tenant_id"`
	Name           string `db:"name" json:"name"`
	Mobile         string `db:"mobile" json:"mobile"`
	EmpCode        string `db:"emp_id" json:"emp_id"`
	Hash           string `db:"password_hash" json:"-"`
	Role           Role   `db:"role" json:"role"`
	Status         string `db:"status" json:"status"`
	TeamInchargeID string `db:"team_incharge_id" json:"team_incharge_id,omitempty"`
	Lockout

	CreatedBy   string     `db:"created_by" json:"created_by,omitempty"`
	LastLoginAt *time.Time `db:"last_login_at" json:"last_login_at,omitempty"`
	CreatedAt   time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time  `db:"updated_at" json:"updated_at"`
}

func (e *Employee) Kind() PrincipalKind  { return KindEmployee }
func (e *Employee) PrincipalID() string  { return e.ID }
func (e *Employee) TenantRef() string    { return e.TenantID }
func (e *Employee) StoredRole() Role     { return e.Role }
func (e *Employee) Active() bool         { return e.Status == StatusActive }
func (e *Employee) PasswordHash() string { return e.Hash }
func (e *Employee) LockState() Lockout   { return e.Lockout }

// Identity uses the employee code as the session username.
func (e *Employee) Identity() SessionIdentity {
	return SessionIdentity{
		PrincipalID: e.ID,
		Username:    e.EmpCode,
		Name:        e.Name,
		Role:        e.Role,
		TenantID:    e.TenantID,
	}
}

// AdminPatch partial update of a company admin.
type AdminPatch struct {
	Name       *string `json:"name,omitempty"`
	EmployeeID *string `json:"employee_id,omitempty"`
	Email      *string `json:"email,omitempty"`
	Username   *string `json:"username,omitempty"`
	Status     *string `json:"status,omitempty"`
	// Hash is set by the service layer only.
	Hash *string `json:"-"`
}

// EmployeePatch partial update of an employee.
type EmployeePatch struct {
	Name           *string `json:"name,omitempty"`
	Mobile         *string `json:"mobile,omitempty"`
	EmpCode        *string `json:"emp_id,omitempty"`
	Role           *Role   `json:"role,omitempty"`
	Status         *string `json:"status,omitempty"`
	TeamInchargeID *string `json:"team_incharge_id,omitempty"`
	Hash           *string `json:"-"`
}
