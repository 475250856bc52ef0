package domain

import (
	"encoding/json"
	"time"
)

// Tenant statuses.
const (
	StatusActive   = "active"
	StatusInactive = "inactive"
)

// Tenant defaults applied on create when the caller leaves them unset.
const (
	DefaultPlan           = "basic"
	DefaultMaxUsers       = 10
	DefaultMaxConnections = 5
)

// Tenant maps the tenants table.
type Tenant struct {
	ID        string `db:"id" json:"id"`
	Name      string `db:"name" json:"name"`
	Subdomain string `db:"subdomain" json:"subdomain"` // UNIQUE, lowercase DNS label
	Status    string `db:"status" json:"status"`       // active | inactive

	Plan           string `db:"plan_type" json:"plan_type"`
	MaxUsers       int    `db:"max_users" json:"max_users"`
	MaxConnections int    `db:"max_connections" json:"max_connections"`

	ProprietorName string `db:"proprietor_name" json:"proprietor_name,omitempty"`
	PhoneNumber    string `db:"phone_number" json:"phone_number,omitempty"`
	Address        string `db:"address" json:"address,omitempty"`
	GSTNumber      string `db:"gst_number" json:"gst_number,omitempty"`

	// Settings holds branding and feature flags; JSONB, defaults to {}.
	Settings json.RawMessage `db:"settings" json:"settings"`

	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
	CreatedBy string    `db:"created_by" json:"created_by,omitempty"` // super_admins.id, nullable
}

// Usable reports whether principals of this tenant may log in.
func (t *Tenant) Usable() bool {
	return t != nil && t.Status == StatusActive
}

// TenantPatch carries a partial tenant update; nil fields are left untouched.
type TenantPatch struct {
	Name           *string          `json:"name,omitempty"`
	Subdomain      *string          `json:"subdomain,omitempty"`
	Status         *string          `json:"status,omitempty"`
	Plan           *string          `json:"plan_type,omitempty"`
	MaxUsers       *int             `json:"max_users,omitempty"`
	MaxConnections *int             `json:"max_connections,omitempty"`
	ProprietorName *string          `json:"proprietor_name,omitempty"`
	PhoneNumber    *string          `json:"phone_number,omitempty"`
	Address        *string          `json:"address,omitempty"`
	GSTNumber      *string          `json:"gst_number,omitempty"`
	Settings       *json.RawMessage `json:"settings,omitempty"`
}

// Empty reports whether no field is set.
func (p TenantPatch) Empty() bool {
	return p.Name == nil && p.Subdomain == nil && p.Status == nil && p.Plan == nil &&
		p.MaxUsers == nil && p.MaxConnections == nil && p.ProprietorName == nil &&
		p.PhoneNumber == nil && p.Address == nil && p.GSTNumber == nil && p.Settings == nil
}
