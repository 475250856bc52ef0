package repository

import "database/sql"

// NewPostgresRepositories wires every table to the same *sql.DB.
func NewPostgresRepositories(db *sql.DB) *Repositories {
	return &Repositories{
		Tenants:   NewPostgresTenantsRepository(db),
		Operators: NewPostgresOperatorsRepository(db),
		Admins:    NewPostgresCompanyAdminsRepository(db),
		Employees: NewPostgresEmployeesRepository(db),
	}
}
