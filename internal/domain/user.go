package domain

import "time"

// Role is the closed set of authorization roles.
type Role string

const (
	RoleEmployee Role = "employee"
	RoleAdmin    Role = "admin"
)

// Valid reports whether the role is a known value.
func (r Role) Valid() bool {
	return r == RoleEmployee || r == RoleAdmin
}

// Department enumerates the organizational units a user or ticket belongs to.
type Department string

const (
	DepartmentIT         Department = "IT"
	DepartmentHR         Department = "HR"
	DepartmentFinance    Department = "Finance"
	DepartmentOperations Department = "Operations"
	DepartmentMarketing  Department = "Marketing"
	DepartmentOther      Department = "Other"
)

// Valid reports whether the department is a known value.
func (d Department) Valid() bool {
	switch d {
	case DepartmentIT, DepartmentHR, DepartmentFinance, DepartmentOperations, DepartmentMarketing, DepartmentOther:
		return true
	}
	return false
}

// User is the domain model for accounts that raise and handle tickets.
type User struct {
	ID           string
	Name         string
	Email        string
	PasswordHash string
	Role         Role
	Department   Department
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Summary projects a user down to the fields embedded in ticket and
// comment responses.
func (u *User) Summary() *UserSummary {
	if u == nil {
		return nil
	}
	return &UserSummary{
		ID:         u.ID,
		Name:       u.Name,
		Email:      u.Email,
		Role:       u.Role,
		Department: u.Department,
	}
}

// UserSummary is the minimal user projection attached wherever a user
// reference appears in a returned entity.
type UserSummary struct {
	ID         string     `json:"id"`
	Name       string     `json:"name"`
	Email      string     `json:"email"`
	Role       Role       `json:"role"`
	Department Department `json:"department"`
}

// Identity is the authenticated caller passed into every engine operation.
// It is established by the auth middleware and trusted downstream.
type Identity struct {
	UserID string
	Role   Role
}

// IsAdmin reports whether the identity carries the admin role.
func (i Identity) IsAdmin() bool {
	return i.Role == RoleAdmin
}
