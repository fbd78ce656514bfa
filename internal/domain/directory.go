package domain

import "time"

// UserRole distinguishes operators from regular users.
type UserRole string

const (
	RoleAdmin UserRole = "ADMIN"
	RoleUser  UserRole = "USER"
)

// Site is a tenant location tickets are raised against.
type Site struct {
	ID        string
	TenantID  string
	Name      string
	CreatedAt time.Time
}

// IssueType is a tenant-defined ticket category. Inactive types reject new
// writes but remain referenced by existing tickets.
type IssueType struct {
	ID        string
	TenantID  string
	Key       string
	Label     string
	IsActive  bool
	CreatedAt time.Time
}

// User is a tenant member who can be assigned tickets and log in.
type User struct {
	ID           string
	TenantID     string
	Email        string
	DisplayName  string
	PasswordHash string
	Role         UserRole
	IsActive     bool
	CreatedAt    time.Time
}
