// Package domain contains core domain types for the Pepper application.
package domain

import (
	"fmt"
	"time"
)

// Role distinguishes the two kinds of accounts.
type Role string

const (
	RoleChild Role = "child"
	RoleStaff Role = "staff"
)

// User represents a registered account. Credential material lives here but
// is only ever touched by the auth package.
type User struct {
	UserID       string    `json:"user_id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	Role         Role      `json:"role"`
	Age          *int      `json:"age,omitempty"` // set only for child accounts
	CreatedAt    time.Time `json:"created_at"`
}

// IsChild returns true for child accounts.
func (u *User) IsChild() bool {
	return u.Role == RoleChild
}

// Validate checks the record before it crosses the store boundary.
func (u *User) Validate() error {
	if u.UserID == "" {
		return fmt.Errorf("user: missing user_id")
	}
	if u.Email == "" {
		return fmt.Errorf("user: missing email")
	}
	if u.Role != RoleChild && u.Role != RoleStaff {
		return fmt.Errorf("user: invalid role %q", u.Role)
	}
	if u.Role == RoleChild && u.Age == nil {
		return fmt.Errorf("user: child account requires age")
	}
	return nil
}
