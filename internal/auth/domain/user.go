package domain

import (
	"strings"
	"time"
)

type UserID string

type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

func (r Role) Valid() bool {
	return r == RoleUser || r == RoleAdmin
}

// User is the persisted identity record. Email is stored normalized and is
// the unique lookup key.
type User struct {
	ID            UserID
	Email         string
	PasswordHash  string
	DisplayName   string
	ContactHandle string
	Role          Role
	CreatedAt     time.Time
}

// Profile is the part of a User that may leave the service.
type Profile struct {
	ID            UserID
	Email         string
	DisplayName   string
	ContactHandle string
	Role          Role
}

func (u User) Profile() Profile {
	return Profile{
		ID:            u.ID,
		Email:         u.Email,
		DisplayName:   u.DisplayName,
		ContactHandle: u.ContactHandle,
		Role:          u.Role,
	}
}

func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
