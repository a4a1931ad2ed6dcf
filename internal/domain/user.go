package domain

import (
	"context"
	"time"
)

type ContextKey string

const UserContextKey ContextKey = "user"

type User struct {
	ID                        string    `json:"id"` // UUID
	Email                     string    `json:"email"`
	Name                      string    `json:"name"`
	Role                      string    `json:"role"` // user, admin, agent
	Department                string    `json:"department,omitempty"`
	YearOfStudy               int       `json:"yearOfStudy,omitempty"`
	IsLCITStudent             bool      `json:"isLCITStudent"`
	StudentVerificationStatus string    `json:"studentVerificationStatus"`
	CreatedAt                 time.Time `json:"createdAt"`
	UpdatedAt                 time.Time `json:"updatedAt"`
}

// IsStaff reports whether the user holds an operational role that may act on
// any order.
func (u *User) IsStaff() bool {
	return u.Role == RoleAdmin || u.Role == RoleAgent
}

// IsVerifiedStudent reports whether the student verification workflow has
// completed for this user.
func (u *User) IsVerifiedStudent() bool {
	return u.StudentVerificationStatus == StudentVerificationVerified
}

type UserRepository interface {
	GetByID(ctx context.Context, id string) (*User, error)
}
