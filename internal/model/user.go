// Package model defines the data structures used throughout the application.
package model

import "time"

// Role is the authorization level stored on a profile.
type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

// Placeholder values written when the identity provider leaves a field empty.
const (
	DefaultProfileName    = "Anonymous"
	DefaultProfilePicture = "/default-profile.png"
)

// UserProfile is the application-level record of a visitor, keyed by the
// identity provider's subject id.
//
// Role is written once, as RoleUser, when the profile is first created.
// Promotion to RoleAdmin happens directly in the store by an administrator;
// nothing in this codebase changes it.
//
// WHY *bool FOR EmailVerified?
// Only the registration entry point takes the snapshot. Profiles created from
// a plain login never recorded it, and "unknown" is not the same as "false".
type UserProfile struct {
	ID             string    `json:"id"`
	Name           string    `json:"name"`
	Email          string    `json:"email"`
	ProfilePicture string    `json:"profilePicture"`
	Role           Role      `json:"role"`
	EmailVerified  *bool     `json:"emailVerified,omitempty"`
	CreatedAt      time.Time `json:"createdAt"`
}

// IsAdmin reports whether the profile carries the admin role. A nil profile
// or an empty role is never admin.
func (p *UserProfile) IsAdmin() bool {
	return p != nil && p.Role == RoleAdmin
}
