// Package models defines the persistent records shared by the server layers.
package models

import "time"

// Role is the authorization role stored on a user record.
type Role string

const (
	RoleUser  Role = "USER"
	RoleAdmin Role = "ADMIN"
)

// User is the credential record backing authentication.
//
// TokenVersion is the revocation counter: every issued token embeds the value
// current at issuance, and a token is only honored while the two still match.
// Incrementing the field invalidates all outstanding tokens at once; there is
// no server-side token store.
//
// The two-factor fields are reserved by the data model; no flow uses them yet.
type User struct {
	ID               string
	Name             string
	Email            string
	PasswordHash     string
	Role             Role
	IsEmailVerified  bool
	TwoFactorEnabled bool
	TwoFactorSecret  string
	TokenVersion     int64
	CreatedAt        time.Time
	UpdatedAt        time.Time
}
