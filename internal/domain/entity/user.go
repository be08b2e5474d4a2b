// Package entity contains the core business objects of the project,
// each representing a unique, identifiable concept within the domain.
package entity

import (
	"time"

	"github.com/google/uuid"
)

// User is the core entity in the system, representing a single account.
// It carries the credential hash directly because email/password is the
// only supported authentication method.
type User struct {
	ID           uuid.UUID // The unique identifier for the user.
	Email        string    // The user's login identifier. Unique across the system.
	Name         string    // The user's display name.
	PasswordHash string    // Stores the bcrypt-hashed password. Never the plaintext.
	Active       bool      // Inactive accounts cannot authenticate.
	Admin        bool      // Admins may operate on any user's orders.
	CreatedAt    time.Time // Timestamp of when this account was created.
	UpdatedAt    time.Time // Timestamp of the last modification to this account.
}

// CanAccess reports whether the user may operate on a resource owned by ownerID.
// Admins may access everything; everyone else only their own resources.
func (u *User) CanAccess(ownerID uuid.UUID) bool {
	return u.Admin || u.ID == ownerID
}
