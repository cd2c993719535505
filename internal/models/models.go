package models

import (
	"time"

	"github.com/gofrs/uuid"
)

// Role is the coarse authorization tier of an account.
type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

func (r Role) Valid() bool {
	return r == RoleUser || r == RoleAdmin
}

// Credentials carries the stored password hash for a login attempt.
// It is the only projection that ever exposes the hash.
type Credentials struct {
	UserID       uuid.UUID
	PasswordHash string
}

// User is the full account record as held by storage.
// PasswordChangedAt is nil for accounts that never changed their password.
type User struct {
	ID                uuid.UUID
	UserName          string
	Email             string
	Role              Role
	PasswordChangedAt *time.Time
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// PublicUser is the serialization-safe projection of a User: no hash,
// no password-change metadata.
type PublicUser struct {
	ID        uuid.UUID `json:"id"`
	UserName  string    `json:"userName"`
	Email     string    `json:"email"`
	Role      Role      `json:"role"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (u User) Public() PublicUser {
	return PublicUser{
		ID:        u.ID,
		UserName:  u.UserName,
		Email:     u.Email,
		Role:      u.Role,
		CreatedAt: u.CreatedAt,
		UpdatedAt: u.UpdatedAt,
	}
}
