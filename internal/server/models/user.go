// Package models holds the server-side domain types shared by the store,
// the credential service and the router.
package models

import (
	"slices"
	"time"
)

// PasswordVersion tags the algorithm that produced PasswordHash.
type PasswordVersion string

const (
	// PasswordNone marks credentials created through an external identity
	// provider. They cannot log in with a password.
	PasswordNone PasswordVersion = ""
	// PasswordV1 is the legacy unsalted SHA-256 digest.
	PasswordV1 PasswordVersion = "V1"
	// PasswordV2 is salted argon2id.
	PasswordV2 PasswordVersion = "V2"
)

// Role is used by downstream services for authorization.
type Role string

const (
	RoleStandardRegistry Role = "STANDARD_REGISTRY"
	RoleUser             Role = "USER"
	RoleAuditor          Role = "AUDITOR"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleStandardRegistry, RoleUser, RoleAuditor:
		return true
	}
	return false
}

// UserCredential is the stored account record. Only the credential service
// mutates it; Version is owned by the store.
type UserCredential struct {
	ID              string
	Username        string
	DID             string
	Role            Role
	Provider        string
	ProviderID      string
	PasswordHash    []byte
	PasswordSalt    []byte
	PasswordVersion PasswordVersion
	RefreshTokenIDs []string
	Version         int64
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// Clone returns a deep copy so callers can mutate it without aliasing the
// store's copy.
func (u *UserCredential) Clone() *UserCredential {
	c := *u
	c.PasswordHash = slices.Clone(u.PasswordHash)
	c.PasswordSalt = slices.Clone(u.PasswordSalt)
	c.RefreshTokenIDs = slices.Clone(u.RefreshTokenIDs)
	return &c
}

// HasRefreshTokenID reports whether id is currently listed.
func (u *UserCredential) HasRefreshTokenID(id string) bool {
	return slices.Contains(u.RefreshTokenIDs, id)
}

// AppendRefreshTokenID records id. When retention is positive only the
// newest retention ids are kept.
func (u *UserCredential) AppendRefreshTokenID(id string, retention int) {
	u.RefreshTokenIDs = append(u.RefreshTokenIDs, id)
	if retention > 0 && len(u.RefreshTokenIDs) > retention {
		u.RefreshTokenIDs = slices.Clone(u.RefreshTokenIDs[len(u.RefreshTokenIDs)-retention:])
	}
}

// RemoveRefreshTokenID drops id and reports whether it was present.
func (u *UserCredential) RemoveRefreshTokenID(id string) bool {
	i := slices.Index(u.RefreshTokenIDs, id)
	if i < 0 {
		return false
	}
	u.RefreshTokenIDs = slices.Delete(u.RefreshTokenIDs, i, i+1)
	return true
}

// PublicUser is the projection returned to callers. It never carries
// password material or refresh token ids.
type PublicUser struct {
	ID              string          `json:"id"`
	Username        string          `json:"username"`
	DID             string          `json:"did"`
	Role            Role            `json:"role"`
	Provider        string          `json:"provider,omitempty"`
	PasswordVersion PasswordVersion `json:"passwordVersion,omitempty"`
}

// Public returns the caller-facing projection of u.
func (u *UserCredential) Public() *PublicUser {
	return &PublicUser{
		ID:              u.ID,
		Username:        u.Username,
		DID:             u.DID,
		Role:            u.Role,
		Provider:        u.Provider,
		PasswordVersion: u.PasswordVersion,
	}
}
