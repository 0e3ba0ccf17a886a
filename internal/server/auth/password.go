// Package auth implements the two codecs behind the credential lifecycle:
// PasswordCodec (versioned password hashing) and TokenCodec (signed access
// and refresh tokens).
package auth

import (
	"github.com/dmitrijs2005/gophauth/internal/cryptox"
	"github.com/dmitrijs2005/gophauth/internal/server/config"
	"github.com/dmitrijs2005/gophauth/internal/server/models"
)

// PasswordHash is the output of HashV2, ready to be stored on a credential.
// For V2, Hash is the PHC-encoded argon2id string carrying its own cost
// parameters and Salt repeats the raw salt.
type PasswordHash struct {
	Hash    []byte
	Salt    []byte
	Version models.PasswordVersion
}

// PasswordCodec hashes and verifies passwords. V2 is salted argon2id; V1 is
// the legacy unsalted digest, kept so old records can still be recognized.
type PasswordCodec struct {
	params cryptox.Argon2Params
	policy PasswordPolicy
}

// NewPasswordCodec builds a codec from the argon2 parameters and password
// policy in cfg.
func NewPasswordCodec(cfg *config.Config) *PasswordCodec {
	params := cryptox.DefaultArgon2Params
	params.Time = cfg.Argon2.Time
	params.MemoryKiB = cfg.Argon2.MemoryKiB
	params.Threads = cfg.Argon2.Threads

	return &PasswordCodec{
		params: params,
		policy: NewPasswordPolicy(cfg.PasswordPolicy),
	}
}

// HashV2 hashes password with a fresh random salt and the configured
// argon2 parameters.
func (c *PasswordCodec) HashV2(password string) PasswordHash {
	salt := cryptox.NewSalt()
	key := cryptox.DeriveKey([]byte(password), salt, c.params)
	return PasswordHash{
		Hash:    cryptox.EncodeArgon2(key, salt, c.params),
		Salt:    salt,
		Version: models.PasswordV2,
	}
}

// VerifyV2 recomputes the hash with the stored salt and the parameters
// encoded in the stored hash, not the configured ones. Malformed stored data
// yields false.
func (c *PasswordCodec) VerifyV2(cred *models.UserCredential, password string) bool {
	if cred == nil || len(cred.PasswordSalt) == 0 {
		return false
	}
	params, salt, key, err := cryptox.ParseArgon2(cred.PasswordHash)
	if err != nil || !cryptox.Equal(salt, cred.PasswordSalt) {
		return false
	}
	candidate := cryptox.DeriveKey([]byte(password), salt, params)
	return cryptox.Equal(key, candidate)
}

// VerifyV1 checks a legacy digest. Its result is informational: a V1 match
// must never open a session on its own.
func (c *PasswordCodec) VerifyV1(cred *models.UserCredential, password string) bool {
	if cred == nil {
		return false
	}
	return cryptox.Equal(cred.PasswordHash, cryptox.LegacyDigest([]byte(password)))
}

// Verify dispatches on the stored password version.
func (c *PasswordCodec) Verify(cred *models.UserCredential, password string) bool {
	if cred == nil {
		return false
	}
	switch cred.PasswordVersion {
	case models.PasswordV2:
		return c.VerifyV2(cred, password)
	case models.PasswordV1:
		return c.VerifyV1(cred, password)
	}
	return false
}

// IsStrong reports whether password satisfies the configured policy.
func (c *PasswordCodec) IsStrong(password string) bool {
	return c.policy.Check(password) == nil
}

// CheckStrength is IsStrong with the reason attached.
func (c *PasswordCodec) CheckStrength(password string) error {
	return c.policy.Check(password)
}
