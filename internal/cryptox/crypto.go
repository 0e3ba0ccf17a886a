// Package cryptox holds the low-level primitives behind password storage:
// argon2id key derivation, the legacy SHA-256 digest and salt generation.
package cryptox

import (
	"bytes"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/gophauth/internal/common"
	"golang.org/x/crypto/argon2"
)

// SaltSize is the length of salts produced by NewSalt.
const SaltSize = 16

// Argon2Params are the argon2id cost parameters. They are encoded next to
// every derived key, so raising them only affects new hashes.
type Argon2Params struct {
	Time      uint32
	MemoryKiB uint32
	Threads   uint8
	KeyLen    uint32
}

// DefaultArgon2Params mirrors the RFC 9106 second recommended option.
var DefaultArgon2Params = Argon2Params{
	Time:      1,
	MemoryKiB: 64 * 1024,
	Threads:   4,
	KeyLen:    32,
}

// DeriveKey derives a key from password and salt using argon2id.
func DeriveKey(password, salt []byte, p Argon2Params) []byte {
	return argon2.IDKey(password, salt, p.Time, p.MemoryKiB, p.Threads, p.KeyLen)
}

// ErrMalformedArgon2 is returned by ParseArgon2 for anything that is not an
// encoded argon2id hash.
var ErrMalformedArgon2 = errors.New("malformed argon2id hash")

var b64 = base64.RawStdEncoding

// EncodeArgon2 renders key in the PHC string format
// $argon2id$v=19$m=<KiB>,t=<time>,p=<threads>$<salt>$<key>.
func EncodeArgon2(key, salt []byte, p Argon2Params) []byte {
	return fmt.Appendf(nil, "$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2.Version, p.MemoryKiB, p.Time, p.Threads,
		b64.EncodeToString(salt), b64.EncodeToString(key))
}

// ParseArgon2 reverses EncodeArgon2. KeyLen of the returned params is the
// length of the decoded key.
func ParseArgon2(encoded []byte) (Argon2Params, []byte, []byte, error) {
	var p Argon2Params

	parts := bytes.Split(encoded, []byte("$"))
	if len(parts) != 6 || len(parts[0]) != 0 || string(parts[1]) != "argon2id" {
		return p, nil, nil, ErrMalformedArgon2
	}

	var version int
	if _, err := fmt.Sscanf(string(parts[2]), "v=%d", &version); err != nil || version != argon2.Version {
		return p, nil, nil, ErrMalformedArgon2
	}
	if _, err := fmt.Sscanf(string(parts[3]), "m=%d,t=%d,p=%d", &p.MemoryKiB, &p.Time, &p.Threads); err != nil {
		return p, nil, nil, ErrMalformedArgon2
	}
	if p.MemoryKiB == 0 || p.Time == 0 || p.Threads == 0 {
		return p, nil, nil, ErrMalformedArgon2
	}

	salt, err := b64.DecodeString(string(parts[4]))
	if err != nil || len(salt) == 0 {
		return p, nil, nil, ErrMalformedArgon2
	}
	key, err := b64.DecodeString(string(parts[5]))
	if err != nil || len(key) == 0 {
		return p, nil, nil, ErrMalformedArgon2
	}
	p.KeyLen = uint32(len(key))

	return p, salt, key, nil
}

// LegacyDigest returns the hex-encoded unsalted SHA-256 of password, the
// format written by the first generation of the account service.
func LegacyDigest(password []byte) []byte {
	sum := sha256.Sum256(password)
	out := make([]byte, hex.EncodedLen(len(sum)))
	hex.Encode(out, sum[:])
	return out
}

// NewSalt returns SaltSize random bytes.
func NewSalt() []byte {
	return common.GenerateRandByteArray(SaltSize)
}

// Equal compares a and b in constant time. Empty inputs never match.
func Equal(a, b []byte) bool {
	if len(a) == 0 || len(b) == 0 {
		return false
	}
	return subtle.ConstantTimeCompare(a, b) == 1
}
