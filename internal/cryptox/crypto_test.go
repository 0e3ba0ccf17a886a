package cryptox

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// cheap parameters keep the tests fast; the algorithm is the same
var testParams = Argon2Params{Time: 1, MemoryKiB: 8 * 1024, Threads: 1, KeyLen: 32}

func TestDeriveKey_Deterministic(t *testing.T) {
	salt := []byte("0123456789abcdef")

	k1 := DeriveKey([]byte("password"), salt, testParams)
	k2 := DeriveKey([]byte("password"), salt, testParams)

	require.Len(t, k1, 32)
	assert.Equal(t, k1, k2)
}

func TestDeriveKey_DependsOnSaltAndPassword(t *testing.T) {
	base := DeriveKey([]byte("password"), []byte("0123456789abcdef"), testParams)

	otherSalt := DeriveKey([]byte("password"), []byte("fedcba9876543210"), testParams)
	otherPassword := DeriveKey([]byte("Password"), []byte("0123456789abcdef"), testParams)

	assert.False(t, bytes.Equal(base, otherSalt))
	assert.False(t, bytes.Equal(base, otherPassword))
}

func TestLegacyDigest_KnownVector(t *testing.T) {
	got := LegacyDigest([]byte("abc"))
	assert.Equal(t, "ba7816bf8f01cfea414140de5dae2223b00361a396177a9cb410ff61f20015ad", string(got))
}

func TestNewSalt(t *testing.T) {
	a := NewSalt()
	b := NewSalt()

	assert.Len(t, a, SaltSize)
	assert.NotEqual(t, a, b)
}

func TestEqual(t *testing.T) {
	tests := []struct {
		name string
		a, b []byte
		want bool
	}{
		{"same", []byte("abc"), []byte("abc"), true},
		{"different", []byte("abc"), []byte("abd"), false},
		{"different length", []byte("abc"), []byte("abcd"), false},
		{"both empty", nil, nil, false},
		{"one empty", []byte("abc"), nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Equal(tt.a, tt.b))
		})
	}
}

func TestEncodeArgon2_ParseArgon2(t *testing.T) {
	salt := []byte("0123456789abcdef")
	key := DeriveKey([]byte("password"), salt, testParams)

	encoded := EncodeArgon2(key, salt, testParams)
	assert.True(t, bytes.HasPrefix(encoded, []byte("$argon2id$v=19$m=8192,t=1,p=1$MDEyMzQ1Njc4OWFiY2RlZg$")), string(encoded))

	params, gotSalt, gotKey, err := ParseArgon2(encoded)
	require.NoError(t, err)
	assert.Equal(t, testParams, params)
	assert.Equal(t, salt, gotSalt)
	assert.Equal(t, key, gotKey)
}

func TestParseArgon2_Malformed(t *testing.T) {
	tests := []string{
		"",
		"plain",
		"$argon2i$v=19$m=8192,t=1,p=1$c2FsdA$a2V5",
		"$argon2id$v=16$m=8192,t=1,p=1$c2FsdA$a2V5",
		"$argon2id$v=19$m=8192,t=0,p=1$c2FsdA$a2V5",
		"$argon2id$v=19$m=x,t=1,p=1$c2FsdA$a2V5",
		"$argon2id$v=19$m=8192,t=1,p=1$!!$a2V5",
		"$argon2id$v=19$m=8192,t=1,p=1$c2FsdA$",
		"$argon2id$v=19$m=8192,t=1,p=1$c2FsdA",
	}
	for _, tt := range tests {
		t.Run(tt, func(t *testing.T) {
			_, _, _, err := ParseArgon2([]byte(tt))
			require.ErrorIs(t, err, ErrMalformedArgon2)
		})
	}
}
