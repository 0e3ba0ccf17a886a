package users

import (
	"testing"

	"github.com/dmitrijs2005/gophauth/internal/server/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQuery_Immutable(t *testing.T) {
	base := Where().Username("alice")
	a := base.ID("1")
	b := base.ID("2")

	require.Len(t, base.terms, 1)
	require.Equal(t, "1", a.terms[1].value)
	require.Equal(t, "2", b.terms[1].value)
}

func TestQuery_Matches(t *testing.T) {
	u := &models.UserCredential{
		ID:              "u1",
		Username:        "alice",
		Provider:        "google",
		ProviderID:      "g-1",
		RefreshTokenIDs: []string{"t1", "t2"},
	}

	tests := []struct {
		name string
		q    Query
		want bool
	}{
		{"empty never matches", Where(), false},
		{"username", Where().Username("alice"), true},
		{"username mismatch", Where().Username("bob"), false},
		{"id and token", Where().ID("u1").RefreshTokenID("t2"), true},
		{"id and unknown token", Where().ID("u1").RefreshTokenID("t9"), false},
		{"token only", Where().RefreshTokenID("t1"), true},
		{"provider", Where().Provider("google", "g-1"), true},
		{"provider id mismatch", Where().Provider("google", "g-2"), false},
		{"explicit empty username", Where().Username(""), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.q.Matches(u))
		})
	}
}

func TestQuery_Where(t *testing.T) {
	cond, args := Where().ID("u1").RefreshTokenID("t1").where()

	assert.Equal(t,
		"u.id = $1 AND EXISTS (SELECT 1 FROM user_refresh_tokens t WHERE t.user_id = u.id AND t.token_id = $2)",
		cond)
	assert.Equal(t, []any{"u1", "t1"}, args)
}

func TestQuery_String(t *testing.T) {
	assert.Equal(t, "where(id,refreshToken)", Where().ID("secret").RefreshTokenID("secret").String())
	assert.Equal(t, "where(provider,providerId)", Where().Provider("p", "x").String())
}
