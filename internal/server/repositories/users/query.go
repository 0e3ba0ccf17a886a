package users

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/dmitrijs2005/gophauth/internal/server/models"
)

// ErrEmptyQuery is returned when a lookup carries no conditions.
var ErrEmptyQuery = errors.New("users: empty query")

type field int

const (
	fieldID field = iota
	fieldUsername
	fieldRefreshTokenID
	fieldProvider
	fieldProviderID
)

func (f field) String() string {
	switch f {
	case fieldID:
		return "id"
	case fieldUsername:
		return "username"
	case fieldRefreshTokenID:
		return "refreshToken"
	case fieldProvider:
		return "provider"
	case fieldProviderID:
		return "providerId"
	}
	return "unknown"
}

type term struct {
	field field
	value string
}

// Query is a conjunction of equality conditions over stored credentials.
// A refresh token condition matches when the id is one of the user's live
// refresh token ids. Queries are immutable values:
//
//	users.Where().ID(callerID).RefreshTokenID(tokenID)
type Query struct {
	terms []term
}

// Where starts an empty query.
func Where() Query {
	return Query{}
}

func (q Query) with(f field, v string) Query {
	return Query{terms: append(slices.Clone(q.terms), term{field: f, value: v})}
}

func (q Query) ID(id string) Query { return q.with(fieldID, id) }

func (q Query) Username(username string) Query { return q.with(fieldUsername, username) }

func (q Query) RefreshTokenID(id string) Query { return q.with(fieldRefreshTokenID, id) }

func (q Query) Provider(provider, providerID string) Query {
	return q.with(fieldProvider, provider).with(fieldProviderID, providerID)
}

// Empty reports whether q has no conditions.
func (q Query) Empty() bool { return len(q.terms) == 0 }

// Matches evaluates q against u in memory.
func (q Query) Matches(u *models.UserCredential) bool {
	if q.Empty() {
		return false
	}
	for _, t := range q.terms {
		var ok bool
		switch t.field {
		case fieldID:
			ok = u.ID == t.value
		case fieldUsername:
			ok = u.Username == t.value
		case fieldRefreshTokenID:
			ok = u.HasRefreshTokenID(t.value)
		case fieldProvider:
			ok = u.Provider == t.value
		case fieldProviderID:
			ok = u.ProviderID == t.value
		}
		if !ok {
			return false
		}
	}
	return true
}

// where renders q as a SQL condition over the users table aliased u.
func (q Query) where() (string, []any) {
	conds := make([]string, 0, len(q.terms))
	args := make([]any, 0, len(q.terms))
	for i, t := range q.terms {
		n := i + 1
		switch t.field {
		case fieldID:
			conds = append(conds, fmt.Sprintf("u.id = $%d", n))
		case fieldUsername:
			conds = append(conds, fmt.Sprintf("u.username = $%d", n))
		case fieldRefreshTokenID:
			conds = append(conds, fmt.Sprintf(
				"EXISTS (SELECT 1 FROM user_refresh_tokens t WHERE t.user_id = u.id AND t.token_id = $%d)", n))
		case fieldProvider:
			conds = append(conds, fmt.Sprintf("u.provider = $%d", n))
		case fieldProviderID:
			conds = append(conds, fmt.Sprintf("u.provider_id = $%d", n))
		}
		args = append(args, t.value)
	}
	return strings.Join(conds, " AND "), args
}

// String lists the queried fields without their values, for logging.
func (q Query) String() string {
	names := make([]string, len(q.terms))
	for i, t := range q.terms {
		names[i] = t.field.String()
	}
	return "where(" + strings.Join(names, ",") + ")"
}
