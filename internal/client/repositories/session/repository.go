// Package session persists the CLI login state in a local SQLite database.
package session

import (
	"context"

	"github.com/dmitrijs2005/gophauth/internal/client/models"
)

type Repository interface {
	// Load returns an empty session when nothing is stored.
	Load(ctx context.Context) (*models.Session, error)
	Save(ctx context.Context, s *models.Session) error
	// SetAccessToken updates only the cached access token.
	SetAccessToken(ctx context.Context, token string) error
	Clear(ctx context.Context) error
}
