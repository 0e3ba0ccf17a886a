package client

import (
	"context"

	"github.com/dmitrijs2005/gophauth/internal/client/models"
)

// Client is the account API as seen by the CLI.
type Client interface {
	Close() error
	Register(ctx context.Context, username, password, role string) (*models.User, error)
	Login(ctx context.Context, username, password string) (*models.Login, error)
	// RefreshAccessToken returns an empty token when the refresh token is
	// expired or no longer listed.
	RefreshAccessToken(ctx context.Context, refreshToken string) (string, error)
	GetUserByToken(ctx context.Context, accessToken string) (*models.User, error)
	ChangePassword(ctx context.Context, username, oldPassword, newPassword, userID string) (*models.PasswordChange, error)
	ProviderLogin(ctx context.Context, username, role, provider, providerID string) (*models.ProviderLogin, error)
	Logout(ctx context.Context, refreshToken string) error
}
