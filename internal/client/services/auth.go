// Package services contains application services for the authctl CLI.
// This file defines the session service: it drives the account API and keeps
// the resulting login state in the local session store.
package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/gophauth/internal/client/client"
	"github.com/dmitrijs2005/gophauth/internal/client/models"
	"github.com/dmitrijs2005/gophauth/internal/client/repositories/session"
)

var (
	ErrNotLoggedIn    = errors.New("not logged in")
	ErrSessionExpired = errors.New("session expired, log in again")
)

// AuthService defines the account operations available to the CLI.
//
// Contract:
//   - Login stores the refresh token, a fresh access token and the user id.
//   - Refresh replaces the cached access token; an empty reply from the
//     server ends the local session with ErrSessionExpired.
//   - WhoAmI refreshes once and retries when the cached access token is
//     rejected.
//   - ChangePassword keeps the session but switches to the new refresh token.
//   - Logout revokes the refresh token on the server and clears the session.
type AuthService interface {
	Register(ctx context.Context, username, password, role string) (*models.User, error)
	Login(ctx context.Context, username, password string) (*models.Login, error)
	Refresh(ctx context.Context) (string, error)
	WhoAmI(ctx context.Context) (*models.User, error)
	ChangePassword(ctx context.Context, oldPassword, newPassword string) error
	Logout(ctx context.Context) error
	Session(ctx context.Context) (*models.Session, error)
	Close(ctx context.Context) error
}

type authService struct {
	client   client.Client
	sessions session.Repository
}

// NewAuthService constructs an AuthService bound to the given API client and
// session store.
func NewAuthService(c client.Client, sessions session.Repository) AuthService {
	return &authService{client: c, sessions: sessions}
}

func (a *authService) Register(ctx context.Context, username, password, role string) (*models.User, error) {
	return a.client.Register(ctx, username, password, role)
}

func (a *authService) Login(ctx context.Context, username, password string) (*models.Login, error) {
	res, err := a.client.Login(ctx, username, password)
	if err != nil {
		return nil, fmt.Errorf("login error: %w", err)
	}

	access, err := a.client.RefreshAccessToken(ctx, res.RefreshToken)
	if err != nil {
		return nil, fmt.Errorf("access token error: %w", err)
	}
	if access == "" {
		return nil, ErrSessionExpired
	}
	user, err := a.client.GetUserByToken(ctx, access)
	if err != nil {
		return nil, fmt.Errorf("user lookup error: %w", err)
	}

	if err := a.sessions.Save(ctx, &models.Session{
		UserID:       user.ID,
		Username:     res.Username,
		RefreshToken: res.RefreshToken,
		AccessToken:  access,
	}); err != nil {
		return nil, fmt.Errorf("session saving error: %w", err)
	}
	return res, nil
}

func (a *authService) current(ctx context.Context) (*models.Session, error) {
	s, err := a.sessions.Load(ctx)
	if err != nil {
		return nil, err
	}
	if !s.LoggedIn() {
		return nil, ErrNotLoggedIn
	}
	return s, nil
}

func (a *authService) refresh(ctx context.Context, s *models.Session) (string, error) {
	access, err := a.client.RefreshAccessToken(ctx, s.RefreshToken)
	if errors.Is(err, client.ErrUnauthorized) {
		access, err = "", nil
	}
	if err != nil {
		return "", err
	}
	if access == "" {
		if err := a.sessions.Clear(ctx); err != nil {
			return "", err
		}
		return "", ErrSessionExpired
	}
	if err := a.sessions.SetAccessToken(ctx, access); err != nil {
		return "", err
	}
	s.AccessToken = access
	return access, nil
}

func (a *authService) Refresh(ctx context.Context) (string, error) {
	s, err := a.current(ctx)
	if err != nil {
		return "", err
	}
	return a.refresh(ctx, s)
}

func (a *authService) WhoAmI(ctx context.Context) (*models.User, error) {
	s, err := a.current(ctx)
	if err != nil {
		return nil, err
	}
	if s.AccessToken != "" {
		user, err := a.client.GetUserByToken(ctx, s.AccessToken)
		if !errors.Is(err, client.ErrUnauthorized) {
			return user, err
		}
	}

	access, err := a.refresh(ctx, s)
	if err != nil {
		return nil, err
	}
	return a.client.GetUserByToken(ctx, access)
}

func (a *authService) ChangePassword(ctx context.Context, oldPassword, newPassword string) error {
	s, err := a.current(ctx)
	if err != nil {
		return err
	}
	if s.UserID == "" {
		user, err := a.WhoAmI(ctx)
		if err != nil {
			return err
		}
		// reload, WhoAmI may have replaced the access token
		if s, err = a.current(ctx); err != nil {
			return err
		}
		s.UserID = user.ID
	}

	res, err := a.client.ChangePassword(ctx, s.Username, oldPassword, newPassword, s.UserID)
	if err != nil {
		return err
	}
	s.RefreshToken = res.RefreshToken
	return a.sessions.Save(ctx, s)
}

func (a *authService) Logout(ctx context.Context) error {
	s, err := a.current(ctx)
	if err != nil {
		return err
	}
	// an already revoked or expired token still ends the local session
	if err := a.client.Logout(ctx, s.RefreshToken); err != nil && !errors.Is(err, client.ErrUnauthorized) {
		return err
	}
	return a.sessions.Clear(ctx)
}

func (a *authService) Session(ctx context.Context) (*models.Session, error) {
	return a.sessions.Load(ctx)
}

func (a *authService) Close(ctx context.Context) error {
	return a.client.Close()
}
