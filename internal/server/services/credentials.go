// Package services contains server-side business logic. CredentialService
// owns the credential and session lifecycle: registration, password login,
// refresh-token based access token issuance, password change and logout.
package services

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/gophauth/internal/common"
	"github.com/dmitrijs2005/gophauth/internal/logging"
	"github.com/dmitrijs2005/gophauth/internal/server/auth"
	"github.com/dmitrijs2005/gophauth/internal/server/config"
	"github.com/dmitrijs2005/gophauth/internal/server/models"
	"github.com/dmitrijs2005/gophauth/internal/server/repositories/users"
	"github.com/sethvargo/go-retry"
)

const defaultRetryBackoff = 5 * time.Millisecond

var errAlreadyRevoked = errors.New("refresh token already revoked")

// LoginResult is returned by Login. WeakPassword is advisory only.
type LoginResult struct {
	Username     string      `json:"username"`
	DID          string      `json:"did"`
	Role         models.Role `json:"role"`
	RefreshToken string      `json:"refreshToken"`
	WeakPassword bool        `json:"weakPassword"`
}

// SessionResult is returned by ChangePassword.
type SessionResult struct {
	Username     string      `json:"username"`
	DID          string      `json:"did"`
	Role         models.Role `json:"role"`
	RefreshToken string      `json:"refreshToken"`
}

// AccessTokenResult is returned by RefreshAccessToken.
type AccessTokenResult struct {
	AccessToken string `json:"accessToken"`
}

// ProviderLoginResult is returned by ProviderLogin.
type ProviderLoginResult struct {
	Username    string      `json:"username"`
	DID         string      `json:"did"`
	Role        models.Role `json:"role"`
	AccessToken string      `json:"accessToken"`
}

// CredentialService implements the account operations on top of a
// users.Repository and the two codecs. It holds no locks: concurrent updates
// to one credential are resolved by the store's version check and retried
// here.
type CredentialService struct {
	users     users.Repository
	passwords *auth.PasswordCodec
	tokens    *auth.TokenCodec
	logger    logging.Logger
	now       func() time.Time

	accessTTL         time.Duration
	extendedAccessTTL time.Duration
	retention         int
	saveRetries       uint64
	retryBackoff      time.Duration
}

// Option customizes a CredentialService.
type Option func(*CredentialService)

// WithClock replaces time.Now. It should match the clock given to the
// TokenCodec.
func WithClock(now func() time.Time) Option {
	return func(s *CredentialService) { s.now = now }
}

// WithRetryBackoff sets the base delay between save attempts.
func WithRetryBackoff(d time.Duration) Option {
	return func(s *CredentialService) {
		if d > 0 {
			s.retryBackoff = d
		}
	}
}

func NewCredentialService(
	repo users.Repository,
	passwords *auth.PasswordCodec,
	tokens *auth.TokenCodec,
	cfg *config.Config,
	logger logging.Logger,
	opts ...Option,
) *CredentialService {
	s := &CredentialService{
		users:             repo,
		passwords:         passwords,
		tokens:            tokens,
		logger:            logger.With("module", "credentials"),
		now:               time.Now,
		accessTTL:         cfg.AccessTokenValidityDuration,
		extendedAccessTTL: cfg.ExtendedAccessTokenValidityDuration,
		retention:         cfg.RefreshTokenRetention,
		saveRetries:       uint64(max(cfg.SaveRetries, 0)),
		retryBackoff:      defaultRetryBackoff,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Login verifies a password and issues a refresh token. Only V2 credentials
// can log in; a correct V1 password fails with ErrUnsupportedPasswordType so
// the caller is sent through ChangePassword.
func (s *CredentialService) Login(ctx context.Context, username, password string) (*LoginResult, error) {
	user, err := s.users.FindOne(ctx, users.Where().Username(username))
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrorUnauthorized
		}
		return nil, s.internal(ctx, "find credential", err, "username", username)
	}

	switch user.PasswordVersion {
	case models.PasswordV2:
		if !s.passwords.VerifyV2(user, password) {
			return nil, common.ErrorUnauthorized
		}
	case models.PasswordV1:
		if !s.passwords.VerifyV1(user, password) {
			return nil, common.ErrorUnauthorized
		}
		s.logger.Info(ctx, "legacy password login refused", "user_id", user.ID)
		return nil, common.ErrUnsupportedPasswordType
	default:
		return nil, common.ErrorUnauthorized
	}

	refresh, err := s.tokens.SignRefresh(user.Username)
	if err != nil {
		return nil, s.internal(ctx, "sign refresh token", err, "user_id", user.ID)
	}

	saved, err := s.persist(ctx, user, func(u *models.UserCredential) error {
		u.AppendRefreshTokenID(refresh.ID, s.retention)
		return nil
	})
	if err != nil {
		return nil, err
	}

	return &LoginResult{
		Username:     saved.Username,
		DID:          saved.DID,
		Role:         saved.Role,
		RefreshToken: refresh.Token,
		WeakPassword: !s.passwords.IsStrong(password),
	}, nil
}

// RefreshAccessToken exchanges a live refresh token for an access token with
// the extended lifetime. An expired or unknown refresh token yields a nil
// result and a nil error, so the caller cannot tell the two apart. The
// refresh token itself is neither rotated nor revoked.
func (s *CredentialService) RefreshAccessToken(ctx context.Context, refreshToken string) (*AccessTokenResult, error) {
	claims, err := s.tokens.Verify(refreshToken)
	if err != nil || claims.Kind != auth.KindRefresh {
		return nil, common.ErrorUnauthorized
	}
	if claims.Expired(s.now()) {
		return nil, nil
	}

	_, err = s.users.FindOne(ctx, users.Where().RefreshTokenID(claims.ID).Username(claims.Subject))
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, nil
		}
		return nil, s.internal(ctx, "find credential", err, "username", claims.Subject)
	}

	access, err := s.tokens.SignAccess(claims.Subject, s.extendedAccessTTL)
	if err != nil {
		return nil, s.internal(ctx, "sign access token", err, "username", claims.Subject)
	}
	return &AccessTokenResult{AccessToken: access}, nil
}

// ChangePassword replaces the password of the caller's own credential with a
// V2 hash and issues a new refresh token. It is the upgrade path for V1
// credentials.
func (s *CredentialService) ChangePassword(ctx context.Context, username, oldPassword, newPassword, callerID string) (*SessionResult, error) {
	user, err := s.users.FindOne(ctx, users.Where().Username(username).ID(callerID))
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrorUnauthorized
		}
		return nil, s.internal(ctx, "find credential", err, "user_id", callerID)
	}

	if !s.passwords.Verify(user, oldPassword) {
		return nil, common.ErrorUnauthorized
	}
	if err := s.passwords.CheckStrength(newPassword); err != nil {
		return nil, err
	}

	hash := s.passwords.HashV2(newPassword)
	refresh, err := s.tokens.SignRefresh(user.Username)
	if err != nil {
		return nil, s.internal(ctx, "sign refresh token", err, "user_id", user.ID)
	}

	verified := user.PasswordHash
	saved, err := s.persist(ctx, user, func(u *models.UserCredential) error {
		// A concurrent change invalidates the old password we checked.
		if !bytes.Equal(u.PasswordHash, verified) {
			return common.ErrorUnauthorized
		}
		u.PasswordHash = hash.Hash
		u.PasswordSalt = hash.Salt
		u.PasswordVersion = hash.Version
		u.AppendRefreshTokenID(refresh.ID, s.retention)
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info(ctx, "password changed", "user_id", saved.ID)
	return &SessionResult{
		Username:     saved.Username,
		DID:          saved.DID,
		Role:         saved.Role,
		RefreshToken: refresh.Token,
	}, nil
}

// Register creates a V2 credential with no refresh tokens.
func (s *CredentialService) Register(ctx context.Context, username, password string, role models.Role) (*models.PublicUser, error) {
	if !role.Valid() {
		return nil, fmt.Errorf("%w: unknown role %q", common.ErrInvalidArgument, role)
	}

	n, err := s.users.Count(ctx, users.Where().Username(username))
	if err != nil {
		return nil, s.internal(ctx, "count credentials", err, "username", username)
	}
	if n > 0 {
		return nil, common.ErrAlreadyExists
	}

	if err := s.passwords.CheckStrength(password); err != nil {
		return nil, err
	}

	hash := s.passwords.HashV2(password)
	saved, err := s.users.Save(ctx, &models.UserCredential{
		Username:        username,
		Role:            role,
		PasswordHash:    hash.Hash,
		PasswordSalt:    hash.Salt,
		PasswordVersion: hash.Version,
	})
	if err != nil {
		if errors.Is(err, common.ErrAlreadyExists) {
			return nil, err
		}
		return nil, s.internal(ctx, "create credential", err, "username", username)
	}

	s.logger.Info(ctx, "user registered", "user_id", saved.ID, "role", saved.Role)
	return saved.Public(), nil
}

// GetUserByToken resolves an unexpired access token to its user.
func (s *CredentialService) GetUserByToken(ctx context.Context, accessToken string) (*models.PublicUser, error) {
	claims, err := s.tokens.Verify(accessToken)
	if err != nil {
		return nil, err
	}
	if claims.Kind != auth.KindAccess {
		return nil, common.ErrorUnauthorized
	}
	if claims.Expired(s.now()) {
		return nil, common.ErrTokenExpired
	}

	user, err := s.users.FindOne(ctx, users.Where().Username(claims.Subject))
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrorUnauthorized
		}
		return nil, s.internal(ctx, "find credential", err, "username", claims.Subject)
	}
	return user.Public(), nil
}

// ProviderLogin signs in a user authenticated by an external identity
// provider. The first login creates a password-less credential linked to
// the provider; later logins must present the same provider identity.
func (s *CredentialService) ProviderLogin(ctx context.Context, username string, role models.Role, provider, providerID string) (*ProviderLoginResult, error) {
	if !role.Valid() {
		return nil, fmt.Errorf("%w: unknown role %q", common.ErrInvalidArgument, role)
	}

	user, err := s.users.FindOne(ctx, users.Where().Username(username))
	switch {
	case errors.Is(err, common.ErrorNotFound):
		user, err = s.users.Save(ctx, &models.UserCredential{
			Username:   username,
			Role:       role,
			Provider:   provider,
			ProviderID: providerID,
		})
		if err != nil {
			if errors.Is(err, common.ErrAlreadyExists) {
				return nil, common.ErrorUnauthorized
			}
			return nil, s.internal(ctx, "create credential", err, "username", username)
		}
		s.logger.Info(ctx, "provider user created", "user_id", user.ID, "provider", provider)
	case err != nil:
		return nil, s.internal(ctx, "find credential", err, "username", username)
	case user.Provider != provider || user.ProviderID != providerID:
		return nil, common.ErrorUnauthorized
	}

	access, err := s.tokens.SignAccess(user.Username, s.accessTTL)
	if err != nil {
		return nil, s.internal(ctx, "sign access token", err, "user_id", user.ID)
	}
	return &ProviderLoginResult{
		Username:    user.Username,
		DID:         user.DID,
		Role:        user.Role,
		AccessToken: access,
	}, nil
}

// Logout revokes a refresh token by removing its id from the owner's list.
// Unknown or already revoked tokens are not an error. Expired tokens can be
// revoked too.
func (s *CredentialService) Logout(ctx context.Context, refreshToken string) error {
	claims, err := s.tokens.Verify(refreshToken)
	if err != nil || claims.Kind != auth.KindRefresh {
		return common.ErrorUnauthorized
	}

	user, err := s.users.FindOne(ctx, users.Where().RefreshTokenID(claims.ID).Username(claims.Subject))
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil
		}
		return s.internal(ctx, "find credential", err, "username", claims.Subject)
	}

	_, err = s.persist(ctx, user, func(u *models.UserCredential) error {
		if !u.RemoveRefreshTokenID(claims.ID) {
			return errAlreadyRevoked
		}
		return nil
	})
	if err != nil && !errors.Is(err, errAlreadyRevoked) {
		return err
	}
	return nil
}

// applyError carries an error returned by a persist callback so it is not
// mistaken for a store failure.
type applyError struct{ err error }

func (e *applyError) Error() string { return e.err.Error() }
func (e *applyError) Unwrap() error { return e.err }

// persist applies fn to a copy of user and saves it. On a version conflict
// the credential is reloaded and fn is applied again, up to the configured
// number of retries. Errors returned by fn are passed through unchanged.
func (s *CredentialService) persist(ctx context.Context, user *models.UserCredential, fn func(*models.UserCredential) error) (*models.UserCredential, error) {
	current := user
	var saved *models.UserCredential

	b := retry.WithMaxRetries(s.saveRetries, retry.NewExponential(s.retryBackoff))
	err := retry.Do(ctx, b, func(ctx context.Context) error {
		if current == nil {
			reloaded, err := s.users.FindOne(ctx, users.Where().ID(user.ID))
			if err != nil {
				return err
			}
			current = reloaded
		}

		next := current.Clone()
		if err := fn(next); err != nil {
			return &applyError{err: err}
		}

		var err error
		saved, err = s.users.Save(ctx, next)
		if errors.Is(err, common.ErrVersionConflict) {
			s.logger.Debug(ctx, "version conflict, reloading", "user_id", user.ID, "version", next.Version)
			current = nil
			return retry.RetryableError(err)
		}
		return err
	})
	if err == nil {
		return saved, nil
	}

	var ae *applyError
	if errors.As(err, &ae) {
		return nil, ae.err
	}
	if errors.Is(err, common.ErrorNotFound) {
		return nil, common.ErrorUnauthorized
	}
	return nil, s.internal(ctx, "save credential", err, "user_id", user.ID)
}

// internal logs a store or codec failure and hides it from the caller.
func (s *CredentialService) internal(ctx context.Context, op string, err error, args ...any) error {
	s.logger.Error(ctx, op+" failed", append(args, "error", err)...)
	return common.ErrorInternal
}
