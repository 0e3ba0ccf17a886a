// Package common defines shared constants and sentinel errors used across
// client and server layers of gophauth. Callers should use errors.Is to
// match these values.
package common

import (
	"errors"
	"fmt"
)

var (
	// Repository-level errors.
	ErrorNotFound      = errors.New("not found")
	ErrVersionConflict = errors.New("version conflict")
	ErrAlreadyExists   = errors.New("an account with the same name already exists")

	// Service-level errors.
	ErrorInternal              = errors.New("internal error")
	ErrorUnauthorized          = errors.New("unauthorized request")
	ErrUnsupportedPasswordType = errors.New("unsupported password type")
	ErrWeakPassword            = errors.New("weak password")
	ErrInvalidArgument         = errors.New("invalid argument")

	// Token errors. ErrInvalidSignature and ErrMalformedToken both match
	// ErrInvalidToken.
	ErrInvalidToken     = errors.New("invalid token")
	ErrInvalidSignature = fmt.Errorf("%w: signature mismatch", ErrInvalidToken)
	ErrMalformedToken   = fmt.Errorf("%w: malformed", ErrInvalidToken)

	// Token lifecycle errors.
	ErrTokenExpired = errors.New("token expired")
)
