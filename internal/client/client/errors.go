package client

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	ErrUnavailable  = errors.New("server unavailable")
	ErrUnauthorized = errors.New("unauthorized")
	ErrConflict     = errors.New("already exists")
)

// RemoteError is an error envelope returned by the account service.
type RemoteError struct {
	Code    int
	Message string
}

func (e *RemoteError) Error() string {
	return fmt.Sprintf("%s (%d)", e.Message, e.Code)
}

// Is lets callers match envelope codes against the sentinels above.
func (e *RemoteError) Is(target error) bool {
	switch target {
	case ErrUnauthorized:
		return e.Code == http.StatusUnauthorized
	case ErrConflict:
		return e.Code == http.StatusConflict
	}
	return false
}
