// Package router maps account channel messages onto CredentialService calls
// and folds results and errors into uniform envelopes. It holds no business
// logic.
package router

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"strings"

	"github.com/dmitrijs2005/gophauth/internal/common"
	"github.com/dmitrijs2005/gophauth/internal/logging"
	"github.com/dmitrijs2005/gophauth/internal/server/models"
	"github.com/dmitrijs2005/gophauth/internal/server/services"
	"github.com/dmitrijs2005/gophauth/internal/wire"
	"github.com/go-playground/validator/v10"
)

// CredentialService is the subset of services.CredentialService the router
// dispatches to.
type CredentialService interface {
	Login(ctx context.Context, username, password string) (*services.LoginResult, error)
	RefreshAccessToken(ctx context.Context, refreshToken string) (*services.AccessTokenResult, error)
	ChangePassword(ctx context.Context, username, oldPassword, newPassword, callerID string) (*services.SessionResult, error)
	Register(ctx context.Context, username, password string, role models.Role) (*models.PublicUser, error)
	GetUserByToken(ctx context.Context, accessToken string) (*models.PublicUser, error)
	ProviderLogin(ctx context.Context, username string, role models.Role, provider, providerID string) (*services.ProviderLoginResult, error)
	Logout(ctx context.Context, refreshToken string) error
}

// errValidation marks a payload that failed decoding or validation.
var errValidation = errors.New("invalid payload")

type handlerFunc func(ctx context.Context, payload json.RawMessage) (any, error)

type Router struct {
	svc      CredentialService
	validate *validator.Validate
	logger   logging.Logger
	handlers map[wire.Kind]handlerFunc
}

func New(svc CredentialService, logger logging.Logger) *Router {
	v := validator.New(validator.WithRequiredStructEnabled())
	// Report JSON field names in validation messages.
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})

	r := &Router{
		svc:      svc,
		validate: v,
		logger:   logger.With("module", "router"),
	}
	r.handlers = map[wire.Kind]handlerFunc{
		wire.KindGetUserByToken: handle(r, func(ctx context.Context, p getUserByTokenPayload) (any, error) {
			return orEmpty(svc.GetUserByToken(ctx, p.Token))
		}),
		wire.KindGenerateNewToken: handle(r, func(ctx context.Context, p generateTokenPayload) (any, error) {
			return orEmpty(svc.Login(ctx, p.Username, p.Password))
		}),
		wire.KindGenerateNewAccessToken: handle(r, func(ctx context.Context, p generateAccessTokenPayload) (any, error) {
			return orEmpty(svc.RefreshAccessToken(ctx, p.RefreshToken))
		}),
		wire.KindChangeUserPassword: handle(r, func(ctx context.Context, p changePasswordPayload) (any, error) {
			return orEmpty(svc.ChangePassword(ctx, p.Username, p.OldPassword, p.NewPassword, p.UserID))
		}),
		wire.KindRegisterNewUser: handle(r, func(ctx context.Context, p registerPayload) (any, error) {
			return orEmpty(svc.Register(ctx, p.Username, p.Password, models.Role(p.Role)))
		}),
		wire.KindProviderToken: handle(r, func(ctx context.Context, p providerTokenPayload) (any, error) {
			return orEmpty(svc.ProviderLogin(ctx, p.Username, models.Role(p.Role), p.Provider, p.ProviderID))
		}),
		wire.KindLogout: handle(r, func(ctx context.Context, p logoutPayload) (any, error) {
			return nil, svc.Logout(ctx, p.RefreshToken)
		}),
	}
	return r
}

// Kinds lists the message kinds the router accepts.
func (r *Router) Kinds() []wire.Kind {
	kinds := make([]wire.Kind, 0, len(r.handlers))
	for k := range r.handlers {
		kinds = append(kinds, k)
	}
	return kinds
}

// Handle dispatches req to exactly one service method.
func (r *Router) Handle(ctx context.Context, req wire.Request) wire.Response {
	h, ok := r.handlers[req.Kind]
	if !ok {
		return wire.Failure(http.StatusBadRequest, fmt.Sprintf("unknown message kind %q", req.Kind))
	}

	body, err := h(ctx, req.Payload)
	if err != nil {
		return r.failure(ctx, req.Kind, err)
	}

	resp, err := wire.Success(body)
	if err != nil {
		return r.failure(ctx, req.Kind, err)
	}
	return resp
}

func (r *Router) failure(ctx context.Context, kind wire.Kind, err error) wire.Response {
	code := StatusCode(err)
	if code == http.StatusInternalServerError {
		r.logger.Error(ctx, "request failed", "kind", kind, "error", err)
		return wire.Failure(code, common.ErrorInternal.Error())
	}
	r.logger.Debug(ctx, "request rejected", "kind", kind, "code", code, "error", err)
	return wire.Failure(code, err.Error())
}

// StatusCode classifies err into the HTTP-like code carried by the error
// envelope.
func StatusCode(err error) int {
	switch {
	case errors.Is(err, common.ErrorUnauthorized),
		errors.Is(err, common.ErrUnsupportedPasswordType),
		errors.Is(err, common.ErrInvalidToken),
		errors.Is(err, common.ErrTokenExpired):
		return http.StatusUnauthorized
	case errors.Is(err, common.ErrWeakPassword),
		errors.Is(err, common.ErrInvalidArgument),
		errors.Is(err, errValidation):
		return http.StatusUnprocessableEntity
	case errors.Is(err, common.ErrAlreadyExists):
		return http.StatusConflict
	}
	return http.StatusInternalServerError
}

func handle[P any](r *Router, fn func(context.Context, P) (any, error)) handlerFunc {
	return func(ctx context.Context, raw json.RawMessage) (any, error) {
		var p P
		if err := r.decode(raw, &p); err != nil {
			return nil, err
		}
		return fn(ctx, p)
	}
}

func (r *Router) decode(raw json.RawMessage, dst any) error {
	if len(raw) > 0 && string(raw) != "null" {
		if err := json.Unmarshal(raw, dst); err != nil {
			return fmt.Errorf("%w: %v", errValidation, err)
		}
	}
	if err := r.validate.Struct(dst); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			return fmt.Errorf("%w: %s", errValidation, describe(verrs))
		}
		return fmt.Errorf("%w: %v", errValidation, err)
	}
	return nil
}

func describe(verrs validator.ValidationErrors) string {
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		switch fe.Tag() {
		case "required":
			msgs = append(msgs, fe.Field()+" is required")
		case "oneof":
			msgs = append(msgs, fmt.Sprintf("%s must be one of [%s]", fe.Field(), fe.Param()))
		case "max":
			msgs = append(msgs, fmt.Sprintf("%s must be at most %s characters", fe.Field(), fe.Param()))
		default:
			msgs = append(msgs, fmt.Sprintf("%s failed %s", fe.Field(), fe.Tag()))
		}
	}
	return strings.Join(msgs, "; ")
}

// orEmpty drops a typed nil result so it is rendered as an empty body.
func orEmpty[T any](v *T, err error) (any, error) {
	if err != nil || v == nil {
		return nil, err
	}
	return v, nil
}
