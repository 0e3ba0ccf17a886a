package httpapi

import (
	"encoding/json"
	"io"
	"net/http"
	"strings"

	"github.com/dmitrijs2005/gophauth/internal/wire"
	"github.com/labstack/echo/v4"
)

type errorBody struct {
	Message string `json:"message"`
	Code    int    `json:"code"`
}

func (s *Server) routes(e *echo.Echo) {
	e.GET("/healthz", s.health)

	g := e.Group("/api/v1/accounts")
	g.POST("/register", s.forward(wire.KindRegisterNewUser))
	g.POST("/login", s.forward(wire.KindGenerateNewToken))
	g.POST("/refresh", s.forward(wire.KindGenerateNewAccessToken))
	g.POST("/logout", s.forward(wire.KindLogout))
	g.POST("/change-password", s.forward(wire.KindChangeUserPassword))
	g.POST("/provider-login", s.forward(wire.KindProviderToken))
	g.GET("/session", s.session)
}

func (s *Server) health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

// forward passes the JSON body through as the payload of kind.
func (s *Server) forward(kind wire.Kind) echo.HandlerFunc {
	return func(c echo.Context) error {
		body, err := io.ReadAll(io.LimitReader(c.Request().Body, maxBodyBytes+1))
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest)
		}
		if len(body) > maxBodyBytes {
			return echo.NewHTTPError(http.StatusRequestEntityTooLarge)
		}
		return s.reply(c, wire.Request{Kind: kind, Payload: body})
	}
}

// session resolves the bearer access token to its user.
func (s *Server) session(c echo.Context) error {
	token, ok := strings.CutPrefix(c.Request().Header.Get(echo.HeaderAuthorization), "Bearer ")
	token = strings.TrimSpace(token)
	if !ok || token == "" {
		return c.JSON(http.StatusUnauthorized, errorBody{Message: "missing bearer token", Code: http.StatusUnauthorized})
	}

	payload, err := json.Marshal(map[string]string{"token": token})
	if err != nil {
		return err
	}
	return s.reply(c, wire.Request{Kind: wire.KindGetUserByToken, Payload: payload})
}

func (s *Server) reply(c echo.Context, req wire.Request) error {
	resp := s.handler.Handle(c.Request().Context(), req)
	if resp.OK {
		return c.JSONBlob(http.StatusOK, resp.Body)
	}

	code, msg := http.StatusInternalServerError, "internal error"
	if resp.Error != nil {
		msg = resp.Error.Message
		if resp.Error.Code != 0 {
			code = resp.Error.Code
		}
	}
	return c.JSON(code, errorBody{Message: msg, Code: code})
}
