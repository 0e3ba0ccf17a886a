package httpapi

import (
	"errors"
	"net/http"
	"time"

	"github.com/dmitrijs2005/gophauth/internal/common"
	"github.com/dmitrijs2005/gophauth/internal/logging"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

// requestID takes the request id from the header or generates one, echoes
// it back and stores it in the request context for the logger.
func (s *Server) requestID(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		id := c.Request().Header.Get(common.RequestIDHeaderName)
		if id == "" {
			id = uuid.NewString()
		}
		c.Response().Header().Set(common.RequestIDHeaderName, id)

		ctx := logging.WithRequestID(c.Request().Context(), id)
		c.SetRequest(c.Request().WithContext(ctx))
		return next(c)
	}
}

func (s *Server) accessLog(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		start := time.Now()
		err := next(c)
		if err != nil {
			c.Error(err)
		}

		ctx := c.Request().Context()
		args := []any{
			"method", c.Request().Method,
			"path", c.Path(),
			"status", c.Response().Status,
			"duration", time.Since(start),
		}
		if c.Response().Status >= http.StatusInternalServerError {
			s.logger.Warn(ctx, "request failed", args...)
		} else {
			s.logger.Info(ctx, "request served", args...)
		}
		return nil
	}
}

// errorHandler renders echo errors (unknown route, wrong method, recovered
// panics) in the same shape as envelope failures.
func (s *Server) errorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}
	code := http.StatusInternalServerError
	msg := "internal error"

	var he *echo.HTTPError
	if errors.As(err, &he) {
		code = he.Code
		msg = http.StatusText(code)
	} else {
		s.logger.Error(c.Request().Context(), "unhandled error", "error", err)
	}
	_ = c.JSON(code, errorBody{Message: msg, Code: code})
}
