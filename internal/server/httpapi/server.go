// Package httpapi is a REST gateway onto the account channel. Each route maps
// to one request kind; the envelope's error code becomes the HTTP status.
package httpapi

import (
	"context"
	"errors"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/dmitrijs2005/gophauth/internal/logging"
	"github.com/dmitrijs2005/gophauth/internal/wire"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
)

const (
	maxBodyBytes    = 64 << 10
	shutdownTimeout = 5 * time.Second
)

// Handler answers one account channel request. *router.Router satisfies it.
type Handler interface {
	Handle(ctx context.Context, req wire.Request) wire.Response
}

type Server struct {
	address string
	handler Handler
	logger  logging.Logger
	echo    *echo.Echo
}

func NewServer(address string, l logging.Logger, h Handler) *Server {
	s := &Server{
		address: address,
		handler: h,
		logger:  l.With("module", "http_server"),
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(s.requestID, s.accessLog, middleware.RecoverWithConfig(middleware.RecoverConfig{
		DisablePrintStack:   true,
		DisableErrorHandler: true,
	}))
	e.HTTPErrorHandler = s.errorHandler
	s.routes(e)
	s.echo = e
	return s
}

// ServeHTTP lets tests and embedding servers drive the gateway directly.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.echo.ServeHTTP(w, r)
}

// Run listens on the configured address and serves until ctx is cancelled.
func (s *Server) Run(ctx context.Context) error {
	lis, err := net.Listen("tcp", s.address)
	if err != nil {
		return err
	}
	return s.Serve(ctx, lis)
}

// Serve serves on lis until ctx is cancelled, then shuts down gracefully.
// The shutdown watcher never outlives Serve.
func (s *Server) Serve(ctx context.Context, lis net.Listener) error {
	s.echo.Listener = lis

	done := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		select {
		case <-ctx.Done():
		case <-done:
			return
		}
		s.logger.Info(ctx, "Stopping HTTP server...")
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
		defer cancel()
		if err := s.echo.Shutdown(shutdownCtx); err != nil {
			s.logger.Error(ctx, "HTTP shutdown", "error", err)
		}
	}()
	defer func() {
		close(done)
		wg.Wait()
	}()

	s.logger.Info(ctx, "Starting HTTP server", "address", lis.Addr().String())

	if err := s.echo.Start(""); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
