// Package server wires the account service together: configuration, the
// credential store, the codecs, the credential service, the router and the
// gRPC and HTTP front ends. It also handles graceful shutdown.
package server

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/dmitrijs2005/gophauth/internal/logging"
	"github.com/dmitrijs2005/gophauth/internal/server/auth"
	"github.com/dmitrijs2005/gophauth/internal/server/config"
	"github.com/dmitrijs2005/gophauth/internal/server/httpapi"
	"github.com/dmitrijs2005/gophauth/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/gophauth/internal/server/router"
	"github.com/dmitrijs2005/gophauth/internal/server/services"

	gs "github.com/dmitrijs2005/gophauth/internal/server/grpc"
)

type App struct {
	config *config.Config
	logger logging.Logger
	repos  repomanager.RepositoryManager
	router *router.Router
}

// NewApp builds the object graph. Migrations run here so a broken store is
// reported before any listener opens.
func NewApp(ctx context.Context, c *config.Config, logOut io.Writer) (*App, error) {
	logger, err := logging.New(logOut, c.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("logger init error: %w", err)
	}

	repos, err := repomanager.New(c)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}
	if err := repos.RunMigrations(ctx); err != nil {
		_ = repos.Close()
		return nil, err
	}

	svc := services.NewCredentialService(
		repos.Users(),
		auth.NewPasswordCodec(c),
		auth.NewTokenCodec(c),
		c,
		logger,
	)

	return &App{
		config: c,
		logger: logger,
		repos:  repos,
		router: router.New(svc, logger),
	}, nil
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

// runServer runs one front end; a failure brings the whole app down.
func (app *App) runServer(ctx context.Context, cancelFunc context.CancelFunc, name string, run func(context.Context) error) {
	if err := run(ctx); err != nil {
		app.logger.Error(ctx, "server failed", "server", name, "error", err)
		cancelFunc()
	}
}

// Run serves until ctx is cancelled, a signal arrives or a server fails.
func (app *App) Run(ctx context.Context) {
	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "Starting app...", "store", app.config.StoreDriver)

	app.initSignalHandler(cancelFunc)

	var wg sync.WaitGroup

	grpcServer := gs.NewGRPCServer(app.config.EndpointAddrGRPC, app.logger, app.router)
	wg.Add(1)
	go func() {
		defer wg.Done()
		app.runServer(ctx, cancelFunc, "grpc", grpcServer.Run)
	}()

	if app.config.EndpointAddrHTTP != "" {
		httpServer := httpapi.NewServer(app.config.EndpointAddrHTTP, app.logger, app.router)
		wg.Add(1)
		go func() {
			defer wg.Done()
			app.runServer(ctx, cancelFunc, "http", httpServer.Run)
		}()
	}

	wg.Wait()

	if err := app.repos.Close(); err != nil {
		app.logger.Error(ctx, "store close", "error", err)
	}
	app.logger.Info(ctx, "Stopped")
}
