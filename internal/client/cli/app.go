package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"

	"github.com/dmitrijs2005/gophauth/internal/client/client"
	"github.com/dmitrijs2005/gophauth/internal/client/config"
	"github.com/dmitrijs2005/gophauth/internal/client/repositories/session"
	"github.com/dmitrijs2005/gophauth/internal/client/services"
	"github.com/dmitrijs2005/gophauth/internal/filex"

	_ "modernc.org/sqlite"
)

type App struct {
	config      *config.Config
	authService services.AuthService
	reader      *bufio.Reader
	out         io.Writer
}

// NewApp opens the session database and prepares the API client. The
// connection itself is established on the first call.
func NewApp(ctx context.Context, c *config.Config) (*App, error) {
	if _, err := filex.EnsureParentDir(c.SessionDB); err != nil {
		return nil, err
	}
	db, err := session.Open(ctx, c.SessionDB)
	if err != nil {
		return nil, fmt.Errorf("error initializing session database: %w", err)
	}

	apiClient, err := client.NewGRPCClient(c.ServerEndpointAddr)
	if err != nil {
		_ = db.Close()
		return nil, err
	}

	as := services.NewAuthService(apiClient, session.NewSQLiteRepository(db))
	return newApp(c, as, os.Stdin, os.Stdout), nil
}

func newApp(c *config.Config, as services.AuthService, in io.Reader, out io.Writer) *App {
	return &App{config: c, authService: as, reader: bufio.NewReader(in), out: out}
}

// Run executes the command in args, or starts the REPL when args is empty.
func (a *App) Run(ctx context.Context, args []string) error {
	defer a.authService.Close(ctx)

	if len(args) > 0 {
		return a.Exec(ctx, args[0])
	}
	fmt.Fprintln(a.out, "Welcome to authctl (type 'help' for commands)")
	runREPL(ctx, a, a.status, a.reader)
	return nil
}

// Exec runs a single named command.
func (a *App) Exec(ctx context.Context, cmd string) error {
	fn, ok := commands(a)[cmd]
	if !ok {
		return fmt.Errorf("unknown command: %s", cmd)
	}
	return fn(ctx)
}

func (a *App) session(ctx context.Context) string {
	s, err := a.authService.Session(ctx)
	if err != nil || !s.LoggedIn() {
		return ""
	}
	return s.Username
}

func (a *App) isLoggedIn(ctx context.Context) bool {
	return a.session(ctx) != ""
}

func (a *App) status(ctx context.Context) string {
	if u := a.session(ctx); u != "" {
		return fmt.Sprintf("(%s)", u)
	}
	return ""
}

// call bounds one API round trip by the configured timeout.
func (a *App) call(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, a.config.RequestTimeout)
}
