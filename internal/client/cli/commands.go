package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/gophauth/internal/client/client"
	"github.com/dmitrijs2005/gophauth/internal/client/services"
)

// commands maps command words to handlers.
func commands(a execIface) map[string]func(context.Context) error {
	return map[string]func(context.Context) error{
		"register": a.Register,
		"login":    a.Login,
		"refresh":  a.Refresh,
		"whoami":   a.WhoAmI,
		"passwd":   a.Passwd,
		"logout":   a.Logout,
	}
}

// report prints err in a user-facing form and returns it unchanged.
func (a *App) report(action string, err error) error {
	switch {
	case errors.Is(err, client.ErrUnavailable):
		fmt.Fprintf(a.out, "%s failed: server unavailable\n", action)
	case errors.Is(err, services.ErrNotLoggedIn), errors.Is(err, services.ErrSessionExpired):
		fmt.Fprintln(a.out, err.Error())
	default:
		fmt.Fprintf(a.out, "%s failed: %s\n", action, err.Error())
	}
	return err
}

func (a *App) Register(ctx context.Context) error {
	username, err := GetSimpleText(a.reader, "Enter user name", a.out)
	if err != nil {
		return a.report("register", err)
	}
	password, err := GetPassword("Enter password", a.out)
	if err != nil {
		return a.report("register", err)
	}
	role, err := GetTextOrDefault(a.reader, "Role (STANDARD_REGISTRY, USER, AUDITOR)", "USER", a.out)
	if err != nil {
		return a.report("register", err)
	}

	ctx, cancel := a.call(ctx)
	defer cancel()
	user, err := a.authService.Register(ctx, username, password, role)
	if err != nil {
		return a.report("register", err)
	}
	fmt.Fprintf(a.out, "Registered %s (%s), id %s\n", user.Username, user.Role, user.ID)
	return nil
}

func (a *App) Login(ctx context.Context) error {
	username, err := GetSimpleText(a.reader, "Enter user name", a.out)
	if err != nil {
		return a.report("login", err)
	}
	password, err := GetPassword("Enter password", a.out)
	if err != nil {
		return a.report("login", err)
	}

	ctx, cancel := a.call(ctx)
	defer cancel()
	res, err := a.authService.Login(ctx, username, password)
	if err != nil {
		return a.report("login", err)
	}
	fmt.Fprintf(a.out, "Logged in as %s (%s)\n", res.Username, res.Role)
	if res.WeakPassword {
		fmt.Fprintln(a.out, "Your password no longer meets the password policy, change it with 'passwd'")
	}
	return nil
}

func (a *App) Refresh(ctx context.Context) error {
	ctx, cancel := a.call(ctx)
	defer cancel()
	if _, err := a.authService.Refresh(ctx); err != nil {
		return a.report("refresh", err)
	}
	fmt.Fprintln(a.out, "Access token refreshed")
	return nil
}

func (a *App) WhoAmI(ctx context.Context) error {
	ctx, cancel := a.call(ctx)
	defer cancel()
	user, err := a.authService.WhoAmI(ctx)
	if err != nil {
		return a.report("whoami", err)
	}
	fmt.Fprintf(a.out, "id:       %s\nusername: %s\nrole:     %s\n", user.ID, user.Username, user.Role)
	if user.DID != "" {
		fmt.Fprintf(a.out, "did:      %s\n", user.DID)
	}
	if user.Provider != "" {
		fmt.Fprintf(a.out, "provider: %s\n", user.Provider)
	}
	return nil
}

func (a *App) Passwd(ctx context.Context) error {
	if !a.isLoggedIn(ctx) {
		return a.report("passwd", services.ErrNotLoggedIn)
	}
	oldPassword, err := GetPassword("Current password", a.out)
	if err != nil {
		return a.report("passwd", err)
	}
	newPassword, err := GetPassword("New password", a.out)
	if err != nil {
		return a.report("passwd", err)
	}
	confirm, err := GetPassword("Repeat new password", a.out)
	if err != nil {
		return a.report("passwd", err)
	}
	if confirm != newPassword {
		return a.report("passwd", errors.New("passwords do not match"))
	}

	ctx, cancel := a.call(ctx)
	defer cancel()
	if err := a.authService.ChangePassword(ctx, oldPassword, newPassword); err != nil {
		return a.report("passwd", err)
	}
	fmt.Fprintln(a.out, "Password changed")
	return nil
}

func (a *App) Logout(ctx context.Context) error {
	ctx, cancel := a.call(ctx)
	defer cancel()
	if err := a.authService.Logout(ctx); err != nil {
		return a.report("logout", err)
	}
	fmt.Fprintln(a.out, "Logged out")
	return nil
}
