// Package cli implements authctl, the command-line client of the account
// service.
//
// authctl runs a single command when one is given on the command line
// (authctl -a host:50051 login) and an interactive REPL otherwise. The login
// state survives between runs in a local SQLite file, so a later "whoami"
// or "passwd" works without logging in again.
//
// Commands: register, login, refresh, whoami, passwd, logout. Passwords are
// read from the terminal without echo.
package cli
